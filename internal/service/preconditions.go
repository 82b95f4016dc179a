package service

import (
	"fmt"
	"time"

	"github.com/aibanking/conversation-core/internal/model"
)

// Precondition outcomes.
const (
	PrecondPassed        = "passed"
	PrecondFailed        = "failed"
	PrecondPending       = "pending"
	PrecondNotApplicable = "not_applicable"
)

// Business limits applied by the precondition evaluator.
const (
	defaultDailyLimit    = 10_000.0
	fraudReviewThreshold = 2_500.0
	businessHoursOpen    = 8
	businessHoursClose   = 20
)

// PreconditionResult reports one evaluated business check.
type PreconditionResult struct {
	Name           string `json:"name"`
	Status         string `json:"status"`
	Message        string `json:"message,omitempty"`
	ActionRequired string `json:"action_required,omitempty"`
}

// Failed reports a hard failure; pending is not a failure.
func (p PreconditionResult) Failed() bool { return p.Status == PrecondFailed }

// evaluatePreconditions runs the intent's declared checks synchronously
// against data already in hand. Unknown names pass.
func evaluatePreconditions(intent *model.Intent, entities model.Entities, profile *model.UserProfile, now time.Time) []PreconditionResult {
	if intent == nil || len(intent.Preconditions) == 0 {
		return nil
	}
	amount, hasAmount := entities.AmountValue()

	out := make([]PreconditionResult, 0, len(intent.Preconditions))
	for _, name := range intent.Preconditions {
		switch name {
		case "balance_check":
			out = append(out, checkBalance(amount, hasAmount, profile))
		case "limit_check":
			out = append(out, checkLimit(amount, hasAmount, profile))
		case "fraud_check":
			out = append(out, checkFraud(amount, hasAmount))
		case "hours_check":
			out = append(out, checkHours(now))
		default:
			out = append(out, PreconditionResult{Name: name, Status: PrecondPassed})
		}
	}
	return out
}

func checkBalance(amount float64, hasAmount bool, profile *model.UserProfile) PreconditionResult {
	if !hasAmount {
		return PreconditionResult{Name: "balance_check", Status: PrecondNotApplicable}
	}
	available := defaultDailyLimit
	if profile != nil {
		available = profile.AvailableBalance
	}
	if amount > available {
		return PreconditionResult{
			Name:           "balance_check",
			Status:         PrecondFailed,
			Message:        fmt.Sprintf("Insufficient funds: the amount %s exceeds your available balance of %s.", formatMoney(amount), formatMoney(available)),
			ActionRequired: "Choose a smaller amount or fund the account first.",
		}
	}
	return PreconditionResult{Name: "balance_check", Status: PrecondPassed}
}

func checkLimit(amount float64, hasAmount bool, profile *model.UserProfile) PreconditionResult {
	if !hasAmount {
		return PreconditionResult{Name: "limit_check", Status: PrecondNotApplicable}
	}
	limit := defaultDailyLimit
	if profile != nil && profile.DailyLimit > 0 {
		limit = profile.DailyLimit
	}
	if amount > limit {
		return PreconditionResult{
			Name:           "limit_check",
			Status:         PrecondFailed,
			Message:        fmt.Sprintf("The amount %s exceeds your daily limit of %s.", formatMoney(amount), formatMoney(limit)),
			ActionRequired: "Split the transaction or request a limit increase.",
		}
	}
	return PreconditionResult{Name: "limit_check", Status: PrecondPassed}
}

func checkFraud(amount float64, hasAmount bool) PreconditionResult {
	if !hasAmount {
		return PreconditionResult{Name: "fraud_check", Status: PrecondNotApplicable}
	}
	if amount > fraudReviewThreshold {
		return PreconditionResult{
			Name:           "fraud_check",
			Status:         PrecondPending,
			Message:        "This amount requires additional verification before it can be released.",
			ActionRequired: "Complete the verification step when prompted.",
		}
	}
	return PreconditionResult{Name: "fraud_check", Status: PrecondPassed}
}

func checkHours(now time.Time) PreconditionResult {
	h := now.Hour()
	if h < businessHoursOpen || h >= businessHoursClose {
		return PreconditionResult{
			Name:           "hours_check",
			Status:         PrecondFailed,
			Message:        "This operation is only available between 8:00 AM and 8:00 PM.",
			ActionRequired: "Try again during business hours.",
		}
	}
	return PreconditionResult{Name: "hours_check", Status: PrecondPassed}
}
