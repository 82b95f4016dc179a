package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aibanking/conversation-core/internal/model"
)

// GeneratedResponse is the responder's verdict for one turn, before the
// orchestrator applies suspensions and execution.
type GeneratedResponse struct {
	Status        model.Status           `json:"status"`
	Message       string                 `json:"message"`
	MissingFields []model.EntityType     `json:"missing_fields,omitempty"`
	Questions     []string               `json:"questions,omitempty"`
	AuthChallenge *model.AuthChallengeInfo `json:"auth_challenge,omitempty"`
	Preconditions []PreconditionResult   `json:"preconditions,omitempty"`
	Warnings      []string               `json:"warnings,omitempty"`
	NextSteps     []string               `json:"next_steps,omitempty"`
}

// Responder turns a classified, extracted, enriched turn into a response
// decision. It is pure apart from the injected clock.
type Responder struct {
	now func() time.Time
}

// NewResponder creates the responder with the wall clock.
func NewResponder() *Responder { return &Responder{now: time.Now} }

// SetClock overrides the clock used by time-based preconditions. Test hook.
func (r *Responder) SetClock(now func() time.Time) { r.now = now }

// Generate applies the decision ladder. First match wins: missing required
// information, confirmation for risky intents, authentication, failed
// preconditions, then a templated success.
func (r *Responder) Generate(intent *model.Intent, extraction *ExtractionResult, profile *model.UserProfile) *GeneratedResponse {
	if intent == nil {
		return &GeneratedResponse{
			Status:  model.StatusInfo,
			Message: "I'm not sure which banking operation you need. You can ask about balances, transfers, cards, or payments.",
		}
	}
	entities := extraction.Entities

	if len(extraction.MissingRequired) > 0 {
		return r.missingInfo(intent, extraction)
	}

	if intent.RiskLevel.AtLeast(model.RiskMedium) {
		return r.confirmation(intent, entities)
	}

	userLevel := model.AuthFull
	if profile != nil {
		userLevel = profile.AuthLevel
	}
	if !userLevel.Satisfies(intent.AuthRequired) {
		return &GeneratedResponse{
			Status:  model.StatusAuthRequired,
			Message: fmt.Sprintf("This operation requires %s authentication. Please verify your identity to continue.", intent.AuthRequired),
			AuthChallenge: &model.AuthChallengeInfo{
				RequiredLevel: intent.AuthRequired,
				Methods:       authMethods(intent.AuthRequired),
				TimeoutSec:    300,
			},
		}
	}

	checks := evaluatePreconditions(intent, entities, profile, r.now())
	for _, check := range checks {
		if check.Failed() {
			return &GeneratedResponse{
				Status:        model.StatusError,
				Message:       check.Message,
				Preconditions: checks,
				NextSteps:     []string{check.ActionRequired},
			}
		}
	}

	resp := r.success(intent, entities)
	resp.Preconditions = checks
	for _, check := range checks {
		if check.Status == PrecondPending {
			resp.Warnings = append(resp.Warnings, check.Message)
		}
	}
	return resp
}

func (r *Responder) missingInfo(intent *model.Intent, extraction *ExtractionResult) *GeneratedResponse {
	names := make([]string, 0, len(extraction.MissingRequired))
	for _, field := range extraction.MissingRequired {
		names = append(names, friendlyFieldName(field))
	}
	return &GeneratedResponse{
		Status:        model.StatusClarificationNeeded,
		Message:       fmt.Sprintf("To %s I still need: %s.", strings.ToLower(intent.Name), strings.Join(names, ", ")),
		MissingFields: extraction.MissingRequired,
		Questions:     extraction.Suggestions,
	}
}

func (r *Responder) confirmation(intent *model.Intent, entities model.Entities) *GeneratedResponse {
	var lines []string
	for _, entityType := range declaredOrder(intent) {
		entity, ok := entities[entityType]
		if !ok {
			continue
		}
		lines = append(lines, fmt.Sprintf("  %s: %s", friendlyFieldName(entityType), formatEntityValue(entity)))
		if entity.Enriched != nil && entity.Enriched.BankName != "" {
			lines = append(lines, fmt.Sprintf("    bank: %s", entity.Enriched.BankName))
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Please confirm this %s:\n", strings.ToLower(intent.Name))
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\nReply \"yes\" to proceed or \"no\" to cancel.")

	resp := &GeneratedResponse{
		Status:  model.StatusConfirmationNeeded,
		Message: b.String(),
	}
	if intent.RiskLevel.AtLeast(model.RiskHigh) {
		resp.Warnings = append(resp.Warnings, "This is a high-risk operation. Review the details carefully before approving.")
	}
	return resp
}

func (r *Responder) success(intent *model.Intent, entities model.Entities) *GeneratedResponse {
	return &GeneratedResponse{
		Status:  model.StatusSuccess,
		Message: successMessage(intent, entities),
	}
}

// successMessage picks a template keyed on intent family.
func successMessage(intent *model.Intent, entities model.Entities) string {
	switch {
	case intent.ID == "accounts.balance.check":
		if record := accountRecordOf(entities); record != nil {
			return fmt.Sprintf("Your %s account balance is %s.", record.Type, formatMoney(record.Balance))
		}
		return "I couldn't find that account. Please check the account name and try again."

	case intent.ID == "accounts.statement.view", intent.ID == "accounts.transactions.search":
		if record := accountRecordOf(entities); record != nil {
			return fmt.Sprintf("Here are the recent transactions for your %s account (%s).", record.Type, record.Name)
		}
		return "Here are your recent transactions."

	case strings.HasPrefix(intent.ID, "payments.transfer"), intent.ID == "payments.p2p.send", intent.ID == "international.wire.send":
		amount, _ := entities.AmountValue()
		target := "the destination account"
		if recipient, ok := entities[model.EntityRecipient]; ok {
			target = recipient.Text()
		} else if to, ok := entities[model.EntityToAccount]; ok {
			target = "your " + to.Text() + " account"
		}
		return fmt.Sprintf("Transfer of %s to %s has been initiated.", formatMoney(amount), target)

	case intent.ID == "cards.block":
		if card, ok := entities[model.EntityCardID]; ok {
			return fmt.Sprintf("Your card ending in %s has been temporarily blocked.", maskDigits(card.Text()))
		}
		return "Your card has been temporarily blocked."

	case intent.ID == "support.hours.check":
		return "Our branches are open Monday through Friday, 8:00 AM to 8:00 PM."

	default:
		return fmt.Sprintf("Your %s request has been processed.", strings.ToLower(intent.Name))
	}
}

// accountRecordOf returns the first enriched account record among the
// account-shaped entities.
func accountRecordOf(entities model.Entities) *model.Record {
	for _, key := range accountEntityKeys {
		if entity, ok := entities[key]; ok && entity.Enriched != nil {
			return entity.Enriched
		}
	}
	return nil
}

func declaredOrder(intent *model.Intent) []model.EntityType {
	out := make([]model.EntityType, 0, len(intent.RequiredEntities)+len(intent.OptionalEntities))
	out = append(out, intent.RequiredEntities...)
	out = append(out, intent.OptionalEntities...)
	return out
}

func authMethods(level model.AuthLevel) []string {
	switch level {
	case model.AuthChallenge:
		return []string{"biometric", "security_question"}
	case model.AuthFull:
		return []string{"password", "otp"}
	default:
		return []string{"password"}
	}
}

var friendlyNames = map[model.EntityType]string{
	model.EntityAmount:        "amount",
	model.EntityRecipient:     "recipient",
	model.EntityFromAccount:   "source account",
	model.EntityToAccount:     "destination account",
	model.EntityAccountType:   "account",
	model.EntityCardID:        "card",
	model.EntityDate:          "date",
	model.EntityMemo:          "note",
	model.EntityTransactionID: "transaction",
}

func friendlyFieldName(t model.EntityType) string {
	if name, ok := friendlyNames[t]; ok {
		return name
	}
	return strings.ReplaceAll(string(t), "_", " ")
}

// formatEntityValue renders a value for confirmation messages. Monetary
// floats render as dollars, digit strings are masked to their last four,
// everything else prints verbatim. Enriched entities print the resolved name.
func formatEntityValue(e model.Entity) string {
	if e.Enriched != nil && e.Enriched.Name != "" {
		return e.Enriched.Name
	}
	if amount, ok := e.Value.(float64); ok {
		if amount > 0 && amount < 1_000_000 {
			return formatMoney(amount)
		}
		return strconv.FormatFloat(amount, 'f', -1, 64)
	}
	text := e.Text()
	if isDigitString(text) && len(digitsOnly(text)) > 4 {
		return maskDigits(text)
	}
	return text
}

func isDigitString(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '-', r == ' ', r == '.':
		default:
			return false
		}
	}
	return true
}

func maskDigits(s string) string {
	digits := digitsOnly(s)
	if len(digits) <= 4 {
		return digits
	}
	return "..." + digits[len(digits)-4:]
}

// formatMoney renders a positive dollar amount with grouping separators,
// e.g. 2500 -> $2,500.00.
func formatMoney(amount float64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}
	whole := strconv.FormatFloat(amount, 'f', 2, 64)
	dot := strings.Index(whole, ".")
	intPart, fracPart := whole[:dot], whole[dot+1:]

	var b strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteString(",")
		}
		b.WriteString(intPart[i : i+3])
	}
	sign := ""
	if negative {
		sign = "-"
	}
	return fmt.Sprintf("%s$%s.%s", sign, b.String(), fracPart)
}
