package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/aibanking/conversation-core/internal/banking"
	"github.com/aibanking/conversation-core/internal/model"
)

var informationalMarkers = []string{"check", "view", "show", "search", "inquiry"}

// IsExecutable reports whether an intent maps to a mutating banking
// operation. Purely informational intents never reach the operations layer.
func IsExecutable(intentID string) bool {
	if intentID == "" || intentID == model.IntentUnknown {
		return false
	}
	for _, marker := range informationalMarkers {
		if strings.Contains(intentID, marker) {
			return false
		}
	}
	return true
}

type operation struct {
	id       string
	required []model.EntityType
	run      func(ctx context.Context, o *Operations, entities model.Entities) (*model.OperationResult, error)
}

// Operations maps intents to executable banking operations.
type Operations struct {
	svc      banking.Service
	ops      map[string]*operation
	byIntent map[string]string
}

// NewOperations builds the static operation registry.
func NewOperations(svc banking.Service) *Operations {
	o := &Operations{svc: svc, ops: map[string]*operation{}, byIntent: map[string]string{}}

	o.register("internal_transfer", []model.EntityType{model.EntityAmount, model.EntityFromAccount, model.EntityToAccount}, runInternalTransfer,
		"payments.transfer.internal")
	o.register("external_transfer", []model.EntityType{model.EntityAmount, model.EntityRecipient}, runRecipientPayment,
		"payments.transfer.external", "international.wire.send")
	o.register("p2p_payment", []model.EntityType{model.EntityAmount, model.EntityRecipient}, runRecipientPayment,
		"payments.p2p.send")
	o.register("bill_payment", []model.EntityType{model.EntityAmount, model.EntityRecipient}, runRecipientPayment,
		"payments.bill.pay")
	o.register("card_block", []model.EntityType{model.EntityCardID}, runCardBlock,
		"cards.block")
	o.register("dispute_file", []model.EntityType{model.EntityTransactionID}, runDisputeFile,
		"disputes.transaction.file")

	// Remaining executable intents acknowledge deterministically; the mock
	// backend has no deeper behavior for them.
	for _, intentID := range []string{
		"accounts.open", "accounts.close",
		"payments.scheduled.create", "payments.scheduled.cancel",
		"cards.unblock", "cards.replace", "cards.activate", "cards.limit.increase", "cards.pin.change",
		"loans.apply", "loans.payment.make",
		"investments.buy", "investments.sell",
		"support.agent.connect", "support.branch.locate",
		"profile.update.contact", "profile.update.address",
		"security.password.reset",
	} {
		opID := strings.ReplaceAll(intentID, ".", "_")
		o.register(opID, nil, runAcknowledge(intentID), intentID)
	}
	return o
}

func (o *Operations) register(id string, required []model.EntityType, run func(context.Context, *Operations, model.Entities) (*model.OperationResult, error), intentIDs ...string) {
	o.ops[id] = &operation{id: id, required: required, run: run}
	for _, intentID := range intentIDs {
		o.byIntent[intentID] = id
	}
}

// ForIntent returns the operation id mapped to the intent.
func (o *Operations) ForIntent(intentID string) (string, bool) {
	id, ok := o.byIntent[intentID]
	return id, ok
}

// Execute validates the operation's required entities and calls the backend.
// Missing entities yield a pending result carrying the missing list.
func (o *Operations) Execute(ctx context.Context, operationID string, entities model.Entities) *model.OperationResult {
	op, ok := o.ops[operationID]
	if !ok {
		return &model.OperationResult{
			Status:  model.OpFailed,
			Message: fmt.Sprintf("Unknown operation %q.", operationID),
		}
	}

	var missing []string
	for _, req := range op.required {
		if _, present := entities[req]; !present {
			missing = append(missing, string(req))
		}
	}
	if len(missing) > 0 {
		return &model.OperationResult{
			Status:  model.OpPending,
			Message: fmt.Sprintf("Cannot execute yet, missing: %s.", strings.Join(missing, ", ")),
			Data:    map[string]any{"missing_entities": missing},
		}
	}

	result, err := op.run(ctx, o, entities)
	if err != nil {
		log.Warn().Err(err).Str("operation", operationID).Msg("Operation failed")
		return &model.OperationResult{
			Status:  model.OpFailed,
			Message: err.Error(),
		}
	}
	return result
}

func runInternalTransfer(ctx context.Context, o *Operations, entities model.Entities) (*model.OperationResult, error) {
	amount, _ := entities.AmountValue()
	from := entities[model.EntityFromAccount].Text()
	to := entities[model.EntityToAccount].Text()

	result, err := o.svc.TransferFunds(ctx, from, to, amount)
	if err != nil {
		return nil, err
	}
	return transferOperationResult(result, fmt.Sprintf("Transferred %s from %s to %s.", formatMoney(amount), from, to)), nil
}

func runRecipientPayment(ctx context.Context, o *Operations, entities model.Entities) (*model.OperationResult, error) {
	amount, _ := entities.AmountValue()
	recipient := entities[model.EntityRecipient]
	if recipient.Enriched == nil {
		return nil, fmt.Errorf("recipient %q is not resolved to a saved payee", recipient.Text())
	}
	memo := ""
	if m, ok := entities[model.EntityMemo]; ok {
		memo = m.Text()
	}

	result, err := o.svc.SendPayment(ctx, recipient.Enriched.ID, amount, memo)
	if err != nil {
		return nil, err
	}
	return transferOperationResult(result, fmt.Sprintf("Sent %s to %s.", formatMoney(amount), recipient.Enriched.Name)), nil
}

func runCardBlock(ctx context.Context, o *Operations, entities model.Entities) (*model.OperationResult, error) {
	return o.svc.BlockCard(ctx, entities[model.EntityCardID].Text())
}

func runDisputeFile(ctx context.Context, o *Operations, entities model.Entities) (*model.OperationResult, error) {
	reason := "customer reported an unrecognized charge"
	if memo, ok := entities[model.EntityMemo]; ok {
		reason = memo.Text()
	}
	return o.svc.DisputeTransaction(ctx, entities[model.EntityTransactionID].Text(), reason)
}

func runAcknowledge(intentID string) func(context.Context, *Operations, model.Entities) (*model.OperationResult, error) {
	return func(context.Context, *Operations, model.Entities) (*model.OperationResult, error) {
		return &model.OperationResult{
			Status:  model.OpPending,
			Success: true,
			Message: "Your request has been submitted and will be processed shortly.",
			Data:    map[string]any{"intent": intentID},
		}, nil
	}
}

func transferOperationResult(result *banking.TransferResult, message string) *model.OperationResult {
	return &model.OperationResult{
		Status:      model.OpCompleted,
		Success:     true,
		Message:     message,
		ReferenceID: result.TransactionID,
		Data: map[string]any{
			"amount":       result.Amount,
			"fee":          result.Fee,
			"processed_at": result.ProcessedAt,
			"status":       result.Status,
		},
	}
}
