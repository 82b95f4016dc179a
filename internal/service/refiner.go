package service

import (
	"strings"

	"github.com/aibanking/conversation-core/internal/model"
)

// Refinement reasons.
const (
	ReasonNoRefinement         = "no_refinement"
	ReasonInternationalRcpt    = "international_recipient"
	ReasonP2PLimitExceeded     = "p2p_limit_exceeded"
	ReasonDifferentCustomer    = "different_customer_same_bank"
	ReasonExplicitP2PService   = "explicit_p2p_service"
	p2pRefinementAmountCeiling = 1000
)

var p2pServiceKeywords = []string{"zelle", "venmo", "cash app"}

// Refine adjusts the classified intent after enrichment using business
// rules. First match wins; entities are never modified; the function is
// deterministic and idempotent.
func Refine(intentID string, entities model.Entities, utterance string) (string, string) {
	recipient, hasRecipient := entities[model.EntityRecipient]
	amount, hasAmount := entities.AmountValue()

	// An enriched international recipient forces the wire intent regardless
	// of how the request was phrased.
	if hasRecipient && recipient.Enriched != nil &&
		recipient.Enriched.TransferType == model.TransferInternational &&
		intentID != "international.wire.send" {
		return "international.wire.send", ReasonInternationalRcpt
	}

	if intentID == "payments.p2p.send" && hasAmount && amount > p2pRefinementAmountCeiling {
		return "payments.transfer.external", ReasonP2PLimitExceeded
	}

	if hasRecipient && recipient.Enriched != nil &&
		recipient.Enriched.TransferType == model.TransferInternal &&
		!recipient.Enriched.SameCustomer &&
		intentID != "payments.transfer.external" {
		return "payments.transfer.external", ReasonDifferentCustomer
	}

	international := hasRecipient && recipient.Enriched != nil &&
		recipient.Enriched.TransferType == model.TransferInternational
	if intentID != "payments.p2p.send" && !international && hasAmount && amount <= p2pRefinementAmountCeiling {
		lower := strings.ToLower(utterance)
		for _, kw := range p2pServiceKeywords {
			if strings.Contains(lower, kw) {
				return "payments.p2p.send", ReasonExplicitP2PService
			}
		}
	}

	return intentID, ReasonNoRefinement
}
