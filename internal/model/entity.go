package model

import (
	"fmt"
	"strconv"
)

// EntityType is the closed set of entity kinds the extractor produces.
type EntityType string

const (
	EntityAmount           EntityType = "amount"
	EntityCurrency         EntityType = "currency"
	EntityAccountType      EntityType = "account_type"
	EntityAccountName      EntityType = "account_name"
	EntityFromAccount      EntityType = "from_account"
	EntityToAccount        EntityType = "to_account"
	EntityAccountID        EntityType = "account_id"
	EntityRecipient        EntityType = "recipient"
	EntityRecipientAccount EntityType = "recipient_account"
	EntityRoutingNumber    EntityType = "routing_number"
	EntityCardID           EntityType = "card_id"
	EntityDate             EntityType = "date"
	EntityDateRange        EntityType = "date_range"
	EntityMerchant         EntityType = "merchant"
	EntityMemo             EntityType = "memo"
	EntityPhone            EntityType = "phone"
	EntityEmail            EntityType = "email"
	EntityTransactionID    EntityType = "transaction_id"
)

// EntitySource records which extraction phase produced an entity.
type EntitySource string

const (
	SourcePattern    EntitySource = "pattern"
	SourceLLM        EntitySource = "llm"
	SourceFunction   EntitySource = "function"
	SourceEnrichment EntitySource = "enrichment"
)

// Record is a backend record attached to an entity by enrichment. For
// accounts the account fields are set; for recipients the recipient fields.
type Record struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Type          string  `json:"type,omitempty"`
	Balance       float64 `json:"balance,omitempty"`
	Currency      string  `json:"currency,omitempty"`
	AccountNumber string  `json:"account_number,omitempty"`
	BankName      string  `json:"bank_name,omitempty"`
	BankCountry   string  `json:"bank_country,omitempty"`
	RoutingNumber string  `json:"routing_number,omitempty"`
	SwiftCode     string  `json:"swift_code,omitempty"`
	TransferType  string  `json:"transfer_type,omitempty"`
	SameCustomer  bool    `json:"same_customer,omitempty"`
}

// RecipientOption is one candidate offered when recipient resolution is
// ambiguous.
type RecipientOption struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	BankName string `json:"bank_name"`
}

// Entity is a single typed value extracted from an utterance.
type Entity struct {
	Type       EntityType   `json:"type"`
	Value      any          `json:"value"`
	RawText    string       `json:"raw_text,omitempty"`
	Confidence float64      `json:"confidence"`
	Source     EntitySource `json:"source"`
	Enriched   *Record      `json:"enriched_record,omitempty"`

	// Recipient resolution outcome.
	DisambiguationRequired bool              `json:"disambiguation_required,omitempty"`
	Options                []RecipientOption `json:"options,omitempty"`
	NotFound               bool              `json:"not_found,omitempty"`
}

// Entities is the merged per-type entity set for a turn.
type Entities map[EntityType]Entity

// Amount returns the numeric value of an entity, converting strings when
// the LLM returned a quoted number.
func (e Entity) Amount() (float64, bool) {
	switch v := e.Value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Text returns the entity value as a string.
func (e Entity) Text() string {
	switch v := e.Value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Clone returns a shallow copy of the entity set.
func (es Entities) Clone() Entities {
	out := make(Entities, len(es))
	for k, v := range es {
		out[k] = v
	}
	return out
}

// AmountValue is a convenience accessor for the amount entity.
func (es Entities) AmountValue() (float64, bool) {
	e, ok := es[EntityAmount]
	if !ok {
		return 0, false
	}
	return e.Amount()
}
