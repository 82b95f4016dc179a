package model

import "time"

// HistoryLimit bounds the number of turns kept in a session context.
const HistoryLimit = 10

// TurnRecord is one processed turn stored in the session history.
type TurnRecord struct {
	Timestamp  time.Time `json:"timestamp"`
	Original   string    `json:"original"`
	Resolved   string    `json:"resolved"`
	Intent     string    `json:"intent"`
	Confidence float64   `json:"confidence"`
	Entities   Entities  `json:"entities,omitempty"`
}

// ClarificationOption is one choice offered to the user while a
// clarification is pending.
type ClarificationOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// PendingClarification is a suspended turn awaiting missing information or a
// disambiguation choice. At most one per session.
type PendingClarification struct {
	Type             string                `json:"type"` // "missing_info" or "recipient"
	OriginalIntent   string                `json:"original_intent"`
	OriginalQuery    string                `json:"original_query"`
	OriginalEntities Entities              `json:"original_entities"`
	MissingEntities  []EntityType          `json:"missing_entities,omitempty"`
	Options          []ClarificationOption `json:"options,omitempty"`
	AwaitingResponse bool                  `json:"awaiting_response"`
	CreatedAt        time.Time             `json:"created_at"`
}

// Approval methods.
const (
	ApprovalBiometric       = "biometric"
	ApprovalPIN             = "pin"
	ApprovalSecurityQ       = "security_question"
	ApprovalBiometricAndPIN = "biometric_and_pin"
)

// PendingApproval is a suspended turn awaiting confirmation or step-up auth.
// At most one per session.
type PendingApproval struct {
	TransactionType string         `json:"transaction_type"`
	Amount          float64        `json:"amount"`
	Details         map[string]any `json:"details,omitempty"`
	Intent          string         `json:"intent"`
	Entities        Entities       `json:"entities,omitempty"`
	ApprovalMethod  string         `json:"approval_method"`
	Token           string         `json:"token"`
	CreatedAt       time.Time      `json:"created_at"`
	ExpiresAt       time.Time      `json:"expires_at"`
	Attempts        int            `json:"attempts"`
	MaxAttempts     int            `json:"max_attempts"`
}

// Expired reports whether the approval window has closed.
func (p *PendingApproval) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// SessionContext is the per-session state owned by the state manager.
type SessionContext struct {
	SessionID            string                `json:"session_id"`
	History              []TurnRecord          `json:"history"`
	LastRecipient        string                `json:"last_recipient,omitempty"`
	LastRecipientID      string                `json:"last_recipient_id,omitempty"`
	LastAmount           float64               `json:"last_amount,omitempty"`
	LastAccount          string                `json:"last_account,omitempty"`
	LastAccountID        string                `json:"last_account_id,omitempty"`
	LastIntent           string                `json:"last_intent,omitempty"`
	PendingClarification *PendingClarification `json:"pending_clarification,omitempty"`
	PendingApproval      *PendingApproval      `json:"pending_approval,omitempty"`
	CreatedAt            time.Time             `json:"created_at"`
}

// VerificationData is the step-up credential payload supplied when a pending
// approval is verified. The accepted values are mock credentials.
type VerificationData struct {
	BiometricSuccess bool   `json:"biometric_success,omitempty"`
	PIN              string `json:"pin,omitempty"`
	Answer           string `json:"answer,omitempty"`
}
