// Package banking defines the backend contract the core calls into. The
// shipped implementation is a deterministic mock; real core banking systems
// plug in behind the same interface.
package banking

import (
	"context"
	"errors"
	"time"

	"github.com/aibanking/conversation-core/internal/model"
)

var (
	// ErrAccountNotFound is returned when no account matches a lookup.
	ErrAccountNotFound = errors.New("banking: account not found")
	// ErrRecipientNotFound is returned when no saved payee matches.
	ErrRecipientNotFound = errors.New("banking: recipient not found")
	// ErrInsufficientFunds is returned by transfer validation.
	ErrInsufficientFunds = errors.New("banking: insufficient funds")
	// ErrApprovalNotFound is returned when an approval token is unknown.
	ErrApprovalNotFound = errors.New("banking: approval not found")
)

// TransferRequest describes a funds movement.
type TransferRequest struct {
	FromAccountID string
	ToAccountID   string
	RecipientID   string
	Amount        float64
	Currency      string
	Memo          string
	TransferType  string
}

// TransferResult is the backend's confirmation.
type TransferResult struct {
	TransactionID string    `json:"transaction_id"`
	Status        string    `json:"status"`
	Amount        float64   `json:"amount"`
	Fee           float64   `json:"fee,omitempty"`
	ProcessedAt   time.Time `json:"processed_at"`
	Message       string    `json:"message"`
}

// ApprovalTicket is issued when a transaction requires step-up confirmation.
// The banking layer is authoritative for method selection.
type ApprovalTicket struct {
	Token     string    `json:"token"`
	Method    string    `json:"method"`
	Amount    float64   `json:"amount"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Service is the backend contract consumed by the core.
type Service interface {
	GetBalance(ctx context.Context, accountID string) (float64, error)
	GetAccount(ctx context.Context, accountID string) (*model.Account, error)
	GetAccountByType(ctx context.Context, accountType string) (*model.Account, error)
	GetAllAccounts(ctx context.Context) ([]model.Account, error)
	SearchRecipients(ctx context.Context, nameOrAlias string) ([]model.Recipient, error)
	GetRecipientByID(ctx context.Context, id string) (*model.Recipient, error)
	GetTransactionHistory(ctx context.Context, accountID string, limit int) ([]model.Transaction, error)
	ValidateTransfer(ctx context.Context, req *TransferRequest) error
	ExecuteTransfer(ctx context.Context, req *TransferRequest) (*TransferResult, error)
	TransferFunds(ctx context.Context, fromType, toType string, amount float64) (*TransferResult, error)
	SendPayment(ctx context.Context, recipientID string, amount float64, memo string) (*TransferResult, error)
	BlockCard(ctx context.Context, cardID string) (*model.OperationResult, error)
	DisputeTransaction(ctx context.Context, transactionID, reason string) (*model.OperationResult, error)
	RequestTransactionApproval(ctx context.Context, txType string, amount float64) (*ApprovalTicket, error)
	VerifyTransactionApproval(ctx context.Context, method string, data *model.VerificationData) (bool, error)
}
