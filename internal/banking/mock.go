package banking

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/aibanking/conversation-core/internal/model"
)

// Credentials accepted by the mock approval verifier. Real credential
// checks live outside this system.
const (
	MockPIN            = "1234"
	MockSecurityAnswer = "mockAnswer123"
)

// Approval method thresholds. The banking layer is the single authority for
// method selection.
const (
	biometricCeiling = 2500
	pinCeiling       = 25000
)

// Mock is the deterministic in-memory banking backend.
type Mock struct {
	mu         sync.RWMutex
	homeBank   string
	homeUserID string
	country    string
	accounts   []model.Account
	recipients []model.Recipient
	history    map[string][]model.Transaction
}

// NewMock seeds the demo customer's accounts and saved payees.
func NewMock(homeBank, homeCountry string) *Mock {
	m := &Mock{
		homeBank:   homeBank,
		homeUserID: "cust-001",
		country:    homeCountry,
		accounts: []model.Account{
			{ID: "acc-001", Name: "Primary Checking", Type: model.AccountChecking, Balance: 2500.00, Currency: "USD"},
			{ID: "acc-002", Name: "Emergency Savings", Type: model.AccountSavings, Balance: 15000.00, Currency: "USD"},
			{ID: "acc-003", Name: "Travel Rewards Card", Type: model.AccountCredit, Balance: -430.25, Currency: "USD"},
			{ID: "acc-004", Name: "Brokerage", Type: model.AccountInvestment, Balance: 52000.00, Currency: "USD"},
		},
		recipients: []model.Recipient{
			{ID: "rcp-001", Name: "John Smith", AccountNumber: "9988776655", BankName: homeBank, BankCountry: homeCountry, CustomerID: "cust-002"},
			{ID: "rcp-002", Name: "John Doe", AccountNumber: "1122334455", BankName: "First National Bank", BankCountry: homeCountry, RoutingNumber: "021000021", CustomerID: "cust-003"},
			{ID: "rcp-003", Name: "Jack White", Alias: "jack", AccountNumber: "5544332211", BankName: "Maple Trust", BankCountry: "CA", SwiftCode: "MTRUCATT", CustomerID: "cust-004"},
			{ID: "rcp-004", Name: "Sarah Johnson", Alias: "sarah", AccountNumber: "6677889900", BankName: "First National Bank", BankCountry: homeCountry, RoutingNumber: "021000021", CustomerID: "cust-005"},
			{ID: "rcp-005", Name: "Mike Smith", Alias: "mike", AccountNumber: "4433221100", BankName: "First National Bank", BankCountry: homeCountry, RoutingNumber: "021000021", CustomerID: "cust-006"},
		},
		history: map[string][]model.Transaction{
			"acc-001": {
				{ID: "TXN_a1b2c3d4", AccountID: "acc-001", Type: "debit", Amount: 54.20, Description: "Card purchase", Merchant: "Whole Foods", Date: "2025-01-10"},
				{ID: "TXN_e5f6a7b8", AccountID: "acc-001", Type: "credit", Amount: 3200.00, Description: "Payroll deposit", Date: "2025-01-01"},
			},
		},
	}
	return m
}

// HomeCustomerID returns the mock customer that owns the seeded accounts.
func (m *Mock) HomeCustomerID() string { return m.homeUserID }

func (m *Mock) GetBalance(ctx context.Context, accountID string) (float64, error) {
	acct, err := m.GetAccount(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return acct.Balance, nil
}

func (m *Mock) GetAccount(_ context.Context, accountID string) (*model.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.accounts {
		if a.ID == accountID {
			copied := a
			return &copied, nil
		}
	}
	return nil, ErrAccountNotFound
}

func (m *Mock) GetAccountByType(_ context.Context, accountType string) (*model.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.accounts {
		if a.Type == accountType {
			copied := a
			return &copied, nil
		}
	}
	return nil, ErrAccountNotFound
}

func (m *Mock) GetAllAccounts(_ context.Context) ([]model.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Account, len(m.accounts))
	copy(out, m.accounts)
	return out, nil
}

// SearchRecipients matches saved payees by name or alias, case-insensitive,
// matching on substring so a bare first name returns all candidates.
func (m *Mock) SearchRecipients(_ context.Context, nameOrAlias string) ([]model.Recipient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	needle := strings.ToLower(strings.TrimSpace(nameOrAlias))
	if needle == "" {
		return nil, nil
	}
	var out []model.Recipient
	for _, r := range m.recipients {
		if strings.Contains(strings.ToLower(r.Name), needle) || strings.EqualFold(r.Alias, needle) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Mock) GetRecipientByID(_ context.Context, id string) (*model.Recipient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.recipients {
		if r.ID == id {
			copied := r
			return &copied, nil
		}
	}
	return nil, ErrRecipientNotFound
}

func (m *Mock) GetTransactionHistory(_ context.Context, accountID string, limit int) ([]model.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.history[accountID]
	if limit <= 0 || limit > len(all) {
		limit = len(all)
	}
	out := make([]model.Transaction, limit)
	copy(out, all[:limit])
	return out, nil
}

func (m *Mock) ValidateTransfer(ctx context.Context, req *TransferRequest) error {
	if req.Amount <= 0 {
		return fmt.Errorf("invalid amount %.2f", req.Amount)
	}
	if req.FromAccountID != "" {
		balance, err := m.GetBalance(ctx, req.FromAccountID)
		if err != nil {
			return err
		}
		if balance < req.Amount {
			return ErrInsufficientFunds
		}
	}
	return nil
}

func (m *Mock) ExecuteTransfer(ctx context.Context, req *TransferRequest) (*TransferResult, error) {
	if err := m.ValidateTransfer(ctx, req); err != nil {
		return nil, err
	}

	m.mu.Lock()
	for i := range m.accounts {
		if m.accounts[i].ID == req.FromAccountID {
			m.accounts[i].Balance -= req.Amount
		}
		if m.accounts[i].ID == req.ToAccountID {
			m.accounts[i].Balance += req.Amount
		}
	}
	m.mu.Unlock()

	txnID := fmt.Sprintf("TXN_%s", uuid.New().String()[:8])
	var fee float64
	if req.TransferType == model.TransferInternational {
		fee = 25.00
	}
	log.Info().
		Str("transaction_id", txnID).
		Float64("amount", req.Amount).
		Str("transfer_type", req.TransferType).
		Msg("Transfer executed (mock)")
	return &TransferResult{
		TransactionID: txnID,
		Status:        "completed",
		Amount:        req.Amount,
		Fee:           fee,
		ProcessedAt:   time.Now(),
		Message:       "Transfer processed successfully",
	}, nil
}

func (m *Mock) TransferFunds(ctx context.Context, fromType, toType string, amount float64) (*TransferResult, error) {
	from, err := m.GetAccountByType(ctx, fromType)
	if err != nil {
		return nil, err
	}
	to, err := m.GetAccountByType(ctx, toType)
	if err != nil {
		return nil, err
	}
	return m.ExecuteTransfer(ctx, &TransferRequest{
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		Amount:        amount,
		TransferType:  model.TransferInternal,
	})
}

func (m *Mock) SendPayment(ctx context.Context, recipientID string, amount float64, memo string) (*TransferResult, error) {
	recipient, err := m.GetRecipientByID(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	// Outbound payee payments settle outside the demo ledger; available
	// balance is validated upstream against the caller's profile.
	return m.ExecuteTransfer(ctx, &TransferRequest{
		RecipientID:  recipient.ID,
		Amount:       amount,
		Memo:         memo,
		TransferType: recipient.TransferType(m.homeBank, m.country),
	})
}

func (m *Mock) BlockCard(_ context.Context, cardID string) (*model.OperationResult, error) {
	return &model.OperationResult{
		Status:      model.OpCompleted,
		Success:     true,
		Message:     fmt.Sprintf("Card ending in %s has been temporarily blocked", lastFour(cardID)),
		ReferenceID: fmt.Sprintf("BLK_%s", uuid.New().String()[:8]),
		Data:        map[string]any{"card_id": cardID, "blocked_at": time.Now()},
	}, nil
}

func (m *Mock) DisputeTransaction(_ context.Context, transactionID, reason string) (*model.OperationResult, error) {
	return &model.OperationResult{
		Status:      model.OpPending,
		Success:     true,
		Message:     "Dispute filed. A case manager will review it within 2 business days.",
		ReferenceID: fmt.Sprintf("DSP_%s", uuid.New().String()[:8]),
		Data:        map[string]any{"transaction_id": transactionID, "reason": reason},
	}, nil
}

// RequestTransactionApproval issues a step-up ticket. Method selection is
// amount-driven: small transactions take a biometric tap, mid-range a PIN,
// large ones both.
func (m *Mock) RequestTransactionApproval(_ context.Context, txType string, amount float64) (*ApprovalTicket, error) {
	method := model.ApprovalBiometricAndPIN
	switch {
	case amount <= biometricCeiling:
		method = model.ApprovalBiometric
	case amount <= pinCeiling:
		method = model.ApprovalPIN
	}
	return &ApprovalTicket{
		Token:     fmt.Sprintf("APV-%s", uuid.New().String()[:12]),
		Method:    method,
		Amount:    amount,
		ExpiresAt: time.Now().Add(300 * time.Second),
	}, nil
}

// VerifyTransactionApproval evaluates the mock credentials for a method.
func (m *Mock) VerifyTransactionApproval(_ context.Context, method string, data *model.VerificationData) (bool, error) {
	if data == nil {
		data = &model.VerificationData{}
	}
	switch method {
	case model.ApprovalBiometric:
		return data.BiometricSuccess, nil
	case model.ApprovalPIN:
		return data.PIN == MockPIN, nil
	case model.ApprovalSecurityQ:
		return data.Answer == MockSecurityAnswer, nil
	case model.ApprovalBiometricAndPIN:
		return data.BiometricSuccess && data.PIN == MockPIN, nil
	default:
		return false, fmt.Errorf("unknown approval method %q", method)
	}
}

func lastFour(s string) string {
	if len(s) <= 4 {
		return s
	}
	return s[len(s)-4:]
}
