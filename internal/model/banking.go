package model

// Account types supported by the banking backend.
const (
	AccountChecking   = "checking"
	AccountSavings    = "savings"
	AccountCredit     = "credit"
	AccountInvestment = "investment"
	AccountLoan       = "loan"
	AccountBusiness   = "business"
)

// ValidAccountType reports whether t is one of the enumerated account types.
func ValidAccountType(t string) bool {
	switch t {
	case AccountChecking, AccountSavings, AccountCredit, AccountInvestment, AccountLoan, AccountBusiness:
		return true
	}
	return false
}

// Account is a customer account as seen by the core. The core never mutates
// accounts; only the operations layer does.
type Account struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Balance  float64 `json:"balance"`
	Currency string  `json:"currency"`
}

// Transfer classification relative to the home bank.
const (
	TransferInternal      = "internal"
	TransferDomestic      = "domestic"
	TransferInternational = "international"
)

// Recipient is a saved payee.
type Recipient struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	AccountNumber string `json:"account_number"`
	BankName      string `json:"bank_name"`
	BankCountry   string `json:"bank_country"`
	Alias         string `json:"alias,omitempty"`
	RoutingNumber string `json:"routing_number,omitempty"`
	SwiftCode     string `json:"swift_code,omitempty"`
	CustomerID    string `json:"customer_id,omitempty"`
}

// TransferType derives how a transfer to this recipient is classified:
// different country is international, same bank is internal, otherwise
// domestic.
func (r Recipient) TransferType(homeBank, homeCountry string) string {
	if r.BankCountry != "" && r.BankCountry != homeCountry {
		return TransferInternational
	}
	if r.BankName == homeBank {
		return TransferInternal
	}
	return TransferDomestic
}

// Transaction is one entry of an account's history.
type Transaction struct {
	ID          string  `json:"id"`
	AccountID   string  `json:"account_id"`
	Type        string  `json:"type"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Merchant    string  `json:"merchant,omitempty"`
	Date        string  `json:"date"`
}

// UserProfile carries the caller's identity and limits into a turn.
type UserProfile struct {
	UserID           string    `json:"user_id"`
	AuthLevel        AuthLevel `json:"auth_level"`
	AvailableBalance float64   `json:"available_balance"`
	DailyLimit       float64   `json:"daily_limit,omitempty"`
}
