package service

import "github.com/aibanking/conversation-core/internal/model"

// defaultIntents is the declarative banking intent catalog. Loaded once at
// startup and never mutated.
func defaultIntents() []*model.Intent {
	return []*model.Intent{
		// --- Accounts ---
		{
			ID: "accounts.balance.check", Name: "Check Balance", Category: "accounts", Subcategory: "balance",
			ConfidenceThreshold: 0.9, RiskLevel: model.RiskLow, AuthRequired: model.AuthBasic,
			OptionalEntities:  []model.EntityType{model.EntityAccountType, model.EntityAccountID},
			ExampleUtterances: []string{"What's my checking account balance?", "What's my balance", "How much money do I have"},
			Keywords:          []string{"balance", "how much money", "how much do i have", "available funds"},
			Patterns:          []string{`(?i)\bbalance\b`},
			EnrichmentRequirements: []string{"account_resolution"},
			TimeoutMs:              3000,
		},
		{
			ID: "accounts.statement.view", Name: "View Statement", Category: "accounts", Subcategory: "statement",
			ConfidenceThreshold: 0.85, RiskLevel: model.RiskLow, AuthRequired: model.AuthBasic,
			OptionalEntities:  []model.EntityType{model.EntityAccountType, model.EntityDateRange},
			ExampleUtterances: []string{"Show me my statement", "Show my recent transactions"},
			Keywords:          []string{"statement", "recent transactions", "transaction history"},
			EnrichmentRequirements: []string{"account_resolution"},
			TimeoutMs:              3000,
		},
		{
			ID: "accounts.transactions.search", Name: "Search Transactions", Category: "accounts", Subcategory: "transactions",
			ConfidenceThreshold: 0.8, RiskLevel: model.RiskLow, AuthRequired: model.AuthBasic,
			OptionalEntities:  []model.EntityType{model.EntityMerchant, model.EntityDateRange, model.EntityAmount},
			ExampleUtterances: []string{"Find my transactions at Starbucks", "Search transactions from last week"},
			Keywords:          []string{"find transactions", "search transactions", "purchases at"},
			TimeoutMs:         3000,
		},
		{
			ID: "accounts.details.view", Name: "View Account Details", Category: "accounts", Subcategory: "details",
			ConfidenceThreshold: 0.8, RiskLevel: model.RiskLow, AuthRequired: model.AuthBasic,
			OptionalEntities:  []model.EntityType{model.EntityAccountType},
			ExampleUtterances: []string{"Show my account details", "What's my account number"},
			Keywords:          []string{"account details", "account number", "routing info"},
			EnrichmentRequirements: []string{"account_resolution"},
			TimeoutMs:              3000,
		},
		{
			ID: "accounts.open", Name: "Open Account", Category: "accounts", Subcategory: "open",
			ConfidenceThreshold: 0.85, RiskLevel: model.RiskMedium, AuthRequired: model.AuthFull,
			RequiredEntities:  []model.EntityType{model.EntityAccountType},
			ExampleUtterances: []string{"I want to open a savings account", "Open a new account"},
			Keywords:          []string{"open an account", "open a new", "new savings account", "new checking account"},
			TimeoutMs:         5000,
		},
		{
			ID: "accounts.close", Name: "Close Account", Category: "accounts", Subcategory: "close",
			ConfidenceThreshold: 0.85, RiskLevel: model.RiskHigh, AuthRequired: model.AuthFull,
			RequiredEntities:  []model.EntityType{model.EntityAccountType},
			ExampleUtterances: []string{"Close my savings account", "I want to close an account"},
			Keywords:          []string{"close my account", "close an account", "shut down my account"},
			EnrichmentRequirements: []string{"account_resolution"},
			TimeoutMs:              5000,
		},

		// --- Payments ---
		{
			ID: "payments.transfer.internal", Name: "Internal Transfer", Category: "payments", Subcategory: "transfer",
			ConfidenceThreshold: 0.85, RiskLevel: model.RiskMedium, AuthRequired: model.AuthBasic,
			RequiredEntities:  []model.EntityType{model.EntityAmount, model.EntityFromAccount, model.EntityToAccount},
			OptionalEntities:  []model.EntityType{model.EntityMemo, model.EntityDate},
			ExampleUtterances: []string{"Transfer money between my accounts", "I want to transfer money", "Move $200 from checking to savings"},
			Keywords:          []string{"transfer money", "between my accounts", "move money", "from checking to savings"},
			Patterns:          []string{`(?i)from\s+(?:my\s+)?\w+\s+to\s+(?:my\s+)?\w+`},
			Preconditions:     []string{"balance_check", "limit_check"},
			EnrichmentRequirements: []string{"account_resolution"},
			TimeoutMs:              5000,
		},
		{
			ID: "payments.transfer.external", Name: "External Transfer", Category: "payments", Subcategory: "transfer",
			ConfidenceThreshold: 0.85, RiskLevel: model.RiskMedium, AuthRequired: model.AuthBasic,
			RequiredEntities:  []model.EntityType{model.EntityAmount, model.EntityRecipient},
			OptionalEntities:  []model.EntityType{model.EntityFromAccount, model.EntityMemo, model.EntityDate},
			ExampleUtterances: []string{"Transfer $500 to John Doe", "Send money to another bank"},
			Keywords:          []string{"transfer to", "send money to", "external transfer", "another bank"},
			Preconditions:     []string{"balance_check", "limit_check", "fraud_check"},
			EnrichmentRequirements: []string{"account_resolution", "recipient_resolution"},
			TimeoutMs:              5000,
		},
		{
			ID: "payments.p2p.send", Name: "P2P Payment", Category: "payments", Subcategory: "p2p",
			ConfidenceThreshold: 0.85, RiskLevel: model.RiskMedium, AuthRequired: model.AuthBasic,
			RequiredEntities:  []model.EntityType{model.EntityAmount, model.EntityRecipient},
			OptionalEntities:  []model.EntityType{model.EntityMemo},
			ExampleUtterances: []string{"Send $20 to Mike", "Pay John back with Zelle"},
			Keywords:          []string{"zelle", "venmo", "cash app", "pay back", "send cash"},
			Preconditions:     []string{"balance_check", "limit_check"},
			EnrichmentRequirements: []string{"recipient_resolution"},
			TimeoutMs:              5000,
		},
		{
			ID: "payments.bill.pay", Name: "Pay Bill", Category: "payments", Subcategory: "bill",
			ConfidenceThreshold: 0.85, RiskLevel: model.RiskMedium, AuthRequired: model.AuthBasic,
			RequiredEntities:  []model.EntityType{model.EntityAmount, model.EntityRecipient},
			OptionalEntities:  []model.EntityType{model.EntityDate, model.EntityMemo},
			ExampleUtterances: []string{"Pay my electric bill", "Pay the water bill $80"},
			Keywords:          []string{"pay my bill", "bill payment", "electric bill", "utility bill"},
			Preconditions:     []string{"balance_check"},
			EnrichmentRequirements: []string{"recipient_resolution"},
			TimeoutMs:              5000,
		},
		{
			ID: "payments.scheduled.create", Name: "Schedule Payment", Category: "payments", Subcategory: "scheduled",
			ConfidenceThreshold: 0.8, RiskLevel: model.RiskMedium, AuthRequired: model.AuthFull,
			RequiredEntities:  []model.EntityType{model.EntityAmount, model.EntityRecipient, model.EntityDate},
			ExampleUtterances: []string{"Schedule a payment for next month", "Set up a recurring payment"},
			Keywords:          []string{"schedule a payment", "recurring payment", "automatic payment"},
			Preconditions:     []string{"limit_check"},
			EnrichmentRequirements: []string{"recipient_resolution"},
			TimeoutMs:              5000,
		},
		{
			ID: "payments.scheduled.cancel", Name: "Cancel Scheduled Payment", Category: "payments", Subcategory: "scheduled",
			ConfidenceThreshold: 0.8, RiskLevel: model.RiskLow, AuthRequired: model.AuthBasic,
			OptionalEntities:  []model.EntityType{model.EntityTransactionID},
			ExampleUtterances: []string{"Cancel my scheduled payment", "Stop the recurring payment"},
			Keywords:          []string{"cancel scheduled", "cancel the payment", "stop recurring"},
			TimeoutMs:         3000,
		},

		// --- International ---
		{
			ID: "international.wire.send", Name: "International Wire", Category: "international", Subcategory: "wire",
			ConfidenceThreshold: 0.85, RiskLevel: model.RiskHigh, AuthRequired: model.AuthFull,
			RequiredEntities:  []model.EntityType{model.EntityAmount, model.EntityRecipient},
			OptionalEntities:  []model.EntityType{model.EntityRecipientAccount, model.EntityRoutingNumber, model.EntityMemo},
			ExampleUtterances: []string{"Send an international wire", "Wire money overseas"},
			Keywords:          []string{"wire", "international transfer", "overseas", "swift"},
			Preconditions:     []string{"balance_check", "limit_check", "fraud_check"},
			EnrichmentRequirements: []string{"account_resolution", "recipient_resolution"},
			TimeoutMs:              8000,
		},
		{
			ID: "international.rates.check", Name: "Exchange Rates", Category: "international", Subcategory: "rates",
			ConfidenceThreshold: 0.8, RiskLevel: model.RiskLow, AuthRequired: model.AuthNone,
			OptionalEntities:  []model.EntityType{model.EntityCurrency},
			ExampleUtterances: []string{"What's the exchange rate for euros", "Show me currency rates"},
			Keywords:          []string{"exchange rate", "currency rates", "conversion rate"},
			TimeoutMs:         3000,
		},

		// --- Cards ---
		{
			ID: "cards.block", Name: "Block Card", Category: "cards", Subcategory: "block",
			ConfidenceThreshold: 0.9, RiskLevel: model.RiskMedium, AuthRequired: model.AuthBasic,
			RequiredEntities:  []model.EntityType{model.EntityCardID},
			ExampleUtterances: []string{"Block my card", "Freeze my credit card"},
			Keywords:          []string{"block my card", "freeze my card", "lock my card", "card stolen", "lost my card"},
			TimeoutMs:         3000,
		},
		{
			ID: "cards.unblock", Name: "Unblock Card", Category: "cards", Subcategory: "unblock",
			ConfidenceThreshold: 0.9, RiskLevel: model.RiskMedium, AuthRequired: model.AuthFull,
			RequiredEntities:  []model.EntityType{model.EntityCardID},
			ExampleUtterances: []string{"Unblock my card", "Unfreeze my card"},
			Keywords:          []string{"unblock", "unfreeze", "unlock my card"},
			TimeoutMs:         3000,
		},
		{
			ID: "cards.replace", Name: "Replace Card", Category: "cards", Subcategory: "replace",
			ConfidenceThreshold: 0.85, RiskLevel: model.RiskMedium, AuthRequired: model.AuthFull,
			RequiredEntities:  []model.EntityType{model.EntityCardID},
			ExampleUtterances: []string{"I need a replacement card", "Order me a new card"},
			Keywords:          []string{"replacement card", "replace my card", "new card"},
			TimeoutMs:         5000,
		},
		{
			ID: "cards.activate", Name: "Activate Card", Category: "cards", Subcategory: "activate",
			ConfidenceThreshold: 0.9, RiskLevel: model.RiskLow, AuthRequired: model.AuthBasic,
			RequiredEntities:  []model.EntityType{model.EntityCardID},
			ExampleUtterances: []string{"Activate my new card", "Activate the card ending in 4321"},
			Keywords:          []string{"activate"},
			TimeoutMs:         3000,
		},
		{
			ID: "cards.limit.increase", Name: "Increase Card Limit", Category: "cards", Subcategory: "limit",
			ConfidenceThreshold: 0.85, RiskLevel: model.RiskHigh, AuthRequired: model.AuthFull,
			RequiredEntities:  []model.EntityType{model.EntityCardID, model.EntityAmount},
			ExampleUtterances: []string{"Increase my credit limit", "Raise my card limit to $10000"},
			Keywords:          []string{"credit limit", "card limit", "raise my limit", "increase my limit"},
			Preconditions:     []string{"hours_check"},
			TimeoutMs:         5000,
		},
		{
			ID: "cards.pin.change", Name: "Change Card PIN", Category: "cards", Subcategory: "pin",
			ConfidenceThreshold: 0.9, RiskLevel: model.RiskHigh, AuthRequired: model.AuthChallenge,
			RequiredEntities:  []model.EntityType{model.EntityCardID},
			ExampleUtterances: []string{"Change my card PIN", "I forgot my PIN"},
			Keywords:          []string{"change my pin", "reset my pin", "forgot my pin"},
			TimeoutMs:         3000,
		},
		{
			ID: "cards.statement.view", Name: "Card Statement", Category: "cards", Subcategory: "statement",
			ConfidenceThreshold: 0.8, RiskLevel: model.RiskLow, AuthRequired: model.AuthBasic,
			OptionalEntities:  []model.EntityType{model.EntityCardID, model.EntityDateRange},
			ExampleUtterances: []string{"Show my card statement", "Credit card charges this month"},
			Keywords:          []string{"card statement", "card charges", "credit card bill"},
			TimeoutMs:         3000,
		},

		// --- Disputes ---
		{
			ID: "disputes.transaction.file", Name: "File Dispute", Category: "disputes", Subcategory: "file",
			ConfidenceThreshold: 0.85, RiskLevel: model.RiskMedium, AuthRequired: model.AuthFull,
			RequiredEntities:  []model.EntityType{model.EntityTransactionID},
			OptionalEntities:  []model.EntityType{model.EntityAmount, model.EntityMerchant, model.EntityMemo},
			ExampleUtterances: []string{"I want to dispute a charge", "Dispute transaction TXN_12345678"},
			Keywords:          []string{"dispute", "fraudulent charge", "didn't make this charge", "unauthorized"},
			TimeoutMs:         5000,
		},
		{
			ID: "disputes.status.check", Name: "Dispute Status", Category: "disputes", Subcategory: "status",
			ConfidenceThreshold: 0.8, RiskLevel: model.RiskLow, AuthRequired: model.AuthBasic,
			OptionalEntities:  []model.EntityType{model.EntityTransactionID},
			ExampleUtterances: []string{"What's the status of my dispute", "Check on my dispute"},
			Keywords:          []string{"dispute status", "status of my dispute", "my dispute"},
			TimeoutMs:         3000,
		},

		// --- Loans ---
		{
			ID: "loans.apply", Name: "Apply for Loan", Category: "loans", Subcategory: "apply",
			ConfidenceThreshold: 0.85, RiskLevel: model.RiskHigh, AuthRequired: model.AuthFull,
			RequiredEntities:  []model.EntityType{model.EntityAmount},
			ExampleUtterances: []string{"I want to apply for a loan", "Apply for a personal loan of $5000"},
			Keywords:          []string{"apply for a loan", "personal loan", "borrow money", "loan application"},
			Preconditions:     []string{"hours_check"},
			TimeoutMs:         8000,
		},
		{
			ID: "loans.status.check", Name: "Loan Status", Category: "loans", Subcategory: "status",
			ConfidenceThreshold: 0.8, RiskLevel: model.RiskLow, AuthRequired: model.AuthBasic,
			ExampleUtterances: []string{"What's the status of my loan application", "Check my loan status"},
			Keywords:          []string{"loan status", "loan application status"},
			TimeoutMs:         3000,
		},
		{
			ID: "loans.payment.make", Name: "Loan Payment", Category: "loans", Subcategory: "payment",
			ConfidenceThreshold: 0.85, RiskLevel: model.RiskMedium, AuthRequired: model.AuthBasic,
			RequiredEntities:  []model.EntityType{model.EntityAmount},
			OptionalEntities:  []model.EntityType{model.EntityFromAccount, model.EntityDate},
			ExampleUtterances: []string{"Make a loan payment", "Pay $300 toward my loan"},
			Keywords:          []string{"loan payment", "pay my loan", "toward my loan"},
			Preconditions:     []string{"balance_check"},
			EnrichmentRequirements: []string{"account_resolution"},
			TimeoutMs:              5000,
		},

		// --- Investments ---
		{
			ID: "investments.portfolio.view", Name: "View Portfolio", Category: "investments", Subcategory: "portfolio",
			ConfidenceThreshold: 0.8, RiskLevel: model.RiskLow, AuthRequired: model.AuthFull,
			ExampleUtterances: []string{"Show my portfolio", "How are my investments doing"},
			Keywords:          []string{"portfolio", "my investments", "holdings"},
			TimeoutMs:         3000,
		},
		{
			ID: "investments.buy", Name: "Buy Investment", Category: "investments", Subcategory: "buy",
			ConfidenceThreshold: 0.85, RiskLevel: model.RiskHigh, AuthRequired: model.AuthFull,
			RequiredEntities:  []model.EntityType{model.EntityAmount},
			ExampleUtterances: []string{"Buy $1000 of stock", "Invest in an index fund"},
			Keywords:          []string{"buy stock", "buy shares", "invest in"},
			Preconditions:     []string{"balance_check", "hours_check"},
			TimeoutMs:         8000,
		},
		{
			ID: "investments.sell", Name: "Sell Investment", Category: "investments", Subcategory: "sell",
			ConfidenceThreshold: 0.85, RiskLevel: model.RiskHigh, AuthRequired: model.AuthFull,
			RequiredEntities:  []model.EntityType{model.EntityAmount},
			ExampleUtterances: []string{"Sell $500 of my shares", "Sell my stock"},
			Keywords:          []string{"sell stock", "sell shares", "sell my"},
			Preconditions:     []string{"hours_check"},
			TimeoutMs:         8000,
		},

		// --- Support ---
		{
			ID: "support.agent.connect", Name: "Talk to Agent", Category: "support", Subcategory: "agent",
			ConfidenceThreshold: 0.85, RiskLevel: model.RiskLow, AuthRequired: model.AuthNone,
			ExampleUtterances: []string{"I want to talk to a human", "Connect me to an agent"},
			Keywords:          []string{"talk to a human", "real person", "customer service", "speak to an agent"},
			TimeoutMs:         3000,
		},
		{
			ID: "support.hours.check", Name: "Branch Hours", Category: "support", Subcategory: "hours",
			ConfidenceThreshold: 0.8, RiskLevel: model.RiskLow, AuthRequired: model.AuthNone,
			ExampleUtterances: []string{"What are your hours", "When does the branch open"},
			Keywords:          []string{"your hours", "opening hours", "when do you open", "when do you close"},
			TimeoutMs:         3000,
		},
		{
			ID: "support.branch.locate", Name: "Find Branch", Category: "support", Subcategory: "branch",
			ConfidenceThreshold: 0.8, RiskLevel: model.RiskLow, AuthRequired: model.AuthNone,
			ExampleUtterances: []string{"Where is the nearest branch", "Find an ATM near me"},
			Keywords:          []string{"nearest branch", "find a branch", "atm near"},
			TimeoutMs:         3000,
		},

		// --- Profile ---
		{
			ID: "profile.update.contact", Name: "Update Contact Info", Category: "profile", Subcategory: "contact",
			ConfidenceThreshold: 0.85, RiskLevel: model.RiskMedium, AuthRequired: model.AuthFull,
			OptionalEntities:  []model.EntityType{model.EntityPhone, model.EntityEmail},
			ExampleUtterances: []string{"Update my phone number", "Change my email address"},
			Keywords:          []string{"update my phone", "change my email", "contact information"},
			TimeoutMs:         3000,
		},
		{
			ID: "profile.update.address", Name: "Update Address", Category: "profile", Subcategory: "address",
			ConfidenceThreshold: 0.85, RiskLevel: model.RiskMedium, AuthRequired: model.AuthFull,
			ExampleUtterances: []string{"I moved, update my address", "Change my mailing address"},
			Keywords:          []string{"update my address", "change my address", "mailing address", "i moved"},
			TimeoutMs:         3000,
		},

		// --- Security ---
		{
			ID: "security.alerts.view", Name: "Security Alerts", Category: "security", Subcategory: "alerts",
			ConfidenceThreshold: 0.8, RiskLevel: model.RiskLow, AuthRequired: model.AuthBasic,
			ExampleUtterances: []string{"Show my security alerts", "Any suspicious activity on my account"},
			Keywords:          []string{"security alerts", "suspicious activity", "fraud alerts"},
			TimeoutMs:         3000,
		},
		{
			ID: "security.password.reset", Name: "Reset Password", Category: "security", Subcategory: "password",
			ConfidenceThreshold: 0.9, RiskLevel: model.RiskHigh, AuthRequired: model.AuthChallenge,
			ExampleUtterances: []string{"Reset my password", "I forgot my password"},
			Keywords:          []string{"reset my password", "forgot my password", "change my password"},
			TimeoutMs:         3000,
		},
	}
}
