package llm

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// MockClient is the default provider. It answers classification and
// extraction prompts deterministically from keyword and regex rules so the
// full pipeline runs without network access.
type MockClient struct{}

// NewMockClient creates the deterministic mock provider.
func NewMockClient() *MockClient { return &MockClient{} }

// Name returns the provider name.
func (c *MockClient) Name() string { return "mock" }

var (
	mockAmountRe    = regexp.MustCompile(`\$\s*([0-9][0-9,]*(?:\.[0-9]{1,2})?)|([0-9][0-9,]*(?:\.[0-9]{1,2})?)\s*(?:dollars|bucks|usd)`)
	mockFromAcctRe  = regexp.MustCompile(`(?i)from\s+(?:my\s+)?(checking|savings|credit|investment|business)`)
	mockToAcctRe    = regexp.MustCompile(`(?i)to\s+(?:my\s+)?(checking|savings|credit|investment|business)`)
	mockAcctTypeRe  = regexp.MustCompile(`(?i)\b(checking|savings|credit|investment|loan|business)\b`)
	mockRecipientRe = regexp.MustCompile(`(?:[Tt]o|[Ff]or|[Pp]ay|[Ss]end)\s+([A-Z][a-zA-Z]+(?:\s+[A-Z][a-zA-Z]+){0,2})`)
	mockUtteranceRe = regexp.MustCompile(`(?s)(?:User request|Utterance):\s*"(.*?)"`)
)

// Complete answers the request from rules. Classification prompts yield the
// strict JSON the classifier expects; extraction requests yield a tool call
// when one was offered, JSON otherwise.
func (c *MockClient) Complete(_ context.Context, req Request) (*Result, error) {
	utterance := req.Prompt
	if m := mockUtteranceRe.FindStringSubmatch(req.Prompt); len(m) > 1 {
		utterance = m[1]
	}

	if req.Tool != nil || strings.Contains(req.Prompt, "Extract") {
		payload := mockExtract(utterance)
		if req.Tool != nil {
			return &Result{FunctionCall: &FunctionCall{Name: req.Tool.Name, Arguments: payload}}, nil
		}
		return &Result{Content: payload}, nil
	}

	if strings.Contains(req.Prompt, "Classify") {
		return &Result{Content: mockClassify(utterance)}, nil
	}

	return &Result{Content: "I'm your AI banking assistant. How can I help you today?"}, nil
}

func mockClassify(utterance string) string {
	lower := strings.ToLower(utterance)
	intentID := "unknown"
	confidence := 0.3

	hasRecipient := mockRecipientRe.MatchString(utterance)
	hasAccountPair := mockFromAcctRe.MatchString(utterance) && mockToAcctRe.MatchString(utterance)

	switch {
	case containsAny(lower, "balance", "how much do i have", "how much money"):
		intentID, confidence = "accounts.balance.check", 0.95
	case containsAny(lower, "statement", "transaction history", "recent transactions"):
		intentID, confidence = "accounts.statement.view", 0.9
	case containsAny(lower, "wire", "international transfer", "overseas"):
		intentID, confidence = "international.wire.send", 0.92
	case containsAny(lower, "zelle", "venmo", "cash app"):
		intentID, confidence = "payments.p2p.send", 0.92
	case containsAny(lower, "unblock", "unfreeze"):
		intentID, confidence = "cards.unblock", 0.9
	case containsAny(lower, "block", "freeze") && strings.Contains(lower, "card"):
		intentID, confidence = "cards.block", 0.93
	case strings.Contains(lower, "dispute"):
		intentID, confidence = "disputes.transaction.file", 0.9
	case strings.Contains(lower, "bill"):
		intentID, confidence = "payments.bill.pay", 0.88
	case strings.Contains(lower, "transfer") && hasAccountPair:
		intentID, confidence = "payments.transfer.internal", 0.92
	case strings.Contains(lower, "transfer") && hasRecipient:
		intentID, confidence = "payments.transfer.external", 0.9
	case strings.Contains(lower, "transfer"):
		intentID, confidence = "payments.transfer.internal", 0.85
	case containsAny(lower, "send", "pay"):
		intentID, confidence = "payments.p2p.send", 0.88
	}

	out := map[string]any{
		"intentId":     intentID,
		"confidence":   confidence,
		"alternatives": []any{},
		"reasoning":    "keyword match",
	}
	b, _ := json.Marshal(out)
	return string(b)
}

func mockExtract(utterance string) string {
	type entity struct {
		Type       string  `json:"type"`
		Value      any     `json:"value"`
		RawText    string  `json:"raw_text"`
		Confidence float64 `json:"confidence"`
	}
	var entities []entity

	if m := mockAmountRe.FindStringSubmatch(utterance); m != nil {
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		if f, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64); err == nil {
			entities = append(entities, entity{Type: "amount", Value: f, RawText: m[0], Confidence: 0.9})
		}
	}
	if m := mockFromAcctRe.FindStringSubmatch(utterance); m != nil {
		entities = append(entities, entity{Type: "from_account", Value: strings.ToLower(m[1]), RawText: m[0], Confidence: 0.9})
	}
	if m := mockToAcctRe.FindStringSubmatch(utterance); m != nil {
		entities = append(entities, entity{Type: "to_account", Value: strings.ToLower(m[1]), RawText: m[0], Confidence: 0.9})
	}
	if m := mockRecipientRe.FindStringSubmatch(utterance); m != nil {
		name := strings.TrimSpace(m[1])
		if !mockAcctTypeRe.MatchString(strings.ToLower(name)) {
			entities = append(entities, entity{Type: "recipient", Value: name, RawText: m[0], Confidence: 0.88})
		}
	}

	b, _ := json.Marshal(map[string]any{"entities": entities})
	return string(b)
}

func containsAny(s string, keywords ...string) bool {
	for _, keyword := range keywords {
		if strings.Contains(s, keyword) {
			return true
		}
	}
	return false
}
