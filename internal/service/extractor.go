package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/aibanking/conversation-core/internal/llm"
	"github.com/aibanking/conversation-core/internal/model"
)

// EntitySystem keys the synthetic validation error produced when extraction
// itself fails.
const EntitySystem model.EntityType = "system"

const (
	patternConfidence = 0.85
	extractorRetries  = 2
	extractorBackoff  = 200 * time.Millisecond
)

// ExtractionHints is the small slice of session context forwarded into the
// LLM prompt.
type ExtractionHints struct {
	LastRecipient string
	LastAmount    float64
}

// ExtractionResult is the validated output of one extraction pass.
type ExtractionResult struct {
	Entities         model.Entities              `json:"entities"`
	MissingRequired  []model.EntityType          `json:"missing_required,omitempty"`
	ValidationErrors map[model.EntityType]string `json:"validation_errors,omitempty"`
	ConfidenceScore  float64                     `json:"confidence_score"`
	FollowUpNeeded   bool                        `json:"follow_up_needed"`
	Suggestions      []string                    `json:"suggestions,omitempty"`
}

// Extractor runs the hybrid pattern + LLM entity extraction.
type Extractor struct {
	client llm.Client
	now    func() time.Time
}

// NewExtractor wires the extractor to an LLM provider.
func NewExtractor(client llm.Client) *Extractor {
	return &Extractor{client: client, now: time.Now}
}

// SetClock overrides the date-resolution clock. Test hook.
func (x *Extractor) SetClock(now func() time.Time) { x.now = now }

var (
	amountDollarRe = regexp.MustCompile(`\$\s*([0-9][0-9,]*(?:\.[0-9]{1,2})?)`)
	amountWordRe   = regexp.MustCompile(`(?i)\b([0-9][0-9,]*(?:\.[0-9]{1,2})?)\s*(?:dollars|bucks|usd)\b`)
	fromAccountRe  = regexp.MustCompile(`(?i)from\s+(?:my\s+)?(checking|savings|credit|investment|loan|business)`)
	toAccountRe    = regexp.MustCompile(`(?i)(?:to|into)\s+(?:my\s+)?(checking|savings|credit|investment|loan|business)`)
	accountTypeRe  = regexp.MustCompile(`(?i)\b(checking|savings|credit|investment|loan|business)\b`)
	routingRe      = regexp.MustCompile(`\b([0-9]{9})\b`)
	phoneRe        = regexp.MustCompile(`\(?([0-9]{3})\)?[-.\s]?([0-9]{3})[-.\s]?([0-9]{4})\b`)
	emailRe        = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	cardLast4Re    = regexp.MustCompile(`(?i)(?:card\s+)?(?:ending\s+in|last\s+(?:4|four)(?:\s+digits)?)\s*:?\s*([0-9]{4})`)
	transactionRe  = regexp.MustCompile(`\b(TXN_[A-Za-z0-9]{8})\b`)
	isoDateRe      = regexp.MustCompile(`\b([0-9]{4})-([0-9]{2})-([0-9]{2})\b`)
	usDateRe       = regexp.MustCompile(`\b([0-9]{1,2})/([0-9]{1,2})/([0-9]{4})\b`)
	relativeDateRe = regexp.MustCompile(`(?i)\b(today|tomorrow|yesterday)\b`)
)

// Extract runs both phases, merges, validates, and reports missing required
// entities with follow-up suggestions. It never panics out; a failure inside
// either phase degrades to an empty set with a system validation error.
func (x *Extractor) Extract(ctx context.Context, utterance, intentID string, required []model.EntityType, hints *ExtractionHints) (result *ExtractionResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("intent", intentID).Msg("Entity extraction panicked")
			result = &ExtractionResult{
				Entities:         model.Entities{},
				ValidationErrors: map[model.EntityType]string{EntitySystem: "entity extraction failed, please rephrase your request"},
				FollowUpNeeded:   true,
			}
		}
	}()

	fromPatterns := x.patternPhase(utterance)
	fromLLM := x.llmPhase(ctx, utterance, intentID, hints)
	merged := mergeEntities(fromPatterns, fromLLM)

	result = &ExtractionResult{
		Entities:         model.Entities{},
		ValidationErrors: map[model.EntityType]string{},
	}
	var confidenceSum float64
	for entityType, entity := range merged {
		normalized, err := validateEntity(entityType, entity)
		if err != nil {
			result.ValidationErrors[entityType] = err.Error()
			continue
		}
		result.Entities[entityType] = normalized
		confidenceSum += normalized.Confidence
	}
	if len(result.Entities) > 0 {
		result.ConfidenceScore = confidenceSum / float64(len(result.Entities))
	}
	if len(result.ValidationErrors) == 0 {
		result.ValidationErrors = nil
	}

	for _, req := range required {
		if _, ok := result.Entities[req]; ok {
			continue
		}
		result.MissingRequired = append(result.MissingRequired, req)
		if s, ok := entitySuggestions[req]; ok {
			result.Suggestions = append(result.Suggestions, s)
		}
	}
	result.FollowUpNeeded = len(result.MissingRequired) > 0

	log.Debug().
		Str("intent", intentID).
		Int("entities", len(result.Entities)).
		Int("missing", len(result.MissingRequired)).
		Msg("Entity extraction complete")
	return result
}

// patternPhase extracts high-confidence entities from the fixed regex table.
func (x *Extractor) patternPhase(utterance string) model.Entities {
	out := model.Entities{}

	if m := amountDollarRe.FindStringSubmatch(utterance); m != nil {
		if f, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64); err == nil {
			out[model.EntityAmount] = patternEntity(model.EntityAmount, f, m[0])
		}
	} else if m := amountWordRe.FindStringSubmatch(utterance); m != nil {
		if f, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64); err == nil {
			out[model.EntityAmount] = patternEntity(model.EntityAmount, f, m[0])
		}
	}

	if m := fromAccountRe.FindStringSubmatch(utterance); m != nil {
		out[model.EntityFromAccount] = patternEntity(model.EntityFromAccount, strings.ToLower(m[1]), m[0])
	}
	if m := toAccountRe.FindStringSubmatch(utterance); m != nil {
		out[model.EntityToAccount] = patternEntity(model.EntityToAccount, strings.ToLower(m[1]), m[0])
	}
	if _, hasFrom := out[model.EntityFromAccount]; !hasFrom {
		if _, hasTo := out[model.EntityToAccount]; !hasTo {
			if m := accountTypeRe.FindStringSubmatch(utterance); m != nil {
				out[model.EntityAccountType] = patternEntity(model.EntityAccountType, strings.ToLower(m[1]), m[0])
			}
		}
	}

	for _, m := range routingRe.FindAllStringSubmatch(utterance, -1) {
		if ValidABARoutingNumber(m[1]) {
			out[model.EntityRoutingNumber] = patternEntity(model.EntityRoutingNumber, m[1], m[0])
			break
		}
	}

	if m := phoneRe.FindStringSubmatch(utterance); m != nil {
		// Avoid swallowing a routing or account number that happens to be 10
		// digits with separators only when a checksum-valid routing number
		// already claimed the text.
		if _, taken := out[model.EntityRoutingNumber]; !taken || !strings.Contains(out[model.EntityRoutingNumber].RawText, m[2]) {
			formatted := fmt.Sprintf("(%s) %s-%s", m[1], m[2], m[3])
			out[model.EntityPhone] = patternEntity(model.EntityPhone, formatted, m[0])
		}
	}

	if m := emailRe.FindString(utterance); m != "" {
		out[model.EntityEmail] = patternEntity(model.EntityEmail, strings.ToLower(m), m)
	}
	if m := cardLast4Re.FindStringSubmatch(utterance); m != nil {
		out[model.EntityCardID] = patternEntity(model.EntityCardID, m[1], m[0])
	}
	if m := transactionRe.FindStringSubmatch(utterance); m != nil {
		out[model.EntityTransactionID] = patternEntity(model.EntityTransactionID, m[1], m[0])
	}

	if date, raw, ok := x.parseDate(utterance); ok {
		out[model.EntityDate] = patternEntity(model.EntityDate, date, raw)
	}

	return out
}

func (x *Extractor) parseDate(utterance string) (iso, raw string, ok bool) {
	if m := isoDateRe.FindStringSubmatch(utterance); m != nil {
		return m[0], m[0], true
	}
	if m := usDateRe.FindStringSubmatch(utterance); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if month >= 1 && month <= 12 && day >= 1 && day <= 31 {
			return fmt.Sprintf("%04d-%02d-%02d", year, month, day), m[0], true
		}
	}
	if m := relativeDateRe.FindStringSubmatch(utterance); m != nil {
		base := x.now()
		switch strings.ToLower(m[1]) {
		case "tomorrow":
			base = base.AddDate(0, 0, 1)
		case "yesterday":
			base = base.AddDate(0, 0, -1)
		}
		return base.Format("2006-01-02"), m[0], true
	}
	return "", "", false
}

// llmPhase asks the provider for structured extraction, preferring a tool
// call, with two retries on transient failure. Any failure returns nil and
// the pattern phase stands alone.
func (x *Extractor) llmPhase(ctx context.Context, utterance, intentID string, hints *ExtractionHints) model.Entities {
	req := llm.Request{
		System:         "You extract banking entities from user requests. Respond only through the extract_entities tool.",
		Prompt:         buildExtractionPrompt(utterance, intentID, hints),
		ResponseFormat: llm.FormatJSONObject,
		Tool:           extractEntitiesTool,
		Temperature:    0.1,
		MaxTokens:      512,
	}

	var lastErr error
	for attempt := 0; attempt <= extractorRetries; attempt++ {
		if attempt > 0 {
			backoff := extractorBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
		}
		res, err := x.client.Complete(ctx, req)
		if err != nil {
			lastErr = err
			continue
		}
		payload := res.Content
		if res.FunctionCall != nil {
			payload = res.FunctionCall.Arguments
		}
		entities, err := parseExtractionPayload(payload)
		if err != nil {
			lastErr = err
			continue
		}
		return entities
	}
	log.Warn().Err(lastErr).Str("intent", intentID).Msg("LLM extraction failed, using pattern results only")
	return nil
}

var extractEntitiesTool = &llm.ToolSpec{
	Name:        "extract_entities",
	Description: "Report every banking entity found in the utterance",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"entities": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"type":       map[string]any{"type": "string"},
						"value":      map[string]any{},
						"raw_text":   map[string]any{"type": "string"},
						"confidence": map[string]any{"type": "number"},
					},
					"required": []string{"type", "value"},
				},
			},
		},
		"required": []string{"entities"},
	},
}

func buildExtractionPrompt(utterance, intentID string, hints *ExtractionHints) string {
	var b strings.Builder
	b.WriteString("Extract all banking entities from the user request below.\n")
	if intentID != "" && intentID != model.IntentUnknown {
		fmt.Fprintf(&b, "The classified intent is %s.\n", intentID)
	}
	if hints != nil {
		if hints.LastRecipient != "" {
			fmt.Fprintf(&b, "Earlier in this conversation the user referenced recipient %q.\n", hints.LastRecipient)
		}
		if hints.LastAmount > 0 {
			fmt.Fprintf(&b, "Earlier in this conversation the user referenced the amount $%.2f.\n", hints.LastAmount)
		}
	}
	b.WriteString(`
Examples:
  "Send $50 to Alice Brown" -> amount=50, recipient="Alice Brown"
  "Move 200 dollars from checking to savings" -> amount=200, from_account="checking", to_account="savings"
  "Block my card ending in 4321" -> card_id="4321"

`)
	fmt.Fprintf(&b, "User request: %q\n", utterance)
	return b.String()
}

type llmEntity struct {
	Type       string  `json:"type"`
	Value      any     `json:"value"`
	RawText    string  `json:"raw_text"`
	Confidence float64 `json:"confidence"`
}

func parseExtractionPayload(payload string) (model.Entities, error) {
	payload = strings.TrimSpace(payload)
	if start := strings.Index(payload, "{"); start > 0 {
		payload = payload[start:]
	}
	var parsed struct {
		Entities []llmEntity `json:"entities"`
	}
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil, fmt.Errorf("extraction payload: %w", err)
	}
	out := model.Entities{}
	for _, e := range parsed.Entities {
		entityType := model.EntityType(strings.ToLower(strings.TrimSpace(e.Type)))
		if entityType == "" || e.Value == nil {
			continue
		}
		confidence := e.Confidence
		if confidence <= 0 || confidence > 1 {
			confidence = 0.8
		}
		candidate := model.Entity{
			Type:       entityType,
			Value:      e.Value,
			RawText:    e.RawText,
			Confidence: confidence,
			Source:     model.SourceLLM,
		}
		if existing, ok := out[entityType]; !ok || candidate.Confidence > existing.Confidence {
			out[entityType] = candidate
		}
	}
	return out, nil
}

func patternEntity(entityType model.EntityType, value any, raw string) model.Entity {
	return model.Entity{
		Type:       entityType,
		Value:      value,
		RawText:    raw,
		Confidence: patternConfidence,
		Source:     model.SourcePattern,
	}
}

// mergeEntities keys by type; higher confidence wins. On ties the LLM wins
// amounts (it disambiguates word-form numerals) and the pattern phase wins
// routing numbers and phones (the checksum and normalization are already
// enforced there).
func mergeEntities(fromPatterns, fromLLM model.Entities) model.Entities {
	out := fromPatterns.Clone()
	for entityType, candidate := range fromLLM {
		existing, ok := out[entityType]
		if !ok {
			out[entityType] = candidate
			continue
		}
		switch {
		case candidate.Confidence > existing.Confidence:
			out[entityType] = candidate
		case candidate.Confidence == existing.Confidence:
			if entityType == model.EntityAmount {
				out[entityType] = candidate
			}
			// routing_number, phone and everything else keep the pattern value.
		}
	}
	return out
}

// ValidABARoutingNumber reports whether the nine-digit routing number passes
// the ABA checksum.
func ValidABARoutingNumber(s string) bool {
	if len(s) != 9 {
		return false
	}
	d := make([]int, 9)
	for i, r := range s {
		if r < '0' || r > '9' {
			return false
		}
		d[i] = int(r - '0')
	}
	sum := 3*(d[0]+d[3]+d[6]) + 7*(d[1]+d[4]+d[7]) + (d[2] + d[5] + d[8])
	return sum%10 == 0
}

var validAccountTypes = map[string]bool{
	model.AccountChecking:   true,
	model.AccountSavings:    true,
	model.AccountCredit:     true,
	model.AccountInvestment: true,
	model.AccountLoan:       true,
	model.AccountBusiness:   true,
}

var entitySuggestions = map[model.EntityType]string{
	model.EntityAmount:        "What amount would you like to transfer?",
	model.EntityRecipient:     "Who would you like to send money to?",
	model.EntityFromAccount:   "Which account should the money come from?",
	model.EntityToAccount:     "Which account should the money go to?",
	model.EntityAccountType:   "Which account do you mean (checking, savings, ...)?",
	model.EntityCardID:        "Which card is this about? You can give the last 4 digits.",
	model.EntityDate:          "What date should this happen on?",
	model.EntityTransactionID: "Which transaction is this about?",
}

// validateEntity applies the per-type rule and normalizes the value. An
// error means the entity is dropped into validationErrors instead of the
// output set.
func validateEntity(entityType model.EntityType, e model.Entity) (model.Entity, error) {
	switch entityType {
	case model.EntityAmount:
		amount, ok := e.Amount()
		if !ok {
			return e, fmt.Errorf("amount %q is not numeric", e.Text())
		}
		if amount < 0.01 || amount > 1_000_000 {
			return e, fmt.Errorf("amount must be between $0.01 and $1,000,000")
		}
		e.Value = math.Round(amount*100) / 100
	case model.EntityAccountType, model.EntityFromAccount, model.EntityToAccount:
		v := strings.ToLower(strings.TrimSpace(e.Text()))
		if !validAccountTypes[v] {
			return e, fmt.Errorf("unknown account type %q", e.Text())
		}
		e.Value = v
	case model.EntityRoutingNumber:
		if !ValidABARoutingNumber(e.Text()) {
			return e, fmt.Errorf("routing number fails checksum")
		}
	case model.EntityEmail:
		if !emailRe.MatchString(e.Text()) {
			return e, fmt.Errorf("invalid email address")
		}
		e.Value = strings.ToLower(e.Text())
	case model.EntityPhone:
		if digits := digitsOnly(e.Text()); len(digits) == 10 {
			e.Value = fmt.Sprintf("(%s) %s-%s", digits[:3], digits[3:6], digits[6:])
		} else {
			return e, fmt.Errorf("invalid phone number")
		}
	case model.EntityRecipient, model.EntityAccountName, model.EntityMerchant, model.EntityMemo:
		v := strings.TrimSpace(e.Text())
		if v == "" {
			return e, fmt.Errorf("empty %s", entityType)
		}
		e.Value = v
	case model.EntityDate:
		if !isoDateRe.MatchString(e.Text()) {
			return e, fmt.Errorf("date must be ISO formatted")
		}
	case model.EntityCardID:
		if digits := digitsOnly(e.Text()); len(digits) < 4 {
			return e, fmt.Errorf("card reference needs at least 4 digits")
		}
	}
	return e, nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteString(string(r))
		}
	}
	return b.String()
}
