package service

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/aibanking/conversation-core/internal/cache"
	"github.com/aibanking/conversation-core/internal/llm"
	"github.com/aibanking/conversation-core/internal/model"
)

// DefaultIntentCacheTTL bounds how long a classification is reused.
const DefaultIntentCacheTTL = 300 * time.Second

// Classification is the classifier's full answer, enhanced with the
// catalog's metadata for the chosen intent.
type Classification struct {
	IntentID            string             `json:"intent_id"`
	Name                string             `json:"name"`
	Category            string             `json:"category"`
	Subcategory         string             `json:"subcategory"`
	Confidence          float64            `json:"confidence"`
	Alternatives        []ScoredIntent     `json:"alternatives,omitempty"`
	RiskLevel           model.RiskLevel    `json:"risk_level"`
	AuthRequired        model.AuthLevel    `json:"auth_required"`
	RequiredEntities    []model.EntityType `json:"required_entities,omitempty"`
	OptionalEntities    []model.EntityType `json:"optional_entities,omitempty"`
	Preconditions       []string           `json:"preconditions,omitempty"`
	TimeoutMs           int                `json:"timeout_ms"`
	ConfidenceThreshold float64            `json:"confidence_threshold"`
	Reasoning           string             `json:"reasoning,omitempty"`
	ResponseTimeMs      int64              `json:"response_time_ms"`
	FromCache           bool               `json:"from_cache"`
	Fallback            bool               `json:"fallback"`
}

// ClassifierContext is the slice of session state forwarded into the prompt.
type ClassifierContext struct {
	LastIntent string
}

// Classifier is LLM-first with the catalog's rule scorer as fallback, fronted
// by a short-lived cache keyed on the normalized utterance.
type Classifier struct {
	catalog  *Catalog
	client   llm.Client
	cache    cache.Cache
	cacheTTL time.Duration
}

// NewClassifier wires the classifier.
func NewClassifier(catalog *Catalog, client llm.Client, c cache.Cache, cacheTTL time.Duration) *Classifier {
	if cacheTTL <= 0 {
		cacheTTL = DefaultIntentCacheTTL
	}
	return &Classifier{catalog: catalog, client: client, cache: c, cacheTTL: cacheTTL}
}

// Classify resolves the utterance to a catalog intent.
func (c *Classifier) Classify(ctx context.Context, utterance string, cctx *ClassifierContext) *Classification {
	start := time.Now()
	key := intentCacheKey(utterance)

	if cached, err := c.cache.Get(ctx, key); err == nil {
		var out Classification
		if json.Unmarshal([]byte(cached), &out) == nil {
			out.FromCache = true
			out.ResponseTimeMs = time.Since(start).Milliseconds()
			return &out
		}
	}

	result := c.classifyLLM(ctx, utterance, cctx)
	if result == nil {
		match := c.catalog.Match(utterance)
		result = &Classification{
			IntentID:     match.ID,
			Confidence:   match.Confidence,
			Alternatives: match.Alternatives,
			Reasoning:    "rule-based fallback",
			Fallback:     true,
		}
	}

	c.enhance(result)
	result.ResponseTimeMs = time.Since(start).Milliseconds()

	if payload, err := json.Marshal(result); err == nil {
		if err := c.cache.SetEx(ctx, key, string(payload), c.cacheTTL); err != nil {
			log.Warn().Err(err).Msg("Intent cache write failed")
		}
	}
	return result
}

func intentCacheKey(utterance string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(utterance)), " ")
	return fmt.Sprintf("intent:%x", md5.Sum([]byte(normalized)))
}

type llmClassification struct {
	IntentID     string  `json:"intentId"`
	Confidence   float64 `json:"confidence"`
	Alternatives []struct {
		IntentID   string  `json:"intentId"`
		Confidence float64 `json:"confidence"`
	} `json:"alternatives"`
	Reasoning string `json:"reasoning"`
}

func (c *Classifier) classifyLLM(ctx context.Context, utterance string, cctx *ClassifierContext) *Classification {
	req := llm.Request{
		System:         "You classify banking requests into a fixed intent catalog. Respond with strict JSON only.",
		Prompt:         c.buildClassifyPrompt(utterance, cctx),
		ResponseFormat: llm.FormatJSONObject,
		Temperature:    0.2,
		MaxTokens:      256,
	}
	res, err := c.client.Complete(ctx, req)
	if err != nil {
		log.Warn().Err(err).Msg("LLM classification failed, falling back to rule scorer")
		return nil
	}

	payload := strings.TrimSpace(res.Content)
	if res.FunctionCall != nil {
		payload = res.FunctionCall.Arguments
	}
	if start := strings.Index(payload, "{"); start > 0 {
		payload = payload[start:]
	}
	var parsed llmClassification
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		log.Warn().Err(err).Msg("Unparseable classification payload, falling back to rule scorer")
		return nil
	}

	intentID := c.resolveIntentID(parsed.IntentID)
	out := &Classification{
		IntentID:   intentID,
		Confidence: clamp01(parsed.Confidence),
		Reasoning:  parsed.Reasoning,
	}
	for _, alt := range parsed.Alternatives {
		id := c.resolveIntentID(alt.IntentID)
		if id == out.IntentID || id == model.IntentUnknown {
			continue
		}
		out.Alternatives = append(out.Alternatives, ScoredIntent{ID: id, Score: clamp01(alt.Confidence)})
		if len(out.Alternatives) == 3 {
			break
		}
	}
	return out
}

func (c *Classifier) buildClassifyPrompt(utterance string, cctx *ClassifierContext) string {
	var b strings.Builder
	b.WriteString("Classify the user request into exactly one of these banking intents:\n\n")
	for _, intent := range c.catalog.All() {
		keywords := intent.Keywords
		if len(keywords) > 5 {
			keywords = keywords[:5]
		}
		fmt.Fprintf(&b, "- %s: %s", intent.ID, intent.Name)
		if len(keywords) > 0 {
			fmt.Fprintf(&b, " (keywords: %s)", strings.Join(keywords, ", "))
		}
		b.WriteString("\n")
	}
	if cctx != nil && cctx.LastIntent != "" {
		fmt.Fprintf(&b, "\nPrevious intent in this conversation: %s\n", cctx.LastIntent)
	}
	b.WriteString("\nRespond with JSON: {\"intentId\": ..., \"confidence\": 0..1, \"alternatives\": [{\"intentId\", \"confidence\"}], \"reasoning\": ...}\n")
	b.WriteString("Use intentId \"unknown\" when nothing fits.\n\n")
	fmt.Fprintf(&b, "User request: %q\n", utterance)
	return b.String()
}

// resolveIntentID validates against the catalog and maps near-misses to the
// closest known id by dotted prefix, then by category.
func (c *Classifier) resolveIntentID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || id == model.IntentUnknown {
		return model.IntentUnknown
	}
	if c.catalog.Get(id) != nil {
		return id
	}

	var best string
	bestDepth := 0
	parts := strings.Split(id, ".")
	for _, intent := range c.catalog.All() {
		candidate := strings.Split(intent.ID, ".")
		depth := 0
		for depth < len(parts) && depth < len(candidate) && parts[depth] == candidate[depth] {
			depth++
		}
		if depth > bestDepth {
			bestDepth = depth
			best = intent.ID
		}
	}
	if bestDepth == 0 {
		return model.IntentUnknown
	}
	return best
}

// enhance copies the chosen intent's catalog metadata onto the result.
func (c *Classifier) enhance(result *Classification) {
	intent := c.catalog.Get(result.IntentID)
	if intent == nil {
		result.IntentID = model.IntentUnknown
		return
	}
	result.Name = intent.Name
	result.Category = intent.Category
	result.Subcategory = intent.Subcategory
	result.RiskLevel = intent.RiskLevel
	result.AuthRequired = intent.AuthRequired
	result.RequiredEntities = intent.RequiredEntities
	result.OptionalEntities = intent.OptionalEntities
	result.Preconditions = intent.Preconditions
	result.TimeoutMs = intent.TimeoutMs
	result.ConfidenceThreshold = intent.ConfidenceThreshold
	result.Confidence = clamp01(result.Confidence)
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
