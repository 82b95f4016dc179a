package service

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/aibanking/conversation-core/internal/model"
)

// Catalog is the read-only intent registry. It doubles as the rule-based
// classifier used when the LLM path is unavailable, and its metadata drives
// every downstream pipeline step.
type Catalog struct {
	intents  map[string]*model.Intent
	ordered  []*model.Intent
	patterns map[string][]*regexp.Regexp
}

// ScoredIntent is one catalog search hit.
type ScoredIntent struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// CatalogMatch is the top-1 convenience result.
type CatalogMatch struct {
	ID           string         `json:"id"`
	Confidence   float64        `json:"confidence"`
	Alternatives []ScoredIntent `json:"alternatives"`
}

// NewCatalog compiles the default intent set.
func NewCatalog() (*Catalog, error) {
	return newCatalogWith(defaultIntents())
}

func newCatalogWith(intents []*model.Intent) (*Catalog, error) {
	c := &Catalog{
		intents:  make(map[string]*model.Intent, len(intents)),
		patterns: make(map[string][]*regexp.Regexp, len(intents)),
	}
	for _, intent := range intents {
		if _, dup := c.intents[intent.ID]; dup {
			return nil, fmt.Errorf("duplicate intent id %q", intent.ID)
		}
		compiled := make([]*regexp.Regexp, 0, len(intent.Patterns))
		for _, p := range intent.Patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, fmt.Errorf("intent %s: bad pattern %q: %w", intent.ID, p, err)
			}
			compiled = append(compiled, re)
		}
		c.intents[intent.ID] = intent
		c.ordered = append(c.ordered, intent)
		c.patterns[intent.ID] = compiled
	}
	return c, nil
}

// Get returns the intent for id, or nil.
func (c *Catalog) Get(id string) *model.Intent {
	return c.intents[id]
}

// All returns every intent in declaration order.
func (c *Catalog) All() []*model.Intent {
	return c.ordered
}

// Search scores every intent against the utterance and returns the top k.
// Scoring is purely declarative: an exact example match dominates, otherwise
// pattern hits contribute up to 0.4 and the best keyword up to 0.6, scaled
// by the intent's confidence threshold. Zero-scored intents are omitted.
func (c *Catalog) Search(utterance string, k int) []ScoredIntent {
	lower := strings.ToLower(strings.TrimSpace(utterance))
	if lower == "" || k <= 0 {
		return nil
	}

	scored := make([]ScoredIntent, 0, len(c.ordered))
	for _, intent := range c.ordered {
		score := c.score(lower, utterance, intent)
		if score > 0 {
			scored = append(scored, ScoredIntent{ID: intent.ID, Score: score})
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ID < scored[j].ID
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}

func (c *Catalog) score(lower, original string, intent *model.Intent) float64 {
	for _, example := range intent.ExampleUtterances {
		if strings.EqualFold(strings.TrimSpace(example), strings.TrimSpace(original)) {
			return 0.99 * intent.ConfidenceThreshold
		}
	}

	var patternContribution float64
	if n := len(c.patterns[intent.ID]); n > 0 {
		matched := 0
		for _, re := range c.patterns[intent.ID] {
			if re.MatchString(original) {
				matched++
			}
		}
		patternContribution = 0.4 * float64(matched) / float64(n)
	}

	var keywordContribution float64
	for _, kw := range intent.Keywords {
		if !strings.Contains(lower, strings.ToLower(kw)) {
			continue
		}
		words := float64(len(strings.Fields(kw)))
		weight := 0.5 + 0.2*words + float64(len(kw))/float64(len(original))
		if weight > 1.0 {
			weight = 1.0
		}
		if contrib := 0.6 * weight; contrib > keywordContribution {
			keywordContribution = contrib
		}
	}

	combined := patternContribution + keywordContribution
	if combined > 1.0 {
		combined = 1.0
	}
	return combined * intent.ConfidenceThreshold
}

// Match returns the best intent with the next two as alternatives, or the
// unknown intent with zero confidence when nothing scores.
func (c *Catalog) Match(utterance string) CatalogMatch {
	hits := c.Search(utterance, 3)
	if len(hits) == 0 {
		return CatalogMatch{ID: model.IntentUnknown, Confidence: 0}
	}
	return CatalogMatch{
		ID:           hits[0].ID,
		Confidence:   hits[0].Score,
		Alternatives: hits[1:],
	}
}
