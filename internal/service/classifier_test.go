package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aibanking/conversation-core/internal/cache"
	"github.com/aibanking/conversation-core/internal/llm"
	"github.com/aibanking/conversation-core/internal/model"
)

func newTestClassifier(t *testing.T, client llm.Client) (*Classifier, *cache.Memory) {
	t.Helper()
	catalog, err := NewCatalog()
	require.NoError(t, err)
	kv := cache.NewMemory()
	return NewClassifier(catalog, client, kv, 300*time.Second), kv
}

func TestClassifyBalanceCheck(t *testing.T) {
	classifier, _ := newTestClassifier(t, llm.NewMockClient())

	result := classifier.Classify(context.Background(), "What's my checking account balance?", nil)

	assert.Equal(t, "accounts.balance.check", result.IntentID)
	assert.GreaterOrEqual(t, result.Confidence, 0.85)
	assert.Equal(t, model.RiskLow, result.RiskLevel)
	assert.Equal(t, model.AuthBasic, result.AuthRequired)
	assert.False(t, result.FromCache)
	assert.False(t, result.Fallback)
}

func TestClassifyCacheSoundness(t *testing.T) {
	classifier, _ := newTestClassifier(t, llm.NewMockClient())

	first := classifier.Classify(context.Background(), "Send $50 to Mike Smith", nil)
	second := classifier.Classify(context.Background(), "Send $50 to Mike Smith", nil)

	assert.False(t, first.FromCache)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.IntentID, second.IntentID)
	assert.Equal(t, first.Confidence, second.Confidence)
}

func TestClassifyCacheKeyNormalizesWhitespaceAndCase(t *testing.T) {
	assert.Equal(t, intentCacheKey("Send  $50 to Mike"), intentCacheKey("send $50 TO mike"))
	assert.NotEqual(t, intentCacheKey("Send $50 to Mike"), intentCacheKey("Send $51 to Mike"))
}

func TestClassifyCacheExpires(t *testing.T) {
	classifier, kv := newTestClassifier(t, llm.NewMockClient())

	now := time.Now()
	kv.SetClock(func() time.Time { return now })
	first := classifier.Classify(context.Background(), "Block my card", nil)
	require.False(t, first.FromCache)

	kv.SetClock(func() time.Time { return now.Add(301 * time.Second) })
	third := classifier.Classify(context.Background(), "Block my card", nil)
	assert.False(t, third.FromCache)
}

func TestClassifyFallsBackToRuleScorer(t *testing.T) {
	classifier, _ := newTestClassifier(t, failingLLM{})

	result := classifier.Classify(context.Background(), "What's my checking account balance?", nil)

	assert.Equal(t, "accounts.balance.check", result.IntentID)
	assert.True(t, result.Fallback)
	assert.GreaterOrEqual(t, result.Confidence, 0.8)
}

func TestClassifyUnknownUtterance(t *testing.T) {
	classifier, _ := newTestClassifier(t, llm.NewMockClient())

	result := classifier.Classify(context.Background(), "tell me a story about dragons", nil)
	assert.Equal(t, model.IntentUnknown, result.IntentID)
}

func TestResolveIntentIDMapsByPrefix(t *testing.T) {
	classifier, _ := newTestClassifier(t, llm.NewMockClient())

	assert.Equal(t, "payments.transfer.internal", classifier.resolveIntentID("payments.transfer.internal"))
	// Near-miss ids map to the closest dotted prefix.
	assert.Contains(t, classifier.resolveIntentID("payments.transfer.between_accounts"), "payments.transfer.")
	assert.Contains(t, classifier.resolveIntentID("cards.freeze"), "cards.")
	assert.Equal(t, model.IntentUnknown, classifier.resolveIntentID("weather.forecast.today"))
	assert.Equal(t, model.IntentUnknown, classifier.resolveIntentID(""))
}

func TestClassifyAlternativesExcludeChosenAndCapAtThree(t *testing.T) {
	classifier, _ := newTestClassifier(t, failingLLM{})

	result := classifier.Classify(context.Background(), "transfer money between my accounts", nil)
	assert.LessOrEqual(t, len(result.Alternatives), 3)
	for _, alt := range result.Alternatives {
		assert.NotEqual(t, result.IntentID, alt.ID)
	}
}
