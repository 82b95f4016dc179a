package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aibanking/conversation-core/internal/model"
)

func TestCatalogExampleUtterancesWinTopSpot(t *testing.T) {
	catalog, err := NewCatalog()
	require.NoError(t, err)

	for _, intent := range catalog.All() {
		for _, example := range intent.ExampleUtterances {
			match := catalog.Match(example)
			assert.Equal(t, intent.ID, match.ID, "utterance %q", example)
			assert.GreaterOrEqual(t, match.Confidence, 0.9*intent.ConfidenceThreshold, "utterance %q", example)
		}
	}
}

func TestCatalogExampleMatchIsCaseInsensitive(t *testing.T) {
	catalog, err := NewCatalog()
	require.NoError(t, err)

	match := catalog.Match(strings.ToUpper("What's my checking account balance?"))
	assert.Equal(t, "accounts.balance.check", match.ID)
	assert.InDelta(t, 0.99*0.9, match.Confidence, 1e-9)
}

func TestCatalogMatchUnknownForGibberish(t *testing.T) {
	catalog, err := NewCatalog()
	require.NoError(t, err)

	match := catalog.Match("qwyzzlvrk flurble")
	assert.Equal(t, model.IntentUnknown, match.ID)
	assert.Zero(t, match.Confidence)
}

func TestCatalogSearchOmitsZeroScoresAndSortsDescending(t *testing.T) {
	catalog, err := NewCatalog()
	require.NoError(t, err)

	hits := catalog.Search("block my card, it was stolen", 10)
	require.NotEmpty(t, hits)
	assert.Equal(t, "cards.block", hits[0].ID)
	for i := 1; i < len(hits); i++ {
		assert.LessOrEqual(t, hits[i].Score, hits[i-1].Score)
		assert.Greater(t, hits[i].Score, 0.0)
	}
}

func TestCatalogSearchScoresScaleWithThreshold(t *testing.T) {
	intents := []*model.Intent{
		{ID: "a.one", ConfidenceThreshold: 0.9, Keywords: []string{"alpha"}},
		{ID: "a.two", ConfidenceThreshold: 0.5, Keywords: []string{"alpha"}},
	}
	catalog, err := newCatalogWith(intents)
	require.NoError(t, err)

	hits := catalog.Search("please do the alpha thing", 2)
	require.Len(t, hits, 2)
	assert.Equal(t, "a.one", hits[0].ID)
	assert.Equal(t, "a.two", hits[1].ID)
	assert.InDelta(t, hits[0].Score/0.9, hits[1].Score/0.5, 1e-9)
}

func TestCatalogRejectsDuplicateIDs(t *testing.T) {
	_, err := newCatalogWith([]*model.Intent{
		{ID: "dup.intent", ConfidenceThreshold: 0.8},
		{ID: "dup.intent", ConfidenceThreshold: 0.8},
	})
	assert.Error(t, err)
}

func TestCatalogGet(t *testing.T) {
	catalog, err := NewCatalog()
	require.NoError(t, err)

	intent := catalog.Get("payments.transfer.internal")
	require.NotNil(t, intent)
	assert.Equal(t, model.RiskMedium, intent.RiskLevel)
	assert.Contains(t, intent.RequiredEntities, model.EntityAmount)

	assert.Nil(t, catalog.Get("no.such.intent"))
}
