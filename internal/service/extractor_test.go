package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aibanking/conversation-core/internal/llm"
	"github.com/aibanking/conversation-core/internal/model"
)

type failingLLM struct{}

func (failingLLM) Name() string { return "failing" }
func (failingLLM) Complete(context.Context, llm.Request) (*llm.Result, error) {
	return nil, llm.ErrUnavailable
}

func newTestExtractor() *Extractor {
	x := NewExtractor(llm.NewMockClient())
	x.SetClock(func() time.Time { return time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC) })
	return x
}

func TestExtractTransferEntities(t *testing.T) {
	x := newTestExtractor()

	result := x.Extract(context.Background(), "Transfer $1,250.50 from checking to savings tomorrow", "payments.transfer.internal",
		[]model.EntityType{model.EntityAmount, model.EntityFromAccount, model.EntityToAccount}, nil)

	amount, ok := result.Entities.AmountValue()
	require.True(t, ok)
	assert.Equal(t, 1250.50, amount)
	assert.Equal(t, "checking", result.Entities[model.EntityFromAccount].Value)
	assert.Equal(t, "savings", result.Entities[model.EntityToAccount].Value)
	assert.Equal(t, "2025-01-16", result.Entities[model.EntityDate].Value)
	assert.Empty(t, result.MissingRequired)
	assert.False(t, result.FollowUpNeeded)
}

func TestExtractWordFormAmount(t *testing.T) {
	x := newTestExtractor()

	result := x.Extract(context.Background(), "Send 75 dollars to Alice Brown", "payments.p2p.send", nil, nil)

	amount, ok := result.Entities.AmountValue()
	require.True(t, ok)
	assert.Equal(t, 75.0, amount)
	assert.Equal(t, "Alice Brown", result.Entities[model.EntityRecipient].Value)
}

func TestExtractRoutingNumberChecksum(t *testing.T) {
	x := newTestExtractor()

	valid := x.Extract(context.Background(), "Use routing number 021000021 for the wire", "international.wire.send", nil, nil)
	require.Contains(t, valid.Entities, model.EntityRoutingNumber)
	assert.Equal(t, "021000021", valid.Entities[model.EntityRoutingNumber].Value)

	invalid := x.Extract(context.Background(), "Use routing number 123456789 for the wire", "international.wire.send", nil, nil)
	assert.NotContains(t, invalid.Entities, model.EntityRoutingNumber)
}

func TestABAChecksumProperty(t *testing.T) {
	// Every accepted routing number satisfies the checksum; every rejected
	// digit string of length nine fails it or is malformed.
	samples := []string{"021000021", "011401533", "091000019", "123456789", "000000001", "99999999", "0210000210"}
	for _, s := range samples {
		if ValidABARoutingNumber(s) {
			require.Len(t, s, 9)
			d := []int{}
			for _, r := range s {
				d = append(d, int(r-'0'))
			}
			sum := 3*(d[0]+d[3]+d[6]) + 7*(d[1]+d[4]+d[7]) + (d[2] + d[5] + d[8])
			assert.Zero(t, sum%10, "routing %s", s)
		}
	}
	assert.True(t, ValidABARoutingNumber("021000021"))
	assert.False(t, ValidABARoutingNumber("123456789"))
	assert.False(t, ValidABARoutingNumber("02100002"))
	assert.False(t, ValidABARoutingNumber("02100002a"))
}

func TestExtractPhoneNormalization(t *testing.T) {
	x := newTestExtractor()

	result := x.Extract(context.Background(), "Update my phone to 555-123-4567", "profile.update.contact", nil, nil)
	require.Contains(t, result.Entities, model.EntityPhone)
	assert.Equal(t, "(555) 123-4567", result.Entities[model.EntityPhone].Value)
}

func TestExtractEmailAndCard(t *testing.T) {
	x := newTestExtractor()

	result := x.Extract(context.Background(), "Send the statement to Jane.Doe@example.com", "profile.update.contact", nil, nil)
	require.Contains(t, result.Entities, model.EntityEmail)
	assert.Equal(t, "jane.doe@example.com", result.Entities[model.EntityEmail].Value)

	result = x.Extract(context.Background(), "Block my card ending in 4321", "cards.block", nil, nil)
	require.Contains(t, result.Entities, model.EntityCardID)
	assert.Equal(t, "4321", result.Entities[model.EntityCardID].Value)
}

func TestExtractDateFormats(t *testing.T) {
	x := newTestExtractor()

	cases := map[string]string{
		"Schedule it for 2025-03-01": "2025-03-01",
		"Schedule it for 3/1/2025":   "2025-03-01",
		"Schedule it for today":      "2025-01-15",
		"Schedule it for yesterday":  "2025-01-14",
	}
	for utterance, want := range cases {
		result := x.Extract(context.Background(), utterance, "payments.scheduled.create", nil, nil)
		require.Contains(t, result.Entities, model.EntityDate, "utterance %q", utterance)
		assert.Equal(t, want, result.Entities[model.EntityDate].Value, "utterance %q", utterance)
	}
}

func TestExtractAmountValidationBounds(t *testing.T) {
	x := newTestExtractor()

	result := x.Extract(context.Background(), "Send $0.00 to Alice Brown", "payments.p2p.send",
		[]model.EntityType{model.EntityAmount}, nil)
	assert.NotContains(t, result.Entities, model.EntityAmount)
	assert.Contains(t, result.ValidationErrors, model.EntityAmount)
	assert.Contains(t, result.MissingRequired, model.EntityAmount)
}

func TestExtractAllEmittedEntitiesPassValidation(t *testing.T) {
	x := newTestExtractor()

	utterances := []string{
		"Transfer $500 from checking to savings",
		"Send $25 to Mike Smith via Zelle",
		"Block my card ending in 9876",
		"Wire $2,000 to Jack White, routing number 021000021",
		"Pay my electric bill tomorrow",
	}
	for _, utterance := range utterances {
		result := x.Extract(context.Background(), utterance, "", nil, nil)
		for entityType, entity := range result.Entities {
			_, err := validateEntity(entityType, entity)
			assert.NoError(t, err, "utterance %q entity %s", utterance, entityType)
		}
	}
}

func TestExtractMissingRequiredProducesSuggestions(t *testing.T) {
	x := newTestExtractor()

	result := x.Extract(context.Background(), "I want to transfer money", "payments.transfer.internal",
		[]model.EntityType{model.EntityAmount, model.EntityFromAccount, model.EntityToAccount}, nil)

	assert.ElementsMatch(t, []model.EntityType{model.EntityAmount, model.EntityFromAccount, model.EntityToAccount}, result.MissingRequired)
	assert.True(t, result.FollowUpNeeded)
	assert.Len(t, result.Suggestions, 3)
}

func TestExtractSurvivesLLMFailure(t *testing.T) {
	x := NewExtractor(failingLLM{})

	result := x.Extract(context.Background(), "Send $50 to Alice Brown", "payments.p2p.send",
		[]model.EntityType{model.EntityAmount, model.EntityRecipient}, nil)

	amount, ok := result.Entities.AmountValue()
	require.True(t, ok)
	assert.Equal(t, 50.0, amount)
	// The recipient only comes from the language phase; it is reported
	// missing rather than failing the turn.
	assert.Contains(t, result.MissingRequired, model.EntityRecipient)
}
