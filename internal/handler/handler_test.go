package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aibanking/conversation-core/internal/banking"
	"github.com/aibanking/conversation-core/internal/cache"
	"github.com/aibanking/conversation-core/internal/llm"
	"github.com/aibanking/conversation-core/internal/model"
	"github.com/aibanking/conversation-core/internal/service"
	"github.com/aibanking/conversation-core/internal/storage"
)

func newTestHandler(t *testing.T, ratePerMinute int) *Handler {
	t.Helper()
	catalog, err := service.NewCatalog()
	require.NoError(t, err)

	client := llm.NewMockClient()
	kv := cache.NewMemory()
	store := storage.NewMemory()
	bank := banking.NewMock("EBP Bank", "US")
	recipients := service.NewRecipientResolution(bank, "EBP Bank", "US", bank.HomeCustomerID())

	pipeline := service.NewPipeline(service.PipelineDeps{
		Catalog:    catalog,
		Classifier: service.NewClassifier(catalog, client, kv, 300*time.Second),
		Extractor:  service.NewExtractor(client),
		Enricher:   service.NewEnricher(service.NewAccountResolution(bank), recipients),
		Recipients: recipients,
		Responder:  service.NewResponder(),
		State:      service.NewStateManager(kv, store, time.Hour),
		Operations: service.NewOperations(bank),
		Banking:    bank,
	})
	return New(pipeline, ratePerMinute)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "203.0.113.7:51234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	h := newTestHandler(t, 0)
	rec := doJSON(t, h.Router(), http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestProcessEndpoint(t *testing.T) {
	h := newTestHandler(t, 0)
	router := h.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/v1/process", map[string]string{
		"query": "What's my checking account balance?",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.TurnResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, model.StatusSuccess, resp.Status)
	assert.Equal(t, "accounts.balance.check", resp.Intent)
	assert.NotEmpty(t, resp.SessionID)
}

func TestProcessEndpointValidationError(t *testing.T) {
	h := newTestHandler(t, 0)
	router := h.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/v1/process", map[string]string{"query": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/process", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionLifecycleEndpoints(t *testing.T) {
	h := newTestHandler(t, 0)
	router := h.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	sessionID := created["session_id"]
	require.NotEmpty(t, sessionID)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/process", map[string]string{
		"query":      "What's my balance",
		"session_id": sessionID,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/sessions/"+sessionID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var summary service.SessionSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.InteractionCount)
	assert.Equal(t, "accounts.balance.check", summary.LastIntent)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/sessions/"+sessionID+"/history?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "What's my balance")
}

func TestSessionSummaryNotFound(t *testing.T) {
	h := newTestHandler(t, 0)
	rec := doJSON(t, h.Router(), http.MethodGet, "/api/v1/sessions/no-such-session", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClarificationEndpoints(t *testing.T) {
	h := newTestHandler(t, 0)
	router := h.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	sessionID := created["session_id"]

	rec = doJSON(t, router, http.MethodGet, "/api/v1/sessions/"+sessionID+"/clarification", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/process", map[string]string{
		"query":      "Send $500 to John",
		"session_id": sessionID,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/sessions/"+sessionID+"/clarification", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var pc model.PendingClarification
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pc))
	assert.Equal(t, "recipient", pc.Type)
	assert.NotEmpty(t, pc.Options)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/sessions/"+sessionID+"/clarification", map[string]string{
		"response": "the first one",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp model.TurnResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, model.StatusConfirmationNeeded, resp.Status)
}

func TestApprovalEndpoints(t *testing.T) {
	h := newTestHandler(t, 0)
	router := h.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	sessionID := created["session_id"]

	rec = doJSON(t, router, http.MethodGet, "/api/v1/sessions/"+sessionID+"/approval", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/process", map[string]string{
		"query":      "Send $50 to Mike Smith",
		"session_id": sessionID,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/sessions/"+sessionID+"/approval", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var pa model.PendingApproval
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pa))
	assert.Equal(t, model.ApprovalBiometric, pa.ApprovalMethod)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/sessions/"+sessionID+"/approval", map[string]any{
		"approve": true,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp model.TurnResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, model.StatusSuccess, resp.Status)
	require.NotNil(t, resp.Execution)
}

func TestApprovalDeclineCancels(t *testing.T) {
	h := newTestHandler(t, 0)
	router := h.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/v1/process", map[string]string{
		"query": "Send $50 to Mike Smith",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var first model.TurnResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	require.Equal(t, model.StatusConfirmationNeeded, first.Status)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/sessions/"+first.SessionID+"/approval", map[string]any{
		"approve": false,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp model.TurnResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, model.StatusCancelled, resp.Status)
}

func TestRateLimiterMiddleware(t *testing.T) {
	h := newTestHandler(t, 2)
	router := h.Router()

	for i := 0; i < 2; i++ {
		rec := doJSON(t, router, http.MethodGet, "/healthz", nil)
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}
	rec := doJSON(t, router, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRateLimiterWindowReset(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	now := time.Now()
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("client"))
	assert.False(t, rl.Allow("client"))

	rl.now = func() time.Time { return now.Add(61 * time.Second) }
	assert.True(t, rl.Allow("client"))
}

func TestRateLimiterIsPerClient(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)

	for i := 0; i < 5; i++ {
		assert.True(t, rl.Allow(fmt.Sprintf("client-%d", i)))
	}
	assert.False(t, rl.Allow("client-0"))
}
