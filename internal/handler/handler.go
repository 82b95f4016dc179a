// Package handler is the HTTP boundary over the conversation pipeline.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/aibanking/conversation-core/internal/model"
	"github.com/aibanking/conversation-core/internal/service"
)

// Handler exposes the pipeline and session lifecycle over HTTP.
type Handler struct {
	pipeline *service.Pipeline
	limiter  *RateLimiter
}

// New builds the handler.
func New(pipeline *service.Pipeline, ratePerMinute int) *Handler {
	return &Handler{
		pipeline: pipeline,
		limiter:  NewRateLimiter(ratePerMinute, time.Minute),
	}
}

// Router wires all routes.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(h.limiter.Middleware)

	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/process", h.process).Methods(http.MethodPost)
	api.HandleFunc("/sessions", h.createSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}", h.sessionSummary).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/history", h.sessionHistory).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/clarification", h.getClarification).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/clarification", h.resolveClarification).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/approval", h.getApproval).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/approval", h.verifyApproval).Methods(http.MethodPost)
	return r
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) process(w http.ResponseWriter, r *http.Request) {
	var req model.ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp := h.pipeline.Process(r.Context(), &req)
	writeJSON(w, statusCode(resp), resp)
}

// statusCode maps a core response status to an HTTP status.
func statusCode(resp *model.TurnResponse) int {
	if resp.Status != model.StatusError {
		return http.StatusOK
	}
	switch resp.ErrorKind {
	case model.ErrKindValidation:
		return http.StatusBadRequest
	case model.ErrKindNotFound:
		return http.StatusNotFound
	case model.ErrKindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	id, err := h.pipeline.State().CreateSession(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Session creation failed")
		writeError(w, http.StatusInternalServerError, "could not create session")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": id})
}

func (h *Handler) sessionSummary(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	summary, err := h.pipeline.State().GetSummary(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) sessionHistory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	limit := model.HistoryLimit
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 {
			limit = n
		}
	}
	history := h.pipeline.State().History(r.Context(), id, limit)
	writeJSON(w, http.StatusOK, map[string]any{"session_id": id, "history": history})
}

func (h *Handler) getClarification(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sc := h.pipeline.State().GetContext(r.Context(), id)
	if sc.PendingClarification == nil {
		writeError(w, http.StatusNotFound, "no pending clarification")
		return
	}
	writeJSON(w, http.StatusOK, sc.PendingClarification)
}

func (h *Handler) resolveClarification(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var body struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	resp := h.pipeline.Process(r.Context(), &model.ProcessRequest{
		Query:     body.Response,
		SessionID: id,
	})
	writeJSON(w, statusCode(resp), resp)
}

func (h *Handler) getApproval(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sc := h.pipeline.State().GetContext(r.Context(), id)
	pa := h.pipeline.State().GetPendingApproval(r.Context(), sc)
	if pa == nil {
		writeError(w, http.StatusNotFound, "no pending approval")
		return
	}
	writeJSON(w, http.StatusOK, pa)
}

func (h *Handler) verifyApproval(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var body struct {
		Approve          bool                    `json:"approve"`
		VerificationData *model.VerificationData `json:"verification_data,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	query := "yes"
	if !body.Approve {
		query = "no"
	}
	resp := h.pipeline.Process(r.Context(), &model.ProcessRequest{
		Query:            query,
		SessionID:        id,
		VerificationData: body.VerificationData,
	})
	writeJSON(w, statusCode(resp), resp)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Warn().Err(err).Msg("Response encoding failed")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
