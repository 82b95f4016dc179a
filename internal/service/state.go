package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/aibanking/conversation-core/internal/cache"
	"github.com/aibanking/conversation-core/internal/model"
	"github.com/aibanking/conversation-core/internal/storage"
)

// DefaultSessionTTL is the cache lifetime of a session context.
const DefaultSessionTTL = 3600 * time.Second

// Approval lifecycle errors.
var (
	ErrNoPendingApproval   = errors.New("state: no pending approval")
	ErrApprovalExpired     = errors.New("state: approval expired")
	ErrApprovalMaxAttempts = errors.New("state: approval attempts exhausted")
	ErrSessionNotFound     = errors.New("state: session not found")
)

// TurnOutcome is what a finished turn contributes back to session state.
type TurnOutcome struct {
	Intent         string
	Confidence     float64
	Entities       model.Entities
	ActionTaken    string
	Success        bool
	ResponseTimeMs int64
	ErrorMessage   string
}

// SessionSummary is the compact external view of a session.
type SessionSummary struct {
	SessionID                string   `json:"session_id"`
	InteractionCount         int      `json:"interaction_count"`
	LastIntent               string   `json:"last_intent,omitempty"`
	HasPendingClarification  bool     `json:"has_pending_clarification"`
	HasPendingApproval       bool     `json:"has_pending_approval"`
	RecentIntents            []string `json:"recent_intents,omitempty"`
}

// StateManager owns every read and write of SessionContext. The cache is
// authoritative within a session; the database is hydration and audit only.
type StateManager struct {
	cache cache.Cache
	store storage.Store
	ttl   time.Duration
	now   func() time.Time
}

// NewStateManager wires the state manager.
func NewStateManager(c cache.Cache, store storage.Store, ttl time.Duration) *StateManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &StateManager{cache: c, store: store, ttl: ttl, now: time.Now}
}

// SetClock overrides the clock used for approval expiry. Test hook.
func (s *StateManager) SetClock(now func() time.Time) { s.now = now }

func sessionKey(id string) string { return "session:" + id }

// CreateSession mints a new session id and persists the empty context.
func (s *StateManager) CreateSession(ctx context.Context) (string, error) {
	id := uuid.New().String()
	if err := s.store.CreateSession(ctx, id, "{}"); err != nil {
		log.Warn().Err(err).Msg("Session row creation failed")
	}
	sc := &model.SessionContext{SessionID: id, CreatedAt: s.now()}
	if err := s.Save(ctx, sc); err != nil {
		return "", err
	}
	return id, nil
}

// GetContext loads the session context from cache, hydrating history from
// the database on a cache miss.
func (s *StateManager) GetContext(ctx context.Context, sessionID string) *model.SessionContext {
	raw, err := s.cache.Get(ctx, sessionKey(sessionID))
	if err == nil {
		var sc model.SessionContext
		if json.Unmarshal([]byte(raw), &sc) == nil {
			return &sc
		}
	}

	sc := &model.SessionContext{SessionID: sessionID, CreatedAt: s.now()}
	if rows, err := s.store.GetSessionHistory(ctx, sessionID, model.HistoryLimit); err == nil {
		// Rows arrive newest first; history is stored oldest first.
		for i := len(rows) - 1; i >= 0; i-- {
			sc.History = append(sc.History, model.TurnRecord{
				Timestamp:  rows[i].Timestamp,
				Original:   rows[i].Query,
				Resolved:   rows[i].ResolvedQuery,
				Intent:     rows[i].IntentType,
				Confidence: rows[i].Confidence,
			})
		}
		if len(sc.History) > 0 {
			sc.LastIntent = sc.History[len(sc.History)-1].Intent
		}
	}
	if err := s.Save(ctx, sc); err != nil {
		log.Warn().Err(err).Str("session", sessionID).Msg("Session cache write failed")
	}
	return sc
}

// Save persists the context to the cache with the session TTL.
func (s *StateManager) Save(ctx context.Context, sc *model.SessionContext) error {
	payload, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("marshal session context: %w", err)
	}
	return s.cache.SetEx(ctx, sessionKey(sc.SessionID), string(payload), s.ttl)
}

var (
	recipientRefRe = regexp.MustCompile(`(?i)\b(him|her|them|same person|that person)\b`)
	anotherAmtRe   = regexp.MustCompile(`(?i)\banother\s+\$`)
	amountRefRe    = regexp.MustCompile(`(?i)\b(same amount|that much)\b`)
	accountRefRe   = regexp.MustCompile(`(?i)\b(?:(?:from|to|into)\s+there|same account|that account)\b`)
	optionIndexRe  = regexp.MustCompile(`(?:^|option\s+|number\s+)([0-9]+)\b`)
)

// ResolveReferences substitutes anaphora from session context. Each rule
// only applies when its slot is populated, so an empty context is a no-op.
func (s *StateManager) ResolveReferences(utterance string, sc *model.SessionContext) string {
	if sc == nil {
		return utterance
	}
	resolved := utterance

	if sc.LastRecipient != "" {
		resolved = recipientRefRe.ReplaceAllString(resolved, sc.LastRecipient)
	}
	// "another $50" refers back to a prior transfer; the amount is literal.
	if sc.LastIntent != "" || sc.LastRecipient != "" {
		resolved = anotherAmtRe.ReplaceAllString(resolved, "$$")
	}
	if sc.LastAmount > 0 {
		resolved = amountRefRe.ReplaceAllLiteralString(resolved, "$"+strconv.FormatFloat(sc.LastAmount, 'f', -1, 64))
	}
	if sc.LastAccount != "" {
		resolved = accountRefRe.ReplaceAllStringFunc(resolved, func(m string) string {
			lower := strings.ToLower(m)
			switch {
			case strings.HasPrefix(lower, "from"):
				return "from " + sc.LastAccount
			case strings.HasPrefix(lower, "to"), strings.HasPrefix(lower, "into"):
				return "to " + sc.LastAccount
			default:
				return "my " + sc.LastAccount + " account"
			}
		})
	}

	if resolved != utterance {
		log.Debug().Str("original", utterance).Str("resolved", resolved).Msg("References resolved")
	}
	return resolved
}

// Update records a finished turn: refreshes the last-* slots, appends
// bounded history, saves the cache, and logs to the database asynchronously.
func (s *StateManager) Update(ctx context.Context, sc *model.SessionContext, original, resolved string, outcome *TurnOutcome) {
	if recipient, ok := outcome.Entities[model.EntityRecipient]; ok {
		sc.LastRecipient = recipient.Text()
		if recipient.Enriched != nil {
			sc.LastRecipient = recipient.Enriched.Name
			sc.LastRecipientID = recipient.Enriched.ID
		}
	}
	if amount, ok := outcome.Entities.AmountValue(); ok {
		sc.LastAmount = amount
	}
	for _, key := range []model.EntityType{model.EntityFromAccount, model.EntityAccountType, model.EntityToAccount} {
		if account, ok := outcome.Entities[key]; ok {
			sc.LastAccount = account.Text()
			if account.Enriched != nil {
				sc.LastAccountID = account.Enriched.ID
			}
			break
		}
	}
	if outcome.Intent != "" && outcome.Intent != model.IntentUnknown {
		sc.LastIntent = outcome.Intent
	}

	sc.History = append(sc.History, model.TurnRecord{
		Timestamp:  s.now(),
		Original:   original,
		Resolved:   resolved,
		Intent:     outcome.Intent,
		Confidence: outcome.Confidence,
		Entities:   outcome.Entities,
	})
	if len(sc.History) > model.HistoryLimit {
		sc.History = sc.History[len(sc.History)-model.HistoryLimit:]
	}

	if err := s.Save(ctx, sc); err != nil {
		log.Warn().Err(err).Str("session", sc.SessionID).Msg("Session cache write failed")
	}

	s.logAsync(sc.SessionID, original, resolved, outcome)
}

// logAsync writes the interaction and analytics rows fire-and-forget.
func (s *StateManager) logAsync(sessionID, original, resolved string, outcome *TurnOutcome) {
	entitiesJSON, _ := json.Marshal(outcome.Entities)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.store.LogInteraction(ctx, &storage.Interaction{
			SessionID:      sessionID,
			Query:          original,
			ResolvedQuery:  resolved,
			IntentType:     outcome.Intent,
			Confidence:     outcome.Confidence,
			EntitiesJSON:   string(entitiesJSON),
			ActionTaken:    outcome.ActionTaken,
			ResponseTimeMs: outcome.ResponseTimeMs,
			ErrorMessage:   outcome.ErrorMessage,
			Timestamp:      s.now(),
		}); err != nil {
			log.Warn().Err(err).Msg("Interaction log failed")
		}
		if err := s.store.UpdateAnalytics(ctx, &storage.AnalyticsUpdate{
			Date:           s.now().Format("2006-01-02"),
			IntentType:     outcome.Intent,
			Success:        outcome.Success,
			Confidence:     outcome.Confidence,
			ResponseTimeMs: outcome.ResponseTimeMs,
		}); err != nil {
			log.Warn().Err(err).Msg("Analytics update failed")
		}
	}()
}

// SetPendingClarification suspends the turn awaiting information. Setting a
// clarification clears any pending approval.
func (s *StateManager) SetPendingClarification(ctx context.Context, sc *model.SessionContext, pc *model.PendingClarification) error {
	pc.CreatedAt = s.now()
	pc.AwaitingResponse = true
	sc.PendingClarification = pc
	sc.PendingApproval = nil
	return s.Save(ctx, sc)
}

// ClearPendingClarification drops the clarification slot.
func (s *StateManager) ClearPendingClarification(ctx context.Context, sc *model.SessionContext) error {
	sc.PendingClarification = nil
	return s.Save(ctx, sc)
}

// SetPendingApproval suspends the turn awaiting confirmation. Setting an
// approval clears any pending clarification.
func (s *StateManager) SetPendingApproval(ctx context.Context, sc *model.SessionContext, pa *model.PendingApproval) error {
	pa.CreatedAt = s.now()
	if pa.MaxAttempts == 0 {
		pa.MaxAttempts = 3
	}
	sc.PendingApproval = pa
	sc.PendingClarification = nil
	return s.Save(ctx, sc)
}

// GetPendingApproval returns the live approval, clearing an expired one as a
// side effect.
func (s *StateManager) GetPendingApproval(ctx context.Context, sc *model.SessionContext) *model.PendingApproval {
	pa := sc.PendingApproval
	if pa == nil {
		return nil
	}
	if pa.Expired(s.now()) {
		sc.PendingApproval = nil
		if err := s.Save(ctx, sc); err != nil {
			log.Warn().Err(err).Msg("Session cache write failed")
		}
		return nil
	}
	return pa
}

// ClearPendingApproval drops the approval slot.
func (s *StateManager) ClearPendingApproval(ctx context.Context, sc *model.SessionContext) error {
	sc.PendingApproval = nil
	return s.Save(ctx, sc)
}

// RecordApprovalAttempt increments the attempt counter. It returns
// ErrApprovalMaxAttempts and clears the slot once MaxAttempts is spent;
// the current attempt is the last one allowed to be evaluated.
func (s *StateManager) RecordApprovalAttempt(ctx context.Context, sc *model.SessionContext) error {
	pa := s.GetPendingApproval(ctx, sc)
	if pa == nil {
		return ErrNoPendingApproval
	}
	pa.Attempts++
	if pa.Attempts > pa.MaxAttempts {
		sc.PendingApproval = nil
		if err := s.Save(ctx, sc); err != nil {
			return err
		}
		return ErrApprovalMaxAttempts
	}
	return s.Save(ctx, sc)
}

// MatchClarificationOption maps a user's free-form answer to one of the
// offered options: a numeric index, "option N", an ordinal word, or an exact
// or substring name match. Ambiguity returns no match.
func MatchClarificationOption(options []model.ClarificationOption, response string) (*model.ClarificationOption, bool) {
	if len(options) == 0 {
		return nil, false
	}
	answer := strings.ToLower(strings.TrimSpace(response))
	answer = strings.TrimSuffix(answer, ".")

	pick := func(i int) (*model.ClarificationOption, bool) {
		if i < 0 || i >= len(options) {
			return nil, false
		}
		opt := options[i]
		return &opt, true
	}

	if m := optionIndexRe.FindStringSubmatch(answer); m != nil {
		n, _ := strconv.Atoi(m[1])
		return pick(n - 1)
	}

	ordinals := map[string]int{"first": 0, "second": 1, "third": 2, "fourth": 3, "fifth": 4, "last": len(options) - 1}
	for word, idx := range ordinals {
		if strings.Contains(answer, word) {
			return pick(idx)
		}
	}

	var matched []int
	for i, opt := range options {
		label := strings.ToLower(opt.Label)
		if label == answer {
			return pick(i)
		}
		if strings.Contains(label, answer) || strings.Contains(answer, label) {
			matched = append(matched, i)
		}
	}
	if len(matched) == 1 {
		return pick(matched[0])
	}
	return nil, false
}

// GetSummary builds the compact session view.
func (s *StateManager) GetSummary(ctx context.Context, sessionID string) (*SessionSummary, error) {
	exists, err := s.cache.Exists(ctx, sessionKey(sessionID))
	if err == nil && !exists {
		if _, dbErr := s.store.GetSession(ctx, sessionID); dbErr != nil {
			return nil, ErrSessionNotFound
		}
	}
	sc := s.GetContext(ctx, sessionID)
	summary := &SessionSummary{
		SessionID:               sessionID,
		InteractionCount:        len(sc.History),
		LastIntent:              sc.LastIntent,
		HasPendingClarification: sc.PendingClarification != nil,
		HasPendingApproval:      s.GetPendingApproval(ctx, sc) != nil,
	}
	for i := len(sc.History) - 1; i >= 0 && len(summary.RecentIntents) < 5; i-- {
		if intent := sc.History[i].Intent; intent != "" {
			summary.RecentIntents = append(summary.RecentIntents, intent)
		}
	}
	return summary, nil
}

// History returns the most recent turns, newest first.
func (s *StateManager) History(ctx context.Context, sessionID string, limit int) []model.TurnRecord {
	sc := s.GetContext(ctx, sessionID)
	if limit <= 0 || limit > len(sc.History) {
		limit = len(sc.History)
	}
	out := make([]model.TurnRecord, 0, limit)
	for i := len(sc.History) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, sc.History[i])
	}
	return out
}
