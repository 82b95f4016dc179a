// Package storage persists sessions, interaction logs, and daily analytics.
// Writes are fire-and-forget from the pipeline's point of view; reads only
// happen on session hydration.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = errors.New("storage: not found")

// SessionRow is a persisted session.
type SessionRow struct {
	ID        string    `db:"id" json:"id"`
	Metadata  string    `db:"metadata" json:"metadata"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Interaction is one logged turn.
type Interaction struct {
	ID             int64     `db:"id" json:"id"`
	SessionID      string    `db:"session_id" json:"session_id"`
	Query          string    `db:"query" json:"query"`
	ResolvedQuery  string    `db:"resolved_query" json:"resolved_query"`
	IntentType     string    `db:"intent_type" json:"intent_type"`
	Confidence     float64   `db:"confidence" json:"confidence"`
	EntitiesJSON   string    `db:"entities_json" json:"entities_json"`
	ValidationJSON string    `db:"validation_json" json:"validation_json"`
	ActionTaken    string    `db:"action_taken" json:"action_taken"`
	ResponseTimeMs int64     `db:"response_time_ms" json:"response_time_ms"`
	ErrorMessage   string    `db:"error_message" json:"error_message"`
	Timestamp      time.Time `db:"timestamp" json:"timestamp"`
}

// AnalyticsUpdate is one turn's contribution to the per-day, per-intent
// aggregates.
type AnalyticsUpdate struct {
	Date           string
	IntentType     string
	Success        bool
	Confidence     float64
	ResponseTimeMs int64
}

// Store is the persistence contract.
type Store interface {
	CreateSession(ctx context.Context, id, metadata string) error
	GetSession(ctx context.Context, id string) (*SessionRow, error)
	LogInteraction(ctx context.Context, in *Interaction) error
	GetSessionHistory(ctx context.Context, sessionID string, limit int) ([]Interaction, error)
	UpdateAnalytics(ctx context.Context, up *AnalyticsUpdate) error
	CleanupOldSessions(ctx context.Context, olderThan time.Duration) (int64, error)
}
