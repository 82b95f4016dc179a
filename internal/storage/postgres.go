package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id         TEXT PRIMARY KEY,
    metadata   TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS interactions (
    id               BIGSERIAL PRIMARY KEY,
    session_id       TEXT NOT NULL,
    query            TEXT NOT NULL,
    resolved_query   TEXT NOT NULL DEFAULT '',
    intent_type      TEXT NOT NULL DEFAULT '',
    confidence       DOUBLE PRECISION NOT NULL DEFAULT 0,
    entities_json    TEXT NOT NULL DEFAULT '',
    validation_json  TEXT NOT NULL DEFAULT '',
    action_taken     TEXT NOT NULL DEFAULT '',
    response_time_ms BIGINT NOT NULL DEFAULT 0,
    error_message    TEXT NOT NULL DEFAULT '',
    timestamp        TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS analytics (
    date                 DATE NOT NULL,
    intent_type          TEXT NOT NULL,
    success_count        BIGINT NOT NULL DEFAULT 0,
    failure_count        BIGINT NOT NULL DEFAULT 0,
    avg_confidence       DOUBLE PRECISION NOT NULL DEFAULT 0,
    avg_response_time_ms DOUBLE PRECISION NOT NULL DEFAULT 0,
    PRIMARY KEY (date, intent_type)
);
`

// Postgres implements Store on PostgreSQL via sqlx.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres opens the database and ensures the schema exists.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Postgres{db: db}, nil
}

// NewPostgresFromDB wraps an existing connection; tests use it with sqlmock.
func NewPostgresFromDB(db *sql.DB) *Postgres {
	return &Postgres{db: sqlx.NewDb(db, "postgres")}
}

func (p *Postgres) CreateSession(ctx context.Context, id, metadata string) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO sessions (id, metadata) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
		id, metadata)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (p *Postgres) GetSession(ctx context.Context, id string) (*SessionRow, error) {
	var row SessionRow
	err := p.db.GetContext(ctx, &row,
		`SELECT id, metadata, created_at FROM sessions WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &row, nil
}

func (p *Postgres) LogInteraction(ctx context.Context, in *Interaction) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO interactions
		 (session_id, query, resolved_query, intent_type, confidence,
		  entities_json, validation_json, action_taken, response_time_ms, error_message, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		in.SessionID, in.Query, in.ResolvedQuery, in.IntentType, in.Confidence,
		in.EntitiesJSON, in.ValidationJSON, in.ActionTaken, in.ResponseTimeMs,
		in.ErrorMessage, in.Timestamp)
	if err != nil {
		return fmt.Errorf("log interaction: %w", err)
	}
	return nil
}

func (p *Postgres) GetSessionHistory(ctx context.Context, sessionID string, limit int) ([]Interaction, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []Interaction
	err := p.db.SelectContext(ctx, &rows,
		`SELECT id, session_id, query, resolved_query, intent_type, confidence,
		        entities_json, validation_json, action_taken, response_time_ms,
		        error_message, timestamp
		 FROM interactions WHERE session_id = $1
		 ORDER BY timestamp DESC LIMIT $2`,
		sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("get session history: %w", err)
	}
	return rows, nil
}

func (p *Postgres) UpdateAnalytics(ctx context.Context, up *AnalyticsUpdate) error {
	success, failure := 0, 1
	if up.Success {
		success, failure = 1, 0
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO analytics (date, intent_type, success_count, failure_count, avg_confidence, avg_response_time_ms)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (date, intent_type) DO UPDATE SET
		   success_count = analytics.success_count + EXCLUDED.success_count,
		   failure_count = analytics.failure_count + EXCLUDED.failure_count,
		   avg_confidence = (analytics.avg_confidence + EXCLUDED.avg_confidence) / 2,
		   avg_response_time_ms = (analytics.avg_response_time_ms + EXCLUDED.avg_response_time_ms) / 2`,
		up.Date, up.IntentType, success, failure, up.Confidence, float64(up.ResponseTimeMs))
	if err != nil {
		return fmt.Errorf("update analytics: %w", err)
	}
	return nil
}

func (p *Postgres) CleanupOldSessions(ctx context.Context, olderThan time.Duration) (int64, error) {
	res, err := p.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE created_at < $1`, time.Now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("cleanup sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
