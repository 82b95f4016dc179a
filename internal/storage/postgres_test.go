package storage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresFromDB(db), mock
}

func TestPostgresCreateSession(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO sessions`).
		WithArgs("sess-1", "{}").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.CreateSession(context.Background(), "sess-1", "{}"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetSession(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, metadata, created_at FROM sessions`).
		WithArgs("sess-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "metadata", "created_at"}).
			AddRow("sess-1", "{}", created))

	row, err := store.GetSession(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", row.ID)
	assert.Equal(t, created, row.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetSessionNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT id, metadata, created_at FROM sessions`).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id", "metadata", "created_at"}))

	_, err := store.GetSession(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLogInteraction(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectExec(`INSERT INTO interactions`).
		WithArgs("sess-1", "What's my balance", "What's my balance", "accounts.balance.check",
			0.95, `{}`, "", "response", int64(42), "", now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.LogInteraction(context.Background(), &Interaction{
		SessionID:      "sess-1",
		Query:          "What's my balance",
		ResolvedQuery:  "What's my balance",
		IntentType:     "accounts.balance.check",
		Confidence:     0.95,
		EntitiesJSON:   `{}`,
		ActionTaken:    "response",
		ResponseTimeMs: 42,
		Timestamp:      now,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetSessionHistory(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	columns := []string{
		"id", "session_id", "query", "resolved_query", "intent_type", "confidence",
		"entities_json", "validation_json", "action_taken", "response_time_ms",
		"error_message", "timestamp",
	}
	mock.ExpectQuery(`SELECT (.+) FROM interactions WHERE session_id`).
		WithArgs("sess-1", 10).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(2, "sess-1", "Send $50 to Mike", "Send $50 to Mike", "payments.p2p.send", 0.88, "{}", "", "execution", 120, "", now).
			AddRow(1, "sess-1", "What's my balance", "What's my balance", "accounts.balance.check", 0.95, "{}", "", "response", 42, "", now.Add(-time.Minute)))

	rows, err := store.GetSessionHistory(context.Background(), "sess-1", 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "payments.p2p.send", rows[0].IntentType)
	assert.Equal(t, "accounts.balance.check", rows[1].IntentType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateAnalytics(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO analytics`).
		WithArgs("2025-01-15", "payments.p2p.send", 1, 0, 0.88, 120.0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.UpdateAnalytics(context.Background(), &AnalyticsUpdate{
		Date:           "2025-01-15",
		IntentType:     "payments.p2p.send",
		Success:        true,
		Confidence:     0.88,
		ResponseTimeMs: 120,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateAnalyticsFailureCounts(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO analytics`).
		WithArgs("2025-01-15", "payments.p2p.send", 0, 1, 0.4, 80.0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.UpdateAnalytics(context.Background(), &AnalyticsUpdate{
		Date:           "2025-01-15",
		IntentType:     "payments.p2p.send",
		Success:        false,
		Confidence:     0.4,
		ResponseTimeMs: 80,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCleanupOldSessions(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM sessions WHERE created_at`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := store.CleanupOldSessions(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
