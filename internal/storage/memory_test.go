package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySessionLifecycle(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.CreateSession(ctx, "sess-1", "{}"))
	// Re-creating is a no-op, matching ON CONFLICT DO NOTHING.
	require.NoError(t, m.CreateSession(ctx, "sess-1", `{"other":"metadata"}`))

	row, err := m.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "{}", row.Metadata)

	_, err = m.GetSession(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryHistoryNewestFirst(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, m.LogInteraction(ctx, &Interaction{
			SessionID: "sess-1",
			Query:     fmt.Sprintf("turn %d", i),
		}))
	}

	rows, err := m.GetSessionHistory(ctx, "sess-1", 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "turn 4", rows[0].Query)
	assert.Equal(t, "turn 2", rows[2].Query)
	assert.NotZero(t, rows[0].ID)
	assert.False(t, rows[0].Timestamp.IsZero())
}

func TestMemoryCleanupOldSessions(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.CreateSession(ctx, "old", "{}"))
	m.mu.Lock()
	m.sessions["old"].CreatedAt = time.Now().Add(-48 * time.Hour)
	m.mu.Unlock()
	require.NoError(t, m.CreateSession(ctx, "fresh", "{}"))

	removed, err := m.CleanupOldSessions(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = m.GetSession(ctx, "old")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.GetSession(ctx, "fresh")
	assert.NoError(t, err)
}
