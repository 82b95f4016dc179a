package storage

import (
	"context"
	"sync"
	"time"
)

// Memory is the in-process Store used when database_url is "mock" and in
// tests.
type Memory struct {
	mu           sync.RWMutex
	sessions     map[string]*SessionRow
	interactions map[string][]Interaction
	analytics    map[string]*analyticsRow
	nextID       int64
}

type analyticsRow struct {
	successCount int64
	failureCount int64
	avgConf      float64
	avgTimeMs    float64
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		sessions:     make(map[string]*SessionRow),
		interactions: make(map[string][]Interaction),
		analytics:    make(map[string]*analyticsRow),
	}
}

func (m *Memory) CreateSession(_ context.Context, id, metadata string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; ok {
		return nil
	}
	m.sessions[id] = &SessionRow{ID: id, Metadata: metadata, CreatedAt: time.Now()}
	return nil
}

func (m *Memory) GetSession(_ context.Context, id string) (*SessionRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *row
	return &copied, nil
}

func (m *Memory) LogInteraction(_ context.Context, in *Interaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	stored := *in
	stored.ID = m.nextID
	if stored.Timestamp.IsZero() {
		stored.Timestamp = time.Now()
	}
	m.interactions[in.SessionID] = append(m.interactions[in.SessionID], stored)
	return nil
}

func (m *Memory) GetSessionHistory(_ context.Context, sessionID string, limit int) ([]Interaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.interactions[sessionID]
	if limit <= 0 || limit > len(all) {
		limit = len(all)
	}
	// Newest first, matching the SQL implementation.
	out := make([]Interaction, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (m *Memory) UpdateAnalytics(_ context.Context, up *AnalyticsUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := up.Date + "|" + up.IntentType
	row, ok := m.analytics[key]
	if !ok {
		row = &analyticsRow{}
		m.analytics[key] = row
	}
	if up.Success {
		row.successCount++
	} else {
		row.failureCount++
	}
	row.avgConf = (row.avgConf + up.Confidence) / 2
	row.avgTimeMs = (row.avgTimeMs + float64(up.ResponseTimeMs)) / 2
	return nil
}

func (m *Memory) CleanupOldSessions(_ context.Context, olderThan time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().Add(-olderThan)
	var removed int64
	for id, row := range m.sessions {
		if row.CreatedAt.Before(cutoff) {
			delete(m.sessions, id)
			delete(m.interactions, id)
			removed++
		}
	}
	return removed, nil
}
