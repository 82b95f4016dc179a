package cache

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Cache used when redis_url is "mock" and in tests.
type Memory struct {
	mu     sync.RWMutex
	values map[string]memoryEntry
	hashes map[string]map[string]string
	now    func() time.Time
}

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{
		values: make(map[string]memoryEntry),
		hashes: make(map[string]map[string]string),
		now:    time.Now,
	}
}

// SetClock overrides the clock; tests use it to force expiry.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	if !entry.expiresAt.IsZero() && m.now().After(entry.expiresAt) {
		delete(m.values, key)
		return "", ErrNotFound
	}
	return entry.value, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = memoryEntry{value: value}
	return nil
}

func (m *Memory) SetEx(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = memoryEntry{value: value, expiresAt: m.now().Add(ttl)}
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	delete(m.hashes, key)
	return nil
}

func (m *Memory) Exists(ctx context.Context, key string) (bool, error) {
	_, err := m.Get(ctx, key)
	if err == ErrNotFound {
		m.mu.RLock()
		_, ok := m.hashes[key]
		m.mu.RUnlock()
		return ok, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (m *Memory) HGet(_ context.Context, key, field string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	hash, ok := m.hashes[key]
	if !ok {
		return "", ErrNotFound
	}
	value, ok := hash[field]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (m *Memory) HSet(_ context.Context, key, field, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	hash, ok := m.hashes[key]
	if !ok {
		hash = make(map[string]string)
		m.hashes[key] = hash
	}
	hash[field] = value
	return nil
}

func (m *Memory) Expire(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry, ok := m.values[key]; ok {
		entry.expiresAt = m.now().Add(ttl)
		m.values[key] = entry
	}
	return nil
}
