package features

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of Store for testing
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[int64]memoryEntry
	now     func() time.Time // swappable clock for expiry tests
}

type memoryEntry struct {
	state     PlayerState
	expiresAt time.Time
}

// NewMemoryStore creates a new in-memory feature store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[int64]memoryEntry),
		now:     time.Now,
	}
}

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)

// Get returns the player's state, or nil if absent or expired
func (m *MemoryStore) Get(ctx context.Context, playerID int64) (*PlayerState, error) {
	m.mu.RLock()
	entry, ok := m.entries[playerID]
	m.mu.RUnlock()

	if !ok || m.now().After(entry.expiresAt) {
		return nil, nil
	}
	cp := entry.state
	return &cp, nil
}

// Put upserts the state with a refreshed expiry
func (m *MemoryStore) Put(ctx context.Context, state *PlayerState, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[state.PlayerID] = memoryEntry{
		state:     *state,
		expiresAt: m.now().Add(ttl),
	}
	return nil
}

// SetClock replaces the store's clock. Test use only.
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}
