package decisions

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory implementation of Store for testing
type MemoryStore struct {
	mu        sync.RWMutex
	decisions []*Decision
}

// NewMemoryStore creates a new in-memory decision log
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)

// InsertBatch appends decisions
func (m *MemoryStore) InsertBatch(ctx context.Context, ds []*Decision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions = append(m.decisions, ds...)
	return nil
}

// ListRecent returns up to limit decisions, newest first, with id as a
// stable tiebreaker within a scoring cycle (same order as the SQL store).
func (m *MemoryStore) ListRecent(ctx context.Context, limit int) ([]*Decision, error) {
	m.mu.RLock()
	sorted := make([]*Decision, len(m.decisions))
	copy(sorted, m.decisions)
	m.mu.RUnlock()

	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].FeatureTimestamp.Equal(sorted[j].FeatureTimestamp) {
			return sorted[i].FeatureTimestamp.After(sorted[j].FeatureTimestamp)
		}
		return sorted[i].ID < sorted[j].ID
	})
	if limit < len(sorted) {
		sorted = sorted[:limit]
	}
	return sorted, nil
}
