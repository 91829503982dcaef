package eventlog

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-memory implementation of Store for testing
type MemoryStore struct {
	mu      sync.RWMutex
	records []*Record
	keys    map[string]bool // (run_id, player_id, event_ts) dedupe
}

// NewMemoryStore creates a new in-memory event log
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{keys: make(map[string]bool)}
}

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)

func recordKey(r *Record) string {
	return fmt.Sprintf("%s|%d|%d", r.RunID, r.PlayerID, r.EventTS.UnixNano())
}

// InsertBatch appends records, skipping duplicates of the primary key
func (m *MemoryStore) InsertBatch(ctx context.Context, records []*Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		k := recordKey(r)
		if m.keys[k] {
			continue
		}
		m.keys[k] = true
		m.records = append(m.records, r)
	}
	return nil
}

// Count returns the number of logged events for a run
func (m *MemoryStore) Count(ctx context.Context, runID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, r := range m.records {
		if r.RunID == runID {
			n++
		}
	}
	return n, nil
}

// All returns every stored record in insertion order. Test use only.
func (m *MemoryStore) All() []*Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Record, len(m.records))
	copy(out, m.records)
	return out
}
