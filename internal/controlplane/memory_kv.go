package controlplane

import (
	"context"
	"sync"
)

// MemoryKV is an in-memory implementation of KV for testing
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryKV creates a new in-memory key-value store
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

// Compile-time interface check
var _ KV = (*MemoryKV)(nil)

// Get returns the value at key, or "" if absent
func (m *MemoryKV) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data[key], nil
}

// Set writes the value at key
func (m *MemoryKV) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// GetDel atomically reads and deletes key
func (m *MemoryKV) GetDel(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.data[key]
	delete(m.data, key)
	return v, nil
}
