package store

import (
	"context"
	"sync"

	"github.com/serroba/templink/internal/link"
)

// MemoryStore is an in-memory implementation of link.Store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]link.Record
}

// NewMemoryStore creates a new in-memory link store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]link.Record),
	}
}

// InsertIfAbsent inserts the record unless the identifier is already taken.
// The mutex makes check-and-insert atomic with respect to concurrent calls.
func (m *MemoryStore) InsertIfAbsent(_ context.Context, id string, rec link.Record) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[id]; exists {
		return false, nil
	}

	m.records[id] = rec

	return true, nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (link.Record, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]

	return rec, ok, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[id]; !ok {
		return false, nil
	}

	delete(m.records, id)

	return true, nil
}

// Len reports the number of stored entries, live or expired.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.records)
}

func (m *MemoryStore) Close() error {
	return nil
}
