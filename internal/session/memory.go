package session

import (
	"context"
	"sync"
)

// MemoryBackend keeps entries in process memory. Used by tests and by
// --storage=memory.
type MemoryBackend struct {
	origin  string
	mu      sync.Mutex
	entries map[string]Entry
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend(origin string) *MemoryBackend {
	return &MemoryBackend{origin: origin, entries: make(map[string]Entry)}
}

func (m *MemoryBackend) Origin() string { return m.origin }

func (m *MemoryBackend) Get(_ context.Context, key string) (Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	return e, ok, nil
}

func (m *MemoryBackend) Set(_ context.Context, key string, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = e
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}
