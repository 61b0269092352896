package audit

import (
	"context"
	"sync"
)

type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Append(_ context.Context, e *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *e)
	return nil
}

func (m *MemoryStore) List(_ context.Context, limit int) ([]*Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := len(m.events)
	if limit > n {
		limit = n
	}
	out := make([]*Event, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		e := m.events[i]
		out = append(out, &e)
	}
	return out, nil
}
