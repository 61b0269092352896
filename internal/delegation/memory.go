package delegation

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository indexes delegations by delegatee so the decision path
// only scans the caller's own grants.
type MemoryRepository struct {
	mu          sync.RWMutex
	byID        map[string]*Delegation
	byDelegatee map[string][]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:        make(map[string]*Delegation),
		byDelegatee: make(map[string][]string),
	}
}

func clone(d *Delegation) *Delegation {
	cp := *d
	cp.GateIDs = append([]string(nil), d.GateIDs...)
	return &cp
}

func (m *MemoryRepository) Create(_ context.Context, d *Delegation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[d.ID] = clone(d)
	m.byDelegatee[d.DelegateeID] = append(m.byDelegatee[d.DelegateeID], d.ID)
	return nil
}

func (m *MemoryRepository) GetByID(_ context.Context, id string) (*Delegation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	return clone(d), nil
}

func (m *MemoryRepository) ActiveForDelegatee(_ context.Context, userID string, now time.Time) ([]*Delegation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Delegation
	for _, id := range m.byDelegatee[userID] {
		if d := m.byID[id]; d.IsValidAt(now) {
			out = append(out, clone(d))
		}
	}
	return out, nil
}

func (m *MemoryRepository) ListByDelegator(_ context.Context, userID string) ([]*Delegation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Delegation
	for _, d := range m.byID {
		if d.DelegatorID == userID {
			out = append(out, clone(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryRepository) Deactivate(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.byID[id]; ok {
		d.Revoke()
	}
	return nil
}
