package visitor

import (
	"context"
	"sort"
	"sync"
	"time"

	errors "github.com/frahmantamala/oneaccess/internal"
)

type MemoryRepository struct {
	mu          sync.Mutex
	passes      map[string]*Pass
	redemptions map[string]map[string]time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		passes:      make(map[string]*Pass),
		redemptions: make(map[string]map[string]time.Time),
	}
}

func clone(p *Pass) *Pass {
	cp := *p
	cp.GateIDs = append([]string(nil), p.GateIDs...)
	return &cp
}

func (m *MemoryRepository) Create(_ context.Context, p *Pass) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.passes[p.ID] = clone(p)
	return nil
}

func (m *MemoryRepository) GetByID(_ context.Context, id string) (*Pass, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.passes[id]
	if !ok {
		return nil, nil
	}
	return clone(p), nil
}

func (m *MemoryRepository) ListByCreator(_ context.Context, userID string) ([]*Pass, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Pass
	for _, p := range m.passes {
		if p.CreatedBy == userID {
			out = append(out, clone(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryRepository) Deactivate(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.passes[id]; ok {
		p.Revoke()
	}
	return nil
}

func (m *MemoryRepository) ConsumeUse(_ context.Context, passID, jti string, now time.Time) (*Consumption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.passes[passID]
	if !ok || !p.Active {
		return nil, errors.ErrPassNotFound
	}
	if _, seen := m.redemptions[passID][jti]; seen {
		return &Consumption{Pass: clone(p), Duplicate: true}, nil
	}
	if !p.IsValidAt(now) {
		return nil, errors.ErrPassExpired
	}
	if p.IsExhausted() {
		return nil, errors.ErrPassExhausted
	}

	p.UsedCount++
	if m.redemptions[passID] == nil {
		m.redemptions[passID] = make(map[string]time.Time)
	}
	m.redemptions[passID][jti] = now
	return &Consumption{Pass: clone(p)}, nil
}
