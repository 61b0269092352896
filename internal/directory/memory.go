package directory

import (
	"context"
	"sort"
	"sync"
	"time"
)

type MemoryRepository struct {
	mu      sync.RWMutex
	users   map[string]*User
	byEmail map[string]string
	gates   map[string]*Gate
	revoked map[string]time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:   make(map[string]*User),
		byEmail: make(map[string]string),
		gates:   make(map[string]*Gate),
		revoked: make(map[string]time.Time),
	}
}

func (m *MemoryRepository) UserByID(_ context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryRepository) UserByEmail(_ context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, nil
	}
	cp := *m.users[id]
	return &cp, nil
}

func (m *MemoryRepository) SaveUser(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.users[u.ID]; ok {
		delete(m.byEmail, NormalizeEmail(prev.Email))
	}
	cp := *u
	cp.Email = NormalizeEmail(u.Email)
	m.users[u.ID] = &cp
	m.byEmail[cp.Email] = u.ID
	return nil
}

func (m *MemoryRepository) Gate(_ context.Context, id string) (*Gate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.gates[id]
	if !ok {
		return nil, nil
	}
	cp := *g
	return &cp, nil
}

func (m *MemoryRepository) Gates(_ context.Context) ([]*Gate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Gate, 0, len(m.gates))
	for _, g := range m.gates {
		cp := *g
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryRepository) SaveGate(_ context.Context, g *Gate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *g
	m.gates[g.ID] = &cp
	return nil
}

func (m *MemoryRepository) IsDeviceRevoked(_ context.Context, deviceID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.revoked[deviceID]
	return ok, nil
}

func (m *MemoryRepository) RevokeDevice(_ context.Context, deviceID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.revoked[deviceID]; !ok {
		m.revoked[deviceID] = at
	}
	return nil
}
