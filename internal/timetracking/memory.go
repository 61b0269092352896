package timetracking

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository keeps sessions plus a user -> active session pointer.
type MemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	active   map[string]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		sessions: make(map[string]*Session),
		active:   make(map[string]string),
	}
}

func clone(s *Session) *Session {
	cp := *s
	if s.GateIDExit != nil {
		g := *s.GateIDExit
		cp.GateIDExit = &g
	}
	if s.ExitTime != nil {
		t := *s.ExitTime
		cp.ExitTime = &t
	}
	if s.DurationSeconds != nil {
		d := *s.DurationSeconds
		cp.DurationSeconds = &d
	}
	return &cp
}

func (m *MemoryRepository) Active(_ context.Context, userID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.active[userID]
	if !ok {
		return nil, nil
	}
	s := m.sessions[id]
	if s == nil || !s.IsActive() {
		return nil, nil
	}
	return clone(s), nil
}

func (m *MemoryRepository) Start(_ context.Context, prior, next *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prior != nil {
		m.sessions[prior.ID] = clone(prior)
	}
	m.sessions[next.ID] = clone(next)
	m.active[next.UserID] = next.ID
	return nil
}

func (m *MemoryRepository) Complete(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = clone(s)
	if m.active[s.UserID] == s.ID {
		delete(m.active, s.UserID)
	}
	return nil
}

func (m *MemoryRepository) ListByUser(_ context.Context, userID string, limit int) ([]*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Session
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, clone(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntryTime.After(out[j].EntryTime) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryRepository) CompletedStats(_ context.Context, userID string) (int64, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var count, total int64
	for _, s := range m.sessions {
		if s.UserID == userID && s.Status == StatusCompleted && s.DurationSeconds != nil {
			count++
			total += *s.DurationSeconds
		}
	}
	return count, total, nil
}

func (m *MemoryRepository) DeleteCompletedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	for id, s := range m.sessions {
		if s.Status == StatusCompleted && s.ExitTime != nil && s.ExitTime.Before(cutoff) {
			delete(m.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}
