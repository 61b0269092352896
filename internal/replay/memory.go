package replay

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultMaxEntries      = 100_000
	DefaultCleanupInterval = 30 * time.Second
)

// MemoryLedger keeps claimed ids in a map with their expiry and sweeps
// expired ids on an interval.
type MemoryLedger struct {
	mu         sync.Mutex
	entries    map[string]time.Time
	maxEntries int
	now        func() time.Time

	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
	once     sync.Once
}

type MemoryOption func(*MemoryLedger)

func WithMaxEntries(n int) MemoryOption {
	return func(l *MemoryLedger) {
		if n > 0 {
			l.maxEntries = n
		}
	}
}

// WithCleanupInterval sets the sweep interval. Zero or less disables the sweep.
func WithCleanupInterval(d time.Duration) MemoryOption {
	return func(l *MemoryLedger) { l.interval = d }
}

func WithClock(now func() time.Time) MemoryOption {
	return func(l *MemoryLedger) { l.now = now }
}

func NewMemoryLedger(opts ...MemoryOption) *MemoryLedger {
	l := &MemoryLedger{
		entries:    make(map[string]time.Time),
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
		interval:   DefaultCleanupInterval,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.interval > 0 {
		go l.cleanupLoop()
	} else {
		close(l.done)
	}
	return l
}

func (l *MemoryLedger) Claim(_ context.Context, jti string, expiresAt time.Time) (bool, error) {
	if err := validID(jti); err != nil {
		return false, err
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if exp, ok := l.entries[jti]; ok && exp.After(now) {
		return false, nil
	}
	if len(l.entries) >= l.maxEntries {
		l.sweepLocked(now)
		if len(l.entries) >= l.maxEntries {
			return false, ErrFull
		}
	}
	l.entries[jti] = expiresAt
	return true, nil
}

func (l *MemoryLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Sweep drops expired ids and returns how many were removed.
func (l *MemoryLedger) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sweepLocked(l.now())
}

func (l *MemoryLedger) sweepLocked(now time.Time) int {
	removed := 0
	for id, exp := range l.entries {
		if !exp.After(now) {
			delete(l.entries, id)
			removed++
		}
	}
	return removed
}

func (l *MemoryLedger) Close() error {
	l.once.Do(func() { close(l.stop) })
	<-l.done
	return nil
}

func (l *MemoryLedger) cleanupLoop() {
	defer close(l.done)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}
