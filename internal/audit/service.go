package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	errors "github.com/frahmantamala/oneaccess/internal"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Store persists events. List returns the newest limit events, newest first.
type Store interface {
	Append(ctx context.Context, e *Event) error
	List(ctx context.Context, limit int) ([]*Event, error)
}

// Recorder stamps and appends events one at a time so stored order and
// timestamp order agree.
type Recorder struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time

	mu   sync.Mutex
	last time.Time
}

type Option func(*Recorder)

func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

func NewRecorder(store Store, logger *slog.Logger, opts ...Option) *Recorder {
	r := &Recorder{store: store, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record assigns the event id and a timestamp strictly after the previous one,
// then appends it.
func (r *Recorder) Record(ctx context.Context, e *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	ts := e.Timestamp
	if ts.IsZero() {
		ts = r.now()
	}
	ts = ts.UTC()
	if !ts.After(r.last) {
		ts = r.last.Add(time.Microsecond)
	}
	e.Timestamp = ts

	if err := r.store.Append(ctx, e); err != nil {
		r.logger.Error("failed to append audit event", "gate_id", e.GateID, "reason", e.Reason, "error", err)
		return err
	}
	r.last = ts
	return nil
}

func (r *Recorder) List(ctx context.Context, limit int) ([]*Event, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	out, err := r.store.List(ctx, limit)
	if err != nil {
		return nil, errors.NewInternalError("failed to list audit events", err)
	}
	if out == nil {
		out = []*Event{}
	}
	return out, nil
}
