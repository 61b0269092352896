package timetracking

import (
	"context"
	"log/slog"
	"time"

	errors "github.com/frahmantamala/oneaccess/internal"
	"github.com/frahmantamala/oneaccess/internal/core/common/ids"
	"github.com/frahmantamala/oneaccess/internal/core/events"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

type RepositoryAPI interface {
	Active(ctx context.Context, userID string) (*Session, error)
	// Start stores next, completing prior first when it is non-nil.
	Start(ctx context.Context, prior, next *Session) error
	Complete(ctx context.Context, s *Session) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*Session, error)
	CompletedStats(ctx context.Context, userID string) (count int64, totalSeconds int64, err error)
	DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// StartResult carries the new session and, when the user still had one open,
// the session that was closed to make room for it.
type StartResult struct {
	Session    *Session
	AutoClosed *Session
}

type Service struct {
	repo      RepositoryAPI
	publisher events.Publisher
	logger    *slog.Logger
	locks     *userLocks
	now       func() time.Time
}

type Option func(*Service)

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo RepositoryAPI, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		publisher: events.Nop{},
		logger:    logger,
		locks:     newUserLocks(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens an ACTIVE session for userID at gateID. An ACTIVE session the
// user still holds is completed first with the new gate as its exit.
func (s *Service) Start(ctx context.Context, userID, companyID, gateID string, at time.Time) (*StartResult, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	prior, err := s.repo.Active(ctx, userID)
	if err != nil {
		return nil, errors.NewInternalError("failed to load active session", err)
	}
	if prior != nil {
		prior.Complete(gateID, at)
	}

	next := &Session{
		ID:          ids.Session(),
		UserID:      userID,
		CompanyID:   companyID,
		GateIDEntry: gateID,
		EntryTime:   at,
		Status:      StatusActive,
	}
	if err := s.repo.Start(ctx, prior, next); err != nil {
		return nil, errors.NewInternalError("failed to start session", err)
	}

	if prior != nil {
		s.logger.Warn("prior session auto-closed",
			"user_id", userID,
			"session_id", prior.ID,
			"gate_id_entry", prior.GateIDEntry,
			"gate_id", gateID,
			"duration_seconds", *prior.DurationSeconds)
		_ = s.publisher.Publish(ctx, events.NewSessionEvent(events.EventTypeSessionAutoClosed, prior.ID, userID, gateID, *prior.DurationSeconds, at))
	}
	s.logger.Info("session started", "user_id", userID, "session_id", next.ID, "gate_id", gateID)
	_ = s.publisher.Publish(ctx, events.NewSessionEvent(events.EventTypeSessionStarted, next.ID, userID, gateID, 0, at))

	return &StartResult{Session: next, AutoClosed: prior}, nil
}

// End completes the user's ACTIVE session. It returns nil without error when
// there is none.
func (s *Service) End(ctx context.Context, userID, gateID string, at time.Time) (*Session, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	active, err := s.repo.Active(ctx, userID)
	if err != nil {
		return nil, errors.NewInternalError("failed to load active session", err)
	}
	if active == nil {
		return nil, nil
	}

	active.Complete(gateID, at)
	if err := s.repo.Complete(ctx, active); err != nil {
		return nil, errors.NewInternalError("failed to complete session", err)
	}

	s.logger.Info("session completed", "user_id", userID, "session_id", active.ID, "duration_seconds", *active.DurationSeconds)
	_ = s.publisher.Publish(ctx, events.NewSessionEvent(events.EventTypeSessionCompleted, active.ID, userID, gateID, *active.DurationSeconds, at))
	return active, nil
}

func (s *Service) Current(ctx context.Context, userID string) (*Session, error) {
	active, err := s.repo.Active(ctx, userID)
	if err != nil {
		return nil, errors.NewInternalError("failed to load active session", err)
	}
	return active, nil
}

// List returns the user's sessions newest first. limit is clamped to 1..500.
func (s *Service) List(ctx context.Context, userID string, limit int) ([]*Session, error) {
	out, err := s.repo.ListByUser(ctx, userID, ClampLimit(limit))
	if err != nil {
		return nil, errors.NewInternalError("failed to list sessions", err)
	}
	if out == nil {
		out = []*Session{}
	}
	return out, nil
}

func (s *Service) Summary(ctx context.Context, userID string) (*Summary, error) {
	count, total, err := s.repo.CompletedStats(ctx, userID)
	if err != nil {
		return nil, errors.NewInternalError("failed to summarise sessions", err)
	}
	active, err := s.repo.Active(ctx, userID)
	if err != nil {
		return nil, errors.NewInternalError("failed to load active session", err)
	}

	var avg int64
	if count > 0 {
		avg = total / count
	}
	return &Summary{
		TotalSessions:        count,
		TotalTimeSeconds:     total,
		TotalTimeFormatted:   FormatDuration(time.Duration(total) * time.Second),
		AverageTimeSeconds:   avg,
		AverageTimeFormatted: FormatDuration(time.Duration(avg) * time.Second),
		HasActiveSession:     active != nil,
		ActiveSession:        active,
	}, nil
}

// Prune deletes COMPLETED sessions whose exit is older than cutoff.
func (s *Service) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.repo.DeleteCompletedBefore(ctx, cutoff)
}

func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}
