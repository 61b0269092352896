package access

import (
	"context"
	"log/slog"
	"time"

	"github.com/frahmantamala/oneaccess/internal/audit"
	"github.com/frahmantamala/oneaccess/internal/core/events"
	"github.com/frahmantamala/oneaccess/internal/delegation"
	"github.com/frahmantamala/oneaccess/internal/directory"
	"github.com/frahmantamala/oneaccess/internal/replay"
	"github.com/frahmantamala/oneaccess/internal/timetracking"
	"github.com/frahmantamala/oneaccess/internal/token"
	"github.com/frahmantamala/oneaccess/internal/visitor"
)

const DefaultTokenTTL = 20 * time.Second

type Directory interface {
	Gate(ctx context.Context, id string) (*directory.Gate, error)
	LookupUser(ctx context.Context, id string) (*directory.User, error)
	IsDeviceRevoked(ctx context.Context, deviceID string) (bool, error)
}

type Delegations interface {
	FindGrant(ctx context.Context, delegateeID, grantorID, gateID string, now time.Time) (*delegation.Delegation, error)
}

type VisitorPasses interface {
	Lookup(ctx context.Context, id string) (*visitor.Pass, error)
	CheckIssuable(ctx context.Context, passID, gateID string) (*visitor.Pass, error)
	ConsumeUse(ctx context.Context, passID, jti string, now time.Time) (*visitor.Consumption, error)
}

type Sessions interface {
	Start(ctx context.Context, userID, companyID, gateID string, at time.Time) (*timetracking.StartResult, error)
	End(ctx context.Context, userID, gateID string, at time.Time) (*timetracking.Session, error)
}

type AuditLog interface {
	Record(ctx context.Context, e *audit.Event) error
}

type TokenCodec interface {
	Issue(claims token.AccessClaims, ttl time.Duration) (*token.Issued, error)
	Verify(tokenString string) (*token.AccessClaims, error)
}

// Dependencies are the registries the engine reads and the stores it writes.
type Dependencies struct {
	Directory   Directory
	Delegations Delegations
	Visitors    VisitorPasses
	Sessions    Sessions
	Audit       AuditLog
	Codec       TokenCodec
}

type Service struct {
	Dependencies

	ledger            replay.Ledger
	publisher         events.Publisher
	logger            *slog.Logger
	now               func() time.Time
	tokenTTL          time.Duration
	exposeDenyReasons bool
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithReplayLedger makes every token single-use. Without a ledger each
// redemption is an independent decision.
func WithReplayLedger(l replay.Ledger) Option {
	return func(s *Service) { s.ledger = l }
}

func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl >= time.Second {
			s.tokenTTL = ttl
		}
	}
}

// WithExposeDenyReasons controls whether readers see specific DENY reasons or
// the generic DENIED. Audit records always keep the specific reason.
func WithExposeDenyReasons(expose bool) Option {
	return func(s *Service) { s.exposeDenyReasons = expose }
}

func NewService(deps Dependencies, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		Dependencies:      deps,
		publisher:         events.Nop{},
		logger:            logger,
		now:               time.Now,
		tokenTTL:          DefaultTokenTTL,
		exposeDenyReasons: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

