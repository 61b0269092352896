package visitor

import (
	"context"
	"log/slog"
	"strings"
	"time"

	errors "github.com/frahmantamala/oneaccess/internal"
	"github.com/frahmantamala/oneaccess/internal/core/common/ids"
	"github.com/frahmantamala/oneaccess/internal/core/common/validation"
	"github.com/frahmantamala/oneaccess/internal/core/events"
	"github.com/frahmantamala/oneaccess/internal/directory"
)

// Consumption is the outcome of a successful ConsumeUse. Duplicate is set
// when the token id had already been redeemed against the pass, in which case
// the counter was left alone.
type Consumption struct {
	Pass      *Pass
	Duplicate bool
}

type RepositoryAPI interface {
	Create(ctx context.Context, p *Pass) error
	GetByID(ctx context.Context, id string) (*Pass, error)
	ListByCreator(ctx context.Context, userID string) ([]*Pass, error)
	Deactivate(ctx context.Context, id string) error
	// ConsumeUse re-checks the pass and increments its counter in one step.
	// It fails with ErrPassNotFound, ErrPassExpired or ErrPassExhausted and
	// leaves no trace when it does.
	ConsumeUse(ctx context.Context, passID, jti string, now time.Time) (*Consumption, error)
}

type Directory interface {
	GrantableGates(ctx context.Context, grantor *directory.User, gateIDs []string) ([]string, error)
}

type Service struct {
	repo        RepositoryAPI
	directory   Directory
	publisher   events.Publisher
	logger      *slog.Logger
	now         func() time.Time
	defaultUses int
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithDefaultUses sets the usage cap stamped on new passes.
func WithDefaultUses(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.defaultUses = n
		}
	}
}

func NewService(repo RepositoryAPI, dir Directory, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		directory:   dir,
		publisher:   events.Nop{},
		logger:      logger,
		now:         time.Now,
		defaultUses: DefaultMaxUses,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Create(ctx context.Context, creator *directory.User, dto CreatePassDTO) (*Pass, error) {
	v := validation.NewValidator()
	v.Field("visitorName", dto.VisitorName).Required().LengthBetween(1, MaxVisitorNameLength, errors.ErrCodeValidationFailed)
	v.Field("visitorPhone", dto.VisitorPhone).Required().LengthBetween(1, MaxVisitorPhoneLength, errors.ErrCodeValidationFailed)
	v.Field("gateIds", dto.GateIDs).Required()
	if err := v.Validate(); err != nil {
		return nil, err
	}
	hours, verr := validation.ResolveHours(dto.Hours, validation.VisitorPassMaxHours)
	if verr != nil {
		return nil, verr
	}

	gateIDs, err := s.directory.GrantableGates(ctx, creator, dto.GateIDs)
	if err != nil {
		return nil, err
	}

	now := s.now()
	p := &Pass{
		ID:            ids.VisitorPass(),
		CreatedBy:     creator.ID,
		VisitorName:   strings.TrimSpace(dto.VisitorName),
		VisitorPhone:  strings.TrimSpace(dto.VisitorPhone),
		GateIDs:       gateIDs,
		ValidUntil:    now.Add(time.Duration(hours) * time.Hour),
		HostCompanyID: creator.CompanyID,
		Active:        true,
		MaxUses:       s.defaultUses,
		CreatedAt:     now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		s.logger.Error("failed to create visitor pass", "creator_id", creator.ID, "error", err)
		return nil, errors.NewInternalError("failed to create visitor pass", err)
	}

	s.logger.Info("visitor pass created",
		"pass_id", p.ID,
		"creator_id", p.CreatedBy,
		"host_company_id", p.HostCompanyID,
		"gate_ids", p.GateIDs,
		"max_uses", p.MaxUses)
	_ = s.publisher.Publish(ctx, events.NewGrantEvent(events.EventTypeVisitorPassCreated, p.ID, p.CreatedBy, p.GateIDs, now))
	return p, nil
}

// Lookup returns the pass or nil when it does not exist.
func (s *Service) Lookup(ctx context.Context, id string) (*Pass, error) {
	return s.repo.GetByID(ctx, id)
}

// CheckIssuable gates visitor-token issuance. Checks run in a fixed order:
// missing or inactive, expired, exhausted, gate not named by the pass.
func (s *Service) CheckIssuable(ctx context.Context, passID, gateID string) (*Pass, error) {
	p, err := s.repo.GetByID(ctx, passID)
	if err != nil {
		return nil, errors.NewInternalError("failed to load visitor pass", err)
	}
	if p == nil || !p.Active {
		return nil, errors.ErrPassNotFound
	}
	if !p.IsValidAt(s.now()) {
		return nil, errors.ErrPassExpired
	}
	if p.IsExhausted() {
		return nil, errors.ErrPassExhausted
	}
	if !p.Covers(gateID) {
		return nil, errors.ErrGateNotAuthorized.WithMessage("Gate not authorized for this visitor pass")
	}
	return p, nil
}

// ConsumeUse spends one use of the pass on behalf of token jti.
func (s *Service) ConsumeUse(ctx context.Context, passID, jti string, now time.Time) (*Consumption, error) {
	c, err := s.repo.ConsumeUse(ctx, passID, jti, now)
	if err != nil {
		if _, ok := errors.IsAppError(err); ok {
			return nil, err
		}
		return nil, errors.NewInternalError("failed to consume visitor pass", err)
	}

	if c.Duplicate {
		s.logger.Warn("visitor pass redemption redelivered", "pass_id", passID, "jti", jti)
		return c, nil
	}
	s.logger.Info("visitor pass used", "pass_id", passID, "used_count", c.Pass.UsedCount, "max_uses", c.Pass.MaxUses)
	if c.Pass.IsExhausted() {
		_ = s.publisher.Publish(ctx, events.NewGrantEvent(events.EventTypeVisitorPassExhausted, passID, c.Pass.CreatedBy, c.Pass.GateIDs, now))
	}
	return c, nil
}

// List returns the caller's active passes.
func (s *Service) List(ctx context.Context, user *directory.User) (*ListResponse, error) {
	passes, err := s.repo.ListByCreator(ctx, user.ID)
	if err != nil {
		return nil, errors.NewInternalError("failed to list visitor passes", err)
	}
	resp := &ListResponse{VisitorPasses: make([]PassView, 0, len(passes))}
	for _, p := range passes {
		if !p.Active {
			continue
		}
		resp.VisitorPasses = append(resp.VisitorPasses, ToView(p))
	}
	return resp, nil
}

// Revoke soft-deletes a pass. Only its creator may revoke it.
func (s *Service) Revoke(ctx context.Context, user *directory.User, id string) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return errors.NewInternalError("failed to load visitor pass", err)
	}
	if p == nil {
		return errors.ErrPassNotFound
	}
	if p.CreatedBy != user.ID {
		return errors.ErrNotOwner
	}
	if !p.Active {
		return nil
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return errors.NewInternalError("failed to revoke visitor pass", err)
	}
	s.logger.Info("visitor pass revoked", "pass_id", id, "creator_id", user.ID)
	_ = s.publisher.Publish(ctx, events.NewGrantEvent(events.EventTypeVisitorPassRevoked, id, user.ID, p.GateIDs, s.now()))
	return nil
}
