package delegation

import (
	"context"
	"log/slog"
	"time"

	errors "github.com/frahmantamala/oneaccess/internal"
	"github.com/frahmantamala/oneaccess/internal/core/common/ids"
	"github.com/frahmantamala/oneaccess/internal/core/common/validation"
	"github.com/frahmantamala/oneaccess/internal/core/events"
	"github.com/frahmantamala/oneaccess/internal/directory"
)

const unknownEmail = "Unknown"

type RepositoryAPI interface {
	Create(ctx context.Context, d *Delegation) error
	GetByID(ctx context.Context, id string) (*Delegation, error)
	// ActiveForDelegatee returns delegations received by userID that are valid at now.
	ActiveForDelegatee(ctx context.Context, userID string, now time.Time) ([]*Delegation, error)
	ListByDelegator(ctx context.Context, userID string) ([]*Delegation, error)
	Deactivate(ctx context.Context, id string) error
}

// Directory is the slice of the identity registry delegations depend on.
type Directory interface {
	UserByEmail(ctx context.Context, email string) (*directory.User, error)
	LookupUser(ctx context.Context, id string) (*directory.User, error)
	GrantableGates(ctx context.Context, grantor *directory.User, gateIDs []string) ([]string, error)
}

type Service struct {
	repo      RepositoryAPI
	directory Directory
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func NewService(repo RepositoryAPI, dir Directory, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		directory: dir,
		publisher: events.Nop{},
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Create(ctx context.Context, delegator *directory.User, dto CreateDelegationDTO) (*Delegation, error) {
	v := validation.NewValidator()
	v.Field("delegateeEmail", dto.DelegateeEmail).Required()
	v.Field("gateIds", dto.GateIDs).Required()
	if err := v.Validate(); err != nil {
		return nil, err
	}
	hours, verr := validation.ResolveHours(dto.Hours, validation.DelegationMaxHours)
	if verr != nil {
		return nil, verr
	}

	gateIDs, err := s.directory.GrantableGates(ctx, delegator, dto.GateIDs)
	if err != nil {
		return nil, err
	}

	delegatee, err := s.directory.UserByEmail(ctx, dto.DelegateeEmail)
	if err != nil {
		return nil, err
	}

	now := s.now()
	d := &Delegation{
		ID:          ids.Delegation(),
		DelegatorID: delegator.ID,
		DelegateeID: delegatee.ID,
		GateIDs:     gateIDs,
		ValidUntil:  now.Add(time.Duration(hours) * time.Hour),
		CreatedBy:   delegator.ID,
		Active:      true,
		CreatedAt:   now,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		s.logger.Error("failed to create delegation", "delegator_id", delegator.ID, "error", err)
		return nil, errors.NewInternalError("failed to create delegation", err)
	}

	s.logger.Info("delegation created",
		"delegation_id", d.ID,
		"delegator_id", d.DelegatorID,
		"delegatee_id", d.DelegateeID,
		"gate_ids", d.GateIDs,
		"valid_until", d.ValidUntil)
	_ = s.publisher.Publish(ctx, events.NewGrantEvent(events.EventTypeDelegationCreated, d.ID, d.DelegatorID, d.GateIDs, now))
	return d, nil
}

// ActiveFor returns the delegations userID currently holds as delegatee.
func (s *Service) ActiveFor(ctx context.Context, userID string) ([]*Delegation, error) {
	return s.repo.ActiveForDelegatee(ctx, userID, s.now())
}

// FindGrant returns a delegation held by delegateeID that authorizes gateID
// at now, optionally restricted to one grantor. Nil means no grant.
func (s *Service) FindGrant(ctx context.Context, delegateeID, grantorID, gateID string, now time.Time) (*Delegation, error) {
	active, err := s.repo.ActiveForDelegatee(ctx, delegateeID, now)
	if err != nil {
		return nil, err
	}
	for _, d := range active {
		if d.Grants(grantorID, gateID, now) {
			return d, nil
		}
	}
	return nil, nil
}

// List returns the caller's active outgoing delegations and currently valid
// incoming ones, with the counterpart's email.
func (s *Service) List(ctx context.Context, user *directory.User) (*ListResponse, error) {
	created, err := s.repo.ListByDelegator(ctx, user.ID)
	if err != nil {
		return nil, errors.NewInternalError("failed to list delegations", err)
	}
	received, err := s.ActiveFor(ctx, user.ID)
	if err != nil {
		return nil, errors.NewInternalError("failed to list delegations", err)
	}

	resp := &ListResponse{
		Created:  make([]CreatedDelegationView, 0, len(created)),
		Received: make([]ReceivedDelegationView, 0, len(received)),
	}
	for _, d := range created {
		if !d.Active {
			continue
		}
		resp.Created = append(resp.Created, CreatedDelegationView{
			DelegationID:   d.ID,
			DelegateeEmail: s.emailOf(ctx, d.DelegateeID),
			GateIDs:        d.GateIDs,
			ValidUntil:     d.ValidUntil,
			CreatedAt:      d.CreatedAt,
		})
	}
	for _, d := range received {
		resp.Received = append(resp.Received, ReceivedDelegationView{
			DelegationID:   d.ID,
			DelegatorEmail: s.emailOf(ctx, d.DelegatorID),
			GateIDs:        d.GateIDs,
			ValidUntil:     d.ValidUntil,
			CreatedAt:      d.CreatedAt,
		})
	}
	return resp, nil
}

func (s *Service) emailOf(ctx context.Context, userID string) string {
	u, err := s.directory.LookupUser(ctx, userID)
	if err != nil || u == nil {
		return unknownEmail
	}
	return u.Email
}

// Revoke soft-deletes a delegation. Only its delegator may revoke it.
func (s *Service) Revoke(ctx context.Context, user *directory.User, id string) error {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return errors.NewInternalError("failed to load delegation", err)
	}
	if d == nil {
		return errors.ErrDelegationNotFound
	}
	if d.DelegatorID != user.ID {
		return errors.ErrNotOwner
	}
	if !d.Active {
		return nil
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return errors.NewInternalError("failed to revoke delegation", err)
	}
	s.logger.Info("delegation revoked", "delegation_id", id, "delegator_id", user.ID)
	_ = s.publisher.Publish(ctx, events.NewGrantEvent(events.EventTypeDelegationRevoked, id, user.ID, d.GateIDs, s.now()))
	return nil
}
