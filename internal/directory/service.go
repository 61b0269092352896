package directory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	errors "github.com/frahmantamala/oneaccess/internal"
)

type RepositoryAPI interface {
	UserByID(ctx context.Context, id string) (*User, error)
	UserByEmail(ctx context.Context, email string) (*User, error)
	SaveUser(ctx context.Context, u *User) error
	Gate(ctx context.Context, id string) (*Gate, error)
	Gates(ctx context.Context) ([]*Gate, error)
	SaveGate(ctx context.Context, g *Gate) error
	IsDeviceRevoked(ctx context.Context, deviceID string) (bool, error)
	RevokeDevice(ctx context.Context, deviceID string, at time.Time) error
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// User returns the user or ErrUserNotFound. Inactive users are returned as-is.
func (s *Service) User(ctx context.Context, id string) (*User, error) {
	u, err := s.repo.UserByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to load user", "user_id", id, "error", err)
		return nil, errors.NewInternalError("failed to load user", err)
	}
	if u == nil {
		return nil, errors.ErrUserNotFound
	}
	return u, nil
}

// LookupUser is the nil-on-missing variant the decision engine uses.
func (s *Service) LookupUser(ctx context.Context, id string) (*User, error) {
	return s.repo.UserByID(ctx, id)
}

func (s *Service) UserByEmail(ctx context.Context, email string) (*User, error) {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return nil, errors.NewValidationFieldError("email", "email is required", errors.ErrCodeValidationFailed)
	}
	u, err := s.repo.UserByEmail(ctx, normalized)
	if err != nil {
		s.logger.Error("failed to load user by email", "error", err)
		return nil, errors.NewInternalError("failed to load user", err)
	}
	if u == nil {
		return nil, errors.ErrUserNotFound
	}
	return u, nil
}

// ActiveUserByEmail is the login lookup: unknown and inactive users are both refused.
func (s *Service) ActiveUserByEmail(ctx context.Context, email string) (*User, error) {
	u, err := s.UserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !u.IsActiveUser() {
		return nil, errors.ErrUserInactive
	}
	return u, nil
}

func (s *Service) Gate(ctx context.Context, id string) (*Gate, error) {
	g, err := s.repo.Gate(ctx, strings.TrimSpace(id))
	if err != nil {
		s.logger.Error("failed to load gate", "gate_id", id, "error", err)
		return nil, errors.NewInternalError("failed to load gate", err)
	}
	if g == nil {
		return nil, errors.ErrGateNotFound
	}
	return g, nil
}

func (s *Service) Gates(ctx context.Context) ([]*Gate, error) {
	return s.repo.Gates(ctx)
}

// GrantableGates validates a gate list a user wants to hand to someone else.
// Every gate must exist, and BUILDING gates must belong to the grantor's company.
// The returned ids are trimmed and de-duplicated in request order.
func (s *Service) GrantableGates(ctx context.Context, grantor *User, gateIDs []string) ([]string, error) {
	seen := make(map[string]struct{}, len(gateIDs))
	out := make([]string, 0, len(gateIDs))
	for _, raw := range gateIDs {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil, errors.NewValidationFieldError("gateIds", "gateIds is required", errors.ErrCodeValidationFailed)
	}

	for _, id := range out {
		g, err := s.Gate(ctx, id)
		if err != nil {
			if appErr, ok := errors.IsAppError(err); ok && appErr.Code == errors.ErrCodeGateNotFound {
				return nil, errors.ErrGateNotFound.WithMessage(fmt.Sprintf("Unknown gate: %s", id))
			}
			return nil, err
		}
		if !g.OwnedBy(grantor.CompanyID) {
			return nil, errors.ErrGateNotAuthorized.WithMessage(fmt.Sprintf("Not authorized for gate: %s", id))
		}
	}
	return out, nil
}

func (s *Service) IsDeviceRevoked(ctx context.Context, deviceID string) (bool, error) {
	if deviceID == "" {
		return false, nil
	}
	return s.repo.IsDeviceRevoked(ctx, deviceID)
}

func (s *Service) RevokeDevice(ctx context.Context, deviceID string) error {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return errors.NewValidationFieldError("deviceId", "deviceId is required", errors.ErrCodeValidationFailed)
	}
	if err := s.repo.RevokeDevice(ctx, deviceID, s.now()); err != nil {
		return errors.NewInternalError("failed to revoke device", err)
	}
	s.logger.Info("device revoked", "device_id", deviceID)
	return nil
}

func (s *Service) DeactivateUser(ctx context.Context, id string) error {
	u, err := s.User(ctx, id)
	if err != nil {
		return err
	}
	u.Active = false
	if err := s.repo.SaveUser(ctx, u); err != nil {
		return errors.NewInternalError("failed to save user", err)
	}
	s.logger.Info("user deactivated", "user_id", id)
	return nil
}
