package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/frahmantamala/oneaccess/internal"
	"github.com/frahmantamala/oneaccess/internal/core/common/validation"
	"github.com/frahmantamala/oneaccess/internal/directory"
)

type UserDirectory interface {
	ActiveUserByEmail(ctx context.Context, email string) (*directory.User, error)
	LookupUser(ctx context.Context, id string) (*directory.User, error)
}

type Service struct {
	directory UserDirectory
	sessions  *SessionManager
	logger    *slog.Logger
}

func NewService(dir UserDirectory, sessions *SessionManager, logger *slog.Logger) *Service {
	return &Service{
		directory: dir,
		sessions:  sessions,
		logger:    logger,
	}
}

// Login issues an app session for a known, active user. Unknown and inactive
// users get the same 403 so the endpoint does not enumerate accounts.
func (s *Service) Login(ctx context.Context, dto LoginDTO) (*LoginResponse, error) {
	v := validation.NewValidator()
	v.Field("email", dto.Email).Required()
	if err := v.Validate(); err != nil {
		return nil, err
	}

	u, err := s.directory.ActiveUserByEmail(ctx, dto.Email)
	if err != nil {
		if appErr, ok := apperrors.IsAppError(err); ok && appErr.StatusCode < 500 {
			s.logger.Warn("login refused", "code", appErr.Code)
			return nil, apperrors.NewForbiddenError("Not allowed", apperrors.ErrCodeInvalidCredentials)
		}
		return nil, err
	}

	token, exp, err := s.sessions.Issue(u)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to issue session", err)
	}
	s.logger.Info("app session issued", "user_id", u.ID, "company_id", u.CompanyID)
	return &LoginResponse{AccessToken: token, ExpiresAt: exp}, nil
}

// Authenticate resolves a bearer app session to its active user.
func (s *Service) Authenticate(ctx context.Context, token string) (*directory.User, error) {
	if token == "" {
		return nil, apperrors.NewUnauthorizedError("Missing Bearer token", apperrors.ErrCodeInvalidToken)
	}
	claims, err := s.sessions.Validate(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.ErrInvalidToken.WithCause(err)
	}

	u, err := s.directory.LookupUser(ctx, claims.Subject)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load user", err)
	}
	if u == nil {
		return nil, apperrors.NewUnauthorizedError("Unknown user", apperrors.ErrCodeInvalidToken)
	}
	if !u.IsActiveUser() {
		return nil, apperrors.NewUnauthorizedError("User inactive", apperrors.ErrCodeUserInactive)
	}
	return u, nil
}
