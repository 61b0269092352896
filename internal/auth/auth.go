// Package auth issues and checks the app-session bearer credential that
// proves a device belongs to a directory user.
package auth

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"

	"github.com/frahmantamala/oneaccess/internal/directory"
)

const (
	DefaultSessionTTL = time.Hour

	sessionKeyInfo = "oneaccess app-session v1"
)

type ctxKey string

const ContextUserKey ctxKey = "user"

// UserFromContext returns the user AuthMiddleware attached to the request.
func UserFromContext(ctx context.Context) (*directory.User, bool) {
	u, ok := ctx.Value(ContextUserKey).(*directory.User)
	return u, ok && u != nil
}

func ContextWithUser(ctx context.Context, u *directory.User) context.Context {
	return context.WithValue(ctx, ContextUserKey, u)
}

// SessionClaims is the app-session payload: {sub, email, cid, iat, exp}.
type SessionClaims struct {
	Email     string `json:"email"`
	CompanyID string `json:"cid"`
	jwt.RegisteredClaims
}

// SessionManager signs app sessions with HS256 under a key derived from the
// configured secret, so the raw secret never doubles as a MAC key.
type SessionManager struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

type SessionOption func(*SessionManager)

func WithSessionClock(now func() time.Time) SessionOption {
	return func(m *SessionManager) { m.now = now }
}

func NewSessionManager(secret string, ttl time.Duration, opts ...SessionOption) (*SessionManager, error) {
	if secret == "" {
		return nil, fmt.Errorf("app auth secret is empty")
	}
	key, err := deriveKey(secret)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	m := &SessionManager{key: key, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func deriveKey(secret string) ([]byte, error) {
	key := make([]byte, 32)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(sessionKeyInfo))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive session key: %w", err)
	}
	return key, nil
}

func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

func (m *SessionManager) Issue(u *directory.User) (string, time.Time, error) {
	now := m.now().Truncate(time.Second)
	exp := now.Add(m.ttl)
	claims := &SessionClaims{
		Email:     u.Email,
		CompanyID: u.CompanyID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign app session: %w", err)
	}
	return signed, exp, nil
}

// Validate checks signature, algorithm and expiry.
func (m *SessionManager) Validate(tokenString string) (*SessionClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	claims := &SessionClaims{}
	t, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return m.key, nil
	})
	if err != nil {
		return nil, err
	}
	if !t.Valid || claims.Subject == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
