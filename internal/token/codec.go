// Package token issues and verifies short-lived EdDSA access tokens.
package token

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalid     = errors.New("invalid access token")
	ErrExpired     = errors.New("access token expired")
	ErrUnknownKey  = errors.New("unknown signing key")
	ErrMissingTime = errors.New("missing required temporal claim")
)

// Signer is the key material the codec signs with.
type Signer interface {
	KeyID() string
	PrivateKey() ed25519.PrivateKey
}

// KeyResolver finds the verifying key for a token's kid header.
type KeyResolver interface {
	PublicKeyFor(kid string) (ed25519.PublicKey, bool)
}

type Issued struct {
	Token     string
	Claims    AccessClaims
	ExpiresAt time.Time
}

type Codec struct {
	signer   Signer
	resolver KeyResolver
	now      func() time.Time
}

type Option func(*Codec)

// WithClock overrides the wall clock used for stamping and validation.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

func NewCodec(signer Signer, resolver KeyResolver, opts ...Option) *Codec {
	c := &Codec{signer: signer, resolver: resolver, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Issue stamps iat=now, nbf=now-1s and exp=iat+ttl, derives the token id when
// the caller left it empty, and signs with the kid in the header.
func (c *Codec) Issue(claims AccessClaims, ttl time.Duration) (*Issued, error) {
	if ttl < time.Second {
		return nil, fmt.Errorf("ttl must be at least one second, got %s", ttl)
	}

	now := c.now().Truncate(time.Second)
	exp := now.Add(ttl)

	claims.Version = ClaimsVersion
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.NotBefore = jwt.NewNumericDate(now.Add(-time.Second))
	claims.ExpiresAt = jwt.NewNumericDate(exp)
	if claims.ID == "" {
		if claims.IsVisitor() {
			claims.ID = VisitorTokenID(claims.VisitorPassID, claims.ReaderNonce, now.Unix())
		} else {
			claims.ID = EmployeeTokenID(claims.Subject, claims.ReaderNonce, now.Unix())
		}
	}

	t := jwt.NewWithClaims(jwt.SigningMethodEdDSA, &claims)
	t.Header["kid"] = c.signer.KeyID()

	signed, err := t.SignedString(c.signer.PrivateKey())
	if err != nil {
		return nil, fmt.Errorf("signing access token: %w", err)
	}

	return &Issued{Token: signed, Claims: claims, ExpiresAt: exp}, nil
}

// Verify selects the public key by the kid header and validates signature,
// algorithm and the [nbf, exp] window.
func (c *Codec) Verify(tokenString string) (*AccessClaims, error) {
	return c.parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("%w: missing kid header", ErrUnknownKey)
		}
		pub, ok := c.resolver.PublicKeyFor(kid)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownKey, kid)
		}
		return pub, nil
	})
}

// VerifyWithKey validates against an explicit public key, for verifiers that
// fetched the key from the discovery document.
func (c *Codec) VerifyWithKey(tokenString string, pub ed25519.PublicKey) (*AccessClaims, error) {
	return c.parse(tokenString, func(*jwt.Token) (interface{}, error) {
		return pub, nil
	})
}

func (c *Codec) parse(tokenString string, keyFunc jwt.Keyfunc) (*AccessClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	)

	claims := &AccessClaims{}
	t, err := parser.ParseWithClaims(tokenString, claims, keyFunc)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("%w: %v", ErrExpired, err)
		case errors.Is(err, ErrUnknownKey):
			return nil, err
		default:
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	}
	if !t.Valid {
		return nil, ErrInvalid
	}
	if claims.IssuedAt == nil {
		return nil, fmt.Errorf("%w: iat", ErrMissingTime)
	}
	if claims.Version != ClaimsVersion {
		return nil, fmt.Errorf("%w: unsupported claims version %d", ErrInvalid, claims.Version)
	}
	return claims, nil
}
