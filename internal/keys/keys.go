// Package keys owns the deployment's EdDSA signing key pair.
package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/go-jose/go-jose/v4"
)

const (
	Algorithm = "EdDSA"
	UseSig    = "sig"
)

type KeyPair struct {
	KeyID   string
	Private ed25519.PrivateKey
	Public  ed25519.PublicKey
}

// GenerateKeyPair creates a fresh Ed25519 pair with a random opaque key id.
func GenerateKeyPair() (*KeyPair, error) {
	public, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating ed25519 key pair: %w", err)
	}
	kid, err := newKeyID()
	if err != nil {
		return nil, err
	}
	return &KeyPair{KeyID: kid, Private: private, Public: public}, nil
}

func newKeyID() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating key id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Manager holds one key pair for the process lifetime.
type Manager struct {
	pair      *KeyPair
	generated bool
}

func NewManager(pair *KeyPair) *Manager {
	return &Manager{pair: pair}
}

// LoadOrCreate reloads the persisted pair, or generates and saves one when
// no key file exists yet. Partial or unreadable material is an error and is
// never replaced.
func LoadOrCreate(store *FileStore, logger *slog.Logger) (*Manager, error) {
	present, err := store.Present()
	if err != nil {
		return nil, err
	}

	switch present {
	case 0:
		pair, err := GenerateKeyPair()
		if err != nil {
			return nil, err
		}
		if err := store.Save(pair); err != nil {
			return nil, fmt.Errorf("persisting new key pair: %w", err)
		}
		logger.Info("generated signing key pair", "kid", pair.KeyID, "dir", store.Dir())
		return &Manager{pair: pair, generated: true}, nil
	case len(store.files()):
		pair, err := store.Load()
		if err != nil {
			return nil, err
		}
		logger.Info("loaded signing key pair", "kid", pair.KeyID, "dir", store.Dir())
		return &Manager{pair: pair}, nil
	default:
		return nil, fmt.Errorf("%w: %d of %d key files present in %s",
			ErrPartialKeyMaterial, present, len(store.files()), store.Dir())
	}
}

func (m *Manager) KeyID() string {
	return m.pair.KeyID
}

func (m *Manager) PrivateKey() ed25519.PrivateKey {
	return m.pair.Private
}

func (m *Manager) PublicKey() ed25519.PublicKey {
	return m.pair.Public
}

// Generated reports whether the pair was created by this process.
func (m *Manager) Generated() bool {
	return m.generated
}

// PublicKeyFor resolves a verifying key by key id.
func (m *Manager) PublicKeyFor(kid string) (ed25519.PublicKey, bool) {
	if kid != m.pair.KeyID {
		return nil, false
	}
	return m.pair.Public, true
}

func (m *Manager) Sign(message []byte) []byte {
	return ed25519.Sign(m.pair.Private, message)
}

// Fingerprint is the base64url SHA-256 of the raw public key.
func (m *Manager) Fingerprint() string {
	sum := sha256.Sum256(m.pair.Public)
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// PublicKeyDescriptor is the discovery entry for the signing key
// (kty=OKP, crv=Ed25519, x, kid, use=sig, alg=EdDSA).
func (m *Manager) PublicKeyDescriptor() jose.JSONWebKey {
	return jose.JSONWebKey{
		Key:       m.pair.Public,
		KeyID:     m.pair.KeyID,
		Algorithm: string(jose.EdDSA),
		Use:       UseSig,
	}
}

func (m *Manager) JWKS() jose.JSONWebKeySet {
	return jose.JSONWebKeySet{Keys: []jose.JSONWebKey{m.PublicKeyDescriptor()}}
}
