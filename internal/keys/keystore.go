package keys

import (
	"bytes"
	"crypto/ed25519"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	privateKeyFile = "ed25519_private.pem"
	publicKeyFile  = "ed25519_public.pem"
	kidFile        = "kid.txt"

	pemTypePrivate = "PRIVATE KEY"
	pemTypePublic  = "PUBLIC KEY"
)

var (
	// ErrPartialKeyMaterial means some but not all key files exist.
	ErrPartialKeyMaterial = errors.New("partial key material")
	// ErrCorruptKeyMaterial means the key files exist but cannot be used.
	ErrCorruptKeyMaterial = errors.New("corrupt key material")
)

// FileStore persists one signing key pair and its key id in a directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) files() []string {
	return []string{
		filepath.Join(s.dir, privateKeyFile),
		filepath.Join(s.dir, publicKeyFile),
		filepath.Join(s.dir, kidFile),
	}
}

// Present reports how many of the key files exist.
func (s *FileStore) Present() (int, error) {
	count := 0
	for _, path := range s.files() {
		_, err := os.Stat(path)
		switch {
		case err == nil:
			count++
		case errors.Is(err, os.ErrNotExist):
		default:
			return 0, fmt.Errorf("stat %s: %w", path, err)
		}
	}
	return count, nil
}

// Load reads all three files. Missing or malformed files are reported as
// ErrCorruptKeyMaterial; callers decide separately whether nothing exists.
func (s *FileStore) Load() (*KeyPair, error) {
	paths := s.files()

	privPEM, err := os.ReadFile(paths[0])
	if err != nil {
		return nil, fmt.Errorf("%w: reading private key: %v", ErrCorruptKeyMaterial, err)
	}
	private, err := decodePrivateKey(privPEM)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptKeyMaterial, err)
	}

	pubPEM, err := os.ReadFile(paths[1])
	if err != nil {
		return nil, fmt.Errorf("%w: reading public key: %v", ErrCorruptKeyMaterial, err)
	}
	public, err := decodePublicKey(pubPEM)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptKeyMaterial, err)
	}

	if !bytes.Equal(public, private.Public().(ed25519.PublicKey)) {
		return nil, fmt.Errorf("%w: public key does not match private key", ErrCorruptKeyMaterial)
	}

	rawKID, err := os.ReadFile(paths[2])
	if err != nil {
		return nil, fmt.Errorf("%w: reading key id: %v", ErrCorruptKeyMaterial, err)
	}
	kid := strings.TrimSpace(string(rawKID))
	if !validKeyID(kid) {
		return nil, fmt.Errorf("%w: key id %q is not a valid identifier", ErrCorruptKeyMaterial, kid)
	}

	return &KeyPair{KeyID: kid, Private: private, Public: public}, nil
}

// Save writes the pair. Each file is written to a temp name first and renamed
// so a reader never sees a half-written file.
func (s *FileStore) Save(pair *KeyPair) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("creating key directory: %w", err)
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(pair.Private)
	if err != nil {
		return fmt.Errorf("encoding private key: %w", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(pair.Public)
	if err != nil {
		return fmt.Errorf("encoding public key: %w", err)
	}

	paths := s.files()
	writes := []struct {
		path string
		data []byte
		mode os.FileMode
	}{
		{paths[0], pem.EncodeToMemory(&pem.Block{Type: pemTypePrivate, Bytes: privDER}), 0o600},
		{paths[1], pem.EncodeToMemory(&pem.Block{Type: pemTypePublic, Bytes: pubDER}), 0o644},
		{paths[2], []byte(pair.KeyID + "\n"), 0o644},
	}

	for _, w := range writes {
		if err := writeFileAtomic(w.path, w.data, w.mode); err != nil {
			return err
		}
	}
	return nil
}

func writeFileAtomic(path string, data []byte, mode os.FileMode) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, mode); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("renaming %s: %w", filepath.Base(path), err)
	}
	return nil
}

func decodePrivateKey(data []byte) (ed25519.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != pemTypePrivate {
		return nil, errors.New("private key is not a PKCS#8 PEM block")
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	key, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is %T, want ed25519", parsed)
	}
	return key, nil
}

func decodePublicKey(data []byte) (ed25519.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != pemTypePublic {
		return nil, errors.New("public key is not a PKIX PEM block")
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing public key: %w", err)
	}
	key, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is %T, want ed25519", parsed)
	}
	return key, nil
}

func validKeyID(kid string) bool {
	if kid == "" || len(kid) > 64 {
		return false
	}
	for _, r := range kid {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
