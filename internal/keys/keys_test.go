package keys_test

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/oneaccess/internal/keys"
	"github.com/frahmantamala/oneaccess/pkg/logger"
)

func TestKeys(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Keys Suite")
}

var _ = Describe("Key Manager", func() {
	var (
		dir   string
		store *keys.FileStore
	)

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "oneaccess-keys-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, dir)
		store = keys.NewFileStore(filepath.Join(dir, "keys"))
	})

	Describe("LoadOrCreate", func() {
		It("generates and persists a pair on first run", func() {
			// When
			m, err := keys.LoadOrCreate(store, logger.Discard())

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Generated()).To(BeTrue())
			Expect(m.KeyID()).NotTo(BeEmpty())
			present, err := store.Present()
			Expect(err).NotTo(HaveOccurred())
			Expect(present).To(Equal(3))

			info, err := os.Stat(filepath.Join(store.Dir(), "ed25519_private.pem"))
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))
		})

		It("reloads the identical pair and key id on later runs", func() {
			// Given
			first, err := keys.LoadOrCreate(store, logger.Discard())
			Expect(err).NotTo(HaveOccurred())

			// When
			second, err := keys.LoadOrCreate(store, logger.Discard())

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(second.Generated()).To(BeFalse())
			Expect(second.KeyID()).To(Equal(first.KeyID()))
			Expect(second.PublicKey()).To(Equal(first.PublicKey()))
			Expect(second.PrivateKey()).To(Equal(first.PrivateKey()))
		})

		It("fails loudly when only some key files exist", func() {
			// Given
			_, err := keys.LoadOrCreate(store, logger.Discard())
			Expect(err).NotTo(HaveOccurred())
			Expect(os.Remove(filepath.Join(store.Dir(), "kid.txt"))).To(Succeed())

			// When
			_, err = keys.LoadOrCreate(store, logger.Discard())

			// Then
			Expect(err).To(MatchError(keys.ErrPartialKeyMaterial))
			present, _ := store.Present()
			Expect(present).To(Equal(2), "nothing may be regenerated")
		})

		It("fails loudly when the private key is corrupt", func() {
			// Given
			first, err := keys.LoadOrCreate(store, logger.Discard())
			Expect(err).NotTo(HaveOccurred())
			path := filepath.Join(store.Dir(), "ed25519_private.pem")
			Expect(os.WriteFile(path, []byte("garbage"), 0o600)).To(Succeed())

			// When
			_, err = keys.LoadOrCreate(store, logger.Discard())

			// Then
			Expect(err).To(MatchError(keys.ErrCorruptKeyMaterial))
			kid, _ := os.ReadFile(filepath.Join(store.Dir(), "kid.txt"))
			Expect(string(kid)).To(ContainSubstring(first.KeyID()))
		})

		It("rejects a public key that does not belong to the private key", func() {
			// Given
			_, err := keys.LoadOrCreate(store, logger.Discard())
			Expect(err).NotTo(HaveOccurred())
			other, err := keys.GenerateKeyPair()
			Expect(err).NotTo(HaveOccurred())
			current, err := store.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(store.Save(&keys.KeyPair{KeyID: current.KeyID, Private: current.Private, Public: other.Public})).To(Succeed())

			// When
			_, err = store.Load()

			// Then
			Expect(err).To(MatchError(keys.ErrCorruptKeyMaterial))
		})

		It("rejects an empty key id", func() {
			_, err := keys.LoadOrCreate(store, logger.Discard())
			Expect(err).NotTo(HaveOccurred())
			Expect(os.WriteFile(filepath.Join(store.Dir(), "kid.txt"), []byte("  \n"), 0o644)).To(Succeed())

			_, err = keys.LoadOrCreate(store, logger.Discard())
			Expect(err).To(MatchError(keys.ErrCorruptKeyMaterial))
		})
	})

	Describe("PublicKeyDescriptor", func() {
		It("renders an OKP signature key entry", func() {
			// Given
			pair, err := keys.GenerateKeyPair()
			Expect(err).NotTo(HaveOccurred())
			m := keys.NewManager(pair)

			// When
			raw, err := json.Marshal(m.PublicKeyDescriptor())
			Expect(err).NotTo(HaveOccurred())
			var entry map[string]string
			Expect(json.Unmarshal(raw, &entry)).To(Succeed())

			// Then
			Expect(entry).To(HaveKeyWithValue("kty", "OKP"))
			Expect(entry).To(HaveKeyWithValue("crv", "Ed25519"))
			Expect(entry).To(HaveKeyWithValue("kid", pair.KeyID))
			Expect(entry).To(HaveKeyWithValue("use", "sig"))
			Expect(entry).To(HaveKeyWithValue("alg", "EdDSA"))
			Expect(entry).To(HaveKeyWithValue("x", base64.RawURLEncoding.EncodeToString(pair.Public)))
			Expect(entry).NotTo(HaveKey("d"))
		})

		It("wraps the descriptor in a key set", func() {
			pair, _ := keys.GenerateKeyPair()
			set := keys.NewManager(pair).JWKS()
			Expect(set.Keys).To(HaveLen(1))
			Expect(set.Key(pair.KeyID)).To(HaveLen(1))
		})
	})

	Describe("Sign", func() {
		It("produces signatures the public key verifies", func() {
			pair, _ := keys.GenerateKeyPair()
			m := keys.NewManager(pair)
			sig := m.Sign([]byte("payload"))
			Expect(ed25519.Verify(m.PublicKey(), []byte("payload"), sig)).To(BeTrue())
		})

		It("resolves only its own key id", func() {
			pair, _ := keys.GenerateKeyPair()
			m := keys.NewManager(pair)
			_, ok := m.PublicKeyFor("other")
			Expect(ok).To(BeFalse())
			pub, ok := m.PublicKeyFor(pair.KeyID)
			Expect(ok).To(BeTrue())
			Expect(pub).To(Equal(pair.Public))
		})
	})
})
