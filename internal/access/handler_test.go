package access_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/oneaccess/internal/access"
	"github.com/frahmantamala/oneaccess/internal/auth"
	"github.com/frahmantamala/oneaccess/internal/directory"
	"github.com/frahmantamala/oneaccess/internal/keys"
	"github.com/frahmantamala/oneaccess/internal/transport"
)

var _ = Describe("Access Handler", func() {
	var (
		f       *fixture
		manager *keys.Manager
		router  chi.Router
	)

	as := func(u *directory.User, req *http.Request) *http.Request {
		req.Header.Set("Content-Type", "application/json")
		return req.WithContext(auth.ContextWithUser(req.Context(), u))
	}

	post := func(req *http.Request) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	BeforeEach(func() {
		f = newFixture()
		pair, err := keys.GenerateKeyPair()
		Expect(err).NotTo(HaveOccurred())
		manager = keys.NewManager(pair)

		handler := access.NewHandler(&transport.BaseHandler{Logger: f.logger}, f.service(), manager)
		router = chi.NewRouter()
		router.Get("/.well-known/jwks.json", handler.JWKS)
		router.Post("/qr/token", handler.IssueQRToken)
		router.Post("/visitor/token", handler.IssueVisitorToken)
		router.Post("/access/verify", handler.Verify)
	})

	It("publishes the signing key", func() {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil))

		Expect(w.Code).To(Equal(http.StatusOK))
		var body struct {
			Keys []map[string]interface{} `json:"keys"`
		}
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		Expect(body.Keys).To(HaveLen(1))
		Expect(body.Keys[0]).To(HaveKeyWithValue("kid", manager.KeyID()))
		Expect(body.Keys[0]).To(HaveKeyWithValue("kty", "OKP"))
		Expect(body.Keys[0]).To(HaveKeyWithValue("alg", "EdDSA"))
		Expect(body.Keys[0]).NotTo(HaveKey("d"))
	})

	It("requires a bearer user for QR tokens", func() {
		w := post(httptest.NewRequest(http.MethodPost, "/qr/token", strings.NewReader(`{"gateId":"MAIN_GATE","readerNonce":"nonce-0001"}`)))
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})

	It("issues and verifies a token end to end", func() {
		// Given
		w := post(as(f.alice, httptest.NewRequest(http.MethodPost, "/qr/token",
			strings.NewReader(`{"gateId":"BLD_ACME","readerNonce":"nonce-0001"}`))))
		Expect(w.Code).To(Equal(http.StatusOK))
		var issued access.TokenResponse
		Expect(json.NewDecoder(w.Body).Decode(&issued)).To(Succeed())
		Expect(issued.Token).NotTo(BeEmpty())

		// When
		body := `{"readerId":"R1","gateId":"BLD_ACME","token":"` + issued.Token + `","doorOpened":true,"direction":"ENTRY"}`
		w = post(httptest.NewRequest(http.MethodPost, "/access/verify", strings.NewReader(body)))

		// Then
		Expect(w.Code).To(Equal(http.StatusOK))
		var decided map[string]interface{}
		Expect(json.NewDecoder(w.Body).Decode(&decided)).To(Succeed())
		Expect(decided).To(HaveKeyWithValue("decision", "ALLOW"))
		Expect(decided).To(HaveKeyWithValue("reason", "OK"))
		Expect(decided).To(HaveKey("session"))
	})

	It("answers a DENY with 200", func() {
		w := post(httptest.NewRequest(http.MethodPost, "/access/verify",
			strings.NewReader(`{"readerId":"R1","gateId":"BLD_ACME","token":"garbage"}`)))

		Expect(w.Code).To(Equal(http.StatusOK))
		var decided access.VerifyResponse
		Expect(json.NewDecoder(w.Body).Decode(&decided)).To(Succeed())
		Expect(decided.Reason).To(Equal(access.ReasonInvalidToken))
	})

	DescribeTable("maps request failures",
		func(path, body string, status int) {
			w := post(httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
			Expect(w.Code).To(Equal(status))
		},
		Entry("verify missing fields", "/access/verify", `{"gateId":"BLD_ACME"}`, http.StatusBadRequest),
		Entry("verify unknown gate", "/access/verify", `{"readerId":"R1","gateId":"NOPE","token":"x"}`, http.StatusNotFound),
		Entry("verify bad json", "/access/verify", `{`, http.StatusBadRequest),
		Entry("visitor unknown pass", "/visitor/token", `{"passId":"VIS_00000000","gateId":"MAIN_GATE","readerNonce":"nonce-0001"}`, http.StatusNotFound),
		Entry("visitor short nonce", "/visitor/token", `{"passId":"VIS_00000000","gateId":"MAIN_GATE","readerNonce":"short"}`, http.StatusBadRequest),
	)
})
