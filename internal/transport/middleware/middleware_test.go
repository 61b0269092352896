package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/oneaccess/internal"
	"github.com/frahmantamala/oneaccess/internal/auth"
	"github.com/frahmantamala/oneaccess/internal/directory"
	"github.com/frahmantamala/oneaccess/pkg/logger"

	chiMiddleware "github.com/go-chi/chi/middleware"
)

func TestMiddleware(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Middleware Suite")
}

var _ = Describe("Middleware", func() {
	var quiet *slog.Logger

	BeforeEach(func() {
		quiet = slog.New(slog.NewTextHandler(io.Discard, nil))
	})

	Describe("RequestID", func() {
		It("mints a trace id and exposes it to chi", func() {
			var seen string
			h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = chiMiddleware.GetReqID(r.Context())
			}))

			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

			Expect(seen).NotTo(BeEmpty())
			Expect(w.Header().Get(TraceHeader)).To(Equal(seen))
		})

		It("keeps the caller's trace id", func() {
			h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(TraceHeader, "trace-123")

			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			Expect(w.Header().Get(TraceHeader)).To(Equal("trace-123"))
		})
	})

	Describe("RecoveryMiddleware", func() {
		It("answers a panic with a 500 error body", func() {
			h := RecoveryMiddleware(quiet)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				panic("boom")
			}))

			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

			Expect(w.Code).To(Equal(http.StatusInternalServerError))
			Expect(w.Body.String()).To(ContainSubstring("INTERNAL_ERROR"))
			Expect(w.Body.String()).NotTo(ContainSubstring("boom"))
		})
	})

	Describe("CORS", func() {
		It("echoes an allowed origin", func() {
			h := CORS("https://app.example.com")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Origin", "https://app.example.com")

			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			Expect(w.Header().Get("Access-Control-Allow-Origin")).To(Equal("https://app.example.com"))
		})

		It("ignores other origins", func() {
			h := CORS("https://app.example.com")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Origin", "https://evil.example.com")

			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			Expect(w.Header().Get("Access-Control-Allow-Origin")).To(BeEmpty())
		})

		It("short-circuits preflight requests", func() {
			called := false
			h := CORS("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
			req := httptest.NewRequest(http.MethodOptions, "/qr/token", nil)
			req.Header.Set("Origin", "https://app.example.com")
			req.Header.Set("Access-Control-Request-Method", "POST")

			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusNoContent))
			Expect(w.Header().Get("Access-Control-Allow-Origin")).To(Equal("*"))
			Expect(called).To(BeFalse())
		})
	})

	Describe("UserContext", func() {
		It("copies the authenticated user's ids", func() {
			var userID, companyID string
			h := UserContext(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				userID = internal.UserIDFromContext(r.Context())
				companyID = internal.CompanyIDFromContext(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(auth.ContextWithUser(req.Context(), &directory.User{ID: "U_ALICE", CompanyID: "ACME"}))

			h.ServeHTTP(httptest.NewRecorder(), req)

			Expect(userID).To(Equal("U_ALICE"))
			Expect(companyID).To(Equal("ACME"))
		})
	})

	Describe("LoggingMiddleware", func() {
		It("masks bearer material in logged bodies", func() {
			// Given
			var out bytes.Buffer
			lg := slog.New(slog.NewJSONHandler(&out, nil))
			var body string
			h := LoggingMiddleware(lg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				b, _ := io.ReadAll(r.Body)
				body = string(b)
				w.WriteHeader(http.StatusOK)
			}))
			payload := `{"gateId":"BLD_ACME","readerNonce":"nonce-0001","token":"eyJhbGciOi"}`

			// When
			req := httptest.NewRequest(http.MethodPost, "/access/verify", strings.NewReader(payload))
			req.Header.Set("Authorization", "Bearer abc")
			h.ServeHTTP(httptest.NewRecorder(), req)

			// Then
			Expect(body).To(Equal(payload))
			Expect(out.String()).To(ContainSubstring("BLD_ACME"))
			Expect(out.String()).NotTo(ContainSubstring("nonce-0001"))
			Expect(out.String()).NotTo(ContainSubstring("eyJhbGciOi"))
			Expect(out.String()).NotTo(ContainSubstring("Bearer abc"))
		})

		It("hands the trace-scoped logger to handlers", func() {
			// Given
			var out bytes.Buffer
			lg := slog.New(slog.NewJSONHandler(&out, nil))
			h := RequestID(LoggingMiddleware(lg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				logger.From(r.Context()).Info("handled")
			})))
			req := httptest.NewRequest(http.MethodGet, "/delegation/list", nil)
			req.Header.Set(TraceHeader, "trace-abc")

			// When
			h.ServeHTTP(httptest.NewRecorder(), req)

			// Then
			lines := strings.Split(strings.TrimSpace(out.String()), "\n")
			Expect(lines).To(HaveLen(3))
			for _, line := range lines {
				Expect(line).To(ContainSubstring(`"trace_id":"trace-abc"`))
			}
		})

		It("filters nested fields", func() {
			filtered := maskBody([]byte(`{"outer":{"accessToken":"x","gateId":"MAIN_GATE"}}`))

			var decoded map[string]map[string]string
			Expect(json.Unmarshal([]byte(filtered), &decoded)).To(Succeed())
			Expect(decoded["outer"]["accessToken"]).To(Equal("[FILTERED]"))
			Expect(decoded["outer"]["gateId"]).To(Equal("MAIN_GATE"))
		})
	})
})
