package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	apperrors "github.com/frahmantamala/oneaccess/internal"
	"github.com/frahmantamala/oneaccess/internal/auth"
	"github.com/frahmantamala/oneaccess/internal/directory"
	"github.com/frahmantamala/oneaccess/pkg/logger"
)

func TestAuth(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Auth Module Suite")
}

var _ = ginkgo.Describe("AuthService", func() {
	var (
		ctx      context.Context
		dir      *directory.Service
		sessions *auth.SessionManager
		service  *auth.Service
		now      time.Time
	)

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
		dir = directory.NewService(directory.NewMemoryRepository(), logger.Discard())
		gomega.Expect(dir.SeedDemo(ctx)).To(gomega.Succeed())

		now = time.Unix(1_700_000_000, 0)
		var err error
		sessions, err = auth.NewSessionManager("test-secret", time.Hour, auth.WithSessionClock(func() time.Time { return now }))
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		service = auth.NewService(dir, sessions, logger.Discard())
	})

	ginkgo.Describe("Login", func() {
		ginkgo.It("issues a one hour HS256 session for an active user", func() {
			// When
			resp, err := service.Login(ctx, auth.LoginDTO{Email: "Alice@Acme.com"})

			// Then
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(resp.ExpiresAt).To(gomega.Equal(now.Add(time.Hour)))

			claims, err := sessions.Validate(resp.AccessToken)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(claims.Subject).To(gomega.Equal("U_ALICE"))
			gomega.Expect(claims.Email).To(gomega.Equal("alice@acme.com"))
			gomega.Expect(claims.CompanyID).To(gomega.Equal("ACME"))
			gomega.Expect(claims.IssuedAt.Time).To(gomega.Equal(now))

			parsed, _, err := jwt.NewParser().ParseUnverified(resp.AccessToken, &auth.SessionClaims{})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(parsed.Method.Alg()).To(gomega.Equal("HS256"))
		})

		ginkgo.It("refuses unknown users with 403", func() {
			_, err := service.Login(ctx, auth.LoginDTO{Email: "mallory@evil.com"})
			appErr, ok := apperrors.IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(appErr.StatusCode).To(gomega.Equal(http.StatusForbidden))
		})

		ginkgo.It("refuses inactive users with 403", func() {
			gomega.Expect(dir.DeactivateUser(ctx, "U_BOB")).To(gomega.Succeed())
			_, err := service.Login(ctx, auth.LoginDTO{Email: "bob@globex.com"})
			appErr, ok := apperrors.IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(appErr.StatusCode).To(gomega.Equal(http.StatusForbidden))
		})

		ginkgo.It("requires an email", func() {
			_, err := service.Login(ctx, auth.LoginDTO{})
			appErr, ok := apperrors.IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(appErr.StatusCode).To(gomega.Equal(http.StatusBadRequest))
		})
	})

	ginkgo.Describe("Authenticate", func() {
		ginkgo.It("resolves the session to the user", func() {
			resp, err := service.Login(ctx, auth.LoginDTO{Email: "bob@globex.com"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			u, err := service.Authenticate(ctx, resp.AccessToken)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(u.ID).To(gomega.Equal("U_BOB"))
		})

		ginkgo.It("rejects expired sessions", func() {
			resp, _ := service.Login(ctx, auth.LoginDTO{Email: "bob@globex.com"})
			now = now.Add(time.Hour + time.Second)

			_, err := service.Authenticate(ctx, resp.AccessToken)
			gomega.Expect(err).To(gomega.MatchError(apperrors.ErrTokenExpired))
		})

		ginkgo.It("rejects sessions signed with another secret", func() {
			other, err := auth.NewSessionManager("other-secret", time.Hour, auth.WithSessionClock(func() time.Time { return now }))
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			u, _ := dir.User(ctx, "U_ALICE")
			forged, _, err := other.Issue(u)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = service.Authenticate(ctx, forged)
			gomega.Expect(err).To(gomega.MatchError(apperrors.ErrInvalidToken))
		})

		ginkgo.It("rejects a session whose user became inactive", func() {
			resp, _ := service.Login(ctx, auth.LoginDTO{Email: "alice@acme.com"})
			gomega.Expect(dir.DeactivateUser(ctx, "U_ALICE")).To(gomega.Succeed())

			_, err := service.Authenticate(ctx, resp.AccessToken)
			appErr, ok := apperrors.IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(appErr.StatusCode).To(gomega.Equal(http.StatusUnauthorized))
		})

		ginkgo.It("does not sign with the raw secret", func() {
			u, _ := dir.User(ctx, "U_ALICE")
			rawSigned, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &auth.SessionClaims{
				RegisteredClaims: jwt.RegisteredClaims{
					Subject:   u.ID,
					ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
				},
			}).SignedString([]byte("test-secret"))
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = sessions.Validate(rawSigned)
			gomega.Expect(err).To(gomega.HaveOccurred())
		})
	})

	ginkgo.Describe("Handler", func() {
		var handler *auth.Handler

		ginkgo.BeforeEach(func() {
			handler = auth.NewHandler(service, logger.Discard())
		})

		ginkgo.It("returns an access token on login", func() {
			req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"alice@acme.com"}`))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()

			handler.Login(rec, req)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			var body map[string]interface{}
			gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(gomega.Succeed())
			gomega.Expect(body).To(gomega.HaveKey("accessToken"))
		})

		ginkgo.It("rejects malformed bodies", func() {
			req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`not json`))
			rec := httptest.NewRecorder()

			handler.Login(rec, req)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
		})

		ginkgo.It("guards routes with the bearer session", func() {
			protected := handler.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				u, ok := auth.UserFromContext(r.Context())
				gomega.Expect(ok).To(gomega.BeTrue())
				_, _ = w.Write([]byte(u.ID))
			}))

			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/time/current", nil))
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))

			resp, err := service.Login(ctx, auth.LoginDTO{Email: "alice@acme.com"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			req := httptest.NewRequest(http.MethodGet, "/time/current", nil)
			req.Header.Set("Authorization", "Bearer "+resp.AccessToken)
			rec = httptest.NewRecorder()
			protected.ServeHTTP(rec, req)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(rec.Body.String()).To(gomega.Equal("U_ALICE"))
		})
	})
})
