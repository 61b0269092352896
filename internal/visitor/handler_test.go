package visitor_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"

	"github.com/frahmantamala/oneaccess/internal/auth"
	"github.com/frahmantamala/oneaccess/internal/directory"
	"github.com/frahmantamala/oneaccess/internal/transport"
	"github.com/frahmantamala/oneaccess/internal/visitor"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Visitor Handler", func() {
	var (
		router chi.Router
		alice  *directory.User
		bob    *directory.User
	)

	as := func(u *directory.User, req *http.Request) *http.Request {
		req.Header.Set("Content-Type", "application/json")
		return req.WithContext(auth.ContextWithUser(req.Context(), u))
	}

	BeforeEach(func() {
		ctx := context.Background()
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		dir := directory.NewService(directory.NewMemoryRepository(), slogger)
		Expect(dir.SeedDemo(ctx)).To(Succeed())
		alice, _ = dir.User(ctx, "U_ALICE")
		bob, _ = dir.User(ctx, "U_BOB")

		service := visitor.NewService(visitor.NewMemoryRepository(), dir, slogger)
		handler := visitor.NewHandler(&transport.BaseHandler{Logger: slogger}, service)

		router = chi.NewRouter()
		router.Post("/visitor/create", handler.CreatePass)
		router.Get("/visitor/list", handler.ListPasses)
		router.Post("/visitor/{id}/revoke", handler.RevokePass)
	})

	It("creates, lists and revokes a pass", func() {
		w := httptest.NewRecorder()
		body := `{"visitorName":"Vera","visitorPhone":"+62","gateIds":["BLD_ACME"],"hours":8}`
		router.ServeHTTP(w, as(alice, httptest.NewRequest(http.MethodPost, "/visitor/create", strings.NewReader(body))))
		Expect(w.Code).To(Equal(http.StatusOK))

		var created visitor.CreatePassResponse
		Expect(json.NewDecoder(w.Body).Decode(&created)).To(Succeed())
		Expect(created.Status).To(Equal("created"))
		Expect(created.MaxUses).To(Equal(5))

		w = httptest.NewRecorder()
		router.ServeHTTP(w, as(alice, httptest.NewRequest(http.MethodGet, "/visitor/list", nil)))
		var list visitor.ListResponse
		Expect(json.NewDecoder(w.Body).Decode(&list)).To(Succeed())
		Expect(list.VisitorPasses).To(HaveLen(1))
		Expect(list.VisitorPasses[0].PassID).To(Equal(created.PassID))

		w = httptest.NewRecorder()
		router.ServeHTTP(w, as(bob, httptest.NewRequest(http.MethodPost, "/visitor/"+created.PassID+"/revoke", nil)))
		Expect(w.Code).To(Equal(http.StatusForbidden))

		w = httptest.NewRecorder()
		router.ServeHTTP(w, as(alice, httptest.NewRequest(http.MethodPost, "/visitor/"+created.PassID+"/revoke", nil)))
		Expect(w.Code).To(Equal(http.StatusOK))
	})

	DescribeTable("maps validation and gate failures",
		func(body string, status int) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, as(alice, httptest.NewRequest(http.MethodPost, "/visitor/create", strings.NewReader(body))))
			Expect(w.Code).To(Equal(status))
		},
		Entry("missing name", `{"visitorPhone":"+62","gateIds":["BLD_ACME"]}`, http.StatusBadRequest),
		Entry("too many hours", `{"visitorName":"V","visitorPhone":"+62","gateIds":["BLD_ACME"],"hours":80}`, http.StatusBadRequest),
		Entry("unknown gate", `{"visitorName":"V","visitorPhone":"+62","gateIds":["NOPE"]}`, http.StatusNotFound),
		Entry("foreign building", `{"visitorName":"V","visitorPhone":"+62","gateIds":["BLD_GLOBEX"]}`, http.StatusForbidden),
	)
})
