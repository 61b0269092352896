package delegation_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"

	"github.com/frahmantamala/oneaccess/internal/auth"
	"github.com/frahmantamala/oneaccess/internal/delegation"
	"github.com/frahmantamala/oneaccess/internal/directory"
	"github.com/frahmantamala/oneaccess/internal/transport"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Delegation Handler", func() {
	var (
		ctx    context.Context
		dir    *directory.Service
		router chi.Router
		alice  *directory.User
		bob    *directory.User
	)

	as := func(u *directory.User, req *http.Request) *http.Request {
		req.Header.Set("Content-Type", "application/json")
		return req.WithContext(auth.ContextWithUser(req.Context(), u))
	}

	BeforeEach(func() {
		ctx = context.Background()
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		dir = directory.NewService(directory.NewMemoryRepository(), slogger)
		Expect(dir.SeedDemo(ctx)).To(Succeed())
		alice, _ = dir.User(ctx, "U_ALICE")
		bob, _ = dir.User(ctx, "U_BOB")

		service := delegation.NewService(delegation.NewMemoryRepository(), dir, slogger)
		handler := delegation.NewHandler(&transport.BaseHandler{Logger: slogger}, service)

		router = chi.NewRouter()
		router.Post("/delegation/create", handler.CreateDelegation)
		router.Get("/delegation/list", handler.ListDelegations)
		router.Post("/delegation/{id}/revoke", handler.RevokeDelegation)
	})

	create := func(body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, as(alice, httptest.NewRequest(http.MethodPost, "/delegation/create", strings.NewReader(body))))
		return w
	}

	It("creates, lists and revokes a delegation", func() {
		w := create(`{"delegateeEmail":"bob@globex.com","gateIds":["BLD_ACME"],"hours":4}`)
		Expect(w.Code).To(Equal(http.StatusOK))

		var created delegation.CreateDelegationResponse
		Expect(json.NewDecoder(w.Body).Decode(&created)).To(Succeed())
		Expect(created.Status).To(Equal("created"))
		Expect(created.DelegationID).To(HavePrefix("DEL_"))

		w = httptest.NewRecorder()
		router.ServeHTTP(w, as(bob, httptest.NewRequest(http.MethodGet, "/delegation/list", nil)))
		Expect(w.Code).To(Equal(http.StatusOK))
		var list delegation.ListResponse
		Expect(json.NewDecoder(w.Body).Decode(&list)).To(Succeed())
		Expect(list.Received).To(HaveLen(1))
		Expect(list.Received[0].DelegatorEmail).To(Equal("alice@acme.com"))

		w = httptest.NewRecorder()
		router.ServeHTTP(w, as(bob, httptest.NewRequest(http.MethodPost, "/delegation/"+created.DelegationID+"/revoke", nil)))
		Expect(w.Code).To(Equal(http.StatusForbidden))

		w = httptest.NewRecorder()
		router.ServeHTTP(w, as(alice, httptest.NewRequest(http.MethodPost, "/delegation/"+created.DelegationID+"/revoke", nil)))
		Expect(w.Code).To(Equal(http.StatusOK))
	})

	It("maps validation failures to 400", func() {
		Expect(create(`{"delegateeEmail":"bob@globex.com","gateIds":["BLD_ACME"],"hours":500}`).Code).To(Equal(http.StatusBadRequest))
		Expect(create(`{"gateIds":["BLD_ACME"]}`).Code).To(Equal(http.StatusBadRequest))
		Expect(create(`{`).Code).To(Equal(http.StatusBadRequest))
	})

	It("maps unknown gates and users to 404", func() {
		Expect(create(`{"delegateeEmail":"bob@globex.com","gateIds":["NOPE"]}`).Code).To(Equal(http.StatusNotFound))
		Expect(create(`{"delegateeEmail":"ghost@acme.com","gateIds":["BLD_ACME"]}`).Code).To(Equal(http.StatusNotFound))
	})

	It("refuses foreign building gates with 403", func() {
		w := create(`{"delegateeEmail":"bob@globex.com","gateIds":["BLD_GLOBEX"]}`)
		Expect(w.Code).To(Equal(http.StatusForbidden))
		Expect(w.Body.String()).To(ContainSubstring("Not authorized for gate: BLD_GLOBEX"))
	})

	It("returns 404 when revoking an unknown delegation", func() {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, as(alice, httptest.NewRequest(http.MethodPost, "/delegation/DEL_DEADBEEF/revoke", nil)))
		Expect(w.Code).To(Equal(http.StatusNotFound))
	})

	It("requires an authenticated user", func() {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/delegation/list", nil))
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})
})
