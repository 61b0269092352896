package timetracking_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	"github.com/frahmantamala/oneaccess/internal"
	"github.com/frahmantamala/oneaccess/internal/directory"
	"github.com/frahmantamala/oneaccess/internal/timetracking"
	"github.com/frahmantamala/oneaccess/internal/transport"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Time Tracking Handler", func() {
	var (
		service *timetracking.Service
		handler *timetracking.Handler
		alice   *directory.User
	)

	as := func(req *http.Request) *http.Request {
		return req.WithContext(internal.ContextWithUserID(req.Context(), alice.ID))
	}

	BeforeEach(func() {
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = timetracking.NewService(timetracking.NewMemoryRepository(), slogger)
		handler = timetracking.NewHandler(&transport.BaseHandler{Logger: slogger}, service)
		alice = &directory.User{ID: "U_ALICE", Email: "alice@acme.com", CompanyID: "ACME", Active: true}

		t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		_, err := service.Start(context.Background(), "U_ALICE", "ACME", "BLD_ACME", t0)
		Expect(err).NotTo(HaveOccurred())
		_, err = service.End(context.Background(), "U_ALICE", "BLD_ACME", t0.Add(time.Hour))
		Expect(err).NotTo(HaveOccurred())
		_, err = service.Start(context.Background(), "U_ALICE", "ACME", "BLD_ACME", t0.Add(2*time.Hour))
		Expect(err).NotTo(HaveOccurred())
	})

	It("lists sessions newest first with a limit", func() {
		w := httptest.NewRecorder()
		handler.ListSessions(w, as(httptest.NewRequest(http.MethodGet, "/time/sessions?limit=1", nil)))

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp timetracking.SessionsResponse
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		Expect(resp.Sessions).To(HaveLen(1))
		Expect(resp.Sessions[0].Status).To(Equal(timetracking.StatusActive))
	})

	It("returns the current session", func() {
		w := httptest.NewRecorder()
		handler.CurrentSession(w, as(httptest.NewRequest(http.MethodGet, "/time/current", nil)))

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp timetracking.CurrentResponse
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		Expect(resp.Session).NotTo(BeNil())
		Expect(resp.Session.GateIDEntry).To(Equal("BLD_ACME"))
	})

	It("returns the summary", func() {
		w := httptest.NewRecorder()
		handler.GetSummary(w, as(httptest.NewRequest(http.MethodGet, "/time/summary", nil)))

		Expect(w.Code).To(Equal(http.StatusOK))
		var body map[string]interface{}
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		Expect(body["totalSessions"]).To(BeNumerically("==", 1))
		Expect(body["totalTimeSeconds"]).To(BeNumerically("==", 3600))
		Expect(body["totalTimeFormatted"]).To(Equal("1h 00m 00s"))
		Expect(body["hasActiveSession"]).To(BeTrue())
	})

	It("requires a user", func() {
		w := httptest.NewRecorder()
		handler.GetSummary(w, httptest.NewRequest(http.MethodGet, "/time/summary", nil))
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})
})
