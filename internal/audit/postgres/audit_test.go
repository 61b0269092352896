package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/frahmantamala/oneaccess/internal/audit"
	auditPostgres "github.com/frahmantamala/oneaccess/internal/audit/postgres"
	"github.com/jmoiron/sqlx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestAuditPostgres(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Audit Postgres Suite")
}

const createAuditEvents = `CREATE TABLE audit_events (
	id TEXT PRIMARY KEY,
	ts TIMESTAMP NOT NULL,
	user_id TEXT,
	company_id TEXT,
	gate_id TEXT NOT NULL,
	reader_id TEXT NOT NULL,
	decision TEXT NOT NULL,
	reason TEXT NOT NULL,
	detail TEXT NOT NULL,
	door_status TEXT NOT NULL,
	delegated_by TEXT,
	visitor_pass_id TEXT,
	annotation TEXT,
	auto_closed_session_id TEXT
)`

var _ = Describe("Audit Store", func() {
	var (
		store *auditPostgres.AuditStore
		ctx   context.Context
	)

	BeforeEach(func() {
		gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := gdb.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)

		db := sqlx.NewDb(sqlDB, "sqlite3")
		_, err = db.Exec(createAuditEvents)
		Expect(err).NotTo(HaveOccurred())

		store = auditPostgres.NewAuditStore(db)
		ctx = context.Background()
	})

	It("returns the newest events first with nullable columns intact", func() {
		// Given
		t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		recorder := audit.NewRecorder(store, nil, audit.WithClock(func() time.Time { return t0 }))
		Expect(recorder.Record(ctx, &audit.Event{
			GateID: "BLD_ACME", ReaderID: "R1", Decision: audit.DecisionDeny,
			Reason: "INVALID_TOKEN", Detail: "Invalid token", DoorStatus: audit.DoorUnknown,
		})).To(Succeed())
		Expect(recorder.Record(ctx, &audit.Event{
			UserID: audit.StringPtr("U_ALICE"), CompanyID: audit.StringPtr("ACME"),
			GateID: "BLD_ACME", ReaderID: "R1", Decision: audit.DecisionAllow,
			Reason: "OK", Detail: "OK", DoorStatus: audit.DoorOpened,
			Annotation:          audit.StringPtr(audit.AnnotationPriorSessionAutoClosed),
			AutoClosedSessionID: audit.StringPtr("SES_000000000001"),
		})).To(Succeed())

		// When
		events, err := recorder.List(ctx, 50)

		// Then
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(HaveLen(2))
		Expect(events[0].Decision).To(Equal(audit.DecisionAllow))
		Expect(*events[0].UserID).To(Equal("U_ALICE"))
		Expect(*events[0].Annotation).To(Equal(audit.AnnotationPriorSessionAutoClosed))
		Expect(events[0].Timestamp.After(events[1].Timestamp)).To(BeTrue())
		Expect(events[1].UserID).To(BeNil())
		Expect(events[1].Annotation).To(BeNil())
	})

	It("honours the limit", func() {
		recorder := audit.NewRecorder(store, nil)
		for i := 0; i < 5; i++ {
			Expect(recorder.Record(ctx, &audit.Event{
				GateID: "MAIN_GATE", ReaderID: "R1", Decision: audit.DecisionAllow,
				Reason: "OK", Detail: "OK", DoorStatus: audit.DoorOpened,
			})).To(Succeed())
		}
		events, err := recorder.List(ctx, 3)
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(HaveLen(3))
	})
})
