package postgres_test

import (
	"context"
	"testing"
	"time"

	delegationDatamodel "github.com/frahmantamala/oneaccess/internal/core/datamodel/delegation"
	"github.com/frahmantamala/oneaccess/internal/delegation"
	delegationPostgres "github.com/frahmantamala/oneaccess/internal/delegation/postgres"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestDelegationPostgres(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Delegation Postgres Suite")
}

var _ = Describe("Delegation Repository", func() {
	var (
		db   *gorm.DB
		repo delegation.RepositoryAPI
		ctx  context.Context
		now  time.Time
	)

	newDelegation := func(id, delegatee string, validUntil time.Time, gates ...string) *delegation.Delegation {
		return &delegation.Delegation{
			ID:          id,
			DelegatorID: "U_ALICE",
			DelegateeID: delegatee,
			GateIDs:     gates,
			ValidUntil:  validUntil,
			CreatedBy:   "U_ALICE",
			Active:      true,
			CreatedAt:   now,
		}
	}

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)

		Expect(db.AutoMigrate(
			&delegationDatamodel.Delegation{},
			&delegationDatamodel.DelegationGate{},
		)).To(Succeed())

		repo = delegationPostgres.NewDelegationRepository(db)
		ctx = context.Background()
		now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	})

	It("stores the gate list alongside the delegation", func() {
		// Given
		Expect(repo.Create(ctx, newDelegation("DEL_AAAA0001", "U_BOB", now.Add(24*time.Hour), "MAIN_GATE", "BLD_ACME"))).To(Succeed())

		// When
		got, err := repo.GetByID(ctx, "DEL_AAAA0001")

		// Then
		Expect(err).NotTo(HaveOccurred())
		Expect(got).NotTo(BeNil())
		Expect(got.GateIDs).To(Equal([]string{"BLD_ACME", "MAIN_GATE"}))
		Expect(got.ValidUntil.Equal(now.Add(24 * time.Hour))).To(BeTrue())
		Expect(got.Active).To(BeTrue())
	})

	It("returns nil for an unknown id", func() {
		got, err := repo.GetByID(ctx, "DEL_MISSING")
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(BeNil())
	})

	It("only returns active unexpired grants for the delegatee", func() {
		Expect(repo.Create(ctx, newDelegation("DEL_AAAA0001", "U_BOB", now.Add(24*time.Hour), "BLD_ACME"))).To(Succeed())
		Expect(repo.Create(ctx, newDelegation("DEL_AAAA0002", "U_BOB", now.Add(-24*time.Hour), "BLD_ACME"))).To(Succeed())
		Expect(repo.Create(ctx, newDelegation("DEL_AAAA0003", "U_BOB", now.Add(24*time.Hour), "BLD_ACME"))).To(Succeed())
		Expect(repo.Create(ctx, newDelegation("DEL_AAAA0004", "U_CAROL", now.Add(24*time.Hour), "BLD_ACME"))).To(Succeed())
		Expect(repo.Deactivate(ctx, "DEL_AAAA0003")).To(Succeed())

		active, err := repo.ActiveForDelegatee(ctx, "U_BOB", now)
		Expect(err).NotTo(HaveOccurred())
		Expect(active).To(HaveLen(1))
		Expect(active[0].ID).To(Equal("DEL_AAAA0001"))
		Expect(active[0].GateIDs).To(Equal([]string{"BLD_ACME"}))
	})

	It("lists everything a delegator created", func() {
		Expect(repo.Create(ctx, newDelegation("DEL_AAAA0001", "U_BOB", now.Add(24*time.Hour), "BLD_ACME"))).To(Succeed())
		Expect(repo.Create(ctx, newDelegation("DEL_AAAA0002", "U_CAROL", now.Add(24*time.Hour), "MAIN_GATE"))).To(Succeed())
		Expect(repo.Deactivate(ctx, "DEL_AAAA0002")).To(Succeed())

		created, err := repo.ListByDelegator(ctx, "U_ALICE")
		Expect(err).NotTo(HaveOccurred())
		Expect(created).To(HaveLen(2))

		none, err := repo.ListByDelegator(ctx, "U_BOB")
		Expect(err).NotTo(HaveOccurred())
		Expect(none).To(BeEmpty())
	})
})
