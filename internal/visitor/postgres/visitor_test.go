package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	apperrors "github.com/frahmantamala/oneaccess/internal"
	visitorDatamodel "github.com/frahmantamala/oneaccess/internal/core/datamodel/visitor"
	"github.com/frahmantamala/oneaccess/internal/visitor"
	visitorPostgres "github.com/frahmantamala/oneaccess/internal/visitor/postgres"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestVisitorPostgres(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Visitor Postgres Suite")
}

var _ = Describe("Visitor Repository", func() {
	var (
		db   *gorm.DB
		repo visitor.RepositoryAPI
		ctx  context.Context
		now  time.Time
	)

	seed := func(id string, maxUses int) {
		Expect(repo.Create(ctx, &visitor.Pass{
			ID:            id,
			CreatedBy:     "U_ALICE",
			VisitorName:   "Vera",
			VisitorPhone:  "+62",
			GateIDs:       []string{"BLD_ACME", "MAIN_GATE"},
			ValidUntil:    now.Add(24 * time.Hour),
			HostCompanyID: "ACME",
			Active:        true,
			MaxUses:       maxUses,
			CreatedAt:     now,
		})).To(Succeed())
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
			&visitorDatamodel.Pass{},
			&visitorDatamodel.PassGate{},
			&visitorDatamodel.Redemption{},
		)).To(Succeed())

		repo = visitorPostgres.NewVisitorRepository(db)
		ctx = context.Background()
		now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	})

	It("round trips a pass with its gates", func() {
		seed("VIS_00000001", 5)

		got, err := repo.GetByID(ctx, "VIS_00000001")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.GateIDs).To(Equal([]string{"BLD_ACME", "MAIN_GATE"}))
		Expect(got.HostCompanyID).To(Equal("ACME"))
		Expect(got.MaxUses).To(Equal(5))

		missing, err := repo.GetByID(ctx, "VIS_MISSING")
		Expect(err).NotTo(HaveOccurred())
		Expect(missing).To(BeNil())
	})

	It("consumes up to the cap and then refuses", func() {
		seed("VIS_00000001", 2)

		for i := 1; i <= 2; i++ {
			c, err := repo.ConsumeUse(ctx, "VIS_00000001", fmt.Sprintf("jti-%d", i), now)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Duplicate).To(BeFalse())
			Expect(c.Pass.UsedCount).To(Equal(i))
		}

		_, err := repo.ConsumeUse(ctx, "VIS_00000001", "jti-3", now)
		Expect(err).To(MatchError(apperrors.ErrPassExhausted))

		var claims int64
		Expect(db.Model(&visitorDatamodel.Redemption{}).Count(&claims).Error).To(Succeed())
		Expect(claims).To(Equal(int64(2)))
	})

	It("treats a repeated token id as a duplicate", func() {
		seed("VIS_00000001", 5)

		_, err := repo.ConsumeUse(ctx, "VIS_00000001", "jti-1", now)
		Expect(err).NotTo(HaveOccurred())
		c, err := repo.ConsumeUse(ctx, "VIS_00000001", "jti-1", now)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Duplicate).To(BeTrue())
		Expect(c.Pass.UsedCount).To(Equal(1))
	})

	It("classifies expired and revoked passes", func() {
		seed("VIS_00000001", 5)
		seed("VIS_00000002", 5)
		Expect(repo.Deactivate(ctx, "VIS_00000002")).To(Succeed())

		_, err := repo.ConsumeUse(ctx, "VIS_00000001", "jti-1", now.Add(48*time.Hour))
		Expect(err).To(MatchError(apperrors.ErrPassExpired))

		_, err = repo.ConsumeUse(ctx, "VIS_00000002", "jti-1", now)
		Expect(err).To(MatchError(apperrors.ErrPassNotFound))

		_, err = repo.ConsumeUse(ctx, "VIS_MISSING", "jti-1", now)
		Expect(err).To(MatchError(apperrors.ErrPassNotFound))
	})

	It("lists passes by creator", func() {
		seed("VIS_00000001", 5)
		seed("VIS_00000002", 5)

		passes, err := repo.ListByCreator(ctx, "U_ALICE")
		Expect(err).NotTo(HaveOccurred())
		Expect(passes).To(HaveLen(2))

		none, err := repo.ListByCreator(ctx, "U_BOB")
		Expect(err).NotTo(HaveOccurred())
		Expect(none).To(BeEmpty())
	})
})
