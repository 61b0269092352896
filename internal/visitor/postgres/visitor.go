package postgres

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/frahmantamala/oneaccess/internal"
	visitorDatamodel "github.com/frahmantamala/oneaccess/internal/core/datamodel/visitor"
	"github.com/frahmantamala/oneaccess/internal/visitor"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VisitorRepository struct {
	db *gorm.DB
}

func NewVisitorRepository(db *gorm.DB) visitor.RepositoryAPI {
	return &VisitorRepository{db: db}
}

func (r *VisitorRepository) Create(ctx context.Context, p *visitor.Pass) error {
	return r.db.WithContext(ctx).Create(visitor.ToDataModel(p)).Error
}

func (r *VisitorRepository) GetByID(ctx context.Context, id string) (*visitor.Pass, error) {
	row, err := loadPass(r.db.WithContext(ctx), id)
	if err != nil || row == nil {
		return nil, err
	}
	return visitor.FromDataModel(row), nil
}

func (r *VisitorRepository) ListByCreator(ctx context.Context, userID string) ([]*visitor.Pass, error) {
	var rows []*visitorDatamodel.Pass
	err := r.db.WithContext(ctx).
		Preload("Gates").
		Where("created_by = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]*visitor.Pass, 0, len(rows))
	for _, row := range rows {
		out = append(out, visitor.FromDataModel(row))
	}
	return out, nil
}

func (r *VisitorRepository) Deactivate(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&visitorDatamodel.Pass{}).
		Where("id = ?", id).
		Update("active", false).Error
}

// ConsumeUse claims (pass_id, jti) and bumps used_count with a guarded UPDATE
// inside one transaction. A failed guard rolls the claim back.
func (r *VisitorRepository) ConsumeUse(ctx context.Context, passID, jti string, now time.Time) (*visitor.Consumption, error) {
	var (
		row       *visitorDatamodel.Pass
		duplicate bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claim := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&visitorDatamodel.Redemption{
			PassID:     passID,
			JTI:        jti,
			RedeemedAt: now.UTC(),
		})
		if claim.Error != nil {
			return claim.Error
		}

		if claim.RowsAffected == 0 {
			duplicate = true
		} else {
			upd := tx.Model(&visitorDatamodel.Pass{}).
				Where("id = ? AND active = ? AND valid_until > ? AND used_count < max_uses", passID, true, now.UTC()).
				UpdateColumn("used_count", gorm.Expr("used_count + 1"))
			if upd.Error != nil {
				return upd.Error
			}
			if upd.RowsAffected == 0 {
				current, err := loadPass(tx, passID)
				if err != nil {
					return err
				}
				return rejection(current, now)
			}
		}

		var err error
		row, err = loadPass(tx, passID)
		if err != nil {
			return err
		}
		if row == nil || !row.Active {
			return apperrors.ErrPassNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &visitor.Consumption{Pass: visitor.FromDataModel(row), Duplicate: duplicate}, nil
}

func rejection(row *visitorDatamodel.Pass, now time.Time) error {
	switch {
	case row == nil || !row.Active:
		return apperrors.ErrPassNotFound
	case !row.ValidUntil.After(now):
		return apperrors.ErrPassExpired
	default:
		return apperrors.ErrPassExhausted
	}
}

func loadPass(db *gorm.DB, id string) (*visitorDatamodel.Pass, error) {
	var row visitorDatamodel.Pass
	err := db.Preload("Gates").Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}
