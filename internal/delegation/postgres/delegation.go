package postgres

import (
	"context"
	"errors"
	"time"

	delegationDatamodel "github.com/frahmantamala/oneaccess/internal/core/datamodel/delegation"
	"github.com/frahmantamala/oneaccess/internal/delegation"
	"gorm.io/gorm"
)

type DelegationRepository struct {
	db *gorm.DB
}

func NewDelegationRepository(db *gorm.DB) delegation.RepositoryAPI {
	return &DelegationRepository{db: db}
}

func (r *DelegationRepository) Create(ctx context.Context, d *delegation.Delegation) error {
	return r.db.WithContext(ctx).Create(delegation.ToDataModel(d)).Error
}

func (r *DelegationRepository) GetByID(ctx context.Context, id string) (*delegation.Delegation, error) {
	var row delegationDatamodel.Delegation
	err := r.db.WithContext(ctx).Preload("Gates").Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return delegation.FromDataModel(&row), nil
}

func (r *DelegationRepository) ActiveForDelegatee(ctx context.Context, userID string, now time.Time) ([]*delegation.Delegation, error) {
	var rows []*delegationDatamodel.Delegation
	err := r.db.WithContext(ctx).
		Preload("Gates").
		Where("delegatee_id = ? AND active = ? AND valid_until > ?", userID, true, now.UTC()).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return fromRows(rows), nil
}

func (r *DelegationRepository) ListByDelegator(ctx context.Context, userID string) ([]*delegation.Delegation, error) {
	var rows []*delegationDatamodel.Delegation
	err := r.db.WithContext(ctx).
		Preload("Gates").
		Where("delegator_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return fromRows(rows), nil
}

func (r *DelegationRepository) Deactivate(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&delegationDatamodel.Delegation{}).
		Where("id = ?", id).
		Update("active", false).Error
}

func fromRows(rows []*delegationDatamodel.Delegation) []*delegation.Delegation {
	out := make([]*delegation.Delegation, 0, len(rows))
	for _, row := range rows {
		out = append(out, delegation.FromDataModel(row))
	}
	return out
}
