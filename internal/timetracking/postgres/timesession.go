package postgres

import (
	"context"
	"errors"
	"time"

	timesessionDatamodel "github.com/frahmantamala/oneaccess/internal/core/datamodel/timesession"
	"github.com/frahmantamala/oneaccess/internal/timetracking"
	"gorm.io/gorm"
)

type TimeSessionRepository struct {
	db *gorm.DB
}

func NewTimeSessionRepository(db *gorm.DB) timetracking.RepositoryAPI {
	return &TimeSessionRepository{db: db}
}

func (r *TimeSessionRepository) Active(ctx context.Context, userID string) (*timetracking.Session, error) {
	var row timesessionDatamodel.TimeSession
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, string(timetracking.StatusActive)).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return timetracking.FromDataModel(&row), nil
}

func (r *TimeSessionRepository) Start(ctx context.Context, prior, next *timetracking.Session) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if prior != nil {
			if err := tx.Save(timetracking.ToDataModel(prior)).Error; err != nil {
				return err
			}
		}
		return tx.Create(timetracking.ToDataModel(next)).Error
	})
}

func (r *TimeSessionRepository) Complete(ctx context.Context, s *timetracking.Session) error {
	return r.db.WithContext(ctx).Save(timetracking.ToDataModel(s)).Error
}

func (r *TimeSessionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*timetracking.Session, error) {
	var rows []*timesessionDatamodel.TimeSession
	q := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("entry_time DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*timetracking.Session, 0, len(rows))
	for _, row := range rows {
		out = append(out, timetracking.FromDataModel(row))
	}
	return out, nil
}

func (r *TimeSessionRepository) CompletedStats(ctx context.Context, userID string) (int64, int64, error) {
	var stats struct {
		Count int64
		Total int64
	}
	err := r.db.WithContext(ctx).
		Model(&timesessionDatamodel.TimeSession{}).
		Select("COUNT(*) AS count, COALESCE(SUM(duration_seconds), 0) AS total").
		Where("user_id = ? AND status = ?", userID, string(timetracking.StatusCompleted)).
		Scan(&stats).Error
	if err != nil {
		return 0, 0, err
	}
	return stats.Count, stats.Total, nil
}

func (r *TimeSessionRepository) DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("status = ? AND exit_time < ?", string(timetracking.StatusCompleted), cutoff.UTC()).
		Delete(&timesessionDatamodel.TimeSession{})
	return res.RowsAffected, res.Error
}
