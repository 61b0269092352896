package postgres

import (
	"context"
	"errors"
	"time"

	directoryDatamodel "github.com/frahmantamala/oneaccess/internal/core/datamodel/directory"
	"github.com/frahmantamala/oneaccess/internal/directory"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DirectoryRepository struct {
	db *gorm.DB
}

func NewDirectoryRepository(db *gorm.DB) directory.RepositoryAPI {
	return &DirectoryRepository{db: db}
}

func (r *DirectoryRepository) UserByID(ctx context.Context, id string) (*directory.User, error) {
	var u directoryDatamodel.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return directory.UserFromDataModel(&u), nil
}

func (r *DirectoryRepository) UserByEmail(ctx context.Context, email string) (*directory.User, error) {
	var u directoryDatamodel.User
	err := r.db.WithContext(ctx).Where("email = ?", directory.NormalizeEmail(email)).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return directory.UserFromDataModel(&u), nil
}

func (r *DirectoryRepository) SaveUser(ctx context.Context, u *directory.User) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"email", "company_id", "active"}),
		}).
		Create(directory.UserToDataModel(u)).Error
}

func (r *DirectoryRepository) Gate(ctx context.Context, id string) (*directory.Gate, error) {
	var g directoryDatamodel.Gate
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&g).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return directory.GateFromDataModel(&g), nil
}

func (r *DirectoryRepository) Gates(ctx context.Context) ([]*directory.Gate, error) {
	var rows []*directoryDatamodel.Gate
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*directory.Gate, 0, len(rows))
	for _, g := range rows {
		out = append(out, directory.GateFromDataModel(g))
	}
	return out, nil
}

func (r *DirectoryRepository) SaveGate(ctx context.Context, g *directory.Gate) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"kind", "company_id"}),
		}).
		Create(directory.GateToDataModel(g)).Error
}

func (r *DirectoryRepository) IsDeviceRevoked(ctx context.Context, deviceID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&directoryDatamodel.RevokedDevice{}).
		Where("device_id = ?", deviceID).
		Count(&count).Error
	return count > 0, err
}

func (r *DirectoryRepository) RevokeDevice(ctx context.Context, deviceID string, at time.Time) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&directoryDatamodel.RevokedDevice{DeviceID: deviceID, RevokedAt: at}).Error
}
