package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "github.com/heapwalker/pkg/errors"
)

// GormSnapshotRepository implements SnapshotRepository using GORM.
type GormSnapshotRepository struct {
	db *gorm.DB
}

// NewGormSnapshotRepository creates a new GormSnapshotRepository.
func NewGormSnapshotRepository(db *gorm.DB) *GormSnapshotRepository {
	return &GormSnapshotRepository{db: db}
}

// Migrate creates or updates the catalog table.
func (r *GormSnapshotRepository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&SnapshotRecord{}); err != nil {
		return apperrors.Wrap(apperrors.CodeDatabaseError, "failed to migrate snapshot catalog", err)
	}
	return nil
}

// Create implements SnapshotRepository.
func (r *GormSnapshotRepository) Create(ctx context.Context, rec *SnapshotRecord) error {
	if rec == nil || rec.StorageKey == "" {
		return apperrors.New(apperrors.CodeInvalidInput, "snapshot record requires a storage key")
	}
	rec.prepare(time.Now())

	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return apperrors.Wrap(apperrors.CodeDatabaseError, "failed to create snapshot record", err)
	}
	return nil
}

// GetByUUID implements SnapshotRepository.
func (r *GormSnapshotRepository) GetByUUID(ctx context.Context, uuid string) (*SnapshotRecord, error) {
	return r.first(ctx, "uuid = ?", uuid)
}

// GetByKey implements SnapshotRepository.
func (r *GormSnapshotRepository) GetByKey(ctx context.Context, key string) (*SnapshotRecord, error) {
	return r.first(ctx, "storage_key = ?", key)
}

func (r *GormSnapshotRepository) first(ctx context.Context, query string, arg string) (*SnapshotRecord, error) {
	var rec SnapshotRecord

	err := r.db.WithContext(ctx).Where(query, arg).Order("id DESC").First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.CodeNotFound, "snapshot not found: %s", arg)
		}
		return nil, apperrors.Wrap(apperrors.CodeDatabaseError, "failed to get snapshot record", err)
	}
	return &rec, nil
}

// List implements SnapshotRepository.
func (r *GormSnapshotRepository) List(ctx context.Context, limit int) ([]*SnapshotRecord, error) {
	var records []*SnapshotRecord

	q := r.db.WithContext(ctx).Order("create_time DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&records).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDatabaseError, "failed to list snapshot records", err)
	}
	return records, nil
}

// Delete implements SnapshotRepository.
func (r *GormSnapshotRepository) Delete(ctx context.Context, uuid string) error {
	result := r.db.WithContext(ctx).Where("uuid = ?", uuid).Delete(&SnapshotRecord{})
	if result.Error != nil {
		return apperrors.Wrap(apperrors.CodeDatabaseError, "failed to delete snapshot record", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.Newf(apperrors.CodeNotFound, "snapshot not found: %s", uuid)
	}
	return nil
}
