package persistence

import (
	"context"
	"time"

	"github.com/fulfillcrm/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormIdempotencyRepository implements IdempotencyRepository using GORM
type GormIdempotencyRepository struct {
	db *gorm.DB
}

// NewGormIdempotencyRepository creates a new GormIdempotencyRepository
func NewGormIdempotencyRepository(db *gorm.DB) *GormIdempotencyRepository {
	return &GormIdempotencyRepository{db: db}
}

// FindActive returns the unexpired record stored under key
func (r *GormIdempotencyRepository) FindActive(ctx context.Context, key string, now time.Time) (*shared.IdempotencyRecord, error) {
	var record shared.IdempotencyRecord
	err := r.db.WithContext(ctx).
		Where("key = ? AND expires_at > ?", key, now.UTC()).
		First(&record).Error
	if err != nil {
		return nil, notFound(err, shared.ErrNotFound)
	}
	return &record, nil
}

// Save inserts the record after clearing an expired one under the same key.
// A live record under the key fails with ALREADY_EXISTS.
func (r *GormIdempotencyRepository) Save(ctx context.Context, record *shared.IdempotencyRecord) error {
	db := r.db.WithContext(ctx)
	err := db.Where("key = ? AND expires_at <= ?", record.Key, record.CreatedAt.UTC()).
		Delete(&shared.IdempotencyRecord{}).Error
	if err != nil {
		return translateError(err)
	}
	return translateError(db.Create(record).Error)
}

// PurgeExpired deletes records whose window has passed
func (r *GormIdempotencyRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at <= ?", now.UTC()).
		Delete(&shared.IdempotencyRecord{})
	return result.RowsAffected, translateError(result.Error)
}

var _ shared.IdempotencyRepository = (*GormIdempotencyRepository)(nil)
