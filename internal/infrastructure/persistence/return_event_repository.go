package persistence

import (
	"context"

	"github.com/fulfillcrm/backend/internal/domain/trade"
	"gorm.io/gorm"
)

// GormReturnEventRepository implements ReturnEventRepository using GORM
type GormReturnEventRepository struct {
	db *gorm.DB
}

// NewGormReturnEventRepository creates a new GormReturnEventRepository
func NewGormReturnEventRepository(db *gorm.DB) *GormReturnEventRepository {
	return &GormReturnEventRepository{db: db}
}

// Create inserts a processed return
func (r *GormReturnEventRepository) Create(ctx context.Context, event *trade.ReturnEvent) error {
	return translateError(r.db.WithContext(ctx).Create(event).Error)
}

// FindByOrder lists the returns processed for an order
func (r *GormReturnEventRepository) FindByOrder(ctx context.Context, orderID int64) ([]trade.ReturnEvent, error) {
	var events []trade.ReturnEvent
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("id").Find(&events).Error
	return events, err
}

var _ trade.ReturnEventRepository = (*GormReturnEventRepository)(nil)
