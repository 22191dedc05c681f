package persistence

import (
	"context"

	"github.com/fulfillcrm/backend/internal/domain/inventory"
	"github.com/fulfillcrm/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultMovementLimit = 500

// GormMovementRepository implements MovementRepository using GORM
type GormMovementRepository struct {
	db *gorm.DB
}

// NewGormMovementRepository creates a new GormMovementRepository
func NewGormMovementRepository(db *gorm.DB) *GormMovementRepository {
	return &GormMovementRepository{db: db}
}

// FindByID finds a movement by its ID
func (r *GormMovementRepository) FindByID(ctx context.Context, id int64) (*inventory.Movement, error) {
	var movement inventory.Movement
	if err := r.db.WithContext(ctx).First(&movement, "id = ?", id).Error; err != nil {
		return nil, notFound(err, shared.ErrMovementNotFound)
	}
	return &movement, nil
}

// LockByID loads a movement under SELECT ... FOR UPDATE
func (r *GormMovementRepository) LockByID(ctx context.Context, id int64) (*inventory.Movement, error) {
	var movement inventory.Movement
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&movement, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, shared.ErrMovementNotFound)
	}
	return &movement, nil
}

// FindByTrackingNumber finds a movement by its tracking number
func (r *GormMovementRepository) FindByTrackingNumber(ctx context.Context, trackingNumber string) (*inventory.Movement, error) {
	var movement inventory.Movement
	if err := r.db.WithContext(ctx).First(&movement, "tracking_number = ?", trackingNumber).Error; err != nil {
		return nil, notFound(err, shared.ErrMovementNotFound)
	}
	return &movement, nil
}

// FindByReference lists the movements of a reference in creation order
func (r *GormMovementRepository) FindByReference(ctx context.Context, reference string) ([]inventory.Movement, error) {
	var movements []inventory.Movement
	err := r.db.WithContext(ctx).Where("reference = ?", reference).Order("id").Find(&movements).Error
	return movements, err
}

// List returns movements matching the filter, newest first
func (r *GormMovementRepository) List(ctx context.Context, filter inventory.MovementFilter) ([]inventory.Movement, error) {
	query := r.db.WithContext(ctx).Model(&inventory.Movement{})
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.WarehouseID != nil {
		query = query.Where("source_warehouse_id = ? OR destination_warehouse_id = ?", *filter.WarehouseID, *filter.WarehouseID)
	}
	if filter.Kind != nil {
		query = query.Where("kind = ?", *filter.Kind)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Reference != "" {
		query = query.Where("reference = ?", filter.Reference)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", filter.To.UTC())
	}
	limit := filter.Limit
	if limit <= 0 || limit > defaultMovementLimit {
		limit = defaultMovementLimit
	}

	var movements []inventory.Movement
	err := query.Order("id DESC").Limit(limit).Find(&movements).Error
	return movements, err
}

// Create appends a movement
func (r *GormMovementRepository) Create(ctx context.Context, movement *inventory.Movement) error {
	return translateError(r.db.WithContext(ctx).Create(movement).Error)
}

// UpdateStatus persists the status columns of an existing movement.
// Quantities and warehouses are never rewritten.
func (r *GormMovementRepository) UpdateStatus(ctx context.Context, movement *inventory.Movement) error {
	result := r.db.WithContext(ctx).Model(&inventory.Movement{}).
		Where("id = ?", movement.ID).
		Updates(map[string]any{
			"status":       movement.Status,
			"processed_by": movement.ProcessedBy,
			"processed_at": movement.ProcessedAt,
			"updated_at":   movement.UpdatedAt,
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrMovementNotFound
	}
	return nil
}

var _ inventory.MovementRepository = (*GormMovementRepository)(nil)
