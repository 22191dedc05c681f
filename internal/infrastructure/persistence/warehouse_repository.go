package persistence

import (
	"context"

	"github.com/fulfillcrm/backend/internal/domain/catalog"
	"github.com/fulfillcrm/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormWarehouseRepository implements WarehouseRepository using GORM
type GormWarehouseRepository struct {
	db *gorm.DB
}

// NewGormWarehouseRepository creates a new GormWarehouseRepository
func NewGormWarehouseRepository(db *gorm.DB) *GormWarehouseRepository {
	return &GormWarehouseRepository{db: db}
}

// FindByID finds a warehouse by its ID
func (r *GormWarehouseRepository) FindByID(ctx context.Context, id int64) (*catalog.Warehouse, error) {
	var warehouse catalog.Warehouse
	if err := r.db.WithContext(ctx).First(&warehouse, "id = ?", id).Error; err != nil {
		return nil, notFound(err, shared.ErrWarehouseNotFound)
	}
	return &warehouse, nil
}

// FindActive returns active warehouses ordered by ascending id
func (r *GormWarehouseRepository) FindActive(ctx context.Context) ([]catalog.Warehouse, error) {
	var warehouses []catalog.Warehouse
	err := r.db.WithContext(ctx).Where("active = ?", true).Order("id").Find(&warehouses).Error
	return warehouses, err
}

// ExistsByName checks if a warehouse name is taken
func (r *GormWarehouseRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&catalog.Warehouse{}).Where("name = ?", name).Count(&count).Error
	return count > 0, err
}

// Create inserts a warehouse
func (r *GormWarehouseRepository) Create(ctx context.Context, warehouse *catalog.Warehouse) error {
	return translateError(r.db.WithContext(ctx).Create(warehouse).Error)
}

// Save updates a warehouse
func (r *GormWarehouseRepository) Save(ctx context.Context, warehouse *catalog.Warehouse) error {
	return translateError(r.db.WithContext(ctx).Save(warehouse).Error)
}

var _ catalog.WarehouseRepository = (*GormWarehouseRepository)(nil)
