package persistence

import (
	"context"
	"time"

	"github.com/fulfillcrm/backend/internal/domain/inventory"
	"github.com/fulfillcrm/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRecordRepository implements RecordRepository using GORM
type GormRecordRepository struct {
	db *gorm.DB
}

// NewGormRecordRepository creates a new GormRecordRepository
func NewGormRecordRepository(db *gorm.DB) *GormRecordRepository {
	return &GormRecordRepository{db: db}
}

func (r *GormRecordRepository) byKey(ctx context.Context, key inventory.BalanceKey) *gorm.DB {
	return r.db.WithContext(ctx).
		Where("warehouse_id = ? AND product_id = ? AND bin = ?", key.WarehouseID, key.ProductID, key.Bin)
}

// FindByKey returns the record without locking
func (r *GormRecordRepository) FindByKey(ctx context.Context, key inventory.BalanceKey) (*inventory.InventoryRecord, error) {
	var record inventory.InventoryRecord
	if err := r.byKey(ctx, key).First(&record).Error; err != nil {
		return nil, notFound(err, shared.ErrNotFound)
	}
	return &record, nil
}

// LockByKey returns the record under SELECT ... FOR UPDATE
func (r *GormRecordRepository) LockByKey(ctx context.Context, key inventory.BalanceKey) (*inventory.InventoryRecord, error) {
	var record inventory.InventoryRecord
	err := r.byKey(ctx, key).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&record).Error
	if err != nil {
		return nil, notFound(err, shared.ErrNotFound)
	}
	return &record, nil
}

// LockOrCreate inserts an empty row when the key is new, then locks it.
// Concurrent creators collide on the unique key and the loser's insert is a no-op.
func (r *GormRecordRepository) LockOrCreate(ctx context.Context, key inventory.BalanceKey) (*inventory.InventoryRecord, error) {
	fresh := inventory.NewInventoryRecord(key, time.Now())
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "warehouse_id"}, {Name: "product_id"}, {Name: "bin"}},
			DoNothing: true,
		}).
		Create(fresh).Error
	if err != nil {
		return nil, translateError(err)
	}
	return r.LockByKey(ctx, key)
}

// Save writes the record's balance
func (r *GormRecordRepository) Save(ctx context.Context, record *inventory.InventoryRecord) error {
	return translateError(r.db.WithContext(ctx).Save(record).Error)
}

// FindByWarehouse returns every record of a warehouse ordered by product then bin
func (r *GormRecordRepository) FindByWarehouse(ctx context.Context, warehouseID int64) ([]inventory.InventoryRecord, error) {
	var records []inventory.InventoryRecord
	err := r.db.WithContext(ctx).
		Where("warehouse_id = ?", warehouseID).
		Order("product_id, bin").
		Find(&records).Error
	return records, err
}

// FindSellableByProduct returns the warehouse-level records of a product ordered by warehouse
func (r *GormRecordRepository) FindSellableByProduct(ctx context.Context, productID int64) ([]inventory.InventoryRecord, error) {
	var records []inventory.InventoryRecord
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND bin = ?", productID, "").
		Order("warehouse_id").
		Find(&records).Error
	return records, err
}

var _ inventory.RecordRepository = (*GormRecordRepository)(nil)
