package inventory

import (
	"context"
	"time"
)

// RecordRepository persists InventoryRecord balances
type RecordRepository interface {
	// FindByKey returns the record without locking, or shared.ErrNotFound
	FindByKey(ctx context.Context, key BalanceKey) (*InventoryRecord, error)
	// LockByKey returns the record under a row lock, or shared.ErrNotFound
	LockByKey(ctx context.Context, key BalanceKey) (*InventoryRecord, error)
	// LockOrCreate makes sure the row exists and returns it under a row lock
	LockOrCreate(ctx context.Context, key BalanceKey) (*InventoryRecord, error)
	Save(ctx context.Context, record *InventoryRecord) error
	// FindByWarehouse returns every record of a warehouse ordered by product then bin
	FindByWarehouse(ctx context.Context, warehouseID int64) ([]InventoryRecord, error)
	// FindSellableByProduct returns the warehouse-level records of a product ordered by warehouse
	FindSellableByProduct(ctx context.Context, productID int64) ([]InventoryRecord, error)
}

// MovementFilter narrows a movement listing
type MovementFilter struct {
	ProductID   *int64
	WarehouseID *int64
	Kind        *MovementKind
	Status      *MovementStatus
	Reference   string
	From        *time.Time
	To          *time.Time
	Limit       int
}

// MovementRepository persists movements. There is no delete.
type MovementRepository interface {
	// FindByID returns shared.ErrMovementNotFound when missing
	FindByID(ctx context.Context, id int64) (*Movement, error)
	// LockByID returns the movement under a row lock
	LockByID(ctx context.Context, id int64) (*Movement, error)
	FindByTrackingNumber(ctx context.Context, trackingNumber string) (*Movement, error)
	FindByReference(ctx context.Context, reference string) ([]Movement, error)
	List(ctx context.Context, filter MovementFilter) ([]Movement, error)
	Create(ctx context.Context, movement *Movement) error
	// UpdateStatus persists a status transition of an existing movement
	UpdateStatus(ctx context.Context, movement *Movement) error
}

// CountSessionRepository persists count sessions and their records
type CountSessionRepository interface {
	// FindByID loads the session with its records, or shared.ErrSessionNotFound
	FindByID(ctx context.Context, id int64) (*CountSession, error)
	// LockByID loads the session under a row lock
	LockByID(ctx context.Context, id int64) (*CountSession, error)
	// FindSessionIDByRecord returns the session owning the record, or shared.ErrRecordNotFound
	FindSessionIDByRecord(ctx context.Context, recordID int64) (int64, error)
	// FindOpenByWarehouse returns open sessions of a warehouse
	FindOpenByWarehouse(ctx context.Context, warehouseID int64) ([]CountSession, error)
	Create(ctx context.Context, session *CountSession) error
	// Save persists the session and upserts its records
	Save(ctx context.Context, session *CountSession) error
}
