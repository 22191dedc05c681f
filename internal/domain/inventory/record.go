package inventory

import (
	"fmt"
	"time"

	"github.com/fulfillcrm/backend/internal/domain/shared"
)

// InventoryRecord is the cached balance for one (product, warehouse, bin) key.
// Only the Ledger writes it, and only while holding its row lock.
type InventoryRecord struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID   int64     `gorm:"not null;uniqueIndex:idx_inventory_record_key,priority:2" json:"product_id"`
	WarehouseID int64     `gorm:"not null;uniqueIndex:idx_inventory_record_key,priority:1" json:"warehouse_id"`
	Bin         string    `gorm:"type:varchar(64);not null;default:'';uniqueIndex:idx_inventory_record_key,priority:3" json:"bin,omitempty"`
	Quantity    int64     `gorm:"not null;default:0" json:"quantity"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the table name for GORM
func (InventoryRecord) TableName() string {
	return "inventory_records"
}

// NewInventoryRecord creates an empty record for key
func NewInventoryRecord(key BalanceKey, now time.Time) *InventoryRecord {
	now = now.UTC()
	return &InventoryRecord{
		ProductID:   key.ProductID,
		WarehouseID: key.WarehouseID,
		Bin:         key.Bin,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Key returns the balance key of the record
func (r *InventoryRecord) Key() BalanceKey {
	return BalanceKey{ProductID: r.ProductID, WarehouseID: r.WarehouseID, Bin: r.Bin}
}

// IsSellable reports whether the record is a warehouse-level sellable balance
func (r *InventoryRecord) IsSellable() bool {
	return r.Bin == ""
}

// CanSupply reports whether quantity units can be taken from the record
func (r *InventoryRecord) CanSupply(quantity int64) bool {
	return r.Quantity >= quantity
}

// Apply adds delta to the balance, refusing to go below zero
func (r *InventoryRecord) Apply(delta int64, now time.Time) error {
	if r.Quantity+delta < 0 {
		return shared.NewDomainError(shared.CodeInsufficientStock,
			fmt.Sprintf("Insufficient stock for %s: on hand %d, requested %d", r.Key(), r.Quantity, -delta))
	}
	r.Quantity += delta
	r.UpdatedAt = now.UTC()
	return nil
}
