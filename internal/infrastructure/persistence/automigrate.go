package persistence

import (
	"github.com/fulfillcrm/backend/internal/domain/catalog"
	"github.com/fulfillcrm/backend/internal/domain/finance"
	"github.com/fulfillcrm/backend/internal/domain/inventory"
	"github.com/fulfillcrm/backend/internal/domain/shared"
	"github.com/fulfillcrm/backend/internal/domain/trade"
	"gorm.io/gorm"
)

// Models lists every persisted type, in dependency order
func Models() []any {
	return []any{
		&catalog.Warehouse{},
		&catalog.Product{},
		&inventory.InventoryRecord{},
		&inventory.Movement{},
		&inventory.CountSession{},
		&inventory.PhysicalCountRecord{},
		&trade.Order{},
		&trade.ReturnEvent{},
		&finance.OrderFee{},
		&finance.SellerFeePolicy{},
		&shared.IdempotencyRecord{},
	}
}

// AutoMigrate creates the schema from the models. Production databases
// use the SQL migrations instead; this serves sqlite and tests.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return err
	}
	// one active policy per seller
	return db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_seller_fee_policy_active
		ON seller_fee_policies (seller_id) WHERE active`).Error
}
