package persistence

import (
	"context"

	"github.com/fulfillcrm/backend/internal/application/txn"
	"github.com/fulfillcrm/backend/internal/domain/catalog"
	"github.com/fulfillcrm/backend/internal/domain/finance"
	"github.com/fulfillcrm/backend/internal/domain/inventory"
	"github.com/fulfillcrm/backend/internal/domain/shared"
	"github.com/fulfillcrm/backend/internal/domain/trade"
	"gorm.io/gorm"
)

// GormTransactionScope implements txn.Scope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction. Commit failures such as
// serialization errors are translated like statement errors.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos txn.Repositories) error) error {
	return translateError(s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepositories{tx: tx})
	}))
}

// gormRepositories hands out repositories bound to one transaction
type gormRepositories struct {
	tx *gorm.DB
}

func (r *gormRepositories) Products() catalog.ProductRepository {
	return NewGormProductRepository(r.tx)
}

func (r *gormRepositories) Warehouses() catalog.WarehouseRepository {
	return NewGormWarehouseRepository(r.tx)
}

func (r *gormRepositories) Records() inventory.RecordRepository {
	return NewGormRecordRepository(r.tx)
}

func (r *gormRepositories) Movements() inventory.MovementRepository {
	return NewGormMovementRepository(r.tx)
}

func (r *gormRepositories) CountSessions() inventory.CountSessionRepository {
	return NewGormCountSessionRepository(r.tx)
}

func (r *gormRepositories) Orders() trade.OrderRepository {
	return NewGormOrderRepository(r.tx)
}

func (r *gormRepositories) Returns() trade.ReturnEventRepository {
	return NewGormReturnEventRepository(r.tx)
}

func (r *gormRepositories) Fees() finance.OrderFeeRepository {
	return NewGormOrderFeeRepository(r.tx)
}

func (r *gormRepositories) FeePolicies() finance.SellerFeePolicyRepository {
	return NewGormSellerFeePolicyRepository(r.tx)
}

func (r *gormRepositories) Idempotency() shared.IdempotencyRepository {
	return NewGormIdempotencyRepository(r.tx)
}

var (
	_ txn.Scope        = (*GormTransactionScope)(nil)
	_ txn.Repositories = (*gormRepositories)(nil)
)
