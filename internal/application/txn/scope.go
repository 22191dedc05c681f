package txn

import (
	"context"

	"github.com/fulfillcrm/backend/internal/domain/catalog"
	"github.com/fulfillcrm/backend/internal/domain/finance"
	"github.com/fulfillcrm/backend/internal/domain/inventory"
	"github.com/fulfillcrm/backend/internal/domain/shared"
	"github.com/fulfillcrm/backend/internal/domain/trade"
)

// Scope runs a function inside one database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
type Scope interface {
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}

// Repositories gives access to every repository bound to the current transaction.
// All repositories returned share the same underlying database transaction.
type Repositories interface {
	Products() catalog.ProductRepository
	Warehouses() catalog.WarehouseRepository
	Records() inventory.RecordRepository
	Movements() inventory.MovementRepository
	CountSessions() inventory.CountSessionRepository
	Orders() trade.OrderRepository
	Returns() trade.ReturnEventRepository
	Fees() finance.OrderFeeRepository
	FeePolicies() finance.SellerFeePolicyRepository
	Idempotency() shared.IdempotencyRepository
}

// LedgerStore binds an inventory ledger to the repositories of a transaction
func LedgerStore(repos Repositories) inventory.LedgerStore {
	return inventory.LedgerStore{
		Records:    repos.Records(),
		Movements:  repos.Movements(),
		Products:   repos.Products(),
		Warehouses: repos.Warehouses(),
	}
}
