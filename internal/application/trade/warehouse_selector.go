package trade

import (
	"context"
	"fmt"

	"github.com/fulfillcrm/backend/internal/application/txn"
	"github.com/fulfillcrm/backend/internal/domain/shared"
)

// selectWarehouse picks the warehouse a reservation is taken from.
// An explicit warehouse wins and must be active. Otherwise the only active
// warehouse is used, or else the lowest-id active warehouse holding at
// least quantity sellable units.
func selectWarehouse(ctx context.Context, repos txn.Repositories, productID, quantity int64, explicit *int64) (int64, error) {
	if explicit != nil {
		wh, err := repos.Warehouses().FindByID(ctx, *explicit)
		if err != nil {
			return 0, err
		}
		if err := wh.EnsureActive(); err != nil {
			return 0, err
		}
		return wh.ID, nil
	}

	active, err := repos.Warehouses().FindActive(ctx)
	if err != nil {
		return 0, err
	}
	switch len(active) {
	case 0:
		return 0, shared.NewDomainError(shared.CodeWarehouseNotFound, "No active warehouse is available")
	case 1:
		return active[0].ID, nil
	}

	isActive := make(map[int64]bool, len(active))
	for _, wh := range active {
		isActive[wh.ID] = true
	}
	records, err := repos.Records().FindSellableByProduct(ctx, productID)
	if err != nil {
		return 0, err
	}
	for _, r := range records {
		if isActive[r.WarehouseID] && r.CanSupply(quantity) {
			return r.WarehouseID, nil
		}
	}
	return 0, shared.NewDomainError(shared.CodeInsufficientStock,
		fmt.Sprintf("No active warehouse holds %d units of product %d", quantity, productID))
}

// returnWarehouse picks where returned units are received: the explicit
// warehouse, else the one the order shipped from, else the default choice.
func returnWarehouse(ctx context.Context, repos txn.Repositories, shippedFrom, explicit *int64) (int64, error) {
	if explicit == nil {
		explicit = shippedFrom
	}
	if explicit != nil {
		wh, err := repos.Warehouses().FindByID(ctx, *explicit)
		if err != nil {
			return 0, err
		}
		if err := wh.EnsureActive(); err != nil {
			return 0, err
		}
		return wh.ID, nil
	}
	active, err := repos.Warehouses().FindActive(ctx)
	if err != nil {
		return 0, err
	}
	if len(active) == 0 {
		return 0, shared.NewDomainError(shared.CodeWarehouseNotFound, "No active warehouse is available")
	}
	return active[0].ID, nil
}
