package catalog

import "context"

// ProductRepository defines persistence operations for products
type ProductRepository interface {
	// FindByID returns ErrProductNotFound when missing
	FindByID(ctx context.Context, id int64) (*Product, error)
	FindBySellerAndSKU(ctx context.Context, sellerID int64, sku string) (*Product, error)
	ExistsBySellerAndSKU(ctx context.Context, sellerID int64, sku string) (bool, error)
	FindBySeller(ctx context.Context, sellerID int64) ([]Product, error)
	Create(ctx context.Context, product *Product) error
	Save(ctx context.Context, product *Product) error
}

// WarehouseRepository defines persistence operations for warehouses
type WarehouseRepository interface {
	// FindByID returns ErrWarehouseNotFound when missing
	FindByID(ctx context.Context, id int64) (*Warehouse, error)
	// FindActive returns active warehouses ordered by ascending id
	FindActive(ctx context.Context) ([]Warehouse, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, warehouse *Warehouse) error
	Save(ctx context.Context, warehouse *Warehouse) error
}
