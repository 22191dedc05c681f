package catalog

import (
	"context"
	"fmt"

	"github.com/fulfillcrm/backend/internal/application/txn"
	"github.com/fulfillcrm/backend/internal/application/validation"
	"github.com/fulfillcrm/backend/internal/domain/catalog"
	"github.com/fulfillcrm/backend/internal/domain/identity"
	"github.com/fulfillcrm/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Service manages the product and warehouse reference data
type Service struct {
	runner *txn.Runner
	logger *zap.Logger
}

// NewService creates a new catalog Service
func NewService(runner *txn.Runner, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{runner: runner, logger: logger}
}

// RegisterProduct creates an unapproved product. A seller may only register
// products for themselves; super admins may register for any seller.
func (s *Service) RegisterProduct(ctx context.Context, req RegisterProductRequest) (*ProductResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if !req.Actor.IsSuperAdmin() && !(req.Actor.HasRole(identity.RoleSeller) && req.Actor.ID() == req.SellerID) {
		return nil, shared.NewDomainError(shared.CodeNotAuthorized, "Sellers can only register their own products")
	}

	op := txn.Operation{Name: "register_product", ActorID: req.Actor.ID(), Key: req.IdempotencyKey}
	resp, _, err := txn.Run(ctx, s.runner, op, func(tx *txn.Tx) (ProductResponse, error) {
		sku := catalog.NormalizeSKU(req.SKU)
		exists, err := tx.Products().ExistsBySellerAndSKU(ctx, req.SellerID, sku)
		if err != nil {
			return ProductResponse{}, err
		}
		if exists {
			return ProductResponse{}, shared.NewDomainError(shared.CodeAlreadyExists,
				fmt.Sprintf("Seller %d already has a product with SKU %s", req.SellerID, sku))
		}

		product, err := catalog.NewProduct(req.SellerID, req.SKU, req.Name, req.LocalizedName, req.Barcode,
			req.SellingPrice, req.PurchasePrice)
		if err != nil {
			return ProductResponse{}, err
		}
		if err := tx.Products().Create(ctx, product); err != nil {
			return ProductResponse{}, err
		}
		tx.Collect(catalog.NewProductRegisteredEvent(product))
		return ToProductResponse(product), nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Product registered",
		zap.Int64("product_id", resp.ID),
		zap.Int64("seller_id", resp.SellerID),
		zap.String("sku", resp.SKU),
	)
	return &resp, nil
}

// ApproveProduct makes a product orderable. Super admin only.
func (s *Service) ApproveProduct(ctx context.Context, productID int64, actor identity.Actor) (*ProductResponse, error) {
	if !actor.IsSuperAdmin() {
		return nil, shared.NewDomainError(shared.CodeNotAuthorized, "Only a super admin can approve products")
	}
	return s.mutateProduct(ctx, "approve_product", productID, actor, func(p *catalog.Product) error {
		return p.Approve()
	})
}

// UpdatePrices changes the selling and purchase price of a product
func (s *Service) UpdatePrices(ctx context.Context, req UpdatePricesRequest) (*ProductResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	return s.mutateProduct(ctx, "update_prices", req.ProductID, req.Actor, func(p *catalog.Product) error {
		if !req.Actor.IsSuperAdmin() && !p.IsOwnedBy(req.Actor.ID()) {
			return shared.NewDomainError(shared.CodeNotAuthorized, "Only the owning seller can change prices")
		}
		return p.UpdatePrices(req.SellingPrice, req.PurchasePrice)
	})
}

func (s *Service) mutateProduct(ctx context.Context, name string, productID int64, actor identity.Actor, mutate func(*catalog.Product) error) (*ProductResponse, error) {
	op := txn.Operation{Name: name, ActorID: actor.ID()}
	resp, _, err := txn.Run(ctx, s.runner, op, func(tx *txn.Tx) (ProductResponse, error) {
		product, err := tx.Products().FindByID(ctx, productID)
		if err != nil {
			return ProductResponse{}, err
		}
		if err := mutate(product); err != nil {
			return ProductResponse{}, err
		}
		if err := tx.Products().Save(ctx, product); err != nil {
			return ProductResponse{}, err
		}
		return ToProductResponse(product), nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Product updated", zap.String("operation", name), zap.Int64("product_id", productID))
	return &resp, nil
}

// GetProduct retrieves a product by ID
func (s *Service) GetProduct(ctx context.Context, productID int64) (*ProductResponse, error) {
	var resp ProductResponse
	err := s.runner.Scope().Execute(ctx, func(repos txn.Repositories) error {
		product, err := repos.Products().FindByID(ctx, productID)
		if err != nil {
			return err
		}
		resp = ToProductResponse(product)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListSellerProducts returns the products of a seller
func (s *Service) ListSellerProducts(ctx context.Context, sellerID int64) ([]ProductResponse, error) {
	var out []ProductResponse
	err := s.runner.Scope().Execute(ctx, func(repos txn.Repositories) error {
		products, err := repos.Products().FindBySeller(ctx, sellerID)
		if err != nil {
			return err
		}
		out = make([]ProductResponse, len(products))
		for i := range products {
			out[i] = ToProductResponse(&products[i])
		}
		return nil
	})
	return out, err
}

// RegisterWarehouse creates an active warehouse. Warehouse names are unique.
func (s *Service) RegisterWarehouse(ctx context.Context, req RegisterWarehouseRequest) (*WarehouseResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if !req.Actor.Can(identity.RoleStockKeeper) {
		return nil, shared.NewDomainError(shared.CodeNotAuthorized, "Only a stock keeper can register warehouses")
	}

	op := txn.Operation{Name: "register_warehouse", ActorID: req.Actor.ID()}
	resp, _, err := txn.Run(ctx, s.runner, op, func(tx *txn.Tx) (WarehouseResponse, error) {
		wh, err := catalog.NewWarehouse(req.Name, req.Location)
		if err != nil {
			return WarehouseResponse{}, err
		}
		exists, err := tx.Warehouses().ExistsByName(ctx, wh.Name)
		if err != nil {
			return WarehouseResponse{}, err
		}
		if exists {
			return WarehouseResponse{}, shared.NewDomainError(shared.CodeAlreadyExists,
				fmt.Sprintf("Warehouse %q already exists", wh.Name))
		}
		if err := tx.Warehouses().Create(ctx, wh); err != nil {
			return WarehouseResponse{}, err
		}
		return ToWarehouseResponse(wh), nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Warehouse registered", zap.Int64("warehouse_id", resp.ID), zap.String("name", resp.Name))
	return &resp, nil
}

// SetWarehouseActive activates or deactivates a warehouse. Inactive
// warehouses reject new movements but keep their balances.
func (s *Service) SetWarehouseActive(ctx context.Context, warehouseID int64, active bool, actor identity.Actor) (*WarehouseResponse, error) {
	if !actor.Can(identity.RoleStockKeeper) {
		return nil, shared.NewDomainError(shared.CodeNotAuthorized, "Only a stock keeper can change warehouse status")
	}

	op := txn.Operation{Name: "set_warehouse_active", ActorID: actor.ID()}
	resp, _, err := txn.Run(ctx, s.runner, op, func(tx *txn.Tx) (WarehouseResponse, error) {
		wh, err := tx.Warehouses().FindByID(ctx, warehouseID)
		if err != nil {
			return WarehouseResponse{}, err
		}
		if active {
			err = wh.Activate()
		} else {
			err = wh.Deactivate()
		}
		if err != nil {
			return WarehouseResponse{}, err
		}
		if err := tx.Warehouses().Save(ctx, wh); err != nil {
			return WarehouseResponse{}, err
		}
		return ToWarehouseResponse(wh), nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Warehouse status changed", zap.Int64("warehouse_id", warehouseID), zap.Bool("active", active))
	return &resp, nil
}

// ListActiveWarehouses returns active warehouses ordered by id
func (s *Service) ListActiveWarehouses(ctx context.Context) ([]WarehouseResponse, error) {
	var out []WarehouseResponse
	err := s.runner.Scope().Execute(ctx, func(repos txn.Repositories) error {
		ws, err := repos.Warehouses().FindActive(ctx)
		if err != nil {
			return err
		}
		out = ToWarehouseResponses(ws)
		return nil
	})
	return out, err
}
