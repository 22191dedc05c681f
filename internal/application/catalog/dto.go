package catalog

import (
	"time"

	"github.com/fulfillcrm/backend/internal/domain/catalog"
	"github.com/fulfillcrm/backend/internal/domain/identity"
	"github.com/shopspring/decimal"
)

// RegisterProductRequest is the input of RegisterProduct
type RegisterProductRequest struct {
	SellerID       int64           `json:"seller_id" validate:"required,gt=0"`
	SKU            string          `json:"sku" validate:"required,max=64"`
	Name           string          `json:"name" validate:"required,max=200"`
	LocalizedName  string          `json:"localized_name" validate:"max=200"`
	Barcode        string          `json:"barcode" validate:"omitempty,max=32"`
	SellingPrice   decimal.Decimal `json:"selling_price"`
	PurchasePrice  decimal.Decimal `json:"purchase_price"`
	IdempotencyKey string          `json:"idempotency_key" validate:"max=128"`
	Actor          identity.Actor  `json:"-" validate:"-"`
}

// UpdatePricesRequest is the input of UpdatePrices
type UpdatePricesRequest struct {
	ProductID     int64           `json:"product_id" validate:"required,gt=0"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	Actor         identity.Actor  `json:"-" validate:"-"`
}

// RegisterWarehouseRequest is the input of RegisterWarehouse
type RegisterWarehouseRequest struct {
	Name     string         `json:"name" validate:"required,max=200"`
	Location string         `json:"location" validate:"max=255"`
	Actor    identity.Actor `json:"-" validate:"-"`
}

// ProductResponse represents a product returned by the service
type ProductResponse struct {
	ID            int64           `json:"id"`
	SellerID      int64           `json:"seller_id"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	LocalizedName string          `json:"localized_name,omitempty"`
	Barcode       string          `json:"barcode"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	Approved      bool            `json:"approved"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ToProductResponse converts a domain Product to ProductResponse
func ToProductResponse(p *catalog.Product) ProductResponse {
	return ProductResponse{
		ID:            p.ID,
		SellerID:      p.SellerID,
		SKU:           p.SKU,
		Name:          p.Name,
		LocalizedName: p.LocalizedName,
		Barcode:       p.Barcode,
		SellingPrice:  p.SellingPrice,
		PurchasePrice: p.PurchasePrice,
		Approved:      p.Approved,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

// WarehouseResponse represents a warehouse returned by the service
type WarehouseResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
	Active   bool   `json:"active"`
}

// ToWarehouseResponse converts a domain Warehouse to WarehouseResponse
func ToWarehouseResponse(w *catalog.Warehouse) WarehouseResponse {
	return WarehouseResponse{
		ID:       w.ID,
		Name:     w.Name,
		Location: w.Location,
		Active:   w.Active,
	}
}

// ToWarehouseResponses converts a slice of warehouses
func ToWarehouseResponses(ws []catalog.Warehouse) []WarehouseResponse {
	out := make([]WarehouseResponse, len(ws))
	for i := range ws {
		out[i] = ToWarehouseResponse(&ws[i])
	}
	return out
}
