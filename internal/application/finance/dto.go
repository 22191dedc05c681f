package finance

import (
	"time"

	"github.com/fulfillcrm/backend/internal/domain/finance"
	"github.com/fulfillcrm/backend/internal/domain/identity"
	"github.com/shopspring/decimal"
)

// SetPolicyRequest is the input of SetPolicy
type SetPolicyRequest struct {
	SellerID       int64           `json:"seller_id" validate:"required,gt=0"`
	FeePercentage  decimal.Decimal `json:"fee_percentage"`
	IdempotencyKey string          `json:"idempotency_key" validate:"max=128"`
	Actor          identity.Actor  `json:"-" validate:"-"`
}

// PolicyResponse represents a seller fee policy
type PolicyResponse struct {
	ID            int64           `json:"id"`
	SellerID      int64           `json:"seller_id"`
	FeePercentage decimal.Decimal `json:"fee_percentage"`
	Active        bool            `json:"active"`
	CreatedBy     int64           `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ToPolicyResponse converts a domain SellerFeePolicy to PolicyResponse
func ToPolicyResponse(p *finance.SellerFeePolicy) PolicyResponse {
	return PolicyResponse{
		ID:            p.ID,
		SellerID:      p.SellerID,
		FeePercentage: p.FeePercentage,
		Active:        p.Active,
		CreatedBy:     p.CreatedBy,
		CreatedAt:     p.CreatedAt,
	}
}

// OrderFeeResponse represents the fee record of an order
type OrderFeeResponse struct {
	OrderID         int64           `json:"order_id"`
	BasePrice       decimal.Decimal `json:"base_price"`
	SellerFee       decimal.Decimal `json:"seller_fee"`
	UpsellFee       decimal.Decimal `json:"upsell_fee"`
	ConfirmationFee decimal.Decimal `json:"confirmation_fee"`
	CancellationFee decimal.Decimal `json:"cancellation_fee"`
	FulfillmentFee  decimal.Decimal `json:"fulfillment_fee"`
	ShippingFee     decimal.Decimal `json:"shipping_fee"`
	ReturnFee       decimal.Decimal `json:"return_fee"`
	WarehouseFee    decimal.Decimal `json:"warehouse_fee"`
	TaxRate         decimal.Decimal `json:"tax_rate"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	Total           decimal.Decimal `json:"total"`
	FinalTotal      decimal.Decimal `json:"final_total"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ToOrderFeeResponse converts a domain OrderFee to OrderFeeResponse
func ToOrderFeeResponse(f *finance.OrderFee) OrderFeeResponse {
	return OrderFeeResponse{
		OrderID:         f.OrderID,
		BasePrice:       f.BasePrice,
		SellerFee:       f.SellerFee,
		UpsellFee:       f.UpsellFee,
		ConfirmationFee: f.ConfirmationFee,
		CancellationFee: f.CancellationFee,
		FulfillmentFee:  f.FulfillmentFee,
		ShippingFee:     f.ShippingFee,
		ReturnFee:       f.ReturnFee,
		WarehouseFee:    f.WarehouseFee,
		TaxRate:         f.TaxRate,
		TaxAmount:       f.TaxAmount,
		Total:           f.Total,
		FinalTotal:      f.FinalTotal,
		UpdatedAt:       f.UpdatedAt,
	}
}
