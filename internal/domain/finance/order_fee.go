package finance

import (
	"github.com/fulfillcrm/backend/internal/domain/shared"
	"github.com/fulfillcrm/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// OrderFee is the fee record of one order. Only FeeCalculator mutates it.
type OrderFee struct {
	shared.BaseAggregateRoot
	OrderID         int64           `gorm:"not null;uniqueIndex" json:"order_id"`
	BasePrice       decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"base_price"`
	SellerFee       decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"seller_fee"`
	UpsellFee       decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"upsell_fee"`
	ConfirmationFee decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"confirmation_fee"`
	CancellationFee decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"cancellation_fee"`
	FulfillmentFee  decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"fulfillment_fee"`
	ShippingFee     decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"shipping_fee"`
	ReturnFee       decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"return_fee"`
	WarehouseFee    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"warehouse_fee"`
	TaxRate         decimal.Decimal `gorm:"type:decimal(7,4);not null" json:"tax_rate"`
	TaxAmount       decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"tax_amount"`
	Total           decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"total"`
	FinalTotal      decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"final_total"`
	UpdatedBy       int64           `gorm:"not null" json:"updated_by"`
}

// TableName returns the table name for GORM
func (OrderFee) TableName() string {
	return "order_fees"
}

// FeeSum returns the sum of every fee field, tax excluded
func (f *OrderFee) FeeSum() decimal.Decimal {
	return valueobject.Sum(
		f.SellerFee,
		f.UpsellFee,
		f.ConfirmationFee,
		f.CancellationFee,
		f.FulfillmentFee,
		f.ShippingFee,
		f.ReturnFee,
		f.WarehouseFee,
	)
}

// IsBalanced reports whether final_total = base + Σfees + tax at money scale
func (f *OrderFee) IsBalanced() bool {
	expected := valueobject.RoundMoney(valueobject.Sum(f.BasePrice, f.FeeSum(), f.TaxAmount))
	return expected.Equal(valueobject.RoundMoney(f.FinalTotal))
}
