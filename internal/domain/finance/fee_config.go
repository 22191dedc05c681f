package finance

import (
	"github.com/fulfillcrm/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// FeeConfig holds the fee constants used by the calculator.
// Rates are percentages of the base price.
type FeeConfig struct {
	TaxRate         decimal.Decimal
	ConfirmationFee decimal.Decimal
	ShippingFee     decimal.Decimal
	CancellationFee decimal.Decimal
	ReturnFee       decimal.Decimal
	UpsellRate      decimal.Decimal
	FulfillmentRate decimal.Decimal
	WarehouseRate   decimal.Decimal
}

// DefaultFeeConfig returns the stock fee schedule
func DefaultFeeConfig() FeeConfig {
	return FeeConfig{
		TaxRate:         decimal.NewFromInt(5),
		ConfirmationFee: decimal.NewFromInt(10),
		ShippingFee:     decimal.NewFromInt(12),
		CancellationFee: decimal.NewFromInt(5),
		ReturnFee:       decimal.NewFromInt(15),
		UpsellRate:      decimal.NewFromInt(3),
		FulfillmentRate: decimal.NewFromInt(2),
		WarehouseRate:   decimal.NewFromInt(1),
	}
}

// Validate rejects negative fees and rates
func (c FeeConfig) Validate() error {
	values := map[string]decimal.Decimal{
		"tax rate":         c.TaxRate,
		"confirmation fee": c.ConfirmationFee,
		"shipping fee":     c.ShippingFee,
		"cancellation fee": c.CancellationFee,
		"return fee":       c.ReturnFee,
		"upsell rate":      c.UpsellRate,
		"fulfillment rate": c.FulfillmentRate,
		"warehouse rate":   c.WarehouseRate,
	}
	for name, v := range values {
		if v.IsNegative() {
			return shared.NewDomainError(shared.CodeInvalidInput, name+" cannot be negative")
		}
	}
	return nil
}
