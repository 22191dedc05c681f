package finance

import (
	"fmt"

	"github.com/fulfillcrm/backend/internal/domain/shared"
	"github.com/fulfillcrm/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// FeeEventKind is a lifecycle event that carries fees
type FeeEventKind string

const (
	FeeEventDelivered FeeEventKind = "delivered"
	FeeEventCancelled FeeEventKind = "cancelled"
	FeeEventReturned  FeeEventKind = "returned"
)

// FeeEvent asks the calculator to apply the fees of a lifecycle event
type FeeEvent struct {
	Kind    FeeEventKind
	ActorID int64
}

// FeeCalculator is the only writer of OrderFee amounts. It holds no state
// besides its configuration.
type FeeCalculator struct {
	config FeeConfig
}

// NewFeeCalculator creates a calculator for the given schedule
func NewFeeCalculator(config FeeConfig) (*FeeCalculator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &FeeCalculator{config: config}, nil
}

// Config returns the fee schedule in use
func (c *FeeCalculator) Config() FeeConfig {
	return c.config
}

// Initial builds the fee record of a new order. policy may be nil when the
// seller has no active fee policy.
func (c *FeeCalculator) Initial(orderID int64, basePrice decimal.Decimal, policy *SellerFeePolicy, actorID int64) *OrderFee {
	base := valueobject.RoundMoney(basePrice)
	sellerFee := decimal.Zero
	if policy != nil && policy.Active {
		sellerFee = valueobject.PercentOf(base, policy.FeePercentage)
	}

	fee := &OrderFee{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderID:           orderID,
		BasePrice:         base,
		SellerFee:         sellerFee,
		UpsellFee:         valueobject.PercentOf(base, c.config.UpsellRate),
		ConfirmationFee:   valueobject.RoundMoney(c.config.ConfirmationFee),
		CancellationFee:   decimal.Zero,
		FulfillmentFee:    valueobject.PercentOf(base, c.config.FulfillmentRate),
		ShippingFee:       valueobject.RoundMoney(c.config.ShippingFee),
		ReturnFee:         decimal.Zero,
		WarehouseFee:      valueobject.PercentOf(base, c.config.WarehouseRate),
		TaxRate:           c.config.TaxRate,
		UpdatedBy:         actorID,
	}
	c.Recompute(fee)
	return fee
}

// Recompute refreshes tax_amount, total and final_total from the fee fields.
// It reports whether any of them changed.
func (c *FeeCalculator) Recompute(fee *OrderFee) bool {
	sum := valueobject.RoundMoney(fee.FeeSum())
	tax := valueobject.PercentOf(sum, fee.TaxRate)
	final := valueobject.RoundMoney(valueobject.Sum(fee.BasePrice, sum, tax))

	changed := !sum.Equal(fee.Total) || !tax.Equal(fee.TaxAmount) || !final.Equal(fee.FinalTotal)
	fee.Total = sum
	fee.TaxAmount = tax
	fee.FinalTotal = final
	return changed
}

// Apply sets the fees carried by a lifecycle event and recomputes the totals.
// Fees already charged are never overwritten. A FeeRecalculated event is
// recorded on the fee when the record changed.
func (c *FeeCalculator) Apply(fee *OrderFee, ev FeeEvent) (bool, error) {
	changed := false
	switch ev.Kind {
	case FeeEventDelivered:
		if fee.FulfillmentFee.IsZero() {
			fee.FulfillmentFee = valueobject.PercentOf(fee.BasePrice, c.config.FulfillmentRate)
			changed = changed || !fee.FulfillmentFee.IsZero()
		}
		if fee.ShippingFee.IsZero() {
			fee.ShippingFee = valueobject.RoundMoney(c.config.ShippingFee)
			changed = changed || !fee.ShippingFee.IsZero()
		}
	case FeeEventCancelled:
		if fee.CancellationFee.IsZero() {
			fee.CancellationFee = valueobject.RoundMoney(c.config.CancellationFee)
			changed = !fee.CancellationFee.IsZero()
		}
	case FeeEventReturned:
		if fee.ReturnFee.IsZero() {
			fee.ReturnFee = valueobject.RoundMoney(c.config.ReturnFee)
			changed = !fee.ReturnFee.IsZero()
		}
	default:
		return false, shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Unknown fee event %q", ev.Kind))
	}

	if c.Recompute(fee) {
		changed = true
	}
	if changed {
		fee.UpdatedBy = ev.ActorID
		fee.IncrementVersion()
		fee.AddDomainEvent(NewFeeRecalculatedEvent(fee, string(ev.Kind)))
	}
	return changed, nil
}
