package finance

import (
	"errors"
	"testing"

	"github.com/fulfillcrm/backend/internal/domain/shared"
	"github.com/fulfillcrm/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func money(s string) decimal.Decimal {
	return valueobject.MustParseMoney(s)
}

func newTestCalculator(t *testing.T) *FeeCalculator {
	t.Helper()
	c, err := NewFeeCalculator(DefaultFeeConfig())
	require.NoError(t, err)
	return c
}

func assertMoney(t *testing.T, expected string, actual decimal.Decimal, field string) {
	t.Helper()
	assert.True(t, money(expected).Equal(actual), "%s: expected %s, got %s", field, expected, actual)
}

func TestFeeCalculator_Initial(t *testing.T) {
	c := newTestCalculator(t)

	t.Run("base 200 without seller policy", func(t *testing.T) {
		fee := c.Initial(1, money("200"), nil, 5)
		assertMoney(t, "0", fee.SellerFee, "seller")
		assertMoney(t, "6.00", fee.UpsellFee, "upsell")
		assertMoney(t, "10.00", fee.ConfirmationFee, "confirmation")
		assertMoney(t, "4.00", fee.FulfillmentFee, "fulfillment")
		assertMoney(t, "12.00", fee.ShippingFee, "shipping")
		assertMoney(t, "2.00", fee.WarehouseFee, "warehouse")
		assertMoney(t, "34.00", fee.Total, "total")
		assertMoney(t, "1.70", fee.TaxAmount, "tax")
		assertMoney(t, "235.70", fee.FinalTotal, "final")
		assert.True(t, fee.IsBalanced())
	})

	t.Run("active seller policy", func(t *testing.T) {
		policy, err := NewSellerFeePolicy(9, decimal.NewFromFloat(7.5), 1)
		require.NoError(t, err)
		fee := c.Initial(1, money("200"), policy, 5)
		assertMoney(t, "15.00", fee.SellerFee, "seller")
		assertMoney(t, "49.00", fee.Total, "total")
		assertMoney(t, "2.45", fee.TaxAmount, "tax")
		assertMoney(t, "251.45", fee.FinalTotal, "final")
	})

	t.Run("inactive policy is ignored", func(t *testing.T) {
		policy, _ := NewSellerFeePolicy(9, decimal.NewFromInt(10), 1)
		policy.Active = false
		fee := c.Initial(1, money("200"), policy, 5)
		assert.True(t, fee.SellerFee.IsZero())
	})

	t.Run("half-even rounding", func(t *testing.T) {
		// 0.015 rounds to 0.02 and 0.005 rounds to 0.00
		fee := c.Initial(1, money("0.50"), nil, 5)
		assertMoney(t, "0.02", fee.UpsellFee, "upsell")
		assertMoney(t, "0.00", fee.WarehouseFee, "warehouse")
		assert.True(t, fee.IsBalanced())
	})
}

func TestFeeCalculator_Apply(t *testing.T) {
	c := newTestCalculator(t)

	t.Run("delivered keeps the initial charges", func(t *testing.T) {
		fee := c.Initial(1, money("200"), nil, 5)
		changed, err := c.Apply(fee, FeeEvent{Kind: FeeEventDelivered, ActorID: 40})
		require.NoError(t, err)
		assert.False(t, changed)
		assertMoney(t, "235.70", fee.FinalTotal, "final")
		assert.Empty(t, fee.GetDomainEvents())
	})

	t.Run("delivered fills missing fulfillment and shipping", func(t *testing.T) {
		fee := c.Initial(1, money("200"), nil, 5)
		fee.FulfillmentFee = decimal.Zero
		fee.ShippingFee = decimal.Zero
		c.Recompute(fee)

		changed, err := c.Apply(fee, FeeEvent{Kind: FeeEventDelivered, ActorID: 40})
		require.NoError(t, err)
		assert.True(t, changed)
		assertMoney(t, "235.70", fee.FinalTotal, "final")
		assert.Equal(t, int64(40), fee.UpdatedBy)
	})

	t.Run("cancelled adds the cancellation fee once", func(t *testing.T) {
		fee := c.Initial(1, money("200"), nil, 5)
		changed, err := c.Apply(fee, FeeEvent{Kind: FeeEventCancelled, ActorID: 20})
		require.NoError(t, err)
		assert.True(t, changed)
		assertMoney(t, "5.00", fee.CancellationFee, "cancellation")
		assertMoney(t, "39.00", fee.Total, "total")
		assertMoney(t, "1.95", fee.TaxAmount, "tax")
		assertMoney(t, "240.95", fee.FinalTotal, "final")

		changed, err = c.Apply(fee, FeeEvent{Kind: FeeEventCancelled, ActorID: 20})
		require.NoError(t, err)
		assert.False(t, changed)
		require.Len(t, fee.GetDomainEvents(), 1)
		ev := fee.GetDomainEvents()[0].(*FeeRecalculatedEvent)
		assertMoney(t, "240.95", ev.FinalTotal, "event final")
		assert.Equal(t, "cancelled", ev.Reason)
	})

	t.Run("returned adds the return fee", func(t *testing.T) {
		fee := c.Initial(1, money("500"), nil, 5)
		_, err := c.Apply(fee, FeeEvent{Kind: FeeEventReturned, ActorID: 30})
		require.NoError(t, err)
		assertMoney(t, "15.00", fee.ReturnFee, "return")
		assert.True(t, fee.IsBalanced())
	})

	t.Run("unknown event", func(t *testing.T) {
		fee := c.Initial(1, money("1"), nil, 5)
		_, err := c.Apply(fee, FeeEvent{Kind: "refunded"})
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})
}

func TestFeeConfig_Validate(t *testing.T) {
	cfg := DefaultFeeConfig()
	cfg.ShippingFee = decimal.NewFromInt(-1)
	_, err := NewFeeCalculator(cfg)
	assert.Error(t, err)
}

func TestNewSellerFeePolicy(t *testing.T) {
	_, err := NewSellerFeePolicy(1, decimal.NewFromInt(101), 1)
	assert.Error(t, err)
	_, err = NewSellerFeePolicy(0, decimal.NewFromInt(1), 1)
	assert.Error(t, err)
	p, err := NewSellerFeePolicy(1, decimal.Zero, 1)
	require.NoError(t, err)
	assert.True(t, p.Active)
}
