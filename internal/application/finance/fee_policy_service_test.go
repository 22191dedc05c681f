package finance

import (
	"context"
	"errors"
	"testing"

	"github.com/fulfillcrm/backend/internal/application/txn"
	"github.com/fulfillcrm/backend/internal/domain/finance"
	"github.com/fulfillcrm/backend/internal/domain/shared"
	"github.com/fulfillcrm/backend/internal/domain/shared/valueobject"
	"github.com/fulfillcrm/backend/internal/domain/trade"
	"github.com/fulfillcrm/backend/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeePolicyService_SetPolicy(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	svc := NewFeePolicyService(env.Runner, nil)
	admin := testutil.Admin()

	t.Run("only super admins set policies", func(t *testing.T) {
		_, err := svc.SetPolicy(ctx, SetPolicyRequest{SellerID: 9, FeePercentage: decimal.NewFromInt(5), Actor: testutil.Seller(9)})
		assert.True(t, errors.Is(err, shared.ErrNotAuthorized))
	})

	t.Run("seller id is required", func(t *testing.T) {
		_, err := svc.SetPolicy(ctx, SetPolicyRequest{FeePercentage: decimal.NewFromInt(5), Actor: admin})
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})

	t.Run("percentage above 100 is rejected", func(t *testing.T) {
		_, err := svc.SetPolicy(ctx, SetPolicyRequest{SellerID: 9, FeePercentage: decimal.NewFromInt(101), Actor: admin})
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})

	t.Run("new policy replaces the active one", func(t *testing.T) {
		first, err := svc.SetPolicy(ctx, SetPolicyRequest{SellerID: 9, FeePercentage: decimal.NewFromInt(5), Actor: admin})
		require.NoError(t, err)
		second, err := svc.SetPolicy(ctx, SetPolicyRequest{SellerID: 9, FeePercentage: decimal.RequireFromString("7.5"), Actor: admin})
		require.NoError(t, err)

		active, err := svc.ActivePolicy(ctx, 9)
		require.NoError(t, err)
		assert.Equal(t, second.ID, active.ID)

		history, err := svc.PolicyHistory(ctx, 9)
		require.NoError(t, err)
		require.Len(t, history, 2)
		activeCount := 0
		for _, p := range history {
			if p.Active {
				activeCount++
			}
			if p.ID == first.ID {
				assert.False(t, p.Active)
			}
		}
		assert.Equal(t, 1, activeCount)
	})

	t.Run("seller without policy", func(t *testing.T) {
		_, err := svc.ActivePolicy(ctx, 404)
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})
}

func seedOrderWithFee(t *testing.T, env *testutil.Env, sellerID int64) int64 {
	t.Helper()
	ctx := context.Background()
	calc, err := finance.NewFeeCalculator(finance.DefaultFeeConfig())
	require.NoError(t, err)
	addr, err := valueobject.NewAddress("12 Rue Atlas", "Rabat")
	require.NoError(t, err)

	var orderID int64
	err = env.Scope.Execute(ctx, func(repos txn.Repositories) error {
		order, err := trade.NewOrder(trade.OrderInput{
			Code:          "ORD-1",
			SellerID:      sellerID,
			CustomerName:  "Amina",
			CustomerPhone: "+212600000000",
			Address:       addr,
			ProductID:     1,
			Quantity:      2,
			UnitPrice:     decimal.NewFromInt(100),
		})
		if err != nil {
			return err
		}
		if err := repos.Orders().Create(ctx, order); err != nil {
			return err
		}
		orderID = order.ID
		return repos.Fees().Create(ctx, calc.Initial(order.ID, order.BasePrice(), nil, sellerID))
	})
	require.NoError(t, err)
	return orderID
}

func TestFeePolicyService_GetOrderFee(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	svc := NewFeePolicyService(env.Runner, nil)
	orderID := seedOrderWithFee(t, env, 9)

	fee, err := svc.GetOrderFee(ctx, orderID, testutil.Seller(9))
	require.NoError(t, err)
	assert.Equal(t, "200.00", fee.BasePrice.StringFixed(2))
	// 6 upsell + 10 confirmation + 4 fulfillment + 12 shipping + 2 warehouse = 34, tax 1.70
	assert.Equal(t, "34.00", fee.Total.StringFixed(2))
	assert.Equal(t, "1.70", fee.TaxAmount.StringFixed(2))
	assert.Equal(t, "235.70", fee.FinalTotal.StringFixed(2))

	_, err = svc.GetOrderFee(ctx, orderID, testutil.Seller(10))
	assert.True(t, errors.Is(err, shared.ErrNotAuthorized))

	_, err = svc.GetOrderFee(ctx, orderID, testutil.Agent(3))
	assert.NoError(t, err)

	_, err = svc.GetOrderFee(ctx, 999, testutil.Admin())
	assert.True(t, errors.Is(err, shared.ErrOrderNotFound))
}
