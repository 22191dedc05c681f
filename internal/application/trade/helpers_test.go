package trade

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fulfillcrm/backend/internal/domain/finance"
	"github.com/fulfillcrm/backend/internal/domain/identity"
	"github.com/fulfillcrm/backend/internal/domain/trade"
	"github.com/fulfillcrm/backend/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const sellerID int64 = 9

type observed struct {
	from, to, result string
}

type recordingMetrics struct {
	mu      sync.Mutex
	entries []observed
}

func (m *recordingMetrics) ObserveTransition(_ context.Context, from, to, result string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, observed{from: from, to: to, result: result})
}

func (m *recordingMetrics) results() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.result
	}
	return out
}

type fixture struct {
	env     *testutil.Env
	orders  *OrderService
	engine  *WorkflowEngine
	returns *ReturnService
	metrics *recordingMetrics
	product int64
	wh      int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	env := testutil.NewEnv(t)
	calc, err := finance.NewFeeCalculator(finance.DefaultFeeConfig())
	require.NoError(t, err)

	f := &fixture{
		env:     env,
		orders:  NewOrderService(env.Runner, calc, nil),
		engine:  NewWorkflowEngine(env.Runner, calc, nil),
		returns: NewReturnService(env.Runner, calc, nil),
		metrics: &recordingMetrics{},
	}
	f.orders.SetClock(env.Clock)
	f.engine.SetClock(env.Clock)
	f.engine.SetMetrics(f.metrics)
	f.returns.SetClock(env.Clock)

	f.wh = env.SeedWarehouse(t, "W1").ID
	f.product = env.SeedProduct(t, sellerID, "ARGAN", "100.00").ID
	return f
}

func (f *fixture) submitRequest(code string, qty int64) SubmitOrderRequest {
	return SubmitOrderRequest{
		Code:          code,
		SellerID:      sellerID,
		CustomerName:  "Amina Benali",
		CustomerPhone: "+212600000001",
		Address:       AddressInput{Line1: "12 Rue Atlas", City: "Rabat"},
		ProductID:     f.product,
		Quantity:      qty,
		Actor:         testutil.Seller(sellerID),
	}
}

func (f *fixture) submit(t *testing.T, code string, qty int64) int64 {
	t.Helper()
	resp, err := f.orders.SubmitOrder(context.Background(), f.submitRequest(code, qty))
	require.NoError(t, err)
	return resp.Order.ID
}

// actorFor returns an actor allowed to move an order to target
func actorFor(target trade.WorkflowStatus) identity.Actor {
	switch target {
	case trade.WorkflowStockKeeperApproved:
		return testutil.StockKeeper(4)
	case trade.WorkflowPickAndPack, trade.WorkflowPackagingInProgress, trade.WorkflowPackagingCompleted:
		return testutil.Packager(6)
	case trade.WorkflowReadyForDelivery, trade.WorkflowDeliveryInProgress, trade.WorkflowDeliveryCompleted:
		return testutil.Courier(8)
	default:
		return testutil.Manager(7)
	}
}

func (f *fixture) move(ctx context.Context, orderID int64, target trade.WorkflowStatus) (*TransitionResult, error) {
	return f.engine.TransitionOrder(ctx, TransitionRequest{
		OrderID: orderID,
		Target:  string(target),
		Actor:   actorFor(target),
	})
}

// advance moves an order through targets in order, failing the test on any error
func (f *fixture) advance(t *testing.T, orderID int64, targets ...trade.WorkflowStatus) *TransitionResult {
	t.Helper()
	var res *TransitionResult
	for _, target := range targets {
		var err error
		res, err = f.move(context.Background(), orderID, target)
		require.NoError(t, err, "transition to %s", target)
	}
	return res
}

var (
	toConfirmed = []trade.WorkflowStatus{
		trade.WorkflowCallCenterReview,
		trade.WorkflowCallCenterApproved,
	}
	toPacked = []trade.WorkflowStatus{
		trade.WorkflowPickAndPack,
		trade.WorkflowPackagingInProgress,
		trade.WorkflowPackagingCompleted,
	}
	toDelivered = []trade.WorkflowStatus{
		trade.WorkflowReadyForDelivery,
		trade.WorkflowDeliveryInProgress,
		trade.WorkflowDeliveryCompleted,
	}
)

func (f *fixture) deliver(t *testing.T, orderID int64) *TransitionResult {
	t.Helper()
	f.advance(t, orderID, toConfirmed...)
	f.advance(t, orderID, trade.WorkflowStockKeeperApproved)
	f.advance(t, orderID, toPacked...)
	return f.advance(t, orderID, toDelivered...)
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
