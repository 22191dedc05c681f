package trade

import (
	"errors"
	"testing"
	"time"

	"github.com/fulfillcrm/backend/internal/domain/shared"
	"github.com/fulfillcrm/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v int64) *int64 { return &v }

func testInput() OrderInput {
	addr, _ := valueobject.NewAddress("12 Rue Principale", "Casablanca", valueobject.WithCountry("MA"))
	return OrderInput{
		Code:          "ORD-0001",
		SellerID:      5,
		CustomerName:  "Amina",
		CustomerPhone: "+212600000000",
		Address:       addr,
		ProductID:     3,
		Quantity:      2,
		UnitPrice:     decimal.NewFromInt(100),
	}
}

func createTestOrder(t *testing.T) *Order {
	t.Helper()
	o, err := NewOrder(testInput())
	require.NoError(t, err)
	o.ID = 42
	return o
}

func advance(t *testing.T, o *Order, targets ...WorkflowStatus) {
	t.Helper()
	for _, target := range targets {
		require.NoError(t, o.TransitionTo(target, 1, time.Now()))
	}
}

func TestNewOrder(t *testing.T) {
	t.Run("starts submitted and pending", func(t *testing.T) {
		o := createTestOrder(t)
		assert.Equal(t, WorkflowSellerSubmitted, o.WorkflowStatus)
		assert.Equal(t, OrderStatusPending, o.Status)
		assert.True(t, o.BasePrice().Equal(decimal.NewFromInt(200)))
		assert.Nil(t, o.AgentID)
	})

	t.Run("rejects invalid quantity and price", func(t *testing.T) {
		in := testInput()
		in.Quantity = 0
		_, err := NewOrder(in)
		assert.True(t, errors.Is(err, shared.ErrInvalidQuantity))

		in = testInput()
		in.UnitPrice = decimal.NewFromInt(-1)
		_, err = NewOrder(in)
		assert.True(t, errors.Is(err, shared.ErrInvalidQuantity))
	})

	t.Run("rejects missing address", func(t *testing.T) {
		in := testInput()
		in.Address = valueobject.Address{}
		_, err := NewOrder(in)
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})
}

func TestOrder_TransitionTo(t *testing.T) {
	t.Run("status follows workflow", func(t *testing.T) {
		o := createTestOrder(t)
		advance(t, o, WorkflowCallCenterReview, WorkflowCallCenterApproved)
		assert.Equal(t, OrderStatusConfirmed, o.Status)
		advance(t, o, WorkflowStockKeeperApproved, WorkflowPickAndPack, WorkflowPackagingInProgress,
			WorkflowPackagingCompleted, WorkflowReadyForDelivery)
		assert.Equal(t, OrderStatusShipped, o.Status)
		advance(t, o, WorkflowDeliveryInProgress, WorkflowDeliveryCompleted)
		assert.Equal(t, OrderStatusDelivered, o.Status)
		assert.NotNil(t, o.DeliveredAt)
		assert.True(t, o.HasLegalStatus())

		events := o.GetDomainEvents()
		last := events[len(events)-1]
		assert.Equal(t, EventTypeOrderDelivered, last.EventType())
	})

	t.Run("illegal transition leaves order untouched", func(t *testing.T) {
		o := createTestOrder(t)
		version := o.Version
		err := o.TransitionTo(WorkflowPackagingCompleted, 1, time.Now())
		assert.True(t, errors.Is(err, shared.ErrIllegalTransition))
		assert.Equal(t, WorkflowSellerSubmitted, o.WorkflowStatus)
		assert.Equal(t, version, o.Version)
		assert.Empty(t, o.GetDomainEvents())
	})

	t.Run("delivered cannot be cancelled", func(t *testing.T) {
		o := createTestOrder(t)
		o.WorkflowStatus = WorkflowDeliveryCompleted
		o.Status = OrderStatusDelivered
		err := o.TransitionTo(WorkflowCancelled, 1, time.Now())
		assert.True(t, errors.Is(err, shared.ErrIllegalTransition))
	})

	t.Run("cancel emits status change and cancellation", func(t *testing.T) {
		o := createTestOrder(t)
		advance(t, o, WorkflowCallCenterReview, WorkflowCancelled)
		events := o.GetDomainEvents()
		require.Len(t, events, 3)
		changed := events[1].(*OrderStatusChangedEvent)
		assert.Equal(t, WorkflowCallCenterReview, changed.From)
		assert.Equal(t, WorkflowCancelled, changed.To)
		assert.Equal(t, OrderStatusCancelled, changed.ToStatus)
		cancelled := events[2].(*OrderCancelledEvent)
		assert.Equal(t, WorkflowCallCenterReview, cancelled.From)
	})
}

func TestOrder_AssignAndEscalate(t *testing.T) {
	now := time.Now()

	t.Run("second assignment needs a manager", func(t *testing.T) {
		o := createTestOrder(t)
		require.NoError(t, o.Assign(11, 11, false, now))
		err := o.Assign(12, 12, false, now)
		assert.True(t, errors.Is(err, shared.ErrNotAuthorized))
		require.NoError(t, o.Assign(12, 20, true, now))
		assert.True(t, o.IsAssignedTo(12))
		assert.Equal(t, int64(20), *o.ManagerID)
	})

	t.Run("escalation keeps workflow and is cleared by a manager", func(t *testing.T) {
		o := createTestOrder(t)
		require.NoError(t, o.Assign(11, 11, false, now))
		require.NoError(t, o.Escalate("customer unreachable", 11, now))
		assert.True(t, o.Escalated)
		assert.Equal(t, WorkflowSellerSubmitted, o.WorkflowStatus)
		assert.Equal(t, int64(11), *o.EscalatedBy)

		assert.True(t, errors.Is(o.Escalate("again", 11, now), shared.ErrInvalidState))

		require.NoError(t, o.Assign(13, 20, true, now))
		assert.False(t, o.Escalated)
		assert.Empty(t, o.EscalationReason)
	})

	t.Run("escalation needs a reason", func(t *testing.T) {
		o := createTestOrder(t)
		assert.True(t, errors.Is(o.Escalate("  ", 11, now), shared.ErrInvalidInput))
	})
}

func TestOrder_Postpone(t *testing.T) {
	now := time.Now()
	o := createTestOrder(t)
	assert.Error(t, o.Postpone(now.Add(-time.Hour), "late", 11, now))

	require.NoError(t, o.Postpone(now.Add(24*time.Hour), "call back tomorrow", 11, now))
	assert.True(t, o.IsPostponed(now))
	assert.Equal(t, WorkflowSellerSubmitted, o.WorkflowStatus)
	assert.Equal(t, OrderStatusPending, o.Status)

	advance(t, o, WorkflowCancelled)
	assert.False(t, o.IsPostponed(now))
}

func TestNewReturnEvent(t *testing.T) {
	delivered := func() *Order {
		o := createTestOrder(t)
		o.Quantity = 5
		o.WorkflowStatus = WorkflowDeliveryCompleted
		o.Status = OrderStatusDelivered
		return o
	}
	now := time.Now()

	t.Run("valid split", func(t *testing.T) {
		r, err := NewReturnEvent(delivered(), 1, 3, 2, "crushed", 30, now)
		require.NoError(t, err)
		assert.Equal(t, int64(5), r.TotalQuantity())
	})

	tests := []struct {
		name    string
		good    int64
		damaged int64
		reason  string
		want    error
	}{
		{"more than shipped", 4, 2, "crushed", shared.ErrInvalidQuantity},
		{"negative", -1, 2, "crushed", shared.ErrInvalidQuantity},
		{"empty return", 0, 0, "", shared.ErrInvalidQuantity},
		{"damage without reason", 3, 1, "", shared.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReturnEvent(delivered(), 1, tt.good, tt.damaged, tt.reason, 30, now)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}

	t.Run("order must be delivered", func(t *testing.T) {
		_, err := NewReturnEvent(createTestOrder(t), 1, 1, 0, "", 30, now)
		assert.True(t, errors.Is(err, shared.ErrIllegalTransition))
	})
}
