package inventory

import (
	"errors"
	"testing"
	"time"

	"github.com/fulfillcrm/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v int64) *int64 { return &v }

func TestNewMovement_Invariants(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		spec MovementSpec
		ok   bool
	}{
		{"stock_in with destination", MovementSpec{Kind: MovementStockIn, ProductID: 1, Quantity: 1, DestinationWarehouseID: ptr(1)}, true},
		{"stock_in with source", MovementSpec{Kind: MovementStockIn, ProductID: 1, Quantity: 1, SourceWarehouseID: ptr(1), DestinationWarehouseID: ptr(2)}, false},
		{"stock_out with source", MovementSpec{Kind: MovementStockOut, ProductID: 1, Quantity: 1, SourceWarehouseID: ptr(1)}, true},
		{"stock_out without source", MovementSpec{Kind: MovementStockOut, ProductID: 1, Quantity: 1, DestinationWarehouseID: ptr(1)}, false},
		{"transfer with both", MovementSpec{Kind: MovementTransfer, ProductID: 1, Quantity: 1, SourceWarehouseID: ptr(1), DestinationWarehouseID: ptr(2)}, true},
		{"transfer same warehouse", MovementSpec{Kind: MovementTransfer, ProductID: 1, Quantity: 1, SourceWarehouseID: ptr(1), DestinationWarehouseID: ptr(1)}, false},
		{"adjustment with both", MovementSpec{Kind: MovementAdjustment, ProductID: 1, Quantity: 1, SourceWarehouseID: ptr(1), DestinationWarehouseID: ptr(1)}, false},
		{"damage to quarantine", MovementSpec{Kind: MovementDamage, ProductID: 1, Quantity: 1, DestinationWarehouseID: ptr(1), DestinationBin: DamagedBin}, true},
		{"damage to plain bin", MovementSpec{Kind: MovementDamage, ProductID: 1, Quantity: 1, DestinationWarehouseID: ptr(1)}, false},
		{"zero quantity", MovementSpec{Kind: MovementStockIn, ProductID: 1, Quantity: 0, DestinationWarehouseID: ptr(1)}, false},
		{"unknown kind", MovementSpec{Kind: "teleport", ProductID: 1, Quantity: 1, DestinationWarehouseID: ptr(1)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMovement(tt.spec, now)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestMovement_StatusTransitions(t *testing.T) {
	now := time.Now()
	m, err := NewMovement(MovementSpec{Kind: MovementStockOut, Status: MovementInProgress, ProductID: 1, Quantity: 2, SourceWarehouseID: ptr(1), ActorID: 5}, now)
	require.NoError(t, err)
	assert.Nil(t, m.ProcessedBy)
	assert.True(t, m.IsReservation())

	require.NoError(t, m.Complete(6, now))
	assert.Equal(t, int64(6), *m.ProcessedBy)
	assert.NoError(t, m.Validate())

	err = m.Complete(6, now)
	assert.True(t, errors.Is(err, shared.ErrInvalidState))
	err = m.Cancel(6, now)
	assert.True(t, errors.Is(err, shared.ErrInvalidState))
}

func TestMovement_Effects(t *testing.T) {
	now := time.Now()
	t.Run("transfer with bins", func(t *testing.T) {
		m, err := NewMovement(MovementSpec{Kind: MovementTransfer, ProductID: 3, Quantity: 4,
			SourceWarehouseID: ptr(1), DestinationWarehouseID: ptr(2), SourceBin: "A", DestinationBin: "B"}, now)
		require.NoError(t, err)
		assert.ElementsMatch(t, []Effect{
			{Key: BalanceKey{ProductID: 3, WarehouseID: 1}, Delta: -4},
			{Key: BalanceKey{ProductID: 3, WarehouseID: 1, Bin: "A"}, Delta: -4},
			{Key: BalanceKey{ProductID: 3, WarehouseID: 2}, Delta: 4},
			{Key: BalanceKey{ProductID: 3, WarehouseID: 2, Bin: "B"}, Delta: 4},
		}, m.Effects())
		assert.Equal(t, int64(-4), m.SignedQuantityFor(1))
		assert.Equal(t, int64(4), m.SignedQuantityFor(2))
	})

	t.Run("return damage only touches quarantine", func(t *testing.T) {
		m, err := NewMovement(MovementSpec{Kind: MovementDamage, ProductID: 3, Quantity: 2,
			DestinationWarehouseID: ptr(1), DestinationBin: DamagedBin}, now)
		require.NoError(t, err)
		assert.Equal(t, []Effect{{Key: BalanceKey{ProductID: 3, WarehouseID: 1, Bin: DamagedBin}, Delta: 2}}, m.Effects())
		assert.Equal(t, int64(0), m.SignedQuantityFor(1))
	})
}

func TestBalanceKey_Less(t *testing.T) {
	a := BalanceKey{ProductID: 9, WarehouseID: 1}
	b := BalanceKey{ProductID: 1, WarehouseID: 2}
	c := BalanceKey{ProductID: 9, WarehouseID: 1, Bin: "A"}
	assert.True(t, a.Less(b))
	assert.True(t, a.Less(c))
	assert.False(t, b.Less(a))
}

func TestTrackingNumber(t *testing.T) {
	for i := 0; i < 20; i++ {
		tn, err := NewTrackingNumber()
		require.NoError(t, err)
		assert.True(t, IsTrackingNumber(tn), tn)
	}
	assert.False(t, IsTrackingNumber("TRK-abcdefgh"))
	assert.False(t, IsTrackingNumber("TRK-1234567"))
}

func TestInventoryRecord_Apply(t *testing.T) {
	r := NewInventoryRecord(BalanceKey{ProductID: 1, WarehouseID: 1}, time.Now())
	require.NoError(t, r.Apply(3, time.Now()))
	assert.True(t, r.CanSupply(3))
	err := r.Apply(-4, time.Now())
	assert.True(t, errors.Is(err, shared.ErrInsufficientStock))
	assert.Equal(t, int64(3), r.Quantity)
	require.NoError(t, r.Apply(-3, time.Now()))
	assert.Equal(t, int64(0), r.Quantity)
}
