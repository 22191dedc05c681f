package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/fulfillcrm/backend/internal/domain/identity"
	"github.com/fulfillcrm/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	keeper = identity.NewActor(10, "keeper", identity.RoleStockKeeper)
	seller = identity.NewActor(11, "seller", identity.RoleSeller)
)

func (f *ledgerFixture) receive(t *testing.T, wh, qty int64) *Movement {
	t.Helper()
	m, err := f.ledger.Receive(context.Background(), StockRequest{
		ProductID: f.productID, WarehouseID: wh, Quantity: qty, Reference: "PO-1",
		ReferenceKind: ReferenceSourcing, Actor: keeper,
	})
	require.NoError(t, err)
	return m
}

func TestLedger_Receive(t *testing.T) {
	t.Run("increments balance with completed stock_in", func(t *testing.T) {
		f := newLedgerFixture(t)
		m := f.receive(t, f.w1, 10)

		assert.Equal(t, MovementStockIn, m.Kind)
		assert.Equal(t, MovementCompleted, m.Status)
		assert.Equal(t, ConditionGood, m.Condition)
		require.NotNil(t, m.ProcessedBy)
		assert.Equal(t, keeper.ID(), *m.ProcessedBy)
		assert.True(t, IsTrackingNumber(m.TrackingNumber))
		assert.Equal(t, int64(10), f.balance(t, f.w1, ""))
		require.Len(t, f.ledger.Events(), 1)
		assert.Equal(t, EventTypeMovementCompleted, f.ledger.Events()[0].EventType())
	})

	t.Run("bin receipt updates warehouse and bin balances", func(t *testing.T) {
		f := newLedgerFixture(t)
		_, err := f.ledger.Receive(context.Background(), StockRequest{
			ProductID: f.productID, WarehouseID: f.w1, Quantity: 4, Actor: keeper, Bin: "a-01",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(4), f.balance(t, f.w1, ""))
		assert.Equal(t, int64(4), f.balance(t, f.w1, "A-01"))
	})

	t.Run("rejects zero quantity", func(t *testing.T) {
		f := newLedgerFixture(t)
		_, err := f.ledger.Receive(context.Background(), StockRequest{ProductID: f.productID, WarehouseID: f.w1, Quantity: 0, Actor: keeper})
		assert.True(t, errors.Is(err, shared.ErrInvalidQuantity))
	})

	t.Run("rejects unknown product and inactive warehouse", func(t *testing.T) {
		f := newLedgerFixture(t)
		_, err := f.ledger.Receive(context.Background(), StockRequest{ProductID: 99, WarehouseID: f.w1, Quantity: 1, Actor: keeper})
		assert.True(t, errors.Is(err, shared.ErrProductNotFound))

		require.NoError(t, f.warehouses.rows[f.w2].Deactivate())
		_, err = f.ledger.Receive(context.Background(), StockRequest{ProductID: f.productID, WarehouseID: f.w2, Quantity: 1, Actor: keeper})
		assert.True(t, errors.Is(err, shared.ErrWarehouseInactive))
		assert.Empty(t, f.movements.rows)
	})
}

func TestLedger_Ship(t *testing.T) {
	t.Run("shipping exactly on-hand leaves zero", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.receive(t, f.w1, 5)
		m, err := f.ledger.Ship(context.Background(), StockRequest{ProductID: f.productID, WarehouseID: f.w1, Quantity: 5, Actor: keeper})
		require.NoError(t, err)
		assert.Equal(t, MovementStockOut, m.Kind)
		assert.Equal(t, MovementCompleted, m.Status)
		assert.Equal(t, int64(0), f.balance(t, f.w1, ""))
	})

	t.Run("shipping on-hand plus one fails without a movement", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.receive(t, f.w1, 5)
		_, err := f.ledger.Ship(context.Background(), StockRequest{ProductID: f.productID, WarehouseID: f.w1, Quantity: 6, Actor: keeper})
		assert.True(t, errors.Is(err, shared.ErrInsufficientStock))
		assert.Len(t, f.movements.rows, 1)
		assert.Equal(t, int64(5), f.balance(t, f.w1, ""))
	})

	t.Run("shipping from an empty key fails", func(t *testing.T) {
		f := newLedgerFixture(t)
		_, err := f.ledger.Ship(context.Background(), StockRequest{ProductID: f.productID, WarehouseID: f.w2, Quantity: 1, Actor: keeper})
		assert.True(t, errors.Is(err, shared.ErrInsufficientStock))
		_, err = f.records.FindByKey(context.Background(), BalanceKey{ProductID: f.productID, WarehouseID: f.w2})
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})
}

func TestLedger_ReserveReleaseCommit(t *testing.T) {
	t.Run("reserve then release restores balance exactly", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.receive(t, f.w1, 10)

		res, err := f.ledger.Reserve(context.Background(), StockRequest{
			ProductID: f.productID, WarehouseID: f.w1, Quantity: 2, Reference: "ORD-1", ReferenceKind: ReferenceOrder, Actor: keeper,
		})
		require.NoError(t, err)
		assert.Equal(t, MovementInProgress, res.Status)
		assert.Nil(t, res.ProcessedBy)
		assert.Equal(t, int64(8), f.balance(t, f.w1, ""))

		comp, err := f.ledger.Release(context.Background(), res.ID, keeper)
		require.NoError(t, err)
		assert.Equal(t, MovementStockIn, comp.Kind)
		require.NotNil(t, comp.RelatedMovementID)
		assert.Equal(t, res.ID, *comp.RelatedMovementID)
		assert.Equal(t, "ORD-1", comp.Reference)
		assert.Equal(t, int64(10), f.balance(t, f.w1, ""))

		orig, _ := f.movements.FindByID(context.Background(), res.ID)
		assert.Equal(t, MovementCancelled, orig.Status)

		types := make([]string, 0)
		for _, e := range f.ledger.Events() {
			types = append(types, e.EventType())
		}
		assert.Contains(t, types, EventTypeStockReserved)
		assert.Contains(t, types, EventTypeStockReleased)
	})

	t.Run("release of a non reservation is rejected", func(t *testing.T) {
		f := newLedgerFixture(t)
		in := f.receive(t, f.w1, 10)
		_, err := f.ledger.Release(context.Background(), in.ID, keeper)
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
	})

	t.Run("commit completes without balance change", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.receive(t, f.w1, 10)
		res, err := f.ledger.Reserve(context.Background(), StockRequest{ProductID: f.productID, WarehouseID: f.w1, Quantity: 3, Actor: keeper})
		require.NoError(t, err)

		done, err := f.ledger.Commit(context.Background(), res.ID, keeper)
		require.NoError(t, err)
		assert.Equal(t, MovementCompleted, done.Status)
		assert.NotNil(t, done.ProcessedAt)
		assert.Equal(t, int64(7), f.balance(t, f.w1, ""))

		_, err = f.ledger.Commit(context.Background(), res.ID, keeper)
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
		_, err = f.ledger.Release(context.Background(), res.ID, keeper)
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
	})

	t.Run("compensate restocks a committed stock_out once", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.receive(t, f.w1, 10)
		res, _ := f.ledger.Reserve(context.Background(), StockRequest{ProductID: f.productID, WarehouseID: f.w1, Quantity: 3, Reference: "ORD-9", Actor: keeper})
		_, err := f.ledger.Commit(context.Background(), res.ID, keeper)
		require.NoError(t, err)

		comp, err := f.ledger.Compensate(context.Background(), res.ID, keeper, "order cancelled")
		require.NoError(t, err)
		assert.Equal(t, "order cancelled", comp.Reason)
		assert.Equal(t, int64(10), f.balance(t, f.w1, ""))

		orig, _ := f.movements.FindByID(context.Background(), res.ID)
		assert.Equal(t, MovementCompleted, orig.Status)

		_, err = f.ledger.Compensate(context.Background(), res.ID, keeper, "")
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
	})

	t.Run("missing movement", func(t *testing.T) {
		f := newLedgerFixture(t)
		_, err := f.ledger.Release(context.Background(), 42, keeper)
		assert.True(t, errors.Is(err, shared.ErrMovementNotFound))
	})
}

func TestLedger_Transfer(t *testing.T) {
	t.Run("round trip restores both balances with two movements", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.receive(t, f.w1, 10)

		_, err := f.ledger.Transfer(context.Background(), TransferRequest{ProductID: f.productID, FromWarehouseID: f.w1, ToWarehouseID: f.w2, Quantity: 4, Actor: keeper})
		require.NoError(t, err)
		assert.Equal(t, int64(6), f.balance(t, f.w1, ""))
		assert.Equal(t, int64(4), f.balance(t, f.w2, ""))

		_, err = f.ledger.Transfer(context.Background(), TransferRequest{ProductID: f.productID, FromWarehouseID: f.w2, ToWarehouseID: f.w1, Quantity: 4, Actor: keeper})
		require.NoError(t, err)
		assert.Equal(t, int64(10), f.balance(t, f.w1, ""))
		assert.Equal(t, int64(0), f.balance(t, f.w2, ""))

		var transfers int
		for _, mv := range f.movements.rows {
			if mv.Kind == MovementTransfer {
				transfers++
			}
		}
		assert.Equal(t, 2, transfers)
	})

	t.Run("insufficient source leaves destination untouched", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.receive(t, f.w2, 1)
		_, err := f.ledger.Transfer(context.Background(), TransferRequest{ProductID: f.productID, FromWarehouseID: f.w2, ToWarehouseID: f.w1, Quantity: 2, Actor: keeper})
		assert.True(t, errors.Is(err, shared.ErrInsufficientStock))
		assert.Equal(t, int64(0), f.balance(t, f.w1, ""))
		assert.Equal(t, int64(1), f.balance(t, f.w2, ""))
	})

	t.Run("same warehouse is rejected", func(t *testing.T) {
		f := newLedgerFixture(t)
		_, err := f.ledger.Transfer(context.Background(), TransferRequest{ProductID: f.productID, FromWarehouseID: f.w1, ToWarehouseID: f.w1, Quantity: 1, Actor: keeper})
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})
}

func TestLedger_Adjust(t *testing.T) {
	t.Run("negative delta decrements", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.receive(t, f.w1, 10)
		m, err := f.ledger.Adjust(context.Background(), AdjustRequest{ProductID: f.productID, WarehouseID: f.w1, Delta: -1, Reason: "cycle count 1", Actor: keeper})
		require.NoError(t, err)
		assert.Equal(t, MovementAdjustment, m.Kind)
		assert.Equal(t, int64(1), m.Quantity)
		assert.NotNil(t, m.SourceWarehouseID)
		assert.Nil(t, m.DestinationWarehouseID)
		assert.Equal(t, int64(-1), m.SignedQuantityFor(f.w1))
		assert.Equal(t, int64(9), f.balance(t, f.w1, ""))
	})

	t.Run("positive delta increments", func(t *testing.T) {
		f := newLedgerFixture(t)
		m, err := f.ledger.Adjust(context.Background(), AdjustRequest{ProductID: f.productID, WarehouseID: f.w1, Delta: 3, Reason: "found", Actor: keeper})
		require.NoError(t, err)
		assert.NotNil(t, m.DestinationWarehouseID)
		assert.Equal(t, int64(3), f.balance(t, f.w1, ""))
	})

	t.Run("requires elevated role", func(t *testing.T) {
		f := newLedgerFixture(t)
		_, err := f.ledger.Adjust(context.Background(), AdjustRequest{ProductID: f.productID, WarehouseID: f.w1, Delta: 3, Reason: "x", Actor: seller})
		assert.True(t, errors.Is(err, shared.ErrNotAuthorized))
	})

	t.Run("zero delta and below zero", func(t *testing.T) {
		f := newLedgerFixture(t)
		_, err := f.ledger.Adjust(context.Background(), AdjustRequest{ProductID: f.productID, WarehouseID: f.w1, Delta: 0, Reason: "x", Actor: keeper})
		assert.True(t, errors.Is(err, shared.ErrInvalidQuantity))
		_, err = f.ledger.Adjust(context.Background(), AdjustRequest{ProductID: f.productID, WarehouseID: f.w1, Delta: -1, Reason: "x", Actor: keeper})
		assert.True(t, errors.Is(err, shared.ErrInsufficientStock))
	})
}

func TestLedger_DamageAndWriteOff(t *testing.T) {
	t.Run("damage from outside does not add to sellable", func(t *testing.T) {
		f := newLedgerFixture(t)
		m, err := f.ledger.RecordDamage(context.Background(), DamageRequest{ProductID: f.productID, WarehouseID: f.w1, Quantity: 2, Reason: "crushed", Actor: keeper})
		require.NoError(t, err)
		assert.Equal(t, MovementDamage, m.Kind)
		assert.Equal(t, int64(0), f.balance(t, f.w1, ""))
		assert.Equal(t, int64(2), f.balance(t, f.w1, DamagedBin))
	})

	t.Run("damage from stock moves units into quarantine", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.receive(t, f.w1, 5)
		_, err := f.ledger.RecordDamage(context.Background(), DamageRequest{ProductID: f.productID, WarehouseID: f.w1, Quantity: 2, Reason: "dropped", Actor: keeper, FromStock: true})
		require.NoError(t, err)
		assert.Equal(t, int64(3), f.balance(t, f.w1, ""))
		assert.Equal(t, int64(2), f.balance(t, f.w1, DamagedBin))
	})

	t.Run("damage needs a reason", func(t *testing.T) {
		f := newLedgerFixture(t)
		_, err := f.ledger.RecordDamage(context.Background(), DamageRequest{ProductID: f.productID, WarehouseID: f.w1, Quantity: 2, Actor: keeper})
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})

	t.Run("write off removes expired units", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.receive(t, f.w1, 5)
		m, err := f.ledger.WriteOff(context.Background(), StockRequest{ProductID: f.productID, WarehouseID: f.w1, Quantity: 5, Reason: "expired", Actor: keeper})
		require.NoError(t, err)
		assert.Equal(t, MovementExpiry, m.Kind)
		assert.Equal(t, int64(0), f.balance(t, f.w1, ""))
	})
}

func TestLedger_BalancesMatchMovementLog(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	f.receive(t, f.w1, 20)
	res, err := f.ledger.Reserve(ctx, StockRequest{ProductID: f.productID, WarehouseID: f.w1, Quantity: 5, Actor: keeper})
	require.NoError(t, err)
	_, err = f.ledger.Transfer(ctx, TransferRequest{ProductID: f.productID, FromWarehouseID: f.w1, ToWarehouseID: f.w2, Quantity: 6, Actor: keeper, ToBin: "B-2"})
	require.NoError(t, err)
	_, err = f.ledger.Release(ctx, res.ID, keeper)
	require.NoError(t, err)
	_, err = f.ledger.Adjust(ctx, AdjustRequest{ProductID: f.productID, WarehouseID: f.w2, Delta: -1, Reason: "count", Actor: keeper})
	require.NoError(t, err)
	_, err = f.ledger.RecordDamage(ctx, DamageRequest{ProductID: f.productID, WarehouseID: f.w1, Quantity: 1, Reason: "torn", Actor: keeper, FromStock: true})
	require.NoError(t, err)

	for key, rec := range f.records.rows {
		assert.GreaterOrEqual(t, rec.Quantity, int64(0), key.String())
		assert.Equal(t, f.sumOfEffects(key), rec.Quantity, key.String())
	}
	assert.Equal(t, int64(13), f.balance(t, f.w1, ""))
	assert.Equal(t, int64(5), f.balance(t, f.w2, ""))
	assert.Equal(t, int64(6), f.balance(t, f.w2, "B-2"))
}

func TestLedger_CountableBalance(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)
	f.receive(t, f.w1, 6)
	_, err := f.ledger.Receive(ctx, StockRequest{ProductID: f.productID, WarehouseID: f.w1, Quantity: 4, Bin: "A1", Actor: keeper})
	require.NoError(t, err)
	_, err = f.ledger.RecordDamage(ctx, DamageRequest{ProductID: f.productID, WarehouseID: f.w1, Quantity: 2, Reason: "crushed", Actor: keeper})
	require.NoError(t, err)

	loose, err := f.ledger.CountableBalance(ctx, BalanceKey{ProductID: f.productID, WarehouseID: f.w1})
	require.NoError(t, err)
	assert.Equal(t, int64(6), loose, "bin units and damaged quarantine are excluded")

	binned, err := f.ledger.CountableBalance(ctx, BalanceKey{ProductID: f.productID, WarehouseID: f.w1, Bin: "a1"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), binned)

	none, err := f.ledger.CountableBalance(ctx, BalanceKey{ProductID: f.productID, WarehouseID: f.w2})
	require.NoError(t, err)
	assert.Zero(t, none)
}

func TestLedger_EnsureUnowned(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)
	f.receive(t, f.w1, 10)

	res, err := f.ledger.Reserve(ctx, StockRequest{
		ProductID: f.productID, WarehouseID: f.w1, Quantity: 2, Reference: "ORD-9", ReferenceKind: ReferenceOrder, Actor: keeper,
	})
	require.NoError(t, err)
	assert.True(t, errors.Is(f.ledger.EnsureUnowned(ctx, res.ID), shared.ErrInvalidState))

	manual, err := f.ledger.Reserve(ctx, StockRequest{ProductID: f.productID, WarehouseID: f.w1, Quantity: 1, Reference: "HOLD", Actor: keeper})
	require.NoError(t, err)
	assert.NoError(t, f.ledger.EnsureUnowned(ctx, manual.ID))
}
