package inventory

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/fulfillcrm/backend/internal/domain/inventory"
	"github.com/fulfillcrm/backend/internal/domain/shared"
	"github.com/fulfillcrm/backend/internal/infrastructure/persistence"
	"github.com/fulfillcrm/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countFixture struct {
	env      *testutil.Env
	svc      *StockCountService
	ledger   *LedgerService
	whID     int64
	argan    int64
	ghassoul int64
}

func newCountFixture(t *testing.T) *countFixture {
	t.Helper()
	env := testutil.NewEnv(t)
	svc := NewStockCountService(env.Runner, nil)
	svc.SetClock(env.Clock)
	ledger := NewLedgerService(env.Runner, nil)
	ledger.SetClock(env.Clock)

	wh := env.SeedWarehouse(t, "Casablanca")
	argan := env.SeedProduct(t, 9, "ARGAN", "100.00")
	ghassoul := env.SeedProduct(t, 9, "GHASSOUL", "40.00")
	env.SeedStock(t, argan.ID, wh.ID, 10)
	env.SeedStock(t, ghassoul.ID, wh.ID, 4)
	return &countFixture{env: env, svc: svc, ledger: ledger, whID: wh.ID, argan: argan.ID, ghassoul: ghassoul.ID}
}

func (f *countFixture) open(t *testing.T) *SessionResponse {
	t.Helper()
	session, err := f.svc.OpenSession(context.Background(), OpenSessionRequest{
		WarehouseID: f.whID,
		Actor:       testutil.StockKeeper(4),
	})
	require.NoError(t, err)
	return session
}

func (f *countFixture) count(t *testing.T, sessionID, productID, counted int64) *CountRecordResponse {
	t.Helper()
	rec, err := f.svc.RecordCount(context.Background(), RecordCountRequest{
		SessionID: sessionID,
		ProductID: productID,
		Counted:   counted,
		Actor:     testutil.StockKeeper(4),
	})
	require.NoError(t, err)
	return rec
}

func TestStockCountService_OpenSession(t *testing.T) {
	ctx := context.Background()

	t.Run("snapshots sellable lines and skips the damaged bin", func(t *testing.T) {
		f := newCountFixture(t)
		_, err := f.ledger.RecordDamage(ctx, DamageRequest{
			ProductID:   f.argan,
			WarehouseID: f.whID,
			Quantity:    1,
			FromStock:   true,
			Reason:      "leaking",
			Actor:       testutil.StockKeeper(4),
		})
		require.NoError(t, err)

		session := f.open(t)
		assert.Equal(t, inventory.CountSessionOpen, session.Status)
		require.Len(t, session.Records, 2)
		for _, r := range session.Records {
			assert.Empty(t, r.Bin)
			assert.Nil(t, r.CountedQuantity)
			assert.Equal(t, inventory.ResolutionPending, r.Resolution)
		}

		open, err := f.svc.OpenSessions(ctx, f.whID)
		require.NoError(t, err)
		assert.Len(t, open, 1)
	})

	t.Run("requires a stock keeper", func(t *testing.T) {
		f := newCountFixture(t)
		_, err := f.svc.OpenSession(ctx, OpenSessionRequest{WarehouseID: f.whID, Actor: testutil.Packager(6)})
		assert.True(t, errors.Is(err, shared.ErrNotAuthorized))
	})

	t.Run("rejects an inactive warehouse", func(t *testing.T) {
		f := newCountFixture(t)
		repo := persistence.NewGormWarehouseRepository(f.env.DB)
		wh, err := repo.FindByID(ctx, f.whID)
		require.NoError(t, err)
		require.NoError(t, wh.Deactivate())
		require.NoError(t, repo.Save(ctx, wh))

		_, err = f.svc.OpenSession(ctx, OpenSessionRequest{WarehouseID: f.whID, Actor: testutil.StockKeeper(4)})
		assert.True(t, errors.Is(err, shared.ErrWarehouseInactive))
	})
}

func (f *countFixture) receiveIntoBin(t *testing.T, productID, qty int64, bin string) {
	t.Helper()
	_, err := f.ledger.Receive(context.Background(), StockRequest{
		ProductID:   productID,
		WarehouseID: f.whID,
		Quantity:    qty,
		Bin:         bin,
		Reference:   "PO-BIN",
		Actor:       testutil.StockKeeper(4),
	})
	require.NoError(t, err)
}

func binsOf(session *SessionResponse, productID int64) []string {
	var bins []string
	for _, r := range session.Records {
		if r.ProductID == productID {
			bins = append(bins, r.Bin)
		}
	}
	return bins
}

func TestStockCountService_BinnedStock(t *testing.T) {
	ctx := context.Background()
	keeper := testutil.StockKeeper(4)

	t.Run("stock held only in a bin is counted once", func(t *testing.T) {
		f := newCountFixture(t)
		nila := f.env.SeedProduct(t, 9, "NILA", "60.00")
		f.receiveIntoBin(t, nila.ID, 10, "A1")

		session := f.open(t)
		assert.Equal(t, []string{"A1"}, binsOf(session, nila.ID), "the warehouse-level row only mirrors the bin")

		rec, err := f.svc.RecordCount(ctx, RecordCountRequest{SessionID: session.ID, ProductID: nila.ID, Bin: "A1", Counted: 9, Actor: keeper})
		require.NoError(t, err)
		assert.Equal(t, int64(10), rec.SystemQuantity)
		f.count(t, session.ID, f.argan, 10)
		f.count(t, session.ID, f.ghassoul, 4)

		_, err = f.svc.AcceptAllVariances(ctx, session.ID, keeper, "count-bins")
		require.NoError(t, err)
		assert.Equal(t, int64(9), f.env.OnHand(t, nila.ID, f.whID))
		assert.Equal(t, int64(9), f.env.BinBalance(t, nila.ID, f.whID, "A1"))

		closed, err := f.svc.CloseSession(ctx, CloseSessionRequest{SessionID: session.ID, Actor: keeper})
		require.NoError(t, err)
		assert.Equal(t, inventory.CountSessionClosed, closed.Status)
	})

	t.Run("unbinned remainder has its own line", func(t *testing.T) {
		f := newCountFixture(t)
		f.receiveIntoBin(t, f.argan, 3, "B2")

		session := f.open(t)
		assert.ElementsMatch(t, []string{"", "B2"}, binsOf(session, f.argan))

		loose := f.count(t, session.ID, f.argan, 9)
		assert.Equal(t, int64(10), loose.SystemQuantity, "only units outside B2")
		binned, err := f.svc.RecordCount(ctx, RecordCountRequest{SessionID: session.ID, ProductID: f.argan, Bin: "B2", Counted: 3, Actor: keeper})
		require.NoError(t, err)
		assert.Equal(t, int64(3), binned.SystemQuantity)

		_, err = f.svc.AcceptVariance(ctx, ResolveVarianceRequest{RecordID: loose.ID, Actor: keeper})
		require.NoError(t, err)
		assert.Equal(t, int64(12), f.env.OnHand(t, f.argan, f.whID))
		assert.Equal(t, int64(3), f.env.BinBalance(t, f.argan, f.whID, "B2"))
	})
}

func TestStockCountService_FullCycle(t *testing.T) {
	ctx := context.Background()
	f := newCountFixture(t)
	keeper := testutil.StockKeeper(4)
	session := f.open(t)

	short := f.count(t, session.ID, f.argan, 8)
	require.NotNil(t, short.Variance)
	assert.Equal(t, int64(10), short.SystemQuantity)
	assert.Equal(t, int64(-2), *short.Variance)

	exact := f.count(t, session.ID, f.ghassoul, 4)
	assert.Equal(t, int64(0), *exact.Variance)

	_, err := f.svc.CloseSession(ctx, CloseSessionRequest{SessionID: session.ID, Actor: keeper})
	assert.True(t, errors.Is(err, shared.ErrInvalidState), "an unresolved variance blocks closing")

	accepted, err := f.svc.AcceptVariance(ctx, ResolveVarianceRequest{RecordID: short.ID, Actor: keeper})
	require.NoError(t, err)
	assert.Equal(t, int64(8), f.env.OnHand(t, f.argan, f.whID))

	var line CountRecordResponse
	for _, r := range accepted.Records {
		if r.ID == short.ID {
			line = r
		}
	}
	assert.Equal(t, inventory.ResolutionAccepted, line.Resolution)
	assert.True(t, line.AdjustmentApplied)
	require.NotNil(t, line.AdjustmentMovementID)

	m, err := f.ledger.GetMovement(ctx, *line.AdjustmentMovementID)
	require.NoError(t, err)
	assert.Equal(t, inventory.MovementAdjustment, m.Kind)
	assert.Equal(t, inventory.AdjustmentReason(session.ID), m.Reason)
	assert.Equal(t, inventory.ReferenceCountSession, m.ReferenceKind)
	assert.Equal(t, strconv.FormatInt(session.ID, 10), m.Reference)

	_, err = f.svc.AcceptVariance(ctx, ResolveVarianceRequest{RecordID: short.ID, Actor: keeper})
	assert.True(t, errors.Is(err, shared.ErrInvalidState), "a variance is applied once")

	closed, err := f.svc.CloseSession(ctx, CloseSessionRequest{SessionID: session.ID, Actor: keeper})
	require.NoError(t, err)
	assert.Equal(t, inventory.CountSessionClosed, closed.Status)
	for _, r := range closed.Records {
		assert.Equal(t, inventory.ResolutionAccepted, r.Resolution)
	}
	assert.Len(t, f.env.Publisher.OfType(inventory.EventTypeCountSessionClosed), 1)
	assert.Len(t, f.env.Publisher.OfType(inventory.EventTypeStockAdjusted), 1)

	_, err = f.svc.RecordCount(ctx, RecordCountRequest{SessionID: session.ID, ProductID: f.argan, Counted: 1, Actor: keeper})
	assert.True(t, errors.Is(err, shared.ErrInvalidState), "closed sessions take no counts")
}

func TestStockCountService_SystemQuantityAtCountTime(t *testing.T) {
	f := newCountFixture(t)
	session := f.open(t)

	f.env.SeedStock(t, f.argan, f.whID, 2)
	rec := f.count(t, session.ID, f.argan, 12)
	assert.Equal(t, int64(12), rec.SystemQuantity)
	assert.Equal(t, int64(0), *rec.Variance)
}

func TestStockCountService_RejectAndSkip(t *testing.T) {
	ctx := context.Background()
	f := newCountFixture(t)
	keeper := testutil.StockKeeper(4)
	session := f.open(t)

	over := f.count(t, session.ID, f.argan, 13)

	_, err := f.svc.RejectVariance(ctx, ResolveVarianceRequest{RecordID: over.ID, Actor: keeper})
	assert.True(t, errors.Is(err, shared.ErrInvalidInput), "rejecting needs a reason")

	_, err = f.svc.RejectVariance(ctx, ResolveVarianceRequest{RecordID: over.ID, Reason: "miscount", Actor: keeper})
	require.NoError(t, err)
	assert.Equal(t, int64(10), f.env.OnHand(t, f.argan, f.whID))

	_, err = f.svc.CloseSession(ctx, CloseSessionRequest{SessionID: session.ID, Actor: keeper})
	assert.True(t, errors.Is(err, shared.ErrInvalidState), "uncounted lines block closing")

	skip := SkipLineRequest{SessionID: session.ID, ProductID: f.ghassoul, Reason: "shelf blocked", IdempotencyKey: "skip-ghassoul", Actor: keeper}
	_, err = f.svc.SkipLine(ctx, skip)
	require.NoError(t, err)
	_, err = f.svc.SkipLine(ctx, skip)
	require.NoError(t, err, "replayed by idempotency key")

	closeReq := CloseSessionRequest{SessionID: session.ID, IdempotencyKey: "close-count", Actor: keeper}
	closed, err := f.svc.CloseSession(ctx, closeReq)
	require.NoError(t, err)
	assert.Equal(t, inventory.CountSessionClosed, closed.Status)
	assert.Empty(t, f.env.Publisher.OfType(inventory.EventTypeStockAdjusted))

	again, err := f.svc.CloseSession(ctx, closeReq)
	require.NoError(t, err)
	assert.Equal(t, closed.Status, again.Status)
	assert.Len(t, f.env.Publisher.OfType(inventory.EventTypeCountSessionClosed), 1)

	_, err = f.svc.CloseSession(ctx, CloseSessionRequest{SessionID: session.ID, Actor: keeper})
	assert.True(t, errors.Is(err, shared.ErrInvalidState), "a fresh close of a closed session is refused")
}

func TestStockCountService_AcceptAllVariances(t *testing.T) {
	ctx := context.Background()
	f := newCountFixture(t)
	keeper := testutil.StockKeeper(4)
	session := f.open(t)

	f.count(t, session.ID, f.argan, 11)
	f.count(t, session.ID, f.ghassoul, 1)

	resp, err := f.svc.AcceptAllVariances(ctx, session.ID, keeper, "count-accept-all")
	require.NoError(t, err)
	for _, r := range resp.Records {
		assert.Equal(t, inventory.ResolutionAccepted, r.Resolution)
	}
	assert.Equal(t, int64(11), f.env.OnHand(t, f.argan, f.whID))
	assert.Equal(t, int64(1), f.env.OnHand(t, f.ghassoul, f.whID))

	again, err := f.svc.AcceptAllVariances(ctx, session.ID, keeper, "count-accept-all")
	require.NoError(t, err)
	assert.Equal(t, resp.Records, again.Records, "replayed by idempotency key")
	assert.Equal(t, int64(11), f.env.OnHand(t, f.argan, f.whID))
}

func TestStockCountService_RecordCountValidation(t *testing.T) {
	ctx := context.Background()
	f := newCountFixture(t)
	keeper := testutil.StockKeeper(4)
	session := f.open(t)

	_, err := f.svc.RecordCount(ctx, RecordCountRequest{SessionID: session.ID, ProductID: f.argan, Bin: "damaged", Counted: 1, Actor: keeper})
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))

	_, err = f.svc.RecordCount(ctx, RecordCountRequest{SessionID: session.ID, ProductID: f.argan, Counted: -1, Actor: keeper})
	assert.True(t, errors.Is(err, shared.ErrInvalidQuantity))

	_, err = f.svc.RecordCount(ctx, RecordCountRequest{SessionID: session.ID, ProductID: 999, Counted: 1, Actor: keeper})
	assert.True(t, errors.Is(err, shared.ErrProductNotFound))

	_, err = f.svc.RecordCount(ctx, RecordCountRequest{SessionID: 999, ProductID: f.argan, Counted: 1, Actor: keeper})
	assert.True(t, errors.Is(err, shared.ErrSessionNotFound))

	_, err = f.svc.AcceptVariance(ctx, ResolveVarianceRequest{RecordID: 999, Actor: keeper})
	assert.True(t, errors.Is(err, shared.ErrRecordNotFound))

	got, err := f.svc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	for _, r := range got.Records {
		assert.Nil(t, r.CountedQuantity, "failed counts store nothing")
	}
}
