package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fulfillcrm/backend/internal/domain/catalog"
	"github.com/fulfillcrm/backend/internal/domain/identity"
	"github.com/fulfillcrm/backend/internal/domain/shared"
)

// LedgerStore is the set of repositories a Ledger works against.
// All of them must be bound to the same transaction.
type LedgerStore struct {
	Records    RecordRepository
	Movements  MovementRepository
	Products   catalog.ProductRepository
	Warehouses catalog.WarehouseRepository
}

// Ledger is the only writer of InventoryRecord balances. Every balance
// change is recorded as a Movement, and record rows are locked in
// ascending (warehouse, product, bin) order before they are changed.
//
// A Ledger is bound to one transaction and collects the domain events of
// the movements it writes; the caller publishes them after commit.
type Ledger struct {
	store  LedgerStore
	clock  func() time.Time
	events []shared.DomainEvent
}

// LedgerOption configures a Ledger
type LedgerOption func(*Ledger)

// WithClock overrides the time source
func WithClock(clock func() time.Time) LedgerOption {
	return func(l *Ledger) {
		l.clock = clock
	}
}

// NewLedger creates a ledger over store
func NewLedger(store LedgerStore, opts ...LedgerOption) *Ledger {
	l := &Ledger{store: store, clock: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Events returns the events recorded so far
func (l *Ledger) Events() []shared.DomainEvent {
	return l.events
}

func (l *Ledger) now() time.Time {
	return l.clock().UTC()
}

// StockRequest is the input of single-warehouse operations
type StockRequest struct {
	ProductID     int64
	WarehouseID   int64
	Quantity      int64
	Reference     string
	ReferenceKind ReferenceKind
	Actor         identity.Actor
	Condition     Condition
	Bin           string
	Reason        string
}

// TransferRequest is the input of Transfer
type TransferRequest struct {
	ProductID       int64
	FromWarehouseID int64
	ToWarehouseID   int64
	Quantity        int64
	Reference       string
	ReferenceKind   ReferenceKind
	Actor           identity.Actor
	FromBin         string
	ToBin           string
	Reason          string
}

// AdjustRequest is the input of Adjust. Delta may be negative but not zero.
type AdjustRequest struct {
	ProductID     int64
	WarehouseID   int64
	Bin           string
	Delta         int64
	Reason        string
	Reference     string
	ReferenceKind ReferenceKind
	Actor         identity.Actor
}

// DamageRequest is the input of RecordDamage. With FromStock the units
// leave sellable on-hand; without it they arrive from outside, as with returns.
type DamageRequest struct {
	ProductID     int64
	WarehouseID   int64
	Quantity      int64
	Reference     string
	ReferenceKind ReferenceKind
	Reason        string
	Actor         identity.Actor
	FromStock     bool
}

// Receive records a completed stock_in and increments the balance
func (l *Ledger) Receive(ctx context.Context, req StockRequest) (*Movement, error) {
	return l.receive(ctx, MovementStockIn, req)
}

// ReceiveReturn records a completed return-kind receipt of good units
func (l *Ledger) ReceiveReturn(ctx context.Context, req StockRequest) (*Movement, error) {
	return l.receive(ctx, MovementReturn, req)
}

func (l *Ledger) receive(ctx context.Context, kind MovementKind, req StockRequest) (*Movement, error) {
	if err := l.checkTargets(ctx, req.ProductID, req.Quantity, req.WarehouseID); err != nil {
		return nil, err
	}
	if req.Condition == "" {
		req.Condition = ConditionGood
	}
	wh := req.WarehouseID
	m, err := NewMovement(MovementSpec{
		Kind:                   kind,
		Status:                 MovementCompleted,
		ProductID:              req.ProductID,
		Quantity:               req.Quantity,
		DestinationWarehouseID: &wh,
		DestinationBin:         normalizeBin(req.Bin),
		Reference:              req.Reference,
		ReferenceKind:          req.ReferenceKind,
		ActorID:                req.Actor.ID(),
		Reason:                 req.Reason,
		Condition:              req.Condition,
	}, l.now())
	if err != nil {
		return nil, err
	}
	if err := l.apply(ctx, m); err != nil {
		return nil, err
	}
	l.record(NewMovementCompletedEvent(m))
	return m, nil
}

// Ship records a completed stock_out and decrements the balance
func (l *Ledger) Ship(ctx context.Context, req StockRequest) (*Movement, error) {
	m, err := l.outbound(ctx, MovementStockOut, MovementCompleted, req)
	if err != nil {
		return nil, err
	}
	l.record(NewMovementCompletedEvent(m))
	return m, nil
}

// Reserve records an in-progress stock_out. On-hand drops immediately;
// Release rolls it back and Commit finalizes it.
func (l *Ledger) Reserve(ctx context.Context, req StockRequest) (*Movement, error) {
	m, err := l.outbound(ctx, MovementStockOut, MovementInProgress, req)
	if err != nil {
		return nil, err
	}
	l.record(NewStockReservedEvent(m))
	return m, nil
}

// WriteOff records a completed expiry movement that removes units from on-hand
func (l *Ledger) WriteOff(ctx context.Context, req StockRequest) (*Movement, error) {
	if strings.TrimSpace(req.Reason) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Write-off requires a reason")
	}
	m, err := l.outbound(ctx, MovementExpiry, MovementCompleted, req)
	if err != nil {
		return nil, err
	}
	l.record(NewMovementCompletedEvent(m))
	return m, nil
}

func (l *Ledger) outbound(ctx context.Context, kind MovementKind, status MovementStatus, req StockRequest) (*Movement, error) {
	if err := l.checkTargets(ctx, req.ProductID, req.Quantity, req.WarehouseID); err != nil {
		return nil, err
	}
	wh := req.WarehouseID
	m, err := NewMovement(MovementSpec{
		Kind:              kind,
		Status:            status,
		ProductID:         req.ProductID,
		Quantity:          req.Quantity,
		SourceWarehouseID: &wh,
		SourceBin:         normalizeBin(req.Bin),
		Reference:         req.Reference,
		ReferenceKind:     req.ReferenceKind,
		ActorID:           req.Actor.ID(),
		Reason:            req.Reason,
		Condition:         req.Condition,
	}, l.now())
	if err != nil {
		return nil, err
	}
	if err := l.apply(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// EnsureUnowned fails with INVALID_STATE when the movement belongs to an
// order. Order reservations are released and committed only by order
// transitions, so that the order and its movement never disagree.
func (l *Ledger) EnsureUnowned(ctx context.Context, movementID int64) error {
	m, err := l.store.Movements.FindByID(ctx, movementID)
	if err != nil {
		return err
	}
	if m.OwnedByOrder() {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Movement %s belongs to order %s and changes only through its transitions", m.TrackingNumber, m.Reference))
	}
	return nil
}

// Release rolls back an in-progress reservation: a compensating stock_in
// linked to the original is recorded and the original is marked cancelled.
// It returns the compensating movement.
func (l *Ledger) Release(ctx context.Context, movementID int64, actor identity.Actor) (*Movement, error) {
	orig, err := l.store.Movements.LockByID(ctx, movementID)
	if err != nil {
		return nil, err
	}
	if !orig.IsReservation() {
		return nil, shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Movement %s is %s %s; only an in-progress stock_out can be released", orig.TrackingNumber, orig.Kind, orig.Status))
	}
	comp, err := l.compensation(ctx, orig, actor, "release of "+orig.TrackingNumber)
	if err != nil {
		return nil, err
	}
	if err := orig.Cancel(actor.ID(), l.now()); err != nil {
		return nil, err
	}
	if err := l.store.Movements.UpdateStatus(ctx, orig); err != nil {
		return nil, err
	}
	l.record(NewStockReleasedEvent(orig, comp))
	l.record(NewMovementCompletedEvent(comp))
	return comp, nil
}

// Commit finalizes an in-progress reservation without touching balances
func (l *Ledger) Commit(ctx context.Context, movementID int64, actor identity.Actor) (*Movement, error) {
	m, err := l.store.Movements.LockByID(ctx, movementID)
	if err != nil {
		return nil, err
	}
	if !m.IsReservation() {
		return nil, shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Movement %s is %s %s; only an in-progress stock_out can be committed", m.TrackingNumber, m.Kind, m.Status))
	}
	if err := m.Complete(actor.ID(), l.now()); err != nil {
		return nil, err
	}
	if err := l.store.Movements.UpdateStatus(ctx, m); err != nil {
		return nil, err
	}
	l.record(NewMovementCompletedEvent(m))
	return m, nil
}

// Compensate returns the stock of an outbound movement to its warehouse.
// An in-progress reservation is released; a completed stock_out gets a
// completed stock_in linked to it and stays completed itself.
func (l *Ledger) Compensate(ctx context.Context, movementID int64, actor identity.Actor, reason string) (*Movement, error) {
	orig, err := l.store.Movements.LockByID(ctx, movementID)
	if err != nil {
		return nil, err
	}
	if orig.IsReservation() {
		return l.Release(ctx, movementID, actor)
	}
	if orig.Kind != MovementStockOut || orig.Status != MovementCompleted {
		return nil, shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Movement %s is %s %s and cannot be compensated", orig.TrackingNumber, orig.Kind, orig.Status))
	}
	related, err := l.store.Movements.FindByReference(ctx, orig.Reference)
	if err != nil {
		return nil, err
	}
	for _, r := range related {
		if r.RelatedMovementID != nil && *r.RelatedMovementID == orig.ID {
			return nil, shared.NewDomainError(shared.CodeInvalidState,
				fmt.Sprintf("Movement %s was already compensated by %s", orig.TrackingNumber, r.TrackingNumber))
		}
	}
	if strings.TrimSpace(reason) == "" {
		reason = "compensation for " + orig.TrackingNumber
	}
	comp, err := l.compensation(ctx, orig, actor, reason)
	if err != nil {
		return nil, err
	}
	l.record(NewMovementCompletedEvent(comp))
	return comp, nil
}

func (l *Ledger) compensation(ctx context.Context, orig *Movement, actor identity.Actor, reason string) (*Movement, error) {
	origID := orig.ID
	comp, err := NewMovement(MovementSpec{
		Kind:                   MovementStockIn,
		Status:                 MovementCompleted,
		ProductID:              orig.ProductID,
		Quantity:               orig.Quantity,
		DestinationWarehouseID: orig.SourceWarehouseID,
		DestinationBin:         orig.SourceBin,
		Reference:              orig.Reference,
		ReferenceKind:          orig.ReferenceKind,
		RelatedMovementID:      &origID,
		ActorID:                actor.ID(),
		Reason:                 reason,
		Condition:              ConditionGood,
	}, l.now())
	if err != nil {
		return nil, err
	}
	if err := l.apply(ctx, comp); err != nil {
		return nil, err
	}
	return comp, nil
}

// Transfer moves units between two warehouses in one movement
func (l *Ledger) Transfer(ctx context.Context, req TransferRequest) (*Movement, error) {
	if req.FromWarehouseID == req.ToWarehouseID {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Transfer source and destination warehouses must differ")
	}
	if err := l.checkTargets(ctx, req.ProductID, req.Quantity, req.FromWarehouseID, req.ToWarehouseID); err != nil {
		return nil, err
	}
	from, to := req.FromWarehouseID, req.ToWarehouseID
	m, err := NewMovement(MovementSpec{
		Kind:                   MovementTransfer,
		Status:                 MovementCompleted,
		ProductID:              req.ProductID,
		Quantity:               req.Quantity,
		SourceWarehouseID:      &from,
		DestinationWarehouseID: &to,
		SourceBin:              normalizeBin(req.FromBin),
		DestinationBin:         normalizeBin(req.ToBin),
		Reference:              req.Reference,
		ReferenceKind:          req.ReferenceKind,
		ActorID:                req.Actor.ID(),
		Reason:                 req.Reason,
	}, l.now())
	if err != nil {
		return nil, err
	}
	if err := l.apply(ctx, m); err != nil {
		return nil, err
	}
	l.record(NewMovementCompletedEvent(m))
	return m, nil
}

// Adjust corrects a balance by delta. Only stock keepers and super admins may adjust.
func (l *Ledger) Adjust(ctx context.Context, req AdjustRequest) (*Movement, error) {
	if !req.Actor.Can(identity.RoleStockKeeper) {
		return nil, shared.NewDomainError(shared.CodeNotAuthorized, "Only a stock keeper can adjust inventory")
	}
	if req.Delta == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidQuantity, "Adjustment delta cannot be zero")
	}
	if strings.TrimSpace(req.Reason) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Adjustment requires a reason")
	}
	qty := req.Delta
	if qty < 0 {
		qty = -qty
	}
	if err := l.checkTargets(ctx, req.ProductID, qty, req.WarehouseID); err != nil {
		return nil, err
	}
	wh := req.WarehouseID
	spec := MovementSpec{
		Kind:          MovementAdjustment,
		Status:        MovementCompleted,
		ProductID:     req.ProductID,
		Quantity:      qty,
		Reference:     req.Reference,
		ReferenceKind: req.ReferenceKind,
		ActorID:       req.Actor.ID(),
		Reason:        req.Reason,
	}
	if req.Delta > 0 {
		spec.DestinationWarehouseID = &wh
		spec.DestinationBin = normalizeBin(req.Bin)
	} else {
		spec.SourceWarehouseID = &wh
		spec.SourceBin = normalizeBin(req.Bin)
	}
	m, err := NewMovement(spec, l.now())
	if err != nil {
		return nil, err
	}
	if err := l.apply(ctx, m); err != nil {
		return nil, err
	}
	l.record(NewStockAdjustedEvent(m))
	l.record(NewMovementCompletedEvent(m))
	return m, nil
}

// RecordDamage moves units into the damaged quarantine bin of a warehouse
func (l *Ledger) RecordDamage(ctx context.Context, req DamageRequest) (*Movement, error) {
	if strings.TrimSpace(req.Reason) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Damage requires a reason")
	}
	if err := l.checkTargets(ctx, req.ProductID, req.Quantity, req.WarehouseID); err != nil {
		return nil, err
	}
	wh := req.WarehouseID
	spec := MovementSpec{
		Kind:                   MovementDamage,
		Status:                 MovementCompleted,
		ProductID:              req.ProductID,
		Quantity:               req.Quantity,
		DestinationWarehouseID: &wh,
		DestinationBin:         DamagedBin,
		Reference:              req.Reference,
		ReferenceKind:          req.ReferenceKind,
		ActorID:                req.Actor.ID(),
		Reason:                 req.Reason,
		Condition:              ConditionDamaged,
	}
	if req.FromStock {
		src := wh
		spec.SourceWarehouseID = &src
	}
	m, err := NewMovement(spec, l.now())
	if err != nil {
		return nil, err
	}
	if err := l.apply(ctx, m); err != nil {
		return nil, err
	}
	l.record(NewMovementCompletedEvent(m))
	return m, nil
}

// Balance returns the current quantity for key; a missing record is zero
func (l *Ledger) Balance(ctx context.Context, key BalanceKey) (int64, error) {
	key.Bin = normalizeBin(key.Bin)
	rec, err := l.store.Records.FindByKey(ctx, key)
	if errors.Is(err, shared.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return rec.Quantity, nil
}

// CountableBalance returns what a cycle count of (product, bin) should find.
// A bin reads its own balance; the warehouse-level line reads only the units
// outside every sellable bin, so a shortfall found in a bin is never counted
// twice.
func (l *Ledger) CountableBalance(ctx context.Context, key BalanceKey) (int64, error) {
	key.Bin = normalizeBin(key.Bin)
	if key.Bin != "" {
		return l.Balance(ctx, key)
	}
	records, err := l.store.Records.FindByWarehouse(ctx, key.WarehouseID)
	if err != nil {
		return 0, err
	}
	t, ok := totalsByProduct(records)[key.ProductID]
	if !ok {
		return 0, nil
	}
	return t.unbinned(), nil
}

func (l *Ledger) checkTargets(ctx context.Context, productID, quantity int64, warehouseIDs ...int64) error {
	if quantity < 1 {
		return shared.NewDomainError(shared.CodeInvalidQuantity, "Quantity must be at least 1")
	}
	if _, err := l.store.Products.FindByID(ctx, productID); err != nil {
		return err
	}
	for _, id := range warehouseIDs {
		wh, err := l.store.Warehouses.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := wh.EnsureActive(); err != nil {
			return err
		}
	}
	return nil
}

// apply locks every record the movement touches, checks all of them, then
// writes the movement and the new balances. Nothing is written on failure.
func (l *Ledger) apply(ctx context.Context, m *Movement) error {
	effects := m.Effects()
	sort.SliceStable(effects, func(i, j int) bool {
		return effects[i].Key.Less(effects[j].Key)
	})

	now := l.now()
	records := make([]*InventoryRecord, 0, len(effects))
	for _, e := range effects {
		var (
			rec *InventoryRecord
			err error
		)
		if e.Delta > 0 {
			rec, err = l.store.Records.LockOrCreate(ctx, e.Key)
		} else {
			rec, err = l.store.Records.LockByKey(ctx, e.Key)
			if errors.Is(err, shared.ErrNotFound) {
				rec, err = NewInventoryRecord(e.Key, now), nil
			}
		}
		if err != nil {
			return fmt.Errorf("lock %s: %w", e.Key, err)
		}
		if err := rec.Apply(e.Delta, now); err != nil {
			return err
		}
		records = append(records, rec)
	}

	if err := l.store.Movements.Create(ctx, m); err != nil {
		return err
	}
	for _, rec := range records {
		if err := l.store.Records.Save(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

func (l *Ledger) record(e shared.DomainEvent) {
	l.events = append(l.events, e)
}
