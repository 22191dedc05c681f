package inventory

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/fulfillcrm/backend/internal/domain/catalog"
	"github.com/fulfillcrm/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// memRecords keeps copies so that a failed operation leaves nothing behind,
// as a rolled-back transaction would.
type memRecords struct {
	rows   map[BalanceKey]InventoryRecord
	nextID int64
}

func newMemRecords() *memRecords {
	return &memRecords{rows: make(map[BalanceKey]InventoryRecord)}
}

func (m *memRecords) FindByKey(_ context.Context, key BalanceKey) (*InventoryRecord, error) {
	r, ok := m.rows[key]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &r, nil
}

func (m *memRecords) LockByKey(ctx context.Context, key BalanceKey) (*InventoryRecord, error) {
	return m.FindByKey(ctx, key)
}

func (m *memRecords) LockOrCreate(ctx context.Context, key BalanceKey) (*InventoryRecord, error) {
	if r, err := m.FindByKey(ctx, key); err == nil {
		return r, nil
	}
	return NewInventoryRecord(key, time.Now()), nil
}

func (m *memRecords) Save(_ context.Context, r *InventoryRecord) error {
	if r.ID == 0 {
		m.nextID++
		r.ID = m.nextID
	}
	m.rows[r.Key()] = *r
	return nil
}

func (m *memRecords) FindByWarehouse(_ context.Context, warehouseID int64) ([]InventoryRecord, error) {
	var out []InventoryRecord
	for _, r := range m.rows {
		if r.WarehouseID == warehouseID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key().Less(out[j].Key()) })
	return out, nil
}

func (m *memRecords) FindSellableByProduct(_ context.Context, productID int64) ([]InventoryRecord, error) {
	var out []InventoryRecord
	for _, r := range m.rows {
		if r.ProductID == productID && r.Bin == "" {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WarehouseID < out[j].WarehouseID })
	return out, nil
}

type memMovements struct {
	rows []Movement
}

func (m *memMovements) FindByID(_ context.Context, id int64) (*Movement, error) {
	for _, mv := range m.rows {
		if mv.ID == id {
			c := mv
			return &c, nil
		}
	}
	return nil, shared.ErrMovementNotFound
}

func (m *memMovements) LockByID(ctx context.Context, id int64) (*Movement, error) {
	return m.FindByID(ctx, id)
}

func (m *memMovements) FindByTrackingNumber(_ context.Context, tn string) (*Movement, error) {
	for _, mv := range m.rows {
		if mv.TrackingNumber == tn {
			c := mv
			return &c, nil
		}
	}
	return nil, shared.ErrMovementNotFound
}

func (m *memMovements) FindByReference(_ context.Context, ref string) ([]Movement, error) {
	var out []Movement
	for _, mv := range m.rows {
		if mv.Reference == ref {
			out = append(out, mv)
		}
	}
	return out, nil
}

func (m *memMovements) List(_ context.Context, _ MovementFilter) ([]Movement, error) {
	return append([]Movement(nil), m.rows...), nil
}

func (m *memMovements) Create(_ context.Context, mv *Movement) error {
	mv.ID = int64(len(m.rows) + 1)
	m.rows = append(m.rows, *mv)
	return nil
}

func (m *memMovements) UpdateStatus(_ context.Context, mv *Movement) error {
	for i := range m.rows {
		if m.rows[i].ID == mv.ID {
			m.rows[i] = *mv
			return nil
		}
	}
	return shared.ErrMovementNotFound
}

type memProducts struct {
	rows map[int64]*catalog.Product
}

func (m *memProducts) FindByID(_ context.Context, id int64) (*catalog.Product, error) {
	p, ok := m.rows[id]
	if !ok {
		return nil, shared.ErrProductNotFound
	}
	return p, nil
}
func (m *memProducts) FindBySellerAndSKU(context.Context, int64, string) (*catalog.Product, error) {
	return nil, shared.ErrProductNotFound
}
func (m *memProducts) ExistsBySellerAndSKU(context.Context, int64, string) (bool, error) {
	return false, nil
}
func (m *memProducts) FindBySeller(context.Context, int64) ([]catalog.Product, error) {
	return nil, nil
}
func (m *memProducts) Create(_ context.Context, p *catalog.Product) error {
	p.ID = int64(len(m.rows) + 1)
	m.rows[p.ID] = p
	return nil
}
func (m *memProducts) Save(context.Context, *catalog.Product) error { return nil }

type memWarehouses struct {
	rows map[int64]*catalog.Warehouse
}

func (m *memWarehouses) FindByID(_ context.Context, id int64) (*catalog.Warehouse, error) {
	w, ok := m.rows[id]
	if !ok {
		return nil, shared.ErrWarehouseNotFound
	}
	return w, nil
}
func (m *memWarehouses) FindActive(context.Context) ([]catalog.Warehouse, error) {
	var out []catalog.Warehouse
	for _, w := range m.rows {
		if w.Active {
			out = append(out, *w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
func (m *memWarehouses) ExistsByName(context.Context, string) (bool, error) { return false, nil }
func (m *memWarehouses) Create(_ context.Context, w *catalog.Warehouse) error {
	w.ID = int64(len(m.rows) + 1)
	m.rows[w.ID] = w
	return nil
}
func (m *memWarehouses) Save(context.Context, *catalog.Warehouse) error { return nil }

type ledgerFixture struct {
	ledger     *Ledger
	records    *memRecords
	movements  *memMovements
	warehouses *memWarehouses
	productID  int64
	w1, w2     int64
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	f := &ledgerFixture{
		records:    newMemRecords(),
		movements:  &memMovements{},
		warehouses: &memWarehouses{rows: make(map[int64]*catalog.Warehouse)},
	}
	products := &memProducts{rows: make(map[int64]*catalog.Product)}

	p, err := catalog.NewProduct(1, "SKU-1", "Widget", "", "", decimal.NewFromInt(100), decimal.NewFromInt(50))
	require.NoError(t, err)
	require.NoError(t, products.Create(context.Background(), p))
	f.productID = p.ID

	for _, name := range []string{"W1", "W2"} {
		w, err := catalog.NewWarehouse(name, "")
		require.NoError(t, err)
		require.NoError(t, f.warehouses.Create(context.Background(), w))
	}
	f.w1, f.w2 = 1, 2

	f.ledger = NewLedger(LedgerStore{
		Records:    f.records,
		Movements:  f.movements,
		Products:   products,
		Warehouses: f.warehouses,
	})
	return f
}

func (f *ledgerFixture) balance(t *testing.T, wh int64, bin string) int64 {
	t.Helper()
	q, err := f.ledger.Balance(context.Background(), BalanceKey{ProductID: f.productID, WarehouseID: wh, Bin: bin})
	require.NoError(t, err)
	return q
}

// sumOfEffects recomputes a balance from the movement log
func (f *ledgerFixture) sumOfEffects(key BalanceKey) int64 {
	var total int64
	for _, mv := range f.movements.rows {
		if !mv.IsApplied() {
			continue
		}
		for _, e := range mv.Effects() {
			if e.Key == key {
				total += e.Delta
			}
		}
	}
	return total
}
