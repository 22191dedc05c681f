// Package testutil provides common test utilities for the fulfillment backend.
// It contains helpers for setting up databases, transaction runners,
// recording publishers, actors and seed data.
package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fulfillcrm/backend/internal/application/txn"
	"github.com/fulfillcrm/backend/internal/domain/catalog"
	"github.com/fulfillcrm/backend/internal/domain/identity"
	"github.com/fulfillcrm/backend/internal/domain/inventory"
	"github.com/fulfillcrm/backend/internal/infrastructure/persistence"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewSQLiteDB opens a private in-memory sqlite database with the full schema.
// The connection is closed when the test ends.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := persistence.OpenSQLite(":memory:", nil)
	require.NoError(t, err, "Failed to open sqlite")
	require.NoError(t, persistence.AutoMigrate(db), "Failed to migrate schema")

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// MockDB wraps a GORM database with sqlmock for testing.
type MockDB struct {
	DB    *gorm.DB
	Mock  sqlmock.Sqlmock
	SqlDB *sql.DB
}

// NewMockDB creates a mock database using the postgres dialect.
func NewMockDB(t *testing.T) *MockDB {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create sqlmock")

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})
	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err, "Failed to open GORM connection")

	t.Cleanup(func() { _ = mockDB.Close() })
	return &MockDB{
		DB:    gormDB,
		Mock:  mock,
		SqlDB: mockDB,
	}
}

// ExpectationsWereMet verifies that all expectations were met.
func (m *MockDB) ExpectationsWereMet(t *testing.T) {
	t.Helper()
	require.NoError(t, m.Mock.ExpectationsWereMet(), "Unmet database expectations")
}

// Env is a sqlite-backed transaction environment for application tests
type Env struct {
	DB        *gorm.DB
	Scope     txn.Scope
	Runner    *txn.Runner
	Publisher *RecordingPublisher
	Now       time.Time
}

// NewEnv builds an Env with a fixed UTC clock that tests can advance with Advance
func NewEnv(t *testing.T, opts ...txn.RunnerOption) *Env {
	t.Helper()

	env := &Env{
		DB:        NewSQLiteDB(t),
		Publisher: NewRecordingPublisher(),
		Now:       time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
	env.Scope = persistence.NewGormTransactionScope(env.DB)
	opts = append([]txn.RunnerOption{txn.WithClock(env.Clock)}, opts...)
	env.Runner = txn.NewRunner(env.Scope, env.Publisher, opts...)
	return env
}

// Clock returns the environment's current time
func (e *Env) Clock() time.Time {
	return e.Now
}

// Advance moves the environment clock forward
func (e *Env) Advance(d time.Duration) {
	e.Now = e.Now.Add(d)
}

// SeedWarehouse creates an active warehouse
func (e *Env) SeedWarehouse(t *testing.T, name string) *catalog.Warehouse {
	t.Helper()
	wh, err := catalog.NewWarehouse(name, "")
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormWarehouseRepository(e.DB).Create(context.Background(), wh))
	return wh
}

// SeedProduct creates an approved product owned by sellerID
func (e *Env) SeedProduct(t *testing.T, sellerID int64, sku, sellingPrice string) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(sellerID, sku, "Product "+sku, "", "",
		decimal.RequireFromString(sellingPrice), decimal.Zero)
	require.NoError(t, err)
	require.NoError(t, p.Approve())
	require.NoError(t, persistence.NewGormProductRepository(e.DB).Create(context.Background(), p))
	return p
}

// SeedStock receives qty units of a product into a warehouse through the ledger
func (e *Env) SeedStock(t *testing.T, productID, warehouseID, qty int64) {
	t.Helper()
	err := e.Scope.Execute(context.Background(), func(repos txn.Repositories) error {
		ledger := inventory.NewLedger(txn.LedgerStore(repos), inventory.WithClock(e.Clock))
		_, err := ledger.Receive(context.Background(), inventory.StockRequest{
			ProductID:     productID,
			WarehouseID:   warehouseID,
			Quantity:      qty,
			Reference:     "seed",
			ReferenceKind: inventory.ReferenceSourcing,
			Actor:         Admin(),
		})
		return err
	})
	require.NoError(t, err)
}

// OnHand returns the sellable balance of a product at a warehouse
func (e *Env) OnHand(t *testing.T, productID, warehouseID int64) int64 {
	t.Helper()
	return e.BinBalance(t, productID, warehouseID, "")
}

// BinBalance returns the balance of one (product, warehouse, bin) key
func (e *Env) BinBalance(t *testing.T, productID, warehouseID int64, bin string) int64 {
	t.Helper()
	var qty int64
	err := e.Scope.Execute(context.Background(), func(repos txn.Repositories) error {
		var err error
		qty, err = inventory.NewLedger(txn.LedgerStore(repos)).Balance(context.Background(),
			inventory.BalanceKey{ProductID: productID, WarehouseID: warehouseID, Bin: bin})
		return err
	})
	require.NoError(t, err)
	return qty
}

// Admin returns a super admin actor
func Admin() identity.Actor {
	return identity.NewActor(1, "admin", identity.RoleSuperAdmin)
}

// Seller returns a seller actor
func Seller(id int64) identity.Actor {
	return identity.NewActor(id, "seller", identity.RoleSeller)
}

// Agent returns a call center agent
func Agent(id int64) identity.Actor {
	return identity.NewActor(id, "agent", identity.RoleCallCenterAgent)
}

// Manager returns a call center manager
func Manager(id int64) identity.Actor {
	return identity.NewActor(id, "manager", identity.RoleCallCenterManager)
}

// StockKeeper returns a stock keeper
func StockKeeper(id int64) identity.Actor {
	return identity.NewActor(id, "stock keeper", identity.RoleStockKeeper)
}

// Packager returns a packaging agent
func Packager(id int64) identity.Actor {
	return identity.NewActor(id, "packager", identity.RolePackagingAgent)
}

// Courier returns a delivery agent
func Courier(id int64) identity.Actor {
	return identity.NewActor(id, "courier", identity.RoleDeliveryAgent)
}
