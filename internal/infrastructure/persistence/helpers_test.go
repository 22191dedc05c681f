package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fulfillcrm/backend/internal/domain/catalog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newTestDB opens a private in-memory sqlite database with the full schema
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := OpenSQLite(":memory:", nil)
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// newMockDB opens GORM over sqlmock with the postgres dialect
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})
	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return gormDB, mock, mockDB
}

func seedCatalog(t *testing.T, db *gorm.DB) (*catalog.Warehouse, *catalog.Product) {
	t.Helper()
	ctx := context.Background()
	wh, err := catalog.NewWarehouse("Casablanca Main", "Ain Sebaa")
	require.NoError(t, err)
	require.NoError(t, NewGormWarehouseRepository(db).Create(ctx, wh))

	product, err := catalog.NewProduct(9, "sku-1", "Argan Oil", "", "", decimal.NewFromInt(100), decimal.NewFromInt(60))
	require.NoError(t, err)
	require.NoError(t, NewGormProductRepository(db).Create(ctx, product))
	return wh, product
}
