package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add orders table", "add_orders_table"},
		{"Add-Orders-Table", "add_orders_table"},
		{"ADD_ORDERS_TABLE", "add_orders_table"},
		{"add__orders__table", "add_orders_table"},
		{"Add Fees 123", "add_fees_123"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 2, 9, 30, 15, 0, time.UTC)

	mf, err := CreateMigration(dir, "add courier table", "Couriers and their zones", now)
	require.NoError(t, err)
	assert.Equal(t, "20260302093015", mf.Version)
	assert.Equal(t, filepath.Join(dir, "20260302093015_add_courier_table.up.sql"), mf.UpPath)
	assert.Equal(t, filepath.Join(dir, "20260302093015_add_courier_table.down.sql"), mf.DownPath)

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "add courier table")
	assert.Contains(t, string(up), "Couriers and their zones")

	down, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "Rollback")

	_, err = CreateMigration(dir, "add courier table", "", now)
	assert.Error(t, err, "existing files are never overwritten")

	_, err = CreateMigration(dir, "!!!", "", now)
	assert.Error(t, err)
}

func TestEmbeddedMigrations(t *testing.T) {
	names, err := ListMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, names)

	for i, name := range names {
		if i > 0 {
			assert.Less(t, names[i-1], name, "migrations are listed in version order")
		}
		up, err := ReadMigration(name + ".up.sql")
		require.NoError(t, err)
		assert.NotEmpty(t, strings.TrimSpace(up))
		down, err := ReadMigration(name + ".down.sql")
		require.NoError(t, err, "every migration has a rollback")
		assert.Contains(t, down, "DROP TABLE")
	}

	var all strings.Builder
	for _, name := range names {
		up, err := ReadMigration(name + ".up.sql")
		require.NoError(t, err)
		all.WriteString(up)
	}
	schema := all.String()
	for _, table := range []string{
		"warehouses", "products", "inventory_records", "inventory_movements",
		"count_sessions", "physical_count_records", "orders", "return_events",
		"order_fees", "seller_fee_policies", "idempotency_records",
	} {
		assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
	assert.Contains(t, schema, "idx_seller_fee_policy_active ON seller_fee_policies (seller_id) WHERE active")
}
