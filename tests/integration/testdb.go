//go:build integration

// Package integration runs the application layer against a real PostgreSQL
// started with testcontainers and migrated with the embedded migrations.
package integration

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/fulfillcrm/backend/internal/application/txn"
	"github.com/fulfillcrm/backend/internal/infrastructure/migration"
	"github.com/fulfillcrm/backend/internal/infrastructure/persistence"
	"github.com/fulfillcrm/backend/tests/testutil"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB is a migrated PostgreSQL container
type TestDB struct {
	DB        *gorm.DB
	SqlDB     *sql.DB
	Container testcontainers.Container
	DSN       string
	t         *testing.T
}

// NewTestDB starts a fresh container, applies every migration and
// terminates the container when the test ends
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("fulfillcrm_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("admin123"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "Failed to get connection string")

	db, sqlDB := connectToDatabase(t, dsn)
	tdb := &TestDB{DB: db, SqlDB: sqlDB, Container: container, DSN: dsn, t: t}
	t.Cleanup(tdb.Close)

	tdb.Migrator().Up()
	return tdb
}

// Migrator returns a migrator bound to the container, failing the test on errors
func (tdb *TestDB) Migrator() *testMigrator {
	tdb.t.Helper()
	// golang-migrate closes the *sql.DB it is given, so it gets its own pool
	sqlDB, err := sql.Open("postgres", tdb.DSN)
	require.NoError(tdb.t, err)
	m, err := migration.New(sqlDB, zap.NewNop())
	require.NoError(tdb.t, err, "Failed to create migrator")
	tdb.t.Cleanup(func() { _ = m.Close() })
	return &testMigrator{m: m, t: tdb.t}
}

type testMigrator struct {
	m *migration.Migrator
	t *testing.T
}

func (tm *testMigrator) Up() {
	tm.t.Helper()
	require.NoError(tm.t, tm.m.Up(), "Failed to run migrations")
}

func (tm *testMigrator) Down() {
	tm.t.Helper()
	require.NoError(tm.t, tm.m.Down(), "Failed to roll back migrations")
}

func (tm *testMigrator) Version() (uint, bool) {
	tm.t.Helper()
	v, dirty, err := tm.m.Version()
	require.NoError(tm.t, err)
	return v, dirty
}

// Close closes the connection and terminates the container
func (tdb *TestDB) Close() {
	if tdb.SqlDB != nil {
		_ = tdb.SqlDB.Close()
	}
	if tdb.Container != nil {
		if err := tdb.Container.Terminate(context.Background()); err != nil {
			tdb.t.Logf("Warning: Failed to terminate container: %v", err)
		}
	}
}

// Env builds an application environment over the container database
func (tdb *TestDB) Env(opts ...txn.RunnerOption) *testutil.Env {
	env := &testutil.Env{
		DB:        tdb.DB,
		Publisher: testutil.NewRecordingPublisher(),
		Now:       time.Now().UTC().Truncate(time.Second),
	}
	env.Scope = persistence.NewGormTransactionScope(tdb.DB)
	opts = append([]txn.RunnerOption{txn.WithClock(env.Clock)}, opts...)
	env.Runner = txn.NewRunner(env.Scope, env.Publisher, opts...)
	return env
}

func connectToDatabase(t *testing.T, dsn string) (*gorm.DB, *sql.DB) {
	t.Helper()

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}
	if os.Getenv("TEST_DB_DEBUG") != "" {
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(gormpostgres.Open(dsn), gormConfig)
	require.NoError(t, err, "Failed to connect to database")

	sqlDB, err := db.DB()
	require.NoError(t, err, "Failed to get underlying SQL DB")
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	return db, sqlDB
}
