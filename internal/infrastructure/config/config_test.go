package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var managedEnv = []string{
	"FCRM_APP_NAME",
	"FCRM_APP_ENV",
	"FCRM_DATABASE_DRIVER",
	"FCRM_DATABASE_HOST",
	"FCRM_DATABASE_PORT",
	"FCRM_DATABASE_PASSWORD",
	"FCRM_DATABASE_MAX_OPEN_CONNS",
	"FCRM_DATABASE_MAX_IDLE_CONNS",
	"FCRM_LOG_LEVEL",
	"FCRM_FEES_UPSELL_RATE",
	"FCRM_REDIS_HOST",
	"DEFAULT_TAX_RATE",
	"DEFAULT_CONFIRMATION_FEE",
	"DEFAULT_SHIPPING_FEE",
	"DEFAULT_CANCELLATION_FEE",
	"DEFAULT_RETURN_FEE",
	"IDEMPOTENCY_RETENTION_SECONDS",
	"FCRM_DEFAULT_TAX_RATE",
}

// clearEnv blanks every variable the tests touch; viper treats empty values as unset
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range managedEnv {
		t.Setenv(k, "")
	}
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "fulfillcrm", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "postgres", cfg.Database.Driver)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.Equal(t, 200*time.Millisecond, cfg.Database.SlowThreshold)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.False(t, cfg.Redis.Enabled())
		assert.Equal(t, 86400, cfg.Idempotency.RetentionSeconds)
		assert.Equal(t, 24*time.Hour, cfg.Idempotency.Retention())
		assert.True(t, cfg.Scheduler.Enabled)
		assert.Equal(t, 15*time.Minute, cfg.Scheduler.IdempotencyPurgePeriod)

		fees, err := cfg.Fees.ToFeeConfig()
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(5).Equal(fees.TaxRate))
		assert.True(t, decimal.NewFromInt(10).Equal(fees.ConfirmationFee))
		assert.True(t, decimal.NewFromInt(12).Equal(fees.ShippingFee))
		assert.True(t, decimal.NewFromInt(5).Equal(fees.CancellationFee))
		assert.True(t, decimal.NewFromInt(15).Equal(fees.ReturnFee))
		assert.True(t, decimal.NewFromInt(3).Equal(fees.UpsellRate))
		assert.True(t, decimal.NewFromInt(2).Equal(fees.FulfillmentRate))
		assert.True(t, decimal.NewFromInt(1).Equal(fees.WarehouseRate))
	})

	t.Run("loads values from environment variables with FCRM prefix", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("FCRM_APP_NAME", "crm-test")
		t.Setenv("FCRM_DATABASE_HOST", "db.local")
		t.Setenv("FCRM_DATABASE_PORT", "5433")
		t.Setenv("FCRM_LOG_LEVEL", "debug")
		t.Setenv("FCRM_FEES_UPSELL_RATE", "4.5")
		t.Setenv("FCRM_REDIS_HOST", "cache.local")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "crm-test", cfg.App.Name)
		assert.Equal(t, "db.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "debug", cfg.Log.Level)
		assert.True(t, cfg.Redis.Enabled())
		assert.Equal(t, "cache.local:6379", cfg.Redis.Addr())

		fees, err := cfg.Fees.ToFeeConfig()
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("4.5").Equal(fees.UpsellRate))
	})

	t.Run("reads core variables without prefix", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("DEFAULT_TAX_RATE", "7.25")
		t.Setenv("DEFAULT_SHIPPING_FEE", "0")
		t.Setenv("DEFAULT_RETURN_FEE", "20.00")
		t.Setenv("IDEMPOTENCY_RETENTION_SECONDS", "600")

		cfg, err := Load()
		require.NoError(t, err)

		fees, err := cfg.Fees.ToFeeConfig()
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("7.25").Equal(fees.TaxRate))
		assert.True(t, fees.ShippingFee.IsZero())
		assert.True(t, decimal.NewFromInt(20).Equal(fees.ReturnFee))
		assert.Equal(t, 10*time.Minute, cfg.Idempotency.Retention())
	})

	t.Run("rejects negative fees", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("DEFAULT_CANCELLATION_FEE", "-1")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DEFAULT_CANCELLATION_FEE")
	})

	t.Run("rejects non-decimal fees", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("DEFAULT_CONFIRMATION_FEE", "ten")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a decimal")
	})

	t.Run("rejects non-positive retention", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("IDEMPOTENCY_RETENTION_SECONDS", "-5")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "IDEMPOTENCY_RETENTION_SECONDS")
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("FCRM_DATABASE_MAX_OPEN_CONNS", "10")
		t.Setenv("FCRM_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("rejects unknown database driver", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("FCRM_DATABASE_DRIVER", "mysql")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.driver")
	})

	t.Run("rejects unknown log level", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("FCRM_LOG_LEVEL", "verbose")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "log.level")
	})

	t.Run("production requires database host and password", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("FCRM_APP_ENV", "production")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.host")

		t.Setenv("FCRM_DATABASE_HOST", "db.prod")
		_, err = Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password")

		t.Setenv("FCRM_DATABASE_PASSWORD", "secret")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "db.prod", cfg.Database.Host)
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{
		Host:     "db",
		Port:     5432,
		User:     "crm",
		Password: "p@ss:word",
		DBName:   "fulfillcrm",
		SSLMode:  "disable",
	}
	assert.Equal(t, "postgres://crm:p%40ss%3Aword@db:5432/fulfillcrm?sslmode=disable", d.DSN())
}
