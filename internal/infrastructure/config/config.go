package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/fulfillcrm/backend/internal/domain/finance"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Log         LogConfig
	Fees        FeesConfig
	Idempotency IdempotencyConfig
	Telemetry   TelemetryConfig
	Scheduler   SchedulerConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string // postgres or sqlite; sqlite reads DBName as a file path
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
	SlowThreshold   time.Duration
}

// RedisConfig holds Redis connection settings. An empty host disables the replay cache.
type RedisConfig struct {
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
}

// FeesConfig holds the fee schedule as decimal strings
type FeesConfig struct {
	TaxRate         string
	ConfirmationFee string
	ShippingFee     string
	CancellationFee string
	ReturnFee       string
	UpsellRate      string
	FulfillmentRate string
	WarehouseRate   string
}

// IdempotencyConfig holds the replay window
type IdempotencyConfig struct {
	RetentionSeconds int
}

// Retention returns the replay window as a duration
func (c IdempotencyConfig) Retention() time.Duration {
	return time.Duration(c.RetentionSeconds) * time.Second
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	DBTraceEnabled    bool    // Enable database query tracing (otelgorm)
	DBLogFullSQL      bool    // Log full SQL statements (dev only)
	MetricsInterval   time.Duration
}

// SchedulerConfig holds periodic job settings
type SchedulerConfig struct {
	Enabled                bool
	IdempotencyPurgePeriod time.Duration
	JobTimeout             time.Duration
}

// Core variables are read under their plain names, without the FCRM_ prefix
var coreEnvBindings = map[string]string{
	"fees.tax_rate":                 "DEFAULT_TAX_RATE",
	"fees.confirmation_fee":         "DEFAULT_CONFIRMATION_FEE",
	"fees.shipping_fee":             "DEFAULT_SHIPPING_FEE",
	"fees.cancellation_fee":         "DEFAULT_CANCELLATION_FEE",
	"fees.return_fee":               "DEFAULT_RETURN_FEE",
	"idempotency.retention_seconds": "IDEMPOTENCY_RETENTION_SECONDS",
}

// Load loads configuration from a .env file, a TOML file and environment variables.
// Priority (highest to lowest):
// 1. Environment variables (FCRM_ prefix, or the plain core names such as DEFAULT_TAX_RATE)
// 2. .env file
// 3. config.toml
// 4. Built-in defaults
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/fulfillcrm")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("FCRM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range coreEnvBindings {
		if err := v.BindEnv(key, env, "FCRM_"+env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}
	setFeeDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			SlowThreshold:   v.GetDuration("database.slow_threshold"),
		},
		Redis: RedisConfig{
			Host:      v.GetString("redis.host"),
			Port:      v.GetInt("redis.port"),
			Password:  v.GetString("redis.password"),
			DB:        v.GetInt("redis.db"),
			KeyPrefix: v.GetString("redis.key_prefix"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Fees: FeesConfig{
			TaxRate:         v.GetString("fees.tax_rate"),
			ConfirmationFee: v.GetString("fees.confirmation_fee"),
			ShippingFee:     v.GetString("fees.shipping_fee"),
			CancellationFee: v.GetString("fees.cancellation_fee"),
			ReturnFee:       v.GetString("fees.return_fee"),
			UpsellRate:      v.GetString("fees.upsell_rate"),
			FulfillmentRate: v.GetString("fees.fulfillment_rate"),
			WarehouseRate:   v.GetString("fees.warehouse_rate"),
		},
		Idempotency: IdempotencyConfig{
			RetentionSeconds: v.GetInt("idempotency.retention_seconds"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
		},
		Scheduler: SchedulerConfig{
			Enabled:                v.GetBool("scheduler.enabled"),
			IdempotencyPurgePeriod: v.GetDuration("scheduler.idempotency_purge_period"),
			JobTimeout:             v.GetDuration("scheduler.job_timeout"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Fee values may legitimately be zero, so they use viper defaults
// instead of the zero-value checks in applyDefaults.
func setFeeDefaults(v *viper.Viper) {
	v.SetDefault("fees.tax_rate", "5.00")
	v.SetDefault("fees.confirmation_fee", "10.00")
	v.SetDefault("fees.shipping_fee", "12.00")
	v.SetDefault("fees.cancellation_fee", "5.00")
	v.SetDefault("fees.return_fee", "15.00")
	v.SetDefault("fees.upsell_rate", "3")
	v.SetDefault("fees.fulfillment_rate", "2")
	v.SetDefault("fees.warehouse_rate", "1")
	v.SetDefault("idempotency.retention_seconds", 86400)
	v.SetDefault("scheduler.enabled", true)
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "fulfillcrm"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.Host == "" && cfg.App.Env != "production" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "fulfillcrm"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Database.SlowThreshold == 0 {
		cfg.Database.SlowThreshold = 200 * time.Millisecond
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "fcrm:idem:"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "fulfillcrm"
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
	if cfg.Scheduler.IdempotencyPurgePeriod == 0 {
		cfg.Scheduler.IdempotencyPurgePeriod = 15 * time.Minute
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = time.Minute
	}
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	if c.Idempotency.RetentionSeconds <= 0 {
		return fmt.Errorf("IDEMPOTENCY_RETENTION_SECONDS must be positive, got %d", c.Idempotency.RetentionSeconds)
	}
	if _, err := c.Fees.ToFeeConfig(); err != nil {
		return err
	}
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	if c.App.Env == "production" {
		if c.Database.Driver != "postgres" {
			return fmt.Errorf("database.driver must be postgres in production")
		}
		if c.Database.Host == "" {
			return fmt.Errorf("database.host is required in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production")
		}
	}
	return nil
}

// ToFeeConfig parses the fee schedule into decimals
func (f FeesConfig) ToFeeConfig() (finance.FeeConfig, error) {
	var out finance.FeeConfig
	fields := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"DEFAULT_TAX_RATE", f.TaxRate, &out.TaxRate},
		{"DEFAULT_CONFIRMATION_FEE", f.ConfirmationFee, &out.ConfirmationFee},
		{"DEFAULT_SHIPPING_FEE", f.ShippingFee, &out.ShippingFee},
		{"DEFAULT_CANCELLATION_FEE", f.CancellationFee, &out.CancellationFee},
		{"DEFAULT_RETURN_FEE", f.ReturnFee, &out.ReturnFee},
		{"fees.upsell_rate", f.UpsellRate, &out.UpsellRate},
		{"fees.fulfillment_rate", f.FulfillmentRate, &out.FulfillmentRate},
		{"fees.warehouse_rate", f.WarehouseRate, &out.WarehouseRate},
	}
	for _, field := range fields {
		d, err := decimal.NewFromString(strings.TrimSpace(field.raw))
		if err != nil {
			return finance.FeeConfig{}, fmt.Errorf("%s is not a decimal: %q", field.name, field.raw)
		}
		if d.IsNegative() {
			return finance.FeeConfig{}, fmt.Errorf("%s cannot be negative, got %s", field.name, field.raw)
		}
		*field.dst = d
	}
	return out, nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the redis host:port
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Enabled reports whether a redis replay cache is configured
func (r *RedisConfig) Enabled() bool {
	return r.Host != ""
}
