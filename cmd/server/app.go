package main

import (
	"context"
	"fmt"
	"io"
	"time"

	catalogapp "github.com/fulfillcrm/backend/internal/application/catalog"
	financeapp "github.com/fulfillcrm/backend/internal/application/finance"
	inventoryapp "github.com/fulfillcrm/backend/internal/application/inventory"
	tradeapp "github.com/fulfillcrm/backend/internal/application/trade"
	"github.com/fulfillcrm/backend/internal/application/txn"
	"github.com/fulfillcrm/backend/internal/domain/finance"
	"github.com/fulfillcrm/backend/internal/infrastructure/cache"
	"github.com/fulfillcrm/backend/internal/infrastructure/config"
	"github.com/fulfillcrm/backend/internal/infrastructure/event"
	"github.com/fulfillcrm/backend/internal/infrastructure/persistence"
	"github.com/fulfillcrm/backend/internal/infrastructure/scheduler"
	"github.com/fulfillcrm/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// services is the application layer exposed by the process
type services struct {
	catalog    *catalogapp.Service
	feePolicy  *financeapp.FeePolicyService
	ledger     *inventoryapp.LedgerService
	stockCount *inventoryapp.StockCountService
	orders     *tradeapp.OrderService
	workflow   *tradeapp.WorkflowEngine
	returns    *tradeapp.ReturnService
}

// app owns every long-lived component and shuts them down in reverse order
type app struct {
	cfg       *config.Config
	log       *zap.Logger
	db        *persistence.Database
	bus       *event.InMemoryEventBus
	cache     io.Closer
	scheduler *scheduler.Scheduler
	services  services
}

func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger, meter *telemetry.MeterProvider) (*app, error) {
	a := &app{cfg: cfg, log: log}

	db, err := persistence.NewDatabase(&cfg.Database, log, cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	a.db = db
	if cfg.Database.Driver == "sqlite" {
		if err := persistence.AutoMigrate(db.DB); err != nil {
			return nil, fmt.Errorf("migrate sqlite schema: %w", err)
		}
	}
	err = telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:    cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL: cfg.Telemetry.DBLogFullSQL,
		DBName:     cfg.Database.DBName,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("register db tracing: %w", err)
	}

	a.bus = event.NewInMemoryEventBus(log)
	a.bus.Subscribe(event.NewAuditLogHandler(log))
	metrics, err := telemetry.NewWorkflowMetrics(meter.Meter(cfg.App.Name), log)
	if err != nil {
		return nil, fmt.Errorf("register workflow metrics: %w", err)
	}
	a.bus.Subscribe(metrics)
	if err := a.bus.Start(ctx); err != nil {
		return nil, fmt.Errorf("start event bus: %w", err)
	}

	replay, err := newReplayCache(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a.cache = replay

	scope := persistence.NewGormTransactionScope(db.DB)
	runner := txn.NewRunner(scope, a.bus,
		txn.WithReplayCache(replay),
		txn.WithRetention(cfg.Idempotency.Retention()),
		txn.WithLogger(log),
	)

	feeConfig, err := cfg.Fees.ToFeeConfig()
	if err != nil {
		return nil, err
	}
	calc, err := finance.NewFeeCalculator(feeConfig)
	if err != nil {
		return nil, fmt.Errorf("fee schedule: %w", err)
	}

	a.services = services{
		catalog:    catalogapp.NewService(runner, log),
		feePolicy:  financeapp.NewFeePolicyService(runner, log),
		ledger:     inventoryapp.NewLedgerService(runner, log),
		stockCount: inventoryapp.NewStockCountService(runner, log),
		orders:     tradeapp.NewOrderService(runner, calc, log),
		workflow:   tradeapp.NewWorkflowEngine(runner, calc, log),
		returns:    tradeapp.NewReturnService(runner, calc, log),
	}
	a.services.ledger.SetMetrics(metrics)
	a.services.workflow.SetMetrics(metrics)

	if cfg.Scheduler.Enabled {
		a.scheduler = scheduler.New(scheduler.Config{
			JobTimeout: cfg.Scheduler.JobTimeout,
			RunOnStart: true,
		}, log)
		purge := scheduler.NewIdempotencyPurgeJob(scope, nil, log)
		if err := a.scheduler.Register(purge.Job(cfg.Scheduler.IdempotencyPurgePeriod)); err != nil {
			return nil, err
		}
	}
	return a, nil
}

type replayCache interface {
	txn.ReplayCache
	io.Closer
}

// newReplayCache uses Redis when a host is configured and a process-local cache otherwise
func newReplayCache(ctx context.Context, cfg *config.Config, log *zap.Logger) (replayCache, error) {
	if !cfg.Redis.Enabled() {
		log.Info("Redis not configured, using in-memory idempotency replay cache")
		return cache.NewInMemoryReplayCache(time.Minute), nil
	}
	rc, err := cache.NewRedisReplayCache(ctx, cache.RedisConfig{
		Addr:      cfg.Redis.Addr(),
		Password:  cfg.Redis.Password,
		DB:        cfg.Redis.DB,
		KeyPrefix: cfg.Redis.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	log.Info("Redis idempotency replay cache connected", zap.String("addr", cfg.Redis.Addr()))
	return rc, nil
}

func (a *app) start(ctx context.Context) {
	if a.scheduler != nil {
		a.scheduler.Start(ctx)
	}
}

// close stops components in reverse start order; errors are logged, not returned
func (a *app) close(ctx context.Context) {
	if a.scheduler != nil {
		if err := a.scheduler.Stop(ctx); err != nil {
			a.log.Error("Error stopping scheduler", zap.Error(err))
		}
	}
	if a.bus != nil {
		if err := a.bus.Stop(ctx); err != nil {
			a.log.Error("Error stopping event bus", zap.Error(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.Error("Error closing replay cache", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Error("Error closing database", zap.Error(err))
		}
	}
}
