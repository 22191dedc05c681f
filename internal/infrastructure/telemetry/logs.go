package telemetry

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// sqlLoggerName is the zap logger name of the GORM statement logger. SQL
// entries are exported only at warn and above so slow or failed statements
// reach the collector without every query.
const sqlLoggerName = "sql"

// LogsConfig holds log export settings
type LogsConfig struct {
	Enabled           bool
	CollectorEndpoint string
	ServiceName       string
	Insecure          bool
}

// LoggerProvider exports zap entries as OpenTelemetry log records
type LoggerProvider struct {
	provider    *sdklog.LoggerProvider
	serviceName string
	logger      *zap.Logger
}

// NewLoggerProvider exports logs over OTLP gRPC when cfg.Enabled is set
func NewLoggerProvider(ctx context.Context, cfg LogsConfig, logger *zap.Logger) (*LoggerProvider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	lp := &LoggerProvider{serviceName: cfg.ServiceName, logger: logger}
	if !cfg.Enabled {
		logger.Info("Log export disabled")
		return lp, nil
	}

	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.CollectorEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	exporter, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP logs exporter: %w", err)
	}
	res, err := newResource(cfg.ServiceName)
	if err != nil {
		return nil, err
	}

	lp.provider = sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)
	global.SetLoggerProvider(lp.provider)
	logger.Info("OpenTelemetry LoggerProvider initialized", zap.String("collector_endpoint", cfg.CollectorEndpoint))
	return lp, nil
}

// Shutdown flushes pending records
func (lp *LoggerProvider) Shutdown(ctx context.Context) error {
	if lp.provider == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := lp.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown logger provider: %w", err)
	}
	return nil
}

// IsEnabled reports whether logs are exported
func (lp *LoggerProvider) IsEnabled() bool {
	return lp.provider != nil
}

// ZapCore returns a core to tee with the console core in logger.New. It
// forwards entries at or above level, and SQL entries at or above warn.
func (lp *LoggerProvider) ZapCore(level zapcore.Level) zapcore.Core {
	if !lp.IsEnabled() {
		return zapcore.NewNopCore()
	}
	return exportCore(otelzap.NewCore(lp.serviceName, otelzap.WithLoggerProvider(lp.provider)), level)
}

func exportCore(inner zapcore.Core, level zapcore.Level) zapcore.Core {
	return &exportFilterCore{Core: inner, min: level, sqlMin: max(level, zapcore.WarnLevel)}
}

type exportFilterCore struct {
	zapcore.Core
	min    zapcore.Level
	sqlMin zapcore.Level
}

func (c *exportFilterCore) Enabled(lvl zapcore.Level) bool {
	return lvl >= c.min && c.Core.Enabled(lvl)
}

func (c *exportFilterCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	floor := c.min
	if entry.LoggerName == sqlLoggerName || strings.HasSuffix(entry.LoggerName, "."+sqlLoggerName) {
		floor = c.sqlMin
	}
	if entry.Level < floor {
		return ce
	}
	return c.Core.Check(entry, ce)
}

func (c *exportFilterCore) With(fields []zapcore.Field) zapcore.Core {
	return &exportFilterCore{Core: c.Core.With(fields), min: c.min, sqlMin: c.sqlMin}
}
