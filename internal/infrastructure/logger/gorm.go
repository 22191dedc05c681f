package logger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

// SQLSTATE raised by FOR UPDATE NOWAIT when another transaction holds the row
const sqlStateLockNotAvailable = "55P03"

// GormLogger writes GORM statements to zap. Statement errors carry their
// SQLSTATE and constraint so rejected writes can be traced to the guard that
// stopped them. Lock contention on NOWAIT row locks is an expected outcome
// of concurrent transitions and is logged below error level.
type GormLogger struct {
	logger        *zap.Logger
	logLevel      gormlogger.LogLevel
	slowThreshold time.Duration
	contention    zapcore.Level
}

// GormLoggerOption configures a GormLogger
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the duration above which a statement is logged as slow.
// Zero disables slow statement logging.
func WithSlowThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) {
		l.slowThreshold = threshold
	}
}

// WithContentionLevel sets the level lock-not-available errors are logged at
func WithContentionLevel(level zapcore.Level) GormLoggerOption {
	return func(l *GormLogger) {
		l.contention = level
	}
}

// NewGormLogger creates a GORM logger backed by zap
func NewGormLogger(zapLogger *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	gl := &GormLogger{
		logger:        zapLogger.Named("sql"),
		logLevel:      level,
		slowThreshold: 200 * time.Millisecond,
		contention:    zapcore.WarnLevel,
	}
	for _, opt := range opts {
		opt(gl)
	}
	return gl
}

// LogMode implements gormlogger.Interface
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.logLevel = level
	return &clone
}

// Info implements gormlogger.Interface
func (l *GormLogger) Info(_ context.Context, msg string, data ...any) {
	if l.logLevel >= gormlogger.Info {
		l.logger.Sugar().Infof(msg, data...)
	}
}

// Warn implements gormlogger.Interface
func (l *GormLogger) Warn(_ context.Context, msg string, data ...any) {
	if l.logLevel >= gormlogger.Warn {
		l.logger.Sugar().Warnf(msg, data...)
	}
}

// Error implements gormlogger.Interface
func (l *GormLogger) Error(_ context.Context, msg string, data ...any) {
	if l.logLevel >= gormlogger.Error {
		l.logger.Sugar().Errorf(msg, data...)
	}
}

// Trace implements gormlogger.Interface
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.logLevel <= gormlogger.Silent {
		return
	}
	// misses are answered with domain not-found errors, never logged
	if errors.Is(err, gormlogger.ErrRecordNotFound) {
		err = nil
	}

	elapsed := time.Since(begin)
	slow := l.slowThreshold > 0 && elapsed > l.slowThreshold
	switch {
	case err != nil && l.logLevel >= gormlogger.Error:
	case slow && l.logLevel >= gormlogger.Warn:
	case err == nil && l.logLevel >= gormlogger.Info:
	default:
		return
	}

	log := WithTraceContext(ctx, l.logger)
	sql, rows := fc()
	fields := make([]zap.Field, 0, 6)
	fields = append(fields,
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	)
	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if actorID := GetActorID(ctx); actorID != 0 {
		fields = append(fields, zap.Int64("actor_id", actorID))
	}

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			fields = append(fields, zap.String("sql_state", pgErr.Code))
			if pgErr.ConstraintName != "" {
				fields = append(fields, zap.String("constraint", pgErr.ConstraintName))
			}
			if pgErr.Code == sqlStateLockNotAvailable {
				log.Log(l.contention, "Row lock not available", fields...)
				return
			}
		}
		log.Error("SQL statement failed", append(fields, zap.Error(err))...)
		return
	}
	if slow {
		log.Warn("Slow SQL statement", append(fields, zap.Duration("threshold", l.slowThreshold))...)
		return
	}
	log.Debug("SQL statement", fields...)
}

// MapGormLogLevel maps the application log level to a GORM log level
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
