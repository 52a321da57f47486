package logger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger sends recipient store SQL to zap. Entries carry the trace,
// request and recipient ids found on the statement's context.
type GormLogger struct {
	base  *zap.Logger
	level gormlogger.LogLevel
	slow  time.Duration
}

// NewGormLogger creates a GORM logger at the service log level ("debug",
// "info", "warn", "error" or "silent"). Statements slower than slow are
// logged as warnings; zero disables slow statement detection.
func NewGormLogger(base *zap.Logger, level string, slow time.Duration) *GormLogger {
	if base == nil {
		base = zap.NewNop()
	}
	return &GormLogger{
		base:  base.Named("recipients.sql"),
		level: gormLevel(level),
		slow:  slow,
	}
}

// gormLevel maps a service log level onto GORM's coarser scale
func gormLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error", "fatal", "panic":
		return gormlogger.Error
	case "debug", "info":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

// LogMode implements gormlogger.Interface
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

// Info implements gormlogger.Interface
func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		WithLogger(ctx, l.base).Info(fmt.Sprintf(msg, data...))
	}
}

// Warn implements gormlogger.Interface
func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		WithLogger(ctx, l.base).Warn(fmt.Sprintf(msg, data...))
	}
}

// Error implements gormlogger.Interface
func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		WithLogger(ctx, l.base).Error(fmt.Sprintf(msg, data...))
	}
}

// Trace implements gormlogger.Interface. A missing row is how the store
// answers lookups and dedup checks, so it is logged as a normal statement.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if fc == nil || l.level <= gormlogger.Silent {
		return
	}
	if errors.Is(err, gormlogger.ErrRecordNotFound) {
		err = nil
	}

	elapsed := time.Since(begin)
	slow := l.slow > 0 && elapsed >= l.slow
	switch {
	case err != nil && l.level < gormlogger.Error,
		err == nil && slow && l.level < gormlogger.Warn,
		err == nil && !slow && l.level < gormlogger.Info:
		return
	}

	sql, rows := fc()
	log := WithLogger(ctx, l.base).With(
		zap.String("statement", statementKind(sql)),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	)

	switch {
	case err != nil:
		log.Error("Recipient store statement failed", zap.Error(err))
	case slow:
		log.Warn("Slow recipient store statement", zap.Duration("threshold", l.slow))
	default:
		log.Debug("Recipient store statement")
	}
}

// statementKind returns the lower-cased leading SQL keyword
func statementKind(sql string) string {
	verb, _, _ := strings.Cut(strings.TrimSpace(sql), " ")
	return strings.ToLower(verb)
}
