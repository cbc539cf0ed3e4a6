package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type queryStartKey struct{}

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool          // include query variables in spans (dev only)
	SlowQueryThresh time.Duration // default: 200ms
	DBSystem        string        // default: "postgresql"
}

// RegisterDBTracing installs the otelgorm plugin and a callback that flags
// slow statements on their span. Lock waits of the allocation path show up
// as slow SELECT ... FOR UPDATE spans.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.DBSystem == "" {
		cfg.DBSystem = "postgresql"
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBSystem)}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	before := func(tx *gorm.DB) {
		if tx.Statement.Context != nil {
			tx.Statement.Context = context.WithValue(tx.Statement.Context, queryStartKey{}, time.Now())
		}
	}
	after := func(tx *gorm.DB) {
		markSlowQuery(tx, cfg.SlowQueryThresh)
	}

	cb := db.Callback()
	steps := []struct {
		register func(name string, fn func(*gorm.DB)) error
		name     string
		fn       func(*gorm.DB)
	}{
		{func(n string, f func(*gorm.DB)) error { return cb.Create().Before("gorm:create").Register(n, f) }, "ledger_timing:before_create", before},
		{func(n string, f func(*gorm.DB)) error { return cb.Query().Before("gorm:query").Register(n, f) }, "ledger_timing:before_query", before},
		{func(n string, f func(*gorm.DB)) error { return cb.Update().Before("gorm:update").Register(n, f) }, "ledger_timing:before_update", before},
		{func(n string, f func(*gorm.DB)) error { return cb.Delete().Before("gorm:delete").Register(n, f) }, "ledger_timing:before_delete", before},
		{func(n string, f func(*gorm.DB)) error { return cb.Raw().Before("gorm:raw").Register(n, f) }, "ledger_timing:before_raw", before},
		{func(n string, f func(*gorm.DB)) error { return cb.Create().After("gorm:create").Register(n, f) }, "ledger_slow:create", after},
		{func(n string, f func(*gorm.DB)) error { return cb.Query().After("gorm:query").Register(n, f) }, "ledger_slow:query", after},
		{func(n string, f func(*gorm.DB)) error { return cb.Update().After("gorm:update").Register(n, f) }, "ledger_slow:update", after},
		{func(n string, f func(*gorm.DB)) error { return cb.Delete().After("gorm:delete").Register(n, f) }, "ledger_slow:delete", after},
		{func(n string, f func(*gorm.DB)) error { return cb.Raw().After("gorm:raw").Register(n, f) }, "ledger_slow:raw", after},
	}
	for _, s := range steps {
		if err := s.register(s.name, s.fn); err != nil {
			return err
		}
	}

	logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", cfg.LogFullSQL),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThresh),
	)
	return nil
}

func markSlowQuery(tx *gorm.DB, threshold time.Duration) {
	ctx := tx.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	if tx.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", tx.Statement.Table))
	}
	if tx.Error != nil && !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		span.RecordError(tx.Error)
		span.SetStatus(codes.Error, tx.Error.Error())
	}
	start, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return
	}
	if elapsed := time.Since(start); elapsed > threshold {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
	}
}
