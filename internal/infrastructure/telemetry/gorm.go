package telemetry

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBDurationBuckets are histogram bounds for query latency in seconds
var DBDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

// DBOptions controls what InstrumentDB attaches
type DBOptions struct {
	Tracing       bool
	SlowThreshold time.Duration
	DBName        string
}

// DBInstruments records query latency and pool usage for one database
type DBInstruments struct {
	duration metric.Float64Histogram
	slow     metric.Int64Counter
	slowAt   time.Duration
	reg      metric.Registration
}

type startKey struct{}

// InstrumentDB attaches otelgorm spans (when opts.Tracing) and query metrics
// to db. Pool statistics are observed on each metric collection.
func InstrumentDB(db *gorm.DB, meter metric.Meter, opts DBOptions, logger *zap.Logger) (*DBInstruments, error) {
	if opts.SlowThreshold <= 0 {
		opts.SlowThreshold = 200 * time.Millisecond
	}

	if opts.Tracing {
		if err := db.Use(otelgorm.NewPlugin(
			otelgorm.WithDBName(opts.DBName),
			otelgorm.WithoutQueryVariables(),
		)); err != nil {
			return nil, err
		}
	}

	m := &DBInstruments{slowAt: opts.SlowThreshold}
	var err error
	if m.duration, err = meter.Float64Histogram("db_query_duration_seconds",
		metric.WithDescription("Database query latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(DBDurationBuckets...),
	); err != nil {
		return nil, err
	}
	if m.slow, err = meter.Int64Counter("db_slow_query_total",
		metric.WithDescription("Queries slower than the slow query threshold"),
	); err != nil {
		return nil, err
	}

	if sqlDB, err := db.DB(); err == nil {
		inUse, err1 := meter.Int64ObservableGauge("db_pool_connections_in_use")
		idle, err2 := meter.Int64ObservableGauge("db_pool_connections_idle")
		waits, err3 := meter.Int64ObservableCounter("db_pool_wait_total")
		if err := errors.Join(err1, err2, err3); err != nil {
			return nil, err
		}
		m.reg, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
			s := sqlDB.Stats()
			o.ObserveInt64(inUse, int64(s.InUse))
			o.ObserveInt64(idle, int64(s.Idle))
			o.ObserveInt64(waits, s.WaitCount)
			return nil
		}, inUse, idle, waits)
		if err != nil {
			return nil, err
		}
	}

	if err := m.register(db); err != nil {
		return nil, err
	}
	logger.Info("Database instrumentation enabled",
		zap.Bool("tracing", opts.Tracing),
		zap.Duration("slow_threshold", opts.SlowThreshold),
	)
	return m, nil
}

// Close stops observing pool statistics
func (m *DBInstruments) Close() error {
	if m.reg == nil {
		return nil
	}
	return m.reg.Unregister()
}

func (m *DBInstruments) register(db *gorm.DB) error {
	before := func(tx *gorm.DB) {
		if tx.Statement.Context == nil {
			tx.Statement.Context = context.Background()
		}
		tx.Statement.Context = context.WithValue(tx.Statement.Context, startKey{}, time.Now())
	}
	after := func(op string) func(*gorm.DB) {
		return func(tx *gorm.DB) { m.observe(tx, op) }
	}

	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register("metrics:before_create", before),
		cb.Query().Before("gorm:query").Register("metrics:before_query", before),
		cb.Update().Before("gorm:update").Register("metrics:before_update", before),
		cb.Delete().Before("gorm:delete").Register("metrics:before_delete", before),
		cb.Row().Before("gorm:row").Register("metrics:before_row", before),
		cb.Raw().Before("gorm:raw").Register("metrics:before_raw", before),
		cb.Create().After("gorm:create").Register("metrics:after_create", after("INSERT")),
		cb.Query().After("gorm:query").Register("metrics:after_query", after("SELECT")),
		cb.Update().After("gorm:update").Register("metrics:after_update", after("UPDATE")),
		cb.Delete().After("gorm:delete").Register("metrics:after_delete", after("DELETE")),
		cb.Row().After("gorm:row").Register("metrics:after_row", after("")),
		cb.Raw().After("gorm:raw").Register("metrics:after_raw", after("")),
	)
}

func (m *DBInstruments) observe(tx *gorm.DB, op string) {
	ctx := tx.Statement.Context
	start, ok := ctx.Value(startKey{}).(time.Time)
	if !ok {
		return
	}
	elapsed := time.Since(start)
	if op == "" {
		op = operationOf(tx.Statement.SQL.String())
	}
	table := tx.Statement.Table
	if table == "" {
		table = "unknown"
	}

	attrs := metric.WithAttributes(
		attribute.String("db.operation", op),
		attribute.String("db.table", table),
	)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
	if elapsed < m.slowAt {
		return
	}
	m.slow.Add(ctx, 1, attrs)
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
	}
}

func operationOf(sql string) string {
	verb, _, _ := strings.Cut(strings.TrimSpace(sql), " ")
	switch v := strings.ToUpper(verb); v {
	case "SELECT", "INSERT", "UPDATE", "DELETE", "WITH":
		return v
	default:
		return "OTHER"
	}
}
