package telemetry

import (
	"context"
	"database/sql"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RegisterDBPoolMetrics exposes connection pool statistics as observable
// gauges read at collection time
func RegisterDBPoolMetrics(meter metric.Meter, sqlDB *sql.DB) (metric.Registration, error) {
	connections, err := meter.Int64ObservableGauge("bapx_db_pool_connections",
		metric.WithDescription("Database connections by state"))
	if err != nil {
		return nil, err
	}
	maxOpen, err := meter.Int64ObservableGauge("bapx_db_pool_connections_max",
		metric.WithDescription("Maximum open database connections"))
	if err != nil {
		return nil, err
	}
	waits, err := meter.Int64ObservableCounter("bapx_db_pool_wait_total",
		metric.WithDescription("Connections waited for"))
	if err != nil {
		return nil, err
	}

	state := attribute.Key("state")
	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := sqlDB.Stats()
		o.ObserveInt64(connections, int64(s.InUse), metric.WithAttributes(state.String("in_use")))
		o.ObserveInt64(connections, int64(s.Idle), metric.WithAttributes(state.String("idle")))
		o.ObserveInt64(maxOpen, int64(s.MaxOpenConnections))
		o.ObserveInt64(waits, s.WaitCount)
		return nil
	}, connections, maxOpen, waits)
}
