package database

import (
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// PoolSnapshot is a point-in-time copy of pool statistics.
type PoolSnapshot struct {
	Acquired        int32
	Idle            int32
	Total           int32
	Max             int32
	Constructing    int32
	AcquireCount    int64
	AcquireDuration time.Duration
	CanceledAcquire int64
	EmptyAcquire    int64
	NewConns        int64
}

func snapshotOf(s *pgxpool.Stat) PoolSnapshot {
	return PoolSnapshot{
		Acquired:        s.AcquiredConns(),
		Idle:            s.IdleConns(),
		Total:           s.TotalConns(),
		Max:             s.MaxConns(),
		Constructing:    s.ConstructingConns(),
		AcquireCount:    s.AcquireCount(),
		AcquireDuration: s.AcquireDuration(),
		CanceledAcquire: s.CanceledAcquireCount(),
		EmptyAcquire:    s.EmptyAcquireCount(),
		NewConns:        s.NewConnsCount(),
	}
}

type poolMetric struct {
	desc  *prometheus.Desc
	kind  prometheus.ValueType
	value func(PoolSnapshot) float64
}

// PoolStatsCollector exports connection pool statistics on every scrape.
type PoolStatsCollector struct {
	stats   func() PoolSnapshot
	service string
	metrics []poolMetric
}

// NewPoolStatsCollector reads statistics from pool on each collection.
func NewPoolStatsCollector(pool *pgxpool.Pool, service string) *PoolStatsCollector {
	return newPoolStatsCollector(func() PoolSnapshot { return snapshotOf(pool.Stat()) }, service)
}

func newPoolStatsCollector(stats func() PoolSnapshot, service string) *PoolStatsCollector {
	gauge := func(name, help string, v func(PoolSnapshot) float64) poolMetric {
		return poolMetric{prometheus.NewDesc(name, help, []string{"service"}, nil), prometheus.GaugeValue, v}
	}
	counter := func(name, help string, v func(PoolSnapshot) float64) poolMetric {
		return poolMetric{prometheus.NewDesc(name, help, []string{"service"}, nil), prometheus.CounterValue, v}
	}

	return &PoolStatsCollector{
		stats:   stats,
		service: service,
		metrics: []poolMetric{
			gauge("db_pool_acquired_connections", "Connections currently checked out of the pool.",
				func(s PoolSnapshot) float64 { return float64(s.Acquired) }),
			gauge("db_pool_idle_connections", "Connections currently idle in the pool.",
				func(s PoolSnapshot) float64 { return float64(s.Idle) }),
			gauge("db_pool_total_connections", "Connections currently open.",
				func(s PoolSnapshot) float64 { return float64(s.Total) }),
			gauge("db_pool_max_connections", "Configured connection limit.",
				func(s PoolSnapshot) float64 { return float64(s.Max) }),
			gauge("db_pool_constructing_connections", "Connections being established.",
				func(s PoolSnapshot) float64 { return float64(s.Constructing) }),
			counter("db_pool_acquires_total", "Successful connection acquires.",
				func(s PoolSnapshot) float64 { return float64(s.AcquireCount) }),
			counter("db_pool_acquire_seconds_total", "Time spent waiting for connections.",
				func(s PoolSnapshot) float64 { return s.AcquireDuration.Seconds() }),
			counter("db_pool_canceled_acquires_total", "Acquires abandoned by their context.",
				func(s PoolSnapshot) float64 { return float64(s.CanceledAcquire) }),
			counter("db_pool_empty_acquires_total", "Acquires that found no idle connection.",
				func(s PoolSnapshot) float64 { return float64(s.EmptyAcquire) }),
			counter("db_pool_new_connections_total", "Connections opened since start.",
				func(s PoolSnapshot) float64 { return float64(s.NewConns) }),
		},
	}
}

// Describe implements prometheus.Collector.
func (c *PoolStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.metrics {
		ch <- m.desc
	}
}

// Collect implements prometheus.Collector.
func (c *PoolStatsCollector) Collect(ch chan<- prometheus.Metric) {
	snap := c.stats()
	for _, m := range c.metrics {
		ch <- prometheus.MustNewConstMetric(m.desc, m.kind, m.value(snap), c.service)
	}
}

// RegisterPoolMetrics registers a pool collector with the default registry.
// Registering the same service twice is not an error.
func RegisterPoolMetrics(pool *pgxpool.Pool, service string) error {
	return registerCollector(prometheus.DefaultRegisterer, NewPoolStatsCollector(pool, service))
}

func registerCollector(reg prometheus.Registerer, c prometheus.Collector) error {
	err := reg.Register(c)
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		return nil
	}
	return err
}
