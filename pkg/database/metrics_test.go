package database

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedStats() PoolSnapshot {
	return PoolSnapshot{
		Acquired:        2,
		Idle:            1,
		Total:           3,
		Max:             4,
		AcquireCount:    40,
		AcquireDuration: 1500 * time.Millisecond,
		EmptyAcquire:    5,
		NewConns:        3,
	}
}

// scrape gathers c through a private registry and indexes families by name.
func scrape(t *testing.T, c prometheus.Collector) map[string]*dto.MetricFamily {
	t.Helper()
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))
	families, err := reg.Gather()
	require.NoError(t, err)

	out := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		out[f.GetName()] = f
	}
	return out
}

func TestPoolStatsCollector_Collect(t *testing.T) {
	c := newPoolStatsCollector(fixedStats, "storefront")
	families := scrape(t, c)

	assert.Len(t, families, len(c.metrics))

	tests := []struct {
		name  string
		kind  dto.MetricType
		value float64
	}{
		{"db_pool_acquired_connections", dto.MetricType_GAUGE, 2},
		{"db_pool_max_connections", dto.MetricType_GAUGE, 4},
		{"db_pool_acquires_total", dto.MetricType_COUNTER, 40},
		{"db_pool_acquire_seconds_total", dto.MetricType_COUNTER, 1.5},
		{"db_pool_empty_acquires_total", dto.MetricType_COUNTER, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, ok := families[tt.name]
			require.True(t, ok)
			require.Equal(t, tt.kind, f.GetType())
			require.Len(t, f.GetMetric(), 1)

			m := f.GetMetric()[0]
			assert.Equal(t, "storefront", m.GetLabel()[0].GetValue())
			if tt.kind == dto.MetricType_GAUGE {
				assert.Equal(t, tt.value, m.GetGauge().GetValue())
			} else {
				assert.Equal(t, tt.value, m.GetCounter().GetValue())
			}
		})
	}
}

func TestPoolStatsCollector_ReadsOnEveryScrape(t *testing.T) {
	var calls int
	c := newPoolStatsCollector(func() PoolSnapshot {
		calls++
		return PoolSnapshot{Idle: int32(calls)}
	}, "storefront")

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(c))
	_, err := reg.Gather()
	require.NoError(t, err)
	_, err = reg.Gather()
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
}

func TestRegisterCollector_DuplicateIsIgnored(t *testing.T) {
	reg := prometheus.NewRegistry()

	require.NoError(t, registerCollector(reg, newPoolStatsCollector(fixedStats, "storefront")))
	assert.NoError(t, registerCollector(reg, newPoolStatsCollector(fixedStats, "storefront")))
}
