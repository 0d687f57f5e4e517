//nolint:testpackage // requires internal access to unexported types and functions
package monitoring

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.Observe("multiIf", 100, time.Millisecond, nil)
	m.Observe("multiIf", 50, time.Millisecond, nil)
	m.Observe("transform", 10, time.Millisecond, errors.New("boom"))

	assert.InDelta(t, 2, promtestutil.ToFloat64(m.evaluations.WithLabelValues("multiIf", OutcomeSuccess)), 0)
	assert.InDelta(t, 1, promtestutil.ToFloat64(m.evaluations.WithLabelValues("transform", OutcomeError)), 0)
	assert.InDelta(t, 150, promtestutil.ToFloat64(m.rows), 0)
	assert.Equal(t, 2, promtestutil.CollectAndCount(m.duration))

	count, err := promtestutil.GatherAndCount(reg, "vexpr_evaluations_total", "vexpr_rows_evaluated_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	t.Run("nil registerer", func(t *testing.T) {
		unregistered := NewMetrics(nil)
		unregistered.Observe("if", 1, time.Millisecond, nil)
		assert.InDelta(t, 1, promtestutil.ToFloat64(unregistered.rows), 0)
	})
}

func TestMetricsCollector(t *testing.T) {
	t.Run("create disabled collector", func(t *testing.T) {
		collector := NewMetricsCollector(false)
		assert.NotNil(t, collector)
		assert.False(t, collector.IsEnabled())
		assert.Empty(t, collector.GetMetrics())
	})

	t.Run("record operation with disabled collector", func(t *testing.T) {
		collector := NewMetricsCollector(false)

		callCount := 0
		err := collector.RecordOperation("test", 10, func() error {
			callCount++
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 1, callCount)
		assert.Empty(t, collector.GetMetrics())
		assert.InDelta(t, 0, promtestutil.ToFloat64(collector.Metrics().rows), 0)
	})

	t.Run("record operation with enabled collector", func(t *testing.T) {
		collector := NewMetricsCollector(true)

		err := collector.RecordOperation("multiIf", 1000, func() error {
			time.Sleep(time.Millisecond)
			return nil
		})
		require.NoError(t, err)

		metrics := collector.GetMetrics()
		require.Len(t, metrics, 1)
		assert.Equal(t, "multiIf", metrics[0].Operation)
		assert.Equal(t, int64(1000), metrics[0].RowsProcessed)
		assert.False(t, metrics[0].Failed)
		assert.GreaterOrEqual(t, metrics[0].Duration, time.Millisecond)

		count, err := promtestutil.GatherAndCount(collector.Registry(), "vexpr_evaluations_total")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("record failing operation", func(t *testing.T) {
		collector := NewMetricsCollector(true)
		expected := errors.New("operation failed")

		err := collector.RecordOperation("transform", 5, func() error { return expected })
		assert.Equal(t, expected, err)

		metrics := collector.GetMetrics()
		require.Len(t, metrics, 1)
		assert.True(t, metrics[0].Failed)
		assert.InDelta(t, 1,
			promtestutil.ToFloat64(collector.Metrics().evaluations.WithLabelValues("transform", OutcomeError)), 0)
		assert.InDelta(t, 0, promtestutil.ToFloat64(collector.Metrics().rows), 0)
	})

	t.Run("enable and clear", func(t *testing.T) {
		collector := NewMetricsCollector(false)
		collector.SetEnabled(true)
		require.NoError(t, collector.RecordOperation("if", 1, func() error { return nil }))
		assert.Len(t, collector.GetMetrics(), 1)

		collector.Clear()
		assert.Empty(t, collector.GetMetrics())
	})

	t.Run("concurrent recording", func(t *testing.T) {
		collector := NewMetricsCollector(true)

		var wg sync.WaitGroup
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = collector.RecordOperation("multiIf", 10, func() error { return nil })
			}()
		}
		wg.Wait()

		assert.Len(t, collector.GetMetrics(), 10)
		assert.InDelta(t, 100, promtestutil.ToFloat64(collector.Metrics().rows), 0)
	})
}

func TestMetricsSummary(t *testing.T) {
	collector := NewMetricsCollector(true)
	assert.Equal(t, MetricsSummary{}, collector.GetSummary())

	require.NoError(t, collector.RecordOperation("multiIf", 100, func() error { return nil }))
	require.NoError(t, collector.RecordOperation("multiIf", 200, func() error { return nil }))
	_ = collector.RecordOperation("caseWithExpression", 50, func() error { return errors.New("x") })

	summary := collector.GetSummary()
	assert.Equal(t, 3, summary.TotalOperations)
	assert.Equal(t, 1, summary.FailedOperations)
	assert.Equal(t, int64(350), summary.TotalRows)
	assert.Equal(t, map[string]int{"multiIf": 2, "caseWithExpression": 1}, summary.OperationCounts)
	assert.Equal(t, summary.TotalDuration/3, summary.AverageDuration)
}
