// Package monitoring provides metrics collection for expression evaluation.
package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics holds the Prometheus instruments for expression evaluation.
type Metrics struct {
	// reg is the Registerer used to create this set of metrics.
	reg prometheus.Registerer

	evaluations *prometheus.CounterVec
	rows        prometheus.Counter
	duration    *prometheus.HistogramVec
}

// NewMetrics creates a new set of metrics. Metrics will be registered to reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	var m Metrics
	m.reg = reg

	m.evaluations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vexpr",
		Name:      "evaluations_total",
		Help:      "Total number of expression evaluations by function and outcome.",
	}, []string{"function", "outcome"})

	m.rows = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "vexpr",
		Name:      "rows_evaluated_total",
		Help:      "Total number of rows evaluated successfully.",
	})

	m.duration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vexpr",
		Name:      "evaluation_duration_seconds",
		Help:      "Time spent evaluating one batch.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
	}, []string{"function"})

	if reg != nil {
		reg.MustRegister(m.evaluations, m.rows, m.duration)
	}
	return &m
}

// Observe records one evaluation
func (m *Metrics) Observe(function string, rows int, d time.Duration, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.evaluations.WithLabelValues(function, outcome).Inc()
	m.duration.WithLabelValues(function).Observe(d.Seconds())
	if err == nil {
		m.rows.Add(float64(rows))
	}
}

// OperationMetrics represents metrics for a single evaluation.
type OperationMetrics struct {
	Duration      time.Duration `json:"duration"`
	RowsProcessed int64         `json:"rows_processed"`
	Operation     string        `json:"operation"`
	Failed        bool          `json:"failed"`
}

// MetricsCollector records evaluations in memory and, when configured, in
// Prometheus instruments.
type MetricsCollector struct {
	mu       sync.RWMutex
	metrics  []OperationMetrics
	enabled  bool
	registry *prometheus.Registry
	prom     *Metrics
}

// NewMetricsCollector creates a new metrics collector with its own
// Prometheus registry.
func NewMetricsCollector(enabled bool) *MetricsCollector {
	registry := prometheus.NewRegistry()
	return &MetricsCollector{
		metrics:  make([]OperationMetrics, 0),
		enabled:  enabled,
		registry: registry,
		prom:     NewMetrics(registry),
	}
}

// Registry returns the Prometheus registry the collector's instruments are
// registered with.
func (mc *MetricsCollector) Registry() *prometheus.Registry {
	return mc.registry
}

// Metrics returns the Prometheus instruments.
func (mc *MetricsCollector) Metrics() *Metrics {
	return mc.prom
}

// IsEnabled returns whether metrics collection is enabled.
func (mc *MetricsCollector) IsEnabled() bool {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.enabled
}

// RecordOperation executes fn over rows rows and records its duration and
// outcome.
func (mc *MetricsCollector) RecordOperation(operation string, rows int, fn func() error) error {
	if !mc.IsEnabled() {
		return fn()
	}

	start := time.Now()
	err := fn()
	duration := time.Since(start)

	mc.prom.Observe(operation, rows, duration, err)

	mc.mu.Lock()
	mc.metrics = append(mc.metrics, OperationMetrics{
		Duration:      duration,
		RowsProcessed: int64(rows),
		Operation:     operation,
		Failed:        err != nil,
	})
	mc.mu.Unlock()

	return err
}

// GetMetrics returns a copy of all collected metrics.
func (mc *MetricsCollector) GetMetrics() []OperationMetrics {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	result := make([]OperationMetrics, len(mc.metrics))
	copy(result, mc.metrics)
	return result
}

// Clear removes all in-memory records. Prometheus counters are not reset.
func (mc *MetricsCollector) Clear() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.metrics = mc.metrics[:0]
}

// SetEnabled enables or disables metrics collection.
func (mc *MetricsCollector) SetEnabled(enabled bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.enabled = enabled
}

// GetSummary returns a summary of collected metrics.
func (mc *MetricsCollector) GetSummary() MetricsSummary {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	if len(mc.metrics) == 0 {
		return MetricsSummary{}
	}

	var totalDuration time.Duration
	var totalRows int64
	var failed int
	operationCounts := make(map[string]int)

	for _, metric := range mc.metrics {
		totalDuration += metric.Duration
		totalRows += metric.RowsProcessed
		operationCounts[metric.Operation]++
		if metric.Failed {
			failed++
		}
	}

	return MetricsSummary{
		TotalOperations:  len(mc.metrics),
		FailedOperations: failed,
		TotalDuration:    totalDuration,
		TotalRows:        totalRows,
		OperationCounts:  operationCounts,
		AverageDuration:  totalDuration / time.Duration(len(mc.metrics)),
	}
}

// MetricsSummary provides aggregate statistics for collected metrics.
type MetricsSummary struct {
	TotalOperations  int            `json:"total_operations"`
	FailedOperations int            `json:"failed_operations"`
	TotalDuration    time.Duration  `json:"total_duration"`
	TotalRows        int64          `json:"total_rows"`
	OperationCounts  map[string]int `json:"operation_counts"`
	AverageDuration  time.Duration  `json:"average_duration"`
}
