//nolint:testpackage // requires internal access to unexported types and functions
package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitoringServer(t *testing.T) {
	collector := NewMetricsCollector(true)
	server := NewMonitoringServer(collector, ":9464")

	assert.NotNil(t, server)
	assert.Equal(t, collector, server.collector)
	assert.Equal(t, ":9464", server.server.Addr)
}

func TestMetricsEndpoint(t *testing.T) {
	collector := NewMetricsCollector(true)
	require.NoError(t, collector.RecordOperation("multiIf", 42, func() error { return nil }))
	server := NewMonitoringServer(collector, ":0")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `vexpr_evaluations_total{function="multiIf",outcome="success"} 1`)
	assert.Contains(t, body, "vexpr_rows_evaluated_total 42")
	assert.Contains(t, body, "vexpr_evaluation_duration_seconds_bucket")
}

func TestOperationsEndpoint(t *testing.T) {
	t.Run("summary", func(t *testing.T) {
		collector := NewMetricsCollector(true)
		require.NoError(t, collector.RecordOperation("transform", 7, func() error { return nil }))
		server := NewMonitoringServer(collector, ":0")

		req := httptest.NewRequest(http.MethodGet, "/operations", nil)
		w := httptest.NewRecorder()
		server.handleOperations(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var summary MetricsSummary
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
		assert.Equal(t, 1, summary.TotalOperations)
		assert.Equal(t, int64(7), summary.TotalRows)
	})

	t.Run("invalid method", func(t *testing.T) {
		server := NewMonitoringServer(NewMetricsCollector(true), ":0")

		req := httptest.NewRequest(http.MethodPost, "/operations", nil)
		w := httptest.NewRecorder()
		server.handleOperations(w, req)

		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestHealthEndpoint(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
	}{
		{"enabled collector", true},
		{"disabled collector", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := NewMonitoringServer(NewMetricsCollector(tt.enabled), ":0")

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			w := httptest.NewRecorder()
			server.handleHealth(w, req)

			assert.Equal(t, http.StatusOK, w.Code)

			var response map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, "ok", response["status"])
			assert.Equal(t, tt.enabled, response["enabled"])
			assert.NotEmpty(t, response["timestamp"])
		})
	}

	server := NewMonitoringServer(NewMetricsCollector(true), ":0")
	w := httptest.NewRecorder()
	server.handleHealth(w, httptest.NewRequest(http.MethodDelete, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
