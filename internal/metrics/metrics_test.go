package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics()

	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}

	if m.registry == nil {
		t.Error("Registry is nil")
	}

	if m.EditRequestsTotal == nil {
		t.Error("EditRequestsTotal is nil")
	}
	if m.EditDuration == nil {
		t.Error("EditDuration is nil")
	}
	if m.ColumnsAddedTotal == nil {
		t.Error("ColumnsAddedTotal is nil")
	}
	if m.SnapshotWritesTotal == nil {
		t.Error("SnapshotWritesTotal is nil")
	}
	if m.FetchesTotal == nil {
		t.Error("FetchesTotal is nil")
	}
	if m.FileEventsTotal == nil {
		t.Error("FileEventsTotal is nil")
	}
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics()

	// Record some sample metrics so they appear in output
	m.ObserveEdit("update_label", "success", 0.01)
	m.ColumnsAddedTotal.Inc()
	m.SnapshotWritesTotal.WithLabelValues("success").Inc()
	m.FetchesTotal.Inc()
	m.FileEventsTotal.WithLabelValues("write", "external").Inc()

	handler := m.Handler()
	if handler == nil {
		t.Fatal("Handler returned nil")
	}

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	body := w.Body.String()

	expectedMetrics := []string{
		"csv_edit_requests_total",
		"csv_edit_duration_seconds",
		"csv_columns_added_total",
		"csv_snapshot_writes_total",
		"csv_fetches_total",
		"csv_file_events_total",
	}

	for _, metric := range expectedMetrics {
		if !strings.Contains(body, metric) {
			t.Errorf("Metrics output missing: %s", metric)
		}
	}
}

func TestObserveEdit(t *testing.T) {
	m := NewMetrics()

	m.ObserveEdit("add_column", "success", 0.2)
	m.ObserveEdit("add_column", "success", 0.1)
	m.ObserveEdit("add_column", "client_error", 0.1)

	if got := testutil.ToFloat64(m.EditRequestsTotal.WithLabelValues("add_column", "success")); got != 2 {
		t.Errorf("Expected 2 successful add_column requests, got %v", got)
	}
	if got := testutil.ToFloat64(m.EditRequestsTotal.WithLabelValues("add_column", "client_error")); got != 1 {
		t.Errorf("Expected 1 failed add_column request, got %v", got)
	}
	if got := testutil.CollectAndCount(m.EditDuration); got != 1 {
		t.Errorf("Expected 1 duration series, got %d", got)
	}
}

func TestMetricsRegistry(t *testing.T) {
	m := NewMetrics()

	registry := m.Registry()
	if registry == nil {
		t.Fatal("Registry returned nil")
	}

	m.ObserveEdit("update_label", "success", 0.01)
	m.SnapshotWritesTotal.WithLabelValues("success").Inc()
	m.FileEventsTotal.WithLabelValues("create", "self").Inc()

	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}

	metricNames := make(map[string]bool)
	for _, mf := range metricFamilies {
		metricNames[mf.GetName()] = true
	}

	expectedCount := 6
	if len(metricNames) != expectedCount {
		t.Errorf("Expected %d metrics, got %d", expectedCount, len(metricNames))
	}
}
