package metrics

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"
)

func TestLedgerMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewLedgerMetrics(reg)
	metrics.Observe(LedgerOpRecord, OutcomeSuccess)
	metrics.Observe(LedgerOpRecord, OutcomeSuccess)
	metrics.Observe(LedgerOpRecord, OutcomeInsufficientStock)
	metrics.Moved(DirectionDeducted, decimal.RequireFromString("2.5"))
	metrics.Moved(DirectionDeducted, decimal.Zero)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "ledger_usage_operations_total", map[string]string{"operation": "record", "outcome": "success"}); err != nil {
		t.Fatalf("fetch success: %v", err)
	} else if got != 2 {
		t.Fatalf("expected success=2, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "ledger_usage_operations_total", map[string]string{"operation": "record", "outcome": "insufficient_stock"}); err != nil {
		t.Fatalf("fetch insufficient: %v", err)
	} else if got != 1 {
		t.Fatalf("expected insufficient=1, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "ledger_quantity_moved_total", map[string]string{"direction": "deducted"}); err != nil {
		t.Fatalf("fetch moved: %v", err)
	} else if got != 2.5 {
		t.Fatalf("expected moved=2.5, got %f", got)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var ledger *LedgerMetrics
	ledger.Observe(LedgerOpRemove, OutcomeSuccess)
	ledger.Moved(DirectionRestored, decimal.NewFromInt(1))

	var httpMetrics *HTTPMetrics
	httpMetrics.Observe(http.MethodGet, "/", http.StatusOK, time.Millisecond)

	var jobs *JobMetrics
	jobs.ObserveRun("low-stock-sweep", time.Second, nil)
	jobs.SetLowStock(3)

	NewLedgerMetrics(nil).Observe("", "")
}

func TestJobMetricsExportsRuns(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewJobMetrics(reg)
	metrics.ObserveRun("low-stock-sweep", 20*time.Millisecond, nil)
	metrics.ObserveRun("low-stock-sweep", 10*time.Millisecond, fmt.Errorf("boom"))
	metrics.SetLowStock(4)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for outcome, want := range map[string]float64{"success": 1, "error": 1} {
		got, err := fetchCounterValue(mfs, "job_runs_total", map[string]string{"job": "low-stock-sweep", "outcome": outcome})
		if err != nil {
			t.Fatalf("fetch %s: %v", outcome, err)
		}
		if got != want {
			t.Fatalf("expected %s=%v, got %f", outcome, want, got)
		}
	}
	gauge := findMetricFamily(mfs, "inventory_low_stock_items")
	if gauge == nil || gauge.GetMetric()[0].GetGauge().GetValue() != 4 {
		t.Fatalf("expected low stock gauge 4")
	}
}

func TestHTTPMetricsExportsRequests(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewHTTPMetrics(reg)
	metrics.Observe(http.MethodPost, "/api/v1/reports", http.StatusCreated, 40*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "http_requests_total", map[string]string{"method": "POST", "route": "/api/v1/reports", "status": "201"}); err != nil {
		t.Fatalf("fetch requests: %v", err)
	} else if got != 1 {
		t.Fatalf("expected requests=1, got %f", got)
	}
	if got, err := fetchHistogramSum(mfs, "http_request_duration_seconds", map[string]string{"route": "/api/v1/reports"}); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing labels %v", name, labels)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing labels %v", name, labels)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, pair := range pairs {
		if value, ok := want[pair.GetName()]; ok {
			if pair.GetValue() != value {
				return false
			}
			matched++
		}
	}
	return matched == len(want)
}
