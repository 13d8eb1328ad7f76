package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// JobMetrics records scheduled job runs and the inventory gauges they maintain.
type JobMetrics struct {
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
	lowStock prometheus.Gauge
}

// NewJobMetrics registers the scheduled job metrics on the provided registerer.
func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	if reg == nil {
		return &JobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "job_duration_seconds",
		Help:    "Duration of scheduled jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_runs_total",
		Help: "Scheduled job executions by outcome.",
	}, []string{"job", "outcome"})
	lowStock := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "inventory_low_stock_items",
		Help: "Inventory items at or below the low stock threshold at the last sweep.",
	})
	reg.MustRegister(duration, runs, lowStock)
	return &JobMetrics{duration: duration, runs: runs, lowStock: lowStock}
}

// ObserveRun records one job execution.
func (j *JobMetrics) ObserveRun(job string, elapsed time.Duration, err error) {
	if j == nil || j.runs == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	j.duration.WithLabelValues(normalizeLabel(job)).Observe(elapsed.Seconds())
	j.runs.WithLabelValues(normalizeLabel(job), outcome).Inc()
}

// SetLowStock publishes the number of items found below threshold.
func (j *JobMetrics) SetLowStock(count int) {
	if j == nil || j.lowStock == nil {
		return
	}
	j.lowStock.Set(float64(count))
}
