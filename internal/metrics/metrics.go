// Package metrics exposes cleaning counters in Prometheus format.
//
// A nil *Metrics is valid and records nothing, so the CLI and tests can
// run the service without a registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "csvclean"

// Run outcomes.
const (
	OutcomeSuccess        = "success"
	OutcomeStructureError = "structure_error"
	OutcomeBusy           = "busy"
	OutcomeError          = "error"
)

// Metrics holds the collectors for one process.
type Metrics struct {
	registry *prometheus.Registry

	runs          *prometheus.CounterVec
	rows          *prometheus.CounterVec
	rejections    *prometheus.CounterVec
	phonesCleared prometheus.Counter
	duration      prometheus.Histogram
	inputBytes    prometheus.Histogram
	activeJobs    prometheus.Gauge
}

// New registers all collectors, plus Go runtime and process metrics, on a
// private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Cleaning runs by outcome.",
		}, []string{"outcome"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Data rows processed by result.",
		}, []string{"result"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_rows_total",
			Help:      "Rejected data rows by reason.",
		}, []string{"reason"}),
		phonesCleared: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phones_cleared_total",
			Help:      "Phone fields blanked because they were not valid numbers.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Time spent cleaning one file.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		inputBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "input_bytes",
			Help:      "Size of cleaned inputs.",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
		}),
		activeJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_jobs",
			Help:      "Cleaning jobs currently running.",
		}),
	}

	m.registry.MustRegister(
		m.runs, m.rows, m.rejections, m.phonesCleared, m.duration, m.inputBytes, m.activeJobs,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSuccess {
		m.duration.Observe(d.Seconds())
	}
}

// ObserveRows records the row counts of a successful run.
func (m *Metrics) ObserveRows(valid, invalid, phonesCleared int, reasons map[string]int) {
	if m == nil {
		return
	}
	m.rows.WithLabelValues("valid").Add(float64(valid))
	m.rows.WithLabelValues("invalid").Add(float64(invalid))
	m.phonesCleared.Add(float64(phonesCleared))
	for reason, n := range reasons {
		m.rejections.WithLabelValues(reason).Add(float64(n))
	}
}

// ObserveInput records the decoded size of an input.
func (m *Metrics) ObserveInput(bytes int) {
	if m == nil {
		return
	}
	m.inputBytes.Observe(float64(bytes))
}

// JobStarted and JobFinished track the active job gauge.
func (m *Metrics) JobStarted() {
	if m != nil {
		m.activeJobs.Inc()
	}
}

func (m *Metrics) JobFinished() {
	if m != nil {
		m.activeJobs.Dec()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
