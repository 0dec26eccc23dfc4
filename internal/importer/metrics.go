package importer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Row outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Metrics bundles Prometheus collectors for import runs.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry         *prometheus.Registry
	RecordsTotal     *prometheus.CounterVec
	CreateDuration   prometheus.Histogram
	CreateFailures   *prometheus.CounterVec
	LastRunTimestamp prometheus.Gauge
	LastRunDuration  prometheus.Gauge
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	records := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "product_import_records_total",
			Help: "Rows processed by outcome.",
		},
		[]string{"outcome"},
	)
	createDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "product_import_create_duration_seconds",
			Help:    "Latency of product create calls.",
			Buckets: prometheus.DefBuckets,
		},
	)
	failures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "product_import_create_failures_total",
			Help: "Failed product creates by error kind.",
		},
		[]string{"kind"},
	)
	lastTimestamp := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "product_import_last_run_timestamp_seconds",
			Help: "Unix time the last run finished.",
		},
	)
	lastDuration := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "product_import_last_run_duration_seconds",
			Help: "Wall time of the last run.",
		},
	)

	registry.MustRegister(records, createDuration, failures, lastTimestamp, lastDuration)

	// Pre-create outcome series so all three are exported even when zero.
	for _, o := range []string{OutcomeSuccess, OutcomeSkipped, OutcomeFailed} {
		records.WithLabelValues(o)
	}

	return &Metrics{
		Registry:         registry,
		RecordsTotal:     records,
		CreateDuration:   createDuration,
		CreateFailures:   failures,
		LastRunTimestamp: lastTimestamp,
		LastRunDuration:  lastDuration,
	}
}

// IncOutcome counts one row with the given outcome.
func (m *Metrics) IncOutcome(outcome string) {
	if m == nil {
		return
	}
	m.RecordsTotal.WithLabelValues(outcome).Inc()
}

// IncFailure counts one failed create by error kind.
func (m *Metrics) IncFailure(kind string) {
	if m == nil {
		return
	}
	m.CreateFailures.WithLabelValues(kind).Inc()
}

// ObserveCreate records the latency of one create call.
func (m *Metrics) ObserveCreate(d time.Duration) {
	if m == nil {
		return
	}
	m.CreateDuration.Observe(d.Seconds())
}

// ObserveRun records completion of a run.
func (m *Metrics) ObserveRun(s Summary) {
	if m == nil {
		return
	}
	m.LastRunTimestamp.SetToCurrentTime()
	m.LastRunDuration.Set(s.Duration.Seconds())
}

// WriteTextfile writes all metrics in the text exposition format, for the
// node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.Registry)
}
