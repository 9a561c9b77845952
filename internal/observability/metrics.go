// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pubmed_harvester"

// Metrics holds the counters of one harvester process. Each instance owns
// its registry, so tests and repeated runs never collide on registration.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	// RequestsTotal counts E-utilities responses by endpoint and status
	// ("error" for transport failures).
	RequestsTotal *prometheus.CounterVec

	// RequestDuration observes E-utilities call latency by endpoint,
	// including retries.
	RequestDuration *prometheus.HistogramVec

	// RetriesTotal counts retry attempts by the status that triggered them.
	RetriesTotal *prometheus.CounterVec

	// BatchesTotal counts efetch batches by outcome (ok, failed).
	BatchesTotal *prometheus.CounterVec

	// RecordsParsed counts records extracted from efetch payloads.
	RecordsParsed prometheus.Counter

	// RecordsWritten counts rows written to CSV files.
	RecordsWritten prometheus.Counter

	// WindowsTotal counts sweep windows by status.
	WindowsTotal *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "eutils_requests_total",
			Help:      "Total number of E-utilities responses by endpoint and status",
		}, []string{"endpoint", "status"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "eutils_request_duration_seconds",
			Help:      "Duration of E-utilities calls in seconds, retries included",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"endpoint"}),
		RetriesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "eutils_retries_total",
			Help:      "Total number of retried E-utilities requests by triggering status",
		}, []string{"status"}),
		BatchesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Total number of efetch batches by outcome",
		}, []string{"outcome"}),
		RecordsParsed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_parsed_total",
			Help:      "Total number of records parsed from efetch payloads",
		}),
		RecordsWritten: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_written_total",
			Help:      "Total number of records written to CSV files",
		}),
		WindowsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_windows_total",
			Help:      "Total number of sweep windows by status",
		}, []string{"status"}),
	}
}

// RecordRequest records one E-utilities call. status 0 means the call
// failed without a response.
func (m *Metrics) RecordRequest(endpoint string, status int, d time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.RequestsTotal.WithLabelValues(endpoint, label).Inc()
	m.RequestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// RecordRetry records one retry. It has the signature of
// httputil.Client.OnRetry.
func (m *Metrics) RecordRetry(_ int, status int, _ error) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.RetriesTotal.WithLabelValues(label).Inc()
}

// RecordBatch records an efetch batch and the records it yielded.
func (m *Metrics) RecordBatch(ok bool, records int) {
	if m == nil {
		return
	}
	if !ok {
		m.BatchesTotal.WithLabelValues("failed").Inc()
		return
	}
	m.BatchesTotal.WithLabelValues("ok").Inc()
	m.RecordsParsed.Add(float64(records))
}

// RecordWritten records rows written to a CSV file.
func (m *Metrics) RecordWritten(records int) {
	if m == nil {
		return
	}
	m.RecordsWritten.Add(float64(records))
}

// RecordWindow records the outcome of one sweep window.
func (m *Metrics) RecordWindow(status string) {
	if m == nil {
		return
	}
	m.WindowsTotal.WithLabelValues(status).Inc()
}

// WriteTextfile writes the registry to path in the Prometheus textfile
// exposition format, for node_exporter's textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.Registry)
}
