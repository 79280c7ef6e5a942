// Package metrics defines Prometheus metrics for the import pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Import run metrics
	ImportRunsTotal   *prometheus.CounterVec
	ImportRunDuration prometheus.Histogram
	RecordsTotal      *prometheus.CounterVec
	RecordErrorsTotal prometheus.Counter
	PublishedTotal    prometheus.Counter

	// Download metrics
	DownloadsTotal *prometheus.CounterVec
	DownloadBytes  prometheus.Counter
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	return &Metrics{
		ImportRunsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "moodle_import_runs_total",
				Help: "Total number of import runs by outcome",
			},
			[]string{"outcome"}, // outcome: success, validation_error, error
		),

		ImportRunDuration: promauto.With(registry).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "moodle_import_run_duration_seconds",
				Help:    "Import run duration in seconds",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		),

		RecordsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "moodle_import_records_total",
				Help: "Total number of records processed by resource type and status",
			},
			[]string{"resource_type", "status"}, // status: new, edit
		),

		RecordErrorsTotal: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "moodle_import_record_errors_total",
				Help: "Total number of per-record import failures",
			},
		),

		PublishedTotal: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "moodle_import_published_total",
				Help: "Total number of records published",
			},
		),

		DownloadsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "moodle_import_downloads_total",
				Help: "Total number of file downloads by status",
			},
			[]string{"status"}, // status: success, error
		),

		DownloadBytes: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "moodle_import_download_bytes_total",
				Help: "Total number of bytes downloaded",
			},
		),
	}
}

// Summarize gathers all metric families and reduces each to a single
// number: counters and gauges are summed across label combinations,
// histograms report their observation count.
func Summarize(gatherer prometheus.Gatherer) (map[string]float64, error) {
	families, err := gatherer.Gather()
	if err != nil {
		return nil, err
	}
	totals := make(map[string]float64, len(families))
	for _, family := range families {
		var sum float64
		for _, metric := range family.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				sum += metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				sum += metric.GetGauge().GetValue()
			case metric.GetHistogram() != nil:
				sum += float64(metric.GetHistogram().GetSampleCount())
			}
		}
		totals[family.GetName()] = sum
	}
	return totals, nil
}
