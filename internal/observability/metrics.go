package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// export service.
type Metrics struct {
	BundlesProcessed prometheus.Counter
	ExportFailures   prometheus.Counter
	AdvisoryWarnings prometheus.Counter
	ExporterRunning  prometheus.Gauge

	// Per-artifact metrics.
	FilesWritten        *prometheus.CounterVec // label: kind={vf,mesh,manifest}
	BytesWritten        prometheus.Counter
	IsosurfacesExported prometheus.Counter

	ExportDuration prometheus.Histogram
}

// NewMetrics creates and registers all exporter metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		BundlesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "radar_etl",
			Name:      "bundles_processed_total",
			Help:      "Total grid bundles successfully exported.",
		}),
		ExportFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "radar_etl",
			Name:      "export_failures_total",
			Help:      "Total bundles whose export aborted on a fatal error.",
		}),
		AdvisoryWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "radar_etl",
			Name:      "advisory_warnings_total",
			Help:      "Total non-fatal advisories: grid soft bounds, distant scans, empty isosurfaces.",
		}),
		ExporterRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "radar_etl",
			Name:      "exporter_running",
			Help:      "1 when the service loop is active, 0 when shut down.",
		}),
		FilesWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "radar_etl",
			Name:      "files_written_total",
			Help:      "Output files written by kind.",
		}, []string{"kind"}),
		BytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "radar_etl",
			Name:      "bytes_written_total",
			Help:      "Total bytes written to the output directory.",
		}),
		IsosurfacesExported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "radar_etl",
			Name:      "isosurfaces_exported_total",
			Help:      "Total isosurface meshes exported, empty ones included.",
		}),
		ExportDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "radar_etl",
			Name:      "export_duration_seconds",
			Help:      "Duration of one complete bundle export.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}

	prometheus.MustRegister(
		m.BundlesProcessed,
		m.ExportFailures,
		m.AdvisoryWarnings,
		m.ExporterRunning,
		m.FilesWritten,
		m.BytesWritten,
		m.IsosurfacesExported,
		m.ExportDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		BundlesProcessed:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "radar_etl", Name: "bundles_processed_total"}),
		ExportFailures:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "radar_etl", Name: "export_failures_total"}),
		AdvisoryWarnings:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "radar_etl", Name: "advisory_warnings_total"}),
		ExporterRunning:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "radar_etl", Name: "exporter_running"}),
		FilesWritten:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "radar_etl", Name: "files_written_total"}, []string{"kind"}),
		BytesWritten:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "radar_etl", Name: "bytes_written_total"}),
		IsosurfacesExported: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "radar_etl", Name: "isosurfaces_exported_total"}),
		ExportDuration:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "radar_etl", Name: "export_duration_seconds"}),
	}
}
