package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// materialization worker.
type Metrics struct {
	UnitsProcessed *prometheus.CounterVec   // labels: index={ndvi,ndmi}, status={succeeded,skipped,failed}
	UnitDuration   *prometheus.HistogramVec // labels: index
	WorkerRunning  prometheus.Gauge

	// Collaborator metrics.
	SceneSearches    *prometheus.CounterVec // labels: outcome={hit,empty,error}
	BandReads        prometheus.Counter
	CatalogPublishes *prometheus.CounterVec // labels: result={created,exists,error}
}

// NewMetrics creates and registers all worker metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.UnitsProcessed,
		m.UnitDuration,
		m.WorkerRunning,
		m.SceneSearches,
		m.BandReads,
		m.CatalogPublishes,
	)
	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		UnitsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spectral_etl",
			Name:      "units_processed_total",
			Help:      "Materialization units processed by index kind and terminal status.",
		}, []string{"index", "status"}),
		UnitDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "spectral_etl",
			Name:      "unit_duration_seconds",
			Help:      "Duration of one materialization unit from eligibility to outcome.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"index"}),
		WorkerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "spectral_etl",
			Name:      "worker_running",
			Help:      "1 when the worker loop is active, 0 when shut down.",
		}),
		SceneSearches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spectral_etl",
			Name:      "scene_searches_total",
			Help:      "Scene searches by outcome.",
		}, []string{"outcome"}),
		BandReads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "spectral_etl",
			Name:      "band_reads_total",
			Help:      "Band rasters opened and read.",
		}),
		CatalogPublishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spectral_etl",
			Name:      "catalog_publishes_total",
			Help:      "Catalog item publications by result.",
		}, []string{"result"}),
	}
}
