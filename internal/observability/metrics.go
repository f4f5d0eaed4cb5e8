package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the linkage pipeline.
type Metrics struct {
	JobsTotal       *prometheus.CounterVec // labels: outcome={ok,failed}
	SightingsRead   prometheus.Counter
	RecordsWritten  prometheus.Counter
	Matches         *prometheus.CounterVec // labels: kind={unmatched,year_round_global,year_round_by_species,seasonal}
	LoadErrors      *prometheus.CounterVec // labels: sink
	PipelineRunning prometheus.Gauge

	JobDuration prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.JobsTotal,
		m.SightingsRead,
		m.RecordsWritten,
		m.Matches,
		m.LoadErrors,
		m.PipelineRunning,
		m.JobDuration,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		JobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "species_etl",
			Name:      "jobs_total",
			Help:      "Species linkage jobs by outcome.",
		}, []string{"outcome"}),
		SightingsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "species_etl",
			Name:      "sightings_read_total",
			Help:      "Sighting rows read before region filtering.",
		}),
		RecordsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "species_etl",
			Name:      "records_written_total",
			Help:      "Enriched sightings handed to the sinks.",
		}),
		Matches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "species_etl",
			Name:      "matches_total",
			Help:      "Enriched sightings by match kind.",
		}, []string{"kind"}),
		LoadErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "species_etl",
			Name:      "load_errors_total",
			Help:      "Failed sink writes, counted per attempt.",
		}, []string{"sink"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "species_etl",
			Name:      "pipeline_running",
			Help:      "1 while jobs are being processed, 0 otherwise.",
		}),
		JobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "species_etl",
			Name:      "job_duration_seconds",
			Help:      "Duration of a complete extract-link-load cycle for one species.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}
}
