package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeAccepted  = "accepted"
	OutcomeRejected  = "rejected"
)

type Metrics struct {
	registry *prometheus.Registry

	jobsTotal   *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
	uploads     *prometheus.CounterVec
	jobsRunning prometheus.Gauge
}

// New registers the collectors on a registry of its own so that several
// apps in one process (tests) do not collide.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		jobsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stem_splitter_jobs_total",
				Help: "Separation jobs by model and outcome",
			},
			[]string{"model", "outcome"},
		),
		jobDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stem_splitter_job_duration_seconds",
				Help:    "Wall time of separation jobs by model",
				Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200, 2400},
			},
			[]string{"model"},
		),
		uploads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stem_splitter_uploads_total",
				Help: "Uploaded files by outcome",
			},
			[]string{"outcome"},
		),
		jobsRunning: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "stem_splitter_jobs_running",
				Help: "Separation jobs currently running",
			},
		),
	}
}

func (m *Metrics) JobStarted() {
	m.jobsRunning.Inc()
}

func (m *Metrics) JobFinished(model string, outcome string, duration time.Duration) {
	m.jobsRunning.Dec()
	m.jobsTotal.WithLabelValues(model, outcome).Inc()
	m.jobDuration.WithLabelValues(model).Observe(duration.Seconds())
}

func (m *Metrics) UploadReceived(outcome string) {
	m.uploads.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
