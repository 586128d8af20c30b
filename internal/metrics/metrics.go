package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "torn_war_bot"

// Metrics owns the bot's Prometheus registry and collectors
type Metrics struct {
	Registry *prometheus.Registry

	APICalls            *prometheus.CounterVec
	Transitions         *prometheus.CounterVec
	NormalizationErrors *prometheus.CounterVec
	Notifications       *prometheus.CounterVec
	PersistenceErrors   *prometheus.CounterVec
	SkippedTicks        *prometheus.CounterVec
	JobDuration         *prometheus.HistogramVec
	FactionScore        *prometheus.GaugeVec
	FactionChain        *prometheus.GaugeVec
	ActiveClaims        prometheus.Gauge
	SurfacedTargets     prometheus.Gauge
}

// New creates and registers every collector on a fresh registry
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		APICalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "torn_api_calls_total",
			Help:      "Torn API requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "war_transitions_total",
			Help:      "War state transitions observed by the poller.",
		}, []string{"kind"}),
		NormalizationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "normalization_errors_total",
			Help:      "Rejected war payloads by reason.",
		}, []string{"reason"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Direct message notifications by event and outcome.",
		}, []string{"event", "outcome"}),
		PersistenceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_errors_total",
			Help:      "Failed document writes.",
		}, []string{"document"}),
		SkippedTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_skipped_ticks_total",
			Help:      "Ticks dropped because the previous run of the job was still in progress.",
		}, []string{"job"}),
		JobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Scheduled job run time.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),
		FactionScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "war_score",
			Help:      "Current ranked war score per side.",
		}, []string{"side"}),
		FactionChain: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "war_chain",
			Help:      "Current chain per side.",
		}, []string{"side"}),
		ActiveClaims: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_claims",
			Help:      "Targets currently claimed.",
		}),
		SurfacedTargets: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "surfaced_targets",
			Help:      "Attackable targets found by the last scan.",
		}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.APICalls,
		m.Transitions,
		m.NormalizationErrors,
		m.Notifications,
		m.PersistenceErrors,
		m.SkippedTicks,
		m.JobDuration,
		m.FactionScore,
		m.FactionChain,
		m.ActiveClaims,
		m.SurfacedTargets,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
