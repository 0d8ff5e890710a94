package observability

import (
	"context"
	"net/http"

	"github.com/aretw0/evalrepl/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics holds the Prometheus collectors of the evaluation consoles.
type Metrics struct {
	registry    *prometheus.Registry
	evaluations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	resets      prometheus.Counter
	inflight    prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on a dedicated registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "evalrepl_evaluations_total",
				Help: "Total number of evaluations by shape and outcome",
			},
			[]string{"shape", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "evalrepl_evaluation_duration_seconds",
				Help:    "Duration of evaluations",
				Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
			},
			[]string{"shape"},
		),
		resets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evalrepl_resets_total",
			Help: "Total number of environment resets",
		}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "evalrepl_evaluations_in_flight",
			Help: "Evaluations currently running",
		}),
	}
	m.registry.MustRegister(m.evaluations, m.duration, m.resets, m.inflight)
	return m
}

// Registry exposes the registry, e.g. to add process collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Hooks returns lifecycle hooks that record every evaluation and reset.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnEvaluate: func(ctx context.Context, e *domain.EvalEvent) {
			m.inflight.Inc()
		},
		OnResult: func(ctx context.Context, e *domain.EvalEvent) {
			m.inflight.Dec()
			if e.Result == nil {
				return
			}
			outcome := OutcomeOK
			if e.Result.Failed() {
				outcome = OutcomeError
			}
			shape := string(e.Result.Shape)
			m.evaluations.WithLabelValues(shape, outcome).Inc()
			m.duration.WithLabelValues(shape).Observe(e.Result.Duration.Seconds())
		},
		OnReset: func(ctx context.Context, e *domain.ResetEvent) {
			m.resets.Inc()
		},
	}
}
