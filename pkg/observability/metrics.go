package observability

import (
	"context"
	"net/http"

	"github.com/aretw0/recalc/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "recalc"

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics holds the engine collectors.
type Metrics struct {
	registry *prometheus.Registry

	sessionsStarted *prometheus.CounterVec
	sessionsStopped *prometheus.CounterVec
	sessionDuration prometheus.Histogram
	evaluations     *prometheus.CounterVec
	evalDuration    prometheus.Histogram
	propagations    *prometheus.CounterVec
}

// NewMetrics creates the collectors on a fresh registry that also exposes
// the Go runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sessionsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Sessions started, by workbook.",
		}, []string{"workbook"}),
		sessionsStopped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_stopped_total",
			Help:      "Sessions stopped, by workbook and outcome.",
		}, []string{"workbook", "outcome"}),
		sessionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Time from session start to stop.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Expression evaluations, by outcome.",
		}, []string{"outcome"}),
		evalDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluation_duration_seconds",
			Help:      "Time spent running compiled expressions.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
		propagations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "propagations_total",
			Help:      "Variable value changes pushed to dependants, by namespace.",
		}, []string{"namespace"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.sessionsStarted,
		m.sessionsStopped,
		m.sessionDuration,
		m.evaluations,
		m.evalDuration,
		m.propagations,
	)
	return m
}

// TrackActiveSessions exposes recalc_active_sessions, read from count on
// every scrape.
func (m *Metrics) TrackActiveSessions(count func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Live sessions currently held by the engine.",
	}, func() float64 { return float64(count()) }))
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Hooks returns lifecycle hooks that record into the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSessionStart: func(_ context.Context, e *domain.SessionEvent) {
			m.sessionsStarted.WithLabelValues(e.WorkbookID).Inc()
		},
		OnSessionStop: func(_ context.Context, e *domain.SessionEvent) {
			m.sessionsStopped.WithLabelValues(e.WorkbookID, outcome(e.Err)).Inc()
			m.sessionDuration.Observe(e.Duration.Seconds())
		},
		OnEvaluation: func(_ context.Context, e *domain.EvaluationEvent) {
			m.evaluations.WithLabelValues(outcome(e.Err)).Inc()
			m.evalDuration.Observe(e.Duration.Seconds())
		},
		OnPropagation: func(_ context.Context, u *domain.VariableUpdate) {
			m.propagations.WithLabelValues(u.Namespace).Inc()
		},
	}
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}
