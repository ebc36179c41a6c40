package observability

import (
	"context"
	"net/http"

	"github.com/VasyaLutiy/daqs-v5.0/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "daqs"

// Metrics holds the engine collectors.
type Metrics struct {
	registry *prometheus.Registry

	movesApplied  *prometheus.CounterVec
	movesRejected *prometheus.CounterVec
	plans         *prometheus.CounterVec
	planDuration  *prometheus.HistogramVec
	planSteps     prometheus.Histogram
	worldLoads    prometheus.Counter
	worldSize     *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them on a private
// registry, together with the Go and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		movesApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moves_applied_total",
			Help:      "Moves applied, by verb and persona.",
		}, []string{"verb", "persona"}),
		movesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moves_rejected_total",
			Help:      "Moves rejected as malformed or illegal, by verb.",
		}, []string{"verb"}),
		plans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plans_total",
			Help:      "Planner calls, by outcome.",
		}, []string{"outcome"}),
		planDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "plan_duration_seconds",
			Help:      "Wall time of planner calls.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"outcome"}),
		planSteps: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "plan_steps",
			Help:      "Length of solved plans.",
			Buckets:   prometheus.LinearBuckets(1, 2, 10),
		}),
		worldLoads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "world_loads_total",
			Help:      "Successful world (re)loads.",
		}),
		worldSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "world_records",
			Help:      "Records in the active world, by kind.",
		}, []string{"kind"}),
	}
	m.registry.MustRegister(
		m.movesApplied, m.movesRejected, m.plans, m.planDuration, m.planSteps,
		m.worldLoads, m.worldSize,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Hooks returns lifecycle hooks feeding the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnMoveApplied: func(_ context.Context, e *domain.MoveEvent) {
			m.movesApplied.WithLabelValues(e.Verb, e.Persona).Inc()
		},
		OnMoveRejected: func(_ context.Context, e *domain.MoveEvent) {
			verb := e.Verb
			if verb == "" {
				verb = "unparsed"
			}
			m.movesRejected.WithLabelValues(verb).Inc()
		},
		OnPlanFinished: func(_ context.Context, e *domain.PlanEvent) {
			outcome := string(e.Outcome)
			m.plans.WithLabelValues(outcome).Inc()
			m.planDuration.WithLabelValues(outcome).Observe(e.Duration.Seconds())
			if e.Outcome == domain.PlanSolved {
				m.planSteps.Observe(float64(e.Steps))
			}
		},
		OnWorldLoaded: func(_ context.Context, e *domain.WorldEvent) {
			m.worldLoads.Inc()
			m.worldSize.WithLabelValues("contexts").Set(float64(e.Contexts))
			m.worldSize.WithLabelValues("triggers").Set(float64(e.Triggers))
			m.worldSize.WithLabelValues("personas").Set(float64(e.Personas))
			m.worldSize.WithLabelValues("locations").Set(float64(e.Locations))
		},
	}
}
