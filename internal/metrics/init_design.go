package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initDesignMetrics() {
	r.RunsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipenet_design_runs_total",
			Help: "Total number of design runs by optimizer and outcome",
		},
		[]string{"optimizer", "status"},
	)

	r.RunDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipenet_design_run_duration_seconds",
			Help:    "Design run wall time in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 60, 300},
		},
		[]string{"optimizer"},
	)

	r.RunsInProgress = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "pipenet_design_runs_in_progress",
			Help: "Design runs currently being solved",
		},
	)

	r.SolverIterations = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pipenet_solver_iterations",
			Help:    "Greedy upgrade iterations per run",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	r.GeneticEvaluations = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "pipenet_genetic_evaluations_total",
			Help: "Total fitness evaluations performed by the genetic optimizer",
		},
	)

	r.NetworkLinks = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pipenet_network_links",
			Help:    "Links per solved network",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	r.InvalidItemsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "pipenet_invalid_items_total",
			Help: "Input features rejected while loading or building networks",
		},
	)

	r.PressureViolations = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pipenet_pressure_violations",
			Help:    "Demand points below minimum pressure per finished run",
			Buckets: []float64{0, 1, 5, 10, 50, 100},
		},
	)

	r.DesignCostTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipenet_design_cost_total",
			Help: "Accumulated pipe cost of finished designs",
		},
		[]string{"optimizer"},
	)
}

func (r *Registry) initEventMetrics() {
	r.EventsPublishedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipenet_events_published_total",
			Help: "Events published on the service bus by type",
		},
		[]string{"type"},
	)

	r.SSEClients = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "pipenet_sse_clients",
			Help: "Connected server-sent event clients",
		},
	)
}
