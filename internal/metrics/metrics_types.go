// Package metrics exposes Prometheus instrumentation for design runs,
// the HTTP API and the event stream.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all metrics for the application
type Registry struct {
	// HTTP Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Design Metrics
	RunsTotal          *prometheus.CounterVec
	RunDuration        *prometheus.HistogramVec
	RunsInProgress     prometheus.Gauge
	SolverIterations   prometheus.Histogram
	GeneticEvaluations prometheus.Counter
	NetworkLinks       prometheus.Histogram
	InvalidItemsTotal  prometheus.Counter
	PressureViolations prometheus.Histogram
	DesignCostTotal    *prometheus.CounterVec

	// Event Stream Metrics
	EventsPublishedTotal *prometheus.CounterVec
	SSEClients           prometheus.Gauge

	registry *prometheus.Registry
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the process-wide registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	r.initHTTPMetrics()
	r.initDesignMetrics()
	r.initEventMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
