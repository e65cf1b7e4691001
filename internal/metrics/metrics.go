package metrics

import (
	"time"
)

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RunStarted marks a design run as in progress
func (r *Registry) RunStarted() {
	r.RunsInProgress.Inc()
}

// RunOutcome carries the figures recorded when a run finishes
type RunOutcome struct {
	Optimizer    string
	Status       string
	Duration     time.Duration
	Iterations   int
	Evaluations  int
	Links        int
	InvalidItems int
	Violations   int
	Cost         float64
}

// RunFinished records a finished run, successful or not
func (r *Registry) RunFinished(o RunOutcome) {
	r.RunsInProgress.Dec()
	r.RunsTotal.WithLabelValues(o.Optimizer, o.Status).Inc()
	r.RunDuration.WithLabelValues(o.Optimizer).Observe(o.Duration.Seconds())
	r.InvalidItemsTotal.Add(float64(o.InvalidItems))

	if o.Links == 0 {
		return
	}
	r.SolverIterations.Observe(float64(o.Iterations))
	r.GeneticEvaluations.Add(float64(o.Evaluations))
	r.NetworkLinks.Observe(float64(o.Links))
	r.PressureViolations.Observe(float64(o.Violations))
	r.DesignCostTotal.WithLabelValues(o.Optimizer).Add(o.Cost)
}

// RecordEvent counts a published event
func (r *Registry) RecordEvent(eventType string) {
	r.EventsPublishedTotal.WithLabelValues(eventType).Inc()
}

// SetSSEClients sets the number of connected event stream clients
func (r *Registry) SetSSEClients(n int) {
	r.SSEClients.Set(float64(n))
}
