package domain

import "time"

// RunStatus is the outcome of a design run
type RunStatus string

const (
	StatusOK         RunStatus = "ok"
	StatusInfeasible RunStatus = "infeasible"
	StatusNoData     RunStatus = "no_data"
	StatusFailed     RunStatus = "failed"
)

// OptimizerKind selects the diameter optimization strategy
type OptimizerKind string

const (
	OptimizerGreedy  OptimizerKind = "greedy"
	OptimizerGenetic OptimizerKind = "genetic"
)

// ParseOptimizerKind converts a string to an optimizer kind, defaulting to greedy
func ParseOptimizerKind(s string) (OptimizerKind, error) {
	switch OptimizerKind(s) {
	case "", OptimizerGreedy:
		return OptimizerGreedy, nil
	case OptimizerGenetic:
		return OptimizerGenetic, nil
	}
	return "", &UnknownOptimizerError{Name: s}
}

// UnknownOptimizerError is returned for unsupported optimizer names
type UnknownOptimizerError struct {
	Name string
}

func (e *UnknownOptimizerError) Error() string {
	return "unknown optimizer: " + e.Name
}

// DesignRun is the stored record of one design run
type DesignRun struct {
	ID        string        `json:"id" yaml:"id"`
	Name      string        `json:"name" yaml:"name"`
	Optimizer OptimizerKind `json:"optimizer" yaml:"optimizer"`
	Status    RunStatus     `json:"status" yaml:"status"`
	Seed      int64         `json:"seed,omitempty" yaml:"seed,omitempty"`
	CreatedAt time.Time     `json:"created_at" yaml:"created_at"`
	Duration  time.Duration `json:"duration_ns" yaml:"duration_ns"`

	// Counters
	Iterations       int `json:"iterations" yaml:"iterations"`
	Evaluations      int `json:"evaluations" yaml:"evaluations"`
	Violations       int `json:"violations" yaml:"violations"`
	Unreachable      int `json:"unreachable" yaml:"unreachable"`
	InvalidItems     int `json:"invalid_items" yaml:"invalid_items"`
	SkippedMultipart int `json:"skipped_multipart" yaml:"skipped_multipart"`

	BestFitness float64  `json:"best_fitness,omitempty" yaml:"best_fitness,omitempty"`
	Warnings    []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`

	Summary  Summary   `json:"summary" yaml:"summary"`
	Snapshot *Snapshot `json:"snapshot,omitempty" yaml:"snapshot,omitempty"`
}

// RunInfo is the list entry of a stored run, without the snapshot
type RunInfo struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Optimizer OptimizerKind `json:"optimizer"`
	Status    RunStatus     `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	TotalCost float64       `json:"total_cost"`
	NodeCount int           `json:"node_count"`
	LinkCount int           `json:"link_count"`
}

// Info returns the list entry of the run
func (r *DesignRun) Info() RunInfo {
	return RunInfo{
		ID:        r.ID,
		Name:      r.Name,
		Optimizer: r.Optimizer,
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
		TotalCost: r.Summary.TotalCost,
		NodeCount: r.Summary.NodeCount,
		LinkCount: r.Summary.LinkCount,
	}
}
