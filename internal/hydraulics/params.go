package hydraulics

import (
	"fmt"
	"math"

	"pipenet/internal/domain"
)

// CyclePolicy selects how direction resolution treats links closing a loop
type CyclePolicy string

const (
	// CycleReject fails the solve with a *domain.CycleError
	CycleReject CyclePolicy = "reject"
	// CycleSpanningTree leaves loop-closing links undirected and reports them
	CycleSpanningTree CyclePolicy = "spanning_tree"
)

// ParseCyclePolicy converts a string to a cycle policy, defaulting to reject
func ParseCyclePolicy(s string) (CyclePolicy, error) {
	switch CyclePolicy(s) {
	case "", CycleReject:
		return CycleReject, nil
	case CycleSpanningTree:
		return CycleSpanningTree, nil
	}
	return "", fmt.Errorf("unknown cycle policy %q", s)
}

// Params holds the solver settings
type Params struct {
	MaxVelocity         float64 // m/s
	MinPressure         float64 // mca
	SourcePressure      float64 // mca
	DefaultEmitterFlow  float64 // m³/h
	SimultaneousSectors float64
	Roughness           float64 // Hazen-Williams C
	MaxIterations       int
	HoseDamping         float64
	CyclePolicy         CyclePolicy
}

// DefaultParams returns the settings used when none are given
func DefaultParams() Params {
	return Params{
		MaxVelocity:         1.5,
		MinPressure:         10,
		SourcePressure:      30,
		DefaultEmitterFlow:  0.06,
		SimultaneousSectors: 1,
		Roughness:           135,
		MaxIterations:       50,
		HoseDamping:         0.1,
		CyclePolicy:         CycleReject,
	}
}

// Validate checks the settings are physically meaningful
func (p Params) Validate() error {
	positive := []struct {
		name  string
		value float64
	}{
		{"max velocity", p.MaxVelocity},
		{"simultaneous sectors", p.SimultaneousSectors},
		{"roughness coefficient", p.Roughness},
	}
	for _, f := range positive {
		if !(f.value > 0) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%s must be positive, got %g", f.name, f.value)
		}
	}
	if p.DefaultEmitterFlow < 0 {
		return fmt.Errorf("default emitter flow must not be negative, got %g", p.DefaultEmitterFlow)
	}
	if p.HoseDamping < 0 {
		return fmt.Errorf("hose damping must not be negative, got %g", p.HoseDamping)
	}
	if p.MaxIterations < 0 {
		return fmt.Errorf("max iterations must not be negative, got %d", p.MaxIterations)
	}
	if _, err := ParseCyclePolicy(string(p.CyclePolicy)); err != nil {
		return err
	}
	return nil
}

// Option configures a Solver
type Option func(*Solver)

// WithParams replaces every setting at once
func WithParams(p Params) Option {
	return func(s *Solver) { s.params = p }
}

// WithCatalog sets the diameter catalog
func WithCatalog(c domain.Catalog) Option {
	return func(s *Solver) { s.catalog = c }
}

// WithMinPressure sets the pressure every valve and emitter must reach
func WithMinPressure(mca float64) Option {
	return func(s *Solver) { s.params.MinPressure = mca }
}

// WithSourcePressure sets the pressure of sources without their own supply pressure
func WithSourcePressure(mca float64) Option {
	return func(s *Solver) { s.params.SourcePressure = mca }
}

// WithSimultaneousSectors sets the simultaneity factor of the flow cap
func WithSimultaneousSectors(n float64) Option {
	return func(s *Solver) { s.params.SimultaneousSectors = n }
}

// WithMaxIterations bounds the greedy optimization loop
func WithMaxIterations(n int) Option {
	return func(s *Solver) { s.params.MaxIterations = n }
}

// WithCyclePolicy sets how loops found during direction resolution are handled
func WithCyclePolicy(p CyclePolicy) Option {
	return func(s *Solver) { s.params.CyclePolicy = p }
}
