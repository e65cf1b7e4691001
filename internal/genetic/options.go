package genetic

import (
	"fmt"
	"math/rand"
	"time"
)

// Progress is reported to the progress callback between generations
type Progress struct {
	Generation  int     `json:"generation"`
	Generations int     `json:"generations"`
	BestFitness float64 `json:"best_fitness"`
	Evaluations int     `json:"evaluations"`
}

// ProgressFunc receives periodic progress. It must not touch the network.
type ProgressFunc func(Progress)

// Option configures an Optimizer
type Option func(*Optimizer)

// WithPopulationSize sets the number of individuals per generation
func WithPopulationSize(n int) Option {
	return func(o *Optimizer) { o.populationSize = n }
}

// WithGenerations sets the number of generations
func WithGenerations(n int) Option {
	return func(o *Optimizer) { o.generations = n }
}

// WithMutationRate sets the per-gene mutation probability
func WithMutationRate(rate float64) Option {
	return func(o *Optimizer) { o.mutationRate = rate }
}

// WithElitism sets how many of the fittest individuals survive unchanged
func WithElitism(n int) Option {
	return func(o *Optimizer) { o.elitism = n }
}

// WithTournamentSize sets how many individuals compete for each parent slot
func WithTournamentSize(k int) Option {
	return func(o *Optimizer) { o.tournamentSize = k }
}

// WithSeed makes the search reproducible
func WithSeed(seed int64) Option {
	return func(o *Optimizer) { o.rng = rand.New(rand.NewSource(seed)) }
}

// WithRand sets the random source used for every stochastic choice
func WithRand(r *rand.Rand) Option {
	return func(o *Optimizer) { o.rng = r }
}

// WithProgress calls fn every `every` generations and after the last one
func WithProgress(every int, fn ProgressFunc) Option {
	return func(o *Optimizer) {
		o.progressEvery = every
		o.progress = fn
	}
}

func (o *Optimizer) applyDefaults() {
	if o.rng == nil {
		o.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
}

func (o *Optimizer) validate() error {
	switch {
	case o.populationSize < 1:
		return fmt.Errorf("population size must be at least 1, got %d", o.populationSize)
	case o.generations < 0:
		return fmt.Errorf("generations must not be negative, got %d", o.generations)
	case o.mutationRate < 0 || o.mutationRate > 1:
		return fmt.Errorf("mutation rate must be within [0, 1], got %g", o.mutationRate)
	case o.elitism < 0:
		return fmt.Errorf("elitism must not be negative, got %d", o.elitism)
	case o.tournamentSize < 1:
		return fmt.Errorf("tournament size must be at least 1, got %d", o.tournamentSize)
	case o.progress != nil && o.progressEvery < 1:
		return fmt.Errorf("progress interval must be at least 1, got %d", o.progressEvery)
	}
	return nil
}
