package genetic

import (
	"cmp"
	"fmt"
	"math"
	"math/rand"
	"slices"

	"pipenet/internal/domain"
	"pipenet/internal/hydraulics"
)

const (
	DefaultPopulationSize = 50
	DefaultGenerations    = 100
	DefaultMutationRate   = 0.1
	DefaultElitism        = 2
	DefaultTournamentSize = 3

	// PenaltyWeight scales the squared pressure deficit in the fitness
	PenaltyWeight = 1000.0
)

// Optimizer searches standard-set diameters for every non-hose link that
// minimize pipe cost plus a pressure penalty
type Optimizer struct {
	solver *hydraulics.Solver
	links  []domain.LinkIndex

	populationSize int
	generations    int
	mutationRate   float64
	elitism        int
	tournamentSize int
	rng            *rand.Rand
	progress       ProgressFunc
	progressEvery  int

	evaluations int
}

// Result describes the best individual found
type Result struct {
	// Genotype indexes the catalog's standard set, one gene per optimized link
	Genotype    []int              `json:"genotype"`
	Diameters   map[string]float64 `json:"diameters"`
	BestFitness float64            `json:"best_fitness"`
	Cost        float64            `json:"cost"`
	Penalty     float64            `json:"penalty"`
	// History holds the best fitness seen up to each generation
	History     []float64 `json:"history"`
	Evaluations int       `json:"evaluations"`
	Feasible    bool      `json:"feasible"`
	Violations  int       `json:"violations"`
}

type individual struct {
	genes   []int
	fitness float64
}

// New creates an optimizer over the network of a prepared solver
func New(solver *hydraulics.Solver, opts ...Option) (*Optimizer, error) {
	if solver == nil {
		return nil, fmt.Errorf("solver is required")
	}
	o := &Optimizer{
		solver:         solver,
		populationSize: DefaultPopulationSize,
		generations:    DefaultGenerations,
		mutationRate:   DefaultMutationRate,
		elitism:        DefaultElitism,
		tournamentSize: DefaultTournamentSize,
	}
	for _, opt := range opts {
		opt(o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	o.applyDefaults()

	net := solver.Network()
	for i := range net.Links {
		if net.Links[i].Role != domain.LinkRoleHose {
			o.links = append(o.links, domain.LinkIndex(i))
		}
	}
	return o, nil
}

// Links returns the links whose diameters the search controls
func (o *Optimizer) Links() []domain.LinkIndex {
	return o.links
}

// Optimize runs the search and leaves the best genotype applied to the
// network with head losses and pressures recomputed. The solver must have
// been prepared so that flows and directions are in place.
func (o *Optimizer) Optimize() (*Result, error) {
	net := o.solver.Network()
	if net.IsEmpty() {
		return nil, domain.ErrNoData
	}

	o.evaluations = 0
	result := &Result{
		BestFitness: math.Inf(1),
		History:     make([]float64, 0, o.generations),
	}

	if len(o.links) == 0 {
		o.solver.Recompute()
		result.BestFitness, result.Cost, result.Penalty = o.score()
		o.finish(result, nil)
		return result, nil
	}

	population := o.initialPopulation()
	var best []int

	for gen := 0; gen < o.generations; gen++ {
		for i := range population {
			population[i].fitness = o.evaluate(population[i].genes)
			if population[i].fitness < result.BestFitness {
				result.BestFitness = population[i].fitness
				best = slices.Clone(population[i].genes)
			}
		}
		result.History = append(result.History, result.BestFitness)

		if o.progress != nil && ((gen+1)%o.progressEvery == 0 || gen == o.generations-1) {
			o.progress(Progress{
				Generation:  gen + 1,
				Generations: o.generations,
				BestFitness: result.BestFitness,
				Evaluations: o.evaluations,
			})
		}

		if gen < o.generations-1 {
			population = o.nextGeneration(population)
		}
	}

	if best == nil {
		// No generation ran; keep the diameters the network already has
		best = o.current()
	}
	o.apply(best)
	o.solver.Recompute()
	fitness, cost, penalty := o.score()
	if math.IsInf(result.BestFitness, 1) {
		result.BestFitness = fitness
	}
	result.Cost, result.Penalty = cost, penalty
	o.finish(result, best)
	return result, nil
}

func (o *Optimizer) finish(result *Result, best []int) {
	net := o.solver.Network()

	result.Genotype = best
	result.Diameters = make(map[string]float64, len(o.links))
	for _, li := range o.links {
		result.Diameters[net.Links[li].ID] = net.Links[li].Diameter
	}
	result.Evaluations = o.evaluations
	result.Violations = o.violations()
	result.Feasible = result.Violations == 0
}

func (o *Optimizer) initialPopulation() []individual {
	options := len(o.solver.Catalog().Standard)
	population := make([]individual, o.populationSize)
	for i := range population {
		genes := make([]int, len(o.links))
		for j := range genes {
			genes[j] = o.rng.Intn(options)
		}
		population[i] = individual{genes: genes}
	}
	return population
}

func (o *Optimizer) nextGeneration(population []individual) []individual {
	ranked := slices.Clone(population)
	slices.SortStableFunc(ranked, func(a, b individual) int {
		return cmp.Compare(a.fitness, b.fitness)
	})

	next := make([]individual, 0, o.populationSize)
	for i := 0; i < min(o.elitism, len(ranked)); i++ {
		next = append(next, individual{genes: slices.Clone(ranked[i].genes)})
	}

	for len(next) < o.populationSize {
		p1 := o.tournament(ranked)
		p2 := o.tournament(ranked)
		child := o.crossover(p1.genes, p2.genes)
		o.mutate(child)
		next = append(next, individual{genes: child})
	}
	return next
}

// tournament samples k individuals with replacement and returns the fittest
func (o *Optimizer) tournament(population []individual) individual {
	best := population[o.rng.Intn(len(population))]
	for i := 1; i < o.tournamentSize; i++ {
		c := population[o.rng.Intn(len(population))]
		if c.fitness < best.fitness {
			best = c
		}
	}
	return best
}

// crossover splices p1's head onto p2's tail at a random cut
func (o *Optimizer) crossover(p1, p2 []int) []int {
	if len(p1) < 2 {
		return slices.Clone(p1)
	}
	cut := 1 + o.rng.Intn(len(p1)-1)
	child := make([]int, 0, len(p1))
	child = append(child, p1[:cut]...)
	return append(child, p2[cut:]...)
}

func (o *Optimizer) mutate(genes []int) {
	options := len(o.solver.Catalog().Standard)
	for i := range genes {
		if o.rng.Float64() < o.mutationRate {
			genes[i] = o.rng.Intn(options)
		}
	}
}

func (o *Optimizer) evaluate(genes []int) float64 {
	o.apply(genes)
	o.solver.Recompute()
	o.evaluations++
	fitness, _, _ := o.score()
	return fitness
}

func (o *Optimizer) apply(genes []int) {
	net := o.solver.Network()
	standard := o.solver.Catalog().Standard
	for i, li := range o.links {
		net.Links[li].Diameter = standard[genes[i]]
	}
}

// current returns the genotype of the diameters presently on the network
func (o *Optimizer) current() []int {
	net := o.solver.Network()
	cat := o.solver.Catalog()
	genes := make([]int, len(o.links))
	for i, li := range o.links {
		idx := cat.Index(cat.Snap(domain.LinkRoleMain, net.Links[li].Diameter))
		genes[i] = max(idx, 0)
	}
	return genes
}

// score returns fitness, pipe cost and pressure penalty of the network state
func (o *Optimizer) score() (float64, float64, float64) {
	net := o.solver.Network()
	cat := o.solver.Catalog()
	minPressure := o.solver.Params().MinPressure

	cost := 0.0
	for _, li := range o.links {
		l := &net.Links[li]
		cost += l.Length * cat.Cost(l.Diameter)
	}

	penalty := 0.0
	for i := range net.Nodes {
		n := &net.Nodes[i]
		if !n.Role.IsDemandPoint() || !net.Reachable(domain.NodeIndex(i)) {
			continue
		}
		if deficit := minPressure - n.Pressure; deficit > 0 {
			penalty += deficit * deficit
		}
	}
	penalty *= PenaltyWeight

	return cost + penalty, cost, penalty
}

func (o *Optimizer) violations() int {
	net := o.solver.Network()
	minPressure := o.solver.Params().MinPressure
	count := 0
	for i := range net.Nodes {
		n := &net.Nodes[i]
		if n.Role.IsDemandPoint() && net.Reachable(domain.NodeIndex(i)) && n.Pressure < minPressure {
			count++
		}
	}
	return count
}
