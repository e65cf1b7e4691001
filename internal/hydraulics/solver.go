package hydraulics

import (
	"fmt"

	"pipenet/internal/domain"
)

// Report summarizes one solve
type Report struct {
	Status        domain.RunStatus `json:"status"`
	Iterations    int              `json:"iterations"`
	Unreachable   int              `json:"unreachable"`
	Violations    int              `json:"violations"`
	ExcludedLinks []string         `json:"excluded_links,omitempty"`
	MaxSystemFlow float64          `json:"max_system_flow"`
	MinPressure   float64          `json:"min_pressure"`
	CriticalNode  string           `json:"critical_node,omitempty"`
	Warnings      []string         `json:"warnings,omitempty"`
}

func (r *Report) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Solver computes flows, pressures and diameters of a network in place.
// A Solver is bound to one network and is not safe for concurrent use.
type Solver struct {
	net     *domain.Network
	params  Params
	catalog domain.Catalog

	maxSystemFlow float64
	excluded      []domain.LinkIndex
}

// New creates a solver for net
func New(net *domain.Network, opts ...Option) (*Solver, error) {
	if net == nil {
		return nil, fmt.Errorf("network is required")
	}
	s := &Solver{
		net:     net,
		params:  DefaultParams(),
		catalog: domain.DefaultCatalog(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid solver params: %w", err)
	}
	if err := s.catalog.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Network returns the network the solver mutates
func (s *Solver) Network() *domain.Network { return s.net }

// Params returns the solver settings
func (s *Solver) Params() Params { return s.params }

// Catalog returns the diameter catalog
func (s *Solver) Catalog() domain.Catalog { return s.catalog }

// MaxSystemFlow returns the flow cap computed by the last AccumulateFlows
func (s *Solver) MaxSystemFlow() float64 { return s.maxSystemFlow }

// Solve runs direction resolution, flow accumulation, initial sizing,
// pressure propagation and greedy optimization
func (s *Solver) Solve() (*Report, error) {
	report, err := s.Prepare()
	if err != nil {
		return report, err
	}
	s.optimize(report)
	return report, nil
}

// Prepare runs every step of Solve except the greedy optimization
func (s *Solver) Prepare() (*Report, error) {
	report := &Report{Status: domain.StatusOK}
	if s.net.IsEmpty() {
		report.Status = domain.StatusNoData
		return report, domain.ErrNoData
	}

	s.reset()

	excluded := s.ResolveDirections()
	if len(excluded) > 0 {
		ids := make([]string, len(excluded))
		for i, li := range excluded {
			ids[i] = s.net.Links[li].ID
		}
		report.ExcludedLinks = ids
		if s.params.CyclePolicy != CycleSpanningTree {
			report.Status = domain.StatusFailed
			return report, &domain.CycleError{Links: ids}
		}
		report.warn("%d link(s) closing a loop left out of the flow model", len(ids))
	}

	for i := range s.net.Nodes {
		if !s.net.Reachable(domain.NodeIndex(i)) {
			report.Unreachable++
		}
	}
	if len(s.net.Sources) == 0 {
		report.warn("network has no source")
	}
	if report.Unreachable > 0 {
		report.warn("%d node(s) not connected to a source", report.Unreachable)
	}

	s.AccumulateFlows()
	report.MaxSystemFlow = s.maxSystemFlow
	s.InitialSizing()
	s.PropagatePressures()
	s.assess(report)

	return report, nil
}

// Recompute refreshes every head loss and velocity from the current
// diameters and flows, then propagates pressures
func (s *Solver) Recompute() {
	for i := range s.net.Links {
		s.updateLink(domain.LinkIndex(i))
	}
	s.PropagatePressures()
}

// Optimize runs the greedy critical-path upgrade on a prepared network
func (s *Solver) Optimize() *Report {
	report := &Report{Status: domain.StatusOK, MaxSystemFlow: s.maxSystemFlow}
	if s.net.IsEmpty() {
		report.Status = domain.StatusNoData
		return report
	}
	s.optimize(report)
	return report
}

func (s *Solver) reset() {
	for i := range s.net.Nodes {
		n := &s.net.Nodes[i]
		n.Pressure = 0
		n.UpstreamLink = domain.NoLink
		n.DownstreamLinks = nil
	}
	for i := range s.net.Links {
		l := &s.net.Links[i]
		l.Directed = false
		l.Diameter = 0
		l.Flow = 0
		l.HeadLoss = 0
		l.Velocity = 0
	}
	s.excluded = nil
	s.maxSystemFlow = 0
}

// ResolveDirections orients links away from the sources breadth first.
// It returns the links joining two visited nodes, which close a loop and
// are left undirected.
func (s *Solver) ResolveDirections() []domain.LinkIndex {
	net := s.net
	visited := make([]bool, len(net.Nodes))
	queue := make([]domain.NodeIndex, 0, len(net.Nodes))

	for _, src := range net.Sources {
		visited[src] = true
		net.Nodes[src].Pressure = s.sourcePressure(src)
		queue = append(queue, src)
	}

	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]

		for _, li := range net.Nodes[u].ConnectedLinks {
			v := net.Other(li, u)
			if visited[v] {
				continue
			}
			visited[v] = true

			l := &net.Links[li]
			l.Start, l.End = u, v
			l.Directed = true
			net.Nodes[u].DownstreamLinks = append(net.Nodes[u].DownstreamLinks, li)
			net.Nodes[v].UpstreamLink = li
			queue = append(queue, v)
		}
	}

	s.excluded = nil
	for i := range net.Links {
		l := &net.Links[i]
		if !l.Directed && visited[l.Start] && visited[l.End] {
			s.excluded = append(s.excluded, domain.LinkIndex(i))
		}
	}
	return s.excluded
}

// EffectiveDemand returns a node's demand with the default emitter flow
// substituted for emitters that carry none
func (s *Solver) EffectiveDemand(i domain.NodeIndex) float64 {
	n := &s.net.Nodes[i]
	if n.Role == domain.NodeRoleEmitter && n.BaseDemand <= 0 {
		return s.params.DefaultEmitterFlow
	}
	return n.BaseDemand
}

// AccumulateFlows assigns each directed link the capped demand downstream of it
func (s *Solver) AccumulateFlows() {
	largest := 0.0
	for i := range s.net.Nodes {
		largest = max(largest, s.EffectiveDemand(domain.NodeIndex(i)))
	}
	s.maxSystemFlow = largest * s.params.SimultaneousSectors

	for _, src := range s.net.Sources {
		s.potentialFlow(src)
	}
}

// potentialFlow returns the uncapped demand of the subtree rooted at i
func (s *Solver) potentialFlow(i domain.NodeIndex) float64 {
	potential := s.EffectiveDemand(i)
	for _, li := range s.net.Nodes[i].DownstreamLinks {
		l := &s.net.Links[li]
		child := s.potentialFlow(l.End)
		l.Flow = min(child, s.maxSystemFlow)
		potential += l.Flow
	}
	return potential
}

// InitialSizing picks the smallest diameter keeping velocity under the
// limit for every link carrying flow
func (s *Solver) InitialSizing() {
	for i := range s.net.Links {
		l := &s.net.Links[i]
		if l.Flow <= 0 {
			l.Diameter = s.catalog.Min(l.Role)
			l.HeadLoss = 0
			l.Velocity = 0
			continue
		}
		required := RequiredDiameter(PerSecond(l.Flow), s.params.MaxVelocity) * mmPerMetre
		l.Diameter = s.catalog.Snap(l.Role, required)
		s.updateLink(domain.LinkIndex(i))
	}
}

func (s *Solver) updateLink(li domain.LinkIndex) {
	l := &s.net.Links[li]
	q := PerSecond(l.Flow)
	d := Metres(l.Diameter)
	l.HeadLoss = HeadLoss(l.Length, q, d, s.params.Roughness)
	l.Velocity = Velocity(q, d)
}

// PropagatePressures sets node pressures breadth first from the sources
func (s *Solver) PropagatePressures() {
	net := s.net
	queue := make([]domain.NodeIndex, 0, len(net.Nodes))
	for _, src := range net.Sources {
		net.Nodes[src].Pressure = s.sourcePressure(src)
		queue = append(queue, src)
	}

	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		parent := &net.Nodes[u]

		for _, li := range parent.DownstreamLinks {
			l := &net.Links[li]
			child := &net.Nodes[l.End]
			child.Pressure = parent.Pressure - l.HeadLoss + (parent.Elevation - child.Elevation)
			queue = append(queue, l.End)
		}
	}
}

func (s *Solver) sourcePressure(i domain.NodeIndex) float64 {
	if p := s.net.Nodes[i].SupplyPressure; p != nil {
		return *p
	}
	return s.params.SourcePressure
}

// critical returns the reachable valve or emitter with the lowest pressure
func (s *Solver) critical() (domain.NodeIndex, bool) {
	best := domain.NoNode
	for i := range s.net.Nodes {
		idx := domain.NodeIndex(i)
		n := &s.net.Nodes[i]
		if !n.Role.IsDemandPoint() || !s.net.Reachable(idx) {
			continue
		}
		if best == domain.NoNode || n.Pressure < s.net.Nodes[best].Pressure {
			best = idx
		}
	}
	return best, best != domain.NoNode
}

// upgradeCandidate returns the link on path with the highest unit head loss
// that can still grow
func (s *Solver) upgradeCandidate(path []domain.LinkIndex) (domain.LinkIndex, float64, bool) {
	best := domain.NoLink
	bestScore := -1.0
	var next float64

	for _, li := range path {
		l := &s.net.Links[li]
		larger, ok := s.catalog.Next(l.Role, l.Diameter)
		if !ok {
			continue
		}
		score := l.HeadLoss / l.Length
		if l.Role == domain.LinkRoleHose {
			score *= s.params.HoseDamping
		}
		if score > bestScore {
			best, bestScore, next = li, score, larger
		}
	}
	return best, next, best != domain.NoLink
}

func (s *Solver) optimize(report *Report) {
	for report.Iterations < s.params.MaxIterations {
		ci, ok := s.critical()
		if !ok || s.net.Nodes[ci].Pressure >= s.params.MinPressure {
			break
		}

		li, next, ok := s.upgradeCandidate(s.net.UpstreamPath(ci))
		if !ok {
			report.warn("no upgradeable link upstream of %s", s.net.Nodes[ci].ID)
			break
		}

		s.net.Links[li].Diameter = next
		s.updateLink(li)
		s.PropagatePressures()
		report.Iterations++
	}

	s.assess(report)
}

// assess records the critical node and the pressure violations
func (s *Solver) assess(report *Report) {
	report.Violations = 0
	report.CriticalNode = ""
	report.MinPressure = 0

	if ci, ok := s.critical(); ok {
		report.CriticalNode = s.net.Nodes[ci].ID
		report.MinPressure = s.net.Nodes[ci].Pressure
	}
	for i := range s.net.Nodes {
		n := &s.net.Nodes[i]
		if n.Role.IsDemandPoint() && s.net.Reachable(domain.NodeIndex(i)) && n.Pressure < s.params.MinPressure {
			report.Violations++
		}
	}

	if report.Violations > 0 {
		report.Status = domain.StatusInfeasible
	} else if report.Status == domain.StatusInfeasible {
		report.Status = domain.StatusOK
	}
}
