package topology

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strconv"

	"pipenet/internal/domain"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

const (
	// DefaultTolerance is the snap distance in metres
	DefaultTolerance = 0.1
	// DefaultPrecision is the number of decimals used to quantize endpoints
	DefaultPrecision = 2
	// DefaultEmitterFlow is assigned to emitters without demand (m³/h)
	DefaultEmitterFlow = 0.06
)

// Builder converts role-tagged features into a pipe network
type Builder struct {
	tolerance   float64
	precision   int
	sampler     Sampler
	emitterFlow float64
}

// Option configures a Builder
type Option func(*Builder)

// WithTolerance sets the snap distance
func WithTolerance(t float64) Option {
	return func(b *Builder) { b.tolerance = t }
}

// WithPrecision sets the quantization decimals for endpoint deduplication
func WithPrecision(decimals int) Option {
	return func(b *Builder) { b.precision = decimals }
}

// WithSampler sets the elevation source for nodes without explicit elevation
func WithSampler(s Sampler) Option {
	return func(b *Builder) { b.sampler = s }
}

// WithDefaultEmitterFlow sets the demand of emitters that carry none
func WithDefaultEmitterFlow(flow float64) Option {
	return func(b *Builder) { b.emitterFlow = flow }
}

// NewBuilder creates a builder with default settings
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		tolerance:   DefaultTolerance,
		precision:   DefaultPrecision,
		emitterFlow: DefaultEmitterFlow,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build creates a new network from in. Invalid features are skipped and
// counted in the report; an error is only returned for unusable settings.
func (b *Builder) Build(in Input) (*domain.Network, *Report, error) {
	if !(b.tolerance > 0) || math.IsInf(b.tolerance, 0) {
		return nil, nil, fmt.Errorf("snap tolerance must be positive, got %g", b.tolerance)
	}
	if b.precision < 0 || b.precision > 9 {
		return nil, nil, fmt.Errorf("precision must be between 0 and 9, got %d", b.precision)
	}
	if b.emitterFlow < 0 {
		return nil, nil, fmt.Errorf("default emitter flow must not be negative, got %g", b.emitterFlow)
	}

	net := domain.NewNetwork()
	report := &Report{}

	// 1. Point features
	b.addPointNodes(net, report, in.Sources, domain.NodeRoleSource)
	b.addPointNodes(net, report, in.Valves, domain.NodeRoleValve)
	b.addPointNodes(net, report, in.Emitters, domain.NodeRoleEmitter)
	report.Nodes = len(net.Nodes)

	// 2. Line paths
	lines := b.collectLines(report, in.Lines)

	// 3. Junctions at deduplicated endpoints
	b.addJunctions(net, report, lines)

	// 4. Split lines at the nodes they pass through
	for _, line := range lines {
		b.splitLine(net, report, line)
	}

	report.Nodes = len(net.Nodes)
	report.Links = len(net.Links)
	return net, report, nil
}

type pathLine struct {
	id   string
	role domain.LinkRole
	path orb.LineString
}

func (b *Builder) addPointNodes(net *domain.Network, report *Report, features []PointFeature, role domain.NodeRole) {
	for i, f := range features {
		fid := featureID(f.ID, i)

		points, multi, ok := pointsOf(f.Geometry)
		if !ok || len(points) == 0 {
			report.invalid("%s %s: geometry is not a point", role, fid)
			continue
		}

		demand := f.Demand
		if demand < 0 || math.IsNaN(demand) || math.IsInf(demand, 0) {
			report.invalid("%s %s: invalid demand %g treated as absent", role, fid, demand)
			demand = 0
		}
		if role == domain.NodeRoleEmitter && demand == 0 {
			demand = b.emitterFlow
		}

		for j, p := range points {
			if !finitePoint(p) {
				report.invalid("%s %s: non-finite coordinates", role, fid)
				continue
			}

			id := string(role) + "_" + fid
			if multi {
				id += "_" + strconv.Itoa(j)
			}

			node := domain.Node{
				ID:         id,
				Position:   p,
				Role:       role,
				BaseDemand: demand,
				Elevation:  b.elevation(p, f.Elevation),
			}
			if role == domain.NodeRoleSource && f.Pressure != nil {
				pressure := *f.Pressure
				node.SupplyPressure = &pressure
			}

			if _, err := net.AddNode(node); err != nil {
				report.invalid("%s %s: %v", role, fid, err)
			}
		}
	}
}

func (b *Builder) collectLines(report *Report, byRole map[domain.LinkRole][]LineFeature) []pathLine {
	var lines []pathLine
	for _, role := range domain.LinkRoles {
		for i, f := range byRole[role] {
			fid := featureID(f.ID, i)

			path, multipart, ok := lineOf(f.Geometry)
			if multipart {
				report.SkippedMultipart++
				report.warn("%s %s: multi-part line skipped", role, fid)
				continue
			}
			if !ok {
				report.invalid("%s %s: geometry is not a line", role, fid)
				continue
			}
			if len(path) < 2 {
				report.invalid("%s %s: line has fewer than two points", role, fid)
				continue
			}
			if slices.ContainsFunc(path, func(p orb.Point) bool { return !finitePoint(p) }) {
				report.invalid("%s %s: non-finite coordinates", role, fid)
				continue
			}
			if !(planar.Length(path) > 0) {
				report.invalid("%s %s: line has zero length", role, fid)
				continue
			}
			lines = append(lines, pathLine{id: fid, role: role, path: path})
		}
	}

	var unknown []domain.LinkRole
	for role := range byRole {
		if !slices.Contains(domain.LinkRoles, role) {
			unknown = append(unknown, role)
		}
	}
	slices.Sort(unknown)
	for _, role := range unknown {
		report.InvalidItems += len(byRole[role])
		report.warn("%d line(s) with unknown role %q skipped", len(byRole[role]), role)
	}
	return lines
}

func (b *Builder) addJunctions(net *domain.Network, report *Report, lines []pathLine) {
	scale := math.Pow(10, float64(b.precision))

	candidates := make([]orb.Point, 0, len(net.Nodes)+2*len(lines))
	for i := range net.Nodes {
		candidates = append(candidates, net.Nodes[i].Position)
	}
	for _, line := range lines {
		candidates = append(candidates, line.path[0], line.path[len(line.path)-1])
	}

	// First candidate of each cell wins
	seen := make(map[cellKey]bool, len(candidates))
	unique := make([]orb.Point, 0, len(candidates))
	for _, p := range candidates {
		key := quantize(p, scale)
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, p)
	}

	for _, p := range unique {
		if b.covered(net, p) {
			continue
		}
		node := domain.Node{
			ID:        fmt.Sprintf("junc_%.3f_%.3f", p.X(), p.Y()),
			Position:  p,
			Role:      domain.NodeRoleJunction,
			Elevation: b.elevation(p, nil),
		}
		if _, err := net.AddNode(node); err != nil {
			report.warn("junction at (%.3f, %.3f): %v", p.X(), p.Y(), err)
			continue
		}
		report.Junctions++
	}
}

// covered reports whether a node already lies within tolerance of p
func (b *Builder) covered(net *domain.Network, p orb.Point) bool {
	tol2 := b.tolerance * b.tolerance
	for i := range net.Nodes {
		if planar.DistanceSquared(net.Nodes[i].Position, p) < tol2 {
			return true
		}
	}
	return false
}

type located struct {
	node  domain.NodeIndex
	along float64
}

func (b *Builder) splitLine(net *domain.Network, report *Report, line pathLine) {
	var onLine []located
	for i := range net.Nodes {
		p := net.Nodes[i].Position
		if planar.DistanceFrom(line.path, p) < b.tolerance {
			onLine = append(onLine, located{node: domain.NodeIndex(i), along: locate(line.path, p)})
		}
	}

	if len(onLine) < 2 {
		report.EmptyLines++
		return
	}

	// Stable sort keeps node order for ties
	slices.SortStableFunc(onLine, func(a, b located) int {
		return cmp.Compare(a.along, b.along)
	})

	// Nodes sharing a position form one connection point. The first node of
	// each group carries the chain and the others stay off this line.
	var groups [][]domain.NodeIndex
	for _, loc := range onLine {
		if n := len(groups); n > 0 && net.Nodes[groups[n-1][0]].Position == net.Nodes[loc.node].Position {
			groups[n-1] = append(groups[n-1], loc.node)
			continue
		}
		groups = append(groups, []domain.NodeIndex{loc.node})
	}

	for _, g := range groups {
		for _, extra := range g[1:] {
			report.warn("%s %s: node %s shares the position of %s and is not connected by this line",
				line.role, line.id, net.Nodes[extra].ID, net.Nodes[g[0]].ID)
		}
	}

	if len(groups) < 2 {
		report.EmptyLines++
		return
	}
	for i := 0; i < len(groups)-1; i++ {
		id := fmt.Sprintf("%s_%s_%d", line.role, line.id, i)
		if _, err := net.AddLink(id, line.role, groups[i][0], groups[i+1][0]); err != nil {
			report.invalid("%s %s: %v", line.role, line.id, err)
		}
	}
}

func (b *Builder) elevation(p orb.Point, explicit *float64) float64 {
	if explicit != nil {
		return *explicit
	}
	if b.sampler != nil {
		if z, ok := b.sampler.Sample(p); ok {
			return z
		}
	}
	return 0
}

func featureID(id string, index int) string {
	if id != "" {
		return id
	}
	return strconv.Itoa(index)
}
