package topology

import (
	"math"
	"strings"
	"testing"

	"pipenet/internal/domain"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func build(t *testing.T, in Input, opts ...Option) (*domain.Network, *Report) {
	t.Helper()
	net, report, err := NewBuilder(opts...).Build(in)
	require.NoError(t, err)
	return net, report
}

func TestBuildSingleLine(t *testing.T) {
	net, report := build(t, Input{
		Sources:  []PointFeature{{ID: "s", Geometry: orb.Point{0, 0}}},
		Emitters: []PointFeature{{ID: "e", Geometry: orb.Point{10, 0}, Demand: 2}},
		Lines: map[domain.LinkRole][]LineFeature{
			domain.LinkRoleLateral: {{ID: "l1", Geometry: orb.LineString{{0, 0}, {10, 0}}}},
		},
	})

	assert.Len(t, net.Nodes, 2)
	assert.Zero(t, report.Junctions)
	require.Len(t, net.Links, 1)

	l := net.Links[0]
	assert.Equal(t, "lateral_l1_0", l.ID)
	assert.Equal(t, domain.LinkRoleLateral, l.Role)
	assert.InDelta(t, 10.0, l.Length, 1e-9)

	s, ok := net.NodeByID("source_s")
	require.True(t, ok)
	e, ok := net.NodeByID("emitter_e")
	require.True(t, ok)
	assert.Equal(t, s, l.Start)
	assert.Equal(t, e, l.End)
	assert.Equal(t, 2.0, net.Node(e).BaseDemand)
	assert.Equal(t, []domain.NodeIndex{s}, net.Sources)
}

func TestBuildSynthesizesJunctions(t *testing.T) {
	net, report := build(t, Input{
		Sources:  []PointFeature{{ID: "s", Geometry: orb.Point{0, 0}}},
		Emitters: []PointFeature{{ID: "e", Geometry: orb.Point{10, 10}}},
		Lines: map[domain.LinkRole][]LineFeature{
			domain.LinkRoleMain:    {{ID: "m", Geometry: orb.LineString{{0, 0}, {10, 0}}}},
			domain.LinkRoleLateral: {{ID: "l", Geometry: orb.LineString{{10, 0.001}, {10, 10}}}},
		},
	})

	// Laterals are collected before mains, so the lateral endpoint names the junction
	assert.Equal(t, 1, report.Junctions)
	j, ok := net.NodeByID("junc_10.000_0.001")
	require.True(t, ok)
	assert.Equal(t, domain.NodeRoleJunction, net.Node(j).Role)

	_, ok = net.LinkByID("main_m_0")
	assert.True(t, ok)
	_, ok = net.LinkByID("lateral_l_0")
	assert.True(t, ok)
	assert.Len(t, net.Node(j).ConnectedLinks, 2)
}

func TestBuildJunctionFirstCandidateWinsAcrossRoles(t *testing.T) {
	net, report := build(t, Input{
		Sources: []PointFeature{{ID: "s", Geometry: orb.Point{0, 0}}},
		Lines: map[domain.LinkRole][]LineFeature{
			domain.LinkRoleMain: {{ID: "m", Geometry: orb.LineString{{0, 0}, {5.001, 0}}}},
			domain.LinkRoleHose: {{ID: "h", Geometry: orb.LineString{{5.004, 0}, {5.004, 8}}}},
		},
	})

	assert.Equal(t, 2, report.Junctions)
	j, ok := net.NodeByID("junc_5.004_0.000")
	require.True(t, ok)
	_, ok = net.NodeByID("junc_5.001_0.000")
	assert.False(t, ok)
	assert.Equal(t, orb.Point{5.004, 0}, net.Node(j).Position)

	m, ok := net.LinkByID("main_m_0")
	require.True(t, ok)
	assert.Equal(t, j, net.Link(m).End)
	h, ok := net.LinkByID("hose_h_0")
	require.True(t, ok)
	assert.Equal(t, j, net.Link(h).Start)
}

func TestBuildCoincidentNodesKeepChain(t *testing.T) {
	net, report := build(t, Input{
		Sources:  []PointFeature{{ID: "s", Geometry: orb.Point{0, 0}}},
		Emitters: []PointFeature{{ID: "a", Geometry: orb.Point{10, 0}}, {ID: "b", Geometry: orb.Point{10, 0}}},
		Lines: map[domain.LinkRole][]LineFeature{
			domain.LinkRoleMain: {{ID: "m", Geometry: orb.LineString{{0, 0}, {20, 0}}}},
		},
	})

	assert.Zero(t, report.InvalidItems)
	require.Len(t, net.Links, 2)

	a, _ := net.NodeByID("emitter_a")
	b, _ := net.NodeByID("emitter_b")
	first, ok := net.LinkByID("main_m_0")
	require.True(t, ok)
	second, ok := net.LinkByID("main_m_1")
	require.True(t, ok)
	assert.Equal(t, a, net.Link(first).End)
	assert.Equal(t, a, net.Link(second).Start)
	assert.Equal(t, "junc_20.000_0.000", net.Node(net.Link(second).End).ID)

	// The far end of the line stays reachable past the shared position
	assert.Empty(t, net.Node(b).ConnectedLinks)
	require.NotEmpty(t, report.Warnings)
	var found bool
	for _, w := range report.Warnings {
		if strings.Contains(w, "emitter_b") && strings.Contains(w, "emitter_a") {
			found = true
		}
	}
	assert.True(t, found, "warnings: %v", report.Warnings)
}

func TestBuildSplitsLineAtIntermediateNodes(t *testing.T) {
	net, _ := build(t, Input{
		Sources: []PointFeature{{ID: "s", Geometry: orb.Point{0, 0}}},
		Valves:  []PointFeature{{ID: "v", Geometry: orb.Point{10, 0.05}}},
		Lines: map[domain.LinkRole][]LineFeature{
			domain.LinkRoleMain: {{ID: "m", Geometry: orb.LineString{{0, 0}, {20, 0}}}},
		},
	})

	require.Len(t, net.Links, 2)
	first, ok := net.LinkByID("main_m_0")
	require.True(t, ok)
	second, ok := net.LinkByID("main_m_1")
	require.True(t, ok)

	v, _ := net.NodeByID("valve_v")
	assert.Equal(t, v, net.Link(first).End)
	assert.Equal(t, v, net.Link(second).Start)
	assert.Equal(t, "junc_20.000_0.000", net.Node(net.Link(second).End).ID)

	// Links are chords between node positions
	assert.Equal(t, orb.LineString{{0, 0}, {10, 0.05}}, net.Link(first).Geometry)
}

func TestBuildStraightensCurvedPaths(t *testing.T) {
	net, _ := build(t, Input{
		Sources:  []PointFeature{{ID: "s", Geometry: orb.Point{0, 0}}},
		Emitters: []PointFeature{{ID: "e", Geometry: orb.Point{10, 0}}},
		Lines: map[domain.LinkRole][]LineFeature{
			domain.LinkRoleLateral: {{ID: "l", Geometry: orb.LineString{{0, 0}, {5, 5}, {10, 0}}}},
		},
	})

	require.Len(t, net.Links, 1)
	assert.InDelta(t, 10.0, net.Links[0].Length, 1e-9)
}

func TestBuildDeduplicatesEndpoints(t *testing.T) {
	t.Run("same quantization cell", func(t *testing.T) {
		_, report := build(t, Input{
			Lines: map[domain.LinkRole][]LineFeature{
				domain.LinkRoleMain:    {{ID: "a", Geometry: orb.LineString{{0, 0}, {5, 5}}}},
				domain.LinkRoleLateral: {{ID: "b", Geometry: orb.LineString{{5.001, 5.001}, {9, 9}}}},
			},
		})
		assert.Equal(t, 3, report.Junctions)
	})

	t.Run("straddling cells merge through tolerance", func(t *testing.T) {
		_, report := build(t, Input{
			Lines: map[domain.LinkRole][]LineFeature{
				domain.LinkRoleMain:    {{ID: "a", Geometry: orb.LineString{{0, 0}, {5.004, 0}}}},
				domain.LinkRoleLateral: {{ID: "b", Geometry: orb.LineString{{5.006, 0}, {5.006, 9}}}},
			},
		})
		assert.Equal(t, 3, report.Junctions)
	})

	t.Run("coarse precision groups distant endpoints", func(t *testing.T) {
		_, report := build(t, Input{
			Lines: map[domain.LinkRole][]LineFeature{
				domain.LinkRoleMain:    {{ID: "a", Geometry: orb.LineString{{0, 0}, {10.2, 0}}}},
				domain.LinkRoleLateral: {{ID: "b", Geometry: orb.LineString{{9.9, 0}, {9.9, 9}}}},
			},
		}, WithPrecision(0))
		// 10.2 and 9.9 both round to 10; the second endpoint gets no node
		assert.Equal(t, 3, report.Junctions)
	})
}

func TestBuildEmitterDemand(t *testing.T) {
	net, report := build(t, Input{
		Emitters: []PointFeature{
			{ID: "a", Geometry: orb.Point{0, 0}},
			{ID: "b", Geometry: orb.Point{1, 0}, Demand: -3},
			{ID: "c", Geometry: orb.Point{2, 0}, Demand: 0.5},
		},
		Valves: []PointFeature{{ID: "v", Geometry: orb.Point{3, 0}}},
	}, WithDefaultEmitterFlow(0.2))

	demand := func(id string) float64 {
		idx, ok := net.NodeByID(id)
		require.True(t, ok)
		return net.Node(idx).BaseDemand
	}

	assert.Equal(t, 0.2, demand("emitter_a"))
	assert.Equal(t, 0.2, demand("emitter_b"))
	assert.Equal(t, 0.5, demand("emitter_c"))
	assert.Zero(t, demand("valve_v"))
	assert.Equal(t, 1, report.InvalidItems)
}

func TestBuildMultiPointFeatures(t *testing.T) {
	net, _ := build(t, Input{
		Emitters: []PointFeature{{ID: "row", Geometry: orb.MultiPoint{{0, 0}, {1, 0}}}},
	})

	_, ok := net.NodeByID("emitter_row_0")
	assert.True(t, ok)
	_, ok = net.NodeByID("emitter_row_1")
	assert.True(t, ok)
}

func TestBuildMultipartLines(t *testing.T) {
	net, report := build(t, Input{
		Sources:  []PointFeature{{ID: "s", Geometry: orb.Point{0, 0}}},
		Emitters: []PointFeature{{ID: "e", Geometry: orb.Point{10, 0}}},
		Lines: map[domain.LinkRole][]LineFeature{
			domain.LinkRoleMain: {
				{ID: "multi", Geometry: orb.MultiLineString{{{0, 0}, {5, 0}}, {{5, 0}, {10, 0}}}},
			},
			domain.LinkRoleLateral: {
				{ID: "single", Geometry: orb.MultiLineString{{{0, 0}, {10, 0}}}},
			},
		},
	})

	assert.Equal(t, 1, report.SkippedMultipart)
	assert.Zero(t, report.Junctions)
	require.Len(t, net.Links, 1)
	assert.Equal(t, "lateral_single_0", net.Links[0].ID)
}

func TestBuildInvalidItems(t *testing.T) {
	net, report := build(t, Input{
		Sources: []PointFeature{
			{ID: "nan", Geometry: orb.Point{math.NaN(), 0}},
			{ID: "line", Geometry: orb.LineString{{0, 0}, {1, 1}}},
		},
		Lines: map[domain.LinkRole][]LineFeature{
			domain.LinkRoleMain: {
				{ID: "short", Geometry: orb.LineString{{0, 0}}},
				{ID: "zero", Geometry: orb.LineString{{1, 1}, {1, 1}}},
				{ID: "point", Geometry: orb.Point{1, 1}},
			},
			domain.LinkRole("canal"): {{ID: "x", Geometry: orb.LineString{{0, 0}, {1, 0}}}},
		},
	})

	assert.True(t, net.IsEmpty())
	assert.Equal(t, 6, report.InvalidItems)
	assert.Len(t, report.Warnings, 6)
}

func TestBuildElevation(t *testing.T) {
	sampler := SamplerFunc(func(p orb.Point) (float64, bool) {
		if p.X() > 50 {
			return 0, false
		}
		return 100 + p.X(), true
	})

	net, _ := build(t, Input{
		Sources: []PointFeature{{ID: "s", Geometry: orb.Point{0, 0}, Elevation: ptr(7), Pressure: ptr(25)}},
		Valves:  []PointFeature{{ID: "v", Geometry: orb.Point{10, 0}}},
		Lines: map[domain.LinkRole][]LineFeature{
			domain.LinkRoleMain: {{ID: "m", Geometry: orb.LineString{{0, 0}, {60, 0}}}},
		},
	}, WithSampler(sampler))

	s, _ := net.NodeByID("source_s")
	assert.Equal(t, 7.0, net.Node(s).Elevation)
	require.NotNil(t, net.Node(s).SupplyPressure)
	assert.Equal(t, 25.0, *net.Node(s).SupplyPressure)

	v, _ := net.NodeByID("valve_v")
	assert.Equal(t, 110.0, net.Node(v).Elevation)
	assert.Nil(t, net.Node(v).SupplyPressure)

	j, ok := net.NodeByID("junc_60.000_0.000")
	require.True(t, ok)
	assert.Zero(t, net.Node(j).Elevation)
}

func TestBuildEmptyInput(t *testing.T) {
	net, report := build(t, Input{})
	assert.True(t, net.IsEmpty())
	assert.Zero(t, report.InvalidItems)
	assert.True(t, (&Input{}).Empty())
}

func TestBuildRejectsBadSettings(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"zero tolerance", WithTolerance(0)},
		{"negative tolerance", WithTolerance(-1)},
		{"negative precision", WithPrecision(-1)},
		{"negative emitter flow", WithDefaultEmitterFlow(-0.1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := NewBuilder(tt.opt).Build(Input{})
			assert.Error(t, err)
		})
	}
}

func TestLocate(t *testing.T) {
	ls := orb.LineString{{0, 0}, {10, 0}, {10, 10}}

	tests := []struct {
		name string
		p    orb.Point
		want float64
	}{
		{"start", orb.Point{0, 0}, 0},
		{"first segment", orb.Point{4, 0.05}, 4},
		{"corner", orb.Point{10, 0}, 10},
		{"second segment", orb.Point{10.02, 7}, 17},
		{"before start clamps", orb.Point{-3, 0}, 0},
		{"past end clamps", orb.Point{10, 15}, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, locate(ls, tt.p), 1e-9)
		})
	}
}
