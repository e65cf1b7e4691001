package loader

import (
	"fmt"
	"sort"

	"pipenet/internal/domain"
	"pipenet/internal/topology"

	"github.com/paulmach/orb"
	"gopkg.in/yaml.v3"
)

// DesignYAML represents the YAML design file structure
type DesignYAML struct {
	Name          string                `yaml:"name"`
	Sources       []PointYAML           `yaml:"sources"`
	Valves        []PointYAML           `yaml:"valves"`
	Emitters      []PointYAML           `yaml:"emitters"`
	Lines         map[string][]LineYAML `yaml:"lines"`
	ElevationGrid *GridYAML             `yaml:"elevation_grid,omitempty"`
}

// PointYAML is a single point (x, y) or a row of points sharing attributes
type PointYAML struct {
	ID        string      `yaml:"id"`
	X         *float64    `yaml:"x,omitempty"`
	Y         *float64    `yaml:"y,omitempty"`
	Points    [][]float64 `yaml:"points,omitempty"`
	Demand    *float64    `yaml:"demand,omitempty"`
	Elevation *float64    `yaml:"elevation,omitempty"`
	Pressure  *float64    `yaml:"pressure,omitempty"`
}

// LineYAML is a pipe path; parts makes it a multi-part line
type LineYAML struct {
	ID     string        `yaml:"id"`
	Points [][]float64   `yaml:"points,omitempty"`
	Parts  [][][]float64 `yaml:"parts,omitempty"`
}

// GridYAML is a regular terrain grid
type GridYAML struct {
	OriginX  float64     `yaml:"origin_x"`
	OriginY  float64     `yaml:"origin_y"`
	CellSize float64     `yaml:"cell_size"`
	Rows     [][]float64 `yaml:"rows"`
}

// ParseYAML parses a design from YAML bytes
func ParseYAML(data []byte) (*Design, error) {
	var doc DesignYAML
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return convertYAMLToDesign(&doc)
}

func convertYAMLToDesign(y *DesignYAML) (*Design, error) {
	d := newDesign(y.Name)

	points := []struct {
		role  domain.NodeRole
		items []PointYAML
	}{
		{domain.NodeRoleSource, y.Sources},
		{domain.NodeRoleValve, y.Valves},
		{domain.NodeRoleEmitter, y.Emitters},
	}
	for _, group := range points {
		for i, p := range group.items {
			geom, err := p.geometry()
			if err != nil {
				d.invalid("%s %d (%s): %v", group.role, i, p.ID, err)
				continue
			}
			d.addPoint(group.role, topology.PointFeature{
				ID:        p.ID,
				Geometry:  geom,
				Demand:    deref(p.Demand),
				Elevation: p.Elevation,
				Pressure:  p.Pressure,
			})
		}
	}

	// Sorted so warnings come out in a stable order
	roles := make([]string, 0, len(y.Lines))
	for role := range y.Lines {
		roles = append(roles, role)
	}
	sort.Strings(roles)

	for _, name := range roles {
		lines := y.Lines[name]
		role, err := domain.ParseLinkRole(name)
		if err != nil {
			for range lines {
				d.invalid("lines: %v", err)
			}
			continue
		}
		for i, l := range lines {
			geom, err := l.geometry()
			if err != nil {
				d.invalid("%s line %d (%s): %v", role, i, l.ID, err)
				continue
			}
			d.Input.Lines[role] = append(d.Input.Lines[role], topology.LineFeature{ID: l.ID, Geometry: geom})
		}
	}

	if g := y.ElevationGrid; g != nil {
		if !(g.CellSize > 0) || len(g.Rows) == 0 {
			return nil, fmt.Errorf("elevation_grid: cell_size must be positive and rows non-empty")
		}
		d.Sampler = &topology.GridSampler{
			OriginX:  g.OriginX,
			OriginY:  g.OriginY,
			CellSize: g.CellSize,
			Rows:     g.Rows,
		}
	}

	return d, nil
}

func (p PointYAML) geometry() (orb.Geometry, error) {
	if len(p.Points) > 0 {
		mp := make(orb.MultiPoint, 0, len(p.Points))
		for _, c := range p.Points {
			pt, err := toPoint(c)
			if err != nil {
				return nil, err
			}
			mp = append(mp, pt)
		}
		return mp, nil
	}
	if p.X == nil || p.Y == nil {
		return nil, fmt.Errorf("missing x/y coordinates")
	}
	return orb.Point{*p.X, *p.Y}, nil
}

func (l LineYAML) geometry() (orb.Geometry, error) {
	if len(l.Parts) > 0 {
		mls := make(orb.MultiLineString, 0, len(l.Parts))
		for _, part := range l.Parts {
			ls, err := toLineString(part)
			if err != nil {
				return nil, err
			}
			mls = append(mls, ls)
		}
		return mls, nil
	}
	return toLineString(l.Points)
}

func toPoint(c []float64) (orb.Point, error) {
	if len(c) < 2 {
		return orb.Point{}, fmt.Errorf("coordinate %v needs x and y", c)
	}
	return orb.Point{c[0], c[1]}, nil
}

func toLineString(coords [][]float64) (orb.LineString, error) {
	ls := make(orb.LineString, 0, len(coords))
	for _, c := range coords {
		pt, err := toPoint(c)
		if err != nil {
			return nil, err
		}
		ls = append(ls, pt)
	}
	return ls, nil
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
