package topology

import (
	"math"

	"github.com/paulmach/orb"
)

// Sampler provides terrain elevation at a position
type Sampler interface {
	Sample(p orb.Point) (float64, bool)
}

// SamplerFunc adapts a function to the Sampler interface
type SamplerFunc func(p orb.Point) (float64, bool)

// Sample calls f(p)
func (f SamplerFunc) Sample(p orb.Point) (float64, bool) {
	return f(p)
}

// ConstantSampler returns the same elevation everywhere
type ConstantSampler float64

// Sample returns the constant elevation
func (c ConstantSampler) Sample(orb.Point) (float64, bool) {
	return float64(c), true
}

// GridSampler interpolates a regular elevation grid.
// Rows[r][c] is the elevation at (OriginX + c*CellSize, OriginY + r*CellSize).
type GridSampler struct {
	OriginX  float64     `json:"origin_x" yaml:"origin_x"`
	OriginY  float64     `json:"origin_y" yaml:"origin_y"`
	CellSize float64     `json:"cell_size" yaml:"cell_size"`
	Rows     [][]float64 `json:"rows" yaml:"rows"`
}

// Sample interpolates bilinearly; positions outside the grid are not sampled
func (g *GridSampler) Sample(p orb.Point) (float64, bool) {
	if g == nil || !(g.CellSize > 0) || len(g.Rows) == 0 {
		return 0, false
	}

	fy := (p.Y() - g.OriginY) / g.CellSize
	if fy < 0 || fy > float64(len(g.Rows)-1) {
		return 0, false
	}
	r0 := int(math.Floor(fy))
	r1 := min(r0+1, len(g.Rows)-1)

	cols := min(len(g.Rows[r0]), len(g.Rows[r1]))
	if cols == 0 {
		return 0, false
	}
	fx := (p.X() - g.OriginX) / g.CellSize
	if fx < 0 || fx > float64(cols-1) {
		return 0, false
	}
	c0 := int(math.Floor(fx))
	c1 := min(c0+1, cols-1)

	tx := fx - float64(c0)
	ty := fy - float64(r0)

	bottom := g.Rows[r0][c0]*(1-tx) + g.Rows[r0][c1]*tx
	top := g.Rows[r1][c0]*(1-tx) + g.Rows[r1][c1]*tx
	return bottom*(1-ty) + top*ty, true
}
