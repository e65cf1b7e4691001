package topology

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func TestGridSampler(t *testing.T) {
	g := &GridSampler{
		OriginX:  100,
		OriginY:  200,
		CellSize: 10,
		Rows: [][]float64{
			{0, 10, 20},
			{10, 20, 30},
		},
	}

	tests := []struct {
		name   string
		p      orb.Point
		want   float64
		wantOK bool
	}{
		{"grid corner", orb.Point{100, 200}, 0, true},
		{"grid vertex", orb.Point{120, 210}, 30, true},
		{"cell center", orb.Point{105, 205}, 10, true},
		{"along bottom edge", orb.Point{115, 200}, 15, true},
		{"west of grid", orb.Point{99, 205}, 0, false},
		{"north of grid", orb.Point{105, 211}, 0, false},
		{"east of grid", orb.Point{121, 200}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := g.Sample(tt.p)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestGridSamplerDegenerate(t *testing.T) {
	var nilGrid *GridSampler
	_, ok := nilGrid.Sample(orb.Point{0, 0})
	assert.False(t, ok)

	_, ok = (&GridSampler{CellSize: 0, Rows: [][]float64{{1}}}).Sample(orb.Point{0, 0})
	assert.False(t, ok)

	z, ok := (&GridSampler{CellSize: 5, Rows: [][]float64{{42}}}).Sample(orb.Point{0, 0})
	assert.True(t, ok)
	assert.Equal(t, 42.0, z)
}

func TestConstantSampler(t *testing.T) {
	z, ok := ConstantSampler(12.5).Sample(orb.Point{3, 4})
	assert.True(t, ok)
	assert.Equal(t, 12.5, z)
}
