package topology

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// cellKey is a position quantized to a fixed number of decimals
type cellKey struct {
	x, y int64
}

func quantize(p orb.Point, scale float64) cellKey {
	return cellKey{
		x: int64(math.Round(p.X() * scale)),
		y: int64(math.Round(p.Y() * scale)),
	}
}

// locate returns the distance along ls of the point of ls closest to p
func locate(ls orb.LineString, p orb.Point) float64 {
	var (
		best     = math.Inf(1)
		along    float64
		traveled float64
	)

	for i := 0; i < len(ls)-1; i++ {
		a, b := ls[i], ls[i+1]
		dx, dy := b.X()-a.X(), b.Y()-a.Y()
		segLen := math.Hypot(dx, dy)

		t := 0.0
		if segLen > 0 {
			t = ((p.X()-a.X())*dx + (p.Y()-a.Y())*dy) / (segLen * segLen)
			t = math.Max(0, math.Min(1, t))
		}
		proj := orb.Point{a.X() + t*dx, a.Y() + t*dy}

		if d := planar.Distance(p, proj); d < best {
			best = d
			along = traveled + t*segLen
		}
		traveled += segLen
	}

	return along
}

func finitePoint(p orb.Point) bool {
	return !math.IsNaN(p.X()) && !math.IsNaN(p.Y()) &&
		!math.IsInf(p.X(), 0) && !math.IsInf(p.Y(), 0)
}

// lineOf normalizes a line geometry. It returns the path, whether the
// geometry was a multi-part line and whether it was a line at all.
func lineOf(g orb.Geometry) (ls orb.LineString, multipart bool, ok bool) {
	switch geom := g.(type) {
	case orb.LineString:
		return geom, false, true
	case orb.MultiLineString:
		if len(geom) == 1 {
			return geom[0], false, true
		}
		return nil, true, len(geom) > 1
	}
	return nil, false, false
}

// pointsOf normalizes a point geometry into its positions
func pointsOf(g orb.Geometry) ([]orb.Point, bool, bool) {
	switch geom := g.(type) {
	case orb.Point:
		return []orb.Point{geom}, false, true
	case orb.MultiPoint:
		return []orb.Point(geom), true, true
	}
	return nil, false, false
}
