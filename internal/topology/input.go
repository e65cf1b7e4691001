package topology

import (
	"fmt"

	"pipenet/internal/domain"

	"github.com/paulmach/orb"
)

// PointFeature is a role-tagged point input (source, valve or emitter).
// Geometry is an orb.Point or an orb.MultiPoint.
type PointFeature struct {
	ID        string
	Geometry  orb.Geometry
	Demand    float64  // m³/h, zero when absent
	Elevation *float64 // overrides the sampler
	Pressure  *float64 // supply pressure, sources only
}

// LineFeature is a candidate pipe path.
// Geometry is an orb.LineString or a single-part orb.MultiLineString.
type LineFeature struct {
	ID       string
	Geometry orb.Geometry
}

// Input collects every feature of one design
type Input struct {
	Sources  []PointFeature
	Valves   []PointFeature
	Emitters []PointFeature
	Lines    map[domain.LinkRole][]LineFeature
}

// Empty reports whether the input has no features at all
func (in *Input) Empty() bool {
	if len(in.Sources)+len(in.Valves)+len(in.Emitters) > 0 {
		return false
	}
	for _, lines := range in.Lines {
		if len(lines) > 0 {
			return false
		}
	}
	return true
}

// Report describes what the builder produced and what it rejected
type Report struct {
	Nodes            int      `json:"nodes"`
	Junctions        int      `json:"junctions"`
	Links            int      `json:"links"`
	InvalidItems     int      `json:"invalid_items"`
	SkippedMultipart int      `json:"skipped_multipart"`
	EmptyLines       int      `json:"empty_lines"`
	Warnings         []string `json:"warnings,omitempty"`
}

func (r *Report) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *Report) invalid(format string, args ...any) {
	r.InvalidItems++
	r.warn(format, args...)
}
