package codec

import (
	"fmt"
	"io"

	"pipenet/internal/domain"

	"github.com/paulmach/orb/geojson"
)

// GeoJSONCodec exports the solved network as a FeatureCollection: links
// as LineStrings carrying their sizing results, nodes as Points
type GeoJSONCodec struct{}

// NewGeoJSONCodec creates a new GeoJSON codec
func NewGeoJSONCodec() *GeoJSONCodec {
	return &GeoJSONCodec{}
}

// Format returns the codec format identifier
func (c *GeoJSONCodec) Format() string {
	return "geojson"
}

// ContentType returns the media type of the exported document
func (c *GeoJSONCodec) ContentType() string {
	return "application/geo+json"
}

// Export writes the run's snapshot as GeoJSON
func (c *GeoJSONCodec) Export(run *domain.DesignRun, w io.Writer) error {
	data, err := c.FeatureCollection(run).MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode GeoJSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write GeoJSON: %w", err)
	}
	return nil
}

// FeatureCollection converts the run into GeoJSON features, links first
func (c *GeoJSONCodec) FeatureCollection(run *domain.DesignRun) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.ExtraMembers = geojson.Properties{
		"name":       run.Name,
		"run_id":     run.ID,
		"status":     string(run.Status),
		"optimizer":  string(run.Optimizer),
		"total_cost": run.Summary.TotalCost,
	}

	if run.Snapshot == nil {
		return fc
	}

	for _, l := range run.Snapshot.Links {
		f := geojson.NewFeature(l.Geometry)
		f.ID = l.ID
		f.Properties = geojson.Properties{
			"kind":      "link",
			"role":      string(l.Role),
			"start":     l.Start,
			"end":       l.End,
			"directed":  l.Directed,
			"diameter":  l.Diameter,
			"flow":      l.Flow,
			"head_loss": l.HeadLoss,
			"velocity":  l.Velocity,
			"length":    l.Length,
		}
		fc.Append(f)
	}

	for _, n := range run.Snapshot.Nodes {
		f := geojson.NewFeature(n.Position)
		f.ID = n.ID
		f.Properties = geojson.Properties{
			"kind":      "node",
			"role":      string(n.Role),
			"elevation": n.Elevation,
			"demand":    n.Demand,
			"pressure":  n.Pressure,
			"reachable": n.Reachable,
		}
		if n.Upstream != "" {
			f.Properties["upstream"] = n.Upstream
		}
		fc.Append(f)
	}

	return fc
}
