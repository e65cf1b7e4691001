package loader

import (
	"fmt"
	"strconv"
	"strings"

	"pipenet/internal/domain"
	"pipenet/internal/topology"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// DemandKeys are the feature properties read as demand, first match wins
var DemandKeys = []string{"demand", "flow", "Vazao", "Flow", "V", "Q", "Demand"}

// ParseGeoJSON parses a design from a GeoJSON FeatureCollection. Each
// feature names its category in the "role" property.
func ParseGeoJSON(data []byte) (*Design, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse GeoJSON: %w", err)
	}

	name, _ := fc.ExtraMembers["name"].(string)
	d := newDesign(name)

	for i, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			d.invalid("feature %d: missing geometry", i)
			continue
		}
		role := f.Properties.MustString("role", "")
		id := featureID(f)

		if nodeRole, err := domain.ParseNodeRole(role); err == nil && nodeRole != domain.NodeRoleJunction {
			d.addGeoPoint(i, id, nodeRole, f)
			continue
		}
		if linkRole, err := domain.ParseLinkRole(role); err == nil {
			d.addGeoLine(i, id, linkRole, f)
			continue
		}
		d.invalid("feature %d (%s): unknown role %q", i, id, role)
	}

	return d, nil
}

func (d *Design) addGeoPoint(i int, id string, role domain.NodeRole, f *geojson.Feature) {
	switch f.Geometry.(type) {
	case orb.Point, orb.MultiPoint:
	default:
		d.invalid("feature %d (%s): %s needs a Point, got %s", i, id, role, f.Geometry.GeoJSONType())
		return
	}

	demand, err := demandOf(f.Properties)
	if err != nil {
		d.invalid("feature %d (%s): %v", i, id, err)
		return
	}
	elevation, err := optionalFloat(f.Properties, "elevation")
	if err != nil {
		d.invalid("feature %d (%s): %v", i, id, err)
		return
	}
	pressure, err := optionalFloat(f.Properties, "pressure")
	if err != nil {
		d.invalid("feature %d (%s): %v", i, id, err)
		return
	}

	d.addPoint(role, topology.PointFeature{
		ID:        id,
		Geometry:  f.Geometry,
		Demand:    demand,
		Elevation: elevation,
		Pressure:  pressure,
	})
}

func (d *Design) addGeoLine(i int, id string, role domain.LinkRole, f *geojson.Feature) {
	switch f.Geometry.(type) {
	case orb.LineString, orb.MultiLineString:
	default:
		d.invalid("feature %d (%s): %s needs a LineString, got %s", i, id, role, f.Geometry.GeoJSONType())
		return
	}
	d.Input.Lines[role] = append(d.Input.Lines[role], topology.LineFeature{ID: id, Geometry: f.Geometry})
}

// featureID prefers the feature id member, then an "id" property
func featureID(f *geojson.Feature) string {
	if f.ID != nil {
		if s := formatID(f.ID); s != "" {
			return s
		}
	}
	if v, ok := f.Properties["id"]; ok {
		return formatID(v)
	}
	return ""
}

func formatID(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(id)
	}
}

func demandOf(props geojson.Properties) (float64, error) {
	for _, key := range DemandKeys {
		v, err := optionalFloat(props, key)
		if err != nil {
			return 0, err
		}
		if v != nil {
			return *v, nil
		}
	}
	return 0, nil
}

// optionalFloat reads a numeric property that may also be a numeric string
func optionalFloat(props geojson.Properties, key string) (*float64, error) {
	raw, ok := props[key]
	if !ok || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case float64:
		return &v, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
		if err != nil {
			return nil, fmt.Errorf("property %q: %q is not a number", key, v)
		}
		return &f, nil
	default:
		return nil, fmt.Errorf("property %q: unexpected %T", key, raw)
	}
}
