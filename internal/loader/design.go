// Package loader decodes irrigation design files into builder input.
//
// Two formats are understood: a YAML design document and a GeoJSON
// FeatureCollection whose features carry a "role" property. Items that
// cannot be decoded are counted and skipped; only unreadable documents
// fail the whole load.
package loader

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"pipenet/internal/domain"
	"pipenet/internal/topology"
)

// Format identifies a design file encoding
type Format string

const (
	FormatYAML    Format = "yaml"
	FormatGeoJSON Format = "geojson"
)

// Design is a decoded design document ready for the topology builder
type Design struct {
	Name     string
	Input    topology.Input
	Sampler  topology.Sampler // nil when the document carries no terrain
	Invalid  int
	Warnings []string
}

func newDesign(name string) *Design {
	return &Design{
		Name:  name,
		Input: topology.Input{Lines: make(map[domain.LinkRole][]topology.LineFeature)},
	}
}

func (d *Design) invalid(format string, args ...any) {
	d.Invalid++
	d.Warnings = append(d.Warnings, fmt.Sprintf(format, args...))
}

// addPoint files a point feature under its node role
func (d *Design) addPoint(role domain.NodeRole, f topology.PointFeature) {
	switch role {
	case domain.NodeRoleSource:
		d.Input.Sources = append(d.Input.Sources, f)
	case domain.NodeRoleValve:
		d.Input.Valves = append(d.Input.Valves, f)
	case domain.NodeRoleEmitter:
		d.Input.Emitters = append(d.Input.Emitters, f)
	}
}

// FormatFromPath picks the format from a file extension
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".geojson", ".json":
		return FormatGeoJSON, nil
	default:
		return "", fmt.Errorf("unsupported design file extension %q", filepath.Ext(path))
	}
}

// FormatFromContentType picks the format from an HTTP Content-Type
func FormatFromContentType(contentType string) (Format, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("invalid content type %q: %w", contentType, err)
	}
	switch mediaType {
	case "application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml":
		return FormatYAML, nil
	case "application/geo+json", "application/json":
		return FormatGeoJSON, nil
	default:
		return "", fmt.Errorf("unsupported content type %q", mediaType)
	}
}

// Load reads a design file, choosing the decoder by extension
func Load(path string) (*Design, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	design, err := Parse(data, format)
	if err != nil {
		return nil, err
	}
	if design.Name == "" {
		design.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return design, nil
}

// Parse decodes a design document in the given format
func Parse(data []byte, format Format) (*Design, error) {
	switch format {
	case FormatYAML:
		return ParseYAML(data)
	case FormatGeoJSON:
		return ParseGeoJSON(data)
	default:
		return nil, fmt.Errorf("unsupported design format %q", format)
	}
}
