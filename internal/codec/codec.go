// Package codec exports solved design runs to interchange formats.
package codec

import (
	"fmt"
	"io"
	"sort"

	"pipenet/internal/domain"
)

// Exporter interface for exporting a design run to a format
type Exporter interface {
	Export(run *domain.DesignRun, w io.Writer) error
	Format() string
	ContentType() string
}

var exporters = map[string]func() Exporter{
	"json":    func() Exporter { return NewJSONCodec() },
	"yaml":    func() Exporter { return NewYAMLCodec() },
	"geojson": func() Exporter { return NewGeoJSONCodec() },
}

// ForFormat returns the exporter registered under name
func ForFormat(name string) (Exporter, error) {
	newExporter, ok := exporters[name]
	if !ok {
		return nil, fmt.Errorf("unsupported export format %q (supported: %v)", name, Formats())
	}
	return newExporter(), nil
}

// Formats lists the supported export format names
func Formats() []string {
	names := make([]string, 0, len(exporters))
	for name := range exporters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
