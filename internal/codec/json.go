package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"pipenet/internal/domain"
)

// JSONCodec handles JSON export
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// ContentType returns the media type of the exported document
func (c *JSONCodec) ContentType() string {
	return "application/json"
}

// Parse reads back a design run exported as JSON
func (c *JSONCodec) Parse(r io.Reader) (*domain.DesignRun, error) {
	var run domain.DesignRun
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&run); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	return &run, nil
}

// Export writes the run, summary and snapshot included, as indented JSON
func (c *JSONCodec) Export(run *domain.DesignRun, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(run); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
