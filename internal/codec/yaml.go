package codec

import (
	"fmt"
	"io"

	"pipenet/internal/domain"

	"gopkg.in/yaml.v3"
)

// YAMLCodec handles YAML export
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// ContentType returns the media type of the exported document
func (c *YAMLCodec) ContentType() string {
	return "application/yaml"
}

// Parse reads back a design run exported as YAML
func (c *YAMLCodec) Parse(r io.Reader) (*domain.DesignRun, error) {
	var run domain.DesignRun
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&run); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &run, nil
}

// Export writes the run as YAML
func (c *YAMLCodec) Export(run *domain.DesignRun, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(run); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return nil
}
