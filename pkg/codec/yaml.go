package codec

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/anchorlink/pkg/mesh"
)

// YAMLCodec handles YAML import/export
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// Export writes doc as YAML
func (c *YAMLCodec) Export(doc *Document, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)

	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return encoder.Close()
}

// ParseDocument reads a constraint document from YAML
func (c *YAMLCodec) ParseDocument(r io.Reader) (*Document, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &doc, nil
}

// ParseModel reads the mesh input tables from YAML
func (c *YAMLCodec) ParseModel(r io.Reader) (*mesh.Model, error) {
	var model mesh.Model
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&model); err != nil {
		return nil, fmt.Errorf("failed to parse YAML model: %w", err)
	}
	return &model, nil
}
