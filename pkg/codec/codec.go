package codec

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dd0wney/anchorlink/pkg/mesh"
	"github.com/dd0wney/anchorlink/pkg/mpc"
)

// Document is the serialized output of a run.
type Document struct {
	Fingerprint string               `json:"fingerprint" yaml:"fingerprint"`
	Passes      []*mpc.ConstraintSet `json:"passes" yaml:"passes"`
}

// Pass returns the constraint set named name, or nil.
func (d *Document) Pass(name string) *mpc.ConstraintSet {
	for _, p := range d.Passes {
		if p.Pass == name {
			return p
		}
	}
	return nil
}

// Exporter writes constraint documents
type Exporter interface {
	Export(doc *Document, w io.Writer) error
	Format() string
}

// DocumentParser reads constraint documents back
type DocumentParser interface {
	ParseDocument(r io.Reader) (*Document, error)
	Format() string
}

// ModelImporter reads the mesh input tables
type ModelImporter interface {
	ParseModel(r io.Reader) (*mesh.Model, error)
	Format() string
}

// Codec is implemented by the plain text formats.
type Codec interface {
	Exporter
	DocumentParser
	ModelImporter
}

// ForFormat returns the codec for "json" or "yaml".
func ForFormat(format string) (Codec, error) {
	switch strings.ToLower(format) {
	case "json":
		return NewJSONCodec(), nil
	case "yaml", "yml":
		return NewYAMLCodec(), nil
	}
	return nil, fmt.Errorf("unsupported format %q", format)
}

// ForPath picks a codec from a file extension. A trailing ".sz" is ignored.
func ForPath(path string) (Codec, error) {
	ext := strings.TrimPrefix(filepath.Ext(strings.TrimSuffix(path, SnappyExt)), ".")
	return ForFormat(ext)
}

// NewExporter returns the exporter for format, wrapped in snappy framing when
// compress is set.
func NewExporter(format string, compress bool) (Exporter, error) {
	c, err := ForFormat(format)
	if err != nil {
		return nil, err
	}
	if compress {
		return NewSnappyExporter(c), nil
	}
	return c, nil
}
