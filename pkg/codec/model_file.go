package codec

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/exp/mmap"

	"github.com/dd0wney/anchorlink/pkg/mesh"
)

// ErrInvalidModel wraps a model that decoded but failed validation.
var ErrInvalidModel = errors.New("invalid model")

// OpenModel memory-maps path and decodes it with the codec matching its
// extension. The model is validated before it is returned.
func OpenModel(path string) (*mesh.Model, error) {
	c, err := ForPath(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	r, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to map model file: %w", err)
	}
	defer r.Close()

	model, err := c.ParseModel(io.NewSectionReader(r, 0, int64(r.Len())))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", path, ErrInvalidModel, err)
	}
	return model, nil
}

// OpenDocument memory-maps a constraint document written by an Exporter.
// Snappy-compressed files are recognized by their extension.
func OpenDocument(path string) (*Document, error) {
	c, err := ForPath(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	r, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to map document: %w", err)
	}
	defer r.Close()

	var src io.Reader = io.NewSectionReader(r, 0, int64(r.Len()))
	if strings.HasSuffix(path, SnappyExt) {
		src = NewSnappyReader(src)
	}
	return c.ParseDocument(src)
}
