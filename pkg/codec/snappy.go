package codec

import (
	"fmt"
	"io"

	"github.com/golang/snappy"
)

// SnappyExt is appended to compressed artifact names.
const SnappyExt = ".sz"

// SnappyExporter compresses another exporter's output with the snappy
// framing format.
type SnappyExporter struct {
	inner Exporter
}

// NewSnappyExporter wraps inner.
func NewSnappyExporter(inner Exporter) *SnappyExporter {
	return &SnappyExporter{inner: inner}
}

// Format returns the inner format with a "+snappy" suffix
func (c *SnappyExporter) Format() string {
	return c.inner.Format() + "+snappy"
}

// Export writes doc compressed
func (c *SnappyExporter) Export(doc *Document, w io.Writer) error {
	sw := snappy.NewBufferedWriter(w)
	if err := c.inner.Export(doc, sw); err != nil {
		sw.Close()
		return err
	}
	if err := sw.Close(); err != nil {
		return fmt.Errorf("failed to flush snappy stream: %w", err)
	}
	return nil
}

// NewSnappyReader decompresses a stream written by SnappyExporter.
func NewSnappyReader(r io.Reader) io.Reader {
	return snappy.NewReader(r)
}
