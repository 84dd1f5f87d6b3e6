package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dd0wney/anchorlink/pkg/codec"
	"github.com/dd0wney/anchorlink/pkg/config"
	"github.com/dd0wney/anchorlink/pkg/integrity"
	"github.com/dd0wney/anchorlink/pkg/logging"
	"github.com/dd0wney/anchorlink/pkg/metrics"
	"github.com/dd0wney/anchorlink/pkg/sink"
)

// Artifact is one encoded output file.
type Artifact struct {
	Name     string
	Data     []byte
	Location string
}

// Serialize encodes doc in format, snappy-framed when compress is set.
func Serialize(doc *codec.Document, format string, compress bool) ([]byte, error) {
	exp, err := codec.NewExporter(format, compress)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := exp.Export(doc, &buf); err != nil {
		return nil, fmt.Errorf("failed to serialize constraints: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeReport renders the run report as indented JSON.
func EncodeReport(report *integrity.Report) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	return append(data, '\n'), nil
}

// ArtifactNames returns the document and report file names for out.
// The report defaults to "<stem>.report.json" next to the document.
func ArtifactNames(out config.OutputConfig) (doc, report string) {
	doc = filepath.Base(out.Path)
	if out.Compress && !strings.HasSuffix(doc, codec.SnappyExt) {
		doc += codec.SnappyExt
	}
	report = out.Report
	if report == "" {
		stem := strings.TrimSuffix(filepath.Base(out.Path), filepath.Ext(out.Path))
		report = stem + ".report.json"
	}
	return doc, filepath.Base(report)
}

// BuildArtifacts encodes the document and the report of result.
func BuildArtifacts(result *Result, out config.OutputConfig) ([]Artifact, error) {
	docName, reportName := ArtifactNames(out)

	doc, err := Serialize(result.Document, out.Format, out.Compress)
	if err != nil {
		return nil, err
	}
	report, err := EncodeReport(result.Report)
	if err != nil {
		return nil, err
	}
	return []Artifact{
		{Name: docName, Data: doc},
		{Name: reportName, Data: report},
	}, nil
}

// Publish writes every artifact to s and fills in its location.
func Publish(ctx context.Context, s sink.Sink, artifacts []Artifact, reg *metrics.Registry, logger logging.Logger) error {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	for i := range artifacts {
		a := &artifacts[i]
		loc, err := s.Put(ctx, a.Name, a.Data)
		if reg != nil {
			reg.RecordArtifact(s.Name(), int64(len(a.Data)), err)
		}
		if err != nil {
			return fmt.Errorf("failed to publish %s: %w", a.Name, err)
		}
		a.Location = loc
		logger.Info("artifact written",
			logging.Path(loc),
			logging.Int("bytes", len(a.Data)),
			logging.String("sink", s.Name()))
	}
	return nil
}
