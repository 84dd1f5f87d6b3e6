package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Sink stores a named artifact and returns where it went.
type Sink interface {
	Put(ctx context.Context, name string, data []byte) (string, error)
	Name() string
}

// FileSink writes artifacts under a base directory.
type FileSink struct {
	dir string
}

// NewFileSink creates a sink rooted at dir. An empty dir means the working
// directory.
func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir}
}

func (s *FileSink) Name() string { return "file" }

// Put writes data to dir/name through a temporary file and a rename, so a
// reader never sees a partial artifact.
func (s *FileSink) Put(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return path, nil
}

// Multi fans an artifact out to several sinks in order and stops at the
// first failure.
type Multi []Sink

func (m Multi) Name() string { return "multi" }

// Put returns the location reported by the first sink.
func (m Multi) Put(ctx context.Context, name string, data []byte) (string, error) {
	first := ""
	for i, s := range m {
		loc, err := s.Put(ctx, name, data)
		if err != nil {
			return "", fmt.Errorf("%s sink: %w", s.Name(), err)
		}
		if i == 0 {
			first = loc
		}
	}
	return first, nil
}
