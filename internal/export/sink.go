package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leapview/pkg/core"
)

// Sink opens export destinations.
type Sink interface {
	// Create opens name for writing and returns the resolved destination.
	Create(name string) (io.WriteCloser, string, error)
}

// DirSink writes exports as files under Dir. An empty Dir means the current
// working directory.
type DirSink struct {
	Dir string
}

// Create implements Sink.
func (s DirSink) Create(name string) (io.WriteCloser, string, error) {
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, "", fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(dir, filepath.Base(name))
	f, err := os.Create(path) //nolint:gosec // path is confined to the export directory
	if err != nil {
		return nil, "", fmt.Errorf("failed to create export file: %w", err)
	}
	return f, path, nil
}

// Result describes a finished export.
type Result struct {
	Destination string
	Rows        int
}

// Write encodes res with enc into a new sink entry named after table.
func Write(sink Sink, enc Encoder, table string, res *core.QueryResult) (Result, error) {
	w, dest, err := sink.Create(DefaultFileName(table, enc))
	if err != nil {
		return Result{}, err
	}
	if err := enc.Encode(w, table, res); err != nil {
		_ = w.Close()
		return Result{}, fmt.Errorf("failed to export %s: %w", table, err)
	}
	if err := w.Close(); err != nil {
		return Result{}, fmt.Errorf("failed to close export file: %w", err)
	}
	return Result{Destination: dest, Rows: len(res.Rows)}, nil
}
