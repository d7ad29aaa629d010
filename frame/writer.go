package frame

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pithecene-io/tally/writer"
)

// ErrClosed is returned by Write after Commit or Cleanup.
var ErrClosed = errors.New("frame writer closed")

// Config configures a frame Writer.
type Config struct {
	// OutputPath is the committed file location (required).
	OutputPath string
	// StagingDir holds the staging file. Defaults to OutputPath's directory
	// so the commit rename stays on one filesystem.
	StagingDir string
	// BufferSize is the write buffer size in bytes (default 64 KiB).
	BufferSize int
}

// Writer is a DataWriter producing a msgpack frame file.
type Writer[D any] struct {
	config  Config
	staging string
	file    *os.File
	buf     *bufio.Writer
	enc     *Encoder

	records   int64
	committed bool
}

// NewWriter creates the staging file and returns a writer for it.
func NewWriter[D any](cfg Config) (*Writer[D], error) {
	if cfg.OutputPath == "" {
		return nil, errors.New("frame writer requires an output path")
	}
	if cfg.StagingDir == "" {
		cfg.StagingDir = filepath.Dir(cfg.OutputPath)
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 64 * 1024
	}

	f, err := os.CreateTemp(cfg.StagingDir, "."+filepath.Base(cfg.OutputPath)+".*.staging")
	if err != nil {
		return nil, writer.Wrap("open", err)
	}
	buf := bufio.NewWriterSize(f, cfg.BufferSize)

	return &Writer[D]{
		config:  cfg,
		staging: f.Name(),
		file:    f,
		buf:     buf,
		enc:     NewEncoder(buf),
	}, nil
}

// StagingPath returns the path records are written to before Commit.
func (w *Writer[D]) StagingPath() string {
	return w.staging
}

// Write appends one frame.
func (w *Writer[D]) Write(record D) error {
	if w.file == nil {
		return writer.Wrap(writer.OpWrite, ErrClosed)
	}
	if _, err := w.enc.Encode(record); err != nil {
		return writer.Wrap(writer.OpWrite, err)
	}
	w.records++
	return nil
}

// Commit flushes and syncs the staging file, then renames it to OutputPath.
func (w *Writer[D]) Commit() error {
	if w.file == nil {
		return writer.Wrap(writer.OpCommit, ErrClosed)
	}
	if err := w.buf.Flush(); err != nil {
		return writer.Wrap(writer.OpCommit, err)
	}
	if err := w.file.Sync(); err != nil {
		return writer.Wrap(writer.OpCommit, err)
	}
	if err := w.file.Close(); err != nil {
		return writer.Wrap(writer.OpCommit, err)
	}
	w.file = nil
	if err := os.Rename(w.staging, w.config.OutputPath); err != nil {
		return writer.Wrap(writer.OpCommit, fmt.Errorf("publish %s: %w", w.config.OutputPath, err))
	}
	w.committed = true
	return nil
}

// Cleanup closes the staging file and removes it unless committed.
// Safe to call more than once.
func (w *Writer[D]) Cleanup() error {
	var errs []error
	if w.file != nil {
		errs = append(errs, w.file.Close())
		w.file = nil
	}
	if !w.committed {
		if err := os.Remove(w.staging); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	return writer.Wrap(writer.OpCleanup, errors.Join(errs...))
}

// RecordsWritten returns the number of frames written.
func (w *Writer[D]) RecordsWritten() int64 {
	return w.records
}

// BytesWritten returns the size of the flushed file on disk.
// Buffered frames are not counted until flushed.
func (w *Writer[D]) BytesWritten() (int64, error) {
	path := w.staging
	if w.committed {
		path = w.config.OutputPath
	}
	fi, err := os.Stat(path)
	if err != nil {
		return 0, writer.Wrap(writer.OpBytes, err)
	}
	return fi.Size(), nil
}

// Flush writes buffered frames to the staging file.
func (w *Writer[D]) Flush() error {
	if w.file == nil {
		return writer.Wrap(writer.OpWrite, ErrClosed)
	}
	return writer.Wrap(writer.OpWrite, w.buf.Flush())
}

// Verify Writer implements writer.DataWriter.
var _ writer.DataWriter[any] = (*Writer[any])(nil)
