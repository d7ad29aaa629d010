// Package lode writes records into Lode datasets.
//
// A Writer stages records in memory and publishes them as one dataset
// snapshot on Commit. Records are Hive-partitioned by source, category and
// day and encoded as JSON lines. Storage failures are classified as
// *StorageError values that also satisfy writer.ErrIO.
package lode

import (
	"context"
	"encoding/json"
	"errors"
	"maps"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/tally/writer"
)

// Partition keys, in layout order.
var partitionKeys = []string{"source", "category", "day"}

// DefaultCommitTimeout bounds one Commit's dataset write.
const DefaultCommitTimeout = 30 * time.Second

// ErrClosed is returned by Write and Commit after Cleanup.
var ErrClosed = errors.New("lode writer closed")

// DeriveDay computes the partition day for t.
// Format: YYYY-MM-DD in UTC.
func DeriveDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Config holds Lode writer configuration.
type Config struct {
	// Dataset is the Lode dataset ID (required).
	Dataset string
	// Source is the partition key for the origin system (required).
	Source string
	// Category is the partition key for the logical data type (required).
	Category string
	// Day is the partition day (YYYY-MM-DD). Defaults to today in UTC.
	Day string
	// CommitTimeout bounds each Commit (default 30s).
	CommitTimeout time.Duration
}

// Validate checks required fields and fills defaults.
func (c *Config) Validate() error {
	switch {
	case c.Dataset == "":
		return errors.New("lode dataset is required")
	case c.Source == "":
		return errors.New("lode source is required")
	case c.Category == "":
		return errors.New("lode category is required")
	}
	if c.Day == "" {
		c.Day = DeriveDay(time.Now())
	}
	if c.CommitTimeout <= 0 {
		c.CommitTimeout = DefaultCommitTimeout
	}
	return nil
}

// Writer is a DataWriter publishing records to a Lode dataset.
type Writer struct {
	dataset lode.Dataset
	config  Config

	staged       []any
	stagedBytes  int64
	records      int64
	bytesFlushed int64
	closed       bool
}

// OpenDataset opens a dataset with the layout and codec Writer uses.
func OpenDataset(dataset string, factory lode.StoreFactory) (lode.Dataset, error) {
	return lode.NewDataset(
		lode.DatasetID(dataset),
		factory,
		lode.WithHiveLayout(partitionKeys...),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
}

// NewFSWriter creates a writer with filesystem storage rooted at root.
func NewFSWriter(cfg Config, root string) (*Writer, error) {
	return NewWriterWithFactory(cfg, lode.NewFSFactory(root))
}

// NewWriterWithFactory creates a writer with a custom store factory.
// Use lode.NewMemoryFactory() for testing.
func NewWriterWithFactory(cfg Config, factory lode.StoreFactory) (*Writer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ds, err := OpenDataset(cfg.Dataset, factory)
	if err != nil {
		return nil, WrapInitError(err, cfg.Dataset)
	}
	return &Writer{dataset: ds, config: cfg}, nil
}

// Dataset returns the underlying dataset.
func (w *Writer) Dataset() lode.Dataset {
	return w.dataset
}

// Write stages one record with the partition keys attached.
// The caller's map is not modified.
func (w *Writer) Write(record map[string]any) error {
	if w.closed {
		return writer.Wrap(writer.OpWrite, ErrClosed)
	}

	rec := make(map[string]any, len(record)+len(partitionKeys))
	maps.Copy(rec, record)
	rec["source"] = w.config.Source
	rec["category"] = w.config.Category
	rec["day"] = w.config.Day

	encoded, err := json.Marshal(rec)
	if err != nil {
		return writer.Wrap(writer.OpWrite, err)
	}

	w.staged = append(w.staged, rec)
	w.stagedBytes += int64(len(encoded)) + 1 // newline
	w.records++
	return nil
}

// Commit publishes staged records as one snapshot.
// On failure the records stay staged and Commit may be called again.
func (w *Writer) Commit() error {
	if w.closed {
		return writer.Wrap(writer.OpCommit, ErrClosed)
	}
	if len(w.staged) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.config.CommitTimeout)
	defer cancel()

	if _, err := w.dataset.Write(ctx, w.staged, lode.Metadata{}); err != nil {
		return WrapWriteError(err, w.config.Dataset)
	}

	w.bytesFlushed += w.stagedBytes
	w.staged = nil
	w.stagedBytes = 0
	return nil
}

// Cleanup drops uncommitted records. Safe to call more than once.
func (w *Writer) Cleanup() error {
	w.staged = nil
	w.stagedBytes = 0
	w.closed = true
	return nil
}

// RecordsWritten returns the number of records accepted by Write.
func (w *Writer) RecordsWritten() int64 {
	return w.records
}

// BytesWritten returns the encoded size of committed records.
func (w *Writer) BytesWritten() (int64, error) {
	return w.bytesFlushed, nil
}

// Pending returns the number of staged, uncommitted records.
func (w *Writer) Pending() int {
	return len(w.staged)
}

// Verify Writer implements writer.DataWriter.
var _ writer.DataWriter[map[string]any] = (*Writer)(nil)
