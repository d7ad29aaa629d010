package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	lodelib "github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/tally/frame"
	"github.com/pithecene-io/tally/instrumented"
	"github.com/pithecene-io/tally/lode"
	"github.com/pithecene-io/tally/state"
	"github.com/pithecene-io/tally/types"
	"github.com/pithecene-io/tally/writer"
)

// Sink kinds accepted by --sink.
const (
	sinkMemory = "memory"
	sinkFrames = "frames"
	sinkLode   = "lode"
)

// sinkChoice holds the resolved sink configuration.
type sinkChoice struct {
	kind         string
	output       string
	instrumented bool
	lode         lodeChoice
}

// lodeChoice holds resolved Lode storage configuration.
type lodeChoice struct {
	dataset       string
	source        string
	category      string
	day           string
	backend       string // "fs" or "s3"
	path          string // fs: directory, s3: bucket/prefix
	region        string
	endpoint      string
	pathStyle     bool
	commitTimeout time.Duration
}

func validateSinkChoice(choice sinkChoice) error {
	switch choice.kind {
	case sinkMemory:
	case sinkFrames:
		if choice.output == "" {
			return errors.New("--output is required for the frames sink")
		}
	case sinkLode:
		if err := validateLodeChoice(choice.lode); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid sink %q (must be memory, frames, or lode)", choice.kind)
	}
	if choice.instrumented && choice.kind != sinkLode {
		return fmt.Errorf("--instrumented-sink is only supported for the lode sink, got %q", choice.kind)
	}
	return nil
}

func validateLodeChoice(lc lodeChoice) error {
	if lc.dataset == "" {
		return errors.New("--lode-dataset is required for the lode sink")
	}
	switch lc.backend {
	case "fs":
		if lc.path == "" {
			return errors.New("--lode-path is required for the fs backend")
		}
	case "s3":
		if lc.path == "" {
			return errors.New("--lode-path is required for the s3 backend (format: bucket/prefix)")
		}
	default:
		return fmt.Errorf("invalid lode backend %q (must be fs or s3)", lc.backend)
	}
	return nil
}

// recordSizer returns the byte size function matching the sink's encoding.
func recordSizer(kind string) func(types.Record) int64 {
	if kind == sinkFrames {
		return func(rec types.Record) int64 {
			n, err := frame.EncodedSize(rec)
			if err != nil {
				return 0
			}
			return n
		}
	}
	return jsonLineSize
}

// jsonLineSize is the size of rec as one JSON line.
func jsonLineSize(rec types.Record) int64 {
	b, err := json.Marshal(rec)
	if err != nil {
		return 0
	}
	return int64(len(b)) + 1
}

// buildSink opens the writer records are sent to. Options apply only to
// an instrumented sink.
func buildSink(ctx context.Context, choice sinkChoice, st *state.State, opts ...instrumented.Option) (writer.DataWriter[types.Record], error) {
	switch choice.kind {
	case sinkMemory:
		w := writer.NewStubWriter[types.Record]()
		w.SizeOf = jsonLineSize
		return w, nil

	case sinkFrames:
		w, err := frame.NewWriter[types.Record](frame.Config{OutputPath: choice.output})
		if err != nil {
			return nil, err
		}
		return w, nil

	case sinkLode:
		w, err := openLodeWriter(ctx, choice.lode)
		if err != nil {
			return nil, err
		}
		if choice.instrumented {
			return lode.Instrument(w, st, opts...), nil
		}
		return w, nil
	}
	return nil, fmt.Errorf("invalid sink %q", choice.kind)
}

func openLodeWriter(ctx context.Context, lc lodeChoice) (*lode.Writer, error) {
	cfg := lode.Config{
		Dataset:       lc.dataset,
		Source:        lc.source,
		Category:      lc.category,
		Day:           lc.day,
		CommitTimeout: lc.commitTimeout,
	}
	if lc.backend == "s3" {
		return lode.NewS3Writer(ctx, cfg, s3Config(lc))
	}
	if err := os.MkdirAll(lc.path, 0o755); err != nil {
		return nil, lode.WrapInitError(err, lc.dataset)
	}
	return lode.NewFSWriter(cfg, lc.path)
}

// openLodeDataset opens a dataset for reading.
func openLodeDataset(ctx context.Context, lc lodeChoice) (lodelib.Dataset, error) {
	if lc.backend == "s3" {
		factory, err := lode.S3Factory(ctx, s3Config(lc))
		if err != nil {
			return nil, err
		}
		return lode.OpenDataset(lc.dataset, factory)
	}
	return lode.OpenDataset(lc.dataset, lodelib.NewFSFactory(lc.path))
}

func s3Config(lc lodeChoice) lode.S3Config {
	bucket, prefix := lode.ParseS3Path(lc.path)
	return lode.S3Config{
		Bucket:       bucket,
		Prefix:       prefix,
		Region:       lc.region,
		Endpoint:     lc.endpoint,
		UsePathStyle: lc.pathStyle,
	}
}
