package lode

import (
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/tally/instrumented"
	"github.com/pithecene-io/tally/state"
)

// Commit metric names recorded by InstrumentedWriter.
const (
	MetricCommits        = "writer.commits"
	MetricCommitFailures = "writer.commit.failures"
	MetricCommitTimer    = "writer.commit.timer"
)

// InstrumentedWriter is a Writer that records its own metrics, including
// commit latency and outcome. Decorators wrapping it forward to its
// metric context instead of counting again.
type InstrumentedWriter struct {
	*instrumented.Base[map[string]any]
	*Writer
}

// NewInstrumentedWriter creates an instrumented writer over a store factory.
func NewInstrumentedWriter(cfg Config, factory lode.StoreFactory, st *state.State, opts ...instrumented.Option) (*InstrumentedWriter, error) {
	w, err := NewWriterWithFactory(cfg, factory)
	if err != nil {
		return nil, err
	}
	return Instrument(w, st, opts...), nil
}

// Instrument attaches self-instrumentation to an existing writer.
func Instrument(w *Writer, st *state.State, opts ...instrumented.Option) *InstrumentedWriter {
	return &InstrumentedWriter{
		Base:   instrumented.NewBase(st, w.Write, opts...),
		Writer: w,
	}
}

// Write records metrics around the raw dataset write.
func (w *InstrumentedWriter) Write(record map[string]any) error {
	return w.Base.Write(record)
}

// Commit publishes staged records, recording commit latency and outcome.
func (w *InstrumentedWriter) Commit() error {
	if !w.InstrumentationEnabled() {
		return w.Writer.Commit()
	}

	mc := w.MetricContext()
	start := time.Now()
	err := w.Writer.Commit()
	mc.Timer(MetricCommitTimer).UpdateSince(start)
	if err != nil {
		mc.Counter(MetricCommitFailures).Inc()
		return err
	}
	mc.Counter(MetricCommits).Inc()
	return nil
}

// Verify InstrumentedWriter is an instrumented writer.
var _ instrumented.Writer[map[string]any] = (*InstrumentedWriter)(nil)
