package instrumented

import (
	"github.com/pithecene-io/tally/metrics"
	"github.com/pithecene-io/tally/state"
	"github.com/pithecene-io/tally/writer"
)

// Decorator instruments an arbitrary DataWriter without double counting.
//
// If the wrapped writer is already a Writer, Write and MetricContext go
// straight to it. Otherwise writes pass through the decorator's own Base.
// Commit, Cleanup, RecordsWritten and BytesWritten always delegate to the
// wrapped writer.
type Decorator[D any] struct {
	base     *Base[D]
	embedded writer.DataWriter[D]

	// isEmbeddedInstrumented is fixed at construction.
	isEmbeddedInstrumented bool

	write         func(D) error
	metricContext func() *metrics.Context
}

// NewDecorator wraps w. st configures the decorator's own metric context.
func NewDecorator[D any](w writer.DataWriter[D], st *state.State, opts ...Option) *Decorator[D] {
	s := buildSettings(opts)
	inner, instrumented := w.(Writer[D])

	d := &Decorator[D]{
		embedded:               w,
		isEmbeddedInstrumented: instrumented,
	}
	d.base = newBase(st, d.writeImpl, s, !instrumented)

	if instrumented {
		d.write = inner.Write
		d.metricContext = inner.MetricContext
		s.logger.Debug("wrapped writer is instrumented; forwarding metric context", map[string]any{
			"context": inner.MetricContext().FullName(),
		})
	} else {
		d.write = d.base.Write
		d.metricContext = d.base.MetricContext
	}
	return d
}

// Decorate wraps w unless it already is a Writer, in which case w is
// returned as is.
func Decorate[D any](w writer.DataWriter[D], st *state.State, opts ...Option) Writer[D] {
	if iw, ok := w.(Writer[D]); ok {
		return iw
	}
	return NewDecorator(w, st, opts...)
}

// MetricContext returns the canonical context for the writer chain: the
// wrapped writer's when it is instrumented, the decorator's own otherwise.
func (d *Decorator[D]) MetricContext() *metrics.Context {
	return d.metricContext()
}

// IsEmbeddedInstrumented reports whether the wrapped writer records its
// own metrics.
func (d *Decorator[D]) IsEmbeddedInstrumented() bool {
	return d.isEmbeddedInstrumented
}

// Write writes one record, recording metrics exactly once.
func (d *Decorator[D]) Write(record D) error {
	return d.write(record)
}

// writeImpl is the raw write step of the decorator's own Base.
func (d *Decorator[D]) writeImpl(record D) error {
	return d.embedded.Write(record)
}

// Commit delegates to the wrapped writer.
func (d *Decorator[D]) Commit() error {
	return d.embedded.Commit()
}

// Cleanup delegates to the wrapped writer.
func (d *Decorator[D]) Cleanup() error {
	return d.embedded.Cleanup()
}

// RecordsWritten delegates to the wrapped writer.
func (d *Decorator[D]) RecordsWritten() int64 {
	return d.embedded.RecordsWritten()
}

// BytesWritten delegates to the wrapped writer.
func (d *Decorator[D]) BytesWritten() (int64, error) {
	return d.embedded.BytesWritten()
}

// Verify Decorator implements Writer.
var _ Writer[any] = (*Decorator[any])(nil)
