package instrumented

import (
	"time"

	"github.com/pithecene-io/tally/log"
	"github.com/pithecene-io/tally/metrics"
	"github.com/pithecene-io/tally/state"
	"github.com/pithecene-io/tally/writer"
)

// Metric names recorded by Base.
const (
	MetricRecordsIn      = "writer.records.in"
	MetricRecordsWritten = "writer.records.written"
	MetricRecordsFailed  = "writer.records.failed"
	MetricBytesWritten   = "writer.bytes.written"
	MetricWriteTimer     = "writer.write.timer"
)

// DefaultContextName names the metric context when the state sets none.
const DefaultContextName = "writer"

// Writer is a DataWriter that records its own metrics.
// Decorator treats any Writer as already instrumented.
type Writer[D any] interface {
	writer.DataWriter[D]

	// MetricContext returns the context this writer records into.
	MetricContext() *metrics.Context
}

// Base records metrics around a raw write step.
//
// Base implements Write and MetricContext only; the embedding writer
// supplies Commit, Cleanup and the record and byte totals.
type Base[D any] struct {
	metricContext *metrics.Context
	writeImpl     func(D) error
	enabled       bool
	sizeOf        func(D) int64
	logger        *log.Logger

	recordsIn      *metrics.Counter
	recordsWritten *metrics.Counter
	recordsFailed  *metrics.Counter
	bytesWritten   *metrics.Counter
	writeTimer     *metrics.Timer
}

// NewBase creates a Base whose Write times and counts calls to writeImpl.
// The metric context is named and tagged from st; see the state package
// for the keys consulted.
func NewBase[D any](st *state.State, writeImpl func(D) error, opts ...Option) *Base[D] {
	return newBase(st, writeImpl, buildSettings(opts), true)
}

// newBase builds a Base. canonical is false when the context only shadows
// another writer's; such a context is neither registered nor attached to
// the parent.
func newBase[D any](st *state.State, writeImpl func(D) error, s settings, canonical bool) *Base[D] {
	ctxOpts := []metrics.ContextOption{metrics.WithTags(contextTags(st))}
	if canonical && s.parent != nil {
		ctxOpts = append(ctxOpts, metrics.WithParent(s.parent))
	}
	mc := metrics.NewContext(st.GetString(state.KeyMetricsContextName, DefaultContextName), ctxOpts...)
	if canonical {
		s.registry.Register(mc)
	}

	b := &Base[D]{
		metricContext:  mc,
		writeImpl:      writeImpl,
		enabled:        st.GetBool(state.KeyMetricsEnabled, true),
		logger:         s.logger,
		recordsIn:      mc.Counter(MetricRecordsIn),
		recordsWritten: mc.Counter(MetricRecordsWritten),
		recordsFailed:  mc.Counter(MetricRecordsFailed),
		bytesWritten:   mc.Counter(MetricBytesWritten),
		writeTimer:     mc.Timer(MetricWriteTimer),
	}
	if fn, ok := s.sizeOf.(func(D) int64); ok {
		b.sizeOf = fn
	} else if s.sizeOf != nil {
		s.logger.Warn("record size function ignored: record type mismatch", nil)
	}
	return b
}

// contextTags collects the metric context tags configured in st.
func contextTags(st *state.State) map[string]string {
	tags := st.WithPrefix(state.KeyMetricsTagPrefix)
	for _, key := range []string{state.KeyJobName, state.KeyJobID, state.KeyTaskID} {
		if v, ok := st.Get(key); ok {
			tags[key] = v
		}
	}
	return tags
}

// MetricContext returns the context owned by this Base.
func (b *Base[D]) MetricContext() *metrics.Context {
	return b.metricContext
}

// InstrumentationEnabled reports whether Write records metrics.
func (b *Base[D]) InstrumentationEnabled() bool {
	return b.enabled
}

// Write calls the raw write step, recording its latency and outcome.
// The raw step's error is returned unchanged.
func (b *Base[D]) Write(record D) error {
	if !b.enabled {
		return b.writeImpl(record)
	}

	b.recordsIn.Inc()
	start := time.Now()
	err := b.writeImpl(record)
	b.writeTimer.UpdateSince(start)

	if err != nil {
		b.recordsFailed.Inc()
		b.logger.Debug("record write failed", map[string]any{
			"context": b.metricContext.FullName(),
			"error":   err.Error(),
		})
		return err
	}

	b.recordsWritten.Inc()
	if b.sizeOf != nil {
		b.bytesWritten.Add(b.sizeOf(record))
	}
	return nil
}
