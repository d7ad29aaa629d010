package writer

import (
	"errors"
	"sync"
)

// ErrInjected is the cause of failures injected into a StubWriter.
var ErrInjected = errors.New("injected failure")

// StubWriter is an in-memory DataWriter.
// Records land in a slice; failures can be injected per operation.
// Use for tests and dry runs.
type StubWriter[D any] struct {
	mu sync.Mutex

	records []D
	bytes   int64

	// FailOnWrite, if > 0, makes the Nth Write call (1-based) fail.
	FailOnWrite int
	// FailAllWritesAfter, if > 0, makes every Write call after the Nth fail.
	FailAllWritesAfter int
	// ErrorOnCommit, if non-nil, is returned (wrapped) by Commit.
	ErrorOnCommit error
	// ErrorOnCleanup, if non-nil, is returned (wrapped) by Cleanup.
	ErrorOnCleanup error
	// ErrorOnBytes, if non-nil, is returned (wrapped) by BytesWritten.
	ErrorOnBytes error
	// SizeOf reports the byte size of a record. Zero-sized when nil.
	SizeOf func(D) int64

	writeCalls   int
	commitCalls  int
	cleanupCalls int
	committed    int
}

// NewStubWriter creates an empty stub writer.
func NewStubWriter[D any]() *StubWriter[D] {
	return &StubWriter[D]{}
}

// Write appends the record unless a failure is injected for this call.
func (w *StubWriter[D]) Write(record D) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.writeCalls++
	if w.FailOnWrite > 0 && w.writeCalls == w.FailOnWrite {
		return Wrap(OpWrite, ErrInjected)
	}
	if w.FailAllWritesAfter > 0 && w.writeCalls > w.FailAllWritesAfter {
		return Wrap(OpWrite, ErrInjected)
	}

	w.records = append(w.records, record)
	if w.SizeOf != nil {
		w.bytes += w.SizeOf(record)
	}
	return nil
}

// Commit marks every written record as committed.
func (w *StubWriter[D]) Commit() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.commitCalls++
	if w.ErrorOnCommit != nil {
		return Wrap(OpCommit, w.ErrorOnCommit)
	}
	w.committed = len(w.records)
	return nil
}

// Cleanup records the call.
func (w *StubWriter[D]) Cleanup() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.cleanupCalls++
	if w.ErrorOnCleanup != nil {
		return Wrap(OpCleanup, w.ErrorOnCleanup)
	}
	return nil
}

// RecordsWritten returns the number of successful writes.
func (w *StubWriter[D]) RecordsWritten() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return int64(len(w.records))
}

// BytesWritten returns the sum of SizeOf over written records.
func (w *StubWriter[D]) BytesWritten() (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.ErrorOnBytes != nil {
		return 0, Wrap(OpBytes, w.ErrorOnBytes)
	}
	return w.bytes, nil
}

// Records returns a copy of the written records.
func (w *StubWriter[D]) Records() []D {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]D, len(w.records))
	copy(out, w.records)
	return out
}

// Stats returns a snapshot of call counters.
func (w *StubWriter[D]) Stats() StubWriterStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	return StubWriterStats{
		WriteCalls:   w.writeCalls,
		CommitCalls:  w.commitCalls,
		CleanupCalls: w.cleanupCalls,
		Committed:    w.committed,
	}
}

// StubWriterStats is a snapshot of StubWriter call counters.
type StubWriterStats struct {
	WriteCalls   int
	CommitCalls  int
	CleanupCalls int
	Committed    int
}

// Verify StubWriter implements DataWriter.
var _ DataWriter[any] = (*StubWriter[any])(nil)
