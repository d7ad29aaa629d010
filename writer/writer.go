// Package writer defines the record writer capability.
//
// A DataWriter accepts records one at a time, finalizes them on Commit and
// releases its resources on Cleanup. Every failure a writer reports is an
// I/O failure: callers test with errors.Is(err, writer.ErrIO).
package writer

// DataWriter is the minimal operation set a record sink supports.
//
// One producer drives a writer; implementations are not required to be safe
// for concurrent Write/Commit/Cleanup calls. Behavior after Cleanup is
// undefined.
type DataWriter[D any] interface {
	// Write appends one record.
	Write(record D) error

	// Commit finalizes buffered output.
	Commit() error

	// Cleanup releases resources held by the writer.
	Cleanup() error

	// RecordsWritten returns the number of records successfully written.
	// Never decreases.
	RecordsWritten() int64

	// BytesWritten returns the number of bytes flushed so far.
	// Fails if the underlying medium cannot report its size.
	BytesWritten() (int64, error)
}
