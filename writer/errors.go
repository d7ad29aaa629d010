package writer

import (
	"errors"
	"fmt"
)

// ErrIO is the single failure kind reported by writers.
// Use errors.Is(err, ErrIO) for typed assertions.
var ErrIO = errors.New("i/o failure")

// Operation names used in IOError.Op.
const (
	OpWrite   = "write"
	OpCommit  = "commit"
	OpCleanup = "cleanup"
	OpBytes   = "bytes"
)

// IOError wraps an underlying error with the writer operation that failed.
type IOError struct {
	// Op is the operation that failed (write, commit, cleanup, bytes).
	Op string
	// Err is the underlying error.
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrIO, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As chain traversal.
func (e *IOError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrIO.
func (e *IOError) Is(target error) bool {
	return target == ErrIO
}

// Wrap classifies err as an I/O failure of op.
// Returns nil if err is nil. Errors that already satisfy ErrIO are
// returned unchanged so layered writers do not stack wrappers.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrIO) {
		return err
	}
	return &IOError{Op: op, Err: err}
}
