// Package iox provides helpers for releasing closers and writers.
package iox

import (
	"errors"
	"io"
)

// Cleaner is anything released by Cleanup, such as a DataWriter.
type Cleaner interface {
	Cleanup() error
}

// DiscardClose closes c and discards the error.
// Use in defer statements where close errors are unactionable:
//
//	defer iox.DiscardClose(resp.Body)
func DiscardClose(c io.Closer) { _ = c.Close() }

// CloseFunc returns a cleanup function that closes c.
//
//	t.Cleanup(iox.CloseFunc(reporter))
func CloseFunc(c io.Closer) func() {
	return func() { _ = c.Close() }
}

// DiscardErr calls fn and discards the returned error.
func DiscardErr(fn func() error) { _ = fn() }

// DiscardCleanup calls w.Cleanup and discards the error.
func DiscardCleanup(w Cleaner) { _ = w.Cleanup() }

// CleanupFunc returns a function that cleans up w, for t.Cleanup.
func CleanupFunc(w Cleaner) func() {
	return func() { _ = w.Cleanup() }
}

// JoinErr calls fn and joins its error into *errp. Use with a named
// error result so deferred cleanup failures are not lost:
//
//	defer iox.JoinErr(&err, w.Cleanup)
func JoinErr(errp *error, fn func() error) {
	if cerr := fn(); cerr != nil {
		*errp = errors.Join(*errp, cerr)
	}
}
