package instrumented

import (
	"github.com/pithecene-io/tally/state"
	"github.com/pithecene-io/tally/writer"
)

// selfInstrumentedWriter is a test writer that records its own metrics
// by embedding Base over a StubWriter.
type selfInstrumentedWriter struct {
	*Base[string]
	stub *writer.StubWriter[string]
}

func newSelfInstrumentedWriter(st *state.State, opts ...Option) *selfInstrumentedWriter {
	w := &selfInstrumentedWriter{stub: writer.NewStubWriter[string]()}
	w.Base = NewBase(st, w.writeImpl, opts...)
	return w
}

func (w *selfInstrumentedWriter) writeImpl(record string) error { return w.stub.Write(record) }
func (w *selfInstrumentedWriter) Commit() error                 { return w.stub.Commit() }
func (w *selfInstrumentedWriter) Cleanup() error                { return w.stub.Cleanup() }
func (w *selfInstrumentedWriter) RecordsWritten() int64         { return w.stub.RecordsWritten() }
func (w *selfInstrumentedWriter) BytesWritten() (int64, error)  { return w.stub.BytesWritten() }

var _ Writer[string] = (*selfInstrumentedWriter)(nil)

func writeN(t interface{ Fatalf(string, ...any) }, w writer.DataWriter[string], n int) {
	for i := range n {
		if err := w.Write("record"); err != nil {
			t.Fatalf("write %d: %v", i+1, err)
		}
	}
}
