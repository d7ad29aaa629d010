// Package instrumented adds metric recording to record writers.
//
// Base wraps a raw write step with timing and outcome counters and owns a
// metrics.Context. Concrete writers that instrument themselves embed a Base
// and hand it their raw write function.
//
// Decorator wraps an arbitrary writer.DataWriter. When the wrapped writer
// already satisfies Writer, the decorator forwards writes and the metric
// context to it, so every logical write is counted exactly once and one
// context describes the whole chain. Otherwise the decorator instruments the
// writes itself. The choice is made once, at construction.
package instrumented
