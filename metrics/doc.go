// Package metrics provides metric contexts for instrumented writers.
//
// A Context is a named, hierarchical collection of counters and timers that
// describes one writer's activity. Counters and timers are created on demand
// by name and reused for the same name. A Context is written by a single
// producer and may be read concurrently by reporting infrastructure through
// Snapshot; all methods are nil-receiver safe.
//
// A Registry holds the canonical contexts visible to exporters and
// reporters. Exporter adapts a Registry to a Prometheus collector.
package metrics
