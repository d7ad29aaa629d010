package types

// Record is the schemaless record shape the CLI reads from JSON lines
// and hands to writers.
type Record = map[string]any
