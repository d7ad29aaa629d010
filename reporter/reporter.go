// Package reporter publishes metric context snapshots to downstream
// systems.
//
// Reporters read registered contexts while writers keep updating them;
// they never touch the write path.
package reporter

import (
	"context"
	"time"

	"github.com/pithecene-io/tally/metrics"
	"github.com/pithecene-io/tally/types"
)

// EventType is the event_type of every published report.
const EventType = "metrics_reported"

// MetricReport is the payload published for one metric context.
type MetricReport struct {
	ReportVersion string                           `json:"report_version"`
	EventType     string                           `json:"event_type"` // always "metrics_reported"
	Context       string                           `json:"context"`
	Tags          map[string]string                `json:"tags,omitempty"`
	Counters      map[string]int64                 `json:"counters"`
	Timers        map[string]metrics.TimerSnapshot `json:"timers"`
	Timestamp     string                           `json:"timestamp"` // RFC 3339, UTC
	Final         bool                             `json:"final"`
}

// NewReport builds a report from a context snapshot taken at at.
func NewReport(snap metrics.Snapshot, at time.Time) *MetricReport {
	return &MetricReport{
		ReportVersion: types.ReportVersion,
		EventType:     EventType,
		Context:       snap.FullName,
		Tags:          snap.Tags,
		Counters:      snap.Counters,
		Timers:        snap.Timers,
		Timestamp:     at.UTC().Format(time.RFC3339),
	}
}

// Reporter publishes metric reports to a downstream system.
type Reporter interface {
	// Report sends one report. Must respect context cancellation.
	Report(ctx context.Context, report *MetricReport) error

	// Close releases reporter resources.
	Close() error
}
