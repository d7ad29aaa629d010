package metrics

import (
	"sort"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every exported Prometheus metric name.
const Namespace = "tally"

// exporterLabels are the variable labels attached to every exported series.
// Fixed so that series of one family share label dimensions. Tags without a
// label of their own are folded into "tags" as sorted k=v pairs. "instance"
// numbers contexts whose other labels are identical, in registration order.
var exporterLabels = []string{"context", "job", "job_id", "task", "tags", "instance"}

// labeledTags are the tags exported as dedicated labels.
var labeledTags = map[string]bool{"job.name": true, "job.id": true, "task.id": true}

// Exporter exposes a Registry as a Prometheus collector.
// Counters become <namespace>_<name>_total counters; timers become
// <namespace>_<name>_seconds summaries without quantiles.
//
// The set of metric names is only known at collection time, so Exporter is
// an unchecked collector: Describe sends nothing.
type Exporter struct {
	registry *Registry
}

// NewExporter creates an exporter over registry.
func NewExporter(registry *Registry) *Exporter {
	return &Exporter{registry: registry}
}

// Describe implements prometheus.Collector.
func (e *Exporter) Describe(chan<- *prometheus.Desc) {}

// Collect implements prometheus.Collector.
func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	seen := make(map[string]int)
	for _, snap := range e.registry.Snapshots() {
		labels := []string{
			snap.FullName,
			snap.Tags["job.name"],
			snap.Tags["job.id"],
			snap.Tags["task.id"],
			extraTags(snap.Tags),
		}
		key := strings.Join(labels, "\x00")
		labels = append(labels, strconv.Itoa(seen[key]))
		seen[key]++

		for _, name := range snap.CounterNames() {
			desc := prometheus.NewDesc(
				promName(name, "total"),
				"Counter "+name+" of a tally metric context.",
				exporterLabels, nil,
			)
			ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue,
				float64(snap.Counters[name]), labels...)
		}

		for _, name := range snap.TimerNames() {
			ts := snap.Timers[name]
			desc := prometheus.NewDesc(
				promName(name, "seconds"),
				"Timer "+name+" of a tally metric context.",
				exporterLabels, nil,
			)
			ch <- prometheus.MustNewConstSummary(desc, uint64(ts.Count),
				ts.Total.Seconds(), nil, labels...)
		}
	}
}

// extraTags renders the tags without a dedicated label as "k=v,k=v".
func extraTags(tags map[string]string) string {
	pairs := make([]string, 0, len(tags))
	for k, v := range tags {
		if !labeledTags[k] {
			pairs = append(pairs, k+"="+v)
		}
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

// promName converts a dotted metric name to a Prometheus metric name.
func promName(name, suffix string) string {
	var b strings.Builder
	b.WriteString(Namespace)
	b.WriteByte('_')
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	b.WriteByte('_')
	b.WriteString(suffix)
	return b.String()
}

// Verify Exporter implements prometheus.Collector.
var _ prometheus.Collector = (*Exporter)(nil)
