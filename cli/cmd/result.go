package cmd

import (
	"strconv"

	"github.com/pithecene-io/tally/cli/render"
	"github.com/pithecene-io/tally/metrics"
)

// WriteResult is the response for the write command.
type WriteResult struct {
	Sink             string           `json:"sink" yaml:"sink"`
	Records          int64            `json:"records" yaml:"records"`
	Bytes            int64            `json:"bytes" yaml:"bytes"`
	SinkInstrumented bool             `json:"sink_instrumented" yaml:"sink_instrumented"`
	Metrics          metrics.Snapshot `json:"metrics" yaml:"metrics"`
}

// Tables lays the result out as summary, counter and timer tables.
func (r WriteResult) Tables() []render.Table {
	tables := []render.Table{
		table{
			title:  "Write",
			header: []string{"property", "value"},
			rows: [][]string{
				{"sink", r.Sink},
				{"records", strconv.FormatInt(r.Records, 10)},
				{"bytes", strconv.FormatInt(r.Bytes, 10)},
				{"sink instrumented", strconv.FormatBool(r.SinkInstrumented)},
				{"metric context", r.Metrics.FullName},
			},
		},
	}

	if len(r.Metrics.Counters) > 0 {
		counters := table{title: "Counters", header: []string{"counter", "value"}}
		for _, name := range r.Metrics.CounterNames() {
			counters.rows = append(counters.rows, []string{name, strconv.FormatInt(r.Metrics.Counters[name], 10)})
		}
		tables = append(tables, counters)
	}

	if len(r.Metrics.Timers) > 0 {
		timers := table{title: "Timers", header: []string{"timer", "count", "mean", "min", "max", "total"}}
		for _, name := range r.Metrics.TimerNames() {
			ts := r.Metrics.Timers[name]
			timers.rows = append(timers.rows, []string{
				name,
				strconv.FormatInt(ts.Count, 10),
				ts.Mean.String(),
				ts.Min.String(),
				ts.Max.String(),
				ts.Total.String(),
			})
		}
		tables = append(tables, timers)
	}
	return tables
}

// table is a static render.Table.
type table struct {
	title  string
	header []string
	rows   [][]string
}

func (t table) TableTitle() string    { return t.title }
func (t table) TableHeader() []string { return t.header }
func (t table) TableRows() [][]string { return t.rows }
