package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/tally/frame"
	"github.com/pithecene-io/tally/instrumented"
	"github.com/pithecene-io/tally/iox"
	"github.com/pithecene-io/tally/metrics"
	"github.com/pithecene-io/tally/reporter"
	"github.com/pithecene-io/tally/types"
)

const testInput = `{"id": 1, "name": "alpha"}
{"id": 2, "name": "beta"}

{"id": 3, "name": "gamma"}
`

// runApp runs the CLI with args and returns what it rendered.
func runApp(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := &cli.App{
		Name:           "tally",
		Writer:         &out,
		ErrWriter:      io.Discard,
		Reader:         strings.NewReader(stdin),
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			WriteCommand(),
			InspectCommand(),
			VersionCommand("abc123"),
		},
	}
	err := app.Run(append([]string{"tally"}, args...))
	return out.String(), err
}

func writeInput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.jsonl")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return path
}

func decodeResult(t *testing.T, out string) WriteResult {
	t.Helper()
	var res WriteResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("unmarshal result %q: %v", out, err)
	}
	return res
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	var ec cli.ExitCoder
	if !errors.As(err, &ec) {
		t.Fatalf("error %v is not a cli.ExitCoder", err)
	}
	return ec.ExitCode()
}

func TestWrite_MemorySink(t *testing.T) {
	out, err := runApp(t, "", "write", "--input", writeInput(t, testInput), "--format", "json")
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	res := decodeResult(t, out)
	if res.Sink != sinkMemory {
		t.Errorf("sink = %q, want memory", res.Sink)
	}
	if res.Records != 3 {
		t.Errorf("records = %d, want 3", res.Records)
	}
	if res.Bytes <= 0 {
		t.Errorf("bytes = %d, want > 0", res.Bytes)
	}
	if res.SinkInstrumented {
		t.Error("memory sink should not be instrumented")
	}
	if got := res.Metrics.Counters[instrumented.MetricRecordsWritten]; got != 3 {
		t.Errorf("records.written = %d, want 3", got)
	}
	if got := res.Metrics.Counters[instrumented.MetricBytesWritten]; got != res.Bytes {
		t.Errorf("bytes.written = %d, want %d", got, res.Bytes)
	}
}

func TestWrite_StdinAndTags(t *testing.T) {
	out, err := runApp(t, testInput,
		"write", "--input", "-", "--format", "json",
		"--job-name", "ingest", "--metrics-context", "sink", "--tag", "region=eu",
	)
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	res := decodeResult(t, out)
	if res.Metrics.Name != "sink" {
		t.Errorf("context name = %q, want sink", res.Metrics.Name)
	}
	if res.Metrics.Tags["job.name"] != "ingest" {
		t.Errorf("tags = %v, want job.name=ingest", res.Metrics.Tags)
	}
	if res.Metrics.Tags["region"] != "eu" {
		t.Errorf("tags = %v, want region=eu", res.Metrics.Tags)
	}
}

func TestWrite_NoMetrics(t *testing.T) {
	out, err := runApp(t, "", "write", "--input", writeInput(t, testInput), "--format", "json", "--no-metrics")
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	res := decodeResult(t, out)
	if res.Records != 3 {
		t.Errorf("records = %d, want 3", res.Records)
	}
	for name, v := range res.Metrics.Counters {
		if v != 0 {
			t.Errorf("counter %s = %d, want 0 with metrics disabled", name, v)
		}
	}
}

func TestWrite_FramesSinkThenInspect(t *testing.T) {
	output := filepath.Join(t.TempDir(), "out.frames")
	out, err := runApp(t, "",
		"write", "--input", writeInput(t, testInput), "--format", "json",
		"--sink", "frames", "--output", output,
	)
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	res := decodeResult(t, out)
	info, err := os.Stat(output)
	if err != nil {
		t.Fatalf("stat output: %v", err)
	}
	if res.Bytes != info.Size() {
		t.Errorf("bytes = %d, want file size %d", res.Bytes, info.Size())
	}
	if got := res.Metrics.Counters[instrumented.MetricBytesWritten]; got != info.Size() {
		t.Errorf("bytes.written = %d, want file size %d", got, info.Size())
	}

	f, err := os.Open(output)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer iox.DiscardClose(f)
	records, err := frame.ReadAll[types.Record](f)
	if err != nil {
		t.Fatalf("read frames: %v", err)
	}
	if len(records) != 3 || records[2]["name"] != "gamma" {
		t.Errorf("records = %v", records)
	}

	out, err = runApp(t, "", "inspect", "frames", "--input", output, "--format", "json")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	var inspected []map[string]any
	if err := json.Unmarshal([]byte(out), &inspected); err != nil {
		t.Fatalf("unmarshal inspect output: %v", err)
	}
	if len(inspected) != 3 || inspected[0]["name"] != "alpha" {
		t.Errorf("inspected = %v", inspected)
	}
}

func TestWrite_LodeSink(t *testing.T) {
	for _, instrumentedSink := range []bool{false, true} {
		name := "plain"
		if instrumentedSink {
			name = "instrumented"
		}
		t.Run(name, func(t *testing.T) {
			root := filepath.Join(t.TempDir(), "lode")
			args := []string{
				"write", "--input", writeInput(t, testInput), "--format", "json",
				"--sink", "lode", "--lode-dataset", "events", "--lode-path", root,
			}
			if instrumentedSink {
				args = append(args, "--instrumented-sink")
			}
			out, err := runApp(t, "", args...)
			if err != nil {
				t.Fatalf("write: %v", err)
			}

			res := decodeResult(t, out)
			if res.SinkInstrumented != instrumentedSink {
				t.Errorf("sink_instrumented = %v, want %v", res.SinkInstrumented, instrumentedSink)
			}
			if got := res.Metrics.Counters[instrumented.MetricRecordsWritten]; got != 3 {
				t.Errorf("records.written = %d, want 3 (counted once)", got)
			}

			out, err = runApp(t, "", "inspect", "lode", "--lode-dataset", "events", "--lode-path", root, "--format", "json")
			if err != nil {
				t.Fatalf("inspect: %v", err)
			}
			var inspected []map[string]any
			if err := json.Unmarshal([]byte(out), &inspected); err != nil {
				t.Fatalf("unmarshal inspect output: %v", err)
			}
			if len(inspected) != 3 {
				t.Fatalf("inspected %d records, want 3", len(inspected))
			}
			if inspected[0]["source"] != "tally" || inspected[0]["category"] != "default" {
				t.Errorf("partition keys missing: %v", inspected[0])
			}
		})
	}
}

func TestWrite_PromFile(t *testing.T) {
	promPath := filepath.Join(t.TempDir(), "metrics.prom")
	_, err := runApp(t, "", "write", "--input", writeInput(t, testInput), "--format", "json", "--prom-file", promPath)
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	data, err := os.ReadFile(promPath)
	if err != nil {
		t.Fatalf("read prom file: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, "tally_writer_records_written_total") {
		t.Errorf("prom file missing records counter:\n%s", text)
	}
	if !strings.Contains(text, "tally_writer_write_timer_seconds") {
		t.Errorf("prom file missing write timer:\n%s", text)
	}
}

func TestWrite_WebhookReport(t *testing.T) {
	var (
		mu      sync.Mutex
		reports []reporter.MetricReport
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var rep reporter.MetricReport
		if err := json.NewDecoder(r.Body).Decode(&rep); err != nil {
			t.Errorf("decode report: %v", err)
		}
		mu.Lock()
		reports = append(reports, rep)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	_, err := runApp(t, "",
		"write", "--input", writeInput(t, testInput), "--format", "json",
		"--report", "webhook", "--report-url", ts.URL,
	)
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(reports) != 1 {
		t.Fatalf("got %d reports, want 1 final report", len(reports))
	}
	if !reports[0].Final {
		t.Error("report should be marked final")
	}
	if reports[0].Counters[instrumented.MetricRecordsWritten] != 3 {
		t.Errorf("counters = %v", reports[0].Counters)
	}
}

func TestWrite_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "out.frames")
	cfgPath := filepath.Join(dir, "tally.yaml")
	cfg := "state:\n  job.name: nightly\nsink:\n  type: frames\n  output: " + output + "\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out, err := runApp(t, "", "write", "--input", writeInput(t, testInput), "--format", "json", "--config", cfgPath)
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	res := decodeResult(t, out)
	if res.Sink != sinkFrames {
		t.Errorf("sink = %q, want frames from config", res.Sink)
	}
	if res.Metrics.Tags["job.name"] != "nightly" {
		t.Errorf("tags = %v, want job.name=nightly", res.Metrics.Tags)
	}
	if _, err := os.Stat(output); err != nil {
		t.Errorf("output not committed: %v", err)
	}
}

func TestWrite_Errors(t *testing.T) {
	input := writeInput(t, testInput)
	tests := []struct {
		name string
		args []string
		code int
	}{
		{"unknown sink", []string{"--sink", "kafka"}, exitConfigError},
		{"frames without output", []string{"--sink", "frames"}, exitConfigError},
		{"instrumented memory sink", []string{"--instrumented-sink"}, exitConfigError},
		{"lode without dataset", []string{"--sink", "lode", "--lode-path", t.TempDir()}, exitConfigError},
		{"reporter without url", []string{"--report", "redis"}, exitConfigError},
		{"unknown reporter", []string{"--report", "kafka", "--report-url", "x"}, exitConfigError},
		{"bad tag", []string{"--tag", "novalue"}, exitConfigError},
		{"missing config", []string{"--config", filepath.Join(t.TempDir(), "none.yaml")}, exitConfigError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"write", "--input", input, "--format", "json"}, tt.args...)
			_, err := runApp(t, "", args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := exitCode(t, err); got != tt.code {
				t.Errorf("exit code = %d, want %d (%v)", got, tt.code, err)
			}
		})
	}
}

func TestWrite_InputErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := runApp(t, "", "write", "--input", filepath.Join(t.TempDir(), "nope.jsonl"))
		if got := exitCode(t, err); got != exitInputError {
			t.Errorf("exit code = %d, want %d", got, exitInputError)
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := runApp(t, "", "write", "--input", writeInput(t, "{\"id\": 1}\nnot json\n"))
		if got := exitCode(t, err); got != exitInputError {
			t.Errorf("exit code = %d, want %d", got, exitInputError)
		}
		if !strings.Contains(err.Error(), "line 2") {
			t.Errorf("error %q should name line 2", err)
		}
	})

	t.Run("frames output dir missing", func(t *testing.T) {
		output := filepath.Join(t.TempDir(), "missing", "out.frames")
		_, err := runApp(t, "", "write", "--input", writeInput(t, testInput), "--sink", "frames", "--output", output)
		if got := exitCode(t, err); got != exitWriteFailure {
			t.Errorf("exit code = %d, want %d", got, exitWriteFailure)
		}
	})
}

func TestVersion(t *testing.T) {
	out, err := runApp(t, "", "version", "--format", "json")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	var resp VersionResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Version != types.Version || resp.Commit != "abc123" {
		t.Errorf("version = %+v", resp)
	}
}

func TestWriteResult_Tables(t *testing.T) {
	mc := metrics.NewContext("writer")
	mc.Counter(instrumented.MetricRecordsWritten).Add(2)
	mc.Timer(instrumented.MetricWriteTimer).Update(time.Millisecond)
	res := WriteResult{Sink: sinkMemory, Records: 2, Bytes: 40, Metrics: mc.Snapshot()}

	tables := res.Tables()
	if len(tables) != 3 {
		t.Fatalf("len(tables) = %d, want 3", len(tables))
	}
	if tables[0].TableTitle() != "Write" {
		t.Errorf("first table = %q, want Write", tables[0].TableTitle())
	}
	rows := tables[1].TableRows()
	if len(rows) != 1 || rows[0][0] != instrumented.MetricRecordsWritten || rows[0][1] != "2" {
		t.Errorf("counter rows = %v", rows)
	}
	if got := len(tables[2].TableHeader()); got != 6 {
		t.Errorf("timer header has %d columns, want 6", got)
	}
}

func TestRecordList_UnionColumns(t *testing.T) {
	l := RecordList{
		{"a": 1},
		{"b": "x"},
	}
	tables := l.Tables()
	if len(tables) != 1 {
		t.Fatalf("len(tables) = %d, want 1", len(tables))
	}
	header := tables[0].TableHeader()
	if len(header) != 2 || header[0] != "a" || header[1] != "b" {
		t.Errorf("header = %v, want [a b]", header)
	}
	rows := tables[0].TableRows()
	if rows[0][1] != "" || rows[1][1] != "x" {
		t.Errorf("rows = %v", rows)
	}
}
