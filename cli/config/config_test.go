package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pithecene-io/tally/state"
)

func TestLoad_FullConfig(t *testing.T) {
	yaml := `state:
  metrics:
    enabled: true
    context:
      name: ingest
  job:
    id: job-7

sink:
  type: lode
  instrumented: true
  lode:
    dataset: records
    source: crm
    category: contacts
    backend: s3
    path: my-bucket/prefix
    region: us-east-1
    endpoint: https://example.com
    s3_path_style: true
    commit_timeout: 45s

reporter:
  type: webhook
  url: https://hooks.example.com/tally
  headers:
    Authorization: Bearer token123
  timeout: 10s
  retries: 3
  interval: 1m
`
	cfg, err := Load(writeTemp(t, yaml))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	assertEqual(t, "sink.type", cfg.Sink.Type, "lode")
	if !cfg.Sink.Instrumented {
		t.Error("expected sink.instrumented=true")
	}
	assertEqual(t, "sink.lode.dataset", cfg.Sink.Lode.Dataset, "records")
	assertEqual(t, "sink.lode.source", cfg.Sink.Lode.Source, "crm")
	assertEqual(t, "sink.lode.category", cfg.Sink.Lode.Category, "contacts")
	assertEqual(t, "sink.lode.backend", cfg.Sink.Lode.Backend, "s3")
	assertEqual(t, "sink.lode.path", cfg.Sink.Lode.Path, "my-bucket/prefix")
	assertEqual(t, "sink.lode.region", cfg.Sink.Lode.Region, "us-east-1")
	assertEqual(t, "sink.lode.endpoint", cfg.Sink.Lode.Endpoint, "https://example.com")
	if !cfg.Sink.Lode.S3PathStyle {
		t.Error("expected sink.lode.s3_path_style=true")
	}
	if cfg.Sink.Lode.CommitTimeout.Duration != 45*time.Second {
		t.Errorf("commit_timeout = %v, want 45s", cfg.Sink.Lode.CommitTimeout.Duration)
	}

	assertEqual(t, "reporter.type", cfg.Reporter.Type, "webhook")
	assertEqual(t, "reporter.url", cfg.Reporter.URL, "https://hooks.example.com/tally")
	if cfg.Reporter.Timeout.Duration != 10*time.Second {
		t.Errorf("reporter.timeout = %v, want 10s", cfg.Reporter.Timeout.Duration)
	}
	if cfg.Reporter.Interval.Duration != time.Minute {
		t.Errorf("reporter.interval = %v, want 1m", cfg.Reporter.Interval.Duration)
	}
	if cfg.Reporter.Retries == nil || *cfg.Reporter.Retries != 3 {
		t.Error("expected reporter.retries=3")
	}
	if cfg.Reporter.Headers["Authorization"] != "Bearer token123" {
		t.Error("expected Authorization header")
	}

	st, err := cfg.WriterState()
	if err != nil {
		t.Fatalf("WriterState: %v", err)
	}
	assertEqual(t, "metrics.context.name", st.GetString(state.KeyMetricsContextName, ""), "ingest")
	assertEqual(t, "job.id", st.GetString(state.KeyJobID, ""), "job-7")
	if !st.GetBool(state.KeyMetricsEnabled, false) {
		t.Error("expected metrics.enabled=true")
	}
}

func TestLoad_EmptyConfigs(t *testing.T) {
	for name, content := range map[string]string{
		"empty":      "",
		"whitespace": "   \n  \n  \n",
		"comments":   "# This is a comment\n# Another comment\n",
	} {
		t.Run(name, func(t *testing.T) {
			cfg, err := Load(writeTemp(t, content))
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if cfg.Sink.Type != "" {
				t.Errorf("expected empty sink type, got %q", cfg.Sink.Type)
			}
			st, err := cfg.WriterState()
			if err != nil {
				t.Fatalf("WriterState: %v", err)
			}
			if len(st.Keys()) != 0 {
				t.Errorf("expected empty state, got %v", st.Keys())
			}
		})
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/tally.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("error = %v, want not found", err)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	if _, err := Load(writeTemp(t, "{{invalid yaml")); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TALLY_TEST_DATASET", "expanded")

	cfg, err := Load(writeTemp(t, "sink:\n  lode:\n    dataset: ${TALLY_TEST_DATASET}\n    source: ${TALLY_TEST_UNSET:-fallback}\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertEqual(t, "sink.lode.dataset", cfg.Sink.Lode.Dataset, "expanded")
	assertEqual(t, "sink.lode.source", cfg.Sink.Lode.Source, "fallback")
}

func TestLoad_RequiredEnvMissing(t *testing.T) {
	_, err := Load(writeTemp(t, "reporter:\n  url: ${TALLY_TEST_MISSING:?reporter url required}\n"))
	if err == nil {
		t.Fatal("expected error for missing required variable")
	}
	if !strings.Contains(err.Error(), "TALLY_TEST_MISSING") {
		t.Errorf("error should name the variable, got: %v", err)
	}
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	tests := map[string]string{
		"bogus_key":     "sink:\n  type: memory\nbogus_key: should_fail\n",
		"unknown_field": "sink:\n  lode:\n    backend: fs\n    unknown_field: bad\n",
	}
	for key, content := range tests {
		t.Run(key, func(t *testing.T) {
			_, err := Load(writeTemp(t, content))
			if err == nil {
				t.Fatal("expected error for unknown key, got nil")
			}
			if !strings.Contains(err.Error(), key) {
				t.Errorf("error should mention %q, got: %v", key, err)
			}
		})
	}
}

func TestLoad_RetriesZeroDistinctFromNil(t *testing.T) {
	cfg, err := Load(writeTemp(t, "reporter:\n  type: webhook\n  url: https://example.com\n  retries: 0\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Reporter.Retries == nil || *cfg.Reporter.Retries != 0 {
		t.Fatal("expected retries to be *int(0)")
	}

	cfg, err = Load(writeTemp(t, "reporter:\n  type: webhook\n  url: https://example.com\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Reporter.Retries != nil {
		t.Errorf("expected retries to be nil, got %d", *cfg.Reporter.Retries)
	}
}

func TestDuration_InvalidFormat(t *testing.T) {
	_, err := Load(writeTemp(t, "reporter:\n  timeout: not-a-duration\n"))
	if err == nil {
		t.Fatal("expected error for invalid duration")
	}
	if !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("error should mention invalid duration, got: %v", err)
	}
}

func TestDuration_EmptyIsZero(t *testing.T) {
	cfg, err := Load(writeTemp(t, "reporter:\n  timeout: \"\"\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Reporter.Timeout.Duration != 0 {
		t.Errorf("expected zero duration, got %v", cfg.Reporter.Timeout.Duration)
	}
}

func TestWriterState_RejectsSequences(t *testing.T) {
	cfg, err := Load(writeTemp(t, "state:\n  job:\n    tags: [a, b]\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := cfg.WriterState(); err == nil {
		t.Fatal("expected error for sequence in state section")
	}
}

func TestWriterState_NilConfig(t *testing.T) {
	var cfg *Config
	st, err := cfg.WriterState()
	if err != nil || st == nil {
		t.Fatalf("WriterState() = %v, %v", st, err)
	}
}

// writeTemp writes content to a temp file and returns the path.
func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tally.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func assertEqual(t *testing.T, field, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %q, want %q", field, got, want)
	}
}
