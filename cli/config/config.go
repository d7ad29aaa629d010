// Package config loads tally.yaml, the CLI configuration file.
//
// All values are optional and act as defaults for `tally write` flags.
// CLI flags always override config values.
package config

import (
	"fmt"
	"time"

	"github.com/pithecene-io/tally/state"
)

// Config represents a tally.yaml configuration file.
type Config struct {
	// State holds writer properties, flattened into a state.State.
	State    map[string]any `yaml:"state"`
	Sink     SinkConfig     `yaml:"sink"`
	Reporter ReporterConfig `yaml:"reporter"`
}

// SinkConfig selects and configures the writer records are sent to.
type SinkConfig struct {
	Type         string     `yaml:"type"` // frames, lode, memory
	Output       string     `yaml:"output"`
	Instrumented bool       `yaml:"instrumented"`
	Lode         LodeConfig `yaml:"lode"`
}

// LodeConfig holds Lode dataset defaults.
type LodeConfig struct {
	Dataset       string   `yaml:"dataset"`
	Source        string   `yaml:"source"`
	Category      string   `yaml:"category"`
	Day           string   `yaml:"day"`
	Backend       string   `yaml:"backend"` // fs, s3
	Path          string   `yaml:"path"`
	Region        string   `yaml:"region"`
	Endpoint      string   `yaml:"endpoint"`
	S3PathStyle   bool     `yaml:"s3_path_style"`
	CommitTimeout Duration `yaml:"commit_timeout,omitempty"`
}

// ReporterConfig holds metric reporter defaults.
type ReporterConfig struct {
	Type     string            `yaml:"type"` // redis, webhook
	URL      string            `yaml:"url"`
	Channel  string            `yaml:"channel,omitempty"`
	Headers  map[string]string `yaml:"headers,omitempty"`
	Timeout  Duration          `yaml:"timeout,omitempty"`
	Retries  *int              `yaml:"retries,omitempty"`
	Interval Duration          `yaml:"interval,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// WriterState flattens the state section into a state.State.
// A missing section yields an empty State.
func (c *Config) WriterState() (*state.State, error) {
	if c == nil || len(c.State) == 0 {
		return state.New(nil), nil
	}
	st, err := state.FromMap(c.State)
	if err != nil {
		return nil, fmt.Errorf("state section: %w", err)
	}
	return st, nil
}
