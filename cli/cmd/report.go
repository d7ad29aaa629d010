package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/pithecene-io/tally/iox"
	"github.com/pithecene-io/tally/metrics"
	"github.com/pithecene-io/tally/reporter"
	"github.com/pithecene-io/tally/reporter/redis"
	"github.com/pithecene-io/tally/reporter/webhook"
)

// reportChoice holds resolved reporter configuration.
type reportChoice struct {
	kind     string // "", "redis" or "webhook"
	url      string
	channel  string
	headers  map[string]string
	timeout  time.Duration
	retries  *int
	interval time.Duration
}

func validateReportChoice(choice reportChoice) error {
	switch choice.kind {
	case "":
		return nil
	case "redis", "webhook":
		if choice.url == "" {
			return fmt.Errorf("--report-url is required for the %s reporter", choice.kind)
		}
		return nil
	default:
		return fmt.Errorf("invalid reporter %q (must be redis or webhook)", choice.kind)
	}
}

// buildReporter creates the configured reporter, or nil when none is set.
func buildReporter(choice reportChoice) (reporter.Reporter, error) {
	retries := 3
	if choice.retries != nil {
		retries = *choice.retries
	}

	switch choice.kind {
	case "redis":
		r, err := redis.New(redis.Config{
			URL:     choice.url,
			Channel: choice.channel,
			Timeout: choice.timeout,
			Retries: retries,
		})
		if err != nil {
			return nil, err
		}
		return r, nil
	case "webhook":
		r, err := webhook.New(webhook.Config{
			URL:     choice.url,
			Headers: choice.headers,
			Timeout: choice.timeout,
			Retries: retries,
		})
		if err != nil {
			return nil, err
		}
		return r, nil
	case "":
		return nil, nil
	}
	return nil, fmt.Errorf("invalid reporter %q", choice.kind)
}

// writePromFile writes every registered context in the Prometheus text
// exposition format.
func writePromFile(path string, registry *metrics.Registry) (err error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(metrics.NewExporter(registry)); err != nil {
		return fmt.Errorf("register exporter: %w", err)
	}
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer iox.JoinErr(&err, f.Close)

	for _, mf := range families {
		if _, werr := expfmt.MetricFamilyToText(f, mf); werr != nil {
			return fmt.Errorf("write %s: %w", path, werr)
		}
	}
	return nil
}
