// Package redis publishes metric reports over Redis pub/sub.
//
// Each report is sent as one JSON PUBLISH to a configurable channel.
// Failed publishes are retried with exponential backoff.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pithecene-io/tally/reporter"
)

// DefaultChannel is the default pub/sub channel name.
const DefaultChannel = "tally:metrics"

// DefaultTimeout is the default per-publish timeout.
const DefaultTimeout = 5 * time.Second

// Config configures the Redis reporter.
type Config struct {
	// URL is the Redis connection URL (required).
	// Format: redis://[:password@]host:port[/db]
	URL string
	// Channel is the pub/sub channel name (default tally:metrics).
	Channel string
	// Timeout is the per-publish timeout (default 5s).
	Timeout time.Duration
	// Retries is the number of retries after a failed publish (0 = none).
	Retries int
	// Backoff is the delay before the first retry (default 500ms).
	Backoff time.Duration
}

// Reporter publishes metric reports via Redis PUBLISH.
type Reporter struct {
	config Config
	client *goredis.Client
}

// New creates a Redis reporter. Returns an error if the URL is empty or
// invalid.
func New(cfg Config) (*Reporter, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis reporter requires a URL")
	}

	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis reporter: invalid URL: %w", err)
	}

	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}
	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = reporter.DefaultBackoff
	}

	return &Reporter{
		config: cfg,
		client: goredis.NewClient(opts),
	}, nil
}

// Report publishes the report as JSON to the configured channel.
func (r *Reporter) Report(ctx context.Context, report *reporter.MetricReport) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("redis: marshal report: %w", err)
	}

	return reporter.Retry(ctx, "redis", r.config.Retries, r.config.Backoff, func(ctx context.Context) error {
		publishCtx, cancel := context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
		return r.client.Publish(publishCtx, r.config.Channel, body).Err()
	})
}

// Close releases the Redis connection pool.
func (r *Reporter) Close() error {
	return r.client.Close()
}

var _ reporter.Reporter = (*Reporter)(nil)
