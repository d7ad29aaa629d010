// Package webhook publishes metric reports as HTTP POST requests.
//
// Each report is sent as a JSON body. 5xx responses and network errors
// are retried with exponential backoff; 4xx responses fail immediately.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pithecene-io/tally/iox"
	"github.com/pithecene-io/tally/reporter"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 10 * time.Second

// Config configures the webhook reporter.
type Config struct {
	// URL is the HTTP endpoint to POST to (required).
	URL string
	// Headers are custom HTTP headers added to each request.
	Headers map[string]string
	// Timeout is the per-request timeout (default 10s).
	Timeout time.Duration
	// Retries is the number of retries after a failed request (0 = none).
	Retries int
	// Backoff is the delay before the first retry (default 500ms).
	Backoff time.Duration
}

// Reporter publishes metric reports via HTTP POST.
type Reporter struct {
	config Config
	client *http.Client
}

// New creates a webhook reporter. Returns an error if the URL is empty.
func New(cfg Config) (*Reporter, error) {
	if cfg.URL == "" {
		return nil, errors.New("webhook reporter requires a URL")
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = reporter.DefaultBackoff
	}

	return &Reporter{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// StatusError is returned for non-2xx HTTP responses.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// Retriable reports whether the status warrants another attempt.
func (e *StatusError) Retriable() bool {
	return e.Code < 400 || e.Code >= 500
}

// Report sends the report as a JSON POST request.
func (r *Reporter) Report(ctx context.Context, report *reporter.MetricReport) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("webhook: marshal report: %w", err)
	}

	return reporter.Retry(ctx, "webhook", r.config.Retries, r.config.Backoff, func(ctx context.Context) error {
		err := r.doRequest(ctx, body)
		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.Retriable() {
			return reporter.Permanent(err)
		}
		return err
	})
}

// doRequest performs a single POST and returns nil on 2xx.
func (r *Reporter) doRequest(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range r.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer iox.DiscardClose(resp.Body)

	// Drain body to allow connection reuse
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}

// Close releases idle connections.
func (r *Reporter) Close() error {
	r.client.CloseIdleConnections()
	return nil
}

var _ reporter.Reporter = (*Reporter)(nil)
