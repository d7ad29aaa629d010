package reporter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pithecene-io/tally/log"
	"github.com/pithecene-io/tally/metrics"
)

// DefaultInterval is the default reporting period.
const DefaultInterval = 10 * time.Second

// Scheduled periodically reports every context in a registry.
//
// Start launches the loop; Stop ends it and sends one final report
// marked Final.
type Scheduled struct {
	reporter Reporter
	registry *metrics.Registry
	interval time.Duration
	logger   *log.Logger
	now      func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
}

// NewScheduled creates a scheduled reporter. A non-positive interval
// uses DefaultInterval; a nil logger discards.
func NewScheduled(r Reporter, registry *metrics.Registry, interval time.Duration, logger *log.Logger) *Scheduled {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Scheduled{
		reporter: r,
		registry: registry,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Start launches the reporting loop. It runs until ctx is done or Stop
// is called. Calling Start twice, or after Stop, is an error.
func (s *Scheduled) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return errors.New("scheduled reporter already stopped")
	}
	if s.done != nil {
		return errors.New("scheduled reporter already started")
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.loop(ctx)
	return nil
}

func (s *Scheduled) loop(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.ReportOnce(ctx, false); err != nil {
				s.logger.Warn("metric report failed", map[string]any{"error": err.Error()})
			}
		}
	}
}

// ReportOnce reports a snapshot of every registered context. Failures
// for individual contexts are joined.
func (s *Scheduled) ReportOnce(ctx context.Context, final bool) error {
	at := s.now()
	var errs []error
	for _, snap := range s.registry.Snapshots() {
		report := NewReport(snap, at)
		report.Final = final
		if err := s.reporter.Report(ctx, report); err != nil {
			errs = append(errs, fmt.Errorf("context %s: %w", snap.FullName, err))
		}
	}
	return errors.Join(errs...)
}

// Stop ends the loop, waits for it to exit and sends a final report.
// Only the first call reports.
func (s *Scheduled) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return s.ReportOnce(ctx, true)
}
