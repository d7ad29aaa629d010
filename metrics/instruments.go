package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Counter is a monotonic counter. Safe for concurrent use.
type Counter struct {
	val atomic.Int64
}

// Inc increments the counter by one.
func (c *Counter) Inc() {
	if c == nil {
		return
	}
	c.val.Add(1)
}

// Add increments the counter by n.
func (c *Counter) Add(n int64) {
	if c == nil {
		return
	}
	c.val.Add(n)
}

// Count returns the current value.
func (c *Counter) Count() int64 {
	if c == nil {
		return 0
	}
	return c.val.Load()
}

// Timer aggregates durations: count, total, min and max.
// It keeps no buckets. Safe for concurrent use.
type Timer struct {
	mu    sync.Mutex
	count int64
	total time.Duration
	min   time.Duration
	max   time.Duration
}

// Update records one duration.
func (t *Timer) Update(d time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	if t.count == 0 {
		t.min, t.max = d, d
	} else {
		if d < t.min {
			t.min = d
		}
		if d > t.max {
			t.max = d
		}
	}
	t.count++
	t.total += d
	t.mu.Unlock()
}

// UpdateSince records the time elapsed since start.
func (t *Timer) UpdateSince(start time.Time) {
	t.Update(time.Since(start))
}

// Count returns the number of recorded durations.
func (t *Timer) Count() int64 {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// Snapshot returns the timer's current aggregate.
func (t *Timer) Snapshot() TimerSnapshot {
	if t == nil {
		return TimerSnapshot{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	s := TimerSnapshot{
		Count: t.count,
		Total: t.total,
		Min:   t.min,
		Max:   t.max,
	}
	if t.count > 0 {
		s.Mean = t.total / time.Duration(t.count)
	}
	return s
}

// TimerSnapshot is a point-in-time view of a Timer.
type TimerSnapshot struct {
	Count int64         `json:"count" yaml:"count"`
	Total time.Duration `json:"total_ns" yaml:"total_ns"`
	Min   time.Duration `json:"min_ns" yaml:"min_ns"`
	Max   time.Duration `json:"max_ns" yaml:"max_ns"`
	Mean  time.Duration `json:"mean_ns" yaml:"mean_ns"`
}
