package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/pithecene-io/tally/iox"
	"github.com/pithecene-io/tally/metrics"
	"github.com/pithecene-io/tally/reporter"
)

func testReport() *reporter.MetricReport {
	mc := metrics.NewContext("writer", metrics.WithTags(map[string]string{"job.id": "job-1"}))
	mc.Counter("writer.records.written").Add(42)
	mc.Timer("writer.write.timer").Update(3 * time.Millisecond)
	return reporter.NewReport(mc.Snapshot(), time.Date(2026, 2, 7, 12, 0, 0, 0, time.UTC))
}

// asyncReceive reads one message from the subscriber in the background.
// Must be called BEFORE Report: miniredis delivers pub/sub synchronously.
func asyncReceive(sub *miniredis.Subscriber) <-chan miniredis.PubsubMessage {
	ch := make(chan miniredis.PubsubMessage, 1)
	go func() {
		ch <- <-sub.Messages()
	}()
	return ch
}

func waitMessage(t *testing.T, ch <-chan miniredis.PubsubMessage) miniredis.PubsubMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for pub/sub message")
		return miniredis.PubsubMessage{}
	}
}

func TestReport_Success(t *testing.T) {
	mr := miniredis.RunT(t)

	r, err := New(Config{URL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(iox.CloseFunc(r))

	sub := mr.NewSubscriber()
	sub.Subscribe(DefaultChannel)
	ch := asyncReceive(sub)

	if err := r.Report(t.Context(), testReport()); err != nil {
		t.Fatalf("report: %v", err)
	}

	msg := waitMessage(t, ch)
	if msg.Channel != DefaultChannel {
		t.Errorf("channel = %q, want %q", msg.Channel, DefaultChannel)
	}

	var received reporter.MetricReport
	if err := json.Unmarshal([]byte(msg.Message), &received); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if received.Context != "writer" {
		t.Errorf("context = %q, want writer", received.Context)
	}
	if received.EventType != reporter.EventType {
		t.Errorf("event_type = %q", received.EventType)
	}
	if received.Counters["writer.records.written"] != 42 {
		t.Errorf("counters = %v", received.Counters)
	}
	if received.Timers["writer.write.timer"].Count != 1 {
		t.Errorf("timers = %v", received.Timers)
	}
	if received.Tags["job.id"] != "job-1" {
		t.Errorf("tags = %v", received.Tags)
	}
}

func TestReport_CustomChannel(t *testing.T) {
	mr := miniredis.RunT(t)

	channel := "custom:metrics"
	r, err := New(Config{URL: "redis://" + mr.Addr(), Channel: channel})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(iox.CloseFunc(r))

	sub := mr.NewSubscriber()
	sub.Subscribe(channel)
	ch := asyncReceive(sub)

	if err := r.Report(t.Context(), testReport()); err != nil {
		t.Fatalf("report: %v", err)
	}
	if msg := waitMessage(t, ch); msg.Channel != channel {
		t.Errorf("channel = %q, want %q", msg.Channel, channel)
	}
}

func TestReport_ScheduledFinalReport(t *testing.T) {
	mr := miniredis.RunT(t)

	r, err := New(Config{URL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(iox.CloseFunc(r))

	reg := metrics.NewRegistry()
	mc := metrics.NewContext("writer")
	reg.Register(mc)
	mc.Counter("writer.records.written").Add(3)

	sub := mr.NewSubscriber()
	sub.Subscribe(DefaultChannel)
	ch := asyncReceive(sub)

	s := reporter.NewScheduled(r, reg, time.Hour, nil)
	if err := s.Stop(t.Context()); err != nil {
		t.Fatalf("stop: %v", err)
	}

	var received reporter.MetricReport
	if err := json.Unmarshal([]byte(waitMessage(t, ch).Message), &received); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !received.Final || received.Counters["writer.records.written"] != 3 {
		t.Errorf("received = %+v", received)
	}
}

func TestReport_ExhaustsRetries(t *testing.T) {
	r, err := New(Config{
		URL:     "redis://127.0.0.1:1",
		Retries: 2,
		Timeout: 100 * time.Millisecond,
		Backoff: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(iox.CloseFunc(r))

	if err := r.Report(t.Context(), testReport()); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
}

func TestReport_ContextCanceled(t *testing.T) {
	r, err := New(Config{URL: "redis://127.0.0.1:1", Retries: 5, Timeout: 10 * time.Second})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(iox.CloseFunc(r))

	ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
	defer cancel()

	if err := r.Report(ctx, testReport()); err == nil {
		t.Fatal("expected error on canceled context")
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"empty URL", Config{}},
		{"invalid URL", Config{URL: "not-a-redis-url"}},
		{"negative retries", Config{URL: "redis://localhost:6379", Retries: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNew_DefaultsApplied(t *testing.T) {
	mr := miniredis.RunT(t)

	r, err := New(Config{URL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(iox.CloseFunc(r))

	if r.config.Channel != DefaultChannel {
		t.Errorf("channel = %q, want %q", r.config.Channel, DefaultChannel)
	}
	if r.config.Timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", r.config.Timeout, DefaultTimeout)
	}
	if r.config.Backoff != reporter.DefaultBackoff {
		t.Errorf("backoff = %v, want %v", r.config.Backoff, reporter.DefaultBackoff)
	}
}

func TestClose_ReportFails(t *testing.T) {
	mr := miniredis.RunT(t)

	r, err := New(Config{URL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := r.Report(t.Context(), testReport()); err == nil {
		t.Fatal("expected error after close")
	}
}
