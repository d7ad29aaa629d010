package instrumented

import (
	"github.com/pithecene-io/tally/log"
	"github.com/pithecene-io/tally/metrics"
)

// Option configures a Base or Decorator.
type Option interface {
	apply(*settings)
}

type settings struct {
	logger   *log.Logger
	parent   *metrics.Context
	registry *metrics.Registry
	sizeOf   any // func(D) int64, checked against D in NewBase
}

type optionFunc func(*settings)

func (f optionFunc) apply(s *settings) { f(s) }

// WithLogger sets the logger used for write failures and lifecycle
// messages. Defaults to a no-op logger.
func WithLogger(l *log.Logger) Option {
	return optionFunc(func(s *settings) { s.logger = l })
}

// WithParentContext places the owned metric context under parent.
func WithParentContext(parent *metrics.Context) Option {
	return optionFunc(func(s *settings) { s.parent = parent })
}

// WithRegistry registers the canonical metric context in r.
// A Decorator over an already instrumented writer registers nothing:
// the wrapped writer owns the canonical context.
func WithRegistry(r *metrics.Registry) Option {
	return optionFunc(func(s *settings) { s.registry = r })
}

// WithRecordSize makes successful writes add fn(record) to the
// bytes.written counter. The record type must match the writer's.
func WithRecordSize[D any](fn func(D) int64) Option {
	return optionFunc(func(s *settings) { s.sizeOf = fn })
}

func buildSettings(opts []Option) settings {
	var s settings
	for _, o := range opts {
		if o != nil {
			o.apply(&s)
		}
	}
	if s.logger == nil {
		s.logger = log.Nop()
	}
	return s
}
