// Package state provides the property bag handed to writer constructors.
//
// A State is a flat set of string properties. Nested YAML mappings are
// flattened with dots, so
//
//	metrics:
//	  enabled: false
//
// is read back as GetBool("metrics.enabled", true).
package state

import (
	"maps"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Well-known property keys.
const (
	// KeyMetricsEnabled toggles instrumentation (default true).
	KeyMetricsEnabled = "metrics.enabled"
	// KeyMetricsContextName names the metric context (default "writer").
	KeyMetricsContextName = "metrics.context.name"
	// KeyMetricsTagPrefix prefixes properties copied into context tags.
	KeyMetricsTagPrefix = "metrics.tag."
	// KeyJobName is the job name, copied into context tags.
	KeyJobName = "job.name"
	// KeyJobID is the job identifier, copied into context tags.
	KeyJobID = "job.id"
	// KeyTaskID is the task identifier, copied into context tags.
	KeyTaskID = "task.id"
)

// State is a concurrency-safe string property bag.
// The zero value is empty and ready to use.
type State struct {
	mu    sync.RWMutex
	props map[string]string
}

// New creates a State holding a copy of props.
func New(props map[string]string) *State {
	s := &State{props: make(map[string]string, len(props))}
	maps.Copy(s.props, props)
	return s
}

// Set stores a property.
func (s *State) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.props == nil {
		s.props = make(map[string]string)
	}
	s.props[key] = value
}

// Get returns a property and whether it is present.
// A nil State has no properties.
func (s *State) Get(key string) (string, bool) {
	if s == nil {
		return "", false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.props[key]
	return v, ok
}

// GetString returns a property, or def when absent.
func (s *State) GetString(key, def string) string {
	if v, ok := s.Get(key); ok {
		return v
	}
	return def
}

// GetBool returns a boolean property, or def when absent or unparsable.
func (s *State) GetBool(key string, def bool) bool {
	v, ok := s.Get(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}

// GetInt returns an integer property, or def when absent or unparsable.
func (s *State) GetInt(key string, def int) int {
	v, ok := s.Get(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

// WithPrefix returns properties whose key starts with prefix, keyed by
// the remainder of the key.
func (s *State) WithPrefix(prefix string) map[string]string {
	out := make(map[string]string)
	if s == nil {
		return out
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for k, v := range s.props {
		if rest, ok := strings.CutPrefix(k, prefix); ok && rest != "" {
			out[rest] = v
		}
	}
	return out
}

// Keys returns all property keys in sorted order.
func (s *State) Keys() []string {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.props))
	for k := range s.props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Properties returns a copy of all properties.
func (s *State) Properties() map[string]string {
	if s == nil {
		return map[string]string{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.props)
}
