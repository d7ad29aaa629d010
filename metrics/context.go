package metrics

import (
	"maps"
	"sort"
	"sync"
)

// Context is a named collection of counters and timers.
type Context struct {
	name   string
	parent *Context
	tags   map[string]string // immutable after construction

	mu       sync.RWMutex
	counters map[string]*Counter
	timers   map[string]*Timer
	children []*Context
}

// ContextOption configures a Context at construction.
type ContextOption func(*Context)

// WithParent attaches the context under parent.
// The child inherits the parent's tags; its own tags win on conflict.
func WithParent(parent *Context) ContextOption {
	return func(c *Context) { c.parent = parent }
}

// WithTags attaches static tags to the context.
func WithTags(tags map[string]string) ContextOption {
	return func(c *Context) {
		maps.Copy(c.tags, tags)
	}
}

// NewContext creates a context with the given name.
func NewContext(name string, opts ...ContextOption) *Context {
	c := &Context{
		name:     name,
		tags:     make(map[string]string),
		counters: make(map[string]*Counter),
		timers:   make(map[string]*Timer),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.parent != nil {
		inherited := c.parent.Tags()
		maps.Copy(inherited, c.tags)
		c.tags = inherited
		c.parent.addChild(c)
	}
	return c
}

// Name returns the context's own name.
func (c *Context) Name() string {
	if c == nil {
		return ""
	}
	return c.name
}

// FullName returns the dotted path from the root context.
func (c *Context) FullName() string {
	if c == nil {
		return ""
	}
	if c.parent == nil {
		return c.name
	}
	return c.parent.FullName() + "." + c.name
}

// Parent returns the parent context, or nil for a root.
func (c *Context) Parent() *Context {
	if c == nil {
		return nil
	}
	return c.parent
}

// Tags returns a copy of the context's tags.
func (c *Context) Tags() map[string]string {
	if c == nil {
		return map[string]string{}
	}
	return maps.Clone(c.tags)
}

// Counter returns the counter registered under name, creating it once.
func (c *Context) Counter(name string) *Counter {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	ctr, ok := c.counters[name]
	c.mu.RUnlock()
	if ok {
		return ctr
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// re-check after acquiring write lock
	if ctr, ok = c.counters[name]; ok {
		return ctr
	}
	ctr = &Counter{}
	c.counters[name] = ctr
	return ctr
}

// Timer returns the timer registered under name, creating it once.
func (c *Context) Timer(name string) *Timer {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	tm, ok := c.timers[name]
	c.mu.RUnlock()
	if ok {
		return tm
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if tm, ok = c.timers[name]; ok {
		return tm
	}
	tm = &Timer{}
	c.timers[name] = tm
	return tm
}

// Child returns the first child named name, creating one if absent.
func (c *Context) Child(name string) *Context {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	for _, child := range c.children {
		if child.name == name {
			c.mu.RUnlock()
			return child
		}
	}
	c.mu.RUnlock()
	return NewContext(name, WithParent(c))
}

// Children returns the context's direct children in creation order.
func (c *Context) Children() []*Context {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*Context, len(c.children))
	copy(out, c.children)
	return out
}

func (c *Context) addChild(child *Context) {
	c.mu.Lock()
	c.children = append(c.children, child)
	c.mu.Unlock()
}

// Snapshot returns an immutable point-in-time view of the context.
// Safe to call while the context is being written.
func (c *Context) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{
			Tags:     map[string]string{},
			Counters: map[string]int64{},
			Timers:   map[string]TimerSnapshot{},
		}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	counters := make(map[string]int64, len(c.counters))
	for name, ctr := range c.counters {
		counters[name] = ctr.Count()
	}
	timers := make(map[string]TimerSnapshot, len(c.timers))
	for name, tm := range c.timers {
		timers[name] = tm.Snapshot()
	}

	return Snapshot{
		Name:     c.name,
		FullName: c.FullName(),
		Tags:     maps.Clone(c.tags),
		Counters: counters,
		Timers:   timers,
	}
}

// Snapshot is an immutable point-in-time view of a Context.
type Snapshot struct {
	Name     string                   `json:"name" yaml:"name"`
	FullName string                   `json:"full_name" yaml:"full_name"`
	Tags     map[string]string        `json:"tags" yaml:"tags"`
	Counters map[string]int64         `json:"counters" yaml:"counters"`
	Timers   map[string]TimerSnapshot `json:"timers" yaml:"timers"`
}

// CounterNames returns the snapshot's counter names in sorted order.
func (s Snapshot) CounterNames() []string {
	names := make([]string, 0, len(s.Counters))
	for name := range s.Counters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TimerNames returns the snapshot's timer names in sorted order.
func (s Snapshot) TimerNames() []string {
	names := make([]string, 0, len(s.Timers))
	for name := range s.Timers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
