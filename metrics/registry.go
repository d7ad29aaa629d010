package metrics

import "sync"

// Registry holds the canonical metric contexts visible to reporting
// infrastructure. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	contexts []*Context
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds c to the registry.
// Returns false if c is nil or already registered.
func (r *Registry) Register(c *Context) bool {
	if r == nil || c == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.contexts {
		if existing == c {
			return false
		}
	}
	r.contexts = append(r.contexts, c)
	return true
}

// Unregister removes c from the registry.
func (r *Registry) Unregister(c *Context) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.contexts {
		if existing == c {
			r.contexts = append(r.contexts[:i], r.contexts[i+1:]...)
			return
		}
	}
}

// Contexts returns the registered contexts in registration order.
func (r *Registry) Contexts() []*Context {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Context, len(r.contexts))
	copy(out, r.contexts)
	return out
}

// Snapshots returns a snapshot of every registered context.
func (r *Registry) Snapshots() []Snapshot {
	contexts := r.Contexts()
	out := make([]Snapshot, 0, len(contexts))
	for _, c := range contexts {
		out = append(out, c.Snapshot())
	}
	return out
}
