package busy

import "sync"

// Coordinator is the reference-counted "is the app busy" signal. Unrelated
// features call Start/Stop around their own async work; the blocking loading
// indicator stays visible while any of them is still pending, which a plain
// boolean cannot guarantee.
type Coordinator struct {
	mu       sync.Mutex
	count    int
	onChange func(loading bool)
}

// CoordinatorOption modifies a Coordinator instance.
type CoordinatorOption func(*Coordinator)

// WithChangeFunc registers a callback invoked when the visible loading state
// transitions (false->true on the first Start, true->false on the last Stop).
// The callback runs under the coordinator's lock and must not call back in.
func WithChangeFunc(fn func(loading bool)) CoordinatorOption {
	return func(c *Coordinator) {
		c.onChange = fn
	}
}

// NewCoordinator creates a Coordinator with the counter at zero.
func NewCoordinator(options ...CoordinatorOption) *Coordinator {
	c := &Coordinator{}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// StartLoading increments the counter.
func (c *Coordinator) StartLoading() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.count++
	if c.count == 1 && c.onChange != nil {
		c.onChange(true)
	}
}

// StopLoading decrements the counter, floored at zero. Extra stops from
// mismatched callers are ignored rather than driving the counter negative.
func (c *Coordinator) StopLoading() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.count == 0 {
		return
	}
	c.count--
	if c.count == 0 && c.onChange != nil {
		c.onChange(false)
	}
}

// Loading reports whether any caller is still pending.
func (c *Coordinator) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count > 0
}

// Count returns the current reference count.
func (c *Coordinator) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}
