package shutdown

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// CleanupFunc releases one resource during deinit. The context carries the
// overall teardown deadline.
type CleanupFunc func(ctx context.Context) error

// cleanupEntry holds a registered cleanup function with metadata.
type cleanupEntry struct {
	name     string
	fn       CleanupFunc
	priority int // lower = earlier execution
}

// Registry holds the ordered cleanup steps for runtime deinit. The bridge
// registers pool stop, model unload, journal close, and logger sync here so
// teardown always happens in one place, in one order.
//
// Usage:
//
//	reg := shutdown.NewRegistry()
//	reg.Register("worker-pool", 10, func(ctx context.Context) error {
//	    pool.Stop()
//	    return nil
//	})
//	reg.Register("journal", 30, func(ctx context.Context) error {
//	    return journal.Close()
//	})
//
//	errs := reg.Run(ctx)
type Registry struct {
	mu      sync.Mutex
	entries []cleanupEntry
	closed  bool
}

// NewRegistry creates a Registry ready to accept registrations.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a cleanup function. Lower priority values run earlier.
// Registration after Run is a no-op.
//
// Priority convention used by the bridge:
//   - 0-9: stop accepting work (close trackers)
//   - 10-19: stop background workers (worker pool)
//   - 20-29: release model state (registry unload)
//   - 30-39: close persistent resources (journal, files)
//   - 40+: flush diagnostics (logger sync)
func (r *Registry) Register(name string, priority int, fn CleanupFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.entries = append(r.entries, cleanupEntry{name: name, fn: fn, priority: priority})
}

// Run executes every registered cleanup function in priority order. All
// functions run even when earlier ones fail; failures come back annotated
// with the step name. Run is idempotent - the second call returns nil.
func (r *Registry) Run(ctx context.Context) []error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	sorted := make([]cleanupEntry, len(r.entries))
	copy(sorted, r.entries)
	r.mu.Unlock()

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].priority < sorted[j].priority
	})

	var errs []error
	for _, entry := range sorted {
		if err := entry.fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("cleanup %s: %w", entry.name, err))
		}
	}
	return errs
}

// Names returns registered step names in execution order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	sorted := make([]cleanupEntry, len(r.entries))
	copy(sorted, r.entries)
	r.mu.Unlock()

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].priority < sorted[j].priority
	})
	names := make([]string, len(sorted))
	for i, entry := range sorted {
		names[i] = entry.name
	}
	return names
}

// Count returns the number of registered cleanup functions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
