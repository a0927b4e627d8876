// Package shutdown provides the in-flight operation tracking and ordered
// cleanup primitives the bridge runtime uses for accounting and deinit.
package shutdown

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrTrackerClosed is returned when starting an operation on a closed tracker.
var ErrTrackerClosed = errors.New("operation tracker is closed")

// ErrWaitTimeout is returned when Wait times out before operations complete.
var ErrWaitTimeout = errors.New("timed out waiting for in-flight operations")

// OperationTracker counts in-flight operations and supports a bounded wait
// for them during teardown. The bridge uses it as the active-inference
// counter: Start/Done bracket every engine invocation, so ActiveCount equals
// the number of requests between dequeue and completion, and it can never
// go negative while the Start/Done contract holds.
//
// Usage:
//
//	if !tracker.Start() {
//	    return ErrTrackerClosed // shutting down, reject work
//	}
//	defer tracker.Done()
type OperationTracker struct {
	mu     sync.Mutex
	wg     sync.WaitGroup
	active atomic.Int64
	closed bool
}

// NewOperationTracker returns a tracker ready for use.
func NewOperationTracker() *OperationTracker {
	return &OperationTracker{}
}

// Start registers a new in-flight operation. Returns false once the tracker
// is closed; the caller must then reject the operation and must not call
// Done. The check and the register happen under one lock so Close cannot
// slip between them.
func (t *OperationTracker) Start() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	t.wg.Add(1)
	t.active.Add(1)
	return true
}

// Done marks one operation complete. Must be called exactly once per
// successful Start.
func (t *OperationTracker) Done() {
	t.active.Add(-1)
	t.wg.Done()
}

// ActiveCount returns the current number of in-flight operations.
func (t *OperationTracker) ActiveCount() int64 {
	return t.active.Load()
}

// Close stops new operations from starting. In-flight operations continue
// until they call Done. Idempotent.
func (t *OperationTracker) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
}

// IsClosed reports whether the tracker has been closed.
func (t *OperationTracker) IsClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Wait blocks until every started operation has called Done, or the timeout
// elapses. Returns ErrWaitTimeout on timeout. The bound is what keeps
// deinit from hanging on a stuck engine call.
func (t *OperationTracker) Wait(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return ErrWaitTimeout
	}
}
