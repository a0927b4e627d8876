package bridge

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// inferenceRequest is one tracked async generation request. Fields after
// cancel are guarded by the owning tracker's mutex.
type inferenceRequest struct {
	id       uint64
	prompt   string
	params   GenerationParams
	callback Callback
	onError  ErrorCallback
	cancel   context.CancelFunc

	started    bool
	canceled   bool
	completed  bool
	success    bool
	result     string
	errMsg     string
	createdAt  time.Time
	startedAt  time.Time
	finishedAt time.Time
}

// CompletionRecord is the terminal view of a request handed to the
// completion hook (journal, metrics). Built under the tracker lock,
// consumed outside it.
type CompletionRecord struct {
	ID        uint64
	Prompt    string
	Params    GenerationParams
	Result    string
	Success   bool
	Canceled  bool
	Err       string
	CreatedAt time.Time
	Duration  time.Duration
}

// requestTracker issues unique ascending request ids and owns every
// submitted request record from creation until release. It is the only
// component that mutates record state, always under its lock; the executing
// worker reaches records exclusively through tracker methods.
//
// Write ordering on completion: result and success are stored first, the
// caller's callback fires exactly once, and completed=true is the final
// write, under the lock. A poller that observes Completed therefore
// observes the finished result.
//
// Construct with newRequestTracker.
type requestTracker struct {
	mu       sync.Mutex
	nextID   atomic.Uint64
	requests map[uint64]*inferenceRequest
	// completion order, oldest first; drives retention eviction
	done      []uint64
	retention int

	// onDone, when set, receives every terminal record after the final
	// completed write. Called outside the lock.
	onDone func(CompletionRecord)
}

// newRequestTracker creates a tracker retaining at most retention completed
// records. Non-positive retention takes DefaultRetentionCap.
func newRequestTracker(retention int) *requestTracker {
	if retention <= 0 {
		retention = DefaultRetentionCap
	}
	return &requestTracker{
		requests:  make(map[uint64]*inferenceRequest),
		retention: retention,
	}
}

// add creates a request record with the next ascending id. The prompt and
// params are owned copies; nothing aliases caller memory after add returns.
func (t *requestTracker) add(prompt string, params GenerationParams, cb Callback, errCb ErrorCallback, cancel context.CancelFunc) *inferenceRequest {
	req := &inferenceRequest{
		id:        t.nextID.Add(1),
		prompt:    prompt,
		params:    params.clone(),
		callback:  cb,
		onError:   errCb,
		cancel:    cancel,
		createdAt: time.Now(),
	}
	t.mu.Lock()
	t.requests[req.id] = req
	t.mu.Unlock()
	return req
}

// begin transitions a dequeued request to running. Returns false when the
// request was canceled while queued; the worker must then skip execution.
// A canceled-while-queued request is finalized here.
func (t *requestTracker) begin(req *inferenceRequest) bool {
	t.mu.Lock()
	if req.canceled {
		req.errMsg = ErrRequestCanceled.Error()
		errCb := req.onError
		t.mu.Unlock()
		if errCb != nil {
			errCb(ErrRequestCanceled)
		}
		t.finalize(req)
		return false
	}
	req.started = true
	req.startedAt = time.Now()
	t.mu.Unlock()
	return true
}

// complete records a successful result, invokes the callback exactly once
// outside the lock, then marks completed as the final write.
func (t *requestTracker) complete(req *inferenceRequest, text string) {
	t.mu.Lock()
	req.result = text
	req.success = true
	cb := req.callback
	t.mu.Unlock()

	if cb != nil {
		cb(text)
	}
	t.finalize(req)
}

// fail records a failure, invokes the error callback at most once outside
// the lock, then marks completed as the final write. Context cancellation
// is recorded as a cancel, not an engine failure.
func (t *requestTracker) fail(req *inferenceRequest, err error) {
	canceled := errors.Is(err, context.Canceled) || errors.Is(err, ErrRequestCanceled)

	t.mu.Lock()
	req.canceled = req.canceled || canceled
	req.errMsg = err.Error()
	errCb := req.onError
	t.mu.Unlock()

	if errCb != nil {
		errCb(err)
	}
	t.finalize(req)
}

// abandon finalizes a request whose task was dropped by pool shutdown
// without ever executing. No callback fires; the record alone carries the
// outcome, so a poller never hangs on the id.
func (t *requestTracker) abandon(req *inferenceRequest) {
	t.mu.Lock()
	req.canceled = true
	req.errMsg = "dropped at shutdown before execution"
	t.mu.Unlock()
	t.finalize(req)
}

// finalize marks completed=true as the record's final write, applies the
// retention cap, and hands the terminal record to the completion hook.
func (t *requestTracker) finalize(req *inferenceRequest) {
	t.mu.Lock()
	if req.completed {
		t.mu.Unlock()
		return
	}
	req.completed = true
	req.finishedAt = time.Now()
	t.done = append(t.done, req.id)
	t.evictLocked()

	var rec CompletionRecord
	hook := t.onDone
	if hook != nil {
		rec = recordLocked(req)
	}
	t.mu.Unlock()

	if hook != nil {
		hook(rec)
	}
}

// recordLocked builds the terminal record. Caller holds the lock.
func recordLocked(req *inferenceRequest) CompletionRecord {
	return CompletionRecord{
		ID:        req.id,
		Prompt:    req.prompt,
		Params:    req.params,
		Result:    req.result,
		Success:   req.success,
		Canceled:  req.canceled,
		Err:       req.errMsg,
		CreatedAt: req.createdAt,
		Duration:  req.finishedAt.Sub(req.createdAt),
	}
}

// evictLocked drops the oldest completed records while the table exceeds
// the retention cap. In-flight records are never evicted.
func (t *requestTracker) evictLocked() {
	for len(t.requests) > t.retention && len(t.done) > 0 {
		oldest := t.done[0]
		t.done = t.done[1:]
		delete(t.requests, oldest)
	}
}

// cancelRequest cancels a tracked request. A queued request is marked for
// skip; an in-flight request has its engine context canceled and is
// finalized by the executing worker. Canceling an already-completed request
// is a no-op. Unknown ids fail with ErrRequestNotFound.
func (t *requestTracker) cancelRequest(id uint64) error {
	t.mu.Lock()
	req, ok := t.requests[id]
	if !ok {
		t.mu.Unlock()
		return opError("Cancel", "no such request", ErrRequestNotFound)
	}
	if req.completed {
		t.mu.Unlock()
		return nil
	}
	req.canceled = true
	cancel := req.cancel
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return nil
}

// status returns a snapshot of the request record.
func (t *requestTracker) status(id uint64) (RequestStatus, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	req, ok := t.requests[id]
	if !ok {
		return RequestStatus{}, opError("Request", "no such request", ErrRequestNotFound)
	}
	return RequestStatus{
		ID:        req.id,
		Completed: req.completed,
		Success:   req.success,
		Canceled:  req.canceled,
		Result:    req.result,
		Err:       req.errMsg,
	}, nil
}

// release removes a completed record from the table, making the id
// unreachable. Releasing an in-flight request is an error; releasing an
// unknown id fails with ErrRequestNotFound.
func (t *requestTracker) release(id uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	req, ok := t.requests[id]
	if !ok {
		return opError("Release", "no such request", ErrRequestNotFound)
	}
	if !req.completed {
		return opError("Release", "request is still in flight", ErrInvalidArgument)
	}
	delete(t.requests, id)
	for i, done := range t.done {
		if done == id {
			t.done = append(t.done[:i], t.done[i+1:]...)
			break
		}
	}
	return nil
}

// remove deletes a record outright. Used only to back out a submission
// whose enqueue failed; the id is simply skipped.
func (t *requestTracker) remove(id uint64) {
	t.mu.Lock()
	delete(t.requests, id)
	t.mu.Unlock()
}

// tracked returns the number of records currently in the table.
func (t *requestTracker) tracked() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.requests)
}
