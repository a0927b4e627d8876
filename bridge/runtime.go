package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"llmbridge/shutdown"
)

// DefaultCloseTimeout bounds how long Close waits for in-flight engine
// calls before proceeding with teardown.
const DefaultCloseTimeout = 30 * time.Second

// CompletionSink receives the terminal record of every async request.
// Implementations must not block: the journal package satisfies this with a
// write-behind worker.
type CompletionSink interface {
	RecordCompletion(rec CompletionRecord)
}

// Observer receives engine-call lifecycle notifications for
// instrumentation. The metrics package provides a Prometheus-backed
// implementation.
type Observer interface {
	GenerationStarted()
	GenerationCompleted(success bool, duration time.Duration)
}

// Config configures a Runtime. The zero value is usable: a placeholder
// engine, nop logging, clamped default worker count, and no journal or
// metrics wiring.
type Config struct {
	// Engine is the inference capability the runtime invokes. Nil selects
	// the built-in placeholder engine, which simulates inference with a
	// canned reply.
	Engine Engine

	// Logger receives structured runtime logs. Nil disables logging.
	Logger *zap.Logger

	// Workers is the requested worker pool size. The value is clamped to
	// hardware concurrency, floored at MinWorkers, capped at MaxWorkers.
	Workers int

	// RetentionCap bounds the async request table. Non-positive selects
	// DefaultRetentionCap.
	RetentionCap int

	// Completions, when set, receives every terminal async request record.
	Completions CompletionSink

	// Observer, when set, receives engine-call instrumentation events.
	Observer Observer

	// CloseTimeout bounds how long Close waits for in-flight work.
	// Non-positive selects DefaultCloseTimeout.
	CloseTimeout time.Duration
}

// Runtime is the thread-safe bridge handle. It composes the model registry,
// worker pool, async request tracker, the shared last-error channel, and the
// active-inference counter into one owned object; holding all state on a
// handle rather than package-level statics allows multiple independent
// runtimes and keeps tests isolated. All methods may be called concurrently
// from any goroutine.
type Runtime struct {
	engine   Engine
	log      *zap.Logger
	registry modelRegistry
	lastErr  lastError
	pool     *workerPool
	tracker  *requestTracker
	ops      *shutdown.OperationTracker
	cleanup  *shutdown.Registry
	observer Observer

	closeTimeout time.Duration

	// baseCtx parents every async request context; Close cancels it to
	// thread cooperative cancellation through in-flight engine calls.
	baseCtx    context.Context
	cancelBase context.CancelFunc

	initOnce  sync.Once
	closeOnce sync.Once
	closeErr  error
}

// New creates a Runtime from cfg. The worker pool is not started until
// Init; async submissions before Init fail with ErrPoolNotInitialized.
func New(cfg Config) *Runtime {
	eng := cfg.Engine
	if eng == nil {
		eng = placeholderEngine{}
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	timeout := cfg.CloseTimeout
	if timeout <= 0 {
		timeout = DefaultCloseTimeout
	}

	baseCtx, cancel := context.WithCancel(context.Background())

	rt := &Runtime{
		engine:       eng,
		log:          log,
		pool:         newWorkerPool(cfg.Workers),
		tracker:      newRequestTracker(cfg.RetentionCap),
		ops:          shutdown.NewOperationTracker(),
		cleanup:      shutdown.NewRegistry(),
		observer:     cfg.Observer,
		closeTimeout: timeout,
		baseCtx:      baseCtx,
		cancelBase:   cancel,
	}

	if sink := cfg.Completions; sink != nil {
		rt.tracker.onDone = sink.RecordCompletion
	}

	rt.registerCleanup()
	return rt
}

// registerCleanup wires the runtime's own teardown steps. Caller hooks via
// OnClose run among these according to their priority.
func (rt *Runtime) registerCleanup() {
	rt.cleanup.Register("reject-new-work", 0, func(ctx context.Context) error {
		rt.ops.Close()
		rt.cancelBase()
		return nil
	})
	rt.cleanup.Register("worker-pool", 10, func(ctx context.Context) error {
		rt.pool.stop()
		return nil
	})
	rt.cleanup.Register("drain-inflight", 15, func(ctx context.Context) error {
		return rt.ops.Wait(rt.closeTimeout)
	})
	rt.cleanup.Register("model-registry", 20, func(ctx context.Context) error {
		rt.registry.unload()
		return nil
	})
}

// Init starts the worker pool. It must be called once before the first
// GenerateAsync; calling it again is a no-op. Init after Close fails with
// ErrRuntimeClosed.
func (rt *Runtime) Init() error {
	if rt.ops.IsClosed() {
		return opError("Init", "runtime already closed", ErrRuntimeClosed)
	}
	rt.initOnce.Do(func() {
		rt.pool.start()
		rt.log.Info("bridge runtime initialized",
			zap.Int("workers", rt.pool.workers),
		)
	})
	return nil
}

// Close tears the runtime down: new work is rejected, in-flight engine
// calls are cooperatively canceled and waited for (bounded by
// CloseTimeout), the worker pool is joined with queued tasks dropped and
// their records finalized, and the model registry is cleared. Close is
// idempotent and safe to call while workers are mid-task.
func (rt *Runtime) Close() error {
	rt.closeOnce.Do(func() {
		rt.log.Info("bridge runtime closing",
			zap.Int("queued_tasks", rt.pool.queueDepth()),
			zap.Int64("active_inferences", rt.ops.ActiveCount()),
		)
		ctx, cancel := context.WithTimeout(context.Background(), rt.closeTimeout)
		defer cancel()

		errs := rt.cleanup.Run(ctx)
		for _, err := range errs {
			rt.log.Warn("cleanup step failed", zap.Error(err))
		}
		rt.closeErr = errors.Join(errs...)
		rt.log.Info("bridge runtime closed")
	})
	return rt.closeErr
}

// OnClose registers an additional cleanup step executed during Close.
// Lower priority runs earlier; see the shutdown package for the priority
// convention. Registration after Close is a no-op.
func (rt *Runtime) OnClose(name string, priority int, fn func(ctx context.Context) error) {
	rt.cleanup.Register(name, priority, fn)
}

// =============================================================================
// Model Management
// =============================================================================

// LoadModel validates the path and atomically replaces model state.
// Non-positive contextSize and threadCount fall back to DefaultContextSize
// and DefaultThreadCount. Any previously loaded model is discarded.
func (rt *Runtime) LoadModel(path string, contextSize, threadCount int) error {
	if rt.ops.IsClosed() {
		return rt.failOp(opError("LoadModel", "runtime is closed", ErrRuntimeClosed))
	}
	if err := rt.registry.load(path, contextSize, threadCount); err != nil {
		return rt.failOp(err)
	}
	state := rt.registry.snapshot()
	rt.log.Info("model loaded",
		zap.String("path", state.Path),
		zap.Int("context_size", state.ContextSize),
		zap.Int("thread_count", state.ThreadCount),
	)
	return nil
}

// UnloadModel resets the registry to unloaded. Idempotent.
func (rt *Runtime) UnloadModel() {
	rt.registry.unload()
	rt.log.Info("model unloaded")
}

// IsModelLoaded reports whether a model is loaded. Point-in-time snapshot;
// may be stale immediately after return. Operations that need a loaded
// model re-check under their own lock.
func (rt *Runtime) IsModelLoaded() bool {
	return rt.registry.isLoaded()
}

// ContextSize returns the loaded model's context window, or 0 when
// unloaded.
func (rt *Runtime) ContextSize() int {
	return rt.registry.contextSizeNow()
}

// ModelState returns a snapshot of the registry.
func (rt *Runtime) ModelState() ModelState {
	return rt.registry.snapshot()
}

// =============================================================================
// Diagnostics
// =============================================================================

// LastError returns the most recently recorded failure message. The value
// is overwritten by every failing operation on any goroutine; per-request
// diagnostics belong to Request instead.
func (rt *Runtime) LastError() string {
	return rt.lastErr.get()
}

// ActiveInferenceCount returns the number of generation requests currently
// between dequeue and completion. Never negative.
func (rt *Runtime) ActiveInferenceCount() int64 {
	return rt.ops.ActiveCount()
}

// failOp records err on the shared last-error channel and returns it.
func (rt *Runtime) failOp(err error) error {
	rt.lastErr.setErr(err)
	return err
}

// =============================================================================
// Async Boundary
// =============================================================================

// AsyncRequest describes one async generation submission.
type AsyncRequest struct {
	// Prompt is the input text. Required.
	Prompt string

	// Params are the sampling parameters, copied on submission.
	Params GenerationParams

	// OnResult receives the final text, exactly once, on success.
	OnResult Callback

	// OnError receives the failure, at most once, when no result is
	// produced. Optional; the request record carries the error either way.
	OnError ErrorCallback
}

// Submit enqueues an async generation request and returns its id. Fails
// with ErrPoolNotInitialized before Init, ErrInvalidArgument for an empty
// prompt or invalid params.
func (rt *Runtime) Submit(areq AsyncRequest) (uint64, error) {
	if !rt.pool.running() {
		return 0, rt.failOp(opError("GenerateAsync", "worker pool is not running", ErrPoolNotInitialized))
	}
	if areq.Prompt == "" {
		return 0, rt.failOp(opError("GenerateAsync", "prompt is empty", ErrInvalidArgument))
	}
	if err := areq.Params.validate("GenerateAsync"); err != nil {
		return 0, rt.failOp(err)
	}

	reqCtx, cancel := context.WithCancel(rt.baseCtx)
	req := rt.tracker.add(areq.Prompt, areq.Params, areq.OnResult, areq.OnError, cancel)

	task := poolTask{
		run:     func() { rt.runRequest(reqCtx, req) },
		abandon: func() { rt.tracker.abandon(req) },
	}
	if err := rt.pool.enqueue(task); err != nil {
		// Pool stopped between the running check and the enqueue.
		rt.tracker.remove(req.id)
		cancel()
		return 0, rt.failOp(err)
	}

	rt.log.Debug("async request submitted",
		zap.Uint64("request_id", req.id),
		zap.Int("queue_depth", rt.pool.queueDepth()),
	)
	return req.id, nil
}

// GenerateAsync is the callback form of Submit: prompt, params, and a
// success callback.
func (rt *Runtime) GenerateAsync(prompt string, params GenerationParams, callback Callback) (uint64, error) {
	return rt.Submit(AsyncRequest{Prompt: prompt, Params: params, OnResult: callback})
}

// runRequest executes one tracked request on a worker goroutine. It calls
// the synchronous generation service and finalizes the record; completed
// is the final write.
func (rt *Runtime) runRequest(ctx context.Context, req *inferenceRequest) {
	if !rt.tracker.begin(req) {
		return // canceled while queued
	}

	text, err := rt.Generate(ctx, req.prompt, req.params)
	if err != nil {
		rt.log.Debug("async request failed",
			zap.Uint64("request_id", req.id),
			zap.Error(err),
		)
		rt.tracker.fail(req, err)
		return
	}
	rt.tracker.complete(req, text)
}

// Cancel cancels an async request. A request still queued is marked so the
// worker skips it; an in-flight request has its engine context canceled,
// relying on the engine honoring ctx between algorithmic steps. Canceling
// a completed request is a no-op; unknown ids fail with ErrRequestNotFound.
// Cancellation is cooperative and best-effort: an engine that never checks
// ctx runs its call to completion, but the record is marked canceled.
func (rt *Runtime) Cancel(id uint64) error {
	if err := rt.tracker.cancelRequest(id); err != nil {
		return rt.failOp(err)
	}
	rt.log.Debug("request canceled", zap.Uint64("request_id", id))
	return nil
}

// Request returns a point-in-time snapshot of an async request record.
func (rt *Runtime) Request(id uint64) (RequestStatus, error) {
	status, err := rt.tracker.status(id)
	if err != nil {
		return RequestStatus{}, rt.failOp(err)
	}
	return status, nil
}

// Release acknowledges a completed request, removing its record from the
// tracker. After Release the id is unreachable. Requests left unreleased
// are evicted oldest-first once the table exceeds the retention cap.
func (rt *Runtime) Release(id uint64) error {
	if err := rt.tracker.release(id); err != nil {
		return rt.failOp(err)
	}
	return nil
}

// TrackedRequests returns the number of request records currently held.
func (rt *Runtime) TrackedRequests() int {
	return rt.tracker.tracked()
}

// Workers returns the resolved worker pool size.
func (rt *Runtime) Workers() int {
	return rt.pool.workers
}

// String implements fmt.Stringer for diagnostic logging.
func (rt *Runtime) String() string {
	state := rt.registry.snapshot()
	return fmt.Sprintf("bridge.Runtime{loaded=%t workers=%d active=%d}",
		state.Loaded, rt.pool.workers, rt.ops.ActiveCount())
}
