package bridge

import (
	"runtime"
	"sync"
)

// poolTask is an owned, self-contained unit of work. run executes the task
// on a worker; abandon fires when the pool stops before the task ran.
// No two tasks reference the same request.
type poolTask struct {
	run     func()
	abandon func()
}

// workerPool runs a fixed set of long-lived worker goroutines over a shared
// FIFO queue. Each worker loops Idle -> Running(task) -> Idle until it
// observes the stop flag, then terminates; submission never blocks the
// caller beyond the queue lock.
//
// On stop, queued-but-unexecuted tasks are not run; their abandon hook
// fires instead so owners can mark the request state rather than leave
// callers polling forever.
//
// The zero value is not usable; construct with newWorkerPool and call start
// before enqueue.
type workerPool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []poolTask
	workers int
	started bool
	stopped bool
	wg      sync.WaitGroup
}

// clampWorkerCount resolves a requested worker count against the host.
// Non-positive requests take the reported hardware concurrency; the result
// is floored at MinWorkers and capped at MaxWorkers. The cap avoids
// oversubscription on constrained hardware, the floor guarantees minimum
// parallelism for responsiveness.
func clampWorkerCount(requested int) int {
	hw := runtime.NumCPU()
	n := requested
	if n <= 0 || n > hw {
		n = hw
	}
	if n < MinWorkers {
		n = MinWorkers
	}
	if n > MaxWorkers {
		n = MaxWorkers
	}
	return n
}

// newWorkerPool creates a pool with the clamped worker count.
func newWorkerPool(requested int) *workerPool {
	return newWorkerPoolExact(clampWorkerCount(requested))
}

// newWorkerPoolExact creates a pool with exactly n workers, bypassing the
// clamp. Used by tests that need strict single-worker FIFO ordering.
func newWorkerPoolExact(n int) *workerPool {
	if n < 1 {
		n = 1
	}
	p := &workerPool{workers: n}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// start launches the worker goroutines. Idempotent; a stopped pool cannot
// be restarted.
func (p *workerPool) start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopped {
		return
	}
	p.started = true
	p.wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go p.workerLoop()
	}
}

// enqueue appends a task and wakes one idle worker. Fails with
// ErrPoolNotInitialized if the pool has not been started or has stopped.
func (p *workerPool) enqueue(t poolTask) error {
	p.mu.Lock()
	if !p.started || p.stopped {
		p.mu.Unlock()
		return opError("Enqueue", "worker pool is not running", ErrPoolNotInitialized)
	}
	p.queue = append(p.queue, t)
	p.mu.Unlock()
	p.cond.Signal()
	return nil
}

// workerLoop consumes tasks until the stop flag is observed. The stop check
// comes before the queue check so shutdown drops queued tasks instead of
// draining them, which bounds the join time.
func (p *workerPool) workerLoop() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for !p.stopped && len(p.queue) == 0 {
			p.cond.Wait()
		}
		if p.stopped {
			p.mu.Unlock()
			return
		}
		t := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		t.run()
	}
}

// stop sets the stop flag, wakes all workers, joins them, and fires the
// abandon hook for every task still queued. Idempotent. Tasks already
// running complete normally; stop blocks until they do.
func (p *workerPool) stop() {
	p.mu.Lock()
	if !p.started || p.stopped {
		p.stopped = true
		p.mu.Unlock()
		return
	}
	p.stopped = true
	dropped := p.queue
	p.queue = nil
	p.mu.Unlock()

	p.cond.Broadcast()
	p.wg.Wait()

	for _, t := range dropped {
		if t.abandon != nil {
			t.abandon()
		}
	}
}

// running reports whether the pool accepts tasks.
func (p *workerPool) running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started && !p.stopped
}

// queueDepth returns the number of queued, not-yet-dequeued tasks.
func (p *workerPool) queueDepth() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}
