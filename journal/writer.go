package journal

import (
	"sync"
	"sync/atomic"
	"time"

	"llmbridge/bridge"
)

const (
	defaultQueueCapacity = 256
	defaultDrainTimeout  = 10 * time.Second
)

// asyncWriter decouples completion recording from SQLite latency: enqueue
// never blocks, a single goroutine performs the actual writes, and stop
// drains whatever is buffered within a bound.
type asyncWriter struct {
	queue   chan bridge.CompletionRecord
	handle  func(bridge.CompletionRecord)
	timeout time.Duration

	droppedCount atomic.Int64
	startOnce    sync.Once
	stopOnce     sync.Once
	done         chan struct{}
}

func newAsyncWriter(handle func(bridge.CompletionRecord), capacity int, timeout time.Duration) *asyncWriter {
	if capacity <= 0 {
		capacity = defaultQueueCapacity
	}
	if timeout <= 0 {
		timeout = defaultDrainTimeout
	}
	return &asyncWriter{
		queue:   make(chan bridge.CompletionRecord, capacity),
		handle:  handle,
		timeout: timeout,
		done:    make(chan struct{}),
	}
}

func (w *asyncWriter) start() {
	w.startOnce.Do(func() {
		go w.loop()
	})
}

// loop consumes the queue until it is closed, then exits. Draining on
// shutdown is just continuing to range until close.
func (w *asyncWriter) loop() {
	defer close(w.done)
	for rec := range w.queue {
		w.handle(rec)
	}
}

// enqueue queues one record without blocking. Returns false when the
// buffer is full; the record is then dropped and counted.
func (w *asyncWriter) enqueue(rec bridge.CompletionRecord) (ok bool) {
	defer func() {
		// Enqueue after stop loses the race; treat it as a drop
		// rather than a panic.
		if recover() != nil {
			w.droppedCount.Add(1)
			ok = false
		}
	}()

	select {
	case w.queue <- rec:
		return true
	default:
		w.droppedCount.Add(1)
		return false
	}
}

// stop closes the queue and waits for the worker to finish draining it,
// bounded by the drain timeout. Idempotent.
func (w *asyncWriter) stop() {
	w.stopOnce.Do(func() {
		close(w.queue)
		select {
		case <-w.done:
		case <-time.After(w.timeout):
		}
	})
}

func (w *asyncWriter) dropped() int64 {
	return w.droppedCount.Load()
}
