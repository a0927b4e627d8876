package shutdown

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestOperationTracker_NewOperationTracker(t *testing.T) {
	tracker := NewOperationTracker()
	if tracker == nil {
		t.Fatal("NewOperationTracker returned nil")
	}
	if tracker.ActiveCount() != 0 {
		t.Errorf("expected 0 active operations, got %d", tracker.ActiveCount())
	}
	if tracker.IsClosed() {
		t.Error("new tracker should not be closed")
	}
}

func TestOperationTracker_StartDone(t *testing.T) {
	tracker := NewOperationTracker()

	if !tracker.Start() {
		t.Error("Start should return true on open tracker")
	}
	if tracker.ActiveCount() != 1 {
		t.Errorf("expected 1 active operation, got %d", tracker.ActiveCount())
	}

	tracker.Done()
	if tracker.ActiveCount() != 0 {
		t.Errorf("expected 0 active operations after Done, got %d", tracker.ActiveCount())
	}
}

func TestOperationTracker_StartAfterClose(t *testing.T) {
	tracker := NewOperationTracker()
	tracker.Close()

	if tracker.Start() {
		t.Error("Start should return false on closed tracker")
	}
	if !tracker.IsClosed() {
		t.Error("tracker should report closed")
	}
}

func TestOperationTracker_CloseIdempotent(t *testing.T) {
	tracker := NewOperationTracker()
	tracker.Close()
	tracker.Close() // must not panic
	if !tracker.IsClosed() {
		t.Error("tracker should remain closed")
	}
}

func TestOperationTracker_WaitCompletes(t *testing.T) {
	// DOING: wait while operations finish on other goroutines.
	// EXPECT: Wait returns nil once every Done has landed.
	tracker := NewOperationTracker()

	const n = 10
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		if !tracker.Start() {
			t.Fatal("Start failed on open tracker")
		}
		go func() {
			defer wg.Done()
			time.Sleep(10 * time.Millisecond)
			tracker.Done()
		}()
	}

	if err := tracker.Wait(5 * time.Second); err != nil {
		t.Errorf("Wait returned %v, want nil", err)
	}
	wg.Wait()
	if tracker.ActiveCount() != 0 {
		t.Errorf("expected 0 active operations, got %d", tracker.ActiveCount())
	}
}

func TestOperationTracker_WaitTimeout(t *testing.T) {
	// DOING: wait on a tracker holding a stuck operation.
	// EXPECT: Wait returns ErrWaitTimeout instead of hanging.
	tracker := NewOperationTracker()
	if !tracker.Start() {
		t.Fatal("Start failed")
	}

	err := tracker.Wait(50 * time.Millisecond)
	if !errors.Is(err, ErrWaitTimeout) {
		t.Errorf("Wait returned %v, want ErrWaitTimeout", err)
	}

	tracker.Done()
}

func TestOperationTracker_ConcurrentStartDone(t *testing.T) {
	tracker := NewOperationTracker()

	const goroutines, iterations = 8, 100
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				if tracker.Start() {
					tracker.Done()
				}
			}
		}()
	}
	wg.Wait()

	if tracker.ActiveCount() != 0 {
		t.Errorf("expected 0 active operations, got %d", tracker.ActiveCount())
	}
}

func TestOperationTracker_CloseDuringInflight(t *testing.T) {
	// Close rejects new starts but existing operations finish normally.
	tracker := NewOperationTracker()
	if !tracker.Start() {
		t.Fatal("Start failed")
	}

	tracker.Close()
	if tracker.Start() {
		t.Error("Start succeeded after Close")
	}
	if tracker.ActiveCount() != 1 {
		t.Errorf("in-flight operation lost on Close: count = %d", tracker.ActiveCount())
	}

	tracker.Done()
	if err := tracker.Wait(time.Second); err != nil {
		t.Errorf("Wait returned %v after final Done", err)
	}
}
