package shutdown

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestRegistry_NewRegistry(t *testing.T) {
	registry := NewRegistry()
	if registry == nil {
		t.Fatal("NewRegistry returned nil")
	}
	if registry.Count() != 0 {
		t.Errorf("expected 0 entries, got %d", registry.Count())
	}
}

func TestRegistry_RunPriorityOrder(t *testing.T) {
	// DOING: register steps out of priority order, then run.
	// EXPECT: execution follows ascending priority, stable within ties.
	registry := NewRegistry()

	var order []string
	record := func(name string) CleanupFunc {
		return func(ctx context.Context) error {
			order = append(order, name)
			return nil
		}
	}

	registry.Register("diagnostics", 40, record("diagnostics"))
	registry.Register("reject-work", 0, record("reject-work"))
	registry.Register("model", 20, record("model"))
	registry.Register("pool-a", 10, record("pool-a"))
	registry.Register("pool-b", 10, record("pool-b"))

	if errs := registry.Run(context.Background()); len(errs) != 0 {
		t.Fatalf("Run returned errors: %v", errs)
	}

	want := []string{"reject-work", "pool-a", "pool-b", "model", "diagnostics"}
	if len(order) != len(want) {
		t.Fatalf("ran %d steps, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("step %d = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestRegistry_RunCollectsErrors(t *testing.T) {
	// DOING: make one step fail between two succeeding ones.
	// EXPECT: every step still runs, and the failure comes back
	// annotated with its name.
	registry := NewRegistry()

	ran := 0
	count := func(ctx context.Context) error { ran++; return nil }
	registry.Register("first", 0, count)
	registry.Register("broken", 10, func(ctx context.Context) error {
		ran++
		return errors.New("resource busy")
	})
	registry.Register("last", 20, count)

	errs := registry.Run(context.Background())
	if ran != 3 {
		t.Errorf("ran %d steps, want 3", ran)
	}
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1: %v", len(errs), errs)
	}
	if !strings.Contains(errs[0].Error(), "broken") {
		t.Errorf("error %v missing failing step name", errs[0])
	}
}

func TestRegistry_RunIdempotent(t *testing.T) {
	registry := NewRegistry()

	runs := 0
	registry.Register("step", 0, func(ctx context.Context) error {
		runs++
		return nil
	})

	registry.Run(context.Background())
	if errs := registry.Run(context.Background()); errs != nil {
		t.Errorf("second Run returned %v, want nil", errs)
	}
	if runs != 1 {
		t.Errorf("step ran %d times, want 1", runs)
	}
}

func TestRegistry_RegisterAfterRun(t *testing.T) {
	registry := NewRegistry()
	registry.Run(context.Background())

	registry.Register("late", 0, func(ctx context.Context) error {
		t.Error("late registration executed")
		return nil
	})
	registry.Run(context.Background())
}

func TestRegistry_Names(t *testing.T) {
	registry := NewRegistry()
	registry.Register("b", 20, func(ctx context.Context) error { return nil })
	registry.Register("a", 10, func(ctx context.Context) error { return nil })

	names := registry.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("Names = %v, want [a b]", names)
	}
}

func TestRegistry_ConcurrentRegister(t *testing.T) {
	registry := NewRegistry()

	var wg sync.WaitGroup
	const n = 20
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			registry.Register("step", 10, func(ctx context.Context) error { return nil })
		}()
	}
	wg.Wait()

	if registry.Count() != n {
		t.Errorf("Count = %d, want %d", registry.Count(), n)
	}
}
