package bridge

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// =============================================================================
// Parameter Validation Tests
// =============================================================================

func TestGenerationParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*GenerationParams)
		wantErr bool
	}{
		{"defaults are valid", func(p *GenerationParams) {}, false},
		{"unbounded max tokens", func(p *GenerationParams) { p.MaxTokens = -1 }, false},
		{"zero max tokens", func(p *GenerationParams) { p.MaxTokens = 0 }, false},
		{"max tokens below -1", func(p *GenerationParams) { p.MaxTokens = -2 }, true},
		{"negative temperature", func(p *GenerationParams) { p.Temperature = -0.1 }, true},
		{"zero temperature", func(p *GenerationParams) { p.Temperature = 0 }, false},
		{"top-p above one", func(p *GenerationParams) { p.TopP = 1.5 }, true},
		{"top-p negative", func(p *GenerationParams) { p.TopP = -0.5 }, true},
		{"top-p boundary one", func(p *GenerationParams) { p.TopP = 1 }, false},
		{"negative top-k", func(p *GenerationParams) { p.TopK = -1 }, true},
		{"zero top-k disables", func(p *GenerationParams) { p.TopK = 0 }, false},
		{"negative repeat penalty", func(p *GenerationParams) { p.RepeatPenalty = -1 }, true},
		{"negative repeat window", func(p *GenerationParams) { p.RepeatWindow = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := DefaultGenerationParams()
			tt.mutate(&params)
			err := params.validate("Test")
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidArgument) {
					t.Errorf("validate = %v, want ErrInvalidArgument", err)
				}
				return
			}
			if err != nil {
				t.Errorf("validate failed: %v", err)
			}
		})
	}
}

func TestGenerationParamsNormalized(t *testing.T) {
	p := GenerationParams{MaxTokens: 0}
	if got := p.normalized().MaxTokens; got != DefaultMaxTokens {
		t.Errorf("normalized MaxTokens = %d, want %d", got, DefaultMaxTokens)
	}
	p = GenerationParams{MaxTokens: -1}
	if got := p.normalized().MaxTokens; got != -1 {
		t.Errorf("normalized MaxTokens = %d, want -1 unchanged", got)
	}
}

func TestGenerationParamsClone(t *testing.T) {
	// Stop sequences must not be shared after cloning.
	orig := GenerationParams{StopSequences: []string{"###"}}
	cloned := orig.clone()
	cloned.StopSequences[0] = "mutated"
	if orig.StopSequences[0] != "###" {
		t.Error("clone shares StopSequences backing array")
	}
}

// =============================================================================
// Generate Tests
// =============================================================================

func TestGenerateRequiresModel(t *testing.T) {
	// DOING: generate with no model loaded.
	// EXPECT: ModelNotLoaded, and the engine is never invoked.
	var calls atomic.Int64
	rt := New(Config{Engine: EngineFunc(func(ctx context.Context, prompt string, params GenerationParams) (string, error) {
		calls.Add(1)
		return "never", nil
	})})
	defer rt.Close()

	_, err := rt.Generate(context.Background(), "hello", DefaultGenerationParams())
	if !errors.Is(err, ErrModelNotLoaded) {
		t.Errorf("Generate = %v, want ErrModelNotLoaded", err)
	}
	if calls.Load() != 0 {
		t.Error("engine invoked without a loaded model")
	}
}

func TestGenerateValidatesBeforeEngine(t *testing.T) {
	var calls atomic.Int64
	rt := newTestRuntime(t, EngineFunc(func(ctx context.Context, prompt string, params GenerationParams) (string, error) {
		calls.Add(1)
		return "ok", nil
	}))

	if _, err := rt.Generate(context.Background(), "", DefaultGenerationParams()); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("empty prompt = %v, want ErrInvalidArgument", err)
	}

	bad := DefaultGenerationParams()
	bad.TopP = 2
	if _, err := rt.Generate(context.Background(), "hello", bad); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("bad top-p = %v, want ErrInvalidArgument", err)
	}

	if calls.Load() != 0 {
		t.Error("engine invoked for invalid input")
	}
}

func TestGenerateNormalizesMaxTokens(t *testing.T) {
	var seen atomic.Int64
	rt := newTestRuntime(t, EngineFunc(func(ctx context.Context, prompt string, params GenerationParams) (string, error) {
		seen.Store(int64(params.MaxTokens))
		return "ok", nil
	}))

	params := DefaultGenerationParams()
	params.MaxTokens = 0
	if _, err := rt.Generate(context.Background(), "hello", params); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if seen.Load() != DefaultMaxTokens {
		t.Errorf("engine saw MaxTokens = %d, want %d", seen.Load(), DefaultMaxTokens)
	}
}

func TestGenerateWrapsEngineFailure(t *testing.T) {
	engineErr := errors.New("weights corrupted")
	rt := newTestRuntime(t, EngineFunc(func(ctx context.Context, prompt string, params GenerationParams) (string, error) {
		return "", engineErr
	}))

	_, err := rt.Generate(context.Background(), "hello", DefaultGenerationParams())
	if !errors.Is(err, ErrEngineFailure) {
		t.Errorf("Generate = %v, want ErrEngineFailure", err)
	}
	if !errors.Is(err, engineErr) {
		t.Error("underlying engine cause lost")
	}
	if rt.ActiveInferenceCount() != 0 {
		t.Errorf("active count = %d after failure, want 0", rt.ActiveInferenceCount())
	}
}

func TestGenerateClassifiesCancellation(t *testing.T) {
	rt := newTestRuntime(t, EngineFunc(func(ctx context.Context, prompt string, params GenerationParams) (string, error) {
		return "", context.Canceled
	}))

	_, err := rt.Generate(context.Background(), "hello", DefaultGenerationParams())
	if !errors.Is(err, ErrRequestCanceled) {
		t.Errorf("Generate = %v, want ErrRequestCanceled", err)
	}
	if StatusCode(err) != StatusRequestCanceled {
		t.Errorf("StatusCode = %d, want %d", StatusCode(err), StatusRequestCanceled)
	}
}

func TestGenerateTracksActiveCount(t *testing.T) {
	// DOING: observe the active count from inside an engine call.
	// EXPECT: positive during the call, zero after.
	var rt *Runtime
	observed := make(chan int64, 1)
	rt = newTestRuntime(t, EngineFunc(func(ctx context.Context, prompt string, params GenerationParams) (string, error) {
		observed <- rt.ActiveInferenceCount()
		return "ok", nil
	}))

	if _, err := rt.Generate(context.Background(), "hello", DefaultGenerationParams()); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got := <-observed; got != 1 {
		t.Errorf("active count during call = %d, want 1", got)
	}
	if got := rt.ActiveInferenceCount(); got != 0 {
		t.Errorf("active count after call = %d, want 0", got)
	}
}

func TestPlaceholderEngineReply(t *testing.T) {
	rt := newTestRuntime(t, nil) // nil engine selects the placeholder

	text, err := rt.Generate(context.Background(), "anything at all", DefaultGenerationParams())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !strings.Contains(text, "local AI assistant") {
		t.Errorf("placeholder reply = %q, want the canned text", text)
	}
}

// =============================================================================
// GenerateBounded Tests
// =============================================================================

func TestGenerateBounded(t *testing.T) {
	const reply = "0123456789" // 10 bytes
	rt := newTestRuntime(t, EngineFunc(func(ctx context.Context, prompt string, params GenerationParams) (string, error) {
		return reply, nil
	}))

	tests := []struct {
		name          string
		capacity      int
		wantText      string
		wantTruncated bool
	}{
		{"roomy capacity", 64, reply, false},
		{"exact fit needs one spare byte", 10, reply[:9], true},
		{"one spare byte", 11, reply, false},
		{"tight capacity", 4, "012", true},
		{"capacity one holds nothing", 1, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := rt.GenerateBounded(context.Background(), "hello", DefaultGenerationParams(), tt.capacity)
			if err != nil {
				t.Fatalf("GenerateBounded failed: %v", err)
			}
			if res.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", res.Text, tt.wantText)
			}
			if res.Length != len(tt.wantText) {
				t.Errorf("Length = %d, want %d", res.Length, len(tt.wantText))
			}
			if res.Truncated != tt.wantTruncated {
				t.Errorf("Truncated = %t, want %t", res.Truncated, tt.wantTruncated)
			}
		})
	}
}

func TestGenerateBoundedInvalidCapacity(t *testing.T) {
	rt := newTestRuntime(t, echoEngine())
	for _, capacity := range []int{0, -1} {
		if _, err := rt.GenerateBounded(context.Background(), "hello", DefaultGenerationParams(), capacity); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("capacity %d = %v, want ErrInvalidArgument", capacity, err)
		}
	}
}

// =============================================================================
// Observer Tests
// =============================================================================

type countingObserver struct {
	started   atomic.Int64
	completed atomic.Int64
	succeeded atomic.Int64
}

func (o *countingObserver) GenerationStarted() { o.started.Add(1) }
func (o *countingObserver) GenerationCompleted(success bool, d time.Duration) {
	o.completed.Add(1)
	if success {
		o.succeeded.Add(1)
	}
}

func TestGenerateNotifiesObserver(t *testing.T) {
	obs := &countingObserver{}
	rt := New(Config{Engine: echoEngine(), Observer: obs, CloseTimeout: time.Second})
	t.Cleanup(func() { rt.Close() })
	if err := rt.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := rt.LoadModel(testModelFile(t), 0, 0); err != nil {
		t.Fatalf("LoadModel failed: %v", err)
	}

	if _, err := rt.Generate(context.Background(), "hello", DefaultGenerationParams()); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if obs.started.Load() != 1 || obs.completed.Load() != 1 || obs.succeeded.Load() != 1 {
		t.Errorf("observer counts = %d/%d/%d, want 1/1/1",
			obs.started.Load(), obs.completed.Load(), obs.succeeded.Load())
	}
}
