package bridge

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// validate checks the data-model invariants on params. Zero MaxTokens is
// normalized later, not rejected.
func (p GenerationParams) validate(op string) error {
	switch {
	case p.MaxTokens < -1:
		return opError(op, fmt.Sprintf("max tokens must be -1 (unbounded) or >= 0, got %d", p.MaxTokens), ErrInvalidArgument)
	case p.Temperature < 0:
		return opError(op, fmt.Sprintf("temperature must be >= 0, got %g", p.Temperature), ErrInvalidArgument)
	case p.TopP < 0 || p.TopP > 1:
		return opError(op, fmt.Sprintf("top-p must be in [0, 1], got %g", p.TopP), ErrInvalidArgument)
	case p.TopK < 0:
		return opError(op, fmt.Sprintf("top-k must be >= 0, got %d", p.TopK), ErrInvalidArgument)
	case p.RepeatPenalty < 0:
		return opError(op, fmt.Sprintf("repeat penalty must be >= 0, got %g", p.RepeatPenalty), ErrInvalidArgument)
	case p.RepeatWindow < 0:
		return opError(op, fmt.Sprintf("repeat window must be >= 0, got %d", p.RepeatWindow), ErrInvalidArgument)
	}
	return nil
}

// normalized applies the zero-value default for MaxTokens. -1 (unbounded)
// passes through.
func (p GenerationParams) normalized() GenerationParams {
	if p.MaxTokens == 0 {
		p.MaxTokens = DefaultMaxTokens
	}
	return p
}

// Generate runs one synchronous generation, blocking the calling goroutine
// for the full engine call. It is the single execution path for inference:
// callers invoke it directly and every async worker task calls it
// internally. The model-loaded check is a best-effort guard taken at call
// time; a racing unload is tolerated and surfaces as an engine failure at
// worst.
//
// The caller's ctx threads cancellation through the engine; pass
// context.Background() to wait indefinitely.
func (rt *Runtime) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	if prompt == "" {
		return "", rt.failOp(opError("Generate", "prompt is empty", ErrInvalidArgument))
	}
	if err := params.validate("Generate"); err != nil {
		return "", rt.failOp(err)
	}
	if !rt.ops.Start() {
		return "", rt.failOp(opError("Generate", "runtime is closed", ErrRuntimeClosed))
	}
	defer rt.ops.Done()

	if !rt.registry.isLoaded() {
		return "", rt.failOp(opError("Generate", "load a model before generating", ErrModelNotLoaded))
	}

	if rt.observer != nil {
		rt.observer.GenerationStarted()
	}
	start := time.Now()

	text, err := rt.engine.Generate(ctx, prompt, params.normalized())

	if rt.observer != nil {
		rt.observer.GenerationCompleted(err == nil, time.Since(start))
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", rt.failOp(&BridgeError{
				Op:      "Generate",
				Code:    StatusRequestCanceled,
				Message: "generation canceled",
				Err:     fmt.Errorf("%w: %w", ErrRequestCanceled, err),
			})
		}
		return "", rt.failOp(engineError("Generate", err))
	}
	return text, nil
}

// GenerateBounded is the bounded-capacity variant of Generate for callers
// writing into fixed buffers. The produced text is truncated to at most
// capacity-1 bytes, leaving room for a terminator. Truncation is not an
// error, but is reported on the result so callers can detect it.
func (rt *Runtime) GenerateBounded(ctx context.Context, prompt string, params GenerationParams, capacity int) (BoundedResult, error) {
	if capacity <= 0 {
		return BoundedResult{}, rt.failOp(opError("GenerateBounded", fmt.Sprintf("capacity must be positive, got %d", capacity), ErrInvalidArgument))
	}

	text, err := rt.Generate(ctx, prompt, params)
	if err != nil {
		return BoundedResult{}, err
	}

	if len(text) >= capacity {
		return BoundedResult{
			Text:      text[:capacity-1],
			Length:    capacity - 1,
			Truncated: true,
		}, nil
	}
	return BoundedResult{Text: text, Length: len(text)}, nil
}

// placeholderEngine simulates inference with a deterministic canned reply
// regardless of prompt. It is the default when no engine is configured,
// which keeps the bridge usable in tests and demos without a real model
// runtime.
type placeholderEngine struct{}

const placeholderReply = "I'm a local AI assistant running on your device! " +
	"I process everything locally without needing an internet connection. " +
	"Your privacy is completely protected."

func (placeholderEngine) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return placeholderReply, nil
}
