// This file contains pure types and constants - no concurrency machinery.
package bridge

import "context"

// =============================================================================
// Default Constants
// =============================================================================

const (
	// DefaultContextSize is the context window applied when LoadModel is
	// given a non-positive context size.
	DefaultContextSize = 2048

	// DefaultThreadCount is the engine thread count applied when LoadModel
	// is given a non-positive thread count.
	DefaultThreadCount = 4

	// DefaultMaxTokens is the default generation budget for params that
	// leave MaxTokens at zero. -1 means unbounded.
	DefaultMaxTokens = 512

	// DefaultTemperature is the default sampling temperature.
	DefaultTemperature = 0.7

	// DefaultTopP is the default nucleus sampling parameter.
	DefaultTopP = 0.9

	// DefaultTopK is the default top-k sampling parameter.
	DefaultTopK = 40

	// DefaultRepeatPenalty is the default repetition penalty.
	DefaultRepeatPenalty = 1.1

	// DefaultRepeatWindow is the default number of trailing tokens the
	// repeat penalty considers.
	DefaultRepeatWindow = 64

	// ModelVocabSize is the vocabulary size reported by VocabSize.
	// Placeholder constant matching the SmolLM2 vocabulary; a real engine
	// would report this from model metadata.
	ModelVocabSize = 49152

	// MinWorkers is the lower clamp on the worker pool size.
	MinWorkers = 2

	// MaxWorkers is the upper clamp on the worker pool size.
	// Avoids oversubscription on constrained hardware while keeping
	// minimum parallelism for responsiveness.
	MaxWorkers = 8

	// DefaultRetentionCap is the default maximum number of request records
	// the async tracker retains before evicting the oldest completed ones.
	DefaultRetentionCap = 256
)

// =============================================================================
// Generation Parameters
// =============================================================================

// GenerationParams contains sampling parameters for a single generation
// request. Params are copied into each request on submission, so callers may
// reuse or mutate their copy freely afterwards.
type GenerationParams struct {
	// MaxTokens is the maximum number of tokens to generate.
	// -1 means unbounded. Zero is replaced by DefaultMaxTokens.
	MaxTokens int

	// Temperature controls randomness in sampling. Must be >= 0.
	Temperature float32

	// TopP is the nucleus sampling parameter, in [0, 1].
	TopP float32

	// TopK is the top-k sampling parameter. Must be >= 0; 0 disables.
	TopK int

	// RepeatPenalty penalizes repeated tokens. Must be >= 0.
	RepeatPenalty float32

	// RepeatWindow is how many trailing tokens the repeat penalty
	// considers. Must be >= 0.
	RepeatWindow int

	// StopSequences are sequences that end generation when produced.
	StopSequences []string
}

// DefaultGenerationParams returns GenerationParams with sensible defaults.
func DefaultGenerationParams() GenerationParams {
	return GenerationParams{
		MaxTokens:     DefaultMaxTokens,
		Temperature:   DefaultTemperature,
		TopP:          DefaultTopP,
		TopK:          DefaultTopK,
		RepeatPenalty: DefaultRepeatPenalty,
		RepeatWindow:  DefaultRepeatWindow,
	}
}

// clone returns a deep copy of the params. Requests own their copy so no
// slice is shared across goroutines after submission.
func (p GenerationParams) clone() GenerationParams {
	out := p
	if len(p.StopSequences) > 0 {
		out.StopSequences = make([]string, len(p.StopSequences))
		copy(out.StopSequences, p.StopSequences)
	}
	return out
}

// =============================================================================
// Engine Contract
// =============================================================================

// Engine is the call contract for the external inference capability. The
// bridge invokes it but does not implement it; adapters live in the engine
// package.
//
// Generate must honor ctx cancellation between algorithmic steps - this is
// how the bridge threads cooperative cancellation through long-running calls.
// Implementations must be safe for concurrent use: the worker pool calls
// Generate from multiple goroutines.
type Engine interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// EngineFunc adapts an ordinary function to the Engine interface.
type EngineFunc func(ctx context.Context, prompt string, params GenerationParams) (string, error)

// Generate implements Engine.
func (f EngineFunc) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	return f(ctx, prompt, params)
}

// =============================================================================
// Result Types
// =============================================================================

// BoundedResult is the outcome of a bounded-capacity generation.
type BoundedResult struct {
	// Text is the generated text, truncated to at most capacity-1 bytes.
	Text string

	// Length is len(Text).
	Length int

	// Truncated reports whether the engine produced more text than the
	// capacity allowed. Truncation is not an error; this flag lets callers
	// detect it without one.
	Truncated bool
}

// RequestStatus is a point-in-time snapshot of an async request record.
type RequestStatus struct {
	// ID is the request id the snapshot describes.
	ID uint64

	// Completed reports whether the request reached a terminal state.
	// It is the last field written by the executing worker.
	Completed bool

	// Success reports whether generation produced a result.
	Success bool

	// Canceled reports whether the request was canceled before or during
	// execution.
	Canceled bool

	// Result is the generated text. Empty unless Success.
	Result string

	// Err is the per-request failure description. Unlike the shared
	// last-error channel, it is never overwritten by other requests.
	Err string
}

// Callback receives the final generated text for an async request. It is
// invoked exactly once, from a worker goroutine, and only on success.
type Callback func(text string)

// ErrorCallback receives the failure for an async request. It is invoked at
// most once, from a worker goroutine, and only when the request does not
// produce a result.
type ErrorCallback func(err error)
