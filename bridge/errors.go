package bridge

import (
	"errors"
	"fmt"
)

// BridgeError represents a failure of a bridge operation. It carries the
// operation name, a negative status code suitable for the flat boundary
// contract, and a wrapped sentinel for errors.Is checks.
type BridgeError struct {
	Op      string // Operation that failed (e.g., "LoadModel", "GenerateAsync")
	Code    int    // Negative status code (0 = success, never stored here)
	Message string // Human-readable error message
	Err     error  // Wrapped sentinel or underlying error
}

// Error implements the error interface.
func (e *BridgeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bridge %s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("bridge %s: %s", e.Op, e.Message)
}

// Unwrap returns the wrapped error, allowing use with errors.Is and errors.As.
func (e *BridgeError) Unwrap() error {
	return e.Err
}

// Sentinel errors for the bridge failure taxonomy.
// These are used for error checking with errors.Is().
var (
	// ErrInvalidArgument indicates a null, empty, or non-positive input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrModelFileNotFound indicates the model path does not resolve to a
	// readable file. Content validation is the engine's job at load time;
	// the registry only probes existence and readability.
	ErrModelFileNotFound = errors.New("model file not found")

	// ErrModelNotLoaded indicates an operation that requires a loaded model
	// was called while the registry reports unloaded.
	ErrModelNotLoaded = errors.New("no model loaded")

	// ErrPoolNotInitialized indicates an async operation was attempted
	// before Init started the worker pool.
	ErrPoolNotInitialized = errors.New("worker pool not initialized")

	// ErrEngineFailure indicates an opaque failure surfaced from the
	// inference engine capability.
	ErrEngineFailure = errors.New("inference engine failure")

	// ErrRequestNotFound indicates no tracked request exists for the id.
	ErrRequestNotFound = errors.New("request not found")

	// ErrRequestCanceled indicates the request was canceled before it
	// produced a result.
	ErrRequestCanceled = errors.New("request canceled")

	// ErrRuntimeClosed indicates the runtime has been closed and rejects
	// new work.
	ErrRuntimeClosed = errors.New("runtime is closed")
)

// Status codes for the flat boundary contract. Zero is success; every error
// maps to a distinct negative value.
const (
	StatusOK                 = 0
	StatusInvalidArgument    = -1
	StatusModelFileNotFound  = -2
	StatusModelNotLoaded     = -3
	StatusPoolNotInitialized = -4
	StatusEngineFailure      = -5
	StatusRequestNotFound    = -6
	StatusRuntimeClosed      = -7
	StatusRequestCanceled    = -8
	StatusUnknown            = -9
)

// StatusCode maps an error to its boundary status code. nil maps to StatusOK.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrInvalidArgument):
		return StatusInvalidArgument
	case errors.Is(err, ErrModelFileNotFound):
		return StatusModelFileNotFound
	case errors.Is(err, ErrModelNotLoaded):
		return StatusModelNotLoaded
	case errors.Is(err, ErrPoolNotInitialized):
		return StatusPoolNotInitialized
	case errors.Is(err, ErrEngineFailure):
		return StatusEngineFailure
	case errors.Is(err, ErrRequestNotFound):
		return StatusRequestNotFound
	case errors.Is(err, ErrRuntimeClosed):
		return StatusRuntimeClosed
	case errors.Is(err, ErrRequestCanceled):
		return StatusRequestCanceled
	default:
		return StatusUnknown
	}
}

// opError builds a BridgeError for op wrapping the given sentinel.
func opError(op, message string, sentinel error) *BridgeError {
	return &BridgeError{
		Op:      op,
		Code:    StatusCode(sentinel),
		Message: message,
		Err:     sentinel,
	}
}

// engineError wraps an opaque engine failure so it carries both the
// EngineFailure sentinel and the underlying cause.
func engineError(op string, cause error) *BridgeError {
	return &BridgeError{
		Op:      op,
		Code:    StatusEngineFailure,
		Message: "engine call failed",
		Err:     fmt.Errorf("%w: %w", ErrEngineFailure, cause),
	}
}
