package bridge

import (
	"fmt"
	"os"
	"sync"
)

// ModelState is a point-in-time snapshot of the registry. It may be stale
// immediately after return; operations that require a loaded model re-check
// under their own lock rather than trusting a snapshot.
type ModelState struct {
	// Loaded reports whether a model is currently loaded.
	Loaded bool

	// Path is the model file path. Empty when unloaded.
	Path string

	// ContextSize is the context window in tokens. Zero when unloaded.
	ContextSize int

	// ThreadCount is the engine thread count. Zero when unloaded.
	ThreadCount int
}

// modelRegistry is the guarded record of loaded-model state. All other
// components read it; only LoadModel and UnloadModel write it. Every access
// serializes through one mutex with short critical sections; the registry
// never holds its lock across an engine call. Zero value is an unloaded
// registry ready for use.
type modelRegistry struct {
	mu          sync.Mutex
	loaded      bool
	path        string
	contextSize int
	threadCount int
}

// load validates the path and atomically replaces the registry state.
// Non-positive contextSize and threadCount fall back to the defaults.
// Any previously loaded state is discarded; there is no incremental reload.
//
// Validation is an existence and readability probe only. Content validation
// (magic numbers, tensor layout) belongs to the real engine at load time.
func (r *modelRegistry) load(path string, contextSize, threadCount int) error {
	if path == "" {
		return opError("LoadModel", "model path is empty", ErrInvalidArgument)
	}

	if err := probeModelFile(path); err != nil {
		return err
	}

	if contextSize <= 0 {
		contextSize = DefaultContextSize
	}
	if threadCount <= 0 {
		threadCount = DefaultThreadCount
	}

	r.mu.Lock()
	r.loaded = true
	r.path = path
	r.contextSize = contextSize
	r.threadCount = threadCount
	r.mu.Unlock()
	return nil
}

// unload resets the registry to the unloaded state. Idempotent: unloading
// an already-unloaded registry is a no-op, not an error.
func (r *modelRegistry) unload() {
	r.mu.Lock()
	r.loaded = false
	r.path = ""
	r.contextSize = 0
	r.threadCount = 0
	r.mu.Unlock()
}

// isLoaded reports whether a model is loaded. Best-effort status query; the
// answer may be stale by the time the caller acts on it.
func (r *modelRegistry) isLoaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded
}

// contextSizeNow returns the context window, or 0 when unloaded.
func (r *modelRegistry) contextSizeNow() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.loaded {
		return 0
	}
	return r.contextSize
}

// snapshot returns a copy of the current state.
func (r *modelRegistry) snapshot() ModelState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.loaded {
		return ModelState{}
	}
	return ModelState{
		Loaded:      true,
		Path:        r.path,
		ContextSize: r.contextSize,
		ThreadCount: r.threadCount,
	}
}

// probeModelFile checks that path resolves to a readable regular file.
func probeModelFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return opError("LoadModel", fmt.Sprintf("model file not found: %s", path), ErrModelFileNotFound)
		}
		return &BridgeError{
			Op:      "LoadModel",
			Code:    StatusModelFileNotFound,
			Message: fmt.Sprintf("cannot access model file: %s", path),
			Err:     fmt.Errorf("%w: %w", ErrModelFileNotFound, err),
		}
	}
	if info.IsDir() {
		return opError("LoadModel", fmt.Sprintf("model path is a directory: %s", path), ErrModelFileNotFound)
	}

	f, err := os.Open(path)
	if err != nil {
		return &BridgeError{
			Op:      "LoadModel",
			Code:    StatusModelFileNotFound,
			Message: fmt.Sprintf("cannot open model file: %s", path),
			Err:     fmt.Errorf("%w: %w", ErrModelFileNotFound, err),
		}
	}
	f.Close()
	return nil
}
