package bridge

import (
	"fmt"
	"runtime"
	"strings"
)

// HasGPUSupport reports whether this build carries GPU acceleration.
// Determined at compile time via the gpu build tag.
func (rt *Runtime) HasGPUSupport() bool {
	return gpuSupport
}

// SystemInfo returns a human-readable diagnostic string describing the
// runtime. The format is informational, not an API contract.
func (rt *Runtime) SystemInfo() string {
	state := rt.registry.snapshot()

	var b strings.Builder
	b.WriteString("llmbridge runtime\n")
	if state.Loaded {
		fmt.Fprintf(&b, "Model: %s\n", state.Path)
		fmt.Fprintf(&b, "Context: %d tokens\n", state.ContextSize)
		fmt.Fprintf(&b, "Threads: %d\n", state.ThreadCount)
	} else {
		b.WriteString("Model: not loaded\n")
	}
	fmt.Fprintf(&b, "Workers: %d\n", rt.pool.workers)
	fmt.Fprintf(&b, "CPUs: %d\n", runtime.NumCPU())
	fmt.Fprintf(&b, "GPU: %s", yesNo(gpuSupport))
	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "YES"
	}
	return "NO"
}
