// Package bridge exposes a single local language-model runtime to a calling
// application through a stable, thread-safe request/response boundary.
//
// The package does not implement inference itself. It owns the machinery
// around an opaque inference engine: a synchronized model registry, a
// fixed-size worker pool that executes generation requests off the caller's
// goroutine, an async request tracker keyed by ascending request id, and a
// shared last-error channel.
//
// Architecture:
//   - Runtime is the owned handle composing all state; no package-level
//     globals, so independent Runtimes can coexist (and tests stay isolated)
//   - Engine is the call contract for the external inference capability;
//     implementations live in the engine package
//   - Synchronous Generate blocks the caller for the full engine call;
//     GenerateAsync hands the request to the worker pool and delivers the
//     result via callback and the per-request record
//
// Example usage:
//
//	rt := bridge.New(bridge.Config{})
//	if err := rt.Init(); err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close()
//
//	if err := rt.LoadModel("models/smollm2-360m.gguf", 2048, 4); err != nil {
//	    log.Fatal(err)
//	}
//
//	id, err := rt.GenerateAsync("Hello", bridge.DefaultGenerationParams(), func(text string) {
//	    fmt.Println(text)
//	})
package bridge
