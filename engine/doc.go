// Package engine provides implementations of the bridge.Engine contract.
//
// The bridge treats inference as an opaque capability: a function from
// (prompt, params) to text that honors context cancellation. This package
// supplies the adapters that make real runtimes fit that contract,
// currently an OpenAI-compatible HTTP adapter for local llama.cpp-style
// servers. The bridge itself ships a built-in placeholder engine for use
// without any backend.
package engine
