//go:build !gpu

package bridge

// gpuSupport is false in default builds. GPU-accelerated builds compile
// with -tags gpu.
const gpuSupport = false
