//go:build gpu

package bridge

// gpuSupport is true when the binary is built with the gpu tag and the
// linked engine carries an accelerated backend.
const gpuSupport = true
