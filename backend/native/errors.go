package native

import "errors"

// Package errors for the native backend.
var (
	// ErrNoGPU is returned when no GPU adapter is available.
	ErrNoGPU = errors.New("native: no GPU adapter available")

	// ErrBackendUnavailable is returned when the requested HAL backend is not compiled in.
	ErrBackendUnavailable = errors.New("native: HAL backend not available")

	// ErrInvalidProvider is returned when a device provider does not expose HAL objects.
	ErrInvalidProvider = errors.New("native: provider does not expose HAL device and queue")

	// ErrReadbackTimeout is returned when the GPU does not finish a readback in time.
	ErrReadbackTimeout = errors.New("native: readback timed out")

	// ErrWorkgroupTooLarge is returned when a group exceeds the adapter limits.
	ErrWorkgroupTooLarge = errors.New("native: workgroup exceeds adapter limits")

	// ErrWorkgroupMismatch is returned when a dispatch uses a group size the
	// pipeline was not built for.
	ErrWorkgroupMismatch = errors.New("native: dispatch group size differs from pipeline")

	// ErrUnboundTexture is returned when a dispatch leaves a declared texture slot empty.
	ErrUnboundTexture = errors.New("native: texture slot not bound")
)
