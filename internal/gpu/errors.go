package gpu

import "errors"

// Adapter-level sentinel errors. Callers should use errors.Is against these.
var (
	// ErrNotInitialized is returned when an adapter is used before Init.
	ErrNotInitialized = errors.New("gpu: adapter not initialized")

	// ErrNoGPU is returned when no suitable GPU adapter could be found.
	ErrNoGPU = errors.New("gpu: no compatible GPU adapter available")

	// ErrInvalidDimensions is returned for non-positive texture dimensions.
	ErrInvalidDimensions = errors.New("gpu: invalid texture dimensions")

	// ErrUnknownResource is returned when an opaque ID is not tracked by the adapter.
	ErrUnknownResource = errors.New("gpu: unknown resource id")

	// ErrNotSupported is returned for operations the adapter cannot perform.
	ErrNotSupported = errors.New("gpu: operation not supported by this adapter")

	// ErrEncoderEnded is returned when recording continues after End().
	ErrEncoderEnded = errors.New("gpu: compute pass encoder already ended")

	// ErrResourceExhausted is returned when a bounded pool has no room left.
	ErrResourceExhausted = errors.New("gpu: resource pool exhausted")
)
