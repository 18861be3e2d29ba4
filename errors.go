package fx

import "errors"

// Construction errors. These indicate a configuration defect and are
// returned from the New* constructors; the Must* variants panic with them.
var (
	// ErrKernelNotFound is returned when the kernel library cannot resolve the name.
	ErrKernelNotFound = errors.New("fx: kernel not found")

	// ErrPipelineBuild is returned when the device cannot build a pipeline.
	ErrPipelineBuild = errors.New("fx: pipeline build failed")

	// ErrInvalidMode is returned when an effect is built without a Mode.
	ErrInvalidMode = errors.New("fx: effect has no execution mode")

	// ErrSlotCollision is returned when two bindable parameters share a slot.
	ErrSlotCollision = errors.New("fx: parameter slot collision")

	// ErrNilDevice is returned when no device is given.
	ErrNilDevice = errors.New("fx: nil device")
)

// Dispatch errors.
var (
	// ErrTextureAllocation is returned when the texture pair cannot be allocated.
	ErrTextureAllocation = errors.New("fx: texture allocation failed")

	// ErrEmptyExtent is returned when the output would have no pixels.
	ErrEmptyExtent = errors.New("fx: empty output extent")

	// ErrNoInput is returned by an image effect with no source image.
	ErrNoInput = errors.New("fx: no input image")

	// ErrReleased is returned by an effect after Release.
	ErrReleased = errors.New("fx: effect released")
)

// Parameter errors.
var (
	// ErrUnknownParam is returned for a name the metadata does not declare.
	ErrUnknownParam = errors.New("fx: unknown parameter")

	// ErrReadOnlyParam is returned when a parameter has no setter.
	ErrReadOnlyParam = errors.New("fx: parameter is read-only")

	// ErrParamKind is returned when a value does not match the declared kind.
	ErrParamKind = errors.New("fx: parameter value has the wrong kind")
)
