package backend

import (
	"errors"

	"github.com/gogpu/fx/gpucore"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not registered
	// or its factory could not open a device.
	ErrBackendNotAvailable = errors.New("backend: not available")
)

// Backend name constants.
const (
	// Software is the name of the CPU backend that runs Go kernels.
	Software = "software"
	// Native is the name of the Pure Go GPU backend (gogpu/wgpu HAL).
	Native = "native"
)

// Factory opens a new device. Factories may fail, for example when no
// GPU adapter is present.
type Factory func() (gpucore.Device, error)
