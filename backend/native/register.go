//go:build !nogpu

package native

import (
	"github.com/gogpu/fx/backend"
	"github.com/gogpu/fx/gpucore"
)

// init registers the native backend on package import. The factory fails
// with ErrNoGPU on machines without an adapter, and backend.Default then
// falls back to the next registered backend.
func init() {
	backend.Register(backend.Native, func() (gpucore.Device, error) {
		return New(Config{})
	})
}
