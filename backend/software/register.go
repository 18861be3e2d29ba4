package software

import (
	"github.com/gogpu/fx/backend"
	"github.com/gogpu/fx/gpucore"
)

// init registers the software backend on package import.
func init() {
	backend.Register(backend.Software, func() (gpucore.Device, error) {
		return New(Config{}), nil
	})
}
