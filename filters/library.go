package filters

import (
	"sync"

	"github.com/gogpu/fx"
	"github.com/gogpu/fx/kernel"
)

// defaultOptions precede caller options. Every kernel here bounds-checks,
// so the grid rounds up and covers the whole image.
func defaultOptions(display string) []fx.Option {
	return []fx.Option{
		fx.WithDisplayName(display),
		fx.WithGridPolicy(fx.GridCeil),
	}
}

// sources lists every kernel this package ships.
func sources() []kernel.Source {
	return []kernel.Source{
		{Name: PixellateKernel, WGSL: pixellateWGSL, CPU: pixellateCPU},
		{Name: PerlinKernel, WGSL: perlinWGSL, CPU: perlinCPU},
		{Name: KuwaharaKernel, WGSL: kuwaharaWGSL, CPU: kuwaharaCPU},
	}
}

// NewLibrary returns a kernel library holding the filter kernels.
func NewLibrary(opts ...kernel.Option) *kernel.Library {
	lib := kernel.NewLibrary(opts...)
	for _, src := range sources() {
		lib.MustAdd(src)
	}
	return lib
}

// Library returns the shared filter kernel library. Shader variants
// compiled through it are cached for the life of the process.
var Library = sync.OnceValue(func() *kernel.Library {
	return NewLibrary()
})
