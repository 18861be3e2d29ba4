package filters

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/gogpu/fx"
	"github.com/gogpu/fx/gpucore"
)

// Effect is the host-facing surface shared by every filter.
type Effect interface {
	Metadata() fx.Metadata
	SetParam(name string, v fx.Value) error
	Param(name string) (fx.Value, bool)
	Output() (*fx.Image, error)
	Stats() fx.Stats
	Release()
}

// ImageFilter is an Effect that transforms a source image.
type ImageFilter interface {
	Effect
	SetInput(img *fx.Image)
}

// Generator is an Effect that produces an image of a configured size.
type Generator interface {
	Effect
	SetSize(width, height int)
}

// Factory builds an effect on a device.
type Factory func(dev gpucore.Device, lib fx.KernelLibrary, opts ...fx.Option) (Effect, error)

// Errors returned by the registry.
var (
	// ErrUnknownEffect is returned for names that were never registered.
	ErrUnknownEffect = errors.New("filters: unknown effect")

	// ErrDuplicateEffect is returned when a name is registered twice.
	ErrDuplicateEffect = errors.New("filters: effect already registered")
)

type registration struct {
	meta    fx.Metadata
	factory Factory
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]registration)
)

func init() {
	MustRegister(PixellateKernel, fx.Metadata{Kernel: PixellateKernel, DisplayName: "Pixellate", Params: pixellateParams},
		func(dev gpucore.Device, lib fx.KernelLibrary, opts ...fx.Option) (Effect, error) {
			return NewPixellate(dev, lib, opts...)
		})
	MustRegister(PerlinKernel, fx.Metadata{Kernel: PerlinKernel, DisplayName: "Perlin Noise", Params: perlinParams},
		func(dev gpucore.Device, lib fx.KernelLibrary, opts ...fx.Option) (Effect, error) {
			return NewPerlinNoise(dev, lib, opts...)
		})
	MustRegister(KuwaharaKernel, fx.Metadata{Kernel: KuwaharaKernel, DisplayName: "Kuwahara", Params: kuwaharaParams},
		func(dev gpucore.Device, lib fx.KernelLibrary, opts ...fx.Option) (Effect, error) {
			return NewKuwahara(dev, lib, opts...)
		})
}

// Register adds an effect under name. The metadata must validate.
func Register(name string, meta fx.Metadata, factory Factory) error {
	if err := meta.Validate(); err != nil {
		return err
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateEffect, name)
	}
	registry[name] = registration{meta: meta, factory: factory}
	return nil
}

// MustRegister is like Register but panics on error.
func MustRegister(name string, meta fx.Metadata, factory Factory) {
	if err := Register(name, meta, factory); err != nil {
		panic(err)
	}
}

// Available returns the registered effect names in sorted order.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Metadata returns the parameter table of a registered effect without
// creating it.
func Metadata(name string) (fx.Metadata, bool) {
	registryMu.RLock()
	r, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return fx.Metadata{}, false
	}
	m := r.meta
	m.Params = slices.Clone(r.meta.Params)
	return m, true
}

// New creates a registered effect on dev using the shared Library.
func New(name string, dev gpucore.Device, opts ...fx.Option) (Effect, error) {
	return NewWithLibrary(name, dev, Library(), opts...)
}

// NewWithLibrary creates a registered effect resolving kernels from lib.
func NewWithLibrary(name string, dev gpucore.Device, lib fx.KernelLibrary, opts ...fx.Option) (Effect, error) {
	registryMu.RLock()
	r, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEffect, name)
	}
	return r.factory(dev, lib, opts...)
}

var (
	_ ImageFilter = (*Pixellate)(nil)
	_ ImageFilter = (*Kuwahara)(nil)
	_ Generator   = (*PerlinNoise)(nil)
)
