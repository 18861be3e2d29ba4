package fx

import "github.com/gogpu/fx/gpucore"

// Default generator output size.
const (
	DefaultGeneratorWidth  = 640
	DefaultGeneratorHeight = 640
)

// GeneratorEffect produces an image from parameters alone.
type GeneratorEffect struct {
	*Effect
	width  int
	height int
}

var _ Mode = (*GeneratorEffect)(nil)

// NewGeneratorEffect builds a generator. The kernel writes texture slot 0.
func NewGeneratorEffect(dev gpucore.Device, lib KernelLibrary, kernelName string, params []Param, opts ...Option) (*GeneratorEffect, error) {
	g := &GeneratorEffect{width: DefaultGeneratorWidth, height: DefaultGeneratorHeight}
	e, err := NewEffect(dev, lib, kernelName, g, params, opts...)
	if err != nil {
		return nil, err
	}
	g.Effect = e
	return g, nil
}

// MustNewGeneratorEffect is like NewGeneratorEffect but panics on error.
func MustNewGeneratorEffect(dev gpucore.Device, lib KernelLibrary, kernelName string, params []Param, opts ...Option) *GeneratorEffect {
	g, err := NewGeneratorEffect(dev, lib, kernelName, params, opts...)
	if err != nil {
		panic(err)
	}
	return g
}

// SetSize sets the output size. A different size causes the next Output
// to reallocate the output texture.
func (g *GeneratorEffect) SetSize(width, height int) {
	g.width = width
	g.height = height
}

// Size returns the configured output size.
func (g *GeneratorEffect) Size() (int, int) { return g.width, g.height }

// HasInputTexture implements Mode.
func (g *GeneratorEffect) HasInputTexture() bool { return false }

// OutputExtent implements Mode: the configured size.
func (g *GeneratorEffect) OutputExtent() (int, int) { return g.width, g.height }

// RenderInput implements Mode. Generators have no input.
func (g *GeneratorEffect) RenderInput(gpucore.CommandEncoder, gpucore.TextureID) error { return nil }
