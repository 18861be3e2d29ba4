package gpucore

import (
	"fmt"
	"math"
)

// ShaderFunction is a resolved kernel from a kernel library.
//
// A function carries its WGSL source (compiled per workgroup side for GPU
// backends) and an optional Go implementation for CPU devices.
type ShaderFunction interface {
	// Name returns the kernel name used for resolution.
	Name() string

	// EntryPoint returns the WGSL entry point.
	EntryPoint() string

	// SPIRV compiles the kernel for a square workgroup of the given side.
	SPIRV(side int) ([]uint32, error)

	// CPU returns the Go implementation, or nil if there is none.
	CPU() KernelFunc
}

// Texels is a bound RGBA8 texture as seen from a CPU kernel. Components
// are normalized to [0,1].
type Texels interface {
	Width() int
	Height() int

	// Load returns the texel at (x, y), or zero outside the texture.
	Load(x, y int) [4]float32

	// Store writes the texel at (x, y). Out-of-range stores are dropped.
	Store(x, y int, c [4]float32)
}

// Bindings exposes the resources bound to a dispatch.
// Unbound slots read as zero.
type Bindings interface {
	Texture(slot int) Texels
	Scalar(slot int) float32
	Vector(slot int) [4]float32
}

// KernelFunc is the Go form of a compute kernel, invoked once per
// thread position in the dispatch grid.
type KernelFunc func(b Bindings, x, y int)

// TextureAccess describes how a kernel uses a texture slot.
type TextureAccess uint8

// Texture access modes.
const (
	TextureAccessRead TextureAccess = iota + 1
	TextureAccessWrite
	TextureAccessReadWrite
)

// TextureSlot declares a texture binding point.
type TextureSlot struct {
	Slot   int
	Access TextureAccess
}

// BufferSlot declares a parameter buffer binding point.
type BufferSlot struct {
	Slot int
	Size int
}

// BindingLayout lists every binding point a kernel uses.
type BindingLayout struct {
	Textures []TextureSlot
	Buffers  []BufferSlot
}

// Validate checks that slots are non-negative and unique per namespace.
func (l *BindingLayout) Validate() error {
	seen := make(map[int]bool, len(l.Textures))
	for _, t := range l.Textures {
		if t.Slot < 0 {
			return fmt.Errorf("gpucore: negative texture slot %d", t.Slot)
		}
		if seen[t.Slot] {
			return fmt.Errorf("gpucore: duplicate texture slot %d", t.Slot)
		}
		seen[t.Slot] = true
	}
	seen = make(map[int]bool, len(l.Buffers))
	for _, b := range l.Buffers {
		if b.Slot < 0 {
			return fmt.Errorf("gpucore: negative buffer slot %d", b.Slot)
		}
		if seen[b.Slot] {
			return fmt.Errorf("gpucore: duplicate buffer slot %d", b.Slot)
		}
		if b.Size <= 0 {
			return fmt.Errorf("gpucore: buffer slot %d: %w", b.Slot, ErrInvalidSize)
		}
		seen[b.Slot] = true
	}
	return nil
}

// ComputePipelineDesc describes a compute pipeline.
type ComputePipelineDesc struct {
	Label    string
	Function ShaderFunction
	Layout   BindingLayout

	// WorkgroupSide is the initial square group side. Zero lets the
	// device pick its default.
	WorkgroupSide int
}

// UnpackRGBA8 converts one RGBA8 texel to normalized floats.
func UnpackRGBA8(p []byte) [4]float32 {
	return [4]float32{
		float32(p[0]) / 255,
		float32(p[1]) / 255,
		float32(p[2]) / 255,
		float32(p[3]) / 255,
	}
}

// PackRGBA8 writes normalized floats as one RGBA8 texel, clamping and
// rounding each component.
func PackRGBA8(p []byte, c [4]float32) {
	for i := range 4 {
		v := c[i]
		if math.IsNaN(float64(v)) || v < 0 {
			v = 0
		} else if v > 1 {
			v = 1
		}
		p[i] = uint8(v*255 + 0.5)
	}
}
