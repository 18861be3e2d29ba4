package kernel

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/fx/gpucore"
	"github.com/gogpu/fx/internal/cache"
)

// Function is a resolved kernel. SPIR-V is compiled lazily, once per
// workgroup side, and cached.
type Function struct {
	name     string
	entry    string
	wgsl     string
	cpu      gpucore.KernelFunc
	compile  Compiler
	variants *cache.Cache[int, []uint32]
}

var _ gpucore.ShaderFunction = (*Function)(nil)

// Name returns the kernel name.
func (f *Function) Name() string { return f.name }

// EntryPoint returns the WGSL entry point.
func (f *Function) EntryPoint() string { return f.entry }

// CPU returns the Go implementation, or nil.
func (f *Function) CPU() gpucore.KernelFunc { return f.cpu }

// HasWGSL reports whether the kernel can run on GPU devices.
func (f *Function) HasWGSL() bool { return f.wgsl != "" }

// Source returns the WGSL with the workgroup side substituted.
func (f *Function) Source(side int) (string, error) {
	if f.wgsl == "" {
		return "", fmt.Errorf("kernel: %s has no WGSL source", f.name)
	}
	if side <= 0 {
		return "", ErrInvalidSide
	}
	return strings.ReplaceAll(f.wgsl, WorkgroupPlaceholder, strconv.Itoa(side)), nil
}

// SPIRV compiles the kernel for a square workgroup of the given side.
func (f *Function) SPIRV(side int) ([]uint32, error) {
	return f.variants.Load(side, func() ([]uint32, error) {
		src, err := f.Source(side)
		if err != nil {
			return nil, err
		}
		spirvBytes, err := f.compile(src)
		if err != nil {
			return nil, fmt.Errorf("kernel: compile %s (side %d): %w", f.name, side, err)
		}
		return bytesToWords(spirvBytes)
	})
}

// CachedVariants returns how many workgroup sides have been compiled.
func (f *Function) CachedVariants() int {
	return f.variants.Len()
}

// bytesToWords converts little-endian SPIR-V bytes to 32-bit words.
func bytesToWords(b []byte) ([]uint32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, fmt.Errorf("kernel: SPIR-V length %d is not a positive multiple of 4", len(b))
	}
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = uint32(b[i*4]) |
			uint32(b[i*4+1])<<8 |
			uint32(b[i*4+2])<<16 |
			uint32(b[i*4+3])<<24
	}
	return words, nil
}
