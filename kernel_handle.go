package fx

import (
	"fmt"

	"github.com/gogpu/fx/gpucore"
)

// KernelLibrary resolves kernels by name. kernel.Library implements it.
type KernelLibrary interface {
	Resolve(name string) (gpucore.ShaderFunction, error)
}

// kernelHandle is a resolved kernel and the pipeline built from it.
type kernelHandle struct {
	name     string
	fn       gpucore.ShaderFunction
	pipeline gpucore.ComputePipelineID
}

// newKernelHandle resolves name and builds its pipeline. Any failure is
// a construction error.
func newKernelHandle(dev gpucore.Device, lib KernelLibrary, name, label string, layout gpucore.BindingLayout) (*kernelHandle, error) {
	if lib == nil {
		return nil, fmt.Errorf("%w: %q: nil library", ErrKernelNotFound, name)
	}
	fn, err := lib.Resolve(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrKernelNotFound, name, err)
	}
	if fn == nil {
		return nil, fmt.Errorf("%w: %q", ErrKernelNotFound, name)
	}

	pipeline, err := dev.CreateComputePipeline(&gpucore.ComputePipelineDesc{
		Label:    label,
		Function: fn,
		Layout:   layout,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrPipelineBuild, name, err)
	}
	return &kernelHandle{name: name, fn: fn, pipeline: pipeline}, nil
}

// configureTile reads the pipeline limits, picks the tile side and fixes
// the pipeline to it.
func (k *kernelHandle) configureTile(dev gpucore.Device) (int, gpucore.Limits, error) {
	limits, err := dev.PipelineLimits(k.pipeline)
	if err != nil {
		return 0, limits, fmt.Errorf("%w: %q: limits: %w", ErrPipelineBuild, k.name, err)
	}
	tile := TileSize(limits.MaxThreadsPerGroup, limits.ExecutionWidth)
	if err := dev.ConfigureWorkgroup(k.pipeline, tile); err != nil {
		return 0, limits, fmt.Errorf("%w: %q: workgroup %d: %w", ErrPipelineBuild, k.name, tile, err)
	}
	return tile, limits, nil
}

func (k *kernelHandle) release(dev gpucore.Device) {
	dev.DestroyComputePipeline(k.pipeline)
}
