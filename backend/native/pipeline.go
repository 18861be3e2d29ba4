//go:build !nogpu

package native

import (
	"fmt"

	"github.com/gogpu/fx/gpucore"
	"github.com/gogpu/wgpu/hal"
)

// pipeline is a kernel compiled for one workgroup side. The bind group
// layouts depend only on the binding layout and survive a rebuild; the
// shader module and compute pipeline are recompiled per side.
type pipeline struct {
	label  string
	fn     gpucore.ShaderFunction
	layout gpucore.BindingLayout
	side   int

	extent    int
	hasExtent bool

	groupLayouts [groupCount]hal.BindGroupLayout
	pipeLayout   hal.PipelineLayout
	module       hal.ShaderModule
	compute      hal.ComputePipeline
}

// createLayouts builds the three bind group layouts and the pipeline layout.
func (p *pipeline) createLayouts(dev hal.Device) error {
	entries := [groupCount]struct {
		label string
		desc  *hal.BindGroupLayoutDescriptor
	}{
		{label: "textures"},
		{label: "params"},
		{label: "extent"},
	}
	entries[groupTextures].desc = &hal.BindGroupLayoutDescriptor{Entries: textureLayoutEntries(p.layout.Textures)}
	entries[groupParams].desc = &hal.BindGroupLayoutDescriptor{Entries: paramLayoutEntries(p.layout.Buffers)}
	entries[groupExtent].desc = &hal.BindGroupLayoutDescriptor{Entries: extentLayoutEntries()}

	for i, e := range entries {
		e.desc.Label = p.label + "_" + e.label
		l, err := dev.CreateBindGroupLayout(e.desc)
		if err != nil {
			return fmt.Errorf("native: create %s layout for %q: %w", e.label, p.label, err)
		}
		p.groupLayouts[i] = l
	}

	pl, err := dev.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            p.label + "_layout",
		BindGroupLayouts: p.groupLayouts[:],
	})
	if err != nil {
		return fmt.Errorf("native: create pipeline layout for %q: %w", p.label, err)
	}
	p.pipeLayout = pl
	return nil
}

// compile builds the shader module and compute pipeline for side. On
// success the previous module and pipeline are returned for release.
func (p *pipeline) compile(dev hal.Device, side int) (oldModule hal.ShaderModule, oldCompute hal.ComputePipeline, err error) {
	spirv, err := p.fn.SPIRV(side)
	if err != nil {
		return nil, nil, err
	}

	module, err := dev.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  p.label,
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("native: create shader module %q: %w", p.label, err)
	}

	compute, err := dev.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:   p.label,
		Layout:  p.pipeLayout,
		Compute: hal.ComputeState{Module: module, EntryPoint: p.fn.EntryPoint()},
	})
	if err != nil {
		dev.DestroyShaderModule(module)
		return nil, nil, fmt.Errorf("native: create compute pipeline %q: %w", p.label, err)
	}

	oldModule, oldCompute = p.module, p.compute
	p.module, p.compute, p.side = module, compute, side
	return oldModule, oldCompute, nil
}

func destroyCompiled(dev hal.Device, module hal.ShaderModule, compute hal.ComputePipeline) {
	if compute != nil {
		dev.DestroyComputePipeline(compute)
	}
	if module != nil {
		dev.DestroyShaderModule(module)
	}
}

// destroy releases every HAL object owned by the pipeline.
func (p *pipeline) destroy(dev hal.Device) {
	destroyCompiled(dev, p.module, p.compute)
	p.module, p.compute = nil, nil
	if p.pipeLayout != nil {
		dev.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	for i, l := range p.groupLayouts {
		if l != nil {
			dev.DestroyBindGroupLayout(l)
			p.groupLayouts[i] = nil
		}
	}
}

// CreateComputePipeline implements gpucore.Device.
func (d *Device) CreateComputePipeline(desc *gpucore.ComputePipelineDesc) (gpucore.ComputePipelineID, error) {
	if desc == nil || desc.Function == nil {
		return gpucore.InvalidID, fmt.Errorf("native: create pipeline: nil function")
	}
	if err := desc.Layout.Validate(); err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create pipeline %q: %w", desc.Label, err)
	}
	side := desc.WorkgroupSide
	if side == 0 {
		side = defaultWorkgroupSide
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return gpucore.InvalidID, gpucore.ErrDeviceClosed
	}
	if err := d.limits.checkSide(side); err != nil {
		return gpucore.InvalidID, err
	}

	p := &pipeline{
		label:  desc.Label,
		fn:     desc.Function,
		layout: desc.Layout,
	}
	p.extent, p.hasExtent = extentSlot(desc.Layout.Textures)
	if err := p.createLayouts(d.device); err != nil {
		p.destroy(d.device)
		return gpucore.InvalidID, err
	}
	if _, _, err := p.compile(d.device, side); err != nil {
		p.destroy(d.device)
		return gpucore.InvalidID, err
	}

	id := gpucore.ComputePipelineID(d.newID())
	d.pipelines[id] = p
	slogger().Debug("native: pipeline created",
		"label", desc.Label,
		"kernel", desc.Function.Name(),
		"side", side,
	)
	return id, nil
}

// DestroyComputePipeline implements gpucore.Device.
func (d *Device) DestroyComputePipeline(id gpucore.ComputePipelineID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.pipelines[id]
	if !ok {
		return
	}
	delete(d.pipelines, id)
	d.inflight.deferRelease(func() { p.destroy(d.device) })
}

// PipelineLimits implements gpucore.Device.
func (d *Device) PipelineLimits(id gpucore.ComputePipelineID) (gpucore.Limits, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.pipelines[id]; !ok {
		return gpucore.Limits{}, fmt.Errorf("native: pipeline %d: %w", id, gpucore.ErrUnknownResource)
	}
	return gpucore.Limits{
		MaxThreadsPerGroup: d.cfg.maxThreads(d.limits),
		ExecutionWidth:     d.cfg.ExecutionWidth,
	}, nil
}

// ConfigureWorkgroup implements gpucore.Device. WGSL fixes the workgroup
// size at compile time, so a new side recompiles the kernel.
func (d *Device) ConfigureWorkgroup(id gpucore.ComputePipelineID, side int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return gpucore.ErrDeviceClosed
	}
	p, ok := d.pipelines[id]
	if !ok {
		return fmt.Errorf("native: pipeline %d: %w", id, gpucore.ErrUnknownResource)
	}
	if side*side > d.cfg.maxThreads(d.limits) {
		return fmt.Errorf("%w: %dx%d", ErrWorkgroupTooLarge, side, side)
	}
	if err := d.limits.checkSide(side); err != nil {
		return err
	}
	if p.side == side {
		return nil
	}

	oldModule, oldCompute, err := p.compile(d.device, side)
	if err != nil {
		return err
	}
	d.inflight.deferRelease(func() { destroyCompiled(d.device, oldModule, oldCompute) })
	slogger().Debug("native: pipeline recompiled", "label", p.label, "side", side)
	return nil
}
