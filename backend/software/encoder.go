package software

import (
	"fmt"

	"github.com/gogpu/fx/gpucore"
)

// commandEncoder records closures that run on the device queue.
// Validation happens at record time; the first failure is reported by Commit.
type commandEncoder struct {
	dev      *Device
	label    string
	cmds     []command
	err      error
	finished bool
}

var _ gpucore.CommandEncoder = (*commandEncoder)(nil)

func (e *commandEncoder) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

func (e *commandEncoder) usable() bool {
	if e.finished {
		e.fail(gpucore.ErrEncoderFinished)
		return false
	}
	return e.err == nil
}

// WriteTexture implements gpucore.CommandEncoder.
func (e *commandEncoder) WriteTexture(id gpucore.TextureID, data []byte) {
	if !e.usable() {
		return
	}
	t := e.dev.texture(id)
	if t == nil {
		e.fail(fmt.Errorf("software: write texture %d: %w", id, gpucore.ErrUnknownResource))
		return
	}
	if len(data) != len(t.data) {
		e.fail(fmt.Errorf("software: write texture %q: got %d bytes, want %d: %w",
			t.label, len(data), len(t.data), gpucore.ErrInvalidSize))
		return
	}
	snapshot := append([]byte(nil), data...)
	e.cmds = append(e.cmds, func(d *Device) {
		if t := d.texture(id); t != nil {
			copy(t.data, snapshot)
		}
	})
}

// CopyTexture implements gpucore.CommandEncoder.
func (e *commandEncoder) CopyTexture(src, dst gpucore.TextureID) {
	if !e.usable() {
		return
	}
	s, t := e.dev.texture(src), e.dev.texture(dst)
	if s == nil || t == nil {
		e.fail(fmt.Errorf("software: copy texture %d -> %d: %w", src, dst, gpucore.ErrUnknownResource))
		return
	}
	if s.width != t.width || s.height != t.height {
		e.fail(fmt.Errorf("software: copy texture %dx%d -> %dx%d: %w",
			s.width, s.height, t.width, t.height, gpucore.ErrInvalidSize))
		return
	}
	e.cmds = append(e.cmds, func(d *Device) {
		s, t := d.texture(src), d.texture(dst)
		if s == nil || t == nil {
			slogger().Warn("software: copy skipped, texture destroyed", "src", src, "dst", dst)
			return
		}
		copy(t.data, s.data)
	})
}

// WriteBuffer implements gpucore.CommandEncoder.
func (e *commandEncoder) WriteBuffer(id gpucore.BufferID, data []byte) {
	if !e.usable() {
		return
	}
	e.dev.mu.Lock()
	b, ok := e.dev.buffers[id]
	e.dev.mu.Unlock()
	if !ok {
		e.fail(fmt.Errorf("software: write buffer %d: %w", id, gpucore.ErrUnknownResource))
		return
	}
	if len(data) > len(b.data) {
		e.fail(fmt.Errorf("software: write buffer %d: %d bytes exceeds size %d: %w",
			id, len(data), len(b.data), gpucore.ErrInvalidSize))
		return
	}
	snapshot := append([]byte(nil), data...)
	e.cmds = append(e.cmds, func(d *Device) {
		d.mu.Lock()
		b := d.buffers[id]
		d.mu.Unlock()
		if b != nil {
			copy(b.data, snapshot)
		}
	})
}

// BeginComputePass implements gpucore.CommandEncoder.
func (e *commandEncoder) BeginComputePass(label string) gpucore.ComputePassEncoder {
	return &computePass{enc: e, label: label}
}

// Commit implements gpucore.CommandEncoder.
func (e *commandEncoder) Commit() error {
	if e.finished {
		return gpucore.ErrEncoderFinished
	}
	e.finished = true
	if e.err != nil {
		return e.err
	}
	if len(e.cmds) == 0 {
		return nil
	}
	cmds := e.cmds
	e.cmds = nil
	return e.dev.submit(cmds)
}

// computePass records dispatches against the state set so far.
type computePass struct {
	enc      *commandEncoder
	label    string
	pipeline gpucore.ComputePipelineID
	textures map[int]gpucore.TextureID
	buffers  map[int]gpucore.BufferID
	ended    bool
}

var _ gpucore.ComputePassEncoder = (*computePass)(nil)

func (p *computePass) SetPipeline(id gpucore.ComputePipelineID) {
	p.pipeline = id
}

func (p *computePass) SetTexture(slot int, id gpucore.TextureID) {
	if p.textures == nil {
		p.textures = make(map[int]gpucore.TextureID)
	}
	p.textures[slot] = id
}

func (p *computePass) SetBuffer(slot int, id gpucore.BufferID) {
	if p.buffers == nil {
		p.buffers = make(map[int]gpucore.BufferID)
	}
	p.buffers[slot] = id
}

// Dispatch captures the current bindings and records the dispatch.
func (p *computePass) Dispatch(groups, threads gpucore.Size) {
	e := p.enc
	if p.ended {
		e.fail(gpucore.ErrEncoderFinished)
		return
	}
	if !e.usable() {
		return
	}
	if e.dev.pipeline(p.pipeline) == nil {
		e.fail(fmt.Errorf("software: dispatch %q: pipeline %d: %w", p.label, p.pipeline, gpucore.ErrUnknownResource))
		return
	}
	if threads.Width <= 0 || threads.Height <= 0 {
		e.fail(fmt.Errorf("software: dispatch %q: %w", p.label, gpucore.ErrInvalidSize))
		return
	}
	if threads.Width*threads.Height > e.dev.cfg.MaxThreadsPerGroup {
		e.fail(fmt.Errorf("%w: %dx%d", ErrWorkgroupTooLarge, threads.Width, threads.Height))
		return
	}

	pipelineID := p.pipeline
	textures := make(map[int]gpucore.TextureID, len(p.textures))
	for k, v := range p.textures {
		textures[k] = v
	}
	buffers := make(map[int]gpucore.BufferID, len(p.buffers))
	for k, v := range p.buffers {
		buffers[k] = v
	}
	label := p.label

	e.cmds = append(e.cmds, func(d *Device) {
		d.execute(label, pipelineID, textures, buffers, groups, threads)
	})
}

func (p *computePass) End() {
	p.ended = true
}

// execute runs one dispatch. Group rows are spread over the worker pool;
// each invocation receives its global thread position.
func (d *Device) execute(label string, pipelineID gpucore.ComputePipelineID,
	textures map[int]gpucore.TextureID, buffers map[int]gpucore.BufferID,
	groups, threads gpucore.Size) {
	d.mu.Lock()
	p := d.pipelines[pipelineID]
	b := &bindings{}
	for slot, id := range textures {
		t := d.textures[id]
		if t == nil || slot < 0 {
			continue
		}
		for len(b.textures) <= slot {
			b.textures = append(b.textures, nil)
		}
		b.textures[slot] = t
	}
	for slot, id := range buffers {
		buf := d.buffers[id]
		if buf == nil || slot < 0 {
			continue
		}
		for len(b.vectors) <= slot {
			b.vectors = append(b.vectors, [4]float32{})
		}
		b.vectors[slot] = buf.vec4()
	}
	d.mu.Unlock()

	if p == nil {
		slogger().Warn("software: dispatch skipped, pipeline destroyed", "label", label)
		return
	}
	if groups.Width <= 0 || groups.Height <= 0 {
		return
	}

	fn := p.fn
	tw, th := threads.Width, threads.Height
	d.pool.Range(groups.Height, func(gy int) {
		for gx := 0; gx < groups.Width; gx++ {
			for ty := 0; ty < th; ty++ {
				y := gy*th + ty
				for tx := 0; tx < tw; tx++ {
					fn(b, gx*tw+tx, y)
				}
			}
		}
	})
	d.dispatches.Add(1)

	slogger().Debug("software: dispatch",
		"label", label,
		"groups", fmt.Sprintf("%dx%d", groups.Width, groups.Height),
		"threads", fmt.Sprintf("%dx%d", tw, th),
	)
}
