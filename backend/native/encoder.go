//go:build !nogpu

package native

import (
	"fmt"

	"github.com/gogpu/fx/gpucore"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// op is one recorded command. Resources are resolved again at Commit, so a
// texture destroyed between recording and commit fails cleanly.
type op struct {
	kind opKind

	texture gpucore.TextureID
	src     gpucore.TextureID
	buffer  gpucore.BufferID
	data    []byte

	label    string
	pipeline gpucore.ComputePipelineID
	textures map[int]gpucore.TextureID
	buffers  map[int]gpucore.BufferID
	groups   gpucore.Size
	threads  gpucore.Size
}

type opKind uint8

const (
	opWriteTexture opKind = iota
	opCopyTexture
	opWriteBuffer
	opDispatch
)

// commandEncoder records ops and encodes them into one HAL command buffer
// at Commit.
type commandEncoder struct {
	dev      *Device
	label    string
	ops      []op
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

func (e *commandEncoder) textureSize(id gpucore.TextureID) (w, h int, ok bool) {
	e.dev.mu.Lock()
	defer e.dev.mu.Unlock()
	t, ok := e.dev.textures[id]
	if !ok {
		return 0, 0, false
	}
	return t.width, t.height, true
}

// WriteTexture implements gpucore.CommandEncoder.
func (e *commandEncoder) WriteTexture(id gpucore.TextureID, data []byte) {
	if !e.usable() {
		return
	}
	w, h, ok := e.textureSize(id)
	if !ok {
		e.fail(fmt.Errorf("native: write texture %d: %w", id, gpucore.ErrUnknownResource))
		return
	}
	if len(data) != w*h*4 {
		e.fail(fmt.Errorf("native: write texture %d: got %d bytes, want %d: %w",
			id, len(data), w*h*4, gpucore.ErrInvalidSize))
		return
	}
	e.ops = append(e.ops, op{kind: opWriteTexture, texture: id, data: append([]byte(nil), data...)})
}

// CopyTexture implements gpucore.CommandEncoder.
func (e *commandEncoder) CopyTexture(src, dst gpucore.TextureID) {
	if !e.usable() {
		return
	}
	sw, sh, okSrc := e.textureSize(src)
	dw, dh, okDst := e.textureSize(dst)
	if !okSrc || !okDst {
		e.fail(fmt.Errorf("native: copy texture %d -> %d: %w", src, dst, gpucore.ErrUnknownResource))
		return
	}
	if sw != dw || sh != dh {
		e.fail(fmt.Errorf("native: copy texture %dx%d -> %dx%d: %w", sw, sh, dw, dh, gpucore.ErrInvalidSize))
		return
	}
	e.ops = append(e.ops, op{kind: opCopyTexture, src: src, texture: dst})
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
		e.fail(fmt.Errorf("native: write buffer %d: %w", id, gpucore.ErrUnknownResource))
		return
	}
	if uint64(len(data)) > b.size {
		e.fail(fmt.Errorf("native: write buffer %d: %d bytes exceeds size %d: %w",
			id, len(data), b.size, gpucore.ErrInvalidSize))
		return
	}
	// Copies must be 4-byte aligned; pad the snapshot.
	snapshot := make([]byte, align4(len(data)))
	copy(snapshot, data)
	e.ops = append(e.ops, op{kind: opWriteBuffer, buffer: id, data: snapshot})
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
	if len(e.ops) == 0 {
		return nil
	}
	ops := e.ops
	e.ops = nil
	return e.dev.commit(e.label, ops)
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

// Dispatch checks the group shape against the pipeline and records the
// dispatch with a copy of the current bindings.
func (p *computePass) Dispatch(groups, threads gpucore.Size) {
	e := p.enc
	if p.ended {
		e.fail(gpucore.ErrEncoderFinished)
		return
	}
	if !e.usable() {
		return
	}

	e.dev.mu.Lock()
	pl, ok := e.dev.pipelines[p.pipeline]
	side := 0
	if ok {
		side = pl.side
	}
	e.dev.mu.Unlock()
	if !ok {
		e.fail(fmt.Errorf("native: dispatch %q: pipeline %d: %w", p.label, p.pipeline, gpucore.ErrUnknownResource))
		return
	}
	if threads.Width != side || threads.Height != side {
		e.fail(fmt.Errorf("%w: dispatch %q uses %dx%d, pipeline is compiled for %dx%d",
			ErrWorkgroupMismatch, p.label, threads.Width, threads.Height, side, side))
		return
	}

	textures := make(map[int]gpucore.TextureID, len(p.textures))
	for k, v := range p.textures {
		textures[k] = v
	}
	buffers := make(map[int]gpucore.BufferID, len(p.buffers))
	for k, v := range p.buffers {
		buffers[k] = v
	}
	e.ops = append(e.ops, op{
		kind:     opDispatch,
		label:    p.label,
		pipeline: p.pipeline,
		textures: textures,
		buffers:  buffers,
		groups:   groups,
		threads:  threads,
	})
}

func (p *computePass) End() {
	p.ended = true
}

// commit encodes ops into one command buffer and submits it without waiting.
func (d *Device) commit(label string, ops []op) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return gpucore.ErrDeviceClosed
	}

	d.reap(false)
	if d.inflight.len() >= d.cfg.MaxInFlight {
		d.waitOldest()
	}

	if label == "" {
		label = "fx_commands"
	}
	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return fmt.Errorf("native: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(label); err != nil {
		return fmt.Errorf("native: begin encoding: %w", err)
	}

	sub := &submission{}
	discard := func(err error) error {
		encoder.DiscardEncoding()
		d.cleanup(sub)
		return err
	}

	for i := range ops {
		if err := d.encode(encoder, sub, &ops[i]); err != nil {
			return discard(err)
		}
	}

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return discard(fmt.Errorf("native: end encoding: %w", err))
	}
	sub.cmdBuf = cmdBuf

	fence, err := d.device.CreateFence()
	if err != nil {
		d.cleanup(sub)
		return fmt.Errorf("native: create fence: %w", err)
	}
	sub.fence = fence

	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		d.cleanup(sub)
		return fmt.Errorf("native: submit: %w", err)
	}
	d.inflight.push(sub)
	return nil
}

// encode appends one op to the command buffer. Transient resources are
// attached to sub and live until its fence signals.
func (d *Device) encode(encoder hal.CommandEncoder, sub *submission, o *op) error {
	switch o.kind {
	case opWriteTexture:
		t, ok := d.textures[o.texture]
		if !ok {
			return fmt.Errorf("native: write texture %d: %w", o.texture, gpucore.ErrUnknownResource)
		}
		staging, err := d.upload("fx_texture_upload", o.data, sub)
		if err != nil {
			return err
		}
		encoder.CopyBufferToBuffer(staging, t.buf, []hal.BufferCopy{{Size: t.size}})

	case opCopyTexture:
		s, okSrc := d.textures[o.src]
		t, okDst := d.textures[o.texture]
		if !okSrc || !okDst {
			return fmt.Errorf("native: copy texture %d -> %d: %w", o.src, o.texture, gpucore.ErrUnknownResource)
		}
		encoder.CopyBufferToBuffer(s.buf, t.buf, []hal.BufferCopy{{Size: t.size}})

	case opWriteBuffer:
		b, ok := d.buffers[o.buffer]
		if !ok {
			return fmt.Errorf("native: write buffer %d: %w", o.buffer, gpucore.ErrUnknownResource)
		}
		if len(o.data) == 0 {
			return nil
		}
		staging, err := d.upload("fx_param_upload", o.data, sub)
		if err != nil {
			return err
		}
		encoder.CopyBufferToBuffer(staging, b.buf, []hal.BufferCopy{{Size: uint64(len(o.data))}})

	case opDispatch:
		return d.encodeDispatch(encoder, sub, o)
	}
	return nil
}

// upload stages data in a fresh buffer written through the queue.
func (d *Device) upload(label string, data []byte, sub *submission) (hal.Buffer, error) {
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("native: create %s: %w", label, err)
	}
	sub.buffers = append(sub.buffers, buf)
	d.queue.WriteBuffer(buf, 0, data)
	return buf, nil
}

// encodeDispatch builds the three bind groups and records one compute pass.
func (d *Device) encodeDispatch(encoder hal.CommandEncoder, sub *submission, o *op) error {
	p, ok := d.pipelines[o.pipeline]
	if !ok {
		return fmt.Errorf("native: dispatch %q: pipeline %d: %w", o.label, o.pipeline, gpucore.ErrUnknownResource)
	}
	if o.threads.Width != p.side || o.threads.Height != p.side {
		return fmt.Errorf("%w: dispatch %q uses %dx%d, pipeline is compiled for %dx%d",
			ErrWorkgroupMismatch, o.label, o.threads.Width, o.threads.Height, p.side, p.side)
	}
	if o.groups.Width <= 0 || o.groups.Height <= 0 {
		return nil
	}

	// Textures.
	texEntries := make([]gputypes.BindGroupEntry, 0, len(p.layout.Textures))
	var extent *texture
	for _, s := range p.layout.Textures {
		id, bound := o.textures[s.Slot]
		t, live := d.textures[id]
		if !bound || !live {
			return fmt.Errorf("%w: dispatch %q slot %d", ErrUnboundTexture, o.label, s.Slot)
		}
		if p.hasExtent && s.Slot == p.extent {
			extent = t
		}
		texEntries = append(texEntries, gputypes.BindGroupEntry{
			Binding:  uint32(s.Slot), //nolint:gosec // validated non-negative
			Resource: gputypes.BufferBinding{Buffer: t.buf.NativeHandle(), Offset: 0, Size: t.size},
		})
	}

	// Parameters. Unbound slots read the shared zero uniform.
	paramEntries := make([]gputypes.BindGroupEntry, 0, len(p.layout.Buffers))
	for _, s := range p.layout.Buffers {
		buf, size := d.zero, uint64(extentSize)
		if id, bound := o.buffers[s.Slot]; bound {
			if b, live := d.buffers[id]; live {
				buf, size = b.buf, b.size
			}
		}
		paramEntries = append(paramEntries, gputypes.BindGroupEntry{
			Binding:  uint32(s.Slot), //nolint:gosec // validated non-negative
			Resource: gputypes.BufferBinding{Buffer: buf.NativeHandle(), Offset: 0, Size: size},
		})
	}

	// Extent.
	extentBuf := d.zero
	if extent != nil {
		buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
			Label: "fx_extent", Size: extentSize,
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("native: create extent buffer: %w", err)
		}
		sub.buffers = append(sub.buffers, buf)
		d.queue.WriteBuffer(buf, 0, extentBytes(extent.width, extent.height))
		extentBuf = buf
	}
	extentEntries := []gputypes.BindGroupEntry{
		{Binding: 0, Resource: gputypes.BufferBinding{Buffer: extentBuf.NativeHandle(), Offset: 0, Size: extentSize}},
	}

	var groups [groupCount]hal.BindGroup
	for i, entries := range [groupCount][]gputypes.BindGroupEntry{texEntries, paramEntries, extentEntries} {
		bg, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
			Label:   o.label,
			Layout:  p.groupLayouts[i],
			Entries: entries,
		})
		if err != nil {
			return fmt.Errorf("native: create bind group %d for %q: %w", i, o.label, err)
		}
		sub.bindGroups = append(sub.bindGroups, bg)
		groups[i] = bg
	}

	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: o.label})
	pass.SetPipeline(p.compute)
	for i, bg := range groups {
		pass.SetBindGroup(uint32(i), bg, nil) //nolint:gosec // i < groupCount
	}
	pass.Dispatch(uint32(o.groups.Width), uint32(o.groups.Height), 1) //nolint:gosec // validated positive
	pass.End()

	slogger().Debug("native: dispatch",
		"label", o.label,
		"groups", fmt.Sprintf("%dx%d", o.groups.Width, o.groups.Height),
		"threads", fmt.Sprintf("%dx%d", o.threads.Width, o.threads.Height),
	)
	return nil
}
