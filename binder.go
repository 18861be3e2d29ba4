package fx

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/gogpu/fx/gpucore"
)

// paramBufferSize is the size of every parameter buffer: one vec4<f32>,
// the minimum uniform binding size. Scalars use the first component.
const paramBufferSize = 16

// binder uploads parameter values into per-slot buffers on each dispatch.
type binder struct {
	dev     gpucore.Device
	label   string
	params  []Param
	buffers map[int]gpucore.BufferID
	strict  bool
}

// bindResult records what one upload did.
type bindResult struct {
	slots   []int
	skipped []string
}

// newBinder allocates one buffer per bindable parameter.
func newBinder(dev gpucore.Device, label string, params []Param, strict bool) (*binder, error) {
	b := &binder{
		dev:     dev,
		label:   label,
		params:  params,
		buffers: make(map[int]gpucore.BufferID, len(params)),
		strict:  strict,
	}
	for _, p := range params {
		if !p.Bindable() {
			continue
		}
		id, err := dev.CreateBuffer(paramBufferSize, gpucore.BufferUsageUniform|gpucore.BufferUsageCopyDst)
		if err != nil {
			b.release()
			return nil, fmt.Errorf("fx: %s: buffer for %q: %w", label, p.Name, err)
		}
		b.buffers[p.Slot] = id
	}
	return b, nil
}

// layout lists the buffer slots the kernel sees.
func (b *binder) layout() []gpucore.BufferSlot {
	slots := make([]gpucore.BufferSlot, 0, len(b.buffers))
	for slot := range b.buffers {
		slots = append(slots, gpucore.BufferSlot{Slot: slot, Size: paramBufferSize})
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Slot < slots[j].Slot })
	return slots
}

// upload reads every bindable parameter and records a buffer write for
// each value that converts. Values that cannot be read or converted are
// skipped; in strict mode the first skip is an error instead.
func (b *binder) upload(enc gpucore.CommandEncoder) (bindResult, error) {
	var res bindResult
	for _, p := range b.params {
		if !p.Bindable() {
			continue
		}
		data, ok := b.read(p)
		if !ok {
			if b.strict {
				return res, fmt.Errorf("%w: %s: %q", ErrParamKind, b.label, p.Name)
			}
			slogger().Debug("fx: parameter skipped",
				"effect", b.label,
				"param", p.Name,
				"slot", p.Slot,
				"kind", p.Kind.String(),
			)
			res.skipped = append(res.skipped, p.Name)
			continue
		}
		enc.WriteBuffer(b.buffers[p.Slot], data)
		res.slots = append(res.slots, p.Slot)
	}
	return res, nil
}

// attach binds the uploaded buffers to their slots.
func (b *binder) attach(pass gpucore.ComputePassEncoder, res bindResult) {
	for _, slot := range res.slots {
		pass.SetBuffer(slot, b.buffers[slot])
	}
}

// read fetches and converts one parameter value.
func (b *binder) read(p Param) ([]byte, bool) {
	if p.Get == nil {
		return nil, false
	}
	v, ok := p.Get()
	if !ok || v == nil {
		return nil, false
	}
	return encodeValue(p.Kind, v)
}

// release destroys the parameter buffers.
func (b *binder) release() {
	for slot, id := range b.buffers {
		b.dev.DestroyBuffer(id)
		delete(b.buffers, slot)
	}
}

// encodeValue converts a value to its kernel representation: a float32 in
// the first lane for Scalar, a vec4<f32> for Color. The kind must match
// and scalars must be finite.
func encodeValue(kind Kind, v Value) ([]byte, bool) {
	buf := make([]byte, paramBufferSize)
	switch kind {
	case KindScalar:
		s, ok := v.(Scalar)
		if !ok || math.IsNaN(float64(s)) || math.IsInf(float64(s), 0) {
			return nil, false
		}
		binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(s)))
	case KindColor:
		c, ok := v.(Color)
		if !ok || !c.finite() {
			return nil, false
		}
		for i, f := range c.Vec4() {
			binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
		}
	default:
		return nil, false
	}
	return buf, true
}
