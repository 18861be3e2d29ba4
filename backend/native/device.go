//go:build !nogpu

package native

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/fx/gpucore"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// Name is the device name reported by Device.Name.
const Name = "native"

// texture is a packed RGBA8 image held in a storage buffer: one u32 per
// texel, r in the low byte. On little-endian hosts that is the same byte
// order as image.RGBA, so uploads and readbacks need no repacking.
type texture struct {
	label  string
	width  int
	height int
	size   uint64
	buf    hal.Buffer
}

// paramBuffer is a uniform buffer holding one parameter value.
type paramBuffer struct {
	size uint64
	buf  hal.Buffer
}

// Device is a gpucore.Device running WGSL kernels through gogpu/wgpu HAL.
//
// Thread Safety: Device is safe for concurrent use. All HAL calls are
// serialized by a mutex.
type Device struct {
	mu sync.Mutex

	cfg      Config
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	adapter  string
	limits   groupLimits
	external bool // shared device: don't destroy on Close
	closed   bool

	nextID    atomic.Uint64
	textures  map[gpucore.TextureID]*texture
	buffers   map[gpucore.BufferID]*paramBuffer
	pipelines map[gpucore.ComputePipelineID]*pipeline

	// zero backs parameter slots that a dispatch leaves unbound.
	zero hal.Buffer

	inflight inflightQueue
}

var _ gpucore.Device = (*Device)(nil)

// New opens the first discrete or integrated GPU of the configured backend.
func New(cfg Config) (*Device, error) {
	cfg.applyDefaults()

	backend, ok := hal.GetBackend(cfg.Backend)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, cfg.Backend)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("native: create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoGPU
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	limits := gputypes.DefaultLimits()
	openDev, err := selected.Adapter.Open(gputypes.Features(0), limits)
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("native: open device: %w", err)
	}

	d := newDevice(cfg, openDev.Device, openDev.Queue, limits)
	d.instance = instance
	d.adapter = selected.Info.Name
	if err := d.init(); err != nil {
		d.device.Destroy()
		instance.Destroy()
		return nil, err
	}

	slogger().Info("native: device opened",
		"adapter", d.adapter,
		"backend", fmt.Sprint(cfg.Backend),
		"max_threads", d.cfg.maxThreads(d.limits),
	)
	return d, nil
}

// NewFromProvider shares the GPU device of a host application. The provider
// must implement HalDevice() any and HalQueue() any returning hal.Device and
// hal.Queue. The shared device is not destroyed by Close.
func NewFromProvider(provider gpucontext.DeviceProvider, cfg Config) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrInvalidProvider
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrInvalidProvider)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrInvalidProvider)
	}

	cfg.applyDefaults()
	d := newDevice(cfg, device, queue, gputypes.DefaultLimits())
	d.external = true
	d.adapter = "shared"
	if err := d.init(); err != nil {
		return nil, err
	}
	slogger().Info("native: using shared GPU device")
	return d, nil
}

func newDevice(cfg Config, device hal.Device, queue hal.Queue, limits gputypes.Limits) *Device {
	d := &Device{
		cfg:       cfg,
		device:    device,
		queue:     queue,
		limits:    limitsFrom(limits),
		textures:  make(map[gpucore.TextureID]*texture),
		buffers:   make(map[gpucore.BufferID]*paramBuffer),
		pipelines: make(map[gpucore.ComputePipelineID]*pipeline),
	}
	// Start ID generation at 1 (0 is invalid)
	d.nextID.Store(1)
	return d
}

// init creates device-wide resources.
func (d *Device) init() error {
	zero, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "fx_zero_param", Size: 16,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("native: create zero buffer: %w", err)
	}
	d.queue.WriteBuffer(zero, 0, make([]byte, 16))
	d.zero = zero
	return nil
}

func (d *Device) newID() uint64 {
	return d.nextID.Add(1) - 1
}

// Name implements gpucore.Device.
func (d *Device) Name() string { return Name }

// Adapter returns the name of the GPU in use.
func (d *Device) Adapter() string { return d.adapter }

// SetLogger routes the device's logs to l.
func (d *Device) SetLogger(l *slog.Logger) { setLogger(l) }

// === Textures ===

// CreateTexture implements gpucore.Device.
func (d *Device) CreateTexture(desc *gpucore.TextureDesc) (gpucore.TextureID, error) {
	if desc == nil || desc.Width <= 0 || desc.Height <= 0 {
		return gpucore.InvalidID, fmt.Errorf("native: create texture: %w", gpucore.ErrInvalidSize)
	}
	if desc.Format != gpucore.TextureFormatRGBA8Unorm {
		return gpucore.InvalidID, fmt.Errorf("native: unsupported texture format %s", desc.Format)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return gpucore.InvalidID, gpucore.ErrDeviceClosed
	}

	size := uint64(desc.Width) * uint64(desc.Height) * 4 //nolint:gosec // validated positive
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Label, Size: size,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create texture %q: %w", desc.Label, err)
	}

	id := gpucore.TextureID(d.newID())
	d.textures[id] = &texture{label: desc.Label, width: desc.Width, height: desc.Height, size: size, buf: buf}
	return id, nil
}

// DestroyTexture implements gpucore.Device. The storage is released once
// submitted work that may use it has completed.
func (d *Device) DestroyTexture(id gpucore.TextureID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.textures[id]
	if !ok {
		return
	}
	delete(d.textures, id)
	d.inflight.deferRelease(func() { d.device.DestroyBuffer(t.buf) })
}

// ReadTexture implements gpucore.Device. It waits for all submitted work.
func (d *Device) ReadTexture(id gpucore.TextureID) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, gpucore.ErrDeviceClosed
	}
	t, ok := d.textures[id]
	if !ok {
		return nil, fmt.Errorf("native: read texture %d: %w", id, gpucore.ErrUnknownResource)
	}

	staging, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "fx_readback", Size: t.size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("native: create staging buffer: %w", err)
	}
	defer d.device.DestroyBuffer(staging)

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "fx_readback"})
	if err != nil {
		return nil, fmt.Errorf("native: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("fx_readback"); err != nil {
		return nil, fmt.Errorf("native: begin encoding: %w", err)
	}
	encoder.CopyBufferToBuffer(t.buf, staging, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: t.size},
	})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("native: end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	fence, err := d.device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("native: create fence: %w", err)
	}
	defer d.device.DestroyFence(fence)

	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return nil, fmt.Errorf("native: submit readback: %w", err)
	}
	ok, err = d.device.Wait(fence, 1, d.cfg.ReadbackTimeout)
	if err != nil {
		return nil, fmt.Errorf("native: wait for GPU: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w after %v", ErrReadbackTimeout, d.cfg.ReadbackTimeout)
	}

	out := make([]byte, t.size)
	if err := d.queue.ReadBuffer(staging, 0, out); err != nil {
		return nil, fmt.Errorf("native: readback: %w", err)
	}

	// Everything submitted before the readback is complete too.
	d.reap(true)
	return out, nil
}

// === Buffers ===

// CreateBuffer implements gpucore.Device.
func (d *Device) CreateBuffer(size int, _ gpucore.BufferUsage) (gpucore.BufferID, error) {
	if size <= 0 {
		return gpucore.InvalidID, fmt.Errorf("native: create buffer: %w", gpucore.ErrInvalidSize)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return gpucore.InvalidID, gpucore.ErrDeviceClosed
	}

	n := uint64(uniformSize(size)) //nolint:gosec // validated positive
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "fx_param", Size: n,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create buffer: %w", err)
	}
	id := gpucore.BufferID(d.newID())
	d.buffers[id] = &paramBuffer{size: n, buf: buf}
	return id, nil
}

// DestroyBuffer implements gpucore.Device.
func (d *Device) DestroyBuffer(id gpucore.BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buffers[id]
	if !ok {
		return
	}
	delete(d.buffers, id)
	d.inflight.deferRelease(func() { d.device.DestroyBuffer(b.buf) })
}

// === Submission bookkeeping ===

// reap releases completed submissions. With wait set, it blocks on each
// outstanding fence up to the readback timeout.
func (d *Device) reap(wait bool) {
	timeout := d.cfg.ReadbackTimeout
	if !wait {
		timeout = 0
	}
	done := d.inflight.popCompleted(func(s *submission) bool {
		ok, err := d.device.Wait(s.fence, 1, timeout)
		if err != nil {
			slogger().Warn("native: fence wait failed", "submission", s.id, "err", err)
			return false
		}
		return ok
	})
	for _, s := range done {
		d.cleanup(s)
	}
}

// waitOldest blocks until the oldest submission completes.
func (d *Device) waitOldest() {
	first := true
	done := d.inflight.popCompleted(func(s *submission) bool {
		if !first {
			return false
		}
		first = false
		ok, err := d.device.Wait(s.fence, 1, d.cfg.ReadbackTimeout)
		if err != nil || !ok {
			slogger().Warn("native: submission did not complete", "submission", s.id, "ok", ok, "err", err)
			return false
		}
		return true
	})
	for _, s := range done {
		d.cleanup(s)
	}
}

// cleanup destroys all resources tracked by a completed submission.
func (d *Device) cleanup(s *submission) {
	if s.fence != nil {
		d.device.DestroyFence(s.fence)
	}
	if s.cmdBuf != nil {
		d.device.FreeCommandBuffer(s.cmdBuf)
	}
	for _, g := range s.bindGroups {
		d.device.DestroyBindGroup(g)
	}
	for _, b := range s.buffers {
		d.device.DestroyBuffer(b)
	}
	for _, fn := range s.release {
		fn()
	}
}

// === Lifecycle ===

// NewCommandEncoder implements gpucore.Device.
func (d *Device) NewCommandEncoder(label string) (gpucore.CommandEncoder, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, gpucore.ErrDeviceClosed
	}
	return &commandEncoder{dev: d, label: label}, nil
}

// Close waits for outstanding work and releases every resource. A shared
// device is left open.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	d.reap(true)
	var errs []error
	if n := d.inflight.len(); n > 0 {
		errs = append(errs, fmt.Errorf("native: %d submissions still pending at close", n))
		for _, s := range d.inflight.popCompleted(func(*submission) bool { return true }) {
			d.cleanup(s)
		}
	}

	for id, p := range d.pipelines {
		p.destroy(d.device)
		delete(d.pipelines, id)
	}
	for id, t := range d.textures {
		d.device.DestroyBuffer(t.buf)
		delete(d.textures, id)
	}
	for id, b := range d.buffers {
		d.device.DestroyBuffer(b.buf)
		delete(d.buffers, id)
	}
	if d.zero != nil {
		d.device.DestroyBuffer(d.zero)
		d.zero = nil
	}

	if !d.external {
		if d.device != nil {
			d.device.Destroy()
		}
		if d.instance != nil {
			d.instance.Destroy()
		}
	}
	d.device = nil
	d.instance = nil
	d.queue = nil

	if len(errs) > 0 {
		slogger().Warn("native: close", "err", errors.Join(errs...))
		return errors.Join(errs...)
	}
	return nil
}
