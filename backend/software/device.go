package software

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/fx/gpucore"
	"github.com/gogpu/fx/internal/parallel"
)

// Name is the device name reported by Device.Name.
const Name = "software"

// Errors returned by the software device.
var (
	// ErrNoCPUKernel is returned for kernels without a Go implementation.
	ErrNoCPUKernel = errors.New("software: kernel has no CPU implementation")

	// ErrWorkgroupTooLarge is returned when a group exceeds MaxThreadsPerGroup.
	ErrWorkgroupTooLarge = errors.New("software: workgroup exceeds thread limit")
)

// Config configures a software device. Zero fields take defaults.
type Config struct {
	// Workers is the number of goroutines running groups.
	// Default: GOMAXPROCS.
	Workers int

	// MaxThreadsPerGroup is the reported group size limit. Default: 1024.
	MaxThreadsPerGroup int

	// ExecutionWidth is the reported SIMD width. Default: 32.
	ExecutionWidth int

	// QueueDepth bounds how many committed sequences may be pending
	// before Commit blocks. Default: 64.
	QueueDepth int
}

func (c *Config) applyDefaults() {
	if c.MaxThreadsPerGroup <= 0 {
		c.MaxThreadsPerGroup = 1024
	}
	if c.ExecutionWidth <= 0 {
		c.ExecutionWidth = 32
	}
	if c.QueueDepth <= 0 {
		c.QueueDepth = 64
	}
}

// Device is a gpucore.Device that runs Go kernels on a worker pool.
//
// Committed sequences execute in order on a single queue goroutine; each
// dispatch fans its group rows out over the pool. Commit never waits;
// ReadTexture is ordered behind everything committed before it.
type Device struct {
	cfg  Config
	pool *parallel.WorkerPool

	nextID atomic.Uint64

	mu        sync.Mutex
	textures  map[gpucore.TextureID]*texture
	buffers   map[gpucore.BufferID]*buffer
	pipelines map[gpucore.ComputePipelineID]*pipeline

	// sendMu guards queue against Close while a sequence is being sent.
	sendMu sync.RWMutex
	closed bool
	queue  chan []command
	idle   chan struct{}

	dispatches atomic.Uint64
}

var _ gpucore.Device = (*Device)(nil)

// command is one recorded operation, run on the queue goroutine.
type command func(d *Device)

// pipeline is a compiled CPU kernel.
type pipeline struct {
	label  string
	fn     gpucore.KernelFunc
	layout gpucore.BindingLayout
	side   int
}

// New creates a software device and starts its queue.
func New(cfg Config) *Device {
	cfg.applyDefaults()
	d := &Device{
		cfg:       cfg,
		pool:      parallel.NewWorkerPool(cfg.Workers),
		textures:  make(map[gpucore.TextureID]*texture),
		buffers:   make(map[gpucore.BufferID]*buffer),
		pipelines: make(map[gpucore.ComputePipelineID]*pipeline),
		queue:     make(chan []command, cfg.QueueDepth),
		idle:      make(chan struct{}),
	}
	d.nextID.Store(1)
	go d.run()

	slogger().Info("software: device created",
		"workers", d.pool.Workers(),
		"max_threads", cfg.MaxThreadsPerGroup,
		"execution_width", cfg.ExecutionWidth,
	)
	return d
}

// run executes committed sequences in submission order.
func (d *Device) run() {
	defer close(d.idle)
	for seq := range d.queue {
		for _, cmd := range seq {
			cmd(d)
		}
	}
}

func (d *Device) newID() uint64 {
	return d.nextID.Add(1) - 1
}

// Name implements gpucore.Device.
func (d *Device) Name() string { return Name }

// SetLogger routes the device's logs to l.
func (d *Device) SetLogger(l *slog.Logger) { setLogger(l) }

// Config returns the effective configuration.
func (d *Device) Config() Config { return d.cfg }

// submit enqueues a sequence, or runs it inline once the device is closed
// so that destruction still happens.
func (d *Device) submit(seq []command) error {
	d.sendMu.RLock()
	if d.closed {
		d.sendMu.RUnlock()
		return gpucore.ErrDeviceClosed
	}
	d.queue <- seq
	d.sendMu.RUnlock()
	return nil
}

// === Textures ===

// CreateTexture implements gpucore.Device.
func (d *Device) CreateTexture(desc *gpucore.TextureDesc) (gpucore.TextureID, error) {
	if desc == nil || desc.Width <= 0 || desc.Height <= 0 {
		return gpucore.InvalidID, fmt.Errorf("software: create texture: %w", gpucore.ErrInvalidSize)
	}
	if desc.Format != gpucore.TextureFormatRGBA8Unorm {
		return gpucore.InvalidID, fmt.Errorf("software: unsupported texture format %s", desc.Format)
	}
	id := gpucore.TextureID(d.newID())
	d.mu.Lock()
	d.textures[id] = newTexture(desc)
	d.mu.Unlock()
	return id, nil
}

// DestroyTexture implements gpucore.Device.
func (d *Device) DestroyTexture(id gpucore.TextureID) {
	drop := func(d *Device) {
		d.mu.Lock()
		delete(d.textures, id)
		d.mu.Unlock()
	}
	if err := d.submit([]command{drop}); err != nil {
		drop(d)
	}
}

// ReadTexture implements gpucore.Device.
func (d *Device) ReadTexture(id gpucore.TextureID) ([]byte, error) {
	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	read := func(d *Device) {
		t := d.texture(id)
		if t == nil {
			done <- result{err: fmt.Errorf("software: read texture %d: %w", id, gpucore.ErrUnknownResource)}
			return
		}
		done <- result{data: append([]byte(nil), t.data...)}
	}
	if err := d.submit([]command{read}); err != nil {
		return nil, err
	}
	r := <-done
	return r.data, r.err
}

// LiveTextures returns the number of textures not yet destroyed, after
// all pending work has run.
func (d *Device) LiveTextures() int {
	_ = d.Flush()
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.textures)
}

// Dispatches returns how many dispatches have executed.
func (d *Device) Dispatches() uint64 {
	return d.dispatches.Load()
}

// Flush blocks until every sequence committed before the call has run.
func (d *Device) Flush() error {
	done := make(chan struct{})
	if err := d.submit([]command{func(*Device) { close(done) }}); err != nil {
		return err
	}
	<-done
	return nil
}

func (d *Device) texture(id gpucore.TextureID) *texture {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.textures[id]
}

// === Buffers ===

// CreateBuffer implements gpucore.Device.
func (d *Device) CreateBuffer(size int, _ gpucore.BufferUsage) (gpucore.BufferID, error) {
	if size <= 0 {
		return gpucore.InvalidID, fmt.Errorf("software: create buffer: %w", gpucore.ErrInvalidSize)
	}
	id := gpucore.BufferID(d.newID())
	d.mu.Lock()
	d.buffers[id] = &buffer{data: make([]byte, size)}
	d.mu.Unlock()
	return id, nil
}

// DestroyBuffer implements gpucore.Device.
func (d *Device) DestroyBuffer(id gpucore.BufferID) {
	drop := func(d *Device) {
		d.mu.Lock()
		delete(d.buffers, id)
		d.mu.Unlock()
	}
	if err := d.submit([]command{drop}); err != nil {
		drop(d)
	}
}

// === Pipelines ===

// CreateComputePipeline implements gpucore.Device.
func (d *Device) CreateComputePipeline(desc *gpucore.ComputePipelineDesc) (gpucore.ComputePipelineID, error) {
	if desc == nil || desc.Function == nil {
		return gpucore.InvalidID, fmt.Errorf("software: create pipeline: nil function")
	}
	fn := desc.Function.CPU()
	if fn == nil {
		return gpucore.InvalidID, fmt.Errorf("%w: %s", ErrNoCPUKernel, desc.Function.Name())
	}
	if err := desc.Layout.Validate(); err != nil {
		return gpucore.InvalidID, err
	}
	side := desc.WorkgroupSide
	if side <= 0 {
		side = 8
	}

	id := gpucore.ComputePipelineID(d.newID())
	d.mu.Lock()
	d.pipelines[id] = &pipeline{label: desc.Label, fn: fn, layout: desc.Layout, side: side}
	d.mu.Unlock()

	slogger().Debug("software: pipeline created", "label", desc.Label, "kernel", desc.Function.Name())
	return id, nil
}

// DestroyComputePipeline implements gpucore.Device.
func (d *Device) DestroyComputePipeline(id gpucore.ComputePipelineID) {
	drop := func(d *Device) {
		d.mu.Lock()
		delete(d.pipelines, id)
		d.mu.Unlock()
	}
	if err := d.submit([]command{drop}); err != nil {
		drop(d)
	}
}

// PipelineLimits implements gpucore.Device.
func (d *Device) PipelineLimits(id gpucore.ComputePipelineID) (gpucore.Limits, error) {
	if d.pipeline(id) == nil {
		return gpucore.Limits{}, fmt.Errorf("software: pipeline %d: %w", id, gpucore.ErrUnknownResource)
	}
	return gpucore.Limits{
		MaxThreadsPerGroup: d.cfg.MaxThreadsPerGroup,
		ExecutionWidth:     d.cfg.ExecutionWidth,
	}, nil
}

// ConfigureWorkgroup implements gpucore.Device.
func (d *Device) ConfigureWorkgroup(id gpucore.ComputePipelineID, side int) error {
	if side <= 0 || side*side > d.cfg.MaxThreadsPerGroup {
		return fmt.Errorf("%w: %dx%d > %d", ErrWorkgroupTooLarge, side, side, d.cfg.MaxThreadsPerGroup)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.pipelines[id]
	if !ok {
		return fmt.Errorf("software: pipeline %d: %w", id, gpucore.ErrUnknownResource)
	}
	p.side = side
	return nil
}

func (d *Device) pipeline(id gpucore.ComputePipelineID) *pipeline {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pipelines[id]
}

// === Commands ===

// NewCommandEncoder implements gpucore.Device.
func (d *Device) NewCommandEncoder(label string) (gpucore.CommandEncoder, error) {
	d.sendMu.RLock()
	closed := d.closed
	d.sendMu.RUnlock()
	if closed {
		return nil, gpucore.ErrDeviceClosed
	}
	return &commandEncoder{dev: d, label: label}, nil
}

// Close drains the queue and stops the workers.
// Close is safe to call multiple times.
func (d *Device) Close() error {
	d.sendMu.Lock()
	if d.closed {
		d.sendMu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.sendMu.Unlock()

	<-d.idle
	d.pool.Close()
	return nil
}
