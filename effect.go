package fx

import (
	"errors"
	"fmt"
	"slices"

	"github.com/gogpu/fx/gpucore"
)

// Texture slots the kernels agree on.
const (
	// InputTextureSlot holds the source image in image mode.
	InputTextureSlot = 0

	// OutputTextureSlot is where image-mode kernels write.
	OutputTextureSlot = 1

	// GeneratorOutputSlot is where generator kernels write.
	GeneratorOutputSlot = 0
)

// Mode is the execution mode of an effect. ImageEffect and
// GeneratorEffect are the two implementations in this package.
type Mode interface {
	// HasInputTexture reports whether the effect consumes a source image.
	HasInputTexture() bool

	// OutputExtent returns the required output size. A change from the
	// cached size invalidates the texture pair.
	OutputExtent() (width, height int)

	// RenderInput records the upload of the source into dst. It is only
	// called when HasInputTexture is true.
	RenderInput(enc gpucore.CommandEncoder, dst gpucore.TextureID) error
}

// Stats describes an effect's resource use.
type Stats struct {
	// Dispatches counts successful Output calls.
	Dispatches int
	// Allocations counts texture pair allocations.
	Allocations int
	// BoundParams is the number of parameters uploaded by the last dispatch.
	BoundParams int
	// SkippedParams is the number of parameters the last dispatch skipped.
	SkippedParams int
	// Tile is the work-group side.
	Tile int
	// Grid is the current group count.
	Grid gpucore.Size
	// Uncovered is the border the grid does not reach.
	Uncovered gpucore.Size
	// State is the texture cache state.
	State TextureState
}

// Effect runs one compute kernel over a texture pair.
//
// An Effect is not safe for concurrent use: parameters are set by a
// single host goroutine between Output calls.
type Effect struct {
	dev      gpucore.Device
	opts     options
	mode     Mode
	kernel   *kernelHandle
	tile     int
	limits   gpucore.Limits
	textures textureCache
	binder   *binder
	params   []Param
	meta     Metadata
	released bool

	dispatches int
	lastBind   bindResult
}

// NewEffect builds an effect for a kernel. It resolves the kernel, builds
// the pipeline, picks the tile size and allocates parameter buffers. Any
// failure is a configuration defect and aborts construction.
func NewEffect(dev gpucore.Device, lib KernelLibrary, kernelName string, mode Mode, params []Param, opts ...Option) (*Effect, error) {
	e := &Effect{}
	if err := e.init(dev, lib, kernelName, mode, params, opts); err != nil {
		return nil, err
	}
	return e, nil
}

// MustNewEffect is like NewEffect but panics on error.
func MustNewEffect(dev gpucore.Device, lib KernelLibrary, kernelName string, mode Mode, params []Param, opts ...Option) *Effect {
	e, err := NewEffect(dev, lib, kernelName, mode, params, opts...)
	if err != nil {
		panic(err)
	}
	return e
}

func (e *Effect) init(dev gpucore.Device, lib KernelLibrary, kernelName string, mode Mode, params []Param, opts []Option) error {
	if dev == nil {
		return ErrNilDevice
	}
	if mode == nil {
		return fmt.Errorf("%w: %q", ErrInvalidMode, kernelName)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.label == "" {
		o.label = kernelName
	}

	if o.display == "" {
		o.display = displayName(kernelName)
	}

	meta := Metadata{Kernel: kernelName, DisplayName: o.display}
	for _, p := range params {
		meta.Params = append(meta.Params, p.ParamDesc)
	}
	if err := meta.Validate(); err != nil {
		return err
	}

	trackDevice(dev)

	b, err := newBinder(dev, o.label, params, o.strict)
	if err != nil {
		return err
	}

	layout := gpucore.BindingLayout{Buffers: b.layout()}
	if mode.HasInputTexture() {
		layout.Textures = []gpucore.TextureSlot{
			{Slot: InputTextureSlot, Access: gpucore.TextureAccessRead},
			{Slot: OutputTextureSlot, Access: gpucore.TextureAccessWrite},
		}
	} else {
		layout.Textures = []gpucore.TextureSlot{
			{Slot: GeneratorOutputSlot, Access: gpucore.TextureAccessWrite},
		}
	}

	k, err := newKernelHandle(dev, lib, kernelName, o.label, layout)
	if err != nil {
		b.release()
		return err
	}
	tile, limits, err := k.configureTile(dev)
	if err != nil {
		k.release(dev)
		b.release()
		return err
	}

	slogger().Debug("fx: effect created",
		"effect", o.label,
		"kernel", kernelName,
		"device", dev.Name(),
		"max_threads", limits.MaxThreadsPerGroup,
		"execution_width", limits.ExecutionWidth,
		"tile", tile,
		"params", len(params),
	)

	*e = Effect{
		dev:    dev,
		opts:   o,
		mode:   mode,
		kernel: k,
		tile:   tile,
		limits: limits,
		textures: textureCache{
			dev:       dev,
			label:     o.label,
			withInput: mode.HasInputTexture(),
			tile:      tile,
			policy:    o.grid,
		},
		binder: b,
		params: params,
		meta:   meta,
	}
	return nil
}

// Output runs the kernel and returns the output image. Submission is
// asynchronous; reading the image's pixels waits for the work.
//
// Every call recomputes from the current parameters and source. Textures
// are reused while the output size is unchanged.
func (e *Effect) Output() (*Image, error) {
	if e.released {
		return nil, ErrReleased
	}

	width, height := e.mode.OutputExtent()
	if _, err := e.textures.ensureTextures(width, height); err != nil {
		return nil, err
	}

	enc, err := e.dev.NewCommandEncoder(e.opts.label)
	if err != nil {
		return nil, fmt.Errorf("fx: %s: command encoder: %w", e.opts.label, err)
	}

	hasInput := e.mode.HasInputTexture()
	if hasInput {
		if err := e.mode.RenderInput(enc, e.textures.input); err != nil {
			return nil, fmt.Errorf("fx: %s: render input: %w", e.opts.label, err)
		}
	}

	res, err := e.binder.upload(enc)
	if err != nil {
		return nil, err
	}

	pass := enc.BeginComputePass(e.opts.label)
	pass.SetPipeline(e.kernel.pipeline)
	e.binder.attach(pass, res)
	if hasInput {
		pass.SetTexture(InputTextureSlot, e.textures.input)
		pass.SetTexture(OutputTextureSlot, e.textures.output)
	} else {
		pass.SetTexture(GeneratorOutputSlot, e.textures.output)
	}
	pass.Dispatch(e.textures.grid, gpucore.Size{Width: e.tile, Height: e.tile})
	pass.End()

	if err := enc.Commit(); err != nil {
		return nil, fmt.Errorf("fx: %s: commit: %w", e.opts.label, err)
	}

	e.dispatches++
	e.lastBind = res
	return NewTextureImage(e.dev, e.textures.output, width, height, e.opts.colorSpace), nil
}

// MustOutput is like Output but panics on error.
func (e *Effect) MustOutput() *Image {
	img, err := e.Output()
	if err != nil {
		panic(err)
	}
	return img
}

// Metadata returns the effect's parameter table.
func (e *Effect) Metadata() Metadata {
	m := e.meta
	m.Params = slices.Clone(e.meta.Params)
	return m
}

// SetParam sets a parameter by name. Scalars are clamped to Min and color
// components to [0,1].
func (e *Effect) SetParam(name string, v Value) error {
	p, ok := e.param(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownParam, name)
	}
	if p.Set == nil {
		return fmt.Errorf("%w: %q", ErrReadOnlyParam, name)
	}
	if v == nil || v.Kind() != p.Kind {
		return fmt.Errorf("%w: %q wants %s", ErrParamKind, name, p.Kind)
	}
	return p.Set(p.normalize(v))
}

// Param returns the current value of a parameter.
func (e *Effect) Param(name string) (Value, bool) {
	p, ok := e.param(name)
	if !ok || p.Get == nil {
		return nil, false
	}
	return p.Get()
}

func (e *Effect) param(name string) (Param, bool) {
	for _, p := range e.params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// Device returns the device the effect runs on.
func (e *Effect) Device() gpucore.Device { return e.dev }

// Tile returns the work-group side.
func (e *Effect) Tile() int { return e.tile }

// Limits returns the pipeline limits the tile was derived from.
func (e *Effect) Limits() gpucore.Limits { return e.limits }

// TextureState returns the texture cache state.
func (e *Effect) TextureState() TextureState { return e.textures.state }

// Stats returns resource counters.
func (e *Effect) Stats() Stats {
	return Stats{
		Dispatches:    e.dispatches,
		Allocations:   e.textures.allocations,
		BoundParams:   len(e.lastBind.slots),
		SkippedParams: len(e.lastBind.skipped),
		Tile:          e.tile,
		Grid:          e.textures.grid,
		Uncovered:     UncoveredBorder(e.textures.width, e.textures.height, e.textures.grid, e.tile),
		State:         e.textures.state,
	}
}

// Release destroys the effect's textures, buffers and pipeline. Images
// returned by Output become unreadable once pending work completes.
func (e *Effect) Release() {
	if e.released {
		return
	}
	e.released = true
	e.textures.release()
	e.binder.release()
	e.kernel.release(e.dev)
}

// IsConfigError reports whether err is a construction-time defect.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrKernelNotFound) ||
		errors.Is(err, ErrPipelineBuild) ||
		errors.Is(err, ErrInvalidMode) ||
		errors.Is(err, ErrSlotCollision) ||
		errors.Is(err, ErrNilDevice)
}
