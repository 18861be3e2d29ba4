package fx

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/fx/gpucore"
)

// fakeFunction is a kernel with no implementation.
type fakeFunction struct{ name string }

func (f fakeFunction) Name() string                { return f.name }
func (f fakeFunction) EntryPoint() string          { return "main" }
func (f fakeFunction) SPIRV(int) ([]uint32, error) { return nil, errors.New("fake: no SPIR-V") }
func (f fakeFunction) CPU() gpucore.KernelFunc     { return nil }

// fakeLibrary resolves the names it was built with.
type fakeLibrary map[string]bool

func newFakeLibrary(names ...string) fakeLibrary {
	l := make(fakeLibrary, len(names))
	for _, n := range names {
		l[n] = true
	}
	return l
}

func (l fakeLibrary) Resolve(name string) (gpucore.ShaderFunction, error) {
	if !l[name] {
		return nil, fmt.Errorf("fake: no kernel %q", name)
	}
	return fakeFunction{name: name}, nil
}

// fakeDispatch is one recorded Dispatch call.
type fakeDispatch struct {
	pipeline gpucore.ComputePipelineID
	textures map[int]gpucore.TextureID
	buffers  map[int]gpucore.BufferID
	groups   gpucore.Size
	threads  gpucore.Size
}

// fakeDevice records every call. Committed sequences are applied in
// order; nothing executes.
type fakeDevice struct {
	mu sync.Mutex

	limits gpucore.Limits
	nextID uint64

	textures  map[gpucore.TextureID]gpucore.TextureDesc
	buffers   map[gpucore.BufferID]int
	pipelines map[gpucore.ComputePipelineID]*gpucore.ComputePipelineDesc
	sides     map[gpucore.ComputePipelineID]int

	// Failure injection.
	failTexture   int // fail the n-th CreateTexture call (1-based); 0 never
	textureCalls  int
	pipelineErr   error
	configureErr  error
	limitsErr     error
	readTexture   []byte
	textureWrites map[gpucore.TextureID][]byte
	bufferWrites  map[gpucore.BufferID][]byte
	copies        [][2]gpucore.TextureID
	dispatches    []fakeDispatch
	commits       int

	destroyedTextures  int
	destroyedBuffers   int
	destroyedPipelines int

	logger *slog.Logger
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		limits:        gpucore.Limits{MaxThreadsPerGroup: 1024, ExecutionWidth: 32},
		textures:      make(map[gpucore.TextureID]gpucore.TextureDesc),
		buffers:       make(map[gpucore.BufferID]int),
		pipelines:     make(map[gpucore.ComputePipelineID]*gpucore.ComputePipelineDesc),
		sides:         make(map[gpucore.ComputePipelineID]int),
		textureWrites: make(map[gpucore.TextureID][]byte),
		bufferWrites:  make(map[gpucore.BufferID][]byte),
	}
}

var _ gpucore.Device = (*fakeDevice)(nil)

func (d *fakeDevice) id() uint64 {
	d.nextID++
	return d.nextID
}

func (d *fakeDevice) Name() string { return "fake" }

func (d *fakeDevice) SetLogger(l *slog.Logger) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.logger = l
}

func (d *fakeDevice) currentLogger() *slog.Logger {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.logger
}

func (d *fakeDevice) CreateTexture(desc *gpucore.TextureDesc) (gpucore.TextureID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.textureCalls++
	if d.failTexture == d.textureCalls {
		return gpucore.InvalidID, errors.New("fake: out of memory")
	}
	id := gpucore.TextureID(d.id())
	d.textures[id] = *desc
	return id, nil
}

func (d *fakeDevice) DestroyTexture(id gpucore.TextureID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.textures[id]; ok {
		delete(d.textures, id)
		d.destroyedTextures++
	}
}

func (d *fakeDevice) ReadTexture(id gpucore.TextureID) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	desc, ok := d.textures[id]
	if !ok {
		return nil, gpucore.ErrUnknownResource
	}
	if d.readTexture != nil {
		return d.readTexture, nil
	}
	return make([]byte, desc.Width*desc.Height*4), nil
}

func (d *fakeDevice) CreateBuffer(size int, _ gpucore.BufferUsage) (gpucore.BufferID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := gpucore.BufferID(d.id())
	d.buffers[id] = size
	return id, nil
}

func (d *fakeDevice) DestroyBuffer(id gpucore.BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.buffers[id]; ok {
		delete(d.buffers, id)
		d.destroyedBuffers++
	}
}

func (d *fakeDevice) CreateComputePipeline(desc *gpucore.ComputePipelineDesc) (gpucore.ComputePipelineID, error) {
	if d.pipelineErr != nil {
		return gpucore.InvalidID, d.pipelineErr
	}
	if err := desc.Layout.Validate(); err != nil {
		return gpucore.InvalidID, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	id := gpucore.ComputePipelineID(d.id())
	cp := *desc
	d.pipelines[id] = &cp
	return id, nil
}

func (d *fakeDevice) DestroyComputePipeline(id gpucore.ComputePipelineID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.pipelines[id]; ok {
		delete(d.pipelines, id)
		d.destroyedPipelines++
	}
}

func (d *fakeDevice) PipelineLimits(gpucore.ComputePipelineID) (gpucore.Limits, error) {
	return d.limits, d.limitsErr
}

func (d *fakeDevice) ConfigureWorkgroup(id gpucore.ComputePipelineID, side int) error {
	if d.configureErr != nil {
		return d.configureErr
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sides[id] = side
	return nil
}

func (d *fakeDevice) NewCommandEncoder(string) (gpucore.CommandEncoder, error) {
	return &fakeEncoder{dev: d}, nil
}

func (d *fakeDevice) Close() error { return nil }

// fakeEncoder queues closures and applies them on Commit.
type fakeEncoder struct {
	dev  *fakeDevice
	cmds []func(d *fakeDevice)
}

func (e *fakeEncoder) WriteTexture(id gpucore.TextureID, data []byte) {
	snapshot := append([]byte(nil), data...)
	e.cmds = append(e.cmds, func(d *fakeDevice) { d.textureWrites[id] = snapshot })
}

func (e *fakeEncoder) CopyTexture(src, dst gpucore.TextureID) {
	e.cmds = append(e.cmds, func(d *fakeDevice) { d.copies = append(d.copies, [2]gpucore.TextureID{src, dst}) })
}

func (e *fakeEncoder) WriteBuffer(id gpucore.BufferID, data []byte) {
	snapshot := append([]byte(nil), data...)
	e.cmds = append(e.cmds, func(d *fakeDevice) { d.bufferWrites[id] = snapshot })
}

func (e *fakeEncoder) BeginComputePass(string) gpucore.ComputePassEncoder {
	return &fakePass{enc: e, textures: map[int]gpucore.TextureID{}, buffers: map[int]gpucore.BufferID{}}
}

func (e *fakeEncoder) Commit() error {
	e.dev.mu.Lock()
	defer e.dev.mu.Unlock()
	for _, cmd := range e.cmds {
		cmd(e.dev)
	}
	e.dev.commits++
	return nil
}

type fakePass struct {
	enc      *fakeEncoder
	pipeline gpucore.ComputePipelineID
	textures map[int]gpucore.TextureID
	buffers  map[int]gpucore.BufferID
}

func (p *fakePass) SetPipeline(id gpucore.ComputePipelineID) { p.pipeline = id }
func (p *fakePass) SetTexture(slot int, id gpucore.TextureID) { p.textures[slot] = id }
func (p *fakePass) SetBuffer(slot int, id gpucore.BufferID)   { p.buffers[slot] = id }
func (p *fakePass) End()                                      {}

func (p *fakePass) Dispatch(groups, threads gpucore.Size) {
	d := fakeDispatch{
		pipeline: p.pipeline,
		textures: make(map[int]gpucore.TextureID, len(p.textures)),
		buffers:  make(map[int]gpucore.BufferID, len(p.buffers)),
		groups:   groups,
		threads:  threads,
	}
	for k, v := range p.textures {
		d.textures[k] = v
	}
	for k, v := range p.buffers {
		d.buffers[k] = v
	}
	p.enc.cmds = append(p.enc.cmds, func(dev *fakeDevice) { dev.dispatches = append(dev.dispatches, d) })
}

// testParams returns a scalar and a color parameter bound to the given
// fields, at slots 0 and 1.
func testParams(scale *float64, tint *Color) []Param {
	return []Param{
		ScalarParam(ParamDesc{Name: "inputScale", Slot: 0, Default: Scalar(1), Min: 0}, scale),
		ColorParam(ParamDesc{Name: "inputTint", Slot: 1, Default: RGB(1, 1, 1)}, tint),
	}
}
