package fx

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"log/slog"
	"testing"

	"github.com/gogpu/fx/gpucore"
)

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func TestNewEffectErrors(t *testing.T) {
	var scale float64
	var tint Color
	lib := newFakeLibrary("tint")

	tests := []struct {
		name    string
		lib     KernelLibrary
		kernel  string
		mode    Mode
		params  []Param
		want    error
		config  bool
		nilDev  bool
		pipeErr error
	}{
		{name: "nil device", nilDev: true, lib: lib, kernel: "tint", mode: &ImageEffect{}, want: ErrNilDevice, config: true},
		{name: "nil mode", lib: lib, kernel: "tint", want: ErrInvalidMode, config: true},
		{name: "unknown kernel", lib: lib, kernel: "missing", mode: &ImageEffect{}, want: ErrKernelNotFound, config: true},
		{name: "nil library", kernel: "tint", mode: &ImageEffect{}, want: ErrKernelNotFound, config: true},
		{name: "pipeline failure", lib: lib, kernel: "tint", mode: &ImageEffect{}, pipeErr: errors.New("boom"), want: ErrPipelineBuild, config: true},
		{name: "slot collision", lib: lib, kernel: "tint", mode: &ImageEffect{}, want: ErrSlotCollision, config: true,
			params: []Param{
				ScalarParam(ParamDesc{Name: "a", Slot: 1}, &scale),
				ColorParam(ParamDesc{Name: "b", Slot: 1}, &tint),
			}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := newFakeDevice()
			dev.pipelineErr = tt.pipeErr
			var d gpucore.Device = dev
			if tt.nilDev {
				d = nil
			}
			e, err := NewEffect(d, tt.lib, tt.kernel, tt.mode, tt.params)
			if e != nil || !errors.Is(err, tt.want) {
				t.Fatalf("NewEffect() = %v, %v, want %v", e, err, tt.want)
			}
			if IsConfigError(err) != tt.config {
				t.Errorf("IsConfigError(%v) = %v", err, !tt.config)
			}
			if len(dev.buffers) != 0 || len(dev.pipelines) != 0 {
				t.Errorf("leaked %d buffers, %d pipelines", len(dev.buffers), len(dev.pipelines))
			}
		})
	}
}

func TestNewEffectConfigureFailure(t *testing.T) {
	dev := newFakeDevice()
	dev.configureErr = errors.New("too large")
	var scale float64
	var tint Color
	_, err := NewImageEffect(dev, newFakeLibrary("tint"), "tint", testParams(&scale, &tint))
	if !errors.Is(err, ErrPipelineBuild) {
		t.Fatalf("error = %v, want ErrPipelineBuild", err)
	}
	if len(dev.buffers) != 0 || len(dev.pipelines) != 0 {
		t.Errorf("leaked %d buffers, %d pipelines", len(dev.buffers), len(dev.pipelines))
	}
}

func TestMustNewEffectPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("MustNewImageEffect did not panic")
		}
	}()
	MustNewImageEffect(newFakeDevice(), newFakeLibrary(), "missing", nil)
}

func TestEffectTileAndLayout(t *testing.T) {
	dev := newFakeDevice()
	dev.limits = gpucore.Limits{MaxThreadsPerGroup: 256, ExecutionWidth: 32}
	var scale float64
	var tint Color
	e, err := NewImageEffect(dev, newFakeLibrary("tint"), "tint", testParams(&scale, &tint))
	if err != nil {
		t.Fatal(err)
	}
	if e.Tile() != 16 {
		t.Errorf("Tile() = %d, want 16", e.Tile())
	}
	if dev.sides[e.kernel.pipeline] != 16 {
		t.Errorf("ConfigureWorkgroup side = %d, want 16", dev.sides[e.kernel.pipeline])
	}
	if e.Limits() != dev.limits {
		t.Errorf("Limits() = %+v", e.Limits())
	}

	desc := dev.pipelines[e.kernel.pipeline]
	want := []gpucore.TextureSlot{
		{Slot: InputTextureSlot, Access: gpucore.TextureAccessRead},
		{Slot: OutputTextureSlot, Access: gpucore.TextureAccessWrite},
	}
	if len(desc.Layout.Textures) != 2 || desc.Layout.Textures[0] != want[0] || desc.Layout.Textures[1] != want[1] {
		t.Errorf("texture layout = %+v", desc.Layout.Textures)
	}
	if len(desc.Layout.Buffers) != 2 {
		t.Errorf("buffer layout = %+v", desc.Layout.Buffers)
	}
	if desc.Label != "tint" || desc.Function.Name() != "tint" {
		t.Errorf("pipeline label %q kernel %q", desc.Label, desc.Function.Name())
	}

	meta := e.Metadata()
	if meta.Kernel != "tint" || meta.DisplayName != "Tint" || len(meta.Params) != 2 {
		t.Errorf("Metadata() = %+v", meta)
	}
	meta.Params[0].Name = "changed"
	if e.Metadata().Params[0].Name != "inputScale" {
		t.Error("Metadata() exposes internal slice")
	}
}

func TestImageEffectOutput(t *testing.T) {
	dev := newFakeDevice()
	scale, tint := 2.0, RGB(1, 0, 0)
	e, err := NewImageEffect(dev, newFakeLibrary("tint"), "tint", testParams(&scale, &tint),
		WithLabel("tinter"), WithGridPolicy(GridCeil), WithColorSpace(ColorSpaceSRGB))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := e.Output(); !errors.Is(err, ErrNoInput) {
		t.Fatalf("Output() without input = %v, want ErrNoInput", err)
	}

	src := solidImage(100, 50, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	e.SetInput(NewImage(src))
	out, err := e.Output()
	if err != nil {
		t.Fatal(err)
	}
	if w, h := out.Extent(); w != 100 || h != 50 {
		t.Errorf("output extent = %dx%d", w, h)
	}
	if out.ColorSpace() != ColorSpaceSRGB {
		t.Errorf("output color space = %s", out.ColorSpace())
	}
	if _, tex, ok := out.Texture(); !ok || tex != e.textures.output {
		t.Errorf("output does not wrap the output texture")
	}

	if len(dev.dispatches) != 1 {
		t.Fatalf("dispatches = %d, want 1", len(dev.dispatches))
	}
	d := dev.dispatches[0]
	if d.pipeline != e.kernel.pipeline {
		t.Errorf("dispatch pipeline = %d", d.pipeline)
	}
	if d.threads != (gpucore.Size{Width: 32, Height: 32}) {
		t.Errorf("threads = %+v, want 32x32", d.threads)
	}
	if d.groups != (gpucore.Size{Width: 4, Height: 2}) {
		t.Errorf("groups = %+v, want 4x2 (ceil)", d.groups)
	}
	if d.textures[InputTextureSlot] != e.textures.input || d.textures[OutputTextureSlot] != e.textures.output {
		t.Errorf("textures = %v", d.textures)
	}
	if len(d.buffers) != 2 {
		t.Errorf("buffers = %v", d.buffers)
	}
	if !bytes.Equal(dev.textureWrites[e.textures.input], src.Pix) {
		t.Error("input upload does not match the source pixels")
	}
	if floatAt(dev.bufferWrites[d.buffers[0]], 0) != 2 {
		t.Error("scale not uploaded")
	}
	if dev.textures[e.textures.output].Label != "tinter_output" {
		t.Errorf("texture label = %q", dev.textures[e.textures.output].Label)
	}

	// Parameter changes land in the next dispatch without reallocating.
	if err := e.SetParam("inputScale", Scalar(5)); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Output(); err != nil {
		t.Fatal(err)
	}
	if floatAt(dev.bufferWrites[d.buffers[0]], 0) != 5 {
		t.Error("updated scale not uploaded")
	}

	st := e.Stats()
	want := Stats{
		Dispatches:  2,
		Allocations: 1,
		BoundParams: 2,
		Tile:        32,
		Grid:        gpucore.Size{Width: 4, Height: 2},
		State:       TextureAllocated,
	}
	if st != want {
		t.Errorf("Stats() = %+v, want %+v", st, want)
	}
}

func TestImageEffectCopiesDeviceInput(t *testing.T) {
	dev := newFakeDevice()
	lib := newFakeLibrary("gen", "tint")
	gen, err := NewGeneratorEffect(dev, lib, "gen", nil)
	if err != nil {
		t.Fatal(err)
	}
	gen.SetSize(64, 64)
	img, err := gen.Output()
	if err != nil {
		t.Fatal(err)
	}

	var scale float64
	var tint Color
	e, err := NewImageEffect(dev, lib, "tint", testParams(&scale, &tint))
	if err != nil {
		t.Fatal(err)
	}
	e.SetInput(img)
	if _, err := e.Output(); err != nil {
		t.Fatal(err)
	}
	if len(dev.copies) != 1 || dev.copies[0] != [2]gpucore.TextureID{gen.textures.output, e.textures.input} {
		t.Errorf("copies = %v, want generator output -> effect input", dev.copies)
	}
	if _, ok := dev.textureWrites[e.textures.input]; ok {
		t.Error("same-device input was uploaded from the host")
	}
}

func TestGeneratorEffect(t *testing.T) {
	dev := newFakeDevice()
	var scale float64
	var tint Color
	g, err := NewGeneratorEffect(dev, newFakeLibrary("gen"), "gen", testParams(&scale, &tint))
	if err != nil {
		t.Fatal(err)
	}
	if w, h := g.Size(); w != DefaultGeneratorWidth || h != DefaultGeneratorHeight {
		t.Errorf("default size = %dx%d", w, h)
	}
	desc := dev.pipelines[g.kernel.pipeline]
	if len(desc.Layout.Textures) != 1 || desc.Layout.Textures[0].Slot != GeneratorOutputSlot {
		t.Errorf("generator layout = %+v", desc.Layout.Textures)
	}

	if _, err := g.Output(); err != nil {
		t.Fatal(err)
	}
	if len(dev.textures) != 1 {
		t.Errorf("generator holds %d textures, want 1", len(dev.textures))
	}
	d := dev.dispatches[0]
	if d.textures[GeneratorOutputSlot] != g.textures.output || len(d.textures) != 1 {
		t.Errorf("dispatch textures = %v", d.textures)
	}
	// Default grid policy truncates: 640/32.
	if d.groups != (gpucore.Size{Width: 20, Height: 20}) {
		t.Errorf("groups = %+v", d.groups)
	}

	g.SetSize(100, 40)
	if _, err := g.Output(); err != nil {
		t.Fatal(err)
	}
	st := g.Stats()
	if st.Allocations != 2 || dev.destroyedTextures != 1 {
		t.Errorf("allocations %d destroyed %d", st.Allocations, dev.destroyedTextures)
	}
	if st.Uncovered != (gpucore.Size{Width: 4, Height: 8}) {
		t.Errorf("Uncovered = %+v, want 4x8", st.Uncovered)
	}

	g.SetSize(0, 10)
	if _, err := g.Output(); !errors.Is(err, ErrEmptyExtent) {
		t.Errorf("Output() at 0x10 = %v, want ErrEmptyExtent", err)
	}
}

func TestEffectSetParam(t *testing.T) {
	dev := newFakeDevice()
	scale, tint := 1.0, RGB(1, 1, 1)
	params := append(testParams(&scale, &tint),
		Param{ParamDesc: ParamDesc{Name: "inputFixed", Slot: 2, Kind: KindScalar},
			Get: func() (Value, bool) { return Scalar(3), true }})
	e, err := NewImageEffect(dev, newFakeLibrary("tint"), "tint", params)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		v    Value
		want error
	}{
		{"missing", Scalar(1), ErrUnknownParam},
		{"inputFixed", Scalar(1), ErrReadOnlyParam},
		{"inputScale", RGB(1, 1, 1), ErrParamKind},
		{"inputScale", nil, ErrParamKind},
		{"inputScale", Scalar(-3), nil},
		{"inputTint", Color{R: 2, G: 0.5, B: -1, A: 1}, nil},
	}
	for _, tt := range tests {
		if err := e.SetParam(tt.name, tt.v); !errors.Is(err, tt.want) {
			t.Errorf("SetParam(%s, %v) = %v, want %v", tt.name, tt.v, err, tt.want)
		}
	}
	if scale != 0 {
		t.Errorf("scale = %v, want clamped to Min 0", scale)
	}
	if tint != (Color{R: 1, G: 0.5, B: 0, A: 1}) {
		t.Errorf("tint = %v, want clamped", tint)
	}
	if v, ok := e.Param("inputFixed"); !ok || v != Scalar(3) {
		t.Errorf("Param(inputFixed) = %v, %v", v, ok)
	}
	if _, ok := e.Param("missing"); ok {
		t.Error("Param(missing) found a value")
	}
}

func TestEffectStrictParams(t *testing.T) {
	dev := newFakeDevice()
	params := []Param{{ParamDesc: ParamDesc{Name: "a", Slot: 0, Kind: KindScalar}}}

	lenient, err := NewGeneratorEffect(dev, newFakeLibrary("gen"), "gen", params)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := lenient.Output(); err != nil {
		t.Fatalf("lenient Output() = %v", err)
	}
	if st := lenient.Stats(); st.SkippedParams != 1 || st.BoundParams != 0 {
		t.Errorf("Stats() = %+v, want one skip", st)
	}
	if _, ok := dev.dispatches[0].buffers[0]; ok {
		t.Error("skipped parameter was bound")
	}

	strict, err := NewGeneratorEffect(dev, newFakeLibrary("gen"), "gen", params, WithStrictParams())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := strict.Output(); !errors.Is(err, ErrParamKind) {
		t.Errorf("strict Output() = %v, want ErrParamKind", err)
	}
	if strict.Stats().Dispatches != 0 {
		t.Error("failed Output counted as a dispatch")
	}
}

func TestEffectRelease(t *testing.T) {
	dev := newFakeDevice()
	var scale float64
	var tint Color
	e, err := NewImageEffect(dev, newFakeLibrary("tint"), "tint", testParams(&scale, &tint))
	if err != nil {
		t.Fatal(err)
	}
	e.SetInput(NewImage(solidImage(8, 8, color.RGBA{A: 255})))
	if _, err := e.Output(); err != nil {
		t.Fatal(err)
	}

	e.Release()
	e.Release()
	if len(dev.textures) != 0 || len(dev.buffers) != 0 || len(dev.pipelines) != 0 {
		t.Errorf("live after release: %d textures, %d buffers, %d pipelines",
			len(dev.textures), len(dev.buffers), len(dev.pipelines))
	}
	if dev.destroyedPipelines != 1 {
		t.Errorf("pipeline destroyed %d times", dev.destroyedPipelines)
	}
	if _, err := e.Output(); !errors.Is(err, ErrReleased) {
		t.Errorf("Output() after release = %v, want ErrReleased", err)
	}
	if e.TextureState() != TextureAbsent {
		t.Errorf("TextureState() = %s", e.TextureState())
	}
}

func TestEffectPropagatesLogger(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	dev := newFakeDevice()
	custom := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	SetLogger(custom)
	if _, err := NewGeneratorEffect(dev, newFakeLibrary("gen"), "gen", nil); err != nil {
		t.Fatal(err)
	}
	if dev.currentLogger() != custom {
		t.Error("effect creation did not hand the logger to its device")
	}

	other := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	SetLogger(other)
	if dev.currentLogger() != other {
		t.Error("SetLogger did not reach a tracked device")
	}
}
