package fx_test

import (
	"image"
	"image/color"
	"testing"

	"github.com/gogpu/fx"
	"github.com/gogpu/fx/backend/software"
	"github.com/gogpu/fx/gpucore"
	"github.com/gogpu/fx/kernel"
)

// invertCPU writes 1-c for every color channel, scaled by the amount at
// buffer slot 0. Alpha is kept.
func invertCPU(b gpucore.Bindings, x, y int) {
	src, dst := b.Texture(fx.InputTextureSlot), b.Texture(fx.OutputTextureSlot)
	if x >= dst.Width() || y >= dst.Height() {
		return
	}
	amount := b.Scalar(0)
	c := src.Load(x, y)
	for i := range 3 {
		c[i] = c[i] + (1-2*c[i])*amount
	}
	dst.Store(x, y, c)
}

// fillCPU paints the color at buffer slot 0.
func fillCPU(b gpucore.Bindings, x, y int) {
	b.Texture(fx.GeneratorOutputSlot).Store(x, y, b.Vector(0))
}

func newTestLibrary(t *testing.T) *kernel.Library {
	t.Helper()
	lib := kernel.NewLibrary()
	lib.MustAdd(kernel.Source{Name: "invert", CPU: invertCPU})
	lib.MustAdd(kernel.Source{Name: "fill", CPU: fillCPU})
	return lib
}

type invert struct {
	*fx.ImageEffect
	Amount float64
}

func newInvert(t *testing.T, dev gpucore.Device, lib fx.KernelLibrary, opts ...fx.Option) *invert {
	t.Helper()
	inv := &invert{Amount: 1}
	params := []fx.Param{
		fx.ScalarParam(fx.ParamDesc{Name: "inputAmount", Slot: 0, Default: fx.Scalar(1)}, &inv.Amount),
	}
	ie, err := fx.NewImageEffect(dev, lib, "invert", params, opts...)
	if err != nil {
		t.Fatal(err)
	}
	inv.ImageEffect = ie
	return inv
}

type fill struct {
	*fx.GeneratorEffect
	Color fx.Color
}

func newFill(t *testing.T, dev gpucore.Device, lib fx.KernelLibrary, opts ...fx.Option) *fill {
	t.Helper()
	f := &fill{Color: fx.RGB(1, 0, 0)}
	params := []fx.Param{
		fx.ColorParam(fx.ParamDesc{Name: "inputColor", Slot: 0}, &f.Color),
	}
	g, err := fx.NewGeneratorEffect(dev, lib, "fill", params, opts...)
	if err != nil {
		t.Fatal(err)
	}
	f.GeneratorEffect = g
	return f
}

func gray(w, h int, v uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = v, v, v, 255
	}
	return img
}

func TestSoftwareInvert(t *testing.T) {
	dev := software.New(software.Config{MaxThreadsPerGroup: 64})
	defer dev.Close()
	inv := newInvert(t, dev, newTestLibrary(t), fx.WithGridPolicy(fx.GridCeil))
	defer inv.Release()

	if inv.Tile() != 8 {
		t.Errorf("Tile() = %d, want 8", inv.Tile())
	}

	inv.SetInput(fx.NewImage(gray(20, 12, 51)))
	out, err := inv.Output()
	if err != nil {
		t.Fatal(err)
	}
	rgba, err := out.RGBA()
	if err != nil {
		t.Fatal(err)
	}
	for y := range 12 {
		for x := range 20 {
			if c := rgba.RGBAAt(x, y); c != (color.RGBA{204, 204, 204, 255}) {
				t.Fatalf("(%d,%d) = %v, want 204", x, y, c)
			}
		}
	}

	// Amount 0 leaves the image unchanged; the next Output sees it.
	if err := inv.SetParam("inputAmount", fx.Scalar(0)); err != nil {
		t.Fatal(err)
	}
	out, err = inv.Output()
	if err != nil {
		t.Fatal(err)
	}
	rgba, err = out.RGBA()
	if err != nil {
		t.Fatal(err)
	}
	if c := rgba.RGBAAt(19, 11); c.R != 51 {
		t.Errorf("amount 0: (19,11) = %v, want 51", c)
	}
	if st := inv.Stats(); st.Dispatches != 2 || st.Allocations != 1 || st.Grid != (gpucore.Size{Width: 3, Height: 2}) {
		t.Errorf("Stats() = %+v", st)
	}
	if dev.LiveTextures() != 2 {
		t.Errorf("LiveTextures() = %d, want 2", dev.LiveTextures())
	}
}

func TestSoftwareTruncatedGridLeavesBorder(t *testing.T) {
	dev := software.New(software.Config{MaxThreadsPerGroup: 64})
	defer dev.Close()
	inv := newInvert(t, dev, newTestLibrary(t))
	defer inv.Release()

	inv.SetInput(fx.NewImage(gray(20, 12, 0)))
	rgba, err := inv.MustOutput().RGBA()
	if err != nil {
		t.Fatal(err)
	}
	// 20x12 at tile 8 truncates to 2x1 groups covering [0,16)x[0,8).
	if u := inv.Stats().Uncovered; u != (gpucore.Size{Width: 4, Height: 4}) {
		t.Errorf("Uncovered = %+v, want 4x4", u)
	}
	if c := rgba.RGBAAt(15, 7); c.R != 255 {
		t.Errorf("covered pixel = %v, want inverted", c)
	}
	if c := rgba.RGBAAt(16, 0); c != (color.RGBA{}) {
		t.Errorf("uncovered column = %v, want untouched", c)
	}
	if c := rgba.RGBAAt(0, 8); c != (color.RGBA{}) {
		t.Errorf("uncovered row = %v, want untouched", c)
	}
}

func TestSoftwareChainedEffects(t *testing.T) {
	dev := software.New(software.Config{})
	defer dev.Close()
	lib := newTestLibrary(t)

	f := newFill(t, dev, lib, fx.WithGridPolicy(fx.GridCeil))
	defer f.Release()
	f.SetSize(33, 17)
	f.Color = fx.Color{R: 1, G: 0.2, B: 0, A: 1}

	inv := newInvert(t, dev, lib, fx.WithGridPolicy(fx.GridCeil))
	defer inv.Release()
	inv.SetInput(f.MustOutput())

	rgba, err := inv.MustOutput().RGBA()
	if err != nil {
		t.Fatal(err)
	}
	if rgba.Rect.Dx() != 33 || rgba.Rect.Dy() != 17 {
		t.Fatalf("size = %v", rgba.Rect)
	}
	want := color.RGBA{R: 0, G: 204, B: 255, A: 255}
	for _, p := range []image.Point{{0, 0}, {32, 16}, {17, 3}} {
		if c := rgba.RGBAAt(p.X, p.Y); c != want {
			t.Errorf("%v = %v, want %v", p, c, want)
		}
	}
	if dev.LiveTextures() != 3 {
		t.Errorf("LiveTextures() = %d, want 3", dev.LiveTextures())
	}
}

func TestSoftwareResizeReallocates(t *testing.T) {
	dev := software.New(software.Config{})
	defer dev.Close()
	f := newFill(t, dev, newTestLibrary(t), fx.WithGridPolicy(fx.GridCeil))

	for _, size := range [][2]int{{64, 64}, {64, 64}, {10, 200}, {10, 200}} {
		f.SetSize(size[0], size[1])
		img, err := f.Output()
		if err != nil {
			t.Fatal(err)
		}
		if w, h := img.Extent(); w != size[0] || h != size[1] {
			t.Errorf("extent = %dx%d, want %v", w, h, size)
		}
	}
	if st := f.Stats(); st.Allocations != 2 || st.Dispatches != 4 {
		t.Errorf("Stats() = %+v", st)
	}
	if dev.LiveTextures() != 1 {
		t.Errorf("LiveTextures() = %d, want 1", dev.LiveTextures())
	}

	f.Release()
	if dev.LiveTextures() != 0 {
		t.Errorf("LiveTextures() after release = %d", dev.LiveTextures())
	}
}
