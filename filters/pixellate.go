package filters

import (
	_ "embed"

	"github.com/gogpu/fx"
	"github.com/gogpu/fx/gpucore"
)

// PixellateKernel is the kernel name of the pixellate effect.
const PixellateKernel = "pixellate"

//go:embed shaders/pixellate.wgsl
var pixellateWGSL string

// Pixellate replaces each block of the source with its mean color.
type Pixellate struct {
	*fx.ImageEffect

	// PixelWidth and PixelHeight are the block size. Values below 1
	// behave as 1.
	PixelWidth  float64
	PixelHeight float64
}

var pixellateParams = []fx.ParamDesc{
	{Name: "inputPixelWidth", Slot: 0, Kind: fx.KindScalar, Default: fx.Scalar(50), DisplayName: "Pixel Width", Min: 0, SliderMin: 0, SliderMax: 100},
	{Name: "inputPixelHeight", Slot: 1, Kind: fx.KindScalar, Default: fx.Scalar(25), DisplayName: "Pixel Height", Min: 0, SliderMin: 0, SliderMax: 100},
}

// NewPixellate creates a pixellate effect with the default block size.
func NewPixellate(dev gpucore.Device, lib fx.KernelLibrary, opts ...fx.Option) (*Pixellate, error) {
	p := &Pixellate{
		PixelWidth:  pixellateParams[0].DefaultScalar(),
		PixelHeight: pixellateParams[1].DefaultScalar(),
	}
	params := []fx.Param{
		fx.ScalarParam(pixellateParams[0], &p.PixelWidth),
		fx.ScalarParam(pixellateParams[1], &p.PixelHeight),
	}
	opts = append(defaultOptions("Pixellate"), opts...)
	ie, err := fx.NewImageEffect(dev, lib, PixellateKernel, params, opts...)
	if err != nil {
		return nil, err
	}
	p.ImageEffect = ie
	return p, nil
}

// pixellateCPU averages the block containing (x, y).
func pixellateCPU(b gpucore.Bindings, x, y int) {
	src, dst := b.Texture(fx.InputTextureSlot), b.Texture(fx.OutputTextureSlot)
	w, h := dst.Width(), dst.Height()
	if x >= w || y >= h {
		return
	}
	bw := int(max(b.Scalar(0), 1))
	bh := int(max(b.Scalar(1), 1))
	x0, y0 := x/bw*bw, y/bh*bh
	x1, y1 := min(x0+bw, w), min(y0+bh, h)

	var sum [4]float32
	for sy := y0; sy < y1; sy++ {
		for sx := x0; sx < x1; sx++ {
			c := src.Load(sx, sy)
			for i := range sum {
				sum[i] += c[i]
			}
		}
	}
	n := float32((x1 - x0) * (y1 - y0))
	for i := range sum {
		sum[i] /= n
	}
	dst.Store(x, y, sum)
}
