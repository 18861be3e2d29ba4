package filters

import (
	_ "embed"

	"github.com/gogpu/fx"
	"github.com/gogpu/fx/gpucore"
)

// KuwaharaKernel is the kernel name of the Kuwahara effect.
const KuwaharaKernel = "kuwahara"

//go:embed shaders/kuwahara.wgsl
var kuwaharaWGSL string

// Kuwahara is an edge-preserving smoothing filter. Each pixel takes the
// mean of whichever of its four (Radius+1)-square quadrants has the
// lowest color variance.
type Kuwahara struct {
	*fx.ImageEffect

	Radius float64
}

var kuwaharaParams = []fx.ParamDesc{
	{Name: "inputRadius", Slot: 0, Kind: fx.KindScalar, Default: fx.Scalar(15), DisplayName: "Radius", Min: 0, SliderMin: 0, SliderMax: 30},
}

// NewKuwahara creates a Kuwahara effect with the default radius.
func NewKuwahara(dev gpucore.Device, lib fx.KernelLibrary, opts ...fx.Option) (*Kuwahara, error) {
	k := &Kuwahara{Radius: kuwaharaParams[0].DefaultScalar()}
	params := []fx.Param{
		fx.ScalarParam(kuwaharaParams[0], &k.Radius),
	}
	opts = append(defaultOptions("Kuwahara"), opts...)
	ie, err := fx.NewImageEffect(dev, lib, KuwaharaKernel, params, opts...)
	if err != nil {
		return nil, err
	}
	k.ImageEffect = ie
	return k, nil
}

type region struct {
	mean     [4]float32
	variance float32
}

// clampedTexels reads with edge clamping.
type clampedTexels struct {
	gpucore.Texels
}

func (t clampedTexels) load(x, y int) [4]float32 {
	x = min(max(x, 0), t.Width()-1)
	y = min(max(y, 0), t.Height()-1)
	return t.Load(x, y)
}

func (t clampedTexels) region(x0, y0, x1, y1 int) region {
	var sum [4]float32
	var sq [3]float32
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			c := t.load(x, y)
			for i := range sum {
				sum[i] += c[i]
			}
			for i := range sq {
				sq[i] += c[i] * c[i]
			}
		}
	}
	n := float32((x1 - x0 + 1) * (y1 - y0 + 1))
	var r region
	for i := range sum {
		r.mean[i] = sum[i] / n
	}
	for i := range sq {
		r.variance += sq[i]/n - r.mean[i]*r.mean[i]
	}
	return r
}

// kuwaharaCPU writes the lowest-variance quadrant mean at (x, y).
func kuwaharaCPU(b gpucore.Bindings, x, y int) {
	dst := b.Texture(fx.OutputTextureSlot)
	if x >= dst.Width() || y >= dst.Height() {
		return
	}
	src := clampedTexels{b.Texture(fx.InputTextureSlot)}
	r := int(max(b.Scalar(0), 0))
	if r == 0 {
		dst.Store(x, y, src.load(x, y))
		return
	}

	best := src.region(x-r, y-r, x, y)
	for _, q := range [...]region{
		src.region(x, y-r, x+r, y),
		src.region(x-r, y, x, y+r),
		src.region(x, y, x+r, y+r),
	} {
		if q.variance < best.variance {
			best = q
		}
	}
	dst.Store(x, y, best.mean)
}
