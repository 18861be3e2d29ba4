package filters

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/fx"
	"github.com/gogpu/fx/gpucore"
)

// PerlinKernel is the kernel name of the Perlin noise generator.
const PerlinKernel = "perlin"

//go:embed shaders/perlin.wgsl
var perlinWGSL string

// PerlinNoise generates fractal gradient noise shaded between two colors.
type PerlinNoise struct {
	*fx.GeneratorEffect

	ReciprocalScale float64
	Octaves         float64
	Persistence     float64
	Color0          fx.Color
	Color1          fx.Color
	Z               float64
}

var perlinParams = []fx.ParamDesc{
	{Name: "inputReciprocalScale", Slot: 0, Kind: fx.KindScalar, Default: fx.Scalar(50), DisplayName: "Scale", Min: 10, SliderMin: 10, SliderMax: 100},
	{Name: "inputOctaves", Slot: 1, Kind: fx.KindScalar, Default: fx.Scalar(2), DisplayName: "Octaves", Min: 1, SliderMin: 1, SliderMax: maxOctaves},
	{Name: "inputPersistence", Slot: 2, Kind: fx.KindScalar, Default: fx.Scalar(0.5), DisplayName: "Persistence", Min: 0, SliderMin: 0, SliderMax: 1},
	{Name: "inputColor0", Slot: 3, Kind: fx.KindColor, Default: fx.Color{R: 0.5, G: 0.25, B: 0, A: 1}, DisplayName: "Color One"},
	{Name: "inputColor1", Slot: 4, Kind: fx.KindColor, Default: fx.Color{R: 0, G: 0, B: 0.15, A: 1}, DisplayName: "Color Two"},
	{Name: "inputZ", Slot: 5, Kind: fx.KindScalar, Default: fx.Scalar(1), DisplayName: "Z Position", Min: 0, SliderMin: 0, SliderMax: 1024},
	{Name: "inputWidth", Kind: fx.KindScalar, Default: fx.Scalar(fx.DefaultGeneratorWidth), DisplayName: "Width", Min: 100, SliderMin: 100, SliderMax: 2048, Unbound: true},
	{Name: "inputHeight", Kind: fx.KindScalar, Default: fx.Scalar(fx.DefaultGeneratorHeight), DisplayName: "Height", Min: 100, SliderMin: 100, SliderMax: 2048, Unbound: true},
}

// NewPerlinNoise creates a Perlin noise generator with default settings.
func NewPerlinNoise(dev gpucore.Device, lib fx.KernelLibrary, opts ...fx.Option) (*PerlinNoise, error) {
	p := &PerlinNoise{
		ReciprocalScale: perlinParams[0].DefaultScalar(),
		Octaves:         perlinParams[1].DefaultScalar(),
		Persistence:     perlinParams[2].DefaultScalar(),
		Color0:          perlinParams[3].DefaultColor(),
		Color1:          perlinParams[4].DefaultColor(),
		Z:               perlinParams[5].DefaultScalar(),
	}
	params := []fx.Param{
		fx.ScalarParam(perlinParams[0], &p.ReciprocalScale),
		fx.ScalarParam(perlinParams[1], &p.Octaves),
		fx.ScalarParam(perlinParams[2], &p.Persistence),
		fx.ColorParam(perlinParams[3], &p.Color0),
		fx.ColorParam(perlinParams[4], &p.Color1),
		fx.ScalarParam(perlinParams[5], &p.Z),
		p.sizeParam(perlinParams[6], true),
		p.sizeParam(perlinParams[7], false),
	}
	opts = append(defaultOptions("Perlin Noise"), opts...)
	g, err := fx.NewGeneratorEffect(dev, lib, PerlinKernel, params, opts...)
	if err != nil {
		return nil, err
	}
	p.GeneratorEffect = g
	return p, nil
}

// sizeParam exposes one generator dimension as a host setting.
func (p *PerlinNoise) sizeParam(desc fx.ParamDesc, horizontal bool) fx.Param {
	desc.Kind = fx.KindScalar
	return fx.Param{
		ParamDesc: desc,
		Get: func() (fx.Value, bool) {
			w, h := p.Size()
			if horizontal {
				return fx.Scalar(w), true
			}
			return fx.Scalar(h), true
		},
		Set: func(v fx.Value) error {
			s, ok := v.(fx.Scalar)
			if !ok {
				return fmt.Errorf("%w: %s", fx.ErrParamKind, desc.Name)
			}
			w, h := p.Size()
			if horizontal {
				w = int(s)
			} else {
				h = int(s)
			}
			p.SetSize(w, h)
			return nil
		},
	}
}

// perlinCPU shades one pixel of the noise field.
func perlinCPU(b gpucore.Bindings, x, y int) {
	dst := b.Texture(fx.GeneratorOutputSlot)
	if x >= dst.Width() || y >= dst.Height() {
		return
	}
	scale := max(b.Scalar(0), 1)
	octaves := min(max(int(b.Scalar(1)), 1), maxOctaves)
	persistence := b.Scalar(2)
	c0, c1 := b.Vector(3), b.Vector(4)
	z := b.Scalar(5)

	n := fbm(float32(x)/scale, float32(y)/scale, z, octaves, persistence)
	t := min(max(n*0.5+0.5, 0), 1)

	var out [4]float32
	for i := range out {
		out[i] = mix(c0[i], c1[i], t)
	}
	dst.Store(x, y, out)
}
