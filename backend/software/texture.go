package software

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/fx/gpucore"
)

// texture is an RGBA8 texture in host memory.
type texture struct {
	label  string
	width  int
	height int
	data   []byte
}

func newTexture(desc *gpucore.TextureDesc) *texture {
	return &texture{
		label:  desc.Label,
		width:  desc.Width,
		height: desc.Height,
		data:   make([]byte, desc.Width*desc.Height*4),
	}
}

func (t *texture) Width() int  { return t.width }
func (t *texture) Height() int { return t.height }

// Load implements gpucore.Texels.
func (t *texture) Load(x, y int) [4]float32 {
	if x < 0 || y < 0 || x >= t.width || y >= t.height {
		return [4]float32{}
	}
	i := (y*t.width + x) * 4
	return gpucore.UnpackRGBA8(t.data[i : i+4])
}

// Store implements gpucore.Texels.
func (t *texture) Store(x, y int, c [4]float32) {
	if x < 0 || y < 0 || x >= t.width || y >= t.height {
		return
	}
	i := (y*t.width + x) * 4
	gpucore.PackRGBA8(t.data[i:i+4], c)
}

// buffer is a parameter buffer in host memory.
type buffer struct {
	data []byte
}

// vec4 decodes the first 16 bytes as four little-endian float32 values.
func (b *buffer) vec4() [4]float32 {
	var v [4]float32
	for i := range v {
		off := i * 4
		if off+4 > len(b.data) {
			break
		}
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b.data[off:]))
	}
	return v
}

// bindings is the resource view of one dispatch. Parameter buffers are
// decoded once per dispatch rather than per invocation.
type bindings struct {
	textures []*texture
	vectors  [][4]float32
}

var _ gpucore.Bindings = (*bindings)(nil)

// emptyTexels is returned for unbound texture slots.
var emptyTexels = &texture{}

func (b *bindings) Texture(slot int) gpucore.Texels {
	if slot < 0 || slot >= len(b.textures) || b.textures[slot] == nil {
		return emptyTexels
	}
	return b.textures[slot]
}

func (b *bindings) Scalar(slot int) float32 {
	return b.Vector(slot)[0]
}

func (b *bindings) Vector(slot int) [4]float32 {
	if slot < 0 || slot >= len(b.vectors) {
		return [4]float32{}
	}
	return b.vectors[slot]
}
