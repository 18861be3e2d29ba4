package fx

import (
	"math"

	"golang.org/x/image/math/f32"
)

// Kind is the value kind of a parameter.
type Kind uint8

// Parameter kinds.
const (
	KindScalar Kind = iota + 1
	KindColor
	KindImage
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindColor:
		return "color"
	case KindImage:
		return "image"
	default:
		return "unknown"
	}
}

// Value is a parameter value: Scalar, Color or ImageValue.
type Value interface {
	Kind() Kind
}

// Scalar is a single number.
type Scalar float64

// Kind implements Value.
func (Scalar) Kind() Kind { return KindScalar }

// Color is a non-premultiplied RGBA color with components in [0,1].
type Color struct {
	R, G, B, A float64
}

// Kind implements Value.
func (Color) Kind() Kind { return KindColor }

// RGB returns an opaque color.
func RGB(r, g, b float64) Color {
	return Color{R: r, G: g, B: b, A: 1}
}

// Vec4 converts the color to the kernel representation.
func (c Color) Vec4() f32.Vec4 {
	return f32.Vec4{float32(c.R), float32(c.G), float32(c.B), float32(c.A)}
}

// clamped returns c with every component in [0,1].
func (c Color) clamped() Color {
	return Color{
		R: clamp(c.R, 0, 1),
		G: clamp(c.G, 0, 1),
		B: clamp(c.B, 0, 1),
		A: clamp(c.A, 0, 1),
	}
}

func (c Color) finite() bool {
	for _, v := range [...]float64{c.R, c.G, c.B, c.A} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// ImageValue carries an image parameter. Image parameters are never bound
// to buffer slots.
type ImageValue struct {
	Image *Image
}

// Kind implements Value.
func (ImageValue) Kind() Kind { return KindImage }
