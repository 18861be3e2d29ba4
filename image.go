package fx

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/gogpu/fx/gpucore"
)

// ColorSpace tags the color interpretation of an image's pixels.
type ColorSpace uint8

const (
	// ColorSpaceDeviceRGB is uncalibrated device RGB.
	ColorSpaceDeviceRGB ColorSpace = iota

	// ColorSpaceSRGB is the sRGB color space.
	ColorSpaceSRGB

	// ColorSpaceLinearSRGB is sRGB primaries with a linear transfer curve.
	ColorSpaceLinearSRGB
)

// WorkingColorSpace is the tag applied to effect outputs by default.
const WorkingColorSpace = ColorSpaceDeviceRGB

// String returns the color space name.
func (cs ColorSpace) String() string {
	switch cs {
	case ColorSpaceDeviceRGB:
		return "DeviceRGB"
	case ColorSpaceSRGB:
		return "sRGB"
	case ColorSpaceLinearSRGB:
		return "LinearSRGB"
	default:
		return "Unknown"
	}
}

// Image is either a host image or a device texture with a color space tag.
//
// Images returned by Effect.Output wrap the effect's output texture. The
// pixels are produced asynchronously; RGBA reads them back once the work
// committed before the call has finished. The texture is reused by the
// next Output of the same effect and destroyed when the effect
// reallocates, so copy the pixels if they must outlive that.
type Image struct {
	bounds     image.Rectangle
	colorSpace ColorSpace

	src image.Image

	dev gpucore.Device
	tex gpucore.TextureID
}

// NewImage wraps a host image tagged with the working color space.
func NewImage(src image.Image) *Image {
	return NewImageWithColorSpace(src, WorkingColorSpace)
}

// NewImageWithColorSpace wraps a host image with an explicit tag.
func NewImageWithColorSpace(src image.Image, cs ColorSpace) *Image {
	return &Image{bounds: src.Bounds(), colorSpace: cs, src: src}
}

// NewTextureImage wraps an existing device texture.
func NewTextureImage(dev gpucore.Device, tex gpucore.TextureID, width, height int, cs ColorSpace) *Image {
	return &Image{
		bounds:     image.Rect(0, 0, width, height),
		colorSpace: cs,
		dev:        dev,
		tex:        tex,
	}
}

// Bounds returns the pixel extent.
func (im *Image) Bounds() image.Rectangle { return im.bounds }

// Extent returns the width and height in pixels.
func (im *Image) Extent() (int, int) { return im.bounds.Dx(), im.bounds.Dy() }

// ColorSpace returns the color space tag.
func (im *Image) ColorSpace() ColorSpace { return im.colorSpace }

// Texture returns the backing texture for device images.
func (im *Image) Texture() (gpucore.Device, gpucore.TextureID, bool) {
	if im.dev == nil {
		return nil, gpucore.InvalidID, false
	}
	return im.dev, im.tex, true
}

// RGBA returns the pixels as an *image.RGBA with origin (0, 0). For
// device images this reads the texture back and blocks until the work
// that produces it is done.
func (im *Image) RGBA() (*image.RGBA, error) {
	if im.dev != nil {
		w, h := im.Extent()
		data, err := im.dev.ReadTexture(im.tex)
		if err != nil {
			return nil, fmt.Errorf("fx: read texture: %w", err)
		}
		if len(data) != w*h*4 {
			return nil, fmt.Errorf("fx: read texture: got %d bytes, want %d", len(data), w*h*4)
		}
		return &image.RGBA{Pix: data, Stride: w * 4, Rect: image.Rect(0, 0, w, h)}, nil
	}
	return toRGBA(im.src), nil
}

// pixels returns tightly packed RGBA8 data for upload.
func (im *Image) pixels() ([]byte, error) {
	if im.dev != nil {
		rgba, err := im.RGBA()
		if err != nil {
			return nil, err
		}
		return rgba.Pix, nil
	}
	w, h := im.Extent()
	return toRGBA(im.src).Pix[:w*h*4], nil
}

// toRGBA converts src to a tightly packed RGBA image at the origin. An
// *image.RGBA that already has that layout is returned as is.
func toRGBA(src image.Image) *image.RGBA {
	b := src.Bounds()
	if rgba, ok := src.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) && rgba.Stride == 4*b.Dx() {
		return rgba
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}
