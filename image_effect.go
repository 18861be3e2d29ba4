package fx

import (
	"fmt"

	"github.com/gogpu/fx/gpucore"
)

// ImageEffect transforms a source image into a same-sized output.
type ImageEffect struct {
	*Effect
	input *Image
}

var _ Mode = (*ImageEffect)(nil)

// NewImageEffect builds an image-transform effect. The kernel reads the
// source at texture slot 0 and writes slot 1.
func NewImageEffect(dev gpucore.Device, lib KernelLibrary, kernelName string, params []Param, opts ...Option) (*ImageEffect, error) {
	ie := &ImageEffect{}
	e, err := NewEffect(dev, lib, kernelName, ie, params, opts...)
	if err != nil {
		return nil, err
	}
	ie.Effect = e
	return ie, nil
}

// MustNewImageEffect is like NewImageEffect but panics on error.
func MustNewImageEffect(dev gpucore.Device, lib KernelLibrary, kernelName string, params []Param, opts ...Option) *ImageEffect {
	ie, err := NewImageEffect(dev, lib, kernelName, params, opts...)
	if err != nil {
		panic(err)
	}
	return ie
}

// SetInput sets the source image. A source with a different extent
// causes the next Output to reallocate textures.
func (ie *ImageEffect) SetInput(img *Image) { ie.input = img }

// Input returns the source image.
func (ie *ImageEffect) Input() *Image { return ie.input }

// Output runs the kernel on the current input.
func (ie *ImageEffect) Output() (*Image, error) {
	if ie.input == nil {
		return nil, ErrNoInput
	}
	return ie.Effect.Output()
}

// MustOutput is like Output but panics on error.
func (ie *ImageEffect) MustOutput() *Image {
	img, err := ie.Output()
	if err != nil {
		panic(err)
	}
	return img
}

// HasInputTexture implements Mode.
func (ie *ImageEffect) HasInputTexture() bool { return true }

// OutputExtent implements Mode: the source image's extent.
func (ie *ImageEffect) OutputExtent() (int, int) {
	if ie.input == nil {
		return 0, 0
	}
	return ie.input.Extent()
}

// RenderInput implements Mode. A texture on the same device is copied on
// the queue; anything else is converted to RGBA8 and uploaded.
func (ie *ImageEffect) RenderInput(enc gpucore.CommandEncoder, dst gpucore.TextureID) error {
	if ie.input == nil {
		return ErrNoInput
	}
	if dev, tex, ok := ie.input.Texture(); ok && ie.Effect != nil && dev == ie.Effect.dev {
		enc.CopyTexture(tex, dst)
		return nil
	}
	pix, err := ie.input.pixels()
	if err != nil {
		return fmt.Errorf("source pixels: %w", err)
	}
	enc.WriteTexture(dst, pix)
	return nil
}
