package gpucore

import "errors"

// Resource IDs
//
// These opaque IDs represent device resources. Each device implementation
// maintains a mapping between IDs and actual backend resources.
// IDs are uint64 to accommodate various backend handle sizes.

// BufferID is an opaque handle to a device buffer.
type BufferID uint64

// TextureID is an opaque handle to a device texture.
type TextureID uint64

// ComputePipelineID is an opaque handle to a compute pipeline.
type ComputePipelineID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// Errors shared by device implementations.
var (
	// ErrUnknownResource is returned when an ID does not name a live resource.
	ErrUnknownResource = errors.New("gpucore: unknown resource")

	// ErrDeviceClosed is returned by operations on a closed device.
	ErrDeviceClosed = errors.New("gpucore: device closed")

	// ErrInvalidSize is returned for zero or negative texture/buffer sizes.
	ErrInvalidSize = errors.New("gpucore: invalid size")

	// ErrEncoderFinished is returned when an encoder is used after Commit.
	ErrEncoderFinished = errors.New("gpucore: encoder already committed")
)

// BufferUsage is a bitmask specifying how a buffer will be used.
type BufferUsage uint32

// Buffer usage flags.
const (
	// BufferUsageCopySrc indicates the buffer can be used as a copy source.
	BufferUsageCopySrc BufferUsage = 1 << 0

	// BufferUsageCopyDst indicates the buffer can be used as a copy destination.
	BufferUsageCopyDst BufferUsage = 1 << 1

	// BufferUsageUniform indicates the buffer holds kernel parameters.
	BufferUsageUniform BufferUsage = 1 << 2
)

// TextureFormat specifies the format of texture data.
type TextureFormat uint32

// Texture formats.
const (
	// TextureFormatRGBA8Unorm is 8-bit RGBA, read by kernels as normalized float.
	TextureFormatRGBA8Unorm TextureFormat = iota + 1
)

// BytesPerPixel returns the size of one texel in bytes.
func (f TextureFormat) BytesPerPixel() int {
	switch f {
	case TextureFormatRGBA8Unorm:
		return 4
	default:
		return 0
	}
}

// String returns the format name.
func (f TextureFormat) String() string {
	switch f {
	case TextureFormatRGBA8Unorm:
		return "RGBA8Unorm"
	default:
		return "Unknown"
	}
}

// TextureUsage is a bitmask specifying how a texture will be used.
type TextureUsage uint32

// Texture usage flags.
const (
	// TextureUsageShaderRead allows kernels to load texels.
	TextureUsageShaderRead TextureUsage = 1 << 0

	// TextureUsageShaderWrite allows kernels to store texels.
	TextureUsageShaderWrite TextureUsage = 1 << 1

	// TextureUsageCopySrc indicates the texture can be used as a copy source.
	TextureUsageCopySrc TextureUsage = 1 << 2

	// TextureUsageCopyDst indicates the texture can be used as a copy destination.
	TextureUsageCopyDst TextureUsage = 1 << 3
)

// TextureDesc describes a 2-D texture.
type TextureDesc struct {
	Label  string
	Width  int
	Height int
	Format TextureFormat
	Usage  TextureUsage
}

// Size is a 2-D extent in texels or groups.
type Size struct {
	Width  int
	Height int
}

// Limits describes the per-pipeline execution limits a device reports.
type Limits struct {
	// MaxThreadsPerGroup is the maximum number of invocations in one group.
	MaxThreadsPerGroup int

	// ExecutionWidth is the native SIMD width; groups that are a multiple
	// of it keep every hardware lane busy.
	ExecutionWidth int
}
