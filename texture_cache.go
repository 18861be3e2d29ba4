package fx

import (
	"fmt"

	"github.com/gogpu/fx/gpucore"
)

// TextureState is the lifecycle state of an effect's texture pair.
type TextureState uint8

const (
	// TextureAbsent means no textures exist.
	TextureAbsent TextureState = iota

	// TextureAllocated means the pair matches the cached dimensions.
	TextureAllocated

	// TextureInvalid means the pair exists but the required dimensions
	// changed; it is released before the next allocation.
	TextureInvalid
)

// String returns the state name.
func (s TextureState) String() string {
	switch s {
	case TextureAbsent:
		return "absent"
	case TextureAllocated:
		return "allocated"
	case TextureInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// textureCache owns the input/output texture pair and the dispatch grid.
//
// Transitions only happen in ensureTextures:
//
//	Absent --allocate--> Allocated --size change--> Invalid --release--> Absent
type textureCache struct {
	dev       gpucore.Device
	label     string
	withInput bool
	tile      int
	policy    GridPolicy

	state  TextureState
	input  gpucore.TextureID
	output gpucore.TextureID
	width  int
	height int
	grid   gpucore.Size

	allocations int
}

// ensureTextures brings the cache to Allocated for the given size and
// reports whether a (re)allocation happened.
func (c *textureCache) ensureTextures(width, height int) (bool, error) {
	if width <= 0 || height <= 0 {
		return false, fmt.Errorf("%w: %dx%d", ErrEmptyExtent, width, height)
	}

	if c.state == TextureAllocated && (c.width != width || c.height != height) {
		c.state = TextureInvalid
	}
	if c.state == TextureInvalid {
		c.release()
	}
	if c.state == TextureAllocated {
		return false, nil
	}

	if err := c.allocate(width, height); err != nil {
		return false, err
	}
	return true, nil
}

// allocate creates the pair from Absent. On failure the cache stays Absent.
func (c *textureCache) allocate(width, height int) error {
	desc := gpucore.TextureDesc{
		Width:  width,
		Height: height,
		Format: gpucore.TextureFormatRGBA8Unorm,
		Usage: gpucore.TextureUsageShaderRead | gpucore.TextureUsageShaderWrite |
			gpucore.TextureUsageCopySrc | gpucore.TextureUsageCopyDst,
	}

	var input gpucore.TextureID
	if c.withInput {
		desc.Label = c.label + "_input"
		id, err := c.dev.CreateTexture(&desc)
		if err != nil {
			return fmt.Errorf("%w: input %dx%d: %w", ErrTextureAllocation, width, height, err)
		}
		input = id
	}

	desc.Label = c.label + "_output"
	output, err := c.dev.CreateTexture(&desc)
	if err != nil {
		if input != gpucore.InvalidID {
			c.dev.DestroyTexture(input)
		}
		return fmt.Errorf("%w: output %dx%d: %w", ErrTextureAllocation, width, height, err)
	}

	c.input = input
	c.output = output
	c.width = width
	c.height = height
	c.grid = DispatchGrid(width, height, c.tile, c.policy)
	c.state = TextureAllocated
	c.allocations++

	slogger().Debug("fx: textures allocated",
		"effect", c.label,
		"width", width,
		"height", height,
		"input", c.withInput,
		"groups_x", c.grid.Width,
		"groups_y", c.grid.Height,
	)
	if border := UncoveredBorder(width, height, c.grid, c.tile); border.Width > 0 || border.Height > 0 {
		slogger().Debug("fx: grid leaves border uncovered",
			"effect", c.label,
			"right", border.Width,
			"bottom", border.Height,
		)
	}
	return nil
}

// release drops the pair and returns to Absent. Textures are destroyed
// in queue order, so in-flight dispatches still complete.
func (c *textureCache) release() {
	if c.input != gpucore.InvalidID {
		c.dev.DestroyTexture(c.input)
	}
	if c.output != gpucore.InvalidID {
		c.dev.DestroyTexture(c.output)
	}
	c.input = gpucore.InvalidID
	c.output = gpucore.InvalidID
	c.width = 0
	c.height = 0
	c.grid = gpucore.Size{}
	c.state = TextureAbsent
}
