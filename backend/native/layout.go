package native

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/fx/gpucore"
	"github.com/gogpu/gputypes"
)

// Bind group indices shared with the WGSL kernels.
const (
	groupTextures = 0
	groupParams   = 1
	groupExtent   = 2
	groupCount    = 3
)

// extentSize is the size of the extent uniform: vec4<u32>.
const extentSize = 16

// textureLayoutEntries declares one storage buffer per texture slot.
// Read-only slots use read-only storage.
func textureLayoutEntries(slots []gpucore.TextureSlot) []gputypes.BindGroupLayoutEntry {
	entries := make([]gputypes.BindGroupLayoutEntry, 0, len(slots))
	for _, s := range slots {
		typ := gputypes.BufferBindingTypeStorage
		if s.Access == gpucore.TextureAccessRead {
			typ = gputypes.BufferBindingTypeReadOnlyStorage
		}
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    uint32(s.Slot), //nolint:gosec // slots are validated non-negative
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: typ},
		})
	}
	return entries
}

// paramLayoutEntries declares one uniform per parameter slot.
func paramLayoutEntries(slots []gpucore.BufferSlot) []gputypes.BindGroupLayoutEntry {
	entries := make([]gputypes.BindGroupLayoutEntry, 0, len(slots))
	for _, s := range slots {
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    uint32(s.Slot), //nolint:gosec // slots are validated non-negative
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		})
	}
	return entries
}

// extentLayoutEntries declares the extent uniform.
func extentLayoutEntries() []gputypes.BindGroupLayoutEntry {
	return []gputypes.BindGroupLayoutEntry{
		{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
	}
}

// extentSlot picks the texture whose size kernels bound-check against:
// the first writable slot, or the first slot if none is writable.
func extentSlot(slots []gpucore.TextureSlot) (int, bool) {
	if len(slots) == 0 {
		return 0, false
	}
	for _, s := range slots {
		if s.Access != gpucore.TextureAccessRead {
			return s.Slot, true
		}
	}
	return slots[0].Slot, true
}

// extentBytes encodes {width, height, 0, 0} as vec4<u32>.
func extentBytes(width, height int) []byte {
	b := make([]byte, extentSize)
	binary.LittleEndian.PutUint32(b[0:], uint32(width))  //nolint:gosec // texture sizes fit uint32
	binary.LittleEndian.PutUint32(b[4:], uint32(height)) //nolint:gosec // texture sizes fit uint32
	return b
}

// align4 rounds n up to a multiple of 4, the copy alignment.
func align4(n int) int {
	return (n + 3) &^ 3
}

// groupLimits is the subset of adapter limits that bounds a work group.
type groupLimits struct {
	maxInvocations int
	maxSizeX       int
	maxSizeY       int
}

func limitsFrom(l gputypes.Limits) groupLimits {
	return groupLimits{
		maxInvocations: int(l.MaxComputeInvocationsPerWorkgroup),
		maxSizeX:       int(l.MaxComputeWorkgroupSizeX),
		maxSizeY:       int(l.MaxComputeWorkgroupSizeY),
	}
}

// checkSide validates a square group side against the limits.
func (g groupLimits) checkSide(side int) error {
	if side <= 0 || side*side > g.maxInvocations || side > g.maxSizeX || side > g.maxSizeY {
		return fmt.Errorf("%w: %dx%d (max %d invocations, %dx%d)",
			ErrWorkgroupTooLarge, side, side, g.maxInvocations, g.maxSizeX, g.maxSizeY)
	}
	return nil
}

// uniformSize rounds n up to the 16-byte uniform alignment.
func uniformSize(n int) int {
	return (n + 15) &^ 15
}
