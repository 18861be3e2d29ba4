package fx

import (
	"math"

	"github.com/gogpu/fx/gpucore"
)

// fallbackTileSide is used when no candidate satisfies the divisibility
// test, which only happens for a non-positive execution width.
const fallbackTileSide = 16

// TileSize returns the side of the square work-group tile for a pipeline.
//
// Candidates n run from 0 to floor(sqrt(maxThreadsPerGroup)) inclusive. The
// largest n whose n*n threads are an exact multiple of executionWidth wins,
// so no group leaves SIMD lanes idle. The result is at least 1.
func TileSize(maxThreadsPerGroup, executionWidth int) int {
	side := fallbackTileSide
	if executionWidth > 0 {
		limit := isqrt(maxThreadsPerGroup)
		for n := 0; n <= limit; n++ {
			if (n*n)%executionWidth == 0 {
				side = n
			}
		}
	}
	return max(side, 1)
}

// isqrt returns floor(sqrt(n)) for n >= 0 and 0 otherwise.
func isqrt(n int) int {
	if n <= 0 {
		return 0
	}
	r := int(math.Sqrt(float64(n)))
	for r*r > n {
		r--
	}
	for (r+1)*(r+1) <= n {
		r++
	}
	return r
}

// GridPolicy selects how texture dimensions map to a group count.
type GridPolicy uint8

const (
	// GridTruncate divides with truncation. Border pixels past the last
	// whole tile are not covered by any group.
	GridTruncate GridPolicy = iota

	// GridCeil rounds up so every pixel is covered. Kernels must
	// bounds-check their thread position.
	GridCeil
)

// String returns the policy name.
func (p GridPolicy) String() string {
	switch p {
	case GridTruncate:
		return "truncate"
	case GridCeil:
		return "ceil"
	default:
		return "unknown"
	}
}

// DispatchGrid returns the number of groups for a texture of the given
// size. With GridTruncate, 100 pixels at tile 16 give 6 groups covering
// [0,96).
func DispatchGrid(width, height, tile int, policy GridPolicy) gpucore.Size {
	if tile < 1 {
		tile = 1
	}
	if policy == GridCeil {
		return gpucore.Size{
			Width:  (width + tile - 1) / tile,
			Height: (height + tile - 1) / tile,
		}
	}
	return gpucore.Size{Width: width / tile, Height: height / tile}
}

// UncoveredBorder reports how many pixel columns at the right and rows at
// the bottom no group reaches.
func UncoveredBorder(width, height int, grid gpucore.Size, tile int) gpucore.Size {
	return gpucore.Size{
		Width:  max(width-grid.Width*tile, 0),
		Height: max(height-grid.Height*tile, 0),
	}
}
