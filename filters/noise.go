package filters

import "math"

// maxOctaves bounds the fractal sum in both kernels.
const maxOctaves = 16

// hash is a PCG-style integer permutation. The GPU kernel computes the
// same function with wrapping u32 arithmetic.
func hash(x uint32) uint32 {
	s := x*747796405 + 2891336453
	w := ((s >> ((s >> 28) + 4)) ^ s) * 277803737
	return (w >> 22) ^ w
}

// corner hashes a lattice point.
func corner(x, y, z int32) uint32 {
	return hash(uint32(x) ^ hash(uint32(y)^hash(uint32(z))))
}

// grad picks one of twelve edge gradients (with four repeats) and returns
// its dot product with the offset.
func grad(h uint32, x, y, z float32) float32 {
	k := h & 15
	u := y
	if k < 8 {
		u = x
	}
	v := z
	if k < 4 {
		v = y
	} else if k == 12 || k == 14 {
		v = x
	}
	if k&1 != 0 {
		u = -u
	}
	if k&2 != 0 {
		v = -v
	}
	return u + v
}

func fade(t float32) float32 {
	return t * t * t * (t*(t*6-15) + 10)
}

func mix(a, b, t float32) float32 {
	return a + (b-a)*t
}

// noise3 is 3-D gradient noise in roughly [-1, 1].
func noise3(px, py, pz float32) float32 {
	cx := float32(math.Floor(float64(px)))
	cy := float32(math.Floor(float64(py)))
	cz := float32(math.Floor(float64(pz)))
	ix, iy, iz := int32(cx), int32(cy), int32(cz)
	fx, fy, fz := px-cx, py-cy, pz-cz
	u, v, w := fade(fx), fade(fy), fade(fz)

	n000 := grad(corner(ix, iy, iz), fx, fy, fz)
	n100 := grad(corner(ix+1, iy, iz), fx-1, fy, fz)
	n010 := grad(corner(ix, iy+1, iz), fx, fy-1, fz)
	n110 := grad(corner(ix+1, iy+1, iz), fx-1, fy-1, fz)
	n001 := grad(corner(ix, iy, iz+1), fx, fy, fz-1)
	n101 := grad(corner(ix+1, iy, iz+1), fx-1, fy, fz-1)
	n011 := grad(corner(ix, iy+1, iz+1), fx, fy-1, fz-1)
	n111 := grad(corner(ix+1, iy+1, iz+1), fx-1, fy-1, fz-1)

	x00 := mix(n000, n100, u)
	x10 := mix(n010, n110, u)
	x01 := mix(n001, n101, u)
	x11 := mix(n011, n111, u)
	return mix(mix(x00, x10, v), mix(x01, x11, v), w)
}

// fbm sums octaves of noise3, each at twice the frequency and persistence
// times the amplitude of the previous one, normalized by the amplitude sum.
func fbm(px, py, pz float32, octaves int, persistence float32) float32 {
	var total, rng float32
	amplitude, frequency := float32(1), float32(1)
	for range octaves {
		total += noise3(px*frequency, py*frequency, pz*frequency) * amplitude
		rng += amplitude
		amplitude *= persistence
		frequency *= 2
	}
	if rng == 0 {
		return 0
	}
	return total / rng
}
