package lowdiscrepancy

import "github.com/df07/go-render-sampling/pkg/rng"

// NumSobolDimensions is the number of Sobol' dimensions available.
// Dimension 0 is the plain base-2 radical inverse; higher dimensions are
// built from the primitive polynomials below.
const NumSobolDimensions = 21

// sobolPoly describes one primitive polynomial over GF(2) together with
// its initial direction numbers (Joe and Kuo's tables): degree s,
// polynomial coefficient bits a (excluding the leading and trailing 1),
// and the first s odd initial values m_1..m_s.
type sobolPoly struct {
	s int
	a uint32
	m []uint32
}

var sobolPolys = []sobolPoly{
	{1, 0, []uint32{1}},
	{2, 1, []uint32{1, 3}},
	{3, 1, []uint32{1, 3, 1}},
	{3, 2, []uint32{1, 1, 1}},
	{4, 1, []uint32{1, 1, 3, 3}},
	{4, 4, []uint32{1, 3, 5, 13}},
	{5, 2, []uint32{1, 1, 5, 5, 17}},
	{5, 4, []uint32{1, 1, 5, 5, 5}},
	{5, 7, []uint32{1, 1, 7, 11, 19}},
	{5, 11, []uint32{1, 1, 5, 1, 1}},
	{5, 13, []uint32{1, 1, 1, 3, 11}},
	{5, 14, []uint32{1, 3, 5, 5, 31}},
	{6, 1, []uint32{1, 3, 3, 9, 7, 49}},
	{6, 13, []uint32{1, 1, 1, 15, 21, 21}},
	{6, 16, []uint32{1, 3, 1, 13, 27, 49}},
	{6, 19, []uint32{1, 1, 1, 15, 7, 5}},
	{6, 22, []uint32{1, 3, 1, 15, 13, 25}},
	{6, 25, []uint32{1, 1, 5, 5, 19, 61}},
	{7, 1, []uint32{1, 3, 7, 11, 23, 15, 103}},
	{7, 4, []uint32{1, 3, 7, 13, 13, 15, 69}},
}

// sobolMatrices holds the direction vectors for every dimension in
// value-space form: sample bits are the XOR of the columns selected by the
// index bits, directly interpretable as a 32-bit fixed-point fraction.
// Computed once at init via the standard recurrence (see Press et al.;
// also Joe & Kuo, "Constructing Sobol sequences with better
// two-dimensional projections").
var sobolMatrices = func() [NumSobolDimensions][32]uint32 {
	var m [NumSobolDimensions][32]uint32
	// Dimension 0: van der Corput.
	for j := 0; j < 32; j++ {
		m[0][j] = 1 << (31 - j)
	}
	for dim := 1; dim < NumSobolDimensions; dim++ {
		p := sobolPolys[dim-1]
		v := &m[dim]
		for j := 0; j < p.s; j++ {
			// m_j occupies the top j+1 bits: v_j = m_j * 2^(31-j).
			v[j] = p.m[j] << (31 - j)
		}
		for j := p.s; j < 32; j++ {
			prev := v[j-p.s]
			v[j] = prev ^ (prev >> p.s)
			for t := 1; t < p.s; t++ {
				if (p.a>>(p.s-1-t))&1 != 0 {
					v[j] ^= v[j-t]
				}
			}
		}
	}
	return m
}()

// SobolSample returns the Sobol' sample for the given index and dimension
// with the XOR scramble applied, as a float64. Indices must fit in 32 bits
// (the matrices carry 32 bits of precision); dimension must be below
// NumSobolDimensions.
func SobolSample(index int64, dimension int, scramble uint32) float64 {
	return float64(sobolBits(index, dimension)^scramble) * 0x1p-32
}

// SobolSampleFloat is the single-precision variant of SobolSample. Both
// variants derive from the same 32 matrix bits, so narrowing the float64
// result to float32 reproduces SobolSampleFloat exactly.
func SobolSampleFloat(index int64, dimension int, scramble uint32) float32 {
	return min(float32(sobolBits(index, dimension)^scramble)*0x1p-32,
		rng.OneMinusEpsilonFloat32)
}

func sobolBits(index int64, dimension int) uint32 {
	if uint64(index) >= 1<<32 {
		panic("lowdiscrepancy: Sobol index exceeds 32 bits")
	}
	if dimension >= NumSobolDimensions {
		panic("lowdiscrepancy: Sobol dimension out of range")
	}
	var v uint32
	a := uint32(index)
	for i := 0; a != 0; i, a = i+1, a>>1 {
		if a&1 != 0 {
			v ^= sobolMatrices[dimension][i]
		}
	}
	return v
}

// SobolMatrix exposes the generator matrix for one dimension, for
// samplers that enumerate with GrayCodeSample.
func SobolMatrix(dimension int) *[32]uint32 {
	return &sobolMatrices[dimension]
}
