// Package lowdiscrepancy implements radical inverse, scrambled radical
// inverse, and generator-matrix (Sobol'-style) sequence generation. These
// primitives underlie the quasi-random samplers: they map integer sample
// indices to well-distributed points in [0,1) with bit-exact
// reproducibility.
package lowdiscrepancy

import (
	"math/bits"

	"github.com/df07/go-render-sampling/pkg/core"
	"github.com/df07/go-render-sampling/pkg/rng"
)

// OneMinusEpsilon mirrors rng.OneMinusEpsilon; sequence values never reach 1.
const OneMinusEpsilon = rng.OneMinusEpsilon

// ReverseBits32 reverses the bit order of a 32-bit value.
func ReverseBits32(n uint32) uint32 {
	return bits.Reverse32(n)
}

// ReverseBits64 reverses the bit order of a 64-bit value.
func ReverseBits64(n uint64) uint64 {
	return bits.Reverse64(n)
}

// RadicalInverse reverses the digits of a in the base selected by
// baseIndex (an index into the prime table: 0 selects base 2, 1 base 3,
// and so on) and returns the resulting fraction in [0,1). Base 2 takes the
// bit-reversal fast path.
func RadicalInverse(baseIndex int, a uint64) float64 {
	if baseIndex == 0 {
		return float64(ReverseBits64(a)) * 0x1p-64
	}
	base := uint64(Primes[baseIndex])
	invBase := 1 / float64(base)
	reversedDigits := uint64(0)
	invBaseN := 1.0
	for a > 0 {
		next := a / base
		digit := a - next*base
		reversedDigits = reversedDigits*base + digit
		invBaseN *= invBase
		a = next
	}
	return min(float64(reversedDigits)*invBaseN, OneMinusEpsilon)
}

// ScrambledRadicalInverse computes the radical inverse of a with each
// digit remapped through perm, a permutation of [0, base). Because the
// scrambled digit stream continues with perm[0] past the last nonzero
// digit of a, the closed-form sum of that infinite tail
// (perm[0] * base / (base-1) scaled to the current digit position) is
// added when the loop terminates.
func ScrambledRadicalInverse(baseIndex int, a uint64, perm []uint16) float64 {
	base := uint64(Primes[baseIndex])
	invBase := 1 / float64(base)
	reversedDigits := uint64(0)
	invBaseN := 1.0
	for a > 0 {
		next := a / base
		digit := a - next*base
		reversedDigits = reversedDigits*base + uint64(perm[digit])
		invBaseN *= invBase
		a = next
	}
	tail := invBase * float64(perm[0]) / (1 - invBase)
	return min(invBaseN*(float64(reversedDigits)+tail), OneMinusEpsilon)
}

// MultiplyGenerator computes the GF(2) matrix-vector product of the
// 32-column generator matrix C with the bit vector of a: the XOR of the
// columns selected by a's set bits.
func MultiplyGenerator(c *[32]uint32, a uint32) uint32 {
	var v uint32
	for i := 0; a != 0; i, a = i+1, a>>1 {
		if a&1 != 0 {
			v ^= c[i]
		}
	}
	return v
}

// SampleGeneratorMatrix evaluates the generator matrix at index a,
// interprets the product as a 32-bit fixed-point fraction, and applies the
// XOR scramble.
func SampleGeneratorMatrix(c *[32]uint32, a uint32, scramble uint32) float64 {
	return float64(MultiplyGenerator(c, a)^scramble) * 0x1p-32
}

// GrayCodeSample fills p with the first len(p) values of the sequence
// defined by generator matrix c, XOR-scrambled by scramble. Successive
// Gray-code indices differ in exactly one bit, so each value is obtained
// from its predecessor with a single column XOR; the resulting set of
// values equals direct per-index evaluation, in Gray-code order.
func GrayCodeSample(c *[32]uint32, scramble uint32, p []float64) {
	v := scramble
	for i := range p {
		p[i] = min(float64(v)*0x1p-32, OneMinusEpsilon)
		v ^= c[bits.TrailingZeros32(uint32(i)+1)]
	}
}

// GrayCodeSample2D is the two-dimensional variant of GrayCodeSample,
// advancing matrices c0 and c1 in lockstep.
func GrayCodeSample2D(c0, c1 *[32]uint32, scramble [2]uint32, p []core.Vec2) {
	v := scramble
	for i := range p {
		p[i].X = min(float64(v[0])*0x1p-32, OneMinusEpsilon)
		p[i].Y = min(float64(v[1])*0x1p-32, OneMinusEpsilon)
		tz := bits.TrailingZeros32(uint32(i) + 1)
		v[0] ^= c0[tz]
		v[1] ^= c1[tz]
	}
}

// vanDerCorput is the base-2 radical inverse as a generator matrix: column
// i carries bit 31-i, so multiplying by an index bit-reverses it.
var vanDerCorput = func() [32]uint32 {
	var c [32]uint32
	for i := range c {
		c[i] = 1 << (31 - i)
	}
	return c
}()

// VanDerCorput generates nSamplesPerPixelSample van der Corput samples for
// each of nPixelSamples pixel samples into samples, randomly scrambled and
// shuffled so that different pixels and dimensions are decorrelated while
// each batch keeps its low-discrepancy structure.
func VanDerCorput(nSamplesPerPixelSample, nPixelSamples int, samples []float64, g *rng.RNG) {
	scramble := g.Uint32()
	total := nSamplesPerPixelSample * nPixelSamples
	GrayCodeSample(&vanDerCorput, scramble, samples[:total])
	for i := 0; i < nPixelSamples; i++ {
		rng.Shuffle(samples[i*nSamplesPerPixelSample:(i+1)*nSamplesPerPixelSample],
			nSamplesPerPixelSample, 1, g)
	}
	rng.Shuffle(samples[:total], nPixelSamples, nSamplesPerPixelSample, g)
}

// Sobol2D generates nSamplesPerPixelSample 2D samples from the first two
// Sobol' dimensions for each of nPixelSamples pixel samples, scrambled and
// shuffled like VanDerCorput.
func Sobol2D(nSamplesPerPixelSample, nPixelSamples int, samples []core.Vec2, g *rng.RNG) {
	scramble := [2]uint32{g.Uint32(), g.Uint32()}
	total := nSamplesPerPixelSample * nPixelSamples
	GrayCodeSample2D(&sobolMatrices[0], &sobolMatrices[1], scramble, samples[:total])
	for i := 0; i < nPixelSamples; i++ {
		rng.Shuffle(samples[i*nSamplesPerPixelSample:(i+1)*nSamplesPerPixelSample],
			nSamplesPerPixelSample, 1, g)
	}
	rng.Shuffle(samples[:total], nPixelSamples, nSamplesPerPixelSample, g)
}

// IsPowerOf2 reports whether v is a power of two.
func IsPowerOf2(v int) bool {
	return v > 0 && v&(v-1) == 0
}

// RoundUpPow2 rounds v up to the next power of two.
func RoundUpPow2(v int) int {
	if v <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(v-1))
}

// Log2Int returns floor(log2(v)) for v >= 1.
func Log2Int(v int) int {
	return bits.Len(uint(v)) - 1
}
