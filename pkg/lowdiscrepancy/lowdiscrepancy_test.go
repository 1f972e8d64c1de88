package lowdiscrepancy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/df07/go-render-sampling/pkg/core"
	"github.com/df07/go-render-sampling/pkg/rng"
)

func TestRadicalInverse_Base2FastPath(t *testing.T) {
	for a := uint64(0); a < 1024; a++ {
		expected := float64(ReverseBits32(uint32(a))) * 0x1p-32
		assert.Equal(t, expected, RadicalInverse(0, a), "a=%d", a)
	}
}

func TestRadicalInverse_GeneralBase(t *testing.T) {
	// Base 3: 5 = 12_3, reversed 21_3 = 2/3 + 1/9.
	assert.InDelta(t, 2.0/3.0+1.0/9.0, RadicalInverse(1, 5), 1e-15)
	// First sample is always 0, second is 1/base.
	for baseIndex := 0; baseIndex < 16; baseIndex++ {
		assert.Equal(t, 0.0, RadicalInverse(baseIndex, 0))
		assert.InDelta(t, 1.0/float64(Primes[baseIndex]), RadicalInverse(baseIndex, 1), 1e-15)
	}
	// Values stay in [0,1).
	for a := uint64(0); a < 4096; a++ {
		v := RadicalInverse(3, a)
		require.GreaterOrEqual(t, v, 0.0)
		require.Less(t, v, 1.0)
	}
}

func TestScrambledRadicalInverse(t *testing.T) {
	for dim := 0; dim < 128; dim++ {
		g := rng.New(uint64(dim))
		base := Primes[dim%PrimeTableSize]

		// Random permutation table.
		perm := make([]uint16, base)
		for i := range perm {
			perm[i] = uint16(base - 1 - i)
		}
		rng.Shuffle(perm, base, 1, g)

		for _, index := range []uint64{0, 1, 2, 1151, 32351, 4363211, 681122} {
			// Sum the permuted digits directly, then account for the
			// infinite tail of permuted zero digits.
			val := 0.0
			invBase := 1.0 / float64(base)
			invBi := invBase
			n := index
			for n > 0 {
				d := perm[n%uint64(base)]
				val += float64(d) * invBi
				n /= uint64(base)
				invBi *= invBase
			}
			val += float64(perm[0]) * float64(base) / (float64(base) - 1.0) * invBi
			assert.InDelta(t, val, ScrambledRadicalInverse(dim%PrimeTableSize, index, perm), 1e-5,
				"dim=%d index=%d", dim, index)

			// A naive loop over all 32 digit positions must agree too.
			val = 0.0
			invBi = invBase
			a := index
			for i := 0; i < 32; i++ {
				d := perm[a%uint64(base)]
				a /= uint64(base)
				val += float64(d) * invBi
				invBi *= invBase
			}
			assert.InDelta(t, val, ScrambledRadicalInverse(dim%PrimeTableSize, index, perm), 1e-5,
				"dim=%d index=%d (naive)", dim, index)
		}
	}
}

func TestGeneratorMatrix_Identity(t *testing.T) {
	var c, cRev [32]uint32
	for i := 0; i < 32; i++ {
		c[i] = 1 << i
		cRev[i] = ReverseBits32(c[i])
	}

	for a := uint32(0); a < 128; a++ {
		// The identity matrix reproduces the index, and in the reversed
		// convention it is the van der Corput sequence.
		assert.Equal(t, a, MultiplyGenerator(&c, a))
		assert.Equal(t, RadicalInverse(0, uint64(a)),
			float64(ReverseBits32(MultiplyGenerator(&c, a)))*0x1p-32)
		assert.Equal(t, RadicalInverse(0, uint64(a)), SampleGeneratorMatrix(&cRev, a, 0))
	}
}

func TestGeneratorMatrix_BitReversalCommutes(t *testing.T) {
	// Bit-reversing the columns must bit-reverse the product, for any
	// matrix whatsoever.
	g := rng.New(0)
	for trial := 0; trial < 4; trial++ {
		var c, cRev [32]uint32
		for i := 0; i < 32; i++ {
			c[i] = g.Uint32()
			cRev[i] = ReverseBits32(c[i])
		}
		for a := uint32(0); a < 1024; a++ {
			assert.Equal(t, ReverseBits32(MultiplyGenerator(&c, a)), MultiplyGenerator(&cRev, a))
		}
	}
}

func TestGrayCodeSample_SameSet(t *testing.T) {
	var c [32]uint32
	for i := 0; i < 32; i++ {
		c[i] = 1 << i
	}

	v := make([]float64, 64)
	GrayCodeSample(&c, 0, v)

	set := make(map[float64]bool, len(v))
	for _, s := range v {
		set[s] = true
	}
	for a := uint32(0); a < uint32(len(v)); a++ {
		u := float64(MultiplyGenerator(&c, a)) * 0x1p-32
		assert.True(t, set[u], "direct sample %v missing from gray-code set", u)
	}
}

func TestGrayCodeSample_RandomMatrixSameSet(t *testing.T) {
	g := rng.New(3)
	var c [32]uint32
	for i := 0; i < 32; i++ {
		c[i] = g.Uint32()
	}
	scramble := g.Uint32()

	v := make([]float64, 128)
	GrayCodeSample(&c, scramble, v)
	set := make(map[float64]bool, len(v))
	for _, s := range v {
		set[s] = true
	}
	for a := uint32(0); a < uint32(len(v)); a++ {
		u := min(float64(MultiplyGenerator(&c, a)^scramble)*0x1p-32, OneMinusEpsilon)
		assert.True(t, set[u])
	}
}

func TestVanDerCorput_Stratified(t *testing.T) {
	for _, n := range []int{16, 64, 256} {
		g := rng.New(uint64(n))
		samples := make([]float64, n)
		VanDerCorput(1, n, samples, g)

		seen := make([]bool, n)
		for _, s := range samples {
			cell := int(s * float64(n))
			require.False(t, seen[cell], "two samples in cell %d of %d", cell, n)
			seen[cell] = true
		}
	}
}

func TestSobol2D_Stratified(t *testing.T) {
	const n = 256
	g := rng.New(11)
	samples := make([]core.Vec2, n)
	Sobol2D(1, n, samples, g)

	var seenX, seenY [n]bool
	for _, s := range samples {
		cx, cy := int(s.X*n), int(s.Y*n)
		require.False(t, seenX[cx])
		require.False(t, seenY[cy])
		seenX[cx] = true
		seenY[cy] = true
	}
}

func TestPow2Helpers(t *testing.T) {
	assert.True(t, IsPowerOf2(1))
	assert.True(t, IsPowerOf2(64))
	assert.False(t, IsPowerOf2(0))
	assert.False(t, IsPowerOf2(48))
	assert.Equal(t, 1, RoundUpPow2(1))
	assert.Equal(t, 16, RoundUpPow2(9))
	assert.Equal(t, 16, RoundUpPow2(16))
	assert.Equal(t, 4, Log2Int(16))
	assert.Equal(t, 0, Log2Int(1))
	assert.Equal(t, 3, Log2Int(8))
	assert.Equal(t, 3, Log2Int(15))
}

func TestPrimes(t *testing.T) {
	assert.Equal(t, 2, Primes[0])
	assert.Equal(t, 3, Primes[1])
	assert.Equal(t, 5, Primes[2])
	assert.Equal(t, 541, Primes[99])
	for i := 1; i < PrimeTableSize; i++ {
		assert.Greater(t, Primes[i], Primes[i-1])
	}
}

func TestComputeRadicalInversePermutations(t *testing.T) {
	perms := ComputeRadicalInversePermutations(rng.New(0))
	require.Len(t, perms, PrimeTableSize)
	for dim := 0; dim < PrimeTableSize; dim++ {
		perm := perms.ForDimension(dim)
		require.Len(t, perm, Primes[dim])
		seen := make(map[uint16]bool, len(perm))
		for _, v := range perm {
			require.Less(t, int(v), Primes[dim])
			seen[v] = true
		}
		require.Len(t, seen, Primes[dim], "dim %d not a permutation", dim)
	}

	// Same seed, same permutations.
	again := ComputeRadicalInversePermutations(rng.New(0))
	assert.Equal(t, perms, again)
}
