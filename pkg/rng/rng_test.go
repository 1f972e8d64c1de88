package rng

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func TestRNG_ReplayAfterAdvance(t *testing.T) {
	r := New(1234)
	v := make([]uint32, 1000)
	for i := range v {
		v[i] = r.Uint32()
	}

	r.SetSequence(1234)
	r.Advance(16)
	assert.Equal(t, v[16], r.Uint32())

	for i := len(v) - 1; i >= 0; i-- {
		r.SetSequence(1234)
		r.Advance(int64(i))
		assert.Equal(t, v[i], r.Uint32())
	}

	// Switch to another sequence, then go back and check once more.
	r.SetSequence(32)
	r.Uint32()
	for _, i := range []int64{5, 998, 552, 37, 16} {
		r.SetSequence(1234)
		r.Advance(i)
		assert.Equal(t, v[i], r.Uint32())
	}
}

func TestRNG_AdvanceSubInverse(t *testing.T) {
	kGen := New(99)
	for trial := 0; trial < 100; trial++ {
		a := New(uint64(trial))
		// Start from an arbitrary position on the stream.
		pre := int64(kGen.Uint32n(1000))
		a.Advance(pre)
		b := a.Clone()

		k := int64(kGen.Uint32n(10001))
		a.Advance(k)
		assert.Equal(t, k, a.Sub(b), "trial %d k %d", trial, k)
		assert.Equal(t, int64(0), b.Sub(b))
	}
}

func TestRNG_NegativeAdvance(t *testing.T) {
	r := New(7)
	r.Advance(10)
	saved := r.Clone()
	r.Advance(637)
	r.Advance(-637)
	assert.Equal(t, int64(0), r.Sub(saved))
	assert.Equal(t, saved.Uint32(), r.Uint32())
}

func TestRNG_SubAcrossStreamsPanics(t *testing.T) {
	a, b := New(1), New(2)
	assert.Panics(t, func() { a.Sub(b) })
}

func TestRNG_FloatBounds(t *testing.T) {
	r := New(0)
	for i := 0; i < 100000; i++ {
		f := r.Float64()
		require.GreaterOrEqual(t, f, 0.0)
		require.Less(t, f, 1.0)
	}
	r = New(1)
	for i := 0; i < 100000; i++ {
		f := r.Float32()
		require.GreaterOrEqual(t, f, float32(0))
		require.Less(t, f, float32(1))
	}
}

func TestRNG_Float64Uniformity(t *testing.T) {
	const n = 200000
	r := New(42)
	samples := make([]float64, n)
	bins := make([]float64, 16)
	for i := range samples {
		u := r.Float64()
		samples[i] = u
		bins[int(u*16)]++
	}

	assert.InDelta(t, 0.5, stat.Mean(samples, nil), 0.005)
	assert.InDelta(t, 1.0/12.0, stat.Variance(samples, nil), 0.002)

	expected := make([]float64, 16)
	for i := range expected {
		expected[i] = n / 16.0
	}
	// 99.9th percentile of chi-squared with 15 degrees of freedom.
	assert.Less(t, stat.ChiSquare(bins, expected), 37.7)
}

func TestRNG_Uint32nUnbiased(t *testing.T) {
	// A bound that does not divide 2^32 evenly would show modulo bias at
	// this sample count if the rejection threshold were missing.
	const bound = 3
	const n = 300000
	r := New(5)
	counts := make([]float64, bound)
	for i := 0; i < n; i++ {
		v := r.Uint32n(bound)
		require.Less(t, v, uint32(bound))
		counts[v]++
	}
	expected := []float64{n / 3.0, n / 3.0, n / 3.0}
	// 99.9th percentile of chi-squared with 2 degrees of freedom.
	assert.Less(t, stat.ChiSquare(counts, expected), 13.9)
}

func TestRNG_StreamsDiffer(t *testing.T) {
	a, b := New(0), New(1)
	same := 0
	for i := 0; i < 64; i++ {
		if a.Uint32() == b.Uint32() {
			same++
		}
	}
	assert.Less(t, same, 4)
}

func TestShuffle(t *testing.T) {
	r := New(17)
	vals := make([]int, 100)
	for i := range vals {
		vals[i] = i
	}
	Shuffle(vals, len(vals), 1, r)

	seen := make(map[int]bool, len(vals))
	moved := 0
	for i, v := range vals {
		seen[v] = true
		if v != i {
			moved++
		}
	}
	assert.Len(t, seen, len(vals), "shuffle must be a permutation")
	assert.Greater(t, moved, 50)

	// Block shuffle keeps pairs together.
	pairs := []int{0, 0, 1, 1, 2, 2, 3, 3}
	Shuffle(pairs, 4, 2, r)
	for i := 0; i < len(pairs); i += 2 {
		assert.Equal(t, pairs[i], pairs[i+1])
	}
}
