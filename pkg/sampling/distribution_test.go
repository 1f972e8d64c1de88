package sampling

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/df07/go-render-sampling/pkg/core"
	"github.com/df07/go-render-sampling/pkg/rng"
)

func TestDistribution1D_Discrete(t *testing.T) {
	d := NewDistribution1D([]float64{0, 1, 0, 3})
	require.Equal(t, 4, d.Count())

	assert.InDelta(t, 0.0, d.DiscretePDF(0), 1e-12)
	assert.InDelta(t, 0.25, d.DiscretePDF(1), 1e-12)
	assert.InDelta(t, 0.0, d.DiscretePDF(2), 1e-12)
	assert.InDelta(t, 0.75, d.DiscretePDF(3), 1e-12)

	offset, pdf, _ := d.SampleDiscrete(0)
	assert.Equal(t, 1, offset)
	assert.InDelta(t, 0.25, pdf, 1e-12)

	// Values inside the first nonempty bucket remap uniformly within it.
	offset, pdf, uRemapped := d.SampleDiscrete(0.125)
	assert.Equal(t, 1, offset)
	assert.InDelta(t, 0.25, pdf, 1e-12)
	assert.InDelta(t, 0.5, uRemapped, 1e-12)

	offset, _, _ = d.SampleDiscrete(0.24999)
	assert.Equal(t, 1, offset)

	// Boundary values resolve to the higher bucket; zero-weight buckets
	// in between are skipped entirely.
	offset, pdf, _ = d.SampleDiscrete(0.250001)
	assert.Equal(t, 3, offset)
	assert.InDelta(t, 0.75, pdf, 1e-12)

	offset, _, uRemapped = d.SampleDiscrete(0.625)
	assert.Equal(t, 3, offset)
	assert.InDelta(t, 0.5, uRemapped, 1e-12)

	offset, _, _ = d.SampleDiscrete(rng.OneMinusEpsilon)
	assert.Equal(t, 3, offset)
	offset, _, _ = d.SampleDiscrete(1)
	assert.Equal(t, 3, offset)
}

func TestDistribution1D_Continuous(t *testing.T) {
	d := NewDistribution1D([]float64{1, 1, 2, 4, 8})
	require.Equal(t, 5, d.Count())
	assert.InDelta(t, 16.0/5.0, d.FuncInt, 1e-12)

	x, pdf, offset := d.SampleContinuous(0)
	assert.Equal(t, 0.0, x)
	assert.InDelta(t, 1.0/d.FuncInt, pdf, 1e-12)
	assert.Equal(t, 0, offset)

	x, pdf, offset = d.SampleContinuous(0.5)
	assert.InDelta(t, 0.8, x, 1e-12)
	assert.InDelta(t, 8.0/d.FuncInt, pdf, 1e-12)
	assert.Equal(t, 4, offset)

	x, _, _ = d.SampleContinuous(rng.OneMinusEpsilon)
	assert.Less(t, x, 1.0)

	// The mapping is monotone, so stratified input stays stratified.
	g := rng.Default()
	prevU, prevX := 0.0, 0.0
	for i := 0; i < 1000; i++ {
		u := prevU + g.Float64()*(1-prevU)/8
		x, _, _ := d.SampleContinuous(u)
		assert.GreaterOrEqual(t, x, prevX)
		prevU, prevX = u, x
	}
}

func TestDistribution1D_ZeroFunction(t *testing.T) {
	d := NewDistribution1D([]float64{0, 0, 0, 0})

	// Degenerates to a uniform CDF with zero reported PDFs.
	x, pdf, _ := d.SampleContinuous(0.5)
	assert.InDelta(t, 0.5, x, 1e-12)
	assert.Equal(t, 0.0, pdf)

	offset, pdf, _ := d.SampleDiscrete(0.9)
	assert.Equal(t, 3, offset)
	assert.Equal(t, 0.0, pdf)
}

func TestDistribution1D_PDFIntegratesToOne(t *testing.T) {
	d := NewDistribution1D([]float64{3, 0.25, 10, 7, 1e-4, 0, 2})

	// Stratified uniform input lands in each bucket with frequency equal
	// to the bucket's discrete probability.
	const n = 100000
	counts := make([]int, d.Count())
	for i := 0; i < n; i++ {
		u := (float64(i) + 0.5) / n
		_, _, offset := d.SampleContinuous(u)
		counts[offset]++
	}
	for i := 0; i < d.Count(); i++ {
		assert.InDelta(t, d.DiscretePDF(i), float64(counts[i])/n, 1e-4, "bucket %d", i)
	}

	total := 0.0
	for i := 0; i < d.Count(); i++ {
		total += d.DiscretePDF(i)
	}
	assert.InDelta(t, 1.0, total, 1e-12)
}

func TestDistribution2D_SamplePDFConsistent(t *testing.T) {
	f := []float64{
		1, 0, 2, 0,
		0, 4, 0, 1,
		2, 2, 2, 2,
	}
	d := NewDistribution2D(f, 4, 3)

	g := rng.Default()
	for i := 0; i < 1000; i++ {
		u := core.NewVec2(g.Float64(), g.Float64())
		p, pdf := d.SampleContinuous(u)
		require.GreaterOrEqual(t, p.X, 0.0)
		require.Less(t, p.X, 1.0)
		require.GreaterOrEqual(t, p.Y, 0.0)
		require.Less(t, p.Y, 1.0)
		require.Greater(t, pdf, 0.0)
		assert.InDelta(t, pdf, d.PDF(p), 1e-9)
	}

	// Zero-weight cells are never sampled.
	for i := 0; i < 1000; i++ {
		u := core.NewVec2(g.Float64(), g.Float64())
		p, _ := d.SampleContinuous(u)
		ix, iy := int(p.X*4), int(p.Y*3)
		assert.NotZero(t, f[iy*4+ix], "sampled zero-weight cell (%d,%d)", ix, iy)
	}
}

func TestSampleCosineHemisphere(t *testing.T) {
	normal := core.NewVec3(0, 0, 1)
	g := rng.Default()
	for i := 0; i < 1000; i++ {
		dir := SampleCosineHemisphere(normal, core.NewVec2(g.Float64(), g.Float64()))
		assert.InDelta(t, 1.0, dir.Length(), 1e-9)
		assert.GreaterOrEqual(t, dir.Dot(normal), 0.0)
	}
}

func TestSamplePointInUnitDisk(t *testing.T) {
	g := rng.Default()
	for i := 0; i < 1000; i++ {
		p := SamplePointInUnitDisk(core.NewVec2(g.Float64(), g.Float64()))
		assert.LessOrEqual(t, p.Length(), 1.0+1e-9)
	}
	// The concentric map is origin-preserving at the square's center.
	center := SamplePointInUnitDisk(core.NewVec2(0.5, 0.5))
	assert.Equal(t, core.NewVec2(0, 0), center)
}

func TestSampleOnUnitSphere(t *testing.T) {
	g := rng.Default()
	var mean core.Vec3
	const n = 10000
	for i := 0; i < n; i++ {
		dir := SampleOnUnitSphere(core.NewVec2(g.Float64(), g.Float64()))
		assert.InDelta(t, 1.0, dir.Length(), 1e-9)
		mean = mean.Add(dir.Multiply(1.0 / n))
	}
	// Uniform directions average out close to zero.
	assert.Less(t, mean.Length(), 0.05)
	assert.InDelta(t, 1.0/(4*math.Pi), SampleUniformSpherePDF(), 1e-12)
}
