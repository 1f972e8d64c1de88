package sampler

import (
	"github.com/df07/go-render-sampling/pkg/core"
	"github.com/df07/go-render-sampling/pkg/rng"
)

// StratifiedSampler subdivides [0,1) (and [0,1)^2) into equal strata and
// places one jittered sample in each. Sample arrays use per-sample 1D
// stratification and Latin hypercube patterns for 2D, since array sizes
// need not match the xSamples*ySamples grid.
type StratifiedSampler struct {
	pixelSampler
	xSamples, ySamples int
	jitter             bool
}

// NewStratifiedSampler creates a stratified sampler with an
// xSamples by ySamples grid per pixel. With jitter false, samples sit at
// stratum centers, which is useful for debugging.
func NewStratifiedSampler(xSamples, ySamples int, jitter bool, nDimensions int) *StratifiedSampler {
	s := &StratifiedSampler{xSamples: xSamples, ySamples: ySamples, jitter: jitter}
	s.pixelSampler = newPixelSampler(xSamples*ySamples, nDimensions, s.generatePixelSamples)
	return s
}

func (s *StratifiedSampler) generatePixelSamples(g *rng.RNG) {
	for d := range s.samples1D {
		stratifiedSample1D(s.samples1D[d], s.jitter, g)
		rng.Shuffle(s.samples1D[d], s.spp, 1, g)
	}
	for d := range s.samples2D {
		stratifiedSample2D(s.samples2D[d], s.xSamples, s.ySamples, s.jitter, g)
		rng.Shuffle(s.samples2D[d], s.spp, 1, g)
	}
	for r, n := range s.sizes1D {
		for i := 0; i < s.spp; i++ {
			batch := s.arrays1D[r][i*n : (i+1)*n]
			stratifiedSample1D(batch, s.jitter, g)
			rng.Shuffle(batch, n, 1, g)
		}
	}
	for r, n := range s.sizes2D {
		for i := 0; i < s.spp; i++ {
			latinHypercube(s.arrays2D[r][i*n:(i+1)*n], g)
		}
	}
}

// Clone creates an independent copy for another rendering worker.
func (s *StratifiedSampler) Clone(seed uint64) Sampler {
	c := NewStratifiedSampler(s.xSamples, s.ySamples, s.jitter, s.nDimensions)
	s.cloneInto(&c.pixelSampler, seed)
	return c
}

func stratifiedSample1D(samp []float64, jitter bool, g *rng.RNG) {
	invN := 1 / float64(len(samp))
	for i := range samp {
		delta := 0.5
		if jitter {
			delta = g.Float64()
		}
		samp[i] = min((float64(i)+delta)*invN, rng.OneMinusEpsilon)
	}
}

func stratifiedSample2D(samp []core.Vec2, nx, ny int, jitter bool, g *rng.RNG) {
	dx, dy := 1/float64(nx), 1/float64(ny)
	i := 0
	for y := 0; y < ny; y++ {
		for x := 0; x < nx; x++ {
			jx, jy := 0.5, 0.5
			if jitter {
				jx, jy = g.Float64(), g.Float64()
			}
			samp[i].X = min((float64(x)+jx)*dx, rng.OneMinusEpsilon)
			samp[i].Y = min((float64(y)+jy)*dy, rng.OneMinusEpsilon)
			i++
		}
	}
}

// latinHypercube distributes len(samp) points so that each dimension's
// projection is stratified into len(samp) strata, independent of the other
// dimension.
func latinHypercube(samp []core.Vec2, g *rng.RNG) {
	n := len(samp)
	invN := 1 / float64(n)
	for i := range samp {
		samp[i].X = min((float64(i)+g.Float64())*invN, rng.OneMinusEpsilon)
		samp[i].Y = min((float64(i)+g.Float64())*invN, rng.OneMinusEpsilon)
	}
	// Permute the strata of each dimension independently.
	for i := n - 1; i > 0; i-- {
		j := int(g.Uint32n(uint32(i + 1)))
		samp[i].X, samp[j].X = samp[j].X, samp[i].X
	}
	for i := n - 1; i > 0; i-- {
		j := int(g.Uint32n(uint32(i + 1)))
		samp[i].Y, samp[j].Y = samp[j].Y, samp[i].Y
	}
}
