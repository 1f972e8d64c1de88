package sampler

import (
	"github.com/charmbracelet/log"

	"github.com/df07/go-render-sampling/pkg/lowdiscrepancy"
	"github.com/df07/go-render-sampling/pkg/rng"
)

// MaxMinDistSampler draws its first 2D dimension from a precomputed
// generator matrix chosen to maximize the points' pairwise toroidal
// minimum distance at the given sample count, giving better blue-noise
// character than a plain (0,2)-sequence. Remaining dimensions fall back to
// scrambled (0,2)-sequence samples.
type MaxMinDistSampler struct {
	pixelSampler
	cPixel *[32]uint32
}

// NewMaxMinDistSampler creates a max-min-distance sampler.
// samplesPerPixel is rounded up to a power of two and clamped to the
// largest count the distance-optimized matrix table covers.
func NewMaxMinDistSampler(samplesPerPixel, nDimensions int) *MaxMinDistSampler {
	spp := roundPow2SPP(samplesPerPixel)
	if maxSPP := 1 << (len(lowdiscrepancy.CMaxMinDist) - 1); spp > maxSPP {
		log.Warn("no max-min-distance matrix for sample count, clamping",
			"requested", spp, "using", maxSPP)
		spp = maxSPP
	}
	s := &MaxMinDistSampler{
		cPixel: &lowdiscrepancy.CMaxMinDist[lowdiscrepancy.Log2Int(spp)],
	}
	s.pixelSampler = newPixelSampler(spp, nDimensions, s.generatePixelSamples)
	return s
}

func (s *MaxMinDistSampler) generatePixelSamples(g *rng.RNG) {
	if len(s.samples2D) > 0 {
		invSPP := 1 / float64(s.spp)
		for i := 0; i < s.spp; i++ {
			s.samples2D[0][i].X = float64(i) * invSPP
			s.samples2D[0][i].Y = lowdiscrepancy.SampleGeneratorMatrix(s.cPixel, uint32(i), 0)
		}
		rng.Shuffle(s.samples2D[0], s.spp, 1, g)
	}

	for d := range s.samples1D {
		lowdiscrepancy.VanDerCorput(1, s.spp, s.samples1D[d], g)
	}
	for d := 1; d < len(s.samples2D); d++ {
		lowdiscrepancy.Sobol2D(1, s.spp, s.samples2D[d], g)
	}
	for r, n := range s.sizes1D {
		lowdiscrepancy.VanDerCorput(n, s.spp, s.arrays1D[r], g)
	}
	for r, n := range s.sizes2D {
		lowdiscrepancy.Sobol2D(n, s.spp, s.arrays2D[r], g)
	}
}

// RoundCount rounds array sizes up to a power of two.
func (s *MaxMinDistSampler) RoundCount(n int) int {
	return lowdiscrepancy.RoundUpPow2(n)
}

// Clone creates an independent copy for another rendering worker.
func (s *MaxMinDistSampler) Clone(seed uint64) Sampler {
	c := NewMaxMinDistSampler(s.spp, s.nDimensions)
	s.cloneInto(&c.pixelSampler, seed)
	return c
}
