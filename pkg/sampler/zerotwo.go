package sampler

import (
	"github.com/charmbracelet/log"

	"github.com/df07/go-render-sampling/pkg/lowdiscrepancy"
	"github.com/df07/go-render-sampling/pkg/rng"
)

// ZeroTwoSequenceSampler generates (0,2)-sequence samples: for a
// power-of-two sample count, every 2D dimension places exactly one sample
// in every elementary interval of the matching dyadic resolution. Each
// dimension uses an independent random scramble and shuffle so the shared
// sequence structure does not correlate across dimensions.
type ZeroTwoSequenceSampler struct {
	pixelSampler
}

// NewZeroTwoSequenceSampler creates a (0,2)-sequence sampler.
// samplesPerPixel is rounded up to a power of two if needed.
func NewZeroTwoSequenceSampler(samplesPerPixel, nDimensions int) *ZeroTwoSequenceSampler {
	spp := roundPow2SPP(samplesPerPixel)
	s := &ZeroTwoSequenceSampler{}
	s.pixelSampler = newPixelSampler(spp, nDimensions, s.generatePixelSamples)
	return s
}

func (s *ZeroTwoSequenceSampler) generatePixelSamples(g *rng.RNG) {
	for d := range s.samples1D {
		lowdiscrepancy.VanDerCorput(1, s.spp, s.samples1D[d], g)
	}
	for d := range s.samples2D {
		lowdiscrepancy.Sobol2D(1, s.spp, s.samples2D[d], g)
	}
	for r, n := range s.sizes1D {
		lowdiscrepancy.VanDerCorput(n, s.spp, s.arrays1D[r], g)
	}
	for r, n := range s.sizes2D {
		lowdiscrepancy.Sobol2D(n, s.spp, s.arrays2D[r], g)
	}
}

// RoundCount rounds array sizes up to a power of two, the only batch size
// the underlying sequences stratify well.
func (s *ZeroTwoSequenceSampler) RoundCount(n int) int {
	return lowdiscrepancy.RoundUpPow2(n)
}

// Clone creates an independent copy for another rendering worker.
func (s *ZeroTwoSequenceSampler) Clone(seed uint64) Sampler {
	c := NewZeroTwoSequenceSampler(s.spp, s.nDimensions)
	s.cloneInto(&c.pixelSampler, seed)
	return c
}

func roundPow2SPP(n int) int {
	if lowdiscrepancy.IsPowerOf2(n) {
		return n
	}
	rounded := lowdiscrepancy.RoundUpPow2(n)
	log.Warn("samples per pixel rounded up to a power of two",
		"requested", n, "using", rounded)
	return rounded
}
