package sampler

import (
	"github.com/charmbracelet/log"

	"github.com/df07/go-render-sampling/pkg/lowdiscrepancy"
	"github.com/df07/go-render-sampling/pkg/rng"
)

// HaltonSampler draws each dimension from a scrambled Halton sequence,
// one prime base per Sobol-style dimension. Digit permutations are
// computed once and shared by all pixels; each pixel starts at its own
// hashed index offset so neighboring pixels do not repeat the same
// low-index prefix of the sequence.
type HaltonSampler struct {
	pixelSampler
	perms lowdiscrepancy.Permutations
}

// NewHaltonSampler creates a Halton sampler. nDimensions is clamped so
// every 1D and 2D dimension gets its own prime base.
func NewHaltonSampler(samplesPerPixel, nDimensions int) *HaltonSampler {
	if maxDims := lowdiscrepancy.PrimeTableSize / 3; nDimensions > maxDims {
		log.Warn("sampled dimensions exceed prime table, clamping",
			"requested", nDimensions, "using", maxDims)
		nDimensions = maxDims
	}
	s := &HaltonSampler{
		perms: lowdiscrepancy.ComputeRadicalInversePermutations(rng.Default()),
	}
	s.pixelSampler = newPixelSampler(samplesPerPixel, nDimensions, s.generatePixelSamples)
	return s
}

func (s *HaltonSampler) generatePixelSamples(g *rng.RNG) {
	// Hashed starting index for this pixel; headroom above keeps
	// offset+spp from wrapping.
	offset := g.Uint64() >> 16

	dim := 0
	for d := range s.samples2D {
		px, py := s.perms.ForDimension(dim), s.perms.ForDimension(dim+1)
		for i := 0; i < s.spp; i++ {
			s.samples2D[d][i].X = lowdiscrepancy.ScrambledRadicalInverse(dim, offset+uint64(i), px)
			s.samples2D[d][i].Y = lowdiscrepancy.ScrambledRadicalInverse(dim+1, offset+uint64(i), py)
		}
		dim += 2
	}
	for d := range s.samples1D {
		p := s.perms.ForDimension(dim)
		for i := 0; i < s.spp; i++ {
			s.samples1D[d][i] = lowdiscrepancy.ScrambledRadicalInverse(dim, offset+uint64(i), p)
		}
		dim++
	}

	for r := range s.arrays1D {
		p := s.perms.ForDimension(dim)
		for i := range s.arrays1D[r] {
			s.arrays1D[r][i] = lowdiscrepancy.ScrambledRadicalInverse(dim, offset+uint64(i), p)
		}
		dim++
	}
	for r := range s.arrays2D {
		px, py := s.perms.ForDimension(dim), s.perms.ForDimension(dim+1)
		for i := range s.arrays2D[r] {
			s.arrays2D[r][i].X = lowdiscrepancy.ScrambledRadicalInverse(dim, offset+uint64(i), px)
			s.arrays2D[r][i].Y = lowdiscrepancy.ScrambledRadicalInverse(dim+1, offset+uint64(i), py)
		}
		dim += 2
	}
}

// Clone creates an independent copy for another rendering worker. The
// digit permutations are immutable and shared with the clone.
func (s *HaltonSampler) Clone(seed uint64) Sampler {
	c := &HaltonSampler{perms: s.perms}
	c.pixelSampler = newPixelSampler(s.spp, s.nDimensions, c.generatePixelSamples)
	s.cloneInto(&c.pixelSampler, seed)
	return c
}
