package sampler

import (
	"github.com/df07/go-render-sampling/pkg/rng"
)

// RandomSampler fills every dimension with independent uniform values. It
// has no stratification and serves as the correctness baseline the
// structured samplers are compared against.
type RandomSampler struct {
	pixelSampler
}

// NewRandomSampler creates a random sampler producing samplesPerPixel
// samples with nDimensions precomputed 1D and 2D dimensions each.
func NewRandomSampler(samplesPerPixel, nDimensions int) *RandomSampler {
	s := &RandomSampler{}
	s.pixelSampler = newPixelSampler(samplesPerPixel, nDimensions, s.generatePixelSamples)
	return s
}

func (s *RandomSampler) generatePixelSamples(g *rng.RNG) {
	for d := range s.samples1D {
		for i := range s.samples1D[d] {
			s.samples1D[d][i] = g.Float64()
		}
	}
	for d := range s.samples2D {
		for i := range s.samples2D[d] {
			s.samples2D[d][i].X = g.Float64()
			s.samples2D[d][i].Y = g.Float64()
		}
	}
	for r := range s.arrays1D {
		for i := range s.arrays1D[r] {
			s.arrays1D[r][i] = g.Float64()
		}
	}
	for r := range s.arrays2D {
		for i := range s.arrays2D[r] {
			s.arrays2D[r][i].X = g.Float64()
			s.arrays2D[r][i].Y = g.Float64()
		}
	}
}

// Clone creates an independent copy for another rendering worker.
func (s *RandomSampler) Clone(seed uint64) Sampler {
	c := NewRandomSampler(s.spp, s.nDimensions)
	s.cloneInto(&c.pixelSampler, seed)
	return c
}
