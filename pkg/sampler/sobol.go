package sampler

import (
	"github.com/charmbracelet/log"

	"github.com/df07/go-render-sampling/pkg/lowdiscrepancy"
	"github.com/df07/go-render-sampling/pkg/rng"
)

// SobolSampler draws every dimension from the global Sobol' sequence.
// Each pixel reads its own block of 2^log2spp consecutive indices, chosen
// by hashing the pixel coordinates; block alignment preserves the
// sequence's dyadic stratification within the pixel, and a per-dimension
// XOR scramble (also derived from the pixel) decorrelates neighboring
// pixels. The first 2D dimension uses Sobol' dimensions 0 and 1, which
// together form a (0,2)-sequence.
type SobolSampler struct {
	pixelSampler
	log2spp int
}

// maxSobolDimensions caps the precomputed tables: each 2D dimension
// consumes two Sobol' dimensions and each 1D dimension one.
const maxSobolDimensions = lowdiscrepancy.NumSobolDimensions / 3

// NewSobolSampler creates a Sobol' sampler. samplesPerPixel is rounded up
// to a power of two; nDimensions is clamped to the number of dimensions
// the Sobol' matrices provide.
func NewSobolSampler(samplesPerPixel, nDimensions int) *SobolSampler {
	spp := roundPow2SPP(samplesPerPixel)
	if nDimensions > maxSobolDimensions {
		log.Warn("sampled dimensions exceed Sobol' matrix count, clamping",
			"requested", nDimensions, "using", maxSobolDimensions)
		nDimensions = maxSobolDimensions
	}
	s := &SobolSampler{log2spp: lowdiscrepancy.Log2Int(spp)}
	s.pixelSampler = newPixelSampler(spp, nDimensions, s.generatePixelSamples)
	return s
}

func (s *SobolSampler) generatePixelSamples(g *rng.RNG) {
	// Aligned block of consecutive indices for this pixel.
	offset := int64(g.Uint64()%(1<<(32-s.log2spp))) << s.log2spp

	// 2D dimensions take Sobol' dimension pairs (0,1), (2,3), ...; 1D
	// dimensions use the ones after.
	dim := 0
	for d := range s.samples2D {
		sx, sy := g.Uint32(), g.Uint32()
		for i := 0; i < s.spp; i++ {
			s.samples2D[d][i].X = lowdiscrepancy.SobolSample(offset+int64(i), dim, sx)
			s.samples2D[d][i].Y = lowdiscrepancy.SobolSample(offset+int64(i), dim+1, sy)
		}
		dim += 2
	}
	for d := range s.samples1D {
		sc := g.Uint32()
		for i := 0; i < s.spp; i++ {
			s.samples1D[d][i] = lowdiscrepancy.SobolSample(offset+int64(i), dim, sc)
		}
		dim++
	}

	// Sample arrays do not share the pixel's block structure; generate
	// them as independently scrambled (0,2)-sequence batches.
	for r, n := range s.sizes1D {
		lowdiscrepancy.VanDerCorput(n, s.spp, s.arrays1D[r], g)
	}
	for r, n := range s.sizes2D {
		lowdiscrepancy.Sobol2D(n, s.spp, s.arrays2D[r], g)
	}
}

// RoundCount rounds array sizes up to a power of two.
func (s *SobolSampler) RoundCount(n int) int {
	return lowdiscrepancy.RoundUpPow2(n)
}

// Clone creates an independent copy for another rendering worker.
func (s *SobolSampler) Clone(seed uint64) Sampler {
	c := NewSobolSampler(s.spp, s.nDimensions)
	s.cloneInto(&c.pixelSampler, seed)
	return c
}
