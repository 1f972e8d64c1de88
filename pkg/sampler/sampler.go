// Package sampler provides the per-pixel sample sequence generators that
// drive Monte Carlo integration. Each sampler produces, for a given
// (pixel, sample index) key, a deterministic stream of 1D and 2D points in
// [0,1); revisiting the same key replays the exact same stream. Rendering
// workers each own their own sampler instance obtained through Clone.
package sampler

import (
	"github.com/charmbracelet/log"

	"github.com/df07/go-render-sampling/pkg/core"
	"github.com/df07/go-render-sampling/pkg/rng"
)

// Pixel addresses a pixel in the rendered image.
type Pixel struct {
	X, Y int
}

// Sampler generates sample points for rendering. Array requests must all
// happen before the first StartSequence call; reading methods advance
// internal cursors and are not safe for concurrent use on one instance.
type Sampler interface {
	// SamplesPerPixel returns the number of sample indices per pixel.
	SamplesPerPixel() int

	// RoundCount returns the sampler's preferred rounding of an array
	// size. Callers apply it before Request1DArray and Request2DArray so
	// internal storage matches what the sampler generates best.
	RoundCount(n int) int

	// Request1DArray reserves storage for one n-sized 1D array per sample.
	Request1DArray(n int)

	// Request2DArray reserves storage for one n-sized 2D array per sample.
	Request2DArray(n int)

	// StartSequence positions the sampler at (pixel, sampleIndex) and
	// resets all read cursors. Per-pixel tables are regenerated only when
	// the pixel differs from the previous call's.
	StartSequence(p Pixel, sampleIndex int)

	// Get1D returns the next 1D sample value for the current key.
	Get1D() float64

	// Get2D returns the next 2D sample value for the current key.
	Get2D() core.Vec2

	// Get1DArray returns the next requested 1D array for the current key,
	// or nil when all requested arrays have been consumed. n must match
	// the size passed to Request1DArray.
	Get1DArray(n int) []float64

	// Get2DArray is the 2D analogue of Get1DArray.
	Get2DArray(n int) []core.Vec2

	// Clone creates an independent sampler with the same configuration
	// and array requests. Workers rendering different tiles pass distinct
	// seeds so their overflow streams decorrelate.
	Clone(seed uint64) Sampler
}

// pixelSampler holds the shared state machine of the table-based samplers:
// precomputed per-pixel tables of 1D/2D values indexed by dimension and
// sample index, requested sample arrays, and read cursors. The variant
// owning it supplies generate, which fills the tables for the current
// pixel using the provided generator.
type pixelSampler struct {
	spp         int
	nDimensions int
	seed        uint64

	samples1D [][]float64 // [dimension][sampleIndex]
	samples2D [][]core.Vec2

	sizes1D  []int
	sizes2D  []int
	arrays1D [][]float64 // [request][sampleIndex*size+i]
	arrays2D [][]core.Vec2

	cur1D, cur2D           int
	curArray1D, curArray2D int

	pixel       Pixel
	sampleIndex int
	started     bool

	// regenerations counts generate invocations; exactly one per distinct
	// pixel transition.
	regenerations int

	generate func(g *rng.RNG)
	overflow rng.RNG
}

func newPixelSampler(spp, nDimensions int, generate func(g *rng.RNG)) pixelSampler {
	s := pixelSampler{
		spp:         spp,
		nDimensions: nDimensions,
		samples1D:   make([][]float64, nDimensions),
		samples2D:   make([][]core.Vec2, nDimensions),
		generate:    generate,
	}
	for d := 0; d < nDimensions; d++ {
		s.samples1D[d] = make([]float64, spp)
		s.samples2D[d] = make([]core.Vec2, spp)
	}
	return s
}

func (s *pixelSampler) SamplesPerPixel() int { return s.spp }

func (s *pixelSampler) generateCount() int { return s.regenerations }

func (s *pixelSampler) RoundCount(n int) int { return n }

func (s *pixelSampler) Request1DArray(n int) {
	if s.started {
		log.Fatal("sample array requested after rendering started", "size", n)
	}
	s.sizes1D = append(s.sizes1D, n)
	s.arrays1D = append(s.arrays1D, make([]float64, n*s.spp))
}

func (s *pixelSampler) Request2DArray(n int) {
	if s.started {
		log.Fatal("sample array requested after rendering started", "size", n)
	}
	s.sizes2D = append(s.sizes2D, n)
	s.arrays2D = append(s.arrays2D, make([]core.Vec2, n*s.spp))
}

func (s *pixelSampler) StartSequence(p Pixel, sampleIndex int) {
	if sampleIndex >= s.spp {
		log.Fatal("sample index out of range", "index", sampleIndex, "spp", s.spp)
	}
	if !s.started || p != s.pixel {
		// Tables are a pure function of (pixel, seed), so revisiting a
		// pixel regenerates identical values.
		s.pixel = p
		s.started = true
		s.regenerations++
		g := rng.NewWithSeed(rng.Hash2D(p.X, p.Y), s.seed)
		s.generate(g)
	}
	s.sampleIndex = sampleIndex
	s.cur1D, s.cur2D = 0, 0
	s.curArray1D, s.curArray2D = 0, 0
	s.overflow = *rng.NewWithSeed(rng.Hash2D(p.X, p.Y), s.seed^rng.MixBits(uint64(sampleIndex)+1))
}

func (s *pixelSampler) Get1D() float64 {
	if s.cur1D < len(s.samples1D) {
		v := s.samples1D[s.cur1D][s.sampleIndex]
		s.cur1D++
		return v
	}
	// Past the precomputed dimensions: fall back to uniform values from a
	// stream keyed by (pixel, sampleIndex) so replay stays bit-exact.
	return s.overflow.Float64()
}

func (s *pixelSampler) Get2D() core.Vec2 {
	if s.cur2D < len(s.samples2D) {
		v := s.samples2D[s.cur2D][s.sampleIndex]
		s.cur2D++
		return v
	}
	return core.NewVec2(s.overflow.Float64(), s.overflow.Float64())
}

func (s *pixelSampler) Get1DArray(n int) []float64 {
	if s.curArray1D == len(s.arrays1D) {
		return nil
	}
	if s.sizes1D[s.curArray1D] != n {
		log.Fatal("1D array size mismatch", "requested", s.sizes1D[s.curArray1D], "got", n)
	}
	a := s.arrays1D[s.curArray1D][s.sampleIndex*n : (s.sampleIndex+1)*n]
	s.curArray1D++
	return a
}

func (s *pixelSampler) Get2DArray(n int) []core.Vec2 {
	if s.curArray2D == len(s.arrays2D) {
		return nil
	}
	if s.sizes2D[s.curArray2D] != n {
		log.Fatal("2D array size mismatch", "requested", s.sizes2D[s.curArray2D], "got", n)
	}
	a := s.arrays2D[s.curArray2D][s.sampleIndex*n : (s.sampleIndex+1)*n]
	s.curArray2D++
	return a
}

// cloneInto re-requests this sampler's arrays on a freshly constructed
// clone and assigns its seed. Tables regenerate from (pixel, seed) on the
// clone's first StartSequence, so nothing else needs copying.
func (s *pixelSampler) cloneInto(dst *pixelSampler, seed uint64) {
	for _, n := range s.sizes1D {
		dst.Request1DArray(n)
	}
	for _, n := range s.sizes2D {
		dst.Request2DArray(n)
	}
	dst.seed = seed
}
