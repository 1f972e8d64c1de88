// Package rng implements the PCG32 pseudo-random generator used throughout
// the sampling code. Every generator is identified by a sequence index, so
// workers can own independent streams that never share state, and a stream
// can be advanced or rewound in O(log n) for deterministic replay.
package rng

import "fmt"

// PCG32 constants from the reference implementation by M.E. O'Neill.
const (
	defaultState  = 0x853c49e6748fea9b
	defaultStream = 0xda3e39cb94b95bdb
	pcg32Mult     = 0x5851f42d4c957f2d
)

// Largest representable values strictly below 1.0. Uniform float draws are
// clamped to these so downstream code can safely take log(1-u) or divide.
const (
	OneMinusEpsilon        = 1 - 0x1p-53
	OneMinusEpsilonFloat32 = float32(1 - 0x1p-24)
)

const goldenRatio64 = 0x9e3779b97f4a7c15

// MixBits is the splitmix64 bit finalizer. It is used to derive seeds from
// sequence indices and pixel coordinates so that nearby inputs produce
// uncorrelated streams.
func MixBits(v uint64) uint64 {
	v ^= v >> 31
	v *= 0x7fb5d329728ea185
	v ^= v >> 27
	v *= 0x81dadef4bc2dd44d
	v ^= v >> 33
	return v
}

// Hash2D derives a single seed value from a 2D integer coordinate.
func Hash2D(x, y int) uint64 {
	return MixBits((uint64(uint32(x)) | uint64(uint32(y))<<32) ^ goldenRatio64)
}

// RNG is a PCG32 generator: 64 bits of state advanced once per 32-bit
// output, plus an odd stream increment selecting one of 2^63 sequences.
// The zero value is not valid; use New or SetSequence.
type RNG struct {
	state uint64
	inc   uint64
}

// New creates a generator on the given stream, with the seed derived by
// mixing the sequence index.
func New(sequenceIndex uint64) *RNG {
	r := &RNG{}
	r.SetSequence(sequenceIndex)
	return r
}

// NewWithSeed creates a generator on the given stream with an explicit seed.
func NewWithSeed(sequenceIndex, seed uint64) *RNG {
	r := &RNG{}
	r.SetSequenceSeed(sequenceIndex, seed)
	return r
}

// Default returns a generator with the reference PCG32 initial state.
func Default() *RNG {
	return &RNG{state: defaultState, inc: defaultStream}
}

// SetSequence resets the generator to the start of the given stream,
// seeding with MixBits(sequenceIndex).
func (r *RNG) SetSequence(sequenceIndex uint64) {
	r.SetSequenceSeed(sequenceIndex, MixBits(sequenceIndex))
}

// SetSequenceSeed resets the generator to the start of the given stream
// with an explicit seed. The increment is always forced odd.
func (r *RNG) SetSequenceSeed(sequenceIndex, seed uint64) {
	r.state = 0
	r.inc = (sequenceIndex << 1) | 1
	r.Uint32()
	r.state += seed
	r.Uint32()
}

// Uint32 returns the next 32-bit output (PCG-XSH-RR).
func (r *RNG) Uint32() uint32 {
	oldState := r.state
	r.state = oldState*pcg32Mult + r.inc
	xorShifted := uint32(((oldState >> 18) ^ oldState) >> 27)
	rot := uint32(oldState >> 59)
	return (xorShifted >> rot) | (xorShifted << ((-rot) & 31))
}

// Uint64 returns the next 64 bits, composed from two 32-bit outputs.
func (r *RNG) Uint64() uint64 {
	v0 := uint64(r.Uint32())
	v1 := uint64(r.Uint32())
	return v0<<32 | v1
}

// Int32 returns a uniformly distributed int32.
func (r *RNG) Int32() int32 { return int32(r.Uint32()) }

// Int64 returns a uniformly distributed int64.
func (r *RNG) Int64() int64 { return int64(r.Uint64()) }

// Uint32n returns a uniformly distributed value in [0, b) without modulo
// bias: draws below the rejection threshold (2^32 - b) mod b are retried.
func (r *RNG) Uint32n(b uint32) uint32 {
	threshold := -b % b
	for {
		v := r.Uint32()
		if v >= threshold {
			return v % b
		}
	}
}

// Uint64n returns a uniformly distributed value in [0, b) without modulo
// bias.
func (r *RNG) Uint64n(b uint64) uint64 {
	threshold := -b % b
	for {
		v := r.Uint64()
		if v >= threshold {
			return v % b
		}
	}
}

// Float32 returns a uniform float32 in [0, 1), clamped strictly below 1.
func (r *RNG) Float32() float32 {
	return min(OneMinusEpsilonFloat32, float32(r.Uint32())*0x1p-32)
}

// Float64 returns a uniform float64 in [0, 1), clamped strictly below 1.
func (r *RNG) Float64() float64 {
	return min(OneMinusEpsilon, float64(r.Uint64())*0x1p-64)
}

// Advance jumps the generator delta steps forward in O(log delta) using
// LCG composition by squaring. A negative delta is interpreted as the
// two's-complement forward jump of 2^64 - |delta| steps, which lands the
// generator |delta| steps back.
func (r *RNG) Advance(delta int64) {
	curMult, curPlus := uint64(pcg32Mult), r.inc
	accMult, accPlus := uint64(1), uint64(0)
	d := uint64(delta)
	for d > 0 {
		if d&1 != 0 {
			accMult *= curMult
			accPlus = accPlus*curMult + curPlus
		}
		curPlus = (curMult + 1) * curPlus
		curMult *= curMult
		d >>= 1
	}
	r.state = accMult*r.state + accPlus
}

// Sub returns the number of forward steps from other's state to r's state.
// Both generators must be on the same stream; calling Sub across streams is
// a programming error and panics.
func (r *RNG) Sub(other *RNG) int64 {
	if r.inc != other.inc {
		panic(fmt.Sprintf("rng: Sub across streams (inc %#x vs %#x)", r.inc, other.inc))
	}
	curMult, curPlus := uint64(pcg32Mult), r.inc
	curState := other.state
	theBit, distance := uint64(1), uint64(0)
	for r.state != curState {
		if (r.state & theBit) != (curState & theBit) {
			curState = curState*curMult + curPlus
			distance |= theBit
		}
		theBit <<= 1
		curPlus = (curMult + 1) * curPlus
		curMult *= curMult
	}
	return int64(distance)
}

// Clone returns an independent copy at the same position on the same stream.
func (r *RNG) Clone() *RNG {
	c := *r
	return &c
}

// String reports the internal state for diagnostics.
func (r *RNG) String() string {
	return fmt.Sprintf("RNG{state: %#x, inc: %#x}", r.state, r.inc)
}

// Shuffle randomly permutes count blocks of nDimensions consecutive
// elements of samp, using draws from rng. The block structure keeps
// multi-dimensional sample vectors intact while decorrelating their order.
func Shuffle[T any](samp []T, count, nDimensions int, rng *RNG) {
	for i := 0; i < count; i++ {
		other := i + int(rng.Uint32n(uint32(count-i)))
		for j := 0; j < nDimensions; j++ {
			samp[nDimensions*i+j], samp[nDimensions*other+j] =
				samp[nDimensions*other+j], samp[nDimensions*i+j]
		}
	}
}
