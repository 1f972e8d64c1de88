// Package sampling provides piecewise-constant sampling distributions and
// geometric warping routines that map uniform samples onto directions and
// areas used by the renderer.
package sampling

import (
	"gonum.org/v1/gonum/floats"
)

// Distribution1D samples proportionally to a piecewise-constant function
// over [0,1). Used for picking lights by power and for importance sampling
// environment map rows.
type Distribution1D struct {
	Func    []float64 // function values, one per bucket
	CDF     []float64 // len(Func)+1 entries, CDF[0]=0, CDF[n]=1
	FuncInt float64   // average of Func over [0,1)
}

// NewDistribution1D builds a distribution from non-negative bucket weights.
// An all-zero function degenerates to a uniform CDF so sampling still
// works; the reported PDFs are zero in that case.
func NewDistribution1D(f []float64) *Distribution1D {
	n := len(f)
	d := &Distribution1D{
		Func: append([]float64(nil), f...),
		CDF:  make([]float64, n+1),
	}

	scaled := make([]float64, n)
	for i, v := range f {
		scaled[i] = v / float64(n)
	}
	floats.CumSum(d.CDF[1:], scaled)
	d.FuncInt = d.CDF[n]

	if d.FuncInt == 0 {
		for i := 1; i <= n; i++ {
			d.CDF[i] = float64(i) / float64(n)
		}
	} else {
		for i := 1; i <= n; i++ {
			d.CDF[i] /= d.FuncInt
		}
	}
	return d
}

// Count returns the number of buckets.
func (d *Distribution1D) Count() int { return len(d.Func) }

// SampleContinuous maps a uniform u to a point in [0,1) with density
// proportional to Func. It returns the sampled point, the value of the PDF
// there, and the index of the bucket the point fell in.
func (d *Distribution1D) SampleContinuous(u float64) (x, pdf float64, offset int) {
	offset = FindInterval(len(d.CDF), func(i int) bool { return d.CDF[i] <= u })

	du := u - d.CDF[offset]
	if denom := d.CDF[offset+1] - d.CDF[offset]; denom > 0 {
		du /= denom
	}
	if d.FuncInt > 0 {
		pdf = d.Func[offset] / d.FuncInt
	}
	x = (float64(offset) + du) / float64(d.Count())
	return x, pdf, offset
}

// SampleDiscrete picks a bucket with probability proportional to its
// weight. uRemapped is u rescaled to be uniform within the chosen bucket,
// so the caller can reuse it for a further sampling decision.
func (d *Distribution1D) SampleDiscrete(u float64) (offset int, pdf, uRemapped float64) {
	offset = FindInterval(len(d.CDF), func(i int) bool { return d.CDF[i] <= u })

	pdf = d.DiscretePDF(offset)
	uRemapped = u - d.CDF[offset]
	if denom := d.CDF[offset+1] - d.CDF[offset]; denom > 0 {
		uRemapped /= denom
	}
	return offset, pdf, uRemapped
}

// DiscretePDF returns the probability of SampleDiscrete choosing bucket i.
func (d *Distribution1D) DiscretePDF(i int) float64 {
	if d.FuncInt == 0 {
		return 0
	}
	return d.Func[i] / (d.FuncInt * float64(d.Count()))
}

// FindInterval locates the largest index i in [0,size-1) such that
// pred(i) is true, assuming pred is monotonically true-then-false over the
// range. The result is clamped to [0,size-2] so callers can always access
// i and i+1; with a CDF predicate this yields the bucket containing u,
// resolving boundary values to the higher bucket.
func FindInterval(size int, pred func(int) bool) int {
	first, length := 1, size-2
	for length > 0 {
		half := length >> 1
		middle := first + half
		if pred(middle) {
			first = middle + 1
			length -= half + 1
		} else {
			length = half
		}
	}
	i := first - 1
	if i < 0 {
		i = 0
	}
	if i > size-2 {
		i = size - 2
	}
	return i
}
