package sampling

import "github.com/df07/go-render-sampling/pkg/core"

// Distribution2D samples proportionally to a piecewise-constant 2D
// function, stored row-major. Sampling first picks a row by its integral,
// then a column within that row.
type Distribution2D struct {
	conditional []*Distribution1D // one per row, over u
	marginal    *Distribution1D   // over v, weighted by row integrals
}

// NewDistribution2D builds a distribution from nu*nv weights in row-major
// order (rows of nu values).
func NewDistribution2D(f []float64, nu, nv int) *Distribution2D {
	d := &Distribution2D{conditional: make([]*Distribution1D, nv)}
	marginalFunc := make([]float64, nv)
	for v := 0; v < nv; v++ {
		d.conditional[v] = NewDistribution1D(f[v*nu : (v+1)*nu])
		marginalFunc[v] = d.conditional[v].FuncInt
	}
	d.marginal = NewDistribution1D(marginalFunc)
	return d
}

// SampleContinuous maps a uniform sample in [0,1)^2 to a point in [0,1)^2
// with density proportional to the 2D function, returning the point and
// its PDF.
func (d *Distribution2D) SampleContinuous(u core.Vec2) (core.Vec2, float64) {
	y, pdfY, v := d.marginal.SampleContinuous(u.Y)
	x, pdfX, _ := d.conditional[v].SampleContinuous(u.X)
	return core.Vec2{X: x, Y: y}, pdfX * pdfY
}

// PDF returns the value of the sampling density at p.
func (d *Distribution2D) PDF(p core.Vec2) float64 {
	nu := d.conditional[0].Count()
	nv := len(d.conditional)
	iu := clampInt(int(p.X*float64(nu)), 0, nu-1)
	iv := clampInt(int(p.Y*float64(nv)), 0, nv-1)
	if d.marginal.FuncInt == 0 {
		return 0
	}
	return d.conditional[iv].Func[iu] / d.marginal.FuncInt
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
