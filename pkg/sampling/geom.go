package sampling

import (
	"math"

	"github.com/df07/go-render-sampling/pkg/core"
)

// SampleCosineHemisphere generates a cosine-weighted direction in the
// hemisphere around normal
func SampleCosineHemisphere(normal core.Vec3, sample core.Vec2) core.Vec3 {
	a := 2.0 * math.Pi * sample.X
	z := sample.Y
	r := math.Sqrt(z)

	x := r * math.Cos(a)
	y := r * math.Sin(a)
	zCoord := math.Sqrt(1.0 - z)

	// Create local coordinate system around normal
	var nt core.Vec3
	if math.Abs(normal.X) > 0.1 {
		nt = core.NewVec3(0, 1, 0)
	} else {
		nt = core.NewVec3(1, 0, 0)
	}
	tangent := nt.Cross(normal).Normalize()
	bitangent := normal.Cross(tangent)

	return tangent.Multiply(x).Add(bitangent.Multiply(y)).Add(normal.Multiply(zCoord))
}

// SampleCone samples a direction uniformly within a cone around direction
func SampleCone(direction core.Vec3, cosTotalWidth float64, sample core.Vec2) core.Vec3 {
	w := direction
	var u core.Vec3
	if math.Abs(w.X) > 0.1 {
		u = core.NewVec3(0, 1, 0)
	} else {
		u = core.NewVec3(1, 0, 0)
	}
	u = u.Cross(w).Normalize()
	v := w.Cross(u)

	cosTheta := 1.0 - sample.X*(1.0-cosTotalWidth)
	sinTheta := math.Sqrt(math.Max(0, 1.0-cosTheta*cosTheta))
	phi := 2.0 * math.Pi * sample.Y

	x := sinTheta * math.Cos(phi)
	y := sinTheta * math.Sin(phi)
	z := cosTheta

	return u.Multiply(x).Add(v.Multiply(y)).Add(w.Multiply(z))
}

// SampleOnUnitSphere generates a uniform direction on the unit sphere
func SampleOnUnitSphere(sample core.Vec2) core.Vec3 {
	z := 1.0 - 2.0*sample.X // z ∈ [-1, 1]
	r := math.Sqrt(math.Max(0, 1.0-z*z))
	phi := 2.0 * math.Pi * sample.Y
	x := r * math.Cos(phi)
	y := r * math.Sin(phi)
	return core.NewVec3(x, y, z)
}

// SampleUniformSpherePDF returns the constant density of SampleOnUnitSphere
func SampleUniformSpherePDF() float64 {
	return 1.0 / (4.0 * math.Pi)
}

// SamplePointInUnitDisk generates a point in a unit disk using concentric
// mapping. This avoids rejection sampling by mapping a square uniformly to
// a disk, which preserves the stratification of low-discrepancy samples.
func SamplePointInUnitDisk(sample core.Vec2) core.Vec2 {
	// Map sample to [-1,1]² and handle degeneracy at the origin
	uOffset := core.NewVec2(2*sample.X-1, 2*sample.Y-1)
	if uOffset.X == 0 && uOffset.Y == 0 {
		return core.NewVec2(0, 0)
	}

	var theta, r float64
	if math.Abs(uOffset.X) > math.Abs(uOffset.Y) {
		r = uOffset.X
		theta = math.Pi / 4 * (uOffset.Y / uOffset.X)
	} else {
		r = uOffset.Y
		theta = math.Pi/2 - math.Pi/4*(uOffset.X/uOffset.Y)
	}

	return core.NewVec2(r*math.Cos(theta), r*math.Sin(theta))
}
