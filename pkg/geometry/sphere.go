package geometry

import (
	"math"

	"github.com/df07/go-render-sampling/pkg/core"
)

// Sphere represents a sphere shape
type Sphere struct {
	Center  core.Vec3
	Radius  float64
	Surface Surface
}

// NewSphere creates a new sphere
func NewSphere(center core.Vec3, radius float64, surface Surface) *Sphere {
	return &Sphere{Center: center, Radius: radius, Surface: surface}
}

// Hit tests if a ray intersects with the sphere
func (s *Sphere) Hit(ray core.Ray, tMin, tMax float64) (*HitRecord, bool) {
	oc := ray.Origin.Subtract(s.Center)

	// Quadratic equation coefficients: at² + bt + c = 0
	a := ray.Direction.Dot(ray.Direction)
	halfB := oc.Dot(ray.Direction)
	c := oc.Dot(oc) - s.Radius*s.Radius

	discriminant := halfB*halfB - a*c
	if discriminant < 0 {
		return nil, false
	}
	sqrtD := math.Sqrt(discriminant)

	// Try the closer intersection point first
	root := (-halfB - sqrtD) / a
	if root < tMin || root > tMax {
		root = (-halfB + sqrtD) / a
		if root < tMin || root > tMax {
			return nil, false
		}
	}

	hit := &HitRecord{
		T:       root,
		Point:   ray.At(root),
		Surface: s.Surface,
	}
	outwardNormal := hit.Point.Subtract(s.Center).Multiply(1.0 / s.Radius)
	hit.SetFaceNormal(ray, outwardNormal)

	return hit, true
}

// Power approximates the total emitted power of the sphere, used to weight
// light selection.
func (s *Sphere) Power() float64 {
	return s.Surface.Emission.Luminance() * 4 * math.Pi * s.Radius * s.Radius
}
