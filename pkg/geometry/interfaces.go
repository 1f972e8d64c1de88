// Package geometry provides the shapes the renderer intersects rays
// against. Shading is intentionally minimal: shapes carry a diffuse albedo
// and an emission color directly, since material systems live outside this
// module.
package geometry

import (
	"github.com/df07/go-render-sampling/pkg/core"
)

// Surface describes the appearance of a shape at a hit point
type Surface struct {
	Albedo   core.Vec3
	Emission core.Vec3
}

// HitRecord contains information about a ray-shape intersection
type HitRecord struct {
	T         float64
	Point     core.Vec3
	Normal    core.Vec3
	FrontFace bool
	Surface   Surface
}

// SetFaceNormal sets the normal and front face flag based on ray direction
func (h *HitRecord) SetFaceNormal(ray core.Ray, outwardNormal core.Vec3) {
	h.FrontFace = ray.Direction.Dot(outwardNormal) < 0
	if h.FrontFace {
		h.Normal = outwardNormal
	} else {
		h.Normal = outwardNormal.Negate()
	}
}

// Shape is the interface for all geometric objects
type Shape interface {
	Hit(ray core.Ray, tMin, tMax float64) (*HitRecord, bool)
}
