// Package scene assembles shapes and lights into a renderable scene and
// owns the buffer caches used while building it.
package scene

import (
	"math"

	"github.com/df07/go-render-sampling/pkg/core"
	"github.com/df07/go-render-sampling/pkg/geometry"
	"github.com/df07/go-render-sampling/pkg/sampling"
)

// Scene holds everything the renderer intersects and samples. The light
// distribution weights emissive spheres by power so bright lights are
// sampled more often.
type Scene struct {
	Shapes     []geometry.Shape
	Lights     []*geometry.Sphere
	Background core.Vec3

	// Env, when set, replaces the constant background and is importance
	// sampled for direct lighting.
	Env *sampling.EnvironmentMap

	Caches    *geometry.MeshCaches
	lightDist *sampling.Distribution1D
}

// New creates an empty scene with fresh mesh caches.
func New(background core.Vec3) *Scene {
	return &Scene{
		Background: background,
		Caches:     geometry.NewMeshCaches(),
	}
}

// Add appends a shape, registering it as a light if it emits.
func (s *Scene) Add(shape geometry.Shape) {
	s.Shapes = append(s.Shapes, shape)
	if sph, ok := shape.(*geometry.Sphere); ok && sph.Power() > 0 {
		s.Lights = append(s.Lights, sph)
		s.lightDist = nil
	}
}

// Hit finds the closest intersection across all shapes
func (s *Scene) Hit(ray core.Ray, tMin, tMax float64) (*geometry.HitRecord, bool) {
	var closest *geometry.HitRecord
	closestT := tMax
	for _, shape := range s.Shapes {
		if hit, ok := shape.Hit(ray, tMin, closestT); ok {
			closest = hit
			closestT = hit.T
		}
	}
	return closest, closest != nil
}

// LightDistribution returns the power-weighted distribution over lights,
// building it lazily. Nil when the scene has no lights.
func (s *Scene) LightDistribution() *sampling.Distribution1D {
	if len(s.Lights) == 0 {
		return nil
	}
	if s.lightDist == nil {
		powers := make([]float64, len(s.Lights))
		for i, l := range s.Lights {
			powers[i] = l.Power()
		}
		s.lightDist = sampling.NewDistribution1D(powers)
	}
	return s.lightDist
}

// SampleLight picks a light with probability proportional to its power.
// The remapped variate is returned for reuse by the caller's next
// sampling decision.
func (s *Scene) SampleLight(u float64) (light *geometry.Sphere, pdf, uRemapped float64) {
	dist := s.LightDistribution()
	if dist == nil {
		return nil, 0, u
	}
	i, pdf, uRemapped := dist.SampleDiscrete(u)
	return s.Lights[i], pdf, uRemapped
}

// Clear releases the scene's cached mesh buffers. Call after rendering,
// when no worker still holds the scene.
func (s *Scene) Clear() {
	s.Caches.Clear()
}

// BuildDefault constructs the demo scene: a ground plane mesh, a few
// spheres with instanced mesh pedestals, and two emissive spheres of
// different power.
func BuildDefault() *Scene {
	s := New(core.NewVec3(0.05, 0.06, 0.08))

	ground := []core.Vec3{
		core.NewVec3(-50, 0, -50),
		core.NewVec3(50, 0, -50),
		core.NewVec3(50, 0, 50),
		core.NewVec3(-50, 0, 50),
	}
	groundIdx := []int32{0, 1, 2, 0, 2, 3}
	s.Add(geometry.NewTriangleMesh(s.Caches, ground, nil, groundIdx,
		geometry.Surface{Albedo: core.NewVec3(0.6, 0.6, 0.6)}))

	s.Add(geometry.NewSphere(core.NewVec3(-1.2, 1, -4), 1.0,
		geometry.Surface{Albedo: core.NewVec3(0.8, 0.3, 0.3)}))
	s.Add(geometry.NewSphere(core.NewVec3(1.2, 1, -4), 1.0,
		geometry.Surface{Albedo: core.NewVec3(0.3, 0.3, 0.8)}))

	// One pedestal box per sphere; instances share the cached buffers.
	box := geometry.NewTriangleMesh(s.Caches, boxVertices, nil, boxIndices,
		geometry.Surface{Albedo: core.NewVec3(0.4, 0.4, 0.35)})
	s.Add(box.Instance(core.NewVec3(-1.2, -0.25, -4)))
	s.Add(box.Instance(core.NewVec3(1.2, -0.25, -4)))

	s.Add(geometry.NewSphere(core.NewVec3(0, 6, -2), 0.7,
		geometry.Surface{Emission: core.NewVec3(12, 11, 10)}))
	s.Add(geometry.NewSphere(core.NewVec3(-4, 2, -1), 0.2,
		geometry.Surface{Emission: core.NewVec3(4, 1, 1)}))

	return s
}

var boxVertices = func() []core.Vec3 {
	var v []core.Vec3
	for i := 0; i < 8; i++ {
		v = append(v, core.NewVec3(
			math.Copysign(0.5, float64(i&1)-0.5),
			math.Copysign(0.5, float64(i&2)-0.5),
			math.Copysign(0.5, float64(i&4)-0.5),
		))
	}
	return v
}()

var boxIndices = []int32{
	0, 1, 3, 0, 3, 2,
	4, 6, 7, 4, 7, 5,
	0, 4, 5, 0, 5, 1,
	2, 3, 7, 2, 7, 6,
	0, 2, 6, 0, 6, 4,
	1, 5, 7, 1, 7, 3,
}
