package geometry

import (
	"github.com/df07/go-render-sampling/pkg/cache"
	"github.com/df07/go-render-sampling/pkg/core"
)

// MeshCaches deduplicates the attribute buffers of all meshes built for a
// scene. Instanced geometry shares one stored copy of each distinct
// buffer; the caches live exactly as long as the scene they were built
// for.
type MeshCaches struct {
	Points  *cache.BufferCache[core.Vec3]
	Normals *cache.BufferCache[core.Vec3]
	Indices *cache.BufferCache[int32]
}

// NewMeshCaches creates empty caches for one scene build.
func NewMeshCaches() *MeshCaches {
	return &MeshCaches{
		Points:  cache.NewBufferCache[core.Vec3](),
		Normals: cache.NewBufferCache[core.Vec3](),
		Indices: cache.NewBufferCache[int32](),
	}
}

// Clear releases all cached buffers. Meshes built through the caches must
// not be used afterwards.
func (mc *MeshCaches) Clear() {
	mc.Points.Clear()
	mc.Normals.Clear()
	mc.Indices.Clear()
}

// TriangleMesh is an indexed triangle mesh. Its buffers are owned by the
// scene's MeshCaches and shared with any other mesh of identical content;
// instances of the same geometry differ only in their offset.
type TriangleMesh struct {
	vertices []core.Vec3
	normals  []core.Vec3 // optional, per vertex
	indices  []int32     // triples of vertex indices
	offset   core.Vec3
	surface  Surface
}

// NewTriangleMesh builds a mesh, routing the attribute buffers through the
// caches. normals may be nil for faceted shading.
func NewTriangleMesh(mc *MeshCaches, vertices, normals []core.Vec3, indices []int32, surface Surface) *TriangleMesh {
	m := &TriangleMesh{
		vertices: mc.Points.LookupOrAdd(vertices),
		indices:  mc.Indices.LookupOrAdd(indices),
		surface:  surface,
	}
	if normals != nil {
		m.normals = mc.Normals.LookupOrAdd(normals)
	}
	return m
}

// Instance creates a translated copy of the mesh sharing its buffers.
func (m *TriangleMesh) Instance(offset core.Vec3) *TriangleMesh {
	c := *m
	c.offset = m.offset.Add(offset)
	return &c
}

// TriangleCount returns the number of triangles in the mesh
func (m *TriangleMesh) TriangleCount() int {
	return len(m.indices) / 3
}

// Vertices exposes the shared vertex buffer. Treat as read-only.
func (m *TriangleMesh) Vertices() []core.Vec3 { return m.vertices }

// Hit tests the ray against every triangle and returns the closest hit
func (m *TriangleMesh) Hit(ray core.Ray, tMin, tMax float64) (*HitRecord, bool) {
	// Intersect in the mesh's local frame
	ray = core.NewRay(ray.Origin.Subtract(m.offset), ray.Direction)

	var closest *HitRecord
	closestT := tMax

	for tri := 0; tri < m.TriangleCount(); tri++ {
		i0 := m.indices[3*tri]
		i1 := m.indices[3*tri+1]
		i2 := m.indices[3*tri+2]
		hit, ok := m.hitTriangle(ray, tMin, closestT,
			m.vertices[i0], m.vertices[i1], m.vertices[i2], tri)
		if ok {
			closest = hit
			closestT = hit.T
		}
	}
	if closest != nil {
		closest.Point = closest.Point.Add(m.offset)
	}
	return closest, closest != nil
}

// hitTriangle applies the Möller-Trumbore intersection test
func (m *TriangleMesh) hitTriangle(ray core.Ray, tMin, tMax float64, v0, v1, v2 core.Vec3, tri int) (*HitRecord, bool) {
	const epsilon = 1e-9

	edge1 := v1.Subtract(v0)
	edge2 := v2.Subtract(v0)

	h := ray.Direction.Cross(edge2)
	a := edge1.Dot(h)
	if a > -epsilon && a < epsilon {
		return nil, false // ray parallel to triangle
	}

	f := 1.0 / a
	s := ray.Origin.Subtract(v0)
	u := f * s.Dot(h)
	if u < 0 || u > 1 {
		return nil, false
	}

	q := s.Cross(edge1)
	v := f * ray.Direction.Dot(q)
	if v < 0 || u+v > 1 {
		return nil, false
	}

	t := f * edge2.Dot(q)
	if t < tMin || t > tMax {
		return nil, false
	}

	hit := &HitRecord{
		T:       t,
		Point:   ray.At(t),
		Surface: m.surface,
	}
	normal := m.interpolateNormal(tri, u, v, edge1, edge2)
	hit.SetFaceNormal(ray, normal)
	return hit, true
}

// interpolateNormal blends vertex normals barycentrically, or falls back
// to the geometric normal when the mesh has none.
func (m *TriangleMesh) interpolateNormal(tri int, u, v float64, edge1, edge2 core.Vec3) core.Vec3 {
	if m.normals == nil {
		return edge1.Cross(edge2).Normalize()
	}
	n0 := m.normals[m.indices[3*tri]]
	n1 := m.normals[m.indices[3*tri+1]]
	n2 := m.normals[m.indices[3*tri+2]]
	w := 1 - u - v
	return n0.Multiply(w).Add(n1.Multiply(u)).Add(n2.Multiply(v)).Normalize()
}
