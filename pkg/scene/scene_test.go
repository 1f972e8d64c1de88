package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/df07/go-render-sampling/pkg/core"
	"github.com/df07/go-render-sampling/pkg/geometry"
)

func TestScene_HitClosest(t *testing.T) {
	s := New(core.Vec3{})
	s.Add(geometry.NewSphere(core.NewVec3(0, 0, -10), 1, geometry.Surface{Albedo: core.NewVec3(1, 0, 0)}))
	s.Add(geometry.NewSphere(core.NewVec3(0, 0, -5), 1, geometry.Surface{Albedo: core.NewVec3(0, 1, 0)}))

	hit, ok := s.Hit(core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, -1)), 0.001, 100)
	require.True(t, ok)
	assert.InDelta(t, 4.0, hit.T, 1e-9)
	assert.Equal(t, core.NewVec3(0, 1, 0), hit.Surface.Albedo)
}

func TestScene_LightDistributionWeightsByPower(t *testing.T) {
	s := New(core.Vec3{})
	s.Add(geometry.NewSphere(core.NewVec3(0, 5, 0), 1, geometry.Surface{Emission: core.NewVec3(1, 1, 1)}))
	s.Add(geometry.NewSphere(core.NewVec3(5, 5, 0), 1, geometry.Surface{Emission: core.NewVec3(3, 3, 3)}))
	require.Len(t, s.Lights, 2)

	dist := s.LightDistribution()
	require.NotNil(t, dist)
	assert.InDelta(t, 0.25, dist.DiscretePDF(0), 1e-9)
	assert.InDelta(t, 0.75, dist.DiscretePDF(1), 1e-9)

	light, pdf, _ := s.SampleLight(0.9)
	assert.Same(t, s.Lights[1], light)
	assert.InDelta(t, 0.75, pdf, 1e-9)
}

func TestScene_NoLights(t *testing.T) {
	s := New(core.Vec3{})
	s.Add(geometry.NewSphere(core.NewVec3(0, 0, -5), 1, geometry.Surface{Albedo: core.NewVec3(1, 1, 1)}))

	assert.Nil(t, s.LightDistribution())
	light, pdf, u := s.SampleLight(0.3)
	assert.Nil(t, light)
	assert.Zero(t, pdf)
	assert.Equal(t, 0.3, u)
}

func TestBuildDefault_SharesInstancedBuffers(t *testing.T) {
	s := BuildDefault()
	defer s.Clear()

	require.NotEmpty(t, s.Lights)

	// The two pedestal instances reuse the same cached box buffers.
	stats := s.Caches.Points.Stats()
	assert.GreaterOrEqual(t, stats.Lookups, uint64(2))
	assert.Equal(t, stats.Lookups, uint64(stats.Buffers)+stats.Hits)

	// Something in front of the camera.
	_, ok := s.Hit(core.NewRay(core.NewVec3(0, 1, 2), core.NewVec3(0, 0, -1)), 0.001, 1000)
	assert.True(t, ok)
}
