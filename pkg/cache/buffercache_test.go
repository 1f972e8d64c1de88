package cache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/df07/go-render-sampling/pkg/core"
)

func TestBufferId_SizeAndEquality(t *testing.T) {
	a := []uint32{1, 2, 3, 4}
	b := []uint32{1, 2, 3, 4}
	c := []uint32{1, 2, 3, 5}

	idA := MakeBufferId(a)
	idB := MakeBufferId(b)
	idC := MakeBufferId(c)

	assert.Equal(t, 16, idA.Size)
	assert.Equal(t, idA, idB)
	assert.NotEqual(t, idA, idC)
}

func TestBufferCache_Dedup(t *testing.T) {
	c := NewVerifiedBufferCache[int32]()

	first := c.LookupOrAdd([]int32{10, 20, 30})
	second := c.LookupOrAdd([]int32{10, 20, 30})
	other := c.LookupOrAdd([]int32{10, 20, 31})

	require.Len(t, first, 3)
	// Identical contents share one stored copy.
	assert.Same(t, &first[0], &second[0])
	assert.NotSame(t, &first[0], &other[0])

	stats := c.Stats()
	assert.Equal(t, uint64(3), stats.Lookups)
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, 2, stats.Buffers)
	assert.Equal(t, 24, stats.BytesUsed)
	assert.Equal(t, uint64(12), stats.RedundantBytes)
}

func TestBufferCache_ReturnsPrivateCopy(t *testing.T) {
	c := NewBufferCache[float64]()

	src := []float64{1, 2, 3}
	stored := c.LookupOrAdd(src)
	src[0] = 99

	// Mutating the caller's slice must not affect the cached copy.
	assert.Equal(t, []float64{1, 2, 3}, stored)
	again := c.LookupOrAdd([]float64{1, 2, 3})
	assert.Same(t, &stored[0], &again[0])
}

func TestBufferCache_StructElements(t *testing.T) {
	c := NewVerifiedBufferCache[core.Vec3]()

	tri := []core.Vec3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}}
	a := c.LookupOrAdd(tri)
	b := c.LookupOrAdd([]core.Vec3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}})

	assert.Same(t, &a[0], &b[0])
	assert.Equal(t, 3*3*8, c.BytesUsed())
}

func TestBufferCache_ConcurrentLookups(t *testing.T) {
	c := NewVerifiedBufferCache[uint32]()

	buf := make([]uint32, 256)
	for i := range buf {
		buf[i] = uint32(i * i)
	}

	const goroutines = 16
	results := make([][]uint32, goroutines)
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			local := make([]uint32, len(buf))
			copy(local, buf)
			results[g] = c.LookupOrAdd(local)
		}(g)
	}
	wg.Wait()

	// Every goroutine ends up with the same stored buffer.
	for g := 1; g < goroutines; g++ {
		assert.Same(t, &results[0][0], &results[g][0])
	}
	stats := c.Stats()
	assert.Equal(t, uint64(goroutines), stats.Lookups)
	assert.Equal(t, uint64(goroutines-1), stats.Hits)
	assert.Equal(t, 1, stats.Buffers)
}

func TestBufferCache_Clear(t *testing.T) {
	c := NewBufferCache[uint32]()
	c.LookupOrAdd([]uint32{1, 2, 3})
	require.NotZero(t, c.BytesUsed())

	c.Clear()
	assert.Zero(t, c.BytesUsed())
	assert.Zero(t, c.Stats().Buffers)
}
