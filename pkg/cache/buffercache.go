// Package cache provides a content-addressed buffer cache used during
// scene construction. Meshes frequently repeat identical vertex, normal,
// UV, and index buffers (instanced or procedural geometry); the cache
// deduplicates them so each distinct buffer is stored once for the
// lifetime of the scene.
package cache

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
)

// BufferId identifies a buffer by the hash of its contents and its size in
// bytes. Two buffers are treated as equal when both fields match; the hash
// is effectively unique at production scale, and verify mode adds a full
// byte comparison as a safety net.
type BufferId struct {
	Hash uint64
	Size int
}

// String reports the id for diagnostics.
func (id BufferId) String() string {
	return fmt.Sprintf("[ BufferId hash: %#x size: %d ]", id.Hash, id.Size)
}

// MakeBufferId hashes the raw little-endian bytes of buf (FNV-1a).
// Element types must have a fixed binary size.
func MakeBufferId[T comparable](buf []T) BufferId {
	size := binary.Size(buf)
	if size < 0 {
		panic(fmt.Sprintf("cache: unhashable buffer element type %T", *new(T)))
	}
	h := fnv.New64a()
	if err := binary.Write(h, binary.LittleEndian, buf); err != nil {
		panic(fmt.Sprintf("cache: hashing buffer: %v", err))
	}
	return BufferId{Hash: h.Sum64(), Size: size}
}

// Stats is a point-in-time snapshot of cache activity.
type Stats struct {
	Lookups        uint64
	Hits           uint64
	Buffers        int
	BytesUsed      int
	RedundantBytes uint64 // bytes callers did not have to keep alive
}

// BufferCache deduplicates buffers of a single element type. It is safe
// for concurrent use: lookup and insert happen atomically under one lock,
// so two goroutines racing on the same content always end up sharing one
// stored copy. Calls are amortized against large buffer copies at scene
// load, so a single coarse mutex is sufficient.
type BufferCache[T comparable] struct {
	mu      sync.Mutex
	buffers map[BufferId][]T

	lookups        atomic.Uint64
	hits           atomic.Uint64
	redundantBytes atomic.Uint64

	verify bool
}

// NewBufferCache creates an empty cache.
func NewBufferCache[T comparable]() *BufferCache[T] {
	return &BufferCache[T]{buffers: make(map[BufferId][]T)}
}

// NewVerifiedBufferCache creates a cache that byte-compares every hit
// against the stored buffer and aborts on a hash collision. Intended for
// debug builds and tests; the check is linear in the buffer size.
func NewVerifiedBufferCache[T comparable]() *BufferCache[T] {
	c := NewBufferCache[T]()
	c.verify = true
	return c
}

// LookupOrAdd returns the cache's stable copy of buf, inserting a private
// copy on first sight. The returned slice is shared and must be treated
// as immutable; it stays valid until Clear.
func (c *BufferCache[T]) LookupOrAdd(buf []T) []T {
	id := MakeBufferId(buf)
	c.lookups.Add(1)

	c.mu.Lock()
	defer c.mu.Unlock()
	if stored, ok := c.buffers[id]; ok {
		if c.verify && !equalBuffers(stored, buf) {
			log.Fatal("buffer cache hash collision", "id", id)
		}
		c.hits.Add(1)
		c.redundantBytes.Add(uint64(id.Size))
		return stored
	}
	owned := make([]T, len(buf))
	copy(owned, buf)
	c.buffers[id] = owned
	return owned
}

// BytesUsed returns the total size of all stored buffers.
func (c *BufferCache[T]) BytesUsed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for id := range c.buffers {
		total += id.Size
	}
	return total
}

// Stats returns a snapshot of cache counters.
func (c *BufferCache[T]) Stats() Stats {
	c.mu.Lock()
	buffers := len(c.buffers)
	bytesUsed := 0
	for id := range c.buffers {
		bytesUsed += id.Size
	}
	c.mu.Unlock()
	return Stats{
		Lookups:        c.lookups.Load(),
		Hits:           c.hits.Load(),
		Buffers:        buffers,
		BytesUsed:      bytesUsed,
		RedundantBytes: c.redundantBytes.Load(),
	}
}

// Clear releases all stored buffers. The caller must guarantee no
// LookupOrAdd calls are in flight and no previously returned slices are
// still needed; this is tied to scene teardown.
func (c *BufferCache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buffers = make(map[BufferId][]T)
}

func equalBuffers[T comparable](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
