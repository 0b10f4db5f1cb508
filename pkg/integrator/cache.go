package integrator

import (
	"github.com/avlen/go-bidir-renderer/pkg/core"
)

// PathVertex is one cached light subpath vertex. Weight is the throughput
// from the emitter up to and including the arrival at this vertex, divided
// by all sampling densities along the way. The three pdf fields feed the
// bidirectional MIS weights:
//
//	PdfFromAncestor      density of sampling this vertex from its ancestor
//	PdfReverseAncestor   density of sampling the ancestor from this vertex
//	PdfNextEventAncestor density of next event estimation producing the
//	                     emitter origin; only set on depth-2 vertices
//
// Depth 0 is the point on the emitter (or the background origin); depth 1 is
// the first scene intersection.
type PathVertex struct {
	Point  core.SurfacePoint
	Weight core.Vec3

	PdfFromAncestor      float64
	PdfReverseAncestor   float64
	PdfNextEventAncestor float64

	AncestorID     int32
	Depth          int32
	FromBackground bool
}

// PathCache stores the vertices of all light subpaths of one iteration in a
// dense per-path layout, so concurrent writers never contend. Vertex IDs are
// global across paths.
type PathCache struct {
	vertices  []PathVertex
	lengths   []int32
	maxLength int
}

// NewPathCache reserves room for numPaths subpaths of at most maxLength
// vertices each
func NewPathCache(numPaths, maxLength int) *PathCache {
	return &PathCache{
		vertices:  make([]PathVertex, numPaths*maxLength),
		lengths:   make([]int32, numPaths),
		maxLength: maxLength,
	}
}

// Clear forgets all paths but keeps the storage
func (c *PathCache) Clear() {
	for i := range c.lengths {
		c.lengths[i] = 0
	}
}

// Add appends a vertex to a path and returns its global ID, or -1 if the
// path is full
func (c *PathCache) Add(pathIdx int, vertex PathVertex) int32 {
	n := c.lengths[pathIdx]
	if int(n) >= c.maxLength {
		return -1
	}
	id := int32(pathIdx*c.maxLength) + n
	c.vertices[id] = vertex
	c.lengths[pathIdx] = n + 1
	return id
}

// Vertex returns a cached vertex by its global ID
func (c *PathCache) Vertex(id int32) *PathVertex {
	return &c.vertices[id]
}

// Length returns the number of vertices cached for a path
func (c *PathCache) Length(pathIdx int) int {
	return int(c.lengths[pathIdx])
}

// NumPaths returns the path capacity of the cache
func (c *PathCache) NumPaths() int {
	return len(c.lengths)
}

// VertexSelector provides uniform random access to all cached vertices. It
// must be rebuilt after the paths of an iteration have been traced.
type VertexSelector struct {
	cache  *PathCache
	prefix []int32 // cumulative vertex counts per path
	total  int
}

// Build recomputes the prefix sums over the current cache contents
func (s *VertexSelector) Build(cache *PathCache) {
	s.cache = cache
	if cap(s.prefix) < len(cache.lengths) {
		s.prefix = make([]int32, len(cache.lengths))
	}
	s.prefix = s.prefix[:len(cache.lengths)]

	var sum int32
	for i, n := range cache.lengths {
		sum += n
		s.prefix[i] = sum
	}
	s.total = int(sum)
}

// Count returns the total number of cached vertices
func (s *VertexSelector) Count() int {
	return s.total
}

// FlatToID maps a flat index in [0, Count) to a global vertex ID
func (s *VertexSelector) FlatToID(flat int) int32 {
	// binary search for the path containing the flat index
	lo, hi := 0, len(s.prefix)-1
	for lo < hi {
		mid := (lo + hi) / 2
		if int(s.prefix[mid]) <= flat {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	offset := int32(flat)
	if lo > 0 {
		offset -= s.prefix[lo-1]
	}
	return int32(lo*s.cache.maxLength) + offset
}

// Select draws a uniformly distributed cached vertex
func (s *VertexSelector) Select(rng *core.Rng) *PathVertex {
	if s.total == 0 {
		return nil
	}
	return s.cache.Vertex(s.FlatToID(rng.NextInt(0, s.total)))
}
