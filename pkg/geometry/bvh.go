package geometry

import (
	"math"
	"sort"

	"github.com/avlen/go-bidir-renderer/pkg/core"
)

// Aabb is an axis-aligned bounding box
type Aabb struct {
	Min, Max core.Vec3
}

// NewAabb creates a box containing a single point
func NewAabb(p core.Vec3) Aabb {
	return Aabb{Min: p, Max: p}
}

// GrowPoint expands the box to contain a point
func (b *Aabb) GrowPoint(p core.Vec3) {
	b.Min = core.Vec3{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y), Z: math.Min(b.Min.Z, p.Z)}
	b.Max = core.Vec3{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y), Z: math.Max(b.Max.Z, p.Z)}
}

// GrowBox expands the box to contain another box
func (b *Aabb) GrowBox(other Aabb) {
	b.GrowPoint(other.Min)
	b.GrowPoint(other.Max)
}

// Center returns the midpoint of the box
func (b Aabb) Center() core.Vec3 {
	return b.Min.Add(b.Max).Multiply(0.5)
}

// Diagonal returns the extent of the box
func (b Aabb) Diagonal() core.Vec3 {
	return b.Max.Subtract(b.Min)
}

// Hit performs a slab test against a ray, returning whether the box is
// intersected within (tMin, tMax)
func (b Aabb) Hit(ray core.Ray, tMin, tMax float64) bool {
	origin := [3]float64{ray.Origin.X, ray.Origin.Y, ray.Origin.Z}
	dir := [3]float64{ray.Direction.X, ray.Direction.Y, ray.Direction.Z}
	lo := [3]float64{b.Min.X, b.Min.Y, b.Min.Z}
	hi := [3]float64{b.Max.X, b.Max.Y, b.Max.Z}

	for axis := 0; axis < 3; axis++ {
		invD := 1 / dir[axis]
		t0 := (lo[axis] - origin[axis]) * invD
		t1 := (hi[axis] - origin[axis]) * invD
		if invD < 0 {
			t0, t1 = t1, t0
		}
		tMin = math.Max(tMin, t0)
		tMax = math.Min(tMax, t1)
		if tMax < tMin {
			return false
		}
	}
	return true
}

// primRef identifies one primitive of one shape
type primRef struct {
	shape  int
	prim   int
	bounds Aabb
}

type bvhNode struct {
	bounds      Aabb
	left, right int // child node indices, -1 for leaves
	firstPrim   int
	numPrims    int
}

// Bvh is a median-split bounding volume hierarchy over a set of shapes. It
// implements core.Intersector.
type Bvh struct {
	shapes []Shape
	prims  []primRef
	nodes  []bvhNode
}

const bvhLeafSize = 4

// NewBvh builds a hierarchy over the primitives of all shapes
func NewBvh(shapes []Shape) *Bvh {
	b := &Bvh{shapes: shapes}
	for si, s := range shapes {
		for p := 0; p < s.NumPrims(); p++ {
			b.prims = append(b.prims, primRef{shape: si, prim: p, bounds: s.PrimBounds(p)})
		}
	}
	if len(b.prims) > 0 {
		b.build(0, len(b.prims))
	}
	return b
}

// Bounds returns the bounding box of the whole hierarchy
func (b *Bvh) Bounds() Aabb {
	if len(b.nodes) == 0 {
		return Aabb{}
	}
	return b.nodes[0].bounds
}

// build creates a node for prims[start:end) and returns its index
func (b *Bvh) build(start, end int) int {
	bounds := b.prims[start].bounds
	for i := start + 1; i < end; i++ {
		bounds.GrowBox(b.prims[i].bounds)
	}

	nodeIdx := len(b.nodes)
	b.nodes = append(b.nodes, bvhNode{bounds: bounds, left: -1, right: -1})

	if end-start <= bvhLeafSize {
		b.nodes[nodeIdx].firstPrim = start
		b.nodes[nodeIdx].numPrims = end - start
		return nodeIdx
	}

	// split at the median along the widest axis
	diag := bounds.Diagonal()
	axis := 0
	if diag.Y > diag.X && diag.Y >= diag.Z {
		axis = 1
	} else if diag.Z > diag.X && diag.Z > diag.Y {
		axis = 2
	}
	segment := b.prims[start:end]
	sort.Slice(segment, func(i, j int) bool {
		return axisValue(segment[i].bounds.Center(), axis) < axisValue(segment[j].bounds.Center(), axis)
	})

	mid := start + (end-start)/2
	left := b.build(start, mid)
	right := b.build(mid, end)
	b.nodes[nodeIdx].left = left
	b.nodes[nodeIdx].right = right
	return nodeIdx
}

func axisValue(v core.Vec3, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// Trace implements core.Intersector
func (b *Bvh) Trace(ray core.Ray) (core.SurfacePoint, bool) {
	return b.closestHit(ray, math.Inf(1))
}

func (b *Bvh) closestHit(ray core.Ray, maxDist float64) (core.SurfacePoint, bool) {
	if len(b.nodes) == 0 {
		return core.SurfacePoint{}, false
	}

	var closest core.SurfacePoint
	found := false

	stack := make([]int, 0, 64)
	stack = append(stack, 0)
	for len(stack) > 0 {
		nodeIdx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node := &b.nodes[nodeIdx]

		if !node.bounds.Hit(ray, 0, maxDist) {
			continue
		}
		if node.left < 0 {
			for i := node.firstPrim; i < node.firstPrim+node.numPrims; i++ {
				ref := b.prims[i]
				hit, ok := b.shapes[ref.shape].IntersectPrim(ref.prim, ray, maxDist)
				if ok {
					closest = hit
					maxDist = hit.Distance
					found = true
				}
			}
			continue
		}
		stack = append(stack, node.left, node.right)
	}
	return closest, found
}

// anyHit reports whether anything lies along the ray closer than maxDist
func (b *Bvh) anyHit(ray core.Ray, maxDist float64) bool {
	if len(b.nodes) == 0 {
		return false
	}
	stack := make([]int, 0, 64)
	stack = append(stack, 0)
	for len(stack) > 0 {
		nodeIdx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node := &b.nodes[nodeIdx]

		if !node.bounds.Hit(ray, 0, maxDist) {
			continue
		}
		if node.left < 0 {
			for i := node.firstPrim; i < node.firstPrim+node.numPrims; i++ {
				ref := b.prims[i]
				if _, ok := b.shapes[ref.shape].IntersectPrim(ref.prim, ray, maxDist); ok {
					return true
				}
			}
			continue
		}
		stack = append(stack, node.left, node.right)
	}
	return false
}

// IsOccluded implements core.Intersector. The segment is shortened at both
// ends to avoid self-intersection with the surfaces it connects.
func (b *Bvh) IsOccluded(from *core.SurfacePoint, target core.Vec3) bool {
	delta := target.Subtract(from.Position)
	dist := delta.Length()
	if dist == 0 {
		return false
	}
	dir := delta.Multiply(1 / dist)
	ray := from.SpawnRay(dir)
	maxDist := dist*(1-1e-4) - from.ErrorOffset
	if maxDist <= ray.MinDist {
		return false
	}
	return b.anyHit(ray, maxDist)
}

// LeavesScene implements core.Intersector
func (b *Bvh) LeavesScene(from *core.SurfacePoint, direction core.Vec3) bool {
	ray := from.SpawnRay(direction)
	return !b.anyHit(ray, math.Inf(1))
}
