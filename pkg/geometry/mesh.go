// Package geometry provides the surface representations of the renderer: an
// indexed triangle mesh with uniform area sampling, an analytic sphere, and a
// bounding volume hierarchy that serves as the ray intersection backend.
package geometry

import (
	"math"

	"github.com/avlen/go-bidir-renderer/pkg/core"
)

// Shape is a collection of primitives the BVH can intersect
type Shape interface {
	NumPrims() int
	PrimBounds(prim int) Aabb
	IntersectPrim(prim int, ray core.Ray, maxDist float64) (core.SurfacePoint, bool)
	SetID(id int)
	ID() int
}

// Mesh is an indexed triangle mesh. Shading normals and UVs are optional;
// when absent the geometric normal and the barycentric coordinates are used.
type Mesh struct {
	Vertices []core.Vec3
	Normals  []core.Vec3
	UVs      []core.Vec2
	Indices  []int
	Material core.Material

	id        int
	triAreas  []float64
	areaCdf   []float64
	totalArea float64
}

// NewMesh creates a mesh and precomputes the triangle area distribution.
// Indices must hold three entries per triangle.
func NewMesh(vertices []core.Vec3, indices []int, mat core.Material) *Mesh {
	m := &Mesh{Vertices: vertices, Indices: indices, Material: mat}
	numTris := len(indices) / 3
	m.triAreas = make([]float64, numTris)
	m.areaCdf = make([]float64, numTris)
	for t := 0; t < numTris; t++ {
		a, b, c := m.triangle(t)
		m.triAreas[t] = b.Subtract(a).Cross(c.Subtract(a)).Length() / 2
		m.totalArea += m.triAreas[t]
		m.areaCdf[t] = m.totalArea
	}
	return m
}

// NewQuad creates a two-triangle rectangle from a corner point and two edge
// vectors
func NewQuad(corner, edge1, edge2 core.Vec3, mat core.Material) *Mesh {
	vertices := []core.Vec3{
		corner,
		corner.Add(edge1),
		corner.Add(edge1).Add(edge2),
		corner.Add(edge2),
	}
	uvs := []core.Vec2{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}
	m := NewMesh(vertices, []int{0, 1, 2, 0, 2, 3}, mat)
	m.UVs = uvs
	return m
}

func (m *Mesh) SetID(id int) { m.id = id }
func (m *Mesh) ID() int      { return m.id }

func (m *Mesh) NumPrims() int { return len(m.Indices) / 3 }

// TotalArea returns the summed surface area of all triangles
func (m *Mesh) TotalArea() float64 { return m.totalArea }

func (m *Mesh) triangle(prim int) (a, b, c core.Vec3) {
	a = m.Vertices[m.Indices[3*prim]]
	b = m.Vertices[m.Indices[3*prim+1]]
	c = m.Vertices[m.Indices[3*prim+2]]
	return
}

// GeometricNormal returns the unit face normal of a triangle
func (m *Mesh) GeometricNormal(prim int) core.Vec3 {
	a, b, c := m.triangle(prim)
	return b.Subtract(a).Cross(c.Subtract(a)).Normalize()
}

func (m *Mesh) PrimBounds(prim int) Aabb {
	a, b, c := m.triangle(prim)
	bounds := NewAabb(a)
	bounds.GrowPoint(b)
	bounds.GrowPoint(c)
	return bounds
}

// pointAt builds the surface point for barycentric coordinates (b1, b2) on a
// triangle, interpolating shading normals and UVs when present
func (m *Mesh) pointAt(prim int, b1, b2 float64) core.SurfacePoint {
	a, b, c := m.triangle(prim)
	b0 := 1 - b1 - b2
	pos := a.Multiply(b0).Add(b.Multiply(b1)).Add(c.Multiply(b2))

	normal := m.GeometricNormal(prim)
	shading := normal
	if len(m.Normals) > 0 {
		i0, i1, i2 := m.Indices[3*prim], m.Indices[3*prim+1], m.Indices[3*prim+2]
		shading = m.Normals[i0].Multiply(b0).
			Add(m.Normals[i1].Multiply(b1)).
			Add(m.Normals[i2].Multiply(b2)).Normalize()
	}

	uv := core.Vec2{X: b1, Y: b2}
	if len(m.UVs) > 0 {
		i0, i1, i2 := m.Indices[3*prim], m.Indices[3*prim+1], m.Indices[3*prim+2]
		uv = m.UVs[i0].Multiply(b0).
			Add(m.UVs[i1].Multiply(b1)).
			Add(m.UVs[i2].Multiply(b2))
	}

	return core.SurfacePoint{
		Position:      pos,
		Normal:        normal,
		ShadingNormal: shading,
		UV:            uv,
		PrimID:        prim,
		MeshID:        m.id,
		ErrorOffset:   1e-5 * (1 + pos.Length()),
		Material:      m.Material,
	}
}

// SampleArea draws a uniformly distributed point on the mesh surface with
// density 1/TotalArea
func (m *Mesh) SampleArea(u core.Vec2) (core.SurfacePoint, float64) {
	if m.totalArea == 0 {
		return core.SurfacePoint{}, 0
	}

	// pick a triangle proportional to area, rescaling the sample to the
	// selected CDF interval
	target := u.X * m.totalArea
	prim := 0
	for prim < len(m.areaCdf)-1 && m.areaCdf[prim] <= target {
		prim++
	}
	lo := 0.0
	if prim > 0 {
		lo = m.areaCdf[prim-1]
	}
	rescaled := (target - lo) / m.triAreas[prim]
	rescaled = math.Max(0, math.Min(rescaled, 1))

	// square-root warp gives a uniform density inside the triangle
	sqrtU := math.Sqrt(rescaled)
	b1 := 1 - sqrtU
	b2 := u.Y * sqrtU

	return m.pointAt(prim, b1, b2), 1 / m.totalArea
}

// SampleAreaInverse maps a point on the mesh back to the primary sample that
// SampleArea would need to produce it
func (m *Mesh) SampleAreaInverse(point *core.SurfacePoint) core.Vec2 {
	prim := point.PrimID
	b1, b2 := m.barycentrics(prim, point.Position)

	sqrtU := 1 - b1
	var y float64
	if sqrtU > 0 {
		y = b2 / sqrtU
	}
	rescaled := sqrtU * sqrtU

	lo := 0.0
	if prim > 0 {
		lo = m.areaCdf[prim-1]
	}
	x := (lo + rescaled*m.triAreas[prim]) / m.totalArea
	return core.Vec2{X: math.Max(0, math.Min(x, 1)), Y: math.Max(0, math.Min(y, 1))}
}

// barycentrics projects a position onto a triangle and returns (b1, b2)
func (m *Mesh) barycentrics(prim int, pos core.Vec3) (float64, float64) {
	a, b, c := m.triangle(prim)
	e1 := b.Subtract(a)
	e2 := c.Subtract(a)
	d := pos.Subtract(a)

	d11 := e1.Dot(e1)
	d12 := e1.Dot(e2)
	d22 := e2.Dot(e2)
	dp1 := d.Dot(e1)
	dp2 := d.Dot(e2)
	denom := d11*d22 - d12*d12
	if denom == 0 {
		return 0, 0
	}
	b1 := (d22*dp1 - d12*dp2) / denom
	b2 := (d11*dp2 - d12*dp1) / denom
	return b1, b2
}

// IntersectPrim implements Shape with the Möller-Trumbore test
func (m *Mesh) IntersectPrim(prim int, ray core.Ray, maxDist float64) (core.SurfacePoint, bool) {
	a, b, c := m.triangle(prim)
	e1 := b.Subtract(a)
	e2 := c.Subtract(a)

	pvec := ray.Direction.Cross(e2)
	det := e1.Dot(pvec)
	if math.Abs(det) < 1e-12 {
		return core.SurfacePoint{}, false
	}
	invDet := 1 / det

	tvec := ray.Origin.Subtract(a)
	b1 := tvec.Dot(pvec) * invDet
	if b1 < 0 || b1 > 1 {
		return core.SurfacePoint{}, false
	}

	qvec := tvec.Cross(e1)
	b2 := ray.Direction.Dot(qvec) * invDet
	if b2 < 0 || b1+b2 > 1 {
		return core.SurfacePoint{}, false
	}

	t := e2.Dot(qvec) * invDet
	minDist := ray.MinDist
	if minDist == 0 {
		minDist = 1e-9
	}
	if t < minDist || t > maxDist {
		return core.SurfacePoint{}, false
	}

	point := m.pointAt(prim, b1, b2)
	point.Distance = t
	return point, true
}
