package geometry

import (
	"math"

	"github.com/avlen/go-bidir-renderer/pkg/core"
)

// Sphere is an analytic sphere, a single primitive
type Sphere struct {
	Center   core.Vec3
	Radius   float64
	Material core.Material

	id int
}

func NewSphere(center core.Vec3, radius float64, mat core.Material) *Sphere {
	return &Sphere{Center: center, Radius: radius, Material: mat}
}

func (s *Sphere) SetID(id int) { s.id = id }
func (s *Sphere) ID() int      { return s.id }

func (s *Sphere) NumPrims() int { return 1 }

func (s *Sphere) PrimBounds(int) Aabb {
	r := core.NewVec3(s.Radius, s.Radius, s.Radius)
	bounds := NewAabb(s.Center.Subtract(r))
	bounds.GrowPoint(s.Center.Add(r))
	return bounds
}

// TotalArea returns the surface area of the sphere
func (s *Sphere) TotalArea() float64 {
	return 4 * math.Pi * s.Radius * s.Radius
}

func (s *Sphere) pointAt(pos core.Vec3) core.SurfacePoint {
	normal := pos.Subtract(s.Center).Normalize()
	return core.SurfacePoint{
		Position:      pos,
		Normal:        normal,
		ShadingNormal: normal,
		UV:            core.FromUniformSphere(normal),
		MeshID:        s.id,
		ErrorOffset:   1e-5 * (1 + pos.Length()),
		Material:      s.Material,
	}
}

// SampleArea draws a uniform point on the sphere with density 1/TotalArea
func (s *Sphere) SampleArea(u core.Vec2) (core.SurfacePoint, float64) {
	dir := core.ToUniformSphere(u).Direction
	point := s.pointAt(s.Center.Add(dir.Multiply(s.Radius)))
	return point, 1 / s.TotalArea()
}

// SampleAreaInverse maps a sphere point back to its primary sample
func (s *Sphere) SampleAreaInverse(point *core.SurfacePoint) core.Vec2 {
	return core.FromUniformSphere(point.Position.Subtract(s.Center).Normalize())
}

// IntersectPrim implements Shape
func (s *Sphere) IntersectPrim(_ int, ray core.Ray, maxDist float64) (core.SurfacePoint, bool) {
	oc := ray.Origin.Subtract(s.Center)
	a := ray.Direction.LengthSquared()
	halfB := oc.Dot(ray.Direction)
	c := oc.LengthSquared() - s.Radius*s.Radius

	discriminant := halfB*halfB - a*c
	if discriminant < 0 {
		return core.SurfacePoint{}, false
	}
	sqrtD := math.Sqrt(discriminant)

	minDist := ray.MinDist
	if minDist == 0 {
		minDist = 1e-9
	}

	t := (-halfB - sqrtD) / a
	if t < minDist || t > maxDist {
		t = (-halfB + sqrtD) / a
		if t < minDist || t > maxDist {
			return core.SurfacePoint{}, false
		}
	}

	point := s.pointAt(ray.At(t))
	point.Distance = t
	return point, true
}
