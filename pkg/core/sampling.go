package core

import "math"

// DirectionSample is a sampled direction with its solid-angle pdf
type DirectionSample struct {
	Direction Vec3
	Pdf       float64
}

// ToConcentricDisc maps the unit square to the unit disc with the concentric
// (Shirley-Chiu) warp, which is area preserving and avoids rejection sampling
func ToConcentricDisc(u Vec2) Vec2 {
	offset := Vec2{2*u.X - 1, 2*u.Y - 1}
	if offset.X == 0 && offset.Y == 0 {
		return Vec2{}
	}

	var r, theta float64
	if math.Abs(offset.X) > math.Abs(offset.Y) {
		r = offset.X
		theta = math.Pi / 4 * (offset.Y / offset.X)
	} else {
		r = offset.Y
		theta = math.Pi/2 - math.Pi/4*(offset.X/offset.Y)
	}
	return Vec2{r * math.Cos(theta), r * math.Sin(theta)}
}

// FromConcentricDisc inverts ToConcentricDisc, mapping a point on the unit
// disc back to its primary sample in the unit square
func FromConcentricDisc(p Vec2) Vec2 {
	r := math.Hypot(p.X, p.Y)
	phi := math.Atan2(p.Y, p.X)
	if phi < -math.Pi/4 {
		phi += 2 * math.Pi // wrap into [-π/4, 7π/4)
	}

	var x, y float64
	switch {
	case phi < math.Pi/4:
		x = r
		y = phi * x * 4 / math.Pi
	case phi < 3*math.Pi/4:
		y = r
		x = (math.Pi/2 - phi) * y * 4 / math.Pi
	case phi < 5*math.Pi/4:
		x = -r
		y = (phi - math.Pi) * x * 4 / math.Pi
	default:
		y = -r
		x = (3*math.Pi/2 - phi) * y * 4 / math.Pi
	}
	return Vec2{(x + 1) / 2, (y + 1) / 2}
}

// ToCosHemisphere warps a primary sample to a direction on the positive
// hemisphere (shading space, normal on +z) with density cosθ/π
func ToCosHemisphere(u Vec2) DirectionSample {
	disc := ToConcentricDisc(u)
	z := math.Sqrt(math.Max(0, 1-disc.X*disc.X-disc.Y*disc.Y))
	return DirectionSample{
		Direction: Vec3{disc.X, disc.Y, z},
		Pdf:       z / math.Pi,
	}
}

// FromCosHemisphere inverts ToCosHemisphere. Boundary directions with
// vanishing pdf still map to valid primary samples.
func FromCosHemisphere(dir Vec3) Vec2 {
	return FromConcentricDisc(Vec2{dir.X, dir.Y})
}

// CosHemispherePdf returns the density of ToCosHemisphere for a shading-space
// direction on the positive hemisphere
func CosHemispherePdf(dir Vec3) float64 {
	if dir.Z <= 0 {
		return 0
	}
	return dir.Z / math.Pi
}

// ToUniformSphere warps a primary sample to a uniform direction on the unit
// sphere with density 1/4π
func ToUniformSphere(u Vec2) DirectionSample {
	z := 1 - 2*u.X
	r := math.Sqrt(math.Max(0, 1-z*z))
	phi := 2 * math.Pi * u.Y
	return DirectionSample{
		Direction: Vec3{r * math.Cos(phi), r * math.Sin(phi), z},
		Pdf:       1 / (4 * math.Pi),
	}
}

// FromUniformSphere inverts ToUniformSphere
func FromUniformSphere(dir Vec3) Vec2 {
	u := (1 - dir.Z) / 2
	phi := math.Atan2(dir.Y, dir.X)
	if phi < 0 {
		phi += 2 * math.Pi
	}
	return Vec2{u, phi / (2 * math.Pi)}
}

// SurfaceAreaToSolidAngle computes the Jacobian that converts a pdf over the
// surface area at `to` into a pdf over solid angle measured at `from`:
//
//	J = |cos θ_to| / ‖to − from‖²
//
// where θ_to is the angle between the connecting segment and the normal at
// `to`. Multiplying a solid-angle pdf at `from` by J yields the surface-area
// pdf at `to`, and dividing goes the other way.
func SurfaceAreaToSolidAngle(from, to *SurfacePoint) float64 {
	return GeometryJacobian(from.Position, to.Position, to.Normal)
}

// GeometryJacobian is SurfaceAreaToSolidAngle for raw positions; the normal
// belongs to the destination point
func GeometryJacobian(fromPos, toPos, toNormal Vec3) float64 {
	diff := fromPos.Subtract(toPos)
	distSqr := diff.LengthSquared()
	if distSqr == 0 {
		return 0
	}
	cos := diff.Multiply(1 / math.Sqrt(distSqr)).Dot(toNormal)
	return math.Abs(cos) / distSqr
}
