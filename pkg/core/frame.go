package core

import "math"

// Frame is a right-handed orthonormal shading basis with the normal on +z.
// Directions expressed in this frame are "shading space": cosθ is simply the
// z component, which keeps the BSDF lobe math free of dot products.
type Frame struct {
	Tangent  Vec3
	Binormal Vec3
	Normal   Vec3
}

// ComputeBasisVectors builds a tangent and binormal for a unit normal using
// the branchless construction of Duff et al. The resulting (tangent,
// binormal, normal) triple is orthonormal and right-handed; continuity across
// normals is not guaranteed.
func ComputeBasisVectors(normal Vec3) (tangent, binormal Vec3) {
	s := math.Copysign(1.0, normal.Z)
	a := -1.0 / (s + normal.Z)
	b := normal.X * normal.Y * a
	tangent = Vec3{1.0 + s*normal.X*normal.X*a, s * b, -s * normal.X}
	binormal = Vec3{b, s + normal.Y*normal.Y*a, -normal.Y}
	return tangent, binormal
}

// NewFrame creates a shading frame around a unit normal
func NewFrame(normal Vec3) Frame {
	t, b := ComputeBasisVectors(normal)
	return Frame{Tangent: t, Binormal: b, Normal: normal}
}

// WorldToShading transforms a world-space direction into the frame.
// The transform is an isometry: lengths are preserved.
func (f Frame) WorldToShading(v Vec3) Vec3 {
	return Vec3{v.Dot(f.Tangent), v.Dot(f.Binormal), v.Dot(f.Normal)}
}

// ShadingToWorld transforms a shading-space direction back to world space
func (f Frame) ShadingToWorld(v Vec3) Vec3 {
	return f.Tangent.Multiply(v.X).Add(f.Binormal.Multiply(v.Y)).Add(f.Normal.Multiply(v.Z))
}

// Shading-space trigonometry. All helpers assume unit-length directions with
// the surface normal along +z.

func CosTheta(v Vec3) float64    { return v.Z }
func Cos2Theta(v Vec3) float64   { return v.Z * v.Z }
func AbsCosTheta(v Vec3) float64 { return math.Abs(v.Z) }

func Sin2Theta(v Vec3) float64 { return math.Max(0, 1-Cos2Theta(v)) }
func SinTheta(v Vec3) float64  { return math.Sqrt(Sin2Theta(v)) }

func TanTheta(v Vec3) float64  { return SinTheta(v) / CosTheta(v) }
func Tan2Theta(v Vec3) float64 { return Sin2Theta(v) / Cos2Theta(v) }

func CosPhi(v Vec3) float64 {
	sinTheta := SinTheta(v)
	if sinTheta == 0 {
		return 1
	}
	return math.Max(-1, math.Min(1, v.X/sinTheta))
}

func SinPhi(v Vec3) float64 {
	sinTheta := SinTheta(v)
	if sinTheta == 0 {
		return 0
	}
	return math.Max(-1, math.Min(1, v.Y/sinTheta))
}

func Cos2Phi(v Vec3) float64 { c := CosPhi(v); return c * c }
func Sin2Phi(v Vec3) float64 { s := SinPhi(v); return s * s }

// SameHemisphere reports whether two shading-space directions lie on the same
// side of the surface
func SameHemisphere(a, b Vec3) bool {
	return a.Z*b.Z > 0
}
