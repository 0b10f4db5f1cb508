package core

// SurfacePoint is an intersected (or sampled) surface location. The shading
// normal and geometric normal are unit length; the geometric normal faces
// outward. ErrorOffset is a small distance used to displace spawned ray
// origins along the normal so the surface cannot shadow itself.
type SurfacePoint struct {
	Position      Vec3
	Normal        Vec3 // geometric normal
	ShadingNormal Vec3
	UV            Vec2
	PrimID        int
	MeshID        int
	Distance      float64 // distance from the ray origin that found this point
	ErrorOffset   float64
	Material      Material
}

// OffsetPosition returns the ray origin to use when leaving this point in the
// given direction, displaced along the geometric normal
func (p *SurfacePoint) OffsetPosition(dir Vec3) Vec3 {
	offset := p.ErrorOffset
	if dir.Dot(p.Normal) < 0 {
		offset = -offset
	}
	return p.Position.Add(p.Normal.Multiply(offset))
}

// SpawnRay creates a ray leaving the surface in the given direction with a
// strictly positive minimum distance
func (p *SurfacePoint) SpawnRay(dir Vec3) Ray {
	return Ray{
		Origin:    p.OffsetPosition(dir),
		Direction: dir,
		MinDist:   p.ErrorOffset,
	}
}

// BsdfSample is the result of importance sampling a material. Weight is the
// BSDF value times cosine over the forward pdf, ready to multiply into the
// path throughput. PdfReverse is the density of sampling the outgoing
// direction given the sampled one, required for bidirectional MIS.
type BsdfSample struct {
	Direction  Vec3
	Pdf        float64
	PdfReverse float64
	Weight     Vec3
}

// Material is the shading interface seen by the integrators. All directions
// are world space and unit length, pointing away from the surface.
// isOnLightSubpath selects importance transport for non-reciprocal effects.
type Material interface {
	// Evaluate returns the BSDF value for the direction pair
	Evaluate(hit *SurfacePoint, outDir, inDir Vec3, isOnLightSubpath bool) Vec3

	// EvaluateWithCosine returns the BSDF value multiplied by the absolute
	// shading cosine of inDir
	EvaluateWithCosine(hit *SurfacePoint, outDir, inDir Vec3, isOnLightSubpath bool) Vec3

	// Sample importance-samples an incident direction for the given outgoing
	// one. Returns false on sampling failure (zero pdf, TIR, grazing).
	Sample(hit *SurfacePoint, outDir Vec3, isOnLightSubpath bool, u Vec2) (BsdfSample, bool)

	// Pdf returns the forward density of sampling inDir given outDir and the
	// reverse density of sampling outDir given inDir, both in solid angle
	Pdf(hit *SurfacePoint, outDir, inDir Vec3, isOnLightSubpath bool) (pdfForward, pdfReverse float64)
}
