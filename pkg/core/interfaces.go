package core

// Logger is the minimal logging interface used throughout the renderer.
// log.Logger satisfies it directly.
type Logger interface {
	Printf(format string, args ...interface{})
}

// Intersector finds ray-scene intersections and answers visibility queries
type Intersector interface {
	// Trace returns the closest intersection along the ray, or false if the
	// ray leaves the scene
	Trace(ray Ray) (SurfacePoint, bool)

	// IsOccluded reports whether anything blocks the segment between a
	// surface point and a target position, respecting the error offsets at
	// both ends
	IsOccluded(from *SurfacePoint, target Vec3) bool

	// LeavesScene reports whether a ray starting at a surface point in the
	// given direction escapes without hitting anything
	LeavesScene(from *SurfacePoint, direction Vec3) bool
}

// CameraRaySample is a primary ray generated for a film position. Weight is
// the importance divided by PdfRay; for an ideal pinhole both cancel to one.
type CameraRaySample struct {
	Ray      Ray
	PdfRay   float64
	Weight   Vec3
	Position Vec3 // the aperture point the ray leaves from
}

// CameraResponseSample connects a scene point back to the camera. PdfEmit is
// the density of generating a ray from the camera towards the point, measured
// as surface area at the point. An invalid sample (point behind the camera or
// outside the film) has a zero pdf.
type CameraResponseSample struct {
	Pixel    Vec2
	PdfEmit  float64
	Weight   Vec3
	Position Vec3
}

// IsValid reports whether the response connects to a live pixel
func (s CameraResponseSample) IsValid() bool {
	return s.PdfEmit > 0
}

// Camera maps between film coordinates and world-space rays
type Camera interface {
	// GenerateRay creates a primary ray through a film position (continuous
	// pixel coordinates, origin top-left)
	GenerateRay(filmPos Vec2, rng *Rng) CameraRaySample

	// SampleResponse connects a world-space point to the camera, returning
	// the film position it projects to
	SampleResponse(point *SurfacePoint, rng *Rng) CameraResponseSample

	// SolidAngleToPixelJacobian converts a solid-angle density at the camera
	// towards the given world point into a density over pixel area
	SolidAngleToPixelJacobian(point Vec3) float64

	Width() int
	Height() int
}

// Background is an infinite light surrounding the scene. Direction pdfs are
// in solid angle; ray pdfs additionally include the density of choosing the
// ray origin on the scene bounding disc.
type Background interface {
	// SampleDirection samples a world-space direction towards the background
	// from a receiving point, returning the emitted radiance as weight
	// already divided by the pdf
	SampleDirection(u Vec2) (sample DirectionSample, weight Vec3)

	// DirectionPdf returns the solid-angle density of SampleDirection
	DirectionPdf(direction Vec3) float64

	// SampleRay emits a ray from the background into the scene. The returned
	// pdf is the joint density of origin and direction; the weight is the
	// radiance divided by that pdf.
	SampleRay(u, v Vec2) (ray Ray, pdf float64, weight Vec3)

	// RayPdf returns the joint density SampleRay would have for a ray
	// arriving at the given point from the given direction
	RayPdf(point Vec3, direction Vec3) float64

	// EmittedRadiance returns the radiance arriving from the background
	// along a direction
	EmittedRadiance(direction Vec3) Vec3

	// Prepare informs the background of the scene bounding sphere, needed to
	// place emitted ray origins
	Prepare(center Vec3, radius float64)
}
