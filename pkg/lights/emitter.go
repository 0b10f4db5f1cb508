// Package lights implements the light sources of the renderer: diffuse area
// emitters attached to scene geometry and infinite environment backgrounds.
// Every sampling routine comes with its density and, where the bidirectional
// integrators need it, with an exact inverse mapping back to primary samples.
package lights

import (
	"github.com/avlen/go-bidir-renderer/pkg/core"
)

// SurfaceShape is the part of a scene shape an area emitter needs: uniform
// surface sampling with an inverse, and the shape identity used to map hits
// back to their emitter
type SurfaceShape interface {
	SampleArea(u core.Vec2) (core.SurfacePoint, float64)
	SampleAreaInverse(point *core.SurfacePoint) core.Vec2
	TotalArea() float64
	ID() int
}

// RaySample is a ray leaving an emitter. Pdf is the joint density of origin
// (surface area) and direction (solid angle); Weight is the emitted radiance
// times cosine divided by that density.
type RaySample struct {
	Origin    core.SurfacePoint
	Direction core.Vec3
	Pdf       float64
	Weight    core.Vec3
}

// Emitter is a finite light source bound to scene geometry
type Emitter interface {
	// ShapeID identifies the geometry this emitter is attached to
	ShapeID() int

	// EmittedRadiance returns the radiance leaving a surface point in the
	// given world direction
	EmittedRadiance(point *core.SurfacePoint, direction core.Vec3) core.Vec3

	// SampleArea draws a point on the emitting surface with its area density
	SampleArea(u core.Vec2) (core.SurfacePoint, float64)

	// SampleAreaInverse maps an emitter point back to the primary sample
	// that produces it
	SampleAreaInverse(point *core.SurfacePoint) core.Vec2

	// PdfArea returns the density of SampleArea at a point on the surface
	PdfArea(point *core.SurfacePoint) float64

	// SampleRay draws a full emission ray: a surface point and an outgoing
	// direction
	SampleRay(u, v core.Vec2) RaySample

	// SampleRayInverse maps an emission ray back to the primary samples that
	// produce it
	SampleRayInverse(origin *core.SurfacePoint, direction core.Vec3) (posSample, dirSample core.Vec2)

	// PdfRay returns the joint density of SampleRay for a ray leaving the
	// given point in the given direction
	PdfRay(origin *core.SurfacePoint, direction core.Vec3) float64

	// TotalPower returns the emitted power, used to weight light selection
	TotalPower() float64
}
