package lights

import (
	"math"

	"github.com/avlen/go-bidir-renderer/pkg/core"
)

// DiffuseArea is a one-sided area light with uniform radiance over its
// surface and a cosine emission profile. It emits into the hemisphere of the
// shading normal only.
type DiffuseArea struct {
	Shape    SurfaceShape
	Radiance core.Vec3
}

// NewDiffuseArea attaches a diffuse emitter to a shape
func NewDiffuseArea(shape SurfaceShape, radiance core.Vec3) *DiffuseArea {
	return &DiffuseArea{Shape: shape, Radiance: radiance}
}

func (e *DiffuseArea) ShapeID() int { return e.Shape.ID() }

// EmittedRadiance implements Emitter; back-facing directions see nothing
func (e *DiffuseArea) EmittedRadiance(point *core.SurfacePoint, direction core.Vec3) core.Vec3 {
	if direction.Dot(point.ShadingNormal) <= 0 {
		return core.Black
	}
	return e.Radiance
}

func (e *DiffuseArea) SampleArea(u core.Vec2) (core.SurfacePoint, float64) {
	return e.Shape.SampleArea(u)
}

func (e *DiffuseArea) SampleAreaInverse(point *core.SurfacePoint) core.Vec2 {
	return e.Shape.SampleAreaInverse(point)
}

func (e *DiffuseArea) PdfArea(*core.SurfacePoint) float64 {
	area := e.Shape.TotalArea()
	if area == 0 {
		return 0
	}
	return 1 / area
}

// SampleRay draws a surface point and a cosine-distributed direction in the
// hemisphere of its shading normal
func (e *DiffuseArea) SampleRay(u, v core.Vec2) RaySample {
	point, posPdf := e.Shape.SampleArea(u)
	if posPdf == 0 {
		return RaySample{}
	}

	frame := core.NewFrame(point.ShadingNormal)
	dirSample := core.ToCosHemisphere(v)
	if dirSample.Pdf == 0 {
		return RaySample{}
	}

	// radiance·cos / (posPdf·cos/π) leaves radiance·π/posPdf
	return RaySample{
		Origin:    point,
		Direction: frame.ShadingToWorld(dirSample.Direction),
		Pdf:       posPdf * dirSample.Pdf,
		Weight:    e.Radiance.Multiply(math.Pi / posPdf),
	}
}

func (e *DiffuseArea) SampleRayInverse(origin *core.SurfacePoint, direction core.Vec3) (core.Vec2, core.Vec2) {
	posSample := e.Shape.SampleAreaInverse(origin)
	frame := core.NewFrame(origin.ShadingNormal)
	dirSample := core.FromCosHemisphere(frame.WorldToShading(direction))
	return posSample, dirSample
}

func (e *DiffuseArea) PdfRay(origin *core.SurfacePoint, direction core.Vec3) float64 {
	cosTheta := direction.Dot(origin.ShadingNormal)
	if cosTheta <= 0 {
		return 0
	}
	return e.PdfArea(origin) * cosTheta / math.Pi
}

func (e *DiffuseArea) TotalPower() float64 {
	return e.Radiance.Luminance() * math.Pi * e.Shape.TotalArea()
}
