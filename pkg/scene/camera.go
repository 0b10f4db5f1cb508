// Package scene ties geometry, materials, lights and the camera together and
// validates the result before rendering. It also provides the built-in scenes
// used by the integration tests.
package scene

import (
	"math"

	"github.com/avlen/go-bidir-renderer/pkg/core"
)

// PinholeCamera is an ideal perspective camera. Film coordinates are
// continuous pixel positions with the origin in the top-left corner.
type PinholeCamera struct {
	position core.Vec3
	right    core.Vec3
	up       core.Vec3
	forward  core.Vec3

	width, height int

	// distance from the pinhole to the film plane, in pixel units; fixes
	// the mapping between solid angle and pixel area
	filmDistance float64
}

// NewPinholeCamera creates a camera at a position looking at a target point.
// fovDegrees is the vertical field of view.
func NewPinholeCamera(position, lookAt, up core.Vec3, fovDegrees float64, width, height int) *PinholeCamera {
	forward := lookAt.Subtract(position).Normalize()
	right := forward.Cross(up).Normalize()
	trueUp := right.Cross(forward)

	fov := fovDegrees * math.Pi / 180
	return &PinholeCamera{
		position:     position,
		right:        right,
		up:           trueUp,
		forward:      forward,
		width:        width,
		height:       height,
		filmDistance: float64(height) / (2 * math.Tan(fov/2)),
	}
}

func (c *PinholeCamera) Width() int  { return c.width }
func (c *PinholeCamera) Height() int { return c.height }

// Position returns the pinhole location
func (c *PinholeCamera) Position() core.Vec3 { return c.position }

// GenerateRay implements core.Camera. A pinhole has no aperture to sample,
// so the rng is unused and the importance-to-pdf ratio is exactly one.
func (c *PinholeCamera) GenerateRay(filmPos core.Vec2, _ *core.Rng) core.CameraRaySample {
	x := filmPos.X - float64(c.width)/2
	y := float64(c.height)/2 - filmPos.Y

	dir := c.right.Multiply(x).
		Add(c.up.Multiply(y)).
		Add(c.forward.Multiply(c.filmDistance)).
		Normalize()

	return core.CameraRaySample{
		Ray:      core.NewRay(c.position, dir),
		PdfRay:   c.SolidAngleToPixelJacobian(c.position.Add(dir)),
		Weight:   core.White,
		Position: c.position,
	}
}

// SampleResponse implements core.Camera, projecting a world-space point onto
// the film. The returned pdf is the density of GenerateRay producing a ray
// through the point, measured as surface area at the point.
func (c *PinholeCamera) SampleResponse(point *core.SurfacePoint, _ *core.Rng) core.CameraResponseSample {
	v := point.Position.Subtract(c.position)
	z := v.Dot(c.forward)
	if z <= 0 {
		return core.CameraResponseSample{}
	}

	filmX := v.Dot(c.right)/z*c.filmDistance + float64(c.width)/2
	filmY := float64(c.height)/2 - v.Dot(c.up)/z*c.filmDistance
	if filmX < 0 || filmX >= float64(c.width) || filmY < 0 || filmY >= float64(c.height) {
		return core.CameraResponseSample{}
	}

	distSqr := v.LengthSquared()
	toPoint := v.Multiply(1 / math.Sqrt(distSqr))

	// vertices created on emitters or the background may carry no normal;
	// those connect with the full differential area facing the camera
	cosSurface := 1.0
	if !point.Normal.IsBlack() {
		cosSurface = toPoint.AbsDot(point.Normal)
	}

	pdf := c.SolidAngleToPixelJacobian(point.Position) * cosSurface / distSqr
	if pdf == 0 {
		return core.CameraResponseSample{}
	}

	return core.CameraResponseSample{
		Pixel:    core.Vec2{X: filmX, Y: filmY},
		PdfEmit:  pdf,
		Weight:   core.White.Multiply(pdf),
		Position: c.position,
	}
}

// SolidAngleToPixelJacobian implements core.Camera: the change of density
// from solid angle at the pinhole to film pixel area, d²/cos³θ
func (c *PinholeCamera) SolidAngleToPixelJacobian(point core.Vec3) float64 {
	dir := point.Subtract(c.position).Normalize()
	cosTheta := dir.Dot(c.forward)
	if cosTheta <= 0 {
		return 0
	}
	return c.filmDistance * c.filmDistance / (cosTheta * cosTheta * cosTheta)
}
