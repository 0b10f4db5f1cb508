package lights

import (
	"math"

	"github.com/avlen/go-bidir-renderer/pkg/core"
)

// environmentBase holds the scene bounding sphere every infinite light needs
// to place emitted ray origins
type environmentBase struct {
	center core.Vec3
	radius float64
}

// Prepare implements part of core.Background
func (e *environmentBase) Prepare(center core.Vec3, radius float64) {
	e.center = center
	e.radius = math.Max(radius, 1e-3)
}

// sampleEnvironmentRay builds an emission ray for a direction sampled toward
// the background: the ray travels the opposite way and starts on a disc
// tangent to the bounding sphere
func (e *environmentBase) sampleEnvironmentRay(toSky core.DirectionSample, v core.Vec2) (core.Ray, float64) {
	dir := toSky.Direction.Negate()
	frame := core.NewFrame(dir)
	disc := core.ToConcentricDisc(v).Multiply(e.radius)
	origin := e.center.
		Subtract(dir.Multiply(e.radius)).
		Add(frame.Tangent.Multiply(disc.X)).
		Add(frame.Binormal.Multiply(disc.Y))

	pdf := toSky.Pdf / (math.Pi * e.radius * e.radius)
	return core.NewRay(origin, dir), pdf
}

// environmentRayPdf is the joint density sampleEnvironmentRay would have for
// a ray travelling in the given direction, with the direction density given
func (e *environmentBase) environmentRayPdf(dirPdf float64) float64 {
	return dirPdf / (math.Pi * e.radius * e.radius)
}

// UniformEnvironment surrounds the scene with constant radiance from every
// direction
type UniformEnvironment struct {
	environmentBase
	Radiance core.Vec3
}

func NewUniformEnvironment(radiance core.Vec3) *UniformEnvironment {
	return &UniformEnvironment{Radiance: radiance}
}

func (e *UniformEnvironment) EmittedRadiance(core.Vec3) core.Vec3 {
	return e.Radiance
}

func (e *UniformEnvironment) SampleDirection(u core.Vec2) (core.DirectionSample, core.Vec3) {
	sample := core.ToUniformSphere(u)
	return sample, e.Radiance.Multiply(1 / sample.Pdf)
}

func (e *UniformEnvironment) DirectionPdf(core.Vec3) float64 {
	return 1 / (4 * math.Pi)
}

func (e *UniformEnvironment) SampleRay(u, v core.Vec2) (core.Ray, float64, core.Vec3) {
	toSky := core.ToUniformSphere(u)
	ray, pdf := e.sampleEnvironmentRay(toSky, v)
	return ray, pdf, e.Radiance.Multiply(1 / pdf)
}

func (e *UniformEnvironment) RayPdf(_ core.Vec3, direction core.Vec3) float64 {
	return e.environmentRayPdf(e.DirectionPdf(direction.Negate()))
}

// GradientEnvironment blends between a horizon and a zenith color by the
// elevation of the queried direction, a cheap stand-in for a sky
type GradientEnvironment struct {
	environmentBase
	Zenith  core.Vec3
	Horizon core.Vec3
	Up      core.Vec3
}

func NewGradientEnvironment(zenith, horizon core.Vec3) *GradientEnvironment {
	return &GradientEnvironment{Zenith: zenith, Horizon: horizon, Up: core.NewVec3(0, 1, 0)}
}

func (e *GradientEnvironment) EmittedRadiance(direction core.Vec3) core.Vec3 {
	t := direction.Normalize().Dot(e.Up)*0.5 + 0.5
	return e.Horizon.Lerp(e.Zenith, math.Max(0, math.Min(1, t)))
}

func (e *GradientEnvironment) SampleDirection(u core.Vec2) (core.DirectionSample, core.Vec3) {
	sample := core.ToUniformSphere(u)
	return sample, e.EmittedRadiance(sample.Direction).Multiply(1 / sample.Pdf)
}

func (e *GradientEnvironment) DirectionPdf(core.Vec3) float64 {
	return 1 / (4 * math.Pi)
}

func (e *GradientEnvironment) SampleRay(u, v core.Vec2) (core.Ray, float64, core.Vec3) {
	toSky := core.ToUniformSphere(u)
	ray, pdf := e.sampleEnvironmentRay(toSky, v)
	return ray, pdf, e.EmittedRadiance(toSky.Direction).Multiply(1 / pdf)
}

func (e *GradientEnvironment) RayPdf(_ core.Vec3, direction core.Vec3) float64 {
	return e.environmentRayPdf(e.DirectionPdf(direction.Negate()))
}
