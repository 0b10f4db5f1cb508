package bsdf

import (
	"math"

	"github.com/avlen/go-bidir-renderer/pkg/core"
)

// cosineSample draws an incident direction from the cosine-weighted
// hemisphere on the same side as out
func cosineSample(out core.Vec3, u core.Vec2) (core.Vec3, bool) {
	if out.Z == 0 {
		return core.Vec3{}, false
	}
	sample := core.ToCosHemisphere(u)
	if sample.Pdf == 0 {
		return core.Vec3{}, false
	}
	in := sample.Direction
	if out.Z < 0 {
		in.Z = -in.Z
	}
	return in, true
}

// cosinePdf returns the forward and reverse cosine-hemisphere densities for
// a reflected direction pair
func cosinePdf(out, in core.Vec3) (float64, float64) {
	if !core.SameHemisphere(out, in) {
		return 0, 0
	}
	return core.AbsCosTheta(in) / math.Pi, core.AbsCosTheta(out) / math.Pi
}

// DisneyDiffuse is the Disney base diffuse lobe, a Lambertian term attenuated
// at grazing angles by paired Schlick weights
type DisneyDiffuse struct {
	Reflectance core.Vec3
}

func (d DisneyDiffuse) Evaluate(out, in core.Vec3, _ bool) core.Vec3 {
	if !core.SameHemisphere(out, in) {
		return core.Black
	}
	fo := SchlickWeight(core.AbsCosTheta(out))
	fi := SchlickWeight(core.AbsCosTheta(in))
	return d.Reflectance.Multiply((1 - fo/2) * (1 - fi/2) / math.Pi)
}

func (d DisneyDiffuse) Sample(out core.Vec3, _ bool, u core.Vec2) (core.Vec3, bool) {
	return cosineSample(out, u)
}

func (d DisneyDiffuse) Pdf(out, in core.Vec3, _ bool) (float64, float64) {
	return cosinePdf(out, in)
}

// DisneyRetro is the retro-reflection lobe that re-adds energy near grazing
// incidence for rough surfaces
type DisneyRetro struct {
	Reflectance core.Vec3
	Roughness   float64
}

func (r DisneyRetro) Evaluate(out, in core.Vec3, _ bool) core.Vec3 {
	if !core.SameHemisphere(out, in) {
		return core.Black
	}
	half := in.Add(out)
	if half.IsBlack() {
		return core.Black
	}
	half = half.Normalize()
	cosThetaD := in.Dot(half)

	fo := SchlickWeight(core.AbsCosTheta(out))
	fi := SchlickWeight(core.AbsCosTheta(in))
	rr := 2 * r.Roughness * cosThetaD * cosThetaD
	return r.Reflectance.Multiply(rr * (fo + fi + fo*fi*(rr-1)) / math.Pi)
}

func (r DisneyRetro) Sample(out core.Vec3, _ bool, u core.Vec2) (core.Vec3, bool) {
	return cosineSample(out, u)
}

func (r DisneyRetro) Pdf(out, in core.Vec3, _ bool) (float64, float64) {
	return cosinePdf(out, in)
}

// DiffuseTransmission scatters into the cosine-weighted hemisphere on the
// opposite side of the surface, used for thin translucent materials
type DiffuseTransmission struct {
	Transmittance core.Vec3
}

func (d DiffuseTransmission) Evaluate(out, in core.Vec3, _ bool) core.Vec3 {
	if core.SameHemisphere(out, in) {
		return core.Black
	}
	return d.Transmittance.Multiply(1 / math.Pi)
}

func (d DiffuseTransmission) Sample(out core.Vec3, _ bool, u core.Vec2) (core.Vec3, bool) {
	in, ok := cosineSample(out, u)
	if !ok {
		return core.Vec3{}, false
	}
	in.Z = -in.Z
	return in, true
}

func (d DiffuseTransmission) Pdf(out, in core.Vec3, _ bool) (float64, float64) {
	if core.SameHemisphere(out, in) {
		return 0, 0
	}
	return core.AbsCosTheta(in) / math.Pi, core.AbsCosTheta(out) / math.Pi
}
