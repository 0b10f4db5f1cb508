package bsdf

import (
	"math"

	"github.com/avlen/go-bidir-renderer/pkg/core"
)

// Fresnel computes the reflected fraction for a given incidence cosine
type Fresnel interface {
	Evaluate(cosThetaI float64) core.Vec3
}

// SchlickWeight is the (1-cosθ)⁵ interpolation weight of the Schlick
// approximation
func SchlickWeight(cosTheta float64) float64 {
	m := clamp(1-cosTheta, 0, 1)
	return m * m * m * m * m
}

// FrSchlick evaluates the Schlick approximation with an RGB reflectance at
// normal incidence
func FrSchlick(r0 core.Vec3, cosTheta float64) core.Vec3 {
	return r0.Lerp(core.White, SchlickWeight(cosTheta))
}

// SchlickR0FromEta returns the reflectance at normal incidence of a
// dielectric with relative index of refraction eta
func SchlickR0FromEta(eta float64) float64 {
	return (eta - 1) * (eta - 1) / ((eta + 1) * (eta + 1))
}

// FresnelDielectric is the exact unpolarized Fresnel reflectance for a
// dielectric interface. A negative cosThetaI means the ray arrives from the
// transmitted side and the indices are swapped.
func FresnelDielectric(cosThetaI, etaI, etaT float64) float64 {
	cosThetaI = clamp(cosThetaI, -1, 1)
	if cosThetaI < 0 {
		etaI, etaT = etaT, etaI
		cosThetaI = -cosThetaI
	}

	sinThetaI := math.Sqrt(math.Max(0, 1-cosThetaI*cosThetaI))
	sinThetaT := etaI / etaT * sinThetaI
	if sinThetaT >= 1 {
		return 1 // total internal reflection
	}
	cosThetaT := math.Sqrt(math.Max(0, 1-sinThetaT*sinThetaT))

	rParallel := (etaT*cosThetaI - etaI*cosThetaT) / (etaT*cosThetaI + etaI*cosThetaT)
	rPerpendicular := (etaI*cosThetaI - etaT*cosThetaT) / (etaI*cosThetaI + etaT*cosThetaT)
	return (rParallel*rParallel + rPerpendicular*rPerpendicular) / 2
}

// FresnelConstant always reflects the given fraction, used for purely
// metallic lobes where the base color already encodes the response
type FresnelConstant struct {
	Value core.Vec3
}

func (f FresnelConstant) Evaluate(float64) core.Vec3 { return f.Value }

// DisneyFresnel blends the exact dielectric response with a tinted Schlick
// metallic response according to the metallic parameter. R0 is the tinted
// reflectance at normal incidence.
type DisneyFresnel struct {
	R0       core.Vec3
	Metallic float64
	Eta      float64
}

func (f DisneyFresnel) Evaluate(cosThetaI float64) core.Vec3 {
	dielectric := core.White.Multiply(FresnelDielectric(cosThetaI, 1, f.Eta))
	metallic := FrSchlick(f.R0, cosThetaI)
	return dielectric.Lerp(metallic, f.Metallic)
}
