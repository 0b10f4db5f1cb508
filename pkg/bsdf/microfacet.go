package bsdf

import (
	"math"

	"github.com/avlen/go-bidir-renderer/pkg/core"
)

// MicrofacetReflection is the Torrance-Sparrow reflection lobe with a GGX
// distribution and an arbitrary Fresnel term
type MicrofacetReflection struct {
	Tint         core.Vec3
	Distribution TrowbridgeReitz
	Fresnel      Fresnel
}

func (m MicrofacetReflection) Evaluate(out, in core.Vec3, _ bool) core.Vec3 {
	if !core.SameHemisphere(out, in) {
		return core.Black
	}
	cosO := core.AbsCosTheta(out)
	cosI := core.AbsCosTheta(in)
	if cosO == 0 || cosI == 0 {
		return core.Black
	}
	half := in.Add(out)
	if half.IsBlack() {
		return core.Black
	}
	half = half.Normalize()

	// evaluate Fresnel against the half vector on the outward side
	halfUp := half
	if halfUp.Z < 0 {
		halfUp = halfUp.Negate()
	}
	fresnel := m.Fresnel.Evaluate(in.Dot(halfUp))

	scale := m.Distribution.D(half) * m.Distribution.G(out, in) / (4 * cosO * cosI)
	return m.Tint.MultiplyVec(fresnel).Multiply(scale)
}

func (m MicrofacetReflection) Sample(out core.Vec3, _ bool, u core.Vec2) (core.Vec3, bool) {
	if out.Z == 0 {
		return core.Vec3{}, false
	}
	half := m.Distribution.SampleWh(out, u)
	if out.Dot(half) < 0 {
		return core.Vec3{}, false
	}
	in := Reflect(out, half)
	if !core.SameHemisphere(out, in) {
		return core.Vec3{}, false
	}
	return in, true
}

func (m MicrofacetReflection) Pdf(out, in core.Vec3, _ bool) (float64, float64) {
	if !core.SameHemisphere(out, in) {
		return 0, 0
	}
	half := in.Add(out)
	if half.IsBlack() {
		return 0, 0
	}
	half = half.Normalize()

	forward := m.Distribution.Pdf(out, half) / (4 * out.AbsDot(half))
	reverse := m.Distribution.Pdf(in, half) / (4 * in.AbsDot(half))
	return forward, reverse
}

// MicrofacetTransmission is the rough dielectric transmission lobe after
// Walter et al. EtaOutside is the index of refraction above the surface,
// EtaInside below.
type MicrofacetTransmission struct {
	Tint         core.Vec3
	Distribution TrowbridgeReitz
	EtaOutside   float64
	EtaInside    float64
}

// relativeEta returns etaTransmitted/etaIncident for a ray leaving along out
func (m MicrofacetTransmission) relativeEta(out core.Vec3) float64 {
	if core.CosTheta(out) > 0 {
		return m.EtaInside / m.EtaOutside
	}
	return m.EtaOutside / m.EtaInside
}

func (m MicrofacetTransmission) Evaluate(out, in core.Vec3, isOnLightSubpath bool) core.Vec3 {
	if core.SameHemisphere(out, in) {
		return core.Black
	}
	cosO := core.CosTheta(out)
	cosI := core.CosTheta(in)
	if cosO == 0 || cosI == 0 {
		return core.Black
	}

	eta := m.relativeEta(out)
	half := out.Add(in.Multiply(eta))
	if half.IsBlack() {
		return core.Black
	}
	half = half.Normalize()
	if half.Z < 0 {
		half = half.Negate()
	}
	// the directions must be on opposite sides of the microfacet
	if out.Dot(half)*in.Dot(half) > 0 {
		return core.Black
	}

	fresnel := FresnelDielectric(out.Dot(half), m.EtaOutside, m.EtaInside)
	sqrtDenom := out.Dot(half) + eta*in.Dot(half)

	// radiance transport picks up the 1/eta² scaling from the change of
	// solid angle at the interface; importance transport does not
	factor := 1.0
	if !isOnLightSubpath {
		factor = 1 / eta
	}

	value := (1 - fresnel) * math.Abs(
		m.Distribution.D(half)*m.Distribution.G(out, in)*eta*eta*
			in.AbsDot(half)*out.AbsDot(half)*factor*factor/
			(cosI*cosO*sqrtDenom*sqrtDenom))
	return m.Tint.Multiply(value)
}

func (m MicrofacetTransmission) Sample(out core.Vec3, _ bool, u core.Vec2) (core.Vec3, bool) {
	if out.Z == 0 {
		return core.Vec3{}, false
	}
	half := m.Distribution.SampleWh(out, u)
	if out.Dot(half) < 0 {
		return core.Vec3{}, false
	}
	in, ok := Refract(out, half, 1/m.relativeEta(out))
	if !ok {
		return core.Vec3{}, false
	}
	if core.SameHemisphere(out, in) || in.Z == 0 {
		return core.Vec3{}, false
	}
	return in, true
}

func (m MicrofacetTransmission) Pdf(out, in core.Vec3, _ bool) (float64, float64) {
	if core.SameHemisphere(out, in) {
		return 0, 0
	}
	return m.directionalPdf(out, in), m.directionalPdf(in, out)
}

// directionalPdf is the density of sampling `to` when scattering from `from`
func (m MicrofacetTransmission) directionalPdf(from, to core.Vec3) float64 {
	eta := m.relativeEta(from)
	half := from.Add(to.Multiply(eta))
	if half.IsBlack() {
		return 0
	}
	half = half.Normalize()
	if from.Dot(half)*to.Dot(half) > 0 {
		return 0
	}

	sqrtDenom := from.Dot(half) + eta*to.Dot(half)
	if sqrtDenom == 0 {
		return 0
	}
	// change of variables from half vector to transmitted direction
	dwhDwi := math.Abs(eta * eta * to.Dot(half) / (sqrtDenom * sqrtDenom))
	return m.Distribution.Pdf(from, half) * dwhDwi
}
