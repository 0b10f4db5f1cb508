package bsdf

import (
	"math"

	"github.com/avlen/go-bidir-renderer/pkg/core"
)

// minAlpha keeps the distribution away from the delta limit, where the
// sampling routine and the pdf lose precision
const minAlpha = 0.001

// TrowbridgeReitz is the anisotropic GGX microfacet normal distribution with
// Smith shadowing and visible-normal importance sampling
type TrowbridgeReitz struct {
	AlphaX, AlphaY float64
}

// NewTrowbridgeReitz creates a distribution with roughness values clamped to
// the minimum supported alpha
func NewTrowbridgeReitz(alphaX, alphaY float64) TrowbridgeReitz {
	return TrowbridgeReitz{
		AlphaX: math.Max(minAlpha, alphaX),
		AlphaY: math.Max(minAlpha, alphaY),
	}
}

// RoughnessToAlpha maps an artist-facing roughness in [0, 1] to a
// distribution alpha
func RoughnessToAlpha(roughness float64) float64 {
	return math.Max(minAlpha, roughness*roughness)
}

// D returns the differential area of microfacets with the given half vector
func (d TrowbridgeReitz) D(wh core.Vec3) float64 {
	tan2Theta := core.Tan2Theta(wh)
	if math.IsInf(tan2Theta, 0) {
		return 0
	}
	cos4Theta := core.Cos2Theta(wh) * core.Cos2Theta(wh)
	e := (core.Cos2Phi(wh)/(d.AlphaX*d.AlphaX) + core.Sin2Phi(wh)/(d.AlphaY*d.AlphaY)) * tan2Theta
	return 1 / (math.Pi * d.AlphaX * d.AlphaY * cos4Theta * (1 + e) * (1 + e))
}

// Lambda is the Smith auxiliary function measuring invisible masked
// microfacet area along a direction
func (d TrowbridgeReitz) Lambda(w core.Vec3) float64 {
	absTanTheta := math.Abs(core.TanTheta(w))
	if math.IsInf(absTanTheta, 0) {
		return 0
	}
	alpha := math.Sqrt(core.Cos2Phi(w)*d.AlphaX*d.AlphaX + core.Sin2Phi(w)*d.AlphaY*d.AlphaY)
	alpha2Tan2 := (alpha * absTanTheta) * (alpha * absTanTheta)
	return (-1 + math.Sqrt(1+alpha2Tan2)) / 2
}

// G1 is the Smith masking function for a single direction
func (d TrowbridgeReitz) G1(w core.Vec3) float64 {
	return 1 / (1 + d.Lambda(w))
}

// G is the separable Smith masking-shadowing function for a direction pair
func (d TrowbridgeReitz) G(wo, wi core.Vec3) float64 {
	return 1 / (1 + d.Lambda(wo) + d.Lambda(wi))
}

// SampleWh draws a half vector from the distribution of visible normals as
// seen from wo
func (d TrowbridgeReitz) SampleWh(wo core.Vec3, u core.Vec2) core.Vec3 {
	flip := wo.Z < 0
	if flip {
		wo = wo.Negate()
	}
	wh := sampleVisibleNormal(wo, d.AlphaX, d.AlphaY, u.X, u.Y)
	if flip {
		wh = wh.Negate()
	}
	return wh
}

// Pdf returns the density of SampleWh over half-vector solid angle
func (d TrowbridgeReitz) Pdf(wo, wh core.Vec3) float64 {
	absCos := core.AbsCosTheta(wo)
	if absCos == 0 {
		return 0
	}
	return d.D(wh) * d.G1(wo) * wo.AbsDot(wh) / absCos
}

// sampleVisibleNormal implements Heitz's slope-space sampling of the GGX
// visible normal distribution. wi must be in the upper hemisphere.
func sampleVisibleNormal(wi core.Vec3, alphaX, alphaY, u1, u2 float64) core.Vec3 {
	// stretch the incoming direction so the problem becomes isotropic
	wiStretched := core.NewVec3(alphaX*wi.X, alphaY*wi.Y, wi.Z).Normalize()

	slopeX, slopeY := sampleVisibleSlopes(core.CosTheta(wiStretched), u1, u2)

	// rotate back to the azimuth of the stretched direction
	tmp := core.CosPhi(wiStretched)*slopeX - core.SinPhi(wiStretched)*slopeY
	slopeY = core.SinPhi(wiStretched)*slopeX + core.CosPhi(wiStretched)*slopeY
	slopeX = tmp

	// unstretch
	slopeX *= alphaX
	slopeY *= alphaY

	return core.NewVec3(-slopeX, -slopeY, 1).Normalize()
}

// sampleVisibleSlopes samples the slope distribution of an isotropic GGX
// surface seen at the given incidence cosine, using the rational fit for the
// conditional slope along the second axis
func sampleVisibleSlopes(cosTheta, u1, u2 float64) (slopeX, slopeY float64) {
	// normal incidence degenerates to sampling the full slope distribution
	if cosTheta > 0.9999 {
		r := math.Sqrt(u1 / (1 - u1))
		phi := 2 * math.Pi * u2
		return r * math.Cos(phi), r * math.Sin(phi)
	}

	sinTheta := math.Sqrt(math.Max(0, 1-cosTheta*cosTheta))
	tanTheta := sinTheta / cosTheta
	a := 1 / tanTheta
	g1 := 2 / (1 + math.Sqrt(1+1/(a*a)))

	A := 2*u1/g1 - 1
	tmp := 1 / (A*A - 1)
	if tmp > 1e10 {
		tmp = 1e10
	}
	b := tanTheta
	d := math.Sqrt(math.Max(0, b*b*tmp*tmp-(A*A-b*b)*tmp))
	slopeX1 := b*tmp - d
	slopeX2 := b*tmp + d
	if A < 0 || slopeX2 > 1/tanTheta {
		slopeX = slopeX1
	} else {
		slopeX = slopeX2
	}

	var sign float64
	if u2 > 0.5 {
		sign = 1
		u2 = 2 * (u2 - 0.5)
	} else {
		sign = -1
		u2 = 2 * (0.5 - u2)
	}
	z := (u2 * (u2*(u2*0.27385-0.73369) + 0.46341)) /
		(u2*(u2*(u2*0.093073+0.309420)-1.000000) + 0.597999)
	slopeY = sign * z * math.Sqrt(1+slopeX*slopeX)
	return slopeX, slopeY
}
