// Package bsdf implements the individual scattering lobes that make up the
// generic uber-material: Disney-style diffuse terms and rough GGX microfacet
// reflection and transmission. All lobes work in shading space, where the
// surface normal is the +z axis, and all directions point away from the
// surface.
package bsdf

import (
	"math"

	"github.com/avlen/go-bidir-renderer/pkg/core"
)

// Lobe is a single scattering component. Evaluate returns the BSDF value
// without the cosine term; Sample draws an incident direction for the given
// outgoing one; Pdf returns the sampling densities in both directions, which
// bidirectional techniques need for their weights.
type Lobe interface {
	Evaluate(out, in core.Vec3, isOnLightSubpath bool) core.Vec3
	Sample(out core.Vec3, isOnLightSubpath bool, u core.Vec2) (core.Vec3, bool)
	Pdf(out, in core.Vec3, isOnLightSubpath bool) (pdfForward, pdfReverse float64)
}

// Reflect mirrors a direction about a normal. Both must be unit length.
func Reflect(w, n core.Vec3) core.Vec3 {
	return w.Negate().Add(n.Multiply(2 * w.Dot(n)))
}

// Refract bends a direction through an interface with relative index of
// refraction eta = etaIncident/etaTransmitted. The normal must lie on the
// same side as w. Returns false on total internal reflection.
func Refract(w, n core.Vec3, eta float64) (core.Vec3, bool) {
	cosThetaI := n.Dot(w)
	sin2ThetaI := math.Max(0, 1-cosThetaI*cosThetaI)
	sin2ThetaT := eta * eta * sin2ThetaI
	if sin2ThetaT >= 1 {
		return core.Vec3{}, false
	}
	cosThetaT := math.Sqrt(1 - sin2ThetaT)
	return w.Negate().Multiply(eta).Add(n.Multiply(eta*cosThetaI - cosThetaT)), true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
