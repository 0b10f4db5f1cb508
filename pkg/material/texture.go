// Package material implements the generic uber-material that combines the
// scattering lobes from pkg/bsdf, with texture-driven parameters and the
// aggregate forward and reverse sampling densities required by the
// bidirectional integrators.
package material

import (
	"math"

	"github.com/avlen/go-bidir-renderer/pkg/core"
)

// ColorSource supplies an RGB value for a surface coordinate
type ColorSource interface {
	Color(uv core.Vec2) core.Vec3
}

// ScalarSource supplies a scalar value for a surface coordinate
type ScalarSource interface {
	Scalar(uv core.Vec2) float64
}

// SolidColor is a constant ColorSource
type SolidColor struct {
	Value core.Vec3
}

func (s SolidColor) Color(core.Vec2) core.Vec3 { return s.Value }

// SolidScalar is a constant ScalarSource
type SolidScalar struct {
	Value float64
}

func (s SolidScalar) Scalar(core.Vec2) float64 { return s.Value }

// CheckerColor alternates two colors in a UV-space checkerboard
type CheckerColor struct {
	A, B  ColorSource
	Scale float64 // number of tiles per unit UV
}

func (c CheckerColor) Color(uv core.Vec2) core.Vec3 {
	scale := c.Scale
	if scale <= 0 {
		scale = 1
	}
	u := int(math.Floor(uv.X * scale))
	v := int(math.Floor(uv.Y * scale))
	if (u+v)%2 == 0 {
		return c.A.Color(uv)
	}
	return c.B.Color(uv)
}
