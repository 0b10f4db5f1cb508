package bsdf

import (
	"math"
	"testing"

	"github.com/avlen/go-bidir-renderer/pkg/core"
)

func TestTrowbridgeReitzAlphaClamp(t *testing.T) {
	d := NewTrowbridgeReitz(0, -1)
	if d.AlphaX != minAlpha || d.AlphaY != minAlpha {
		t.Errorf("alphas not clamped: %v %v", d.AlphaX, d.AlphaY)
	}
}

func TestTrowbridgeReitzSampleMatchesPdf(t *testing.T) {
	d := NewTrowbridgeReitz(0.2, 0.4)
	wo := core.NewVec3(0.3, -0.2, 0.8).Normalize()
	rng := core.NewRng(11, 0, 0)

	// the visible normal density integrates to one over the hemisphere;
	// estimate the integral with uniform sphere samples restricted to z > 0
	n := 100000
	sum := 0.0
	for i := 0; i < n; i++ {
		s := core.ToUniformSphere(rng.NextFloat2D())
		wh := s.Direction
		if wh.Z <= 0 {
			continue
		}
		sum += d.Pdf(wo, wh) / (2 * s.Pdf)
	}
	integral := sum / float64(n)
	if math.Abs(integral-1) > 0.05 {
		t.Errorf("visible normal density does not integrate to 1: %v", integral)
	}
}

func TestSampleWhValid(t *testing.T) {
	distributions := []TrowbridgeReitz{
		NewTrowbridgeReitz(0.05, 0.05),
		NewTrowbridgeReitz(0.5, 0.1),
		NewTrowbridgeReitz(1, 1),
	}
	outgoing := []core.Vec3{
		core.NewVec3(0, 0, 1),
		core.NewVec3(0.7, 0.1, 0.7).Normalize(),
		core.NewVec3(0.99, 0, 0.14).Normalize(), // grazing
		core.NewVec3(0.2, 0.3, -0.9).Normalize(),
	}

	rng := core.NewRng(23, 0, 0)
	for _, d := range distributions {
		for _, wo := range outgoing {
			for i := 0; i < 50; i++ {
				wh := d.SampleWh(wo, rng.NextFloat2D())
				if math.Abs(wh.Length()-1) > 1e-9 {
					t.Fatalf("half vector not unit length: %v", wh)
				}
				if !wh.IsFinite() {
					t.Fatalf("non-finite half vector for wo=%v", wo)
				}
				pdf := d.Pdf(wo, wh)
				if math.IsNaN(pdf) || pdf < 0 {
					t.Fatalf("invalid pdf %v for wo=%v wh=%v", pdf, wo, wh)
				}
			}
		}
	}
}

func TestDistributionGrazingIsZeroNotNaN(t *testing.T) {
	d := NewTrowbridgeReitz(0.3, 0.3)
	grazing := core.NewVec3(1, 0, 0)
	if v := d.D(grazing); v != 0 {
		t.Errorf("D at grazing should be 0, got %v", v)
	}
	if v := d.Lambda(grazing); v != 0 {
		t.Errorf("Lambda at grazing should be 0, got %v", v)
	}
}
