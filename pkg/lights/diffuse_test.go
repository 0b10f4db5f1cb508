package lights

import (
	"math"
	"testing"

	"github.com/avlen/go-bidir-renderer/pkg/core"
	"github.com/avlen/go-bidir-renderer/pkg/geometry"
)

func testEmitter() *DiffuseArea {
	// a 2x2 quad in the z=0 plane facing +z
	quad := geometry.NewQuad(core.NewVec3(-1, -1, 0), core.NewVec3(2, 0, 0), core.NewVec3(0, 2, 0), nil)
	return NewDiffuseArea(quad, core.NewVec3(5, 4, 3))
}

func TestDiffuseAreaPdf(t *testing.T) {
	e := testEmitter()
	point, pdf := e.SampleArea(core.Vec2{X: 0.3, Y: 0.7})
	if math.Abs(pdf-0.25) > 1e-12 {
		t.Errorf("area pdf should be 1/4, got %v", pdf)
	}
	if math.Abs(e.PdfArea(&point)-0.25) > 1e-12 {
		t.Errorf("PdfArea should be 1/4, got %v", e.PdfArea(&point))
	}
}

func TestDiffuseAreaFrontFaceOnly(t *testing.T) {
	e := testEmitter()
	point, _ := e.SampleArea(core.Vec2{X: 0.5, Y: 0.5})

	front := e.EmittedRadiance(&point, core.NewVec3(0, 0.3, 1).Normalize())
	if front.IsBlack() {
		t.Error("front hemisphere should emit")
	}
	back := e.EmittedRadiance(&point, core.NewVec3(0, 0.3, -1).Normalize())
	if !back.IsBlack() {
		t.Errorf("back hemisphere should be dark, got %v", back)
	}
	grazing := e.EmittedRadiance(&point, core.NewVec3(1, 0, 0))
	if !grazing.IsBlack() {
		t.Errorf("grazing direction should be dark, got %v", grazing)
	}
}

func TestDiffuseAreaRaySampleConsistency(t *testing.T) {
	e := testEmitter()
	rng := core.NewRng(89, 0, 0)

	for i := 0; i < 200; i++ {
		sample := e.SampleRay(rng.NextFloat2D(), rng.NextFloat2D())
		if sample.Pdf == 0 {
			continue
		}

		cosTheta := sample.Direction.Dot(sample.Origin.ShadingNormal)
		if cosTheta <= 0 {
			t.Fatalf("emission ray below the surface: %v", sample.Direction)
		}

		// the stored pdf must match PdfRay for the same ray
		pdf := e.PdfRay(&sample.Origin, sample.Direction)
		if math.Abs(pdf-sample.Pdf) > 1e-9*pdf {
			t.Fatalf("pdf mismatch: sample %v, query %v", sample.Pdf, pdf)
		}

		// weight·pdf must reproduce radiance·cos
		got := sample.Weight.Multiply(sample.Pdf)
		want := e.Radiance.Multiply(cosTheta)
		if got.Subtract(want).Length() > 1e-9*want.Length() {
			t.Fatalf("weight inconsistent: %v vs %v", got, want)
		}
	}
}

func TestDiffuseAreaRayInverseRoundTrip(t *testing.T) {
	e := testEmitter()
	rng := core.NewRng(97, 0, 0)

	for i := 0; i < 200; i++ {
		u := rng.NextFloat2D()
		v := rng.NextFloat2D()
		sample := e.SampleRay(u, v)
		if sample.Pdf == 0 {
			continue
		}

		posBack, dirBack := e.SampleRayInverse(&sample.Origin, sample.Direction)
		if math.Abs(posBack.X-u.X) > 1e-4 || math.Abs(posBack.Y-u.Y) > 1e-4 {
			t.Errorf("position sample round trip: %v -> %v", u, posBack)
		}
		if math.Abs(dirBack.X-v.X) > 1e-3 || math.Abs(dirBack.Y-v.Y) > 1e-3 {
			t.Errorf("direction sample round trip: %v -> %v", v, dirBack)
		}
	}
}

func TestDiffuseAreaTotalPower(t *testing.T) {
	e := testEmitter()
	want := e.Radiance.Luminance() * math.Pi * 4
	if math.Abs(e.TotalPower()-want) > 1e-9 {
		t.Errorf("power %v, want %v", e.TotalPower(), want)
	}
}
