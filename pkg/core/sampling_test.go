package core

import (
	"math"
	"testing"
)

func TestConcentricDiscRoundTrip(t *testing.T) {
	rng := NewRng(7, 0, 0)
	for i := 0; i < 200; i++ {
		u := rng.NextFloat2D()
		p := ToConcentricDisc(u)

		if p.X*p.X+p.Y*p.Y > 1+1e-12 {
			t.Fatalf("sample %v maps outside the unit disc: %v", u, p)
		}

		back := FromConcentricDisc(p)
		if math.Abs(back.X-u.X) > 1e-9 || math.Abs(back.Y-u.Y) > 1e-9 {
			t.Errorf("round trip failed: %v -> %v -> %v", u, p, back)
		}
	}
}

func TestCosHemisphereRoundTrip(t *testing.T) {
	rng := NewRng(13, 0, 0)
	for i := 0; i < 200; i++ {
		u := rng.NextFloat2D()
		sample := ToCosHemisphere(u)

		if sample.Direction.Z < 0 {
			t.Fatalf("direction below hemisphere: %v", sample.Direction)
		}
		if math.Abs(sample.Direction.Length()-1) > 1e-9 {
			t.Fatalf("direction not unit length: %v", sample.Direction.Length())
		}

		expectedPdf := sample.Direction.Z / math.Pi
		if math.Abs(sample.Pdf-expectedPdf) > 1e-12 {
			t.Errorf("pdf mismatch: got %v, want %v", sample.Pdf, expectedPdf)
		}
		if math.Abs(CosHemispherePdf(sample.Direction)-expectedPdf) > 1e-12 {
			t.Errorf("CosHemispherePdf mismatch for %v", sample.Direction)
		}

		back := FromCosHemisphere(sample.Direction)
		if math.Abs(back.X-u.X) > 1e-7 || math.Abs(back.Y-u.Y) > 1e-7 {
			t.Errorf("round trip failed: %v -> %v -> %v", u, sample.Direction, back)
		}
	}
}

func TestUniformSphereRoundTrip(t *testing.T) {
	rng := NewRng(42, 0, 0)
	for i := 0; i < 200; i++ {
		u := rng.NextFloat2D()
		sample := ToUniformSphere(u)

		if math.Abs(sample.Direction.Length()-1) > 1e-9 {
			t.Fatalf("direction not unit length: %v", sample.Direction.Length())
		}
		if math.Abs(sample.Pdf-1/(4*math.Pi)) > 1e-15 {
			t.Errorf("pdf should be 1/4π, got %v", sample.Pdf)
		}

		back := FromUniformSphere(sample.Direction)
		if math.Abs(back.X-u.X) > 1e-9 || math.Abs(back.Y-u.Y) > 1e-9 {
			t.Errorf("round trip failed: %v -> %v -> %v", u, sample.Direction, back)
		}
	}
}

func TestCosHemisphereIntegratesToOne(t *testing.T) {
	// Monte Carlo check: E[1/pdf weighted by pdf] over the warp equals the
	// hemisphere is covered with the correct density, i.e. the average of
	// pdf(dir)·π/cosθ must be 1.
	rng := NewRng(99, 0, 0)
	n := 20000
	sum := 0.0
	for i := 0; i < n; i++ {
		s := ToCosHemisphere(rng.NextFloat2D())
		sum += s.Pdf * math.Pi / s.Direction.Z
	}
	avg := sum / float64(n)
	if math.Abs(avg-1) > 1e-9 {
		t.Errorf("cosine warp density inconsistent: %v", avg)
	}
}

func TestGeometryJacobian(t *testing.T) {
	tests := []struct {
		name     string
		from, to Vec3
		normal   Vec3
		expected float64
	}{
		{
			name:     "head on at distance 2",
			from:     Vec3{0, 0, 2},
			to:       Vec3{0, 0, 0},
			normal:   Vec3{0, 0, 1},
			expected: 1.0 / 4.0,
		},
		{
			name:     "grazing",
			from:     Vec3{1, 0, 0},
			to:       Vec3{0, 0, 0},
			normal:   Vec3{0, 0, 1},
			expected: 0,
		},
		{
			name:     "45 degrees at distance 1",
			from:     Vec3{1, 0, 1},
			to:       Vec3{0, 0, 0},
			normal:   Vec3{0, 0, 1},
			expected: math.Sqrt(2) / 2 / 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GeometryJacobian(tt.from, tt.to, tt.normal)
			if math.Abs(got-tt.expected) > 1e-12 {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestSurfaceAreaToSolidAngleSymmetryProduct(t *testing.T) {
	// For two mutually visible points the product of the two one-sided
	// jacobians equals cos_a·cos_b/d⁴, which is symmetric.
	a := &SurfacePoint{Position: Vec3{0, 0, 0}, Normal: Vec3{0, 0, 1}}
	b := &SurfacePoint{Position: Vec3{1, 2, 3}, Normal: NewVec3(0, -1, -1).Normalize()}

	ab := SurfaceAreaToSolidAngle(a, b)
	ba := SurfaceAreaToSolidAngle(b, a)

	d2 := b.Position.Subtract(a.Position).LengthSquared()
	dir := b.Position.Subtract(a.Position).Normalize()
	expected := dir.AbsDot(a.Normal) * dir.AbsDot(b.Normal) / (d2 * d2)

	if math.Abs(ab*ba-expected) > 1e-12 {
		t.Errorf("jacobian product mismatch: %v vs %v", ab*ba, expected)
	}
}
