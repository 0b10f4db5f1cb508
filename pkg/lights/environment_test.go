package lights

import (
	"math"
	"testing"

	"github.com/avlen/go-bidir-renderer/pkg/core"
)

func TestUniformEnvironmentDirection(t *testing.T) {
	env := NewUniformEnvironment(core.NewVec3(1, 2, 3))
	env.Prepare(core.Vec3{}, 10)

	sample, weight := env.SampleDirection(core.Vec2{X: 0.4, Y: 0.6})
	if math.Abs(sample.Pdf-1/(4*math.Pi)) > 1e-15 {
		t.Errorf("direction pdf should be 1/4π, got %v", sample.Pdf)
	}
	want := env.Radiance.Multiply(4 * math.Pi)
	if weight.Subtract(want).Length() > 1e-9 {
		t.Errorf("weight %v, want %v", weight, want)
	}
	if env.DirectionPdf(sample.Direction) != sample.Pdf {
		t.Error("DirectionPdf disagrees with SampleDirection")
	}
}

func TestEnvironmentRayGeometry(t *testing.T) {
	center := core.NewVec3(1, 2, 3)
	radius := 5.0
	env := NewUniformEnvironment(core.White)
	env.Prepare(center, radius)

	rng := core.NewRng(101, 0, 0)
	for i := 0; i < 200; i++ {
		ray, pdf, _ := env.SampleRay(rng.NextFloat2D(), rng.NextFloat2D())

		// the origin sits outside or on the bounding sphere
		if ray.Origin.Subtract(center).Length() < radius-1e-9 {
			t.Fatalf("ray origin inside the bounding sphere: %v", ray.Origin)
		}

		// every ray must be able to reach the bounding sphere: the closest
		// point of the ray to the center is within the radius
		toCenter := center.Subtract(ray.Origin)
		along := toCenter.Dot(ray.Direction)
		closest := toCenter.Subtract(ray.Direction.Multiply(along)).Length()
		if closest > radius+1e-9 {
			t.Fatalf("ray misses the bounding sphere by %v", closest-radius)
		}

		want := 1 / (4 * math.Pi) / (math.Pi * radius * radius)
		if math.Abs(pdf-want) > 1e-15 {
			t.Fatalf("ray pdf %v, want %v", pdf, want)
		}
		if math.Abs(env.RayPdf(center, ray.Direction)-want) > 1e-15 {
			t.Fatalf("RayPdf disagrees with SampleRay")
		}
	}
}

func TestGradientEnvironmentBlend(t *testing.T) {
	env := NewGradientEnvironment(core.NewVec3(0, 0, 1), core.NewVec3(1, 0, 0))
	env.Prepare(core.Vec3{}, 1)

	up := env.EmittedRadiance(core.NewVec3(0, 1, 0))
	if up.Subtract(env.Zenith).Length() > 1e-12 {
		t.Errorf("straight up should be zenith, got %v", up)
	}
	down := env.EmittedRadiance(core.NewVec3(0, -1, 0))
	if down.Subtract(env.Horizon).Length() > 1e-12 {
		t.Errorf("straight down should be horizon, got %v", down)
	}
	side := env.EmittedRadiance(core.NewVec3(1, 0, 0))
	mid := env.Zenith.Lerp(env.Horizon, 0.5)
	if side.Subtract(mid).Length() > 1e-12 {
		t.Errorf("horizontal should be the midpoint, got %v", side)
	}
}
