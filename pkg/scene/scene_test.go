package scene

import (
	"math"
	"testing"

	"github.com/avlen/go-bidir-renderer/pkg/core"
	"github.com/avlen/go-bidir-renderer/pkg/geometry"
	"github.com/avlen/go-bidir-renderer/pkg/lights"
)

func TestPrepareValidation(t *testing.T) {
	t.Run("missing camera", func(t *testing.T) {
		s := New()
		s.AddAreaLight(
			geometry.NewQuad(core.Vec3{}, core.NewVec3(1, 0, 0), core.NewVec3(0, 1, 0), nil),
			core.White)
		if err := s.Prepare(); err == nil {
			t.Error("expected error for missing camera")
		}
	})

	t.Run("missing light", func(t *testing.T) {
		s := New()
		s.AddShape(geometry.NewSphere(core.Vec3{}, 1, nil))
		s.Camera = NewPinholeCamera(core.NewVec3(0, 0, 4), core.Vec3{}, core.NewVec3(0, 1, 0), 40, 8, 8)
		if err := s.Prepare(); err == nil {
			t.Error("expected error for missing light source")
		}
	})

	t.Run("background is enough", func(t *testing.T) {
		s := New()
		s.AddShape(geometry.NewSphere(core.Vec3{}, 1, nil))
		s.Camera = NewPinholeCamera(core.NewVec3(0, 0, 4), core.Vec3{}, core.NewVec3(0, 1, 0), 40, 8, 8)
		s.Background = lights.NewUniformEnvironment(core.White)
		if err := s.Prepare(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestEmitterLookup(t *testing.T) {
	s := New()
	s.AddShape(geometry.NewSphere(core.Vec3{}, 1, nil))
	lightQuad := geometry.NewQuad(core.NewVec3(0, 3, 0), core.NewVec3(1, 0, 0), core.NewVec3(0, 0, 1), nil)
	s.AddAreaLight(lightQuad, core.NewVec3(5, 5, 5))
	s.Camera = NewPinholeCamera(core.NewVec3(0, 0, 4), core.Vec3{}, core.NewVec3(0, 1, 0), 40, 8, 8)
	if err := s.Prepare(); err != nil {
		t.Fatal(err)
	}

	onLight := core.SurfacePoint{MeshID: lightQuad.ID()}
	if s.EmitterForPoint(&onLight) == nil {
		t.Error("point on the light quad should resolve to its emitter")
	}
	onSphere := core.SurfacePoint{MeshID: 0}
	if s.EmitterForPoint(&onSphere) != nil {
		t.Error("point on the sphere should not resolve to an emitter")
	}

	em, pmf := s.SelectEmitter(0.5)
	if em == nil || pmf != 1 {
		t.Errorf("single emitter selection: %v, pmf %v", em, pmf)
	}
	if s.BackgroundProbability() != 0 {
		t.Errorf("no background, probability should be 0")
	}
}

func TestBackgroundProbability(t *testing.T) {
	s := New()
	s.AddAreaLight(
		geometry.NewQuad(core.Vec3{}, core.NewVec3(1, 0, 0), core.NewVec3(0, 0, 1), nil),
		core.White)
	s.Background = lights.NewUniformEnvironment(core.White)
	s.Camera = NewPinholeCamera(core.NewVec3(0, 0, 4), core.Vec3{}, core.NewVec3(0, 1, 0), 40, 8, 8)
	if err := s.Prepare(); err != nil {
		t.Fatal(err)
	}
	if got := s.BackgroundProbability(); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("one emitter plus background should give 1/2, got %v", got)
	}
}

func TestCameraRayThroughPixelCenter(t *testing.T) {
	cam := NewPinholeCamera(core.NewVec3(0, 0, 4), core.Vec3{}, core.NewVec3(0, 1, 0), 40, 64, 64)

	// the exact film center looks straight down the view axis
	sample := cam.GenerateRay(core.Vec2{X: 32, Y: 32}, nil)
	if sample.Ray.Direction.Subtract(core.NewVec3(0, 0, -1)).Length() > 1e-12 {
		t.Errorf("center ray direction %v, want -z", sample.Ray.Direction)
	}
	if sample.Weight != core.White {
		t.Errorf("pinhole weight should be one, got %v", sample.Weight)
	}

	// on-axis, the pdf equals the squared film distance
	d := float64(64) / (2 * math.Tan(20*math.Pi/180))
	if math.Abs(sample.PdfRay-d*d) > 1e-9 {
		t.Errorf("on-axis pdf %v, want %v", sample.PdfRay, d*d)
	}
}

func TestCameraResponseRoundTrip(t *testing.T) {
	cam := NewPinholeCamera(core.NewVec3(0, 0, 4), core.Vec3{}, core.NewVec3(0, 1, 0), 40, 64, 64)
	rng := core.NewRng(103, 0, 0)

	for i := 0; i < 100; i++ {
		filmPos := core.Vec2{X: rng.NextFloat() * 64, Y: rng.NextFloat() * 64}
		ray := cam.GenerateRay(filmPos, nil)

		// place a point somewhere along the ray and project it back
		point := core.SurfacePoint{
			Position: ray.Ray.At(1 + 5*rng.NextFloat()),
			Normal:   ray.Ray.Direction.Negate(),
		}
		response := cam.SampleResponse(&point, nil)
		if !response.IsValid() {
			t.Fatalf("point on a camera ray must project onto the film (pos %v)", filmPos)
		}
		if math.Abs(response.Pixel.X-filmPos.X) > 1e-6 || math.Abs(response.Pixel.Y-filmPos.Y) > 1e-6 {
			t.Fatalf("projection %v, want %v", response.Pixel, filmPos)
		}
	}
}

func TestCameraResponseRejectsBehind(t *testing.T) {
	cam := NewPinholeCamera(core.NewVec3(0, 0, 4), core.Vec3{}, core.NewVec3(0, 1, 0), 40, 64, 64)
	behind := core.SurfacePoint{Position: core.NewVec3(0, 0, 10), Normal: core.NewVec3(0, 0, 1)}
	if cam.SampleResponse(&behind, nil).IsValid() {
		t.Error("point behind the camera should be invalid")
	}
	offscreen := core.SurfacePoint{Position: core.NewVec3(50, 0, 0), Normal: core.NewVec3(0, 0, 1)}
	if cam.SampleResponse(&offscreen, nil).IsValid() {
		t.Error("point far off axis should miss the film")
	}
}

func TestCameraResponsePdfMatchesJacobians(t *testing.T) {
	cam := NewPinholeCamera(core.NewVec3(0, 0, 4), core.Vec3{}, core.NewVec3(0, 1, 0), 40, 64, 64)
	point := core.SurfacePoint{
		Position: core.NewVec3(0.3, -0.2, 0),
		Normal:   core.NewVec3(0, 0, 1),
	}

	response := cam.SampleResponse(&point, nil)
	if !response.IsValid() {
		t.Fatal("point should be visible")
	}

	expected := cam.SolidAngleToPixelJacobian(point.Position) *
		core.GeometryJacobian(core.NewVec3(0, 0, 4), point.Position, point.Normal)
	if math.Abs(response.PdfEmit-expected) > 1e-9*expected {
		t.Errorf("pdf %v, want %v", response.PdfEmit, expected)
	}
}

func TestBuiltInScenes(t *testing.T) {
	cornell, err := NewCornellBox(32, 32)
	if err != nil {
		t.Fatalf("cornell box: %v", err)
	}
	if len(cornell.Emitters()) != 1 {
		t.Errorf("cornell box should have one emitter")
	}
	// a ray through the center must hit the back wall, not escape
	ray := cornell.Camera.(*PinholeCamera).GenerateRay(core.Vec2{X: 16, Y: 16}, nil)
	if _, ok := cornell.Trace(ray.Ray); !ok {
		t.Error("center ray should hit the box")
	}

	furnace, err := NewFurnaceTest(16, 16)
	if err != nil {
		t.Fatalf("furnace: %v", err)
	}
	if furnace.Background == nil {
		t.Error("furnace scene needs its environment")
	}
	if furnace.Radius() < 1 {
		t.Errorf("bounding radius %v too small for the unit sphere", furnace.Radius())
	}
}
