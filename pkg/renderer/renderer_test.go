package renderer

import (
	"context"
	"io"
	"log"
	"math"
	"testing"

	"github.com/avlen/go-bidir-renderer/pkg/core"
	"github.com/avlen/go-bidir-renderer/pkg/integrator"
	"github.com/avlen/go-bidir-renderer/pkg/scene"
)

func quietLogger() core.Logger {
	return log.New(io.Discard, "", 0)
}

func renderScene(t *testing.T, sc *scene.Scene, build func(frame Film) Integrator,
	iterations int, deterministic bool) *Renderer {
	t.Helper()

	config := Config{
		Width:         sc.Camera.Width(),
		Height:        sc.Camera.Height(),
		NumIterations: iterations,
		NumWorkers:    2,
		Deterministic: deterministic,
		Logger:        quietLogger(),
	}
	frame := NewFrameBuffer(config.Width, config.Height, deterministic)
	r := &Renderer{
		config:     config,
		integrator: build(frame),
		frame:      frame,
		logger:     config.Logger,
	}
	if err := r.Render(context.Background()); err != nil {
		t.Fatal(err)
	}
	return r
}

// Film is the splat target the bidirectional integrator needs; FrameBuffer
// satisfies it
type Film = integrator.Film

// averageRegion returns the mean radiance of a pixel block
func averageRegion(fb *FrameBuffer, col0, row0, size int) core.Vec3 {
	sum := core.Black
	for row := row0; row < row0+size; row++ {
		for col := col0; col < col0+size; col++ {
			sum = sum.Add(fb.Average(col, row))
		}
	}
	return sum.Multiply(1 / float64(size*size))
}

// directionalAlbedo integrates the BSDF times cosine over the hemisphere by
// midpoint quadrature. A convex surface in a unit-radiance environment must
// render to exactly this value in expectation.
func directionalAlbedo(hit *core.SurfacePoint, outDir core.Vec3) float64 {
	const nMu, nPhi = 64, 64
	frame := core.NewFrame(hit.ShadingNormal)
	sum := 0.0
	for i := 0; i < nMu; i++ {
		mu := (float64(i) + 0.5) / nMu
		sinTheta := math.Sqrt(1 - mu*mu)
		for j := 0; j < nPhi; j++ {
			phi := 2 * math.Pi * (float64(j) + 0.5) / nPhi
			in := frame.ShadingToWorld(core.NewVec3(sinTheta*math.Cos(phi), sinTheta*math.Sin(phi), mu))
			sum += hit.Material.EvaluateWithCosine(hit, outDir, in, false).Luminance()
		}
	}
	return sum * 2 * math.Pi / (nMu * nPhi)
}

// A gray sphere inside a uniform white environment: pixels past the sphere
// see the background directly (exactly 1), pixels on the sphere must match
// the quadrature albedo of the material and both integrators must agree.
func TestFurnaceAgreement(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping render test in short mode")
	}

	sc, err := scene.NewFurnaceTest(16, 16)
	if err != nil {
		t.Fatal(err)
	}

	// expected brightness of the center region: the albedo at each pixel
	// center ray, averaged
	expected := 0.0
	rng := core.NewRng(0, 0, 0)
	for row := 6; row < 10; row++ {
		for col := 6; col < 10; col++ {
			camSample := sc.Camera.GenerateRay(core.NewVec2(float64(col)+0.5, float64(row)+0.5), rng)
			hit, ok := sc.Trace(camSample.Ray)
			if !ok {
				t.Fatalf("center pixel (%d, %d) missed the sphere", col, row)
			}
			expected += directionalAlbedo(&hit, camSample.Ray.Direction.Negate())
		}
	}
	expected /= 16

	const iterations = 64
	bidirConfig := integrator.DefaultConfig()

	pt := renderScene(t, sc, func(frame Film) Integrator {
		return integrator.NewPathTracer(sc, bidirConfig)
	}, iterations, false)

	vcb := renderScene(t, sc, func(frame Film) Integrator {
		return integrator.NewVertexCacheBidir(sc, frame, bidirConfig)
	}, iterations, false)

	// background-only pixels accumulate exactly 1 in both integrators
	for _, r := range []*Renderer{pt, vcb} {
		if got := r.Frame().Average(0, 0); got != core.White {
			t.Errorf("background pixel = %v, want exactly white", got)
		}
	}

	ptCenter := averageRegion(pt.Frame(), 6, 6, 4).Luminance()
	vcbCenter := averageRegion(vcb.Frame(), 6, 6, 4).Luminance()

	for name, v := range map[string]float64{"path tracer": ptCenter, "bidir": vcbCenter} {
		if math.Abs(v-expected) > 0.03 {
			t.Errorf("%s sphere value = %v, want %v +- 0.03", name, v, expected)
		}
	}
	if diff := math.Abs(ptCenter - vcbCenter); diff > 0.03 {
		t.Errorf("integrators disagree: pt=%v vcb=%v (diff %v)", ptCenter, vcbCenter, diff)
	}
}

// With connections and the light tracer disabled the bidirectional
// integrator degenerates into the reference path tracer: same techniques,
// same random streams, same estimates up to floating point noise in the
// weight computation.
func TestVertexCacheReducesToPathTracer(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping render test in short mode")
	}

	sc, err := scene.NewCornellBox(16, 16)
	if err != nil {
		t.Fatal(err)
	}

	config := integrator.DefaultConfig()
	config.NumConnections = 0
	config.EnableConnections = false
	config.EnableLightTracer = false
	config.NumLightPaths = 8

	pt := renderScene(t, sc, func(frame Film) Integrator {
		return integrator.NewPathTracer(sc, config)
	}, 4, false)
	vcb := renderScene(t, sc, func(frame Film) Integrator {
		return integrator.NewVertexCacheBidir(sc, frame, config)
	}, 4, false)

	for row := 0; row < 16; row++ {
		for col := 0; col < 16; col++ {
			want := pt.Frame().Average(col, row)
			got := vcb.Frame().Average(col, row)
			tol := 1e-9 * math.Max(1, want.MaxComponent())
			diff := got.Subtract(want)
			if math.Abs(diff.X) > tol || math.Abs(diff.Y) > tol || math.Abs(diff.Z) > tol {
				t.Fatalf("pixel (%d, %d): reduced bidir %v, path tracer %v", col, row, got, want)
			}
		}
	}
}

// With hitting, connections and next event all off, every photon reaches the
// film through SplatLightVertex alone; the image must still light up.
func TestLightTracerOnly(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping render test in short mode")
	}

	sc, err := scene.NewCornellBox(16, 16)
	if err != nil {
		t.Fatal(err)
	}

	config := integrator.DefaultConfig()
	config.EnableHitting = false
	config.EnableConnections = false
	config.NumShadowRays = 0

	r := renderScene(t, sc, func(frame Film) Integrator {
		return integrator.NewVertexCacheBidir(sc, frame, config)
	}, 8, false)

	if r.Stats().SplatVertices == 0 {
		t.Fatal("no vertices splatted")
	}

	lit := 0
	for row := 0; row < 16; row++ {
		for col := 0; col < 16; col++ {
			v := r.Frame().Average(col, row)
			if !v.IsFinite() || v.X < 0 || v.Y < 0 || v.Z < 0 {
				t.Fatalf("pixel (%d, %d) = %v", col, row, v)
			}
			if !v.IsBlack() {
				lit++
			}
		}
	}
	if lit < 16*16/4 {
		t.Errorf("only %d of %d pixels received splat energy", lit, 16*16)
	}
}

func TestCornellBoxSmoke(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping render test in short mode")
	}

	sc, err := scene.NewCornellBox(24, 24)
	if err != nil {
		t.Fatal(err)
	}

	r := renderScene(t, sc, func(frame Film) Integrator {
		return integrator.NewVertexCacheBidir(sc, frame, integrator.DefaultConfig())
	}, 8, false)

	stats := r.Stats()
	if stats.Iterations != 8 {
		t.Errorf("iterations = %d, want 8", stats.Iterations)
	}
	if stats.LightPaths == 0 || stats.SplatVertices == 0 {
		t.Errorf("stats = %+v, want light paths and splat vertices", stats)
	}

	lit := 0
	for row := 0; row < 24; row++ {
		for col := 0; col < 24; col++ {
			v := r.Frame().Average(col, row)
			if !v.IsFinite() {
				t.Fatalf("pixel (%d, %d) = %v", col, row, v)
			}
			if v.X < 0 || v.Y < 0 || v.Z < 0 {
				t.Fatalf("pixel (%d, %d) has negative energy: %v", col, row, v)
			}
			if !v.IsBlack() {
				lit++
			}
		}
	}
	if lit < 24*24/2 {
		t.Errorf("only %d of %d pixels received light", lit, 24*24)
	}
}

func TestRenderDeterministic(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping render test in short mode")
	}

	sc, err := scene.NewCornellBox(16, 16)
	if err != nil {
		t.Fatal(err)
	}

	render := func() *FrameBuffer {
		r := renderScene(t, sc, func(frame Film) Integrator {
			return integrator.NewVertexCacheBidir(sc, frame, integrator.DefaultConfig())
		}, 3, true)
		return r.Frame()
	}

	a, b := render(), render()
	for row := 0; row < 16; row++ {
		for col := 0; col < 16; col++ {
			if a.Average(col, row) != b.Average(col, row) {
				t.Fatalf("pixel (%d, %d) differs between identical runs: %v vs %v",
					col, row, a.Average(col, row), b.Average(col, row))
			}
		}
	}
}

// The per-technique images must sum to the accumulated frame
func TestTechniquePyramidMatchesFrame(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping render test in short mode")
	}

	sc, err := scene.NewCornellBox(16, 16)
	if err != nil {
		t.Fatal(err)
	}

	config := integrator.DefaultConfig()
	config.RenderTechniquePyramid = true

	var vcb *integrator.VertexCacheBidir
	r := renderScene(t, sc, func(frame Film) Integrator {
		vcb = integrator.NewVertexCacheBidir(sc, frame, config)
		return vcb
	}, 4, true)

	techniques := 0
	vcb.Pyramid.Techniques(func(camLen, lightLen int) {
		techniques++
		// the raw image undoes MIS weights in (0, 1], so it dominates the
		// weighted one everywhere
		for row := 0; row < 16; row++ {
			for col := 0; col < 16; col++ {
				w := vcb.Pyramid.Value(camLen, lightLen, col, row)
				raw := vcb.Pyramid.RawValue(camLen, lightLen, col, row)
				if raw.X < w.X-1e-12 || raw.Y < w.Y-1e-12 || raw.Z < w.Z-1e-12 {
					t.Fatalf("technique (%d, %d) pixel (%d, %d): raw %v below weighted %v",
						camLen, lightLen, col, row, raw, w)
				}
			}
		}
	})
	if techniques < 3 {
		t.Errorf("only %d techniques received energy, want at least hit, nee and connections", techniques)
	}

	n := float64(r.Frame().Iterations())
	for row := 0; row < 16; row++ {
		for col := 0; col < 16; col++ {
			want := r.Frame().Average(col, row)
			got := vcb.Pyramid.Total(col, row).Multiply(1 / n)
			diff := got.Subtract(want)
			tol := 1e-9 * math.Max(1, want.MaxComponent())
			if math.Abs(diff.X) > tol || math.Abs(diff.Y) > tol || math.Abs(diff.Z) > tol {
				t.Fatalf("pixel (%d, %d): pyramid sum %v, frame %v", col, row, got, want)
			}
		}
	}
}

func TestRenderCancellation(t *testing.T) {
	sc, err := scene.NewCornellBox(8, 8)
	if err != nil {
		t.Fatal(err)
	}

	it := integrator.NewPathTracer(sc, integrator.DefaultConfig())
	r, err := New(Config{
		Width: 8, Height: 8, NumIterations: 1000, NumWorkers: 1, Logger: quietLogger(),
	}, it)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.Render(ctx); err != context.Canceled {
		t.Errorf("render returned %v, want context.Canceled", err)
	}
}

func TestNewRendererValidation(t *testing.T) {
	sc, err := scene.NewCornellBox(8, 8)
	if err != nil {
		t.Fatal(err)
	}
	it := integrator.NewPathTracer(sc, integrator.DefaultConfig())

	if _, err := New(Config{Width: 0, Height: 8, NumIterations: 1}, it); err == nil {
		t.Error("expected an error for zero width")
	}
	if _, err := New(Config{Width: 8, Height: 8, NumIterations: 0}, it); err == nil {
		t.Error("expected an error for zero iterations")
	}
}
