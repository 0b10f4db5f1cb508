package integrator

import (
	"github.com/avlen/go-bidir-renderer/pkg/core"
	"github.com/avlen/go-bidir-renderer/pkg/scene"
)

// PathTracer is a forward path tracer with next event estimation, used as
// the reference the bidirectional integrator is validated against. It reads
// MinDepth, MaxDepth, NumShadowRays and BaseSeedCamera from the shared
// Config and ignores the light path settings.
type PathTracer struct {
	minDepth      int
	maxDepth      int
	numShadowRays int
	baseSeed      uint64

	scene *scene.Scene
}

// NewPathTracer prepares a path tracer for a scene
func NewPathTracer(sc *scene.Scene, config Config) *PathTracer {
	if config.MaxDepth < 1 {
		config.MaxDepth = 1
	}
	if config.MinDepth < 1 {
		config.MinDepth = 1
	}
	if config.NumShadowRays < 0 {
		config.NumShadowRays = 0
	}
	return &PathTracer{
		minDepth:      config.MinDepth,
		maxDepth:      config.MaxDepth,
		numShadowRays: config.NumShadowRays,
		baseSeed:      config.BaseSeedCamera,
		scene:         sc,
	}
}

// StartIteration is a no-op: the path tracer keeps no per-iteration state
func (t *PathTracer) StartIteration(iteration uint32) {}

// LightPathCount returns zero: no light subpaths are traced
func (t *PathTracer) LightPathCount() int { return 0 }

// TraceLightPath is a no-op
func (t *PathTracer) TraceLightPath(idx int, iteration uint32) {}

// FinishLightPaths is a no-op
func (t *PathTracer) FinishLightPaths() {}

// CachedVertexCount returns zero: nothing is splatted
func (t *PathTracer) CachedVertexCount() int { return 0 }

// SplatLightVertex is a no-op
func (t *PathTracer) SplatLightVertex(flatIdx int, iteration uint32) {}

// RenderPixel estimates the radiance of one pixel sample
func (t *PathTracer) RenderPixel(col, row int, iteration uint32) core.Vec3 {
	pixelIdx := row*t.scene.Camera.Width() + col
	rng := core.NewRng(t.baseSeed, uint64(iteration), uint64(pixelIdx))

	filmPos := core.NewVec2(float64(col)+rng.NextFloat(), float64(row)+rng.NextFloat())
	camSample := t.scene.Camera.GenerateRay(filmPos, rng)

	handler := &pathTracerHandler{parent: t, rng: rng}
	origin := core.SurfacePoint{Position: camSample.Position}
	walk := NewRandomWalk(t.scene, rng, handler, t.maxDepth, false)
	estimate := walk.StartFromSurface(&origin, camSample.Ray, camSample.Weight, camSample.PdfRay, 0)
	if !estimate.IsFinite() {
		return core.Black
	}
	return estimate
}

type pathTracerHandler struct {
	parent *PathTracer
	rng    *core.Rng
}

func (h *pathTracerHandler) OnHit(ray core.Ray, hit *core.SurfacePoint, pdfFromAncestor float64,
	throughput core.Vec3, depth int, toAncestorJacobian float64) core.Vec3 {

	t := h.parent
	if emitter := t.scene.EmitterForPoint(hit); emitter != nil {
		if depth < t.minDepth {
			return core.Black
		}
		radiance := emitter.EmittedRadiance(hit, ray.Direction.Negate())
		if radiance.IsBlack() {
			return core.Black
		}
		misWeight := 1.0
		if depth > 1 {
			// balance against next event estimation, both in area measure
			selectProb := t.scene.EmitterSelectionPmf() * (1 - t.scene.BackgroundProbability())
			pdfNextEvent := emitter.PdfArea(hit) * selectProb * float64(t.numShadowRays)
			misWeight = pdfFromAncestor / (pdfFromAncestor + pdfNextEvent)
		}
		return throughput.MultiplyVec(radiance).Multiply(misWeight)
	}

	if depth < t.maxDepth && depth+1 >= t.minDepth {
		return t.nextEvent(hit, ray.Direction.Negate(), throughput, h.rng)
	}
	return core.Black
}

func (h *pathTracerHandler) OnInvalidHit(ray core.Ray, pdfDirection float64,
	throughput core.Vec3, depth int) core.Vec3 {

	t := h.parent
	if t.scene.Background == nil || depth < t.minDepth {
		return core.Black
	}
	radiance := t.scene.Background.EmittedRadiance(ray.Direction)
	if radiance.IsBlack() {
		return core.Black
	}
	misWeight := 1.0
	if depth > 1 {
		bgProb := t.scene.BackgroundProbability()
		pdfNextEvent := t.scene.Background.DirectionPdf(ray.Direction) * bgProb * float64(t.numShadowRays)
		misWeight = pdfDirection / (pdfDirection + pdfNextEvent)
	}
	return throughput.MultiplyVec(radiance).Multiply(misWeight)
}

func (h *pathTracerHandler) OnContinue(pdfToAncestor float64, depth int) {}

func (t *PathTracer) nextEvent(hit *core.SurfacePoint, outDir, throughput core.Vec3, rng *core.Rng) core.Vec3 {
	total := core.Black
	for i := 0; i < t.numShadowRays; i++ {
		bgProb := t.scene.BackgroundProbability()
		if rng.NextFloat() < bgProb {
			total = total.Add(t.nextEventBackground(hit, outDir, throughput, rng, bgProb))
		} else {
			total = total.Add(t.nextEventEmitter(hit, outDir, throughput, rng, bgProb))
		}
	}
	return total
}

func (t *PathTracer) nextEventEmitter(hit *core.SurfacePoint, outDir, throughput core.Vec3,
	rng *core.Rng, bgProb float64) core.Vec3 {

	emitter, pmf := t.scene.SelectEmitter(rng.NextFloat())
	if emitter == nil {
		return core.Black
	}
	selectProb := pmf * (1 - bgProb)

	point, posPdf := emitter.SampleArea(rng.NextFloat2D())
	if posPdf == 0 {
		return core.Black
	}
	radiance := emitter.EmittedRadiance(&point, hit.Position.Subtract(point.Position).Normalize())
	if radiance.IsBlack() {
		return core.Black
	}
	jacobianToEmitter := core.GeometryJacobian(hit.Position, point.Position, point.Normal)
	if jacobianToEmitter == 0 {
		return core.Black
	}

	dirToLight := point.Position.Subtract(hit.Position).Normalize()
	bsdfCos := hit.Material.EvaluateWithCosine(hit, outDir, dirToLight, false)
	if bsdfCos.IsBlack() {
		return core.Black
	}
	if t.scene.IsOccluded(hit, point.Position) {
		return core.Black
	}

	pdfNextEvent := posPdf * selectProb * float64(t.numShadowRays)
	pdfForward, _ := hit.Material.Pdf(hit, outDir, dirToLight, false)
	pdfHit := pdfForward * jacobianToEmitter

	misWeight := pdfNextEvent / (pdfNextEvent + pdfHit)
	value := throughput.MultiplyVec(radiance).MultiplyVec(bsdfCos).
		Multiply(misWeight * jacobianToEmitter / pdfNextEvent)
	if !value.IsFinite() {
		return core.Black
	}
	return value
}

func (t *PathTracer) nextEventBackground(hit *core.SurfacePoint, outDir, throughput core.Vec3,
	rng *core.Rng, bgProb float64) core.Vec3 {

	sample, weight := t.scene.Background.SampleDirection(rng.NextFloat2D())
	if sample.Pdf == 0 || weight.IsBlack() {
		return core.Black
	}

	bsdfCos := hit.Material.EvaluateWithCosine(hit, outDir, sample.Direction, false)
	if bsdfCos.IsBlack() {
		return core.Black
	}
	if !t.scene.LeavesScene(hit, sample.Direction) {
		return core.Black
	}

	pdfNextEvent := sample.Pdf * bgProb * float64(t.numShadowRays)
	pdfForward, _ := hit.Material.Pdf(hit, outDir, sample.Direction, false)

	misWeight := pdfNextEvent / (pdfNextEvent + pdfForward)
	value := throughput.MultiplyVec(weight).MultiplyVec(bsdfCos).
		Multiply(misWeight * sample.Pdf / pdfNextEvent)
	if !value.IsFinite() {
		return core.Black
	}
	return value
}
