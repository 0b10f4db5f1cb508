package integrator

import (
	"github.com/avlen/go-bidir-renderer/pkg/core"
	"github.com/avlen/go-bidir-renderer/pkg/scene"
)

// LightPathCache traces the light subpaths of one iteration and stores their
// vertices in a PathCache. Paths start either on an area emitter or, with
// probability scene.BackgroundProbability, on the background.
type LightPathCache struct {
	Scene    *scene.Scene
	NumPaths int
	MaxDepth int
	BaseSeed uint64

	// NumShadowRays is the number of next event samples the camera side
	// takes per vertex; the cached next event densities include it so the
	// MIS weights compare effective technique densities.
	NumShadowRays int

	Cache    *PathCache
	Selector VertexSelector
}

// NewLightPathCache allocates the cache for the given path budget
func NewLightPathCache(sc *scene.Scene, numPaths, maxDepth, numShadowRays int, baseSeed uint64) *LightPathCache {
	if numShadowRays < 0 {
		numShadowRays = 0
	}
	return &LightPathCache{
		Scene:         sc,
		NumPaths:      numPaths,
		MaxDepth:      maxDepth,
		BaseSeed:      baseSeed,
		NumShadowRays: numShadowRays,
		Cache:         NewPathCache(numPaths, maxDepth+1),
	}
}

// StartIteration clears the previous iteration's paths
func (c *LightPathCache) StartIteration() {
	c.Cache.Clear()
}

// FinishIteration rebuilds the vertex selector once all paths are traced
func (c *LightPathCache) FinishIteration() {
	c.Selector.Build(c.Cache)
}

// TracePath traces light subpath pathIdx of the given iteration. Safe to
// call concurrently for distinct path indices.
func (c *LightPathCache) TracePath(pathIdx int, iteration uint32) {
	rng := core.NewRng(c.BaseSeed, uint64(iteration), uint64(pathIdx))

	if rng.NextFloat() < c.Scene.BackgroundProbability() {
		c.traceBackgroundPath(pathIdx, rng)
	} else {
		c.traceEmitterPath(pathIdx, rng)
	}
}

func (c *LightPathCache) traceEmitterPath(pathIdx int, rng *core.Rng) {
	emitter, pmf := c.Scene.SelectEmitter(rng.NextFloat())
	if emitter == nil {
		return
	}
	selectProb := pmf * (1 - c.Scene.BackgroundProbability())

	sample := emitter.SampleRay(rng.NextFloat2D(), rng.NextFloat2D())
	if sample.Pdf == 0 || sample.Weight.IsBlack() {
		return
	}
	posPdf := emitter.PdfArea(&sample.Origin)

	// pdf of next event estimation re-creating the emitter origin; stored
	// on the root and repeated on depth-2 vertices for the MIS gathers
	nextEventPdf := posPdf * selectProb * float64(c.NumShadowRays)

	rootID := c.Cache.Add(pathIdx, PathVertex{
		Point:                sample.Origin,
		PdfFromAncestor:      posPdf * selectProb,
		PdfNextEventAncestor: nextEventPdf,
		AncestorID:           -1,
		Depth:                0,
	})
	if rootID < 0 {
		return
	}

	handler := &lightWalkHandler{
		cache:        c.Cache,
		pathIdx:      pathIdx,
		ancestorID:   rootID,
		lastID:       -1,
		nextEventPdf: nextEventPdf,
	}

	dirPdf := sample.Pdf / posPdf
	throughput := sample.Weight.Multiply(1 / selectProb)
	walk := NewRandomWalk(c.Scene, rng, handler, c.MaxDepth, true)
	walk.StartFromSurface(&sample.Origin, sample.Origin.SpawnRay(sample.Direction), throughput, dirPdf, 0)
}

func (c *LightPathCache) traceBackgroundPath(pathIdx int, rng *core.Rng) {
	background := c.Scene.Background
	bgProb := c.Scene.BackgroundProbability()

	ray, pdf, weight := background.SampleRay(rng.NextFloat2D(), rng.NextFloat2D())
	pdf *= bgProb
	if pdf == 0 || weight.IsBlack() {
		return
	}
	weight = weight.Multiply(1 / bgProb)

	nextEventPdf := background.DirectionPdf(ray.Direction.Negate()) * bgProb * float64(c.NumShadowRays)

	rootID := c.Cache.Add(pathIdx, PathVertex{
		Point:                core.SurfacePoint{Position: ray.Origin},
		PdfFromAncestor:      pdf,
		PdfNextEventAncestor: nextEventPdf,
		AncestorID:           -1,
		Depth:                0,
		FromBackground:       true,
	})
	if rootID < 0 {
		return
	}

	handler := &lightWalkHandler{
		cache:          c.Cache,
		pathIdx:        pathIdx,
		ancestorID:     rootID,
		lastID:         -1,
		nextEventPdf:   nextEventPdf,
		fromBackground: true,
	}

	walk := NewRandomWalk(c.Scene, rng, handler, c.MaxDepth, true)
	walk.StartFromDistant(ray, weight, pdf, 0)
}

// lightWalkHandler caches every vertex the walk produces. Hits without a
// material (another emitter, which also terminates the walk) are not cached:
// connections and splats need a BSDF to evaluate.
type lightWalkHandler struct {
	cache          *PathCache
	pathIdx        int
	ancestorID     int32
	lastID         int32
	nextEventPdf   float64
	fromBackground bool
	stopped        bool
}

func (h *lightWalkHandler) OnHit(_ core.Ray, hit *core.SurfacePoint, pdfFromAncestor float64,
	throughput core.Vec3, depth int, _ float64) core.Vec3 {

	if h.stopped || hit.Material == nil {
		h.stopped = true
		return core.Black
	}

	vertex := PathVertex{
		Point:           *hit,
		Weight:          throughput,
		PdfFromAncestor: pdfFromAncestor,
		AncestorID:      h.ancestorID,
		Depth:           int32(depth),
		FromBackground:  h.fromBackground,
	}
	if depth == 2 {
		vertex.PdfNextEventAncestor = h.nextEventPdf
	}

	id := h.cache.Add(h.pathIdx, vertex)
	if id < 0 {
		h.stopped = true
		return core.Black
	}
	h.lastID = id
	h.ancestorID = id
	return core.Black
}

func (h *lightWalkHandler) OnInvalidHit(core.Ray, float64, core.Vec3, int) core.Vec3 {
	return core.Black
}

func (h *lightWalkHandler) OnContinue(pdfToAncestor float64, _ int) {
	if !h.stopped && h.lastID >= 0 {
		h.cache.Vertex(h.lastID).PdfReverseAncestor = pdfToAncestor
	}
}
