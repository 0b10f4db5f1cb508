package integrator

import (
	"math"

	"github.com/avlen/go-bidir-renderer/pkg/core"
	"github.com/avlen/go-bidir-renderer/pkg/lights"
	"github.com/avlen/go-bidir-renderer/pkg/scene"
)

// Config controls the vertex cache bidirectional integrator. Depths count
// path edges: a full path of MaxDepth edges has MaxDepth-1 surface bounces.
type Config struct {
	// MinDepth suppresses contributions of shorter paths (in edges)
	MinDepth int
	// MaxDepth limits the number of edges in any full path
	MaxDepth int

	// NumLightPaths is the number of light subpaths per iteration; zero
	// selects one per pixel
	NumLightPaths int
	// NumConnections is the number of cached vertices connected to every
	// camera vertex
	NumConnections int
	// NumShadowRays is the number of next event samples per camera vertex
	NumShadowRays int

	// EnableHitting accumulates emitters found by the camera walk itself
	EnableHitting bool
	// EnableConnections enables camera-to-cache vertex connections
	EnableConnections bool
	// EnableLightTracer splats cached vertices directly onto the film
	EnableLightTracer bool

	// RenderTechniquePyramid additionally records every contribution into a
	// per-technique image, keyed by subpath lengths
	RenderTechniquePyramid bool

	BaseSeedCamera uint64
	BaseSeedLight  uint64
}

// DefaultConfig returns the settings used by the test scenes
func DefaultConfig() Config {
	return Config{
		MinDepth:          1,
		MaxDepth:          5,
		NumConnections:    1,
		NumShadowRays:     1,
		EnableHitting:     true,
		EnableConnections: true,
		EnableLightTracer: true,
		BaseSeedCamera:    0xC030114,
		BaseSeedLight:     0x13C0FEFE,
	}
}

// Film receives light tracer contributions at arbitrary film positions
type Film interface {
	Splat(x, y float64, value core.Vec3)
}

// VertexCacheBidir is a bidirectional path integrator that caches all light
// subpath vertices of an iteration and connects camera paths to uniformly
// selected cache entries. Emitter hits, next event estimation, vertex
// connections and light tracing are combined with balance-heuristic multiple
// importance sampling.
type VertexCacheBidir struct {
	Config

	scene *scene.Scene
	film  Film

	lightPaths    *LightPathCache
	numLightPaths int

	// Pyramid is non-nil when RenderTechniquePyramid is set
	Pyramid *TechniquePyramid
}

// NewVertexCacheBidir prepares the integrator for a scene. The film receives
// light tracer splats; the scene must already be prepared.
func NewVertexCacheBidir(sc *scene.Scene, film Film, config Config) *VertexCacheBidir {
	if config.MaxDepth < 1 {
		config.MaxDepth = 1
	}
	if config.MinDepth < 1 {
		config.MinDepth = 1
	}
	// zero connections or shadow rays disables the technique; the factors of
	// NumConnections and NumShadowRays in the MIS densities vanish with them
	if config.NumConnections < 0 {
		config.NumConnections = 0
	}
	if config.NumShadowRays < 0 {
		config.NumShadowRays = 0
	}

	numLightPaths := config.NumLightPaths
	if numLightPaths <= 0 {
		numLightPaths = sc.Camera.Width() * sc.Camera.Height()
	}

	// light subpaths stop one edge short of the full depth; the last edge is
	// always formed by a connection, a splat, or the camera walk
	lightDepth := config.MaxDepth - 1
	if lightDepth < 1 {
		lightDepth = 1
	}

	v := &VertexCacheBidir{
		Config:        config,
		scene:         sc,
		film:          film,
		numLightPaths: numLightPaths,
		lightPaths:    NewLightPathCache(sc, numLightPaths, lightDepth, config.NumShadowRays, config.BaseSeedLight),
	}
	if config.RenderTechniquePyramid {
		v.Pyramid = NewTechniquePyramid(sc.Camera.Width(), sc.Camera.Height(), config.MaxDepth)
	}
	return v
}

// StartIteration clears the light vertex cache for a new iteration
func (v *VertexCacheBidir) StartIteration(iteration uint32) {
	v.lightPaths.StartIteration()
}

// LightPathCount returns the number of light subpaths traced per iteration
func (v *VertexCacheBidir) LightPathCount() int {
	return v.numLightPaths
}

// TraceLightPath traces one light subpath into the cache. Safe to call
// concurrently for distinct indices.
func (v *VertexCacheBidir) TraceLightPath(idx int, iteration uint32) {
	v.lightPaths.TracePath(idx, iteration)
}

// FinishLightPaths rebuilds the vertex selector once all paths are traced
func (v *VertexCacheBidir) FinishLightPaths() {
	v.lightPaths.FinishIteration()
}

// CachedVertexCount returns the number of vertices to splat this iteration
func (v *VertexCacheBidir) CachedVertexCount() int {
	if !v.EnableLightTracer {
		return 0
	}
	return v.lightPaths.Selector.Count()
}

// SplatLightVertex connects one cached vertex to the camera and splats the
// weighted contribution onto the film. Safe to call concurrently for
// distinct flat indices.
func (v *VertexCacheBidir) SplatLightVertex(flatIdx int, iteration uint32) {
	vertex := v.lightPaths.Cache.Vertex(v.lightPaths.Selector.FlatToID(flatIdx))
	depth := int(vertex.Depth)
	if depth == 0 || depth+1 > v.MaxDepth || depth+1 < v.MinDepth {
		return
	}

	rng := core.NewRng(v.BaseSeedLight, core.HashSeed(uint64(iteration), 0x5F1A7), uint64(flatIdx))
	response := v.scene.Camera.SampleResponse(&vertex.Point, rng)
	if !response.IsValid() {
		return
	}
	if v.scene.IsOccluded(&vertex.Point, response.Position) {
		return
	}

	dirToCam := response.Position.Subtract(vertex.Point.Position).Normalize()
	ancestor := v.lightPaths.Cache.Vertex(vertex.AncestorID)
	dirToAncestor := ancestor.Point.Position.Subtract(vertex.Point.Position).Normalize()

	bsdfCos := vertex.Point.Material.EvaluateWithCosine(&vertex.Point, dirToAncestor, dirToCam, true)
	if bsdfCos.IsBlack() {
		return
	}

	// density of the camera walk continuing from this vertex to its ancestor
	pdfForward, _ := vertex.Point.Material.Pdf(&vertex.Point, dirToCam, dirToAncestor, true)
	pdfReverse := pdfForward * v.jacobianToAncestor(vertex, ancestor)

	pdfNextEvent := 0.0
	if depth == 1 {
		pdfNextEvent = ancestor.PdfNextEventAncestor
	}

	misWeight := v.lightTracerMis(vertex, response.PdfEmit, pdfReverse, pdfNextEvent)
	value := vertex.Weight.MultiplyVec(bsdfCos).MultiplyVec(response.Weight).
		Multiply(misWeight / float64(v.numLightPaths))
	if !value.IsFinite() {
		return
	}

	v.film.Splat(response.Pixel.X, response.Pixel.Y, value)
	v.recordTechnique(0, depth+1, response.Pixel.X, response.Pixel.Y, value, misWeight)
}

// RenderPixel estimates the radiance of one pixel sample by tracing a camera
// path and applying all enabled techniques at each vertex
func (v *VertexCacheBidir) RenderPixel(col, row int, iteration uint32) core.Vec3 {
	pixelIdx := row*v.scene.Camera.Width() + col
	rng := core.NewRng(v.BaseSeedCamera, uint64(iteration), uint64(pixelIdx))

	filmPos := core.NewVec2(float64(col)+rng.NextFloat(), float64(row)+rng.NextFloat())
	camSample := v.scene.Camera.GenerateRay(filmPos, rng)

	handler := &cameraWalkHandler{parent: v, rng: rng}
	handler.path.Reset(filmPos)

	// the pinhole is a point-like walk origin: zero normal, unit jacobians
	origin := core.SurfacePoint{Position: camSample.Position}
	walk := NewRandomWalk(v.scene, rng, handler, v.MaxDepth, false)
	estimate := walk.StartFromSurface(&origin, camSample.Ray, camSample.Weight, camSample.PdfRay, 0)
	if !estimate.IsFinite() {
		return core.Black
	}
	return estimate
}

// recordTechnique stores a contribution in the pyramid, undoing the MIS
// weight for the raw image
func (v *VertexCacheBidir) recordTechnique(camLen, lightLen int, x, y float64, value core.Vec3, misWeight float64) {
	if v.Pyramid == nil {
		return
	}
	raw := value
	if misWeight > 0 {
		raw = value.Multiply(1 / misWeight)
	}
	v.Pyramid.Add(camLen, lightLen, x, y, value, raw)
}

// jacobianToAncestor converts a solid-angle density at a cached vertex into
// the measure its ancestor was sampled in: surface area for finite ancestors,
// solid angle (unit jacobian) for background origins.
func (v *VertexCacheBidir) jacobianToAncestor(vertex, ancestor *PathVertex) float64 {
	if ancestor.FromBackground && ancestor.Depth == 0 {
		return 1
	}
	diff := ancestor.Point.Position.Subtract(vertex.Point.Position)
	distSqr := diff.LengthSquared()
	if distSqr == 0 {
		return 0
	}
	if ancestor.Point.Normal.IsBlack() {
		return 1 / distSqr
	}
	return core.GeometryJacobian(vertex.Point.Position, ancestor.Point.Position, ancestor.Point.Normal)
}

// cameraWalkHandler applies the integration techniques along one camera path
type cameraWalkHandler struct {
	parent *VertexCacheBidir
	rng    *core.Rng
	path   CameraPath
}

func (h *cameraWalkHandler) OnHit(ray core.Ray, hit *core.SurfacePoint, pdfFromAncestor float64,
	throughput core.Vec3, depth int, toAncestorJacobian float64) core.Vec3 {

	v := h.parent
	h.path.Vertices = append(h.path.Vertices, PathPdfPair{PdfFromAncestor: pdfFromAncestor})
	h.path.Throughput = throughput

	// emitters carry no material, so the walk ends here on its own
	if emitter := v.scene.EmitterForPoint(hit); emitter != nil {
		if v.EnableHitting && depth >= v.MinDepth {
			return v.onEmitterHit(emitter, hit, ray, &h.path, throughput, toAncestorJacobian)
		}
		return core.Black
	}

	value := core.Black
	outDir := ray.Direction.Negate()
	if v.EnableConnections && depth+2 <= v.MaxDepth {
		value = value.Add(v.bidirConnections(hit, outDir, throughput, &h.path, toAncestorJacobian, h.rng))
	}
	if depth < v.MaxDepth && depth+1 >= v.MinDepth {
		value = value.Add(v.nextEventEstimation(hit, outDir, throughput, &h.path, toAncestorJacobian, h.rng))
	}
	return value
}

func (h *cameraWalkHandler) OnInvalidHit(ray core.Ray, pdfDirection float64,
	throughput core.Vec3, depth int) core.Vec3 {

	v := h.parent
	if v.scene.Background == nil || !v.EnableHitting || depth < v.MinDepth {
		return core.Black
	}
	h.path.Vertices = append(h.path.Vertices, PathPdfPair{PdfFromAncestor: pdfDirection})

	radiance := v.scene.Background.EmittedRadiance(ray.Direction)
	if radiance.IsBlack() {
		return core.Black
	}

	misWeight := 1.0
	if depth > 1 {
		bgProb := v.scene.BackgroundProbability()
		pdfEmit := v.scene.Background.RayPdf(ray.Origin, ray.Direction) * bgProb
		pdfNextEvent := v.scene.Background.DirectionPdf(ray.Direction) * bgProb * float64(v.NumShadowRays)
		misWeight = v.emitterHitMis(&h.path, pdfEmit, pdfNextEvent)
	}

	value := throughput.MultiplyVec(radiance).Multiply(misWeight)
	v.recordTechnique(len(h.path.Vertices), 0, h.path.Pixel.X, h.path.Pixel.Y, value, misWeight)
	return value
}

func (h *cameraWalkHandler) OnContinue(pdfToAncestor float64, depth int) {
	h.path.Vertices[len(h.path.Vertices)-1].PdfToAncestor = pdfToAncestor
}

// onEmitterHit accumulates the radiance of an emitter the camera walk found
// by BSDF sampling
func (v *VertexCacheBidir) onEmitterHit(emitter lights.Emitter, hit *core.SurfacePoint, ray core.Ray,
	path *CameraPath, throughput core.Vec3, toAncestorJacobian float64) core.Vec3 {

	outDir := ray.Direction.Negate()
	radiance := emitter.EmittedRadiance(hit, outDir)
	if radiance.IsBlack() {
		return core.Black
	}

	misWeight := 1.0
	if len(path.Vertices) > 1 {
		selectProb := v.scene.EmitterSelectionPmf() * (1 - v.scene.BackgroundProbability())
		pdfEmit := emitter.PdfRay(hit, outDir) * toAncestorJacobian * selectProb
		pdfNextEvent := emitter.PdfArea(hit) * selectProb * float64(v.NumShadowRays)
		misWeight = v.emitterHitMis(path, pdfEmit, pdfNextEvent)
	}

	value := throughput.MultiplyVec(radiance).Multiply(misWeight)
	v.recordTechnique(len(path.Vertices), 0, path.Pixel.X, path.Pixel.Y, value, misWeight)
	return value
}

// nextEventEstimation connects the current camera vertex to NumShadowRays
// light samples. Each sample divides by the effective density of all of
// them, so the loop sums to the usual single-sample estimator on average.
func (v *VertexCacheBidir) nextEventEstimation(hit *core.SurfacePoint, outDir, throughput core.Vec3,
	path *CameraPath, toAncestorJacobian float64, rng *core.Rng) core.Vec3 {

	total := core.Black
	for i := 0; i < v.NumShadowRays; i++ {
		bgProb := v.scene.BackgroundProbability()
		if rng.NextFloat() < bgProb {
			total = total.Add(v.nextEventBackground(hit, outDir, throughput, path, toAncestorJacobian, rng, bgProb))
		} else {
			total = total.Add(v.nextEventEmitter(hit, outDir, throughput, path, toAncestorJacobian, rng, bgProb))
		}
	}
	return total
}

func (v *VertexCacheBidir) nextEventEmitter(hit *core.SurfacePoint, outDir, throughput core.Vec3,
	path *CameraPath, toAncestorJacobian float64, rng *core.Rng, bgProb float64) core.Vec3 {

	emitter, pmf := v.scene.SelectEmitter(rng.NextFloat())
	if emitter == nil {
		return core.Black
	}
	selectProb := pmf * (1 - bgProb)

	point, posPdf := emitter.SampleArea(rng.NextFloat2D())
	if posPdf == 0 {
		return core.Black
	}

	toHit := hit.Position.Subtract(point.Position)
	radiance := emitter.EmittedRadiance(&point, toHit.Normalize())
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
	if v.scene.IsOccluded(hit, point.Position) {
		return core.Black
	}

	pdfNextEvent := posPdf * selectProb * float64(v.NumShadowRays)
	pdfForward, pdfReverseSA := hit.Material.Pdf(hit, outDir, dirToLight, false)
	pdfHit := pdfForward * jacobianToEmitter
	pdfEmit := emitter.PdfRay(&point, dirToLight.Negate()) *
		core.GeometryJacobian(point.Position, hit.Position, hit.Normal) * selectProb
	pdfReverse := pdfReverseSA * toAncestorJacobian

	misWeight := v.nextEventMis(path, pdfEmit, pdfNextEvent, pdfHit, pdfReverse)
	value := throughput.MultiplyVec(radiance).MultiplyVec(bsdfCos).
		Multiply(misWeight * jacobianToEmitter / pdfNextEvent)
	if !value.IsFinite() {
		return core.Black
	}

	v.recordTechnique(len(path.Vertices), 1, path.Pixel.X, path.Pixel.Y, value, misWeight)
	return value
}

func (v *VertexCacheBidir) nextEventBackground(hit *core.SurfacePoint, outDir, throughput core.Vec3,
	path *CameraPath, toAncestorJacobian float64, rng *core.Rng, bgProb float64) core.Vec3 {

	sample, weight := v.scene.Background.SampleDirection(rng.NextFloat2D())
	if sample.Pdf == 0 || weight.IsBlack() {
		return core.Black
	}

	bsdfCos := hit.Material.EvaluateWithCosine(hit, outDir, sample.Direction, false)
	if bsdfCos.IsBlack() {
		return core.Black
	}
	if !v.scene.LeavesScene(hit, sample.Direction) {
		return core.Black
	}

	pdfNextEvent := sample.Pdf * bgProb * float64(v.NumShadowRays)
	pdfForward, pdfReverseSA := hit.Material.Pdf(hit, outDir, sample.Direction, false)
	pdfHit := pdfForward // stays in solid angle for the background
	pdfEmit := v.scene.Background.RayPdf(hit.Position, sample.Direction.Negate()) * bgProb
	pdfReverse := pdfReverseSA * toAncestorJacobian

	misWeight := v.nextEventMis(path, pdfEmit, pdfNextEvent, pdfHit, pdfReverse)
	value := throughput.MultiplyVec(weight).MultiplyVec(bsdfCos).
		Multiply(misWeight * sample.Pdf / pdfNextEvent)
	if !value.IsFinite() {
		return core.Black
	}

	v.recordTechnique(len(path.Vertices), 1, path.Pixel.X, path.Pixel.Y, value, misWeight)
	return value
}

// bidirConnections connects the current camera vertex to NumConnections
// uniformly selected cache entries
func (v *VertexCacheBidir) bidirConnections(hit *core.SurfacePoint, outDir, throughput core.Vec3,
	path *CameraPath, toAncestorJacobian float64, rng *core.Rng) core.Vec3 {

	selectDensity := v.bidirSelectDensity()
	if selectDensity == 0 {
		return core.Black
	}

	total := core.Black
	camDepth := len(path.Vertices)
	for i := 0; i < v.NumConnections; i++ {
		vertex := v.lightPaths.Selector.Select(rng)
		if vertex == nil || vertex.Depth == 0 {
			continue
		}
		fullDepth := camDepth + int(vertex.Depth) + 1
		if fullDepth > v.MaxDepth || fullDepth < v.MinDepth {
			continue
		}
		total = total.Add(v.connectVertex(hit, outDir, throughput, path, vertex, toAncestorJacobian, selectDensity))
	}
	return total
}

func (v *VertexCacheBidir) connectVertex(hit *core.SurfacePoint, outDir, throughput core.Vec3,
	path *CameraPath, vertex *PathVertex, toAncestorJacobian, selectDensity float64) core.Vec3 {

	delta := vertex.Point.Position.Subtract(hit.Position)
	distSqr := delta.LengthSquared()
	if distSqr == 0 {
		return core.Black
	}
	dir := delta.Multiply(1 / math.Sqrt(distSqr))

	ancestor := v.lightPaths.Cache.Vertex(vertex.AncestorID)
	dirToAncestor := ancestor.Point.Position.Subtract(vertex.Point.Position).Normalize()

	bsdfCosCam := hit.Material.EvaluateWithCosine(hit, outDir, dir, false)
	bsdfCosLight := vertex.Point.Material.EvaluateWithCosine(&vertex.Point, dirToAncestor, dir.Negate(), true)
	if bsdfCosCam.IsBlack() || bsdfCosLight.IsBlack() {
		return core.Black
	}
	if v.scene.IsOccluded(hit, vertex.Point.Position) {
		return core.Black
	}

	camForward, camReverse := hit.Material.Pdf(hit, outDir, dir, false)
	lightForward, lightReverse := vertex.Point.Material.Pdf(&vertex.Point, dirToAncestor, dir.Negate(), true)

	pdfCameraToLight := camForward * core.GeometryJacobian(hit.Position, vertex.Point.Position, vertex.Point.Normal)
	pdfCameraReverse := camReverse * toAncestorJacobian
	pdfLightToCamera := lightForward * core.GeometryJacobian(vertex.Point.Position, hit.Position, hit.Normal)
	pdfLightReverse := lightReverse * v.jacobianToAncestor(vertex, ancestor)

	pdfNextEvent := 0.0
	if vertex.Depth == 1 {
		pdfNextEvent = ancestor.PdfNextEventAncestor
	}

	misWeight := v.bidirConnectMis(path, vertex,
		pdfCameraReverse, pdfCameraToLight, pdfLightReverse, pdfLightToCamera, pdfNextEvent)

	value := throughput.MultiplyVec(vertex.Weight).MultiplyVec(bsdfCosCam).MultiplyVec(bsdfCosLight).
		Multiply(misWeight / (distSqr * selectDensity))
	if !value.IsFinite() {
		return core.Black
	}

	v.recordTechnique(len(path.Vertices), int(vertex.Depth)+1, path.Pixel.X, path.Pixel.Y, value, misWeight)
	return value
}
