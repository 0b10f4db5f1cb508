package integrator

import (
	"github.com/avlen/go-bidir-renderer/pkg/core"
	"github.com/avlen/go-bidir-renderer/pkg/scene"
)

// WalkHandler receives the events of a random walk. OnHit and OnInvalidHit
// return the radiance estimate contributed at that vertex; the walk sums
// them. OnContinue is called after a continuation direction has been sampled
// at the current vertex, with the density of sampling the ancestor from it.
type WalkHandler interface {
	// OnHit is called for every surface intersection. pdfFromAncestor is in
	// surface area measure at the hit; toAncestorJacobian converts a
	// solid-angle density at the hit into area at the ancestor.
	OnHit(ray core.Ray, hit *core.SurfacePoint, pdfFromAncestor float64,
		throughput core.Vec3, depth int, toAncestorJacobian float64) core.Vec3

	// OnInvalidHit is called when the walk escapes the scene. The pdf stays
	// in solid-angle measure since there is no surface to project onto.
	OnInvalidHit(ray core.Ray, pdfDirection float64, throughput core.Vec3, depth int) core.Vec3

	// OnContinue is called before the walk follows a sampled direction.
	// pdfToAncestor is the area density of sampling the current vertex's
	// ancestor from it.
	OnContinue(pdfToAncestor float64, depth int)
}

// RandomWalk traces a subpath through the scene, converting densities
// between measures and delegating all integration decisions to the handler.
// Termination is purely depth-based.
type RandomWalk struct {
	scene            *scene.Scene
	rng              *core.Rng
	handler          WalkHandler
	maxDepth         int
	isOnLightSubpath bool
}

// NewRandomWalk creates a walk of at most maxDepth vertices
func NewRandomWalk(sc *scene.Scene, rng *core.Rng, handler WalkHandler, maxDepth int, isOnLightSubpath bool) *RandomWalk {
	return &RandomWalk{
		scene:            sc,
		rng:              rng,
		handler:          handler,
		maxDepth:         maxDepth,
		isOnLightSubpath: isOnLightSubpath,
	}
}

// StartFromSurface begins the walk with a ray leaving a surface point (an
// emitter sample) or a point-like origin such as the camera pinhole; in the
// latter case `from` carries a zero normal. pdfDirection is the solid-angle
// density of the initial direction (pixel-area density for camera rays).
func (w *RandomWalk) StartFromSurface(from *core.SurfacePoint, ray core.Ray,
	throughput core.Vec3, pdfDirection float64, initialDepth int) core.Vec3 {
	return w.walk(from, false, ray, throughput, pdfDirection, initialDepth)
}

// StartFromDistant begins the walk with a ray emitted by an infinite light.
// The joint ray density is carried to the first hit unconverted and the
// jacobian back to the origin is one.
func (w *RandomWalk) StartFromDistant(ray core.Ray, throughput core.Vec3,
	pdfRay float64, initialDepth int) core.Vec3 {
	return w.walk(nil, true, ray, throughput, pdfRay, initialDepth)
}

func (w *RandomWalk) walk(prev *core.SurfacePoint, prevDistant bool, ray core.Ray,
	throughput core.Vec3, pdfDirection float64, depth int) core.Vec3 {

	estimate := core.Black
	pdfDir := pdfDirection

	for {
		hit, ok := w.scene.Trace(ray)
		depth++
		if !ok {
			estimate = estimate.Add(w.handler.OnInvalidHit(ray, pdfDir, throughput, depth))
			break
		}

		var pdfFromAncestor, toAncestorJacobian float64
		if prevDistant {
			pdfFromAncestor = pdfDir
			toAncestorJacobian = 1
		} else {
			pdfFromAncestor = pdfDir * core.GeometryJacobian(prev.Position, hit.Position, hit.Normal)
			distSqr := hit.Position.Subtract(prev.Position).LengthSquared()
			if distSqr > 0 {
				toAncestorJacobian = 1 / distSqr
				if !prev.Normal.IsBlack() {
					toAncestorJacobian = core.GeometryJacobian(hit.Position, prev.Position, prev.Normal)
				}
			}
		}

		estimate = estimate.Add(w.handler.OnHit(ray, &hit, pdfFromAncestor, throughput, depth, toAncestorJacobian))

		if depth >= w.maxDepth || hit.Material == nil {
			break
		}

		outDir := ray.Direction.Negate()
		sample, sampled := hit.Material.Sample(&hit, outDir, w.isOnLightSubpath, w.rng.NextFloat2D())
		if !sampled || sample.Pdf == 0 || sample.Weight.IsBlack() {
			break
		}

		w.handler.OnContinue(sample.PdfReverse*toAncestorJacobian, depth)

		throughput = throughput.MultiplyVec(sample.Weight)
		ray = hit.SpawnRay(sample.Direction)
		pdfDir = sample.Pdf
		prevCopy := hit
		prev = &prevCopy
		prevDistant = false
	}

	return estimate
}
