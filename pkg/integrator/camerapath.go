// Package integrator implements the path-integration backends: a vertex
// cache bidirectional integrator that combines emitter hits, next event
// estimation, bidirectional connections and light tracing with multiple
// importance sampling, and a classic forward path tracer used as reference.
package integrator

import (
	"github.com/avlen/go-bidir-renderer/pkg/core"
)

// PathPdfPair stores the two sampling densities attached to one camera path
// vertex. PdfFromAncestor is the density of sampling this vertex from its
// ancestor, in surface area measure (solid angle for background vertices).
// PdfToAncestor is the density of sampling the ancestor from this vertex,
// known once the continuation direction has been sampled here; terminal
// vertices leave it zero.
type PathPdfPair struct {
	PdfFromAncestor float64
	PdfToAncestor   float64
}

// CameraPath collects the pdf bookkeeping of a camera subpath while it is
// being traced. Vertices[0] is the primary hit; the camera itself is not a
// vertex. Throughput is the product of BSDF weights up to the last vertex.
type CameraPath struct {
	Pixel      core.Vec2
	Throughput core.Vec3
	Vertices   []PathPdfPair
}

// Reset prepares the path for reuse on the next pixel sample
func (p *CameraPath) Reset(pixel core.Vec2) {
	p.Pixel = pixel
	p.Throughput = core.White
	p.Vertices = p.Vertices[:0]
}
