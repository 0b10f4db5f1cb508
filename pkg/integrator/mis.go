package integrator

// pathPdfs holds, for one full path of numPdfs vertices, the densities with
// which each vertex would be sampled from the camera side and from the light
// side. Slot i is vertex i, slot 0 the primary camera hit, the last slot the
// point on the emitter (or the background).
//
//	cameraToLight[i]  density of sampling vertex i from vertex i-1
//	lightToCamera[i]  density of sampling vertex i from vertex i+1
//
// All densities are in surface area measure; vertices on the background keep
// solid angle. The gathers accumulate with += into zeroed slots because two
// techniques can produce the same vertex (BSDF reverse sampling and next
// event estimation both create the emitter point); technique-specific values
// assigned afterwards overwrite with =.
type pathPdfs struct {
	cameraToLight []float64
	lightToCamera []float64
}

func newPathPdfs(numPdfs int) pathPdfs {
	return pathPdfs{
		cameraToLight: make([]float64, numPdfs),
		lightToCamera: make([]float64, numPdfs),
	}
}

// gatherCamera copies the recorded camera subpath densities for slots
// 0..lastCameraVertexIdx
func (p *pathPdfs) gatherCamera(path *CameraPath, lastCameraVertexIdx int) {
	for i := 0; i <= lastCameraVertexIdx; i++ {
		p.cameraToLight[i] += path.Vertices[i].PdfFromAncestor
		if i+1 < len(path.Vertices) {
			p.lightToCamera[i] += path.Vertices[i+1].PdfToAncestor
		}
	}
}

// gatherLight walks a cached light subpath from the connection vertex (slot
// lastCameraVertexIdx+1) back to its root, filling the light-side slots
func (p *pathPdfs) gatherLight(cache *PathCache, vertex *PathVertex, lastCameraVertexIdx int) {
	numPdfs := len(p.cameraToLight)
	slot := lastCameraVertexIdx + 1
	for vertex != nil {
		p.lightToCamera[slot] += vertex.PdfFromAncestor
		if slot+1 < numPdfs {
			p.cameraToLight[slot+1] += vertex.PdfReverseAncestor
		}
		if vertex.Depth == 2 && slot+2 < numPdfs {
			p.cameraToLight[slot+2] += vertex.PdfNextEventAncestor
		}

		if vertex.AncestorID < 0 {
			break
		}
		vertex = cache.Vertex(vertex.AncestorID)
		slot++
	}
}

// bidirSelectDensity is the effective per-vertex density of the connection
// technique: NumConnections uniform draws from the cache, normalized by the
// light path count. Zero when the cache is empty.
func (v *VertexCacheBidir) bidirSelectDensity() float64 {
	cacheSize := v.lightPaths.Selector.Count()
	if cacheSize == 0 {
		return 0
	}
	return float64(v.NumConnections) * float64(v.numLightPaths) / float64(cacheSize)
}

// cameraPathReciprocals sums the density ratios of all techniques that
// shorten the camera prefix ending at lastCameraVertexIdx: one connection
// per interior vertex and the light tracer at the primary vertex. Ratios are
// relative to the camera path density over the same slots.
func (v *VertexCacheBidir) cameraPathReciprocals(pdfs pathPdfs, lastCameraVertexIdx int) float64 {
	sum := 0.0
	ratio := 1.0
	selectDensity := v.bidirSelectDensity()
	for i := lastCameraVertexIdx; i > 0; i-- {
		ratio *= pdfs.lightToCamera[i] / pdfs.cameraToLight[i]
		if v.EnableConnections {
			sum += ratio * selectDensity
		}
	}
	if v.EnableLightTracer {
		sum += ratio * pdfs.lightToCamera[0] / pdfs.cameraToLight[0] * float64(v.numLightPaths)
	}
	return sum
}

// lightPathReciprocals sums the density ratios of all techniques that
// shorten the light suffix starting at lastCameraVertexIdx+1, ending with
// next event estimation from the full camera path. Ratios are relative to
// the light path density over the same slots.
func (v *VertexCacheBidir) lightPathReciprocals(pdfs pathPdfs, lastCameraVertexIdx, numPdfs int) float64 {
	sum := 0.0
	ratio := 1.0
	selectDensity := v.bidirSelectDensity()
	for i := lastCameraVertexIdx + 1; i < numPdfs; i++ {
		ratio *= pdfs.cameraToLight[i] / pdfs.lightToCamera[i]
		if i < numPdfs-2 && v.EnableConnections {
			sum += ratio * selectDensity
		}
	}
	sum += ratio
	return sum
}

// emitterHitMis weighs a camera path that found an emitter (or the
// background) by chance. pdfEmit is the joint emission density of the last
// path segment, pdfNextEvent the density with which next event estimation
// would have sampled the emitter point from the second-to-last vertex.
func (v *VertexCacheBidir) emitterHitMis(path *CameraPath, pdfEmit, pdfNextEvent float64) float64 {
	numPdfs := len(path.Vertices)
	if numPdfs == 1 {
		return 1 // directly visible, no competing technique
	}

	pdfs := newPathPdfs(numPdfs)
	pdfs.gatherCamera(path, numPdfs-2)
	pdfs.lightToCamera[numPdfs-2] = pdfEmit

	pdfThis := path.Vertices[numPdfs-1].PdfFromAncestor
	sumReciprocals := 1.0
	sumReciprocals += pdfNextEvent / pdfThis
	sumReciprocals += v.cameraPathReciprocals(pdfs, numPdfs-2) / pdfThis
	return 1 / sumReciprocals
}

// nextEventMis weighs a next event connection from the last camera vertex.
// pdfEmit and pdfHit are the emission and BSDF densities of reaching the
// sampled emitter point along the same segment; pdfReverse is the density of
// sampling the previous camera vertex from the current one, given the
// connection direction.
func (v *VertexCacheBidir) nextEventMis(path *CameraPath, pdfEmit, pdfNextEvent, pdfHit, pdfReverse float64) float64 {
	numPdfs := len(path.Vertices) + 1
	lastCameraVertexIdx := numPdfs - 2

	pdfs := newPathPdfs(numPdfs)
	pdfs.gatherCamera(path, lastCameraVertexIdx)
	pdfs.lightToCamera[lastCameraVertexIdx] = pdfEmit
	if numPdfs > 2 {
		pdfs.lightToCamera[lastCameraVertexIdx-1] = pdfReverse
	}

	sumReciprocals := 1.0
	if v.EnableHitting {
		sumReciprocals += pdfHit / pdfNextEvent
	}
	sumReciprocals += v.cameraPathReciprocals(pdfs, lastCameraVertexIdx) / pdfNextEvent
	return 1 / sumReciprocals
}

// bidirConnectMis weighs a connection between the last camera vertex and a
// cached light vertex. The four pdf parameters are the densities of the two
// connection segments in both directions, already converted to area measure;
// pdfNextEvent is nonzero only for depth-1 light vertices, where the slot
// beyond the connection is the emitter itself.
func (v *VertexCacheBidir) bidirConnectMis(path *CameraPath, lightVertex *PathVertex,
	pdfCameraReverse, pdfCameraToLight, pdfLightReverse, pdfLightToCamera, pdfNextEvent float64) float64 {

	numPdfs := len(path.Vertices) + int(lightVertex.Depth) + 1
	lastCameraVertexIdx := len(path.Vertices) - 1

	pdfs := newPathPdfs(numPdfs)
	pdfs.gatherCamera(path, lastCameraVertexIdx)
	pdfs.gatherLight(v.lightPaths.Cache, lightVertex, lastCameraVertexIdx)

	if lastCameraVertexIdx > 0 {
		pdfs.lightToCamera[lastCameraVertexIdx-1] = pdfCameraReverse
	}
	pdfs.lightToCamera[lastCameraVertexIdx] = pdfLightToCamera
	pdfs.cameraToLight[lastCameraVertexIdx+1] = pdfCameraToLight
	pdfs.cameraToLight[lastCameraVertexIdx+2] = pdfLightReverse + pdfNextEvent

	sumReciprocals := 1.0
	sumReciprocals += (v.cameraPathReciprocals(pdfs, lastCameraVertexIdx) +
		v.lightPathReciprocals(pdfs, lastCameraVertexIdx, numPdfs)) / v.bidirSelectDensity()
	return 1 / sumReciprocals
}

// lightTracerMis weighs a light vertex splatted directly onto the film.
// pdfCamToPrimary is the camera response density at the vertex in area
// measure; pdfReverse the density of the camera path continuing from the
// vertex to its ancestor.
func (v *VertexCacheBidir) lightTracerMis(lightVertex *PathVertex,
	pdfCamToPrimary, pdfReverse, pdfNextEvent float64) float64 {

	numPdfs := int(lightVertex.Depth) + 1

	pdfs := newPathPdfs(numPdfs)
	pdfs.gatherLight(v.lightPaths.Cache, lightVertex, -1)
	pdfs.cameraToLight[0] = pdfCamToPrimary
	if numPdfs > 1 {
		pdfs.cameraToLight[1] = pdfReverse + pdfNextEvent
	}

	sumReciprocals := 1.0
	sumReciprocals += v.lightPathReciprocals(pdfs, -1, numPdfs) / float64(v.numLightPaths)
	return 1 / sumReciprocals
}
