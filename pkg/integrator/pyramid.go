package integrator

import (
	"math"

	"github.com/avlen/go-bidir-renderer/pkg/core"
)

// TechniquePyramid records every sampling technique's contributions into a
// separate image for debugging. Techniques are keyed by the number of camera
// path vertices and the number of light subpath vertices (including the
// point on the emitter); the light tracer lands in (0, n), pure camera paths
// in (n, 0). Each technique keeps two images: the MIS-weighted contribution
// that entered the frame and the raw contribution before weighting, whose
// ratio shows how much a technique is suppressed. Accumulation is atomic, so
// all techniques can splat concurrently.
type TechniquePyramid struct {
	width, height int
	maxLen        int
	weighted      [][]uint64 // [techniqueIndex][pixel*3+channel] float bits
	raw           [][]uint64
}

// NewTechniquePyramid allocates the images per technique for paths of at
// most maxDepth edges
func NewTechniquePyramid(width, height, maxDepth int) *TechniquePyramid {
	maxLen := maxDepth + 2
	alloc := func() [][]uint64 {
		images := make([][]uint64, maxLen*maxLen)
		for i := range images {
			images[i] = make([]uint64, width*height*3)
		}
		return images
	}
	return &TechniquePyramid{
		width:    width,
		height:   height,
		maxLen:   maxLen,
		weighted: alloc(),
		raw:      alloc(),
	}
}

func (t *TechniquePyramid) index(camLen, lightLen int) int {
	return camLen*t.maxLen + lightLen
}

// Add accumulates a technique's contribution at a film position, both the
// MIS-weighted value and the raw value before weighting
func (t *TechniquePyramid) Add(camLen, lightLen int, x, y float64, weighted, raw core.Vec3) {
	if camLen < 0 || lightLen < 0 || camLen >= t.maxLen || lightLen >= t.maxLen {
		return
	}
	col, row := int(x), int(y)
	if col < 0 || col >= t.width || row < 0 || row >= t.height {
		return
	}

	idx := t.index(camLen, lightLen)
	base := (row*t.width + col) * 3
	addVec(t.weighted[idx], base, weighted)
	addVec(t.raw[idx], base, raw)
}

func addVec(img []uint64, base int, value core.Vec3) {
	core.AtomicAddFloat(&img[base], value.X)
	core.AtomicAddFloat(&img[base+1], value.Y)
	core.AtomicAddFloat(&img[base+2], value.Z)
}

func readVec(img []uint64, base int) core.Vec3 {
	return core.NewVec3(
		math.Float64frombits(img[base]),
		math.Float64frombits(img[base+1]),
		math.Float64frombits(img[base+2]),
	)
}

// Value returns the accumulated MIS-weighted sum of one technique at a pixel
func (t *TechniquePyramid) Value(camLen, lightLen, col, row int) core.Vec3 {
	return readVec(t.weighted[t.index(camLen, lightLen)], (row*t.width+col)*3)
}

// RawValue returns the accumulated unweighted sum of one technique at a pixel
func (t *TechniquePyramid) RawValue(camLen, lightLen, col, row int) core.Vec3 {
	return readVec(t.raw[t.index(camLen, lightLen)], (row*t.width+col)*3)
}

// Average returns the weighted technique image normalized by the iteration
// count
func (t *TechniquePyramid) Average(camLen, lightLen, col, row, iterations int) core.Vec3 {
	if iterations < 1 {
		return core.Black
	}
	return t.Value(camLen, lightLen, col, row).Multiply(1 / float64(iterations))
}

// RawAverage returns the raw technique image normalized by the iteration
// count
func (t *TechniquePyramid) RawAverage(camLen, lightLen, col, row, iterations int) core.Vec3 {
	if iterations < 1 {
		return core.Black
	}
	return t.RawValue(camLen, lightLen, col, row).Multiply(1 / float64(iterations))
}

// Total returns the weighted sum over all techniques at a pixel, which
// matches the accumulated frame up to splats that landed on other pixels
func (t *TechniquePyramid) Total(col, row int) core.Vec3 {
	sum := core.Black
	for camLen := 0; camLen < t.maxLen; camLen++ {
		for lightLen := 0; lightLen < t.maxLen; lightLen++ {
			sum = sum.Add(t.Value(camLen, lightLen, col, row))
		}
	}
	return sum
}

// Techniques calls fn for every technique image that received any energy
func (t *TechniquePyramid) Techniques(fn func(camLen, lightLen int)) {
	for camLen := 0; camLen < t.maxLen; camLen++ {
		for lightLen := 0; lightLen < t.maxLen; lightLen++ {
			if t.hasEnergy(camLen, lightLen) {
				fn(camLen, lightLen)
			}
		}
	}
}

func (t *TechniquePyramid) hasEnergy(camLen, lightLen int) bool {
	for _, bits := range t.weighted[t.index(camLen, lightLen)] {
		if bits != 0 {
			return true
		}
	}
	return false
}
