package renderer

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/avlen/go-bidir-renderer/pkg/core"
)

// FrameBuffer accumulates the radiance estimates of a progressive render.
// Each iteration produces one estimate per pixel (written by a single worker
// through Set) plus light tracer splats at arbitrary film positions (written
// concurrently through Splat). EndIteration folds both into a running mean
// and a Welford variance estimate over iterations.
//
// In deterministic mode splats are buffered and merged in a canonical order
// at the end of the iteration, so repeated runs with the same seeds produce
// bitwise identical images regardless of scheduling.
type FrameBuffer struct {
	width, height int
	deterministic bool

	iterPixel []float64 // camera estimates of the current iteration
	iterSplat []uint64  // atomically accumulated splats, float bits

	mean       []float64
	m2         []float64
	iterations int

	mu      sync.Mutex
	pending []splatRecord
}

type splatRecord struct {
	pixel int
	value core.Vec3
}

// NewFrameBuffer allocates a frame buffer of the given resolution
func NewFrameBuffer(width, height int, deterministic bool) *FrameBuffer {
	n := width * height * 3
	return &FrameBuffer{
		width:         width,
		height:        height,
		deterministic: deterministic,
		iterPixel:     make([]float64, n),
		iterSplat:     make([]uint64, n),
		mean:          make([]float64, n),
		m2:            make([]float64, n),
	}
}

// Width returns the image width in pixels
func (f *FrameBuffer) Width() int { return f.width }

// Height returns the image height in pixels
func (f *FrameBuffer) Height() int { return f.height }

// Iterations returns the number of completed iterations
func (f *FrameBuffer) Iterations() int { return f.iterations }

// StartIteration clears the per-iteration buffers
func (f *FrameBuffer) StartIteration() {
	for i := range f.iterPixel {
		f.iterPixel[i] = 0
		f.iterSplat[i] = 0
	}
	f.pending = f.pending[:0]
}

// Set records the camera estimate for a pixel of the current iteration. Only
// one worker may write a given pixel per iteration.
func (f *FrameBuffer) Set(col, row int, value core.Vec3) {
	if !value.IsFinite() {
		return
	}
	base := (row*f.width + col) * 3
	f.iterPixel[base] = value.X
	f.iterPixel[base+1] = value.Y
	f.iterPixel[base+2] = value.Z
}

// Splat adds a light tracer contribution at a continuous film position.
// Safe for concurrent use; non-finite and off-screen values are dropped.
func (f *FrameBuffer) Splat(x, y float64, value core.Vec3) {
	if !value.IsFinite() {
		return
	}
	col, row := int(x), int(y)
	if col < 0 || col >= f.width || row < 0 || row >= f.height {
		return
	}
	pixel := row*f.width + col

	if f.deterministic {
		f.mu.Lock()
		f.pending = append(f.pending, splatRecord{pixel: pixel, value: value})
		f.mu.Unlock()
		return
	}

	base := pixel * 3
	core.AtomicAddFloat(&f.iterSplat[base], value.X)
	core.AtomicAddFloat(&f.iterSplat[base+1], value.Y)
	core.AtomicAddFloat(&f.iterSplat[base+2], value.Z)
}

// EndIteration folds the iteration's estimates into the running statistics
func (f *FrameBuffer) EndIteration() {
	if f.deterministic {
		f.mergePending()
	}

	n := float64(f.iterations + 1)
	for i := range f.mean {
		value := f.iterPixel[i] + math.Float64frombits(f.iterSplat[i])
		delta := value - f.mean[i]
		f.mean[i] += delta / n
		f.m2[i] += delta * (value - f.mean[i])
	}
	f.iterations++
}

// mergePending accumulates buffered splats in a canonical order, making the
// floating point sums independent of worker scheduling
func (f *FrameBuffer) mergePending() {
	sort.Slice(f.pending, func(i, j int) bool {
		a, b := f.pending[i], f.pending[j]
		if a.pixel != b.pixel {
			return a.pixel < b.pixel
		}
		ax, bx := math.Float64bits(a.value.X), math.Float64bits(b.value.X)
		if ax != bx {
			return ax < bx
		}
		ay, by := math.Float64bits(a.value.Y), math.Float64bits(b.value.Y)
		if ay != by {
			return ay < by
		}
		return math.Float64bits(a.value.Z) < math.Float64bits(b.value.Z)
	})

	for _, rec := range f.pending {
		base := rec.pixel * 3
		f.iterSplat[base] = math.Float64bits(math.Float64frombits(f.iterSplat[base]) + rec.value.X)
		f.iterSplat[base+1] = math.Float64bits(math.Float64frombits(f.iterSplat[base+1]) + rec.value.Y)
		f.iterSplat[base+2] = math.Float64bits(math.Float64frombits(f.iterSplat[base+2]) + rec.value.Z)
	}
}

// Average returns the mean radiance of a pixel over all iterations
func (f *FrameBuffer) Average(col, row int) core.Vec3 {
	base := (row*f.width + col) * 3
	return core.NewVec3(f.mean[base], f.mean[base+1], f.mean[base+2])
}

// Variance returns the per-channel variance of the pixel mean, i.e. the
// sample variance over iterations divided by the iteration count
func (f *FrameBuffer) Variance(col, row int) core.Vec3 {
	n := float64(f.iterations)
	if f.iterations < 2 {
		return core.Black
	}
	base := (row*f.width + col) * 3
	scale := 1 / (n * (n - 1))
	return core.NewVec3(f.m2[base]*scale, f.m2[base+1]*scale, f.m2[base+2]*scale)
}

// EncodePNG writes the mean image as gamma-2.2 corrected 8-bit PNG
func (f *FrameBuffer) EncodePNG(w io.Writer) error {
	return encodePNG(w, f.width, f.height, f.Average)
}

// EncodePFM writes the mean image as a little-endian PFM float image
func (f *FrameBuffer) EncodePFM(w io.Writer) error {
	return encodePFM(w, f.width, f.height, f.Average)
}

// WriteToFile writes the mean image; the format is chosen by the file
// extension (.png or .pfm)
func (f *FrameBuffer) WriteToFile(path string) error {
	return writeImageFile(path, f.width, f.height, f.Average)
}

// WriteVarianceToFile writes the per-pixel variance image, format chosen by
// the file extension
func (f *FrameBuffer) WriteVarianceToFile(path string) error {
	return writeImageFile(path, f.width, f.height, f.Variance)
}

func writeImageFile(path string, width, height int, pixel func(col, row int) core.Vec3) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating image file: %w", err)
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		err = encodePNG(file, width, height, pixel)
	case ".pfm":
		err = encodePFM(file, width, height, pixel)
	default:
		err = fmt.Errorf("unsupported image format %q", filepath.Ext(path))
	}
	if err != nil {
		return err
	}
	return file.Close()
}

func encodePNG(w io.Writer, width, height int, pixel func(col, row int) core.Vec3) error {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			c := pixel(col, row).Clamp(0, 1).GammaCorrect(2.2)
			img.Set(col, row, color.RGBA{
				R: uint8(c.X*255 + 0.5),
				G: uint8(c.Y*255 + 0.5),
				B: uint8(c.Z*255 + 0.5),
				A: 255,
			})
		}
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encoding png: %w", err)
	}
	return nil
}

// encodePFM writes a binary PFM image. Rows are stored bottom to top and the
// negative scale marks little-endian floats, per the format convention.
func encodePFM(w io.Writer, width, height int, pixel func(col, row int) core.Vec3) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "PF\n%d %d\n-1.0\n", width, height); err != nil {
		return fmt.Errorf("writing pfm header: %w", err)
	}

	var buf [12]byte
	for row := height - 1; row >= 0; row-- {
		for col := 0; col < width; col++ {
			c := pixel(col, row)
			binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(float32(c.X)))
			binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(c.Y)))
			binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(float32(c.Z)))
			if _, err := bw.Write(buf[:]); err != nil {
				return fmt.Errorf("writing pfm pixels: %w", err)
			}
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing pfm pixels: %w", err)
	}
	return nil
}
