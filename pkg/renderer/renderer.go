package renderer

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/avlen/go-bidir-renderer/pkg/core"
)

// Integrator is the per-iteration work a rendering backend exposes to the
// driver. Light path methods may be trivial (a forward path tracer returns
// zero counts); RenderPixel returns one radiance estimate per call.
type Integrator interface {
	// StartIteration resets per-iteration state
	StartIteration(iteration uint32)

	// LightPathCount returns the number of light subpaths per iteration
	LightPathCount() int

	// TraceLightPath traces one light subpath; called concurrently for
	// distinct indices
	TraceLightPath(idx int, iteration uint32)

	// FinishLightPaths is called once all light subpaths are traced
	FinishLightPaths()

	// CachedVertexCount returns the number of light vertices to splat
	CachedVertexCount() int

	// SplatLightVertex connects one cached vertex to the camera; called
	// concurrently for distinct indices
	SplatLightVertex(idx int, iteration uint32)

	// RenderPixel estimates the radiance of one pixel sample
	RenderPixel(col, row int, iteration uint32) core.Vec3
}

// Config holds the driver settings
type Config struct {
	Width  int
	Height int

	// NumIterations is the number of progressive passes to accumulate
	NumIterations int

	// NumWorkers caps the goroutines per parallel phase; 0 uses all CPUs
	NumWorkers int

	// Deterministic serializes splat accumulation for bitwise reproducible
	// output at some synchronization cost
	Deterministic bool

	// Logger receives per-iteration statistics; nil logs to stderr
	Logger core.Logger

	// Preview, if set, receives the accumulated frame after every iteration
	Preview PreviewSink
}

// Stats summarizes a finished render
type Stats struct {
	Iterations    int
	LightPaths    int
	SplatVertices int
	Elapsed       time.Duration
}

// Renderer runs the progressive loop: per iteration it traces the light
// subpaths, splats the cached vertices, renders every pixel and folds the
// results into the frame buffer.
type Renderer struct {
	config     Config
	integrator Integrator
	frame      *FrameBuffer
	logger     core.Logger
	stats      Stats
}

// New creates a renderer for an integrator. The integrator must be built for
// the same resolution as the config.
func New(config Config, integrator Integrator) (*Renderer, error) {
	if config.Width < 1 || config.Height < 1 {
		return nil, fmt.Errorf("invalid resolution %dx%d", config.Width, config.Height)
	}
	if config.NumIterations < 1 {
		return nil, fmt.Errorf("invalid iteration count %d", config.NumIterations)
	}
	logger := config.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "render: ", log.LstdFlags)
	}
	return &Renderer{
		config:     config,
		integrator: integrator,
		frame:      NewFrameBuffer(config.Width, config.Height, config.Deterministic),
		logger:     logger,
	}, nil
}

// Frame returns the accumulated frame buffer
func (r *Renderer) Frame() *FrameBuffer { return r.frame }

// Stats returns the statistics of the last Render call
func (r *Renderer) Stats() Stats { return r.stats }

// Render runs all iterations, checking the context between phases. On
// cancellation the frame keeps the iterations accumulated so far.
func (r *Renderer) Render(ctx context.Context) error {
	start := time.Now()
	r.stats = Stats{}

	for iter := 0; iter < r.config.NumIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.renderIteration(uint32(iter)); err != nil {
			return fmt.Errorf("iteration %d: %w", iter, err)
		}

		if r.config.Preview != nil {
			if err := r.config.Preview.Update(r.frame, iter); err != nil {
				// preview failures must not kill the render
				r.logger.Printf("preview update failed: %v", err)
			}
		}
	}

	r.stats.Elapsed = time.Since(start)
	r.logger.Printf("finished %d iterations in %v", r.stats.Iterations, r.stats.Elapsed)
	return nil
}

func (r *Renderer) renderIteration(iteration uint32) error {
	iterStart := time.Now()
	r.frame.StartIteration()
	r.integrator.StartIteration(iteration)

	numLightPaths := r.integrator.LightPathCount()
	if numLightPaths > 0 {
		err := ParallelFor(numLightPaths, r.config.NumWorkers, func(i int) {
			r.integrator.TraceLightPath(i, iteration)
		})
		if err != nil {
			return err
		}
		r.integrator.FinishLightPaths()

		numVertices := r.integrator.CachedVertexCount()
		err = ParallelFor(numVertices, r.config.NumWorkers, func(i int) {
			r.integrator.SplatLightVertex(i, iteration)
		})
		if err != nil {
			return err
		}
		r.stats.LightPaths += numLightPaths
		r.stats.SplatVertices += numVertices
	}

	err := ParallelFor(r.config.Height, r.config.NumWorkers, func(row int) {
		for col := 0; col < r.config.Width; col++ {
			r.frame.Set(col, row, r.integrator.RenderPixel(col, row, iteration))
		}
	})
	if err != nil {
		return err
	}

	r.frame.EndIteration()
	r.stats.Iterations++
	r.logger.Printf("iteration %d done in %v (%d light paths)",
		iteration, time.Since(iterStart), numLightPaths)
	return nil
}
