package scene

import (
	"errors"
	"fmt"
	"math"

	"github.com/avlen/go-bidir-renderer/pkg/core"
	"github.com/avlen/go-bidir-renderer/pkg/geometry"
	"github.com/avlen/go-bidir-renderer/pkg/lights"
)

// EmitterShape is geometry that can carry an area light: intersectable and
// uniformly sampleable
type EmitterShape interface {
	geometry.Shape
	lights.SurfaceShape
}

// Scene holds everything the integrators need: the shapes, the lights, the
// camera and the ray intersection backend. Call Prepare before rendering.
type Scene struct {
	Camera     core.Camera
	Background core.Background

	shapes         []geometry.Shape
	emitters       []lights.Emitter
	emitterByShape map[int]int

	bvh    *geometry.Bvh
	center core.Vec3
	radius float64
}

// New creates an empty scene
func New() *Scene {
	return &Scene{emitterByShape: make(map[int]int)}
}

// AddShape registers a shape and assigns its scene-wide ID
func (s *Scene) AddShape(shape geometry.Shape) {
	shape.SetID(len(s.shapes))
	s.shapes = append(s.shapes, shape)
}

// AddAreaLight registers a shape together with a diffuse emitter on it
func (s *Scene) AddAreaLight(shape EmitterShape, radiance core.Vec3) *lights.DiffuseArea {
	s.AddShape(shape)
	emitter := lights.NewDiffuseArea(shape, radiance)
	s.emitterByShape[shape.ID()] = len(s.emitters)
	s.emitters = append(s.emitters, emitter)
	return emitter
}

// Prepare validates the scene, builds the acceleration structure and informs
// the background of the scene extent. It must be called before rendering and
// after all shapes are added.
func (s *Scene) Prepare() error {
	if s.Camera == nil {
		return errors.New("scene has no camera")
	}
	if len(s.emitters) == 0 && s.Background == nil {
		return errors.New("scene has no light source: add an emitter or a background")
	}
	for i, shape := range s.shapes {
		if shape.NumPrims() == 0 {
			return fmt.Errorf("shape %d has no primitives", i)
		}
	}

	s.bvh = geometry.NewBvh(s.shapes)
	bounds := s.bvh.Bounds()
	s.center = bounds.Center()
	s.radius = math.Max(bounds.Diagonal().Length()/2, 1e-3)

	if s.Background != nil {
		s.Background.Prepare(s.center, s.radius)
	}
	return nil
}

// Center returns the center of the scene bounding sphere
func (s *Scene) Center() core.Vec3 { return s.center }

// Radius returns the radius of the scene bounding sphere
func (s *Scene) Radius() float64 { return s.radius }

// Trace implements core.Intersector
func (s *Scene) Trace(ray core.Ray) (core.SurfacePoint, bool) {
	return s.bvh.Trace(ray)
}

// IsOccluded implements core.Intersector
func (s *Scene) IsOccluded(from *core.SurfacePoint, target core.Vec3) bool {
	return s.bvh.IsOccluded(from, target)
}

// LeavesScene implements core.Intersector
func (s *Scene) LeavesScene(from *core.SurfacePoint, direction core.Vec3) bool {
	return s.bvh.LeavesScene(from, direction)
}

// Emitters returns all registered area lights
func (s *Scene) Emitters() []lights.Emitter { return s.emitters }

// EmitterForPoint returns the emitter attached to the shape a surface point
// lies on, or nil
func (s *Scene) EmitterForPoint(point *core.SurfacePoint) lights.Emitter {
	if idx, ok := s.emitterByShape[point.MeshID]; ok {
		return s.emitters[idx]
	}
	return nil
}

// SelectEmitter picks an emitter uniformly from a primary sample
func (s *Scene) SelectEmitter(u float64) (lights.Emitter, float64) {
	n := len(s.emitters)
	if n == 0 {
		return nil, 0
	}
	idx := int(u * float64(n))
	if idx >= n {
		idx = n - 1
	}
	return s.emitters[idx], 1 / float64(n)
}

// EmitterSelectionPmf returns the probability of SelectEmitter picking any
// one emitter
func (s *Scene) EmitterSelectionPmf() float64 {
	if len(s.emitters) == 0 {
		return 0
	}
	return 1 / float64(len(s.emitters))
}

// BackgroundProbability is the chance that a light path starts from the
// background rather than an area light
func (s *Scene) BackgroundProbability() float64 {
	if s.Background == nil {
		return 0
	}
	return 1 / float64(1+len(s.emitters))
}
