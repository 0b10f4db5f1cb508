package scene

import (
	"github.com/avlen/go-bidir-renderer/pkg/core"
	"github.com/avlen/go-bidir-renderer/pkg/geometry"
	"github.com/avlen/go-bidir-renderer/pkg/lights"
	"github.com/avlen/go-bidir-renderer/pkg/material"
)

// NewCornellBox builds the classic box: white floor, ceiling and back wall,
// a red and a green side wall, a ceiling light and two spheres exercising
// the diffuse and metallic ends of the material. All quad normals face
// inward.
func NewCornellBox(width, height int) (*Scene, error) {
	s := New()

	white := material.NewDiffuse(core.NewVec3(0.73, 0.73, 0.73))
	red := material.NewDiffuse(core.NewVec3(0.65, 0.05, 0.05))
	green := material.NewDiffuse(core.NewVec3(0.12, 0.45, 0.15))
	metal := material.NewGeneric(material.GenericParameters{
		BaseColor: material.SolidColor{Value: core.NewVec3(0.9, 0.8, 0.6)},
		Roughness: material.SolidScalar{Value: 0.25},
		Metallic:  1,
	})

	// floor
	s.AddShape(geometry.NewQuad(core.NewVec3(-1, 0, -1), core.NewVec3(0, 0, 2), core.NewVec3(2, 0, 0), white))
	// ceiling
	s.AddShape(geometry.NewQuad(core.NewVec3(-1, 2, -1), core.NewVec3(2, 0, 0), core.NewVec3(0, 0, 2), white))
	// back wall
	s.AddShape(geometry.NewQuad(core.NewVec3(-1, 0, -1), core.NewVec3(2, 0, 0), core.NewVec3(0, 2, 0), white))
	// left wall, red
	s.AddShape(geometry.NewQuad(core.NewVec3(-1, 0, -1), core.NewVec3(0, 2, 0), core.NewVec3(0, 0, 2), red))
	// right wall, green
	s.AddShape(geometry.NewQuad(core.NewVec3(1, 0, -1), core.NewVec3(0, 0, 2), core.NewVec3(0, 2, 0), green))

	s.AddShape(geometry.NewSphere(core.NewVec3(0.45, 0.35, 0.25), 0.35, white))
	s.AddShape(geometry.NewSphere(core.NewVec3(-0.45, 0.3, -0.35), 0.3, metal))

	// ceiling light, facing down
	s.AddAreaLight(
		geometry.NewQuad(core.NewVec3(-0.25, 1.99, -0.25), core.NewVec3(0.5, 0, 0), core.NewVec3(0, 0, 0.5), nil),
		core.NewVec3(18, 13, 5))

	s.Camera = NewPinholeCamera(
		core.NewVec3(0, 1, 3.6), core.NewVec3(0, 1, 0), core.NewVec3(0, 1, 0),
		40, width, height)

	if err := s.Prepare(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewFurnaceTest builds a gray sphere floating in a uniform white
// environment. The sphere is convex, so light reflects off it exactly once
// and its brightness is the directional albedo of the material times the
// environment radiance.
func NewFurnaceTest(width, height int) (*Scene, error) {
	return NewFurnaceTestAlbedo(width, height, 0.5)
}

// NewFurnaceTestAlbedo is NewFurnaceTest with a configurable base color
func NewFurnaceTestAlbedo(width, height int, albedo float64) (*Scene, error) {
	s := New()

	gray := material.NewDiffuse(core.NewVec3(albedo, albedo, albedo))
	s.AddShape(geometry.NewSphere(core.Vec3{}, 1, gray))

	s.Background = lights.NewUniformEnvironment(core.White)
	s.Camera = NewPinholeCamera(
		core.NewVec3(0, 0, 4), core.Vec3{}, core.NewVec3(0, 1, 0),
		30, width, height)

	if err := s.Prepare(); err != nil {
		return nil, err
	}
	return s, nil
}
