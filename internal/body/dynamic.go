package body

import (
	"github.com/Faultbox/physics-samples/pkg/math"
)

// Dynamic is a free body moved only by the simulation. Triangle meshes
// are cooked with a signed distance field so they can collide as concave
// shapes.
type Dynamic struct {
	base
}

// NewDynamic creates a dynamic body at pos and adds it to the scene.
func NewDynamic(sim Simulation, pos math.Vec3, shape Shape, opts Options) (*Dynamic, error) {
	d := &Dynamic{base: newBase(KindDynamic, opts, shape.Mesh)}
	if err := createActor(sim, &d.base, pos, shape, opts, false, false); err != nil {
		return nil, err
	}
	return d, nil
}

// Update pulls the simulated pose.
func (d *Dynamic) Update(float64) {
	d.pullPose()
}
