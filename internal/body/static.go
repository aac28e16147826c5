package body

import (
	"fmt"

	"github.com/Faultbox/physics-samples/pkg/geometry"
	"github.com/Faultbox/physics-samples/pkg/math"
)

// Static is immovable collision geometry, such as a cooked level mesh.
type Static struct {
	base
}

// NewStatic creates a static body at pos and adds it to the scene.
func NewStatic(sim Simulation, pos math.Vec3, shape Shape, opts Options) (*Static, error) {
	s := &Static{base: newBase(KindStatic, opts, shape.Mesh)}
	if err := createActor(sim, &s.base, pos, shape, opts, true, false); err != nil {
		return nil, err
	}
	return s, nil
}

// Update pulls the actor pose; it only changes if the actor is teleported.
func (s *Static) Update(float64) {
	s.pullPose()
}

// Ground is the static plane y = 0, drawn as a square grid.
type Ground struct {
	base
}

// NewGround creates the ground plane. halfSize sizes the render mesh only;
// the collision plane is infinite.
func NewGround(sim Simulation, halfSize float32, opts Options) (*Ground, error) {
	if !(halfSize > 0) {
		return nil, fmt.Errorf("ground half size %v must be positive", halfSize)
	}
	if opts.Name == "" {
		opts.Name = "ground"
	}
	g := &Ground{base: newBase(KindGround, opts, geometry.Plane(halfSize, 10))}
	a, err := sim.CreateGround(opts.material(sim))
	if err != nil {
		return nil, fmt.Errorf("creating ground: %w", err)
	}
	a.UserData = g.id
	g.actor = a
	g.created(math.Vec3{})
	return g, nil
}

// Update is a no-op; the ground never moves.
func (g *Ground) Update(float64) {}
