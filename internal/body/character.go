package body

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/Faultbox/physics-samples/internal/physics/world"
	"github.com/Faultbox/physics-samples/pkg/geometry"
	"github.com/Faultbox/physics-samples/pkg/math"
)

// skin pads the controller volume around the render box.
const skin = 0.01

// DefaultMinDistance is the shortest move a character performs.
const DefaultMinDistance = 0.001

// Character is driven by a box controller. Each Update requests a move
// under gravity plus the walk velocity; the controller resolves collisions
// and the body follows its position. Characters have no orientation.
//
// Character answers the controller's behavior queries: it rides and slides
// on shapes, and neither on other controllers nor on obstacles.
type Character struct {
	base
	controller *world.Controller
	gravity    mgl64.Vec3
	walk       mgl64.Vec3

	// MinDistance is passed to the controller move.
	MinDistance float64
	// Filters restrict what blocks the character.
	Filters world.ControllerFilters

	flags world.CollisionFlags
}

// NewCharacter creates a character whose box has the given half extents.
func NewCharacter(sim Simulation, pos math.Vec3, half math.Vec3, opts Options) (*Character, error) {
	if !half.Finite() || !half.Positive() {
		return nil, fmt.Errorf("invalid character extents %v", half)
	}
	c := &Character{
		base:        newBase(KindCharacter, opts, geometry.Box(half)),
		gravity:     sim.Gravity(),
		MinDistance: DefaultMinDistance,
	}

	desc := &world.BoxControllerDesc{
		ControllerDescBase: world.DefaultControllerDescBase(),
		HalfHeight:         float64(half.Y) + skin,
		HalfSideExtent:     float64(half.X) + skin,
		HalfForwardExtent:  float64(half.Z) + skin,
	}
	desc.Position = mgl64.Vec3{float64(pos.X), float64(pos.Y), float64(pos.Z)}
	desc.Material = opts.material(sim)
	desc.Density = opts.Density
	if opts.ContactOffset > 0 {
		desc.ContactOffset = opts.ContactOffset
	}
	if opts.ScaleCoeff > 0 {
		desc.ScaleCoeff = opts.ScaleCoeff
	}
	desc.Behavior = c
	desc.UserData = c.id

	ctrl, err := sim.CreateController(desc)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", c.name, err)
	}
	c.controller = ctrl
	c.actor = ctrl.Actor()
	c.created(pos)
	return c, nil
}

// Controller returns the underlying controller.
func (c *Character) Controller() *world.Controller { return c.controller }

// SetWalk sets the horizontal velocity added to every move.
func (c *Character) SetWalk(v math.Vec3) {
	c.walk = mgl64.Vec3{float64(v.X), float64(v.Y), float64(v.Z)}
}

// CollisionFlags returns the flags of the last move.
func (c *Character) CollisionFlags() world.CollisionFlags { return c.flags }

// Grounded reports whether the last move ended standing on something.
func (c *Character) Grounded() bool { return c.flags&world.CollisionDown != 0 }

// Update moves the controller by (gravity + walk) * dt and follows it.
func (c *Character) Update(dt float64) {
	if c.state != StateCreated || dt <= 0 {
		return
	}
	disp := c.gravity.Add(c.walk).Mul(dt)
	c.flags = c.controller.Move(disp, c.MinDistance, dt, &c.Filters)

	p := c.controller.Position()
	c.pos = math.Vec3{X: float32(p[0]), Y: float32(p[1]), Z: float32(p[2])}
	c.world = math.Translate(c.pos.X, c.pos.Y, c.pos.Z)
}

// Release releases the controller and its proxy actor.
func (c *Character) Release() {
	if c.state == StateDestroyed {
		return
	}
	c.controller.Release()
	c.state = StateDestroyed
	c.log.Debug("character released", zap.Stringer("flags", c.flags))
}

// ShapeBehavior lets the character ride and slide on any shape.
func (c *Character) ShapeBehavior(*world.Shape, *world.Actor) world.BehaviorFlags {
	return world.BehaviorCanRideOnObject | world.BehaviorSlide
}

// ControllerBehavior reports no special behavior against other controllers.
func (c *Character) ControllerBehavior(*world.Controller) world.BehaviorFlags {
	return 0
}

// ObstacleBehavior reports no special behavior against obstacles.
func (c *Character) ObstacleBehavior(*world.Obstacle) world.BehaviorFlags {
	return 0
}
