package body

import (
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/Faultbox/physics-samples/internal/physics"
	"github.com/Faultbox/physics-samples/internal/physics/world"
	"github.com/Faultbox/physics-samples/pkg/math"
)

// Driver produces the offset of a kinematic body from its origin.
type Driver interface {
	Advance(dt float64) math.Vec3
}

// Kinematic is moved only by explicit targets; gravity and contacts never
// move it. Triangle meshes need no distance field.
type Kinematic struct {
	base
	origin math.Vec3
	driver Driver
}

// NewKinematic creates a kinematic body at pos and adds it to the scene.
func NewKinematic(sim Simulation, pos math.Vec3, shape Shape, opts Options) (*Kinematic, error) {
	k := &Kinematic{base: newBase(KindKinematic, opts, shape.Mesh), origin: pos}
	if err := createActor(sim, &k.base, pos, shape, opts, false, true); err != nil {
		return nil, err
	}
	return k, nil
}

// SetDriver attaches a driver that moves the body every Update. Nil
// leaves the body where it is.
func (k *Kinematic) SetDriver(d Driver) { k.driver = d }

// MoveTo sets where the body will be after the next step.
func (k *Kinematic) MoveTo(pos math.Vec3, rot math.Quat) error {
	if k.state != StateCreated {
		return ErrReleased
	}
	return k.actor.SetKinematicTarget(world.Pose{
		P: mgl64.Vec3{float64(pos.X), float64(pos.Y), float64(pos.Z)},
		Q: mgl64.Quat{W: float64(rot.W), V: mgl64.Vec3{float64(rot.X), float64(rot.Y), float64(rot.Z)}}.Normalize(),
	})
}

// Update pulls the pose of the last step, then schedules the driver's
// next target.
func (k *Kinematic) Update(dt float64) {
	k.pullPose()
	if k.driver == nil || k.state != StateCreated {
		return
	}
	target := k.origin.Add(k.driver.Advance(dt))
	if err := k.actor.SetKinematicTarget(physics.FromRender(target)); err != nil {
		k.log.Warn("kinematic target rejected", zap.Error(err))
	}
}
