// Package scene holds the bodies of a running sample: one ground body and
// an ordered list of simulated bodies, plus the joints between them.
package scene

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Faultbox/physics-samples/internal/body"
	"github.com/Faultbox/physics-samples/internal/logger"
	"github.com/Faultbox/physics-samples/internal/physics"
	"github.com/Faultbox/physics-samples/internal/physics/world"
	"github.com/Faultbox/physics-samples/pkg/math"
)

var (
	// ErrSealed is returned when the topology changes after the first update.
	ErrSealed = errors.New("scene: registry sealed")
	// ErrNotRegistered is returned for a body the registry does not hold.
	ErrNotRegistered = errors.New("scene: body not registered")
	// ErrJointBody is returned when a joint names a body that cannot be jointed.
	ErrJointBody = errors.New("scene: joints connect dynamic or kinematic bodies only")
)

// Simulation creates joints between body actors.
type Simulation interface {
	CreateFixedJoint(a0 *world.Actor, frame0 world.Pose, a1 *world.Actor, frame1 world.Pose) (*world.FixedJoint, error)
}

// Registry is the set of bodies of one scene. Insertion order is update
// and render order, and bodies are never removed while the scene runs.
type Registry struct {
	sim    Simulation
	ground body.Body
	bodies []body.Body
	joints []*world.FixedJoint

	buffers map[uuid.UUID]meshBuffers
	sealed  bool
	log     *zap.Logger
}

// New creates a registry around the scene's ground body. A nil log uses
// the package logger.
func New(sim Simulation, ground body.Body, log *zap.Logger) (*Registry, error) {
	if ground == nil || ground.State() != body.StateCreated {
		return nil, errors.New("scene: ground body required")
	}
	if log == nil {
		log = logger.Named("scene")
	}
	return &Registry{
		sim:     sim,
		ground:  ground,
		buffers: make(map[uuid.UUID]meshBuffers),
		log:     log,
	}, nil
}

// Ground returns the ground body.
func (r *Registry) Ground() body.Body { return r.ground }

// Bodies returns the registered bodies in insertion order, ground excluded.
func (r *Registry) Bodies() []body.Body { return slices.Clone(r.bodies) }

// Len returns the number of registered bodies, ground excluded.
func (r *Registry) Len() int { return len(r.bodies) }

// Joints returns the joints in creation order.
func (r *Registry) Joints() []*world.FixedJoint { return slices.Clone(r.joints) }

// Find returns the body with the given id, or nil.
func (r *Registry) Find(id uuid.UUID) body.Body {
	if r.ground.ID() == id {
		return r.ground
	}
	for _, b := range r.bodies {
		if b.ID() == id {
			return b
		}
	}
	return nil
}

// Add appends a body.
func (r *Registry) Add(b body.Body) error {
	if r.sealed {
		return ErrSealed
	}
	if b == nil || b.State() != body.StateCreated {
		return fmt.Errorf("scene: adding body in state %v", stateOf(b))
	}
	if r.Find(b.ID()) != nil {
		return fmt.Errorf("scene: body %s added twice", b.Name())
	}
	r.bodies = append(r.bodies, b)
	r.log.Debug("body added", zap.String("name", b.Name()), zap.Stringer("kind", b.Kind()))
	return nil
}

// Try adds the result of a body constructor. A failed creation is logged
// and the body left out of the scene; the returned body is then nil.
func (r *Registry) Try(b body.Body, err error) body.Body {
	if err != nil {
		r.log.Error("body skipped", zap.Error(err))
		return nil
	}
	if err := r.Add(b); err != nil {
		r.log.Error("body skipped", zap.String("name", b.Name()), zap.Error(err))
		return nil
	}
	return b
}

// AddFixedJoint joins two registered bodies at local frames given as
// offsets from each body's origin.
func (r *Registry) AddFixedJoint(a, b body.Body, frameA, frameB math.Vec3) (*world.FixedJoint, error) {
	if r.sealed {
		return nil, ErrSealed
	}
	for _, x := range []body.Body{a, b} {
		if x == nil {
			return nil, ErrNotRegistered
		}
		if k := x.Kind(); k != body.KindDynamic && k != body.KindKinematic {
			return nil, fmt.Errorf("%w: %s is %s", ErrJointBody, x.Name(), k)
		}
		if !slices.Contains(r.bodies, x) {
			return nil, fmt.Errorf("%w: %s", ErrNotRegistered, x.Name())
		}
	}
	j, err := r.sim.CreateFixedJoint(a.Actor(), physics.FromRender(frameA), b.Actor(), physics.FromRender(frameB))
	if err != nil {
		return nil, fmt.Errorf("joining %s and %s: %w", a.Name(), b.Name(), err)
	}
	r.joints = append(r.joints, j)
	return j, nil
}

// Update pulls every body's pose after a step: the ground first, then the
// bodies in insertion order. The first call seals the registry.
func (r *Registry) Update(dt float64) {
	r.sealed = true
	r.ground.Update(dt)
	for _, b := range r.bodies {
		b.Update(dt)
	}
}

// Sealed reports whether the registry has started updating.
func (r *Registry) Sealed() bool { return r.sealed }

// Release releases joints, then bodies in reverse order, then the ground,
// and frees the device buffers uploaded for them.
func (r *Registry) Release() {
	for _, j := range slices.Backward(r.joints) {
		j.Release()
	}
	r.joints = nil
	for _, b := range slices.Backward(r.bodies) {
		b.Release()
	}
	r.ground.Release()
	r.sealed = true
	for _, bufs := range r.buffers {
		bufs.free()
	}
	clear(r.buffers)
}

func stateOf(b body.Body) body.State {
	if b == nil {
		return body.StateUninitialized
	}
	return b.State()
}
