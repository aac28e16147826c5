// Package world is an in-process rigid body engine: actors with analytic
// and cooked mesh shapes, a sub-stepped position based solver, fixed
// joints, swept character controllers and a debug line buffer.
//
// The API mirrors a conventional physics SDK. A process creates one
// Foundation, one Physics from it, and any number of Scenes. Actors,
// joints and controllers are created through Physics and added to a Scene.
// A Scene is not safe for concurrent use; Step parallelizes internally.
package world

import (
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
)

var (
	// ErrFoundationInitFailed is returned when the foundation cannot be created.
	ErrFoundationInitFailed = errors.New("foundation init failed")

	// ErrPhysicsInitFailed is returned when the physics object cannot be created.
	ErrPhysicsInitFailed = errors.New("physics init failed")

	// ErrActorCreationFailed is returned when an actor, shape, joint or
	// controller cannot be created or configured.
	ErrActorCreationFailed = errors.New("actor creation failed")

	// ErrSimulationInProgress is returned when the scene is modified or
	// simulated again before FetchResults.
	ErrSimulationInProgress = errors.New("simulation in progress")
)

// foundationLive enforces one foundation per process.
var foundationLive atomic.Bool

// FoundationDesc configures the foundation.
type FoundationDesc struct {
	// Logger receives engine diagnostics. Nil discards them.
	Logger *zap.Logger
	// MaxActors bounds the number of live actors; zero means unbounded.
	MaxActors int
}

// Foundation is the process-wide root object.
type Foundation struct {
	log       *zap.Logger
	maxActors int
	released  bool
}

// CreateFoundation creates the process foundation. Only one may be live.
func CreateFoundation(desc FoundationDesc) (*Foundation, error) {
	if desc.MaxActors < 0 {
		return nil, fmt.Errorf("%w: max actors %d", ErrFoundationInitFailed, desc.MaxActors)
	}
	if !foundationLive.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("%w: a foundation already exists", ErrFoundationInitFailed)
	}
	log := desc.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Foundation{log: log, maxActors: desc.MaxActors}, nil
}

// Release frees the foundation so another may be created.
func (f *Foundation) Release() {
	if f == nil || f.released {
		return
	}
	f.released = true
	foundationLive.Store(false)
}

// TolerancesScale sets the typical object length and speed of the scene.
// Default contact offsets derive from Length.
type TolerancesScale struct {
	Length float64
	Speed  float64
}

// DefaultTolerancesScale returns a scale for meter-sized objects.
func DefaultTolerancesScale() TolerancesScale {
	return TolerancesScale{Length: 1, Speed: 10}
}

// Physics creates actors, shapes, materials and scenes.
type Physics struct {
	foundation *Foundation
	scale      TolerancesScale
	log        *zap.Logger
	actors     int
	nextID     uint32
	released   bool
}

// CreatePhysics creates the physics object.
func (f *Foundation) CreatePhysics(scale TolerancesScale) (*Physics, error) {
	if f == nil || f.released {
		return nil, fmt.Errorf("%w: foundation released", ErrPhysicsInitFailed)
	}
	if !(scale.Length > 0) || !(scale.Speed > 0) {
		return nil, fmt.Errorf("%w: tolerances %+v", ErrPhysicsInitFailed, scale)
	}
	return &Physics{foundation: f, scale: scale, log: f.log.Named("physics")}, nil
}

// TolerancesScale returns the scale the physics object was created with.
func (p *Physics) TolerancesScale() TolerancesScale { return p.scale }

// DefaultContactOffset is the contact offset assigned to new shapes.
func (p *Physics) DefaultContactOffset() float64 { return 0.02 * p.scale.Length }

// Release marks the physics object released.
func (p *Physics) Release() {
	p.released = true
}

// Material holds surface response coefficients.
type Material struct {
	StaticFriction  float64
	DynamicFriction float64
	Restitution     float64
}

// CreateMaterial creates a material. Negative coefficients are clamped to
// zero and restitution to at most one.
func (p *Physics) CreateMaterial(staticFriction, dynamicFriction, restitution float64) *Material {
	m := &Material{
		StaticFriction:  max(0, staticFriction),
		DynamicFriction: max(0, dynamicFriction),
		Restitution:     min(1, max(0, restitution)),
	}
	if *m != (Material{staticFriction, dynamicFriction, restitution}) {
		p.log.Warn("material coefficients clamped",
			zap.Float64("static_friction", staticFriction),
			zap.Float64("dynamic_friction", dynamicFriction),
			zap.Float64("restitution", restitution))
	}
	return m
}

// combine averages two materials.
func combine(a, b *Material) (friction, restitution float64) {
	if a == nil {
		a = &Material{}
	}
	if b == nil {
		b = &Material{}
	}
	return (a.DynamicFriction + b.DynamicFriction) / 2, (a.Restitution + b.Restitution) / 2
}
