// Package body provides the simulated bodies of a scene: free dynamic,
// kinematic and character controlled bodies plus static geometry and the
// ground plane. Each body owns one simulation actor or controller and a
// render transform rebuilt from the simulation pose on every Update.
package body

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Faultbox/physics-samples/internal/logger"
	"github.com/Faultbox/physics-samples/internal/physics"
	"github.com/Faultbox/physics-samples/internal/physics/cooking"
	"github.com/Faultbox/physics-samples/internal/physics/world"
	"github.com/Faultbox/physics-samples/pkg/geometry"
	"github.com/Faultbox/physics-samples/pkg/math"
)

// Kind identifies the body variant.
type Kind int

const (
	KindGround Kind = iota
	KindStatic
	KindDynamic
	KindKinematic
	KindCharacter
)

func (k Kind) String() string {
	switch k {
	case KindGround:
		return "ground"
	case KindStatic:
		return "static"
	case KindDynamic:
		return "dynamic"
	case KindKinematic:
		return "kinematic"
	case KindCharacter:
		return "character"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// State is the lifecycle state of a body.
type State int

const (
	StateUninitialized State = iota
	StateCreated
	StateDestroyed
)

// ErrReleased is returned when a released body is driven.
var ErrReleased = errors.New("body released")

// Simulation is the part of the physics stepper bodies use.
type Simulation interface {
	CreateMaterial(staticFriction, dynamicFriction, restitution float64) *world.Material
	CreateActor(desc physics.ActorDesc) (*world.Actor, error)
	AddActorToScene(a *world.Actor) error
	CreateGround(mat *world.Material) (*world.Actor, error)
	CreateController(desc world.ControllerDesc) (*world.Controller, error)
	Gravity() mgl64.Vec3
}

// Body is a simulated object with a render mesh and transform.
type Body interface {
	ID() uuid.UUID
	Name() string
	Kind() Kind
	State() State
	// Update pulls the simulation pose and rebuilds the render transform.
	Update(dt float64)
	World() math.Mat4
	Position() math.Vec3
	Color() [4]float32
	Mesh() *geometry.MeshData
	// Actor returns the simulation actor; for characters, the controller
	// proxy.
	Actor() *world.Actor
	Release()
}

// Shape selects the render mesh and collision shape of a body.
type Shape struct {
	Kind cooking.Kind
	// HalfExtents sizes a box.
	HalfExtents math.Vec3
	// Mesh is the render mesh and, for triangle meshes, the collision mesh.
	Mesh *geometry.MeshData
}

// BoxShape returns a box shape with the given half extents.
func BoxShape(half math.Vec3) Shape {
	return Shape{Kind: cooking.KindBox, HalfExtents: half}
}

// MeshShape returns a triangle mesh shape cooked from m.
func MeshShape(m *geometry.MeshData) Shape {
	return Shape{Kind: cooking.KindTriangleMesh, Mesh: m}
}

// Options configures body creation.
type Options struct {
	Name  string
	Color [4]float32

	StaticFriction  float64
	DynamicFriction float64
	Restitution     float64

	Density       float64
	ContactOffset float64
	RestOffset    float64
	// ScaleCoeff sizes a character's proxy actor.
	ScaleCoeff float64
	Lock       world.LockFlags

	Cooking cooking.Params
}

// DefaultOptions returns the settings used for rigid bodies.
func DefaultOptions() Options {
	return Options{
		Color:           [4]float32{0.8, 0.8, 0.8, 1},
		StaticFriction:  0.4,
		DynamicFriction: 0.4,
		Restitution:     0.4,
		Density:         100,
		ScaleCoeff:      0.8,
		Cooking:         cooking.DefaultParams(),
	}
}

// CharacterOptions returns the settings used for character controllers.
func CharacterOptions() Options {
	o := DefaultOptions()
	o.Color = [4]float32{0.2, 0.6, 1, 1}
	o.StaticFriction, o.DynamicFriction, o.Restitution = 1, 1, 1
	o.Density = 1000
	o.ContactOffset = 0.01
	o.ScaleCoeff = 0.99
	return o
}

// base holds the state shared by every variant.
type base struct {
	id    uuid.UUID
	name  string
	kind  Kind
	state State
	color [4]float32
	mesh  *geometry.MeshData
	world math.Mat4
	pos   math.Vec3
	actor *world.Actor
	log   *zap.Logger
}

func newBase(kind Kind, opts Options, mesh *geometry.MeshData) base {
	id := uuid.New()
	name := opts.Name
	if name == "" {
		name = kind.String()
	}
	return base{
		id:    id,
		name:  name,
		kind:  kind,
		color: opts.Color,
		mesh:  mesh,
		world: math.Identity(),
		log:   logger.Named("body").With(zap.Stringer("id", id), zap.String("name", name)),
	}
}

func (b *base) ID() uuid.UUID            { return b.id }
func (b *base) Name() string             { return b.name }
func (b *base) Kind() Kind               { return b.kind }
func (b *base) State() State             { return b.state }
func (b *base) World() math.Mat4         { return b.world }
func (b *base) Position() math.Vec3      { return b.pos }
func (b *base) Color() [4]float32        { return b.color }
func (b *base) Mesh() *geometry.MeshData { return b.mesh }
func (b *base) Actor() *world.Actor      { return b.actor }

// created marks the body live and sets its initial transform.
func (b *base) created(pos math.Vec3) {
	b.state = StateCreated
	b.pos = pos
	b.world = math.Translate(pos.X, pos.Y, pos.Z)
	b.log.Debug("body created", zap.Stringer("kind", b.kind))
}

// pullPose rebuilds the render transform from the actor pose, rotating
// about the local origin before translating.
func (b *base) pullPose() {
	if b.state != StateCreated || b.actor == nil {
		return
	}
	pos, rot := physics.ToRender(b.actor.GlobalPose())
	b.pos = pos
	b.world = math.RotationTranslation(rot, pos)
}

func (b *base) Release() {
	if b.state == StateDestroyed {
		return
	}
	if b.actor != nil {
		b.actor.Release()
	}
	b.state = StateDestroyed
	b.log.Debug("body released")
}

// cook builds the collision shape and render mesh for a shape request.
// requireSDF forces a distance field on triangle meshes.
func cook(s Shape, params cooking.Params, requireSDF bool) (cooking.Shape, *geometry.MeshData, error) {
	switch s.Kind {
	case cooking.KindBox:
		p, err := cooking.CookPrimitive(cooking.KindBox, s.HalfExtents)
		if err != nil {
			return nil, nil, err
		}
		mesh := s.Mesh
		if mesh == nil {
			mesh = geometry.Box(s.HalfExtents)
		}
		return p, mesh, nil
	case cooking.KindTriangleMesh:
		if s.Mesh == nil {
			return nil, nil, fmt.Errorf("%w: no mesh", cooking.ErrCookingFailed)
		}
		if requireSDF && params.SDF == nil {
			sdf := cooking.DefaultSDFParams()
			params.SDF = &sdf
		}
		m, err := cooking.CookConcaveMesh(s.Mesh, params)
		if err != nil {
			return nil, nil, err
		}
		return m, s.Mesh, nil
	}
	return nil, nil, fmt.Errorf("%w: unsupported body shape %s", cooking.ErrInvalidDimensions, s.Kind)
}

func (o Options) material(sim Simulation) *world.Material {
	return sim.CreateMaterial(o.StaticFriction, o.DynamicFriction, o.Restitution)
}

// createActor cooks s, creates the actor and adds it to the scene.
func createActor(sim Simulation, b *base, pos math.Vec3, s Shape, opts Options, static, kinematic bool) error {
	shape, mesh, err := cook(s, opts.Cooking, !static && !kinematic)
	if err != nil {
		return fmt.Errorf("cooking %s: %w", b.name, err)
	}
	b.mesh = mesh

	a, err := sim.CreateActor(physics.ActorDesc{
		Name:          b.name,
		Shape:         shape,
		Pose:          physics.FromRender(pos),
		Static:        static,
		Kinematic:     kinematic,
		Material:      opts.material(sim),
		Density:       opts.Density,
		ContactOffset: opts.ContactOffset,
		RestOffset:    opts.RestOffset,
		Lock:          opts.Lock,
	})
	if err != nil {
		return fmt.Errorf("creating %s: %w", b.name, err)
	}
	if err := sim.AddActorToScene(a); err != nil {
		a.Release()
		return fmt.Errorf("adding %s: %w", b.name, err)
	}
	a.UserData = b.id
	b.actor = a
	b.created(pos)
	return nil
}
