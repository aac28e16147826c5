// Package physics owns the simulation context for one process: the
// foundation, one scene, its controller manager and an optional remote
// debugger. Stepper exposes the narrow verbs bodies need and nothing else.
package physics

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/Faultbox/physics-samples/internal/logger"
	"github.com/Faultbox/physics-samples/internal/physics/cooking"
	"github.com/Faultbox/physics-samples/internal/physics/pvd"
	"github.com/Faultbox/physics-samples/internal/physics/world"
	"github.com/Faultbox/physics-samples/pkg/math"
)

// Visualization holds debug visualization parameters. A zero Scale
// disables the render buffer.
type Visualization struct {
	Scale           float64
	ActorAxes       float64
	CollisionShapes float64
	JointFrames     float64
	ContactPoints   float64
	ContactNormals  float64
}

// Config configures a Stepper.
type Config struct {
	Gravity   mgl64.Vec3
	Workers   int
	Substeps  int
	MaxActors int

	Visualization Visualization

	// DebuggerAddress is the websocket URL of the remote debugger. Empty
	// disables the connection.
	DebuggerAddress string
	DebuggerTimeout time.Duration

	Logger *zap.Logger
}

// DefaultConfig returns earth gravity, two workers and full visualization.
func DefaultConfig() Config {
	d := world.DefaultSceneDesc()
	return Config{
		Gravity:  d.Gravity,
		Workers:  d.Workers,
		Substeps: d.Substeps,
		Visualization: Visualization{
			Scale:           1,
			ActorAxes:       1,
			CollisionShapes: 1,
			JointFrames:     1,
		},
		DebuggerTimeout: pvd.DefaultTimeout,
	}
}

// Stepper advances the simulation synchronously, one Step per frame.
type Stepper struct {
	log        *zap.Logger
	foundation *world.Foundation
	physics    *world.Physics
	scene      *world.Scene
	manager    *world.ControllerManager
	debugger   *pvd.Client

	actors      []*world.Actor
	controllers []*world.Controller
	joints      []*world.FixedJoint
	closed      bool
}

// New creates the foundation, physics and scene. Foundation and physics
// failures are returned wrapped in world.ErrFoundationInitFailed and
// world.ErrPhysicsInitFailed. A debugger that cannot be reached is logged
// and skipped.
func New(ctx context.Context, cfg Config) (*Stepper, error) {
	log := cfg.Logger
	if log == nil {
		log = logger.Named("physics")
	}

	foundation, err := world.CreateFoundation(world.FoundationDesc{Logger: log, MaxActors: cfg.MaxActors})
	if err != nil {
		return nil, err
	}
	phys, err := foundation.CreatePhysics(world.DefaultTolerancesScale())
	if err != nil {
		foundation.Release()
		return nil, err
	}

	desc := world.DefaultSceneDesc()
	desc.Gravity = cfg.Gravity
	desc.Workers = cfg.Workers
	desc.Substeps = cfg.Substeps
	scene, err := phys.CreateScene(desc)
	if err != nil {
		phys.Release()
		foundation.Release()
		return nil, err
	}

	v := cfg.Visualization
	for p, val := range map[world.VisualizationParameter]float64{
		world.VisualizeScale:            v.Scale,
		world.VisualizeActorAxes:        v.ActorAxes,
		world.VisualizeCollisionShapes:  v.CollisionShapes,
		world.VisualizeJointLocalFrames: v.JointFrames,
		world.VisualizeContactPoints:    v.ContactPoints,
		world.VisualizeContactNormals:   v.ContactNormals,
	} {
		scene.SetVisualizationParameter(p, val)
	}

	s := &Stepper{
		log:        log,
		foundation: foundation,
		physics:    phys,
		scene:      scene,
		manager:    world.CreateControllerManager(scene),
	}

	if cfg.DebuggerAddress != "" {
		c, err := pvd.Connect(ctx, pvd.Config{Address: cfg.DebuggerAddress, Timeout: cfg.DebuggerTimeout, Logger: log})
		if err != nil {
			log.Warn("visual debugger unavailable, continuing without it", zap.Error(err))
		} else {
			s.debugger = c
		}
	}

	log.Info("physics initialized",
		logger.Vec3d("gravity", cfg.Gravity),
		zap.Int("workers", scene.Desc().Workers),
		zap.Bool("debugger", s.debugger != nil))
	return s, nil
}

// Physics returns the physics object.
func (s *Stepper) Physics() *world.Physics { return s.physics }

// Scene returns the simulated scene.
func (s *Stepper) Scene() *world.Scene { return s.scene }

// Controllers returns the controller manager.
func (s *Stepper) Controllers() *world.ControllerManager { return s.manager }

// Gravity returns the scene gravity.
func (s *Stepper) Gravity() mgl64.Vec3 { return s.scene.Gravity() }

// DebuggerConnected reports whether frames are streamed to a debugger.
func (s *Stepper) DebuggerConnected() bool { return s.debugger != nil }

// CreateMaterial creates a surface material.
func (s *Stepper) CreateMaterial(staticFriction, dynamicFriction, restitution float64) *world.Material {
	return s.physics.CreateMaterial(staticFriction, dynamicFriction, restitution)
}

// ActorDesc describes an actor to create.
type ActorDesc struct {
	Name  string
	Shape cooking.Shape
	Pose  world.Pose
	// Static creates an immovable actor; Kinematic a dynamic actor that
	// follows targets. They are mutually exclusive.
	Static    bool
	Kinematic bool
	Material  *world.Material
	// Density derives mass and inertia; required for dynamic actors.
	Density float64
	// ContactOffset and RestOffset override the engine defaults when
	// positive.
	ContactOffset  float64
	RestOffset     float64
	LinearDamping  float64
	AngularDamping float64
	Lock           world.LockFlags
}

// CreateActor creates an actor with one shape. The actor is owned by the
// Stepper and released by Close, but is not in the scene until
// AddActorToScene.
func (s *Stepper) CreateActor(desc ActorDesc) (*world.Actor, error) {
	if desc.Shape == nil {
		return nil, fmt.Errorf("%w: no shape", world.ErrActorCreationFailed)
	}
	if desc.Static && desc.Kinematic {
		return nil, fmt.Errorf("%w: actor %q is both static and kinematic", world.ErrActorCreationFailed, desc.Name)
	}

	var a *world.Actor
	var err error
	if desc.Static {
		a, err = s.physics.CreateRigidStatic(desc.Pose)
	} else {
		a, err = s.physics.CreateRigidDynamic(desc.Pose)
	}
	if err != nil {
		return nil, err
	}
	a.Name = desc.Name

	if err := s.configureActor(a, desc); err != nil {
		a.Release()
		return nil, err
	}
	s.actors = append(s.actors, a)
	return a, nil
}

func (s *Stepper) configureActor(a *world.Actor, desc ActorDesc) error {
	if desc.Kinematic {
		if err := a.SetKinematic(true); err != nil {
			return err
		}
	}
	shape, err := a.AttachShape(world.GeometryFromShape(desc.Shape), desc.Material)
	if err != nil {
		return err
	}
	if desc.ContactOffset > 0 {
		if err := shape.SetContactOffset(desc.ContactOffset); err != nil {
			return err
		}
	}
	if desc.RestOffset > 0 {
		if err := shape.SetRestOffset(desc.RestOffset); err != nil {
			return err
		}
	}
	if desc.Static {
		return nil
	}
	if err := a.UpdateMassAndInertia(desc.Density); err != nil {
		return err
	}
	a.LinearDamping = desc.LinearDamping
	if desc.AngularDamping > 0 {
		a.AngularDamping = desc.AngularDamping
	}
	a.SetLockFlags(desc.Lock)
	return nil
}

// CreateGround creates the static ground plane y = 0 and adds it to the
// scene.
func (s *Stepper) CreateGround(mat *world.Material) (*world.Actor, error) {
	a, err := s.physics.CreatePlane(mgl64.Vec3{0, 1, 0}, 0, mat)
	if err != nil {
		return nil, err
	}
	s.actors = append(s.actors, a)
	if err := s.AddActorToScene(a); err != nil {
		return nil, err
	}
	return a, nil
}

// AddActorToScene inserts an actor into the scene.
func (s *Stepper) AddActorToScene(a *world.Actor) error {
	return s.scene.AddActor(a)
}

// CreateController creates a character controller.
func (s *Stepper) CreateController(desc world.ControllerDesc) (*world.Controller, error) {
	c, err := s.manager.CreateController(desc)
	if err != nil {
		return nil, err
	}
	s.controllers = append(s.controllers, c)
	return c, nil
}

// CreateFixedJoint joins two actors at local frames. Joint frames are
// drawn when joint visualization is on.
func (s *Stepper) CreateFixedJoint(a0 *world.Actor, frame0 world.Pose, a1 *world.Actor, frame1 world.Pose) (*world.FixedJoint, error) {
	j, err := world.FixedJointCreate(s.physics, a0, frame0, a1, frame1)
	if err != nil {
		return nil, err
	}
	j.SetConstraintFlag(world.ConstraintVisualization, true)
	s.joints = append(s.joints, j)
	return j, nil
}

// Step advances the simulation by dt and blocks until results are
// available.
func (s *Stepper) Step(dt float64) error {
	if s.closed {
		return errors.New("stepper closed")
	}
	if err := s.scene.Step(dt); err != nil {
		return fmt.Errorf("stepping %v: %w", dt, err)
	}
	if s.debugger != nil {
		s.debugger.Publish(s.scene)
	}
	return nil
}

// GlobalPose returns the pose of a in render precision.
func (s *Stepper) GlobalPose(a *world.Actor) (math.Vec3, math.Quat) {
	return ToRender(a.GlobalPose())
}

// DebugRenderBuffer returns the debug lines of the last step. The slice is
// valid until the next Step.
func (s *Stepper) DebugRenderBuffer() []world.DebugLine {
	return s.scene.RenderBuffer()
}

// Close releases joints, controllers and actors in reverse creation
// order, then the scene, physics and foundation.
func (s *Stepper) Close() {
	if s.closed {
		return
	}
	s.closed = true
	for _, j := range slices.Backward(s.joints) {
		j.Release()
	}
	for _, c := range slices.Backward(s.controllers) {
		c.Release()
	}
	for _, a := range slices.Backward(s.actors) {
		a.Release()
	}
	s.manager.Release()
	s.scene.Release()
	s.physics.Release()
	s.foundation.Release()
	if s.debugger != nil {
		if err := s.debugger.Close(); err != nil {
			s.log.Debug("closing visual debugger", zap.Error(err))
		}
	}
	s.log.Info("physics released")
}

// ToRender converts a simulation pose to render precision.
func ToRender(p world.Pose) (math.Vec3, math.Quat) {
	return math.Vec3{X: float32(p.P[0]), Y: float32(p.P[1]), Z: float32(p.P[2])},
		math.Quat{X: float32(p.Q.V[0]), Y: float32(p.Q.V[1]), Z: float32(p.Q.V[2]), W: float32(p.Q.W)}
}

// FromRender converts a render position to a simulation pose.
func FromRender(p math.Vec3) world.Pose {
	return world.PoseAt(mgl64.Vec3{float64(p.X), float64(p.Y), float64(p.Z)})
}
