package world

import (
	"fmt"
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/physics-samples/internal/logger"
)

// SceneDesc configures a scene.
type SceneDesc struct {
	Gravity mgl64.Vec3
	// Workers is the size of the pool used for narrow phase and integration.
	Workers int
	// Substeps splits every Simulate call into equal sub steps.
	Substeps int
	// Iterations is the number of position solver passes per sub step.
	Iterations int
	// MaxDepenetrationVelocity caps the speed at which contacts push
	// overlapping shapes apart.
	MaxDepenetrationVelocity float64
	// MaxJointCorrectionVelocity caps the speed at which joints pull their
	// frames together.
	MaxJointCorrectionVelocity float64
	// MaxAngularVelocity clamps simulated angular velocity.
	MaxAngularVelocity float64
}

// DefaultSceneDesc returns earth gravity and two workers.
func DefaultSceneDesc() SceneDesc {
	return SceneDesc{
		Gravity:                    mgl64.Vec3{0, -9.81, 0},
		Workers:                    2,
		Substeps:                   4,
		Iterations:                 2,
		MaxDepenetrationVelocity:   20,
		MaxJointCorrectionVelocity: 10,
		MaxAngularVelocity:         100,
	}
}

type sceneState int

const (
	stateIdle sceneState = iota
	stateSimulated
)

// Scene holds actors, joints and controllers and advances them in time.
type Scene struct {
	physics *Physics
	desc    SceneDesc
	log     *zap.Logger

	actors      []*Actor
	joints      []*FixedJoint
	controllers []*ControllerManager
	contacts    []*contact

	viz   [visualizationCount]float64
	lines []DebugLine

	state sceneState
	steps uint64
	time  float64
}

// CreateScene creates a scene. Zero counts and velocity limits take their
// defaults; gravity is used as given.
func (p *Physics) CreateScene(desc SceneDesc) (*Scene, error) {
	if p.released {
		return nil, fmt.Errorf("%w: physics released", ErrPhysicsInitFailed)
	}
	def := DefaultSceneDesc()
	if desc.Workers == 0 {
		desc.Workers = def.Workers
	}
	if desc.Substeps == 0 {
		desc.Substeps = def.Substeps
	}
	if desc.Iterations == 0 {
		desc.Iterations = def.Iterations
	}
	if desc.MaxDepenetrationVelocity == 0 {
		desc.MaxDepenetrationVelocity = def.MaxDepenetrationVelocity
	}
	if desc.MaxJointCorrectionVelocity == 0 {
		desc.MaxJointCorrectionVelocity = def.MaxJointCorrectionVelocity
	}
	if desc.MaxAngularVelocity == 0 {
		desc.MaxAngularVelocity = def.MaxAngularVelocity
	}
	if desc.Workers < 1 || desc.Substeps < 1 || desc.Iterations < 1 {
		return nil, fmt.Errorf("%w: scene desc %+v", ErrPhysicsInitFailed, desc)
	}
	for _, g := range desc.Gravity {
		if math.IsNaN(g) || math.IsInf(g, 0) {
			return nil, fmt.Errorf("%w: gravity %v", ErrPhysicsInitFailed, desc.Gravity)
		}
	}
	s := &Scene{physics: p, desc: desc, log: p.log.Named("scene")}
	s.log.Debug("scene created",
		logger.Vec3d("gravity", desc.Gravity),
		zap.Int("workers", desc.Workers),
		zap.Int("substeps", desc.Substeps))
	return s, nil
}

// Gravity returns the scene gravity.
func (s *Scene) Gravity() mgl64.Vec3 { return s.desc.Gravity }

// SetGravity changes the scene gravity.
func (s *Scene) SetGravity(g mgl64.Vec3) { s.desc.Gravity = g }

// Desc returns the effective scene configuration.
func (s *Scene) Desc() SceneDesc { return s.desc }

// Actors returns the actors in insertion order.
func (s *Scene) Actors() []*Actor { return s.actors }

// Joints returns the live joints in creation order.
func (s *Scene) Joints() []*FixedJoint { return s.joints }

// StepCount returns the number of completed simulation steps.
func (s *Scene) StepCount() uint64 { return s.steps }

// Time returns the simulated time in seconds.
func (s *Scene) Time() float64 { return s.time }

// AddActor inserts an actor into the scene.
func (s *Scene) AddActor(a *Actor) error {
	switch {
	case s.state == stateSimulated:
		return ErrSimulationInProgress
	case a == nil || a.released:
		return fmt.Errorf("%w: actor is nil or released", ErrActorCreationFailed)
	case a.scene != nil:
		return fmt.Errorf("%w: actor %q already in a scene", ErrActorCreationFailed, a.Name)
	case len(a.shapes) == 0:
		return fmt.Errorf("%w: actor %q has no shapes", ErrActorCreationFailed, a.Name)
	case a.physics != s.physics:
		return fmt.Errorf("%w: actor belongs to another physics object", ErrActorCreationFailed)
	}
	a.scene = s
	a.prevPose = a.pose
	s.actors = append(s.actors, a)
	s.log.Debug("actor added",
		zap.Uint32("id", a.id),
		zap.String("name", a.Name),
		zap.Stringer("type", a.typ),
		zap.Bool("kinematic", a.kinematic))
	return nil
}

// RemoveActor takes an actor out of the scene and releases its joints.
func (s *Scene) RemoveActor(a *Actor) {
	if a.scene == s {
		s.removeActor(a)
	}
}

func (s *Scene) removeActor(a *Actor) {
	s.actors = slices.DeleteFunc(s.actors, func(x *Actor) bool { return x == a })
	for _, j := range slices.Clone(s.joints) {
		if j.actors[0] == a || j.actors[1] == a {
			j.Release()
		}
	}
	a.scene = nil
}

// Simulate advances the scene by dt. Results are visible once FetchResults
// returns true.
func (s *Scene) Simulate(dt float64) error {
	if s.state == stateSimulated {
		return ErrSimulationInProgress
	}
	if !(dt > 0) || math.IsInf(dt, 0) {
		return fmt.Errorf("invalid time step %v", dt)
	}

	n := s.desc.Substeps
	h := dt / float64(n)
	g := s.desc.Gravity.Len()

	for _, a := range s.actors {
		if a.kinematic {
			a.moveFrom = a.pose
		}
	}

	var contacts []*contact
	for i := 0; i < n; i++ {
		s.integrate(h, float64(i+1)/float64(n))

		contacts = s.detectCollisions()

		for it := 0; it < s.desc.Iterations; it++ {
			for _, c := range contacts {
				c.solvePosition(s.desc.MaxDepenetrationVelocity * h)
			}
			for _, j := range s.joints {
				j.solvePosition(s.desc.MaxJointCorrectionVelocity * h)
			}
		}

		s.updateVelocities(h)

		for _, c := range contacts {
			c.solveVelocity(h, g)
		}
	}

	for _, a := range s.actors {
		if a.kinematic {
			s.finishKinematic(a, dt)
		}
	}

	s.contacts = contacts
	s.steps++
	s.time += dt
	s.state = stateSimulated
	return nil
}

// FetchResults publishes the last step and rebuilds the debug render
// buffer. It reports whether results were available. Simulation runs to
// completion inside Simulate, so block has no effect.
func (s *Scene) FetchResults(block bool) bool {
	if s.state != stateSimulated {
		return false
	}
	s.buildRenderBuffer()
	s.state = stateIdle
	return true
}

// Step simulates dt and fetches the results.
func (s *Scene) Step(dt float64) error {
	if err := s.Simulate(dt); err != nil {
		return err
	}
	s.FetchResults(true)
	return nil
}

// Release removes every actor and joint from the scene.
func (s *Scene) Release() {
	for _, j := range slices.Clone(s.joints) {
		j.Release()
	}
	for _, m := range slices.Clone(s.controllers) {
		m.Release()
	}
	for _, a := range s.actors {
		a.scene = nil
	}
	s.actors = nil
	s.contacts = nil
	s.lines = nil
}

// task runs fn over items on at most workers goroutines.
func task[T any](workers int, items []T, fn func(int, T)) {
	if workers <= 1 || len(items) < 2 {
		for i, it := range items {
			fn(i, it)
		}
		return
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for i, it := range items {
		g.Go(func() error {
			fn(i, it)
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Scene) integrate(h, alpha float64) {
	grav := s.desc.Gravity
	task(s.desc.Workers, s.actors, func(_ int, a *Actor) {
		a.prevPose = a.pose
		switch {
		case a.kinematic:
			if a.target != nil {
				a.pose = Pose{
					P: a.moveFrom.P.Add(a.target.P.Sub(a.moveFrom.P).Mul(alpha)),
					Q: mgl64.QuatSlerp(a.moveFrom.Q, a.target.Q, alpha).Normalize(),
				}
			}
		case a.simulated():
			v := a.linVel
			if !a.DisableGravity {
				v = v.Add(grav.Mul(h))
			}
			v = a.lockLinear(v.Mul(1 / (1 + h*a.LinearDamping)))
			w := a.lockAngular(a.angVel.Mul(1 / (1 + h*a.AngularDamping)))
			a.linVel, a.angVel = v, w
			a.preLinVel, a.preAngVel = v, w
			a.pose.P = a.pose.P.Add(v.Mul(h))
			a.pose.Q = integrateRotation(a.pose.Q, w, h)
		}
	})
}

func (s *Scene) updateVelocities(h float64) {
	maxW := s.desc.MaxAngularVelocity
	for _, a := range s.actors {
		if !a.simulated() {
			continue
		}
		a.linVel = a.lockLinear(a.pose.P.Sub(a.prevPose.P).Mul(1 / h))
		dq := a.pose.Q.Mul(a.prevPose.Q.Conjugate()).Normalize()
		w := dq.V.Mul(2 / h)
		if dq.W < 0 {
			w = w.Mul(-1)
		}
		if l := w.Len(); l > maxW {
			w = w.Mul(maxW / l)
		}
		a.angVel = a.lockAngular(w)
	}
}

// finishKinematic snaps a kinematic actor to its target and records the
// velocity it moved with.
func (s *Scene) finishKinematic(a *Actor, dt float64) {
	if a.target == nil {
		a.linVel, a.angVel = mgl64.Vec3{}, mgl64.Vec3{}
		return
	}
	a.pose = *a.target
	a.linVel = a.target.P.Sub(a.moveFrom.P).Mul(1 / dt)
	dq := a.target.Q.Mul(a.moveFrom.Q.Conjugate()).Normalize()
	w := dq.V.Mul(2 / dt)
	if dq.W < 0 {
		w = w.Mul(-1)
	}
	a.angVel = w
	a.target = nil
}
