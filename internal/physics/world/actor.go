package world

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

// ActorType distinguishes movable from immovable actors.
type ActorType int

const (
	ActorStatic ActorType = iota
	ActorDynamic
)

func (t ActorType) String() string {
	if t == ActorStatic {
		return "static"
	}
	return "dynamic"
}

// LockFlags restrict motion along world axes.
type LockFlags uint8

const (
	LockLinearX LockFlags = 1 << iota
	LockLinearY
	LockLinearZ
	LockAngularX
	LockAngularY
	LockAngularZ
)

// ShapeFlags control how a shape participates in the scene.
type ShapeFlags uint8

const (
	ShapeSimulation ShapeFlags = 1 << iota
	ShapeVisualization
)

// Shape binds a geometry and material to an actor at a local pose.
type Shape struct {
	actor         *Actor
	geom          Geometry
	material      *Material
	local         Pose
	contactOffset float64
	restOffset    float64
	flags         ShapeFlags
	samples       []mgl64.Vec3
}

// Geometry returns the shape geometry.
func (s *Shape) Geometry() Geometry { return s.geom }

// Actor returns the owning actor.
func (s *Shape) Actor() *Actor { return s.actor }

// Material returns the shape material.
func (s *Shape) Material() *Material { return s.material }

// LocalPose returns the pose relative to the actor.
func (s *Shape) LocalPose() Pose { return s.local }

// SetLocalPose moves the shape relative to its actor.
func (s *Shape) SetLocalPose(p Pose) { s.local = p }

// WorldPose returns the shape pose in the world.
func (s *Shape) WorldPose() Pose { return s.actor.pose.Mul(s.local) }

// ContactOffset returns the distance at which contacts are generated.
func (s *Shape) ContactOffset() float64 { return s.contactOffset }

// RestOffset returns the separation at which the shape comes to rest.
func (s *Shape) RestOffset() float64 { return s.restOffset }

// SetContactOffset sets the contact offset. It must be at least the rest offset.
func (s *Shape) SetContactOffset(v float64) error {
	if math.IsNaN(v) || v < 0 || v < s.restOffset {
		return fmt.Errorf("%w: contact offset %v with rest offset %v", ErrActorCreationFailed, v, s.restOffset)
	}
	s.contactOffset = v
	return nil
}

// SetRestOffset sets the rest offset. It must not exceed the contact offset.
func (s *Shape) SetRestOffset(v float64) error {
	if math.IsNaN(v) || v < 0 || v > s.contactOffset {
		return fmt.Errorf("%w: rest offset %v with contact offset %v", ErrActorCreationFailed, v, s.contactOffset)
	}
	s.restOffset = v
	return nil
}

// SetFlag toggles a shape flag.
func (s *Shape) SetFlag(f ShapeFlags, on bool) {
	if on {
		s.flags |= f
	} else {
		s.flags &^= f
	}
}

// Flags returns the shape flags.
func (s *Shape) Flags() ShapeFlags { return s.flags }

// worldBounds returns the world AABB grown by the contact offset.
func (s *Shape) worldBounds() (lo, hi mgl64.Vec3) {
	llo, lhi := s.geom.bounds()
	if s.geom.Type() == GeometryPlane {
		inf := math.Inf(1)
		return mgl64.Vec3{-inf, -inf, -inf}, mgl64.Vec3{inf, inf, inf}
	}
	pose := s.WorldPose()
	lo = mgl64.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	hi = lo.Mul(-1)
	for i := 0; i < 8; i++ {
		c := mgl64.Vec3{llo[0], llo[1], llo[2]}
		if i&1 != 0 {
			c[0] = lhi[0]
		}
		if i&2 != 0 {
			c[1] = lhi[1]
		}
		if i&4 != 0 {
			c[2] = lhi[2]
		}
		w := pose.Transform(c)
		for a := 0; a < 3; a++ {
			lo[a] = math.Min(lo[a], w[a])
			hi[a] = math.Max(hi[a], w[a])
		}
	}
	m := mgl64.Vec3{s.contactOffset, s.contactOffset, s.contactOffset}
	return lo.Sub(m), hi.Add(m)
}

// Actor is a rigid body. Static actors never move; dynamic actors are
// simulated unless flagged kinematic, in which case they follow targets.
type Actor struct {
	// Name is used in diagnostics only.
	Name string
	// UserData is not touched by the engine.
	UserData any

	id        uint32
	physics   *Physics
	scene     *Scene
	typ       ActorType
	kinematic bool
	shapes    []*Shape

	pose     Pose
	prevPose Pose
	target   *Pose
	moveFrom Pose

	linVel, angVel       mgl64.Vec3
	preLinVel, preAngVel mgl64.Vec3

	mass       float64
	invMass    float64
	inertia    mgl64.Vec3
	invInertia mgl64.Vec3
	lock       LockFlags

	// controller is set on the kinematic proxy of a character controller.
	controller *Controller

	LinearDamping  float64
	AngularDamping float64
	// DisableGravity stops gravity from acting on a dynamic actor.
	DisableGravity bool

	released bool
}

func (p *Physics) newActor(typ ActorType, pose Pose) *Actor {
	p.nextID++
	p.actors++
	if pose.Q.Len() == 0 {
		pose.Q = mgl64.QuatIdent()
	}
	a := &Actor{
		id:             p.nextID,
		physics:        p,
		typ:            typ,
		pose:           pose,
		prevPose:       pose,
		AngularDamping: 0.05,
	}
	if typ == ActorDynamic {
		a.mass, a.invMass = 1, 1
		a.inertia, a.invInertia = mgl64.Vec3{1, 1, 1}, mgl64.Vec3{1, 1, 1}
	}
	return a
}

func (p *Physics) checkCapacity() error {
	if p.released {
		return fmt.Errorf("%w: physics released", ErrActorCreationFailed)
	}
	if limit := p.foundation.maxActors; limit > 0 && p.actors >= limit {
		return fmt.Errorf("%w: actor limit %d reached", ErrActorCreationFailed, limit)
	}
	return nil
}

// CreateRigidDynamic creates a movable actor with unit mass.
func (p *Physics) CreateRigidDynamic(pose Pose) (*Actor, error) {
	if err := p.checkCapacity(); err != nil {
		return nil, err
	}
	if !pose.Valid() {
		return nil, fmt.Errorf("%w: invalid pose %+v", ErrActorCreationFailed, pose)
	}
	return p.newActor(ActorDynamic, pose), nil
}

// CreateRigidStatic creates an immovable actor.
func (p *Physics) CreateRigidStatic(pose Pose) (*Actor, error) {
	if err := p.checkCapacity(); err != nil {
		return nil, err
	}
	if !pose.Valid() {
		return nil, fmt.Errorf("%w: invalid pose %+v", ErrActorCreationFailed, pose)
	}
	return p.newActor(ActorStatic, pose), nil
}

// CreatePlane creates a static plane n·x + d = 0 whose solid side lies
// opposite the normal.
func (p *Physics) CreatePlane(normal mgl64.Vec3, d float64, mat *Material) (*Actor, error) {
	if normal.Len() < 1e-9 {
		return nil, fmt.Errorf("%w: zero plane normal", ErrActorCreationFailed)
	}
	n := normal.Normalize()
	a, err := p.CreateRigidStatic(Pose{P: n.Mul(-d), Q: rotationBetween(mgl64.Vec3{0, 1, 0}, n)})
	if err != nil {
		return nil, err
	}
	a.Name = "plane"
	if _, err := a.AttachShape(PlaneGeometry{}, mat); err != nil {
		return nil, err
	}
	return a, nil
}

// ID returns the actor's unique id within its physics object.
func (a *Actor) ID() uint32 { return a.id }

// Type returns static or dynamic.
func (a *Actor) Type() ActorType { return a.typ }

// Scene returns the scene the actor is in, or nil.
func (a *Actor) Scene() *Scene { return a.scene }

// Shapes returns the attached shapes.
func (a *Actor) Shapes() []*Shape { return a.shapes }

// IsKinematic reports whether the actor follows kinematic targets.
func (a *Actor) IsKinematic() bool { return a.kinematic }

// simulated reports whether the solver moves the actor.
func (a *Actor) simulated() bool {
	return a.typ == ActorDynamic && !a.kinematic
}

// AttachShape creates an exclusive shape on the actor.
func (a *Actor) AttachShape(geom Geometry, mat *Material) (*Shape, error) {
	if a.released {
		return nil, fmt.Errorf("%w: actor released", ErrActorCreationFailed)
	}
	if geom == nil {
		return nil, fmt.Errorf("%w: nil geometry", ErrActorCreationFailed)
	}
	if err := a.checkGeometry(geom, a.kinematic); err != nil {
		return nil, err
	}
	s := &Shape{
		actor:         a,
		geom:          geom,
		material:      mat,
		local:         IdentityPose(),
		contactOffset: a.physics.DefaultContactOffset(),
		flags:         ShapeSimulation | ShapeVisualization,
		samples:       geom.samples(),
	}
	a.shapes = append(a.shapes, s)
	return s, nil
}

func (a *Actor) checkGeometry(geom Geometry, kinematic bool) error {
	switch g := geom.(type) {
	case PlaneGeometry:
		if a.typ != ActorStatic {
			return fmt.Errorf("%w: plane geometry on a dynamic actor", ErrActorCreationFailed)
		}
	case TriangleMeshGeometry:
		if g.Mesh == nil {
			return fmt.Errorf("%w: nil triangle mesh", ErrActorCreationFailed)
		}
		if a.typ == ActorDynamic && !kinematic && !g.Mesh.HasSDF() {
			return fmt.Errorf("%w: triangle mesh without sdf on a simulated dynamic actor", ErrActorCreationFailed)
		}
	case BoxGeometry:
		if !(g.HalfExtents[0] > 0 && g.HalfExtents[1] > 0 && g.HalfExtents[2] > 0) {
			return fmt.Errorf("%w: box extents %v", ErrActorCreationFailed, g.HalfExtents)
		}
	case CapsuleGeometry:
		if !(g.Radius > 0) || !(g.HalfHeight >= 0) {
			return fmt.Errorf("%w: capsule radius %v half height %v", ErrActorCreationFailed, g.Radius, g.HalfHeight)
		}
	}
	return nil
}

// SetKinematic flags a dynamic actor kinematic. Clearing the flag fails if
// an attached mesh cannot be simulated.
func (a *Actor) SetKinematic(on bool) error {
	if a.typ != ActorDynamic {
		return fmt.Errorf("%w: static actors cannot be kinematic", ErrActorCreationFailed)
	}
	if !on {
		for _, s := range a.shapes {
			if err := a.checkGeometry(s.geom, false); err != nil {
				return err
			}
		}
	}
	a.kinematic = on
	if on {
		a.linVel, a.angVel = mgl64.Vec3{}, mgl64.Vec3{}
	} else {
		a.target = nil
	}
	return nil
}

// SetKinematicTarget sets where a kinematic actor will be at the end of the
// next simulation step. The actor moves there with matching velocity.
func (a *Actor) SetKinematicTarget(p Pose) error {
	if !a.kinematic {
		return fmt.Errorf("%w: actor %q is not kinematic", ErrActorCreationFailed, a.Name)
	}
	if !p.Valid() {
		return fmt.Errorf("%w: invalid kinematic target", ErrActorCreationFailed)
	}
	a.target = &p
	return nil
}

// KinematicTarget returns the pending target, if any.
func (a *Actor) KinematicTarget() (Pose, bool) {
	if a.target == nil {
		return Pose{}, false
	}
	return *a.target, true
}

// UpdateMassAndInertia derives mass and diagonal inertia from the attached
// shapes at the given density. Shapes are assumed to share the actor
// origin as their center of mass; local shape offsets are ignored.
func (a *Actor) UpdateMassAndInertia(density float64) error {
	if a.typ != ActorDynamic {
		return nil
	}
	if !(density > 0) || math.IsInf(density, 0) {
		return fmt.Errorf("%w: density %v", ErrActorCreationFailed, density)
	}
	var mass float64
	var inertia mgl64.Vec3
	for _, s := range a.shapes {
		m, i := s.geom.massProperties(density)
		mass += m
		inertia = inertia.Add(i)
	}
	if mass <= 0 {
		return fmt.Errorf("%w: actor %q has no volume", ErrActorCreationFailed, a.Name)
	}
	a.SetMass(mass, inertia)
	return nil
}

// SetMass sets mass and diagonal inertia directly.
func (a *Actor) SetMass(mass float64, inertia mgl64.Vec3) {
	a.mass, a.inertia = mass, inertia
	a.invMass = 1 / mass
	for i := 0; i < 3; i++ {
		if inertia[i] > 0 {
			a.invInertia[i] = 1 / inertia[i]
		} else {
			a.invInertia[i] = 0
		}
	}
}

// Mass returns the actor mass; zero for static actors.
func (a *Actor) Mass() float64 {
	if a.typ == ActorStatic {
		return 0
	}
	return a.mass
}

// GlobalPose returns the actor pose.
func (a *Actor) GlobalPose() Pose { return a.pose }

// SetGlobalPose teleports the actor.
func (a *Actor) SetGlobalPose(p Pose) error {
	if !p.Valid() {
		return fmt.Errorf("%w: invalid pose", ErrActorCreationFailed)
	}
	if a.scene != nil && a.scene.state == stateSimulated {
		return ErrSimulationInProgress
	}
	a.pose, a.prevPose = p, p
	return nil
}

// LinearVelocity returns the linear velocity.
func (a *Actor) LinearVelocity() mgl64.Vec3 { return a.linVel }

// AngularVelocity returns the angular velocity.
func (a *Actor) AngularVelocity() mgl64.Vec3 { return a.angVel }

// SetLinearVelocity sets the linear velocity of a simulated actor.
func (a *Actor) SetLinearVelocity(v mgl64.Vec3) {
	if a.simulated() {
		a.linVel = a.lockLinear(v)
	}
}

// SetAngularVelocity sets the angular velocity of a simulated actor.
func (a *Actor) SetAngularVelocity(w mgl64.Vec3) {
	if a.simulated() {
		a.angVel = a.lockAngular(w)
	}
}

// SetLockFlags restricts motion of a dynamic actor.
func (a *Actor) SetLockFlags(f LockFlags) {
	a.lock = f
	a.linVel = a.lockLinear(a.linVel)
	a.angVel = a.lockAngular(a.angVel)
}

// LockFlags returns the current lock flags.
func (a *Actor) LockFlags() LockFlags { return a.lock }

func (a *Actor) lockLinear(v mgl64.Vec3) mgl64.Vec3 {
	for i, f := range [3]LockFlags{LockLinearX, LockLinearY, LockLinearZ} {
		if a.lock&f != 0 {
			v[i] = 0
		}
	}
	return v
}

func (a *Actor) lockAngular(w mgl64.Vec3) mgl64.Vec3 {
	for i, f := range [3]LockFlags{LockAngularX, LockAngularY, LockAngularZ} {
		if a.lock&f != 0 {
			w[i] = 0
		}
	}
	return w
}

// invInertiaWorld applies the world-space inverse inertia to v.
func (a *Actor) invInertiaWorld(v mgl64.Vec3) mgl64.Vec3 {
	if !a.simulated() {
		return mgl64.Vec3{}
	}
	local := a.pose.Q.Conjugate().Rotate(v)
	local = mgl64.Vec3{local[0] * a.invInertia[0], local[1] * a.invInertia[1], local[2] * a.invInertia[2]}
	return a.lockAngular(a.pose.Q.Rotate(local))
}

// effectiveInvMass returns the inverse mass seen at offset r along n.
func (a *Actor) effectiveInvMass(r, n mgl64.Vec3) float64 {
	if !a.simulated() {
		return 0
	}
	rn := r.Cross(n)
	return a.invMass + rn.Dot(a.invInertiaWorld(rn))
}

// applyPositionImpulse moves the actor by impulse p applied at offset r.
func (a *Actor) applyPositionImpulse(p, r mgl64.Vec3) {
	if !a.simulated() {
		return
	}
	a.pose.P = a.pose.P.Add(a.lockLinear(p.Mul(a.invMass)))
	a.applyRotation(a.invInertiaWorld(r.Cross(p)))
}

// applyRotation rotates the actor by the small angle vector dw.
func (a *Actor) applyRotation(dw mgl64.Vec3) {
	dq := mgl64.Quat{V: dw, W: 0}.Mul(a.pose.Q).Scale(0.5)
	a.pose.Q = a.pose.Q.Add(dq).Normalize()
}

// applyVelocityImpulse changes velocity by impulse p applied at offset r.
func (a *Actor) applyVelocityImpulse(p, r mgl64.Vec3) {
	if !a.simulated() {
		return
	}
	a.linVel = a.linVel.Add(a.lockLinear(p.Mul(a.invMass)))
	a.angVel = a.angVel.Add(a.invInertiaWorld(r.Cross(p)))
}

// velocityAt returns the velocity of the world point at offset r.
func (a *Actor) velocityAt(r mgl64.Vec3) mgl64.Vec3 {
	return a.linVel.Add(a.angVel.Cross(r))
}

// Release removes the actor from its scene and drops joints and shapes.
func (a *Actor) Release() {
	if a.released {
		return
	}
	if a.scene != nil {
		a.scene.removeActor(a)
	}
	a.released = true
	a.shapes = nil
	a.physics.actors--
	a.physics.log.Debug("actor released", zap.Uint32("id", a.id), zap.String("name", a.Name))
}

// Released reports whether Release was called.
func (a *Actor) Released() bool { return a.released }
