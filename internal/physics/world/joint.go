package world

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

// ConstraintFlags control joint behavior.
type ConstraintFlags uint8

const (
	// ConstraintVisualization draws the joint frames into the render buffer.
	ConstraintVisualization ConstraintFlags = 1 << iota
	// ConstraintCollisionEnabled lets the two joined actors collide.
	ConstraintCollisionEnabled
)

// FixedJoint locks the relative pose of two actors. Frames are given in
// each actor's local space; a nil actor means the world frame.
type FixedJoint struct {
	scene  *Scene
	actors [2]*Actor
	frames [2]Pose
	flags  ConstraintFlags
}

// FixedJointCreate joins a0 and a1 so that their local frames coincide.
// At least one actor must already be in a scene.
func FixedJointCreate(p *Physics, a0 *Actor, frame0 Pose, a1 *Actor, frame1 Pose) (*FixedJoint, error) {
	if a0 == nil && a1 == nil {
		return nil, fmt.Errorf("%w: joint needs at least one actor", ErrActorCreationFailed)
	}
	if a0 == a1 {
		return nil, fmt.Errorf("%w: joint connects an actor to itself", ErrActorCreationFailed)
	}
	var scene *Scene
	for _, a := range [2]*Actor{a0, a1} {
		if a == nil {
			continue
		}
		if a.released || a.physics != p {
			return nil, fmt.Errorf("%w: joint actor released or foreign", ErrActorCreationFailed)
		}
		if a.scene == nil {
			continue
		}
		if scene != nil && scene != a.scene {
			return nil, fmt.Errorf("%w: joint actors are in different scenes", ErrActorCreationFailed)
		}
		scene = a.scene
	}
	if scene == nil {
		return nil, fmt.Errorf("%w: joint actors are not in a scene", ErrActorCreationFailed)
	}
	if !frame0.Valid() || !frame1.Valid() {
		return nil, fmt.Errorf("%w: invalid joint frame", ErrActorCreationFailed)
	}
	j := &FixedJoint{
		scene:  scene,
		actors: [2]*Actor{a0, a1},
		frames: [2]Pose{frame0, frame1},
	}
	scene.joints = append(scene.joints, j)
	scene.log.Debug("fixed joint created", zap.String("actor0", actorName(a0)), zap.String("actor1", actorName(a1)))
	return j, nil
}

func actorName(a *Actor) string {
	if a == nil {
		return "world"
	}
	return a.Name
}

// Actors returns the joined actors; either may be nil for the world.
func (j *FixedJoint) Actors() (*Actor, *Actor) { return j.actors[0], j.actors[1] }

// SetConstraintFlag toggles a constraint flag.
func (j *FixedJoint) SetConstraintFlag(f ConstraintFlags, on bool) {
	if on {
		j.flags |= f
	} else {
		j.flags &^= f
	}
}

// ConstraintFlags returns the joint flags.
func (j *FixedJoint) ConstraintFlags() ConstraintFlags { return j.flags }

// Release removes the joint from its scene.
func (j *FixedJoint) Release() {
	if j.scene == nil {
		return
	}
	s := j.scene
	for i, x := range s.joints {
		if x == j {
			s.joints = append(s.joints[:i], s.joints[i+1:]...)
			break
		}
	}
	j.scene = nil
}

// framePose returns the world pose of joint frame i.
func (j *FixedJoint) framePose(i int) Pose {
	if j.actors[i] == nil {
		return j.frames[i]
	}
	return j.actors[i].pose.Mul(j.frames[i])
}

// Error returns the distance between the two joint frames.
func (j *FixedJoint) Error() float64 {
	return j.framePose(0).P.Sub(j.framePose(1).P).Len()
}

// jointExclusions lists actor pairs that must not collide.
func (s *Scene) jointExclusions() map[[2]uint32]bool {
	out := make(map[[2]uint32]bool, len(s.joints))
	for _, j := range s.joints {
		if j.flags&ConstraintCollisionEnabled != 0 || j.actors[0] == nil || j.actors[1] == nil {
			continue
		}
		out[actorPairKey(j.actors[0], j.actors[1])] = true
	}
	return out
}

var worldAnchor = &Actor{pose: IdentityPose()}

func (j *FixedJoint) actor(i int) *Actor {
	if j.actors[i] == nil {
		return worldAnchor
	}
	return j.actors[i]
}

// solvePosition aligns the frame origins, then the frame orientations.
func (j *FixedJoint) solvePosition(maxCorrection float64) {
	a0, a1 := j.actor(0), j.actor(1)

	p0, p1 := j.framePose(0).P, j.framePose(1).P
	d := p0.Sub(p1)
	if c := d.Len(); c > 1e-9 {
		n := d.Mul(1 / c)
		r0, r1 := p0.Sub(a0.pose.P), p1.Sub(a1.pose.P)
		w := a0.effectiveInvMass(r0, n) + a1.effectiveInvMass(r1, n)
		if w > 0 {
			dl := -math.Min(c, maxCorrection) / w
			p := n.Mul(dl)
			a0.applyPositionImpulse(p, r0)
			a1.applyPositionImpulse(p.Mul(-1), r1)
		}
	}

	q0, q1 := j.framePose(0).Q, j.framePose(1).Q
	dq := q0.Mul(q1.Conjugate())
	dphi := dq.V.Mul(2)
	if dq.W < 0 {
		dphi = dphi.Mul(-1)
	}
	theta := dphi.Len()
	if theta < 1e-9 {
		return
	}
	n := dphi.Mul(1 / theta)
	w := n.Dot(a0.invInertiaWorld(n)) + n.Dot(a1.invInertiaWorld(n))
	if w == 0 {
		return
	}
	dl := -math.Min(theta, maxCorrection) / w
	p := n.Mul(dl)
	a0.applyRotation(a0.invInertiaWorld(p))
	a1.applyRotation(a1.invInertiaWorld(p.Mul(-1)))
}

// frameAxes returns the world origin and axes of joint frame i.
func (j *FixedJoint) frameAxes(i int) (mgl64.Vec3, [3]mgl64.Vec3) {
	f := j.framePose(i)
	return f.P, [3]mgl64.Vec3{
		f.Rotate(mgl64.Vec3{1, 0, 0}),
		f.Rotate(mgl64.Vec3{0, 1, 0}),
		f.Rotate(mgl64.Vec3{0, 0, 1}),
	}
}
