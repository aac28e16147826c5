package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Pose is a rigid transform: rotate by Q, then translate by P.
type Pose struct {
	P mgl64.Vec3
	Q mgl64.Quat
}

// IdentityPose returns the identity transform.
func IdentityPose() Pose {
	return Pose{Q: mgl64.QuatIdent()}
}

// PoseAt returns a pose with identity rotation at p.
func PoseAt(p mgl64.Vec3) Pose {
	return Pose{P: p, Q: mgl64.QuatIdent()}
}

// Transform maps a local point to the parent frame.
func (t Pose) Transform(v mgl64.Vec3) mgl64.Vec3 {
	return t.P.Add(t.Q.Rotate(v))
}

// TransformInv maps a parent-frame point into this local frame.
func (t Pose) TransformInv(v mgl64.Vec3) mgl64.Vec3 {
	return t.Q.Conjugate().Rotate(v.Sub(t.P))
}

// Rotate rotates a direction into the parent frame.
func (t Pose) Rotate(v mgl64.Vec3) mgl64.Vec3 {
	return t.Q.Rotate(v)
}

// Mul composes two poses: the result applies o first, then t.
func (t Pose) Mul(o Pose) Pose {
	return Pose{P: t.Transform(o.P), Q: t.Q.Mul(o.Q).Normalize()}
}

// Inverse returns the inverse transform.
func (t Pose) Inverse() Pose {
	qi := t.Q.Conjugate()
	return Pose{P: qi.Rotate(t.P.Mul(-1)), Q: qi}
}

// Valid reports whether the pose is finite and its rotation is unit length.
func (t Pose) Valid() bool {
	for _, c := range [7]float64{t.P[0], t.P[1], t.P[2], t.Q.V[0], t.Q.V[1], t.Q.V[2], t.Q.W} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	l := t.Q.Len()
	return l > 0.99 && l < 1.01
}

// integrateRotation advances q by angular velocity w over h.
func integrateRotation(q mgl64.Quat, w mgl64.Vec3, h float64) mgl64.Quat {
	dq := mgl64.Quat{V: w, W: 0}.Mul(q).Scale(0.5 * h)
	return q.Add(dq).Normalize()
}

// rotationBetween returns the shortest rotation taking unit vector a to b.
func rotationBetween(a, b mgl64.Vec3) mgl64.Quat {
	d := a.Dot(b)
	if d < -0.999999 {
		axis := mgl64.Vec3{1, 0, 0}.Cross(a)
		if axis.Len() < 1e-6 {
			axis = mgl64.Vec3{0, 0, 1}.Cross(a)
		}
		return mgl64.QuatRotate(math.Pi, axis.Normalize())
	}
	c := a.Cross(b)
	return mgl64.Quat{V: c, W: 1 + d}.Normalize()
}
