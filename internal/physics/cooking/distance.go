package cooking

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl64"
)

// closestPointOnTriangle returns the point of triangle abc closest to p
// (Ericson, Real-Time Collision Detection 5.1.5).
func closestPointOnTriangle(p, a, b, c mgl64.Vec3) mgl64.Vec3 {
	ab := b.Sub(a)
	ac := c.Sub(a)
	ap := p.Sub(a)
	d1 := ab.Dot(ap)
	d2 := ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		return a
	}

	bp := p.Sub(b)
	d3 := ab.Dot(bp)
	d4 := ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		return b
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		return a.Add(ab.Mul(v))
	}

	cp := p.Sub(c)
	d5 := ab.Dot(cp)
	d6 := ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		return c
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		return a.Add(ac.Mul(w))
	}

	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return b.Add(c.Sub(b).Mul(w))
	}

	denom := 1 / (va + vb + vc)
	v := vb * denom
	w := vc * denom
	return a.Add(ab.Mul(v)).Add(ac.Mul(w))
}

// solidAngle returns the signed solid angle subtended by triangle abc at p
// (Van Oosterom and Strackee).
func solidAngle(p, a, b, c mgl64.Vec3) float64 {
	ra := a.Sub(p)
	rb := b.Sub(p)
	rc := c.Sub(p)
	la, lb, lc := ra.Len(), rb.Len(), rc.Len()
	num := ra.Dot(rb.Cross(rc))
	den := la*lb*lc + ra.Dot(rb)*lc + ra.Dot(rc)*lb + rb.Dot(rc)*la
	return 2 * gomath.Atan2(num, den)
}
