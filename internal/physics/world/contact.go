package world

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// contact is a point constraint keeping a sample of actor a on the
// positive side of actor b's surface. n points from b toward a.
type contact struct {
	a, b   *Actor
	rA, rB mgl64.Vec3 // anchors in actor-local frames
	n      mgl64.Vec3
	rest   float64

	friction       float64
	staticFriction float64
	restitution    float64

	lambda  float64
	lambdaT float64
	vnPre   float64
}

type boundsEntry struct {
	shape  *Shape
	lo, hi mgl64.Vec3
}

type shapePair struct {
	a, b *Shape
}

// detectCollisions runs sweep and prune over shape bounds and then tests
// the candidate pairs in parallel. Output order is deterministic.
func (s *Scene) detectCollisions() []*contact {
	var entries []boundsEntry
	for _, a := range s.actors {
		for _, sh := range a.shapes {
			if sh.flags&ShapeSimulation == 0 {
				continue
			}
			lo, hi := sh.worldBounds()
			entries = append(entries, boundsEntry{shape: sh, lo: lo, hi: hi})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].lo[0] < entries[j].lo[0] })

	excluded := s.jointExclusions()
	var pairs []shapePair
	for i := range entries {
		for j := i + 1; j < len(entries) && entries[j].lo[0] <= entries[i].hi[0]; j++ {
			ei, ej := &entries[i], &entries[j]
			if ei.lo[1] > ej.hi[1] || ej.lo[1] > ei.hi[1] || ei.lo[2] > ej.hi[2] || ej.lo[2] > ei.hi[2] {
				continue
			}
			aa, ab := ei.shape.actor, ej.shape.actor
			if aa == ab || (!aa.simulated() && !ab.simulated()) {
				continue
			}
			if excluded[actorPairKey(aa, ab)] {
				continue
			}
			pairs = append(pairs, shapePair{ei.shape, ej.shape})
		}
	}

	results := make([][]*contact, len(pairs))
	task(s.desc.Workers, pairs, func(i int, p shapePair) {
		var out []*contact
		out = appendContacts(out, p.a, p.b)
		out = appendContacts(out, p.b, p.a)
		results[i] = out
	})

	var contacts []*contact
	for _, r := range results {
		contacts = append(contacts, r...)
	}
	return contacts
}

func actorPairKey(a, b *Actor) [2]uint32 {
	if a.id > b.id {
		a, b = b, a
	}
	return [2]uint32{a.id, b.id}
}

// appendContacts tests the samples of src against the surface of dst.
func appendContacts(out []*contact, src, dst *Shape) []*contact {
	if len(src.samples) == 0 {
		return out
	}
	srcPose := src.WorldPose()
	dstPose := dst.WorldPose()
	margin := src.contactOffset + dst.contactOffset
	rest := src.restOffset + dst.restOffset
	dlo, dhi := dst.worldBounds()

	friction, restitution := combine(src.material, dst.material)
	staticFriction := friction
	if src.material != nil && dst.material != nil {
		staticFriction = (src.material.StaticFriction + dst.material.StaticFriction) / 2
	}

	for _, sample := range src.samples {
		p := srcPose.Transform(sample)
		if p[0] < dlo[0] || p[1] < dlo[1] || p[2] < dlo[2] || p[0] > dhi[0] || p[1] > dhi[1] || p[2] > dhi[2] {
			continue
		}
		local := dstPose.TransformInv(p)
		var d float64
		var nl mgl64.Vec3
		if box, ok := dst.geom.(BoxGeometry); ok {
			d, nl = box.distanceMoving(local, dstPose.Q.Conjugate().Rotate(relativeMotion(src.actor, dst.actor, p)))
		} else {
			d, nl = dst.geom.distance(local)
		}
		if d >= margin {
			continue
		}
		n := dstPose.Rotate(nl)
		q := p.Sub(n.Mul(d))
		c := &contact{
			a:              src.actor,
			b:              dst.actor,
			rA:             src.actor.pose.TransformInv(p),
			rB:             dst.actor.pose.TransformInv(q),
			n:              n,
			rest:           rest,
			friction:       friction,
			staticFriction: staticFriction,
			restitution:    restitution,
		}
		rA := p.Sub(src.actor.pose.P)
		rB := q.Sub(dst.actor.pose.P)
		c.vnPre = src.actor.velocityAt(rA).Sub(dst.actor.velocityAt(rB)).Dot(n)
		out = append(out, c)
	}
	return out
}

// relativeMotion is how far the world point p on a moved against b since
// the start of the sub step.
func relativeMotion(a, b *Actor, p mgl64.Vec3) mgl64.Vec3 {
	da := p.Sub(a.prevPose.Transform(a.pose.TransformInv(p)))
	db := p.Sub(b.prevPose.Transform(b.pose.TransformInv(p)))
	return da.Sub(db)
}

func (c *contact) points() (pA, pB, rA, rB mgl64.Vec3) {
	pA = c.a.pose.Transform(c.rA)
	pB = c.b.pose.Transform(c.rB)
	return pA, pB, pA.Sub(c.a.pose.P), pB.Sub(c.b.pose.P)
}

// solvePosition pushes the anchors apart along n and applies static
// friction against tangential drift since the start of the sub step.
func (c *contact) solvePosition(maxCorrection float64) {
	pA, pB, rA, rB := c.points()
	depth := pA.Sub(pB).Dot(c.n) - c.rest
	if depth >= 0 {
		return
	}
	w := c.a.effectiveInvMass(rA, c.n) + c.b.effectiveInvMass(rB, c.n)
	if w == 0 {
		return
	}
	dl := math.Min(-depth, maxCorrection) / w
	c.lambda += dl
	p := c.n.Mul(dl)
	c.a.applyPositionImpulse(p, rA)
	c.b.applyPositionImpulse(p.Mul(-1), rB)

	if c.staticFriction <= 0 {
		return
	}
	pA, pB, rA, rB = c.points()
	prevA := c.a.prevPose.Transform(c.rA)
	prevB := c.b.prevPose.Transform(c.rB)
	dp := pA.Sub(prevA).Sub(pB.Sub(prevB))
	dt := dp.Sub(c.n.Mul(dp.Dot(c.n)))
	l := dt.Len()
	if l < 1e-9 {
		return
	}
	t := dt.Mul(1 / l)
	wt := c.a.effectiveInvMass(rA, t) + c.b.effectiveInvMass(rB, t)
	if wt == 0 {
		return
	}
	dlt := -l / wt
	if math.Abs(c.lambdaT+dlt) > c.staticFriction*c.lambda {
		return
	}
	c.lambdaT += dlt
	pt := t.Mul(dlt)
	c.a.applyPositionImpulse(pt, rA)
	c.b.applyPositionImpulse(pt.Mul(-1), rB)
}

// solveVelocity applies dynamic friction and restitution to an active contact.
func (c *contact) solveVelocity(h, gravity float64) {
	if c.lambda == 0 {
		return
	}
	_, _, rA, rB := c.points()
	v := c.a.velocityAt(rA).Sub(c.b.velocityAt(rB))
	vn := v.Dot(c.n)
	vt := v.Sub(c.n.Mul(vn))

	var dv mgl64.Vec3
	if lt := vt.Len(); lt > 1e-9 {
		fn := c.lambda / (h * h)
		dv = vt.Mul(-math.Min(h*c.friction*fn, lt) / lt)
	}

	e := c.restitution
	if math.Abs(c.vnPre) <= 2*gravity*h {
		e = 0
	}
	if target := math.Max(-e*c.vnPre, 0); vn < target {
		dv = dv.Add(c.n.Mul(target - vn))
	}

	l := dv.Len()
	if l < 1e-12 {
		return
	}
	dir := dv.Mul(1 / l)
	w := c.a.effectiveInvMass(rA, dir) + c.b.effectiveInvMass(rB, dir)
	if w == 0 {
		return
	}
	p := dir.Mul(l / w)
	c.a.applyVelocityImpulse(p, rA)
	c.b.applyVelocityImpulse(p.Mul(-1), rB)
}
