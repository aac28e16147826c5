package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/physics-samples/internal/physics/cooking"
)

// GeometryType identifies a geometry.
type GeometryType int

const (
	GeometryBox GeometryType = iota
	GeometryCapsule
	GeometryPlane
	GeometryTriangleMesh
)

func (t GeometryType) String() string {
	switch t {
	case GeometryBox:
		return "box"
	case GeometryCapsule:
		return "capsule"
	case GeometryPlane:
		return "plane"
	case GeometryTriangleMesh:
		return "triangle-mesh"
	}
	return "unknown"
}

// Geometry is a collision geometry in its shape-local frame.
type Geometry interface {
	Type() GeometryType

	// distance returns the signed distance to the surface and the outward
	// direction of increasing distance.
	distance(p mgl64.Vec3) (float64, mgl64.Vec3)
	// samples returns surface points tested against other shapes.
	samples() []mgl64.Vec3
	bounds() (lo, hi mgl64.Vec3)
	massProperties(density float64) (mass float64, inertia mgl64.Vec3)
	// edges returns the wireframe used for debug visualization.
	edges() [][2]mgl64.Vec3
}

// BoxGeometry is a box centered at the origin.
type BoxGeometry struct {
	HalfExtents mgl64.Vec3
}

// GeometryFromShape converts a cooked shape into a geometry.
func GeometryFromShape(s cooking.Shape) Geometry {
	switch v := s.(type) {
	case *cooking.Primitive:
		h := v.HalfExtents
		if v.Kind() == cooking.KindCapsule {
			return CapsuleGeometry{Radius: v.Radius(), HalfHeight: v.HalfHeight()}
		}
		return BoxGeometry{HalfExtents: mgl64.Vec3{float64(h.X), float64(h.Y), float64(h.Z)}}
	case *cooking.ConcaveMesh:
		return TriangleMeshGeometry{Mesh: v}
	}
	return nil
}

func (BoxGeometry) Type() GeometryType { return GeometryBox }

func (g BoxGeometry) distance(p mgl64.Vec3) (float64, mgl64.Vec3) {
	h := g.HalfExtents
	var q, out mgl64.Vec3
	for a := 0; a < 3; a++ {
		q[a] = math.Abs(p[a]) - h[a]
		out[a] = math.Max(q[a], 0)
	}
	if l := out.Len(); l > 0 {
		n := mgl64.Vec3{}
		for a := 0; a < 3; a++ {
			n[a] = math.Copysign(out[a], p[a])
		}
		return l, n.Mul(1 / l)
	}
	axis := 0
	for a := 1; a < 3; a++ {
		if q[a] > q[axis] {
			axis = a
		}
	}
	var n mgl64.Vec3
	n[axis] = math.Copysign(1, p[axis])
	return q[axis], n
}

// distanceMoving is distance for a point that moved by disp relative to the
// box during the current sub step. Inside the box, faces within 2|disp| of
// the nearest one are candidates and the face the point moved through wins.
func (g BoxGeometry) distanceMoving(p, disp mgl64.Vec3) (float64, mgl64.Vec3) {
	d, n := g.distance(p)
	if d > 0 {
		return d, n
	}
	tol := 2 * disp.Len()
	best, score := -1, 0.0
	for a := 0; a < 3; a++ {
		if math.Abs(p[a])-g.HalfExtents[a] < d-tol {
			continue
		}
		if s := -disp[a] * math.Copysign(1, p[a]); s > score {
			best, score = a, s
		}
	}
	if best < 0 {
		return d, n
	}
	var bn mgl64.Vec3
	bn[best] = math.Copysign(1, p[best])
	return math.Abs(p[best]) - g.HalfExtents[best], bn
}

// samples are the corners, the edge midpoints and the face centers.
func (g BoxGeometry) samples() []mgl64.Vec3 {
	h := g.HalfExtents
	out := make([]mgl64.Vec3, 0, 26)
	for i := 0; i < 8; i++ {
		out = append(out, mgl64.Vec3{sgn(i&1) * h[0], sgn(i&2) * h[1], sgn(i&4) * h[2]})
	}
	for _, e := range g.edges() {
		out = append(out, e[0].Add(e[1]).Mul(0.5))
	}
	for a := 0; a < 3; a++ {
		var c mgl64.Vec3
		c[a] = h[a]
		out = append(out, c, c.Mul(-1))
	}
	return out
}

func (g BoxGeometry) bounds() (lo, hi mgl64.Vec3) {
	return g.HalfExtents.Mul(-1), g.HalfExtents
}

func (g BoxGeometry) massProperties(density float64) (float64, mgl64.Vec3) {
	h := g.HalfExtents
	m := density * 8 * h[0] * h[1] * h[2]
	return m, boxInertia(m, h)
}

func (g BoxGeometry) edges() [][2]mgl64.Vec3 {
	h := g.HalfExtents
	corner := func(i int) mgl64.Vec3 {
		return mgl64.Vec3{sgn(i&1) * h[0], sgn(i&2) * h[1], sgn(i&4) * h[2]}
	}
	out := make([][2]mgl64.Vec3, 0, 12)
	for i := 0; i < 8; i++ {
		for _, bit := range [3]int{1, 2, 4} {
			if i&bit == 0 {
				out = append(out, [2]mgl64.Vec3{corner(i), corner(i | bit)})
			}
		}
	}
	return out
}

// CapsuleGeometry is a capsule along the local Y axis.
type CapsuleGeometry struct {
	Radius     float64
	HalfHeight float64
}

func (CapsuleGeometry) Type() GeometryType { return GeometryCapsule }

func (g CapsuleGeometry) distance(p mgl64.Vec3) (float64, mgl64.Vec3) {
	c := mgl64.Vec3{0, math.Max(-g.HalfHeight, math.Min(g.HalfHeight, p[1])), 0}
	v := p.Sub(c)
	l := v.Len()
	if l < 1e-12 {
		return -g.Radius, mgl64.Vec3{1, 0, 0}
	}
	return l - g.Radius, v.Mul(1 / l)
}

func (g CapsuleGeometry) samples() []mgl64.Vec3 {
	r, hh := g.Radius, g.HalfHeight
	out := []mgl64.Vec3{{0, hh + r, 0}, {0, -hh - r, 0}}
	const ring = 8
	s45 := math.Sqrt2 / 2
	levels := []struct{ y, r float64 }{
		{hh + r*s45, r * s45},
		{hh, r},
		{0, r},
		{-hh, r},
		{-hh - r*s45, r * s45},
	}
	for _, lv := range levels {
		for i := 0; i < ring; i++ {
			a := 2 * math.Pi * float64(i) / ring
			out = append(out, mgl64.Vec3{lv.r * math.Cos(a), lv.y, lv.r * math.Sin(a)})
		}
	}
	return out
}

func (g CapsuleGeometry) bounds() (lo, hi mgl64.Vec3) {
	hi = mgl64.Vec3{g.Radius, g.HalfHeight + g.Radius, g.Radius}
	return hi.Mul(-1), hi
}

func (g CapsuleGeometry) massProperties(density float64) (float64, mgl64.Vec3) {
	r, hh := g.Radius, g.HalfHeight
	m := density * (math.Pi*r*r*2*hh + 4.0/3.0*math.Pi*r*r*r)
	_, hi := g.bounds()
	return m, boxInertia(m, hi)
}

func (g CapsuleGeometry) edges() [][2]mgl64.Vec3 {
	r, hh := g.Radius, g.HalfHeight
	const seg = 16
	var out [][2]mgl64.Vec3
	for _, y := range [2]float64{hh, -hh} {
		for i := 0; i < seg; i++ {
			a0 := 2 * math.Pi * float64(i) / seg
			a1 := 2 * math.Pi * float64(i+1) / seg
			out = append(out, [2]mgl64.Vec3{
				{r * math.Cos(a0), y, r * math.Sin(a0)},
				{r * math.Cos(a1), y, r * math.Sin(a1)},
			})
		}
	}
	// Side lines and the two half circle arcs in the XY and ZY planes.
	for i := 0; i < 4; i++ {
		a := math.Pi / 2 * float64(i)
		dx, dz := r*math.Cos(a), r*math.Sin(a)
		out = append(out, [2]mgl64.Vec3{{dx, hh, dz}, {dx, -hh, dz}})
	}
	for _, end := range [2]float64{1, -1} {
		for _, plane := range [2]int{0, 2} {
			for i := 0; i < seg/2; i++ {
				a0 := math.Pi * float64(i) / (seg / 2)
				a1 := math.Pi * float64(i+1) / (seg / 2)
				p0 := mgl64.Vec3{0, end * (hh + r*math.Sin(a0)), 0}
				p1 := mgl64.Vec3{0, end * (hh + r*math.Sin(a1)), 0}
				p0[plane], p1[plane] = r*math.Cos(a0), r*math.Cos(a1)
				out = append(out, [2]mgl64.Vec3{p0, p1})
			}
		}
	}
	return out
}

// PlaneGeometry is the half space y <= 0 of its local frame. Planes are
// only valid on static actors.
type PlaneGeometry struct{}

func (PlaneGeometry) Type() GeometryType { return GeometryPlane }

func (PlaneGeometry) distance(p mgl64.Vec3) (float64, mgl64.Vec3) {
	return p[1], mgl64.Vec3{0, 1, 0}
}

func (PlaneGeometry) samples() []mgl64.Vec3 { return nil }

func (PlaneGeometry) bounds() (lo, hi mgl64.Vec3) {
	inf := math.Inf(1)
	return mgl64.Vec3{-inf, -inf, -inf}, mgl64.Vec3{inf, 0, inf}
}

func (PlaneGeometry) massProperties(float64) (float64, mgl64.Vec3) {
	return 0, mgl64.Vec3{}
}

func (PlaneGeometry) edges() [][2]mgl64.Vec3 {
	const half, lines = 10.0, 5
	var out [][2]mgl64.Vec3
	for i := 0; i < lines; i++ {
		t := -half + 2*half*float64(i)/(lines-1)
		out = append(out,
			[2]mgl64.Vec3{{t, 0, -half}, {t, 0, half}},
			[2]mgl64.Vec3{{-half, 0, t}, {half, 0, t}},
		)
	}
	return out
}

// TriangleMeshGeometry wraps a cooked concave mesh. Dynamic simulated
// actors accept it only when the mesh carries a signed distance field.
type TriangleMeshGeometry struct {
	Mesh *cooking.ConcaveMesh
}

func (TriangleMeshGeometry) Type() GeometryType { return GeometryTriangleMesh }

func (g TriangleMeshGeometry) distance(p mgl64.Vec3) (float64, mgl64.Vec3) {
	return g.Mesh.Query(p)
}

func (g TriangleMeshGeometry) samples() []mgl64.Vec3 {
	out := append([]mgl64.Vec3(nil), g.Mesh.Vertices...)
	for _, e := range g.uniqueEdges() {
		out = append(out, g.Mesh.Vertices[e[0]].Add(g.Mesh.Vertices[e[1]]).Mul(0.5))
	}
	return out
}

func (g TriangleMeshGeometry) bounds() (lo, hi mgl64.Vec3) {
	return g.Mesh.Bounds()
}

func (g TriangleMeshGeometry) massProperties(density float64) (float64, mgl64.Vec3) {
	m := density * g.Mesh.Volume()
	lo, hi := g.Mesh.Bounds()
	return m, boxInertia(m, hi.Sub(lo).Mul(0.5))
}

func (g TriangleMeshGeometry) edges() [][2]mgl64.Vec3 {
	unique := g.uniqueEdges()
	out := make([][2]mgl64.Vec3, len(unique))
	for i, e := range unique {
		out[i] = [2]mgl64.Vec3{g.Mesh.Vertices[e[0]], g.Mesh.Vertices[e[1]]}
	}
	return out
}

// uniqueEdges lists every edge once in first-seen order.
func (g TriangleMeshGeometry) uniqueEdges() [][2]uint32 {
	seen := make(map[[2]uint32]bool, 3*len(g.Mesh.Triangles))
	var out [][2]uint32
	for _, t := range g.Mesh.Triangles {
		for e := 0; e < 3; e++ {
			i, j := t[e], t[(e+1)%3]
			if i > j {
				i, j = j, i
			}
			k := [2]uint32{i, j}
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	return out
}

// boxInertia returns the diagonal inertia of a solid box with half extents h.
func boxInertia(m float64, h mgl64.Vec3) mgl64.Vec3 {
	x2, y2, z2 := h[0]*h[0], h[1]*h[1], h[2]*h[2]
	return mgl64.Vec3{m / 3 * (y2 + z2), m / 3 * (x2 + z2), m / 3 * (x2 + y2)}
}

func sgn(bit int) float64 {
	if bit != 0 {
		return 1
	}
	return -1
}
