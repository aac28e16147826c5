package cooking

import (
	"fmt"
	gomath "math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/physics-samples/pkg/geometry"
)

// ConcaveMesh is a welded, validated triangle mesh. It is immutable once
// cooked and safe for concurrent queries.
type ConcaveMesh struct {
	WeldTolerance float64
	Vertices      []mgl64.Vec3
	Triangles     [][3]uint32

	// SDF is nil when the mesh was cooked without a distance field.
	SDF *SDF

	normals []mgl64.Vec3
	lo, hi  mgl64.Vec3
	closed  bool
}

// CookConcaveMesh welds and validates mesh and, when params.SDF is set,
// builds its signed distance field. It blocks until cooking completes.
func CookConcaveMesh(mesh *geometry.MeshData, params Params) (*ConcaveMesh, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if mesh == nil {
		return nil, fmt.Errorf("%w: nil mesh", ErrCookingFailed)
	}
	if len(mesh.Indices)%3 != 0 {
		return nil, fmt.Errorf("%w: index count %d is not a multiple of 3", ErrCookingFailed, len(mesh.Indices))
	}
	if len(mesh.Vertices) < 4 || mesh.TriangleCount() < 1 {
		return nil, fmt.Errorf("%w: mesh has %d vertices and %d triangles", ErrCookingFailed,
			len(mesh.Vertices), mesh.TriangleCount())
	}

	points := make([]mgl64.Vec3, len(mesh.Vertices))
	for i, v := range mesh.Vertices {
		if !v.Position.Finite() {
			return nil, fmt.Errorf("%w: vertex %d is not finite", ErrCookingFailed, i)
		}
		p := v.Position
		points[i] = mgl64.Vec3{float64(p.X), float64(p.Y), float64(p.Z)}
	}
	for i, idx := range mesh.Indices {
		if int(idx) >= len(points) {
			return nil, fmt.Errorf("%w: index %d at %d out of range", ErrCookingFailed, idx, i)
		}
	}

	verts, remap := weld(points, params.WeldTolerance)

	m := &ConcaveMesh{
		WeldTolerance: params.WeldTolerance,
		Vertices:      verts,
		Triangles:     make([][3]uint32, 0, mesh.TriangleCount()),
		normals:       make([]mgl64.Vec3, 0, mesh.TriangleCount()),
	}
	edges := make(map[[2]uint32]int, len(mesh.Indices))
	for t := 0; t < mesh.TriangleCount(); t++ {
		tri := [3]uint32{
			remap[mesh.Indices[3*t]],
			remap[mesh.Indices[3*t+1]],
			remap[mesh.Indices[3*t+2]],
		}
		if tri[0] == tri[1] || tri[1] == tri[2] || tri[0] == tri[2] {
			return nil, fmt.Errorf("%w: triangle %d collapsed after welding", ErrCookingFailed, t)
		}
		a, b, c := verts[tri[0]], verts[tri[1]], verts[tri[2]]
		n := b.Sub(a).Cross(c.Sub(a))
		if n.Len() < 1e-12 {
			return nil, fmt.Errorf("%w: triangle %d has zero area", ErrCookingFailed, t)
		}
		for e := 0; e < 3; e++ {
			i, j := tri[e], tri[(e+1)%3]
			if i > j {
				i, j = j, i
			}
			edges[[2]uint32{i, j}]++
		}
		m.Triangles = append(m.Triangles, tri)
		m.normals = append(m.normals, n.Normalize())
	}

	m.closed = true
	for e, count := range edges {
		if count > 2 {
			return nil, fmt.Errorf("%w: edge %d-%d shared by %d triangles", ErrCookingFailed, e[0], e[1], count)
		}
		if count != 2 {
			m.closed = false
		}
	}

	m.lo, m.hi = verts[0], verts[0]
	for _, v := range verts[1:] {
		for a := 0; a < 3; a++ {
			m.lo[a] = gomath.Min(m.lo[a], v[a])
			m.hi[a] = gomath.Max(m.hi[a], v[a])
		}
	}

	if params.SDF != nil {
		if !m.closed {
			return nil, fmt.Errorf("%w: signed distance field needs a closed mesh", ErrCookingFailed)
		}
		sdf, err := buildSDF(m, *params.SDF)
		if err != nil {
			return nil, err
		}
		m.SDF = sdf
	}
	return m, nil
}

// Kind implements Shape.
func (m *ConcaveMesh) Kind() Kind { return KindTriangleMesh }

// Bounds implements Shape.
func (m *ConcaveMesh) Bounds() (lo, hi mgl64.Vec3) { return m.lo, m.hi }

// VertexCount returns the number of welded vertices.
func (m *ConcaveMesh) VertexCount() int { return len(m.Vertices) }

// TriangleCount returns the number of triangles.
func (m *ConcaveMesh) TriangleCount() int { return len(m.Triangles) }

// Closed reports whether every edge is shared by exactly two triangles.
func (m *ConcaveMesh) Closed() bool { return m.closed }

// HasSDF reports whether a distance field was cooked.
func (m *ConcaveMesh) HasSDF() bool { return m.SDF != nil }

// Volume returns the enclosed volume of a closed mesh, zero otherwise.
func (m *ConcaveMesh) Volume() float64 {
	if !m.closed {
		return 0
	}
	var v float64
	for _, t := range m.Triangles {
		a, b, c := m.Vertices[t[0]], m.Vertices[t[1]], m.Vertices[t[2]]
		v += a.Dot(b.Cross(c))
	}
	return gomath.Abs(v) / 6
}

// Query returns the signed distance from p to the surface and the
// direction in which that distance increases. Negative is inside.
// The field is used when present, otherwise the triangles are searched.
func (m *ConcaveMesh) Query(p mgl64.Vec3) (float64, mgl64.Vec3) {
	if m.SDF != nil {
		return m.SDF.Sample(p), m.SDF.Gradient(p)
	}
	return m.exactQuery(p)
}

// exactQuery finds the closest triangle. Closed meshes take their sign
// from the winding number, open meshes from the closest face normal.
func (m *ConcaveMesh) exactQuery(p mgl64.Vec3) (float64, mgl64.Vec3) {
	best := gomath.Inf(1)
	var closest mgl64.Vec3
	tri := 0
	for i, t := range m.Triangles {
		q := closestPointOnTriangle(p, m.Vertices[t[0]], m.Vertices[t[1]], m.Vertices[t[2]])
		if d := q.Sub(p).LenSqr(); d < best {
			best, closest, tri = d, q, i
		}
	}
	dist := gomath.Sqrt(best)
	diff := p.Sub(closest)

	sign := 1.0
	if m.closed {
		if gomath.Abs(m.windingNumber(p)) > 0.5 {
			sign = -1
		}
	} else if diff.Dot(m.normals[tri]) < 0 {
		sign = -1
	}

	if dist < 1e-9 {
		return 0, m.normals[tri]
	}
	return sign * dist, diff.Mul(sign / dist)
}

// windingNumber sums the solid angles of all triangles seen from p.
func (m *ConcaveMesh) windingNumber(p mgl64.Vec3) float64 {
	var w float64
	for _, t := range m.Triangles {
		w += solidAngle(p, m.Vertices[t[0]], m.Vertices[t[1]], m.Vertices[t[2]])
	}
	return w / (4 * gomath.Pi)
}

// weld merges vertices within tol of an earlier vertex using a spatial
// hash. The output order follows first occurrence.
func weld(points []mgl64.Vec3, tol float64) ([]mgl64.Vec3, []uint32) {
	out := make([]mgl64.Vec3, 0, len(points))
	remap := make([]uint32, len(points))

	if tol == 0 {
		exact := make(map[mgl64.Vec3]uint32, len(points))
		for i, p := range points {
			if j, ok := exact[p]; ok {
				remap[i] = j
				continue
			}
			exact[p] = uint32(len(out))
			remap[i] = uint32(len(out))
			out = append(out, p)
		}
		return out, remap
	}

	cell := func(p mgl64.Vec3) [3]int64 {
		return [3]int64{
			int64(gomath.Floor(p[0] / tol)),
			int64(gomath.Floor(p[1] / tol)),
			int64(gomath.Floor(p[2] / tol)),
		}
	}
	grid := make(map[[3]int64][]uint32, len(points))
	tol2 := tol * tol

	for i, p := range points {
		c := cell(p)
		found := -1
	search:
		for dx := int64(-1); dx <= 1; dx++ {
			for dy := int64(-1); dy <= 1; dy++ {
				for dz := int64(-1); dz <= 1; dz++ {
					for _, j := range grid[[3]int64{c[0] + dx, c[1] + dy, c[2] + dz}] {
						if out[j].Sub(p).LenSqr() <= tol2 {
							found = int(j)
							break search
						}
					}
				}
			}
		}
		if found >= 0 {
			remap[i] = uint32(found)
			continue
		}
		idx := uint32(len(out))
		out = append(out, p)
		grid[c] = append(grid[c], idx)
		remap[i] = idx
	}
	return out, remap
}
