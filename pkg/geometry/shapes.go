package geometry

import (
	"github.com/Faultbox/physics-samples/pkg/math"
)

// Box returns a box with 24 vertices (four per face) and 36 indices.
func Box(half math.Vec3) *MeshData {
	m := &MeshData{
		Vertices: make([]Vertex, 0, 24),
		Indices:  make([]uint32, 0, 36),
	}
	x, y, z := half.X, half.Y, half.Z

	m.addQuad(math.Vec3{X: x}, math.Vec3{Y: y}, math.Vec3{Z: z})  // +X
	m.addQuad(math.Vec3{X: -x}, math.Vec3{Z: z}, math.Vec3{Y: y}) // -X
	m.addQuad(math.Vec3{Y: y}, math.Vec3{Z: z}, math.Vec3{X: x})  // +Y
	m.addQuad(math.Vec3{Y: -y}, math.Vec3{X: x}, math.Vec3{Z: z}) // -Y
	m.addQuad(math.Vec3{Z: z}, math.Vec3{X: x}, math.Vec3{Y: y})  // +Z
	m.addQuad(math.Vec3{Z: -z}, math.Vec3{Y: y}, math.Vec3{X: x}) // -Z
	return m
}

// Pyramid returns a square-based pyramid. The base spans ±half.X and ±half.Z
// at y = -half.Y and the apex sits at y = +half.Y.
func Pyramid(half math.Vec3) *MeshData {
	m := &MeshData{
		Vertices: make([]Vertex, 0, 16),
		Indices:  make([]uint32, 0, 18),
	}
	x, y, z := half.X, half.Y, half.Z
	apex := math.Vec3{Y: y}

	// Base corners counter-clockwise seen from above.
	corners := [4]math.Vec3{
		{X: -x, Y: -y, Z: z},
		{X: x, Y: -y, Z: z},
		{X: x, Y: -y, Z: -z},
		{X: -x, Y: -y, Z: -z},
	}
	for i := range corners {
		m.addTriangle(corners[i], corners[(i+1)%4], apex)
	}
	m.addQuad(math.Vec3{Y: -y}, math.Vec3{X: x}, math.Vec3{Z: z})
	return m
}

// Tetrahedron returns a regular tetrahedron with 4 shared vertices and
// 4 triangles. size is the distance from the center to each vertex.
func Tetrahedron(size float32) *MeshData {
	s := size / float32(1.7320508)
	pts := [4]math.Vec3{
		{X: s, Y: s, Z: s},
		{X: s, Y: -s, Z: -s},
		{X: -s, Y: s, Z: -s},
		{X: -s, Y: -s, Z: s},
	}
	m := &MeshData{Vertices: make([]Vertex, 4)}
	for i, p := range pts {
		m.Vertices[i] = Vertex{Position: p, Normal: p.Normalize()}
	}

	faces := [4][4]uint32{
		{0, 1, 2, 3},
		{0, 1, 3, 2},
		{0, 2, 3, 1},
		{1, 2, 3, 0},
	}
	for _, f := range faces {
		a, b, c, opposite := pts[f[0]], pts[f[1]], pts[f[2]], pts[f[3]]
		n := b.Sub(a).Cross(c.Sub(a))
		if n.Dot(a.Sub(opposite)) < 0 {
			m.Indices = append(m.Indices, f[0], f[2], f[1])
		} else {
			m.Indices = append(m.Indices, f[0], f[1], f[2])
		}
	}
	return m
}

// Plane returns a flat grid on y = 0 spanning ±halfSize with the given
// number of cells per side. Normals point up.
func Plane(halfSize float32, divisions int) *MeshData {
	if divisions < 1 {
		divisions = 1
	}
	step := 2 * halfSize / float32(divisions)
	row := divisions + 1
	m := &MeshData{
		Vertices: make([]Vertex, 0, row*row),
		Indices:  make([]uint32, 0, divisions*divisions*6),
	}

	up := math.Vec3{Y: 1}
	for iz := 0; iz <= divisions; iz++ {
		for ix := 0; ix <= divisions; ix++ {
			p := math.Vec3{X: -halfSize + float32(ix)*step, Z: -halfSize + float32(iz)*step}
			m.Vertices = append(m.Vertices, Vertex{Position: p, Normal: up})
		}
	}
	for iz := 0; iz < divisions; iz++ {
		for ix := 0; ix < divisions; ix++ {
			a := uint32(iz*row + ix)
			b := a + uint32(row)
			c := a + 1
			d := b + 1
			m.Indices = append(m.Indices, a, b, c, c, b, d)
		}
	}
	return m
}
