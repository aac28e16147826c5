// Package geometry generates the render meshes used by the sample bodies.
// Every generator takes half extents so the render mesh and the collision
// shape built from the same dimensions coincide.
package geometry

import (
	"unsafe"

	"github.com/Faultbox/physics-samples/pkg/math"
)

// Vertex is a render vertex: position followed by normal, 24 bytes.
type Vertex struct {
	Position math.Vec3
	Normal   math.Vec3
}

// VertexSize is the stride of Vertex in bytes.
const VertexSize = int(unsafe.Sizeof(Vertex{}))

// MeshData holds a triangle list. Indices are consumed three at a time.
type MeshData struct {
	Vertices []Vertex
	Indices  []uint32
}

// TriangleCount returns the number of index triples.
func (m *MeshData) TriangleCount() int {
	return len(m.Indices) / 3
}

// Positions returns the vertex positions in order.
func (m *MeshData) Positions() []math.Vec3 {
	out := make([]math.Vec3, len(m.Vertices))
	for i, v := range m.Vertices {
		out[i] = v.Position
	}
	return out
}

// Bounds returns the axis-aligned bounds of the vertex positions.
func (m *MeshData) Bounds() (lo, hi math.Vec3) {
	if len(m.Vertices) == 0 {
		return
	}
	lo, hi = m.Vertices[0].Position, m.Vertices[0].Position
	for _, v := range m.Vertices[1:] {
		lo = lo.Min(v.Position)
		hi = hi.Max(v.Position)
	}
	return lo, hi
}

// VertexBytes returns the vertex array as raw bytes for buffer upload.
func (m *MeshData) VertexBytes() []byte {
	if len(m.Vertices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&m.Vertices[0])), len(m.Vertices)*VertexSize)
}

// IndexBytes returns the index array as raw bytes for buffer upload.
func (m *MeshData) IndexBytes() []byte {
	if len(m.Indices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&m.Indices[0])), len(m.Indices)*4)
}

// addQuad appends a quad centered at c spanning ±u and ±v.
// The face normal is u×v and the winding is counter-clockwise seen from it.
func (m *MeshData) addQuad(c, u, v math.Vec3) {
	n := u.Cross(v).Normalize()
	base := uint32(len(m.Vertices))
	m.Vertices = append(m.Vertices,
		Vertex{c.Sub(u).Sub(v), n},
		Vertex{c.Add(u).Sub(v), n},
		Vertex{c.Add(u).Add(v), n},
		Vertex{c.Sub(u).Add(v), n},
	)
	m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
}

// addTriangle appends a flat-shaded triangle with counter-clockwise winding.
func (m *MeshData) addTriangle(a, b, c math.Vec3) {
	n := b.Sub(a).Cross(c.Sub(a)).Normalize()
	base := uint32(len(m.Vertices))
	m.Vertices = append(m.Vertices, Vertex{a, n}, Vertex{b, n}, Vertex{c, n})
	m.Indices = append(m.Indices, base, base+1, base+2)
}
