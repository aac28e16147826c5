package cooking

import (
	"bytes"
	"errors"
	gomath "math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/physics-samples/pkg/geometry"
	"github.com/Faultbox/physics-samples/pkg/math"
)

func TestCookPrimitive(t *testing.T) {
	valid := []math.Vec3{
		{X: 1, Y: 1, Z: 1},
		{X: 0.25, Y: 1, Z: 0.25},
		{X: 4, Y: 0.001, Z: 100},
	}
	for _, dims := range valid {
		for _, kind := range []Kind{KindBox, KindCapsule} {
			p, err := CookPrimitive(kind, dims)
			if err != nil {
				t.Fatalf("CookPrimitive(%s, %v) failed: %v", kind, dims, err)
			}
			if p.HalfExtents != dims {
				t.Errorf("CookPrimitive(%s): extents %v, want %v", kind, p.HalfExtents, dims)
			}
			if p.Kind() != kind {
				t.Errorf("Kind: got %s, want %s", p.Kind(), kind)
			}
		}
	}

	invalid := []math.Vec3{
		{X: 0, Y: 1, Z: 1},
		{X: 1, Y: -1, Z: 1},
		{X: 1, Y: 1, Z: -0.5},
		{X: float32(gomath.NaN()), Y: 1, Z: 1},
		{X: 1, Y: float32(gomath.Inf(1)), Z: 1},
	}
	for _, dims := range invalid {
		if _, err := CookPrimitive(KindBox, dims); !errors.Is(err, ErrInvalidDimensions) {
			t.Errorf("CookPrimitive(%v): got %v, want ErrInvalidDimensions", dims, err)
		}
	}

	if _, err := CookPrimitive(KindTriangleMesh, math.Vec3{X: 1, Y: 1, Z: 1}); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("CookPrimitive(mesh): got %v, want ErrInvalidDimensions", err)
	}
}

func TestPrimitiveBounds(t *testing.T) {
	capsule, _ := CookPrimitive(KindCapsule, math.Vec3{X: 0.5, Y: 1, Z: 0.5})
	lo, hi := capsule.Bounds()
	if hi != (mgl64.Vec3{0.5, 1.5, 0.5}) || lo != (mgl64.Vec3{-0.5, -1.5, -0.5}) {
		t.Errorf("capsule bounds: got %v..%v", lo, hi)
	}
	box, _ := CookPrimitive(KindBox, math.Vec3{X: 1, Y: 2, Z: 3})
	if v := box.Volume(); v != 48 {
		t.Errorf("box volume: got %v, want 48", v)
	}
}

func TestCookTetrahedronSDF(t *testing.T) {
	mesh := geometry.Tetrahedron(1)
	params := Params{WeldTolerance: 0.001, SDF: &SDFParams{Spacing: 0.5, SubgridSize: 6, BitsPerCell: 16}}

	m, err := CookConcaveMesh(mesh, params)
	if err != nil {
		t.Fatalf("CookConcaveMesh failed: %v", err)
	}
	if m.VertexCount() != 4 || m.TriangleCount() != 4 {
		t.Errorf("got %d vertices %d triangles, want 4/4", m.VertexCount(), m.TriangleCount())
	}
	if !m.Closed() || !m.HasSDF() {
		t.Fatalf("closed=%v sdf=%v, want both", m.Closed(), m.HasSDF())
	}
	if m.SDF.SubgridCount() == 0 || m.SDF.Bytes() == 0 {
		t.Error("expected a non-empty field")
	}
	if d, _ := m.Query(mgl64.Vec3{}); d >= 0 {
		t.Errorf("center distance %v, want negative", d)
	}
	if d, _ := m.Query(mgl64.Vec3{3, 3, 3}); d <= 0 {
		t.Errorf("far distance %v, want positive", d)
	}
}

func TestCookRejectsBadSpacing(t *testing.T) {
	mesh := geometry.Tetrahedron(1)
	for _, spacing := range []float64{0, -0.5, gomath.NaN()} {
		params := Params{WeldTolerance: 0.001, SDF: &SDFParams{Spacing: spacing, SubgridSize: 6, BitsPerCell: 16}}
		_, err := CookConcaveMesh(mesh, params)
		if !errors.Is(err, ErrCookingFailed) || !errors.Is(err, ErrInvalidParams) {
			t.Errorf("spacing %v: got %v, want ErrInvalidParams", spacing, err)
		}
	}
}

func TestCookRejectsBadParams(t *testing.T) {
	mesh := geometry.Tetrahedron(1)
	bad := []Params{
		{WeldTolerance: -1},
		{SDF: &SDFParams{Spacing: 0.5, SubgridSize: 0, BitsPerCell: 8}},
		{SDF: &SDFParams{Spacing: 0.5, SubgridSize: 4, BitsPerCell: 12}},
		{SDF: &SDFParams{Spacing: 0.5, SubgridSize: 1 << 21, BitsPerCell: 8}},
	}
	for _, p := range bad {
		if _, err := CookConcaveMesh(mesh, p); !errors.Is(err, ErrInvalidParams) {
			t.Errorf("params %+v: got %v, want ErrInvalidParams", p, err)
		}
	}
}

func TestCookRejectsOversizedField(t *testing.T) {
	mesh := geometry.Tetrahedron(1)
	for _, sdf := range []SDFParams{
		{Spacing: 1e-7, SubgridSize: 6, BitsPerCell: 16},
		{Spacing: 1e-300, SubgridSize: 6, BitsPerCell: 16},
		{Spacing: 0.001, SubgridSize: MaxSubgridSize, BitsPerCell: 8},
	} {
		m, err := CookConcaveMesh(mesh, Params{WeldTolerance: 0.001, SDF: &sdf})
		if !errors.Is(err, ErrCookingFailed) {
			t.Errorf("%+v: got %v, want ErrCookingFailed", sdf, err)
		}
		if m != nil {
			t.Errorf("%+v: returned a mesh alongside the error", sdf)
		}
	}
}

func TestCookAfterRejectedField(t *testing.T) {
	mesh := geometry.Tetrahedron(1)
	_, _ = CookConcaveMesh(mesh, Params{SDF: &SDFParams{Spacing: 1e-7, SubgridSize: 6, BitsPerCell: 16}})
	m, err := CookConcaveMesh(mesh, Params{WeldTolerance: 0.001, SDF: &SDFParams{Spacing: 0.5, SubgridSize: 6, BitsPerCell: 16}})
	if err != nil {
		t.Fatalf("cook after rejection: %v", err)
	}
	if d := m.SDF.Sample(mgl64.Vec3{0.2, 0.2, 0.2}); gomath.IsInf(d, 0) || gomath.IsNaN(d) {
		t.Errorf("inside sample = %v, want finite", d)
	}
}

func TestCookDeterministic(t *testing.T) {
	mesh := geometry.Pyramid(math.Vec3{X: 1, Y: 0.5, Z: 0.5})
	params := Params{WeldTolerance: 0.001, SDF: &SDFParams{Spacing: 0.1, SubgridSize: 4, BitsPerCell: 8}}

	a, err := CookConcaveMesh(mesh, params)
	if err != nil {
		t.Fatalf("first cook: %v", err)
	}
	b, err := CookConcaveMesh(mesh, params)
	if err != nil {
		t.Fatalf("second cook: %v", err)
	}
	if a.VertexCount() != b.VertexCount() || a.TriangleCount() != b.TriangleCount() {
		t.Errorf("counts differ: %d/%d vs %d/%d", a.VertexCount(), a.TriangleCount(), b.VertexCount(), b.TriangleCount())
	}
	if !bytes.Equal(a.SDF.data, b.SDF.data) {
		t.Error("field data differs between runs")
	}
}

func TestWeldBox(t *testing.T) {
	m, err := CookConcaveMesh(geometry.Box(math.Vec3{X: 1, Y: 2, Z: 0.5}), DefaultParams())
	if err != nil {
		t.Fatalf("CookConcaveMesh: %v", err)
	}
	if m.VertexCount() != 8 || m.TriangleCount() != 12 {
		t.Errorf("got %d vertices %d triangles, want 8/12", m.VertexCount(), m.TriangleCount())
	}
	if !m.Closed() {
		t.Error("box should be closed")
	}
	if v := m.Volume(); gomath.Abs(v-8) > 1e-5 {
		t.Errorf("volume: got %v, want 8", v)
	}
}

func TestCookFailures(t *testing.T) {
	v := func(x, y, z float32) geometry.Vertex {
		return geometry.Vertex{Position: math.Vec3{X: x, Y: y, Z: z}}
	}
	tests := []struct {
		name string
		mesh *geometry.MeshData
	}{
		{"nil", nil},
		{"too few vertices", &geometry.MeshData{
			Vertices: []geometry.Vertex{v(0, 0, 0), v(1, 0, 0), v(0, 1, 0)},
			Indices:  []uint32{0, 1, 2},
		}},
		{"no triangles", &geometry.MeshData{
			Vertices: []geometry.Vertex{v(0, 0, 0), v(1, 0, 0), v(0, 1, 0), v(0, 0, 1)},
		}},
		{"index out of range", &geometry.MeshData{
			Vertices: []geometry.Vertex{v(0, 0, 0), v(1, 0, 0), v(0, 1, 0), v(0, 0, 1)},
			Indices:  []uint32{0, 1, 7},
		}},
		{"collapsed after weld", &geometry.MeshData{
			Vertices: []geometry.Vertex{v(0, 0, 0), v(0.0001, 0, 0), v(1, 0, 0), v(0, 1, 0)},
			Indices:  []uint32{0, 1, 3},
		}},
		{"zero area", &geometry.MeshData{
			Vertices: []geometry.Vertex{v(0, 0, 0), v(1, 0, 0), v(2, 0, 0), v(0, 1, 0)},
			Indices:  []uint32{0, 1, 2},
		}},
		{"non-manifold edge", &geometry.MeshData{
			Vertices: []geometry.Vertex{v(0, 0, 0), v(1, 0, 0), v(0, 1, 0), v(0, -1, 0), v(0, 0, 1)},
			Indices:  []uint32{0, 1, 2, 0, 1, 3, 0, 1, 4},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := CookConcaveMesh(tt.mesh, DefaultParams()); !errors.Is(err, ErrCookingFailed) {
				t.Errorf("got %v, want ErrCookingFailed", err)
			}
		})
	}
}

func TestOpenMesh(t *testing.T) {
	plane := geometry.Plane(5, 2)

	if _, err := CookConcaveMesh(plane, Params{SDF: &SDFParams{Spacing: 0.5, SubgridSize: 4, BitsPerCell: 8}}); !errors.Is(err, ErrCookingFailed) {
		t.Errorf("open mesh with field: got %v, want ErrCookingFailed", err)
	}

	m, err := CookConcaveMesh(plane, DefaultParams())
	if err != nil {
		t.Fatalf("open mesh without field: %v", err)
	}
	if m.Closed() {
		t.Error("plane should not be closed")
	}
	d, n := m.Query(mgl64.Vec3{1, 2, 1})
	if gomath.Abs(d-2) > 1e-9 || n.Sub(mgl64.Vec3{0, 1, 0}).Len() > 1e-9 {
		t.Errorf("above plane: got %v %v, want 2 (0,1,0)", d, n)
	}
	d, n = m.Query(mgl64.Vec3{1, -0.5, 1})
	if gomath.Abs(d+0.5) > 1e-9 || n[1] < 0.99 {
		t.Errorf("below plane: got %v %v, want -0.5 pointing up", d, n)
	}
}

func TestSDFMatchesExact(t *testing.T) {
	mesh := geometry.Box(math.Vec3{X: 1, Y: 1, Z: 1})
	for _, bits := range []int{8, 16} {
		m, err := CookConcaveMesh(mesh, Params{WeldTolerance: 0.001, SDF: &SDFParams{Spacing: 0.1, SubgridSize: 6, BitsPerCell: bits}})
		if err != nil {
			t.Fatalf("bits %d: %v", bits, err)
		}
		points := []mgl64.Vec3{
			{0, 0, 0},
			{0, 1.5, 0},
			{0.3, -0.9, 0.2},
			{1.1, 0.2, -0.4},
			{10, 0, 0},
		}
		for _, p := range points {
			want, _ := m.exactQuery(p)
			got := m.SDF.Sample(p)
			if gomath.Abs(got-want) > 0.1 {
				t.Errorf("bits %d at %v: field %v, exact %v", bits, p, got, want)
			}
		}
		if g := m.SDF.Gradient(mgl64.Vec3{0, 1.05, 0}); g[1] < 0.9 {
			t.Errorf("bits %d gradient above top face: %v", bits, g)
		}
	}
}

func TestClosestPointOnTriangle(t *testing.T) {
	a := mgl64.Vec3{0, 0, 0}
	b := mgl64.Vec3{1, 0, 0}
	c := mgl64.Vec3{0, 1, 0}
	tests := []struct {
		p, want mgl64.Vec3
	}{
		{mgl64.Vec3{0.2, 0.2, 1}, mgl64.Vec3{0.2, 0.2, 0}},
		{mgl64.Vec3{-1, -1, 0}, a},
		{mgl64.Vec3{2, -0.5, 0}, b},
		{mgl64.Vec3{-0.5, 2, 0}, c},
		{mgl64.Vec3{0.5, -1, 0}, mgl64.Vec3{0.5, 0, 0}},
		{mgl64.Vec3{1, 1, 0}, mgl64.Vec3{0.5, 0.5, 0}},
	}
	for _, tt := range tests {
		if got := closestPointOnTriangle(tt.p, a, b, c); got.Sub(tt.want).Len() > 1e-9 {
			t.Errorf("closest(%v): got %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestWindingNumber(t *testing.T) {
	m, err := CookConcaveMesh(geometry.Tetrahedron(1), DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if w := m.windingNumber(mgl64.Vec3{}); gomath.Abs(gomath.Abs(w)-1) > 1e-6 {
		t.Errorf("inside winding: got %v, want ±1", w)
	}
	if w := m.windingNumber(mgl64.Vec3{5, 0, 0}); gomath.Abs(w) > 1e-6 {
		t.Errorf("outside winding: got %v, want 0", w)
	}
}
