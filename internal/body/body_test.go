package body

import (
	"context"
	"errors"
	gomath "math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/physics-samples/internal/physics"
	"github.com/Faultbox/physics-samples/internal/physics/cooking"
	"github.com/Faultbox/physics-samples/internal/physics/world"
	"github.com/Faultbox/physics-samples/pkg/geometry"
	"github.com/Faultbox/physics-samples/pkg/math"
)

const frame = 1.0 / 60

func newSim(t *testing.T, gravity mgl64.Vec3) *physics.Stepper {
	t.Helper()
	cfg := physics.DefaultConfig()
	cfg.Gravity = gravity
	s, err := physics.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("physics.New: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func step(t *testing.T, sim *physics.Stepper, bodies ...Body) {
	t.Helper()
	if err := sim.Step(frame); err != nil {
		t.Fatalf("Step: %v", err)
	}
	for _, b := range bodies {
		b.Update(frame)
	}
}

func TestDynamicFalls(t *testing.T) {
	sim := newSim(t, mgl64.Vec3{0, -9.81, 0})
	if _, err := NewGround(sim, 20, DefaultOptions()); err != nil {
		t.Fatalf("NewGround: %v", err)
	}
	d, err := NewDynamic(sim, math.Vec3{Y: 10}, BoxShape(math.Vec3{X: 0.5, Y: 0.5, Z: 0.5}), DefaultOptions())
	if err != nil {
		t.Fatalf("NewDynamic: %v", err)
	}
	if d.State() != StateCreated || d.Kind() != KindDynamic {
		t.Fatalf("state %v kind %v", d.State(), d.Kind())
	}
	if got := d.World().Translation(); got != (math.Vec3{Y: 10}) {
		t.Errorf("initial transform translation %+v", got)
	}

	prev := d.Position().Y
	for i := 0; i < 30; i++ {
		step(t, sim, d)
		y := d.Position().Y
		if y >= prev {
			t.Fatalf("frame %d: y=%v not below %v", i, y, prev)
		}
		prev = y
	}
	if got := d.World().Translation(); got != d.Position() {
		t.Errorf("transform translation %+v, position %+v", got, d.Position())
	}
}

func TestRenderTransformRotatesThenTranslates(t *testing.T) {
	sim := newSim(t, mgl64.Vec3{})
	d, err := NewDynamic(sim, math.Vec3{X: 3}, BoxShape(math.Vec3{X: 0.5, Y: 0.5, Z: 0.5}), DefaultOptions())
	if err != nil {
		t.Fatalf("NewDynamic: %v", err)
	}
	d.Actor().SetAngularVelocity(mgl64.Vec3{0, 2, 0})
	for i := 0; i < 20; i++ {
		step(t, sim, d)
	}

	pos, rot := sim.GlobalPose(d.Actor())
	if got := d.World().Translation(); got.Sub(pos).Length() > 1e-5 {
		t.Errorf("translation %+v, want %+v", got, pos)
	}
	corner := d.World().TransformVec3(math.Vec3{X: 0.5})
	want := rot.Rotate(math.Vec3{X: 0.5}).Add(pos)
	if corner.Sub(want).Length() > 1e-5 {
		t.Errorf("corner %+v, want %+v", corner, want)
	}
	if rot.W > 0.99 {
		t.Errorf("body did not spin: %+v", rot)
	}
}

func TestKinematicIgnoresGravity(t *testing.T) {
	sim := newSim(t, mgl64.Vec3{0, -9.81, 0})
	k, err := NewKinematic(sim, math.Vec3{Y: 5}, BoxShape(math.Vec3{X: 1, Y: 0.25, Z: 1}), DefaultOptions())
	if err != nil {
		t.Fatalf("NewKinematic: %v", err)
	}
	for i := 0; i < 60; i++ {
		step(t, sim, k)
	}
	if got := k.Position(); got != (math.Vec3{Y: 5}) {
		t.Errorf("kinematic moved to %+v", got)
	}
}

func TestKinematicPathDriver(t *testing.T) {
	sim := newSim(t, mgl64.Vec3{0, -9.81, 0})
	k, err := NewKinematic(sim, math.Vec3{Y: 1}, BoxShape(math.Vec3{X: 1, Y: 0.25, Z: 1}), DefaultOptions())
	if err != nil {
		t.Fatalf("NewKinematic: %v", err)
	}
	k.SetDriver(NewPathDriver(math.Vec3{}, math.Vec3{X: 2}, 1, nil))

	for i := 0; i < 30; i++ {
		step(t, sim, k)
	}
	// The pose lags the driver by one frame.
	if x := k.Position().X; gomath.Abs(float64(x)-2*29.0/60) > 1e-3 {
		t.Errorf("x = %v, want %v", x, 2*29.0/60)
	}
	if y := k.Position().Y; y != 1 {
		t.Errorf("y = %v, want 1", y)
	}
}

func TestPathDriverPingPong(t *testing.T) {
	d := NewPathDriver(math.Vec3{}, math.Vec3{Y: 4}, 1, nil)
	if got := d.Advance(0.5); gomath.Abs(float64(got.Y)-2) > 1e-4 {
		t.Errorf("half way out = %v", got.Y)
	}
	if got := d.Advance(0.25); gomath.Abs(float64(got.Y)-3) > 1e-4 {
		t.Errorf("three quarters out = %v", got.Y)
	}

	var peak, back float32 = 0, 4
	for i := 0; i < 120; i++ {
		y := d.Advance(frame).Y
		if y < -1e-4 || y > 4+1e-4 {
			t.Fatalf("offset %v left the path", y)
		}
		peak = max(peak, y)
		back = min(back, y)
	}
	if peak < 3.9 {
		t.Errorf("peak %v never reached the far end", peak)
	}
	if back > 1 {
		t.Errorf("path never came back, lowest %v", back)
	}
}

func TestKinematicCookedMesh(t *testing.T) {
	sim := newSim(t, mgl64.Vec3{0, -9.81, 0})
	k, err := NewKinematic(sim, math.Vec3{Y: 2}, MeshShape(geometry.Pyramid(math.Vec3{X: 1, Y: 1, Z: 1})), DefaultOptions())
	if err != nil {
		t.Fatalf("NewKinematic: %v", err)
	}
	g, ok := k.Actor().Shapes()[0].Geometry().(world.TriangleMeshGeometry)
	if !ok {
		t.Fatalf("geometry %T", k.Actor().Shapes()[0].Geometry())
	}
	if g.Mesh.HasSDF() {
		t.Error("kinematic mesh cooked with an sdf")
	}
	if k.Mesh().TriangleCount() != 6 {
		t.Errorf("render mesh has %d triangles", k.Mesh().TriangleCount())
	}
}

func TestDynamicMeshGetsSDF(t *testing.T) {
	sim := newSim(t, mgl64.Vec3{0, -9.81, 0})
	opts := DefaultOptions()
	sdf := cooking.DefaultSDFParams()
	sdf.Spacing = 0.25
	opts.Cooking.SDF = &sdf
	d, err := NewDynamic(sim, math.Vec3{Y: 3}, MeshShape(geometry.Tetrahedron(1)), opts)
	if err != nil {
		t.Fatalf("NewDynamic: %v", err)
	}
	g := d.Actor().Shapes()[0].Geometry().(world.TriangleMeshGeometry)
	if !g.Mesh.HasSDF() {
		t.Error("dynamic mesh without sdf")
	}
}

func TestCreationErrors(t *testing.T) {
	sim := newSim(t, mgl64.Vec3{0, -9.81, 0})

	if _, err := NewDynamic(sim, math.Vec3{}, BoxShape(math.Vec3{X: 1, Y: 0, Z: 1}), DefaultOptions()); !errors.Is(err, cooking.ErrInvalidDimensions) {
		t.Errorf("flat box: got %v", err)
	}

	degenerate := &geometry.MeshData{
		Vertices: make([]geometry.Vertex, 3),
		Indices:  []uint32{0, 1, 2},
	}
	if _, err := NewStatic(sim, math.Vec3{}, MeshShape(degenerate), DefaultOptions()); !errors.Is(err, cooking.ErrCookingFailed) {
		t.Errorf("degenerate mesh: got %v", err)
	}

	opts := DefaultOptions()
	opts.Density = 0
	if _, err := NewDynamic(sim, math.Vec3{}, BoxShape(math.Vec3{X: 1, Y: 1, Z: 1}), opts); !errors.Is(err, world.ErrActorCreationFailed) {
		t.Errorf("zero density: got %v", err)
	}

	if _, err := NewCharacter(sim, math.Vec3{}, math.Vec3{X: 0.5, Y: -1, Z: 0.5}, CharacterOptions()); err == nil {
		t.Error("negative character extents accepted")
	}
	if _, err := NewGround(sim, 0, DefaultOptions()); err == nil {
		t.Error("zero ground size accepted")
	}
}

func TestCharacterLandsOnGround(t *testing.T) {
	sim := newSim(t, mgl64.Vec3{0, -9.81, 0})
	ground, err := NewGround(sim, 20, DefaultOptions())
	if err != nil {
		t.Fatalf("NewGround: %v", err)
	}
	c, err := NewCharacter(sim, math.Vec3{Y: 3}, math.Vec3{X: 0.5, Y: 1, Z: 0.5}, CharacterOptions())
	if err != nil {
		t.Fatalf("NewCharacter: %v", err)
	}

	for i := 0; i < 120; i++ {
		step(t, sim, ground, c)
		if y := c.Position().Y; y < 0 {
			t.Fatalf("frame %d: character below ground at %v", i, y)
		}
	}
	if !c.Grounded() {
		t.Errorf("flags = %v, want down", c.CollisionFlags())
	}
	// half height + skin + contact offset
	if y := c.Position().Y; gomath.Abs(float64(y)-1.02) > 1e-3 {
		t.Errorf("y = %v, want 1.02", y)
	}
	if got := c.World().Translation(); got != c.Position() {
		t.Errorf("transform %+v, position %+v", got, c.Position())
	}
	if w := c.World(); w[0] != 1 || w[5] != 1 || w[10] != 1 {
		t.Errorf("character transform has rotation: %v", w)
	}
}

func TestCharacterWalks(t *testing.T) {
	sim := newSim(t, mgl64.Vec3{0, -9.81, 0})
	if _, err := NewGround(sim, 20, DefaultOptions()); err != nil {
		t.Fatalf("NewGround: %v", err)
	}
	c, err := NewCharacter(sim, math.Vec3{Y: 1.02}, math.Vec3{X: 0.5, Y: 1, Z: 0.5}, CharacterOptions())
	if err != nil {
		t.Fatalf("NewCharacter: %v", err)
	}
	c.SetWalk(math.Vec3{X: 3})
	for i := 0; i < 60; i++ {
		step(t, sim, c)
	}
	if x := c.Position().X; gomath.Abs(float64(x)-3) > 0.01 {
		t.Errorf("x = %v, want 3", x)
	}
	if y := c.Position().Y; gomath.Abs(float64(y)-1.02) > 1e-3 {
		t.Errorf("y = %v, want 1.02", y)
	}
}

func TestCharacterBehavior(t *testing.T) {
	var c Character
	if got := c.ShapeBehavior(nil, nil); got != world.BehaviorCanRideOnObject|world.BehaviorSlide {
		t.Errorf("shape behavior %b", got)
	}
	if got := c.ControllerBehavior(nil); got != 0 {
		t.Errorf("controller behavior %b", got)
	}
	if got := c.ObstacleBehavior(nil); got != 0 {
		t.Errorf("obstacle behavior %b", got)
	}
}

func TestRelease(t *testing.T) {
	sim := newSim(t, mgl64.Vec3{0, -9.81, 0})
	k, err := NewKinematic(sim, math.Vec3{Y: 1}, BoxShape(math.Vec3{X: 1, Y: 1, Z: 1}), DefaultOptions())
	if err != nil {
		t.Fatalf("NewKinematic: %v", err)
	}
	c, err := NewCharacter(sim, math.Vec3{X: 5, Y: 3}, math.Vec3{X: 0.5, Y: 1, Z: 0.5}, CharacterOptions())
	if err != nil {
		t.Fatalf("NewCharacter: %v", err)
	}

	k.Release()
	c.Release()
	k.Release()
	for _, b := range []Body{k, c} {
		if b.State() != StateDestroyed {
			t.Errorf("%s state %v", b.Name(), b.State())
		}
		if !b.Actor().Released() {
			t.Errorf("%s actor not released", b.Name())
		}
	}
	if err := k.MoveTo(math.Vec3{}, math.QuatIdentity()); !errors.Is(err, ErrReleased) {
		t.Errorf("MoveTo after release: got %v", err)
	}
	before := c.Position()
	step(t, sim, k, c)
	if c.Position() != before {
		t.Error("released character moved")
	}
}
