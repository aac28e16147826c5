package scene

import (
	"context"
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/physics-samples/internal/body"
	"github.com/Faultbox/physics-samples/internal/physics"
	"github.com/Faultbox/physics-samples/internal/physics/cooking"
	"github.com/Faultbox/physics-samples/internal/physics/world"
	"github.com/Faultbox/physics-samples/pkg/geometry"
	"github.com/Faultbox/physics-samples/pkg/math"
)

// fakeBody records update order into a shared log.
type fakeBody struct {
	id    uuid.UUID
	name  string
	kind  body.Kind
	state body.State
	mesh  *geometry.MeshData
	world math.Mat4
	order *[]string
}

func newFake(name string, kind body.Kind, order *[]string) *fakeBody {
	return &fakeBody{
		id:    uuid.New(),
		name:  name,
		kind:  kind,
		state: body.StateCreated,
		mesh:  geometry.Box(math.Vec3{X: 1, Y: 1, Z: 1}),
		world: math.Translate(float32(len(*order)), 0, 0),
		order: order,
	}
}

func (f *fakeBody) ID() uuid.UUID            { return f.id }
func (f *fakeBody) Name() string             { return f.name }
func (f *fakeBody) Kind() body.Kind          { return f.kind }
func (f *fakeBody) State() body.State        { return f.state }
func (f *fakeBody) Update(float64)           { *f.order = append(*f.order, "update "+f.name) }
func (f *fakeBody) World() math.Mat4         { return f.world }
func (f *fakeBody) Position() math.Vec3      { return f.world.Translation() }
func (f *fakeBody) Color() [4]float32        { return [4]float32{1, 0, 0, 1} }
func (f *fakeBody) Mesh() *geometry.MeshData { return f.mesh }
func (f *fakeBody) Actor() *world.Actor      { return nil }
func (f *fakeBody) Release() {
	f.state = body.StateDestroyed
	*f.order = append(*f.order, "release "+f.name)
}

// recorder is a Device that logs calls.
type recorder struct {
	uploads  int
	next     Buffer
	draws    []int
	worlds   []math.Mat4
	lines    int
	deleted  []Buffer
	failNext bool
}

func (r *recorder) UploadVertexBuffer([]byte) (Buffer, error) {
	r.uploads++
	r.next++
	return r.next, nil
}

func (r *recorder) UploadIndexBuffer([]byte) (Buffer, error) {
	if r.failNext {
		r.failNext = false
		return 0, errors.New("out of memory")
	}
	r.uploads++
	r.next++
	return r.next, nil
}

func (r *recorder) SetWorldTransform(m math.Mat4)      { r.worlds = append(r.worlds, m) }
func (r *recorder) SetColor([4]float32)                {}
func (r *recorder) DrawIndexed(_, _ Buffer, count int) { r.draws = append(r.draws, count) }
func (r *recorder) DrawLineList(_ []byte, count int)   { r.lines += count }
func (r *recorder) DeleteBuffer(b Buffer)              { r.deleted = append(r.deleted, b) }

func TestUpdateOrder(t *testing.T) {
	var order []string
	r, err := New(nil, newFake("ground", body.KindGround, &order), zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, name := range []string{"a", "b", "c"} {
		if err := r.Add(newFake(name, body.KindDynamic, &order)); err != nil {
			t.Fatalf("Add %s: %v", name, err)
		}
	}
	r.Update(1.0 / 60)

	want := []string{"update ground", "update a", "update b", "update c"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestSealedAfterUpdate(t *testing.T) {
	var order []string
	r, err := New(nil, newFake("ground", body.KindGround, &order), zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a := newFake("a", body.KindDynamic, &order)
	if err := r.Add(a); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := r.Add(a); err == nil {
		t.Error("same body added twice")
	}
	r.Update(0)
	if !r.Sealed() {
		t.Fatal("registry not sealed after update")
	}
	if err := r.Add(newFake("late", body.KindDynamic, &order)); !errors.Is(err, ErrSealed) {
		t.Errorf("Add after update: got %v", err)
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
}

func TestNewRequiresGround(t *testing.T) {
	if _, err := New(nil, nil, nil); err == nil {
		t.Error("New accepted a nil ground")
	}
}

func TestTryLogsAndSkips(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	var order []string
	r, err := New(nil, newFake("ground", body.KindGround, &order), zap.New(core))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if b := r.Try(nil, cooking.ErrCookingFailed); b != nil {
		t.Errorf("Try returned %v for a failed body", b)
	}
	if b := r.Try(newFake("ok", body.KindStatic, &order), nil); b == nil {
		t.Error("Try dropped a good body")
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
	entries := logs.FilterMessage("body skipped").All()
	if len(entries) != 1 {
		t.Fatalf("%d skip entries, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["error"]; got != cooking.ErrCookingFailed.Error() {
		t.Errorf("logged error %v", got)
	}
}

func TestRenderUploadsOnce(t *testing.T) {
	var order []string
	ground := newFake("ground", body.KindGround, &order)
	r, err := New(nil, ground, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a := newFake("a", body.KindDynamic, &order)
	a.world = math.Translate(5, 0, 0)
	gone := newFake("gone", body.KindDynamic, &order)
	for _, b := range []body.Body{a, gone} {
		if err := r.Add(b); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	gone.Release()

	dev := &recorder{}
	for i := 0; i < 3; i++ {
		if err := r.Render(dev); err != nil {
			t.Fatalf("Render: %v", err)
		}
	}
	if dev.uploads != 4 {
		t.Errorf("uploads = %d, want 4", dev.uploads)
	}
	if len(dev.draws) != 6 {
		t.Fatalf("draws = %d, want 6", len(dev.draws))
	}
	if dev.draws[0] != 36 {
		t.Errorf("box index count %d, want 36", dev.draws[0])
	}
	if dev.worlds[0] != ground.world || dev.worlds[1] != a.world {
		t.Errorf("draw order transforms %v", dev.worlds[:2])
	}
}

func TestReleaseFreesBuffers(t *testing.T) {
	var order []string
	r, err := New(nil, newFake("ground", body.KindGround, &order), zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := r.Add(newFake("a", body.KindDynamic, &order)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	dev := &recorder{}
	if err := r.Render(dev); err != nil {
		t.Fatalf("Render: %v", err)
	}
	r.Release()

	if len(dev.deleted) != 4 {
		t.Fatalf("deleted %v, want 4 buffers", dev.deleted)
	}
	seen := make(map[Buffer]bool)
	for _, b := range dev.deleted {
		seen[b] = true
	}
	for b := Buffer(1); b <= 4; b++ {
		if !seen[b] {
			t.Errorf("buffer %d not deleted", b)
		}
	}
}

func TestFailedIndexUploadFreesVertices(t *testing.T) {
	var order []string
	r, err := New(nil, newFake("ground", body.KindGround, &order), zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	dev := &recorder{failNext: true}
	if err := r.Render(dev); err == nil {
		t.Fatal("Render succeeded with a failing index upload")
	}
	if len(dev.deleted) != 1 || dev.deleted[0] != 1 {
		t.Errorf("deleted %v, want the vertex buffer [1]", dev.deleted)
	}
	if err := r.Render(dev); err != nil {
		t.Fatalf("second Render: %v", err)
	}
	if len(dev.draws) != 1 {
		t.Errorf("draws = %d, want 1 after retry", len(dev.draws))
	}
}

func newStepper(t *testing.T) *physics.Stepper {
	t.Helper()
	cfg := physics.DefaultConfig()
	cfg.Gravity = mgl64.Vec3{0, -9.81, 0}
	s, err := physics.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("physics.New: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestFixedJointScenario(t *testing.T) {
	sim := newStepper(t)
	ground, err := body.NewGround(sim, 20, body.DefaultOptions())
	if err != nil {
		t.Fatalf("NewGround: %v", err)
	}
	r, err := New(sim, ground, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	half := body.BoxShape(math.Vec3{X: 0.5, Y: 0.5, Z: 0.5})
	a := r.Try(body.NewDynamic(sim, math.Vec3{X: -2, Y: 5}, half, body.DefaultOptions()))
	b := r.Try(body.NewDynamic(sim, math.Vec3{X: 2, Y: 3}, half, body.DefaultOptions()))
	if a == nil || b == nil {
		t.Fatal("bodies not created")
	}
	j, err := r.AddFixedJoint(a, b, math.Vec3{X: -2}, math.Vec3{X: 2})
	if err != nil {
		t.Fatalf("AddFixedJoint: %v", err)
	}
	initial := j.Error()

	for i := 0; i < 60; i++ {
		if err := sim.Step(1.0 / 60); err != nil {
			t.Fatalf("Step: %v", err)
		}
		r.Update(1.0 / 60)
	}

	for _, x := range r.Bodies() {
		if y := x.Position().Y; y < 0.4 {
			t.Errorf("%s below the floor: y=%v", x.Name(), y)
		}
	}
	if d := a.Position().Distance(b.Position()); d > 6 {
		t.Errorf("bodies separated to %v", d)
	}
	if e := j.Error(); e > initial/2 {
		t.Errorf("joint error %v, initial %v", e, initial)
	}

	r.Release()
	if len(sim.Scene().Joints()) != 0 {
		t.Errorf("%d joints left after release", len(sim.Scene().Joints()))
	}
	for _, x := range []body.Body{a, b, ground} {
		if x.State() != body.StateDestroyed {
			t.Errorf("%s not released", x.Name())
		}
	}
}

func TestJointRejectsOtherKinds(t *testing.T) {
	sim := newStepper(t)
	ground, err := body.NewGround(sim, 20, body.DefaultOptions())
	if err != nil {
		t.Fatalf("NewGround: %v", err)
	}
	r, err := New(sim, ground, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	box := body.BoxShape(math.Vec3{X: 0.5, Y: 0.5, Z: 0.5})
	d := r.Try(body.NewDynamic(sim, math.Vec3{Y: 2}, box, body.DefaultOptions()))
	s := r.Try(body.NewStatic(sim, math.Vec3{X: 3, Y: 0.5}, box, body.DefaultOptions()))
	k, err := body.NewKinematic(sim, math.Vec3{X: -3, Y: 2}, box, body.DefaultOptions())
	if err != nil {
		t.Fatalf("NewKinematic: %v", err)
	}

	if _, err := r.AddFixedJoint(d, s, math.Vec3{}, math.Vec3{}); !errors.Is(err, ErrJointBody) {
		t.Errorf("static joint: got %v", err)
	}
	if _, err := r.AddFixedJoint(d, ground, math.Vec3{}, math.Vec3{}); !errors.Is(err, ErrJointBody) {
		t.Errorf("ground joint: got %v", err)
	}
	if _, err := r.AddFixedJoint(d, k, math.Vec3{}, math.Vec3{}); !errors.Is(err, ErrNotRegistered) {
		t.Errorf("unregistered joint: got %v", err)
	}
	if err := r.Add(k); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := r.AddFixedJoint(d, k, math.Vec3{X: 1.5}, math.Vec3{X: -1.5}); err != nil {
		t.Errorf("kinematic joint: %v", err)
	}
}
