package physics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/physics-samples/internal/physics/cooking"
	"github.com/Faultbox/physics-samples/internal/physics/world"
	"github.com/Faultbox/physics-samples/pkg/math"
)

func newStepper(t *testing.T, cfg Config) *Stepper {
	t.Helper()
	s, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func box(t *testing.T, half float32) cooking.Shape {
	t.Helper()
	p, err := cooking.CookPrimitive(cooking.KindBox, math.Vec3{X: half, Y: half, Z: half})
	if err != nil {
		t.Fatalf("CookPrimitive: %v", err)
	}
	return p
}

func TestOneStepperPerProcess(t *testing.T) {
	s := newStepper(t, DefaultConfig())
	if _, err := New(context.Background(), DefaultConfig()); !errors.Is(err, world.ErrFoundationInitFailed) {
		t.Errorf("second stepper: got %v, want ErrFoundationInitFailed", err)
	}
	s.Close()

	s2, err := New(context.Background(), DefaultConfig())
	if err != nil {
		t.Fatalf("New after Close: %v", err)
	}
	s2.Close()
}

func TestDebuggerUnavailableIsLogged(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	core, logs := observer.New(zapcore.WarnLevel)
	cfg := DefaultConfig()
	cfg.DebuggerAddress = addr
	cfg.Logger = zap.New(core)
	s := newStepper(t, cfg)

	if s.DebuggerConnected() {
		t.Error("debugger reported connected")
	}
	if logs.FilterMessage("visual debugger unavailable, continuing without it").Len() != 1 {
		t.Errorf("warning not logged: %v", logs.All())
	}
	if err := s.Step(1.0 / 60); err != nil {
		t.Errorf("Step: %v", err)
	}
}

func TestCreateActor(t *testing.T) {
	s := newStepper(t, DefaultConfig())
	mat := s.CreateMaterial(0.5, 0.5, 0.6)

	if _, err := s.CreateActor(ActorDesc{Shape: box(t, 1), Material: mat}); !errors.Is(err, world.ErrActorCreationFailed) {
		t.Errorf("dynamic without density: got %v", err)
	}
	if _, err := s.CreateActor(ActorDesc{Shape: box(t, 1), Static: true, Kinematic: true}); !errors.Is(err, world.ErrActorCreationFailed) {
		t.Errorf("static and kinematic: got %v", err)
	}
	if _, err := s.CreateActor(ActorDesc{}); !errors.Is(err, world.ErrActorCreationFailed) {
		t.Errorf("no shape: got %v", err)
	}

	a, err := s.CreateActor(ActorDesc{
		Name:          "crate",
		Shape:         box(t, 0.5),
		Pose:          world.PoseAt(mgl64.Vec3{0, 5, 0}),
		Material:      mat,
		Density:       10,
		ContactOffset: 0.05,
		RestOffset:    0.01,
	})
	if err != nil {
		t.Fatalf("CreateActor: %v", err)
	}
	if m := a.Mass(); m != 10 {
		t.Errorf("mass = %v, want 10", m)
	}
	sh := a.Shapes()[0]
	if sh.ContactOffset() != 0.05 || sh.RestOffset() != 0.01 {
		t.Errorf("offsets = %v/%v", sh.ContactOffset(), sh.RestOffset())
	}
	if a.Scene() != nil {
		t.Error("actor in scene before AddActorToScene")
	}
	if err := s.AddActorToScene(a); err != nil {
		t.Fatalf("AddActorToScene: %v", err)
	}
	if err := s.Step(1.0 / 60); err != nil {
		t.Fatalf("Step: %v", err)
	}
	pos, rot := s.GlobalPose(a)
	if pos.Y >= 5 {
		t.Errorf("y = %v, want below 5", pos.Y)
	}
	if rot.W < 0.999 {
		t.Errorf("rotation = %+v, want identity", rot)
	}
}

func TestCloseReleasesActors(t *testing.T) {
	s, err := New(context.Background(), DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ground, err := s.CreateGround(nil)
	if err != nil {
		t.Fatalf("CreateGround: %v", err)
	}
	a, err := s.CreateActor(ActorDesc{Shape: box(t, 0.5), Pose: world.PoseAt(mgl64.Vec3{0, 1, 0}), Density: 1})
	if err != nil {
		t.Fatalf("CreateActor: %v", err)
	}
	if err := s.AddActorToScene(a); err != nil {
		t.Fatalf("AddActorToScene: %v", err)
	}
	c, err := s.CreateController(&world.CapsuleControllerDesc{
		ControllerDescBase: world.DefaultControllerDescBase(),
		Radius:             0.5,
		Height:             1,
	})
	if err != nil {
		t.Fatalf("CreateController: %v", err)
	}
	if _, err := s.CreateFixedJoint(a, world.IdentityPose(), nil, world.PoseAt(mgl64.Vec3{0, 1, 0})); err != nil {
		t.Fatalf("CreateFixedJoint: %v", err)
	}

	s.Close()
	for _, x := range []*world.Actor{ground, a, c.Actor()} {
		if !x.Released() {
			t.Errorf("actor %q not released", x.Name)
		}
	}
	if err := s.Step(1.0 / 60); err == nil {
		t.Error("Step after Close succeeded")
	}
	s.Close()
}

func TestDebugRenderBuffer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Visualization = Visualization{Scale: 1, CollisionShapes: 1}
	s := newStepper(t, cfg)
	a, err := s.CreateActor(ActorDesc{Shape: box(t, 0.5), Pose: world.PoseAt(mgl64.Vec3{0, 1, 0}), Density: 1, Kinematic: true})
	if err != nil {
		t.Fatalf("CreateActor: %v", err)
	}
	if err := s.AddActorToScene(a); err != nil {
		t.Fatalf("AddActorToScene: %v", err)
	}
	if err := s.Step(1.0 / 60); err != nil {
		t.Fatalf("Step: %v", err)
	}
	lines := s.DebugRenderBuffer()
	if len(lines) != 12 {
		t.Fatalf("%d lines, want 12", len(lines))
	}
	for _, l := range lines {
		if l.Color0 != world.ColorMagenta {
			t.Errorf("kinematic outline color %08x", l.Color0)
			break
		}
	}
}

func TestRenderConversion(t *testing.T) {
	p := world.Pose{P: mgl64.Vec3{1, 2, 3}, Q: mgl64.QuatRotate(1, mgl64.Vec3{0, 1, 0})}
	pos, rot := ToRender(p)
	if pos != (math.Vec3{X: 1, Y: 2, Z: 3}) {
		t.Errorf("pos = %+v", pos)
	}
	v := rot.Rotate(math.Vec3{X: 1})
	want := p.Rotate(mgl64.Vec3{1, 0, 0})
	if d := v.Sub(math.Vec3{X: float32(want[0]), Y: float32(want[1]), Z: float32(want[2])}).Length(); d > 1e-5 {
		t.Errorf("rotation mismatch %v", d)
	}
	if got := FromRender(pos).P; got != p.P {
		t.Errorf("FromRender = %v", got)
	}
}
