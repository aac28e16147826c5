package sample

import (
	"context"
	"errors"
	gomath "math"
	"testing"
	"time"

	"github.com/Faultbox/physics-samples/internal/body"
	"github.com/Faultbox/physics-samples/internal/config"
	"github.com/Faultbox/physics-samples/internal/engine/scene"
	"github.com/Faultbox/physics-samples/pkg/math"
)

const frame = 1.0 / 60

type recorder struct {
	next      scene.Buffer
	draws     int
	lineCalls int
	lineVerts int
}

func (r *recorder) UploadVertexBuffer([]byte) (scene.Buffer, error) { r.next++; return r.next, nil }
func (r *recorder) UploadIndexBuffer([]byte) (scene.Buffer, error)  { r.next++; return r.next, nil }
func (r *recorder) SetWorldTransform(math.Mat4)                     {}
func (r *recorder) SetColor([4]float32)                             {}
func (r *recorder) DrawIndexed(_, _ scene.Buffer, _ int)            { r.draws++ }
func (r *recorder) DeleteBuffer(scene.Buffer)                       {}
func (r *recorder) DrawLineList(_ []byte, count int) {
	r.lineCalls++
	r.lineVerts += count
}

func build(t *testing.T, name string) *Simulation {
	t.Helper()
	cfg := config.Default()
	cfg.Sample.Name = name
	sim, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New(%q): %v", name, err)
	}
	t.Cleanup(sim.Close)
	return sim
}

func TestLookup(t *testing.T) {
	names := Names()
	if len(names) != 7 {
		t.Fatalf("Names() = %v, want 7 samples", names)
	}
	if names[0] != "basic" {
		t.Errorf("first sample %q, want basic", names[0])
	}
	for _, n := range names {
		s, err := Lookup(n)
		if err != nil || s.Name != n || s.Build == nil {
			t.Errorf("Lookup(%q) = %+v, %v", n, s, err)
		}
	}
	if _, err := Lookup("nope"); !errors.Is(err, ErrUnknown) {
		t.Errorf("Lookup(nope) error = %v, want ErrUnknown", err)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Physics.Density = 250
	cfg.Physics.ScaleCoeff = 0.9
	cfg.Cooking.SDFSpacing = 0.05
	cfg.Debug.RawColorChannels = true

	o := OptionsFromConfig(cfg)
	if o.Body.Density != 250 {
		t.Errorf("density = %v, want 250", o.Body.Density)
	}
	if o.Body.Cooking.SDF != nil {
		t.Error("rigid body cooking should carry no SDF")
	}
	if o.Body.Cooking.WeldTolerance != cfg.Cooking.WeldTolerance {
		t.Errorf("weld = %v", o.Body.Cooking.WeldTolerance)
	}
	if o.SDF.Spacing != 0.05 || o.SDF.SubgridSize != 6 || o.SDF.BitsPerCell != 16 {
		t.Errorf("sdf = %+v", o.SDF)
	}
	if o.Character.ScaleCoeff != 0.9 {
		t.Errorf("character scale = %v, want 0.9", o.Character.ScaleCoeff)
	}
	if !o.RawColors {
		t.Error("raw colors not carried")
	}
}

func TestPhysicsConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Physics.Gravity = [3]float64{0, -1.62, 0}
	cfg.Debug.ActorAxes = false
	cfg.Debug.ContactPoints = true
	cfg.Debug.ConnectTimeout = 0.5

	pc := PhysicsConfig(cfg)
	if pc.Gravity[1] != -1.62 {
		t.Errorf("gravity = %v", pc.Gravity)
	}
	if pc.Workers != 2 || pc.Substeps != 4 {
		t.Errorf("workers %d substeps %d", pc.Workers, pc.Substeps)
	}
	v := pc.Visualization
	if v.Scale != 1 || v.ActorAxes != 0 || v.CollisionShapes != 1 || v.ContactPoints != 1 {
		t.Errorf("visualization = %+v", v)
	}
	if pc.DebuggerTimeout != 500*time.Millisecond {
		t.Errorf("timeout = %v", pc.DebuggerTimeout)
	}
	if pc.DebuggerAddress != "" {
		t.Errorf("debugger = %q, want none", pc.DebuggerAddress)
	}
}

func TestEverySampleRuns(t *testing.T) {
	want := map[string]struct{ bodies, joints int }{
		"basic":               {1, 0},
		"dynamic-sdf":         {2, 0},
		"kinematic-cooked":    {2, 0},
		"static-cooked":       {3, 0},
		"kinematics":          {3, 0},
		"joints-fixed":        {2, 1},
		"dynamic-locked-axis": {4, 0},
	}
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			sim := build(t, name)
			reg := sim.Registry()
			if reg.Len() != want[name].bodies || len(reg.Joints()) != want[name].joints {
				t.Fatalf("bodies %d joints %d, want %+v", reg.Len(), len(reg.Joints()), want[name])
			}

			dev := &recorder{}
			for range 30 {
				if err := sim.Step(frame); err != nil {
					t.Fatalf("Step: %v", err)
				}
				if err := sim.Render(dev); err != nil {
					t.Fatalf("Render: %v", err)
				}
			}
			if sim.Frames() != 30 || gomath.Abs(sim.Time()-0.5) > 1e-9 {
				t.Errorf("frames %d time %v", sim.Frames(), sim.Time())
			}
			if dev.draws != 30*(reg.Len()+1) {
				t.Errorf("draws = %d, want %d", dev.draws, 30*(reg.Len()+1))
			}
			if dev.lineCalls == 0 || dev.lineVerts%2 != 0 {
				t.Errorf("line calls %d vertices %d", dev.lineCalls, dev.lineVerts)
			}
			for _, b := range reg.Bodies() {
				if p := b.Position(); !p.Finite() || p.Y < -1 {
					t.Errorf("%s at %+v", b.Name(), p)
				}
			}
		})
	}
}

func TestBasicBoxSettles(t *testing.T) {
	sim := build(t, "basic")
	for range 240 {
		if err := sim.Step(frame); err != nil {
			t.Fatal(err)
		}
	}
	box := sim.Registry().Bodies()[0]
	if y := box.Position().Y; gomath.Abs(float64(y)-1) > 0.1 {
		t.Errorf("box rests at y = %v, want about 1", y)
	}
}

func TestLockedAxisKeepsOrientation(t *testing.T) {
	sim := build(t, "dynamic-locked-axis")
	var locked body.Body
	for _, b := range sim.Registry().Bodies() {
		if b.Name() == "locked" {
			locked = b
		}
	}
	if locked == nil {
		t.Fatal("locked body missing")
	}
	for range 120 {
		if err := sim.Step(frame); err != nil {
			t.Fatal(err)
		}
	}
	w := locked.World()
	id := math.Identity()
	for _, i := range []int{0, 1, 2, 4, 5, 6, 8, 9, 10} {
		if gomath.Abs(float64(w[i]-id[i])) > 1e-4 {
			t.Fatalf("locked body rotated: %v", w)
		}
	}
}

func TestCharacterWalksToWall(t *testing.T) {
	sim := build(t, "kinematics")
	var c *body.Character
	for _, b := range sim.Registry().Bodies() {
		if ch, ok := b.(*body.Character); ok {
			c = ch
		}
	}
	if c == nil {
		t.Fatal("character missing")
	}
	for range 600 {
		if err := sim.Step(frame); err != nil {
			t.Fatal(err)
		}
	}
	// Wall face at x = 5.5, character half width 0.5 plus skin.
	if x := c.Position().X; x > 5.1 || x < 4.5 {
		t.Errorf("character stopped at x = %v, want just before the wall", x)
	}
	if !c.Grounded() {
		t.Error("character should stand on the ground")
	}
}

func TestUnknownSample(t *testing.T) {
	cfg := config.Default()
	cfg.Sample.Name = "missing"
	if _, err := New(context.Background(), cfg); !errors.Is(err, ErrUnknown) {
		t.Errorf("error = %v, want ErrUnknown", err)
	}
}
