package pvd

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/physics-samples/internal/physics/world"
)

func TestEncodeDecode(t *testing.T) {
	f := Frame{
		Step: 7,
		Time: 0.5,
		Actors: []ActorState{
			{ID: 1, Name: "box", Kind: "dynamic", Position: [3]float64{1, 2, 3}, Rotation: [4]float64{0, 0, 0, 1}},
		},
		Lines: 12,
	}
	b, err := Encode(&f)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Step != 7 || got.Lines != 12 || len(got.Actors) != 1 || got.Actors[0].Position != f.Actors[0].Position {
		t.Errorf("decoded %+v", got)
	}
	if _, err := Decode(nil); err == nil {
		t.Error("Decode accepted empty input")
	}
}

func TestConnectRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	_, err := Connect(context.Background(), Config{Address: addr, Timeout: time.Second})
	if !errors.Is(err, ErrTransportUnavailable) {
		t.Errorf("got %v, want ErrTransportUnavailable", err)
	}
	if _, err := Connect(context.Background(), Config{}); !errors.Is(err, ErrTransportUnavailable) {
		t.Errorf("empty address: got %v", err)
	}
}

func TestPublish(t *testing.T) {
	frames := make(chan Frame, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()
		for {
			_, b, err := conn.Read(r.Context())
			if err != nil {
				return
			}
			f, err := Decode(b)
			if err != nil {
				return
			}
			frames <- f
		}
	}))
	defer srv.Close()

	f, err := world.CreateFoundation(world.FoundationDesc{})
	if err != nil {
		t.Fatalf("CreateFoundation: %v", err)
	}
	defer f.Release()
	p, err := f.CreatePhysics(world.DefaultTolerancesScale())
	if err != nil {
		t.Fatalf("CreatePhysics: %v", err)
	}
	scene, err := p.CreateScene(world.DefaultSceneDesc())
	if err != nil {
		t.Fatalf("CreateScene: %v", err)
	}
	a, _ := p.CreateRigidDynamic(world.PoseAt(mgl64.Vec3{0, 4, 0}))
	a.Name = "box"
	if _, err := a.AttachShape(world.BoxGeometry{HalfExtents: mgl64.Vec3{1, 1, 1}}, nil); err != nil {
		t.Fatalf("AttachShape: %v", err)
	}
	if err := scene.AddActor(a); err != nil {
		t.Fatalf("AddActor: %v", err)
	}
	if err := scene.Step(1.0 / 60); err != nil {
		t.Fatalf("Step: %v", err)
	}

	c, err := Connect(context.Background(), Config{Address: "ws" + strings.TrimPrefix(srv.URL, "http")})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	c.Publish(scene)

	select {
	case got := <-frames:
		if got.Step != 1 {
			t.Errorf("step = %d, want 1", got.Step)
		}
		if len(got.Actors) != 1 || got.Actors[0].Name != "box" || got.Actors[0].Kind != "dynamic" {
			t.Errorf("actors = %+v", got.Actors)
		}
		if y := got.Actors[0].Position[1]; y >= 4 {
			t.Errorf("y = %v, want below 4 after a step", y)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no frame received")
	}

	if err := c.Close(); err != nil {
		t.Logf("Close: %v", err)
	}
	if c.Sent() != 1 {
		t.Errorf("Sent = %d, want 1", c.Sent())
	}
	c.Publish(scene)
	if err := c.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
