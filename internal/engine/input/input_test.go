package input

import (
	"testing"

	"github.com/veandco/go-sdl2/sdl"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name   string
		in     sdl.Event
		want   Event
		wantOK bool
	}{
		{"quit", &sdl.QuitEvent{Type: sdl.QUIT}, Event{Type: EventQuit}, true},
		{
			"resize",
			&sdl.WindowEvent{Type: sdl.WINDOWEVENT, Event: sdl.WINDOWEVENT_RESIZED, Data1: 640, Data2: 480},
			Event{Type: EventWindowResize, Width: 640, Height: 480},
			true,
		},
		{"window moved", &sdl.WindowEvent{Type: sdl.WINDOWEVENT, Event: sdl.WINDOWEVENT_MOVED}, Event{}, false},
		{
			"key down",
			&sdl.KeyboardEvent{Type: sdl.KEYDOWN, Keysym: sdl.Keysym{Scancode: sdl.SCANCODE_F12}},
			Event{Type: EventKeyDown, Key: sdl.SCANCODE_F12},
			true,
		},
		{
			"key repeat",
			&sdl.KeyboardEvent{Type: sdl.KEYDOWN, Repeat: 1, Keysym: sdl.Keysym{Scancode: sdl.SCANCODE_F12}},
			Event{},
			false,
		},
		{
			"drag",
			&sdl.MouseMotionEvent{Type: sdl.MOUSEMOTION, X: 10, Y: 20, XRel: 3, YRel: -2, State: sdl.ButtonLMask()},
			Event{Type: EventMouseMove, MouseX: 10, MouseY: 20, XRel: 3, YRel: -2, ButtonState: sdl.ButtonLMask()},
			true,
		},
		{
			"button up",
			&sdl.MouseButtonEvent{Type: sdl.MOUSEBUTTONUP, Button: sdl.BUTTON_LEFT, X: 1, Y: 2},
			Event{Type: EventMouseUp, Button: sdl.BUTTON_LEFT, MouseX: 1, MouseY: 2},
			true,
		},
		{
			"wheel",
			&sdl.MouseWheelEvent{Type: sdl.MOUSEWHEEL, Y: 2},
			Event{Type: EventMouseWheel, WheelY: 2},
			true,
		},
		{
			"flipped wheel",
			&sdl.MouseWheelEvent{Type: sdl.MOUSEWHEEL, Y: 2, Direction: sdl.MOUSEWHEEL_FLIPPED},
			Event{Type: EventMouseWheel, WheelY: -2},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Translate(tt.in)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Translate = %+v, %v; want %+v, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestDragging(t *testing.T) {
	if !(Event{Type: EventMouseMove, ButtonState: sdl.ButtonLMask()}).Dragging() {
		t.Error("left-button motion should drag")
	}
	if (Event{Type: EventMouseMove, ButtonState: sdl.ButtonRMask()}).Dragging() {
		t.Error("right-button motion should not drag")
	}
}

func TestUpdateStopsAtQuit(t *testing.T) {
	queue := []sdl.Event{
		&sdl.MouseWheelEvent{Type: sdl.MOUSEWHEEL, Y: 1},
		&sdl.QuitEvent{Type: sdl.QUIT},
		&sdl.MouseWheelEvent{Type: sdl.MOUSEWHEEL, Y: 1},
	}
	in := New()
	in.poll = func() sdl.Event {
		if len(queue) == 0 {
			return nil
		}
		e := queue[0]
		queue = queue[1:]
		return e
	}

	if !in.Update() {
		t.Fatal("Update should report quit")
	}
	if n := len(in.Events()); n != 2 {
		t.Errorf("events = %d, want 2", n)
	}
	if in.IsKeyPressed(sdl.SCANCODE_F12) {
		t.Error("no key was pressed")
	}
}
