// Package game runs a sample in a window: input, fixed or measured
// stepping, rendering and the title bar frame rate.
package game

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/physics-samples/internal/assets"
	"github.com/Faultbox/physics-samples/internal/config"
	"github.com/Faultbox/physics-samples/internal/engine/camera"
	"github.com/Faultbox/physics-samples/internal/engine/debug"
	"github.com/Faultbox/physics-samples/internal/engine/input"
	"github.com/Faultbox/physics-samples/internal/engine/picking"
	"github.com/Faultbox/physics-samples/internal/engine/renderer"
	"github.com/Faultbox/physics-samples/internal/engine/window"
	"github.com/Faultbox/physics-samples/internal/logger"
	"github.com/Faultbox/physics-samples/internal/sample"
)

// AppTitle prefixes every window title.
const AppTitle = "Physics Samples"

// maxStep bounds a measured step after a stall, such as a window drag.
const maxStep = 0.1

// Game is the windowed sample runner.
type Game struct {
	config   *config.Config
	log      *zap.Logger
	window   *window.Window
	renderer *renderer.Renderer
	input    *input.Input
	camera   *camera.OrbitCamera
	assets   *assets.Resolver
	shots    *debug.ScreenshotCapture
	sim      *sample.Simulation
	stats    *FrameStats

	title    string
	paused   bool
	selected uuid.UUID
	reloads  <-chan string
}

var selectionColor = [4]float32{1, 1, 0, 1}

// New opens the window, loads shaders and builds the configured sample.
func New(ctx context.Context, cfg *config.Config) (*Game, error) {
	g := &Game{
		config: cfg,
		log:    logger.Named("game"),
		input:  input.New(),
		stats:  NewFrameStats(),
		assets: assets.NewResolver(cfg.Assets.ShaderDir),
	}

	format, err := debug.ParseFormat(cfg.Debug.ScreenshotFormat)
	if err != nil {
		return nil, err
	}
	g.shots = debug.NewScreenshotCapture(cfg.Debug.ScreenshotDir, "physics", format)

	gr := cfg.Graphics
	g.window, err = window.New(window.Config{
		Title:      AppTitle,
		Width:      gr.Width,
		Height:     gr.Height,
		Fullscreen: gr.Fullscreen,
		Maximized:  !gr.Fullscreen,
		VSync:      gr.VSync,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	// The renderer needs the GL context the window created.
	width, height := g.window.DrawableSize()
	rc := renderer.DefaultConfig(width, height)
	if cfg.Debug.RawColorChannels {
		rc.ColorScale = 1.0 / 255
	}
	g.renderer, err = renderer.New(rc, g.assets)
	if err != nil {
		g.Close()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	g.sim, err = sample.New(ctx, cfg)
	if err != nil {
		g.Close()
		return nil, fmt.Errorf("failed to build sample: %w", err)
	}
	s := g.sim.Sample()
	g.title = AppTitle + " - " + s.Title
	g.window.SetTitle(g.title)

	g.camera = camera.NewOrbitCamera(width, height)
	g.camera.Center = s.Target
	g.camera.Distance = s.Distance

	if cfg.Assets.Watch {
		if g.reloads, err = g.assets.Watch(ctx); err != nil {
			g.log.Warn("shader hot reload disabled", zap.Error(err))
		}
	}

	g.log.Info("game initialized", zap.String("sample", s.Name))
	return g, nil
}

// Run loops until the window closes, Escape is pressed or ctx is done.
func (g *Game) Run(ctx context.Context) error {
	g.log.Info("starting game loop")
	last := time.Now()

	for ctx.Err() == nil {
		now := time.Now()
		elapsed := now.Sub(last)
		last = now

		if g.input.Update() {
			break
		}
		if quit := g.handleEvents(); quit {
			break
		}
		g.pollReloads()

		if !g.paused {
			if err := g.sim.Step(g.stepSize(elapsed)); err != nil {
				return fmt.Errorf("step: %w", err)
			}
		}

		g.drawSelection()
		g.renderer.SetCamera(g.camera.ViewProjection())
		g.renderer.Begin()
		if err := g.sim.Render(g.renderer); err != nil {
			return fmt.Errorf("render: %w", err)
		}
		g.renderer.End()
		g.window.SwapBuffers()

		if g.stats.Tick(elapsed) {
			g.window.SetTitle(g.stats.Title(g.title))
		}
	}

	g.log.Info("game loop stopped", zap.Uint64("frames", g.sim.Frames()))
	return nil
}

func (g *Game) stepSize(elapsed time.Duration) float64 {
	if g.config.Physics.FixedStep > 0 {
		return g.config.Physics.FixedStep
	}
	return min(elapsed.Seconds(), maxStep)
}

func (g *Game) handleEvents() (quit bool) {
	for _, e := range g.input.Events() {
		switch e.Type {
		case input.EventWindowResize:
			w, h := g.window.DrawableSize()
			g.renderer.Resize(w, h)
			g.camera.SetViewport(w, h)
		case input.EventMouseMove:
			if e.Dragging() {
				g.camera.HandleDrag(e.XRel, e.YRel)
			}
		case input.EventMouseDown:
			if e.Button == sdl.BUTTON_RIGHT {
				g.pick(e.MouseX, e.MouseY)
			}
		case input.EventMouseWheel:
			g.camera.UpdateFOV(-e.WheelY)
		case input.EventKeyDown:
			switch e.Key {
			case sdl.SCANCODE_ESCAPE:
				return true
			case sdl.SCANCODE_F12:
				g.screenshot()
			case sdl.SCANCODE_P:
				g.paused = !g.paused
				g.log.Info("pause toggled", zap.Bool("paused", g.paused))
			case sdl.SCANCODE_F:
				g.focusSelection()
			}
		}
	}
	return false
}

// pick selects the body under a window point, or clears the selection.
func (g *Game) pick(x, y int) {
	ww, wh := g.window.GetSize()
	ray := picking.ScreenToRay(float32(x), float32(y), float32(ww), float32(wh), g.camera.ViewProjection().Inverse())
	b := picking.Pick(ray, g.sim.Registry().Bodies())
	if b == nil {
		g.selected = uuid.Nil
		return
	}
	g.selected = b.ID()
	g.log.Info("body selected",
		zap.String("name", b.Name()),
		zap.Stringer("kind", b.Kind()),
		logger.Vec3("position", b.Position()),
	)
}

// focusSelection orbits the camera around the selected body.
func (g *Game) focusSelection() {
	if b := g.sim.Registry().Find(g.selected); b != nil {
		g.camera.Center = b.World().Translation()
	}
}

func (g *Game) drawSelection() {
	if g.selected == uuid.Nil {
		return
	}
	b := g.sim.Registry().Find(g.selected)
	if b == nil || b.Mesh() == nil {
		return
	}
	lo, hi := b.Mesh().Bounds()
	g.sim.Lines().AddBox(lo, hi, b.World(), 0.05, selectionColor)
}

func (g *Game) pollReloads() {
	for {
		select {
		case name, ok := <-g.reloads:
			if !ok {
				g.reloads = nil
				return
			}
			if err := g.renderer.Reload(g.assets); err != nil {
				g.log.Error("shader reload failed", zap.String("file", name), zap.Error(err))
			}
		default:
			return
		}
	}
}

func (g *Game) screenshot() {
	pixels, w, h := g.renderer.ReadPixels()
	path, err := g.shots.CaptureFromPixels(pixels, w, h)
	if err != nil {
		g.log.Error("screenshot failed", zap.Error(err))
		return
	}
	g.log.Info("screenshot saved", zap.String("path", path))
}

// Close releases the sample, renderer and window.
func (g *Game) Close() {
	g.log.Info("closing game")

	if g.sim != nil {
		g.sim.Close()
	}
	if g.renderer != nil {
		g.renderer.Close()
	}
	if g.window != nil {
		g.window.Close()
	}
}
