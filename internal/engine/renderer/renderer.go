// Package renderer draws the scene bodies and debug lines with OpenGL.
package renderer

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/physics-samples/internal/assets"
	"github.com/Faultbox/physics-samples/internal/engine/lighting"
	"github.com/Faultbox/physics-samples/internal/engine/shader"
	"github.com/Faultbox/physics-samples/internal/logger"
	"github.com/Faultbox/physics-samples/pkg/math"
)

// Config holds renderer configuration.
type Config struct {
	Width  int
	Height int
	// ClearColor is the background, RGBA in [0,1].
	ClearColor [4]float32
	// ColorScale multiplies line vertex colors; use 1/255 for raw channels.
	ColorScale float32
}

// DefaultConfig returns a dark blue-gray background with unit color scale.
func DefaultConfig(width, height int) Config {
	return Config{
		Width:      width,
		Height:     height,
		ClearColor: [4]float32{0.1, 0.1, 0.15, 1},
		ColorScale: 1,
	}
}

type meshProgram struct {
	id       uint32
	viewProj int32
	model    int32
	normal   int32
	color    int32
	lightDir int32
	ambient  int32
}

type lineProgram struct {
	id         uint32
	viewProj   int32
	colorScale int32
}

// Renderer handles all OpenGL rendering. All methods must run on the thread
// owning the GL context.
type Renderer struct {
	config Config
	log    *zap.Logger

	mesh  meshProgram
	lines lineProgram

	// Uploaded buffers and the vertex array bound to each vertex/index pair.
	buffers []uint32
	vaos    map[[2]uint32]uint32

	lineVAO uint32
	lineVBO uint32
	lineCap int

	viewProj math.Mat4
	target   *Target
}

// New creates a new renderer and loads its shaders from src.
// Must be called after the OpenGL context is created.
func New(cfg Config, src shader.Source) (*Renderer, error) {
	r := &Renderer{
		config:   cfg,
		log:      logger.Named("renderer"),
		vaos:     make(map[[2]uint32]uint32),
		viewProj: math.Identity(),
	}

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	r.log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	c := cfg.ClearColor
	gl.ClearColor(c[0], c[1], c[2], c[3])

	if err := r.loadPrograms(src); err != nil {
		r.Close()
		return nil, err
	}
	r.SetLight(lighting.Default())
	r.createLineBuffer()

	var err error
	if r.target, err = NewTarget(int32(cfg.Width), int32(cfg.Height)); err != nil {
		r.Close()
		return nil, err
	}

	return r, nil
}

func (r *Renderer) loadPrograms(src shader.Source) error {
	id, err := shader.Load(src, assets.MeshVertexShader, assets.MeshFragmentShader)
	if err != nil {
		return fmt.Errorf("mesh shader: %w", err)
	}
	r.mesh = meshProgram{
		id:       id,
		viewProj: shader.MustGetUniform(id, "uViewProj"),
		model:    shader.MustGetUniform(id, "uModel"),
		normal:   shader.MustGetUniform(id, "uNormal"),
		color:    shader.MustGetUniform(id, "uColor"),
		lightDir: shader.MustGetUniform(id, "uLightDir"),
		ambient:  shader.MustGetUniform(id, "uAmbient"),
	}

	id, err = shader.Load(src, assets.LineVertexShader, assets.LineFragmentShader)
	if err != nil {
		return fmt.Errorf("line shader: %w", err)
	}
	r.lines = lineProgram{
		id:         id,
		viewProj:   shader.MustGetUniform(id, "uViewProj"),
		colorScale: shader.MustGetUniform(id, "uColorScale"),
	}
	r.log.Debug("shader programs created",
		zap.Uint32("mesh", r.mesh.id),
		zap.Uint32("lines", r.lines.id),
	)
	return nil
}

// Reload recompiles the shaders from src, keeping the current programs if
// compilation fails.
func (r *Renderer) Reload(src shader.Source) error {
	mesh, lines := r.mesh, r.lines
	if err := r.loadPrograms(src); err != nil {
		r.mesh, r.lines = mesh, lines
		return err
	}
	if mesh.id != 0 && mesh.id != r.mesh.id {
		gl.DeleteProgram(mesh.id)
	}
	if lines.id != 0 && lines.id != r.lines.id {
		gl.DeleteProgram(lines.id)
	}
	r.log.Info("shaders reloaded")
	return nil
}

// Close cleans up renderer resources.
func (r *Renderer) Close() {
	r.log.Info("closing renderer")
	for _, vao := range r.vaos {
		gl.DeleteVertexArrays(1, &vao)
	}
	clear(r.vaos)
	if len(r.buffers) > 0 {
		gl.DeleteBuffers(int32(len(r.buffers)), &r.buffers[0])
		r.buffers = nil
	}
	if r.lineVAO != 0 {
		gl.DeleteVertexArrays(1, &r.lineVAO)
		r.lineVAO = 0
	}
	if r.lineVBO != 0 {
		gl.DeleteBuffers(1, &r.lineVBO)
		r.lineVBO = 0
	}
	if r.mesh.id != 0 {
		gl.DeleteProgram(r.mesh.id)
		r.mesh.id = 0
	}
	if r.lines.id != 0 {
		gl.DeleteProgram(r.lines.id)
		r.lines.id = 0
	}
	if r.target != nil {
		r.target.Destroy()
		r.target = nil
	}
}

// Resize handles window resize.
func (r *Renderer) Resize(width, height int) {
	r.config.Width = width
	r.config.Height = height
	r.target.Resize(int32(width), int32(height))
	r.log.Debug("renderer resized",
		zap.Int("width", width),
		zap.Int("height", height),
	)
}

// Size returns the drawable size.
func (r *Renderer) Size() (int, int) {
	return r.config.Width, r.config.Height
}

// SetCamera sets the view-projection used by the following draws.
func (r *Renderer) SetCamera(viewProj math.Mat4) {
	r.viewProj = viewProj
}

// SetLight binds the directional light.
func (r *Renderer) SetLight(l lighting.Directional) {
	gl.UseProgram(r.mesh.id)
	gl.Uniform3f(r.mesh.lightDir, l.Direction[0], l.Direction[1], l.Direction[2])
	gl.Uniform3f(r.mesh.ambient, l.Ambient[0], l.Ambient[1], l.Ambient[2])
}

// Begin starts a new frame in the offscreen target.
func (r *Renderer) Begin() {
	r.target.Bind()
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	gl.UseProgram(r.mesh.id)
	gl.UniformMatrix4fv(r.mesh.viewProj, 1, false, r.viewProj.Ptr())
	gl.UseProgram(r.lines.id)
	gl.UniformMatrix4fv(r.lines.viewProj, 1, false, r.viewProj.Ptr())
	gl.Uniform1f(r.lines.colorScale, r.config.ColorScale)
}

// End copies the finished frame to the window's back buffer.
func (r *Renderer) End() {
	r.target.BlitToScreen(int32(r.config.Width), int32(r.config.Height))
}

// ReadPixels returns the last frame as bottom-up RGBA rows.
func (r *Renderer) ReadPixels() (pixels []byte, width, height int) {
	w, h := r.target.Size()
	return r.target.ReadPixels(), int(w), int(h)
}
