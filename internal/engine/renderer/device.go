package renderer

import (
	"fmt"
	"slices"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/physics-samples/internal/engine/debug"
	"github.com/Faultbox/physics-samples/internal/engine/scene"
	"github.com/Faultbox/physics-samples/pkg/geometry"
	"github.com/Faultbox/physics-samples/pkg/math"
)

var (
	_ scene.Device     = (*Renderer)(nil)
	_ debug.LineDrawer = (*Renderer)(nil)
)

// UploadVertexBuffer stores interleaved position/normal vertices.
func (r *Renderer) UploadVertexBuffer(data []byte) (scene.Buffer, error) {
	return r.upload(gl.ARRAY_BUFFER, data)
}

// UploadIndexBuffer stores uint32 triangle indices.
func (r *Renderer) UploadIndexBuffer(data []byte) (scene.Buffer, error) {
	return r.upload(gl.ELEMENT_ARRAY_BUFFER, data)
}

func (r *Renderer) upload(target uint32, data []byte) (scene.Buffer, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("empty buffer")
	}
	var buf uint32
	gl.GenBuffers(1, &buf)
	if buf == 0 {
		return 0, fmt.Errorf("glGenBuffers failed")
	}
	gl.BindBuffer(target, buf)
	gl.BufferData(target, len(data), gl.Ptr(data), gl.STATIC_DRAW)
	gl.BindBuffer(target, 0)
	r.buffers = append(r.buffers, buf)
	return scene.Buffer(buf), nil
}

// SetWorldTransform sets the model and normal matrices of the next mesh draw.
func (r *Renderer) SetWorldTransform(m math.Mat4) {
	n := m.Inverse().Transpose()
	gl.UseProgram(r.mesh.id)
	gl.UniformMatrix4fv(r.mesh.model, 1, false, m.Ptr())
	gl.UniformMatrix4fv(r.mesh.normal, 1, false, n.Ptr())
}

// SetColor sets the flat color of the next mesh draw.
func (r *Renderer) SetColor(rgba [4]float32) {
	gl.UseProgram(r.mesh.id)
	gl.Uniform4f(r.mesh.color, rgba[0], rgba[1], rgba[2], rgba[3])
}

// DeleteBuffer frees a buffer and the vertex arrays that reference it.
func (r *Renderer) DeleteBuffer(b scene.Buffer) {
	id := uint32(b)
	for key, vao := range r.vaos {
		if key[0] == id || key[1] == id {
			gl.DeleteVertexArrays(1, &vao)
			delete(r.vaos, key)
		}
	}
	r.buffers = slices.DeleteFunc(r.buffers, func(x uint32) bool { return x == id })
	gl.DeleteBuffers(1, &id)
}

// DrawIndexed draws count indices as triangles.
func (r *Renderer) DrawIndexed(vertices, indices scene.Buffer, count int) {
	gl.UseProgram(r.mesh.id)
	gl.BindVertexArray(r.meshVAO(uint32(vertices), uint32(indices)))
	gl.DrawElements(gl.TRIANGLES, int32(count), gl.UNSIGNED_INT, nil)
	gl.BindVertexArray(0)
}

func (r *Renderer) meshVAO(vb, ib uint32) uint32 {
	key := [2]uint32{vb, ib}
	if vao, ok := r.vaos[key]; ok {
		return vao
	}
	var vao uint32
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, vb)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, ib)

	stride := int32(geometry.VertexSize)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, stride, unsafe.Offsetof(geometry.Vertex{}.Position))
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, stride, unsafe.Offsetof(geometry.Vertex{}.Normal))
	gl.EnableVertexAttribArray(1)

	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	r.vaos[key] = vao
	return vao
}

func (r *Renderer) createLineBuffer() {
	gl.GenVertexArrays(1, &r.lineVAO)
	gl.BindVertexArray(r.lineVAO)
	gl.GenBuffers(1, &r.lineVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.lineVBO)

	stride := int32(debug.LineVertexSize)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, stride, unsafe.Offsetof(debug.LineVertex{}.Pos))
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(1, 4, gl.FLOAT, false, stride, unsafe.Offsetof(debug.LineVertex{}.Color))
	gl.EnableVertexAttribArray(1)

	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
}

// DrawLineList streams count line vertices and draws them as GL_LINES.
// Lines are drawn in world space with the current camera.
func (r *Renderer) DrawLineList(vertices []byte, count int) {
	if count == 0 || len(vertices) == 0 {
		return
	}
	gl.UseProgram(r.lines.id)
	gl.BindVertexArray(r.lineVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.lineVBO)
	if len(vertices) > r.lineCap {
		r.lineCap = len(vertices)
		gl.BufferData(gl.ARRAY_BUFFER, r.lineCap, gl.Ptr(vertices), gl.STREAM_DRAW)
	} else {
		gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(vertices), gl.Ptr(vertices))
	}
	gl.DrawArrays(gl.LINES, 0, int32(count))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)
}
