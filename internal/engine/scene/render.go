package scene

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/physics-samples/internal/body"
	"github.com/Faultbox/physics-samples/pkg/math"
)

// Buffer is a device buffer handle.
type Buffer uint32

// Device is the renderer as seen by the scene.
type Device interface {
	UploadVertexBuffer(data []byte) (Buffer, error)
	UploadIndexBuffer(data []byte) (Buffer, error)
	SetWorldTransform(m math.Mat4)
	SetColor(rgba [4]float32)
	DrawIndexed(vertices, indices Buffer, count int)
	DrawLineList(vertices []byte, count int)
	DeleteBuffer(b Buffer)
}

type meshBuffers struct {
	dev               Device
	vertices, indices Buffer
	count             int
}

func (m meshBuffers) free() {
	if m.dev == nil {
		return
	}
	m.dev.DeleteBuffer(m.vertices)
	m.dev.DeleteBuffer(m.indices)
}

// Render draws the ground, then every live body in insertion order. Mesh
// buffers are uploaded on first draw.
func (r *Registry) Render(dev Device) error {
	if err := r.draw(dev, r.ground); err != nil {
		return err
	}
	for _, b := range r.bodies {
		if err := r.draw(dev, b); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) draw(dev Device, b body.Body) error {
	if b.State() != body.StateCreated {
		return nil
	}
	bufs, ok := r.buffers[b.ID()]
	if !ok {
		var err error
		if bufs, err = upload(dev, b); err != nil {
			return err
		}
		r.buffers[b.ID()] = bufs
		r.log.Debug("mesh uploaded", zap.String("body", b.Name()), zap.Int("indices", bufs.count))
	}
	if bufs.count == 0 {
		return nil
	}
	dev.SetWorldTransform(b.World())
	dev.SetColor(b.Color())
	dev.DrawIndexed(bufs.vertices, bufs.indices, bufs.count)
	return nil
}

func upload(dev Device, b body.Body) (meshBuffers, error) {
	m := b.Mesh()
	if m == nil || len(m.Indices) == 0 {
		return meshBuffers{}, nil
	}
	vb, err := dev.UploadVertexBuffer(m.VertexBytes())
	if err != nil {
		return meshBuffers{}, fmt.Errorf("uploading %s vertices: %w", b.Name(), err)
	}
	ib, err := dev.UploadIndexBuffer(m.IndexBytes())
	if err != nil {
		dev.DeleteBuffer(vb)
		return meshBuffers{}, fmt.Errorf("uploading %s indices: %w", b.Name(), err)
	}
	return meshBuffers{dev: dev, vertices: vb, indices: ib, count: len(m.Indices)}, nil
}
