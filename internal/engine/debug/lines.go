// Package debug provides debug visualization utilities.
package debug

import (
	"slices"
	"unsafe"

	"github.com/Faultbox/physics-samples/internal/physics/world"
	"github.com/Faultbox/physics-samples/pkg/math"
)

// LineVertex is one end of a debug line: position then RGBA, 28 bytes.
type LineVertex struct {
	Pos   math.Vec3
	Color [4]float32
}

// LineVertexSize is the byte stride of LineVertex.
const LineVertexSize = int(unsafe.Sizeof(LineVertex{}))

// LineDrawer draws a line list.
type LineDrawer interface {
	DrawLineList(vertices []byte, count int)
}

// LineAccumulator collects the line segments of one frame. It is rebuilt
// every frame and never patched in place.
type LineAccumulator struct {
	vertices []LineVertex
	raw      bool
}

// NewLineAccumulator returns an empty accumulator. With rawChannels set,
// simulation colors keep their 0-255 channel values instead of being
// scaled to [0,1].
func NewLineAccumulator(rawChannels bool) *LineAccumulator {
	return &LineAccumulator{raw: rawChannels}
}

// Clear empties the line list, keeping its storage.
func (l *LineAccumulator) Clear() {
	l.vertices = l.vertices[:0]
}

// AddLine appends one segment.
func (l *LineAccumulator) AddLine(a, b LineVertex) {
	l.vertices = append(l.vertices, a, b)
}

// AddSegment appends a single-colored segment from a to b. color is in
// [0,1] and is brought to the accumulator's channel range.
func (l *LineAccumulator) AddSegment(a, b math.Vec3, color [4]float32) {
	if l.raw {
		for i := range color {
			color[i] *= 255
		}
	}
	l.AddLine(LineVertex{Pos: a, Color: color}, LineVertex{Pos: b, Color: color})
}

// AddFromSimulation appends two vertices per engine debug line.
func (l *LineAccumulator) AddFromSimulation(lines []world.DebugLine) {
	l.vertices = slices.Grow(l.vertices, 2*len(lines))
	for _, ln := range lines {
		l.vertices = append(l.vertices,
			LineVertex{Pos: ln.Pos0, Color: UnpackColor(ln.Color0, l.raw)},
			LineVertex{Pos: ln.Pos1, Color: UnpackColor(ln.Color1, l.raw)},
		)
	}
}

// Vertices returns the accumulated vertices, valid until the next Clear.
func (l *LineAccumulator) Vertices() []LineVertex { return l.vertices }

// Len returns the number of vertices, two per line.
func (l *LineAccumulator) Len() int { return len(l.vertices) }

// Bytes returns the vertex list as raw bytes for buffer upload.
func (l *LineAccumulator) Bytes() []byte {
	if len(l.vertices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&l.vertices[0])), len(l.vertices)*LineVertexSize)
}

// Flush draws the accumulated lines and clears the list, even if the
// drawer panics.
func (l *LineAccumulator) Flush(d LineDrawer) {
	defer l.Clear()
	if len(l.vertices) == 0 {
		return
	}
	d.DrawLineList(l.Bytes(), len(l.vertices))
}

// UnpackColor splits a packed 0xAARRGGBB color into RGBA channels,
// scaled to [0,1] unless raw is set.
func UnpackColor(c uint32, raw bool) [4]float32 {
	out := [4]float32{
		float32(c >> 16 & 0xFF),
		float32(c >> 8 & 0xFF),
		float32(c & 0xFF),
		float32(c >> 24 & 0xFF),
	}
	if !raw {
		for i := range out {
			out[i] /= 255
		}
	}
	return out
}
