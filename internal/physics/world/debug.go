package world

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/physics-samples/pkg/math"
)

// VisualizationParameter selects a category of debug geometry.
type VisualizationParameter int

const (
	// VisualizeScale multiplies every other parameter; zero disables output.
	VisualizeScale VisualizationParameter = iota
	VisualizeActorAxes
	VisualizeCollisionShapes
	VisualizeJointLocalFrames
	VisualizeContactPoints
	VisualizeContactNormals
	visualizationCount
)

// Packed 0xAARRGGBB debug colors.
const (
	ColorBlack   uint32 = 0xFF000000
	ColorRed     uint32 = 0xFFFF0000
	ColorGreen   uint32 = 0xFF00FF00
	ColorBlue    uint32 = 0xFF0000FF
	ColorYellow  uint32 = 0xFFFFFF00
	ColorMagenta uint32 = 0xFFFF00FF
	ColorCyan    uint32 = 0xFF00FFFF
	ColorWhite   uint32 = 0xFFFFFFFF
	ColorGrey    uint32 = 0xFF808080
)

// DebugLine is one segment of the debug render buffer.
type DebugLine struct {
	Pos0   math.Vec3
	Color0 uint32
	Pos1   math.Vec3
	Color1 uint32
}

// SetVisualizationParameter sets the value of a visualization parameter.
func (s *Scene) SetVisualizationParameter(p VisualizationParameter, v float64) {
	if p >= 0 && p < visualizationCount {
		s.viz[p] = v
	}
}

// VisualizationParameter returns the value of a visualization parameter.
func (s *Scene) VisualizationParameter(p VisualizationParameter) float64 {
	if p >= 0 && p < visualizationCount {
		return s.viz[p]
	}
	return 0
}

// RenderBuffer returns the debug lines of the last fetched step. The slice
// is owned by the scene and is overwritten by the next FetchResults.
func (s *Scene) RenderBuffer() []DebugLine {
	return s.lines
}

func toVec3(v mgl64.Vec3) math.Vec3 {
	return math.Vec3{X: float32(v[0]), Y: float32(v[1]), Z: float32(v[2])}
}

func (s *Scene) addLine(a, b mgl64.Vec3, color uint32) {
	s.lines = append(s.lines, DebugLine{Pos0: toVec3(a), Color0: color, Pos1: toVec3(b), Color1: color})
}

func (s *Scene) addAxes(origin mgl64.Vec3, axes [3]mgl64.Vec3, length float64) {
	for i, c := range [3]uint32{ColorRed, ColorGreen, ColorBlue} {
		s.addLine(origin, origin.Add(axes[i].Mul(length)), c)
	}
}

func shapeColor(a *Actor) uint32 {
	switch {
	case a.typ == ActorStatic:
		return ColorGrey
	case a.kinematic:
		return ColorMagenta
	}
	return ColorWhite
}

func (s *Scene) buildRenderBuffer() {
	s.lines = s.lines[:0]
	scale := s.viz[VisualizeScale]
	if scale == 0 {
		return
	}

	if l := s.viz[VisualizeActorAxes] * scale; l > 0 {
		for _, a := range s.actors {
			if a.typ == ActorStatic {
				continue
			}
			s.addAxes(a.pose.P, [3]mgl64.Vec3{
				a.pose.Rotate(mgl64.Vec3{1, 0, 0}),
				a.pose.Rotate(mgl64.Vec3{0, 1, 0}),
				a.pose.Rotate(mgl64.Vec3{0, 0, 1}),
			}, l)
		}
	}

	if s.viz[VisualizeCollisionShapes] > 0 {
		for _, a := range s.actors {
			color := shapeColor(a)
			for _, sh := range a.shapes {
				if sh.flags&ShapeVisualization == 0 {
					continue
				}
				pose := sh.WorldPose()
				for _, e := range sh.geom.edges() {
					s.addLine(pose.Transform(e[0]), pose.Transform(e[1]), color)
				}
			}
		}
	}

	if l := s.viz[VisualizeJointLocalFrames] * scale; l > 0 {
		for _, j := range s.joints {
			if j.flags&ConstraintVisualization == 0 {
				continue
			}
			for i := 0; i < 2; i++ {
				o, axes := j.frameAxes(i)
				s.addAxes(o, axes, l)
			}
		}
	}

	points := s.viz[VisualizeContactPoints] * scale
	normals := s.viz[VisualizeContactNormals] * scale
	if points > 0 || normals > 0 {
		for _, c := range s.contacts {
			if c.lambda == 0 {
				continue
			}
			_, pB, _, _ := c.points()
			if points > 0 {
				h := 0.05 * points
				s.addLine(pB.Sub(mgl64.Vec3{h, 0, 0}), pB.Add(mgl64.Vec3{h, 0, 0}), ColorRed)
				s.addLine(pB.Sub(mgl64.Vec3{0, h, 0}), pB.Add(mgl64.Vec3{0, h, 0}), ColorRed)
				s.addLine(pB.Sub(mgl64.Vec3{0, 0, h}), pB.Add(mgl64.Vec3{0, 0, h}), ColorRed)
			}
			if normals > 0 {
				s.addLine(pB, pB.Add(c.n.Mul(normals)), ColorYellow)
			}
		}
	}

	for _, m := range s.controllers {
		if s.viz[VisualizeCollisionShapes] == 0 {
			break
		}
		for _, o := range m.obstacles.list {
			pose := o.Pose
			for _, e := range o.geometry().edges() {
				s.addLine(pose.Transform(e[0]), pose.Transform(e[1]), ColorCyan)
			}
		}
	}
}
