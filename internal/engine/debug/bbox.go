package debug

import "github.com/Faultbox/physics-samples/pkg/math"

// BoxEdges returns the 12 edges of an axis-aligned box as 24 endpoints.
func BoxEdges(lo, hi math.Vec3) [24]math.Vec3 {
	c := [8]math.Vec3{
		{X: lo.X, Y: lo.Y, Z: lo.Z}, {X: hi.X, Y: lo.Y, Z: lo.Z},
		{X: hi.X, Y: lo.Y, Z: hi.Z}, {X: lo.X, Y: lo.Y, Z: hi.Z},
		{X: lo.X, Y: hi.Y, Z: lo.Z}, {X: hi.X, Y: hi.Y, Z: lo.Z},
		{X: hi.X, Y: hi.Y, Z: hi.Z}, {X: lo.X, Y: hi.Y, Z: hi.Z},
	}
	return [24]math.Vec3{
		// Bottom face
		c[0], c[1], c[1], c[2], c[2], c[3], c[3], c[0],
		// Top face
		c[4], c[5], c[5], c[6], c[6], c[7], c[7], c[4],
		// Vertical edges
		c[0], c[4], c[1], c[5], c[2], c[6], c[3], c[7],
	}
}

// AddBox appends the wireframe of the box lo..hi, transformed by world,
// padded by padding on every side before transforming.
func (l *LineAccumulator) AddBox(lo, hi math.Vec3, world math.Mat4, padding float32, color [4]float32) {
	lo, hi = lo.Min(hi), hi.Max(lo)
	pad := math.Vec3{X: padding, Y: padding, Z: padding}
	edges := BoxEdges(lo.Sub(pad), hi.Add(pad))
	for i := 0; i < len(edges); i += 2 {
		l.AddSegment(world.TransformVec3(edges[i]), world.TransformVec3(edges[i+1]), color)
	}
}
