// Package camera provides camera implementations for 3D rendering.
package camera

import (
	gomath "math"

	"github.com/Faultbox/physics-samples/pkg/math"
)

// OrbitCamera orbits around a center point and owns its projection.
type OrbitCamera struct {
	// Center point to orbit around
	Center math.Vec3

	// Spherical coordinates
	Distance  float32 // Distance from center
	RotationX float32 // Pitch (vertical angle, radians)
	RotationY float32 // Yaw (horizontal angle, radians)

	// Projection
	FOV    float32 // Vertical field of view, degrees
	Aspect float32
	Near   float32
	Far    float32

	// Constraints
	MinDistance float32
	MaxDistance float32
	MinPitch    float32
	MaxPitch    float32
	MinFOV      float32
	MaxFOV      float32

	// Sensitivity
	DragSensitivity float32
	ZoomSensitivity float32
}

// NewOrbitCamera creates an orbit camera looking at the origin from a few
// meters away, sized for a width x height viewport.
func NewOrbitCamera(width, height int) *OrbitCamera {
	c := &OrbitCamera{
		Center:          math.Vec3{Y: 1},
		Distance:        15,
		RotationX:       0.35,
		RotationY:       0,
		FOV:             60,
		Near:            0.1,
		Far:             1000,
		MinDistance:     1,
		MaxDistance:     500,
		MinPitch:        -1.5,
		MaxPitch:        1.5,
		MinFOV:          10,
		MaxFOV:          120,
		DragSensitivity: 0.01,
		ZoomSensitivity: 0.1,
	}
	c.SetViewport(width, height)
	return c
}

// Position returns the camera position in world space.
func (c *OrbitCamera) Position() math.Vec3 {
	pitch := math.QuatFromAxisAngle(math.Vec3{X: 1}, -c.RotationX)
	yaw := math.QuatFromAxisAngle(math.Vec3{Y: 1}, c.RotationY)
	return c.Center.Add(yaw.Rotate(pitch.Rotate(math.Vec3{Z: c.Distance})))
}

// ViewMatrix returns the view matrix for this camera.
func (c *OrbitCamera) ViewMatrix() math.Mat4 {
	return math.LookAt(c.Position(), c.Center, math.Vec3{Y: 1})
}

// Projection returns the perspective projection.
func (c *OrbitCamera) Projection() math.Mat4 {
	return math.Perspective(c.FOV*gomath.Pi/180, c.Aspect, c.Near, c.Far)
}

// ViewProjection returns projection * view.
func (c *OrbitCamera) ViewProjection() math.Mat4 {
	return c.Projection().Mul(c.ViewMatrix())
}

// SetViewport updates the aspect ratio after a resize.
func (c *OrbitCamera) SetViewport(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.Aspect = float32(width) / float32(height)
}

// Rotate adds pitch and yaw, in radians, clamping pitch.
func (c *OrbitCamera) Rotate(pitch, yaw float32) {
	c.RotationX = min(max(c.RotationX+pitch, c.MinPitch), c.MaxPitch)
	c.RotationY -= yaw
}

// HandleDrag rotates by a mouse drag delta in pixels.
func (c *OrbitCamera) HandleDrag(deltaX, deltaY float32) {
	c.Rotate(deltaY*c.DragSensitivity, deltaX*c.DragSensitivity)
}

// UpdateFOV widens or narrows the field of view by delta degrees.
func (c *OrbitCamera) UpdateFOV(delta float32) {
	c.FOV = min(max(c.FOV+delta, c.MinFOV), c.MaxFOV)
}

// HandleZoom updates distance based on scroll wheel delta.
func (c *OrbitCamera) HandleZoom(delta float32) {
	c.Distance -= delta * c.Distance * c.ZoomSensitivity
	c.Distance = min(max(c.Distance, c.MinDistance), c.MaxDistance)
}

// FitToBounds centers the camera on a box and backs off until it fits.
func (c *OrbitCamera) FitToBounds(lo, hi math.Vec3) {
	c.Center = lo.Add(hi).Scale(0.5)
	if hi.Sub(lo).LengthSq() == 0 {
		c.Distance = c.MinDistance
		return
	}
	radius := lo.Distance(hi) / 2
	half := float64(c.FOV) * gomath.Pi / 360
	c.Distance = min(max(radius/float32(gomath.Sin(half)), c.MinDistance), c.MaxDistance)
}
