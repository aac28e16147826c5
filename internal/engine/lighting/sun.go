// Package lighting provides lighting utilities for 3D rendering.
package lighting

import (
	"math"

	vec "github.com/Faultbox/physics-samples/pkg/math"
)

// SunDirection converts longitude/latitude angles in degrees to a light
// direction vector. Longitude is rotation around Y, latitude is elevation
// from the horizon. The result is normalized and points towards the sun.
func SunDirection(longitude, latitude float32) [3]float32 {
	lonRad := float64(longitude) * math.Pi / 180.0
	latRad := float64(latitude) * math.Pi / 180.0

	x := float32(math.Cos(latRad) * math.Sin(lonRad))
	y := float32(math.Sin(latRad))
	z := float32(math.Cos(latRad) * math.Cos(lonRad))

	return [3]float32{x, y, z}
}

// Directional is the scene light bound alongside the camera.
type Directional struct {
	// Direction the light travels, away from the sun.
	Direction [3]float32
	Ambient   [3]float32
}

// NewDirectional returns a light shining from the given sun angles.
func NewDirectional(longitude, latitude float32) Directional {
	d := SunDirection(longitude, latitude)
	dir := vec.Vec3{X: d[0], Y: d[1], Z: d[2]}.Neg()
	return Directional{
		Direction: [3]float32{dir.X, dir.Y, dir.Z},
		Ambient:   [3]float32{0.25, 0.25, 0.25},
	}
}

// Default returns a light from high in the south-west.
func Default() Directional {
	return NewDirectional(45, 60)
}
