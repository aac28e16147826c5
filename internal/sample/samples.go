// Package sample defines the sample scenes and runs one of them: it owns
// the physics stepper, the body registry and the debug line buffer.
package sample

import (
	"errors"
	"fmt"
	"slices"

	"github.com/tanema/gween/ease"

	"github.com/Faultbox/physics-samples/internal/body"
	"github.com/Faultbox/physics-samples/internal/physics/world"
	"github.com/Faultbox/physics-samples/pkg/geometry"
	"github.com/Faultbox/physics-samples/pkg/math"
)

// ErrUnknown is returned by Lookup for a name no sample has.
var ErrUnknown = errors.New("unknown sample")

// Sample is one scene.
type Sample struct {
	Name  string
	Title string
	// Target and Distance place the orbit camera.
	Target   math.Vec3
	Distance float32
	Build    func(b *Builder)
}

var (
	red    = [4]float32{1, 0, 0, 1}
	green  = [4]float32{0.2, 0.8, 0.3, 1}
	orange = [4]float32{1, 0.55, 0.1, 1}
	gray   = [4]float32{0.6, 0.6, 0.65, 1}
)

var samples = []Sample{
	{
		Name:     "basic",
		Title:    "Basic",
		Target:   math.Vec3{Y: 2},
		Distance: 15,
		Build: func(b *Builder) {
			b.Dynamic("box", math.Vec3{Y: 5}, body.BoxShape(math.Vec3{X: 1, Y: 1, Z: 1}), red)
		},
	},
	{
		Name:     "dynamic-sdf",
		Title:    "Dynamic SDF",
		Target:   math.Vec3{Y: 2},
		Distance: 15,
		Build: func(b *Builder) {
			b.Dynamic("pyramid", math.Vec3{Y: 5}, body.MeshShape(geometry.Pyramid(math.Vec3{X: 1, Y: 1, Z: 1})), red)
			b.Dynamic("tetrahedron", math.Vec3{X: 2.5, Y: 7}, body.MeshShape(geometry.Tetrahedron(1)), orange)
		},
	},
	{
		Name:     "kinematic-cooked",
		Title:    "Kinematic Cooked",
		Target:   math.Vec3{Y: 2},
		Distance: 18,
		Build: func(b *Builder) {
			path := body.NewPathDriver(math.Vec3{X: -3}, math.Vec3{X: 3}, 3, ease.InOutQuad)
			b.Kinematic("platform", math.Vec3{Y: 2}, body.MeshShape(geometry.Pyramid(math.Vec3{X: 4, Y: 1, Z: 0.5})), red, path)
			b.Dynamic("box", math.Vec3{Y: 6}, body.BoxShape(math.Vec3{X: 0.5, Y: 0.5, Z: 0.5}), green)
		},
	},
	{
		Name:     "static-cooked",
		Title:    "Static Cooked",
		Target:   math.Vec3{Y: 1},
		Distance: 16,
		Build: func(b *Builder) {
			b.Static("hill", math.Vec3{Y: 1}, body.MeshShape(geometry.Pyramid(math.Vec3{X: 3, Y: 1, Z: 3})), gray)
			b.Dynamic("box", math.Vec3{X: 1, Y: 6}, body.BoxShape(math.Vec3{X: 0.5, Y: 0.5, Z: 0.5}), red)
			b.Dynamic("crate", math.Vec3{X: -1.5, Y: 8, Z: 0.5}, body.BoxShape(math.Vec3{X: 0.5, Y: 0.5, Z: 0.5}), orange)
		},
	},
	{
		Name:     "kinematics",
		Title:    "Kinematics",
		Target:   math.Vec3{X: 2, Y: 1},
		Distance: 16,
		Build: func(b *Builder) {
			if c := b.Character("character", math.Vec3{Y: 3}, math.Vec3{X: 0.5, Y: 1, Z: 0.5}); c != nil {
				c.SetWalk(math.Vec3{X: 1})
			}
			b.Static("wall", math.Vec3{X: 6, Y: 1}, body.BoxShape(math.Vec3{X: 0.5, Y: 1, Z: 2}), gray)
			b.Dynamic("box", math.Vec3{X: -3, Y: 4}, body.BoxShape(math.Vec3{X: 0.5, Y: 0.5, Z: 0.5}), red)
		},
	},
	{
		Name:     "joints-fixed",
		Title:    "Joints Fixed",
		Target:   math.Vec3{Y: 3},
		Distance: 15,
		Build: func(b *Builder) {
			cube := body.BoxShape(math.Vec3{X: 1, Y: 1, Z: 1})
			a := b.Dynamic("left", math.Vec3{X: -2, Y: 5}, cube, red)
			c := b.Dynamic("right", math.Vec3{X: 2, Y: 3}, cube, red)
			b.Join(a, c, math.Vec3{X: -2}, math.Vec3{X: 2})
		},
	},
	{
		Name:     "dynamic-locked-axis",
		Title:    "Dynamic Locked Axis",
		Target:   math.Vec3{Y: 2},
		Distance: 15,
		Build: func(b *Builder) {
			peak := body.MeshShape(geometry.Pyramid(math.Vec3{X: 1, Y: 1, Z: 1}))
			cube := body.BoxShape(math.Vec3{X: 0.5, Y: 0.5, Z: 0.5})
			b.Static("left peak", math.Vec3{X: -2, Y: 1}, peak, gray)
			b.Static("right peak", math.Vec3{X: 2, Y: 1}, peak, gray)
			b.Locked("locked", math.Vec3{X: -1.7, Y: 4}, cube, green, world.LockAngularX|world.LockAngularY|world.LockAngularZ)
			b.Dynamic("free", math.Vec3{X: 2.3, Y: 4}, cube, red)
		},
	},
}

// Names returns the sample names in presentation order.
func Names() []string {
	names := make([]string, len(samples))
	for i, s := range samples {
		names[i] = s.Name
	}
	return names
}

// Lookup returns the sample with the given name.
func Lookup(name string) (Sample, error) {
	i := slices.IndexFunc(samples, func(s Sample) bool { return s.Name == name })
	if i < 0 {
		return Sample{}, fmt.Errorf("%w %q, have %v", ErrUnknown, name, Names())
	}
	return samples[i], nil
}
