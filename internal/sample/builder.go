package sample

import (
	"go.uber.org/zap"

	"github.com/Faultbox/physics-samples/internal/body"
	"github.com/Faultbox/physics-samples/internal/engine/scene"
	"github.com/Faultbox/physics-samples/internal/physics"
	"github.com/Faultbox/physics-samples/internal/physics/world"
	"github.com/Faultbox/physics-samples/pkg/math"
)

// Builder adds bodies to a scene under construction. A body that fails to
// build is logged and left out; the Builder methods then return nil.
type Builder struct {
	sim  *physics.Stepper
	reg  *scene.Registry
	opts Options
	log  *zap.Logger
}

// Registry returns the scene being built.
func (b *Builder) Registry() *scene.Registry { return b.reg }

// Options returns the options the builder applies.
func (b *Builder) Options() Options { return b.opts }

func (b *Builder) body(name string, color [4]float32) body.Options {
	o := b.opts.Body
	o.Name = name
	o.Color = color
	return o
}

// Dynamic adds a free dynamic body. Mesh shapes are cooked with an SDF.
func (b *Builder) Dynamic(name string, pos math.Vec3, shape body.Shape, color [4]float32) *body.Dynamic {
	o := b.body(name, color)
	if shape.Mesh != nil {
		sdf := b.opts.SDF
		o.Cooking.SDF = &sdf
	}
	d, err := body.NewDynamic(b.sim, pos, shape, o)
	if b.reg.Try(d, err) == nil {
		return nil
	}
	return d
}

// Locked adds a dynamic body whose motion is restricted by lock.
func (b *Builder) Locked(name string, pos math.Vec3, shape body.Shape, color [4]float32, lock world.LockFlags) *body.Dynamic {
	o := b.body(name, color)
	o.Lock = lock
	d, err := body.NewDynamic(b.sim, pos, shape, o)
	if b.reg.Try(d, err) == nil {
		return nil
	}
	return d
}

// Kinematic adds a kinematic body, optionally driven along a path.
func (b *Builder) Kinematic(name string, pos math.Vec3, shape body.Shape, color [4]float32, driver body.Driver) *body.Kinematic {
	k, err := body.NewKinematic(b.sim, pos, shape, b.body(name, color))
	if b.reg.Try(k, err) == nil {
		return nil
	}
	if driver != nil {
		k.SetDriver(driver)
	}
	return k
}

// Static adds an immovable body.
func (b *Builder) Static(name string, pos math.Vec3, shape body.Shape, color [4]float32) *body.Static {
	s, err := body.NewStatic(b.sim, pos, shape, b.body(name, color))
	if b.reg.Try(s, err) == nil {
		return nil
	}
	return s
}

// Character adds a controller-driven box character.
func (b *Builder) Character(name string, pos, half math.Vec3) *body.Character {
	o := b.opts.Character
	o.Name = name
	c, err := body.NewCharacter(b.sim, pos, half, o)
	if b.reg.Try(c, err) == nil {
		return nil
	}
	return c
}

// Join connects two bodies with a fixed joint. A nil body, left out by an
// earlier failure, skips the joint.
func (b *Builder) Join(a, c body.Body, frameA, frameC math.Vec3) {
	if !present(a) || !present(c) {
		b.log.Warn("joint skipped, body missing")
		return
	}
	if _, err := b.reg.AddFixedJoint(a, c, frameA, frameC); err != nil {
		b.log.Error("joint skipped", zap.Error(err))
	}
}

func present(x body.Body) bool {
	switch v := x.(type) {
	case *body.Dynamic:
		return v != nil
	case *body.Kinematic:
		return v != nil
	}
	return x != nil
}
