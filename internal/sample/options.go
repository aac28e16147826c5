package sample

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/physics-samples/internal/body"
	"github.com/Faultbox/physics-samples/internal/config"
	"github.com/Faultbox/physics-samples/internal/physics"
	"github.com/Faultbox/physics-samples/internal/physics/cooking"
)

// Options are the body and cooking settings every sample builds with.
type Options struct {
	// Body applies to rigid bodies. Its cooking parameters carry no SDF.
	Body body.Options
	// Character applies to controller-driven bodies.
	Character body.Options
	// SDF is used when cooking meshes for free dynamic bodies.
	SDF cooking.SDFParams
	// GroundHalfSize sizes the rendered ground grid.
	GroundHalfSize float32
	// RawColors keeps debug line colors in 0-255 per channel.
	RawColors bool
}

// DefaultOptions returns the options of config.Default.
func DefaultOptions() Options {
	return OptionsFromConfig(config.Default())
}

// OptionsFromConfig maps the physics, cooking and debug sections.
func OptionsFromConfig(cfg *config.Config) Options {
	p, c := cfg.Physics, cfg.Cooking

	b := body.DefaultOptions()
	b.StaticFriction = p.StaticFriction
	b.DynamicFriction = p.DynamicFriction
	b.Restitution = p.Restitution
	b.Density = p.Density
	b.ContactOffset = p.ContactOffset
	b.RestOffset = p.RestOffset
	b.Cooking = cooking.Params{WeldTolerance: c.WeldTolerance}

	ch := body.CharacterOptions()
	ch.ScaleCoeff = p.ScaleCoeff
	ch.Cooking = b.Cooking

	return Options{
		Body:      b,
		Character: ch,
		SDF: cooking.SDFParams{
			Spacing:     c.SDFSpacing,
			SubgridSize: c.SDFSubgridSize,
			BitsPerCell: c.SDFBitsPerCell,
		},
		GroundHalfSize: 20,
		RawColors:      cfg.Debug.RawColorChannels,
	}
}

// PhysicsConfig maps the physics and debug sections to a stepper config.
func PhysicsConfig(cfg *config.Config) physics.Config {
	p, d := cfg.Physics, cfg.Debug
	pc := physics.DefaultConfig()
	pc.Gravity = mgl64.Vec3(p.Gravity)
	pc.Workers = p.Workers
	pc.Substeps = p.Substeps
	pc.Visualization = physics.Visualization{
		Scale:           d.Scale,
		ActorAxes:       flag(d.ActorAxes),
		CollisionShapes: flag(d.CollisionShapes),
		JointFrames:     flag(d.JointFrames),
		ContactPoints:   flag(d.ContactPoints),
		ContactNormals:  flag(d.ContactNormals),
	}
	pc.DebuggerAddress = d.Debugger
	if d.ConnectTimeout > 0 {
		pc.DebuggerTimeout = time.Duration(d.ConnectTimeout * float64(time.Second))
	}
	return pc
}

func flag(on bool) float64 {
	if on {
		return 1
	}
	return 0
}
