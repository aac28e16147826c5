package sample

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/physics-samples/internal/body"
	"github.com/Faultbox/physics-samples/internal/config"
	"github.com/Faultbox/physics-samples/internal/engine/debug"
	"github.com/Faultbox/physics-samples/internal/engine/scene"
	"github.com/Faultbox/physics-samples/internal/logger"
	"github.com/Faultbox/physics-samples/internal/physics"
)

// Simulation runs one sample: step, sync bodies, draw.
type Simulation struct {
	sample  Sample
	stepper *physics.Stepper
	reg     *scene.Registry
	lines   *debug.LineAccumulator
	log     *zap.Logger

	frames uint64
	time   float64
}

// New builds the sample named by cfg.Sample.Name. Stepper and ground
// failures are returned; a body that fails to build is logged and skipped.
func New(ctx context.Context, cfg *config.Config) (*Simulation, error) {
	s, err := Lookup(cfg.Sample.Name)
	if err != nil {
		return nil, err
	}
	return Build(ctx, s, PhysicsConfig(cfg), OptionsFromConfig(cfg))
}

// Build creates the stepper, the ground and the sample's bodies.
func Build(ctx context.Context, s Sample, pc physics.Config, opts Options) (*Simulation, error) {
	log := logger.Named("sample")

	stepper, err := physics.New(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("starting physics: %w", err)
	}

	groundOpts := opts.Body
	groundOpts.Color = [4]float32{0.35, 0.35, 0.35, 1}
	ground, err := body.NewGround(stepper, opts.GroundHalfSize, groundOpts)
	if err != nil {
		stepper.Close()
		return nil, err
	}
	reg, err := scene.New(stepper, ground, log)
	if err != nil {
		stepper.Close()
		return nil, err
	}

	s.Build(&Builder{sim: stepper, reg: reg, opts: opts, log: log})
	log.Info("sample built",
		zap.Int("bodies", reg.Len()),
		zap.Int("joints", len(reg.Joints())),
	)

	return &Simulation{
		sample:  s,
		stepper: stepper,
		reg:     reg,
		lines:   debug.NewLineAccumulator(opts.RawColors),
		log:     log,
	}, nil
}

// Sample returns the running sample.
func (s *Simulation) Sample() Sample { return s.sample }

// Registry returns the scene bodies.
func (s *Simulation) Registry() *scene.Registry { return s.reg }

// Stepper returns the physics stepper.
func (s *Simulation) Stepper() *physics.Stepper { return s.stepper }

// Lines returns the debug line buffer. Lines added before Render are drawn
// with the simulation's own lines.
func (s *Simulation) Lines() *debug.LineAccumulator { return s.lines }

// Frames returns the number of completed steps.
func (s *Simulation) Frames() uint64 { return s.frames }

// Time returns the simulated time in seconds.
func (s *Simulation) Time() float64 { return s.time }

// Step advances the simulation by dt and syncs every body to it.
func (s *Simulation) Step(dt float64) error {
	if err := s.stepper.Step(dt); err != nil {
		return err
	}
	s.reg.Update(dt)
	s.frames++
	s.time += dt
	return nil
}

// Render draws the bodies, then the debug lines of the last step.
func (s *Simulation) Render(dev scene.Device) error {
	if err := s.reg.Render(dev); err != nil {
		return err
	}
	s.lines.AddFromSimulation(s.stepper.DebugRenderBuffer())
	s.lines.Flush(dev)
	return nil
}

// Close releases the scene, then the stepper.
func (s *Simulation) Close() {
	s.reg.Release()
	s.stepper.Close()
	s.log.Info("sample closed", zap.Uint64("frames", s.frames))
}
