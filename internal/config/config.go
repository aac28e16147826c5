// Package config handles sample configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"math"

	"github.com/Faultbox/physics-samples/internal/physics/cooking"
)

// ErrInvalid is returned by Validate for out-of-range settings.
var ErrInvalid = errors.New("invalid config")

// Config holds all sample settings.
type Config struct {
	Graphics GraphicsConfig `yaml:"graphics" toml:"graphics"`
	Physics  PhysicsConfig  `yaml:"physics" toml:"physics"`
	Cooking  CookingConfig  `yaml:"cooking" toml:"cooking"`
	Debug    DebugConfig    `yaml:"debug" toml:"debug"`
	Assets   AssetsConfig   `yaml:"assets" toml:"assets"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
	Sample   SampleConfig   `yaml:"sample" toml:"sample"`
}

// GraphicsConfig holds display and rendering settings.
type GraphicsConfig struct {
	Width      int  `yaml:"width" toml:"width"`
	Height     int  `yaml:"height" toml:"height"`
	Fullscreen bool `yaml:"fullscreen" toml:"fullscreen"`
	VSync      bool `yaml:"vsync" toml:"vsync"`
	FPSLimit   int  `yaml:"fps_limit" toml:"fps_limit"`
}

// PhysicsConfig holds simulation and body settings.
type PhysicsConfig struct {
	Gravity  [3]float64 `yaml:"gravity" toml:"gravity"`
	Workers  int        `yaml:"workers" toml:"workers"`
	Substeps int        `yaml:"substeps" toml:"substeps"`
	// FixedStep is the simulated time per frame in seconds; zero steps by
	// measured frame time.
	FixedStep float64 `yaml:"fixed_step" toml:"fixed_step"`

	Density         float64 `yaml:"density" toml:"density"`
	ContactOffset   float64 `yaml:"contact_offset" toml:"contact_offset"`
	RestOffset      float64 `yaml:"rest_offset" toml:"rest_offset"`
	StaticFriction  float64 `yaml:"static_friction" toml:"static_friction"`
	DynamicFriction float64 `yaml:"dynamic_friction" toml:"dynamic_friction"`
	Restitution     float64 `yaml:"restitution" toml:"restitution"`
	ScaleCoeff      float64 `yaml:"scale_coeff" toml:"scale_coeff"`
}

// CookingConfig holds concave mesh cooking parameters.
type CookingConfig struct {
	WeldTolerance  float64 `yaml:"weld_tolerance" toml:"weld_tolerance"`
	SDFSpacing     float64 `yaml:"sdf_spacing" toml:"sdf_spacing"`
	SDFSubgridSize int     `yaml:"sdf_subgrid_size" toml:"sdf_subgrid_size"`
	SDFBitsPerCell int     `yaml:"sdf_bits_per_cell" toml:"sdf_bits_per_cell"`
}

// DebugConfig holds debug visualization settings.
type DebugConfig struct {
	Scale           float64 `yaml:"scale" toml:"scale"`
	ActorAxes       bool    `yaml:"actor_axes" toml:"actor_axes"`
	CollisionShapes bool    `yaml:"collision_shapes" toml:"collision_shapes"`
	JointFrames     bool    `yaml:"joint_frames" toml:"joint_frames"`
	ContactPoints   bool    `yaml:"contact_points" toml:"contact_points"`
	ContactNormals  bool    `yaml:"contact_normals" toml:"contact_normals"`
	// RawColorChannels keeps debug line colors in 0-255 per channel.
	RawColorChannels bool `yaml:"raw_color_channels" toml:"raw_color_channels"`

	// Debugger is the websocket URL of the remote visual debugger.
	Debugger       string  `yaml:"debugger" toml:"debugger"`
	ConnectTimeout float64 `yaml:"connect_timeout" toml:"connect_timeout"` // seconds

	ScreenshotDir    string `yaml:"screenshot_dir" toml:"screenshot_dir"`
	ScreenshotFormat string `yaml:"screenshot_format" toml:"screenshot_format"`
}

// AssetsConfig holds shader asset settings.
type AssetsConfig struct {
	// ShaderDir overrides the embedded shaders when set.
	ShaderDir string `yaml:"shader_dir" toml:"shader_dir"`
	Watch     bool   `yaml:"watch" toml:"watch"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level" toml:"level"`
	LogFile string `yaml:"log_file" toml:"log_file"`
}

// SampleConfig selects the sample to run.
type SampleConfig struct {
	Name string `yaml:"name" toml:"name"`
	// Frames stops the headless runner after this many steps.
	Frames int `yaml:"frames" toml:"frames"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Graphics: GraphicsConfig{
			Width:      1280,
			Height:     720,
			Fullscreen: false,
			VSync:      true,
			FPSLimit:   0,
		},
		Physics: PhysicsConfig{
			Gravity:         [3]float64{0, -9.81, 0},
			Workers:         2,
			Substeps:        4,
			FixedStep:       1.0 / 60,
			Density:         100,
			StaticFriction:  0.4,
			DynamicFriction: 0.4,
			Restitution:     0.4,
			ScaleCoeff:      0.8,
		},
		Cooking: CookingConfig{
			WeldTolerance:  0.001,
			SDFSpacing:     0.1,
			SDFSubgridSize: 6,
			SDFBitsPerCell: 16,
		},
		Debug: DebugConfig{
			Scale:            1,
			ActorAxes:        true,
			CollisionShapes:  true,
			JointFrames:      true,
			ConnectTimeout:   2,
			ScreenshotDir:    "screenshots",
			ScreenshotFormat: "png",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
		Sample: SampleConfig{
			Name:   "basic",
			Frames: 60,
		},
	}
}

// Validate checks every numeric range the simulation depends on.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
		}
	}
	finite := func(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

	check(c.Graphics.Width > 0 && c.Graphics.Height > 0, "window size %dx%d", c.Graphics.Width, c.Graphics.Height)
	check(c.Graphics.FPSLimit >= 0, "fps_limit %d", c.Graphics.FPSLimit)

	p := c.Physics
	check(finite(p.Gravity[0]) && finite(p.Gravity[1]) && finite(p.Gravity[2]), "gravity %v", p.Gravity)
	check(p.Workers >= 1, "workers %d", p.Workers)
	check(p.Substeps >= 1, "substeps %d", p.Substeps)
	check(finite(p.FixedStep) && p.FixedStep >= 0, "fixed_step %v", p.FixedStep)
	check(finite(p.Density) && p.Density > 0, "density %v", p.Density)
	check(finite(p.ContactOffset) && p.ContactOffset >= 0, "contact_offset %v", p.ContactOffset)
	check(finite(p.RestOffset) && p.RestOffset >= 0, "rest_offset %v", p.RestOffset)
	check(p.ContactOffset == 0 || p.RestOffset <= p.ContactOffset, "rest_offset %v above contact_offset %v", p.RestOffset, p.ContactOffset)
	check(p.StaticFriction >= 0 && p.DynamicFriction >= 0, "friction %v/%v", p.StaticFriction, p.DynamicFriction)
	check(p.Restitution >= 0 && p.Restitution <= 1, "restitution %v", p.Restitution)
	check(p.ScaleCoeff > 0 && p.ScaleCoeff < 1, "scale_coeff %v", p.ScaleCoeff)

	k := c.Cooking
	check(finite(k.WeldTolerance) && k.WeldTolerance >= 0, "weld_tolerance %v", k.WeldTolerance)
	check(finite(k.SDFSpacing) && k.SDFSpacing > 0, "sdf_spacing %v", k.SDFSpacing)
	check(k.SDFSubgridSize > 0 && k.SDFSubgridSize <= cooking.MaxSubgridSize, "sdf_subgrid_size %d", k.SDFSubgridSize)
	check(k.SDFBitsPerCell == 8 || k.SDFBitsPerCell == 16, "sdf_bits_per_cell %d", k.SDFBitsPerCell)

	check(c.Debug.Scale >= 0, "debug scale %v", c.Debug.Scale)
	check(c.Debug.ConnectTimeout >= 0, "connect_timeout %v", c.Debug.ConnectTimeout)
	check(c.Debug.ScreenshotFormat == "png" || c.Debug.ScreenshotFormat == "bmp", "screenshot_format %q", c.Debug.ScreenshotFormat)
	check(c.Sample.Frames >= 0, "frames %d", c.Sample.Frames)

	return errors.Join(errs...)
}
