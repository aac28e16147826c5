package config

import "flag"

var (
	flagConfig     = flag.String("config", "", "Path to config file (.yaml, .yml or .toml)")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagSample     = flag.String("sample", "", "Sample to run")
	flagFrames     = flag.Int("frames", -1, "Frames to simulate in headless runs")
	flagWindowed   = flag.Bool("windowed", false, "Run in windowed mode")
	flagFullscreen = flag.Bool("fullscreen", false, "Run in fullscreen mode")
	flagWidth      = flag.Int("width", 0, "Window width")
	flagHeight     = flag.Int("height", 0, "Window height")
	flagPVD        = flag.String("pvd", "", "Remote visual debugger websocket URL")
	flagNoPVD      = flag.Bool("no-pvd", false, "Do not connect to the remote visual debugger")
	flagShaders    = flag.String("shaders", "", "Shader directory overriding the embedded shaders")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagSample != "" {
		cfg.Sample.Name = *flagSample
	}
	if *flagFrames >= 0 {
		cfg.Sample.Frames = *flagFrames
	}
	if *flagWindowed {
		cfg.Graphics.Fullscreen = false
	}
	if *flagFullscreen {
		cfg.Graphics.Fullscreen = true
	}
	if *flagWidth > 0 {
		cfg.Graphics.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Graphics.Height = *flagHeight
	}
	if *flagPVD != "" {
		cfg.Debug.Debugger = *flagPVD
	}
	if *flagNoPVD {
		cfg.Debug.Debugger = ""
	}
	if *flagShaders != "" {
		cfg.Assets.ShaderDir = *flagShaders
	}
}
