package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete ringplot configuration
type Config struct {
	Buffer   BufferConfig   `mapstructure:"buffer"`
	Screen   ScreenConfig   `mapstructure:"screen"`
	Source   SourceConfig   `mapstructure:"source"`
	Render   RenderConfig   `mapstructure:"render"`
	Shutdown ShutdownConfig `mapstructure:"shutdown"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// BufferConfig sizes the ring buffer shared by producer and consumer
type BufferConfig struct {
	// Capacity is the number of physical slots. One slot is always kept empty,
	// so at most Capacity-1 samples are held at once (default: 391680)
	Capacity int `mapstructure:"capacity"`
}

// ScreenConfig describes the drawing surface and the block grid laid over it
type ScreenConfig struct {
	// Width and Height are the surface size in pixels (default: 272x480)
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
	// BlockWidth and BlockHeight are the size of one sample's block (default: 20x20)
	BlockWidth  int `mapstructure:"block_width"`
	BlockHeight int `mapstructure:"block_height"`
}

// SourceConfig selects where samples come from
type SourceConfig struct {
	// Kind is the sample source: "file" or "prng" (default: "file")
	Kind string `mapstructure:"kind"`
	// Path is the file or device read by the file source (default: "/dev/urandom")
	Path string `mapstructure:"path"`
	// Seed seeds the prng source; a restart reseeds with the same value (default: 1)
	Seed uint64 `mapstructure:"seed"`
	// RewindOnEOF rewinds a file source that runs out of data instead of
	// treating end of input as fatal (default: false)
	RewindOnEOF bool `mapstructure:"rewind_on_eof"`
	// Watch restarts the producer when the source file changes (default: false)
	Watch bool `mapstructure:"watch"`
}

// RenderConfig controls the consumer and the renderer it drives
type RenderConfig struct {
	// Mode is "auto", "terminal" or "headless". Auto uses the terminal
	// renderer when stdout is a TTY (default: "auto")
	Mode string `mapstructure:"mode"`
	// FrameIntervalMs is the pause between frames in milliseconds (default: 16)
	FrameIntervalMs int `mapstructure:"frame_interval_ms"`
	// DrainPerFrame is how many samples the consumer pops before each frame.
	// Zero only snapshots, which lets the buffer fill and throttle the producer (default: 0)
	DrainPerFrame int `mapstructure:"drain_per_frame"`
	// MaxFrames makes the renderer request a quit after this many frames.
	// Zero runs until interrupted (default: 0)
	MaxFrames int `mapstructure:"max_frames"`
}

// ShutdownConfig bounds teardown
type ShutdownConfig struct {
	// TimeoutMs is how long teardown waits for both loops to stop (default: 2000)
	TimeoutMs int `mapstructure:"timeout_ms"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// Dir is the directory holding ringplot.log. Empty means the state directory
	Dir string `mapstructure:"dir"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups"`
	// Compress gzips rotated log files (default: false)
	Compress bool `mapstructure:"compress"`
}

// Source kinds
const (
	SourceKindFile = "file"
	SourceKindPRNG = "prng"
)

// Render modes
const (
	RenderModeAuto     = "auto"
	RenderModeTerminal = "terminal"
	RenderModeHeadless = "headless"
)

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Buffer: BufferConfig{
			Capacity: 272 * 480 * 3,
		},
		Screen: ScreenConfig{
			Width:       272,
			Height:      480,
			BlockWidth:  20,
			BlockHeight: 20,
		},
		Source: SourceConfig{
			Kind:        SourceKindFile,
			Path:        "/dev/urandom",
			Seed:        1,
			RewindOnEOF: false,
			Watch:       false,
		},
		Render: RenderConfig{
			Mode:            RenderModeAuto,
			FrameIntervalMs: 16,
			DrainPerFrame:   0,
			MaxFrames:       0,
		},
		Shutdown: ShutdownConfig{
			TimeoutMs: 2000,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Dir:        "", // Empty means use StateDir()
			MaxSizeMB:  10,
			MaxBackups: 3,
			Compress:   false,
		},
	}
}

// FrameInterval returns the frame interval as a time.Duration
func (c *RenderConfig) FrameInterval() time.Duration {
	return time.Duration(c.FrameIntervalMs) * time.Millisecond
}

// Timeout returns the shutdown timeout as a time.Duration
func (c *ShutdownConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// ResolveDir returns the log directory, falling back to StateDir when Dir is
// empty. A leading ~ expands to the user's home directory.
func (c *LoggingConfig) ResolveDir() string {
	if c.Dir == "" {
		return StateDir()
	}
	return expandHome(c.Dir)
}

// ResolvePath returns the source path with a leading ~ expanded
func (c *SourceConfig) ResolvePath() string {
	return expandHome(c.Path)
}

func expandHome(path string) string {
	if path != "~" && (len(path) < 2 || path[:2] != "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Buffer defaults
	viper.SetDefault("buffer.capacity", defaults.Buffer.Capacity)

	// Screen defaults
	viper.SetDefault("screen.width", defaults.Screen.Width)
	viper.SetDefault("screen.height", defaults.Screen.Height)
	viper.SetDefault("screen.block_width", defaults.Screen.BlockWidth)
	viper.SetDefault("screen.block_height", defaults.Screen.BlockHeight)

	// Source defaults
	viper.SetDefault("source.kind", defaults.Source.Kind)
	viper.SetDefault("source.path", defaults.Source.Path)
	viper.SetDefault("source.seed", defaults.Source.Seed)
	viper.SetDefault("source.rewind_on_eof", defaults.Source.RewindOnEOF)
	viper.SetDefault("source.watch", defaults.Source.Watch)

	// Render defaults
	viper.SetDefault("render.mode", defaults.Render.Mode)
	viper.SetDefault("render.frame_interval_ms", defaults.Render.FrameIntervalMs)
	viper.SetDefault("render.drain_per_frame", defaults.Render.DrainPerFrame)
	viper.SetDefault("render.max_frames", defaults.Render.MaxFrames)

	// Shutdown defaults
	viper.SetDefault("shutdown.timeout_ms", defaults.Shutdown.TimeoutMs)

	// Logging defaults
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	viper.SetDefault("logging.compress", defaults.Logging.Compress)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "ringplot")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ringplot"
	}
	return filepath.Join(home, ".config", "ringplot")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// StateDir returns the directory for runtime state such as logs
func StateDir() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "ringplot")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".ringplot", "state")
	}
	return filepath.Join(home, ".local", "state", "ringplot")
}
