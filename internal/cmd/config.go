package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/Iron-Ham/ringplot/internal/config"
	"github.com/Iron-Ham/ringplot/internal/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify ringplot configuration",
	Long: `View or modify ringplot configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  ringplot config set source.kind prng
  ringplot config set render.frame_interval_ms 33
  ringplot config set buffer.capacity 4096

The value is validated together with the rest of the configuration
before the file is written. Run 'ringplot config show' to list keys.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/ringplot/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

// settableKeys lists the keys accepted by config set and their value types
var settableKeys = map[string]string{
	"buffer.capacity":          "int",
	"screen.width":             "int",
	"screen.height":            "int",
	"screen.block_width":       "int",
	"screen.block_height":      "int",
	"source.kind":              "string",
	"source.path":              "string",
	"source.seed":              "uint",
	"source.rewind_on_eof":     "bool",
	"source.watch":             "bool",
	"render.mode":              "string",
	"render.frame_interval_ms": "int",
	"render.drain_per_frame":   "int",
	"render.max_frames":        "int",
	"shutdown.timeout_ms":      "int",
	"logging.level":            "string",
	"logging.dir":              "string",
	"logging.max_size_mb":      "int",
	"logging.max_backups":      "int",
	"logging.compress":         "bool",
}

// SettableKeys returns the keys accepted by config set, sorted
func SettableKeys() []string {
	keys := make([]string, 0, len(settableKeys))
	for k := range settableKeys {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	fmt.Fprintln(out, "Current configuration:")
	fmt.Fprintln(out)

	// Show where config is being read from
	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Config file: (none - using defaults)\n")
	}
	fmt.Fprintln(out)

	printConfig(out, cfg)
	return nil
}

func printConfig(out io.Writer, cfg *config.Config) {
	fmt.Fprintln(out, "buffer:")
	fmt.Fprintf(out, "  capacity: %d\n", cfg.Buffer.Capacity)

	fmt.Fprintln(out, "screen:")
	fmt.Fprintf(out, "  width: %d\n", cfg.Screen.Width)
	fmt.Fprintf(out, "  height: %d\n", cfg.Screen.Height)
	fmt.Fprintf(out, "  block_width: %d\n", cfg.Screen.BlockWidth)
	fmt.Fprintf(out, "  block_height: %d\n", cfg.Screen.BlockHeight)

	fmt.Fprintln(out, "source:")
	fmt.Fprintf(out, "  kind: %s\n", cfg.Source.Kind)
	fmt.Fprintf(out, "  path: %s\n", cfg.Source.Path)
	fmt.Fprintf(out, "  seed: %d\n", cfg.Source.Seed)
	fmt.Fprintf(out, "  rewind_on_eof: %v\n", cfg.Source.RewindOnEOF)
	fmt.Fprintf(out, "  watch: %v\n", cfg.Source.Watch)

	fmt.Fprintln(out, "render:")
	fmt.Fprintf(out, "  mode: %s\n", cfg.Render.Mode)
	fmt.Fprintf(out, "  frame_interval_ms: %d\n", cfg.Render.FrameIntervalMs)
	fmt.Fprintf(out, "  drain_per_frame: %d\n", cfg.Render.DrainPerFrame)
	fmt.Fprintf(out, "  max_frames: %d\n", cfg.Render.MaxFrames)

	fmt.Fprintln(out, "shutdown:")
	fmt.Fprintf(out, "  timeout_ms: %d\n", cfg.Shutdown.TimeoutMs)

	fmt.Fprintln(out, "logging:")
	fmt.Fprintf(out, "  level: %s\n", cfg.Logging.Level)
	fmt.Fprintf(out, "  dir: %s\n", cfg.Logging.ResolveDir())
	fmt.Fprintf(out, "  max_size_mb: %d\n", cfg.Logging.MaxSizeMB)
	fmt.Fprintf(out, "  max_backups: %d\n", cfg.Logging.MaxBackups)
	fmt.Fprintf(out, "  compress: %v\n", cfg.Logging.Compress)
}

// parseValue converts a command-line value to the type registered for key
func parseValue(key, value string) (any, error) {
	keyType, ok := settableKeys[key]
	if !ok {
		return nil, fmt.Errorf("unknown configuration key: %s\nValid keys: %s", key, strings.Join(SettableKeys(), ", "))
	}

	switch keyType {
	case "bool":
		if value != "true" && value != "false" {
			return nil, fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		return value == "true", nil
	case "int":
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected integer", key)
		}
		return intVal, nil
	case "uint":
		uintVal, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected non-negative integer", key)
		}
		return uintVal, nil
	default:
		return value, nil
	}
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	typedValue, err := parseValue(key, value)
	if err != nil {
		return err
	}

	// Validate the whole config with the new value applied before writing it
	previous := viper.Get(key)
	viper.Set(key, typedValue)
	if _, err := config.Load(); err != nil {
		viper.Set(key, previous)
		return errors.Wrapf(err, "invalid value for %s", key)
	}

	// Ensure config directory exists
	configDir := config.ConfigDir()
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	// Write to config file
	configFile := config.ConfigFile()
	if err := viper.WriteConfigAs(configFile); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Set %s = %v\n", key, typedValue)
	fmt.Fprintf(out, "Config saved to %s\n", configFile)

	return nil
}

const defaultConfigContent = `# ringplot configuration

# Ring buffer shared by the producer and the consumer.
# One slot always stays empty, so capacity-1 samples fit at once.
buffer:
  capacity: 391680

# Drawing surface in pixels and the block drawn for each sample
screen:
  width: 272
  height: 480
  block_width: 20
  block_height: 20

# Where samples come from
# kind: file reads 4-byte native-endian samples from path
# kind: prng generates a repeatable stream from seed
source:
  kind: file
  path: /dev/urandom
  seed: 1
  # Start the file over at end of input instead of stopping
  rewind_on_eof: false
  # Restart from the beginning when the file changes
  watch: false

# Renderer
# mode: auto uses the terminal when stdout is a TTY, headless otherwise
render:
  mode: auto
  frame_interval_ms: 16
  # Samples popped before each frame (0 only snapshots)
  drain_per_frame: 0
  # Stop after this many headless frames (0 runs until interrupted)
  max_frames: 0

# How long teardown waits for the producer and consumer to stop
shutdown:
  timeout_ms: 2000

# Log file settings (ringplot.log in the state directory by default)
logging:
  level: info
  dir: ""
  max_size_mb: 10
  max_backups: 3
  compress: false
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'ringplot config set' to modify values", configFile)
	}

	// Create config directory
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	if err := os.WriteFile(configFile, []byte(defaultConfigContent), 0644); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created config file at %s\n", configFile)
	fmt.Fprintln(out, "Edit this file to customize ringplot's behavior.")

	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	configFile := config.ConfigFile()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", configFile)
	}

	// Also show config search paths
	fmt.Fprintln(out, "\nSearch paths:")
	fmt.Fprintf(out, "  1. %s\n", filepath.Join(config.ConfigDir(), "config.yaml"))
	fmt.Fprintf(out, "  2. $HOME/.config/ringplot/config.yaml\n")
	fmt.Fprintf(out, "  3. ./config.yaml (current directory)\n")
	fmt.Fprintln(out, "\nEnvironment variables: RINGPLOT_* (e.g., RINGPLOT_SOURCE_KIND)")
	fmt.Fprintf(out, "State directory: %s\n", config.StateDir())

	return nil
}
