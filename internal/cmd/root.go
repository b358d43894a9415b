package cmd

import (
	"strings"

	"github.com/Iron-Ham/ringplot/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "ringplot",
	Short: "Plot a live sample stream as a grid of colored blocks",
	Long: `Ringplot reads 32-bit samples from a file, device or seeded generator
into a bounded ring buffer and redraws the buffer's contents as a grid of
colored blocks every frame.

Press q or ctrl+c to quit and r to restart the source from the beginning.
SIGHUP also restarts the source; SIGINT and SIGTERM stop the run.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runPlot,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// flagKeys maps root command flags to the config keys they override
var flagKeys = map[string]string{
	"capacity":       "buffer.capacity",
	"source":         "source.kind",
	"path":           "source.path",
	"seed":           "source.seed",
	"rewind":         "source.rewind_on_eof",
	"watch":          "source.watch",
	"mode":           "render.mode",
	"frame-interval": "render.frame_interval_ms",
	"drain":          "render.drain_per_frame",
	"max-frames":     "render.max_frames",
	"log-level":      "logging.level",
	"log-dir":        "logging.dir",
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/ringplot/config.yaml)")

	defaults := config.Default()
	flags := rootCmd.Flags()
	flags.Int("capacity", defaults.Buffer.Capacity, "ring buffer slots (one is always kept empty)")
	flags.String("source", defaults.Source.Kind, "sample source: file or prng")
	flags.String("path", defaults.Source.Path, "file or device read by the file source")
	flags.Uint64("seed", defaults.Source.Seed, "seed for the prng source")
	flags.Bool("rewind", defaults.Source.RewindOnEOF, "rewind the file source at end of input instead of stopping")
	flags.Bool("watch", defaults.Source.Watch, "restart when the source file changes")
	flags.String("mode", defaults.Render.Mode, "renderer: auto, terminal or headless")
	flags.Int("frame-interval", defaults.Render.FrameIntervalMs, "milliseconds between frames")
	flags.Int("drain", defaults.Render.DrainPerFrame, "samples to pop before each frame")
	flags.Int("max-frames", defaults.Render.MaxFrames, "stop after this many headless frames (0 runs until interrupted)")
	flags.String("log-level", defaults.Logging.Level, "log level: debug, info, warn or error")
	flags.String("log-dir", defaults.Logging.Dir, "directory for ringplot.log (default is the state directory)")
}

// bindFlags binds flags to their config keys. It runs on every initialization
// so that bindings survive a viper.Reset.
func bindFlags(flags *pflag.FlagSet) {
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	for name, key := range flagKeys {
		_ = viper.BindPFlag(key, flags.Lookup(name))
	}
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()
	bindFlags(rootCmd.Flags())

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/ringplot")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("RINGPLOT")
	// Replace dots with underscores for nested keys in env vars
	// e.g., RINGPLOT_RENDER_FRAME_INTERVAL_MS for render.frame_interval_ms
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
