package cmd

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/Iron-Ham/ringplot/internal/config"
	"github.com/Iron-Ham/ringplot/internal/errors"
	"github.com/Iron-Ham/ringplot/internal/event"
	"github.com/Iron-Ham/ringplot/internal/logging"
	"github.com/Iron-Ham/ringplot/internal/pipeline"
	"github.com/Iron-Ham/ringplot/internal/render"
	"github.com/Iron-Ham/ringplot/internal/ring"
	"github.com/Iron-Ham/ringplot/internal/source"
	"github.com/Iron-Ham/ringplot/internal/util"
	"github.com/spf13/cobra"
)

// runEnv holds the process handles a run is attached to.
type runEnv struct {
	in  io.Reader
	out io.Writer
	// tty reports whether out is an interactive terminal.
	tty bool
	// signals installs SIGINT/SIGTERM/SIGHUP handling.
	signals bool
}

func runPlot(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := CreateLogger(cfg)
	defer func() { _ = logger.Close() }()

	env := runEnv{
		in:      os.Stdin,
		out:     os.Stdout,
		tty:     render.IsTerminal(os.Stdout),
		signals: true,
	}
	return runPipeline(cmd.Context(), cfg, env, logger)
}

// runPipeline builds every component from cfg and runs one pipeline to
// completion. Components built before a failure are released before returning.
func runPipeline(ctx context.Context, cfg *config.Config, env runEnv, logger *logging.Logger) error {
	logger.Info("ringplot started",
		"source", cfg.Source.Kind,
		"capacity", cfg.Buffer.Capacity,
		"mode", cfg.Render.Mode,
	)

	buffer, err := ring.New[int32](cfg.Buffer.Capacity)
	if err != nil {
		return err
	}

	src, err := source.Open(cfg.Source)
	if err != nil {
		buffer.Destroy()
		return err
	}

	// The renderer exists before the controller, so restart requests from the
	// UI go through this pointer.
	var ctrlRef atomic.Pointer[pipeline.Controller]
	onRestart := func() {
		if c := ctrlRef.Load(); c != nil {
			c.RequestRestart()
		}
	}

	geom := render.NewGeometry(cfg.Screen)
	renderer, mode, err := newRenderer(cfg, geom, env, onRestart, logger)
	if err != nil {
		buffer.Destroy()
		_ = src.Close()
		return err
	}

	bus := event.NewBus(logger)
	bus.SubscribeAll(func(e event.Event) {
		logger.Debug("pipeline event", "type", e.EventType())
	})

	ctrl := pipeline.NewController(cfg, buffer, src, renderer, logger,
		pipeline.WithSignals(env.signals),
		pipeline.WithSourceName(sourceName(cfg.Source)),
		pipeline.WithEventBus(bus),
	)
	ctrlRef.Store(ctrl)

	if cfg.Source.Watch {
		w, err := source.NewWatcher(cfg.Source.ResolvePath(), ctrl.RequestRestart, logger)
		if err != nil {
			// Watching is a convenience; the run continues without it.
			logger.Warn("source watch unavailable", "path", cfg.Source.ResolvePath(), "error", err.Error())
		} else {
			defer w.Stop()
			id := bus.Subscribe(event.TypeStateChanged, watchWhileRunning(w))
			defer bus.Unsubscribe(id)
		}
	}

	logger.Info("renderer selected", "mode", mode)
	err = ctrl.Run(ctx)

	snap := ctrl.Stats()
	logger.Info("ringplot stopped",
		"reason", ctrl.ShutdownReason(),
		"pushed", snap.Pushed,
		"frames", snap.Frames,
	)
	return err
}

// watchWhileRunning starts w when the pipeline starts running and stops it at
// shutdown, so no restart is requested during teardown.
func watchWhileRunning(w *source.Watcher) event.Handler {
	return func(e event.Event) {
		sc, ok := e.(event.StateChangedEvent)
		if !ok {
			return
		}
		switch sc.To {
		case pipeline.StateRunning.String():
			w.Start()
		case pipeline.StateShuttingDown.String():
			w.Stop()
		}
	}
}

// newRenderer picks the renderer for cfg.Render.Mode and returns it with the
// mode actually used.
func newRenderer(cfg *config.Config, geom render.Geometry, env runEnv, onRestart func(), logger *logging.Logger) (render.Renderer, string, error) {
	mode := cfg.Render.Mode
	if mode == config.RenderModeAuto {
		mode = config.RenderModeHeadless
		if env.tty {
			mode = config.RenderModeTerminal
		}
	}

	switch mode {
	case config.RenderModeTerminal:
		if !env.tty {
			return nil, mode, errors.NewRenderError("output is not a terminal", errors.ErrRendererUnavailable).WithMode(mode)
		}
		return render.NewTerminal(geom, render.TerminalOptions{
			Input:     env.in,
			Output:    env.out,
			OnRestart: onRestart,
			Logger:    logger,
		}), mode, nil
	case config.RenderModeHeadless:
		return render.NewHeadless(geom, uint64(cfg.Render.MaxFrames), logger), mode, nil
	default:
		return nil, mode, errors.NewValidationError(fmt.Sprintf("unknown render mode %q", cfg.Render.Mode)).
			WithField("render.mode").
			WithValue(cfg.Render.Mode)
	}
}

// maxSourceLabel bounds the source label in the status line
const maxSourceLabel = 32

// sourceName is the label shown in the status line.
func sourceName(cfg config.SourceConfig) string {
	if cfg.Kind == config.SourceKindPRNG {
		return fmt.Sprintf("prng:%d", cfg.Seed)
	}
	return util.ShortenPath(cfg.ResolvePath(), maxSourceLabel)
}

// CreateLogger builds the run's logger from the logging config. A logger that
// cannot be created never prevents a run; it falls back to a no-op logger.
func CreateLogger(cfg *config.Config) *logging.Logger {
	rotationConfig := logging.RotationConfig{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Compress:   cfg.Logging.Compress,
	}

	logger, err := logging.NewLoggerWithRotation(cfg.Logging.ResolveDir(), cfg.Logging.Level, rotationConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to create logger: %v\n", err)
		return logging.NopLogger()
	}
	return logger.WithRun(generateRunID())
}

// generateRunID creates a short random hex ID
func generateRunID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
