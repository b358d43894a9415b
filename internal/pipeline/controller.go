package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"github.com/Iron-Ham/ringplot/internal/config"
	"github.com/Iron-Ham/ringplot/internal/errors"
	"github.com/Iron-Ham/ringplot/internal/event"
	"github.com/Iron-Ham/ringplot/internal/logging"
	"github.com/Iron-Ham/ringplot/internal/render"
	"github.com/Iron-Ham/ringplot/internal/ring"
	"github.com/Iron-Ham/ringplot/internal/source"
)

// State is the lifecycle state of a Controller.
type State int32

const (
	StateInitializing State = iota
	StateRunning
	StateShuttingDown
	StateTerminated
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting_down"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Option configures a Controller.
type Option func(*Controller)

// WithSignals enables or disables OS signal handling (enabled by default).
func WithSignals(enabled bool) Option {
	return func(c *Controller) {
		c.handleSignals = enabled
	}
}

// WithSourceName sets the label shown in the renderer's status line.
func WithSourceName(name string) Option {
	return func(c *Controller) {
		c.sourceName = name
	}
}

// WithEventBus publishes lifecycle events on bus.
func WithEventBus(bus *event.Bus) Option {
	return func(c *Controller) {
		c.bus = bus
	}
}

// Controller owns one run of the pipeline: the buffer, the source, the
// renderer and the two tasks between them. It replaces process-wide state;
// everything a task needs is reachable from here.
type Controller struct {
	cfg      *config.Config
	buffer   *ring.Buffer[int32]
	source   source.Source
	renderer render.Renderer
	logger   *logging.Logger
	bus      *event.Bus

	restart *RestartFlag
	stats   *Stats

	handleSignals bool
	sourceName    string

	state atomic.Int32

	stopCh     chan struct{}
	stopOnce   sync.Once
	stopReason atomic.Value // string

	errMu    sync.Mutex
	firstErr error

	runOnce      sync.Once
	teardownOnce sync.Once
}

// NewController wires a pipeline from already-constructed parts. The
// controller takes ownership of buffer, src and renderer and releases them
// during teardown.
func NewController(cfg *config.Config, buffer *ring.Buffer[int32], src source.Source, renderer render.Renderer, logger *logging.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = logging.NopLogger()
	}
	c := &Controller{
		cfg:           cfg,
		buffer:        buffer,
		source:        src,
		renderer:      renderer,
		logger:        logger.WithComponent("controller"),
		restart:       &RestartFlag{},
		stats:         NewStats(),
		handleSignals: true,
		sourceName:    cfg.Source.Kind,
		stopCh:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.state.Store(int32(StateInitializing))
	return c
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

func (c *Controller) setState(s State) {
	prev := State(c.state.Swap(int32(s)))
	if prev != s {
		c.logger.Debug("state changed", "from", prev.String(), "to", s.String())
		c.bus.Publish(event.NewStateChangedEvent(prev.String(), s.String()))
	}
}

// Stats returns the current run counters.
func (c *Controller) Stats() StatsSnapshot {
	return c.stats.Snapshot()
}

// RequestShutdown asks a running pipeline to stop. Only the first reason is
// kept. It does not wait for teardown and may be called from any goroutine,
// including signal handlers and renderer callbacks.
func (c *Controller) RequestShutdown(reason string) {
	c.stopOnce.Do(func() {
		c.stopReason.Store(reason)
		close(c.stopCh)
		c.bus.Publish(event.NewShutdownRequestedEvent(reason))
	})
}

// RequestRestart asks the producer to rewind its source before its next read.
func (c *Controller) RequestRestart() {
	c.restart.Request()
	c.logger.Debug("restart requested")
	c.bus.Publish(event.NewRestartRequestedEvent())
}

// ShutdownReason returns the reason passed to the first RequestShutdown call.
func (c *Controller) ShutdownReason() string {
	if r, ok := c.stopReason.Load().(string); ok {
		return r
	}
	return ""
}

// Err returns the first fatal error recorded so far.
func (c *Controller) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.firstErr
}

func (c *Controller) recordErr(err error) {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	if c.firstErr == nil {
		c.firstErr = err
	}
}

// Run starts both tasks and blocks until the pipeline has been torn down. It
// returns the first fatal error, a *errors.TimeoutError if the tasks did not
// stop within the shutdown timeout, or nil for a clean stop. Run may only be
// called once.
func (c *Controller) Run(ctx context.Context) error {
	started := false
	c.runOnce.Do(func() { started = true })
	if !started {
		return errors.NewValidationError("controller already ran").WithField("state").WithValue(c.State().String())
	}

	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if c.handleSignals {
		stop := c.watchSignals()
		defer stop()
	}

	producer := NewProducer(c.buffer, c.source, c.restart, c.stats, c.cfg.Source.RewindOnEOF, c.logger)
	consumer := NewConsumer(c.buffer, c.renderer, ConsumerConfig{
		Geometry:      render.NewGeometry(c.cfg.Screen),
		FrameInterval: c.cfg.Render.FrameInterval(),
		DrainPerFrame: c.cfg.Render.DrainPerFrame,
		SourceName:    c.sourceName,
	}, c.stats, c.RequestShutdown, c.logger)

	var wg conc.WaitGroup
	wg.Go(c.task(taskCtx, "producer", producer.Run))
	wg.Go(c.task(taskCtx, "consumer", consumer.Run))

	c.setState(StateRunning)
	c.logger.Info("pipeline running",
		"capacity", c.buffer.Cap(),
		"source", c.sourceName,
	)

	select {
	case <-ctx.Done():
		c.RequestShutdown("context done")
	case <-c.stopCh:
	}

	c.teardown(cancel, &wg)
	return c.Err()
}

// task wraps fn so that an error or panic is recorded and stops the pipeline.
func (c *Controller) task(ctx context.Context, name string, fn func(context.Context) error) func() {
	return func() {
		var err error
		var pc panics.Catcher
		pc.Try(func() { err = fn(ctx) })
		if r := pc.Recovered(); r != nil {
			err = fmt.Errorf("%s: %w: %w", name, errors.ErrTaskPanic, r.AsError())
		}
		if err == nil {
			c.logger.Debug("task stopped", "task", name)
			return
		}
		logError(c.logger, "task failed", err, "task", name)
		c.recordErr(err)
		c.bus.Publish(event.NewTaskFailedEvent(name, err))
		c.RequestShutdown(name + " failed")
	}
}

// teardown releases everything exactly once, on the caller's goroutine.
func (c *Controller) teardown(cancel context.CancelFunc, wg *conc.WaitGroup) {
	c.teardownOnce.Do(func() {
		c.setState(StateShuttingDown)
		c.logger.Info("shutting down", "reason", c.ShutdownReason())

		cancel()

		stopped := make(chan struct{})
		go func() {
			defer close(stopped)
			if r := wg.WaitAndRecover(); r != nil {
				c.recordErr(fmt.Errorf("%w: %w", errors.ErrTaskPanic, r.AsError()))
			}
		}()

		timeout := c.cfg.Shutdown.Timeout()
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case <-stopped:
		case <-timer.C:
			c.logger.Warn("tasks did not stop in time", "timeout", timeout.String())
			c.recordErr(errors.NewTimeoutError("waiting for pipeline tasks", timeout))
		}

		// Destroy wakes any push or pop still blocked past the deadline.
		c.buffer.Destroy()

		if err := c.renderer.Shutdown(); err != nil {
			c.logger.Warn("renderer shutdown failed", "error", err.Error())
		}
		if err := c.source.Close(); err != nil {
			c.logger.Warn("source close failed", "error", err.Error())
		}

		snap := c.stats.Snapshot()
		c.setState(StateTerminated)
		c.logger.Info("pipeline terminated",
			"pushed", snap.Pushed,
			"short_reads", snap.ShortReads,
			"restarts", snap.Restarts,
			"frames", snap.Frames,
			"uptime", snap.Uptime.String(),
		)
	})
}
