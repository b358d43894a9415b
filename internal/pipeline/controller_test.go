package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Iron-Ham/ringplot/internal/config"
	"github.com/Iron-Ham/ringplot/internal/errors"
	"github.com/Iron-Ham/ringplot/internal/event"
	"github.com/Iron-Ham/ringplot/internal/render"
	"github.com/Iron-Ham/ringplot/internal/source"
	"golang.org/x/sys/unix"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Buffer.Capacity = 64
	cfg.Render.FrameIntervalMs = 1
	cfg.Shutdown.TimeoutMs = 500
	return cfg
}

func runController(t *testing.T, ctx context.Context, c *Controller) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("controller did not terminate")
		return nil
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateInitializing, "initializing"},
		{StateRunning, "running"},
		{StateShuttingDown, "shutting_down"},
		{StateTerminated, "terminated"},
		{State(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestController_QuitFromRenderer(t *testing.T) {
	cfg := testConfig()
	buf := newTestBuffer(t, cfg.Buffer.Capacity)
	src := source.NewPRNG(7)
	h := render.NewHeadless(render.NewGeometry(cfg.Screen), 5, nil)

	c := NewController(cfg, buf, src, h, nil, WithSignals(false), WithSourceName("prng"))
	if c.State() != StateInitializing {
		t.Fatalf("initial state = %s", c.State())
	}

	if err := runController(t, context.Background(), c); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if c.State() != StateTerminated {
		t.Errorf("state = %s, want terminated", c.State())
	}
	if c.ShutdownReason() != "quit requested" {
		t.Errorf("ShutdownReason() = %q", c.ShutdownReason())
	}
	if !buf.Closed() {
		t.Error("buffer should be destroyed")
	}
	if _, err := src.ReadSample(); err == nil {
		t.Error("source should be closed")
	}
	if err := h.PresentFrame(context.Background()); !errors.Is(err, errors.ErrRendererClosed) {
		t.Errorf("renderer should be shut down, PresentFrame() = %v", err)
	}
	if got := c.Stats().Frames; got != 5 {
		t.Errorf("Frames = %d, want 5", got)
	}
	if got := h.LastStatus().Source; got != "prng" {
		t.Errorf("status source = %q, want prng", got)
	}
}

func TestController_SourceFailureStopsPipeline(t *testing.T) {
	cfg := testConfig()
	buf := newTestBuffer(t, cfg.Buffer.Capacity)
	src := newScripted(1, 2, 3)
	h := render.NewHeadless(render.NewGeometry(cfg.Screen), 0, nil)

	c := NewController(cfg, buf, src, h, nil, WithSignals(false))
	err := runController(t, context.Background(), c)

	if !errors.Is(err, errors.ErrSourceExhausted) {
		t.Fatalf("Run() error = %v, want ErrSourceExhausted", err)
	}
	if c.State() != StateTerminated {
		t.Errorf("state = %s, want terminated", c.State())
	}
	if c.ShutdownReason() != "producer failed" {
		t.Errorf("ShutdownReason() = %q", c.ShutdownReason())
	}
	if !src.isClosed() {
		t.Error("source should be closed")
	}
}

func TestController_ContextCancel(t *testing.T) {
	cfg := testConfig()
	buf := newTestBuffer(t, cfg.Buffer.Capacity)
	h := render.NewHeadless(render.NewGeometry(cfg.Screen), 0, nil)
	c := NewController(cfg, buf, source.NewPRNG(1), h, nil, WithSignals(false))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := runController(t, ctx, c); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if c.ShutdownReason() != "context done" {
		t.Errorf("ShutdownReason() = %q", c.ShutdownReason())
	}
	if got := c.Stats().Pushed; got != uint64(cfg.Buffer.Capacity-1) {
		t.Errorf("Pushed = %d, want %d (buffer fills and throttles the producer)", got, cfg.Buffer.Capacity-1)
	}
}

func TestController_StuckRendererTimesOut(t *testing.T) {
	cfg := testConfig()
	cfg.Buffer.Capacity = 4
	cfg.Shutdown.TimeoutMs = 100
	buf := newTestBuffer(t, cfg.Buffer.Capacity)
	r := newStuckRenderer()
	c := NewController(cfg, buf, source.NewPRNG(1), r, nil, WithSignals(false))

	go func() {
		<-r.entered
		c.RequestShutdown("test")
	}()

	start := time.Now()
	err := runController(t, context.Background(), c)
	elapsed := time.Since(start)

	if !errors.Is(err, errors.ErrTimeout) {
		t.Fatalf("Run() error = %v, want ErrTimeout", err)
	}
	var te *errors.TimeoutError
	if !errors.As(err, &te) || te.Duration != 100*time.Millisecond {
		t.Errorf("error = %#v, want TimeoutError with 100ms", err)
	}
	if elapsed > 3*time.Second {
		t.Errorf("teardown took %v", elapsed)
	}
	if !r.shutdown.Load() {
		t.Error("renderer Shutdown should be called after the timeout")
	}
	if !buf.Closed() {
		t.Error("buffer should be destroyed")
	}
	if c.State() != StateTerminated {
		t.Errorf("state = %s, want terminated", c.State())
	}
}

func TestController_TaskPanic(t *testing.T) {
	cfg := testConfig()
	buf := newTestBuffer(t, cfg.Buffer.Capacity)
	h := render.NewHeadless(render.NewGeometry(cfg.Screen), 0, nil)
	c := NewController(cfg, buf, panicSource{}, h, nil, WithSignals(false))

	err := runController(t, context.Background(), c)
	if !errors.Is(err, errors.ErrTaskPanic) {
		t.Fatalf("Run() error = %v, want ErrTaskPanic", err)
	}
	if c.State() != StateTerminated {
		t.Errorf("state = %s, want terminated", c.State())
	}
}

func TestController_RunTwice(t *testing.T) {
	cfg := testConfig()
	buf := newTestBuffer(t, cfg.Buffer.Capacity)
	h := render.NewHeadless(render.NewGeometry(cfg.Screen), 1, nil)
	c := NewController(cfg, buf, source.NewPRNG(1), h, nil, WithSignals(false))

	if err := runController(t, context.Background(), c); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	err := c.Run(context.Background())
	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("second Run() error = %v, want ErrInvalidInput", err)
	}
}

func TestController_RequestShutdownKeepsFirstReason(t *testing.T) {
	cfg := testConfig()
	buf := newTestBuffer(t, cfg.Buffer.Capacity)
	c := NewController(cfg, buf, source.NewPRNG(1), render.NewHeadless(render.NewGeometry(cfg.Screen), 0, nil), nil)

	c.RequestShutdown("first")
	c.RequestShutdown("second")

	if c.ShutdownReason() != "first" {
		t.Errorf("ShutdownReason() = %q, want first", c.ShutdownReason())
	}
	select {
	case <-c.stopCh:
	default:
		t.Error("stop channel should be closed")
	}
}

func TestController_HandleSignal(t *testing.T) {
	cfg := testConfig()
	buf := newTestBuffer(t, cfg.Buffer.Capacity)
	c := NewController(cfg, buf, source.NewPRNG(1), render.NewHeadless(render.NewGeometry(cfg.Screen), 0, nil), nil)

	c.handleSignal(unix.SIGHUP)
	if !c.restart.Take() {
		t.Error("SIGHUP should request a restart")
	}
	select {
	case <-c.stopCh:
		t.Fatal("SIGHUP should not stop the pipeline")
	default:
	}

	c.handleSignal(unix.SIGTERM)
	select {
	case <-c.stopCh:
	default:
		t.Fatal("SIGTERM should stop the pipeline")
	}
	if c.ShutdownReason() != "signal: terminated" {
		t.Errorf("ShutdownReason() = %q", c.ShutdownReason())
	}
}

func TestController_PublishesLifecycleEvents(t *testing.T) {
	cfg := testConfig()
	buf := newTestBuffer(t, cfg.Buffer.Capacity)
	h := render.NewHeadless(render.NewGeometry(cfg.Screen), 2, nil)

	bus := event.NewBus(nil)
	var mu sync.Mutex
	var states []string
	var reasons []string
	restarts := 0
	bus.Subscribe(event.TypeStateChanged, func(e event.Event) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, e.(event.StateChangedEvent).To)
	})
	bus.Subscribe(event.TypeShutdownRequested, func(e event.Event) {
		mu.Lock()
		defer mu.Unlock()
		reasons = append(reasons, e.(event.ShutdownRequestedEvent).Reason)
	})
	bus.Subscribe(event.TypeRestartRequested, func(event.Event) {
		mu.Lock()
		defer mu.Unlock()
		restarts++
	})

	c := NewController(cfg, buf, source.NewPRNG(3), h, nil, WithSignals(false), WithEventBus(bus))
	c.RequestRestart()
	if err := runController(t, context.Background(), c); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"running", "shutting_down", "terminated"}
	if len(states) != len(want) {
		t.Fatalf("states = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("states = %v, want %v", states, want)
		}
	}
	if len(reasons) != 1 || reasons[0] != "quit requested" {
		t.Errorf("shutdown reasons = %v", reasons)
	}
	if restarts != 1 {
		t.Errorf("restart events = %d, want 1", restarts)
	}
}

func TestController_PublishesTaskFailure(t *testing.T) {
	cfg := testConfig()
	buf := newTestBuffer(t, cfg.Buffer.Capacity)
	h := render.NewHeadless(render.NewGeometry(cfg.Screen), 0, nil)

	bus := event.NewBus(nil)
	failures := make(chan event.TaskFailedEvent, 2)
	bus.Subscribe(event.TypeTaskFailed, func(e event.Event) {
		failures <- e.(event.TaskFailedEvent)
	})

	c := NewController(cfg, buf, newScripted(1), h, nil, WithSignals(false), WithEventBus(bus))
	_ = runController(t, context.Background(), c)

	select {
	case f := <-failures:
		if f.Task != "producer" || !errors.Is(f.Err, errors.ErrSourceExhausted) {
			t.Errorf("failure = %+v", f)
		}
	default:
		t.Fatal("no task failure event published")
	}
}
