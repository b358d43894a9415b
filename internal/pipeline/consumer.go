package pipeline

import (
	"context"
	"time"

	"github.com/Iron-Ham/ringplot/internal/logging"
	"github.com/Iron-Ham/ringplot/internal/render"
	"github.com/Iron-Ham/ringplot/internal/ring"
)

// ConsumerConfig holds the consumer's pacing and layout.
type ConsumerConfig struct {
	Geometry      render.Geometry
	FrameInterval time.Duration
	// DrainPerFrame is how many values to pop before each snapshot. Zero
	// leaves the buffer untouched, so it fills and throttles the producer.
	DrainPerFrame int
	// SourceName is shown in the renderer's status line.
	SourceName string
}

// Consumer draws buffer snapshots on a renderer once per frame.
type Consumer struct {
	buffer   *ring.Buffer[int32]
	renderer render.Renderer
	cfg      ConsumerConfig
	stats    *Stats
	onQuit   func(reason string)
	logger   *logging.Logger

	slots []ring.Slot[int32]
}

// NewConsumer builds a Consumer. onQuit is called once when the renderer
// reports a quit request.
func NewConsumer(buffer *ring.Buffer[int32], renderer render.Renderer, cfg ConsumerConfig, stats *Stats, onQuit func(reason string), logger *logging.Logger) *Consumer {
	if logger == nil {
		logger = logging.NopLogger()
	}
	if stats == nil {
		stats = NewStats()
	}
	return &Consumer{
		buffer:   buffer,
		renderer: renderer,
		cfg:      cfg,
		stats:    stats,
		onQuit:   onQuit,
		logger:   logger.WithComponent("consumer"),
	}
}

// Run renders frames until ctx ends, the renderer asks to quit, or presenting
// a frame fails.
func (c *Consumer) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	<-timer.C // drain initial timer
	defer timer.Stop()

	for {
		if ctx.Err() != nil {
			return nil
		}

		if c.renderer.PollQuitRequested() {
			c.logger.Info("quit requested by renderer")
			if c.onQuit != nil {
				c.onQuit("quit requested")
			}
			return nil
		}

		if err := c.renderFrame(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("present failed", "error", err.Error())
			return err
		}

		timer.Reset(c.cfg.FrameInterval)
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
	}
}

func (c *Consumer) renderFrame(ctx context.Context) error {
	for range c.cfg.DrainPerFrame {
		if _, ok := c.buffer.TryPop(); !ok {
			break
		}
	}

	c.slots = c.buffer.SnapshotInto(c.slots)
	for _, s := range c.slots {
		c.renderer.DrawRectangle(c.cfg.Geometry.RectFor(s.Index, s.Value))
	}
	c.stats.lastLen.Store(int64(len(c.slots)))

	if ss, ok := c.renderer.(render.StatusSetter); ok {
		snap := c.stats.Snapshot()
		ss.SetStatus(render.Status{
			Occupancy: len(c.slots),
			Usable:    c.buffer.Usable(),
			Pushed:    snap.Pushed,
			Skipped:   snap.ShortReads,
			Restarts:  snap.Restarts,
			Frames:    snap.Frames,
			Source:    c.cfg.SourceName,
			Uptime:    snap.Uptime,
		})
	}

	if err := c.renderer.PresentFrame(ctx); err != nil {
		return err
	}
	c.stats.frames.Add(1)
	return nil
}
