package render

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/Iron-Ham/ringplot/internal/errors"
	"github.com/Iron-Ham/ringplot/internal/logging"
)

// Headless is a Renderer with no display. It keeps the last presented frame
// in memory and can request a quit after a fixed number of frames.
type Headless struct {
	geom      Geometry
	maxFrames uint64
	logger    *logging.Logger

	quit   atomic.Bool
	closed atomic.Bool
	frames atomic.Uint64

	staged  []Rect // consumer-owned
	clipped int

	mu        sync.Mutex
	last      []Rect
	status    Status
	lastClips int
}

// NewHeadless returns a headless renderer. A maxFrames of zero never requests
// a quit on its own.
func NewHeadless(geom Geometry, maxFrames uint64, logger *logging.Logger) *Headless {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Headless{
		geom:      geom,
		maxFrames: maxFrames,
		logger:    logger.WithComponent("renderer").With("mode", "headless"),
		staged:    make([]Rect, 0, geom.VisibleBlocks()),
	}
}

// PollQuitRequested implements Renderer.
func (h *Headless) PollQuitRequested() bool {
	return h.quit.Load()
}

// RequestQuit makes the next PollQuitRequested report true.
func (h *Headless) RequestQuit() {
	h.quit.Store(true)
}

// DrawRectangle implements Renderer.
func (h *Headless) DrawRectangle(r Rect) {
	if !h.geom.Visible(r) {
		h.clipped++
		return
	}
	h.staged = append(h.staged, r)
}

// PresentFrame implements Renderer.
func (h *Headless) PresentFrame(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if h.closed.Load() {
		return errors.NewRenderError("present after shutdown", errors.ErrRendererClosed).WithMode("headless")
	}

	h.mu.Lock()
	h.last = append(h.last[:0], h.staged...)
	h.lastClips = h.clipped
	h.mu.Unlock()

	h.staged = h.staged[:0]
	h.clipped = 0

	n := h.frames.Add(1)
	if h.maxFrames > 0 && n >= h.maxFrames {
		if !h.quit.Swap(true) {
			h.logger.Info("frame limit reached", "frames", n)
		}
	}
	return nil
}

// SetStatus implements StatusSetter.
func (h *Headless) SetStatus(s Status) {
	h.mu.Lock()
	h.status = s
	h.mu.Unlock()
}

// Frames returns the number of frames presented so far.
func (h *Headless) Frames() uint64 {
	return h.frames.Load()
}

// LastFrame returns a copy of the most recently presented rectangles and how
// many were clipped from that frame.
func (h *Headless) LastFrame() ([]Rect, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Rect(nil), h.last...), h.lastClips
}

// LastStatus returns the most recent status.
func (h *Headless) LastStatus() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// Shutdown implements Renderer.
func (h *Headless) Shutdown() error {
	if h.closed.Swap(true) {
		return nil
	}
	h.mu.Lock()
	status := h.status
	h.mu.Unlock()
	h.logger.Info("renderer stopped",
		"frames", h.frames.Load(),
		"occupancy", status.Occupancy,
		"pushed", status.Pushed,
		"restarts", status.Restarts,
	)
	return nil
}
