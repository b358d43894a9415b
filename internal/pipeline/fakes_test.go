package pipeline

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/Iron-Ham/ringplot/internal/errors"
	"github.com/Iron-Ham/ringplot/internal/render"
)

// step is one scripted ReadSample result.
type step struct {
	value int32
	err   error
}

// scriptedSource replays steps and then reports end of input. ResetCursor
// starts the script over.
type scriptedSource struct {
	mu     sync.Mutex
	steps  []step
	pos    int
	resets int
	closed bool
	// resetAt records the read position at each reset.
	resetAt []int
	reads   int
}

func newScripted(values ...int32) *scriptedSource {
	s := &scriptedSource{}
	for _, v := range values {
		s.steps = append(s.steps, step{value: v})
	}
	return s
}

func (s *scriptedSource) ReadSample() (int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.pos >= len(s.steps) {
		return 0, errors.NewSourceError("end of input", errors.ErrSourceExhausted)
	}
	st := s.steps[s.pos]
	s.pos++
	return st.value, st.err
}

func (s *scriptedSource) ResetCursor() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets++
	s.resetAt = append(s.resetAt, s.reads)
	s.pos = 0
	return nil
}

func (s *scriptedSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *scriptedSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// panicSource panics on the first read.
type panicSource struct{}

func (panicSource) ReadSample() (int32, error) { panic("sensor exploded") }
func (panicSource) ResetCursor() error         { return nil }
func (panicSource) Close() error               { return nil }

// stuckRenderer blocks in PresentFrame, ignoring ctx, until Shutdown.
type stuckRenderer struct {
	entered  chan struct{}
	release  chan struct{}
	once     sync.Once
	shutdown atomic.Bool
}

func newStuckRenderer() *stuckRenderer {
	return &stuckRenderer{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
}

func (r *stuckRenderer) PollQuitRequested() bool   { return false }
func (r *stuckRenderer) DrawRectangle(render.Rect) {}

func (r *stuckRenderer) PresentFrame(context.Context) error {
	select {
	case r.entered <- struct{}{}:
	default:
	}
	<-r.release
	return nil
}

func (r *stuckRenderer) Shutdown() error {
	r.shutdown.Store(true)
	r.once.Do(func() { close(r.release) })
	return nil
}

// blockingRenderer blocks in PresentFrame until ctx ends.
type blockingRenderer struct {
	entered  chan struct{}
	shutdown atomic.Bool
}

func newBlockingRenderer() *blockingRenderer {
	return &blockingRenderer{entered: make(chan struct{}, 1)}
}

func (r *blockingRenderer) PollQuitRequested() bool   { return false }
func (r *blockingRenderer) DrawRectangle(render.Rect) {}

func (r *blockingRenderer) PresentFrame(ctx context.Context) error {
	select {
	case r.entered <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return ctx.Err()
}

func (r *blockingRenderer) Shutdown() error {
	r.shutdown.Store(true)
	return nil
}
