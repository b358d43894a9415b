package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/Iron-Ham/ringplot/internal/errors"
	"github.com/Iron-Ham/ringplot/internal/ring"
	"github.com/Iron-Ham/ringplot/internal/source"
	"github.com/Iron-Ham/ringplot/internal/testutil"
)

func newTestBuffer(t *testing.T, capacity int) *ring.Buffer[int32] {
	t.Helper()
	b, err := ring.New[int32](capacity)
	if err != nil {
		t.Fatalf("ring.New(%d): %v", capacity, err)
	}
	return b
}

func startProducer(ctx context.Context, p *Producer) <-chan error {
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	return done
}

func waitErr(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("producer did not return")
		return nil
	}
}

func values(b *ring.Buffer[int32]) []int32 {
	var out []int32
	for _, s := range b.Snapshot() {
		out = append(out, s.Value)
	}
	return out
}

func equalValues(a, b []int32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestProducer_PushesUntilExhausted(t *testing.T) {
	buf := newTestBuffer(t, 16)
	src := newScripted(10, 20, 30)
	stats := NewStats()
	p := NewProducer(buf, src, &RestartFlag{}, stats, false, nil)

	err := p.Run(context.Background())
	if !errors.Is(err, errors.ErrSourceExhausted) {
		t.Fatalf("Run() error = %v, want ErrSourceExhausted", err)
	}
	if got := values(buf); !equalValues(got, []int32{10, 20, 30}) {
		t.Errorf("buffer = %v, want [10 20 30]", got)
	}
	if got := stats.Snapshot().Pushed; got != 3 {
		t.Errorf("Pushed = %d, want 3", got)
	}
}

func TestProducer_Errors(t *testing.T) {
	tests := []struct {
		name        string
		steps       []step
		wantErr     error
		wantValues  []int32
		wantSkipped uint64
	}{
		{
			name: "short read is skipped",
			steps: []step{
				{value: 1},
				{err: errors.NewSourceError("short read", errors.ErrShortRead)},
				{value: 2},
			},
			wantErr:     errors.ErrSourceExhausted,
			wantValues:  []int32{1, 2},
			wantSkipped: 1,
		},
		{
			name: "read failure is fatal",
			steps: []step{
				{value: 7},
				{err: errors.NewSourceError("read failed", errors.ErrSourceRead)},
				{value: 8},
			},
			wantErr:    errors.ErrSourceRead,
			wantValues: []int32{7},
		},
		{
			name: "bare short read is skipped",
			steps: []step{
				{err: errors.ErrShortRead},
				{value: 5},
			},
			wantErr:     errors.ErrSourceExhausted,
			wantValues:  []int32{5},
			wantSkipped: 1,
		},
		{
			name: "canceled source stops cleanly",
			steps: []step{
				{value: 3},
				{err: errors.Wrap(errors.ErrCanceled, "device detached")},
				{value: 4},
			},
			wantErr:    nil,
			wantValues: []int32{3},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := newTestBuffer(t, 16)
			src := &scriptedSource{steps: tt.steps}
			stats := NewStats()
			p := NewProducer(buf, src, &RestartFlag{}, stats, false, nil)

			err := p.Run(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Run() error = %v, want %v", err, tt.wantErr)
			}
			if got := values(buf); !equalValues(got, tt.wantValues) {
				t.Errorf("buffer = %v, want %v", got, tt.wantValues)
			}
			if got := stats.Snapshot().ShortReads; got != tt.wantSkipped {
				t.Errorf("ShortReads = %d, want %d", got, tt.wantSkipped)
			}
		})
	}
}

func TestProducer_RestartBeforeFirstRead(t *testing.T) {
	buf := newTestBuffer(t, 16)
	src := newScripted(5, 6, 7)
	restart := &RestartFlag{}
	restart.Request()
	restart.Request()
	stats := NewStats()
	p := NewProducer(buf, src, restart, stats, false, nil)

	_ = p.Run(context.Background())

	if src.resets != 1 {
		t.Fatalf("resets = %d, want 1", src.resets)
	}
	if src.resetAt[0] != 0 {
		t.Errorf("reset happened after %d reads, want before the first", src.resetAt[0])
	}
	if got := stats.Snapshot().Restarts; got != 1 {
		t.Errorf("Restarts = %d, want 1", got)
	}
	if restart.Take() {
		t.Error("restart flag should be cleared")
	}
}

func TestProducer_RestartWhileBlocked(t *testing.T) {
	// Usable capacity 2: the producer blocks pushing the third value.
	buf := newTestBuffer(t, 3)
	src := newScripted(1, 2, 3, 4)
	restart := &RestartFlag{}
	p := NewProducer(buf, src, restart, NewStats(), false, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := startProducer(ctx, p)

	testutil.WaitFor(t, "third read", func() bool {
		src.mu.Lock()
		defer src.mu.Unlock()
		return src.reads >= 3
	})
	restart.Request()

	var got []int32
	for range 7 {
		v, err := buf.Pop(ctx)
		if err != nil {
			t.Fatalf("Pop: %v", err)
		}
		got = append(got, v)
	}

	want := []int32{1, 2, 3, 1, 2, 3, 4}
	if !equalValues(got, want) {
		t.Errorf("popped %v, want %v", got, want)
	}
	if err := waitErr(t, done); !errors.Is(err, errors.ErrSourceExhausted) {
		t.Errorf("Run() error = %v, want ErrSourceExhausted", err)
	}
	if src.resets != 1 {
		t.Errorf("resets = %d, want 1", src.resets)
	}
}

func TestProducer_RewindOnEOF(t *testing.T) {
	buf := newTestBuffer(t, 6)
	src := newScripted(1, 2)
	stats := NewStats()
	p := NewProducer(buf, src, &RestartFlag{}, stats, true, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := startProducer(ctx, p)

	testutil.WaitFor(t, "full buffer", func() bool { return buf.Len() == buf.Usable() })
	cancel()

	if err := waitErr(t, done); err != nil {
		t.Fatalf("Run() error = %v, want nil after cancel", err)
	}
	if got := values(buf); !equalValues(got, []int32{1, 2, 1, 2, 1}) {
		t.Errorf("buffer = %v, want [1 2 1 2 1]", got)
	}
	if got := stats.Snapshot().Rewinds; got != 2 {
		t.Errorf("Rewinds = %d, want 2", got)
	}
}

func TestProducer_RewindEmptySourceFails(t *testing.T) {
	buf := newTestBuffer(t, 4)
	src := newScripted()
	p := NewProducer(buf, src, &RestartFlag{}, NewStats(), true, nil)

	err := p.Run(context.Background())
	if !errors.Is(err, errors.ErrSourceExhausted) {
		t.Fatalf("Run() error = %v, want ErrSourceExhausted", err)
	}
	if src.resets != 1 {
		t.Errorf("resets = %d, want 1", src.resets)
	}
}

func TestProducer_StopsWhileBlocked(t *testing.T) {
	tests := []struct {
		name string
		stop func(cancel context.CancelFunc, buf *ring.Buffer[int32])
	}{
		{
			name: "context canceled",
			stop: func(cancel context.CancelFunc, _ *ring.Buffer[int32]) { cancel() },
		},
		{
			name: "buffer destroyed",
			stop: func(_ context.CancelFunc, buf *ring.Buffer[int32]) { buf.Destroy() },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := newTestBuffer(t, 2)
			p := NewProducer(buf, source.NewPRNG(1), &RestartFlag{}, NewStats(), false, nil)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			done := startProducer(ctx, p)

			testutil.WaitFor(t, "full buffer", func() bool { return buf.Len() == 1 })
			tt.stop(cancel, buf)

			if err := waitErr(t, done); err != nil {
				t.Errorf("Run() error = %v, want nil", err)
			}
		})
	}
}
