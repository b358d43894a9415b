// Package render draws buffer snapshots as a grid of colored blocks.
//
// The consumer drives a Renderer once per frame: DrawRectangle for every
// occupied slot, then PresentFrame. Two implementations are provided: a
// bubbletea program for interactive terminals and a headless renderer that
// only counts what it is given.
package render

import (
	"context"
	"time"
)

// Renderer is the consumer's view of the display.
type Renderer interface {
	// PollQuitRequested reports whether the user asked to quit. It never blocks.
	PollQuitRequested() bool
	// DrawRectangle stages r for the next frame. Rectangles outside the
	// surface are dropped.
	DrawRectangle(r Rect)
	// PresentFrame publishes the staged rectangles and starts a new frame.
	// It returns early with ctx.Err() if ctx ends first.
	PresentFrame(ctx context.Context) error
	// Shutdown stops the renderer and restores the display. It is safe to
	// call more than once.
	Shutdown() error
}

// Status is the run summary shown alongside the grid.
type Status struct {
	Occupancy int
	Usable    int
	Pushed    uint64
	Skipped   uint64
	Restarts  uint64
	Frames    uint64
	Source    string
	Uptime    time.Duration
}

// StatusSetter is implemented by renderers that can display a Status.
type StatusSetter interface {
	SetStatus(Status)
}
