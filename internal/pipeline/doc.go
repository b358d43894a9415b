// Package pipeline runs the producer and consumer around a shared ring buffer
// and owns their lifecycle.
//
// # Tasks
//
// The [Producer] reads samples from a source.Source and pushes them into the
// buffer, blocking while it is full. The [Consumer] snapshots the buffer once
// per frame, maps every occupied slot to a colored block and hands the blocks
// to a render.Renderer.
//
// # Lifecycle
//
// A [Controller] moves through Initializing, Running, ShuttingDown and
// Terminated. Any of these stops a running pipeline:
//   - the parent context ends
//   - SIGINT or SIGTERM
//   - the renderer reports a quit request
//   - either task returns an error or panics
//
// Signal handlers and UI callbacks only set flags; teardown itself runs once,
// on the goroutine that called [Controller.Run]: cancel the tasks, wait for
// them up to the shutdown timeout, destroy the buffer, shut the renderer down
// and close the source.
//
// SIGHUP, the renderer's restart key and source file changes call
// [Controller.RequestRestart]; the producer rewinds its source before the
// next read.
package pipeline
