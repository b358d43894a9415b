// Package event provides a small synchronous pub-sub bus for pipeline
// lifecycle notifications.
//
// The controller publishes an event for every state transition, every
// shutdown and restart request, and every task failure. Subscribers such as
// the CLI and tests observe the run without reaching into the controller.
//
// # Main Types
//
//   - [Event]: interface implemented by all events (EventType, Timestamp)
//   - [Bus]: thread-safe dispatcher; handlers run on the publishing goroutine
//   - [Handler]: func(Event)
//
// # Events
//
//   - [StateChangedEvent] ("pipeline.state")
//   - [ShutdownRequestedEvent] ("pipeline.shutdown_requested")
//   - [RestartRequestedEvent] ("pipeline.restart_requested")
//   - [TaskFailedEvent] ("pipeline.task_failed")
//
// Handlers must not block: Publish is called from signal and UI callbacks.
// A handler that panics is recovered and logged, and delivery continues.
package event
