package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a "category.action" identifier.
	EventType() string
	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event types published by the pipeline.
const (
	TypeStateChanged      = "pipeline.state"
	TypeShutdownRequested = "pipeline.shutdown_requested"
	TypeRestartRequested  = "pipeline.restart_requested"
	TypeTaskFailed        = "pipeline.task_failed"
)

// baseEvent provides common fields for all events.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// StateChangedEvent is emitted when the controller moves to a new state.
type StateChangedEvent struct {
	baseEvent
	From string
	To   string
}

// NewStateChangedEvent creates a StateChangedEvent.
func NewStateChangedEvent(from, to string) StateChangedEvent {
	return StateChangedEvent{
		baseEvent: newBaseEvent(TypeStateChanged),
		From:      from,
		To:        to,
	}
}

// ShutdownRequestedEvent is emitted once, for the first shutdown request.
type ShutdownRequestedEvent struct {
	baseEvent
	Reason string
}

// NewShutdownRequestedEvent creates a ShutdownRequestedEvent.
func NewShutdownRequestedEvent(reason string) ShutdownRequestedEvent {
	return ShutdownRequestedEvent{
		baseEvent: newBaseEvent(TypeShutdownRequested),
		Reason:    reason,
	}
}

// RestartRequestedEvent is emitted for every restart request, including ones
// that collapse into a single rewind.
type RestartRequestedEvent struct {
	baseEvent
}

// NewRestartRequestedEvent creates a RestartRequestedEvent.
func NewRestartRequestedEvent() RestartRequestedEvent {
	return RestartRequestedEvent{baseEvent: newBaseEvent(TypeRestartRequested)}
}

// TaskFailedEvent is emitted when the producer or consumer stops with an
// error or panic.
type TaskFailedEvent struct {
	baseEvent
	Task string
	Err  error
}

// NewTaskFailedEvent creates a TaskFailedEvent.
func NewTaskFailedEvent(task string, err error) TaskFailedEvent {
	return TaskFailedEvent{
		baseEvent: newBaseEvent(TypeTaskFailed),
		Task:      task,
		Err:       err,
	}
}
