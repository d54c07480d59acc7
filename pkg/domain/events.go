package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStateChange EventType = "state_change"
	EventRetry       EventType = "retry"
	EventOperation   EventType = "operation"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// StateEvent is emitted on every lifecycle transition.
type StateEvent struct {
	EventBase
	From    State `json:"from"`
	To      State `json:"to"`
	Attempt int   `json:"attempt,omitempty"`
	Err     error `json:"-"` // Cause of the transition, if any
}

// RetryEvent is emitted each time the retry policy schedules another dial.
type RetryEvent struct {
	EventBase
	State   State         `json:"state"`
	Attempt int           `json:"attempt"`
	Delay   time.Duration `json:"delay"`
	Elapsed time.Duration `json:"elapsed"`
	Err     error         `json:"-"`
}

// OperationEvent is emitted when a data operation completes.
type OperationEvent struct {
	EventBase
	Op       string        `json:"op"`
	Key      string        `json:"key"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// LifecycleHooks defines callbacks for session observability.
// Every field is optional. Hooks run synchronously on the goroutine that
// produced the event and must not block.
type LifecycleHooks struct {
	OnStateChange func(context.Context, *StateEvent)
	OnRetry       func(context.Context, *RetryEvent)
	OnOperation   func(context.Context, *OperationEvent)
}
