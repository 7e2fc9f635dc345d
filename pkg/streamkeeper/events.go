package streamkeeper

import "time"

// EventHandler receives notifications about keeper operations. Methods are
// called synchronously from the tick goroutine and should return quickly.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
	OnTick(event TickEvent)
}

// BaseEventHandler implements EventHandler with no-ops. Embed it to handle
// only some events.
type BaseEventHandler struct{}

// OnStateChange does nothing.
func (BaseEventHandler) OnStateChange(StateChangeEvent) {}

// OnTick does nothing.
func (BaseEventHandler) OnTick(TickEvent) {}

// StateChangeEvent reports a run state transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// TickEvent reports a finished or skipped tick.
type TickEvent struct {
	// Reason is what requested the tick: "startup", "schedule", "trigger"
	// or "once".
	Reason string

	// At is when the tick began, by the keeper's clock.
	At time.Time

	// Skipped is set when another tick held the guard.
	Skipped bool

	Action   Action
	Duration time.Duration

	// PreviousID is the managed broadcast before the tick, if any.
	PreviousID string

	// ResourceID is the managed broadcast after the tick, if any.
	ResourceID string

	// Live reports confirmed go-live of a newly created broadcast.
	Live bool

	// VerifyErr is the non-fatal go-live failure, if any.
	VerifyErr error

	// Err is the error that failed the tick.
	Err error
}
