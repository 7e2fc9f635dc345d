package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors. Check with errors.Is.
var (
	// ErrNotFound is returned by providers when a broadcast does not exist.
	ErrNotFound = errors.New("streamkeeper: resource not found")

	// ErrTickInProgress is returned when a tick is requested while another runs.
	ErrTickInProgress = errors.New("streamkeeper: tick already in progress")

	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("streamkeeper: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("streamkeeper: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("streamkeeper: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("streamkeeper: invalid configuration")

	// ErrNotAuthenticated is returned when no provider credentials are stored.
	ErrNotAuthenticated = errors.New("streamkeeper: not authenticated")
)

// CorruptStateError reports a state file that exists but cannot be parsed.
// It is never treated as an absent record.
type CorruptStateError struct {
	Path string
	Err  error
}

func (e *CorruptStateError) Error() string {
	return fmt.Sprintf("corrupt state file %s: %v", e.Path, e.Err)
}

func (e *CorruptStateError) Unwrap() error { return e.Err }

// QueryError is a transient failure to read a broadcast's lifecycle state.
type QueryError struct {
	ResourceID string
	Err        error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query state of %s: %v", e.ResourceID, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// TimeoutError reports a broadcast that did not become ingest-ready in time.
type TimeoutError struct {
	ResourceID string
	Timeout    time.Duration
	LastState  LifecycleState
}

func (e *TimeoutError) Error() string {
	last := string(e.LastState)
	if last == "" {
		last = "unknown"
	}
	return fmt.Sprintf("broadcast %s not ready after %s (last state %s)", e.ResourceID, e.Timeout, last)
}

// VerificationFailedError reports that go-live attempts were exhausted. It is
// non-fatal: the record stays persisted.
type VerificationFailedError struct {
	ResourceID string
	Attempts   int
	LastState  LifecycleState
}

func (e *VerificationFailedError) Error() string {
	return fmt.Sprintf("broadcast %s not live after %d attempts (last state %s)", e.ResourceID, e.Attempts, e.LastState)
}

// EndResourceError reports a failed attempt to end a broadcast during rotation.
type EndResourceError struct {
	ResourceID string
	Err        error
}

func (e *EndResourceError) Error() string {
	return fmt.Sprintf("end broadcast %s: %v", e.ResourceID, e.Err)
}

func (e *EndResourceError) Unwrap() error { return e.Err }
