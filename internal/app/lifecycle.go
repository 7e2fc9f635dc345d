package app

import (
	"context"
	"sync"
	"time"

	"github.com/bft-labs/streamkeeper/internal/domain"
	"github.com/bft-labs/streamkeeper/pkg/log"
)

// ShutdownTimeout bounds how long Stop waits for an in-flight tick.
const ShutdownTimeout = 30 * time.Second

// State is the run state of the keeper daemon. It says whether ticks are
// being scheduled, not what the managed broadcast is doing.
type State int

const (
	// StateStopped: no ticks are scheduled. RunOnce and Reset still work.
	StateStopped State = iota
	// StateStarting: plugins are initializing; the startup tick has not run.
	StateStarting
	// StateRunning: the startup tick has been issued and the scheduler and
	// trigger loop are live.
	StateRunning
	// StateStopping: the run context is cancelled and an in-flight tick is
	// being waited for.
	StateStopping
	// StateCrashed: a plugin failed to initialize or a tick outlived
	// ShutdownTimeout. The daemon may be started again.
	StateCrashed
)

var stateNames = map[State]string{
	StateStopped:  "Stopped",
	StateStarting: "Starting",
	StateRunning:  "Running",
	StateStopping: "Stopping",
	StateCrashed:  "Crashed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "Unknown"
}

// idle reports whether the daemon has no worker and may be started.
func (s State) idle() bool {
	return s == StateStopped || s == StateCrashed
}

// transitions lists the states reachable from each state.
var transitions = map[State][]State{
	StateStopped:  {StateStarting},
	StateStarting: {StateRunning, StateStopping, StateCrashed},
	StateRunning:  {StateStopping, StateCrashed},
	StateStopping: {StateStopped, StateCrashed},
	StateCrashed:  {StateStarting},
}

func checkTransition(from, to State) error {
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	if from.idle() {
		return domain.ErrNotRunning
	}
	return domain.ErrAlreadyRunning
}

// EventEmitter receives every accepted state change.
type EventEmitter interface {
	OnStateChange(previous, current State, reason string)
}

// Lifecycle tracks the daemon's run state together with the cancel func and
// worker group that Stop drives.
type Lifecycle struct {
	mu      sync.RWMutex
	state   State
	cancel  context.CancelFunc
	workers sync.WaitGroup

	logger  log.Logger
	emitter EventEmitter
}

// NewLifecycle returns a Lifecycle in StateStopped. emitter may be nil.
func NewLifecycle(logger log.Logger, emitter EventEmitter) *Lifecycle {
	return &Lifecycle{state: StateStopped, logger: logger, emitter: emitter}
}

func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// TransitionTo moves to next, or returns ErrNotRunning / ErrAlreadyRunning
// and leaves the state unchanged if the move is not allowed. The emitter is
// called without the lock held.
func (l *Lifecycle) TransitionTo(next State, reason string) error {
	l.mu.Lock()
	prev := l.state
	if err := checkTransition(prev, next); err != nil {
		l.mu.Unlock()
		return err
	}
	l.state = next
	l.mu.Unlock()

	if l.emitter != nil {
		l.emitter.OnStateChange(prev, next, reason)
	}
	l.logger.Info("keeper state changed",
		log.String("from", prev.String()),
		log.String("to", next.String()),
		log.String("reason", reason),
	)
	return nil
}

func (l *Lifecycle) CanStart() bool {
	return l.State().idle()
}

func (l *Lifecycle) CanStop() bool {
	s := l.State()
	return s == StateStarting || s == StateRunning
}

// SetCancel stores the func that cancels the run context.
func (l *Lifecycle) SetCancel(cancel context.CancelFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cancel = cancel
}

// Cancel cancels the run context, if one was set.
func (l *Lifecycle) Cancel() {
	l.mu.RLock()
	cancel := l.cancel
	l.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
}

// Go runs fn on a tracked worker goroutine.
func (l *Lifecycle) Go(fn func()) {
	l.workers.Add(1)
	go func() {
		defer l.workers.Done()
		fn()
	}()
}

// Wait blocks until every worker started with Go has returned, or returns
// ErrShutdownTimeout after timeout. A timed-out tick is abandoned, not
// rolled back.
func (l *Lifecycle) Wait(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		l.workers.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		l.logger.Warn("shutdown timed out, abandoning in-flight tick", log.Duration("timeout", timeout))
		return domain.ErrShutdownTimeout
	}
}
