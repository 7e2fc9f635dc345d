package app

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/streamkeeper/internal/domain"
	"github.com/bft-labs/streamkeeper/pkg/log"
)

// mockEmitter tracks state change events for testing.
type mockEmitter struct {
	mu     sync.Mutex
	events []stateChangeEvent
}

type stateChangeEvent struct {
	previous State
	current  State
	reason   string
}

func (m *mockEmitter) OnStateChange(previous, current State, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, stateChangeEvent{previous, current, reason})
}

func (m *mockEmitter) Events() []stateChangeEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]stateChangeEvent{}, m.events...)
}

func TestNewLifecycle(t *testing.T) {
	l := NewLifecycle(log.NewNoopLogger(), nil)
	require.NotNil(t, l)
	assert.Equal(t, StateStopped, l.State())
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateStopped, "Stopped"},
		{StateStarting, "Starting"},
		{StateRunning, "Running"},
		{StateStopping, "Stopping"},
		{StateCrashed, "Crashed"},
		{State(99), "Unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.String())
	}
}

func TestLifecycle_TransitionTo_ValidTransitions(t *testing.T) {
	tests := []struct {
		name string
		from State
		to   State
	}{
		{"stopped to starting", StateStopped, StateStarting},
		{"starting to running", StateStarting, StateRunning},
		{"starting to stopping", StateStarting, StateStopping},
		{"starting to crashed", StateStarting, StateCrashed},
		{"running to stopping", StateRunning, StateStopping},
		{"running to crashed", StateRunning, StateCrashed},
		{"stopping to stopped", StateStopping, StateStopped},
		{"stopping to crashed", StateStopping, StateCrashed},
		{"crashed to starting", StateCrashed, StateStarting},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLifecycle(log.NewNoopLogger(), nil)
			l.state = tt.from

			require.NoError(t, l.TransitionTo(tt.to, "test"))
			assert.Equal(t, tt.to, l.State())
		})
	}
}

func TestLifecycle_TransitionTo_InvalidTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    State
		to      State
		wantErr error
	}{
		{"stopped to running", StateStopped, StateRunning, domain.ErrNotRunning},
		{"stopped to stopping", StateStopped, StateStopping, domain.ErrNotRunning},
		{"starting to stopped", StateStarting, StateStopped, domain.ErrAlreadyRunning},
		{"running to starting", StateRunning, StateStarting, domain.ErrAlreadyRunning},
		{"running to stopped", StateRunning, StateStopped, domain.ErrAlreadyRunning},
		{"stopping to running", StateStopping, StateRunning, domain.ErrAlreadyRunning},
		{"stopping to starting", StateStopping, StateStarting, domain.ErrAlreadyRunning},
		{"crashed to running", StateCrashed, StateRunning, domain.ErrNotRunning},
		{"crashed to stopped", StateCrashed, StateStopped, domain.ErrNotRunning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLifecycle(log.NewNoopLogger(), nil)
			l.state = tt.from

			err := l.TransitionTo(tt.to, "test")
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.from, l.State(), "state must not change on invalid transition")
		})
	}
}

func TestLifecycle_TransitionTo_EmitsEvents(t *testing.T) {
	emitter := &mockEmitter{}
	l := NewLifecycle(log.NewNoopLogger(), emitter)

	require.NoError(t, l.TransitionTo(StateStarting, "start test"))
	require.NoError(t, l.TransitionTo(StateRunning, "running test"))

	events := emitter.Events()
	require.Len(t, events, 2)
	assert.Equal(t, stateChangeEvent{StateStopped, StateStarting, "start test"}, events[0])
	assert.Equal(t, stateChangeEvent{StateStarting, StateRunning, "running test"}, events[1])
}

func TestLifecycle_CanStartCanStop(t *testing.T) {
	tests := []struct {
		state    State
		canStart bool
		canStop  bool
	}{
		{StateStopped, true, false},
		{StateStarting, false, true},
		{StateRunning, false, true},
		{StateStopping, false, false},
		{StateCrashed, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			l := NewLifecycle(log.NewNoopLogger(), nil)
			l.state = tt.state

			assert.Equal(t, tt.canStart, l.CanStart())
			assert.Equal(t, tt.canStop, l.CanStop())
		})
	}
}

func TestLifecycle_SetCancel_And_Cancel(t *testing.T) {
	l := NewLifecycle(log.NewNoopLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	l.SetCancel(cancel)
	require.NoError(t, ctx.Err())

	l.Cancel()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestLifecycle_Cancel_NilSafe(t *testing.T) {
	l := NewLifecycle(log.NewNoopLogger(), nil)
	assert.NotPanics(t, l.Cancel)
}

func TestLifecycle_Wait_WorkersFinish(t *testing.T) {
	l := NewLifecycle(log.NewNoopLogger(), nil)
	var ran atomic.Bool
	l.Go(func() {
		time.Sleep(10 * time.Millisecond)
		ran.Store(true)
	})

	require.NoError(t, l.Wait(time.Second))
	assert.True(t, ran.Load())
}

func TestLifecycle_Wait_Timeout(t *testing.T) {
	l := NewLifecycle(log.NewNoopLogger(), nil)
	release := make(chan struct{})
	defer close(release)
	l.Go(func() { <-release })

	assert.ErrorIs(t, l.Wait(10*time.Millisecond), domain.ErrShutdownTimeout)
}

func TestLifecycle_Wait_NoWorkers(t *testing.T) {
	l := NewLifecycle(log.NewNoopLogger(), nil)
	assert.NoError(t, l.Wait(time.Millisecond))
}

func TestLifecycle_Concurrency(t *testing.T) {
	l := NewLifecycle(log.NewNoopLogger(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = l.State()
				_ = l.CanStart()
				_ = l.CanStop()
			}
		}()
	}
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.TransitionTo(StateStarting, "test")
			_ = l.TransitionTo(StateRunning, "test")
		}()
	}
	wg.Wait()

	assert.Equal(t, StateRunning, l.State())
}
