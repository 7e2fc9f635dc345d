package streamkeeper_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/streamkeeper/pkg/log"
	"github.com/bft-labs/streamkeeper/pkg/streamkeeper"
)

// =============================================================================
// Test Utilities
// =============================================================================

// testLogger implements streamkeeper.Logger for capturing log output in tests.
type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func newTestLogger() *testLogger {
	return &testLogger{messages: make([]string, 0)}
}

func (l *testLogger) Debug(msg string, fields ...log.Field) { l.log("DEBUG", msg) }
func (l *testLogger) Info(msg string, fields ...log.Field)  { l.log("INFO", msg) }
func (l *testLogger) Warn(msg string, fields ...log.Field)  { l.log("WARN", msg) }
func (l *testLogger) Error(msg string, fields ...log.Field) { l.log("ERROR", msg) }

func (l *testLogger) log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("[%s] %s", level, msg))
}

func (l *testLogger) Messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := make([]string, len(l.messages))
	copy(cp, l.messages)
	return cp
}

// stepClock never blocks: Sleep advances the reading instead.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.Advance(d)
	return nil
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// liveProvider creates broadcasts that are live as soon as they exist.
// The hooks, when set, run before the call takes effect.
type liveProvider struct {
	mu      sync.Mutex
	next    int
	created []string
	ended   []string
	state   map[string]streamkeeper.Broadcast

	createHook func()
	endHook    func(id string)
}

func newLiveProvider() *liveProvider {
	return &liveProvider{state: make(map[string]streamkeeper.Broadcast)}
}

func (p *liveProvider) Create(ctx context.Context, spec streamkeeper.BroadcastSpec) (streamkeeper.Broadcast, error) {
	if p.createHook != nil {
		p.createHook()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.next++
	id := fmt.Sprintf("b%d", p.next)
	b := streamkeeper.Broadcast{
		ResourceID:   id,
		Title:        spec.Title,
		IngestionKey: "abcd-efgh-ijkl-" + id,
		IngestionURL: "rtmp://ingest.example/live2",
		ViewURL:      "https://view.example/" + id,
	}
	p.created = append(p.created, id)
	p.state[id] = b
	return b, nil
}

func (p *liveProvider) LifecycleState(ctx context.Context, id string) (streamkeeper.LifecycleState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.state[id]; !ok {
		return "", streamkeeper.ErrNotFound
	}
	return streamkeeper.LifecycleLive, nil
}

func (p *liveProvider) End(ctx context.Context, id string) error {
	if p.endHook != nil {
		p.endHook(id)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ended = append(p.ended, id)
	delete(p.state, id)
	return nil
}

func (p *liveProvider) Created() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.created...)
}

func (p *liveProvider) Ended() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.ended...)
}

// idleOutput is an encoder that accepts every command.
type idleOutput struct {
	mu     sync.Mutex
	active bool
	starts int
}

func (o *idleOutput) Connect(context.Context) error    { return nil }
func (o *idleOutput) Disconnect(context.Context) error { return nil }

func (o *idleOutput) IsOutputActive(context.Context) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active, nil
}

func (o *idleOutput) Start(context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.active = true
	o.starts++
	return nil
}

func (o *idleOutput) Stop(context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.active = false
	return nil
}

// eventTracker records every event.
type eventTracker struct {
	streamkeeper.BaseEventHandler
	mu           sync.Mutex
	stateChanges []streamkeeper.StateChangeEvent
	ticks        []streamkeeper.TickEvent
}

func (e *eventTracker) OnStateChange(event streamkeeper.StateChangeEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stateChanges = append(e.stateChanges, event)
}

func (e *eventTracker) OnTick(event streamkeeper.TickEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ticks = append(e.ticks, event)
}

func (e *eventTracker) StateChanges() []streamkeeper.StateChangeEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]streamkeeper.StateChangeEvent(nil), e.stateChanges...)
}

func (e *eventTracker) Ticks() []streamkeeper.TickEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]streamkeeper.TickEvent(nil), e.ticks...)
}

// createTestConfig creates a minimal valid config for testing.
func createTestConfig(t *testing.T) streamkeeper.Config {
	t.Helper()
	return streamkeeper.Config{
		StateDir:      t.TempDir(),
		MaxLifespan:   11 * time.Hour,
		CheckInterval: time.Hour,
		Broadcast:     streamkeeper.BroadcastSpec{Title: "Lobby Cam"},
	}
}
