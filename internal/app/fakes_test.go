package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bft-labs/streamkeeper/internal/domain"
	"github.com/bft-labs/streamkeeper/pkg/log"
)

// fakeClock advances only when Sleep is called.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
	return nil
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration{}, c.sleeps...)
}

// memStore is an in-memory StateRepository.
type memStore struct {
	mu      sync.Mutex
	record  *domain.Record
	loadErr error
	saveErr error
	saves   int
	clears  int
}

func (s *memStore) Load(ctx context.Context) (*domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if s.record == nil {
		return nil, nil
	}
	r := *s.record
	return &r, nil
}

func (s *memStore) Save(ctx context.Context, r domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.record = &r
	return nil
}

func (s *memStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clears++
	s.record = nil
	s.loadErr = nil
	return nil
}

func (s *memStore) current() *domain.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record
}

// stateStep is one scripted LifecycleState answer.
type stateStep struct {
	state domain.LifecycleState
	err   error
}

// fakeProvider hands out scripted IDs and lifecycle states.
type fakeProvider struct {
	mu sync.Mutex

	ids        []string
	createErr  error
	createHook func()
	endHook    func(id string)

	// script is consumed per query; once exhausted the fallback applies.
	script   map[string][]stateStep
	fallback map[string]domain.LifecycleState

	created []domain.CreateSpec
	queries map[string]int
	ended   []string
	endErr  error
}

func newFakeProvider(ids ...string) *fakeProvider {
	return &fakeProvider{
		ids:      ids,
		script:   map[string][]stateStep{},
		fallback: map[string]domain.LifecycleState{},
		queries:  map[string]int{},
	}
}

func (p *fakeProvider) Create(ctx context.Context, spec domain.CreateSpec) (domain.Broadcast, error) {
	if p.createHook != nil {
		p.createHook()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.createErr != nil {
		return domain.Broadcast{}, p.createErr
	}
	if len(p.ids) == 0 {
		return domain.Broadcast{}, fmt.Errorf("no more ids")
	}
	id := p.ids[0]
	p.ids = p.ids[1:]
	p.created = append(p.created, spec)
	if _, ok := p.fallback[id]; !ok {
		p.fallback[id] = domain.StateReady
	}
	return domain.Broadcast{
		ResourceID:   id,
		Title:        spec.Title,
		IngestionKey: "key-" + id,
		IngestionURL: "rtmp://ingest.example/live2",
		ViewURL:      "https://view.example/" + id,
	}, nil
}

func (p *fakeProvider) LifecycleState(ctx context.Context, id string) (domain.LifecycleState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queries[id]++
	if steps := p.script[id]; len(steps) > 0 {
		p.script[id] = steps[1:]
		return steps[0].state, steps[0].err
	}
	s, ok := p.fallback[id]
	if !ok {
		return "", domain.ErrNotFound
	}
	return s, nil
}

func (p *fakeProvider) End(ctx context.Context, id string) error {
	if p.endHook != nil {
		p.endHook(id)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ended = append(p.ended, id)
	if p.endErr != nil {
		return p.endErr
	}
	p.fallback[id] = domain.StateComplete
	return nil
}

func (p *fakeProvider) setFallback(id string, s domain.LifecycleState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fallback[id] = s
}

func (p *fakeProvider) Ended() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string{}, p.ended...)
}

func (p *fakeProvider) queryCount(id string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queries[id]
}

// fakeOutput records encoder calls in order.
type fakeOutput struct {
	mu         sync.Mutex
	active     bool
	connectErr error
	startErr   error
	calls      []string

	// onStart runs after every successful Start.
	onStart func()
}

func (o *fakeOutput) record(call string) {
	o.calls = append(o.calls, call)
}

func (o *fakeOutput) Connect(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.record("connect")
	return o.connectErr
}

func (o *fakeOutput) Disconnect(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.record("disconnect")
	return nil
}

func (o *fakeOutput) IsOutputActive(ctx context.Context) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.record("status")
	return o.active, nil
}

func (o *fakeOutput) Start(ctx context.Context) error {
	o.mu.Lock()
	o.record("start")
	if o.startErr != nil {
		o.mu.Unlock()
		return o.startErr
	}
	o.active = true
	hook := o.onStart
	o.mu.Unlock()
	if hook != nil {
		hook()
	}
	return nil
}

func (o *fakeOutput) Stop(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.record("stop")
	o.active = false
	return nil
}

func (o *fakeOutput) Calls() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string{}, o.calls...)
}

func (o *fakeOutput) count(call string) int {
	n := 0
	for _, c := range o.Calls() {
		if c == call {
			n++
		}
	}
	return n
}

// configuringOutput additionally implements ports.IngestConfigurer.
type configuringOutput struct {
	*fakeOutput
	configured []domain.Broadcast
}

func (o *configuringOutput) ConfigureIngest(ctx context.Context, b domain.Broadcast) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.record("configure")
	o.configured = append(o.configured, b)
	return nil
}

// fakeNotifier records notifications.
type fakeNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
	err  error
}

func (n *fakeNotifier) Notify(ctx context.Context, msg domain.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return n.err
}

func (n *fakeNotifier) Sent() []domain.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.Notification{}, n.sent...)
}

// recordingLogger keeps warn messages for assertions.
type recordingLogger struct {
	log.NoopLogger
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) Warn(msg string, fields ...log.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *recordingLogger) Warns() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string{}, l.warns...)
}
