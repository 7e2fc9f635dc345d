package streamkeeper

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/bft-labs/streamkeeper/internal/adapters/fs"
	"github.com/bft-labs/streamkeeper/internal/app"
	"github.com/bft-labs/streamkeeper/internal/domain"
	"github.com/bft-labs/streamkeeper/pkg/log"
)

// Sentinel errors re-exported for callers. Check with errors.Is.
var (
	ErrAlreadyRunning   = domain.ErrAlreadyRunning
	ErrNotRunning       = domain.ErrNotRunning
	ErrShutdownTimeout  = domain.ErrShutdownTimeout
	ErrInvalidConfig    = domain.ErrInvalidConfig
	ErrTickInProgress   = domain.ErrTickInProgress
	ErrNotFound         = domain.ErrNotFound
	ErrNotAuthenticated = domain.ErrNotAuthenticated
)

var errNoOutput = errors.New("no output controller configured")

// Streamkeeper keeps one managed livestream alive. Use New() to create an
// instance, then Start() to tick on a schedule or RunOnce() for a single pass.
type Streamkeeper struct {
	config    Config
	lifecycle *app.Lifecycle
	keeper    *app.Keeper
	stateRepo StateRepository
	clock     Clock
	logger    Logger
	emitter   *eventEmitterWrapper

	plugins []Plugin

	// trigger carries at most one pending tick request.
	trigger chan struct{}

	mu     sync.RWMutex
	cancel context.CancelFunc
	last   *TickEvent
}

// New creates a new Streamkeeper instance with the given configuration and
// broadcast provider. The instance is created in StateStopped.
func New(cfg Config, provider BroadcastProvider, opts ...Option) (*Streamkeeper, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, invalid("a broadcast provider is required")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	clock := o.clock
	if clock == nil {
		clock = app.RealClock()
	}

	stateRepo := o.stateRepo
	if stateRepo == nil {
		if cfg.StateDir == "" {
			return nil, invalid("StateDir is required")
		}
		stateRepo = fs.NewStateFileRepository(cfg.StateDir)
	}

	output := o.output
	if output == nil {
		output = manualOutput{}
	}

	emitter := &eventEmitterWrapper{handler: o.eventHandler}
	lifecycle := app.NewLifecycle(logger, emitter)

	keeper := app.NewKeeper(app.KeeperConfig{
		MaxLifespan:           cfg.MaxLifespan,
		ReadinessTimeout:      cfg.ReadinessTimeout,
		ReadinessPollInterval: cfg.ReadinessPollInterval,
		GoLiveMaxAttempts:     cfg.GoLiveMaxAttempts,
		GoLiveSettle:          delay(cfg.GoLiveSettle),
		RestartGap:            delay(cfg.RestartGap),
		Spec:                  cfg.Broadcast,
	}, stateRepo, provider, output, o.notifier, clock, logger)

	return &Streamkeeper{
		config:    cfg,
		lifecycle: lifecycle,
		keeper:    keeper,
		stateRepo: stateRepo,
		clock:     clock,
		logger:    logger,
		emitter:   emitter,
		plugins:   o.plugins,
		trigger:   make(chan struct{}, 1),
	}, nil
}

// Start runs a tick immediately and then every CheckInterval in the
// background. Returns an error if already running or if a plugin fails to
// initialize. The provided context bounds the lifetime of the daemon.
func (s *Streamkeeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}

	if err := s.lifecycle.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.lifecycle.SetCancel(cancel)

	pluginCfg := PluginConfig{
		StateDir:  s.config.StateDir,
		StateFile: s.stateFile(),
		Logger:    s.logger,
		Trigger:   s.Trigger,
	}
	for _, p := range s.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			s.logger.Error("plugin initialization failed",
				log.String("plugin", p.Name()),
				log.Err(err))
			cancel()
			_ = s.lifecycle.TransitionTo(app.StateCrashed, "plugin init failed: "+p.Name())
			return err
		}
		s.logger.Info("plugin initialized", log.String("plugin", p.Name()))
	}

	s.lifecycle.Go(func() {
		if err := s.lifecycle.TransitionTo(app.StateRunning, "keeper starting"); err != nil {
			s.logger.Error("failed to transition to running", log.Err(err))
			return
		}
		s.run(runCtx)
	})

	return nil
}

// run ticks at startup, on schedule and on trigger until ctx is done.
func (s *Streamkeeper) run(ctx context.Context) {
	s.logger.Info("keeper started",
		log.Duration("check_interval", s.config.CheckInterval),
		log.Float64("max_lifespan_hours", s.config.MaxLifespan.Hours()),
	)

	s.tick(ctx, "startup")

	sched := app.NewScheduler(s.config.CheckInterval, func() { s.tick(ctx, "schedule") }, s.logger)
	sched.Start()
	defer func() { <-sched.Stop().Done() }()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.trigger:
			s.tick(ctx, "trigger")
		}
	}
}

// Stop cancels the daemon and waits for an in-flight tick to return.
// Returns nil on graceful shutdown, ErrShutdownTimeout if forced.
func (s *Streamkeeper) Stop() error {
	s.mu.Lock()

	if !s.lifecycle.CanStop() {
		s.mu.Unlock()
		return domain.ErrNotRunning
	}

	if err := s.lifecycle.TransitionTo(app.StateStopping, "Stop() called"); err != nil {
		s.mu.Unlock()
		return err
	}

	if s.cancel != nil {
		s.cancel()
	}

	s.mu.Unlock()

	err := s.lifecycle.Wait(app.ShutdownTimeout)

	shutdownCtx := context.Background()
	for i := len(s.plugins) - 1; i >= 0; i-- {
		p := s.plugins[i]
		if shutdownErr := p.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error("plugin shutdown failed",
				log.String("plugin", p.Name()),
				log.Err(shutdownErr))
		} else {
			s.logger.Info("plugin shutdown complete", log.String("plugin", p.Name()))
		}
	}

	if err != nil {
		_ = s.lifecycle.TransitionTo(app.StateCrashed, "shutdown timeout")
	} else {
		_ = s.lifecycle.TransitionTo(app.StateStopped, "graceful shutdown")
	}

	return err
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (s *Streamkeeper) Status() State {
	return convertState(s.lifecycle.State())
}

// RunOnce performs a single tick and returns its outcome. It does not need
// Start and returns ErrTickInProgress if the daemon is mid-tick.
func (s *Streamkeeper) RunOnce(ctx context.Context) (TickResult, error) {
	return s.tick(ctx, "once")
}

// Trigger requests an immediate tick from the running daemon. It never
// blocks; a request made while one is already pending is dropped.
func (s *Streamkeeper) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Record returns the persisted record, or nil if no broadcast is managed.
func (s *Streamkeeper) Record(ctx context.Context) (*Record, error) {
	return s.stateRepo.Load(ctx)
}

// LastTick returns the most recent tick event, or nil before the first tick.
func (s *Streamkeeper) LastTick() *TickEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return nil
	}
	ev := *s.last
	return &ev
}

// MaxLifespan returns the configured rotation age.
func (s *Streamkeeper) MaxLifespan() time.Duration {
	return s.config.MaxLifespan
}

// Now returns the keeper's clock reading.
func (s *Streamkeeper) Now() time.Time {
	return s.clock.Now()
}

// Reset forgets the managed broadcast. With end set, the broadcast is ended
// at the provider first; a failure to end it aborts the reset. Reset returns
// ErrTickInProgress while a tick is running.
func (s *Streamkeeper) Reset(ctx context.Context, end bool) (*Record, error) {
	return s.keeper.Reset(ctx, end)
}

func (s *Streamkeeper) tick(ctx context.Context, reason string) (TickResult, error) {
	at := s.clock.Now()
	start := time.Now()
	res, err := s.keeper.Tick(ctx)

	if errors.Is(err, domain.ErrTickInProgress) {
		s.logger.Warn("tick skipped, previous tick still running", log.String("reason", reason))
		s.emitter.onTick(TickEvent{Reason: reason, At: at, Skipped: true})
		return res, err
	}

	ev := TickEvent{
		Reason:    reason,
		At:        at,
		Action:    res.Action,
		Duration:  time.Since(start),
		Live:      res.Live,
		VerifyErr: res.VerifyErr,
		Err:       err,
	}
	if res.Previous != nil {
		ev.PreviousID = res.Previous.ResourceID
	}
	if res.Record != nil {
		ev.ResourceID = res.Record.ResourceID
	}

	if err != nil {
		var corrupt *domain.CorruptStateError
		if errors.As(err, &corrupt) {
			s.logger.Error("state file is unreadable, fix or remove it to resume",
				log.String("path", corrupt.Path),
				log.Err(err))
		} else {
			s.logger.Error("tick failed",
				log.String("action", res.Action.String()),
				log.Err(err))
		}
	}

	s.mu.Lock()
	s.last = &ev
	s.mu.Unlock()

	s.emitter.onTick(ev)
	return res, err
}

func (s *Streamkeeper) stateFile() string {
	if s.config.StateDir == "" {
		return ""
	}
	return filepath.Join(s.config.StateDir, fs.StateFileName)
}

// manualOutput stands in when no encoder is configured.
type manualOutput struct{}

func (manualOutput) Connect(context.Context) error                { return errNoOutput }
func (manualOutput) Disconnect(context.Context) error             { return nil }
func (manualOutput) IsOutputActive(context.Context) (bool, error) { return false, errNoOutput }
func (manualOutput) Start(context.Context) error                  { return errNoOutput }
func (manualOutput) Stop(context.Context) error                   { return errNoOutput }

// eventEmitterWrapper adapts EventHandler to the internal emitter interface.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func (e *eventEmitterWrapper) onTick(ev TickEvent) {
	if e.handler == nil {
		return
	}
	e.handler.OnTick(ev)
}
