package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bft-labs/streamkeeper/internal/domain"
	"github.com/bft-labs/streamkeeper/internal/ports"
	"github.com/bft-labs/streamkeeper/pkg/log"
)

// Action is the decision taken for one tick.
type Action int

const (
	ActionNoOp Action = iota
	ActionCreate
	ActionRotate
)

// String returns a human-readable representation of the action.
func (a Action) String() string {
	switch a {
	case ActionNoOp:
		return "noop"
	case ActionCreate:
		return "create"
	case ActionRotate:
		return "rotate"
	default:
		return "unknown"
	}
}

// Evaluate decides what a tick must do with the current record.
func Evaluate(record *domain.Record, now time.Time, maxLifespan time.Duration) Action {
	if record == nil {
		return ActionCreate
	}
	if record.Age(now) > maxLifespan {
		return ActionRotate
	}
	return ActionNoOp
}

// KeeperConfig contains the bounds and broadcast spec for the keeper.
type KeeperConfig struct {
	MaxLifespan time.Duration

	ReadinessTimeout      time.Duration
	ReadinessPollInterval time.Duration

	GoLiveMaxAttempts int
	GoLiveSettle      time.Duration
	RestartGap        time.Duration

	Spec domain.CreateSpec
}

// TickResult describes what a tick did.
type TickResult struct {
	Action Action

	// Previous is the record found at the start of the tick.
	Previous *domain.Record

	// Record is the record in effect after the tick.
	Record *domain.Record

	// Broadcast is set when the tick provisioned a new broadcast.
	Broadcast *domain.Broadcast

	// Live reports whether go-live was confirmed.
	Live bool

	// VerifyErr holds the non-fatal go-live failure, if any.
	VerifyErr error
}

var errEncoderUnavailable = errors.New("encoder unavailable")

// Keeper is the lifecycle controller. Each Tick evaluates the persisted
// record and creates, rotates or leaves the managed broadcast alone.
type Keeper struct {
	cfg      KeeperConfig
	store    ports.StateRepository
	provider ports.BroadcastProvider
	output   ports.OutputController
	notifier ports.Notifier
	clock    Clock
	logger   log.Logger

	poller   *ReadinessPoller
	verifier *GoLiveVerifier

	// guard keeps ticks from overlapping.
	guard sync.Mutex
}

// NewKeeper creates a keeper with the given collaborators.
func NewKeeper(
	cfg KeeperConfig,
	store ports.StateRepository,
	provider ports.BroadcastProvider,
	output ports.OutputController,
	notifier ports.Notifier,
	clock Clock,
	logger log.Logger,
) *Keeper {
	return &Keeper{
		cfg:      cfg,
		store:    store,
		provider: provider,
		output:   output,
		notifier: notifier,
		clock:    clock,
		logger:   logger,
		poller:   NewReadinessPoller(provider, clock, logger),
		verifier: NewGoLiveVerifier(provider, output, clock, logger, cfg.RestartGap),
	}
}

// Tick runs one evaluation-and-action pass. It returns ErrTickInProgress
// without doing anything if another tick is still running. On error the
// persisted record is left as it was.
func (k *Keeper) Tick(ctx context.Context) (TickResult, error) {
	if !k.guard.TryLock() {
		return TickResult{}, domain.ErrTickInProgress
	}
	defer k.guard.Unlock()

	record, err := k.store.Load(ctx)
	if err != nil {
		return TickResult{}, fmt.Errorf("load state: %w", err)
	}

	now := k.clock.Now()
	action := Evaluate(record, now, k.cfg.MaxLifespan)
	result := TickResult{Action: action, Previous: record}

	if record == nil {
		k.logger.Info("no managed broadcast found")
	} else {
		k.logger.Info("checked managed broadcast",
			log.String("resource_id", record.ResourceID),
			log.Float64("age_hours", record.Age(now).Hours()),
			log.Float64("max_hours", k.cfg.MaxLifespan.Hours()),
		)
	}

	switch action {
	case ActionNoOp:
		result.Record = record
		return result, nil
	case ActionRotate:
		k.logger.Info("broadcast exceeded its lifespan, rotating", log.String("resource_id", record.ResourceID))
		k.end(ctx, record.ResourceID)
	}

	return k.create(ctx, result)
}

// create provisions a broadcast, waits for readiness, records it and then
// makes a best-effort attempt to take it live and announce it.
func (k *Keeper) create(ctx context.Context, result TickResult) (TickResult, error) {
	k.logger.Info("creating broadcast", log.String("title", k.cfg.Spec.Title))

	b, err := k.provider.Create(ctx, k.cfg.Spec)
	if err != nil {
		return result, fmt.Errorf("create broadcast: %w", err)
	}
	createdAt := k.clock.Now()

	k.logger.Info("broadcast created",
		log.String("resource_id", b.ResourceID),
		log.String("view_url", b.ViewURL),
		log.String("ingestion_key", domain.MaskKey(b.IngestionKey)),
	)

	if err := k.poller.WaitUntilReady(ctx, b.ResourceID, k.cfg.ReadinessTimeout, k.cfg.ReadinessPollInterval); err != nil {
		k.discard(ctx, b.ResourceID)
		return result, fmt.Errorf("wait for broadcast %s: %w", b.ResourceID, err)
	}

	record := domain.NewRecord(b.ResourceID, createdAt)
	if err := k.store.Save(ctx, record); err != nil {
		k.discard(ctx, b.ResourceID)
		return result, fmt.Errorf("save state: %w", err)
	}
	result.Record = &record
	result.Broadcast = &b

	connected := k.connect(ctx, b)
	if connected {
		result.Live, result.VerifyErr = k.goLive(ctx, b.ResourceID)
	} else {
		result.VerifyErr = errEncoderUnavailable
	}

	k.notify(ctx, b)

	if connected {
		if err := k.output.Disconnect(context.WithoutCancel(ctx)); err != nil {
			k.logger.Warn("failed to disconnect from encoder", log.Err(err))
		}
	}

	return result, nil
}

func (k *Keeper) connect(ctx context.Context, b domain.Broadcast) bool {
	if err := k.output.Connect(ctx); err != nil {
		k.logger.Warn("could not connect to encoder, start the stream manually", log.Err(err))
		return false
	}

	if c, ok := k.output.(ports.IngestConfigurer); ok {
		if err := c.ConfigureIngest(ctx, b); err != nil {
			k.logger.Warn("could not point encoder at the new ingestion endpoint", log.Err(err))
		}
	}
	return true
}

func (k *Keeper) goLive(ctx context.Context, resourceID string) (bool, error) {
	err := k.verifier.EnsureLive(ctx, resourceID, k.cfg.GoLiveMaxAttempts, k.cfg.GoLiveSettle)
	if err != nil {
		k.logger.Warn("broadcast did not go live, check the encoder and provider manually",
			log.String("resource_id", resourceID),
			log.Err(err),
		)
		return false, err
	}
	return true, nil
}

func (k *Keeper) notify(ctx context.Context, b domain.Broadcast) {
	if k.notifier == nil {
		return
	}
	if err := k.notifier.Notify(ctx, domain.NotificationFor(b)); err != nil {
		k.logger.Warn("failed to send notification", log.Err(err))
		return
	}
	k.logger.Info("notification sent", log.String("resource_id", b.ResourceID))
}

// end retires a broadcast during rotation. Failures are logged only; the old
// broadcast may already be gone.
func (k *Keeper) end(ctx context.Context, resourceID string) {
	if err := k.provider.End(ctx, resourceID); err != nil {
		k.logger.Warn("failed to end broadcast, it may have been ended manually",
			log.Err(&domain.EndResourceError{ResourceID: resourceID, Err: err}),
		)
		return
	}
	k.logger.Info("ended broadcast", log.String("resource_id", resourceID))
}

// discard ends a broadcast this tick created but could not keep track of.
func (k *Keeper) discard(ctx context.Context, resourceID string) {
	if err := k.provider.End(context.WithoutCancel(ctx), resourceID); err != nil {
		k.logger.Warn("failed to discard untracked broadcast",
			log.Err(&domain.EndResourceError{ResourceID: resourceID, Err: err}),
		)
	}
}

// Reset forgets the managed broadcast, ending it at the provider first when
// end is set. It shares the tick guard and returns ErrTickInProgress rather
// than clear a record a running tick may be replacing. A failure to end the
// broadcast leaves the record in place.
func (k *Keeper) Reset(ctx context.Context, end bool) (*domain.Record, error) {
	if !k.guard.TryLock() {
		return nil, domain.ErrTickInProgress
	}
	defer k.guard.Unlock()

	record, err := k.store.Load(ctx)
	var corrupt *domain.CorruptStateError
	switch {
	case errors.As(err, &corrupt):
		k.logger.Warn("clearing unreadable state file", log.String("path", corrupt.Path), log.Err(err))
		return nil, k.store.Clear(ctx)
	case err != nil:
		return nil, fmt.Errorf("load state: %w", err)
	case record == nil:
		return nil, nil
	}

	if end {
		if err := k.provider.End(ctx, record.ResourceID); err != nil {
			return record, &domain.EndResourceError{ResourceID: record.ResourceID, Err: err}
		}
		k.logger.Info("ended broadcast", log.String("resource_id", record.ResourceID))
	}
	if err := k.store.Clear(ctx); err != nil {
		return record, fmt.Errorf("clear state: %w", err)
	}
	k.logger.Info("state cleared", log.String("resource_id", record.ResourceID))
	return record, nil
}
