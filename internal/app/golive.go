package app

import (
	"context"
	"fmt"
	"time"

	"github.com/bft-labs/streamkeeper/internal/domain"
	"github.com/bft-labs/streamkeeper/internal/ports"
	"github.com/bft-labs/streamkeeper/pkg/log"
)

// GoLiveVerifier (re)starts the encoder output and confirms the broadcast
// went live, within a bounded number of attempts.
type GoLiveVerifier struct {
	provider   ports.BroadcastProvider
	output     ports.OutputController
	clock      Clock
	logger     log.Logger
	restartGap time.Duration
}

// NewGoLiveVerifier creates a verifier. restartGap is the pause between
// stopping and starting an output that was already active.
func NewGoLiveVerifier(provider ports.BroadcastProvider, output ports.OutputController, clock Clock, logger log.Logger, restartGap time.Duration) *GoLiveVerifier {
	return &GoLiveVerifier{
		provider:   provider,
		output:     output,
		clock:      clock,
		logger:     logger,
		restartGap: restartGap,
	}
}

// EnsureLive runs up to maxAttempts restart/settle/check cycles and returns
// nil as soon as the broadcast reports live. Exhausting the attempts yields a
// *domain.VerificationFailedError.
func (v *GoLiveVerifier) EnsureLive(ctx context.Context, resourceID string, maxAttempts int, settle time.Duration) error {
	var last domain.LifecycleState

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		v.logger.Info("starting encoder output",
			log.String("resource_id", resourceID),
			log.Int("attempt", attempt),
			log.Int("max_attempts", maxAttempts),
		)

		if err := v.restartOutput(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			v.logger.Warn("could not control encoder output", log.Err(err), log.Int("attempt", attempt))
		}

		if err := v.clock.Sleep(ctx, settle); err != nil {
			return err
		}

		state, err := v.provider.LifecycleState(ctx, resourceID)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			v.logger.Warn("live check failed",
				log.Int("attempt", attempt),
				log.Err(&domain.QueryError{ResourceID: resourceID, Err: err}),
			)
			continue
		}
		last = state

		if state == domain.StateLive {
			v.logger.Info("broadcast is live", log.String("resource_id", resourceID), log.Int("attempt", attempt))
			return nil
		}

		v.logger.Info("broadcast not live yet",
			log.String("resource_id", resourceID),
			log.String("state", string(state)),
			log.Duration("settle", settle),
		)
	}

	return &domain.VerificationFailedError{ResourceID: resourceID, Attempts: maxAttempts, LastState: last}
}

// restartOutput forces a fresh ingest session: an active output is stopped
// and started again, an idle one is started.
func (v *GoLiveVerifier) restartOutput(ctx context.Context) error {
	active, err := v.output.IsOutputActive(ctx)
	if err != nil {
		return fmt.Errorf("query output status: %w", err)
	}

	if active {
		v.logger.Info("encoder output active, restarting")
		if err := v.output.Stop(ctx); err != nil {
			return fmt.Errorf("stop output: %w", err)
		}
		if err := v.clock.Sleep(ctx, v.restartGap); err != nil {
			return err
		}
	}

	if err := v.output.Start(ctx); err != nil {
		return fmt.Errorf("start output: %w", err)
	}
	return nil
}
