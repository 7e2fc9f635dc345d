package app

import (
	"context"
	"time"

	"github.com/bft-labs/streamkeeper/internal/domain"
	"github.com/bft-labs/streamkeeper/internal/ports"
	"github.com/bft-labs/streamkeeper/pkg/log"
)

// minPollInterval keeps a misconfigured poller from busy-looping.
const minPollInterval = 100 * time.Millisecond

// ReadinessPoller waits for a broadcast to become ingest-ready.
type ReadinessPoller struct {
	provider ports.BroadcastProvider
	clock    Clock
	logger   log.Logger
}

// NewReadinessPoller creates a poller querying provider.
func NewReadinessPoller(provider ports.BroadcastProvider, clock Clock, logger log.Logger) *ReadinessPoller {
	return &ReadinessPoller{provider: provider, clock: clock, logger: logger}
}

// WaitUntilReady polls the broadcast every interval until it reports ready
// (or a later live-side state). Query errors are logged and polling carries
// on; the only abort is a *domain.TimeoutError once timeout has elapsed, or
// the context ending.
func (p *ReadinessPoller) WaitUntilReady(ctx context.Context, resourceID string, timeout, interval time.Duration) error {
	if interval < minPollInterval {
		interval = minPollInterval
	}

	start := p.clock.Now()
	var last domain.LifecycleState

	for check := 1; ; check++ {
		state, err := p.provider.LifecycleState(ctx, resourceID)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger.Warn("readiness check failed, retrying",
				log.String("resource_id", resourceID),
				log.Int("check", check),
				log.Err(&domain.QueryError{ResourceID: resourceID, Err: err}),
			)
		case state.IngestReady():
			p.logger.Info("broadcast is ready",
				log.String("resource_id", resourceID),
				log.String("state", string(state)),
				log.Duration("waited", p.clock.Now().Sub(start)),
			)
			return nil
		default:
			last = state
			p.logger.Debug("broadcast not ready yet",
				log.String("resource_id", resourceID),
				log.String("state", string(state)),
				log.Int("check", check),
			)
		}

		// Queries stay at least interval apart; the last one may land up to
		// one interval past the deadline.
		if p.clock.Now().Sub(start) >= timeout {
			return &domain.TimeoutError{ResourceID: resourceID, Timeout: timeout, LastState: last}
		}
		if err := p.clock.Sleep(ctx, interval); err != nil {
			return err
		}
	}
}
