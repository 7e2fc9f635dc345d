package ports

import (
	"context"

	"github.com/bft-labs/streamkeeper/internal/domain"
)

// BroadcastProvider manages hosted live broadcasts.
type BroadcastProvider interface {
	// Create provisions a broadcast and binds it to an ingestion endpoint,
	// resolving an existing endpoint or creating one. The returned broadcast
	// is ready to receive media once the provider reports it ready.
	Create(ctx context.Context, spec domain.CreateSpec) (domain.Broadcast, error)

	// LifecycleState returns the broadcast's current state.
	// Returns domain.ErrNotFound if the broadcast does not exist.
	LifecycleState(ctx context.Context, resourceID string) (domain.LifecycleState, error)

	// End retires a broadcast according to its bucket: live (or was live)
	// broadcasts are transitioned to complete, never-live broadcasts are
	// deleted and terminal or missing broadcasts are left alone.
	End(ctx context.Context, resourceID string) error
}
