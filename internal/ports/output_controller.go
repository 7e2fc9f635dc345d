package ports

import (
	"context"

	"github.com/bft-labs/streamkeeper/internal/domain"
)

// OutputController drives the local encoder that pushes media to the
// ingestion endpoint.
type OutputController interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error

	// IsOutputActive reports whether the encoder is currently streaming.
	IsOutputActive(ctx context.Context) (bool, error)

	// Start begins streaming. Starting an active output succeeds.
	Start(ctx context.Context) error

	// Stop ends streaming. Stopping an inactive output succeeds.
	Stop(ctx context.Context) error
}

// IngestConfigurer is implemented by encoders that can be pointed at a new
// ingestion endpoint before streaming.
type IngestConfigurer interface {
	ConfigureIngest(ctx context.Context, broadcast domain.Broadcast) error
}
