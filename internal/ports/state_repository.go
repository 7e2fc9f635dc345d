package ports

import (
	"context"

	"github.com/bft-labs/streamkeeper/internal/domain"
)

// StateRepository persists the managed broadcast record for crash recovery.
type StateRepository interface {
	// Load retrieves the saved record.
	// Returns (nil, nil) if no record exists.
	// Returns a *domain.CorruptStateError if a record exists but is unreadable.
	Load(ctx context.Context) (*domain.Record, error)

	// Save replaces the record atomically (write to temp file, then rename).
	// A failed save leaves the previous record intact.
	Save(ctx context.Context, record domain.Record) error

	// Clear removes the record. Clearing an absent record is not an error.
	Clear(ctx context.Context) error
}
