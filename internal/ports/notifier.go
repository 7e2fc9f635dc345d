package ports

import (
	"context"

	"github.com/bft-labs/streamkeeper/internal/domain"
)

// Notifier announces a newly provisioned broadcast. Callers log failures and
// carry on.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}
