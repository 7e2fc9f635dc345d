package streamkeeper

import (
	"github.com/bft-labs/streamkeeper/internal/app"
	"github.com/bft-labs/streamkeeper/internal/domain"
	"github.com/bft-labs/streamkeeper/internal/ports"
	"github.com/bft-labs/streamkeeper/pkg/log"
)

// Re-exported domain types.
type (
	// Record is the persisted pointer to the managed broadcast.
	Record = domain.Record

	// BroadcastSpec describes each broadcast the keeper provisions.
	BroadcastSpec = domain.CreateSpec

	// Broadcast is a provisioned broadcast.
	Broadcast = domain.Broadcast

	// LifecycleState is a provider-reported broadcast state.
	LifecycleState = domain.LifecycleState

	// Notification announces a new broadcast.
	Notification = domain.Notification

	// CorruptStateError reports an unreadable state file.
	CorruptStateError = domain.CorruptStateError

	// VerificationFailedError reports a broadcast that did not go live.
	VerificationFailedError = domain.VerificationFailedError

	// EndResourceError reports a failure to end a broadcast.
	EndResourceError = domain.EndResourceError

	// TickResult describes what a tick did.
	TickResult = app.TickResult

	// Action is the decision a tick took.
	Action = app.Action

	// Clock supplies time to the keeper.
	Clock = app.Clock
)

// Collaborator interfaces.
type (
	BroadcastProvider = ports.BroadcastProvider
	OutputController  = ports.OutputController
	IngestConfigurer  = ports.IngestConfigurer
	Notifier          = ports.Notifier
	StateRepository   = ports.StateRepository

	// Logger is the interface for structured logging.
	Logger = log.Logger
)

// Provider lifecycle states.
const (
	LifecycleCreated  = domain.StateCreated
	LifecycleReady    = domain.StateReady
	LifecycleLive     = domain.StateLive
	LifecycleComplete = domain.StateComplete
)

// Tick actions.
const (
	ActionNoOp   = app.ActionNoOp
	ActionCreate = app.ActionCreate
	ActionRotate = app.ActionRotate
)
