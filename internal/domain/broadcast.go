package domain

// LifecycleState is the provider-reported state of a broadcast.
type LifecycleState string

// Known lifecycle states, in the order a healthy broadcast moves through them.
const (
	StateCreated      LifecycleState = "created"
	StateReady        LifecycleState = "ready"
	StateTestStarting LifecycleState = "testStarting"
	StateTesting      LifecycleState = "testing"
	StateLiveStarting LifecycleState = "liveStarting"
	StateLive         LifecycleState = "live"
	StateComplete     LifecycleState = "complete"
	StateRevoked      LifecycleState = "revoked"
)

// Bucket groups lifecycle states by how a broadcast must be ended.
type Bucket int

const (
	// BucketNotYetLive broadcasts never went live and are deleted.
	BucketNotYetLive Bucket = iota
	// BucketLive broadcasts are, or were, live and are transitioned to complete.
	BucketLive
	// BucketTerminal broadcasts are already over; ending them is a no-op.
	BucketTerminal
)

// String returns a human-readable representation of the bucket.
func (b Bucket) String() string {
	switch b {
	case BucketNotYetLive:
		return "not-yet-live"
	case BucketLive:
		return "live"
	case BucketTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Bucket classifies the state. Unrecognised states are treated as live so
// that they are never deleted outright.
func (s LifecycleState) Bucket() Bucket {
	switch s {
	case StateCreated, StateReady:
		return BucketNotYetLive
	case StateComplete, StateRevoked:
		return BucketTerminal
	default:
		return BucketLive
	}
}

// IngestReady reports whether the broadcast has reached ready or moved past
// it without ending.
func (s LifecycleState) IngestReady() bool {
	switch s {
	case StateReady, StateTestStarting, StateTesting, StateLiveStarting, StateLive:
		return true
	}
	return false
}

// Visibility values accepted by the provider.
const (
	VisibilityPublic   = "public"
	VisibilityUnlisted = "unlisted"
	VisibilityPrivate  = "private"
)

// CreateSpec describes the broadcast to provision. Fields are forwarded
// verbatim to the provider.
type CreateSpec struct {
	Title       string
	Description string
	Visibility  string
	Resolution  string
	FrameRate   string

	AutoStart     bool
	AutoStop      bool
	MadeForKids   bool
	AgeRestricted bool

	// StreamID binds an existing ingestion endpoint by id.
	StreamID string
	// StreamTitle reuses an existing ingestion endpoint with this title, or
	// names the one that gets created. Defaults to Title.
	StreamTitle string
}

// Broadcast is a provisioned broadcast bound to its ingestion endpoint.
type Broadcast struct {
	ResourceID   string
	Title        string
	IngestionKey string
	IngestionURL string
	ViewURL      string
}

// Notification announces a newly provisioned broadcast.
type Notification struct {
	ResourceID         string
	Title              string
	ViewURL            string
	IngestionKeyMasked string
}

// MaskKey hides all but the last four characters of an ingestion key.
func MaskKey(key string) string {
	const visible = 4
	if len(key) <= visible {
		return "****"
	}
	masked := make([]byte, len(key))
	for i := range masked {
		if i < len(key)-visible && key[i] != '-' {
			masked[i] = '*'
		} else {
			masked[i] = key[i]
		}
	}
	return string(masked)
}

// NotificationFor builds the announcement for b.
func NotificationFor(b Broadcast) Notification {
	return Notification{
		ResourceID:         b.ResourceID,
		Title:              b.Title,
		ViewURL:            b.ViewURL,
		IngestionKeyMasked: MaskKey(b.IngestionKey),
	}
}
