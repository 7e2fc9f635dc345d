package domain

import "time"

// Record is the single persisted entity. Its presence means a broadcast is
// being managed; its absence means none is.
type Record struct {
	// ResourceID identifies the managed broadcast at the provider.
	ResourceID string `json:"resourceId"`

	// CreatedAt is when the broadcast was provisioned. Age is measured from here.
	CreatedAt time.Time `json:"createdAt"`
}

// NewRecord returns a record for a broadcast provisioned at createdAt.
func NewRecord(resourceID string, createdAt time.Time) Record {
	return Record{ResourceID: resourceID, CreatedAt: createdAt.UTC()}
}

// Age returns how long the broadcast has existed at now.
func (r Record) Age(now time.Time) time.Duration {
	return now.Sub(r.CreatedAt)
}

// Valid reports whether the record carries enough to act on.
func (r Record) Valid() bool {
	return r.ResourceID != "" && !r.CreatedAt.IsZero()
}
