package bus

import "time"

// Event kinds published by the client core. Subscribers filter by
// namespace prefix, e.g. "sync." receives every sync event.
const (
	KindStoreChanged = "store.changed"
	KindSyncStatus   = "sync.status"
	KindSyncError    = "sync.error"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
