package rawdata

import "time"

// Payload is one provider response body kept verbatim for replay and audit.
type Payload struct {
	Source      string
	EntityType  string
	EntityKey   string
	PayloadJSON string
	PayloadHash string
	RecordCount int
	FetchedAt   time.Time
}
