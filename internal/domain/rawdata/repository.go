package rawdata

import "context"

// Repository stores payloads keyed by (source, entity_type, entity_key). A
// repeated key replaces the stored body.
type Repository interface {
	UpsertMany(ctx context.Context, items []Payload) error
}
