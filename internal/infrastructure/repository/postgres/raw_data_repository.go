package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/match-export/internal/domain/rawdata"
	qb "github.com/riskibarqy/match-export/internal/platform/querybuilder"
)

const rawDataPayloadUpsertSuffix = `ON CONFLICT (source, entity_type, entity_key) WHERE deleted_at IS NULL
DO UPDATE SET
    payload = EXCLUDED.payload,
    payload_hash = EXCLUDED.payload_hash,
    record_count = EXCLUDED.record_count,
    fetched_at = EXCLUDED.fetched_at,
    ingested_at = NOW(),
    deleted_at = NULL`

type RawDataRepository struct {
	db *sqlx.DB
}

func NewRawDataRepository(db *sqlx.DB) *RawDataRepository {
	return &RawDataRepository{db: db}
}

// UpsertMany writes all payloads in one statement. A later item with the same
// (source, entity_type, entity_key) replaces an earlier one.
func (r *RawDataRepository) UpsertMany(ctx context.Context, items []rawdata.Payload) error {
	models := rawDataPayloadInsertModels(items)
	if len(models) == 0 {
		return nil
	}

	query, args, err := qb.InsertModels("raw_data_payloads", rawDataPayloadUpsertSuffix, models...)
	if err != nil {
		return fmt.Errorf("build upsert raw payload query: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert raw payloads: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert %d raw payloads: %w", len(models), err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert raw payloads tx: %w", err)
	}
	return nil
}

func rawDataPayloadInsertModels(items []rawdata.Payload) []any {
	type conflictKey struct {
		source, entityType, entityKey string
	}

	position := make(map[conflictKey]int, len(items))
	models := make([]any, 0, len(items))
	for _, item := range items {
		model := rawDataPayloadInsertModel{
			Source:      item.Source,
			EntityType:  item.EntityType,
			EntityKey:   item.EntityKey,
			Payload:     item.PayloadJSON,
			PayloadHash: item.PayloadHash,
			RecordCount: item.RecordCount,
			FetchedAt:   nullableTime(item.FetchedAt),
		}
		key := conflictKey{item.Source, item.EntityType, item.EntityKey}
		if idx, ok := position[key]; ok {
			models[idx] = model
			continue
		}
		position[key] = len(models)
		models = append(models, model)
	}
	return models
}

func nullableTime(value time.Time) *time.Time {
	if value.IsZero() {
		return nil
	}
	return &value
}

type rawDataPayloadInsertModel struct {
	Source      string     `db:"source"`
	EntityType  string     `db:"entity_type"`
	EntityKey   string     `db:"entity_key"`
	Payload     string     `db:"payload"`
	PayloadHash string     `db:"payload_hash"`
	RecordCount int        `db:"record_count"`
	FetchedAt   *time.Time `db:"fetched_at"`
}
