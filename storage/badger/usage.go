package badger

import (
	"context"

	"github.com/creativeghq/matflow/core"
	"github.com/creativeghq/matflow/storage"
	"github.com/dgraph-io/badger/v4"
)

// UsageRepository implements storage.UsageRepository for BadgerDB.
// It also satisfies ai.UsageStore, so the model gateway can write its
// accounting here directly.
type UsageRepository struct {
	backend *Backend
}

var _ storage.UsageRepository = (*UsageRepository)(nil)

// NewUsageRepository creates a new UsageRepository.
func NewUsageRepository(backend *Backend) *UsageRepository {
	return &UsageRepository{backend: backend}
}

// Close releases resources. UsageRepository has no resources to release.
func (r *UsageRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *UsageRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddUsage merges a usage delta into the aggregate for the record's
// (JobID, Stage, Model) triple. Read-modify-write inside one transaction
// keeps concurrent stage workers from losing counts.
func (r *UsageRepository) AddUsage(ctx context.Context, delta core.UsageRecord) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeUsageKey(delta.JobID, delta.Stage, delta.Model)

		aggregate := core.UsageRecord{
			JobID: delta.JobID,
			Stage: delta.Stage,
			Model: delta.Model,
		}
		item, err := tx.Get(key)
		if err == nil {
			if err := item.Value(func(val []byte) error {
				existing, unmarshalErr := storage.UnmarshalUsageRecord(val)
				if unmarshalErr != nil {
					return unmarshalErr
				}
				aggregate = *existing
				return nil
			}); err != nil {
				return err
			}
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		aggregate.Calls += delta.Calls
		aggregate.PromptTokens += delta.PromptTokens
		aggregate.CompletionTokens += delta.CompletionTokens
		aggregate.CostUSD += delta.CostUSD
		aggregate.LatencyMs += delta.LatencyMs

		if err := tx.Set(key, storage.MarshalUsageRecord(&aggregate)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// JobUsage retrieves all usage aggregates of a job.
// The key encodes stage then model, so prefix iteration already yields the
// required order.
func (r *UsageRepository) JobUsage(ctx context.Context, jobID string) ([]core.UsageRecord, error) {
	var results []core.UsageRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefixKey(usageRecordPrefix, jobID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				record, unmarshalErr := storage.UnmarshalUsageRecord(val)
				if unmarshalErr != nil {
					return unmarshalErr
				}
				results = append(results, *record)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	return results, err
}
