package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/creativeghq/matflow/core"
	"github.com/creativeghq/matflow/storage"
	"github.com/dgraph-io/badger/v4"
)

// PropertyRepository implements storage.PropertyRepository for BadgerDB.
type PropertyRepository struct {
	backend *Backend
}

var _ storage.PropertyRepository = (*PropertyRepository)(nil)

// NewPropertyRepository creates a new PropertyRepository.
func NewPropertyRepository(backend *Backend) *PropertyRepository {
	return &PropertyRepository{backend: backend}
}

// Close releases resources. PropertyRepository has no resources to release.
func (r *PropertyRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *PropertyRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// GetProperty retrieves a property by key.
func (r *PropertyRepository) GetProperty(ctx context.Context, key string) (*core.MaterialProperty, error) {
	var result *core.MaterialProperty
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readProperty(tx, makePropertyKey(key))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetOrCreateProperty finds or creates a property by key.
// Creation inside a single read-write transaction keeps concurrent
// first-seen races from producing two entries.
func (r *PropertyRepository) GetOrCreateProperty(ctx context.Context, key, dataType string) (*core.MaterialProperty, error) {
	if key == "" {
		return nil, core.ErrEmptyPropertyKey
	}
	var result *core.MaterialProperty
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		recordKey := makePropertyKey(key)
		existing, err := readProperty(tx, recordKey)
		if err != nil {
			return err
		}
		if existing != nil {
			result = existing
			return nil
		}

		now := time.Now().UTC()
		result = &core.MaterialProperty{
			Key:       key,
			DataType:  dataType,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.Set(recordKey, storage.MarshalProperty(result)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// PutPrototype stores or replaces the embedding for a canonical value.
func (r *PropertyRepository) PutPrototype(ctx context.Context, key, canonical string, vector []float32) (*core.MaterialProperty, error) {
	if canonical == "" {
		return nil, fmt.Errorf("canonical value cannot be empty")
	}
	return r.mutateProperty(ctx, key, func(property *core.MaterialProperty) {
		if property.Prototypes == nil {
			property.Prototypes = make(map[string][]float32)
		}
		property.Prototypes[canonical] = vector
	})
}

// IncrementRawValue bumps the observation count for a raw value.
func (r *PropertyRepository) IncrementRawValue(ctx context.Context, key, rawValue string) error {
	_, err := r.mutateProperty(ctx, key, func(property *core.MaterialProperty) {
		if property.RawValueCounts == nil {
			property.RawValueCounts = make(map[string]int64)
		}
		property.RawValueCounts[rawValue]++
	})
	return err
}

// ListProperties retrieves every registered property ordered by key.
func (r *PropertyRepository) ListProperties(ctx context.Context) ([]*core.MaterialProperty, error) {
	var results []*core.MaterialProperty
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(propertyRecordPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var property *core.MaterialProperty
			err := iter.Item().Value(func(val []byte) error {
				var err error
				property, err = storage.UnmarshalProperty(val)
				return err
			})
			if err != nil {
				return err
			}
			if property != nil {
				results = append(results, property)
			}
		}
		return nil
	}, false)
	return results, err
}

// mutateProperty applies mutate to the stored entry, creating it if needed.
func (r *PropertyRepository) mutateProperty(_ context.Context, key string, mutate func(*core.MaterialProperty)) (*core.MaterialProperty, error) {
	if key == "" {
		return nil, core.ErrEmptyPropertyKey
	}
	var result *core.MaterialProperty
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		recordKey := makePropertyKey(key)
		property, err := readProperty(tx, recordKey)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		if property == nil {
			property = &core.MaterialProperty{
				Key:       key,
				DataType:  "string",
				CreatedAt: now,
			}
		}
		mutate(property)
		property.UpdatedAt = now

		if err := tx.Set(recordKey, storage.MarshalProperty(property)); err != nil {
			return err
		}
		result = property
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// readProperty reads a material property from the transaction.
func readProperty(tx *badger.Txn, key []byte) (*core.MaterialProperty, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var property *core.MaterialProperty
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		property, unmarshalErr = storage.UnmarshalProperty(val)
		return unmarshalErr
	})
	return property, err
}
