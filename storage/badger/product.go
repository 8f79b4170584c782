package badger

import (
	"context"
	"slices"
	"time"

	"github.com/creativeghq/matflow/core"
	"github.com/creativeghq/matflow/storage"
	"github.com/dgraph-io/badger/v4"
)

// ProductRepository implements storage.ProductRepository for BadgerDB.
type ProductRepository struct {
	backend *Backend
}

var _ storage.ProductRepository = (*ProductRepository)(nil)

// NewProductRepository creates a new ProductRepository.
func NewProductRepository(backend *Backend) *ProductRepository {
	return &ProductRepository{backend: backend}
}

// Close releases resources. ProductRepository has no resources to release.
func (r *ProductRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *ProductRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddProducts stores one or more products.
func (r *ProductRepository) AddProducts(ctx context.Context, products ...*core.Product) ([]*core.Product, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, product := range products {
			if err := core.ValidateProduct(product); err != nil {
				return err
			}
			if product.CreatedAt.IsZero() {
				product.CreatedAt = time.Now().UTC()
			}

			key := makeProductKey(product.ID)
			if err := tx.Set(key, storage.MarshalProduct(product)); err != nil {
				return err
			}

			// Job index points at the primary key.
			jobKey := makeProductJobKey(product.JobID, product.ID)
			if err := tx.Set(jobKey, key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	return products, err
}

// GetProduct retrieves a single product by ID.
func (r *ProductRepository) GetProduct(ctx context.Context, id string) (*core.Product, error) {
	var result *core.Product
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readProduct(tx, makeProductKey(id))
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

// ListProductsByJob retrieves all products produced by a job, ordered by name.
func (r *ProductRepository) ListProductsByJob(ctx context.Context, jobID string) ([]*core.Product, error) {
	var results []*core.Product
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefixKey(productJobPrefix, jobID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var productKey []byte
			if err := iter.Item().Value(func(val []byte) error {
				productKey = slices.Clone(val)
				return nil
			}); err != nil {
				return err
			}

			product, err := readProduct(tx, productKey)
			if err != nil {
				return err
			}
			if product != nil {
				results = append(results, product)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b *core.Product) int {
		if a.Name < b.Name {
			return -1
		}
		if a.Name > b.Name {
			return 1
		}
		return 0
	})
	return results, nil
}

// AddChunks stores one or more chunks.
func (r *ProductRepository) AddChunks(ctx context.Context, chunks ...*core.Chunk) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, chunk := range chunks {
			if err := core.ValidateChunk(chunk); err != nil {
				return err
			}
			key := makeChunkKey(chunk.JobID, chunk.Index)
			if err := tx.Set(key, storage.MarshalChunk(chunk)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// ListChunksByJob retrieves all chunks of a job ordered by index.
func (r *ProductRepository) ListChunksByJob(ctx context.Context, jobID string) ([]*core.Chunk, error) {
	var results []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefixKey(chunkRecordPrefix, jobID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var chunk *core.Chunk
			err := iter.Item().Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalChunk(val)
				return err
			})
			if err != nil {
				return err
			}
			if chunk != nil {
				results = append(results, chunk)
			}
		}
		return nil
	}, false)
	return results, err
}

// AddImageRecords stores one or more image analysis records.
func (r *ProductRepository) AddImageRecords(ctx context.Context, records ...*core.ImageRecord) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, record := range records {
			if record.CreatedAt.IsZero() {
				record.CreatedAt = time.Now().UTC()
			}
			key := makeImageKey(record.JobID, record.Page, record.Ref)
			if err := tx.Set(key, storage.MarshalImageRecord(record)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// ListImagesByJob retrieves all image records of a job ordered by page.
func (r *ProductRepository) ListImagesByJob(ctx context.Context, jobID string) ([]*core.ImageRecord, error) {
	var results []*core.ImageRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefixKey(imageRecordPrefix, jobID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var record *core.ImageRecord
			err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalImageRecord(val)
				return err
			})
			if err != nil {
				return err
			}
			if record != nil {
				results = append(results, record)
			}
		}
		return nil
	}, false)
	return results, err
}

// readProduct reads a product from the transaction.
func readProduct(tx *badger.Txn, key []byte) (*core.Product, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var product *core.Product
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		product, unmarshalErr = storage.UnmarshalProduct(val)
		return unmarshalErr
	})
	return product, err
}
