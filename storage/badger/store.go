package badger

import (
	"context"
	"errors"

	"github.com/creativeghq/matflow/storage"
)

// Store combines all BadgerDB repositories over a shared backend.
type Store struct {
	backend *Backend

	*JobRepository
	*CheckpointRepository
	*ProductRepository
	*PropertyRepository
	*UsageRepository
}

var _ storage.Store = (*Store)(nil)

// NewStore opens a BadgerDB-backed store at the given path.
func NewStore(path string) (storage.Store, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	return newStore(backend)
}

func newStore(backend *Backend) (*Store, error) {
	checkpoints, err := NewCheckpointRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return &Store{
		backend:              backend,
		JobRepository:        NewJobRepository(backend),
		CheckpointRepository: checkpoints,
		ProductRepository:    NewProductRepository(backend),
		PropertyRepository:   NewPropertyRepository(backend),
		UsageRepository:      NewUsageRepository(backend),
	}, nil
}

// WithTransaction delegates to the backend.
// Defined explicitly to resolve the ambiguity between embedded repositories.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.backend.WithTransaction(ctx, fn)
}

// Close releases all repositories and the underlying database.
func (s *Store) Close() error {
	return errors.Join(
		s.CheckpointRepository.Close(),
		s.backend.Close(),
	)
}
