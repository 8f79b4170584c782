// Copyright 2025 CreativeGHQ
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package badger

import (
	"context"
	"time"

	"github.com/creativeghq/matflow/core"
	"github.com/creativeghq/matflow/storage"
	"github.com/dgraph-io/badger/v4"
)

// CheckpointRepository implements storage.CheckpointRepository for BadgerDB.
type CheckpointRepository struct {
	backend *Backend
	histSeq *badger.Sequence
}

var _ storage.CheckpointRepository = (*CheckpointRepository)(nil)

// NewCheckpointRepository creates a new CheckpointRepository.
func NewCheckpointRepository(backend *Backend) (*CheckpointRepository, error) {
	histSeq, err := backend.GetSequence(checkpointHistSeq)
	if err != nil {
		return nil, err
	}
	return &CheckpointRepository{
		backend: backend,
		histSeq: histSeq,
	}, nil
}

// Close releases the history sequence.
func (r *CheckpointRepository) Close() error {
	return r.histSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *CheckpointRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// CommitCheckpoint upserts the latest checkpoint for (JobID, Stage).
// Final statuses are also appended to the immutable per-job history, so
// repeated attempts of a stage remain visible after later upserts.
func (r *CheckpointRepository) CommitCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error {
	if err := core.ValidateCheckpoint(checkpoint); err != nil {
		return err
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		checkpoint.UpdatedAt = time.Now().UTC()

		value := storage.MarshalCheckpoint(checkpoint)
		latestKey := makeCheckpointLatestKey(checkpoint.JobID, checkpoint.Stage)
		if err := tx.Set(latestKey, value); err != nil {
			return err
		}

		if checkpoint.Status == core.StageSucceeded || checkpoint.Status == core.StageFailed {
			seq, err := r.histSeq.Next()
			if err != nil {
				return err
			}
			histKey := makeCheckpointHistKey(checkpoint.JobID, seq)
			if err := tx.Set(histKey, value); err != nil {
				return err
			}
		}

		return tx.Commit()
	}, true)
}

// GetCheckpoint retrieves the latest checkpoint for a job stage.
func (r *CheckpointRepository) GetCheckpoint(ctx context.Context, jobID string, stage core.Stage) (*core.Checkpoint, error) {
	var result *core.Checkpoint
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeCheckpointLatestKey(jobID, stage)
		item, err := tx.Get(key)
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			result, unmarshalErr = storage.UnmarshalCheckpoint(val)
			return unmarshalErr
		})
	}, false)
	return result, err
}

// ListCheckpoints retrieves the latest checkpoint of every stage of a job.
// Results are ordered by stage; the key encodes the stage number so prefix
// iteration already yields pipeline order.
func (r *CheckpointRepository) ListCheckpoints(ctx context.Context, jobID string) ([]*core.Checkpoint, error) {
	return r.scanCheckpoints(prefixKey(checkpointLatestPrefix, jobID))
}

// CheckpointHistory retrieves all final checkpoint commits of a job in
// commit order.
func (r *CheckpointRepository) CheckpointHistory(ctx context.Context, jobID string) ([]*core.Checkpoint, error) {
	return r.scanCheckpoints(prefixKey(checkpointHistPrefix, jobID))
}

// DeleteCheckpoints removes all checkpoints and history for a job.
func (r *CheckpointRepository) DeleteCheckpoints(ctx context.Context, jobID string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, prefix := range [][]byte{
			prefixKey(checkpointLatestPrefix, jobID),
			prefixKey(checkpointHistPrefix, jobID),
		} {
			if err := deletePrefix(tx, prefix); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

func (r *CheckpointRepository) scanCheckpoints(prefix []byte) ([]*core.Checkpoint, error) {
	var results []*core.Checkpoint
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var checkpoint *core.Checkpoint
			err := iter.Item().Value(func(val []byte) error {
				var err error
				checkpoint, err = storage.UnmarshalCheckpoint(val)
				return err
			})
			if err != nil {
				return err
			}
			if checkpoint != nil {
				results = append(results, checkpoint)
			}
		}
		return nil
	}, false)
	return results, err
}

// deletePrefix removes every key under a prefix within the transaction.
func deletePrefix(tx *badger.Txn, prefix []byte) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)
	defer iter.Close()

	var keys [][]byte
	for iter.Rewind(); iter.Valid(); iter.Next() {
		keys = append(keys, iter.Item().KeyCopy(nil))
	}
	for _, key := range keys {
		if err := tx.Delete(key); err != nil {
			return err
		}
	}
	return nil
}
