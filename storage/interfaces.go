package storage

import (
	"context"

	"github.com/creativeghq/matflow/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// The context passed to fn may contain transaction state.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// JobRepository provides operations for managing jobs.
type JobRepository interface {
	Repository
	// AddJob stores a new job.
	// Sets CreatedAt and UpdatedAt if not already set.
	// Returns ErrDuplicateKey if a job with the same ID exists.
	AddJob(ctx context.Context, job *core.Job) error

	// UpdateJob replaces an existing job record.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if the job doesn't exist.
	UpdateJob(ctx context.Context, job *core.Job) (*core.Job, error)

	// GetJob retrieves a single job by ID.
	// Returns ErrNotFound if the job doesn't exist.
	GetJob(ctx context.Context, id string) (*core.Job, error)

	// ListJobs retrieves all jobs for a workspace, ordered by creation time
	// descending. An empty workspaceID returns jobs from every workspace.
	ListJobs(ctx context.Context, workspaceID string) ([]*core.Job, error)

	// ListJobsByStatus retrieves all jobs in any of the given statuses.
	ListJobsByStatus(ctx context.Context, statuses ...core.JobStatus) ([]*core.Job, error)
}

// CheckpointRepository provides operations for stage checkpoints.
//
// Each (job, stage) pair has at most one latest checkpoint, which is
// upserted on every commit. Commits of succeeded or failed stages are
// additionally appended to an immutable per-job history.
type CheckpointRepository interface {
	Repository
	// CommitCheckpoint upserts the latest checkpoint for (JobID, Stage)
	// and appends a history entry when the stage reached a final status.
	// Sets UpdatedAt automatically.
	CommitCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error

	// GetCheckpoint retrieves the latest checkpoint for a job stage.
	// Returns ErrNotFound if no checkpoint was ever committed for it.
	GetCheckpoint(ctx context.Context, jobID string, stage core.Stage) (*core.Checkpoint, error)

	// ListCheckpoints retrieves the latest checkpoint of every stage of a
	// job, ordered by stage.
	ListCheckpoints(ctx context.Context, jobID string) ([]*core.Checkpoint, error)

	// CheckpointHistory retrieves all final checkpoint commits of a job in
	// commit order, including repeated attempts of the same stage.
	CheckpointHistory(ctx context.Context, jobID string) ([]*core.Checkpoint, error)

	// DeleteCheckpoints removes all checkpoints and history for a job.
	DeleteCheckpoints(ctx context.Context, jobID string) error
}

// ProductRepository provides operations for persisted pipeline outputs:
// products, chunks, and image records.
type ProductRepository interface {
	Repository
	// AddProducts stores one or more products.
	// Sets CreatedAt if not already set.
	AddProducts(ctx context.Context, products ...*core.Product) ([]*core.Product, error)

	// GetProduct retrieves a single product by ID.
	// Returns ErrNotFound if the product doesn't exist.
	GetProduct(ctx context.Context, id string) (*core.Product, error)

	// ListProductsByJob retrieves all products produced by a job,
	// ordered by name.
	ListProductsByJob(ctx context.Context, jobID string) ([]*core.Product, error)

	// AddChunks stores one or more chunks.
	AddChunks(ctx context.Context, chunks ...*core.Chunk) error

	// ListChunksByJob retrieves all chunks of a job ordered by index.
	ListChunksByJob(ctx context.Context, jobID string) ([]*core.Chunk, error)

	// AddImageRecords stores one or more image analysis records.
	// Sets CreatedAt if not already set.
	AddImageRecords(ctx context.Context, records ...*core.ImageRecord) error

	// ListImagesByJob retrieves all image records of a job ordered by page.
	ListImagesByJob(ctx context.Context, jobID string) ([]*core.ImageRecord, error)
}

// PropertyRepository provides operations for the material property registry.
type PropertyRepository interface {
	Repository
	// GetProperty retrieves a property by key.
	// Returns ErrNotFound if the property doesn't exist.
	GetProperty(ctx context.Context, key string) (*core.MaterialProperty, error)

	// GetOrCreateProperty finds or creates a property by key.
	// New properties start with no prototypes and no counts.
	// Thread-safe: handles concurrent creation attempts.
	GetOrCreateProperty(ctx context.Context, key, dataType string) (*core.MaterialProperty, error)

	// PutPrototype stores or replaces the embedding for a canonical value
	// of a property, creating the property if needed.
	PutPrototype(ctx context.Context, key, canonical string, vector []float32) (*core.MaterialProperty, error)

	// IncrementRawValue bumps the observation count for a raw value of a
	// property, creating the property if needed.
	IncrementRawValue(ctx context.Context, key, rawValue string) error

	// ListProperties retrieves every registered property ordered by key.
	ListProperties(ctx context.Context) ([]*core.MaterialProperty, error)
}

// UsageRepository provides operations for model usage accounting.
// Its method set matches ai.UsageStore so a backend can serve as the
// gateway's durable usage sink directly.
type UsageRepository interface {
	Repository
	// AddUsage merges a usage delta into the aggregate for the record's
	// (JobID, Stage, Model) triple.
	AddUsage(ctx context.Context, delta core.UsageRecord) error

	// JobUsage retrieves all usage aggregates of a job, ordered by stage
	// then model.
	JobUsage(ctx context.Context, jobID string) ([]core.UsageRecord, error)
}

// Store combines every repository implemented by a single backend.
type Store interface {
	JobRepository
	CheckpointRepository
	ProductRepository
	PropertyRepository
	UsageRepository
}
