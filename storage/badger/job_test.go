package badger

import (
	"context"
	"testing"

	"github.com/creativeghq/matflow/core"
	"github.com/creativeghq/matflow/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) storage.Store {
	t.Helper()
	store, err := NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testJob(id string) *core.Job {
	return &core.Job{
		ID:          id,
		DocumentRef: "catalogs/" + id + ".pdf",
		WorkspaceID: "ws-1",
		Status:      core.JobQueued,
	}
}

func TestAddJob_AndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	job := testJob("job-1")
	require.NoError(t, store.AddJob(ctx, job))
	assert.False(t, job.CreatedAt.IsZero())

	got, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, job.DocumentRef, got.DocumentRef)
	assert.Equal(t, core.JobQueued, got.Status)
}

func TestAddJob_Duplicate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddJob(ctx, testJob("job-1")))
	err := store.AddJob(ctx, testJob("job-1"))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestAddJob_Invalid(t *testing.T) {
	store := newTestStore(t)

	err := store.AddJob(context.Background(), &core.Job{ID: "job-1"})
	assert.ErrorIs(t, err, core.ErrInvalidJob)
}

func TestGetJob_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetJob(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpdateJob(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	job := testJob("job-1")
	require.NoError(t, store.AddJob(ctx, job))

	job.Status = core.JobRunning
	job.CurrentStage = core.StageChunking
	job.Progress = 30
	_, err := store.UpdateJob(ctx, job)
	require.NoError(t, err)

	got, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, core.JobRunning, got.Status)
	assert.Equal(t, core.StageChunking, got.CurrentStage)
	assert.Equal(t, 30, got.Progress)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestUpdateJob_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.UpdateJob(context.Background(), testJob("missing"))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListJobsByStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	queued := testJob("job-1")
	require.NoError(t, store.AddJob(ctx, queued))

	running := testJob("job-2")
	running.Status = core.JobRunning
	require.NoError(t, store.AddJob(ctx, running))

	interrupted := testJob("job-3")
	interrupted.Status = core.JobInterrupted
	require.NoError(t, store.AddJob(ctx, interrupted))

	jobs, err := store.ListJobsByStatus(ctx, core.JobRunning, core.JobInterrupted)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	for _, job := range jobs {
		assert.NotEqual(t, core.JobQueued, job.Status)
	}
}

func TestListJobs_FiltersWorkspace(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := testJob("job-1")
	require.NoError(t, store.AddJob(ctx, first))

	other := testJob("job-2")
	other.WorkspaceID = "ws-2"
	require.NoError(t, store.AddJob(ctx, other))

	jobs, err := store.ListJobs(ctx, "ws-2")
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "job-2", jobs[0].ID)

	all, err := store.ListJobs(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
