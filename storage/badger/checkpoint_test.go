package badger

import (
	"context"
	"testing"

	"github.com/creativeghq/matflow/core"
	"github.com/creativeghq/matflow/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommitCheckpoint_AndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	checkpoint := &core.Checkpoint{
		JobID:   "job-1",
		Stage:   core.StageExtraction,
		Status:  core.StageSucceeded,
		Payload: []byte(`{"text_ref":"t"}`),
		Attempt: 1,
	}
	require.NoError(t, store.CommitCheckpoint(ctx, checkpoint))

	got, err := store.GetCheckpoint(ctx, "job-1", core.StageExtraction)
	require.NoError(t, err)
	assert.Equal(t, core.StageSucceeded, got.Status)
	assert.Equal(t, checkpoint.Payload, got.Payload)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestGetCheckpoint_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetCheckpoint(context.Background(), "job-1", core.StageDiscovery)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCommitCheckpoint_UpsertsLatest(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := &core.Checkpoint{
		JobID:   "job-1",
		Stage:   core.StageClassification,
		Status:  core.StageFailed,
		Attempt: 1,
		Error:   "model timeout",
	}
	require.NoError(t, store.CommitCheckpoint(ctx, first))

	second := &core.Checkpoint{
		JobID:   "job-1",
		Stage:   core.StageClassification,
		Status:  core.StageSucceeded,
		Payload: []byte(`{"candidates":3}`),
		Attempt: 2,
	}
	require.NoError(t, store.CommitCheckpoint(ctx, second))

	latest, err := store.GetCheckpoint(ctx, "job-1", core.StageClassification)
	require.NoError(t, err)
	assert.Equal(t, core.StageSucceeded, latest.Status)
	assert.Equal(t, 2, latest.Attempt)

	// Both final commits remain visible in history, in commit order.
	history, err := store.CheckpointHistory(ctx, "job-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, core.StageFailed, history[0].Status)
	assert.Equal(t, core.StageSucceeded, history[1].Status)
}

func TestCommitCheckpoint_RunningNotInHistory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	running := &core.Checkpoint{
		JobID:   "job-1",
		Stage:   core.StageChunking,
		Status:  core.StageRunning,
		Attempt: 1,
	}
	require.NoError(t, store.CommitCheckpoint(ctx, running))

	history, err := store.CheckpointHistory(ctx, "job-1")
	require.NoError(t, err)
	assert.Empty(t, history)

	latest, err := store.GetCheckpoint(ctx, "job-1", core.StageChunking)
	require.NoError(t, err)
	assert.Equal(t, core.StageRunning, latest.Status)
}

func TestListCheckpoints_OrderedByStage(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Committed out of order on purpose.
	for _, stage := range []core.Stage{core.StageChunking, core.StageDiscovery, core.StageExtraction} {
		require.NoError(t, store.CommitCheckpoint(ctx, &core.Checkpoint{
			JobID:   "job-1",
			Stage:   stage,
			Status:  core.StageSucceeded,
			Attempt: 1,
		}))
	}

	checkpoints, err := store.ListCheckpoints(ctx, "job-1")
	require.NoError(t, err)
	require.Len(t, checkpoints, 3)
	assert.Equal(t, core.StageDiscovery, checkpoints[0].Stage)
	assert.Equal(t, core.StageExtraction, checkpoints[1].Stage)
	assert.Equal(t, core.StageChunking, checkpoints[2].Stage)
}

func TestDeleteCheckpoints(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CommitCheckpoint(ctx, &core.Checkpoint{
		JobID:   "job-1",
		Stage:   core.StageDiscovery,
		Status:  core.StageSucceeded,
		Attempt: 1,
	}))
	require.NoError(t, store.CommitCheckpoint(ctx, &core.Checkpoint{
		JobID:   "job-2",
		Stage:   core.StageDiscovery,
		Status:  core.StageSucceeded,
		Attempt: 1,
	}))

	require.NoError(t, store.DeleteCheckpoints(ctx, "job-1"))

	_, err := store.GetCheckpoint(ctx, "job-1", core.StageDiscovery)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	history, err := store.CheckpointHistory(ctx, "job-1")
	require.NoError(t, err)
	assert.Empty(t, history)

	// Other jobs are untouched.
	_, err = store.GetCheckpoint(ctx, "job-2", core.StageDiscovery)
	assert.NoError(t, err)
}
