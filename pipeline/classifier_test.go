package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creativeghq/matflow/ai"
	"github.com/creativeghq/matflow/core"
)

// seedChunks persists n classifiable chunks and returns the matching
// chunking payload.
func seedChunks(t *testing.T, env *testEnv, job *core.Job, n int) ChunkingPayload {
	t.Helper()

	payload := ChunkingPayload{ChunkCount: n}
	chunks := make([]*core.Chunk, 0, n)
	for i := 0; i < n; i++ {
		content := fmt.Sprintf("Product tile number %d. Porcelain stoneware slab for flooring, walls and facades.", i)
		chunk := &core.Chunk{
			ID:      core.IDFromContent(content),
			JobID:   job.ID,
			Index:   i,
			Content: content,
		}
		chunks = append(chunks, chunk)
		payload.ChunkIDs = append(payload.ChunkIDs, chunk.ID)
	}
	require.NoError(t, env.store.AddChunks(context.Background(), chunks...))
	return payload
}

func TestClassification_BatchesOfTen(t *testing.T) {
	env := newTestEnv(t)
	job := testPipelineJob()
	seedChunks(t, env, job, 23)

	executor := newClassificationExecutor(env.deps)
	data, err := executor.Execute(context.Background(), &StageContext{Job: job})
	require.NoError(t, err)

	var payload ClassificationPayload
	require.NoError(t, decodePayload(data, &payload))
	assert.Equal(t, 3, payload.Batches)
	assert.Equal(t, 0, payload.FailedBatches)
	assert.Len(t, payload.Candidates, 23)

	assert.Equal(t, []int{10, 10, 3}, env.provider.Classifier().BatchSizes())
}

func TestClassification_ConfidenceGate(t *testing.T) {
	env := newTestEnv(t)
	job := testPipelineJob()
	seedChunks(t, env, job, 4)

	// Alternate verdicts above and below the candidate threshold.
	env.provider.Classifier().ClassifyChunksFunc = func(ctx context.Context, texts []string) ([]ai.ChunkVerdict, error) {
		verdicts := make([]ai.ChunkVerdict, len(texts))
		for i := range texts {
			verdicts[i] = ai.ChunkVerdict{
				ChunkIndex:       i,
				IsCandidate:      true,
				Confidence:       0.9,
				ContentTypeGuess: "product",
			}
			if i%2 == 1 {
				verdicts[i].Confidence = 0.39
			}
		}
		return verdicts, nil
	}

	executor := newClassificationExecutor(env.deps)
	data, err := executor.Execute(context.Background(), &StageContext{Job: job})
	require.NoError(t, err)

	var payload ClassificationPayload
	require.NoError(t, decodePayload(data, &payload))
	require.Len(t, payload.Candidates, 2)
	assert.Equal(t, 0, payload.Candidates[0].Index)
	assert.Equal(t, 2, payload.Candidates[1].Index)
}

func TestClassification_ToleratesPartialBatchFailure(t *testing.T) {
	env := newTestEnv(t)
	job := testPipelineJob()
	seedChunks(t, env, job, 15)

	calls := 0
	env.provider.Classifier().ClassifyChunksFunc = func(ctx context.Context, texts []string) ([]ai.ChunkVerdict, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("status code: 503")
		}
		verdicts := make([]ai.ChunkVerdict, len(texts))
		for i := range texts {
			verdicts[i] = ai.ChunkVerdict{ChunkIndex: i, IsCandidate: true, Confidence: 0.8}
		}
		return verdicts, nil
	}

	executor := newClassificationExecutor(env.deps)
	data, err := executor.Execute(context.Background(), &StageContext{Job: job})
	require.NoError(t, err)

	var payload ClassificationPayload
	require.NoError(t, decodePayload(data, &payload))
	assert.Equal(t, 2, payload.Batches)
	assert.Equal(t, 1, payload.FailedBatches)
	assert.Len(t, payload.Candidates, 5)
}

func TestClassification_AllBatchesFailedIsRetryable(t *testing.T) {
	env := newTestEnv(t)
	job := testPipelineJob()
	seedChunks(t, env, job, 12)

	env.provider.Classifier().ClassifyChunksFunc = func(ctx context.Context, texts []string) ([]ai.ChunkVerdict, error) {
		return nil, errors.New("status code: 503")
	}

	executor := newClassificationExecutor(env.deps)
	_, err := executor.Execute(context.Background(), &StageContext{Job: job})
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
}

func TestClassification_CancelledAtBatchBoundary(t *testing.T) {
	env := newTestEnv(t)
	job := testPipelineJob()
	seedChunks(t, env, job, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	executor := newClassificationExecutor(env.deps)
	_, err := executor.Execute(ctx, &StageContext{Job: job})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsRetryable(err))
	assert.False(t, IsFatal(err))
}
