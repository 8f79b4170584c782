package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creativeghq/matflow/ai"
	"github.com/creativeghq/matflow/core"
)

func seedImages(t *testing.T, env *testEnv, refs ...string) ExtractionPayload {
	t.Helper()

	payload := ExtractionPayload{}
	for i, ref := range refs {
		require.NoError(t, env.deps.Artifacts.WriteImage(context.Background(), ref, []byte{0xFF, 0xD8, 0xFF}))
		payload.Images = append(payload.Images, ExtractedImage{
			Ref:      ref,
			Page:     i + 1,
			MimeType: "image/jpeg",
		})
	}
	return payload
}

func TestImages_AnalyzesAndPersists(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	job := testPipelineJob()
	extraction := seedImages(t, env, "job-1/p1-0.jpg", "job-1/p2-0.jpg")

	executor := newImagesExecutor(env.deps, settings{innerConcurrency: 2})
	data, err := executor.Execute(ctx, newStageContext(t, job, map[core.Stage]any{
		core.StageExtraction: extraction,
	}))
	require.NoError(t, err)

	var payload ImagesPayload
	require.NoError(t, decodePayload(data, &payload))
	assert.Equal(t, 2, payload.Analyzed)
	assert.Empty(t, payload.Failed)

	records, err := env.store.ListImagesByJob(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 1, records[0].Page)
	assert.NotEmpty(t, records[0].Caption)
	assert.NotEmpty(t, records[0].Tags)
}

func TestImages_NoImagesShortCircuits(t *testing.T) {
	env := newTestEnv(t)

	executor := newImagesExecutor(env.deps, settings{innerConcurrency: 2})
	data, err := executor.Execute(context.Background(), newStageContext(t, testPipelineJob(), map[core.Stage]any{
		core.StageExtraction: ExtractionPayload{},
	}))
	require.NoError(t, err)

	var payload ImagesPayload
	require.NoError(t, decodePayload(data, &payload))
	assert.Equal(t, 0, payload.Analyzed)
	assert.Zero(t, env.provider.Vision().CallCount())
}

func TestImages_SingleFailureDoesNotFailStage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	job := testPipelineJob()
	extraction := seedImages(t, env, "job-1/p1-0.jpg", "job-1/p2-0.jpg", "job-1/p3-0.jpg")

	calls := 0
	env.provider.Vision().AnalyzeImageFunc = func(ctx context.Context, image []byte, mimeType string) (*ai.ImageAnalysis, error) {
		calls++
		if calls == 2 {
			return nil, errors.New("status code: 503")
		}
		return &ai.ImageAnalysis{Caption: "tiled surface", Tags: []string{"tile"}}, nil
	}

	executor := newImagesExecutor(env.deps, settings{innerConcurrency: 1})
	data, err := executor.Execute(ctx, newStageContext(t, job, map[core.Stage]any{
		core.StageExtraction: extraction,
	}))
	require.NoError(t, err)

	var payload ImagesPayload
	require.NoError(t, decodePayload(data, &payload))
	assert.Equal(t, 2, payload.Analyzed)
	assert.Len(t, payload.Failed, 1)
}

func TestImages_AllFailuresAreRetryable(t *testing.T) {
	env := newTestEnv(t)
	job := testPipelineJob()
	extraction := seedImages(t, env, "job-1/p1-0.jpg", "job-1/p2-0.jpg")

	env.provider.Vision().AnalyzeImageFunc = func(ctx context.Context, image []byte, mimeType string) (*ai.ImageAnalysis, error) {
		return nil, errors.New("connection refused")
	}

	executor := newImagesExecutor(env.deps, settings{innerConcurrency: 2})
	_, err := executor.Execute(context.Background(), newStageContext(t, job, map[core.Stage]any{
		core.StageExtraction: extraction,
	}))
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
}
