package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creativeghq/matflow/core"
)

func enrichmentFixture() EnrichmentPayload {
	return EnrichmentPayload{
		Records: []core.EnrichedRecord{
			{
				CandidateRef: 101,
				Name:         "MARBLE ARCH",
				Description:  "polished slab",
				Designer:     "Studio Forma",
				Collection:   "Arch",
				Attributes:   map[string]string{"finish": "glossy"},
				Quality:      core.QualityHigh,
				Confidence:   0.9,
			},
			{
				CandidateRef: 102,
				Name:         "TERRA LUCE",
				Quality:      core.QualityMedium,
				Confidence:   0.6,
			},
		},
	}
}

func TestPersistence_WritesProducts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	job := testPipelineJob()

	executor := newPersistenceExecutor(env.deps)
	data, err := executor.Execute(ctx, newStageContext(t, job, map[core.Stage]any{
		core.StageEnrichment: enrichmentFixture(),
		core.StageImages:     ImagesPayload{Analyzed: 4},
	}))
	require.NoError(t, err)

	var payload PersistencePayload
	require.NoError(t, decodePayload(data, &payload))
	assert.Len(t, payload.ProductIDs, 2)
	assert.Equal(t, 4, payload.ImageCount)

	products, err := env.store.ListProductsByJob(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "MARBLE ARCH", products[0].Name)
	assert.Equal(t, "Studio Forma", products[0].Designer)
	assert.Equal(t, core.ID(101), products[0].SourceChunk)
	assert.Equal(t, job.WorkspaceID, products[1].WorkspaceID)
	assert.False(t, products[0].CreatedAt.IsZero())
}

func TestPersistence_RerunDoesNotDuplicate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	job := testPipelineJob()

	sc := newStageContext(t, job, map[core.Stage]any{
		core.StageEnrichment: enrichmentFixture(),
		core.StageImages:     ImagesPayload{},
	})

	executor := newPersistenceExecutor(env.deps)
	first, err := executor.Execute(ctx, sc)
	require.NoError(t, err)
	second, err := executor.Execute(ctx, sc)
	require.NoError(t, err)

	var firstOut, secondOut PersistencePayload
	require.NoError(t, decodePayload(first, &firstOut))
	require.NoError(t, decodePayload(second, &secondOut))
	assert.ElementsMatch(t, firstOut.ProductIDs, secondOut.ProductIDs)

	products, err := env.store.ListProductsByJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Len(t, products, 2)
}

func TestPersistence_MissingEnrichmentPayloadIsFatal(t *testing.T) {
	env := newTestEnv(t)

	executor := newPersistenceExecutor(env.deps)
	_, err := executor.Execute(context.Background(), &StageContext{Job: testPipelineJob()})
	require.Error(t, err)
	assert.True(t, IsFatal(err))
}
