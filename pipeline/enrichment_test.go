package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creativeghq/matflow/ai"
	"github.com/creativeghq/matflow/core"
)

// classificationFor turns seeded chunks into the candidate list the
// enrichment stage consumes.
func classificationFor(payload ChunkingPayload) ClassificationPayload {
	out := ClassificationPayload{Batches: 1}
	for i, id := range payload.ChunkIDs {
		out.Candidates = append(out.Candidates, CandidateRef{
			ChunkID:          id,
			Index:            i,
			Confidence:       0.9,
			ContentTypeGuess: "product",
		})
	}
	return out
}

func TestDropReason(t *testing.T) {
	keeper := core.EnrichedRecord{Name: "KEEPER", Quality: core.QualityMedium, Confidence: 0.41}
	assert.Empty(t, dropReason(keeper))

	tests := []struct {
		name   string
		record core.EnrichedRecord
		reason string
	}{
		{
			name:   "missing name",
			record: core.EnrichedRecord{Quality: core.QualityHigh, Confidence: 0.9},
			reason: "missing name",
		},
		{
			name:   "confidence below threshold",
			record: core.EnrichedRecord{Name: "UNSURE", Quality: core.QualityHigh, Confidence: 0.39},
			reason: "confidence below threshold",
		},
		{
			name:   "low quality",
			record: core.EnrichedRecord{Name: "SHODDY", Quality: core.QualityLow, Confidence: 0.95},
			reason: "low quality",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.reason, dropReason(tt.record))
		})
	}
}

func TestEnrichment_IndependentQualityAndConfidenceGates(t *testing.T) {
	env := newTestEnv(t)
	job := testPipelineJob()
	chunking := seedChunks(t, env, job, 3)

	// One record per gate: confident but low quality, high quality but
	// unsure, and one that clears both.
	results := []*ai.EnrichmentResult{
		{Name: "LOW QUALITY", Quality: "low", Confidence: 0.95},
		{Name: "UNSURE", Quality: "high", Confidence: 0.39},
		{Name: "KEEPER", Quality: "medium", Confidence: 0.41},
	}
	call := 0
	env.provider.Enricher().EnrichChunkFunc = func(ctx context.Context, text string) (*ai.EnrichmentResult, error) {
		result := results[call%len(results)]
		call++
		return result, nil
	}

	executor := newEnrichmentExecutor(env.deps)
	data, err := executor.Execute(context.Background(), newStageContext(t, job, map[core.Stage]any{
		core.StageClassification: classificationFor(chunking),
	}))
	require.NoError(t, err)

	var payload EnrichmentPayload
	require.NoError(t, decodePayload(data, &payload))
	assert.Equal(t, 2, payload.Dropped)
	require.Len(t, payload.Records, 1)
	assert.Equal(t, "KEEPER", payload.Records[0].Name)
	assert.Equal(t, core.QualityMedium, payload.Records[0].Quality)
}

func TestEnrichment_CanonicalizesMatchedAttributes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	job := testPipelineJob()
	chunking := seedChunks(t, env, job, 1)

	// A finish prototype the raw value embeds close to.
	env.provider.MockEmbedder().EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 0, 0}, nil
	}
	_, err := env.store.GetOrCreateProperty(ctx, "finish", "string")
	require.NoError(t, err)
	_, err = env.store.PutPrototype(ctx, "finish", "glossy", []float32{0.92, 0.392, 0})
	require.NoError(t, err)

	env.provider.Enricher().EnrichChunkFunc = func(ctx context.Context, text string) (*ai.EnrichmentResult, error) {
		return &ai.EnrichmentResult{
			Name:       "MARBLE ARCH",
			Attributes: map[string]string{"finish": "shiny glaze"},
			Quality:    "high",
			Confidence: 0.9,
		}, nil
	}

	executor := newEnrichmentExecutor(env.deps)
	data, err := executor.Execute(ctx, newStageContext(t, job, map[core.Stage]any{
		core.StageClassification: classificationFor(chunking),
	}))
	require.NoError(t, err)

	var payload EnrichmentPayload
	require.NoError(t, decodePayload(data, &payload))
	require.Len(t, payload.Records, 1)

	record := payload.Records[0]
	assert.Equal(t, "glossy", record.Attributes["finish"])
	require.Len(t, record.Validations, 1)
	assert.True(t, record.Validations[0].Matched)
	assert.Equal(t, "shiny glaze", record.Validations[0].RawValue)
	assert.InDelta(t, 0.92, record.Validations[0].Similarity, 0.001)
}

func TestEnrichment_ToleratesItemFailures(t *testing.T) {
	env := newTestEnv(t)
	job := testPipelineJob()
	chunking := seedChunks(t, env, job, 3)

	env.provider.Enricher().EnrichChunkFunc = func(ctx context.Context, text string) (*ai.EnrichmentResult, error) {
		if strings.Contains(text, "number 1") {
			return nil, errors.New("status code: 503")
		}
		return &ai.EnrichmentResult{Name: "TILE", Quality: "high", Confidence: 0.9}, nil
	}

	executor := newEnrichmentExecutor(env.deps)
	data, err := executor.Execute(context.Background(), newStageContext(t, job, map[core.Stage]any{
		core.StageClassification: classificationFor(chunking),
	}))
	require.NoError(t, err)

	var payload EnrichmentPayload
	require.NoError(t, decodePayload(data, &payload))
	assert.Len(t, payload.Records, 2)
	assert.Len(t, payload.FailedItems, 1)
}

func TestEnrichment_AllItemsFailedIsRetryable(t *testing.T) {
	env := newTestEnv(t)
	job := testPipelineJob()
	chunking := seedChunks(t, env, job, 2)

	env.provider.Enricher().EnrichChunkFunc = func(ctx context.Context, text string) (*ai.EnrichmentResult, error) {
		return nil, errors.New("rate limit exceeded")
	}

	executor := newEnrichmentExecutor(env.deps)
	_, err := executor.Execute(context.Background(), newStageContext(t, job, map[core.Stage]any{
		core.StageClassification: classificationFor(chunking),
	}))
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
}
