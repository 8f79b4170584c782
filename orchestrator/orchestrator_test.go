package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creativeghq/matflow/ai"
	"github.com/creativeghq/matflow/ai/mock"
	"github.com/creativeghq/matflow/core"
	"github.com/creativeghq/matflow/extract"
	"github.com/creativeghq/matflow/metadata"
	"github.com/creativeghq/matflow/pipeline"
	"github.com/creativeghq/matflow/storage"
	"github.com/creativeghq/matflow/storage/badger"
)

// stubExtractor serves fixed page text so jobs run without real documents.
type stubExtractor struct {
	pages []string
}

var _ extract.DocumentExtractor = (*stubExtractor)(nil)

func (s *stubExtractor) Probe(_ context.Context, _ []byte) (int, error) {
	return len(s.pages), nil
}

func (s *stubExtractor) Extract(_ context.Context, _ []byte) (*extract.Document, error) {
	doc := &extract.Document{PageCount: len(s.pages)}
	for i, text := range s.pages {
		doc.Pages = append(doc.Pages, extract.PageText{Page: i + 1, Text: text})
	}
	return doc, nil
}

type testHarness struct {
	orch     *Orchestrator
	store    storage.Store
	provider *mock.MockProvider
}

func newTestHarness(t *testing.T, config *Config) *testHarness {
	t.Helper()

	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	docsDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(docsDir, "catalog.pdf"), []byte("stub"), 0o644))
	artifacts, err := storage.NewFSArtifactStore(docsDir, filepath.Join(t.TempDir(), "images"))
	require.NoError(t, err)

	provider := mock.NewMockProvider()
	gateway, err := ai.NewGateway(provider, store, ai.DefaultConfig())
	require.NoError(t, err)

	extractor := &stubExtractor{pages: []string{
		"Product MARBLE ARCH. Polished porcelain stoneware slab in six formats for high-traffic flooring and facades.",
		"Product TERRA LUCE. Hand glazed terracotta field tile extended with 10x10 and 20x20 formats for interior walls.",
	}}

	pipe, err := pipeline.New(pipeline.Deps{
		Store:     store,
		Artifacts: artifacts,
		Extractor: extractor,
		Gateway:   gateway,
		Validator: metadata.NewValidator(gateway, store),
	})
	require.NoError(t, err)

	if config == nil {
		config = &Config{
			Workers:        2,
			MaxAttempts:    3,
			RetryBaseDelay: time.Millisecond,
			RetryMaxDelay:  5 * time.Millisecond,
		}
	}
	orch, err := New(store, pipe, config)
	require.NoError(t, err)
	t.Cleanup(func() { orch.Close() })

	return &testHarness{orch: orch, store: store, provider: provider}
}

// awaitStatus polls until the job reaches any of the given statuses.
func awaitStatus(t *testing.T, h *testHarness, jobID string, statuses ...core.JobStatus) *core.Job {
	t.Helper()

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		job, err := h.store.GetJob(context.Background(), jobID)
		require.NoError(t, err)
		for _, status := range statuses {
			if job.Status == status {
				return job
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached %v", jobID, statuses)
	return nil
}

func TestSubmit_RunsJobToCompletion(t *testing.T) {
	h := newTestHarness(t, nil)
	ctx := context.Background()

	job, err := h.orch.Submit(ctx, "catalog.pdf", "ws-1")
	require.NoError(t, err)
	require.NotEmpty(t, job.ID)

	done := awaitStatus(t, h, job.ID, core.JobCompleted)
	assert.Equal(t, 100, done.Progress)
	assert.Equal(t, core.StagePersistence, done.CurrentStage)
	assert.Empty(t, done.Error)

	// Every stage left a succeeded checkpoint in pipeline order.
	checkpoints, err := h.store.ListCheckpoints(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, checkpoints, len(core.Stages()))
	for i, checkpoint := range checkpoints {
		assert.Equal(t, core.Stages()[i], checkpoint.Stage)
		assert.Equal(t, core.StageSucceeded, checkpoint.Status)
		assert.Equal(t, 1, checkpoint.Attempt)
	}

	products, err := h.store.ListProductsByJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Len(t, products, 2)
}

func TestGetStatus_ReportsCheckpoints(t *testing.T) {
	h := newTestHarness(t, nil)
	ctx := context.Background()

	job, err := h.orch.Submit(ctx, "catalog.pdf", "ws-1")
	require.NoError(t, err)
	awaitStatus(t, h, job.ID, core.JobCompleted)

	report, err := h.orch.GetStatus(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, core.JobCompleted, report.Job.Status)
	assert.Len(t, report.Checkpoints, len(core.Stages()))

	_, err = h.orch.GetStatus(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSubmit_TransientFailureRetriesInPlace(t *testing.T) {
	h := newTestHarness(t, nil)
	ctx := context.Background()

	// First classification call fails transiently, the retry succeeds.
	calls := 0
	h.provider.Classifier().ClassifyChunksFunc = func(ctx context.Context, texts []string) ([]ai.ChunkVerdict, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("status code: 503")
		}
		verdicts := make([]ai.ChunkVerdict, len(texts))
		for i := range texts {
			verdicts[i] = ai.ChunkVerdict{ChunkIndex: i, IsCandidate: true, Confidence: 0.9, ContentTypeGuess: "product"}
		}
		return verdicts, nil
	}

	job, err := h.orch.Submit(ctx, "catalog.pdf", "ws-1")
	require.NoError(t, err)
	awaitStatus(t, h, job.ID, core.JobCompleted)

	checkpoint, err := h.store.GetCheckpoint(ctx, job.ID, core.StageClassification)
	require.NoError(t, err)
	assert.Equal(t, core.StageSucceeded, checkpoint.Status)
	assert.Equal(t, 2, checkpoint.Attempt)
}

func TestSubmit_ExhaustedRetriesInterruptJob(t *testing.T) {
	h := newTestHarness(t, nil)
	ctx := context.Background()

	h.provider.Classifier().ClassifyChunksFunc = func(ctx context.Context, texts []string) ([]ai.ChunkVerdict, error) {
		return nil, errors.New("status code: 503")
	}

	job, err := h.orch.Submit(ctx, "catalog.pdf", "ws-1")
	require.NoError(t, err)

	done := awaitStatus(t, h, job.ID, core.JobInterrupted)
	assert.NotEmpty(t, done.Error)
	assert.Equal(t, core.StageClassification, done.CurrentStage)

	// Earlier progress survives the interruption.
	assert.Equal(t, core.ProgressAfter(core.StageImages), done.Progress)

	checkpoint, err := h.store.GetCheckpoint(ctx, job.ID, core.StageClassification)
	require.NoError(t, err)
	assert.Equal(t, core.StageFailed, checkpoint.Status)
	assert.Equal(t, 3, checkpoint.Attempt)
}

func TestSubmit_FatalFailureFailsJobWithoutRetry(t *testing.T) {
	h := newTestHarness(t, nil)
	ctx := context.Background()

	h.provider.Classifier().ClassifyChunksFunc = func(ctx context.Context, texts []string) ([]ai.ChunkVerdict, error) {
		return nil, errors.New("status code: 401")
	}

	job, err := h.orch.Submit(ctx, "catalog.pdf", "ws-1")
	require.NoError(t, err)

	done := awaitStatus(t, h, job.ID, core.JobFailed)
	assert.NotEmpty(t, done.Error)

	checkpoint, err := h.store.GetCheckpoint(ctx, job.ID, core.StageClassification)
	require.NoError(t, err)
	assert.Equal(t, core.StageFailed, checkpoint.Status)
	assert.Equal(t, 1, checkpoint.Attempt)
}

func TestResume_ContinuesFromFirstUnfinishedStage(t *testing.T) {
	h := newTestHarness(t, nil)
	ctx := context.Background()

	h.provider.Enricher().EnrichChunkFunc = func(ctx context.Context, text string) (*ai.EnrichmentResult, error) {
		return nil, errors.New("status code: 503")
	}

	job, err := h.orch.Submit(ctx, "catalog.pdf", "ws-1")
	require.NoError(t, err)
	awaitStatus(t, h, job.ID, core.JobInterrupted)

	classifierCalls := h.provider.Classifier().CallCount()

	// Backend recovers; resume finishes the job.
	h.provider.Enricher().Reset()
	require.NoError(t, h.orch.Resume(ctx, job.ID))

	done := awaitStatus(t, h, job.ID, core.JobCompleted)
	assert.Equal(t, 100, done.Progress)

	// Succeeded stages were not re-executed.
	assert.Equal(t, classifierCalls, h.provider.Classifier().CallCount())

	history, err := h.store.CheckpointHistory(ctx, job.ID)
	require.NoError(t, err)
	var enrichmentFinals []core.StageStatus
	for _, checkpoint := range history {
		if checkpoint.Stage == core.StageEnrichment {
			enrichmentFinals = append(enrichmentFinals, checkpoint.Status)
		}
	}
	assert.Equal(t, []core.StageStatus{core.StageFailed, core.StageSucceeded}, enrichmentFinals)
}

func TestResume_CompletedJobIsNoOp(t *testing.T) {
	h := newTestHarness(t, nil)
	ctx := context.Background()

	job, err := h.orch.Submit(ctx, "catalog.pdf", "ws-1")
	require.NoError(t, err)
	awaitStatus(t, h, job.ID, core.JobCompleted)
	classifierCalls := h.provider.Classifier().CallCount()

	require.NoError(t, h.orch.Resume(ctx, job.ID))

	got, err := h.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, core.JobCompleted, got.Status)
	assert.Equal(t, classifierCalls, h.provider.Classifier().CallCount())
}

func TestResume_RejectsNonResumableJobs(t *testing.T) {
	h := newTestHarness(t, nil)
	ctx := context.Background()

	queued := &core.Job{
		ID:          "queued-job",
		DocumentRef: "catalog.pdf",
		WorkspaceID: "ws-1",
		Status:      core.JobQueued,
	}
	require.NoError(t, h.store.AddJob(ctx, queued))

	err := h.orch.Resume(ctx, queued.ID)
	assert.ErrorIs(t, err, ErrJobNotResumable)

	err = h.orch.Resume(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCancel_QueuedJobNeverRuns(t *testing.T) {
	h := newTestHarness(t, nil)
	ctx := context.Background()

	job := &core.Job{
		ID:          "queued-job",
		DocumentRef: "catalog.pdf",
		WorkspaceID: "ws-1",
		Status:      core.JobQueued,
	}
	require.NoError(t, h.store.AddJob(ctx, job))

	require.NoError(t, h.orch.Cancel(ctx, job.ID))

	got, err := h.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, core.JobCancelled, got.Status)

	err = h.orch.Cancel(ctx, job.ID)
	assert.ErrorIs(t, err, ErrJobTerminal)
}

func TestCancel_RunningJobStopsAtStageBoundary(t *testing.T) {
	h := newTestHarness(t, nil)
	ctx := context.Background()

	// Park the job inside classification until cancel is requested.
	classifying := make(chan struct{})
	release := make(chan struct{})
	h.provider.Classifier().ClassifyChunksFunc = func(ctx context.Context, texts []string) ([]ai.ChunkVerdict, error) {
		close(classifying)
		<-release
		verdicts := make([]ai.ChunkVerdict, len(texts))
		for i := range texts {
			verdicts[i] = ai.ChunkVerdict{ChunkIndex: i, IsCandidate: true, Confidence: 0.9}
		}
		return verdicts, nil
	}

	job, err := h.orch.Submit(ctx, "catalog.pdf", "ws-1")
	require.NoError(t, err)

	<-classifying
	require.NoError(t, h.orch.Cancel(ctx, job.ID))
	close(release)

	done := awaitStatus(t, h, job.ID, core.JobCancelled)

	// The in-flight stage committed before the job stopped.
	checkpoint, err := h.store.GetCheckpoint(ctx, job.ID, core.StageClassification)
	require.NoError(t, err)
	assert.Equal(t, core.StageSucceeded, checkpoint.Status)

	// Enrichment never started.
	_, err = h.store.GetCheckpoint(ctx, job.ID, core.StageEnrichment)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// A cancelled job can be resumed later.
	require.NoError(t, h.orch.Resume(ctx, done.ID))
	awaitStatus(t, h, job.ID, core.JobCompleted)
}

func TestWatch_StreamsMonotonicProgress(t *testing.T) {
	h := newTestHarness(t, nil)
	ctx := context.Background()

	// Hold the first stage so the subscription is in place before any
	// update is published.
	started := make(chan struct{})
	release := make(chan struct{})
	h.provider.Classifier().ClassifyChunksFunc = func(ctx context.Context, texts []string) ([]ai.ChunkVerdict, error) {
		close(started)
		<-release
		verdicts := make([]ai.ChunkVerdict, len(texts))
		for i := range texts {
			verdicts[i] = ai.ChunkVerdict{ChunkIndex: i, IsCandidate: true, Confidence: 0.9}
		}
		return verdicts, nil
	}

	job, err := h.orch.Submit(ctx, "catalog.pdf", "ws-1")
	require.NoError(t, err)

	<-started
	updates, cancel, err := h.orch.Watch(ctx, job.ID)
	require.NoError(t, err)
	defer cancel()
	close(release)

	last := -1
	final := ""
	for update := range updates {
		assert.GreaterOrEqual(t, update.Progress, last)
		last = update.Progress
		final = update.Status
	}
	assert.Equal(t, core.JobCompleted.String(), final)
	assert.Equal(t, 100, last)
}

func TestRecover_MarksRunningJobsInterrupted(t *testing.T) {
	h := newTestHarness(t, nil)
	ctx := context.Background()

	// A job left behind by a crashed process.
	stale := &core.Job{
		ID:           "stale-job",
		DocumentRef:  "catalog.pdf",
		WorkspaceID:  "ws-1",
		Status:       core.JobRunning,
		CurrentStage: core.StageChunking,
		Progress:     30,
	}
	require.NoError(t, h.store.AddJob(ctx, stale))

	recovered, err := h.orch.Recover(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, recovered)

	got, err := h.store.GetJob(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, core.JobInterrupted, got.Status)
	assert.Equal(t, 30, got.Progress)
}

func TestRecover_AutoResumeFinishesInterruptedJobs(t *testing.T) {
	config := &Config{
		Workers:        2,
		MaxAttempts:    3,
		RetryBaseDelay: time.Millisecond,
		RetryMaxDelay:  5 * time.Millisecond,
		AutoResume:     true,
	}
	h := newTestHarness(t, config)
	ctx := context.Background()

	stale := &core.Job{
		ID:          "stale-job",
		DocumentRef: "catalog.pdf",
		WorkspaceID: "ws-1",
		Status:      core.JobRunning,
	}
	require.NoError(t, h.store.AddJob(ctx, stale))

	_, err := h.orch.Recover(ctx)
	require.NoError(t, err)

	awaitStatus(t, h, stale.ID, core.JobCompleted)
}

func TestRecover_AutoResumeIncludesPreviouslyInterruptedJobs(t *testing.T) {
	config := &Config{
		Workers:        2,
		MaxAttempts:    3,
		RetryBaseDelay: time.Millisecond,
		RetryMaxDelay:  5 * time.Millisecond,
		AutoResume:     true,
	}
	h := newTestHarness(t, config)
	ctx := context.Background()

	// Interrupted before the restart, e.g. by a graceful shutdown.
	parked := &core.Job{
		ID:          "parked-job",
		DocumentRef: "catalog.pdf",
		WorkspaceID: "ws-1",
		Status:      core.JobInterrupted,
		Error:       "interrupted by shutdown",
	}
	require.NoError(t, h.store.AddJob(ctx, parked))

	recovered, err := h.orch.Recover(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, recovered)

	awaitStatus(t, h, parked.ID, core.JobCompleted)
}

func TestClose_RejectsNewWork(t *testing.T) {
	h := newTestHarness(t, nil)

	require.NoError(t, h.orch.Close())

	_, err := h.orch.Submit(context.Background(), "catalog.pdf", "ws-1")
	assert.ErrorIs(t, err, ErrClosed)
}
