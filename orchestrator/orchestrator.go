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

// Package orchestrator drives jobs through the processing pipeline on a
// bounded worker pool, committing a checkpoint per stage so an interrupted
// job resumes from its last completed stage instead of restarting.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/creativeghq/matflow/core"
	"github.com/creativeghq/matflow/pipeline"
	"github.com/creativeghq/matflow/storage"
)

// Config holds orchestrator tuning parameters.
type Config struct {
	// Workers is the number of jobs processed concurrently.
	Workers int

	// MaxAttempts is the maximum number of attempts per stage.
	MaxAttempts int

	// RetryBaseDelay is the base delay for exponential backoff.
	RetryBaseDelay time.Duration

	// RetryMaxDelay caps the backoff delay.
	RetryMaxDelay time.Duration

	// AutoResume re-enqueues interrupted jobs during recovery.
	AutoResume bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	workers := runtime.NumCPU() / 2
	if workers < 1 {
		workers = 1
	}
	return &Config{
		Workers:        workers,
		MaxAttempts:    3,
		RetryBaseDelay: 2 * time.Second,
		RetryMaxDelay:  30 * time.Second,
	}
}

// Orchestrator owns the job lifecycle: accepting submissions, scheduling
// them onto workers, and recording every transition durably.
type Orchestrator struct {
	store    storage.Store
	pipeline *pipeline.Pipeline
	config   *Config
	pool     *ants.Pool
	hub      *progressHub
	logger   *slog.Logger

	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu        sync.Mutex
	closed    bool
	cancelled map[string]struct{}

	active sync.WaitGroup
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New creates an orchestrator over the given store and pipeline.
// A nil config uses DefaultConfig.
func New(store storage.Store, pipe *pipeline.Pipeline, config *Config, opts ...Option) (*Orchestrator, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if pipe == nil {
		return nil, ErrPipelineRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxAttempts <= 0 {
		return nil, ErrInvalidMaxAttempts
	}

	workers := config.Workers
	if workers < 1 {
		workers = 1
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		store:      store,
		pipeline:   pipe,
		config:     config,
		pool:       pool,
		hub:        newProgressHub(),
		logger:     slog.Default().With("component", "orchestrator"),
		baseCtx:    ctx,
		baseCancel: cancel,
		cancelled:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Submit accepts a new job for the given document and schedules it.
func (o *Orchestrator) Submit(ctx context.Context, documentRef, workspaceID string) (*core.Job, error) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil, ErrClosed
	}
	o.mu.Unlock()

	job := &core.Job{
		ID:           uuid.NewString(),
		DocumentRef:  documentRef,
		WorkspaceID:  workspaceID,
		Status:       core.JobQueued,
		CurrentStage: core.StageDiscovery,
	}
	if err := o.store.AddJob(ctx, job); err != nil {
		return nil, err
	}

	o.logger.Info("job submitted", "job_id", job.ID, "document", documentRef)
	o.dispatch(job.ID)
	return job, nil
}

// StatusReport is the full observable state of one job.
type StatusReport struct {
	Job         *core.Job
	Checkpoints []*core.Checkpoint
}

// GetStatus returns the job record and the latest checkpoint of every
// stage that has run.
func (o *Orchestrator) GetStatus(ctx context.Context, jobID string) (*StatusReport, error) {
	job, err := o.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	checkpoints, err := o.store.ListCheckpoints(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return &StatusReport{Job: job, Checkpoints: checkpoints}, nil
}

// Cancel requests cancellation of a job. A queued job is cancelled
// immediately; a running job finishes its current stage first, so the
// stage's checkpoint commits and a later resume starts after it.
func (o *Orchestrator) Cancel(ctx context.Context, jobID string) error {
	job, err := o.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		return ErrJobTerminal
	}

	o.mu.Lock()
	o.cancelled[jobID] = struct{}{}
	o.mu.Unlock()

	if job.Status == core.JobQueued {
		job.Status = core.JobCancelled
		if _, err := o.store.UpdateJob(ctx, job); err != nil {
			return err
		}
		o.publish(job)
	}

	o.logger.Info("job cancellation requested", "job_id", jobID, "status", job.Status.String())
	return nil
}

// Resume re-enqueues an interrupted, failed, or cancelled job. Stages
// with a succeeded checkpoint are skipped; execution continues from the
// first stage that never succeeded. Resuming a completed job is a no-op.
func (o *Orchestrator) Resume(ctx context.Context, jobID string) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	delete(o.cancelled, jobID)
	o.mu.Unlock()

	job, err := o.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	switch job.Status {
	case core.JobCompleted:
		// Nothing left to run; resuming finished work must be safe.
		o.logger.Info("resume ignored, job already completed", "job_id", jobID)
		return nil
	case core.JobInterrupted, core.JobFailed, core.JobCancelled:
	default:
		return ErrJobNotResumable
	}

	job.Status = core.JobQueued
	job.Error = ""
	if _, err := o.store.UpdateJob(ctx, job); err != nil {
		return err
	}

	o.logger.Info("job resumed", "job_id", jobID)
	o.dispatch(jobID)
	return nil
}

// Watch subscribes to a job's progress updates. The channel closes when
// the job reaches a terminal status or the returned cancel function runs.
func (o *Orchestrator) Watch(ctx context.Context, jobID string) (<-chan ProgressUpdate, func(), error) {
	if _, err := o.store.GetJob(ctx, jobID); err != nil {
		return nil, nil, err
	}
	ch, cancel := o.hub.Subscribe(jobID)
	return ch, cancel, nil
}

// Recover reconciles job state after a process restart: jobs left in the
// running status are marked interrupted, queued jobs are re-enqueued, and
// interrupted jobs are resumed when AutoResume is set.
func (o *Orchestrator) Recover(ctx context.Context) (int, error) {
	running, err := o.store.ListJobsByStatus(ctx, core.JobRunning)
	if err != nil {
		return 0, err
	}
	for _, job := range running {
		job.Status = core.JobInterrupted
		job.Error = "interrupted by shutdown"
		if _, err := o.store.UpdateJob(ctx, job); err != nil {
			return 0, err
		}
		o.logger.Warn("job marked interrupted", "job_id", job.ID, "stage", job.CurrentStage.String())
	}

	queued, err := o.store.ListJobsByStatus(ctx, core.JobQueued)
	if err != nil {
		return 0, err
	}
	for _, job := range queued {
		o.dispatch(job.ID)
	}

	recovered := len(running) + len(queued)
	if o.config.AutoResume {
		// Includes the jobs just transitioned from running as well as jobs
		// interrupted before this restart, e.g. by a graceful shutdown.
		interrupted, err := o.store.ListJobsByStatus(ctx, core.JobInterrupted)
		if err != nil {
			return 0, err
		}
		for _, job := range interrupted {
			if err := o.Resume(ctx, job.ID); err != nil {
				o.logger.Error("auto-resume failed", "job_id", job.ID, "error", err)
			}
		}
		recovered = len(queued) + len(interrupted)
	}
	return recovered, nil
}

// Close stops accepting work, interrupts in-flight jobs, and waits for
// workers to record their final state.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	o.mu.Unlock()

	o.baseCancel()
	o.active.Wait()
	o.pool.Release()
	return nil
}

// dispatch hands a job to the worker pool without blocking the caller.
// Submission order is preserved by the pool's task queue.
func (o *Orchestrator) dispatch(jobID string) {
	o.active.Add(1)
	go func() {
		err := o.pool.Submit(func() {
			defer o.active.Done()
			o.runJob(jobID)
		})
		if err != nil {
			o.active.Done()
			o.logger.Error("job dispatch failed", "job_id", jobID, "error", err)
		}
	}()
}

func (o *Orchestrator) isCancelled(jobID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.cancelled[jobID]
	return ok
}

func (o *Orchestrator) clearCancelled(jobID string) {
	o.mu.Lock()
	delete(o.cancelled, jobID)
	o.mu.Unlock()
}

// runJob drives one job through its remaining stages sequentially.
func (o *Orchestrator) runJob(jobID string) {
	ctx := o.baseCtx

	job, err := o.store.GetJob(ctx, jobID)
	if err != nil {
		o.logger.Error("job load failed", "job_id", jobID, "error", err)
		return
	}
	if job.Status.IsTerminal() {
		// Cancelled while queued.
		o.clearCancelled(jobID)
		return
	}

	job.Status = core.JobRunning
	if job, err = o.store.UpdateJob(ctx, job); err != nil {
		o.logger.Error("job update failed", "job_id", jobID, "error", err)
		return
	}
	o.publish(job)

	sc, remaining, err := o.loadContext(ctx, job)
	if err != nil {
		o.finish(job, core.JobInterrupted, err)
		return
	}

	for _, stage := range remaining {
		if o.isCancelled(jobID) {
			o.finish(job, core.JobCancelled, nil)
			return
		}
		if ctx.Err() != nil {
			o.finish(job, core.JobInterrupted, ctx.Err())
			return
		}

		job.CurrentStage = stage
		payload, stageErr := o.runStage(ctx, sc, stage)
		if stageErr != nil {
			o.finish(job, terminalStatusFor(stageErr, o.isCancelled(jobID)), stageErr)
			return
		}

		sc.Payloads[stage] = payload
		if after := core.ProgressAfter(stage); after > job.Progress {
			job.Progress = after
		}
		if job, err = o.store.UpdateJob(ctx, job); err != nil {
			o.logger.Error("job update failed", "job_id", jobID, "error", err)
			return
		}
		o.publish(job)
	}

	o.finish(job, core.JobCompleted, nil)
}

// loadContext rebuilds the stage context from committed checkpoints and
// returns the stages that still need to run. Succeeded stages are never
// re-executed on resume.
func (o *Orchestrator) loadContext(ctx context.Context, job *core.Job) (*pipeline.StageContext, []core.Stage, error) {
	checkpoints, err := o.store.ListCheckpoints(ctx, job.ID)
	if err != nil {
		return nil, nil, err
	}

	succeeded := make(map[core.Stage]bool, len(checkpoints))
	sc := &pipeline.StageContext{Job: job, Payloads: make(map[core.Stage][]byte)}
	for _, checkpoint := range checkpoints {
		if checkpoint.Status == core.StageSucceeded {
			succeeded[checkpoint.Stage] = true
			sc.Payloads[checkpoint.Stage] = checkpoint.Payload
		}
	}

	stages := core.Stages()
	start := 0
	for start < len(stages) && succeeded[stages[start]] {
		start++
	}
	return sc, stages[start:], nil
}

// runStage executes one stage with the retry policy and commits its
// checkpoints: running before each attempt, then succeeded or failed.
func (o *Orchestrator) runStage(ctx context.Context, sc *pipeline.StageContext, stage core.Stage) ([]byte, error) {
	executor, err := o.pipeline.Executor(stage)
	if err != nil {
		return nil, pipeline.Fatal(stage, err)
	}

	started := time.Now()
	attempt := 0
	var payload []byte

	operation := func() error {
		attempt++
		if err := o.commit(ctx, &core.Checkpoint{
			JobID:   sc.Job.ID,
			Stage:   stage,
			Status:  core.StageRunning,
			Attempt: attempt,
		}); err != nil {
			return pipeline.Retryable(stage, err)
		}
		out, execErr := executor.Execute(ctx, sc)
		if execErr != nil {
			return execErr
		}
		payload = out
		return nil
	}

	err = RetryWithBackoff(ctx, operation, o.config.MaxAttempts,
		o.config.RetryBaseDelay, o.config.RetryMaxDelay, pipeline.IsRetryable)
	if err != nil {
		o.logger.Error("stage failed",
			"job_id", sc.Job.ID,
			"stage", stage.String(),
			"attempts", attempt,
			"error", err)
		if commitErr := o.commit(ctx, &core.Checkpoint{
			JobID:   sc.Job.ID,
			Stage:   stage,
			Status:  core.StageFailed,
			Attempt: attempt,
			Error:   err.Error(),
		}); commitErr != nil {
			o.logger.Error("checkpoint commit failed", "job_id", sc.Job.ID, "stage", stage.String(), "error", commitErr)
		}
		return nil, err
	}

	if err := o.commit(ctx, &core.Checkpoint{
		JobID:       sc.Job.ID,
		Stage:       stage,
		Status:      core.StageSucceeded,
		Payload:     payload,
		Attempt:     attempt,
		CompletedAt: time.Now().UTC(),
	}); err != nil {
		return nil, pipeline.Retryable(stage, err)
	}

	o.logger.Info("stage succeeded",
		"job_id", sc.Job.ID,
		"stage", stage.String(),
		"attempts", attempt,
		"duration", time.Since(started))
	return payload, nil
}

func (o *Orchestrator) commit(ctx context.Context, checkpoint *core.Checkpoint) error {
	return o.store.CommitCheckpoint(ctx, checkpoint)
}

// terminalStatusFor maps a stage failure to the job's terminal status.
// Fatal errors fail the job; exhausted retries and shutdown interrupt it
// so a later resume can pick up from the last checkpoint.
func terminalStatusFor(err error, cancelled bool) core.JobStatus {
	if cancelled && errors.Is(err, context.Canceled) {
		return core.JobCancelled
	}
	if pipeline.IsFatal(err) {
		return core.JobFailed
	}
	return core.JobInterrupted
}

// finish records a job's terminal status and ends its subscriptions.
func (o *Orchestrator) finish(job *core.Job, status core.JobStatus, cause error) {
	job.Status = status
	if cause != nil {
		job.Error = cause.Error()
	}
	if status == core.JobCompleted {
		job.Progress = core.ProgressAfter(core.StagePersistence)
	}

	// The base context may already be cancelled during shutdown; terminal
	// state must be recorded regardless.
	if _, err := o.store.UpdateJob(context.Background(), job); err != nil {
		o.logger.Error("terminal status update failed", "job_id", job.ID, "error", err)
	}
	o.clearCancelled(job.ID)
	o.publish(job)
	o.hub.CloseJob(job.ID)

	o.logger.Info("job finished",
		"job_id", job.ID,
		"status", status.String(),
		"progress", job.Progress)
}

func (o *Orchestrator) publish(job *core.Job) {
	o.hub.Publish(ProgressUpdate{
		JobID:     job.ID,
		Status:    job.Status.String(),
		Stage:     job.CurrentStage.String(),
		Progress:  job.Progress,
		Error:     job.Error,
		Timestamp: time.Now().UTC(),
	})
}
