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

// Package pipeline implements the checkpointed stage executors that take a
// catalog document from raw bytes to persisted products.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/creativeghq/matflow/ai"
	"github.com/creativeghq/matflow/core"
	"github.com/creativeghq/matflow/extract"
	"github.com/creativeghq/matflow/metadata"
	"github.com/creativeghq/matflow/storage"
)

// StageContext carries the job and the payloads of previously completed
// stages into an executor. The orchestrator assembles it from checkpoints,
// which is what makes resume idempotent: an executor sees the same inputs
// whether the earlier stages ran in this process or a previous one.
type StageContext struct {
	Job      *core.Job
	Payloads map[core.Stage][]byte
}

// Scope attributes model calls made by a stage to the job.
func (sc *StageContext) Scope(stage core.Stage) ai.CallScope {
	return ai.CallScope{JobID: sc.Job.ID, Stage: stage}
}

// payload decodes the committed payload of an earlier stage into v.
func (sc *StageContext) payload(stage core.Stage, v any) error {
	data, ok := sc.Payloads[stage]
	if !ok {
		return fmt.Errorf("missing payload for stage %s", stage)
	}
	return decodePayload(data, v)
}

// Executor runs one pipeline stage to completion and returns the payload
// to commit with its checkpoint. Executors must be idempotent: re-running
// a stage after a crash must converge on the same stored state.
type Executor interface {
	Stage() core.Stage
	Execute(ctx context.Context, sc *StageContext) ([]byte, error)
}

// Deps are the collaborators shared by the stage executors.
type Deps struct {
	Store     storage.Store
	Artifacts storage.ArtifactStore
	Extractor extract.DocumentExtractor
	Gateway   *ai.Gateway
	Validator *metadata.Validator
}

type settings struct {
	innerConcurrency int
	minChunkLength   int
	targetChunkSize  int
}

// Option configures pipeline tuning knobs.
type Option func(*settings)

// WithInnerConcurrency caps the per-stage fan-out pool (image analysis).
func WithInnerConcurrency(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.innerConcurrency = n
		}
	}
}

// WithMinChunkLength sets the minimum rune count a chunk must have to be
// classified; shorter fragments are dropped during chunking.
func WithMinChunkLength(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.minChunkLength = n
		}
	}
}

// WithTargetChunkSize sets the soft upper bound for merged chunk size.
func WithTargetChunkSize(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.targetChunkSize = n
		}
	}
}

// Pipeline holds the stage executors in pipeline order.
type Pipeline struct {
	executors map[core.Stage]Executor
}

// New builds the seven stage executors over the shared dependencies.
func New(deps Deps, opts ...Option) (*Pipeline, error) {
	if deps.Store == nil {
		return nil, errors.New("store is required")
	}
	if deps.Artifacts == nil {
		return nil, errors.New("artifact store is required")
	}
	if deps.Extractor == nil {
		return nil, errors.New("document extractor is required")
	}
	if deps.Gateway == nil {
		return nil, errors.New("model gateway is required")
	}
	if deps.Validator == nil {
		return nil, errors.New("metadata validator is required")
	}

	cfg := settings{
		innerConcurrency: defaultInnerConcurrency,
		minChunkLength:   defaultMinChunkLength,
		targetChunkSize:  defaultTargetChunkSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	executors := []Executor{
		newDiscoveryExecutor(deps),
		newExtractionExecutor(deps),
		newChunkingExecutor(deps, cfg),
		newImagesExecutor(deps, cfg),
		newClassificationExecutor(deps),
		newEnrichmentExecutor(deps),
		newPersistenceExecutor(deps),
	}

	byStage := make(map[core.Stage]Executor, len(executors))
	for _, executor := range executors {
		byStage[executor.Stage()] = executor
	}
	return &Pipeline{executors: byStage}, nil
}

// Executor returns the executor for a stage.
func (p *Pipeline) Executor(stage core.Stage) (Executor, error) {
	executor, ok := p.executors[stage]
	if !ok {
		return nil, fmt.Errorf("%w: no executor for stage %d", core.ErrInvalidStage, int(stage))
	}
	return executor, nil
}
