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

package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/creativeghq/matflow/core"
)

// ClassificationBatchSize is how many chunks ride in one cheap-tier call.
const ClassificationBatchSize = 10

// classificationExecutor is the cheap first pass of the two-stage
// classifier: prefilter, then batched model verdicts, keeping chunks that
// are product-like with confidence at or above core.MinConfidence.
type classificationExecutor struct {
	deps   Deps
	logger *slog.Logger
}

func newClassificationExecutor(deps Deps) *classificationExecutor {
	return &classificationExecutor{
		deps:   deps,
		logger: slog.Default().With("component", "stage-classification"),
	}
}

func (e *classificationExecutor) Stage() core.Stage {
	return core.StageClassification
}

func (e *classificationExecutor) Execute(ctx context.Context, sc *StageContext) ([]byte, error) {
	stage := e.Stage()

	chunks, err := e.deps.Store.ListChunksByJob(ctx, sc.Job.ID)
	if err != nil {
		return nil, Retryable(stage, err)
	}

	payload := ClassificationPayload{}

	// Cheap rule-based rejection before any model call.
	var classifiable []*core.Chunk
	for _, chunk := range chunks {
		if ok, reason := shouldClassify(chunk.Content); !ok {
			payload.Prefiltered++
			e.logger.Debug("chunk prefiltered",
				"job_id", sc.Job.ID,
				"chunk_index", chunk.Index,
				"reason", reason)
			continue
		}
		classifiable = append(classifiable, chunk)
	}

	scope := sc.Scope(stage)
	var batchErrs []error
	for start := 0; start < len(classifiable); start += ClassificationBatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := start + ClassificationBatchSize
		if end > len(classifiable) {
			end = len(classifiable)
		}
		batch := classifiable[start:end]
		payload.Batches++

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Content
		}

		verdicts, err := e.deps.Gateway.ClassifyChunks(ctx, scope, texts)
		if err != nil {
			// One failed batch loses its chunks, not the stage.
			payload.FailedBatches++
			batchErrs = append(batchErrs, err)
			e.logger.Warn("classification batch failed",
				"job_id", sc.Job.ID,
				"batch", payload.Batches,
				"error", err)
			continue
		}

		for _, verdict := range verdicts {
			if verdict.ChunkIndex < 0 || verdict.ChunkIndex >= len(batch) {
				continue
			}
			if !verdict.IsCandidate || verdict.Confidence < core.MinConfidence {
				continue
			}
			chunk := batch[verdict.ChunkIndex]
			payload.Candidates = append(payload.Candidates, CandidateRef{
				ChunkID:          chunk.ID,
				Index:            chunk.Index,
				Confidence:       verdict.Confidence,
				ContentTypeGuess: verdict.ContentTypeGuess,
			})
		}
	}

	// All batches failing means the model backend is down.
	if payload.Batches > 0 && payload.FailedBatches == payload.Batches {
		return nil, wrapModelError(stage, errors.Join(batchErrs...))
	}

	e.logger.Info("chunks classified",
		"job_id", sc.Job.ID,
		"chunks", len(chunks),
		"prefiltered", payload.Prefiltered,
		"batches", payload.Batches,
		"failed_batches", payload.FailedBatches,
		"candidates", len(payload.Candidates))

	return encodePayload(payload)
}
