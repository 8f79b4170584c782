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
	"fmt"
	"log/slog"

	"github.com/creativeghq/matflow/core"
)

// enrichmentExecutor is the deep second pass of the two-stage classifier:
// one expensive structured-extraction call per surviving candidate,
// followed by inline metadata canonicalization. Records keep only when
// confidence clears core.MinConfidence AND quality is above low; the two
// gates are independent.
type enrichmentExecutor struct {
	deps   Deps
	logger *slog.Logger
}

func newEnrichmentExecutor(deps Deps) *enrichmentExecutor {
	return &enrichmentExecutor{
		deps:   deps,
		logger: slog.Default().With("component", "stage-enrichment"),
	}
}

func (e *enrichmentExecutor) Stage() core.Stage {
	return core.StageEnrichment
}

func (e *enrichmentExecutor) Execute(ctx context.Context, sc *StageContext) ([]byte, error) {
	stage := e.Stage()

	var classification ClassificationPayload
	if err := sc.payload(core.StageClassification, &classification); err != nil {
		return nil, Fatal(stage, err)
	}

	chunks, err := e.deps.Store.ListChunksByJob(ctx, sc.Job.ID)
	if err != nil {
		return nil, Retryable(stage, err)
	}
	byID := make(map[core.ID]*core.Chunk, len(chunks))
	for _, chunk := range chunks {
		byID[chunk.ID] = chunk
	}

	payload := EnrichmentPayload{}
	scope := sc.Scope(stage)

	var itemErrs []error
	for _, candidate := range classification.Candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		chunk, ok := byID[candidate.ChunkID]
		if !ok {
			// Chunk store and checkpoint disagree; skip, don't guess.
			payload.FailedItems = append(payload.FailedItems, fmt.Sprintf("%d", candidate.ChunkID))
			itemErrs = append(itemErrs, fmt.Errorf("chunk %d not found", candidate.ChunkID))
			continue
		}

		result, err := e.deps.Gateway.EnrichChunk(ctx, scope, chunk.Content)
		if err != nil {
			payload.FailedItems = append(payload.FailedItems, fmt.Sprintf("%d", candidate.ChunkID))
			itemErrs = append(itemErrs, err)
			e.logger.Warn("candidate enrichment failed",
				"job_id", sc.Job.ID,
				"chunk_index", chunk.Index,
				"error", err)
			continue
		}

		record := core.EnrichedRecord{
			CandidateRef: candidate.ChunkID,
			Name:         result.Name,
			Description:  result.Description,
			Designer:     result.Designer,
			Collection:   result.Collection,
			Attributes:   result.Attributes,
			Quality:      core.ParseQualityLevel(result.Quality),
			Confidence:   result.Confidence,
		}

		if reason := dropReason(record); reason != "" {
			payload.Dropped++
			e.logger.Debug("candidate dropped",
				"job_id", sc.Job.ID,
				"chunk_index", chunk.Index,
				"reason", reason)
			continue
		}

		if err := e.canonicalize(ctx, sc, &record); err != nil {
			return nil, err
		}
		payload.Records = append(payload.Records, record)
	}

	// Every candidate failing on model calls is a backend problem; surface
	// it with the gateway's retryable/fatal classification intact.
	if len(classification.Candidates) > 0 &&
		len(payload.Records) == 0 && payload.Dropped == 0 && len(itemErrs) > 0 {
		return nil, wrapModelError(stage, errors.Join(itemErrs...))
	}

	e.logger.Info("candidates enriched",
		"job_id", sc.Job.ID,
		"candidates", len(classification.Candidates),
		"records", len(payload.Records),
		"dropped", payload.Dropped,
		"failed", len(payload.FailedItems))

	return encodePayload(payload)
}

// dropReason names the first gate a record fails, or returns "" when the
// record passes all of them. Confidence and quality gate independently.
func dropReason(record core.EnrichedRecord) string {
	switch {
	case record.Name == "":
		return "missing name"
	case record.Confidence < core.MinConfidence:
		return "confidence below threshold"
	case record.Quality == core.QualityLow:
		return "low quality"
	}
	return ""
}

// canonicalize maps every extracted attribute through the prototype
// validator. Matched values are replaced by their canonical form; all
// results, matched or not, ride on the record for scoring.
func (e *enrichmentExecutor) canonicalize(ctx context.Context, sc *StageContext, record *core.EnrichedRecord) error {
	scope := sc.Scope(e.Stage())
	for key, value := range record.Attributes {
		if value == "" {
			continue
		}
		result, err := e.deps.Validator.Validate(ctx, scope, key, value)
		if err != nil {
			return wrapModelError(e.Stage(), err)
		}
		if result.Matched {
			record.Attributes[key] = result.CanonicalValue
		}
		record.Validations = append(record.Validations, result)
	}
	return nil
}
