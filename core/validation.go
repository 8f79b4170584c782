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

package core

import "fmt"

// ValidateJob validates a Job according to domain rules.
//
// Validation rules:
//   - DocumentRef must not be empty
//   - WorkspaceID must not be empty
//   - CurrentStage must be a defined pipeline stage
//
// NOT validated (populated by the orchestrator):
//   - ID (assigned at submission)
//   - Progress (derived from checkpoints)
func ValidateJob(job *Job) error {
	if job == nil {
		return fmt.Errorf("%w: job is nil", ErrInvalidJob)
	}

	if job.DocumentRef == "" {
		return fmt.Errorf("%w: %w", ErrInvalidJob, ErrEmptyDocumentRef)
	}

	if job.WorkspaceID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidJob, ErrEmptyWorkspaceID)
	}

	if !job.CurrentStage.Valid() {
		return fmt.Errorf("%w: %w", ErrInvalidJob, ErrInvalidStage)
	}

	return nil
}

// ValidateCheckpoint validates a Checkpoint according to domain rules.
func ValidateCheckpoint(cp *Checkpoint) error {
	if cp == nil {
		return fmt.Errorf("%w: checkpoint is nil", ErrInvalidCheckpoint)
	}

	if cp.JobID == "" {
		return fmt.Errorf("%w: job id cannot be empty", ErrInvalidCheckpoint)
	}

	if !cp.Stage.Valid() {
		return fmt.Errorf("%w: %w", ErrInvalidCheckpoint, ErrInvalidStage)
	}

	return nil
}

// ValidateChunk validates a Chunk according to domain rules.
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyContent)
	}

	return nil
}

// ValidateProduct validates a Product before persistence.
//
// Validation rules:
//   - Name must not be empty
//   - Confidence must be in [0, 1] and at least MinConfidence
//   - Quality must not be low
//
// The confidence and quality gates are independent; both must pass.
func ValidateProduct(product *Product) error {
	if product == nil {
		return fmt.Errorf("%w: product is nil", ErrInvalidProduct)
	}

	if product.Name == "" {
		return fmt.Errorf("%w: %w", ErrInvalidProduct, ErrEmptyProductName)
	}

	if product.Confidence < 0 || product.Confidence > 1 {
		return fmt.Errorf("%w: %w", ErrInvalidProduct, ErrConfidenceRange)
	}

	if product.Confidence < MinConfidence {
		return fmt.Errorf("%w: confidence %.2f below minimum %.2f",
			ErrInvalidProduct, product.Confidence, MinConfidence)
	}

	if product.Quality == QualityLow {
		return fmt.Errorf("%w: low quality records are never persisted", ErrInvalidProduct)
	}

	return nil
}
