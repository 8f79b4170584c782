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

package metadata

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/creativeghq/matflow/ai"
	"github.com/creativeghq/matflow/core"
	"github.com/creativeghq/matflow/storage"
)

// SimilarityThreshold is the minimum cosine similarity for a raw value to
// match a prototype. Extraction-time and query-time canonicalization both go
// through Validator.Validate, so the threshold cannot drift between them.
const SimilarityThreshold float32 = 0.80

// Validator canonicalizes free-text property values against the prototype
// embeddings registered for each material property.
type Validator struct {
	gateway    *ai.Gateway
	properties storage.PropertyRepository
	logger     *slog.Logger
}

// NewValidator creates a validator over the given gateway and registry.
func NewValidator(gateway *ai.Gateway, properties storage.PropertyRepository) *Validator {
	return &Validator{
		gateway:    gateway,
		properties: properties,
		logger:     slog.Default().With("component", "metadata-validator"),
	}
}

// Validate canonicalizes one raw property value.
//
// Unknown property keys are registered on first sight with empty prototypes.
// A property without prototypes passes the raw value through with
// similarity 1.0 and matched false; that is the normal path for custom
// metadata, not a degraded one. Otherwise the raw value is embedded, compared
// against every prototype, and mapped to the best canonical value when the
// similarity clears SimilarityThreshold.
//
// Unmatched raw values are counted in the registry so an operator workflow
// can promote frequent ones into new prototypes later.
func (v *Validator) Validate(ctx context.Context, scope ai.CallScope, propertyKey, rawValue string) (core.ValidationResult, error) {
	result := core.ValidationResult{
		PropertyKey:    propertyKey,
		RawValue:       rawValue,
		CanonicalValue: rawValue,
	}

	key := strings.TrimSpace(strings.ToLower(propertyKey))
	if key == "" {
		return result, core.ErrEmptyPropertyKey
	}
	result.PropertyKey = key

	property, err := v.properties.GetOrCreateProperty(ctx, key, "string")
	if err != nil {
		return result, fmt.Errorf("property lookup for %q: %w", key, err)
	}

	if len(property.Prototypes) == 0 {
		result.Similarity = 1.0
		v.countUnmatched(ctx, key, rawValue)
		return result, nil
	}

	vector, err := v.gateway.EmbedText(ctx, scope, rawValue)
	if err != nil {
		return result, fmt.Errorf("embed %q: %w", rawValue, err)
	}
	vector = core.NormalizeVector(vector)

	var (
		best          float32
		bestCanonical string
	)
	for canonical, prototype := range property.Prototypes {
		similarity := core.DotProduct(vector, prototype)
		if similarity > best || bestCanonical == "" {
			best = similarity
			bestCanonical = canonical
		}
	}

	result.Similarity = best
	if best >= SimilarityThreshold {
		result.CanonicalValue = bestCanonical
		result.Matched = true
		return result, nil
	}

	v.countUnmatched(ctx, key, rawValue)
	return result, nil
}

// countUnmatched bumps the raw-value counter; failures are logged only,
// the counter is advisory input for the offline prototype workflow.
func (v *Validator) countUnmatched(ctx context.Context, key, rawValue string) {
	if rawValue == "" {
		return
	}
	if err := v.properties.IncrementRawValue(ctx, key, rawValue); err != nil {
		v.logger.Warn("raw value count failed",
			"property", key, "error", err)
	}
}
