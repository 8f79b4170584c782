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

package openai

import (
	"context"
	"log/slog"
	"strings"

	"github.com/creativeghq/matflow/ai"
	"github.com/tmc/langchaingo/llms"
)

// ProductEnricher implements ai.ProductEnricher on the deep model tier
// using OpenAI-compatible chat APIs.
type ProductEnricher struct {
	client llms.Model
	model  string
	logger *slog.Logger
}

var _ ai.ProductEnricher = (*ProductEnricher)(nil)

// extraction is an internal type matching the JSON the model is prompted for.
type extraction struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Designer    string            `json:"designer"`
	Collection  string            `json:"collection"`
	Attributes  map[string]string `json:"attributes"`
	Quality     string            `json:"quality_assessment"`
	Confidence  float32           `json:"confidence"`
}

// newProductEnricher is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newProductEnricher(config *ai.Config) (*ProductEnricher, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := newChatClient(config.ChatHost, config.DeepModel)
	if err != nil {
		return nil, err
	}

	return &ProductEnricher{
		client: client,
		model:  config.DeepModel,
		logger: slog.Default().With("component", "openai-enricher"),
	}, nil
}

// NewProductEnricher creates a deep-tier enricher from the configuration.
//
// Returns ai.ProductEnricher interface to enforce abstraction.
func NewProductEnricher(config *ai.Config) (ai.ProductEnricher, error) {
	return newProductEnricher(config)
}

// EnrichChunk extracts full structured product data from candidate text.
// Responses are schema-validated; malformed JSON is retried up to 3 times.
func (e *ProductEnricher) EnrichChunk(ctx context.Context, text string) (*ai.EnrichmentResult, ai.CallUsage, error) {
	usage := ai.CallUsage{Model: e.model}

	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(buildEnrichmentPrompt())},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(strings.TrimSpace(text))},
		},
	}

	var result extraction
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		response, err := e.client.GenerateContent(ctx, content,
			llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			e.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, usage, err
		}

		cleaned, info, err := firstChoiceJSON(response)
		if err != nil {
			lastErr = err
			continue
		}
		usage.PromptTokens += tokenCount(info, "PromptTokens")
		usage.CompletionTokens += tokenCount(info, "CompletionTokens")

		if err := validateAgainst(enrichmentSchema, cleaned); err != nil {
			lastErr = err
			e.logger.Warn("error validating enrichment response",
				"attempt", attempt+1, "err", err)
			continue
		}
		if err := decodeJSON(cleaned, &result); err != nil {
			lastErr = err
			e.logger.Warn("error parsing enrichment response",
				"attempt", attempt+1, "err", err)
			continue
		}

		lastErr = nil
		break
	}

	if lastErr != nil {
		e.logger.Error("failed to parse enrichment response after retries", "err", lastErr)
		return nil, usage, lastErr
	}

	if result.Attributes == nil {
		result.Attributes = map[string]string{}
	}

	return &ai.EnrichmentResult{
		Name:        strings.TrimSpace(result.Name),
		Description: strings.TrimSpace(result.Description),
		Designer:    strings.TrimSpace(result.Designer),
		Collection:  strings.TrimSpace(result.Collection),
		Attributes:  result.Attributes,
		Quality:     result.Quality,
		Confidence:  result.Confidence,
	}, usage, nil
}
