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

	"github.com/creativeghq/matflow/ai"
	"github.com/tmc/langchaingo/llms"
)

// ChunkClassifier implements ai.ChunkClassifier on the cheap model tier
// using OpenAI-compatible chat APIs.
type ChunkClassifier struct {
	client llms.Model
	model  string
	logger *slog.Logger
}

var _ ai.ChunkClassifier = (*ChunkClassifier)(nil)

// verdict is an internal type matching the JSON the model is prompted for.
type verdict struct {
	ChunkIndex       int     `json:"chunk_index"`
	IsCandidate      bool    `json:"is_candidate"`
	Confidence       float32 `json:"confidence"`
	ContentTypeGuess string  `json:"content_type_guess"`
}

// verdictList is the wrapper structure for the model's JSON response.
type verdictList struct {
	Verdicts []verdict `json:"verdicts"`
}

// newChunkClassifier is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newChunkClassifier(config *ai.Config) (*ChunkClassifier, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := newChatClient(config.ChatHost, config.CheapModel)
	if err != nil {
		return nil, err
	}

	return &ChunkClassifier{
		client: client,
		model:  config.CheapModel,
		logger: slog.Default().With("component", "openai-classifier"),
	}, nil
}

// NewChunkClassifier creates a cheap-tier classifier from the configuration.
//
// Returns ai.ChunkClassifier interface to enforce abstraction.
func NewChunkClassifier(config *ai.Config) (ai.ChunkClassifier, error) {
	return newChunkClassifier(config)
}

// ClassifyChunks asks the cheap model for one verdict per chunk in the batch.
// Malformed JSON responses are retried up to 3 times; the response is
// schema-validated before decoding.
func (c *ChunkClassifier) ClassifyChunks(ctx context.Context, texts []string) ([]ai.ChunkVerdict, ai.CallUsage, error) {
	usage := ai.CallUsage{Model: c.model}
	if len(texts) == 0 {
		return nil, usage, nil
	}

	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(buildClassificationPrompt())},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(formatChunkBatch(texts))},
		},
	}

	// Try up to 3 times in case of malformed JSON
	var result verdictList
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		response, err := c.client.GenerateContent(ctx, content,
			llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			c.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, usage, err
		}

		text, info, err := firstChoiceJSON(response)
		if err != nil {
			c.logger.Debug("no choices returned from model")
			return []ai.ChunkVerdict{}, usage, nil
		}
		usage.PromptTokens += tokenCount(info, "PromptTokens")
		usage.CompletionTokens += tokenCount(info, "CompletionTokens")

		if err := validateAgainst(classificationSchema, text); err != nil {
			lastErr = err
			c.logger.Warn("error validating classifier response",
				"attempt", attempt+1, "err", err)
			continue
		}
		if err := decodeJSON(text, &result); err != nil {
			lastErr = err
			c.logger.Warn("error parsing classifier response",
				"attempt", attempt+1, "err", err)
			continue
		}

		lastErr = nil
		break
	}

	if lastErr != nil {
		c.logger.Error("failed to parse classifier response after retries", "err", lastErr)
		return nil, usage, lastErr
	}

	verdicts := make([]ai.ChunkVerdict, 0, len(result.Verdicts))
	for _, v := range result.Verdicts {
		if v.ChunkIndex < 0 || v.ChunkIndex >= len(texts) {
			c.logger.Warn("verdict references unknown chunk index", "index", v.ChunkIndex)
			continue
		}
		verdicts = append(verdicts, ai.ChunkVerdict{
			ChunkIndex:       v.ChunkIndex,
			IsCandidate:      v.IsCandidate,
			Confidence:       v.Confidence,
			ContentTypeGuess: v.ContentTypeGuess,
		})
	}

	c.logger.Debug("classified chunk batch",
		"chunks", len(texts),
		"verdicts", len(verdicts))
	return verdicts, usage, nil
}
