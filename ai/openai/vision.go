package openai

import (
	"context"
	"log/slog"
	"strings"

	"github.com/creativeghq/matflow/ai"
	"github.com/tmc/langchaingo/llms"
)

// VisionAnalyzer implements ai.VisionAnalyzer on the vision model tier
// using OpenAI-compatible multimodal chat APIs.
type VisionAnalyzer struct {
	client llms.Model
	model  string
	logger *slog.Logger
}

var _ ai.VisionAnalyzer = (*VisionAnalyzer)(nil)

// imageDescription is an internal type matching the prompted JSON shape.
type imageDescription struct {
	Caption string   `json:"caption"`
	Tags    []string `json:"tags"`
}

// newVisionAnalyzer is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newVisionAnalyzer(config *ai.Config) (*VisionAnalyzer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := newChatClient(config.ChatHost, config.VisionModel)
	if err != nil {
		return nil, err
	}

	return &VisionAnalyzer{
		client: client,
		model:  config.VisionModel,
		logger: slog.Default().With("component", "openai-vision"),
	}, nil
}

// NewVisionAnalyzer creates a vision analyzer from the configuration.
//
// Returns ai.VisionAnalyzer interface to enforce abstraction.
func NewVisionAnalyzer(config *ai.Config) (ai.VisionAnalyzer, error) {
	return newVisionAnalyzer(config)
}

// AnalyzeImage returns a caption and tags for the given image bytes.
func (v *VisionAnalyzer) AnalyzeImage(ctx context.Context, image []byte, mimeType string) (*ai.ImageAnalysis, ai.CallUsage, error) {
	usage := ai.CallUsage{Model: v.model}

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.BinaryPart(mimeType, image),
				llms.TextPart(visionPromptTemplate),
			},
		},
	}

	var result imageDescription
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		response, err := v.client.GenerateContent(ctx, content, llms.WithTemperature(0.0))
		if err != nil {
			v.logger.Error("failed to analyze image", "attempt", attempt+1, "err", err)
			return nil, usage, err
		}

		text, info, err := firstChoiceJSON(response)
		if err != nil {
			lastErr = err
			continue
		}
		usage.PromptTokens += tokenCount(info, "PromptTokens")
		usage.CompletionTokens += tokenCount(info, "CompletionTokens")

		if err := decodeJSON(text, &result); err != nil {
			lastErr = err
			v.logger.Warn("error parsing vision response", "attempt", attempt+1, "err", err)
			continue
		}

		lastErr = nil
		break
	}

	if lastErr != nil {
		v.logger.Error("failed to parse vision response after retries", "err", lastErr)
		return nil, usage, lastErr
	}

	return &ai.ImageAnalysis{
		Caption: strings.TrimSpace(result.Caption),
		Tags:    result.Tags,
	}, usage, nil
}
