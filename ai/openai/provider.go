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
	"log/slog"
	"os"

	"github.com/creativeghq/matflow/ai"
	"github.com/tmc/langchaingo/llms/openai"
)

// Provider implements ai.Provider using OpenAI-compatible services.
// It binds each model tier to a concrete client at construction.
type Provider struct {
	config     *ai.Config
	classifier *ChunkClassifier
	enricher   *ProductEnricher
	embedder   *Embedder
	vision     *VisionAnalyzer
	logger     *slog.Logger
}

var _ ai.Provider = (*Provider)(nil)

// apiToken returns the API token for OpenAI-compatible services.
// Local services (Ollama, LocalAI, vLLM) accept any non-empty token.
func apiToken() string {
	if token := os.Getenv("OPENAI_API_KEY"); token != "" {
		return token
	}
	return "none"
}

// newChatClient creates an OpenAI-compatible chat client for one model tier.
func newChatClient(host, model string) (*openai.LLM, error) {
	return openai.New(
		openai.WithBaseURL(host),
		openai.WithToken(apiToken()),
		openai.WithModel(model),
	)
}

// NewProvider creates a new AI provider with OpenAI-compatible services.
// The config is validated and normalized before use.
//
// Returns ai.Provider interface (not *Provider) to enforce abstraction
// and prevent coupling to OpenAI-specific implementation details.
func NewProvider(config *ai.Config) (ai.Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	classifier, err := newChunkClassifier(config)
	if err != nil {
		return nil, err
	}

	enricher, err := newProductEnricher(config)
	if err != nil {
		return nil, err
	}

	embedder, err := newEmbedder(config)
	if err != nil {
		return nil, err
	}

	vision, err := newVisionAnalyzer(config)
	if err != nil {
		return nil, err
	}

	return &Provider{
		config:     config,
		classifier: classifier,
		enricher:   enricher,
		embedder:   embedder,
		vision:     vision,
		logger:     slog.Default().With("component", "openai-provider"),
	}, nil
}

// ChunkClassifier returns the cheap-tier batch classifier.
func (p *Provider) ChunkClassifier() ai.ChunkClassifier {
	return p.classifier
}

// ProductEnricher returns the deep-tier enricher.
func (p *Provider) ProductEnricher() ai.ProductEnricher {
	return p.enricher
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// VisionAnalyzer returns the vision service.
func (p *Provider) VisionAnalyzer() ai.VisionAnalyzer {
	return p.vision
}

// Close releases resources held by the provider.
// Currently a no-op as the underlying clients don't require explicit cleanup.
func (p *Provider) Close() error {
	p.logger.Debug("closing OpenAI provider")
	return nil
}
