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

package ai

import (
	"errors"
	"strings"
)

// ModelPrice holds per-1K-token USD rates used for cost accounting.
type ModelPrice struct {
	PromptUSDPer1K     float64
	CompletionUSDPer1K float64
}

// Config holds configuration for the AI model tiers.
// Each tier is bound to a concrete model here, at construction time,
// so callers only ever name tiers and tests can substitute fakes.
type Config struct {
	// ChatHost is the base URL for the chat/vision service API.
	// Example: "http://localhost:11434/v1" for local OpenAI-compatible server
	ChatHost string

	// EmbeddingHost is the base URL for the embedding service API.
	EmbeddingHost string

	// CheapModel is the fast/cheap tier used for bulk chunk filtering.
	// Example: "qwen2.5:3b", "gpt-4o-mini"
	CheapModel string

	// DeepModel is the expensive/high-quality tier used for enrichment.
	// Example: "qwen2.5:14b", "gpt-4o"
	DeepModel string

	// VisionModel is the tier used for page image analysis.
	// Example: "llava:13b"
	VisionModel string

	// EmbeddingModel is the model used for embeddings.
	// Example: "embeddinggemma", "text-embedding-3-small"
	EmbeddingModel string

	// Pricing maps model identifiers to token rates for cost reporting.
	// Models without an entry report zero cost.
	Pricing map[string]ModelPrice
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithHost sets both chat and embedding hosts to the same URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.ChatHost = host
		c.EmbeddingHost = host
	}
}

// WithChatHost sets the chat/vision service host URL.
func WithChatHost(host string) ConfigOption {
	return func(c *Config) {
		c.ChatHost = host
	}
}

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithCheapModel sets the fast-tier model identifier.
func WithCheapModel(model string) ConfigOption {
	return func(c *Config) {
		c.CheapModel = model
	}
}

// WithDeepModel sets the deep-tier model identifier.
func WithDeepModel(model string) ConfigOption {
	return func(c *Config) {
		c.DeepModel = model
	}
}

// WithVisionModel sets the vision-tier model identifier.
func WithVisionModel(model string) ConfigOption {
	return func(c *Config) {
		c.VisionModel = model
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithPricing sets the per-model token rates.
func WithPricing(pricing map[string]ModelPrice) ConfigOption {
	return func(c *Config) {
		c.Pricing = pricing
	}
}

// DefaultConfig returns a Config with sensible defaults for local
// OpenAI-compatible services. By default all tiers share one host.
func DefaultConfig() *Config {
	defaultHost := "http://localhost:11434/v1"
	return &Config{
		ChatHost:       defaultHost,
		EmbeddingHost:  defaultHost,
		CheapModel:     "qwen2.5:3b",
		DeepModel:      "qwen2.5:14b",
		VisionModel:    "llava:13b",
		EmbeddingModel: "embeddinggemma",
		Pricing:        map[string]ModelPrice{},
	}
}

// NewConfig creates a Config with the default values and applies the provided
// options. This is the recommended way to create a Config with custom settings.
//
// Example:
//
//	cfg := ai.NewConfig(
//	    ai.WithHost("http://localhost:11434/v1"),
//	    ai.WithCheapModel("gpt-4o-mini"),
//	    ai.WithDeepModel("gpt-4o"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// It automatically adds the /v1 suffix to hosts if missing, which is required
// by most OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc).
func (c *Config) Normalize() {
	if c.ChatHost != "" && !strings.HasSuffix(c.ChatHost, "/v1") {
		c.ChatHost = strings.TrimSuffix(c.ChatHost, "/") + "/v1"
	}
	if c.EmbeddingHost != "" && !strings.HasSuffix(c.EmbeddingHost, "/v1") {
		c.EmbeddingHost = strings.TrimSuffix(c.EmbeddingHost, "/") + "/v1"
	}
	if c.Pricing == nil {
		c.Pricing = map[string]ModelPrice{}
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.ChatHost == "" {
		return errors.New("ai config: ChatHost is required")
	}
	if c.EmbeddingHost == "" {
		return errors.New("ai config: EmbeddingHost is required")
	}
	if c.CheapModel == "" {
		return errors.New("ai config: CheapModel is required")
	}
	if c.DeepModel == "" {
		return errors.New("ai config: DeepModel is required")
	}
	if c.VisionModel == "" {
		return errors.New("ai config: VisionModel is required")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	return nil
}

// PriceFor returns the token rates for a model, or zero rates if unknown.
func (c *Config) PriceFor(model string) ModelPrice {
	if c.Pricing == nil {
		return ModelPrice{}
	}
	return c.Pricing[model]
}
