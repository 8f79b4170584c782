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
	"context"
	"log/slog"
	"time"

	"github.com/creativeghq/matflow/core"
)

// CallScope attributes a model call to a (job, stage) pair for usage
// accounting. Query-time callers (e.g. filter expansion) use an empty JobID;
// their calls are made but not recorded against any job.
type CallScope struct {
	JobID string
	Stage core.Stage
}

// Gateway is the uniform dispatch layer over the model tiers. Every external
// model call goes through it so that usage (calls, tokens, cost, latency) is
// recorded per (job, stage, model) and failures are classified as retryable
// or fatal in exactly one place.
type Gateway struct {
	provider Provider
	usage    UsageStore
	config   *Config
	logger   *slog.Logger
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGateway creates a gateway over the given provider. Usage deltas are
// written to store; pricing comes from config.
func NewGateway(provider Provider, store UsageStore, config *Config, opts ...GatewayOption) (*Gateway, error) {
	if provider == nil {
		return nil, ErrProviderRequired
	}
	if store == nil {
		return nil, ErrUsageStoreRequired
	}
	if config == nil {
		config = DefaultConfig()
	}

	g := &Gateway{
		provider: provider,
		usage:    store,
		config:   config,
		logger:   slog.Default().With("component", "model-gateway"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// ClassifyChunks dispatches a batch to the cheap tier.
func (g *Gateway) ClassifyChunks(ctx context.Context, scope CallScope, texts []string) ([]ChunkVerdict, error) {
	start := time.Now()
	verdicts, usage, err := g.provider.ChunkClassifier().ClassifyChunks(ctx, texts)
	g.record(ctx, scope, usage, time.Since(start))
	if err != nil {
		return nil, Classify(err)
	}
	return verdicts, nil
}

// EnrichChunk dispatches one candidate to the deep tier.
func (g *Gateway) EnrichChunk(ctx context.Context, scope CallScope, text string) (*EnrichmentResult, error) {
	start := time.Now()
	result, usage, err := g.provider.ProductEnricher().EnrichChunk(ctx, text)
	g.record(ctx, scope, usage, time.Since(start))
	if err != nil {
		return nil, Classify(err)
	}
	return result, nil
}

// EmbedText dispatches a single text to the embedding tier.
func (g *Gateway) EmbedText(ctx context.Context, scope CallScope, text string) ([]float32, error) {
	start := time.Now()
	vector, usage, err := g.provider.Embedder().EmbedText(ctx, text)
	g.record(ctx, scope, usage, time.Since(start))
	if err != nil {
		return nil, Classify(err)
	}
	return vector, nil
}

// EmbedTexts dispatches a batch of texts to the embedding tier.
func (g *Gateway) EmbedTexts(ctx context.Context, scope CallScope, texts []string) ([][]float32, error) {
	start := time.Now()
	vectors, usage, err := g.provider.Embedder().EmbedTexts(ctx, texts)
	g.record(ctx, scope, usage, time.Since(start))
	if err != nil {
		return nil, Classify(err)
	}
	return vectors, nil
}

// AnalyzeImage dispatches one image to the vision tier.
func (g *Gateway) AnalyzeImage(ctx context.Context, scope CallScope, image []byte, mimeType string) (*ImageAnalysis, error) {
	start := time.Now()
	analysis, usage, err := g.provider.VisionAnalyzer().AnalyzeImage(ctx, image, mimeType)
	g.record(ctx, scope, usage, time.Since(start))
	if err != nil {
		return nil, Classify(err)
	}
	return analysis, nil
}

// record writes one call's usage delta. Failures to persist usage are logged,
// never propagated: accounting must not fail a stage that already paid for
// its external call.
func (g *Gateway) record(ctx context.Context, scope CallScope, usage CallUsage, latency time.Duration) {
	if scope.JobID == "" || usage.Model == "" {
		return
	}

	price := g.config.PriceFor(usage.Model)
	cost := float64(usage.PromptTokens)/1000*price.PromptUSDPer1K +
		float64(usage.CompletionTokens)/1000*price.CompletionUSDPer1K

	delta := core.UsageRecord{
		JobID:            scope.JobID,
		Stage:            scope.Stage,
		Model:            usage.Model,
		Calls:            1,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		CostUSD:          cost,
		LatencyMs:        latency.Milliseconds(),
	}
	if err := g.usage.AddUsage(ctx, delta); err != nil {
		g.logger.Error("failed to record model usage",
			"job_id", scope.JobID,
			"stage", scope.Stage.String(),
			"model", usage.Model,
			"err", err)
	}
}
