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

package mock

import "github.com/creativeghq/matflow/ai"

// MockProvider is a test double for ai.Provider.
// It aggregates mock instances of every model tier.
type MockProvider struct {
	classifier *MockChunkClassifier
	enricher   *MockProductEnricher
	embedder   *MockEmbedder
	vision     *MockVisionAnalyzer
}

var _ ai.Provider = (*MockProvider)(nil)

// NewMockProvider creates a new mock provider with default mock services.
//
// Returns the concrete type so tests can reach the underlying mocks for
// call-count assertions and behavior injection.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		classifier: NewMockChunkClassifier(),
		enricher:   NewMockProductEnricher(),
		embedder:   NewMockEmbedder(),
		vision:     NewMockVisionAnalyzer(),
	}
}

// ChunkClassifier returns the mock classifier.
func (p *MockProvider) ChunkClassifier() ai.ChunkClassifier {
	return p.classifier
}

// ProductEnricher returns the mock enricher.
func (p *MockProvider) ProductEnricher() ai.ProductEnricher {
	return p.enricher
}

// Embedder returns the mock embedder.
func (p *MockProvider) Embedder() ai.Embedder {
	return p.embedder
}

// VisionAnalyzer returns the mock vision analyzer.
func (p *MockProvider) VisionAnalyzer() ai.VisionAnalyzer {
	return p.vision
}

// Close is a no-op for mock provider.
func (p *MockProvider) Close() error {
	return nil
}

// Classifier returns the underlying mock classifier for test assertions.
func (p *MockProvider) Classifier() *MockChunkClassifier {
	return p.classifier
}

// Enricher returns the underlying mock enricher for test assertions.
func (p *MockProvider) Enricher() *MockProductEnricher {
	return p.enricher
}

// MockEmbedder returns the underlying mock embedder for test assertions.
func (p *MockProvider) MockEmbedder() *MockEmbedder {
	return p.embedder
}

// Vision returns the underlying mock vision analyzer for test assertions.
func (p *MockProvider) Vision() *MockVisionAnalyzer {
	return p.vision
}
