package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/creativeghq/matflow/ai"
)

// MockProductEnricher is a test double for ai.ProductEnricher.
// It allows custom behavior injection via function fields.
type MockProductEnricher struct {
	// EnrichChunkFunc is called by EnrichChunk if set.
	// If nil, uses default extraction from the first line of text.
	EnrichChunkFunc func(ctx context.Context, text string) (*ai.EnrichmentResult, error)

	mu        sync.Mutex
	callCount int
}

var _ ai.ProductEnricher = (*MockProductEnricher)(nil)

// NewMockProductEnricher creates a mock enricher with default behavior.
// Note: Returns concrete type to allow test assertions.
func NewMockProductEnricher() *MockProductEnricher {
	return &MockProductEnricher{}
}

// EnrichChunk returns a high-quality extraction named after the first word
// of the text.
func (m *MockProductEnricher) EnrichChunk(ctx context.Context, text string) (*ai.EnrichmentResult, ai.CallUsage, error) {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()

	usage := ai.CallUsage{Model: "mock-deep", PromptTokens: 50, CompletionTokens: 30}

	if m.EnrichChunkFunc != nil {
		result, err := m.EnrichChunkFunc(ctx, text)
		return result, usage, err
	}

	name := "UNKNOWN"
	if fields := strings.Fields(text); len(fields) > 0 {
		name = strings.ToUpper(strings.Trim(fields[0], ".,:;"))
	}

	return &ai.EnrichmentResult{
		Name:        name,
		Description: "mock extraction",
		Attributes:  map[string]string{"material": "porcelain stoneware"},
		Quality:     "high",
		Confidence:  0.9,
	}, usage, nil
}

// CallCount returns the number of times EnrichChunk was called.
func (m *MockProductEnricher) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockProductEnricher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.EnrichChunkFunc = nil
}
