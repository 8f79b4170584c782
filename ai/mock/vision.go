package mock

import (
	"context"
	"sync"

	"github.com/creativeghq/matflow/ai"
)

// MockVisionAnalyzer is a test double for ai.VisionAnalyzer.
// It allows custom behavior injection via function fields.
type MockVisionAnalyzer struct {
	// AnalyzeImageFunc is called by AnalyzeImage if set.
	AnalyzeImageFunc func(ctx context.Context, image []byte, mimeType string) (*ai.ImageAnalysis, error)

	mu        sync.Mutex
	callCount int
}

var _ ai.VisionAnalyzer = (*MockVisionAnalyzer)(nil)

// NewMockVisionAnalyzer creates a mock vision analyzer with default behavior.
// Note: Returns concrete type to allow test assertions.
func NewMockVisionAnalyzer() *MockVisionAnalyzer {
	return &MockVisionAnalyzer{}
}

// AnalyzeImage returns a fixed caption and tags.
func (m *MockVisionAnalyzer) AnalyzeImage(ctx context.Context, image []byte, mimeType string) (*ai.ImageAnalysis, ai.CallUsage, error) {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()

	usage := ai.CallUsage{Model: "mock-vision", PromptTokens: 100, CompletionTokens: 20}

	if m.AnalyzeImageFunc != nil {
		analysis, err := m.AnalyzeImageFunc(ctx, image, mimeType)
		return analysis, usage, err
	}

	return &ai.ImageAnalysis{
		Caption: "catalog page showing a tiled surface",
		Tags:    []string{"tile", "surface", "catalog"},
	}, usage, nil
}

// CallCount returns the number of times AnalyzeImage was called.
func (m *MockVisionAnalyzer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockVisionAnalyzer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.AnalyzeImageFunc = nil
}
