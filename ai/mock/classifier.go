package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/creativeghq/matflow/ai"
)

// MockChunkClassifier is a test double for ai.ChunkClassifier.
// It allows custom behavior injection via function fields.
type MockChunkClassifier struct {
	// ClassifyChunksFunc is called by ClassifyChunks if set.
	// If nil, uses a simple keyword heuristic.
	ClassifyChunksFunc func(ctx context.Context, texts []string) ([]ai.ChunkVerdict, error)

	mu        sync.Mutex
	callCount int
	// batchSizes records the size of every submitted batch, so tests can
	// assert on batching behavior.
	batchSizes []int
}

var _ ai.ChunkClassifier = (*MockChunkClassifier)(nil)

// NewMockChunkClassifier creates a mock classifier with default heuristics.
// Note: Returns concrete type to allow test assertions.
func NewMockChunkClassifier() *MockChunkClassifier {
	return &MockChunkClassifier{}
}

// ClassifyChunks returns one verdict per text.
// Default behavior: texts containing "product" are candidates with high
// confidence; everything else is a non-candidate.
func (m *MockChunkClassifier) ClassifyChunks(ctx context.Context, texts []string) ([]ai.ChunkVerdict, ai.CallUsage, error) {
	m.mu.Lock()
	m.callCount++
	m.batchSizes = append(m.batchSizes, len(texts))
	m.mu.Unlock()

	usage := ai.CallUsage{Model: "mock-cheap", PromptTokens: 10 * len(texts), CompletionTokens: 5 * len(texts)}

	if m.ClassifyChunksFunc != nil {
		verdicts, err := m.ClassifyChunksFunc(ctx, texts)
		return verdicts, usage, err
	}

	verdicts := make([]ai.ChunkVerdict, 0, len(texts))
	for i, text := range texts {
		lower := strings.ToLower(text)
		verdict := ai.ChunkVerdict{ChunkIndex: i, ContentTypeGuess: "other", Confidence: 0.9}
		if strings.Contains(lower, "product") {
			verdict.IsCandidate = true
			verdict.ContentTypeGuess = "product"
		}
		verdicts = append(verdicts, verdict)
	}
	return verdicts, usage, nil
}

// CallCount returns the number of times ClassifyChunks was called.
func (m *MockChunkClassifier) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// BatchSizes returns the sizes of all submitted batches.
func (m *MockChunkClassifier) BatchSizes() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int, len(m.batchSizes))
	copy(out, m.batchSizes)
	return out
}

// Reset clears recorded calls and custom functions.
func (m *MockChunkClassifier) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.batchSizes = nil
	m.ClassifyChunksFunc = nil
}
