package ai

import "context"

// ChunkVerdict is the cheap-tier judgement for a single chunk in a batch.
type ChunkVerdict struct {
	// ChunkIndex is the position of the chunk within the submitted batch.
	ChunkIndex int

	// IsCandidate reports whether the chunk looks like product content.
	IsCandidate bool

	// Confidence is the model's confidence in the verdict, 0-1.
	Confidence float32

	// ContentTypeGuess categorizes the chunk (e.g. "product", "index").
	// Should match one of the predefined content types.
	ContentTypeGuess string
}

// EnrichmentResult is the deep-tier structured extraction for one candidate.
type EnrichmentResult struct {
	Name        string
	Description string
	Designer    string
	Collection  string

	// Attributes is an open-ended key/value map of extracted properties
	// (dimensions, materials, colors, finish, ...). Keys are free-form;
	// previously unseen keys create new material properties lazily.
	Attributes map[string]string

	// Quality is the model's categorical self-assessment: "high", "medium", "low".
	Quality string

	// Confidence is the model's confidence in the extraction, 0-1.
	Confidence float32
}

// ImageAnalysis is the vision-tier description of one page image.
type ImageAnalysis struct {
	Caption string
	Tags    []string
}

// CallUsage is the raw accounting reported by a single model invocation.
// Token counts are zero when the provider does not report them.
type CallUsage struct {
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// ChunkClassifier runs the cheap/fast model tier over a batch of chunks.
// Implementations must be thread-safe for concurrent use.
type ChunkClassifier interface {
	// ClassifyChunks returns one verdict per input text, in input order.
	// A missing verdict for an index means the model skipped that chunk;
	// callers treat it as a non-candidate.
	ClassifyChunks(ctx context.Context, texts []string) ([]ChunkVerdict, CallUsage, error)
}

// ProductEnricher runs the expensive/high-quality model tier on one candidate.
// Implementations must be thread-safe for concurrent use.
type ProductEnricher interface {
	// EnrichChunk extracts full structured product data from candidate text.
	EnrichChunk(ctx context.Context, text string) (*EnrichmentResult, CallUsage, error)
}

// Embedder generates vector embeddings from text for semantic similarity.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, CallUsage, error)

	// EmbedTexts generates embeddings for multiple texts in a batch.
	// The returned slice contains embeddings in the same order as the input.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, CallUsage, error)
}

// VisionAnalyzer describes page images using the vision model tier.
// Implementations must be thread-safe for concurrent use.
type VisionAnalyzer interface {
	// AnalyzeImage returns a caption and tags for the given image bytes.
	AnalyzeImage(ctx context.Context, image []byte, mimeType string) (*ImageAnalysis, CallUsage, error)
}

// Provider aggregates the model tiers for convenient initialization and
// lifecycle management. Tier-to-model binding happens at construction from
// Config; callers never name concrete models.
type Provider interface {
	// ChunkClassifier returns the cheap-tier batch classifier.
	ChunkClassifier() ChunkClassifier

	// ProductEnricher returns the deep-tier enricher.
	ProductEnricher() ProductEnricher

	// Embedder returns the embedding service.
	Embedder() Embedder

	// VisionAnalyzer returns the vision service.
	VisionAnalyzer() VisionAnalyzer

	// Close releases resources held by the provider and its services.
	Close() error
}
