package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/creativeghq/matflow/core"
)

// Stage payloads are the durable outputs committed with each checkpoint.
// They are encoded as JSON: the payload column is an opaque blob whose
// shape differs per stage and changes more often than the record types.

// DiscoveryPayload is the output of the discovery stage.
type DiscoveryPayload struct {
	PageCount int `json:"page_count"`
	ByteSize  int `json:"byte_size"`
}

// ExtractedImage points at one image written to the artifact store.
type ExtractedImage struct {
	Ref      string `json:"ref"`
	Page     int    `json:"page"`
	MimeType string `json:"mime_type"`
}

// ExtractionPayload is the output of the extraction stage. Page texts ride
// in the checkpoint so chunking never re-parses the document.
type ExtractionPayload struct {
	Pages  []ExtractedPage  `json:"pages"`
	Images []ExtractedImage `json:"images,omitempty"`
}

// ExtractedPage is the plain text of one page.
type ExtractedPage struct {
	Page int    `json:"page"`
	Text string `json:"text"`
}

// ChunkingPayload is the output of the chunking stage. Chunk bodies are
// persisted in the chunk store; the payload carries only their identity.
type ChunkingPayload struct {
	ChunkCount int       `json:"chunk_count"`
	ChunkIDs   []core.ID `json:"chunk_ids"`
	Dropped    int       `json:"dropped"`
}

// ImagesPayload is the output of the image processing stage.
type ImagesPayload struct {
	Analyzed int      `json:"analyzed"`
	Failed   []string `json:"failed,omitempty"`
}

// CandidateRef is one chunk that survived the cheap classification pass.
type CandidateRef struct {
	ChunkID          core.ID `json:"chunk_id"`
	Index            int     `json:"index"`
	Confidence       float32 `json:"confidence"`
	ContentTypeGuess string  `json:"content_type_guess"`
}

// ClassificationPayload is the output of the classification stage.
type ClassificationPayload struct {
	Candidates    []CandidateRef `json:"candidates"`
	Prefiltered   int            `json:"prefiltered"`
	Batches       int            `json:"batches"`
	FailedBatches int            `json:"failed_batches"`
}

// EnrichmentPayload is the output of the enrichment stage.
type EnrichmentPayload struct {
	Records     []core.EnrichedRecord `json:"records"`
	Dropped     int                   `json:"dropped"`
	FailedItems []string              `json:"failed_items,omitempty"`
}

// PersistencePayload is the output of the persistence stage.
type PersistencePayload struct {
	ProductIDs []string `json:"product_ids"`
	ImageCount int      `json:"image_count"`
}

// encodePayload serializes a stage payload for its checkpoint.
func encodePayload(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode stage payload: %w", err)
	}
	return data, nil
}

// decodePayload deserializes a checkpoint payload into v.
func decodePayload(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode stage payload: %w", err)
	}
	return nil
}

// DecodePayload exposes payload decoding to callers outside the pipeline
// (the admin API renders checkpoint payloads).
func DecodePayload(data []byte, v any) error {
	return decodePayload(data, v)
}
