package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for content-derived entities (chunks, candidates).
// Jobs and products use string identifiers generated elsewhere.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// JobStatus describes the lifecycle state of a Job.
type JobStatus int

const (
	// JobQueued means the job has been accepted but no worker has picked it up.
	JobQueued JobStatus = iota + 1
	// JobRunning means a worker is driving the job through its stages.
	JobRunning
	// JobCompleted means all stages succeeded.
	JobCompleted
	// JobFailed means a stage failed with a permanent error.
	JobFailed
	// JobCancelled means the job was cancelled at a stage boundary.
	JobCancelled
	// JobInterrupted means a transient failure exhausted retries or the
	// process crashed; the job can be resumed.
	JobInterrupted
)

var jobStatusNames = map[JobStatus]string{
	JobQueued:      "queued",
	JobRunning:     "running",
	JobCompleted:   "completed",
	JobFailed:      "failed",
	JobCancelled:   "cancelled",
	JobInterrupted: "interrupted",
}

func (s JobStatus) String() string {
	if name, ok := jobStatusNames[s]; ok {
		return name
	}
	return "unknown"
}

// IsTerminal reports whether the status is a final state.
// Interrupted and failed jobs are terminal but resumable.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobCompleted, JobFailed, JobCancelled, JobInterrupted:
		return true
	}
	return false
}

// Job is a single document processing run. It is owned exclusively by the
// orchestrator and mutated only through checkpoint commits.
type Job struct {
	ID           string
	DocumentRef  string
	WorkspaceID  string
	Status       JobStatus
	CurrentStage Stage
	Progress     int // percent, monotonically non-decreasing while running
	Error        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// StageStatus describes the state of a single stage checkpoint.
type StageStatus int

const (
	StagePending StageStatus = iota + 1
	StageRunning
	StageSucceeded
	StageFailed
)

var stageStatusNames = map[StageStatus]string{
	StagePending:   "pending",
	StageRunning:   "running",
	StageSucceeded: "succeeded",
	StageFailed:    "failed",
}

func (s StageStatus) String() string {
	if name, ok := stageStatusNames[s]; ok {
		return name
	}
	return "unknown"
}

// Checkpoint records the durable outcome of one stage of one job.
// Payload holds the stage-specific output as a JSON blob.
type Checkpoint struct {
	JobID       string
	Stage       Stage
	Status      StageStatus
	Payload     []byte
	Attempt     int
	Error       string
	CompletedAt time.Time
	UpdatedAt   time.Time
}

// Chunk is one text segment produced by the chunking stage.
type Chunk struct {
	ID      ID
	JobID   string
	Index   int
	Content string
}

// MinConfidence is the confidence gate applied by both classification stages.
// Candidates and enriched records below it are dropped.
const MinConfidence float32 = 0.4

// Candidate is a chunk provisionally identified as product-like by the
// cheap classification pass.
type Candidate struct {
	ChunkID          ID
	RawText          string
	Confidence       float32
	ContentTypeGuess string
}

// QualityLevel is the categorical quality assessment from deep enrichment.
type QualityLevel int

const (
	QualityLow QualityLevel = iota + 1
	QualityMedium
	QualityHigh
)

var qualityNames = map[QualityLevel]string{
	QualityLow:    "low",
	QualityMedium: "medium",
	QualityHigh:   "high",
}

func (q QualityLevel) String() string {
	if name, ok := qualityNames[q]; ok {
		return name
	}
	return "unknown"
}

// ParseQualityLevel maps a model-reported quality string to a QualityLevel.
// Unknown values map to QualityLow so they never pass the quality gate.
func ParseQualityLevel(s string) QualityLevel {
	for level, name := range qualityNames {
		if name == s {
			return level
		}
	}
	return QualityLow
}

// EnrichedRecord is the structured extraction produced by deep enrichment
// for a surviving candidate, before persistence gating.
type EnrichedRecord struct {
	CandidateRef ID
	Name         string
	Description  string
	Designer     string
	Collection   string
	Attributes   map[string]string
	Quality      QualityLevel
	Confidence   float32
	Validations  []ValidationResult
}

// Product is a persisted catalog record derived from an EnrichedRecord that
// passed the confidence and quality gates.
type Product struct {
	ID          string
	JobID       string
	WorkspaceID string
	Name        string
	Description string
	Designer    string
	Collection  string
	Attributes  map[string]string
	Quality     QualityLevel
	Confidence  float32
	SourceChunk ID
	CreatedAt   time.Time
}

// MaterialProperty is a lazily created registry entry for an extracted
// property key. Prototypes maps canonical values to embedding vectors;
// an empty map means validation passes raw values through unchanged.
// RawValueCounts aggregates unmatched raw values for the offline
// prototype promotion workflow.
type MaterialProperty struct {
	Key            string
	DataType       string
	Prototypes     map[string][]float32
	RawValueCounts map[string]int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ValidationResult is the outcome of canonicalizing one raw property value.
// It is attached to record metadata, not persisted on its own.
type ValidationResult struct {
	PropertyKey    string
	RawValue       string
	CanonicalValue string
	Similarity     float32
	Matched        bool
}

// ImageRecord is a persisted vision analysis result for one page image.
type ImageRecord struct {
	Ref       string
	JobID     string
	Page      int
	Caption   string
	Tags      []string
	CreatedAt time.Time
}

// UsageRecord aggregates model gateway calls for one (job, stage, model)
// triple, the unit reported in per-job AI usage summaries.
type UsageRecord struct {
	JobID            string
	Stage            Stage
	Model            string
	Calls            int
	PromptTokens     int
	CompletionTokens int
	CostUSD          float64
	LatencyMs        int64
}
