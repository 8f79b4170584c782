package ai

import (
	"context"
	"slices"
	"sync"

	"github.com/creativeghq/matflow/core"
)

// UsageStore persists per-(job, stage, model) usage aggregates.
// Implemented by storage/badger; an in-memory implementation ships here
// for query-time callers and tests.
type UsageStore interface {
	// AddUsage merges delta into the aggregate for its (job, stage, model)
	// triple, creating the aggregate if absent.
	AddUsage(ctx context.Context, delta core.UsageRecord) error

	// JobUsage returns all usage aggregates for a job, ordered by stage.
	JobUsage(ctx context.Context, jobID string) ([]core.UsageRecord, error)
}

// ModelUsageSummary is the per-model roll-up exposed by the usage report.
type ModelUsageSummary struct {
	Calls            int
	PromptTokens     int
	CompletionTokens int
	CostUSD          float64
	LatencyMs        int64
	Stages           []string
}

// BuildUsageReport aggregates a job's usage records into the per-model
// summary served by the ai-usage endpoint.
func BuildUsageReport(records []core.UsageRecord) map[string]ModelUsageSummary {
	report := make(map[string]ModelUsageSummary)
	for _, rec := range records {
		summary := report[rec.Model]
		summary.Calls += rec.Calls
		summary.PromptTokens += rec.PromptTokens
		summary.CompletionTokens += rec.CompletionTokens
		summary.CostUSD += rec.CostUSD
		summary.LatencyMs += rec.LatencyMs
		if !slices.Contains(summary.Stages, rec.Stage.String()) {
			summary.Stages = append(summary.Stages, rec.Stage.String())
		}
		report[rec.Model] = summary
	}
	return report
}

// MemoryUsageStore is a thread-safe in-memory UsageStore.
type MemoryUsageStore struct {
	mu      sync.Mutex
	records map[usageKey]core.UsageRecord
}

type usageKey struct {
	jobID string
	stage core.Stage
	model string
}

// NewMemoryUsageStore creates an empty in-memory usage store.
func NewMemoryUsageStore() *MemoryUsageStore {
	return &MemoryUsageStore{records: make(map[usageKey]core.UsageRecord)}
}

var _ UsageStore = (*MemoryUsageStore)(nil)

// AddUsage merges delta into the in-memory aggregate.
func (s *MemoryUsageStore) AddUsage(ctx context.Context, delta core.UsageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := usageKey{jobID: delta.JobID, stage: delta.Stage, model: delta.Model}
	rec := s.records[key]
	rec.JobID = delta.JobID
	rec.Stage = delta.Stage
	rec.Model = delta.Model
	rec.Calls += delta.Calls
	rec.PromptTokens += delta.PromptTokens
	rec.CompletionTokens += delta.CompletionTokens
	rec.CostUSD += delta.CostUSD
	rec.LatencyMs += delta.LatencyMs
	s.records[key] = rec
	return nil
}

// JobUsage returns the job's aggregates ordered by stage, then model.
func (s *MemoryUsageStore) JobUsage(ctx context.Context, jobID string) ([]core.UsageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.UsageRecord
	for key, rec := range s.records {
		if key.jobID == jobID {
			out = append(out, rec)
		}
	}
	slices.SortFunc(out, func(a, b core.UsageRecord) int {
		if a.Stage != b.Stage {
			return int(a.Stage) - int(b.Stage)
		}
		if a.Model < b.Model {
			return -1
		}
		if a.Model > b.Model {
			return 1
		}
		return 0
	})
	return out, nil
}
