package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/creativeghq/matflow/core"
	"github.com/google/uuid"
)

// persistenceExecutor writes the enriched records that passed both gates
// into the product store.
type persistenceExecutor struct {
	deps   Deps
	logger *slog.Logger
}

func newPersistenceExecutor(deps Deps) *persistenceExecutor {
	return &persistenceExecutor{
		deps:   deps,
		logger: slog.Default().With("component", "stage-persistence"),
	}
}

func (e *persistenceExecutor) Stage() core.Stage {
	return core.StagePersistence
}

func (e *persistenceExecutor) Execute(ctx context.Context, sc *StageContext) ([]byte, error) {
	stage := e.Stage()

	var enrichment EnrichmentPayload
	if err := sc.payload(core.StageEnrichment, &enrichment); err != nil {
		return nil, Fatal(stage, err)
	}
	var images ImagesPayload
	if err := sc.payload(core.StageImages, &images); err != nil {
		return nil, Fatal(stage, err)
	}

	// A re-run must not double-persist: drop anything this job already
	// produced before writing the batch again.
	existing, err := e.deps.Store.ListProductsByJob(ctx, sc.Job.ID)
	if err != nil {
		return nil, Retryable(stage, err)
	}
	bySourceChunk := make(map[core.ID]string, len(existing))
	for _, product := range existing {
		bySourceChunk[product.SourceChunk] = product.ID
	}

	payload := PersistencePayload{ImageCount: images.Analyzed}
	var products []*core.Product
	now := time.Now().UTC()
	for _, record := range enrichment.Records {
		if id, ok := bySourceChunk[record.CandidateRef]; ok {
			payload.ProductIDs = append(payload.ProductIDs, id)
			continue
		}

		product := &core.Product{
			ID:          uuid.NewString(),
			JobID:       sc.Job.ID,
			WorkspaceID: sc.Job.WorkspaceID,
			Name:        record.Name,
			Description: record.Description,
			Designer:    record.Designer,
			Collection:  record.Collection,
			Attributes:  record.Attributes,
			Quality:     record.Quality,
			Confidence:  record.Confidence,
			SourceChunk: record.CandidateRef,
			CreatedAt:   now,
		}
		products = append(products, product)
		payload.ProductIDs = append(payload.ProductIDs, product.ID)
	}

	if len(products) > 0 {
		if _, err := e.deps.Store.AddProducts(ctx, products...); err != nil {
			return nil, Retryable(stage, err)
		}
	}

	e.logger.Info("products persisted",
		"job_id", sc.Job.ID,
		"new", len(products),
		"total", len(payload.ProductIDs))

	return encodePayload(payload)
}
