package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/creativeghq/matflow/core"
	"github.com/creativeghq/matflow/extract"
	"github.com/creativeghq/matflow/storage"
)

// extractionExecutor parses the document into per-page text and writes
// embedded images to the artifact store for the image stage.
type extractionExecutor struct {
	deps   Deps
	logger *slog.Logger
}

func newExtractionExecutor(deps Deps) *extractionExecutor {
	return &extractionExecutor{
		deps:   deps,
		logger: slog.Default().With("component", "stage-extraction"),
	}
}

func (e *extractionExecutor) Stage() core.Stage {
	return core.StageExtraction
}

func (e *extractionExecutor) Execute(ctx context.Context, sc *StageContext) ([]byte, error) {
	stage := e.Stage()

	data, err := e.deps.Artifacts.ReadDocument(ctx, sc.Job.DocumentRef)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, Fatal(stage, err)
		}
		return nil, Retryable(stage, err)
	}

	doc, err := e.deps.Extractor.Extract(ctx, data)
	if err != nil {
		if errors.Is(err, extract.ErrInvalidDocument) || errors.Is(err, extract.ErrEmptyDocument) {
			return nil, Fatal(stage, err)
		}
		return nil, Retryable(stage, err)
	}

	payload := ExtractionPayload{}
	for _, page := range doc.Pages {
		payload.Pages = append(payload.Pages, ExtractedPage{Page: page.Page, Text: page.Text})
	}

	// Image refs are derived from (job, page, ordinal) so a re-run after a
	// crash overwrites the same artifacts instead of accumulating copies.
	perPage := make(map[int]int)
	for _, image := range doc.Images {
		ordinal := perPage[image.Page]
		perPage[image.Page]++

		ref := fmt.Sprintf("%s/p%d-%d.jpg", sc.Job.ID, image.Page, ordinal)
		if err := e.deps.Artifacts.WriteImage(ctx, ref, image.Data); err != nil {
			return nil, Retryable(stage, fmt.Errorf("write image %s: %w", ref, err))
		}
		payload.Images = append(payload.Images, ExtractedImage{
			Ref:      ref,
			Page:     image.Page,
			MimeType: image.MimeType,
		})
	}

	e.logger.Info("document extracted",
		"job_id", sc.Job.ID,
		"pages", len(payload.Pages),
		"images", len(payload.Images))

	return encodePayload(payload)
}
