package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/creativeghq/matflow/ai"
	"github.com/creativeghq/matflow/core"
	"github.com/panjf2000/ants/v2"
)

// defaultInnerConcurrency caps how many vision calls a single job has in
// flight at once, independent of the orchestrator's job-level pool.
const defaultInnerConcurrency = 5

// imagesExecutor runs vision analysis over the images extracted from the
// document and persists the results. Individual image failures become
// PartialItemErrors and do not fail the stage.
type imagesExecutor struct {
	deps   Deps
	cfg    settings
	logger *slog.Logger
}

func newImagesExecutor(deps Deps, cfg settings) *imagesExecutor {
	return &imagesExecutor{
		deps:   deps,
		cfg:    cfg,
		logger: slog.Default().With("component", "stage-images"),
	}
}

func (e *imagesExecutor) Stage() core.Stage {
	return core.StageImages
}

func (e *imagesExecutor) Execute(ctx context.Context, sc *StageContext) ([]byte, error) {
	stage := e.Stage()

	var extraction ExtractionPayload
	if err := sc.payload(core.StageExtraction, &extraction); err != nil {
		return nil, Fatal(stage, err)
	}

	if len(extraction.Images) == 0 {
		return encodePayload(ImagesPayload{})
	}

	pool, err := ants.NewPool(e.cfg.innerConcurrency)
	if err != nil {
		return nil, Retryable(stage, err)
	}
	defer pool.Release()

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		records  []*core.ImageRecord
		partials []*PartialItemError
	)

	scope := sc.Scope(stage)
	for _, image := range extraction.Images {
		image := image
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()

			record, err := e.analyzeOne(ctx, sc, scope, image)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				partials = append(partials, &PartialItemError{
					Stage: stage,
					Item:  image.Ref,
					Err:   err,
				})
				return
			}
			records = append(records, record)
		})
		if submitErr != nil {
			wg.Done()
			return nil, Retryable(stage, submitErr)
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Every image failing points at the vision backend, not the images.
	if len(records) == 0 && len(partials) > 0 {
		return nil, Retryable(stage, errors.Join(firstErrors(partials, 3)...))
	}

	if len(records) > 0 {
		if err := e.deps.Store.AddImageRecords(ctx, records...); err != nil {
			return nil, Retryable(stage, err)
		}
	}

	payload := ImagesPayload{Analyzed: len(records)}
	for _, partial := range partials {
		e.logger.Warn("image analysis failed",
			"job_id", sc.Job.ID,
			"image", partial.Item,
			"error", partial.Err)
		payload.Failed = append(payload.Failed, partial.Item)
	}

	return encodePayload(payload)
}

func (e *imagesExecutor) analyzeOne(ctx context.Context, sc *StageContext, scope ai.CallScope, image ExtractedImage) (*core.ImageRecord, error) {
	data, err := e.deps.Artifacts.ReadImage(ctx, image.Ref)
	if err != nil {
		return nil, err
	}

	analysis, err := e.deps.Gateway.AnalyzeImage(ctx, scope, data, image.MimeType)
	if err != nil {
		return nil, err
	}

	return &core.ImageRecord{
		Ref:     image.Ref,
		JobID:   sc.Job.ID,
		Page:    image.Page,
		Caption: analysis.Caption,
		Tags:    analysis.Tags,
	}, nil
}

// firstErrors unwraps up to n partial errors for a stage-level report.
func firstErrors(partials []*PartialItemError, n int) []error {
	if len(partials) < n {
		n = len(partials)
	}
	errs := make([]error, 0, n)
	for _, partial := range partials[:n] {
		errs = append(errs, partial.Err)
	}
	return errs
}
