package pipeline

import (
	"context"
	"errors"

	"github.com/creativeghq/matflow/core"
	"github.com/creativeghq/matflow/extract"
	"github.com/creativeghq/matflow/storage"
)

// discoveryExecutor verifies the source document exists and is readable,
// and records its page count for downstream progress reporting.
type discoveryExecutor struct {
	deps Deps
}

func newDiscoveryExecutor(deps Deps) *discoveryExecutor {
	return &discoveryExecutor{deps: deps}
}

func (e *discoveryExecutor) Stage() core.Stage {
	return core.StageDiscovery
}

func (e *discoveryExecutor) Execute(ctx context.Context, sc *StageContext) ([]byte, error) {
	stage := e.Stage()

	data, err := e.deps.Artifacts.ReadDocument(ctx, sc.Job.DocumentRef)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// A missing document never appears on retry.
			return nil, Fatal(stage, err)
		}
		return nil, Retryable(stage, err)
	}

	pages, err := e.deps.Extractor.Probe(ctx, data)
	if err != nil {
		if errors.Is(err, extract.ErrInvalidDocument) || errors.Is(err, extract.ErrEmptyDocument) {
			return nil, Fatal(stage, err)
		}
		return nil, Retryable(stage, err)
	}

	return encodePayload(DiscoveryPayload{
		PageCount: pages,
		ByteSize:  len(data),
	})
}
