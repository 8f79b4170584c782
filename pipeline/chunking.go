package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/creativeghq/matflow/core"
)

const (
	// defaultMinChunkLength drops fragments too short to classify usefully
	// (page numbers, running headers, single dimension strings).
	defaultMinChunkLength = 50

	// defaultTargetChunkSize is the soft upper bound for merged chunks.
	defaultTargetChunkSize = 1200
)

// chunkingExecutor splits extracted page text into classifiable chunks and
// persists them to the chunk store.
type chunkingExecutor struct {
	deps   Deps
	cfg    settings
	logger *slog.Logger
}

func newChunkingExecutor(deps Deps, cfg settings) *chunkingExecutor {
	return &chunkingExecutor{
		deps:   deps,
		cfg:    cfg,
		logger: slog.Default().With("component", "stage-chunking"),
	}
}

func (e *chunkingExecutor) Stage() core.Stage {
	return core.StageChunking
}

func (e *chunkingExecutor) Execute(ctx context.Context, sc *StageContext) ([]byte, error) {
	stage := e.Stage()

	var extraction ExtractionPayload
	if err := sc.payload(core.StageExtraction, &extraction); err != nil {
		return nil, Fatal(stage, err)
	}

	var (
		chunks  []*core.Chunk
		dropped int
		index   int
	)
	for _, page := range extraction.Pages {
		for _, text := range splitChunks(page.Text, e.cfg.targetChunkSize) {
			if utf8.RuneCountInString(text) < e.cfg.minChunkLength {
				dropped++
				continue
			}
			chunks = append(chunks, &core.Chunk{
				ID:      core.IDFromContent(text),
				JobID:   sc.Job.ID,
				Index:   index,
				Content: text,
			})
			index++
		}
	}

	// Chunk keys are (job, index), so a re-run overwrites rather than
	// duplicates.
	if len(chunks) > 0 {
		if err := e.deps.Store.AddChunks(ctx, chunks...); err != nil {
			return nil, Retryable(stage, err)
		}
	}

	payload := ChunkingPayload{
		ChunkCount: len(chunks),
		Dropped:    dropped,
	}
	for _, chunk := range chunks {
		payload.ChunkIDs = append(payload.ChunkIDs, chunk.ID)
	}

	e.logger.Info("document chunked",
		"job_id", sc.Job.ID,
		"chunks", len(chunks),
		"dropped", dropped)

	return encodePayload(payload)
}

// splitChunks breaks page text on blank lines and merges consecutive
// paragraphs up to the target size, so table rows and short spec lines that
// belong together are classified together.
func splitChunks(text string, targetSize int) []string {
	paragraphs := strings.Split(text, "\n\n")

	var (
		chunks  []string
		current strings.Builder
	)
	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}

	for _, paragraph := range paragraphs {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}
		if current.Len() > 0 && current.Len()+len(paragraph) > targetSize {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(paragraph)
	}
	flush()

	return chunks
}
