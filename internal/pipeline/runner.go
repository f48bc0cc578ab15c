package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/lexfield/regscout/internal/domain"
	"github.com/lexfield/regscout/internal/openai"
	"github.com/lexfield/regscout/internal/telemetry"
)

// DefaultExtractMaxChars bounds the cleaned text sent to extraction.
const DefaultExtractMaxChars = 8000

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// Fetcher retrieves one URL subject to crawl policy and rate budget.
type Fetcher interface {
	Scrape(ctx context.Context, rawURL string) (*domain.ScrapeResult, error)
}

// ContentStore persists raw scraped content records.
type ContentStore interface {
	Create(ctx context.Context, c *domain.ScrapedContent) error
	UpdateBlobKey(ctx context.Context, id, blobKey string) error
}

// RegulationStore persists extracted regulation records.
type RegulationStore interface {
	Create(ctx context.Context, r *domain.Regulation) error
}

// ChunkStore persists embedded chunks.
type ChunkStore interface {
	Create(ctx context.Context, c *domain.Chunk) error
}

// Extractor turns cleaned text into a structured regulation record.
type Extractor interface {
	Extract(ctx context.Context, input openai.ExtractionInput) (*openai.ExtractedRecord, error)
}

// Embedder produces a fixed-dimension vector and token count for one chunk.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, int, error)
}

// BlobStore mirrors raw page bodies to object storage. Optional.
type BlobStore interface {
	PutObject(ctx context.Context, key, contentType string, body []byte) error
}

// Config holds chunking and extraction knobs.
type Config struct {
	ChunkSize       int
	ChunkOverlap    int
	ExtractMaxChars int
}

// Runner orchestrates fetch, persistence, cleaning, extraction, chunking
// and embedding for a single URL. Fetch and raw persistence are fatal;
// extraction and per-chunk embedding failures are recorded and the run
// continues.
type Runner struct {
	fetcher     Fetcher
	contents    ContentStore
	regulations RegulationStore
	chunks      ChunkStore
	extractor   Extractor
	embedder    Embedder
	blobs       BlobStore
	cfg         Config
	uuidGen     UUIDGenerator
	now         func() time.Time
}

// NewRunner creates a pipeline Runner. extractor, embedder and blobs may be
// nil; the corresponding stages are then skipped with a recorded error when
// requested.
func NewRunner(fetcher Fetcher, contents ContentStore, regulations RegulationStore, chunks ChunkStore, extractor Extractor, embedder Embedder, blobs BlobStore, cfg Config) *Runner {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.ChunkOverlap <= 0 {
		cfg.ChunkOverlap = DefaultChunkOverlap
	}
	if cfg.ExtractMaxChars <= 0 {
		cfg.ExtractMaxChars = DefaultExtractMaxChars
	}
	return &Runner{
		fetcher:     fetcher,
		contents:    contents,
		regulations: regulations,
		chunks:      chunks,
		extractor:   extractor,
		embedder:    embedder,
		blobs:       blobs,
		cfg:         cfg,
		uuidGen:     &DefaultUUIDGenerator{},
		now:         time.Now,
	}
}

// Run executes the pipeline for one URL and reports the per-stage outcome.
func (r *Runner) Run(ctx context.Context, sourceID, rawURL string, autoProcess, autoEmbed bool) *domain.PipelineRun {
	ctx, span := telemetry.StartSpan(ctx, "Pipeline.Run", telemetry.SpanAttributes{
		SourceID:  sourceID,
		Operation: "run",
	})
	defer span.End()

	run := &domain.PipelineRun{}

	// Stage 1: fetch. Fatal.
	result, err := r.fetcher.Scrape(ctx, rawURL)
	if err != nil {
		run.Status = domain.RunStatusFailed
		run.AddError(fmt.Sprintf("fetch: %v", err))
		span.SetError(err)
		return run
	}

	// Stage 2: persist raw content. Fatal.
	now := r.now().UTC()
	content := &domain.ScrapedContent{
		ID:          r.uuidGen.NewString(),
		SourceID:    sourceID,
		URL:         result.URL,
		Title:       result.Title,
		Description: result.Description,
		Content:     result.Content,
		ContentType: result.ContentType,
		StatusCode:  result.StatusCode,
		FetchedAt:   result.ScrapedAt,
		CreatedAt:   now,
	}
	if err := r.contents.Create(ctx, content); err != nil {
		perr := &domain.PersistenceError{Entity: "scraped content", Err: err}
		run.Status = domain.RunStatusFailed
		run.AddError(perr.Error())
		span.SetError(perr)
		return run
	}
	run.ScrapedContentID = content.ID

	r.mirrorRawBody(ctx, content, result)

	// Stage 3: clean. Pure, cannot fail.
	cleaned := CleanContent(result.Content)

	// Stage 4: structured extraction. Non-fatal.
	var regulationID string
	if autoProcess {
		regulationID = r.extract(ctx, run, sourceID, content, cleaned)
	}

	// Stage 5: chunk + embed. Per-chunk non-fatal.
	if autoEmbed {
		r.embedChunks(ctx, run, content, regulationID, cleaned)
	}

	run.Finalize()
	return run
}

// mirrorRawBody copies the raw body to object storage when configured.
// Best-effort; a miss never affects the run outcome.
func (r *Runner) mirrorRawBody(ctx context.Context, content *domain.ScrapedContent, result *domain.ScrapeResult) {
	if r.blobs == nil {
		return
	}
	key := fmt.Sprintf("raw/%s/%s", content.SourceID, content.ID)
	if err := r.blobs.PutObject(ctx, key, result.ContentType, []byte(result.Content)); err != nil {
		log.Printf("pipeline: raw body mirror failed for %s: %v", content.URL, err)
		return
	}
	if err := r.contents.UpdateBlobKey(ctx, content.ID, key); err != nil {
		log.Printf("pipeline: blob key update failed for %s: %v", content.ID, err)
	}
}

func (r *Runner) extract(ctx context.Context, run *domain.PipelineRun, sourceID string, content *domain.ScrapedContent, cleaned string) string {
	ctx, span := telemetry.StartSpan(ctx, "Pipeline.Extract", telemetry.SpanAttributes{
		SourceID:  sourceID,
		Operation: "extract",
	})
	defer span.End()

	if r.extractor == nil {
		run.AddError("extraction: no extraction service configured")
		return ""
	}

	text := cleaned
	if runes := []rune(text); len(runes) > r.cfg.ExtractMaxChars {
		text = string(runes[:r.cfg.ExtractMaxChars])
	}

	record, err := r.extractor.Extract(ctx, openai.ExtractionInput{
		SourceURL: content.URL,
		Title:     content.Title,
		Text:      text,
	})
	if err != nil {
		run.AddError(fmt.Sprintf("extraction: %v", err))
		span.SetError(err)
		return ""
	}

	now := r.now().UTC()
	regulation := &domain.Regulation{
		ID:               r.uuidGen.NewString(),
		ScrapedContentID: content.ID,
		SourceID:         sourceID,
		URL:              content.URL,
		Title:            record.Title,
		Summary:          record.Summary,
		Jurisdiction:     record.Jurisdiction,
		Industries:       record.Industries,
		Category:         record.Category,
		Priority:         record.Priority,
		Requirements:     record.Requirements,
		EffectiveDate:    record.EffectiveDate,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := r.regulations.Create(ctx, regulation); err != nil {
		perr := &domain.PersistenceError{Entity: "regulation", Err: err}
		run.AddError(perr.Error())
		span.SetError(perr)
		return ""
	}

	run.RegulationID = regulation.ID
	return regulation.ID
}

func (r *Runner) embedChunks(ctx context.Context, run *domain.PipelineRun, content *domain.ScrapedContent, regulationID, cleaned string) {
	ctx, span := telemetry.StartSpan(ctx, "Pipeline.Embed", telemetry.SpanAttributes{
		SourceID:  content.SourceID,
		Operation: "embed",
	})
	defer span.End()

	if r.embedder == nil {
		run.AddError("embedding: no embedding service configured")
		return
	}

	pieces := SplitChunks(cleaned, r.cfg.ChunkSize, r.cfg.ChunkOverlap)
	for i, piece := range pieces {
		embedding, tokens, err := r.embedder.GenerateEmbedding(ctx, piece)
		if err != nil {
			eerr := &domain.EmbeddingError{ChunkIndex: i, Err: err}
			run.AddError(eerr.Error())
			continue
		}

		chunk := &domain.Chunk{
			ID:               r.uuidGen.NewString(),
			RegulationID:     regulationID,
			ScrapedContentID: content.ID,
			SourceURL:        content.URL,
			Title:            content.Title,
			ChunkIndex:       i,
			Content:          piece,
			Embedding:        embedding,
			TokenCount:       tokens,
			CreatedAt:        r.now().UTC(),
		}
		if err := r.chunks.Create(ctx, chunk); err != nil {
			perr := &domain.PersistenceError{Entity: fmt.Sprintf("chunk %d", i), Err: err}
			run.AddError(perr.Error())
			continue
		}
		run.ChunkIDs = append(run.ChunkIDs, chunk.ID)
	}
}
