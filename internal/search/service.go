package search

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/lexfield/regscout/internal/domain"
	"github.com/lexfield/regscout/internal/telemetry"
)

const (
	// DefaultSemanticThreshold is the minimum similarity for query search
	DefaultSemanticThreshold = 0.6
	// DefaultSimilarThreshold is the minimum similarity for chunk-to-chunk search
	DefaultSimilarThreshold = 0.7
	// LexicalDefaultScore ranks lexical-only matches below any semantic hit
	// at the default threshold
	LexicalDefaultScore = 0.5
)

// Embedder produces the query vector.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, int, error)
}

// ChunkSearcher performs nearest-neighbor search over stored chunks.
type ChunkSearcher interface {
	GetByID(ctx context.Context, id string) (*domain.Chunk, error)
	SearchByEmbedding(ctx context.Context, embedding []float32, threshold float64, limit int, excludeChunkID string) ([]ChunkMatch, error)
}

// RegulationReader joins matched chunks to their owning regulations and
// serves the lexical title search.
type RegulationReader interface {
	GetByIDs(ctx context.Context, ids []string) (map[string]*domain.Regulation, error)
	SearchTitles(ctx context.Context, query string, limit int) ([]*domain.Regulation, error)
}

// Filters are applied client-side after retrieval.
type Filters struct {
	Jurisdiction   domain.Jurisdiction
	Category       string
	Priority       domain.PriorityTier
	EffectiveAfter *time.Time
	EffectiveUntil *time.Time
}

func (f Filters) matches(reg *domain.Regulation) bool {
	if f.Jurisdiction != "" && reg.Jurisdiction != f.Jurisdiction {
		return false
	}
	if f.Category != "" && reg.Category != f.Category {
		return false
	}
	if f.Priority != "" && reg.Priority != f.Priority {
		return false
	}
	if f.EffectiveAfter != nil {
		if reg.EffectiveDate == nil || reg.EffectiveDate.Before(*f.EffectiveAfter) {
			return false
		}
	}
	if f.EffectiveUntil != nil {
		if reg.EffectiveDate == nil || reg.EffectiveDate.After(*f.EffectiveUntil) {
			return false
		}
	}
	return true
}

// Service is the read path over indexed regulation chunks.
type Service struct {
	embedder    Embedder
	chunks      ChunkSearcher
	regulations RegulationReader
}

func NewService(embedder Embedder, chunks ChunkSearcher, regulations RegulationReader) *Service {
	return &Service{embedder: embedder, chunks: chunks, regulations: regulations}
}

// SemanticSearch embeds the query, retrieves nearest-neighbor chunks above
// the similarity threshold, joins their owning regulations, applies filters
// and truncates to limit.
func (s *Service) SemanticSearch(ctx context.Context, query string, filters Filters, limit int) ([]Result, error) {
	ctx, span := telemetry.StartSpan(ctx, "Search.Semantic", telemetry.SpanAttributes{
		Operation: "semantic_search",
	})
	defer span.End()

	if limit <= 0 {
		limit = 10
	}
	if query == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "search query is required")
	}

	embedding, _, err := s.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	matches, err := s.chunks.SearchByEmbedding(ctx, embedding, DefaultSemanticThreshold, limit, "")
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("chunk search failed: %w", err)
	}

	results, err := s.joinAndFilter(ctx, matches, filters)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// FindSimilar retrieves chunks similar to an existing chunk, excluding the
// chunk itself, at the stricter similarity threshold.
func (s *Service) FindSimilar(ctx context.Context, chunkID string, limit int) ([]ChunkMatch, error) {
	if limit <= 0 {
		limit = 10
	}

	chunk, err := s.chunks.GetByID(ctx, chunkID)
	if err != nil {
		return nil, err
	}
	if len(chunk.Embedding) == 0 {
		return nil, domain.NewDomainError(domain.ErrCodeInvalidOperation, "chunk has no stored embedding")
	}

	return s.chunks.SearchByEmbedding(ctx, chunk.Embedding, DefaultSimilarThreshold, limit, chunkID)
}

// HybridSearch merges semantic and lexical title matches. Results are keyed
// by regulation; a regulation found both ways keeps its semantic score, and
// lexical-only matches rank with a fixed default score.
func (s *Service) HybridSearch(ctx context.Context, query string, filters Filters, limit int) ([]Result, error) {
	ctx, span := telemetry.StartSpan(ctx, "Search.Hybrid", telemetry.SpanAttributes{
		Operation: "hybrid_search",
	})
	defer span.End()

	if limit <= 0 {
		limit = 10
	}

	semantic, err := s.SemanticSearch(ctx, query, filters, limit)
	if err != nil {
		return nil, err
	}

	lexical, err := s.regulations.SearchTitles(ctx, query, limit)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("title search failed: %w", err)
	}

	merged := make(map[string]Result, len(semantic)+len(lexical))
	for _, res := range semantic {
		merged[res.RegulationID] = res
	}
	for _, reg := range lexical {
		if !filters.matches(reg) {
			continue
		}
		if _, ok := merged[reg.ID]; ok {
			continue
		}
		merged[reg.ID] = Result{
			RegulationID:  reg.ID,
			Title:         reg.Title,
			Summary:       reg.Summary,
			Jurisdiction:  string(reg.Jurisdiction),
			Category:      reg.Category,
			Priority:      string(reg.Priority),
			SourceURL:     reg.URL,
			EffectiveDate: reg.EffectiveDate,
			Score:         LexicalDefaultScore,
			MatchType:     "lexical",
		}
	}

	results := make([]Result, 0, len(merged))
	for _, res := range merged {
		results = append(results, res)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].RegulationID < results[j].RegulationID
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// joinAndFilter resolves chunk matches to regulation results, keeping the
// best-scoring chunk per regulation. Chunks without a regulation (the
// extraction stage failed for their run) are skipped.
func (s *Service) joinAndFilter(ctx context.Context, matches []ChunkMatch, filters Filters) ([]Result, error) {
	ids := make([]string, 0, len(matches))
	seen := make(map[string]bool, len(matches))
	for _, m := range matches {
		if m.RegulationID == "" || seen[m.RegulationID] {
			continue
		}
		seen[m.RegulationID] = true
		ids = append(ids, m.RegulationID)
	}

	regs, err := s.regulations.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load regulations: %w", err)
	}

	var results []Result
	taken := make(map[string]bool, len(matches))
	for _, m := range matches {
		if m.RegulationID == "" || taken[m.RegulationID] {
			continue
		}
		reg, ok := regs[m.RegulationID]
		if !ok || !filters.matches(reg) {
			continue
		}
		taken[m.RegulationID] = true
		results = append(results, Result{
			RegulationID:  reg.ID,
			Title:         reg.Title,
			Summary:       reg.Summary,
			Jurisdiction:  string(reg.Jurisdiction),
			Category:      reg.Category,
			Priority:      string(reg.Priority),
			SourceURL:     reg.URL,
			EffectiveDate: reg.EffectiveDate,
			Score:         m.Score,
			Excerpt:       m.Content,
			MatchType:     "semantic",
		})
	}
	return results, nil
}
