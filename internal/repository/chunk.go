package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/lexfield/regscout/internal/domain"
	"github.com/lexfield/regscout/internal/search"
)

// ChunkRepository handles persistence and similarity search of
// embedded regulation chunks.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func (r *ChunkRepository) Create(ctx context.Context, c *domain.Chunk) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO regulation_chunks
		 (id, regulation_id, scraped_content_id, source_url, title, chunk_index, content, embedding, token_count, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.ID, nullableString(c.RegulationID), c.ScrapedContentID, c.SourceURL, c.Title,
		c.ChunkIndex, c.Content, pgvector.NewVector(c.Embedding),
		c.TokenCount, c.CreatedAt,
	)
	return err
}

func (r *ChunkRepository) GetByID(ctx context.Context, id string) (*domain.Chunk, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, COALESCE(regulation_id, ''), scraped_content_id, source_url, title, chunk_index, content, embedding, token_count, created_at
		 FROM regulation_chunks WHERE id = $1`, id)

	var c domain.Chunk
	var embedding pgvector.Vector
	err := row.Scan(&c.ID, &c.RegulationID, &c.ScrapedContentID, &c.SourceURL,
		&c.Title, &c.ChunkIndex, &c.Content, &embedding, &c.TokenCount, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChunkNotFound
		}
		return nil, err
	}
	c.Embedding = embedding.Slice()
	return &c, nil
}

// SearchByEmbedding returns chunks whose similarity to the query vector meets
// the threshold, best matches first. Similarity is 1/(1+distance) over cosine
// distance, so scores fall in (0, 1]. An excluded chunk ID may be empty.
func (r *ChunkRepository) SearchByEmbedding(ctx context.Context, embedding []float32, threshold float64, limit int, excludeChunkID string) ([]search.ChunkMatch, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, COALESCE(regulation_id, ''), chunk_index, content, source_url, title,
		        1.0 / (1.0 + (embedding <=> $1)) AS similarity
		 FROM regulation_chunks
		 WHERE 1.0 / (1.0 + (embedding <=> $1)) >= $2
		   AND ($4 = '' OR id != $4)
		 ORDER BY embedding <=> $1
		 LIMIT $3`,
		pgvector.NewVector(embedding), threshold, limit, excludeChunkID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []search.ChunkMatch
	for rows.Next() {
		var m search.ChunkMatch
		if err := rows.Scan(&m.ChunkID, &m.RegulationID, &m.ChunkIndex,
			&m.Content, &m.SourceURL, &m.Title, &m.Score); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// CountByRegulation returns how many chunks exist for a regulation.
func (r *ChunkRepository) CountByRegulation(ctx context.Context, regulationID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM regulation_chunks WHERE regulation_id = $1`,
		regulationID).Scan(&count)
	return count, err
}
