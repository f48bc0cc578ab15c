package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lexfield/regscout/internal/domain"
)

const scrapedContentColumns = `id, source_id, url, title, description, content, content_type, status_code, blob_key, fetched_at, created_at`

// ScrapedContentRepository handles persistence of raw scraped content.
type ScrapedContentRepository struct {
	db dbtx
}

func NewScrapedContentRepository(pool *pgxpool.Pool) *ScrapedContentRepository {
	return &ScrapedContentRepository{db: pool}
}

func (r *ScrapedContentRepository) Create(ctx context.Context, c *domain.ScrapedContent) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO scraped_content (`+scrapedContentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		c.ID, c.SourceID, c.URL, c.Title, nullableString(c.Description),
		c.Content, c.ContentType, c.StatusCode, nullableString(c.BlobKey),
		c.FetchedAt, c.CreatedAt,
	)
	return err
}

func (r *ScrapedContentRepository) GetByID(ctx context.Context, id string) (*domain.ScrapedContent, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+scrapedContentColumns+` FROM scraped_content WHERE id = $1`, id)

	var c domain.ScrapedContent
	var description, blobKey pgtype.Text
	err := row.Scan(&c.ID, &c.SourceID, &c.URL, &c.Title, &description,
		&c.Content, &c.ContentType, &c.StatusCode, &blobKey,
		&c.FetchedAt, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrContentNotFound
		}
		return nil, err
	}
	if description.Valid {
		c.Description = description.String
	}
	if blobKey.Valid {
		c.BlobKey = blobKey.String
	}
	return &c, nil
}

// UpdateBlobKey records the object storage key after the raw body is mirrored.
func (r *ScrapedContentRepository) UpdateBlobKey(ctx context.Context, id, blobKey string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE scraped_content SET blob_key = $1 WHERE id = $2`, blobKey, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrContentNotFound
	}
	return nil
}
