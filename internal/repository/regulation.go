package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lexfield/regscout/internal/domain"
)

const regulationColumns = `id, scraped_content_id, source_id, url, title, summary, jurisdiction, industries, category, priority, requirements, effective_date, created_at, updated_at`

// RegulationRepository handles persistence of extracted regulations.
type RegulationRepository struct {
	db dbtx
}

func NewRegulationRepository(pool *pgxpool.Pool) *RegulationRepository {
	return &RegulationRepository{db: pool}
}

func (r *RegulationRepository) Create(ctx context.Context, reg *domain.Regulation) error {
	if err := domain.ValidateRegulation(reg); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO regulations (`+regulationColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		reg.ID, reg.ScrapedContentID, reg.SourceID, reg.URL, reg.Title,
		nullableString(reg.Summary), reg.Jurisdiction, reg.Industries,
		nullableString(reg.Category), reg.Priority, reg.Requirements,
		reg.EffectiveDate, reg.CreatedAt, reg.UpdatedAt,
	)
	return err
}

func (r *RegulationRepository) GetByID(ctx context.Context, id string) (*domain.Regulation, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+regulationColumns+` FROM regulations WHERE id = $1`, id)
	reg, err := scanRegulation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRegulationNotFound
		}
		return nil, err
	}
	return reg, nil
}

// GetByIDs loads several regulations in one round trip. Missing IDs are
// silently absent from the result map.
func (r *RegulationRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*domain.Regulation, error) {
	result := make(map[string]*domain.Regulation, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+regulationColumns+` FROM regulations WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		reg, err := scanRegulation(rows)
		if err != nil {
			return nil, err
		}
		result[reg.ID] = reg
	}
	return result, rows.Err()
}

// SearchTitles matches regulations whose title contains the query,
// case-insensitively.
func (r *RegulationRepository) SearchTitles(ctx context.Context, query string, limit int) ([]*domain.Regulation, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+regulationColumns+`
		 FROM regulations
		 WHERE title ILIKE '%' || $1 || '%'
		 ORDER BY created_at DESC
		 LIMIT $2`,
		query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var regs []*domain.Regulation
	for rows.Next() {
		reg, err := scanRegulation(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

func scanRegulation(row pgx.Row) (*domain.Regulation, error) {
	var reg domain.Regulation
	var summary, category pgtype.Text
	var effectiveDate *time.Time
	err := row.Scan(&reg.ID, &reg.ScrapedContentID, &reg.SourceID, &reg.URL,
		&reg.Title, &summary, &reg.Jurisdiction, &reg.Industries,
		&category, &reg.Priority, &reg.Requirements, &effectiveDate,
		&reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if summary.Valid {
		reg.Summary = summary.String
	}
	if category.Valid {
		reg.Category = category.String
	}
	reg.EffectiveDate = effectiveDate
	return &reg, nil
}
