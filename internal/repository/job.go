package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lexfield/regscout/internal/domain"
	"github.com/lexfield/regscout/internal/pagination"
)

const jobColumns = `id, source_id, url, status, priority, scheduled_at, started_at, completed_at, last_error, retry_count, max_retries, created_at, updated_at`

// JobRepository handles persistence of crawl jobs.
type JobRepository struct {
	db dbtx
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{db: pool}
}

func NewJobRepositoryWithTx(tx pgx.Tx) *JobRepository {
	return &JobRepository{db: tx}
}

func (r *JobRepository) Create(ctx context.Context, j *domain.Job) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO crawl_jobs (`+jobColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		j.ID, j.SourceID, j.URL, j.Status, j.Priority, j.ScheduledAt,
		j.StartedAt, j.CompletedAt, nullableString(j.LastError),
		j.RetryCount, j.MaxRetries, j.CreatedAt, j.UpdatedAt,
	)
	return err
}

func (r *JobRepository) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	row := r.db.QueryRow(ctx, `SELECT `+jobColumns+` FROM crawl_jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, err
	}
	return job, nil
}

// ClaimNext atomically transitions the highest-priority eligible pending
// job to running, so at most one worker executes a given job. Priority ties
// break by earliest scheduled time. Returns (nil, nil) when no job is due.
func (r *JobRepository) ClaimNext(ctx context.Context, now time.Time) (*domain.Job, error) {
	row := r.db.QueryRow(ctx,
		`WITH next AS (
			 SELECT id
			 FROM crawl_jobs
			 WHERE status = $1 AND scheduled_at <= $2
			 ORDER BY priority DESC, scheduled_at ASC
			 FOR UPDATE SKIP LOCKED
			 LIMIT 1
		 )
		 UPDATE crawl_jobs
		 SET status = $3, started_at = $2, updated_at = $2
		 FROM next
		 WHERE crawl_jobs.id = next.id
		 RETURNING crawl_jobs.id, crawl_jobs.source_id, crawl_jobs.url, crawl_jobs.status,
		           crawl_jobs.priority, crawl_jobs.scheduled_at, crawl_jobs.started_at,
		           crawl_jobs.completed_at, crawl_jobs.last_error, crawl_jobs.retry_count,
		           crawl_jobs.max_retries, crawl_jobs.created_at, crawl_jobs.updated_at`,
		domain.JobStatusPending, now.UTC(), domain.JobStatusRunning,
	)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return job, nil
}

// MarkCompleted finalizes a job after a successful (or partial) pipeline run.
func (r *JobRepository) MarkCompleted(ctx context.Context, id string, errMsg string, completedAt time.Time) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE crawl_jobs
		 SET status = $1, completed_at = $2, last_error = $3, updated_at = $2
		 WHERE id = $4`,
		domain.JobStatusCompleted, completedAt.UTC(), nullableString(errMsg), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

// Reschedule puts a failed job back to pending with an incremented retry
// count and a new scheduled time.
func (r *JobRepository) Reschedule(ctx context.Context, id string, errMsg string, scheduledAt time.Time) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE crawl_jobs
		 SET status = $1, retry_count = retry_count + 1, last_error = $2,
		     scheduled_at = $3, updated_at = now()
		 WHERE id = $4`,
		domain.JobStatusPending, errMsg, scheduledAt.UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

// MarkFailed marks a job permanently failed once retries are exhausted.
func (r *JobRepository) MarkFailed(ctx context.Context, id string, errMsg string, completedAt time.Time) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE crawl_jobs
		 SET status = $1, completed_at = $2, last_error = $3, updated_at = $2
		 WHERE id = $4`,
		domain.JobStatusFailed, completedAt.UTC(), errMsg, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

// CountByStatus returns aggregate job counts keyed by status.
func (r *JobRepository) CountByStatus(ctx context.Context) (map[domain.JobStatus]int, error) {
	rows, err := r.db.Query(ctx,
		`SELECT status, COUNT(*) FROM crawl_jobs GROUP BY status`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.JobStatus]int)
	for rows.Next() {
		var status domain.JobStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// JobPageResult is one page of jobs with cursor metadata.
type JobPageResult struct {
	Items      []*domain.Job
	NextCursor string
	HasMore    bool
}

// ListWithCursor returns jobs newest-first with cursor pagination,
// optionally filtered by status.
func (r *JobRepository) ListWithCursor(ctx context.Context, status domain.JobStatus, cursor *pagination.Cursor, limit int) (*JobPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT ` + jobColumns + ` FROM crawl_jobs`
	args := []any{}
	where := []string{}

	if status != "" {
		args = append(args, status)
		where = append(where, `status = $1`)
	}
	if cursor != nil {
		args = append(args, cursor.Timestamp, cursor.LastID)
		n := len(args)
		where = append(where, fmt.Sprintf(`(created_at, id) < ($%d, $%d)`, n-1, n))
	}
	for i, clause := range where {
		if i == 0 {
			query += ` WHERE ` + clause
		} else {
			query += ` AND ` + clause
		}
	}
	args = append(args, limit+1)
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d`, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanJobRows(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		last := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(last.ID, last.CreatedAt)
	}

	return &JobPageResult{Items: items, NextCursor: nextCursor, HasMore: hasMore}, nil
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var j domain.Job
	var startedAt, completedAt *time.Time
	var lastError pgtype.Text
	err := row.Scan(&j.ID, &j.SourceID, &j.URL, &j.Status, &j.Priority,
		&j.ScheduledAt, &startedAt, &completedAt, &lastError,
		&j.RetryCount, &j.MaxRetries, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	j.StartedAt = startedAt
	j.CompletedAt = completedAt
	if lastError.Valid {
		j.LastError = lastError.String
	}
	return &j, nil
}

func scanJobRows(rows pgx.Rows) ([]*domain.Job, error) {
	var jobs []*domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}
