package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lexfield/regscout/internal/domain"
)

// TxRunner runs repository operations inside a single transaction.
type TxRunner struct {
	pool *pgxpool.Pool
}

func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Repos bundles transaction-scoped repositories.
type Repos struct {
	Jobs *JobRepository
}

// WithTx begins a transaction, runs fn with transaction-scoped repositories,
// and commits if fn returns nil. Any error rolls the transaction back.
func (t *TxRunner) WithTx(ctx context.Context, fn func(repos *Repos) error) error {
	tx, err := t.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	repos := &Repos{
		Jobs: NewJobRepositoryWithTx(tx),
	}
	if err := fn(repos); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// BulkJobSubmitter inserts a batch of jobs in one transaction.
type BulkJobSubmitter struct {
	runner *TxRunner
}

func NewBulkJobSubmitter(runner *TxRunner) *BulkJobSubmitter {
	return &BulkJobSubmitter{runner: runner}
}

// SubmitAll inserts every job or none of them.
func (b *BulkJobSubmitter) SubmitAll(ctx context.Context, jobs []*domain.Job) error {
	return b.runner.WithTx(ctx, func(repos *Repos) error {
		for _, job := range jobs {
			if err := repos.Jobs.Create(ctx, job); err != nil {
				return err
			}
		}
		return nil
	})
}
