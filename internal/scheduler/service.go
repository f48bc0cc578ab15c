package scheduler

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lexfield/regscout/internal/domain"
	"github.com/lexfield/regscout/internal/telemetry"
)

// JobStore is the durable queue the scheduler operates on.
type JobStore interface {
	Create(ctx context.Context, j *domain.Job) error
	GetByID(ctx context.Context, id string) (*domain.Job, error)
	ClaimNext(ctx context.Context, now time.Time) (*domain.Job, error)
	MarkCompleted(ctx context.Context, id string, errMsg string, completedAt time.Time) error
	Reschedule(ctx context.Context, id string, errMsg string, scheduledAt time.Time) error
	MarkFailed(ctx context.Context, id string, errMsg string, completedAt time.Time) error
	CountByStatus(ctx context.Context) (map[domain.JobStatus]int, error)
}

// PipelineRunner executes the ingestion pipeline for one URL.
type PipelineRunner interface {
	Run(ctx context.Context, sourceID, rawURL string, autoProcess, autoEmbed bool) *domain.PipelineRun
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

type defaultUUIDGenerator struct{}

func (defaultUUIDGenerator) NewString() string { return uuid.NewString() }

// SubmitInput describes one crawl job submission.
type SubmitInput struct {
	SourceID    string
	URL         string
	Priority    int
	ScheduledAt *time.Time
	MaxRetries  int
}

// Service maintains the durable crawl job queue and drives the ingestion
// pipeline. Claiming is atomic at the store, so multiple drain loops can
// run against the same queue.
type Service struct {
	store       JobStore
	bulk        BulkSubmitter
	pipeline    PipelineRunner
	autoProcess bool
	autoEmbed   bool
	uuidGen     UUIDGenerator
	now         func() time.Time
}

// NewService creates a scheduler Service. autoProcess and autoEmbed gate
// the extraction and embedding stages for every executed job.
func NewService(store JobStore, bulk BulkSubmitter, pipeline PipelineRunner, autoProcess, autoEmbed bool) *Service {
	return &Service{
		store:       store,
		bulk:        bulk,
		pipeline:    pipeline,
		autoProcess: autoProcess,
		autoEmbed:   autoEmbed,
		uuidGen:     defaultUUIDGenerator{},
		now:         time.Now,
	}
}

// Submit inserts one pending job. Schedule time defaults to now.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (*domain.Job, error) {
	if input.URL == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "job URL is required")
	}
	if input.SourceID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "job source ID is required")
	}

	now := s.now().UTC()
	scheduledAt := now
	if input.ScheduledAt != nil {
		scheduledAt = input.ScheduledAt.UTC()
	}
	maxRetries := input.MaxRetries
	if maxRetries <= 0 {
		maxRetries = domain.DefaultMaxRetries
	}

	job := domain.NewJob(s.uuidGen.NewString(), input.SourceID, input.URL, input.Priority, scheduledAt)
	job.MaxRetries = maxRetries
	job.CreatedAt = now
	job.UpdatedAt = now
	if err := domain.ValidateJob(job); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid job", err)
	}
	if err := s.store.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	return job, nil
}

// BulkSubmitter creates many jobs atomically.
type BulkSubmitter interface {
	SubmitAll(ctx context.Context, jobs []*domain.Job) error
}

// SubmitBulk inserts one pending job per URL under a shared source and
// priority. All inserts succeed or none do.
func (s *Service) SubmitBulk(ctx context.Context, sourceID string, urls []string, priority int) ([]*domain.Job, error) {
	if sourceID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "job source ID is required")
	}
	if len(urls) == 0 {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "at least one URL is required")
	}

	now := s.now().UTC()
	jobs := make([]*domain.Job, 0, len(urls))
	for _, rawURL := range urls {
		if rawURL == "" {
			return nil, domain.NewDomainError(domain.ErrCodeValidation, "job URL is required")
		}
		job := domain.NewJob(s.uuidGen.NewString(), sourceID, rawURL, priority, now)
		job.CreatedAt = now
		job.UpdatedAt = now
		jobs = append(jobs, job)
	}

	if err := s.bulk.SubmitAll(ctx, jobs); err != nil {
		return nil, fmt.Errorf("failed to submit jobs: %w", err)
	}
	return jobs, nil
}

// Next claims the next eligible job, transitioning it to running. Returns
// (nil, nil) when the queue has no due job.
func (s *Service) Next(ctx context.Context) (*domain.Job, error) {
	return s.store.ClaimNext(ctx, s.now())
}

// Execute runs the pipeline for a claimed job and applies the retry policy
// to the outcome. Success and partial runs complete the job; failed runs
// reschedule with exponential backoff until retries are exhausted.
func (s *Service) Execute(ctx context.Context, job *domain.Job) error {
	ctx, span := telemetry.StartSpan(ctx, "Scheduler.Execute", telemetry.SpanAttributes{
		JobID:     job.ID,
		SourceID:  job.SourceID,
		Operation: "execute",
	})
	defer span.End()

	run := s.pipeline.Run(ctx, job.SourceID, job.URL, s.autoProcess, s.autoEmbed)

	if run.Status != domain.RunStatusFailed {
		errMsg := strings.Join(run.Errors, "; ")
		if err := s.store.MarkCompleted(ctx, job.ID, errMsg, s.now()); err != nil {
			return fmt.Errorf("failed to complete job %s: %w", job.ID, err)
		}
		log.Printf("scheduler: job %s completed (%s, %d chunks)", job.ID, run.Status, len(run.ChunkIDs))
		return nil
	}

	errMsg := strings.Join(run.Errors, "; ")
	return s.handleFailure(ctx, job, errMsg)
}

func (s *Service) handleFailure(ctx context.Context, job *domain.Job, errMsg string) error {
	if job.CanRetry() {
		delay := job.RetryDelay()
		scheduledAt := s.now().Add(delay)
		if err := s.store.Reschedule(ctx, job.ID, errMsg, scheduledAt); err != nil {
			return fmt.Errorf("failed to reschedule job %s: %w", job.ID, err)
		}
		log.Printf("scheduler: job %s failed, retry %d/%d in %v: %s",
			job.ID, job.RetryCount+1, job.MaxRetries, delay, errMsg)
		return nil
	}

	if err := s.store.MarkFailed(ctx, job.ID, errMsg, s.now()); err != nil {
		return fmt.Errorf("failed to mark job %s failed: %w", job.ID, err)
	}
	log.Printf("scheduler: job %s failed permanently after %d retries: %s",
		job.ID, job.RetryCount, errMsg)
	return nil
}

// DrainQueue claims and executes jobs until the queue is empty or maxJobs
// have been processed, returning the count processed.
func (s *Service) DrainQueue(ctx context.Context, maxJobs int) (int, error) {
	processed := 0
	for processed < maxJobs {
		if err := ctx.Err(); err != nil {
			return processed, err
		}

		job, err := s.Next(ctx)
		if err != nil {
			return processed, fmt.Errorf("failed to claim next job: %w", err)
		}
		if job == nil {
			break
		}

		if err := s.Execute(ctx, job); err != nil {
			return processed, err
		}
		processed++
	}
	return processed, nil
}

// Stats returns aggregate job counts by status.
func (s *Service) Stats(ctx context.Context) (map[domain.JobStatus]int, error) {
	return s.store.CountByStatus(ctx)
}
