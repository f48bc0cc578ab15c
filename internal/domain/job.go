package domain

import (
	"fmt"
	"time"
)

// JobStatus represents the lifecycle state of a crawl job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// DefaultMaxRetries is applied when a job is submitted without an explicit limit
const DefaultMaxRetries = 3

// Job represents one crawl task in the durable queue
type Job struct {
	ID          string
	SourceID    string
	URL         string
	Status      JobStatus
	Priority    int
	ScheduledAt time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	LastError   string
	RetryCount  int
	MaxRetries  int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewJob creates a pending Job scheduled at the given time.
// A zero scheduledAt means "now".
func NewJob(id, sourceID, url string, priority int, scheduledAt time.Time) *Job {
	now := time.Now().UTC()
	if scheduledAt.IsZero() {
		scheduledAt = now
	}
	return &Job{
		ID:          id,
		SourceID:    sourceID,
		URL:         url,
		Status:      JobStatusPending,
		Priority:    priority,
		ScheduledAt: scheduledAt,
		RetryCount:  0,
		MaxRetries:  DefaultMaxRetries,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// CanRetry reports whether the job has retry budget left.
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// RetryDelay returns the backoff delay for the next retry attempt,
// computed from the current (pre-increment) retry count.
func (j *Job) RetryDelay() time.Duration {
	return time.Minute * (1 << j.RetryCount)
}

// ValidateJob validates a Job instance
func ValidateJob(j *Job) error {
	if j == nil {
		return fmt.Errorf("job cannot be nil")
	}
	if j.ID == "" {
		return fmt.Errorf("job ID is required")
	}
	if j.SourceID == "" {
		return fmt.Errorf("job SourceID is required")
	}
	if j.URL == "" {
		return fmt.Errorf("job URL is required")
	}
	if !isValidJobStatus(j.Status) {
		return fmt.Errorf("job Status is invalid: %s", j.Status)
	}
	if j.MaxRetries < 0 {
		return fmt.Errorf("job MaxRetries cannot be negative")
	}
	if j.Status == JobStatusPending && j.RetryCount > j.MaxRetries {
		return fmt.Errorf("pending job retry count %d exceeds max retries %d", j.RetryCount, j.MaxRetries)
	}
	return nil
}

func isValidJobStatus(s JobStatus) bool {
	switch s {
	case JobStatusPending, JobStatusRunning, JobStatusCompleted, JobStatusFailed:
		return true
	}
	return false
}
