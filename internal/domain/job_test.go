package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJob_Defaults(t *testing.T) {
	job := NewJob("j1", "sec-gov", "https://example.gov/doc", 5, time.Time{})

	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, 0, job.RetryCount)
	assert.Equal(t, DefaultMaxRetries, job.MaxRetries)
	assert.False(t, job.ScheduledAt.IsZero())
}

func TestNewJob_ExplicitSchedule(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	job := NewJob("j1", "sec-gov", "https://example.gov/doc", 0, at)
	assert.Equal(t, at, job.ScheduledAt)
}

func TestCanRetry(t *testing.T) {
	job := NewJob("j1", "s", "https://u", 0, time.Time{})
	job.MaxRetries = 2

	job.RetryCount = 0
	assert.True(t, job.CanRetry())
	job.RetryCount = 1
	assert.True(t, job.CanRetry())
	job.RetryCount = 2
	assert.False(t, job.CanRetry())
}

func TestRetryDelay_DoublesPerAttempt(t *testing.T) {
	job := NewJob("j1", "s", "https://u", 0, time.Time{})

	cases := []struct {
		retryCount int
		want       time.Duration
	}{
		{0, time.Minute},
		{1, 2 * time.Minute},
		{2, 4 * time.Minute},
		{3, 8 * time.Minute},
	}
	for _, tc := range cases {
		job.RetryCount = tc.retryCount
		assert.Equal(t, tc.want, job.RetryDelay())
	}
}

func TestValidateJob(t *testing.T) {
	valid := func() *Job { return NewJob("j1", "sec-gov", "https://example.gov/doc", 0, time.Time{}) }

	require.NoError(t, ValidateJob(valid()))

	cases := []struct {
		name   string
		mutate func(*Job)
	}{
		{"missing id", func(j *Job) { j.ID = "" }},
		{"missing source", func(j *Job) { j.SourceID = "" }},
		{"missing url", func(j *Job) { j.URL = "" }},
		{"bad status", func(j *Job) { j.Status = "paused" }},
		{"negative max retries", func(j *Job) { j.MaxRetries = -1 }},
		{"pending retries exceed max", func(j *Job) { j.RetryCount = 5; j.MaxRetries = 3 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			job := valid()
			tc.mutate(job)
			assert.Error(t, ValidateJob(job))
		})
	}

	assert.Error(t, ValidateJob(nil))
}

func TestValidateJob_ExhaustedNonPendingIsValid(t *testing.T) {
	job := NewJob("j1", "sec-gov", "https://example.gov/doc", 0, time.Time{})
	job.Status = JobStatusFailed
	job.RetryCount = 5
	job.MaxRetries = 3
	assert.NoError(t, ValidateJob(job))
}
