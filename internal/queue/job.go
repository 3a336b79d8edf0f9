package queue

import (
	"time"

	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeProfileRebuild rebuilds and stores a single user's profile snapshot
	JobTypeProfileRebuild JobType = "profile_rebuild"
)

// RebuildReason records who asked for a rebuild
type RebuildReason string

const (
	ReasonScheduled RebuildReason = "scheduled"
	ReasonManual    RebuildReason = "manual"
	ReasonAPI       RebuildReason = "api"
)

const (
	defaultMaxRetries = 3
	baseRetryDelay    = 30 * time.Second
	maxRetryDelay     = 15 * time.Minute
)

// Job represents a job in the queue
type Job struct {
	ID         uuid.UUID     `json:"id"`
	Type       JobType       `json:"type"`
	UserID     string        `json:"user_id"`
	Reason     RebuildReason `json:"reason,omitempty"`
	NotBefore  *time.Time    `json:"not_before,omitempty"` // nil = immediate
	NotAfter   *time.Time    `json:"not_after,omitempty"`  // nil = never expires
	CreatedAt  time.Time     `json:"created_at"`
	RetryCount int           `json:"retry_count"`
	MaxRetries int           `json:"max_retries"`
}

// NewProfileRebuildJob creates a rebuild job for one user
func NewProfileRebuildJob(userID string, reason RebuildReason) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       JobTypeProfileRebuild,
		UserID:     userID,
		Reason:     reason,
		CreatedAt:  time.Now(),
		MaxRetries: defaultMaxRetries,
	}
}

// ShouldProcess reports whether the job is inside its processing window at now
func (j *Job) ShouldProcess(now time.Time) bool {
	if j.NotBefore != nil && now.Before(*j.NotBefore) {
		return false
	}
	return !j.IsExpired(now)
}

// IsExpired checks if the job has passed its NotAfter deadline
func (j *Job) IsExpired(now time.Time) bool {
	return j.NotAfter != nil && now.After(*j.NotAfter)
}

// CanRetry checks if the job can be retried
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// IncrementRetry increments the retry count
func (j *Job) IncrementRetry() {
	j.RetryCount++
}

// RetryDelay doubles from 30s per attempt, capped at 15m
func (j *Job) RetryDelay() time.Duration {
	delay := baseRetryDelay
	for i := 1; i < j.RetryCount; i++ {
		delay *= 2
		if delay >= maxRetryDelay {
			return maxRetryDelay
		}
	}
	return delay
}

// ScheduleRetry bumps the retry count and delays the job by RetryDelay from now
func (j *Job) ScheduleRetry(now time.Time) {
	j.IncrementRetry()
	notBefore := now.Add(j.RetryDelay())
	j.NotBefore = &notBefore
}
