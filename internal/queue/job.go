package queue

import (
	"time"

	"github.com/RedRangerWentWild/IITR1/internal/models"
	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeRecordDelivery finishes recording a draft that was delivered
	// but whose ledger or metrics write failed
	JobTypeRecordDelivery JobType = "record_delivery"
)

// DefaultMaxRetries is the retry budget given to new jobs
const DefaultMaxRetries = 5

// Job represents a job in the queue
type Job struct {
	ID      uuid.UUID          `json:"id"`
	Type    JobType            `json:"type"`
	UserID  uuid.UUID          `json:"user_id"`
	EntryID *uuid.UUID         `json:"entry_id,omitempty"`
	Update  *models.SentUpdate `json:"update,omitempty"`
	// LedgerApplied marks a delivery whose ledger row is already updated
	LedgerApplied bool       `json:"ledger_applied,omitempty"`
	NotBefore     *time.Time `json:"not_before,omitempty"` // Earliest time to process job (nil = immediate)
	NotAfter      *time.Time `json:"not_after,omitempty"`  // Latest time to process job (nil = no expiration)
	CreatedAt     time.Time  `json:"created_at"`
	RetryCount    int        `json:"retry_count"`
	MaxRetries    int        `json:"max_retries"`
}

// NewJob creates a new job
func NewJob(jobType JobType, userID uuid.UUID) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       jobType,
		UserID:     userID,
		CreatedAt:  time.Now(),
		RetryCount: 0,
		MaxRetries: DefaultMaxRetries,
	}
}

// NewRecordDeliveryJob creates a job that applies update to a sent ledger entry
func NewRecordDeliveryJob(userID, entryID uuid.UUID, update models.SentUpdate) *Job {
	job := NewJob(JobTypeRecordDelivery, userID)
	job.EntryID = &entryID
	job.Update = &update
	return job
}

// ShouldProcess checks if the job should be processed now
func (j *Job) ShouldProcess() bool {
	now := time.Now()

	if j.NotBefore != nil && now.Before(*j.NotBefore) {
		return false
	}

	if j.NotAfter != nil && now.After(*j.NotAfter) {
		return false
	}

	return true
}

// IsExpired checks if the job has expired
func (j *Job) IsExpired() bool {
	if j.NotAfter == nil {
		return false
	}

	return time.Now().After(*j.NotAfter)
}

// CanRetry checks if the job can be retried
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// IncrementRetry increments the retry count
func (j *Job) IncrementRetry() {
	j.RetryCount++
}
