// Package jobs defines the asynchronous mailbox sync jobs and the queue
// abstractions the worker runs on.
package jobs

import (
	"context"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeSyncMailbox represents one mailbox ingestion run.
	JobTypeSyncMailbox JobType = "sync_mailbox"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// SyncMailboxJob asks the worker to ingest one mailbox.
type SyncMailboxJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// Owner is the mailbox address to sync.
	Owner string `json:"owner"`

	// Provider names the mail API serving the mailbox (graph or gmail).
	Provider string `json:"provider"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`

	// MessagesSeen and RecordsNew are filled in when the run completes.
	MessagesSeen int `json:"messages_seen"`
	RecordsNew   int `json:"records_new"`
}

// Job is a generic interface for all job types.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

func (j *SyncMailboxJob) GetID() string        { return j.JobID }
func (j *SyncMailboxJob) GetType() JobType     { return JobTypeSyncMailbox }
func (j *SyncMailboxJob) GetStatus() JobStatus { return j.Status }

// Publisher enqueues mailbox sync jobs. The abstraction allows swapping the
// in-memory queue for Cloud Tasks or Pub/Sub later.
type Publisher interface {
	PublishSyncMailbox(ctx context.Context, job *SyncMailboxJob) error
	Close() error
}

// Consumer runs queued jobs through a handler.
type Consumer interface {
	// Start begins consuming jobs. The handler is called for each job.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming and waits for in-flight jobs to finish.
	Stop(ctx context.Context) error
}

// JobHandler processes one job. A returned error marks the job for retry.
type JobHandler func(ctx context.Context, job Job) error

// JobStore tracks job state for inspection across the worker's lifetime.
type JobStore interface {
	SaveJob(ctx context.Context, job *SyncMailboxJob) error
	GetJob(ctx context.Context, jobID string) (*SyncMailboxJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*SyncMailboxJob, error)
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// Owner filters jobs by mailbox address.
	Owner string

	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int
}
