// Package jobs defines asynchronous statement extraction jobs and the
// queue and store abstractions that carry them.
package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/dvloznov/statement-extractor/internal/domain"
)

// ErrJobNotFound is returned by a JobStore for an unknown job ID.
var ErrJobNotFound = errors.New("job not found")

// ErrQueueClosed is returned when publishing to or starting a stopped queue.
var ErrQueueClosed = errors.New("queue is closed")

// JobStatus represents the current status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is waiting to be re-queued.
	JobStatusRetrying JobStatus = "retrying"
)

// ExtractStatementJob extracts the transactions of one statement. Exactly
// one of Text and Source is expected: inline text, or a local path or
// gs:// URI to read it from.
type ExtractStatementJob struct {
	JobID      string `json:"job_id"`
	DocumentID string `json:"document_id,omitempty"`

	Source   string `json:"source,omitempty"`
	Text     string `json:"-"`
	Provider string `json:"provider,omitempty"`

	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`

	// Transactions is set once the job completes.
	Transactions []domain.CandidateTransaction `json:"transactions,omitempty"`
}

// Publisher enqueues jobs.
type Publisher interface {
	PublishExtractStatement(ctx context.Context, job *ExtractStatementJob) error
	Close() error
}

// Consumer delivers queued jobs to a handler.
type Consumer interface {
	// Start begins consuming jobs; handler is called for each one.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes a job, filling in its result fields. A returned
// error marks the attempt failed and may trigger a retry.
type JobHandler func(ctx context.Context, job *ExtractStatementJob) error

// JobStore records job state so it can be polled.
type JobStore interface {
	SaveJob(ctx context.Context, job *ExtractStatementJob) error
	GetJob(ctx context.Context, jobID string) (*ExtractStatementJob, error)
	// ListJobs returns matching jobs, newest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*ExtractStatementJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	DocumentID string
	Status     JobStatus
	Limit      int
	Offset     int
}
