// Package jobs defines the background job model used by the API server to
// re-run the merge pipeline without blocking a request.
package jobs

import (
	"context"
	"time"
)

// JobType names a kind of background work.
type JobType string

// JobTypeRebuild re-runs the merge pipeline and reloads the serving store.
const JobTypeRebuild JobType = "rebuild_pipeline"

// JobStatus is the lifecycle state of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// RebuildJob asks for a full pipeline re-run.
type RebuildJob struct {
	JobID string `json:"job_id"`

	// Seed optionally overrides the configured random seed for this run.
	Seed int64 `json:"seed,omitempty"`

	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`
}

// Publisher enqueues rebuild jobs.
type Publisher interface {
	PublishRebuild(ctx context.Context, job *RebuildJob) error
	Close() error
}

// Consumer processes enqueued jobs with a handler.
type Consumer interface {
	Start(ctx context.Context, handler Handler) error
	Stop(ctx context.Context) error
}

// Handler processes one job. A returned error marks the job failed and may
// trigger a retry.
type Handler func(ctx context.Context, job *RebuildJob) error

// Store tracks job state for status queries.
type Store interface {
	SaveJob(ctx context.Context, job *RebuildJob) error
	GetJob(ctx context.Context, jobID string) (*RebuildJob, error)
	ListJobs(ctx context.Context, filter Filter) ([]*RebuildJob, error)
}

// Filter narrows ListJobs results.
type Filter struct {
	Status JobStatus
	Limit  int
}
