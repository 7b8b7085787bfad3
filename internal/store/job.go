package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cardforge/cardforge-api/internal/domain"
)

// JobListFilter narrows ListByUser queries. Zero values mean "no filter".
type JobListFilter struct {
	// Status restricts results to a single job status.
	Status domain.JobStatus

	// CreatedAfter restricts results to jobs created at or after this time.
	CreatedAfter time.Time

	// Limit caps the number of results; zero means unlimited.
	Limit int

	// Offset skips that many results (applies only when Limit > 0).
	Offset int
}

// JobStore is the durable record store for jobs. Implementations must
// guarantee atomicity at single-record granularity; the compare-and-set
// operations (ClaimNext, Claim, Cancel) are the concurrency contract the
// worker runtime and controller depend on.
type JobStore interface {
	// Create persists a new job.
	Create(ctx context.Context, job *domain.Job) error

	// GetByID retrieves a job by its unique ID.
	// Returns ErrJobNotFound if the job does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error)

	// ListByUser retrieves the user's jobs, newest first, applying the filter.
	ListByUser(ctx context.Context, userID uuid.UUID, filter JobListFilter) ([]*domain.Job, error)

	// CountActiveByUser counts the user's queued and processing jobs.
	CountActiveByUser(ctx context.Context, userID uuid.UUID) (int, error)

	// ClaimNext atomically transitions the best queued job (lowest
	// priority value first, then oldest) to processing, stamping the
	// worker binding.
	// Returns ErrNoJobsAvailable when the queue is empty.
	ClaimNext(ctx context.Context, workerID string, now time.Time) (*domain.Job, error)

	// Claim atomically transitions the given queued job to processing.
	// Returns ErrJobNotFound if the job does not exist and
	// ErrJobAlreadyClaimed if it is no longer queued.
	Claim(ctx context.Context, jobID uuid.UUID, workerID string, now time.Time) (*domain.Job, error)

	// SetTotalChunks records the chunk count and current step once the
	// document has been extracted and split.
	SetTotalChunks(ctx context.Context, jobID uuid.UUID, totalChunks int, currentStep string) error

	// UpdateProgress records per-chunk progress on a processing job.
	UpdateProgress(
		ctx context.Context,
		jobID uuid.UUID,
		processedChunks, generatedCards, progressPct int,
		currentStep string,
	) error

	// Heartbeat stamps the worker liveness time on a processing job.
	// The workerID must match the current binding.
	Heartbeat(ctx context.Context, jobID uuid.UUID, workerID string, at time.Time) error

	// Complete finalizes a processing job as completed, storing the result
	// summary, clearing the worker binding, and stamping completion.
	Complete(ctx context.Context, jobID uuid.UUID, summary domain.ResultSummary, generatedCards int) error

	// Fail finalizes a processing job as failed, storing the error record
	// and clearing the worker binding.
	Fail(ctx context.Context, jobID uuid.UUID, record domain.ErrorRecord) error

	// Cancel atomically transitions a queued job to cancelled, stamping
	// the completion time. Returns ErrJobNotFound if the job does not
	// exist and ErrJobAlreadyClaimed if the job is not queued.
	Cancel(ctx context.Context, jobID uuid.UUID) error

	// ReclaimStale returns every processing job whose last heartbeat is
	// older than the cutoff back to queued, clearing the worker binding.
	// Returns the number of jobs reclaimed.
	ReclaimStale(ctx context.Context, cutoff time.Time) (int, error)
}
