package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cardforge/cardforge-api/internal/config"
	"github.com/cardforge/cardforge-api/internal/domain"
	"github.com/cardforge/cardforge-api/internal/events"
	"github.com/cardforge/cardforge-api/internal/store"
)

// Priority tuning. Lower values are claimed first; the scale runs 1
// (most urgent) to 10. Small files jump the queue a little, large files
// yield a little. The formula is a tunable, not a correctness contract.
const (
	basePriority = 5
	minPriority  = 1
	maxPriority  = 10

	smallFileBytes = 5 * 1024 * 1024
	largeFileBytes = 20 * 1024 * 1024
)

// Duration estimate tuning, in seconds.
const (
	avgSecondsPerChunk = 45
	baseProcessingTime = 30
	minEstimateSeconds = 60
)

// SubmitJobRequest carries everything needed to enqueue a new job.
// FileURL points at the already-uploaded document; this service never
// touches file contents.
type SubmitJobRequest struct {
	UserID        uuid.UUID
	DeckID        uuid.UUID
	FileURL       string
	Filename      string
	MIMEType      string
	FileSizeBytes int64
	Options       domain.ProcessingOptions
}

// JobService provides job-related operations for the HTTP layer.
type JobService interface {
	// Submit validates the request and enqueues a new job.
	Submit(ctx context.Context, req SubmitJobRequest) (*domain.Job, error)

	// Cancel cancels a queued job. Processing and finished jobs are
	// rejected with an explicit reason.
	Cancel(ctx context.Context, userID, jobID uuid.UUID) error

	// Retry creates a fresh queued job from a failed job's original inputs.
	Retry(ctx context.Context, userID, jobID uuid.UUID) (*domain.Job, error)

	// GetJob retrieves one of the user's jobs.
	GetJob(ctx context.Context, userID, jobID uuid.UUID) (*domain.Job, error)

	// ListJobs retrieves the user's jobs, newest first.
	ListJobs(ctx context.Context, userID uuid.UUID, filter store.JobListFilter) ([]*domain.Job, error)

	// Stats computes the read-only aggregate for the user over the last
	// periodDays days. It never mutates job state.
	Stats(ctx context.Context, userID uuid.UUID, periodDays int) (*domain.StatsAggregate, error)
}

// jobServiceImpl implements the JobService interface
type jobServiceImpl struct {
	jobStore   store.JobStore
	deckStore  store.DeckStore
	emitter    events.EventEmitter
	processing config.ProcessingConfig
	logger     *slog.Logger
}

// NewJobService creates a new JobService.
// It returns an error if any of the required dependencies are nil.
func NewJobService(
	jobStore store.JobStore,
	deckStore store.DeckStore,
	emitter events.EventEmitter,
	processing config.ProcessingConfig,
	logger *slog.Logger,
) (JobService, error) {
	if jobStore == nil {
		return nil, &JobServiceError{
			Operation: "create_service",
			Message:   "jobStore cannot be nil",
		}
	}
	if deckStore == nil {
		return nil, &JobServiceError{
			Operation: "create_service",
			Message:   "deckStore cannot be nil",
		}
	}
	if emitter == nil {
		return nil, &JobServiceError{
			Operation: "create_service",
			Message:   "emitter cannot be nil",
		}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &jobServiceImpl{
		jobStore:   jobStore,
		deckStore:  deckStore,
		emitter:    emitter,
		processing: processing,
		logger:     logger.With(slog.String("component", "job_service")),
	}, nil
}

// Submit validates and enqueues a new job, then fires the worker wake
// signal. Validation failures are returned synchronously and never reach
// the store.
func (s *jobServiceImpl) Submit(ctx context.Context, req SubmitJobRequest) (*domain.Job, error) {
	if err := req.Options.Validate(); err != nil {
		return nil, NewJobServiceError("submit_job", "invalid processing options", err)
	}

	if req.FileSizeBytes > s.processing.MaxFileSizeBytes {
		return nil, ErrFileTooLarge
	}
	if !strings.Contains(strings.ToLower(req.MIMEType), "pdf") {
		return nil, ErrUnsupportedFileType
	}

	// Ownership check doubles as an existence check
	if _, err := s.deckStore.GetForOwner(ctx, req.DeckID, req.UserID); err != nil {
		return nil, NewJobServiceError("submit_job", "deck lookup failed", err)
	}

	active, err := s.jobStore.CountActiveByUser(ctx, req.UserID)
	if err != nil {
		return nil, NewJobServiceError("submit_job", "failed to count active jobs", err)
	}
	if active >= s.processing.MaxActiveJobs {
		return nil, ErrTooManyActiveJobs
	}

	job, err := domain.NewJob(
		req.UserID, req.DeckID,
		req.FileURL, req.Filename, req.FileSizeBytes,
		req.Options,
	)
	if err != nil {
		return nil, NewJobServiceError("submit_job", "failed to create job", err)
	}
	job.Priority = jobPriority(req.FileSizeBytes)
	job.EstimatedDurationSeconds = estimateProcessingSeconds(
		req.FileSizeBytes, req.Options.ChunkSize, s.processing.EstimatedPagesPerMB)

	if err := s.jobStore.Create(ctx, job); err != nil {
		s.logger.Error("failed to persist job",
			slog.String("error", err.Error()),
			slog.String("user_id", req.UserID.String()))
		return nil, NewJobServiceError("submit_job", "failed to save job", err)
	}

	s.logger.Info("job submitted",
		slog.String("job_id", job.ID.String()),
		slog.String("user_id", req.UserID.String()),
		slog.Int64("file_size_bytes", req.FileSizeBytes),
		slog.Int("priority", job.Priority))

	s.wakeWorkers(ctx, job)

	return job, nil
}

// wakeWorkers fires the worker wake signal. The signal is best-effort:
// a missed wake only delays the job until the next worker poll, so emit
// failures are logged and swallowed.
func (s *jobServiceImpl) wakeWorkers(ctx context.Context, job *domain.Job) {
	event := events.NewJobQueuedEvent(job.ID, job.Priority)
	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		s.logger.Warn("failed to emit job queued event",
			slog.String("error", err.Error()),
			slog.String("job_id", job.ID.String()))
	}
}

// Cancel cancels a queued job. The final transition is a compare-and-set
// in the store, so a worker claiming the job concurrently wins the race
// and the cancel is rejected.
func (s *jobServiceImpl) Cancel(ctx context.Context, userID, jobID uuid.UUID) error {
	job, err := s.GetJob(ctx, userID, jobID)
	if err != nil {
		return err
	}

	switch {
	case job.Status == domain.JobStatusProcessing:
		return ErrCancelProcessing
	case job.IsTerminal():
		return ErrJobAlreadyFinished
	}

	if err := s.jobStore.Cancel(ctx, jobID); err != nil {
		// Lost the race against a claiming worker
		if errors.Is(err, store.ErrJobAlreadyClaimed) {
			return ErrCancelProcessing
		}
		return NewJobServiceError("cancel_job", "failed to cancel job", err)
	}

	s.logger.Info("job cancelled",
		slog.String("job_id", jobID.String()),
		slog.String("user_id", userID.String()))
	return nil
}

// Retry creates a new queued job carrying the failed job's original
// immutable inputs. The failed record is left untouched; retry never
// mutates history.
func (s *jobServiceImpl) Retry(ctx context.Context, userID, jobID uuid.UUID) (*domain.Job, error) {
	original, err := s.GetJob(ctx, userID, jobID)
	if err != nil {
		return nil, err
	}

	if original.Status != domain.JobStatusFailed {
		return nil, ErrJobNotRetryable
	}

	active, err := s.jobStore.CountActiveByUser(ctx, userID)
	if err != nil {
		return nil, NewJobServiceError("retry_job", "failed to count active jobs", err)
	}
	if active >= s.processing.MaxActiveJobs {
		return nil, ErrTooManyActiveJobs
	}

	job, err := domain.NewJob(
		original.UserID, original.DeckID,
		original.FileURL, original.Filename, original.FileSizeBytes,
		original.Options,
	)
	if err != nil {
		return nil, NewJobServiceError("retry_job", "failed to create job", err)
	}
	job.Priority = jobPriority(original.FileSizeBytes)
	job.EstimatedDurationSeconds = estimateProcessingSeconds(
		original.FileSizeBytes, original.Options.ChunkSize, s.processing.EstimatedPagesPerMB)

	if err := s.jobStore.Create(ctx, job); err != nil {
		return nil, NewJobServiceError("retry_job", "failed to save job", err)
	}

	s.logger.Info("job retried as new job",
		slog.String("original_job_id", original.ID.String()),
		slog.String("job_id", job.ID.String()),
		slog.String("user_id", userID.String()))

	s.wakeWorkers(ctx, job)

	return job, nil
}

// GetJob retrieves a job and enforces ownership. A job owned by another
// user is indistinguishable from a missing one.
func (s *jobServiceImpl) GetJob(ctx context.Context, userID, jobID uuid.UUID) (*domain.Job, error) {
	job, err := s.jobStore.GetByID(ctx, jobID)
	if err != nil {
		return nil, NewJobServiceError("get_job", "failed to load job", err)
	}
	if job.UserID != userID {
		return nil, ErrJobNotFound
	}
	return job, nil
}

// ListJobs retrieves the user's jobs, newest first.
func (s *jobServiceImpl) ListJobs(
	ctx context.Context,
	userID uuid.UUID,
	filter store.JobListFilter,
) ([]*domain.Job, error) {
	jobs, err := s.jobStore.ListByUser(ctx, userID, filter)
	if err != nil {
		return nil, NewJobServiceError("list_jobs", "failed to list jobs", err)
	}
	return jobs, nil
}

// jobPriority computes the scheduling priority from file size.
func jobPriority(fileSizeBytes int64) int {
	priority := basePriority

	if fileSizeBytes < smallFileBytes {
		priority = max(priority-1, minPriority)
	}
	if fileSizeBytes > largeFileBytes {
		priority = min(priority+1, maxPriority)
	}

	return priority
}

// estimateProcessingSeconds estimates wall-clock duration from file size
// and the pages-per-chunk setting.
func estimateProcessingSeconds(fileSizeBytes int64, pagesPerChunk, pagesPerMB int) int {
	estimatedPages := float64(fileSizeBytes) / (1024 * 1024) * float64(pagesPerMB)
	estimatedChunks := int(math.Ceil(estimatedPages / float64(pagesPerChunk)))

	return max(baseProcessingTime+estimatedChunks*avgSecondsPerChunk, minEstimateSeconds)
}

// ensure the interface stays satisfied
var _ JobService = (*jobServiceImpl)(nil)

// periodStart returns the UTC start of the stats window.
func periodStart(now time.Time, periodDays int) time.Time {
	return now.UTC().AddDate(0, 0, -periodDays)
}
