package service

import (
	"errors"
	"fmt"

	"github.com/cardforge/cardforge-api/internal/store"
)

// Common sentinel errors for JobService. The cancel/retry sentinels carry
// the exact rejection reason so callers can render actionable messages.
var (
	// ErrJobNotFound indicates that the job does not exist or belongs to
	// another user.
	ErrJobNotFound = errors.New("job not found")

	// ErrDeckNotFound indicates that the target deck does not exist or
	// belongs to another user.
	ErrDeckNotFound = errors.New("deck not found")

	// ErrFileTooLarge indicates the submitted file exceeds the size ceiling.
	ErrFileTooLarge = errors.New("file exceeds the maximum allowed size")

	// ErrUnsupportedFileType indicates the declared MIME type is not a PDF.
	ErrUnsupportedFileType = errors.New("only PDF files are supported")

	// ErrTooManyActiveJobs indicates the user already has the maximum
	// number of queued or processing jobs.
	ErrTooManyActiveJobs = errors.New(
		"too many active jobs; wait for a running job to finish before submitting another")

	// ErrCancelProcessing indicates a cancel attempt on a job a worker has
	// already claimed.
	ErrCancelProcessing = errors.New(
		"processing jobs cannot be cancelled; wait for the job to finish")

	// ErrJobAlreadyFinished indicates a cancel attempt on a terminal job.
	ErrJobAlreadyFinished = errors.New("job has already finished")

	// ErrJobNotRetryable indicates a retry attempt on a job that is not failed.
	ErrJobNotRetryable = errors.New("only failed jobs can be retried")
)

// JobServiceError wraps errors from the job service with context.
type JobServiceError struct {
	// Operation is the operation that failed (e.g., "submit_job", "cancel_job")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for JobServiceError.
func (e *JobServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("job service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("job service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *JobServiceError) Unwrap() error {
	return e.Err
}

// NewJobServiceError creates a new JobServiceError.
// It returns known sentinel errors directly without wrapping, and maps
// store-level sentinels onto the service-level ones.
func NewJobServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrJobNotFound),
		errors.Is(err, ErrDeckNotFound),
		errors.Is(err, ErrFileTooLarge),
		errors.Is(err, ErrUnsupportedFileType),
		errors.Is(err, ErrTooManyActiveJobs),
		errors.Is(err, ErrCancelProcessing),
		errors.Is(err, ErrJobAlreadyFinished),
		errors.Is(err, ErrJobNotRetryable):
		return err
	case errors.Is(err, store.ErrJobNotFound):
		return ErrJobNotFound
	case errors.Is(err, store.ErrDeckNotFound):
		return ErrDeckNotFound
	}

	return &JobServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
