package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of a processing job.
type JobStatus string

// Possible job status values. The state machine is:
// queued -> processing -> {completed | failed}; queued -> cancelled.
// A processing job can never move to cancelled.
const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// QuestionType selects what kind of flashcard questions to generate.
type QuestionType string

const (
	QuestionTypeAuto           QuestionType = "auto"
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
	QuestionTypeDescriptive    QuestionType = "descriptive"
)

// GenerateMode selects which parts of the document yield cards.
type GenerateMode string

const (
	GenerateModeAll          GenerateMode = "all"
	GenerateModeProblemsOnly GenerateMode = "problems_only"
	GenerateModeKeyPoints    GenerateMode = "key_points"
)

// Bounds for the pages-per-chunk setting in ProcessingOptions.
const (
	MinChunkSize     = 1
	MaxChunkSize     = 20
	DefaultChunkSize = 4
)

// Common validation errors for Job.
var (
	ErrEmptyJobID       = errors.New("job ID cannot be empty")
	ErrEmptyJobUserID   = errors.New("job user ID cannot be empty")
	ErrEmptyJobDeckID   = errors.New("job deck ID cannot be empty")
	ErrEmptyJobFileURL  = errors.New("job file URL cannot be empty")
	ErrEmptyJobFilename = errors.New("job filename cannot be empty")
	ErrInvalidFileSize  = errors.New("job file size must be positive")
)

// ProcessingOptions carries the user-selected generation settings for a job.
// ChunkSize is the pages-per-chunk setting used for estimates; the token
// budget the chunker operates on is a server-side setting.
type ProcessingOptions struct {
	QuestionType QuestionType `json:"question_type"`
	GenerateMode GenerateMode `json:"generate_mode"`
	ChunkSize    int          `json:"chunk_size"`
}

// Validate checks the processing options against their allowed values.
func (o ProcessingOptions) Validate() error {
	switch o.QuestionType {
	case QuestionTypeAuto, QuestionTypeMultipleChoice, QuestionTypeDescriptive:
	default:
		return fmt.Errorf("%w: unknown question type %q", ErrInvalidOptions, o.QuestionType)
	}

	switch o.GenerateMode {
	case GenerateModeAll, GenerateModeProblemsOnly, GenerateModeKeyPoints:
	default:
		return fmt.Errorf("%w: unknown generate mode %q", ErrInvalidOptions, o.GenerateMode)
	}

	if o.ChunkSize < MinChunkSize || o.ChunkSize > MaxChunkSize {
		return fmt.Errorf("%w: chunk size must be between %d and %d",
			ErrInvalidOptions, MinChunkSize, MaxChunkSize)
	}

	return nil
}

// ApplyDefaults fills zero-valued options with their defaults so that
// clients may omit any subset of the settings.
func (o *ProcessingOptions) ApplyDefaults() {
	if o.QuestionType == "" {
		o.QuestionType = QuestionTypeAuto
	}
	if o.GenerateMode == "" {
		o.GenerateMode = GenerateModeAll
	}
	if o.ChunkSize == 0 {
		o.ChunkSize = DefaultChunkSize
	}
}

// ErrorKind classifies job failures for callers and operators.
type ErrorKind string

const (
	ErrorKindValidation    ErrorKind = "validation"
	ErrorKindQuota         ErrorKind = "quota"
	ErrorKindProcessing    ErrorKind = "processing"
	ErrorKindWorkerTimeout ErrorKind = "worker_timeout"
	ErrorKindUnknown       ErrorKind = "unknown"
)

// ErrorRecord captures why a job failed. It is persisted on the job
// and is present exactly when the job status is failed.
type ErrorRecord struct {
	Kind            ErrorKind `json:"kind"`
	Message         string    `json:"message"`
	ChunkID         string    `json:"chunk_id,omitempty"`
	WorkerID        string    `json:"worker_id,omitempty"`
	Retryable       bool      `json:"retryable"`
	SuggestedAction string    `json:"suggested_action,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// ResultSummary captures the outcome of a completed job. It is present
// exactly when the job status is completed.
type ResultSummary struct {
	TotalCards            int       `json:"total_cards"`
	TotalChunks           int       `json:"total_chunks"`
	FailedChunks          []int     `json:"failed_chunks,omitempty"`
	WarningCount          int       `json:"warning_count"`
	SuccessRate           float64   `json:"success_rate"`
	ProcessingTimeSeconds int       `json:"processing_time_seconds"`
	ChunkDurationsMs      []int64   `json:"chunk_durations_ms,omitempty"`
	CompletedAt           time.Time `json:"completed_at"`
}

// Job represents one PDF-to-flashcard processing request and its full
// lifecycle record. It is created by the scheduler, claimed and mutated by
// exactly one worker at a time, and terminated by the worker or controller.
type Job struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id"`
	DeckID uuid.UUID `json:"deck_id"`

	Status   JobStatus `json:"status"`
	Priority int       `json:"priority"`

	FileURL       string            `json:"file_url"`
	Filename      string            `json:"filename"`
	FileSizeBytes int64             `json:"file_size_bytes"`
	Options       ProcessingOptions `json:"processing_options"`

	ProgressPct     int    `json:"progress_percentage"`
	CurrentStep     string `json:"current_step"`
	TotalChunks     int    `json:"total_chunks"`
	ProcessedChunks int    `json:"processed_chunks"`
	GeneratedCards  int    `json:"generated_cards"`

	ResultSummary *ResultSummary `json:"result_summary,omitempty"`
	ErrorRecord   *ErrorRecord   `json:"error_details,omitempty"`

	EstimatedDurationSeconds int `json:"estimated_duration_seconds"`
	ActualDurationSeconds    int `json:"actual_duration_seconds"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Worker binding. Set only while status is processing; cleared on
	// completion, failure, cancellation, and reclaim.
	WorkerID        string     `json:"worker_id,omitempty"`
	WorkerStartedAt *time.Time `json:"worker_started_at,omitempty"`
	LastHeartbeatAt *time.Time `json:"last_heartbeat_at,omitempty"`
}

// NewJob creates a queued Job for the given owner, deck, and source file.
// It generates a fresh job ID and stamps the creation timestamps.
// Returns an error if validation fails.
func NewJob(
	userID, deckID uuid.UUID,
	fileURL, filename string,
	fileSizeBytes int64,
	options ProcessingOptions,
) (*Job, error) {
	now := time.Now().UTC()
	job := &Job{
		ID:            uuid.New(),
		UserID:        userID,
		DeckID:        deckID,
		Status:        JobStatusQueued,
		FileURL:       fileURL,
		Filename:      filename,
		FileSizeBytes: fileSizeBytes,
		Options:       options,
		CurrentStep:   "queued",
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := job.Validate(); err != nil {
		return nil, err
	}

	return job, nil
}

// Validate checks if the Job has valid data.
// Returns an error if any field fails validation.
func (j *Job) Validate() error {
	if j.ID == uuid.Nil {
		return ErrEmptyJobID
	}
	if j.UserID == uuid.Nil {
		return ErrEmptyJobUserID
	}
	if j.DeckID == uuid.Nil {
		return ErrEmptyJobDeckID
	}
	if j.FileURL == "" {
		return ErrEmptyJobFileURL
	}
	if j.Filename == "" {
		return ErrEmptyJobFilename
	}
	if j.FileSizeBytes <= 0 {
		return ErrInvalidFileSize
	}
	if !IsValidJobStatus(j.Status) {
		return ErrInvalidJobStatus
	}
	if err := j.Options.Validate(); err != nil {
		return err
	}
	return nil
}

// IsTerminal reports whether the job has reached a final state.
func (j *Job) IsTerminal() bool {
	switch j.Status {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// IsActive reports whether the job counts against the owner's
// concurrent-job cap.
func (j *Job) IsActive() bool {
	return j.Status == JobStatusQueued || j.Status == JobStatusProcessing
}

// IsValidJobStatus checks if the given status is a valid JobStatus.
func IsValidJobStatus(status JobStatus) bool {
	switch status {
	case JobStatusQueued, JobStatusProcessing, JobStatusCompleted,
		JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}
