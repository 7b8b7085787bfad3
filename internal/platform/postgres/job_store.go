package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cardforge/cardforge-api/internal/domain"
	"github.com/cardforge/cardforge-api/internal/platform/logger"
	"github.com/cardforge/cardforge-api/internal/store"
)

// jobColumns is the column list every job SELECT uses, in scanJob order.
const jobColumns = `id, user_id, deck_id, status, priority,
	file_url, filename, file_size_bytes, options,
	progress_pct, current_step, total_chunks, processed_chunks, generated_cards,
	result_summary, error_record,
	estimated_duration_seconds, actual_duration_seconds,
	created_at, started_at, completed_at, updated_at,
	worker_id, worker_started_at, last_heartbeat_at`

// PostgresJobStore implements the store.JobStore interface
// using a PostgreSQL database as the storage backend. The status
// transitions are single-statement compare-and-set updates, so the row
// itself is the concurrency control; no advisory locking is needed.
type PostgresJobStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresJobStore creates a new PostgreSQL implementation of the JobStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresJobStore(db store.DBTX, logger *slog.Logger) *PostgresJobStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresJobStore{
		db:     db,
		logger: logger.With(slog.String("component", "job_store")),
	}
}

// Ensure PostgresJobStore implements store.JobStore interface
var _ store.JobStore = (*PostgresJobStore)(nil)

// rowScanner abstracts *sql.Row and *sql.Rows for scanJob.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var job domain.Job
	var status string
	var optionsJSON, summaryJSON, errorJSON []byte
	var workerID sql.NullString
	var startedAt, completedAt, workerStartedAt, lastHeartbeatAt sql.NullTime

	err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.DeckID,
		&status,
		&job.Priority,
		&job.FileURL,
		&job.Filename,
		&job.FileSizeBytes,
		&optionsJSON,
		&job.ProgressPct,
		&job.CurrentStep,
		&job.TotalChunks,
		&job.ProcessedChunks,
		&job.GeneratedCards,
		&summaryJSON,
		&errorJSON,
		&job.EstimatedDurationSeconds,
		&job.ActualDurationSeconds,
		&job.CreatedAt,
		&startedAt,
		&completedAt,
		&job.UpdatedAt,
		&workerID,
		&workerStartedAt,
		&lastHeartbeatAt,
	)
	if err != nil {
		return nil, err
	}

	job.Status = domain.JobStatus(status)

	if err := json.Unmarshal(optionsJSON, &job.Options); err != nil {
		return nil, fmt.Errorf("failed to decode job options: %w", err)
	}
	if len(summaryJSON) > 0 {
		var summary domain.ResultSummary
		if err := json.Unmarshal(summaryJSON, &summary); err != nil {
			return nil, fmt.Errorf("failed to decode result summary: %w", err)
		}
		job.ResultSummary = &summary
	}
	if len(errorJSON) > 0 {
		var record domain.ErrorRecord
		if err := json.Unmarshal(errorJSON, &record); err != nil {
			return nil, fmt.Errorf("failed to decode error record: %w", err)
		}
		job.ErrorRecord = &record
	}

	job.WorkerID = workerID.String
	if startedAt.Valid {
		t := startedAt.Time
		job.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}
	if workerStartedAt.Valid {
		t := workerStartedAt.Time
		job.WorkerStartedAt = &t
	}
	if lastHeartbeatAt.Valid {
		t := lastHeartbeatAt.Time
		job.LastHeartbeatAt = &t
	}

	return &job, nil
}

// Create implements store.JobStore.Create
// It saves a new job to the database, handling domain validation.
// Returns store.ErrInvalidEntity if the deck or user doesn't exist
// (foreign key violation).
func (s *PostgresJobStore) Create(ctx context.Context, job *domain.Job) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := job.Validate(); err != nil {
		log.Warn("job validation failed during create",
			slog.String("error", err.Error()),
			slog.String("job_id", job.ID.String()))
		return err
	}

	optionsJSON, err := json.Marshal(job.Options)
	if err != nil {
		return fmt.Errorf("failed to encode job options: %w", err)
	}

	query := `
		INSERT INTO jobs (id, user_id, deck_id, status, priority,
			file_url, filename, file_size_bytes, options,
			progress_pct, current_step, estimated_duration_seconds,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		job.ID,
		job.UserID,
		job.DeckID,
		job.Status,
		job.Priority,
		job.FileURL,
		job.Filename,
		job.FileSizeBytes,
		optionsJSON,
		job.ProgressPct,
		job.CurrentStep,
		job.EstimatedDurationSeconds,
		job.CreatedAt,
		job.UpdatedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolationCode {
			log.Warn("foreign key violation during job creation",
				slog.String("error", err.Error()),
				slog.String("job_id", job.ID.String()),
				slog.String("deck_id", job.DeckID.String()))
			return fmt.Errorf("%w: deck with ID %s not found",
				store.ErrInvalidEntity, job.DeckID)
		}

		log.Error("failed to create job",
			slog.String("error", err.Error()),
			slog.String("job_id", job.ID.String()))
		return err
	}

	log.Info("job created successfully",
		slog.String("job_id", job.ID.String()),
		slog.String("user_id", job.UserID.String()),
		slog.Int("priority", job.Priority))
	return nil
}

// GetByID implements store.JobStore.GetByID
// Returns store.ErrJobNotFound if the job does not exist.
func (s *PostgresJobStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`

	job, err := scanJob(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("job not found", slog.String("job_id", id.String()))
			return nil, store.ErrJobNotFound
		}
		log.Error("failed to get job by ID",
			slog.String("error", err.Error()),
			slog.String("job_id", id.String()))
		return nil, err
	}

	return job, nil
}

// ListByUser implements store.JobStore.ListByUser
// Results are ordered newest first.
func (s *PostgresJobStore) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
	filter store.JobListFilter,
) ([]*domain.Job, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var sb strings.Builder
	sb.WriteString(`SELECT ` + jobColumns + ` FROM jobs WHERE user_id = $1`)
	args := []interface{}{userID}

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		fmt.Fprintf(&sb, " AND status = $%d", len(args))
	}
	if !filter.CreatedAfter.IsZero() {
		args = append(args, filter.CreatedAfter)
		fmt.Fprintf(&sb, " AND created_at >= $%d", len(args))
	}

	sb.WriteString(" ORDER BY created_at DESC")

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
		args = append(args, filter.Offset)
		fmt.Fprintf(&sb, " OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		log.Error("failed to list jobs",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var jobs []*domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return jobs, nil
}

// CountActiveByUser implements store.JobStore.CountActiveByUser
func (s *PostgresJobStore) CountActiveByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM jobs
		WHERE user_id = $1 AND status IN ('queued', 'processing')
	`

	var count int
	if err := s.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count active jobs: %w", err)
	}
	return count, nil
}

// ClaimNext implements store.JobStore.ClaimNext
// It atomically claims the best queued job (lowest priority value first,
// then oldest)
// in a single statement. FOR UPDATE SKIP LOCKED lets concurrent workers
// claim different rows without blocking each other.
// Returns store.ErrNoJobsAvailable when the queue is empty.
func (s *PostgresJobStore) ClaimNext(
	ctx context.Context,
	workerID string,
	now time.Time,
) (*domain.Job, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE jobs
		SET status = 'processing',
			worker_id = $1,
			worker_started_at = $2,
			last_heartbeat_at = $2,
			started_at = $2,
			current_step = 'claimed',
			updated_at = $2
		WHERE id = (
			SELECT id FROM jobs
			WHERE status = 'queued'
			ORDER BY priority ASC, created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + jobColumns

	job, err := scanJob(s.db.QueryRowContext(ctx, query, workerID, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNoJobsAvailable
		}
		log.Error("failed to claim next job",
			slog.String("error", err.Error()),
			slog.String("worker_id", workerID))
		return nil, err
	}

	log.Info("job claimed",
		slog.String("job_id", job.ID.String()),
		slog.String("worker_id", workerID),
		slog.Int("priority", job.Priority))
	return job, nil
}

// Claim implements store.JobStore.Claim
// It atomically transitions the given job from queued to processing.
// Returns store.ErrJobNotFound if the job does not exist and
// store.ErrJobAlreadyClaimed if it is no longer queued.
func (s *PostgresJobStore) Claim(
	ctx context.Context,
	jobID uuid.UUID,
	workerID string,
	now time.Time,
) (*domain.Job, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE jobs
		SET status = 'processing',
			worker_id = $1,
			worker_started_at = $2,
			last_heartbeat_at = $2,
			started_at = $2,
			current_step = 'claimed',
			updated_at = $2
		WHERE id = $3 AND status = 'queued'
		RETURNING ` + jobColumns

	job, err := scanJob(s.db.QueryRowContext(ctx, query, workerID, now, jobID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Distinguish missing from already-claimed
			if _, getErr := s.GetByID(ctx, jobID); getErr != nil {
				return nil, getErr
			}
			return nil, store.ErrJobAlreadyClaimed
		}
		log.Error("failed to claim job",
			slog.String("error", err.Error()),
			slog.String("job_id", jobID.String()),
			slog.String("worker_id", workerID))
		return nil, err
	}

	return job, nil
}

// SetTotalChunks implements store.JobStore.SetTotalChunks
func (s *PostgresJobStore) SetTotalChunks(
	ctx context.Context,
	jobID uuid.UUID,
	totalChunks int,
	currentStep string,
) error {
	query := `
		UPDATE jobs
		SET total_chunks = $1, current_step = $2, updated_at = $3
		WHERE id = $4
	`
	return s.execExpectingRow(ctx, query, totalChunks, currentStep, time.Now().UTC(), jobID)
}

// UpdateProgress implements store.JobStore.UpdateProgress
func (s *PostgresJobStore) UpdateProgress(
	ctx context.Context,
	jobID uuid.UUID,
	processedChunks, generatedCards, progressPct int,
	currentStep string,
) error {
	query := `
		UPDATE jobs
		SET processed_chunks = $1,
			generated_cards = $2,
			progress_pct = $3,
			current_step = $4,
			updated_at = $5
		WHERE id = $6
	`
	return s.execExpectingRow(
		ctx, query,
		processedChunks, generatedCards, progressPct, currentStep,
		time.Now().UTC(), jobID,
	)
}

// Heartbeat implements store.JobStore.Heartbeat
// The update only matches while the job is processing under the given
// worker, so a reclaimed job silently stops accepting stale heartbeats.
func (s *PostgresJobStore) Heartbeat(
	ctx context.Context,
	jobID uuid.UUID,
	workerID string,
	at time.Time,
) error {
	query := `
		UPDATE jobs
		SET last_heartbeat_at = $1, updated_at = $1
		WHERE id = $2 AND status = 'processing' AND worker_id = $3
	`

	result, err := s.db.ExecContext(ctx, query, at, jobID, workerID)
	if err != nil {
		return fmt.Errorf("failed to record heartbeat: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrUpdateFailed
	}
	return nil
}

// Complete implements store.JobStore.Complete
// It finalizes a processing job as completed, storing the result summary
// and clearing the worker binding.
func (s *PostgresJobStore) Complete(
	ctx context.Context,
	jobID uuid.UUID,
	summary domain.ResultSummary,
	generatedCards int,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode result summary: %w", err)
	}

	completedAt := summary.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now().UTC()
	}

	query := `
		UPDATE jobs
		SET status = 'completed',
			result_summary = $1,
			generated_cards = $2,
			progress_pct = 100,
			current_step = 'completed',
			completed_at = $3,
			actual_duration_seconds = COALESCE(
				EXTRACT(EPOCH FROM ($3::timestamptz - started_at))::int, 0),
			worker_id = NULL,
			worker_started_at = NULL,
			last_heartbeat_at = NULL,
			updated_at = $3
		WHERE id = $4 AND status = 'processing'
	`

	result, err := s.db.ExecContext(ctx, query, summaryJSON, generatedCards, completedAt, jobID)
	if err != nil {
		log.Error("failed to complete job",
			slog.String("error", err.Error()),
			slog.String("job_id", jobID.String()))
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrUpdateFailed
	}

	log.Info("job completed",
		slog.String("job_id", jobID.String()),
		slog.Int("generated_cards", generatedCards),
		slog.Int("total_chunks", summary.TotalChunks),
		slog.Int("failed_chunks", len(summary.FailedChunks)))
	return nil
}

// Fail implements store.JobStore.Fail
// It finalizes a processing job as failed, storing the error record and
// clearing the worker binding.
func (s *PostgresJobStore) Fail(
	ctx context.Context,
	jobID uuid.UUID,
	record domain.ErrorRecord,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	recordJSON, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode error record: %w", err)
	}

	failedAt := record.Timestamp
	if failedAt.IsZero() {
		failedAt = time.Now().UTC()
	}

	query := `
		UPDATE jobs
		SET status = 'failed',
			error_record = $1,
			current_step = 'failed',
			completed_at = $2,
			actual_duration_seconds = COALESCE(
				EXTRACT(EPOCH FROM ($2::timestamptz - started_at))::int, 0),
			worker_id = NULL,
			worker_started_at = NULL,
			last_heartbeat_at = NULL,
			updated_at = $2
		WHERE id = $3 AND status = 'processing'
	`

	result, err := s.db.ExecContext(ctx, query, recordJSON, failedAt, jobID)
	if err != nil {
		log.Error("failed to mark job as failed",
			slog.String("error", err.Error()),
			slog.String("job_id", jobID.String()))
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrUpdateFailed
	}

	log.Warn("job failed",
		slog.String("job_id", jobID.String()),
		slog.String("error_kind", string(record.Kind)),
		slog.String("error_message", record.Message))
	return nil
}

// Cancel implements store.JobStore.Cancel
// The status guard makes cancellation a compare-and-set: a job that a
// worker has already claimed cannot be cancelled.
func (s *PostgresJobStore) Cancel(ctx context.Context, jobID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE jobs
		SET status = 'cancelled',
			current_step = 'cancelled',
			completed_at = $1,
			updated_at = $1
		WHERE id = $2 AND status = 'queued'
	`

	result, err := s.db.ExecContext(ctx, query, time.Now().UTC(), jobID)
	if err != nil {
		log.Error("failed to cancel job",
			slog.String("error", err.Error()),
			slog.String("job_id", jobID.String()))
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		if _, getErr := s.GetByID(ctx, jobID); getErr != nil {
			return getErr
		}
		return store.ErrJobAlreadyClaimed
	}

	log.Info("job cancelled", slog.String("job_id", jobID.String()))
	return nil
}

// ReclaimStale implements store.JobStore.ReclaimStale
// It returns every processing job with a heartbeat at or before the cutoff
// back to queued so another worker can pick it up.
func (s *PostgresJobStore) ReclaimStale(ctx context.Context, cutoff time.Time) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE jobs
		SET status = 'queued',
			worker_id = NULL,
			worker_started_at = NULL,
			last_heartbeat_at = NULL,
			started_at = NULL,
			current_step = 'queued',
			updated_at = $1
		WHERE status = 'processing' AND last_heartbeat_at <= $2
	`

	result, err := s.db.ExecContext(ctx, query, time.Now().UTC(), cutoff)
	if err != nil {
		log.Error("failed to reclaim stale jobs",
			slog.String("error", err.Error()))
		return 0, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected > 0 {
		log.Warn("reclaimed stale jobs", slog.Int64("count", rowsAffected))
	}
	return int(rowsAffected), nil
}

// execExpectingRow runs an update that must match exactly one job row.
// Returns store.ErrJobNotFound when no row matched.
func (s *PostgresJobStore) execExpectingRow(
	ctx context.Context,
	query string,
	args ...interface{},
) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrJobNotFound
	}
	return nil
}
