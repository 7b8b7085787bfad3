package worker

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cardforge/cardforge-api/internal/chunker"
	"github.com/cardforge/cardforge-api/internal/domain"
	"github.com/cardforge/cardforge-api/internal/generation"
	"github.com/cardforge/cardforge-api/internal/quota"
)

// Step names surfaced to clients through the job record.
const (
	stepExtracting = "extracting_text"
	stepChunking   = "processing_chunks"
)

// chunkOutcome accumulates the per-chunk results of one worker pass.
type chunkOutcome struct {
	totalChunks    int
	succeeded      int
	generatedCards int
	failedChunks   []int
	durationsMs    []int64
	quotaAborted   bool
}

// processJob runs the full pipeline for one claimed job. Every pass is
// panic-isolated: a fatal error in one job must never take down the
// worker or affect another job.
func (r *Runner) processJob(job *domain.Job, workerID string) {
	log := r.logger.With(
		slog.String("job_id", job.ID.String()),
		slog.String("worker_id", workerID))

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("panic while processing job", slog.Any("panic", rec))
			r.failJob(job, workerID, domain.ErrorRecord{
				Kind:      domain.ErrorKindUnknown,
				Message:   fmt.Sprintf("internal error: %v", rec),
				WorkerID:  workerID,
				Retryable: true,
			}, log)
		}
	}()

	stopHeartbeat := r.startHeartbeat(job.ID, workerID, log)
	defer stopHeartbeat()

	started := r.now().UTC()
	log.Info("processing job",
		slog.String("filename", job.Filename),
		slog.Int64("file_size_bytes", job.FileSizeBytes))

	if err := r.jobStore.UpdateProgress(r.ctx, job.ID, 0, 0, 0, stepExtracting); err != nil {
		log.Error("failed to update progress", slog.String("error", err.Error()))
	}

	pages, err := r.extractor.ExtractPages(r.ctx, job.FileURL)
	if err != nil {
		if r.ctx.Err() != nil {
			return
		}
		r.failJob(job, workerID, domain.ErrorRecord{
			Kind:            domain.ErrorKindProcessing,
			Message:         fmt.Sprintf("text extraction failed: %v", err),
			WorkerID:        workerID,
			Retryable:       false,
			SuggestedAction: "check that the file is a readable, text-based PDF",
		}, log)
		return
	}

	chunks := chunker.Split(pages, r.chunkTokens)
	if len(chunks) == 0 {
		r.failJob(job, workerID, domain.ErrorRecord{
			Kind:            domain.ErrorKindProcessing,
			Message:         "document contains no extractable text",
			WorkerID:        workerID,
			Retryable:       false,
			SuggestedAction: "scanned PDFs without a text layer are not supported",
		}, log)
		return
	}

	if err := r.jobStore.SetTotalChunks(r.ctx, job.ID, len(chunks), stepChunking); err != nil {
		log.Error("failed to record chunk count", slog.String("error", err.Error()))
	}

	outcome := r.processChunks(job, chunks, log)
	if r.ctx.Err() != nil {
		// Shutdown mid-job: leave the record as-is, the stale heartbeat
		// gets it reclaimed.
		return
	}

	r.finalize(job, workerID, started, outcome, log)
}

// processChunks runs the quota-gated generation loop over the chunks.
func (r *Runner) processChunks(
	job *domain.Job,
	chunks []domain.Chunk,
	log *slog.Logger,
) chunkOutcome {
	outcome := chunkOutcome{totalChunks: len(chunks)}

	for i := range chunks {
		chunk := &chunks[i]
		if r.ctx.Err() != nil {
			return outcome
		}

		check := r.ledger.Check(1)
		if !check.CanProceed && check.Reason == quota.ReasonRateLimited {
			if err := r.ledger.WaitForRateLimit(r.ctx, check.WaitTime); err != nil {
				return outcome
			}
			check = r.ledger.Check(1)
		}
		if !check.CanProceed {
			log.Warn("stopping chunk loop",
				slog.String("reason", check.Reason),
				slog.Int("processed_chunks", i),
				slog.Int("total_chunks", len(chunks)))
			outcome.quotaAborted = true
			return outcome
		}

		chunkStart := r.now()
		problems, err := r.generator.GenerateProblems(r.ctx, chunk.Text, job.Options)

		// One transmitted call costs one quota unit, success or not.
		// Pre-flight rejections never reached the provider.
		if !errors.Is(err, generation.ErrInvalidInput) {
			r.ledger.Record(1)
		}

		outcome.durationsMs = append(outcome.durationsMs, r.now().Sub(chunkStart).Milliseconds())

		if err != nil {
			if r.ctx.Err() != nil {
				return outcome
			}
			chunk.Status = domain.ChunkStatusFailed
			outcome.failedChunks = append(outcome.failedChunks, i)
			log.Warn("chunk generation failed",
				slog.Int("chunk_index", i),
				slog.String("chunk_id", chunk.ID.String()),
				slog.Int("first_page", chunk.FirstPage()),
				slog.String("error", err.Error()))
		} else {
			chunk.Status = domain.ChunkStatusCompleted
			chunk.Problems = problems
			outcome.succeeded++
			outcome.generatedCards += len(problems)
		}

		processed := i + 1
		pct := processed * 100 / len(chunks)
		err = r.jobStore.UpdateProgress(
			r.ctx, job.ID,
			processed, outcome.generatedCards, pct, stepChunking)
		if err != nil && r.ctx.Err() == nil {
			log.Error("failed to update progress", slog.String("error", err.Error()))
		}
	}

	return outcome
}

// finalize terminates the job. Partial failure still completes the job as
// long as at least one chunk produced cards; only a fully empty pass
// fails it.
func (r *Runner) finalize(
	job *domain.Job,
	workerID string,
	started time.Time,
	outcome chunkOutcome,
	log *slog.Logger,
) {
	if outcome.succeeded == 0 {
		record := domain.ErrorRecord{
			Kind:            domain.ErrorKindProcessing,
			Message:         "no chunk produced any cards",
			WorkerID:        workerID,
			Retryable:       true,
			SuggestedAction: "retry the job; persistent failures usually mean unreadable content",
		}
		if outcome.quotaAborted {
			status := r.ledger.Status()
			record.Kind = domain.ErrorKindQuota
			record.Message = "daily API quota exhausted before any chunk completed"
			record.SuggestedAction = fmt.Sprintf(
				"retry after the quota resets at %s",
				status.ResetTime.Format(time.RFC3339))
		}
		r.failJob(job, workerID, record, log)
		return
	}

	attempted := outcome.succeeded + len(outcome.failedChunks)
	warnings := len(outcome.failedChunks) + (outcome.totalChunks - attempted)

	completedAt := r.now().UTC()
	summary := domain.ResultSummary{
		TotalCards:            outcome.generatedCards,
		TotalChunks:           outcome.totalChunks,
		FailedChunks:          outcome.failedChunks,
		WarningCount:          warnings,
		SuccessRate:           float64(outcome.succeeded) / float64(outcome.totalChunks),
		ProcessingTimeSeconds: int(completedAt.Sub(started).Seconds()),
		ChunkDurationsMs:      outcome.durationsMs,
		CompletedAt:           completedAt,
	}

	if err := r.jobStore.Complete(r.ctx, job.ID, summary, outcome.generatedCards); err != nil {
		if r.ctx.Err() == nil {
			log.Error("failed to complete job", slog.String("error", err.Error()))
		}
		return
	}

	log.Info("job completed",
		slog.Int("generated_cards", outcome.generatedCards),
		slog.Int("succeeded_chunks", outcome.succeeded),
		slog.Int("failed_chunks", len(outcome.failedChunks)),
		slog.Bool("quota_aborted", outcome.quotaAborted))
}

// failJob persists the failure record, stamping the timestamp.
func (r *Runner) failJob(
	job *domain.Job,
	workerID string,
	record domain.ErrorRecord,
	log *slog.Logger,
) {
	record.WorkerID = workerID
	record.Timestamp = r.now().UTC()

	if err := r.jobStore.Fail(r.ctx, job.ID, record); err != nil {
		if r.ctx.Err() == nil {
			log.Error("failed to record job failure", slog.String("error", err.Error()))
		}
		return
	}

	log.Warn("job failed",
		slog.String("kind", string(record.Kind)),
		slog.String("message", record.Message),
		slog.Bool("retryable", record.Retryable))
}
