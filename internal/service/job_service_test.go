package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardforge/cardforge-api/internal/config"
	"github.com/cardforge/cardforge-api/internal/domain"
	"github.com/cardforge/cardforge-api/internal/events"
	"github.com/cardforge/cardforge-api/internal/mocks"
	"github.com/cardforge/cardforge-api/internal/store"
)

type serviceFixture struct {
	service   JobService
	jobStore  *mocks.MemoryJobStore
	deckStore *mocks.MockDeckStore
	handler   *mocks.MockEventHandler
	userID    uuid.UUID
	deck      *domain.Deck
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	jobStore := mocks.NewMemoryJobStore()
	deckStore := mocks.NewMockDeckStore()
	emitter := events.NewInMemoryEventEmitter(logger)
	handler := &mocks.MockEventHandler{}
	emitter.RegisterHandler(handler)

	processing := config.ProcessingConfig{
		MaxFileSizeBytes:    50 * 1024 * 1024,
		MaxActiveJobs:       3,
		DefaultChunkTokens:  4000,
		PagesPerChunk:       4,
		EstimatedPagesPerMB: 20,
	}

	svc, err := NewJobService(jobStore, deckStore, emitter, processing, logger)
	require.NoError(t, err)

	userID := uuid.New()
	deck := deckStore.AddDeck(userID, "Biology 101")

	return &serviceFixture{
		service:   svc,
		jobStore:  jobStore,
		deckStore: deckStore,
		handler:   handler,
		userID:    userID,
		deck:      deck,
	}
}

func validOptions() domain.ProcessingOptions {
	return domain.ProcessingOptions{
		QuestionType: domain.QuestionTypeAuto,
		GenerateMode: domain.GenerateModeAll,
		ChunkSize:    4,
	}
}

func (f *serviceFixture) submitRequest() SubmitJobRequest {
	return SubmitJobRequest{
		UserID:        f.userID,
		DeckID:        f.deck.ID,
		FileURL:       "file:///uploads/notes.pdf",
		Filename:      "notes.pdf",
		MIMEType:      "application/pdf",
		FileSizeBytes: 2 * 1024 * 1024,
		Options:       validOptions(),
	}
}

func TestSubmitJob(t *testing.T) {
	ctx := context.Background()

	t.Run("persists a queued job and wakes workers", func(t *testing.T) {
		f := newServiceFixture(t)

		job, err := f.service.Submit(ctx, f.submitRequest())
		require.NoError(t, err)

		assert.Equal(t, domain.JobStatusQueued, job.Status)
		assert.Positive(t, job.EstimatedDurationSeconds)

		stored, err := f.jobStore.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusQueued, stored.Status)

		require.Equal(t, 1, f.handler.HandledCount)
		assert.Equal(t, job.ID, f.handler.LastEvent.JobID)
	})

	t.Run("small files jump the queue", func(t *testing.T) {
		f := newServiceFixture(t)

		small := f.submitRequest()
		small.FileSizeBytes = 1 * 1024 * 1024

		large := f.submitRequest()
		large.FileSizeBytes = 30 * 1024 * 1024

		smallJob, err := f.service.Submit(ctx, small)
		require.NoError(t, err)
		largeJob, err := f.service.Submit(ctx, large)
		require.NoError(t, err)

		// Lower value is claimed first
		assert.Less(t, smallJob.Priority, largeJob.Priority)
	})

	t.Run("rejects oversized files", func(t *testing.T) {
		f := newServiceFixture(t)

		req := f.submitRequest()
		req.FileSizeBytes = 51 * 1024 * 1024

		_, err := f.service.Submit(ctx, req)
		assert.ErrorIs(t, err, ErrFileTooLarge)
	})

	t.Run("rejects non-PDF MIME types", func(t *testing.T) {
		f := newServiceFixture(t)

		req := f.submitRequest()
		req.MIMEType = "image/png"

		_, err := f.service.Submit(ctx, req)
		assert.ErrorIs(t, err, ErrUnsupportedFileType)
	})

	t.Run("rejects invalid options before any store access", func(t *testing.T) {
		f := newServiceFixture(t)

		req := f.submitRequest()
		req.Options.ChunkSize = 99

		_, err := f.service.Submit(ctx, req)
		assert.ErrorIs(t, err, domain.ErrInvalidOptions)

		jobs, err := f.jobStore.ListByUser(ctx, f.userID, store.JobListFilter{})
		require.NoError(t, err)
		assert.Empty(t, jobs)
	})

	t.Run("rejects decks owned by someone else", func(t *testing.T) {
		f := newServiceFixture(t)

		otherDeck := f.deckStore.AddDeck(uuid.New(), "Not yours")
		req := f.submitRequest()
		req.DeckID = otherDeck.ID

		_, err := f.service.Submit(ctx, req)
		assert.ErrorIs(t, err, ErrDeckNotFound)
	})

	t.Run("enforces the active job cap", func(t *testing.T) {
		f := newServiceFixture(t)

		for i := 0; i < 3; i++ {
			_, err := f.service.Submit(ctx, f.submitRequest())
			require.NoError(t, err)
		}

		_, err := f.service.Submit(ctx, f.submitRequest())
		assert.ErrorIs(t, err, ErrTooManyActiveJobs)
	})
}

func TestCancelJob(t *testing.T) {
	ctx := context.Background()

	t.Run("cancels a queued job", func(t *testing.T) {
		f := newServiceFixture(t)

		job, err := f.service.Submit(ctx, f.submitRequest())
		require.NoError(t, err)

		require.NoError(t, f.service.Cancel(ctx, f.userID, job.ID))

		got, err := f.jobStore.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusCancelled, got.Status)
	})

	t.Run("rejects cancelling a processing job with an explicit reason", func(t *testing.T) {
		f := newServiceFixture(t)

		job, err := f.service.Submit(ctx, f.submitRequest())
		require.NoError(t, err)
		_, err = f.jobStore.Claim(ctx, job.ID, "worker-1", time.Now().UTC())
		require.NoError(t, err)

		err = f.service.Cancel(ctx, f.userID, job.ID)
		assert.ErrorIs(t, err, ErrCancelProcessing)

		got, err := f.jobStore.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusProcessing, got.Status)
	})

	t.Run("rejects cancelling a finished job", func(t *testing.T) {
		f := newServiceFixture(t)

		job, err := f.service.Submit(ctx, f.submitRequest())
		require.NoError(t, err)
		_, err = f.jobStore.Claim(ctx, job.ID, "worker-1", time.Now().UTC())
		require.NoError(t, err)
		require.NoError(t, f.jobStore.Complete(ctx, job.ID, domain.ResultSummary{
			TotalCards: 5, TotalChunks: 1, SuccessRate: 1.0,
		}, 5))

		err = f.service.Cancel(ctx, f.userID, job.ID)
		assert.ErrorIs(t, err, ErrJobAlreadyFinished)
	})

	t.Run("hides other users' jobs", func(t *testing.T) {
		f := newServiceFixture(t)

		job, err := f.service.Submit(ctx, f.submitRequest())
		require.NoError(t, err)

		err = f.service.Cancel(ctx, uuid.New(), job.ID)
		assert.ErrorIs(t, err, ErrJobNotFound)
	})
}

func TestRetryJob(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a new job from a failed job's inputs", func(t *testing.T) {
		f := newServiceFixture(t)

		original, err := f.service.Submit(ctx, f.submitRequest())
		require.NoError(t, err)
		failJob(t, ctx, f.jobStore, original)

		retried, err := f.service.Retry(ctx, f.userID, original.ID)
		require.NoError(t, err)

		assert.NotEqual(t, original.ID, retried.ID)
		assert.Equal(t, domain.JobStatusQueued, retried.Status)
		assert.Equal(t, original.FileURL, retried.FileURL)
		assert.Equal(t, original.Filename, retried.Filename)
		assert.Equal(t, original.FileSizeBytes, retried.FileSizeBytes)
		assert.Equal(t, original.Options, retried.Options)

		// Original record untouched
		got, err := f.jobStore.GetByID(ctx, original.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusFailed, got.Status)
	})

	t.Run("rejects retrying a non-failed job", func(t *testing.T) {
		f := newServiceFixture(t)

		job, err := f.service.Submit(ctx, f.submitRequest())
		require.NoError(t, err)

		_, err = f.service.Retry(ctx, f.userID, job.ID)
		assert.ErrorIs(t, err, ErrJobNotRetryable)
	})
}

// failJob drives a queued job to failed through claim and fail.
func failJob(t *testing.T, ctx context.Context, s *mocks.MemoryJobStore, job *domain.Job) {
	t.Helper()

	_, err := s.Claim(ctx, job.ID, "worker-1", time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, s.Fail(ctx, job.ID, domain.ErrorRecord{
		Kind:      domain.ErrorKindQuota,
		Message:   "daily quota exhausted",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}))
}

func TestEstimateProcessingSeconds(t *testing.T) {
	// 2MB * 20 pages/MB = 40 pages; 40/4 = 10 chunks; 30 + 10*45 = 480s
	assert.Equal(t, 480, estimateProcessingSeconds(2*1024*1024, 4, 20))

	// Tiny files bottom out at the minimum estimate
	assert.Equal(t, 60, estimateProcessingSeconds(1024, 20, 20))
}

func TestJobPriority(t *testing.T) {
	assert.Equal(t, 4, jobPriority(1*1024*1024))
	assert.Equal(t, 5, jobPriority(10*1024*1024))
	assert.Equal(t, 6, jobPriority(30*1024*1024))
}
