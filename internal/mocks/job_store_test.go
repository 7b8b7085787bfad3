package mocks

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardforge/cardforge-api/internal/domain"
	"github.com/cardforge/cardforge-api/internal/store"
)

func newTestJob(t *testing.T, priority int) *domain.Job {
	t.Helper()

	job, err := domain.NewJob(
		uuid.New(), uuid.New(),
		"file:///tmp/test.pdf", "test.pdf", 1024,
		domain.ProcessingOptions{
			QuestionType: domain.QuestionTypeAuto,
			GenerateMode: domain.GenerateModeAll,
			ChunkSize:    4,
		},
	)
	require.NoError(t, err)
	job.Priority = priority
	return job
}

func TestMemoryJobStoreClaimNextOrdering(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryJobStore()

	// Lower priority value is more urgent
	urgent := newTestJob(t, 4)
	relaxed := newTestJob(t, 6)
	require.NoError(t, s.Create(ctx, relaxed))
	require.NoError(t, s.Create(ctx, urgent))

	claimed, err := s.ClaimNext(ctx, "worker-1", time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, urgent.ID, claimed.ID)
	assert.Equal(t, domain.JobStatusProcessing, claimed.Status)
	assert.Equal(t, "worker-1", claimed.WorkerID)

	claimed, err = s.ClaimNext(ctx, "worker-2", time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, relaxed.ID, claimed.ID)

	_, err = s.ClaimNext(ctx, "worker-1", time.Now().UTC())
	assert.ErrorIs(t, err, store.ErrNoJobsAvailable)
}

func TestMemoryJobStoreClaimIsExclusive(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryJobStore()

	job := newTestJob(t, 5)
	require.NoError(t, s.Create(ctx, job))

	const workers = 8
	var wg sync.WaitGroup
	successes := make(chan string, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			workerID := string(rune('a' + n))
			if _, err := s.Claim(ctx, job.ID, workerID, time.Now().UTC()); err == nil {
				successes <- workerID
			}
		}(i)
	}
	wg.Wait()
	close(successes)

	var winners []string
	for w := range successes {
		winners = append(winners, w)
	}
	require.Len(t, winners, 1)

	got, err := s.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, winners[0], got.WorkerID)
}

func TestMemoryJobStoreCancelOnlyQueued(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryJobStore()

	job := newTestJob(t, 5)
	require.NoError(t, s.Create(ctx, job))

	_, err := s.Claim(ctx, job.ID, "worker-1", time.Now().UTC())
	require.NoError(t, err)

	err = s.Cancel(ctx, job.ID)
	assert.ErrorIs(t, err, store.ErrJobAlreadyClaimed)

	queued := newTestJob(t, 5)
	require.NoError(t, s.Create(ctx, queued))
	require.NoError(t, s.Cancel(ctx, queued.ID))

	got, err := s.GetByID(ctx, queued.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCancelled, got.Status)
	assert.NotNil(t, got.CompletedAt)
}

func TestMemoryJobStoreReclaimStale(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryJobStore()

	stale := newTestJob(t, 5)
	fresh := newTestJob(t, 5)
	require.NoError(t, s.Create(ctx, stale))
	require.NoError(t, s.Create(ctx, fresh))

	old := time.Now().UTC().Add(-5 * time.Minute)
	_, err := s.Claim(ctx, stale.ID, "worker-dead", old)
	require.NoError(t, err)
	_, err = s.Claim(ctx, fresh.ID, "worker-alive", time.Now().UTC())
	require.NoError(t, err)

	reclaimed, err := s.ReclaimStale(ctx, time.Now().UTC().Add(-2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, reclaimed)

	got, err := s.GetByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusQueued, got.Status)
	assert.Empty(t, got.WorkerID)
	assert.Nil(t, got.LastHeartbeatAt)

	got, err = s.GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusProcessing, got.Status)
}

func TestMemoryJobStoreCompleteAndFail(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryJobStore()

	job := newTestJob(t, 5)
	require.NoError(t, s.Create(ctx, job))
	_, err := s.Claim(ctx, job.ID, "worker-1", time.Now().UTC())
	require.NoError(t, err)

	summary := domain.ResultSummary{
		TotalCards:  10,
		TotalChunks: 3,
		SuccessRate: 1.0,
		CompletedAt: time.Now().UTC(),
	}
	require.NoError(t, s.Complete(ctx, job.ID, summary, 10))

	got, err := s.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, got.Status)
	assert.Equal(t, 100, got.ProgressPct)
	assert.Empty(t, got.WorkerID)
	require.NotNil(t, got.ResultSummary)
	assert.Equal(t, 10, got.ResultSummary.TotalCards)

	// Completing again must fail: the job is no longer processing.
	err = s.Complete(ctx, job.ID, summary, 10)
	assert.ErrorIs(t, err, store.ErrUpdateFailed)

	failing := newTestJob(t, 5)
	require.NoError(t, s.Create(ctx, failing))
	_, err = s.Claim(ctx, failing.ID, "worker-1", time.Now().UTC())
	require.NoError(t, err)

	record := domain.ErrorRecord{
		Kind:      domain.ErrorKindQuota,
		Message:   "daily quota exhausted",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
	require.NoError(t, s.Fail(ctx, failing.ID, record))

	got, err = s.GetByID(ctx, failing.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, got.Status)
	require.NotNil(t, got.ErrorRecord)
	assert.Equal(t, domain.ErrorKindQuota, got.ErrorRecord.Kind)
	assert.True(t, got.ErrorRecord.Retryable)
}
