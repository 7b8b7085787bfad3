package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardforge/cardforge-api/internal/domain"
)

func TestPercentile(t *testing.T) {
	durations := []int{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}

	// ceil(p/100 * 10) - 1
	assert.Equal(t, 30, percentile(durations, 25))
	assert.Equal(t, 50, percentile(durations, 50))
	assert.Equal(t, 80, percentile(durations, 75))
	assert.Equal(t, 90, percentile(durations, 90))
	assert.Equal(t, 100, percentile(durations, 95))

	single := []int{42}
	assert.Equal(t, 42, percentile(single, 25))
	assert.Equal(t, 42, percentile(single, 95))
}

func TestComputeJobStats(t *testing.T) {
	t.Run("empty set yields zero values", func(t *testing.T) {
		stats := computeJobStats(nil)
		assert.Zero(t, stats.TotalJobs)
		assert.Zero(t, stats.SuccessRatePercentage)
		assert.Zero(t, stats.CardsPerJob)
	})

	t.Run("counts per status and averages", func(t *testing.T) {
		jobs := []*domain.Job{
			{Status: domain.JobStatusCompleted, GeneratedCards: 10, ActualDurationSeconds: 100, FileSizeBytes: 1000},
			{Status: domain.JobStatusCompleted, GeneratedCards: 20, ActualDurationSeconds: 200, FileSizeBytes: 3000},
			{Status: domain.JobStatusFailed, FileSizeBytes: 2000},
			{Status: domain.JobStatusQueued, FileSizeBytes: 2000},
		}

		stats := computeJobStats(jobs)
		assert.Equal(t, 4, stats.TotalJobs)
		assert.Equal(t, 2, stats.CompletedJobs)
		assert.Equal(t, 1, stats.FailedJobs)
		assert.Equal(t, 1, stats.QueuedJobs)
		assert.Equal(t, 30, stats.TotalCardsGenerated)
		assert.Equal(t, 150, stats.AvgDurationSeconds)
		assert.Equal(t, int64(2000), stats.AvgFileSizeBytes)
		assert.InDelta(t, 50.0, stats.SuccessRatePercentage, 0.001)
		assert.InDelta(t, 15.0, stats.CardsPerJob, 0.001)
	})
}

func TestComputeProcessingTimeStats(t *testing.T) {
	t.Run("no completed jobs yields zero values", func(t *testing.T) {
		stats := computeProcessingTimeStats([]*domain.Job{
			{Status: domain.JobStatusFailed, ActualDurationSeconds: 100},
		})
		assert.Zero(t, stats.MaxDuration)
		assert.Zero(t, stats.Percentiles.P95)
	})

	t.Run("distribution over completed durations", func(t *testing.T) {
		var jobs []*domain.Job
		for _, d := range []int{50, 10, 40, 20, 30} {
			jobs = append(jobs, &domain.Job{
				Status:                domain.JobStatusCompleted,
				ActualDurationSeconds: d,
			})
		}

		stats := computeProcessingTimeStats(jobs)
		assert.Equal(t, 10, stats.MinDuration)
		assert.Equal(t, 50, stats.MaxDuration)
		assert.Equal(t, 30, stats.AvgDuration)
		assert.Equal(t, 30, stats.MedianDuration)
		assert.Equal(t, 20, stats.Percentiles.P25)
		assert.Equal(t, 50, stats.Percentiles.P90)
	})
}

func TestComputeDailyStats(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	jobs := []*domain.Job{
		{
			Status:                domain.JobStatusCompleted,
			GeneratedCards:        8,
			ActualDurationSeconds: 120,
			CreatedAt:             now.AddDate(0, 0, -1),
		},
		{
			Status:    domain.JobStatusFailed,
			CreatedAt: now.AddDate(0, 0, -1),
		},
		{
			// Outside the 7-day window
			Status:    domain.JobStatusCompleted,
			CreatedAt: now.AddDate(0, 0, -9),
		},
	}

	daily := computeDailyStats(jobs, 7, now)
	require.Len(t, daily, 7)

	// Oldest first, every date present
	assert.Equal(t, "2026-08-25", daily[0].Date)
	assert.Equal(t, "2026-08-31", daily[6].Date)
	assert.Zero(t, daily[0].JobsCreated)

	yesterday := daily[5]
	assert.Equal(t, "2026-08-30", yesterday.Date)
	assert.Equal(t, 2, yesterday.JobsCreated)
	assert.Equal(t, 1, yesterday.JobsCompleted)
	assert.Equal(t, 8, yesterday.CardsGenerated)
	assert.Equal(t, 120, yesterday.TotalProcessingTime)
}

func TestStatsEndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	job, err := f.service.Submit(ctx, f.submitRequest())
	require.NoError(t, err)

	_, err = f.jobStore.Claim(ctx, job.ID, "worker-1", time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, f.jobStore.Complete(ctx, job.ID, domain.ResultSummary{
		TotalCards:  12,
		TotalChunks: 3,
		SuccessRate: 1.0,
		CompletedAt: time.Now().UTC(),
	}, 12))

	agg, err := f.service.Stats(ctx, f.userID, 30)
	require.NoError(t, err)

	assert.Equal(t, 30, agg.PeriodDays)
	assert.Equal(t, 1, agg.Period.TotalJobs)
	assert.Equal(t, 1, agg.Period.CompletedJobs)
	assert.Equal(t, 12, agg.Period.TotalCardsGenerated)
	assert.Equal(t, 1, agg.AllTime.TotalJobs)
	assert.Len(t, agg.DailyBreakdown, 30)

	// Stats is read-only: the job record must be unchanged
	got, err := f.jobStore.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, got.Status)
}

func TestStatsClampsPeriod(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	agg, err := f.service.Stats(ctx, f.userID, 0)
	require.NoError(t, err)
	assert.Equal(t, defaultPeriodDays, agg.PeriodDays)

	agg, err = f.service.Stats(ctx, f.userID, 9999)
	require.NoError(t, err)
	assert.Equal(t, maxPeriodDays, agg.PeriodDays)
}
