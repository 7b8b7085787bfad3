package service

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/cardforge/cardforge-api/internal/domain"
	"github.com/cardforge/cardforge-api/internal/store"
)

// Stats window bounds, in days.
const (
	defaultPeriodDays = 30
	maxPeriodDays     = 365
)

// Stats implements JobService.Stats. It is a pure read-side computation:
// two store reads (windowed and all-time), everything else derived in
// memory.
func (s *jobServiceImpl) Stats(
	ctx context.Context,
	userID uuid.UUID,
	periodDays int,
) (*domain.StatsAggregate, error) {
	if periodDays <= 0 {
		periodDays = defaultPeriodDays
	}
	if periodDays > maxPeriodDays {
		periodDays = maxPeriodDays
	}

	now := time.Now().UTC()

	periodJobs, err := s.jobStore.ListByUser(ctx, userID, store.JobListFilter{
		CreatedAfter: periodStart(now, periodDays),
	})
	if err != nil {
		return nil, NewJobServiceError("get_stats", "failed to load period jobs", err)
	}

	allJobs, err := s.jobStore.ListByUser(ctx, userID, store.JobListFilter{})
	if err != nil {
		return nil, NewJobServiceError("get_stats", "failed to load all jobs", err)
	}

	return &domain.StatsAggregate{
		PeriodDays:     periodDays,
		Period:         computeJobStats(periodJobs),
		AllTime:        computeJobStats(allJobs),
		ProcessingTime: computeProcessingTimeStats(periodJobs),
		DailyBreakdown: computeDailyStats(periodJobs, periodDays, now),
	}, nil
}

// computeJobStats derives the per-status counts and averages for a job set.
func computeJobStats(jobs []*domain.Job) domain.JobStats {
	var stats domain.JobStats
	stats.TotalJobs = len(jobs)

	var totalDuration, completedWithDuration int
	var totalFileSize int64

	for _, job := range jobs {
		switch job.Status {
		case domain.JobStatusCompleted:
			stats.CompletedJobs++
			stats.TotalCardsGenerated += job.GeneratedCards
			if job.ActualDurationSeconds > 0 {
				totalDuration += job.ActualDurationSeconds
				completedWithDuration++
			}
		case domain.JobStatusFailed:
			stats.FailedJobs++
		case domain.JobStatusCancelled:
			stats.CancelledJobs++
		case domain.JobStatusProcessing:
			stats.ProcessingJobs++
		case domain.JobStatusQueued:
			stats.QueuedJobs++
		}
		totalFileSize += job.FileSizeBytes
	}

	if completedWithDuration > 0 {
		stats.AvgDurationSeconds = int(math.Round(
			float64(totalDuration) / float64(completedWithDuration)))
	}
	if stats.TotalJobs > 0 {
		stats.AvgFileSizeBytes = int64(math.Round(
			float64(totalFileSize) / float64(stats.TotalJobs)))
		stats.SuccessRatePercentage = math.Round(
			float64(stats.CompletedJobs)/float64(stats.TotalJobs)*100*100) / 100
	}
	if stats.CompletedJobs > 0 {
		stats.CardsPerJob = math.Round(
			float64(stats.TotalCardsGenerated)/float64(stats.CompletedJobs)*100) / 100
	}

	return stats
}

// computeProcessingTimeStats derives the completed-job duration
// distribution. Percentiles use the ceil-index method over the sorted
// durations.
func computeProcessingTimeStats(jobs []*domain.Job) domain.ProcessingTimeStats {
	var durations []int
	for _, job := range jobs {
		if job.Status == domain.JobStatusCompleted && job.ActualDurationSeconds > 0 {
			durations = append(durations, job.ActualDurationSeconds)
		}
	}

	if len(durations) == 0 {
		return domain.ProcessingTimeStats{}
	}

	sort.Ints(durations)

	total := 0
	for _, d := range durations {
		total += d
	}

	return domain.ProcessingTimeStats{
		MinDuration:    durations[0],
		MaxDuration:    durations[len(durations)-1],
		MedianDuration: percentile(durations, 50),
		AvgDuration:    int(math.Round(float64(total) / float64(len(durations)))),
		Percentiles: domain.DurationPercentiles{
			P25: percentile(durations, 25),
			P50: percentile(durations, 50),
			P75: percentile(durations, 75),
			P90: percentile(durations, 90),
			P95: percentile(durations, 95),
		},
	}
}

// percentile picks the p-th percentile of a sorted slice by ceil-index:
// index = ceil(p/100 * n) - 1, clamped at zero.
func percentile(sorted []int, p int) int {
	index := int(math.Ceil(float64(p)/100*float64(len(sorted)))) - 1
	if index < 0 {
		index = 0
	}
	return sorted[index]
}

// computeDailyStats buckets the jobs by creation date. Every date in the
// window appears in the result, zero-filled when no jobs landed on it,
// oldest first.
func computeDailyStats(jobs []*domain.Job, periodDays int, now time.Time) []domain.DailyJobStats {
	buckets := make(map[string]*domain.DailyJobStats, periodDays)
	for i := 0; i < periodDays; i++ {
		date := now.AddDate(0, 0, -i).Format("2006-01-02")
		buckets[date] = &domain.DailyJobStats{Date: date}
	}

	for _, job := range jobs {
		day, ok := buckets[job.CreatedAt.UTC().Format("2006-01-02")]
		if !ok {
			continue
		}

		day.JobsCreated++
		if job.Status == domain.JobStatusCompleted {
			day.JobsCompleted++
			day.CardsGenerated += job.GeneratedCards
			day.TotalProcessingTime += job.ActualDurationSeconds
		}
	}

	result := make([]domain.DailyJobStats, 0, len(buckets))
	for _, day := range buckets {
		result = append(result, *day)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Date < result[j].Date
	})

	return result
}
