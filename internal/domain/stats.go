package domain

// JobStats is a derived, read-only aggregate over a set of jobs.
// It is recomputed per query and never stored.
type JobStats struct {
	TotalJobs      int `json:"total_jobs"`
	CompletedJobs  int `json:"completed_jobs"`
	FailedJobs     int `json:"failed_jobs"`
	CancelledJobs  int `json:"cancelled_jobs"`
	ProcessingJobs int `json:"processing_jobs"`
	QueuedJobs     int `json:"queued_jobs"`

	TotalCardsGenerated   int     `json:"total_cards_generated"`
	AvgDurationSeconds    int     `json:"avg_duration_seconds"`
	AvgFileSizeBytes      int64   `json:"avg_file_size_bytes"`
	SuccessRatePercentage float64 `json:"success_rate_percentage"`
	CardsPerJob           float64 `json:"cards_per_job"`
}

// DailyJobStats is one day's bucket in the stats time series,
// keyed by job creation date.
type DailyJobStats struct {
	Date                string `json:"date"`
	JobsCreated         int    `json:"jobs_created"`
	JobsCompleted       int    `json:"jobs_completed"`
	CardsGenerated      int    `json:"cards_generated"`
	TotalProcessingTime int    `json:"total_processing_time"`
}

// DurationPercentiles holds the index-interpolated percentiles of
// completed-job durations, in seconds.
type DurationPercentiles struct {
	P25 int `json:"p25"`
	P50 int `json:"p50"`
	P75 int `json:"p75"`
	P90 int `json:"p90"`
	P95 int `json:"p95"`
}

// ProcessingTimeStats summarizes the completed-job duration distribution.
type ProcessingTimeStats struct {
	MinDuration    int                 `json:"min_duration"`
	MaxDuration    int                 `json:"max_duration"`
	MedianDuration int                 `json:"median_duration"`
	AvgDuration    int                 `json:"avg_duration"`
	Percentiles    DurationPercentiles `json:"percentiles"`
}

// StatsAggregate is the full stats response for one owner and period.
type StatsAggregate struct {
	PeriodDays     int                 `json:"period_days"`
	Period         JobStats            `json:"period"`
	AllTime        JobStats            `json:"all_time"`
	ProcessingTime ProcessingTimeStats `json:"processing_time"`
	DailyBreakdown []DailyJobStats     `json:"daily_breakdown"`
}
