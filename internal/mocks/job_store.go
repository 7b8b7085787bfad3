package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cardforge/cardforge-api/internal/domain"
	"github.com/cardforge/cardforge-api/internal/store"
)

// MemoryJobStore implements store.JobStore in memory with real
// compare-and-set semantics. All mutations happen under a single mutex,
// so concurrent ClaimNext calls observe the same atomicity guarantees a
// database row update would provide.
type MemoryJobStore struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*domain.Job
}

// NewMemoryJobStore creates an empty in-memory job store.
func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{
		jobs: make(map[uuid.UUID]*domain.Job),
	}
}

var _ store.JobStore = (*MemoryJobStore)(nil)

// snapshot returns a deep-enough copy that callers cannot mutate stored state.
func snapshot(j *domain.Job) *domain.Job {
	cp := *j
	if j.ResultSummary != nil {
		rs := *j.ResultSummary
		rs.FailedChunks = append([]int(nil), j.ResultSummary.FailedChunks...)
		rs.ChunkDurationsMs = append([]int64(nil), j.ResultSummary.ChunkDurationsMs...)
		cp.ResultSummary = &rs
	}
	if j.ErrorRecord != nil {
		er := *j.ErrorRecord
		cp.ErrorRecord = &er
	}
	return &cp
}

// Create implements the JobStore interface.
func (m *MemoryJobStore) Create(ctx context.Context, job *domain.Job) error {
	if err := job.Validate(); err != nil {
		return store.ErrInvalidEntity
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = snapshot(job)
	return nil
}

// GetByID implements the JobStore interface.
func (m *MemoryJobStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return nil, store.ErrJobNotFound
	}
	return snapshot(job), nil
}

// ListByUser implements the JobStore interface.
func (m *MemoryJobStore) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
	filter store.JobListFilter,
) ([]*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*domain.Job
	for _, job := range m.jobs {
		if job.UserID != userID {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		if !filter.CreatedAfter.IsZero() && job.CreatedAt.Before(filter.CreatedAfter) {
			continue
		}
		result = append(result, snapshot(job))
	}

	// Newest first
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if filter.Limit > 0 {
		if filter.Offset >= len(result) {
			return nil, nil
		}
		result = result[filter.Offset:]
		if len(result) > filter.Limit {
			result = result[:filter.Limit]
		}
	}

	return result, nil
}

// CountActiveByUser implements the JobStore interface.
func (m *MemoryJobStore) CountActiveByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, job := range m.jobs {
		if job.UserID == userID && job.IsActive() {
			count++
		}
	}
	return count, nil
}

// ClaimNext implements the JobStore interface.
func (m *MemoryJobStore) ClaimNext(
	ctx context.Context,
	workerID string,
	now time.Time,
) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var best *domain.Job
	for _, job := range m.jobs {
		if job.Status != domain.JobStatusQueued {
			continue
		}
		// Lower priority value means more urgent; ties go to the oldest.
		if best == nil ||
			job.Priority < best.Priority ||
			(job.Priority == best.Priority && job.CreatedAt.Before(best.CreatedAt)) {
			best = job
		}
	}

	if best == nil {
		return nil, store.ErrNoJobsAvailable
	}

	m.claimLocked(best, workerID, now)
	return snapshot(best), nil
}

// Claim implements the JobStore interface.
func (m *MemoryJobStore) Claim(
	ctx context.Context,
	jobID uuid.UUID,
	workerID string,
	now time.Time,
) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return nil, store.ErrJobNotFound
	}
	if job.Status != domain.JobStatusQueued {
		return nil, store.ErrJobAlreadyClaimed
	}

	m.claimLocked(job, workerID, now)
	return snapshot(job), nil
}

func (m *MemoryJobStore) claimLocked(job *domain.Job, workerID string, now time.Time) {
	started := now
	job.Status = domain.JobStatusProcessing
	job.WorkerID = workerID
	job.WorkerStartedAt = &started
	job.LastHeartbeatAt = &started
	job.StartedAt = &started
	job.CurrentStep = "claimed"
	job.UpdatedAt = now
}

// SetTotalChunks implements the JobStore interface.
func (m *MemoryJobStore) SetTotalChunks(
	ctx context.Context,
	jobID uuid.UUID,
	totalChunks int,
	currentStep string,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return store.ErrJobNotFound
	}

	job.TotalChunks = totalChunks
	job.CurrentStep = currentStep
	job.UpdatedAt = time.Now().UTC()
	return nil
}

// UpdateProgress implements the JobStore interface.
func (m *MemoryJobStore) UpdateProgress(
	ctx context.Context,
	jobID uuid.UUID,
	processedChunks, generatedCards, progressPct int,
	currentStep string,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return store.ErrJobNotFound
	}

	job.ProcessedChunks = processedChunks
	job.GeneratedCards = generatedCards
	job.ProgressPct = progressPct
	job.CurrentStep = currentStep
	job.UpdatedAt = time.Now().UTC()
	return nil
}

// Heartbeat implements the JobStore interface.
func (m *MemoryJobStore) Heartbeat(
	ctx context.Context,
	jobID uuid.UUID,
	workerID string,
	at time.Time,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return store.ErrJobNotFound
	}
	if job.Status != domain.JobStatusProcessing || job.WorkerID != workerID {
		return store.ErrUpdateFailed
	}

	hb := at
	job.LastHeartbeatAt = &hb
	job.UpdatedAt = at
	return nil
}

// Complete implements the JobStore interface.
func (m *MemoryJobStore) Complete(
	ctx context.Context,
	jobID uuid.UUID,
	summary domain.ResultSummary,
	generatedCards int,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return store.ErrJobNotFound
	}
	if job.Status != domain.JobStatusProcessing {
		return store.ErrUpdateFailed
	}

	now := summary.CompletedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	job.Status = domain.JobStatusCompleted
	job.ResultSummary = &summary
	job.GeneratedCards = generatedCards
	job.ProgressPct = 100
	job.CurrentStep = "completed"
	job.CompletedAt = &now
	if job.StartedAt != nil {
		job.ActualDurationSeconds = int(now.Sub(*job.StartedAt).Seconds())
	}
	job.WorkerID = ""
	job.WorkerStartedAt = nil
	job.LastHeartbeatAt = nil
	job.UpdatedAt = now
	return nil
}

// Fail implements the JobStore interface.
func (m *MemoryJobStore) Fail(
	ctx context.Context,
	jobID uuid.UUID,
	record domain.ErrorRecord,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return store.ErrJobNotFound
	}
	if job.Status != domain.JobStatusProcessing {
		return store.ErrUpdateFailed
	}

	now := record.Timestamp
	if now.IsZero() {
		now = time.Now().UTC()
	}

	job.Status = domain.JobStatusFailed
	job.ErrorRecord = &record
	job.CurrentStep = "failed"
	job.CompletedAt = &now
	if job.StartedAt != nil {
		job.ActualDurationSeconds = int(now.Sub(*job.StartedAt).Seconds())
	}
	job.WorkerID = ""
	job.WorkerStartedAt = nil
	job.LastHeartbeatAt = nil
	job.UpdatedAt = now
	return nil
}

// Cancel implements the JobStore interface.
func (m *MemoryJobStore) Cancel(ctx context.Context, jobID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return store.ErrJobNotFound
	}
	if job.Status != domain.JobStatusQueued {
		return store.ErrJobAlreadyClaimed
	}

	now := time.Now().UTC()
	job.Status = domain.JobStatusCancelled
	job.CurrentStep = "cancelled"
	job.CompletedAt = &now
	job.UpdatedAt = now
	return nil
}

// ReclaimStale implements the JobStore interface.
func (m *MemoryJobStore) ReclaimStale(ctx context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	reclaimed := 0
	now := time.Now().UTC()
	for _, job := range m.jobs {
		if job.Status != domain.JobStatusProcessing {
			continue
		}
		if job.LastHeartbeatAt == nil || job.LastHeartbeatAt.After(cutoff) {
			continue
		}

		job.Status = domain.JobStatusQueued
		job.WorkerID = ""
		job.WorkerStartedAt = nil
		job.LastHeartbeatAt = nil
		job.StartedAt = nil
		job.CurrentStep = "queued"
		job.UpdatedAt = now
		reclaimed++
	}

	return reclaimed, nil
}
