package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cardforge/cardforge-api/internal/api/middleware"
	"github.com/cardforge/cardforge-api/internal/api/shared"
	"github.com/cardforge/cardforge-api/internal/domain"
	"github.com/cardforge/cardforge-api/internal/service"
	"github.com/cardforge/cardforge-api/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// SubmitJobRequest is the request body for submitting a new job.
type SubmitJobRequest struct {
	DeckID        string                   `json:"deck_id"         validate:"required,uuid"`
	FileURL       string                   `json:"file_url"        validate:"required,url"`
	Filename      string                   `json:"filename"        validate:"required,min=1"`
	MIMEType      string                   `json:"mime_type"       validate:"required"`
	FileSizeBytes int64                    `json:"file_size_bytes" validate:"required,gt=0"`
	Options       domain.ProcessingOptions `json:"processing_options"`
}

// JobResponse is the response representation of a job.
type JobResponse struct {
	ID       string `json:"id"`
	DeckID   string `json:"deck_id"`
	Status   string `json:"status"`
	Priority int    `json:"priority"`

	Filename      string `json:"filename"`
	FileSizeBytes int64  `json:"file_size_bytes"`

	ProgressPct     int    `json:"progress_percentage"`
	CurrentStep     string `json:"current_step,omitempty"`
	TotalChunks     int    `json:"total_chunks"`
	ProcessedChunks int    `json:"processed_chunks"`
	GeneratedCards  int    `json:"generated_cards"`

	ResultSummary *domain.ResultSummary `json:"result_summary,omitempty"`
	ErrorDetails  *domain.ErrorRecord   `json:"error_details,omitempty"`

	EstimatedDurationSeconds int `json:"estimated_duration_seconds"`
	ActualDurationSeconds    int `json:"actual_duration_seconds,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// JobListResponse wraps a page of jobs.
type JobListResponse struct {
	Jobs  []JobResponse `json:"jobs"`
	Count int           `json:"count"`
}

// JobHandler handles job-related HTTP requests.
type JobHandler struct {
	jobService service.JobService
	logger     *slog.Logger
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(jobService service.JobService, logger *slog.Logger) *JobHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobHandler{
		jobService: jobService,
		logger:     logger.With(slog.String("component", "job_handler")),
	}
}

// SubmitJob handles POST /api/jobs requests. Accepted jobs are queued for
// asynchronous processing, so the response is 202 with the initial job state.
func (h *JobHandler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req SubmitJobRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	deckID, err := uuid.Parse(req.DeckID)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid deck ID")
		return
	}

	options := req.Options
	options.ApplyDefaults()

	job, err := h.jobService.Submit(r.Context(), service.SubmitJobRequest{
		UserID:        userID,
		DeckID:        deckID,
		FileURL:       req.FileURL,
		Filename:      req.Filename,
		MIMEType:      req.MIMEType,
		FileSizeBytes: req.FileSizeBytes,
		Options:       options,
	})
	if err != nil {
		h.respondServiceError(w, r, err, "submit job", userID)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, jobToResponse(job))
}

// GetJob handles GET /api/jobs/{id} requests.
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	jobID, ok := h.jobIDParam(w, r)
	if !ok {
		return
	}

	job, err := h.jobService.GetJob(r.Context(), userID, jobID)
	if err != nil {
		h.respondServiceError(w, r, err, "get job", userID)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, jobToResponse(job))
}

// ListJobs handles GET /api/jobs requests. Supports optional status,
// limit, and offset query parameters.
func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	filter := store.JobListFilter{}
	if status := r.URL.Query().Get("status"); status != "" {
		if !domain.IsValidJobStatus(domain.JobStatus(status)) {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid status filter")
			return
		}
		filter.Status = domain.JobStatus(status)
	}
	filter.Limit = queryInt(r, "limit", 50)
	filter.Offset = queryInt(r, "offset", 0)

	jobs, err := h.jobService.ListJobs(r.Context(), userID, filter)
	if err != nil {
		h.respondServiceError(w, r, err, "list jobs", userID)
		return
	}

	resp := JobListResponse{Jobs: make([]JobResponse, 0, len(jobs)), Count: len(jobs)}
	for _, job := range jobs {
		resp.Jobs = append(resp.Jobs, jobToResponse(job))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// CancelJob handles POST /api/jobs/{id}/cancel requests.
func (h *JobHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	jobID, ok := h.jobIDParam(w, r)
	if !ok {
		return
	}

	if err := h.jobService.Cancel(r.Context(), userID, jobID); err != nil {
		h.respondServiceError(w, r, err, "cancel job", userID)
		return
	}

	job, err := h.jobService.GetJob(r.Context(), userID, jobID)
	if err != nil {
		h.respondServiceError(w, r, err, "cancel job", userID)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, jobToResponse(job))
}

// RetryJob handles POST /api/jobs/{id}/retry requests. A successful retry
// creates a fresh queued job; the original failed job is left untouched.
func (h *JobHandler) RetryJob(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	jobID, ok := h.jobIDParam(w, r)
	if !ok {
		return
	}

	job, err := h.jobService.Retry(r.Context(), userID, jobID)
	if err != nil {
		h.respondServiceError(w, r, err, "retry job", userID)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, jobToResponse(job))
}

// GetStats handles GET /api/jobs/stats requests. The period query
// parameter selects the window in days.
func (h *JobHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	stats, err := h.jobService.Stats(r.Context(), userID, queryInt(r, "period", 0))
	if err != nil {
		h.respondServiceError(w, r, err, "get stats", userID)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, stats)
}

func (h *JobHandler) requireUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := middleware.GetUserID(r)
	if !ok || userID == uuid.Nil {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return uuid.Nil, false
	}
	return userID, true
}

func (h *JobHandler) jobIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	jobID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid job ID")
		return uuid.Nil, false
	}
	return jobID, true
}

func (h *JobHandler) respondServiceError(
	w http.ResponseWriter,
	r *http.Request,
	err error,
	operation string,
	userID uuid.UUID,
) {
	status := MapErrorToStatusCode(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			slog.String("operation", operation),
			slog.String("user_id", userID.String()),
			slog.Any("error", err))
	}
	shared.RespondWithErrorAndLog(w, r, status, GetSafeErrorMessage(err), err)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}

func jobToResponse(job *domain.Job) JobResponse {
	return JobResponse{
		ID:                       job.ID.String(),
		DeckID:                   job.DeckID.String(),
		Status:                   string(job.Status),
		Priority:                 job.Priority,
		Filename:                 job.Filename,
		FileSizeBytes:            job.FileSizeBytes,
		ProgressPct:              job.ProgressPct,
		CurrentStep:              job.CurrentStep,
		TotalChunks:              job.TotalChunks,
		ProcessedChunks:          job.ProcessedChunks,
		GeneratedCards:           job.GeneratedCards,
		ResultSummary:            job.ResultSummary,
		ErrorDetails:             job.ErrorRecord,
		EstimatedDurationSeconds: job.EstimatedDurationSeconds,
		ActualDurationSeconds:    job.ActualDurationSeconds,
		CreatedAt:                job.CreatedAt,
		StartedAt:                job.StartedAt,
		CompletedAt:              job.CompletedAt,
	}
}
