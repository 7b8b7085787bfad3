package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// JobQueuedEvent announces that a job has been enqueued and is available
// for claiming. It carries identifiers only; workers load the job record
// from the store when they claim it.
type JobQueuedEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// JobID identifies the job that was enqueued
	JobID uuid.UUID `json:"job_id"`

	// Priority is the scheduling priority the job was enqueued with
	Priority int `json:"priority"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// NewJobQueuedEvent creates a new JobQueuedEvent for the given job.
func NewJobQueuedEvent(jobID uuid.UUID, priority int) *JobQueuedEvent {
	return &JobQueuedEvent{
		ID:        uuid.New(),
		JobID:     jobID,
		Priority:  priority,
		CreatedAt: time.Now().UTC(),
	}
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *JobQueuedEvent) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *JobQueuedEvent) error
}
