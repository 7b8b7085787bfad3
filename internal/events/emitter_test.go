package events_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/cardforge/cardforge-api/internal/events"
	"github.com/cardforge/cardforge-api/internal/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestInMemoryEventEmitter(t *testing.T) {
	// Create a minimal logger that discards output
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("emit event with no handlers", func(t *testing.T) {
		emitter := events.NewInMemoryEventEmitter(logger)
		event := events.NewJobQueuedEvent(uuid.New(), 5)

		// Should not error even with no handlers
		err := emitter.EmitEvent(context.Background(), event)
		assert.NoError(t, err)
	})

	t.Run("emit event with successful handlers", func(t *testing.T) {
		emitter := events.NewInMemoryEventEmitter(logger)

		handler1 := &mocks.MockEventHandler{}
		handler2 := &mocks.MockEventHandler{}

		emitter.RegisterHandler(handler1)
		emitter.RegisterHandler(handler2)

		event := events.NewJobQueuedEvent(uuid.New(), 5)
		err := emitter.EmitEvent(context.Background(), event)
		assert.NoError(t, err)

		// Verify both handlers received the event
		assert.Equal(t, 1, handler1.HandledCount)
		assert.Equal(t, 1, handler2.HandledCount)
		assert.Equal(t, event, handler1.LastEvent)
		assert.Equal(t, event, handler2.LastEvent)
	})

	t.Run("emit event with failing handler", func(t *testing.T) {
		emitter := events.NewInMemoryEventEmitter(logger)

		successHandler := &mocks.MockEventHandler{}
		failingHandler := &mocks.MockEventHandler{
			HandlerError: errors.New("handler error"),
		}

		emitter.RegisterHandler(successHandler)
		emitter.RegisterHandler(failingHandler)

		event := events.NewJobQueuedEvent(uuid.New(), 5)

		// Should return an error from the failing handler
		err := emitter.EmitEvent(context.Background(), event)
		assert.Error(t, err)
		assert.Equal(t, "handler error", err.Error())

		// Both handlers should still have received the event
		assert.Equal(t, 1, successHandler.HandledCount)
		assert.Equal(t, 1, failingHandler.HandledCount)
	})
}

func TestNewJobQueuedEvent(t *testing.T) {
	jobID := uuid.New()
	event := events.NewJobQueuedEvent(jobID, 6)

	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, jobID, event.JobID)
	assert.Equal(t, 6, event.Priority)
	assert.False(t, event.CreatedAt.IsZero())
}
