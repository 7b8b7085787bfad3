package mocks

import (
	"context"

	"github.com/cardforge/cardforge-api/internal/events"
)

// MockEventHandler records the events it receives.
type MockEventHandler struct {
	HandledCount int
	LastEvent    *events.JobQueuedEvent
	HandlerError error
}

var _ events.EventHandler = (*MockEventHandler)(nil)

// HandleEvent implements events.EventHandler.
func (m *MockEventHandler) HandleEvent(ctx context.Context, event *events.JobQueuedEvent) error {
	m.HandledCount++
	m.LastEvent = event
	return m.HandlerError
}
