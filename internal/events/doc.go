// Package events provides types and interfaces for an event-driven architecture.
//
// This package defines event types and handler interfaces that allow for loose
// coupling between components in the system. The job service can announce new
// work without knowing which workers will pick it up, and workers can wake on
// announcements instead of relying on polling alone.
//
// The primary components are:
// - JobQueuedEvent: Announces that a job has been enqueued and is claimable
// - EventHandler: Interface for components that can handle events
// - EventEmitter: Interface for components that can emit events
package events
