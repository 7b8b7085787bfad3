package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	// This is a generic version of the entity-specific not found errors.
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrDuplicate is returned when an entity with the same unique key
	// already exists in the store.
	ErrDuplicate = errors.New("entity already exists")

	// ErrUpdateFailed is returned when an update operation fails, for example
	// because the entity does not exist or the update violates constraints.
	ErrUpdateFailed = errors.New("update failed")

	// ErrJobNotFound indicates that the requested job does not exist in the store.
	ErrJobNotFound = fmt.Errorf("%w: job", ErrNotFound)

	// ErrDeckNotFound indicates that the requested deck does not exist in the
	// store or is not owned by the requesting user.
	ErrDeckNotFound = fmt.Errorf("%w: deck", ErrNotFound)

	// ErrNoJobsAvailable is returned by ClaimNext when no queued job exists.
	ErrNoJobsAvailable = errors.New("no queued jobs available")

	// ErrJobAlreadyClaimed is returned when a compare-and-set claim or
	// cancel loses the race: the job exists but is no longer queued.
	ErrJobAlreadyClaimed = errors.New("job already claimed")
)
