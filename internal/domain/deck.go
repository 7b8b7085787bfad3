package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for Deck.
var (
	ErrEmptyDeckID     = errors.New("deck ID cannot be empty")
	ErrEmptyDeckUserID = errors.New("deck user ID cannot be empty")
	ErrEmptyDeckTitle  = errors.New("deck title cannot be empty")
)

// Deck is the card collection a job generates into. Jobs only reference
// decks; deck CRUD lives outside this service.
type Deck struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate checks if the Deck has valid data.
func (d *Deck) Validate() error {
	if d.ID == uuid.Nil {
		return ErrEmptyDeckID
	}
	if d.UserID == uuid.Nil {
		return ErrEmptyDeckUserID
	}
	if d.Title == "" {
		return ErrEmptyDeckTitle
	}
	return nil
}
