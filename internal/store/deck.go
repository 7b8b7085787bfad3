package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/cardforge/cardforge-api/internal/domain"
)

// DeckStore provides read access to decks for ownership checks.
type DeckStore interface {
	// GetForOwner retrieves a deck only if it belongs to the given user.
	// Returns ErrDeckNotFound if the deck does not exist or is owned by
	// someone else; callers must not be able to distinguish the two cases.
	GetForOwner(ctx context.Context, deckID, userID uuid.UUID) (*domain.Deck, error)
}
