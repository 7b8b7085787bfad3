package mocks

import (
	"context"

	"github.com/google/uuid"

	"github.com/cardforge/cardforge-api/internal/domain"
	"github.com/cardforge/cardforge-api/internal/store"
)

// MockDeckStore implements store.DeckStore for testing.
type MockDeckStore struct {
	// Function field for customizable behavior
	GetForOwnerFn func(ctx context.Context, deckID, userID uuid.UUID) (*domain.Deck, error)

	// Data for default implementation
	Decks map[uuid.UUID]*domain.Deck
}

// NewMockDeckStore creates a new mock store with initialized defaults.
func NewMockDeckStore() *MockDeckStore {
	return &MockDeckStore{
		Decks: make(map[uuid.UUID]*domain.Deck),
	}
}

var _ store.DeckStore = (*MockDeckStore)(nil)

// AddDeck registers a deck owned by the given user and returns it.
func (m *MockDeckStore) AddDeck(userID uuid.UUID, title string) *domain.Deck {
	deck := &domain.Deck{
		ID:     uuid.New(),
		UserID: userID,
		Title:  title,
	}
	m.Decks[deck.ID] = deck
	return deck
}

// GetForOwner implements the DeckStore interface.
func (m *MockDeckStore) GetForOwner(
	ctx context.Context,
	deckID, userID uuid.UUID,
) (*domain.Deck, error) {
	if m.GetForOwnerFn != nil {
		return m.GetForOwnerFn(ctx, deckID, userID)
	}

	deck, ok := m.Decks[deckID]
	if !ok || deck.UserID != userID {
		return nil, store.ErrDeckNotFound
	}
	return deck, nil
}
