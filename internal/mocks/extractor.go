package mocks

import (
	"context"
	"fmt"

	"github.com/cardforge/cardforge-api/internal/domain"
	"github.com/cardforge/cardforge-api/internal/extraction"
)

// MockExtractor implements extraction.Extractor for testing.
type MockExtractor struct {
	// Function field for customizable behavior
	ExtractPagesFn func(ctx context.Context, fileRef string) ([]domain.PageText, error)

	// Default behavior configuration
	Pages int
	Err   error
}

// NewMockExtractor creates an extractor that yields the given number of
// single-sentence pages.
func NewMockExtractor(pages int) *MockExtractor {
	return &MockExtractor{Pages: pages}
}

var _ extraction.Extractor = (*MockExtractor)(nil)

// ExtractPages implements the Extractor interface.
func (m *MockExtractor) ExtractPages(ctx context.Context, fileRef string) ([]domain.PageText, error) {
	if m.ExtractPagesFn != nil {
		return m.ExtractPagesFn(ctx, fileRef)
	}

	if m.Err != nil {
		return nil, m.Err
	}

	pages := make([]domain.PageText, 0, m.Pages)
	for i := 1; i <= m.Pages; i++ {
		pages = append(pages, domain.PageText{
			PageNumber: i,
			Text:       fmt.Sprintf("Text of page %d.", i),
		})
	}
	return pages, nil
}
