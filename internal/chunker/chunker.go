// Package chunker deterministically partitions extracted document text
// into bounded units with page provenance. Each chunk spans a contiguous,
// gap-free run of pages and is processed as one LLM request downstream.
package chunker

import (
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/cardforge/cardforge-api/internal/domain"
)

// tokenCharRatio approximates how many characters make up one model token.
const tokenCharRatio = 4

// EstimateTokens returns a rough token count for the given text. It is a
// heuristic used only for chunk sizing and quota estimates, not billing.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + tokenCharRatio - 1) / tokenCharRatio
}

// Split partitions ordered pages into chunks whose estimated token count
// stays at or under maxTokens. Pages are never split: a single page larger
// than the budget becomes its own oversized chunk. Empty input yields zero
// chunks; rejecting that is the scheduler's job, not ours.
func Split(pages []domain.PageText, maxTokens int) []domain.Chunk {
	if maxTokens <= 0 {
		maxTokens = 1
	}

	var chunks []domain.Chunk
	var currentPages []int
	var currentText string
	currentTokens := 0

	flush := func() {
		if len(currentPages) == 0 {
			return
		}
		chunks = append(chunks, domain.Chunk{
			ID:          uuid.New(),
			PageNumbers: currentPages,
			Text:        currentText,
			TokenCount:  currentTokens,
			Status:      domain.ChunkStatusPending,
		})
		currentPages = nil
		currentText = ""
		currentTokens = 0
	}

	for _, page := range pages {
		pageTokens := EstimateTokens(page.Text)

		// A page exceeding the budget still yields exactly one chunk.
		if pageTokens > maxTokens {
			flush()
			chunks = append(chunks, domain.Chunk{
				ID:          uuid.New(),
				PageNumbers: []int{page.PageNumber},
				Text:        pageHeader(page.PageNumber) + page.Text,
				TokenCount:  pageTokens,
				Status:      domain.ChunkStatusPending,
			})
			continue
		}

		if currentTokens+pageTokens > maxTokens && len(currentPages) > 0 {
			flush()
		}

		if currentText != "" {
			currentText += "\n\n"
		}
		currentText += pageHeader(page.PageNumber) + page.Text
		currentPages = append(currentPages, page.PageNumber)
		currentTokens += pageTokens
	}

	flush()
	return chunks
}

func pageHeader(pageNumber int) string {
	return fmt.Sprintf("=== page %d ===\n", pageNumber)
}
