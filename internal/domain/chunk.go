package domain

import "github.com/google/uuid"

// ChunkStatus represents the processing state of a single chunk
// within one worker pass. Chunks are not persisted as first-class
// records; their outcomes fold into the owning job's counters.
type ChunkStatus string

const (
	ChunkStatusPending   ChunkStatus = "pending"
	ChunkStatusCompleted ChunkStatus = "completed"
	ChunkStatusFailed    ChunkStatus = "failed"
)

// Chunk is a bounded-size, page-contiguous unit of extracted text
// processed as one LLM request.
type Chunk struct {
	ID          uuid.UUID   `json:"chunk_id"`
	PageNumbers []int       `json:"page_numbers"`
	Text        string      `json:"text_content"`
	TokenCount  int         `json:"token_count"`
	Status      ChunkStatus `json:"status"`
	Problems    []Problem   `json:"detected_problems,omitempty"`
}

// FirstPage returns the first page the chunk spans, or 0 for an empty chunk.
func (c *Chunk) FirstPage() int {
	if len(c.PageNumbers) == 0 {
		return 0
	}
	return c.PageNumbers[0]
}

// PageText is one page of extracted document text, the unit the
// chunker consumes.
type PageText struct {
	PageNumber int
	Text       string
}
