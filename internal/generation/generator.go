package generation

import (
	"context"

	"github.com/cardforge/cardforge-api/internal/domain"
)

// Generator defines the interface for extracting flashcard problems from
// chunk text. This interface is the boundary between the worker runtime
// and external AI/LLM services; every invocation costs exactly one quota
// unit regardless of outcome once the request has been transmitted.
type Generator interface {
	// GenerateProblems asks the model to extract flashcard-sized problems
	// from the given chunk text, honoring the job's processing options.
	//
	// Parameters:
	//   - ctx: Context for the operation, which can be used for cancellation
	//   - chunkText: The chunk content, including page markers
	//   - options: The job's question-type / generate-mode settings
	//
	// Returns the extracted problems or an error (see errors.go). Errors
	// wrapping ErrInvalidInput mean the request was never transmitted and
	// must not be recorded against the quota; every other error means the
	// call went out.
	GenerateProblems(
		ctx context.Context,
		chunkText string,
		options domain.ProcessingOptions,
	) ([]domain.Problem, error)
}
