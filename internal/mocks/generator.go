package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/cardforge/cardforge-api/internal/domain"
	"github.com/cardforge/cardforge-api/internal/generation"
)

// MockGenerator implements generation.Generator for testing.
type MockGenerator struct {
	// Function field for customizable behavior
	GenerateProblemsFn func(ctx context.Context, chunkText string, options domain.ProcessingOptions) ([]domain.Problem, error)

	// Default behavior configuration
	ProblemsPerChunk int
	Err              error

	mu        sync.Mutex
	callCount int
}

// NewMockGenerator creates a generator that yields two problems per chunk.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{ProblemsPerChunk: 2}
}

var _ generation.Generator = (*MockGenerator)(nil)

// CallCount reports how many times GenerateProblems was invoked.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// GenerateProblems implements the Generator interface.
func (m *MockGenerator) GenerateProblems(
	ctx context.Context,
	chunkText string,
	options domain.ProcessingOptions,
) ([]domain.Problem, error) {
	m.mu.Lock()
	m.callCount++
	n := m.callCount
	m.mu.Unlock()

	if m.GenerateProblemsFn != nil {
		return m.GenerateProblemsFn(ctx, chunkText, options)
	}

	if m.Err != nil {
		return nil, m.Err
	}

	problems := make([]domain.Problem, 0, m.ProblemsPerChunk)
	for i := 0; i < m.ProblemsPerChunk; i++ {
		problems = append(problems, domain.Problem{
			ID:         uuid.New().String(),
			Text:       fmt.Sprintf("problem %d from call %d", i+1, n),
			Type:       domain.ProblemTypeDescriptive,
			Confidence: 0.8,
			PageNumber: 1,
		})
	}
	return problems, nil
}
