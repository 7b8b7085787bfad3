// Package gemini implements the generation.Generator interface using
// Google's Gemini API to extract flashcard problems from chunk text.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/cardforge/cardforge-api/internal/config"
	"github.com/cardforge/cardforge-api/internal/domain"
	"github.com/cardforge/cardforge-api/internal/generation"
)

// promptTemplate instructs the model to extract problems and emit a bare
// JSON array. Answers are only extracted when the source states them;
// the model must not invent them.
const promptTemplate = `You are an expert at extracting study problems from document text.
Detect problem statements in the text below and, when an answer or
explanation is explicitly present, extract it as well.

Question type preference: {{.QuestionType}}
Generation mode: {{.GenerateMode}}

Output format: a JSON array, no surrounding prose:
[
  {
    "problem_text": "the full problem statement including any choices",
    "answer_text": "the answer, only if explicitly present",
    "problem_type": "multiple_choice" | "descriptive" | "unknown",
    "confidence_score": 0.0-1.0,
    "page_number": <number from the === page N === markers>
  }
]

Rules:
1. problem_text is required; strip problem numbering but keep choices.
2. Never guess answers; leave answer_text empty when the source has none.
3. Record the page number of the marker preceding the problem.
4. Extract each problem separately.

Text:
{{.ChunkText}}`

func newPromptTemplate() (*template.Template, error) {
	return template.New("problems").Parse(promptTemplate)
}

// problemSchema mirrors the JSON objects the model is asked to emit.
type problemSchema struct {
	ProblemText     string  `json:"problem_text"`
	AnswerText      string  `json:"answer_text"`
	ProblemType     string  `json:"problem_type"`
	ConfidenceScore float64 `json:"confidence_score"`
	PageNumber      int     `json:"page_number"`
}

// GeminiGenerator implements the generation.Generator interface using
// Google's Gemini API.
type GeminiGenerator struct {
	logger *slog.Logger
	config config.LLMConfig
	prompt *template.Template
	client *genai.Client
	model  string
}

// NewGeminiGenerator creates a new instance of GeminiGenerator with the
// provided dependencies.
func NewGeminiGenerator(
	ctx context.Context,
	logger *slog.Logger,
	cfg config.LLMConfig,
) (*GeminiGenerator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	prompt, err := newPromptTemplate()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v",
			generation.ErrInvalidConfig, err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	return &GeminiGenerator{
		logger: logger.With(slog.String("component", "gemini_generator")),
		config: cfg,
		prompt: prompt,
		client: client,
		model:  cfg.ModelName,
	}, nil
}

var _ generation.Generator = (*GeminiGenerator)(nil)

// GenerateProblems implements generation.Generator. The call is made at
// most once per invocation so that callers can account one quota unit per
// invocation; transient provider errors are surfaced, not retried here.
func (g *GeminiGenerator) GenerateProblems(
	ctx context.Context,
	chunkText string,
	options domain.ProcessingOptions,
) ([]domain.Problem, error) {
	if strings.TrimSpace(chunkText) == "" {
		return nil, fmt.Errorf("%w: chunk text is empty", generation.ErrInvalidInput)
	}

	prompt, err := g.buildPrompt(chunkText, options)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", generation.ErrInvalidInput, err)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		g.logger.ErrorContext(ctx, "Gemini API call failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}
	if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return nil, fmt.Errorf("%w: finish reason safety", generation.ErrContentBlocked)
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			text.WriteString(part.Text)
		}
	}

	problems, err := parseProblems(text.String())
	if err != nil {
		return nil, err
	}

	g.logger.DebugContext(ctx, "extracted problems from chunk",
		slog.Int("problem_count", len(problems)))

	return problems, nil
}

// buildPrompt renders the prompt template with the chunk text and options.
func (g *GeminiGenerator) buildPrompt(chunkText string, options domain.ProcessingOptions) (string, error) {
	var buf bytes.Buffer
	err := g.prompt.Execute(&buf, struct {
		QuestionType string
		GenerateMode string
		ChunkText    string
	}{
		QuestionType: string(options.QuestionType),
		GenerateMode: string(options.GenerateMode),
		ChunkText:    chunkText,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// parseProblems extracts the JSON array from the model output, tolerating
// markdown code fences and surrounding prose, and maps it to domain problems.
func parseProblems(raw string) ([]domain.Problem, error) {
	jsonText := extractJSONArray(raw)
	if jsonText == "" {
		return nil, fmt.Errorf("%w: no JSON array in response", generation.ErrInvalidResponse)
	}

	var parsed []problemSchema
	if err := json.Unmarshal([]byte(jsonText), &parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %v",
			generation.ErrInvalidResponse, err)
	}

	problems := make([]domain.Problem, 0, len(parsed))
	for _, p := range parsed {
		if strings.TrimSpace(p.ProblemText) == "" {
			continue
		}

		problemType := domain.ProblemType(p.ProblemType)
		switch problemType {
		case domain.ProblemTypeMultipleChoice, domain.ProblemTypeDescriptive:
		default:
			problemType = domain.ProblemTypeUnknown
		}

		confidence := p.ConfidenceScore
		if confidence <= 0 || confidence > 1 {
			confidence = 0.5
		}

		page := p.PageNumber
		if page < 1 {
			page = 1
		}

		problems = append(problems, domain.Problem{
			ID:         uuid.New().String(),
			Text:       p.ProblemText,
			AnswerText: p.AnswerText,
			Type:       problemType,
			Confidence: confidence,
			PageNumber: page,
		})
	}

	return problems, nil
}

// extractJSONArray returns the JSON array portion of the model output,
// preferring a fenced code block when present.
func extractJSONArray(raw string) string {
	if start := strings.Index(raw, "```"); start != -1 {
		rest := raw[start+3:]
		rest = strings.TrimPrefix(rest, "json")
		if end := strings.Index(rest, "```"); end != -1 {
			raw = rest[:end]
		}
	}

	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start == -1 || end == -1 || end <= start {
		return ""
	}
	return strings.TrimSpace(raw[start : end+1])
}
