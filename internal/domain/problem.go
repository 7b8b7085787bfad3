package domain

// ProblemType classifies a generated flashcard problem.
type ProblemType string

const (
	ProblemTypeMultipleChoice ProblemType = "multiple_choice"
	ProblemTypeDescriptive    ProblemType = "descriptive"
	ProblemTypeUnknown        ProblemType = "unknown"
)

// Problem is one flashcard-sized question extracted from a chunk by the
// LLM collaborator. AnswerText may be empty when the source material did
// not contain an explicit answer.
type Problem struct {
	ID         string      `json:"problem_id"`
	Text       string      `json:"problem_text"`
	AnswerText string      `json:"answer_text,omitempty"`
	Type       ProblemType `json:"problem_type"`
	Confidence float64     `json:"confidence_score"`
	PageNumber int         `json:"page_number"`
}
