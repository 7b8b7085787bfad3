package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validOptions() ProcessingOptions {
	return ProcessingOptions{
		QuestionType: QuestionTypeAuto,
		GenerateMode: GenerateModeAll,
		ChunkSize:    4,
	}
}

func TestNewJob(t *testing.T) {
	userID := uuid.New()
	deckID := uuid.New()

	job, err := NewJob(userID, deckID, "https://files.example/doc.pdf", "doc.pdf", 1024, validOptions())
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, job.ID)
	assert.Equal(t, userID, job.UserID)
	assert.Equal(t, deckID, job.DeckID)
	assert.Equal(t, JobStatusQueued, job.Status)
	assert.Equal(t, "queued", job.CurrentStep)
	assert.Empty(t, job.WorkerID)
	assert.Nil(t, job.ResultSummary)
	assert.Nil(t, job.ErrorRecord)
	assert.False(t, job.CreatedAt.IsZero())
	assert.Equal(t, job.CreatedAt, job.UpdatedAt)
}

func TestNewJobValidation(t *testing.T) {
	userID := uuid.New()
	deckID := uuid.New()

	tests := []struct {
		name    string
		userID  uuid.UUID
		deckID  uuid.UUID
		fileURL string
		name2   string
		size    int64
		opts    ProcessingOptions
		wantErr error
	}{
		{"missing user", uuid.Nil, deckID, "u", "f.pdf", 1, validOptions(), ErrEmptyJobUserID},
		{"missing deck", userID, uuid.Nil, "u", "f.pdf", 1, validOptions(), ErrEmptyJobDeckID},
		{"missing file URL", userID, deckID, "", "f.pdf", 1, validOptions(), ErrEmptyJobFileURL},
		{"missing filename", userID, deckID, "u", "", 1, validOptions(), ErrEmptyJobFilename},
		{"zero size", userID, deckID, "u", "f.pdf", 0, validOptions(), ErrInvalidFileSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewJob(tt.userID, tt.deckID, tt.fileURL, tt.name2, tt.size, tt.opts)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestProcessingOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    ProcessingOptions
		wantErr bool
	}{
		{"valid auto", ProcessingOptions{QuestionTypeAuto, GenerateModeAll, 4}, false},
		{"valid descriptive", ProcessingOptions{QuestionTypeDescriptive, GenerateModeKeyPoints, 20}, false},
		{"bad question type", ProcessingOptions{"essay", GenerateModeAll, 4}, true},
		{"bad generate mode", ProcessingOptions{QuestionTypeAuto, "summary", 4}, true},
		{"chunk size too small", ProcessingOptions{QuestionTypeAuto, GenerateModeAll, 0}, true},
		{"chunk size too large", ProcessingOptions{QuestionTypeAuto, GenerateModeAll, 21}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidOptions)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestJobIsTerminal(t *testing.T) {
	job := &Job{}

	for status, terminal := range map[JobStatus]bool{
		JobStatusQueued:     false,
		JobStatusProcessing: false,
		JobStatusCompleted:  true,
		JobStatusFailed:     true,
		JobStatusCancelled:  true,
	} {
		job.Status = status
		assert.Equal(t, terminal, job.IsTerminal(), "status %s", status)
	}
}

func TestJobIsActive(t *testing.T) {
	job := &Job{}

	for status, active := range map[JobStatus]bool{
		JobStatusQueued:     true,
		JobStatusProcessing: true,
		JobStatusCompleted:  false,
		JobStatusFailed:     false,
		JobStatusCancelled:  false,
	} {
		job.Status = status
		assert.Equal(t, active, job.IsActive(), "status %s", status)
	}
}

func TestIsValidJobStatus(t *testing.T) {
	assert.True(t, IsValidJobStatus(JobStatusQueued))
	assert.True(t, IsValidJobStatus(JobStatusCancelled))
	assert.False(t, IsValidJobStatus("pending"))
	assert.False(t, IsValidJobStatus(""))
}
