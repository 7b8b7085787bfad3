package generation

import "errors"

// Common errors returned by the generation package
var (
	// ErrGenerationFailed is returned when problem extraction fails for any
	// general reason after the request was transmitted
	ErrGenerationFailed = errors.New("failed to generate problems from text")

	// ErrInvalidResponse is returned when the LLM response cannot be parsed
	// or is malformed
	ErrInvalidResponse = errors.New("invalid response from language model")

	// ErrContentBlocked is returned when the LLM blocks the content due to
	// safety filters
	ErrContentBlocked = errors.New("content blocked by language model safety filters")

	// ErrTransientFailure is returned for temporary errors that might
	// resolve on retry
	ErrTransientFailure = errors.New("transient error during problem generation")

	// ErrInvalidInput is returned when the request was rejected before
	// transmission (e.g. empty chunk text). Callers must not count these
	// against the quota.
	ErrInvalidInput = errors.New("invalid generation input")

	// ErrInvalidConfig is returned when the generator configuration is invalid
	ErrInvalidConfig = errors.New("invalid generator configuration")
)
