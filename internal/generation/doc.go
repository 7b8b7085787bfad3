// Package generation defines the boundary between the worker runtime and
// external LLM services that turn chunk text into flashcard problems.
package generation
