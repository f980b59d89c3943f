// Package llm provides the language-model layer shared by query
// analysis and summary synthesis. It defines a provider-agnostic
// interface with a concrete OpenAI implementation and a deterministic
// mock for testing.
package llm

import (
	"context"
	"errors"
)

var (
	ErrLLMFailed     = errors.New("LLM request failed")
	ErrInvalidConfig = errors.New("invalid LLM configuration")
)

// LLM defines the interface for interacting with language models.
// Implementations must be stateless and thread-safe.
type LLM interface {
	// Generate produces text from a prompt using the configured model.
	// Returns the generated text or an error if generation fails.
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config holds common configuration options for LLM providers.
type Config struct {
	// Model specifies the model identifier (e.g., "gpt-4o", "gpt-4o-mini")
	Model string

	// Temperature controls randomness (0.0 = deterministic, 2.0 = very random)
	Temperature float32

	// MaxTokens limits the response length (0 = use provider default)
	MaxTokens int

	// APIKey is the authentication key for the provider
	APIKey string
}

// DefaultAnalysisConfig returns defaults for query analysis, which wants
// a fast, cheap model and strict determinism.
func DefaultAnalysisConfig() Config {
	return Config{
		Model:       "gpt-4o-mini",
		Temperature: 0,
		MaxTokens:   800,
	}
}

// DefaultSummaryConfig returns defaults for summary synthesis.
func DefaultSummaryConfig() Config {
	return Config{
		Model:       "gpt-4o",
		Temperature: 0, // model default
		MaxTokens:   2000,
	}
}
