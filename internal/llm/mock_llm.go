package llm

import (
	"context"
	"fmt"
	"strings"
)

// MockLLM is a deterministic LLM implementation for testing.
// It returns predictable responses based on prompt content.
type MockLLM struct {
	// Response is the fixed text returned by Generate.
	// If empty, a default response is derived from the prompt.
	Response string

	// Error, if set, is returned by Generate instead of a response.
	Error error

	// LastPrompt stores the most recent prompt passed to Generate.
	LastPrompt string

	// Calls counts Generate invocations.
	Calls int
}

// NewMockLLM creates a mock LLM with the given fixed response.
func NewMockLLM(response string) *MockLLM {
	return &MockLLM{Response: response}
}

// NewMockLLMWithError creates a mock LLM that always returns an error.
func NewMockLLMWithError(err error) *MockLLM {
	return &MockLLM{Error: err}
}

// Generate returns the configured response or derives a deterministic one.
func (m *MockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	m.LastPrompt = prompt
	m.Calls++

	if m.Error != nil {
		return "", m.Error
	}

	if m.Response != "" {
		return m.Response, nil
	}

	return deriveMockResponse(prompt), nil
}

// deriveMockResponse creates a predictable summary-shaped response from
// the prompt: it echoes the query line and cites each numbered excerpt.
func deriveMockResponse(prompt string) string {
	var b strings.Builder

	query := "the question"
	if idx := strings.Index(prompt, "**Query:**"); idx >= 0 {
		rest := prompt[idx+len("**Query:**"):]
		if line, _, ok := strings.Cut(rest, "\n"); ok {
			query = strings.TrimSpace(line)
		} else {
			query = strings.TrimSpace(rest)
		}
	}

	excerpts := countExcerptHeaders(prompt)

	b.WriteString(fmt.Sprintf("Concerning %s, the sources speak with one voice", query))
	if excerpts > 0 {
		b.WriteString(fmt.Sprintf(" across %d excerpts", excerpts))
		for i := 1; i <= excerpts; i++ {
			b.WriteString(fmt.Sprintf(" [%d]", i))
		}
	}
	b.WriteString(".")

	return b.String()
}

func countExcerptHeaders(prompt string) int {
	count := 0
	for _, line := range strings.Split(prompt, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "## Excerpt [") {
			count++
		}
	}
	return count
}
