package summary

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/tollelege/catena/internal/llm"
	"github.com/tollelege/catena/internal/rag"
)

var (
	ErrSummaryFailed = errors.New("summary generation failed")
)

// Citation ties an inline citation number to the excerpt it cites.
type Citation struct {
	// Number is the citation index as it appears in the final text
	Number int `json:"number"`

	// ChunkID identifies the cited chunk
	ChunkID string `json:"chunk_id"`

	// Source is the work the chunk comes from
	Source string `json:"source"`

	// Author is the attributed author, if known
	Author string `json:"author,omitempty"`

	// StructurePath locates the chunk within the work
	StructurePath string `json:"structure_path,omitempty"`
}

// Summary represents a generated answer grounded in retrieved excerpts.
type Summary struct {
	// Query is the question the summary answers
	Query string `json:"query"`

	// Text is the generated summary with renumbered citations
	Text string `json:"text"`

	// Citations lists cited excerpts in citation order. Excerpts the
	// model never cited are absent.
	Citations []Citation `json:"citations"`

	// GeneratedAt is when this summary was created
	GeneratedAt time.Time `json:"generated_at"`

	// Model is the LLM model used to generate this summary
	Model string `json:"model"`

	// Elapsed is the wall-clock generation time
	Elapsed time.Duration `json:"elapsed"`
}

// Generator produces grounded summaries from scored excerpts using an
// LLM. It owns prompt construction and citation cleanup; retrieval
// happens upstream.
type Generator struct {
	llm    llm.LLM
	config llm.Config
}

// NewGenerator creates a summary generator with the given LLM implementation.
func NewGenerator(model llm.LLM, config llm.Config) *Generator {
	return &Generator{
		llm:    model,
		config: config,
	}
}

// Generate answers the query from the scored excerpts. The model is
// instructed to cite excerpts inline as [n]; afterwards citations are
// renumbered in order of first appearance and resolved back to their
// chunks. Citations pointing at no excerpt are kept in the text but
// dropped from the citation list.
func (g *Generator) Generate(ctx context.Context, query string, scored []rag.ScoredChunk) (*Summary, error) {
	if g.llm == nil {
		return nil, fmt.Errorf("%w: LLM is required", ErrSummaryFailed)
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is required", ErrSummaryFailed)
	}
	if len(scored) == 0 {
		return nil, fmt.Errorf("%w: no excerpts provided", ErrSummaryFailed)
	}

	start := time.Now()

	excerpts := orderExcerpts(scored)
	prompt := buildSummaryPrompt(query, excerpts)

	text, err := g.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: LLM invocation failed: %w", ErrSummaryFailed, err)
	}

	renumbered, order := RenumberCitations(text)

	citations := make([]Citation, 0, len(order))
	for i, oldNum := range order {
		if oldNum < 1 || oldNum > len(excerpts) {
			log.Printf("[Summary] Citation [%d] does not match any excerpt, leaving it unresolved", oldNum)
			continue
		}
		chunk := excerpts[oldNum-1].Chunk
		citations = append(citations, Citation{
			Number:        i + 1,
			ChunkID:       chunk.ID,
			Source:        chunk.Source,
			Author:        chunk.Author,
			StructurePath: chunk.Metadata.StructurePath,
		})
	}

	return &Summary{
		Query:       query,
		Text:        renumbered,
		Citations:   citations,
		GeneratedAt: time.Now(),
		Model:       g.config.Model,
		Elapsed:     time.Since(start),
	}, nil
}
