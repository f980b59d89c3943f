package summary

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tollelege/catena/internal/rag"
)

// maxExcerptChars bounds per-excerpt text in the prompt. Chunks run
// long; the model needs the substance, not the whole passage.
const maxExcerptChars = 1200

// orderExcerpts returns the excerpts sorted by final score (highest
// first), even if already sorted. Prompt numbering depends on this
// order staying put.
func orderExcerpts(scored []rag.ScoredChunk) []rag.ScoredChunk {
	sorted := make([]rag.ScoredChunk, len(scored))
	copy(sorted, scored)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].FinalScore > sorted[j].FinalScore })
	return sorted
}

func buildSummaryPrompt(query string, excerpts []rag.ScoredChunk) string {
	var b strings.Builder

	b.WriteString("You are a research assistant for a theological library. ")
	b.WriteString("Your task is to answer the reader's question using only the excerpts ")
	b.WriteString("provided below, citing each claim back to its excerpt.\n\n")

	b.WriteString("# Question\n\n")
	b.WriteString(fmt.Sprintf("**Query:** %s\n\n", query))

	b.WriteString("# Excerpts\n\n")
	for i, sc := range excerpts {
		b.WriteString(fmt.Sprintf("## Excerpt [%d]\n", i+1))

		attribution := sc.Chunk.Source
		if sc.Chunk.Author != "" {
			attribution = fmt.Sprintf("%s (%s)", sc.Chunk.Source, sc.Chunk.Author)
		}
		b.WriteString(fmt.Sprintf("**Source:** %s\n", attribution))

		if sc.Chunk.Metadata.StructurePath != "" {
			b.WriteString(fmt.Sprintf("**Section:** %s\n", sc.Chunk.Metadata.StructurePath))
		}

		text := sc.Chunk.Text
		if len(text) > maxExcerptChars {
			text = text[:maxExcerptChars] + "..."
		}
		b.WriteString(fmt.Sprintf("\n%s\n\n", text))
	}

	b.WriteString("# Task\n\n")
	b.WriteString("Write an answer (2-4 paragraphs) that:\n")
	b.WriteString("1. Directly addresses the question\n")
	b.WriteString("2. Synthesizes the excerpts rather than paraphrasing them one by one\n")
	b.WriteString("3. Notes where the excerpts disagree or speak past each other\n")
	b.WriteString("4. Acknowledges what the excerpts leave unanswered\n\n")
	b.WriteString("Cite every claim with the excerpt number in square brackets, like [1] or [3]. ")
	b.WriteString("A sentence may carry multiple citations. ")
	b.WriteString("Base all statements strictly on the excerpts; do not bring in outside doctrine or speculation. ")
	b.WriteString("If the excerpts do not answer the question, say so plainly.\n")

	return b.String()
}
