package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/tollelege/catena/internal/orchestrator"
	"github.com/tollelege/catena/internal/rag"
	"github.com/tollelege/catena/internal/summary"
)

const (
	// excerptPreviewChars caps excerpt text in non-verbose output
	excerptPreviewChars = 240

	timeRounding = time.Millisecond
)

var (
	searchCorpusPath string
	searchSources    []string
	searchTop        int
	searchCandidates int
	withSummary      bool
	searchJSON       bool
	verbose          bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the corpus with two-stage retrieval",
	Long: `Search the annotated corpus with two-stage semantic retrieval.

This command:
1. Embeds the query and analyzes its intent concurrently
2. Retrieves candidates from the vector index (Milvus)
3. Re-ranks candidates by annotation metadata matching the query
4. Optionally synthesizes a cited summary with an LLM (OpenAI)

Run 'catena index' first to populate the vector index.

Required environment variables:
  OPENAI_API_KEY     - OpenAI API key for embeddings and LLM
  MILVUS_ADDRESS     - Milvus server address (default: localhost:19530)

Examples:
  catena search "what does Augustine say about memory"
  catena search "justification by faith" --sources "Institutes of the Christian Religion"
  catena search "the fall of Rome" --top 5 --summary
  catena search "grace and free will" --json | jq '.chunks[0]'`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVar(&searchCorpusPath, "corpus", "", "Path to the corpus NDJSON file (default: $CATENA_CORPUS or corpus.ndjson)")
	searchCmd.Flags().StringSliceVar(&searchSources, "sources", nil, "Restrict results to these source names")
	searchCmd.Flags().IntVar(&searchTop, "top", 15, "Number of results to return after re-ranking")
	searchCmd.Flags().IntVar(&searchCandidates, "candidates", 100, "Number of vector candidates to re-rank")
	searchCmd.Flags().BoolVar(&withSummary, "summary", false, "Generate a cited summary of the results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Print the raw result as JSON")
	searchCmd.Flags().BoolVar(&verbose, "verbose", false, "Show detailed progress and query analysis")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]
	ctx := context.Background()

	if os.Getenv("OPENAI_API_KEY") == "" {
		return fmt.Errorf("OPENAI_API_KEY environment variable is required")
	}

	// Styling
	var (
		headerColor  = lipgloss.Color("#F780FF") // Bright pink
		queryColor   = lipgloss.Color("#8BE9FD") // Cyan
		textColor    = lipgloss.Color("#E9E9F4") // Light purple/white
		contextColor = lipgloss.Color("#6272A4") // Muted purple
		errorColor   = lipgloss.Color("#FF5555") // Red
		successColor = lipgloss.Color("#50FA7B") // Green
	)

	headerStyle := lipgloss.NewStyle().
		Foreground(headerColor).
		Bold(true)

	queryStyle := lipgloss.NewStyle().
		Foreground(queryColor).
		Italic(true)

	textStyle := lipgloss.NewStyle().
		Foreground(textColor)

	contextStyle := lipgloss.NewStyle().
		Foreground(contextColor).
		Italic(true)

	errorStyle := lipgloss.NewStyle().
		Foreground(errorColor).
		Bold(true)

	successStyle := lipgloss.NewStyle().
		Foreground(successColor)

	config := orchestrator.DefaultPipelineConfig()
	config.CorpusPath = corpusPathOrDefault(searchCorpusPath)
	config.Retriever.TopN = searchTop
	config.Retriever.CandidateK = searchCandidates

	if !searchJSON {
		fmt.Println()
		fmt.Println(headerStyle.Render("Query:"))
		fmt.Println(queryStyle.Render(query))
		fmt.Println()
	}

	if verbose {
		fmt.Println(contextStyle.Render("→ Loading corpus and connecting to the vector index..."))
	}
	pipeline, err := orchestrator.NewPipeline(ctx, config)
	if err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}
	defer pipeline.Close()

	if verbose {
		fmt.Println(successStyle.Render("✓ Pipeline initialized"))
		fmt.Println(contextStyle.Render("→ Retrieving and re-ranking..."))
	}

	var (
		result *rag.Result
		sum    *summary.Summary
	)
	if withSummary {
		result, sum, err = pipeline.SearchAndSummarize(ctx, query, searchSources)
	} else {
		result, err = pipeline.Search(ctx, query, searchSources)
	}
	if err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}

	if searchJSON {
		return printSearchJSON(result, sum)
	}

	if verbose {
		fmt.Println(successStyle.Render(fmt.Sprintf("✓ Re-ranked %d candidates in %s",
			result.CandidateCount, result.Elapsed.Round(timeRounding))))
		printAnalysis(result, contextStyle)
	}

	if len(result.Chunks) == 0 {
		fmt.Println(contextStyle.Render("No results found"))
		return nil
	}

	printResultTable(result.Chunks)
	printExcerpts(result.Chunks, textStyle)

	if sum != nil {
		fmt.Println(headerStyle.Render("Summary:"))
		fmt.Println()
		fmt.Println(textStyle.Render(strings.TrimSpace(sum.Text)))
		fmt.Println()
		printCitations(sum, contextStyle)
	} else if withSummary {
		fmt.Println(contextStyle.Render("Summary generation failed, showing retrieval results only"))
	}

	return nil
}

func printSearchJSON(result *rag.Result, sum *summary.Summary) error {
	payload := struct {
		*rag.Result
		Summary *summary.Summary `json:"summary,omitempty"`
	}{Result: result, Summary: sum}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func printAnalysis(result *rag.Result, style lipgloss.Style) {
	if result.Analysis == nil {
		return
	}
	fmt.Println(style.Render(fmt.Sprintf("→ Query type: %s", result.Analysis.QueryType)))

	f := result.Analysis.SuggestedFilters
	if len(f.Concepts) > 0 {
		fmt.Println(style.Render(fmt.Sprintf("→ Boosting concepts: %s", strings.Join(f.Concepts, ", "))))
	}
	if len(f.ScriptureReferences) > 0 {
		fmt.Println(style.Render(fmt.Sprintf("→ Boosting scripture: %s", strings.Join(f.ScriptureReferences, ", "))))
	}
	if len(f.NamedEntities) > 0 {
		fmt.Println(style.Render(fmt.Sprintf("→ Boosting entities: %s", strings.Join(f.NamedEntities, ", "))))
	}
}

func printResultTable(chunks []rag.ScoredChunk) {
	// LipGloss signature purple/pink palette
	var (
		headerColor = lipgloss.Color("#F780FF") // Bright pink/magenta
		rankColor   = lipgloss.Color("#BD93F9") // Purple
		numberColor = lipgloss.Color("#FF79C6") // Pink
		sourceColor = lipgloss.Color("#E9E9F4") // Light purple/white
		borderColor = lipgloss.Color("#6272A4") // Muted purple
	)

	// Column widths
	const (
		rankWidth   = 6
		scoreWidth  = 8
		simWidth    = 8
		boostWidth  = 8
		sourceWidth = 28
		refWidth    = 30
	)

	headerStyle := lipgloss.NewStyle().
		Foreground(headerColor).
		Bold(true).
		Padding(0, 1)

	borderStyle := lipgloss.NewStyle().Foreground(borderColor)

	headers := []string{
		headerStyle.Width(rankWidth).Render("RANK"),
		headerStyle.Width(scoreWidth).Render("SCORE"),
		headerStyle.Width(simWidth).Render("SIM"),
		headerStyle.Width(boostWidth).Render("BOOST"),
		headerStyle.Width(sourceWidth).Render("SOURCE"),
		headerStyle.Width(refWidth).Render("REFERENCE"),
	}
	fmt.Println(strings.Join(headers, borderStyle.Render("│")))

	separatorParts := []string{
		strings.Repeat("─", rankWidth),
		strings.Repeat("─", scoreWidth),
		strings.Repeat("─", simWidth),
		strings.Repeat("─", boostWidth),
		strings.Repeat("─", sourceWidth),
		strings.Repeat("─", refWidth),
	}
	fmt.Println(borderStyle.Render(strings.Join(separatorParts, "┼")))

	rankStyle := lipgloss.NewStyle().
		Foreground(rankColor).
		Padding(0, 1).
		Width(rankWidth).
		Align(lipgloss.Right)

	numStyle := lipgloss.NewStyle().
		Foreground(numberColor).
		Padding(0, 1).
		Align(lipgloss.Right)

	srcStyle := lipgloss.NewStyle().
		Foreground(sourceColor).
		Padding(0, 1)

	for i, sc := range chunks {
		cells := []string{
			rankStyle.Render(fmt.Sprintf("%d", i+1)),
			numStyle.Width(scoreWidth).Render(fmt.Sprintf("%.3f", sc.FinalScore)),
			numStyle.Width(simWidth).Render(fmt.Sprintf("%.3f", sc.SimilarityScore)),
			numStyle.Width(boostWidth).Render(fmt.Sprintf("+%.2f", sc.MetadataBoost)),
			srcStyle.Width(sourceWidth).Render(truncateCell(sc.Chunk.Source, sourceWidth-2)),
			srcStyle.Width(refWidth).Render(truncateCell(sc.Chunk.Metadata.StructurePath, refWidth-2)),
		}
		fmt.Println(strings.Join(cells, borderStyle.Render("│")))
	}
	fmt.Println()
}

func printExcerpts(chunks []rag.ScoredChunk, textStyle lipgloss.Style) {
	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#BD93F9")). // Purple
		Bold(true)

	attrStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6272A4")). // Muted purple
		Italic(true)

	for i, sc := range chunks {
		attribution := sc.Chunk.Source
		if sc.Chunk.Author != "" {
			attribution = fmt.Sprintf("%s (%s)", sc.Chunk.Source, sc.Chunk.Author)
		}
		if path := sc.Chunk.Metadata.StructurePath; path != "" {
			attribution = fmt.Sprintf("%s — %s", attribution, path)
		}

		fmt.Printf("%s %s\n", labelStyle.Render(fmt.Sprintf("[%d]", i+1)), attrStyle.Render(attribution))

		text := strings.TrimSpace(sc.Chunk.Text)
		if !verbose && len(text) > excerptPreviewChars {
			text = text[:excerptPreviewChars] + "..."
		}
		fmt.Println(textStyle.Render(text))
		fmt.Println()
	}
}

func printCitations(sum *summary.Summary, style lipgloss.Style) {
	if len(sum.Citations) == 0 {
		return
	}
	fmt.Println(style.Render("Citations:"))
	for _, c := range sum.Citations {
		ref := c.Source
		if c.StructurePath != "" {
			ref = fmt.Sprintf("%s, %s", c.Source, c.StructurePath)
		}
		fmt.Println(style.Render(fmt.Sprintf("  [%d] %s", c.Number, ref)))
	}
	fmt.Println()
}

// truncateCell trims a string to fit a table column.
func truncateCell(s string, max int) string {
	if max <= 3 || len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
