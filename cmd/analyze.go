package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/tollelege/catena/internal/analyzer"
	"github.com/tollelege/catena/internal/corpus"
	"github.com/tollelege/catena/internal/llm"
)

var (
	analyzeCorpusPath string
	analyzeJSON       bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [query]",
	Short: "Analyze a query and display the extracted search intent",
	Long: `Analyze a query without running retrieval, showing how it would be
interpreted: the query type plus the concept, discourse, scripture,
and entity filters re-ranking would boost.

Every suggested filter is validated against the corpus vocabularies,
so the output only contains values that can actually affect ranking.

Requires OPENAI_API_KEY. Does not need a running vector index.

Examples:
  catena analyze "what does Augustine say about memory"
  catena analyze "justification by faith in Romans 3" --json`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVar(&analyzeCorpusPath, "corpus", "", "Path to the corpus NDJSON file (default: $CATENA_CORPUS or corpus.ndjson)")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Print the analysis as JSON")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	query := args[0]
	ctx := context.Background()

	if os.Getenv("OPENAI_API_KEY") == "" {
		return fmt.Errorf("OPENAI_API_KEY environment variable is required")
	}

	// The analyzer validates suggestions against the corpus vocabularies,
	// so the corpus has to be loaded even though no retrieval runs.
	path := corpusPathOrDefault(analyzeCorpusPath)
	chunks, _, err := corpus.LoadChunks(path)
	if err != nil {
		return fmt.Errorf("failed to load corpus: %w", err)
	}
	store := corpus.NewStore(chunks)

	model, err := llm.NewOpenAILLM(llm.DefaultAnalysisConfig())
	if err != nil {
		return fmt.Errorf("failed to create analysis LLM: %w", err)
	}
	qa, err := analyzer.NewAnalyzer(model, analyzer.DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to create analyzer: %w", err)
	}

	analysis := qa.Analyze(ctx, query, store.Vocabularies())

	if analyzeJSON {
		data, err := json.MarshalIndent(analysis, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode analysis: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	printAnalysisReport(query, analysis)
	return nil
}

func printAnalysisReport(query string, analysis *analyzer.Analysis) {
	var (
		headerColor = lipgloss.Color("#F780FF") // Bright pink
		queryColor  = lipgloss.Color("#8BE9FD") // Cyan
		labelColor  = lipgloss.Color("#BD93F9") // Purple
		valueColor  = lipgloss.Color("#E9E9F4") // Light purple/white
		mutedColor  = lipgloss.Color("#6272A4") // Muted purple
	)

	headerStyle := lipgloss.NewStyle().
		Foreground(headerColor).
		Bold(true)

	queryStyle := lipgloss.NewStyle().
		Foreground(queryColor).
		Italic(true)

	labelStyle := lipgloss.NewStyle().
		Foreground(labelColor).
		Bold(true).
		Width(22)

	valueStyle := lipgloss.NewStyle().
		Foreground(valueColor)

	mutedStyle := lipgloss.NewStyle().
		Foreground(mutedColor).
		Italic(true)

	fmt.Println()
	fmt.Println(headerStyle.Render("Query:"))
	fmt.Println(queryStyle.Render(query))
	fmt.Println()

	fmt.Printf("%s %s\n", labelStyle.Render("Query type"), valueStyle.Render(string(analysis.QueryType)))
	if analysis.SearchStrategy != "" {
		fmt.Printf("%s %s\n", labelStyle.Render("Strategy"), valueStyle.Render(analysis.SearchStrategy))
	}

	f := analysis.SuggestedFilters
	printFilterLine(labelStyle, valueStyle, "Concepts", f.Concepts)
	printFilterLine(labelStyle, valueStyle, "Discourse elements", f.DiscourseElements)
	printFilterLine(labelStyle, valueStyle, "Scripture references", f.ScriptureReferences)
	printFilterLine(labelStyle, valueStyle, "Named entities", f.NamedEntities)
	printFilterLine(labelStyle, valueStyle, "Sources", f.Sources)
	printFilterLine(labelStyle, valueStyle, "Authors", f.Authors)

	if f.Empty() {
		fmt.Println()
		fmt.Println(mutedStyle.Render("No filters suggested: ranking would use vector similarity only"))
	}
	fmt.Println()
}

func printFilterLine(labelStyle, valueStyle lipgloss.Style, label string, values []string) {
	if len(values) == 0 {
		return
	}
	fmt.Printf("%s %s\n", labelStyle.Render(label), valueStyle.Render(strings.Join(values, ", ")))
}
