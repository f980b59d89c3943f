package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/tollelege/catena/internal/orchestrator"
)

var (
	indexCorpusPath string
	forceReindex    bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Populate the vector index from the corpus",
	Long: `Load the corpus and insert chunk embeddings into the vector index (Milvus).

Chunks arrive with precomputed embeddings, so indexing makes no model
calls. Chunks already present in the index are skipped unless --reindex
is set, which deletes and rewrites them.

Required environment variables:
  OPENAI_API_KEY     - OpenAI API key (pipeline construction)
  MILVUS_ADDRESS     - Milvus server address (default: localhost:19530)

Examples:
  catena index
  catena index --corpus data/corpus.ndjson
  catena index --reindex`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().StringVar(&indexCorpusPath, "corpus", "", "Path to the corpus NDJSON file (default: $CATENA_CORPUS or corpus.ndjson)")
	indexCmd.Flags().BoolVar(&forceReindex, "reindex", false, "Delete and rewrite chunks that are already indexed")
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if os.Getenv("OPENAI_API_KEY") == "" {
		return fmt.Errorf("OPENAI_API_KEY environment variable is required")
	}

	var (
		contextColor = lipgloss.Color("#6272A4") // Muted purple
		successColor = lipgloss.Color("#50FA7B") // Green
		errorColor   = lipgloss.Color("#FF5555") // Red
	)

	contextStyle := lipgloss.NewStyle().
		Foreground(contextColor).
		Italic(true)

	successStyle := lipgloss.NewStyle().
		Foreground(successColor)

	errorStyle := lipgloss.NewStyle().
		Foreground(errorColor).
		Bold(true)

	config := orchestrator.DefaultPipelineConfig()
	config.CorpusPath = corpusPathOrDefault(indexCorpusPath)

	fmt.Println(contextStyle.Render(fmt.Sprintf("→ Loading corpus from %s...", config.CorpusPath)))
	pipeline, err := orchestrator.NewPipeline(ctx, config)
	if err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}
	defer pipeline.Close()

	fmt.Println(contextStyle.Render("→ Indexing chunks..."))
	stats, err := pipeline.IndexCorpus(ctx, forceReindex)
	if err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}

	fmt.Println(successStyle.Render(fmt.Sprintf("✓ Indexed %d chunks", stats.Indexed)))
	if stats.AlreadyPresent > 0 {
		fmt.Println(contextStyle.Render(fmt.Sprintf("  %d already present, skipped", stats.AlreadyPresent)))
	}
	if stats.MissingEmbedding > 0 {
		fmt.Println(contextStyle.Render(fmt.Sprintf("  %d skipped for missing embeddings", stats.MissingEmbedding)))
	}

	return nil
}
