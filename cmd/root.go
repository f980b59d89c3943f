package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "catena",
	Short: "Catena - Annotated corpus search tool",
	Long: `Catena searches a corpus of annotated theological texts with two-stage
semantic retrieval.

A vector index supplies candidates by embedding similarity, then a
deterministic re-ranker boosts candidates whose annotations (concepts,
discourse elements, scripture references, named entities) match the
analyzed query. Results can be synthesized into a cited summary.`,
}

// Execute runs the root command
func Execute() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// corpusPathOrDefault resolves the corpus file path from a flag value,
// the CATENA_CORPUS environment variable, or the default, in that order.
func corpusPathOrDefault(path string) string {
	if path != "" {
		return path
	}
	if env := os.Getenv("CATENA_CORPUS"); env != "" {
		return env
	}
	return "corpus.ndjson"
}
