package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/tollelege/catena/internal/mcp"
	"github.com/tollelege/catena/internal/orchestrator"
)

var serveCorpusPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the corpus as MCP tools over stdio",
	Long: `Run a Model Context Protocol server over stdio, exposing the corpus to
LLM clients as tools: search_corpus, list_sources, and analyze_query.

Stdout carries the protocol stream, so all logging goes to stderr.

Required environment variables:
  OPENAI_API_KEY     - OpenAI API key for embeddings and LLM
  MILVUS_ADDRESS     - Milvus server address (default: localhost:19530)

Example client registration (Claude Desktop, Cursor, etc.):
  { "command": "catena", "args": ["serve"] }`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveCorpusPath, "corpus", "", "Path to the corpus NDJSON file (default: $CATENA_CORPUS or corpus.ndjson)")
}

func runServe(cmd *cobra.Command, args []string) error {
	// Protocol framing shares stdout with anything printed there
	log.SetOutput(os.Stderr)

	ctx := context.Background()

	if os.Getenv("OPENAI_API_KEY") == "" {
		return fmt.Errorf("OPENAI_API_KEY environment variable is required")
	}

	config := orchestrator.DefaultPipelineConfig()
	config.CorpusPath = corpusPathOrDefault(serveCorpusPath)

	pipeline, err := orchestrator.NewPipeline(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipeline.Close()

	server := mcpserver.NewServer(pipeline)
	return server.Run(ctx)
}
