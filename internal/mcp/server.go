// Package mcp exposes the corpus search pipeline over the Model
// Context Protocol, so LLM clients can call retrieval, query analysis,
// and source listing as tools. The server speaks stdio; anything
// logged must go to stderr or it corrupts the protocol stream.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tollelege/catena/internal/analyzer"
	"github.com/tollelege/catena/internal/corpus"
	"github.com/tollelege/catena/internal/rag"
	"github.com/tollelege/catena/internal/summary"
)

const (
	serverName    = "catena"
	serverVersion = "v0.1.0"
)

// Pipeline is the subset of the search pipeline the tools need.
type Pipeline interface {
	Search(ctx context.Context, query string, sources []string) (*rag.Result, error)
	SearchAndSummarize(ctx context.Context, query string, sources []string) (*rag.Result, *summary.Summary, error)
	Analyze(ctx context.Context, query string) *analyzer.Analysis
	Sources() []corpus.Source
}

// SearchArgs defines the arguments for the search_corpus tool.
type SearchArgs struct {
	Query       string   `json:"query" jsonschema_description:"The question or topic to search the corpus for"`
	Sources     []string `json:"sources,omitempty" jsonschema_description:"Restrict results to these source names (see list_sources)"`
	TopN        int      `json:"top_n,omitempty" jsonschema_description:"Return at most this many results (default 15)"`
	WithSummary bool     `json:"with_summary,omitempty" jsonschema_description:"Also generate a cited summary of the results (slower, invokes an LLM)"`
}

// AnalyzeArgs defines the arguments for the analyze_query tool.
type AnalyzeArgs struct {
	Query string `json:"query" jsonschema_description:"The query to analyze for search intent and metadata filters"`
}

// searchHit is the per-chunk payload returned by search_corpus.
type searchHit struct {
	Rank          int     `json:"rank"`
	ChunkID       string  `json:"chunk_id"`
	Source        string  `json:"source"`
	Author        string  `json:"author,omitempty"`
	StructurePath string  `json:"structure_path,omitempty"`
	Similarity    float64 `json:"similarity"`
	Boost         float64 `json:"boost"`
	Score         float64 `json:"score"`
	Text          string  `json:"text"`
}

type summaryPayload struct {
	Text      string             `json:"text"`
	Citations []summary.Citation `json:"citations"`
}

// searchResponse is the JSON document search_corpus returns.
type searchResponse struct {
	Query      string             `json:"query"`
	QueryType  analyzer.QueryType `json:"query_type,omitempty"`
	Results    []searchHit        `json:"results"`
	Candidates int                `json:"candidates_considered"`
	ElapsedMS  int64              `json:"elapsed_ms"`
	Summary    *summaryPayload    `json:"summary,omitempty"`
}

// Server wraps the pipeline behind MCP tools.
type Server struct {
	pipeline Pipeline
	server   *mcp.Server
}

// NewServer creates the MCP server and registers the corpus tools.
func NewServer(pipeline Pipeline) *Server {
	s := &Server{
		pipeline: pipeline,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    serverName,
			Version: serverVersion,
		}, &mcp.ServerOptions{
			Instructions: "Use search_corpus to retrieve annotated excerpts from the theological corpus; " +
				"set with_summary for a cited synthesis. Use list_sources to see which works are loaded " +
				"and analyze_query to preview how a query will be interpreted.",
		}),
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_corpus",
		Description: "Search the annotated corpus with two-stage retrieval (vector similarity plus metadata re-ranking). Returns ranked excerpts with scores.",
	}, s.SearchCorpus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_sources",
		Description: "List the works in the corpus with author and chunk count.",
	}, s.ListSources)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze_query",
		Description: "Extract search intent from a query: the query type plus the concept, discourse, scripture, and entity filters re-ranking would boost.",
	}, s.AnalyzeQuery)

	return s
}

// Run serves MCP requests over stdio until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	log.Printf("[MCP] Serving %s %s over stdio", serverName, serverVersion)
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// SearchCorpus handles the search_corpus tool call.
func (s *Server) SearchCorpus(ctx context.Context, req *mcp.CallToolRequest, args SearchArgs) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(args.Query) == "" {
		return nil, nil, fmt.Errorf("query is required")
	}

	var (
		result *rag.Result
		sum    *summary.Summary
		err    error
	)
	if args.WithSummary {
		result, sum, err = s.pipeline.SearchAndSummarize(ctx, args.Query, args.Sources)
	} else {
		result, err = s.pipeline.Search(ctx, args.Query, args.Sources)
	}
	if err != nil {
		log.Printf("[MCP] search_corpus failed: %v", err)
		return nil, nil, err
	}

	chunks := result.Chunks
	if args.TopN > 0 && len(chunks) > args.TopN {
		chunks = chunks[:args.TopN]
	}

	resp := searchResponse{
		Query:      result.Query,
		Results:    make([]searchHit, 0, len(chunks)),
		Candidates: result.CandidateCount,
		ElapsedMS:  result.Elapsed.Milliseconds(),
	}
	if result.Analysis != nil {
		resp.QueryType = result.Analysis.QueryType
	}
	for i, sc := range chunks {
		resp.Results = append(resp.Results, searchHit{
			Rank:          i + 1,
			ChunkID:       sc.Chunk.ID,
			Source:        sc.Chunk.Source,
			Author:        sc.Chunk.Author,
			StructurePath: sc.Chunk.Metadata.StructurePath,
			Similarity:    sc.SimilarityScore,
			Boost:         sc.MetadataBoost,
			Score:         sc.FinalScore,
			Text:          sc.Chunk.Text,
		})
	}
	if sum != nil {
		resp.Summary = &summaryPayload{Text: sum.Text, Citations: sum.Citations}
	}

	log.Printf("[MCP] search_corpus: %d results for %q", len(resp.Results), args.Query)
	return jsonResult(resp)
}

// ListSources handles the list_sources tool call.
func (s *Server) ListSources(ctx context.Context, req *mcp.CallToolRequest, args struct{}) (*mcp.CallToolResult, any, error) {
	sources := s.pipeline.Sources()
	return jsonResult(map[string]any{
		"count":   len(sources),
		"sources": sources,
	})
}

// AnalyzeQuery handles the analyze_query tool call.
func (s *Server) AnalyzeQuery(ctx context.Context, req *mcp.CallToolRequest, args AnalyzeArgs) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(args.Query) == "" {
		return nil, nil, fmt.Errorf("query is required")
	}

	analysis := s.pipeline.Analyze(ctx, args.Query)
	return jsonResult(analysis)
}

// jsonResult encodes v as indented JSON in a single text content block.
func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode response: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}
