package orchestrator

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/tollelege/catena/internal/analyzer"
	"github.com/tollelege/catena/internal/corpus"
	"github.com/tollelege/catena/internal/llm"
	"github.com/tollelege/catena/internal/rag"
	"github.com/tollelege/catena/internal/summary"
)

// PipelineConfig holds configuration for the corpus search pipeline.
type PipelineConfig struct {
	// CorpusPath locates the annotated corpus NDJSON file
	CorpusPath string

	// EmbedderModel is the model to use for embeddings (e.g., "text-embedding-3-small")
	EmbedderModel string

	// EmbedderDimension is the vector dimension for embeddings
	EmbedderDimension int

	// Retriever holds the two-stage retrieval configuration
	Retriever rag.RetrieverConfig

	// Analyzer holds the query analysis configuration
	Analyzer analyzer.Config

	// AnalysisLLM configures the model behind query analysis
	AnalysisLLM llm.Config

	// SummaryLLM configures the model behind summary generation
	SummaryLLM llm.Config

	// Milvus holds the vector index configuration
	Milvus rag.MilvusConfig
}

// DefaultPipelineConfig returns sensible defaults for the pipeline.
func DefaultPipelineConfig() PipelineConfig {
	corpusPath := os.Getenv("CATENA_CORPUS")
	if corpusPath == "" {
		corpusPath = "corpus.ndjson"
	}

	return PipelineConfig{
		CorpusPath:        corpusPath,
		EmbedderModel:     rag.DefaultEmbeddingModel,
		EmbedderDimension: rag.DefaultEmbeddingDimension,
		Retriever:         rag.DefaultRetrieverConfig(),
		Analyzer:          analyzer.DefaultConfig(),
		AnalysisLLM:       llm.DefaultAnalysisConfig(),
		SummaryLLM:        llm.DefaultSummaryConfig(),
		Milvus:            rag.DefaultMilvusConfig(),
	}
}

// Pipeline orchestrates end-to-end corpus search: corpus loading,
// indexing, two-stage retrieval, and summary generation.
type Pipeline struct {
	config    PipelineConfig
	store     *corpus.Store
	embedder  rag.Embedder
	index     rag.VectorIndex
	analyzer  rag.QueryAnalyzer
	retriever *rag.Retriever
	generator *summary.Generator
}

// NewPipeline loads the corpus and wires up all pipeline components.
func NewPipeline(ctx context.Context, config PipelineConfig) (*Pipeline, error) {
	// Load corpus into the in-memory store
	chunks, _, err := corpus.LoadChunks(config.CorpusPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}
	store := corpus.NewStore(chunks)

	// Initialize embedder
	embedder, err := rag.NewOpenAIEmbedder(config.EmbedderModel, config.EmbedderDimension)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	// Initialize vector index
	index, err := rag.NewMilvusIndex(ctx, config.Milvus)
	if err != nil {
		return nil, fmt.Errorf("failed to create vector index: %w", err)
	}

	// Initialize query analyzer
	analysisLLM, err := llm.NewOpenAILLM(config.AnalysisLLM)
	if err != nil {
		index.Close()
		return nil, fmt.Errorf("failed to create analysis LLM: %w", err)
	}
	qa, err := analyzer.NewAnalyzer(analysisLLM, config.Analyzer)
	if err != nil {
		index.Close()
		return nil, fmt.Errorf("failed to create analyzer: %w", err)
	}

	// Initialize retriever
	retriever, err := rag.NewRetriever(embedder, index, store, qa, config.Retriever)
	if err != nil {
		index.Close()
		return nil, fmt.Errorf("failed to create retriever: %w", err)
	}

	// Initialize summary generator
	summaryLLM, err := llm.NewOpenAILLM(config.SummaryLLM)
	if err != nil {
		index.Close()
		return nil, fmt.Errorf("failed to create summary LLM: %w", err)
	}
	generator := summary.NewGenerator(summaryLLM, config.SummaryLLM)

	log.Printf("[Pipeline] Ready: %d chunks across %d sources", store.Len(), len(store.Sources()))

	return &Pipeline{
		config:    config,
		store:     store,
		embedder:  embedder,
		index:     index,
		analyzer:  qa,
		retriever: retriever,
		generator: generator,
	}, nil
}

// Store exposes the loaded corpus for vocabulary and source listings.
func (p *Pipeline) Store() *corpus.Store {
	return p.store
}

// Close releases resources held by the pipeline.
func (p *Pipeline) Close() error {
	if p.index != nil {
		return p.index.Close()
	}
	return nil
}

// Analyze extracts structured search intent from a query without
// running retrieval. Useful for inspecting what the re-ranker would
// boost.
func (p *Pipeline) Analyze(ctx context.Context, query string) *analyzer.Analysis {
	return p.analyzer.Analyze(ctx, query, p.store.Vocabularies())
}

// Search runs the two-stage retrieval for a query, optionally
// restricted to the named sources.
func (p *Pipeline) Search(ctx context.Context, query string, sources []string) (*rag.Result, error) {
	log.Printf("[Pipeline] Searching: %q", query)

	var opts *rag.SearchOptions
	if len(sources) > 0 {
		opts = &rag.SearchOptions{Sources: sources}
		log.Printf("[Pipeline] Restricting search to sources: %v", sources)
	}

	result, err := p.retriever.Search(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}

	log.Printf("[Pipeline] Retrieved %d chunks (%d candidates considered)",
		len(result.Chunks), result.CandidateCount)
	return result, nil
}

// SearchAndSummarize runs retrieval and then synthesizes a cited
// summary from the results. A summary failure never discards the
// retrieval results: the summary comes back nil and the failure is
// logged.
func (p *Pipeline) SearchAndSummarize(ctx context.Context, query string, sources []string) (*rag.Result, *summary.Summary, error) {
	result, err := p.Search(ctx, query, sources)
	if err != nil {
		return nil, nil, err
	}

	if len(result.Chunks) == 0 {
		log.Printf("[Pipeline] No chunks retrieved, skipping summary")
		return result, nil, nil
	}

	log.Printf("[Pipeline] Stage 3: generating summary from %d excerpts", len(result.Chunks))
	sum, err := p.generator.Generate(ctx, query, result.Chunks)
	if err != nil {
		log.Printf("[Pipeline] Warning: summary generation failed: %v", err)
		return result, nil, nil
	}

	log.Printf("[Pipeline] Generated summary (%d characters, %d citations)",
		len(sum.Text), len(sum.Citations))
	return result, sum, nil
}

// IndexCorpus populates the vector index from the loaded corpus. With
// force set, existing entries are deleted and rewritten.
func (p *Pipeline) IndexCorpus(ctx context.Context, force bool) (*rag.IndexStats, error) {
	chunks := p.store.All()
	log.Printf("[Pipeline] Indexing %d chunks", len(chunks))

	opts := rag.DefaultIndexOptions()
	opts.ForceReindex = force
	opts.SkipExisting = !force

	stats, err := rag.IndexChunks(ctx, chunks, p.index, opts)
	if err != nil {
		return stats, fmt.Errorf("failed to index corpus: %w", err)
	}
	return stats, nil
}

// Validate reports annotation invariant violations across the corpus.
func (p *Pipeline) Validate() []corpus.Violation {
	return corpus.ValidateChunks(p.store.All())
}

// Sources lists the corpus sources with their chunk counts.
func (p *Pipeline) Sources() []corpus.Source {
	return p.store.Sources()
}
