package orchestrator

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/tollelege/catena/internal/analyzer"
	"github.com/tollelege/catena/internal/corpus"
	"github.com/tollelege/catena/internal/llm"
	"github.com/tollelege/catena/internal/rag"
	"github.com/tollelege/catena/internal/summary"
)

// pipelineEmbedder is a fixed-vector embedder for pipeline tests
type pipelineEmbedder struct{}

func (e *pipelineEmbedder) Embed(ctx context.Context, texts []string) ([]rag.EmbeddingRecord, error) {
	records := make([]rag.EmbeddingRecord, len(texts))
	for i, text := range texts {
		records[i] = rag.EmbeddingRecord{Text: text, Embedding: []float32{1, 0, 0}, Index: i, Model: "mock"}
	}
	return records, nil
}

func (e *pipelineEmbedder) GetModel() string { return "mock" }

func (e *pipelineEmbedder) GetDimension() int { return 3 }

// pipelineIndex is an in-memory vector index for pipeline tests
type pipelineIndex struct {
	mu         sync.Mutex
	candidates []rag.Candidate
	searchErr  error
	inserted   int
	deleted    int
	flushed    int
	gotSources []string
}

func (m *pipelineIndex) Search(ctx context.Context, queryVector []float32, topK int, opts *rag.SearchOptions) ([]rag.Candidate, error) {
	if opts != nil {
		m.gotSources = opts.Sources
	}
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.candidates, nil
}

func (m *pipelineIndex) Metric() string { return rag.MetricCosine }

func (m *pipelineIndex) Insert(ctx context.Context, chunks []corpus.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserted += len(chunks)
	return nil
}

func (m *pipelineIndex) Flush(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushed++
	return nil
}

func (m *pipelineIndex) Exists(ctx context.Context, chunkIDs []string) (map[string]bool, error) {
	result := make(map[string]bool, len(chunkIDs))
	for _, id := range chunkIDs {
		result[id] = false
	}
	return result, nil
}

func (m *pipelineIndex) Delete(ctx context.Context, chunkIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted += len(chunkIDs)
	return nil
}

func (m *pipelineIndex) GetStats(ctx context.Context) (map[string]interface{}, error) {
	return map[string]interface{}{"row_count": m.inserted}, nil
}

func (m *pipelineIndex) Close() error { return nil }

// fixedAnalyzer returns a canned analysis without an LLM
type fixedAnalyzer struct {
	analysis *analyzer.Analysis
}

func (f *fixedAnalyzer) Analyze(ctx context.Context, query string, vocab *corpus.Vocabularies) *analyzer.Analysis {
	if f.analysis != nil {
		return f.analysis
	}
	return analyzer.DefaultAnalysis()
}

func pipelineStore() *corpus.Store {
	return corpus.NewStore([]corpus.Chunk{
		{
			ID:        "aug-1",
			Text:      "Our heart is restless until it rests in you.",
			Source:    "Confessions",
			Author:    "Augustine",
			Embedding: []float32{1, 0, 0},
			Metadata: corpus.Metadata{
				Concepts: []string{"Rest"},
			},
		},
		{
			ID:        "calvin-1",
			Text:      "True and sound wisdom consists of two parts.",
			Source:    "Institutes",
			Author:    "John Calvin",
			Embedding: []float32{0, 1, 0},
		},
	})
}

func testPipeline(t *testing.T, index rag.VectorIndex, summaryLLM llm.LLM) *Pipeline {
	t.Helper()

	store := pipelineStore()
	embedder := &pipelineEmbedder{}
	qa := &fixedAnalyzer{}
	retriever, err := rag.NewRetriever(embedder, index, store, qa, rag.DefaultRetrieverConfig())
	if err != nil {
		t.Fatalf("Failed to create retriever: %v", err)
	}

	return &Pipeline{
		config:    DefaultPipelineConfig(),
		store:     store,
		embedder:  embedder,
		index:     index,
		analyzer:  qa,
		retriever: retriever,
		generator: summary.NewGenerator(summaryLLM, llm.DefaultSummaryConfig()),
	}
}

func TestDefaultPipelineConfig(t *testing.T) {
	original := os.Getenv("CATENA_CORPUS")
	defer os.Setenv("CATENA_CORPUS", original)

	t.Run("Defaults", func(t *testing.T) {
		os.Unsetenv("CATENA_CORPUS")
		config := DefaultPipelineConfig()

		if config.CorpusPath != "corpus.ndjson" {
			t.Errorf("Expected default corpus path corpus.ndjson, got %s", config.CorpusPath)
		}
		if config.EmbedderModel != rag.DefaultEmbeddingModel {
			t.Errorf("Expected embedder model %s, got %s", rag.DefaultEmbeddingModel, config.EmbedderModel)
		}
		if config.EmbedderDimension != rag.DefaultEmbeddingDimension {
			t.Errorf("Expected dimension %d, got %d", rag.DefaultEmbeddingDimension, config.EmbedderDimension)
		}
		if config.Retriever.CandidateK != 100 || config.Retriever.TopN != 15 {
			t.Errorf("Expected retriever defaults 100/15, got %d/%d",
				config.Retriever.CandidateK, config.Retriever.TopN)
		}
	})

	t.Run("Env override", func(t *testing.T) {
		os.Setenv("CATENA_CORPUS", "/data/chunks.ndjson")
		config := DefaultPipelineConfig()
		if config.CorpusPath != "/data/chunks.ndjson" {
			t.Errorf("Expected env corpus path, got %s", config.CorpusPath)
		}
	})
}

func TestPipeline_Search(t *testing.T) {
	index := &pipelineIndex{
		candidates: []rag.Candidate{
			{ChunkID: "aug-1", Distance: 0.1},
			{ChunkID: "calvin-1", Distance: 0.2},
		},
	}
	p := testPipeline(t, index, llm.NewMockLLM("unused"))

	result, err := p.Search(context.Background(), "restless heart", []string{"Confessions"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(result.Chunks) != 2 {
		t.Errorf("Expected 2 chunks, got %d", len(result.Chunks))
	}
	if len(index.gotSources) != 1 || index.gotSources[0] != "Confessions" {
		t.Errorf("Expected source filter to reach the index, got %v", index.gotSources)
	}
}

func TestPipeline_Search_IndexError(t *testing.T) {
	index := &pipelineIndex{searchErr: errors.New("index offline")}
	p := testPipeline(t, index, llm.NewMockLLM("unused"))

	_, err := p.Search(context.Background(), "query", nil)
	if err == nil {
		t.Fatal("Expected error when the index fails")
	}
	if !errors.Is(err, rag.ErrIndexFailed) {
		t.Errorf("Expected ErrIndexFailed, got: %v", err)
	}
}

func TestPipeline_SearchAndSummarize(t *testing.T) {
	index := &pipelineIndex{
		candidates: []rag.Candidate{
			{ChunkID: "aug-1", Distance: 0.1},
			{ChunkID: "calvin-1", Distance: 0.2},
		},
	}
	p := testPipeline(t, index, llm.NewMockLLM("Augustine speaks of rest [1]."))

	result, sum, err := p.SearchAndSummarize(context.Background(), "what is rest", nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if result == nil || len(result.Chunks) != 2 {
		t.Fatal("Expected retrieval results alongside the summary")
	}
	if sum == nil {
		t.Fatal("Expected a summary")
	}
	if len(sum.Citations) != 1 {
		t.Errorf("Expected 1 citation, got %d", len(sum.Citations))
	}
	if sum.Citations[0].ChunkID != "aug-1" {
		t.Errorf("Expected citation for aug-1, got %s", sum.Citations[0].ChunkID)
	}
}

func TestPipeline_SearchAndSummarize_SummaryFailureKeepsResults(t *testing.T) {
	index := &pipelineIndex{
		candidates: []rag.Candidate{{ChunkID: "aug-1", Distance: 0.1}},
	}
	p := testPipeline(t, index, llm.NewMockLLMWithError(errors.New("model down")))

	result, sum, err := p.SearchAndSummarize(context.Background(), "what is rest", nil)
	if err != nil {
		t.Fatalf("Expected no error when only the summary fails, got: %v", err)
	}
	if result == nil || len(result.Chunks) != 1 {
		t.Fatal("Expected retrieval results despite the summary failure")
	}
	if sum != nil {
		t.Error("Expected nil summary after generation failure")
	}
}

func TestPipeline_SearchAndSummarize_NoResults(t *testing.T) {
	summaryLLM := llm.NewMockLLM("should never be called")
	p := testPipeline(t, &pipelineIndex{}, summaryLLM)

	result, sum, err := p.SearchAndSummarize(context.Background(), "obscure query", nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(result.Chunks) != 0 {
		t.Errorf("Expected no chunks, got %d", len(result.Chunks))
	}
	if sum != nil {
		t.Error("Expected no summary without results")
	}
	if summaryLLM.Calls != 0 {
		t.Errorf("Expected summary LLM to stay idle, got %d calls", summaryLLM.Calls)
	}
}

func TestPipeline_IndexCorpus(t *testing.T) {
	t.Run("Fresh index", func(t *testing.T) {
		index := &pipelineIndex{}
		p := testPipeline(t, index, llm.NewMockLLM("unused"))

		stats, err := p.IndexCorpus(context.Background(), false)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if stats.Indexed != 2 {
			t.Errorf("Expected 2 indexed, got %d", stats.Indexed)
		}
		if index.deleted != 0 {
			t.Errorf("Expected no deletes without force, got %d", index.deleted)
		}
	})

	t.Run("Force reindex", func(t *testing.T) {
		index := &pipelineIndex{}
		p := testPipeline(t, index, llm.NewMockLLM("unused"))

		stats, err := p.IndexCorpus(context.Background(), true)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if stats.Indexed != 2 {
			t.Errorf("Expected 2 indexed, got %d", stats.Indexed)
		}
		if index.deleted != 2 {
			t.Errorf("Expected 2 deletes under force, got %d", index.deleted)
		}
	})
}

func TestPipeline_Validate(t *testing.T) {
	store := corpus.NewStore([]corpus.Chunk{
		{
			ID:        "bad-1",
			Text:      "text",
			Source:    "Fragments",
			Embedding: []float32{1, 0, 0},
			Metadata: corpus.Metadata{
				Concepts: []string{"Faith"},
				Topics:   []string{"Grace/Irresistible"},
			},
		},
	})
	p := &Pipeline{store: store}

	violations := p.Validate()
	if len(violations) != 1 {
		t.Fatalf("Expected 1 violation, got %d", len(violations))
	}
	if violations[0].ChunkID != "bad-1" || violations[0].Field != "topics" {
		t.Errorf("Unexpected violation: %+v", violations[0])
	}
}

func TestPipeline_Analyze(t *testing.T) {
	index := &pipelineIndex{}
	p := testPipeline(t, index, llm.NewMockLLM("unused"))
	p.analyzer = &fixedAnalyzer{analysis: &analyzer.Analysis{
		QueryType:        analyzer.QueryDoctrinal,
		SuggestedFilters: analyzer.Filters{Concepts: []string{"Rest"}},
	}}

	analysis := p.Analyze(context.Background(), "what is rest in God")
	if analysis.QueryType != analyzer.QueryDoctrinal {
		t.Errorf("Expected doctrinal query type, got %s", analysis.QueryType)
	}
	if len(analysis.SuggestedFilters.Concepts) != 1 {
		t.Errorf("Expected 1 concept filter, got %d", len(analysis.SuggestedFilters.Concepts))
	}
}

func TestPipeline_Sources(t *testing.T) {
	p := testPipeline(t, &pipelineIndex{}, llm.NewMockLLM("unused"))

	sources := p.Sources()
	if len(sources) != 2 {
		t.Fatalf("Expected 2 sources, got %d", len(sources))
	}
	// Sorted by name
	if sources[0].Name != "Confessions" || sources[1].Name != "Institutes" {
		t.Errorf("Unexpected source order: %s, %s", sources[0].Name, sources[1].Name)
	}
}
