package rag

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/tollelege/catena/internal/analyzer"
	"github.com/tollelege/catena/internal/corpus"
)

// Common errors for retrieval operations
var (
	ErrEmbedFailed = errors.New("query embedding failed")
	ErrIndexFailed = errors.New("vector index search failed")
)

// RetrieverConfig holds tuning knobs for the two-stage pipeline.
type RetrieverConfig struct {
	// CandidateK is the stage-1 pool size fetched from the vector index
	CandidateK int

	// TopN is the final result count after re-ranking
	TopN int

	// EmbedTimeout bounds the query embedding call. Embedding is
	// mandatory: on timeout the request fails.
	EmbedTimeout time.Duration

	// AnalyzeTimeout bounds the query analysis call. Analysis is
	// advisory: on timeout retrieval continues without filters.
	AnalyzeTimeout time.Duration
}

// DefaultRetrieverConfig returns the standard pipeline configuration.
func DefaultRetrieverConfig() RetrieverConfig {
	return RetrieverConfig{
		CandidateK:     100,
		TopN:           15,
		EmbedTimeout:   15 * time.Second,
		AnalyzeTimeout: 20 * time.Second,
	}
}

// QueryAnalyzer is the intent-extraction collaborator. Implementations
// must degrade internally: Analyze returns a usable analysis even when
// the underlying model is unavailable.
type QueryAnalyzer interface {
	Analyze(ctx context.Context, query string, vocab *corpus.Vocabularies) *analyzer.Analysis
}

// Retriever runs the two-stage pipeline. It holds no per-request state
// and is safe for concurrent use.
type Retriever struct {
	embedder Embedder
	index    VectorIndex
	store    *corpus.Store
	analyzer QueryAnalyzer
	config   RetrieverConfig
}

// NewRetriever creates a Retriever over the given collaborators.
func NewRetriever(embedder Embedder, index VectorIndex, store *corpus.Store, qa QueryAnalyzer, config RetrieverConfig) (*Retriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder cannot be nil")
	}
	if index == nil {
		return nil, fmt.Errorf("vector index cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("corpus store cannot be nil")
	}
	if qa == nil {
		return nil, fmt.Errorf("query analyzer cannot be nil")
	}
	if config.CandidateK <= 0 || config.TopN <= 0 {
		return nil, fmt.Errorf("candidateK and topN must be positive, got %d and %d", config.CandidateK, config.TopN)
	}

	return &Retriever{
		embedder: embedder,
		index:    index,
		store:    store,
		analyzer: qa,
		config:   config,
	}, nil
}

type embedOutcome struct {
	vector []float32
	err    error
}

// Search answers a query with re-ranked chunks. Embedding and analysis
// run concurrently; an embedding failure aborts the request, an
// analysis failure silently degrades to vector-only ranking. A vector
// index failure is fatal: the caller never receives an empty result
// masquerading as success.
func (r *Retriever) Search(ctx context.Context, query string, opts *SearchOptions) (*Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}

	start := time.Now()

	embedCh := make(chan embedOutcome, 1)
	analysisCh := make(chan *analyzer.Analysis, 1)

	go func() {
		ectx, cancel := context.WithTimeout(ctx, r.config.EmbedTimeout)
		defer cancel()
		records, err := r.embedder.Embed(ectx, []string{query})
		if err != nil {
			embedCh <- embedOutcome{err: err}
			return
		}
		if len(records) == 0 {
			embedCh <- embedOutcome{err: fmt.Errorf("no embedding returned")}
			return
		}
		embedCh <- embedOutcome{vector: records[0].Embedding}
	}()

	go func() {
		actx, cancel := context.WithTimeout(ctx, r.config.AnalyzeTimeout)
		defer cancel()
		analysisCh <- r.analyzer.Analyze(actx, query, r.store.Vocabularies())
	}()

	var (
		vector   []float32
		analysis *analyzer.Analysis
	)
	for i := 0; i < 2; i++ {
		select {
		case outcome := <-embedCh:
			if outcome.err != nil {
				return nil, fmt.Errorf("%w: %v", ErrEmbedFailed, outcome.err)
			}
			vector = outcome.vector
		case analysis = <-analysisCh:
		}
	}
	if analysis == nil {
		analysis = analyzer.DefaultAnalysis()
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.Printf("[Retriever] Stage 1: fetching top-%d candidates (query type: %s)",
		r.config.CandidateK, analysis.QueryType)

	candidates, err := r.index.Search(ctx, vector, r.config.CandidateK, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexFailed, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.Printf("[Retriever] Stage 2: re-ranking %d candidates", len(candidates))

	scored, skipped := r.rerank(candidates, analysis)
	if len(scored) > r.config.TopN {
		scored = scored[:r.config.TopN]
	}

	return &Result{
		Query:             query,
		Analysis:          analysis,
		Chunks:            scored,
		CandidateCount:    len(candidates),
		SkippedCandidates: skipped,
		Elapsed:           time.Since(start),
	}, nil
}

// rerank resolves candidates against the corpus, converts distances to
// similarities, applies the metadata boost, and sorts by final score.
// The sort is stable: ties keep their stage-1 vector order. Candidates
// whose ID is unknown to the corpus are skipped and counted; the index
// and corpus can drift between reindex runs.
func (r *Retriever) rerank(candidates []Candidate, analysis *analyzer.Analysis) ([]ScoredChunk, int) {
	metric := r.index.Metric()
	scored := make([]ScoredChunk, 0, len(candidates))
	skipped := 0
	clamped := 0

	for _, cand := range candidates {
		chunk, ok := r.store.GetByID(cand.ChunkID)
		if !ok {
			skipped++
			log.Printf("[Retriever] Candidate %q not found in corpus, skipping", cand.ChunkID)
			continue
		}

		similarity, inRange := similarityFromDistance(metric, float64(cand.Distance))
		if !inRange {
			clamped++
		}

		boost := MetadataBoost(&chunk.Metadata, &analysis.SuggestedFilters, analysis.QueryType)

		scored = append(scored, ScoredChunk{
			Chunk:           chunk,
			SimilarityScore: similarity,
			MetadataBoost:   boost,
			FinalScore:      similarity + boost,
		})
	}

	if clamped > 0 {
		log.Printf("[Retriever] WARNING: clamped %d similarity values outside [0,1]; verify the index metric (%s)",
			clamped, metric)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].FinalScore > scored[j].FinalScore
	})

	return scored, skipped
}

// similarityFromDistance converts a raw index distance into a [0,1]
// similarity. Cosine distance converts as 1-d. Milvus reports L2 as
// squared distance; over unit-normalized embeddings ||a-b||^2 equals
// 2-2cos, so 1-d/2 recovers the cosine similarity. The boolean reports
// whether the value was already in range before clamping.
func similarityFromDistance(metric string, distance float64) (float64, bool) {
	var similarity float64
	switch metric {
	case MetricL2:
		similarity = 1 - distance/2
	default:
		similarity = 1 - distance
	}

	inRange := similarity >= 0 && similarity <= 1
	if similarity < 0 {
		similarity = 0
	}
	if similarity > 1 {
		similarity = 1
	}
	return similarity, inRange
}
