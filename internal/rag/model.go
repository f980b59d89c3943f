// Package rag implements two-stage retrieval over the chunk corpus: an
// approximate nearest-neighbor vector index supplies a wide candidate
// pool, then a deterministic metadata boost re-ranks the pool against
// the analyzed query before truncation to the final result set.
package rag

import (
	"context"
	"time"

	"github.com/tollelege/catena/internal/analyzer"
	"github.com/tollelege/catena/internal/corpus"
)

// Similarity metrics a vector index may report.
const (
	MetricCosine = "COSINE"
	MetricL2     = "L2"
)

// Candidate is a single stage-1 hit: a chunk identity and its raw
// distance under the index's metric. Distance semantics are converted
// to similarity in exactly one place, by the retriever.
type Candidate struct {
	ChunkID  string  `json:"chunk_id"`
	Distance float32 `json:"distance"`
}

// SearchOptions narrows a vector search.
type SearchOptions struct {
	// Sources restricts candidates to chunks from these source names.
	Sources []string `json:"sources,omitempty"`
}

// VectorIndex is the stage-1 collaborator: similarity search over chunk
// embeddings plus the population operations indexing needs.
type VectorIndex interface {
	// Search returns the topK nearest candidates to the query vector.
	Search(ctx context.Context, queryVector []float32, topK int, opts *SearchOptions) ([]Candidate, error)

	// Metric reports the distance metric Search results carry.
	Metric() string

	// Insert adds chunk embeddings in a single batch operation.
	Insert(ctx context.Context, chunks []corpus.Chunk) error

	// Flush ensures all pending data is persisted.
	Flush(ctx context.Context) error

	// Exists checks which chunk IDs are already present.
	// Returns a map where keys are chunk IDs and values indicate presence.
	Exists(ctx context.Context, chunkIDs []string) (map[string]bool, error)

	// Delete removes records by chunk IDs.
	Delete(ctx context.Context, chunkIDs []string) error

	// GetStats returns collection statistics (record count, etc.)
	GetStats(ctx context.Context) (map[string]interface{}, error)

	// Close releases resources and closes connections.
	Close() error
}

// ScoredChunk is one ranked retrieval result. Scores are per-request
// and never persisted.
type ScoredChunk struct {
	Chunk           *corpus.Chunk `json:"chunk"`
	SimilarityScore float64       `json:"similarity_score"`
	MetadataBoost   float64       `json:"metadata_boost"`
	FinalScore      float64       `json:"final_score"`
}

// Result is the outcome of one retrieval request.
type Result struct {
	Query             string             `json:"query"`
	Analysis          *analyzer.Analysis `json:"analysis"`
	Chunks            []ScoredChunk      `json:"chunks"`
	CandidateCount    int                `json:"candidate_count"`
	SkippedCandidates int                `json:"skipped_candidates"`
	Elapsed           time.Duration      `json:"elapsed"`
}

// IndexOptions provides configuration for corpus indexing.
type IndexOptions struct {
	// BatchSize determines how many chunks to insert per batch
	BatchSize int

	// Workers sets the size of the insert worker pool
	Workers int

	// ForceReindex will delete and re-insert chunks even if they exist
	ForceReindex bool

	// SkipExisting will check if a chunk already exists and skip it
	SkipExisting bool
}
