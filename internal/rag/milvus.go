package rag

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/tollelege/catena/internal/corpus"
)

func init() {
	// Load .env for Milvus configuration
	_ = godotenv.Load("../../../.env")
}

// Common errors for Milvus operations
var (
	ErrInvalidDimension = errors.New("invalid vector dimension")
	ErrEmptyChunks      = errors.New("no chunks provided for insertion")
	ErrConnectionFailed = errors.New("failed to connect to Milvus")
	ErrInsertFailed     = errors.New("failed to insert chunks")
	ErrSearchFailed     = errors.New("failed to search vectors")
)

// MilvusConfig holds configuration for Milvus connection and collection
type MilvusConfig struct {
	Address        string // Milvus server address (e.g., "localhost:19530")
	CollectionName string // Name of the collection
	Dimension      int    // Vector dimension (1536 for text-embedding-3-small)
	IndexType      string // Index type (default: "HNSW")
	MetricType     string // Similarity metric (default: "COSINE")

	// HNSW index parameters
	M              int // HNSW M parameter (default: 16)
	EfConstruction int // HNSW efConstruction (default: 256)
}

// DefaultMilvusConfig returns default configuration from environment variables
func DefaultMilvusConfig() MilvusConfig {
	address := os.Getenv("MILVUS_ADDRESS")
	if address == "" {
		address = "localhost:19530"
	}

	collection := os.Getenv("MILVUS_COLLECTION")
	if collection == "" {
		collection = "catena_chunks"
	}

	return MilvusConfig{
		Address:        address,
		CollectionName: collection,
		Dimension:      DefaultEmbeddingDimension,
		IndexType:      "HNSW",
		MetricType:     MetricCosine,
		M:              16,
		EfConstruction: 256,
	}
}

// MilvusIndex implements VectorIndex using Milvus. The collection holds
// chunk identities and embeddings only; chunk content stays in the
// corpus store, which is the system of record.
type MilvusIndex struct {
	client client.Client
	config MilvusConfig
}

// NewMilvusIndex connects to Milvus and ensures the collection exists
// with the chunk schema.
func NewMilvusIndex(ctx context.Context, config MilvusConfig) (*MilvusIndex, error) {
	if config.Dimension <= 0 {
		return nil, ErrInvalidDimension
	}

	c, err := client.NewGrpcClient(ctx, config.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	index := &MilvusIndex{
		client: c,
		config: config,
	}

	if err := index.ensureCollection(ctx); err != nil {
		c.Close()
		return nil, err
	}

	return index, nil
}

// Metric reports the distance metric search results carry.
func (m *MilvusIndex) Metric() string {
	return m.config.MetricType
}

// ensureCollection creates the collection with schema if it doesn't exist
func (m *MilvusIndex) ensureCollection(ctx context.Context) error {
	has, err := m.client.HasCollection(ctx, m.config.CollectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if has {
		// Collection exists; make sure it is loaded for search
		if err := m.client.LoadCollection(ctx, m.config.CollectionName, false); err != nil {
			return fmt.Errorf("failed to load collection: %w", err)
		}
		return nil
	}

	schema := &entity.Schema{
		CollectionName: m.config.CollectionName,
		AutoID:         true,
		Fields: []*entity.Field{
			{
				Name:       "id",
				DataType:   entity.FieldTypeInt64,
				PrimaryKey: true,
				AutoID:     true,
			},
			{
				Name:     "chunk_id",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "128",
				},
			},
			{
				Name:     "source",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "512",
				},
			},
			{
				Name:     "embedding",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", m.config.Dimension),
				},
			},
		},
	}

	if err := m.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	metric := entity.COSINE
	if m.config.MetricType == MetricL2 {
		metric = entity.L2
	}

	idx, err := entity.NewIndexHNSW(metric, m.config.M, m.config.EfConstruction)
	if err != nil {
		return fmt.Errorf("failed to create index config: %w", err)
	}

	if err := m.client.CreateIndex(ctx, m.config.CollectionName, "embedding", idx, false); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	if err := m.client.LoadCollection(ctx, m.config.CollectionName, false); err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	return nil
}

// Insert adds chunk embeddings to Milvus in a single batch.
func (m *MilvusIndex) Insert(ctx context.Context, chunks []corpus.Chunk) error {
	if len(chunks) == 0 {
		return ErrEmptyChunks
	}

	chunkIDs := make([]string, len(chunks))
	sources := make([]string, len(chunks))
	embeddings := make([][]float32, len(chunks))

	for i, chunk := range chunks {
		if len(chunk.Embedding) != m.config.Dimension {
			return fmt.Errorf("%w: chunk %q has dimension %d, expected %d",
				ErrInvalidDimension, chunk.ID, len(chunk.Embedding), m.config.Dimension)
		}
		chunkIDs[i] = chunk.ID
		sources[i] = chunk.Source
		embeddings[i] = chunk.Embedding
	}

	columns := []entity.Column{
		entity.NewColumnVarChar("chunk_id", chunkIDs),
		entity.NewColumnVarChar("source", sources),
		entity.NewColumnFloatVector("embedding", m.config.Dimension, embeddings),
	}

	if _, err := m.client.Insert(ctx, m.config.CollectionName, "", columns...); err != nil {
		return fmt.Errorf("%w: %v", ErrInsertFailed, err)
	}

	return nil
}

// Flush ensures all pending inserts are persisted.
func (m *MilvusIndex) Flush(ctx context.Context) error {
	if err := m.client.Flush(ctx, m.config.CollectionName, false); err != nil {
		return fmt.Errorf("failed to flush data: %w", err)
	}
	return nil
}

// Search performs top-K similarity search with an optional source
// filter. Results carry distances under the configured metric: Milvus
// reports COSINE hits as similarities, converted here to 1-score so the
// retriever sees a distance regardless of metric.
func (m *MilvusIndex) Search(ctx context.Context, queryVector []float32, topK int, opts *SearchOptions) ([]Candidate, error) {
	if len(queryVector) != m.config.Dimension {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrInvalidDimension, m.config.Dimension, len(queryVector))
	}

	expr := ""
	if opts != nil && len(opts.Sources) > 0 {
		expr = sourceFilterExpr(opts.Sources)
	}

	sp, err := entity.NewIndexHNSWSearchParam(64) // ef parameter for search
	if err != nil {
		return nil, fmt.Errorf("failed to create search params: %w", err)
	}

	metric := entity.COSINE
	if m.config.MetricType == MetricL2 {
		metric = entity.L2
	}

	vectors := []entity.Vector{entity.FloatVector(queryVector)}

	results, err := m.client.Search(
		ctx,
		m.config.CollectionName,
		nil, // partition names
		expr,
		[]string{"chunk_id"},
		vectors,
		"embedding",
		metric,
		topK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}

	if len(results) == 0 {
		return []Candidate{}, nil
	}

	candidates := make([]Candidate, 0, results[0].ResultCount)
	for i := 0; i < results[0].ResultCount; i++ {
		candidate := Candidate{
			Distance: m.scoreToDistance(results[0].Scores[i]),
		}
		for _, field := range results[0].Fields {
			if field.Name() == "chunk_id" {
				candidate.ChunkID = field.(*entity.ColumnVarChar).Data()[i]
			}
		}
		candidates = append(candidates, candidate)
	}

	return candidates, nil
}

// scoreToDistance folds Milvus score semantics into distances. COSINE
// scores are similarities (higher is closer); L2 scores are already
// distances.
func (m *MilvusIndex) scoreToDistance(score float32) float32 {
	if m.config.MetricType == MetricCosine {
		return 1 - score
	}
	return score
}

// sourceFilterExpr builds a boolean expression restricting hits to the
// given source names.
func sourceFilterExpr(sources []string) string {
	quoted := make([]string, len(sources))
	for i, s := range sources {
		quoted[i] = strconv.Quote(s)
	}
	return fmt.Sprintf("source in [%s]", strings.Join(quoted, ", "))
}

// Exists checks which chunk IDs are present in the collection.
func (m *MilvusIndex) Exists(ctx context.Context, chunkIDs []string) (map[string]bool, error) {
	existenceMap := make(map[string]bool, len(chunkIDs))
	if len(chunkIDs) == 0 {
		return existenceMap, nil
	}
	for _, id := range chunkIDs {
		existenceMap[id] = false
	}

	// Query in slices to keep expression length bounded
	const sliceSize = 512
	for start := 0; start < len(chunkIDs); start += sliceSize {
		end := min(start+sliceSize, len(chunkIDs))

		quoted := make([]string, 0, end-start)
		for _, id := range chunkIDs[start:end] {
			quoted = append(quoted, strconv.Quote(id))
		}
		expr := fmt.Sprintf("chunk_id in [%s]", strings.Join(quoted, ", "))

		results, err := m.client.Query(
			ctx,
			m.config.CollectionName,
			nil, // partition names
			expr,
			[]string{"chunk_id"},
		)
		if err != nil {
			return nil, fmt.Errorf("failed to query chunks: %w", err)
		}

		for _, column := range results {
			if column.Name() != "chunk_id" {
				continue
			}
			if varcharCol, ok := column.(*entity.ColumnVarChar); ok {
				for _, id := range varcharCol.Data() {
					existenceMap[id] = true
				}
			}
		}
	}

	return existenceMap, nil
}

// Delete removes records by chunk IDs.
func (m *MilvusIndex) Delete(ctx context.Context, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}

	const sliceSize = 512
	for start := 0; start < len(chunkIDs); start += sliceSize {
		end := min(start+sliceSize, len(chunkIDs))

		quoted := make([]string, 0, end-start)
		for _, id := range chunkIDs[start:end] {
			quoted = append(quoted, strconv.Quote(id))
		}
		expr := fmt.Sprintf("chunk_id in [%s]", strings.Join(quoted, ", "))

		if err := m.client.Delete(ctx, m.config.CollectionName, "", expr); err != nil {
			return fmt.Errorf("failed to delete records: %w", err)
		}
	}

	return nil
}

// GetStats returns collection statistics
func (m *MilvusIndex) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats, err := m.client.GetCollectionStatistics(ctx, m.config.CollectionName)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	return map[string]interface{}{
		"row_count": stats["row_count"],
	}, nil
}

// Close releases resources and closes the Milvus connection
func (m *MilvusIndex) Close() error {
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}
