package rag

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/tollelege/catena/internal/corpus"
)

// IndexStats reports the outcome of an indexing run.
type IndexStats struct {
	Indexed          int // chunks inserted this run
	AlreadyPresent   int // chunks skipped because the index already had them
	MissingEmbedding int // chunks skipped for lack of an embedding
}

// DefaultIndexOptions returns sensible defaults for indexing
func DefaultIndexOptions() IndexOptions {
	workers := runtime.NumCPU() / 2
	if workers < 1 {
		workers = 1
	}
	return IndexOptions{
		BatchSize:    64,
		Workers:      workers,
		ForceReindex: false,
		SkipExisting: true,
	}
}

// IndexChunks populates the vector index from pre-embedded corpus
// chunks. Batches insert concurrently through a worker pool; a single
// flush at the end persists the run. The first insert error wins and
// aborts the run's result, though in-flight batches still drain.
func IndexChunks(ctx context.Context, chunks []corpus.Chunk, index VectorIndex, opts IndexOptions) (*IndexStats, error) {
	stats := &IndexStats{}
	if len(chunks) == 0 {
		return stats, nil
	}
	if index == nil {
		return nil, fmt.Errorf("vector index cannot be nil")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultIndexOptions().BatchSize
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultIndexOptions().Workers
	}

	toIndex := make([]corpus.Chunk, 0, len(chunks))
	for _, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			stats.MissingEmbedding++
			log.Printf("[Indexer] Chunk %q has no embedding, skipping", chunk.ID)
			continue
		}
		toIndex = append(toIndex, chunk)
	}

	if opts.ForceReindex {
		ids := make([]string, len(toIndex))
		for i, chunk := range toIndex {
			ids[i] = chunk.ID
		}
		if err := index.Delete(ctx, ids); err != nil {
			return stats, fmt.Errorf("failed to delete existing chunks: %w", err)
		}
	}

	if opts.SkipExisting && !opts.ForceReindex {
		var err error
		toIndex, err = filterNewChunks(ctx, toIndex, index, stats)
		if err != nil {
			return stats, err
		}
	}

	if len(toIndex) == 0 {
		log.Printf("[Indexer] Nothing to index (%d already present)", stats.AlreadyPresent)
		return stats, nil
	}

	pool, err := ants.NewPool(opts.Workers)
	if err != nil {
		return stats, fmt.Errorf("failed to create worker pool: %w", err)
	}
	defer pool.Release()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	setErr := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	for start := 0; start < len(toIndex); start += opts.BatchSize {
		end := min(start+opts.BatchSize, len(toIndex))
		batch := toIndex[start:end]
		batchStart := start

		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			if err := index.Insert(ctx, batch); err != nil {
				setErr(fmt.Errorf("failed to insert batch starting at %d: %w", batchStart, err))
			}
		})
		if submitErr != nil {
			wg.Done()
			setErr(fmt.Errorf("failed to submit batch starting at %d: %w", batchStart, submitErr))
			break
		}
	}

	wg.Wait()

	if firstErr != nil {
		return stats, firstErr
	}

	if err := index.Flush(ctx); err != nil {
		return stats, fmt.Errorf("failed to flush index: %w", err)
	}

	stats.Indexed = len(toIndex)
	log.Printf("[Indexer] Indexed %d chunks (%d already present, %d missing embeddings)",
		stats.Indexed, stats.AlreadyPresent, stats.MissingEmbedding)
	return stats, nil
}

// filterNewChunks removes chunks already present in the index.
func filterNewChunks(ctx context.Context, chunks []corpus.Chunk, index VectorIndex, stats *IndexStats) ([]corpus.Chunk, error) {
	if len(chunks) == 0 {
		return chunks, nil
	}

	ids := make([]string, len(chunks))
	for i, chunk := range chunks {
		ids[i] = chunk.ID
	}

	existing, err := index.Exists(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing chunks: %w", err)
	}

	fresh := make([]corpus.Chunk, 0, len(chunks))
	for _, chunk := range chunks {
		if existing[chunk.ID] {
			stats.AlreadyPresent++
			continue
		}
		fresh = append(fresh, chunk)
	}

	return fresh, nil
}
