package corpus

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

var (
	// ErrCorpusOpen indicates the corpus file could not be opened or read.
	ErrCorpusOpen = errors.New("failed to open corpus file")
)

// maxLineBytes bounds a single corpus line. Embeddings serialize to tens
// of kilobytes, well past bufio.Scanner's default token limit.
const maxLineBytes = 16 * 1024 * 1024

// LoadChunks reads a newline-delimited JSON corpus file. Malformed lines
// and chunks unusable for retrieval (missing id, text, or embedding) are
// skipped and counted; an individual bad line never aborts the load.
func LoadChunks(path string) ([]Chunk, LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("%w: %v", ErrCorpusOpen, err)
	}
	defer f.Close()

	chunks, stats, err := ReadChunks(f)
	if err != nil {
		return nil, stats, fmt.Errorf("%w: %v", ErrCorpusOpen, err)
	}

	log.Printf("[Corpus] Loaded %d chunks from %s (%d malformed, %d rejected)",
		stats.Loaded, path, stats.Malformed, stats.Rejected)
	return chunks, stats, nil
}

// ReadChunks decodes newline-delimited JSON chunks from r. Scripture
// references are normalized on the way in so every downstream consumer
// sees canonical citations.
func ReadChunks(r io.Reader) ([]Chunk, LoadStats, error) {
	var (
		chunks []Chunk
		stats  LoadStats
		lineNo int
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var chunk Chunk
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			stats.Malformed++
			log.Printf("[Corpus] Skipping malformed line %d: %v", lineNo, err)
			continue
		}

		if reason := unusableReason(&chunk); reason != "" {
			stats.Rejected++
			log.Printf("[Corpus] Skipping chunk %q (line %d): %s", chunk.ID, lineNo, reason)
			continue
		}

		for i, ref := range chunk.Metadata.ScriptureReferences {
			chunk.Metadata.ScriptureReferences[i] = NormalizeReference(ref)
		}

		chunks = append(chunks, chunk)
		stats.Loaded++
	}

	if err := scanner.Err(); err != nil {
		return nil, stats, err
	}
	return chunks, stats, nil
}

// unusableReason reports why a chunk cannot participate in retrieval, or
// "" when it can.
func unusableReason(c *Chunk) string {
	switch {
	case c.ID == "":
		return "missing id"
	case strings.TrimSpace(c.Text) == "":
		return "missing text"
	case len(c.Embedding) == 0:
		return "missing embedding"
	}
	return ""
}
