package corpus

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleCorpus = `{"id":"c1","text":"In the beginning God created the heavens and the earth.","source":"Commentary on Genesis","author":"John Calvin","embedding":[0.1,0.2,0.3],"metadata":{"concepts":["Creation"],"topics":["Creation/Origin Of The World"],"scripture_references":["genesis 1:1"]}}
{"id":"c2","text":"The Word became flesh and dwelt among us.","source":"On The Incarnation","author":"Athanasius","embedding":[0.4,0.5,0.6],"metadata":{"concepts":["Incarnation"],"discourse_tags":["Logical/Claim"],"scripture_references":["John 1.14"]}}
`

func TestReadChunks(t *testing.T) {
	t.Run("Valid corpus", func(t *testing.T) {
		chunks, stats, err := ReadChunks(strings.NewReader(sampleCorpus))
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if stats.Loaded != 2 {
			t.Fatalf("Expected 2 loaded chunks, got %d", stats.Loaded)
		}
		if stats.Malformed != 0 || stats.Rejected != 0 {
			t.Errorf("Expected no drops, got %d malformed, %d rejected", stats.Malformed, stats.Rejected)
		}
		if chunks[0].ID != "c1" {
			t.Errorf("Expected chunk c1 first, got %s", chunks[0].ID)
		}
		if chunks[1].Source != "On The Incarnation" {
			t.Errorf("Expected source On The Incarnation, got %q", chunks[1].Source)
		}
	})

	t.Run("Scripture references normalized on load", func(t *testing.T) {
		chunks, _, err := ReadChunks(strings.NewReader(sampleCorpus))
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if got := chunks[0].Metadata.ScriptureReferences[0]; got != "Genesis 1:1" {
			t.Errorf("Expected Genesis 1:1, got %q", got)
		}
		if got := chunks[1].Metadata.ScriptureReferences[0]; got != "John 1:14" {
			t.Errorf("Expected John 1:14, got %q", got)
		}
	})

	t.Run("Malformed line skipped and counted", func(t *testing.T) {
		input := sampleCorpus + "{not valid json\n"
		chunks, stats, err := ReadChunks(strings.NewReader(input))
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if stats.Malformed != 1 {
			t.Errorf("Expected 1 malformed line, got %d", stats.Malformed)
		}
		if len(chunks) != 2 {
			t.Errorf("Expected 2 chunks, got %d", len(chunks))
		}
	})

	t.Run("Missing text rejected", func(t *testing.T) {
		input := `{"id":"c3","text":"","source":"S","embedding":[0.1],"metadata":{}}` + "\n"
		chunks, stats, err := ReadChunks(strings.NewReader(input))
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if stats.Rejected != 1 {
			t.Errorf("Expected 1 rejected chunk, got %d", stats.Rejected)
		}
		if len(chunks) != 0 {
			t.Errorf("Expected no chunks, got %d", len(chunks))
		}
	})

	t.Run("Missing embedding rejected", func(t *testing.T) {
		input := `{"id":"c4","text":"Some text","source":"S","metadata":{}}` + "\n"
		_, stats, err := ReadChunks(strings.NewReader(input))
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if stats.Rejected != 1 {
			t.Errorf("Expected 1 rejected chunk, got %d", stats.Rejected)
		}
	})

	t.Run("Missing id rejected", func(t *testing.T) {
		input := `{"text":"Some text","source":"S","embedding":[0.1],"metadata":{}}` + "\n"
		_, stats, err := ReadChunks(strings.NewReader(input))
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if stats.Rejected != 1 {
			t.Errorf("Expected 1 rejected chunk, got %d", stats.Rejected)
		}
	})

	t.Run("Blank lines ignored", func(t *testing.T) {
		input := "\n" + sampleCorpus + "\n\n"
		_, stats, err := ReadChunks(strings.NewReader(input))
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if stats.Loaded != 2 || stats.Malformed != 0 {
			t.Errorf("Expected 2 loaded and 0 malformed, got %d and %d", stats.Loaded, stats.Malformed)
		}
	})

	t.Run("Empty input", func(t *testing.T) {
		chunks, stats, err := ReadChunks(strings.NewReader(""))
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if len(chunks) != 0 || stats.Loaded != 0 {
			t.Errorf("Expected empty result, got %d chunks", len(chunks))
		}
	})
}

func TestLoadChunks(t *testing.T) {
	t.Run("Loads from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "chunks.ndjson")
		if err := os.WriteFile(path, []byte(sampleCorpus), 0o644); err != nil {
			t.Fatalf("Failed to write corpus file: %v", err)
		}

		chunks, stats, err := LoadChunks(path)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if stats.Loaded != 2 || len(chunks) != 2 {
			t.Errorf("Expected 2 chunks, got %d loaded", stats.Loaded)
		}
	})

	t.Run("Missing file", func(t *testing.T) {
		_, _, err := LoadChunks(filepath.Join(t.TempDir(), "nope.ndjson"))
		if err == nil {
			t.Fatal("Expected error for missing file")
		}
		if !errors.Is(err, ErrCorpusOpen) {
			t.Errorf("Expected ErrCorpusOpen, got: %v", err)
		}
	})
}
