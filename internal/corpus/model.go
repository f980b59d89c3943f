// Package corpus loads and serves the annotated chunk collection that
// retrieval runs against. The corpus is read once from disk and is
// immutable afterwards; vocabularies and per-source aggregates are
// derived at construction time.
package corpus

// Chunk is a single annotated excerpt of a source text, carrying the
// precomputed embedding it was indexed under.
type Chunk struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Source    string    `json:"source"`
	Author    string    `json:"author,omitempty"`
	Embedding []float32 `json:"embedding"`
	Metadata  Metadata  `json:"metadata"`
}

// Metadata holds the annotation layers attached to a chunk.
// Topics, terms, discourse tags, and named entities are namespaced
// "Prefix/Label" values; concepts are bare labels from a closed
// vocabulary.
type Metadata struct {
	Concepts            []string `json:"concepts,omitempty"`
	Topics              []string `json:"topics,omitempty"`
	Terms               []string `json:"terms,omitempty"`
	DiscourseTags       []string `json:"discourse_tags,omitempty"`
	DiscourseElements   []string `json:"discourse_elements,omitempty"`
	ScriptureReferences []string `json:"scripture_references,omitempty"`
	NamedEntities       []string `json:"named_entities,omitempty"`
	StructurePath       string   `json:"structure_path,omitempty"`
}

// Source summarizes one source text present in the corpus.
type Source struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Author     string `json:"author,omitempty"`
	ChunkCount int    `json:"chunk_count"`
}

// LoadStats reports what the loader kept and dropped.
type LoadStats struct {
	Loaded    int `json:"loaded"`
	Malformed int `json:"malformed"`
	Rejected  int `json:"rejected"` // parsed but unusable for retrieval
}

// Violation flags a chunk whose namespaced annotations disagree with its
// concept list. Violations are reported, never repaired; fixing them is
// the annotation pipeline's job.
type Violation struct {
	ChunkID string `json:"chunk_id"`
	Field   string `json:"field"`
	Value   string `json:"value"`
	Reason  string `json:"reason"`
}
