package corpus

import (
	"sort"
	"strings"
)

// Store holds the loaded corpus in memory. It is read-only after
// construction and safe for concurrent use by any number of requests.
type Store struct {
	chunks  []Chunk
	byID    map[string]*Chunk
	sources []Source
	vocab   *Vocabularies
}

// NewStore builds a Store from loaded chunks, deriving vocabularies and
// per-source aggregates once.
func NewStore(chunks []Chunk) *Store {
	s := &Store{
		chunks: chunks,
		byID:   make(map[string]*Chunk, len(chunks)),
	}
	for i := range chunks {
		s.byID[chunks[i].ID] = &chunks[i]
	}
	s.sources = aggregateSources(chunks)
	s.vocab = buildVocabularies(chunks)
	return s
}

// GetByID resolves a chunk by its identifier.
func (s *Store) GetByID(id string) (*Chunk, bool) {
	c, ok := s.byID[id]
	return c, ok
}

// All returns the loaded chunks in file order. Callers must not mutate
// the returned slice.
func (s *Store) All() []Chunk {
	return s.chunks
}

// Len reports the number of loaded chunks.
func (s *Store) Len() int {
	return len(s.chunks)
}

// Vocabularies returns the annotation vocabularies observed across the
// corpus.
func (s *Store) Vocabularies() *Vocabularies {
	return s.vocab
}

// Sources returns per-source aggregates sorted by source name.
func (s *Store) Sources() []Source {
	return s.sources
}

// SourceSlug derives the stable identifier used for a source name in
// filters and URLs: lowercased, spaces and slashes become underscores,
// dots are dropped.
func SourceSlug(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.ReplaceAll(slug, " ", "_")
	slug = strings.ReplaceAll(slug, "/", "_")
	slug = strings.ReplaceAll(slug, ".", "")
	return slug
}

func aggregateSources(chunks []Chunk) []Source {
	byName := make(map[string]*Source)
	for i := range chunks {
		c := &chunks[i]
		if c.Source == "" {
			continue
		}
		src, ok := byName[c.Source]
		if !ok {
			src = &Source{
				ID:     SourceSlug(c.Source),
				Name:   c.Source,
				Author: c.Author,
			}
			byName[c.Source] = src
		}
		if src.Author == "" && c.Author != "" {
			src.Author = c.Author
		}
		src.ChunkCount++
	}

	sources := make([]Source, 0, len(byName))
	for _, src := range byName {
		sources = append(sources, *src)
	}
	sort.Slice(sources, func(i, j int) bool {
		return sources[i].Name < sources[j].Name
	})
	return sources
}

// Vocabularies is the set of distinct annotation values observed across
// the corpus. Membership checks back the analyzer's filter validation;
// the sorted accessors feed prompt construction.
type Vocabularies struct {
	concepts            map[string]struct{}
	discourseTags       map[string]struct{}
	discourseCategories map[string]struct{}
	scriptureRefs       map[string]struct{}
	namedEntities       map[string]struct{}
	sources             map[string]struct{}
	authors             map[string]struct{}
}

func buildVocabularies(chunks []Chunk) *Vocabularies {
	v := &Vocabularies{
		concepts:            make(map[string]struct{}),
		discourseTags:       make(map[string]struct{}),
		discourseCategories: make(map[string]struct{}),
		scriptureRefs:       make(map[string]struct{}),
		namedEntities:       make(map[string]struct{}),
		sources:             make(map[string]struct{}),
		authors:             make(map[string]struct{}),
	}
	for i := range chunks {
		c := &chunks[i]
		for _, concept := range c.Metadata.Concepts {
			v.concepts[concept] = struct{}{}
		}
		for _, tag := range c.Metadata.DiscourseTags {
			v.discourseTags[tag] = struct{}{}
			if category, _, ok := strings.Cut(tag, "/"); ok {
				v.discourseCategories[category] = struct{}{}
			}
		}
		for _, ref := range c.Metadata.ScriptureReferences {
			v.scriptureRefs[ref] = struct{}{}
		}
		for _, entity := range c.Metadata.NamedEntities {
			v.namedEntities[entity] = struct{}{}
		}
		if c.Source != "" {
			v.sources[c.Source] = struct{}{}
		}
		if c.Author != "" {
			v.authors[c.Author] = struct{}{}
		}
	}
	return v
}

// HasConcept reports whether the concept appears anywhere in the corpus.
func (v *Vocabularies) HasConcept(concept string) bool {
	_, ok := v.concepts[concept]
	return ok
}

// HasDiscourseTag reports whether the exact Category/Element tag appears
// in the corpus.
func (v *Vocabularies) HasDiscourseTag(tag string) bool {
	_, ok := v.discourseTags[tag]
	return ok
}

// HasDiscourseCategory reports whether the bare category prefix appears
// in any corpus discourse tag.
func (v *Vocabularies) HasDiscourseCategory(category string) bool {
	_, ok := v.discourseCategories[category]
	return ok
}

// HasScriptureReference reports whether the normalized reference appears
// in the corpus.
func (v *Vocabularies) HasScriptureReference(ref string) bool {
	_, ok := v.scriptureRefs[ref]
	return ok
}

// HasNamedEntity reports whether the Class/Entity value appears in the
// corpus.
func (v *Vocabularies) HasNamedEntity(entity string) bool {
	_, ok := v.namedEntities[entity]
	return ok
}

// HasSource reports whether the source name appears in the corpus.
func (v *Vocabularies) HasSource(source string) bool {
	_, ok := v.sources[source]
	return ok
}

// HasAuthor reports whether the author appears in the corpus.
func (v *Vocabularies) HasAuthor(author string) bool {
	_, ok := v.authors[author]
	return ok
}

// Concepts returns the sorted concept vocabulary.
func (v *Vocabularies) Concepts() []string { return sortedKeys(v.concepts) }

// DiscourseTags returns the sorted discourse tag vocabulary.
func (v *Vocabularies) DiscourseTags() []string { return sortedKeys(v.discourseTags) }

// NamedEntities returns the sorted named entity vocabulary.
func (v *Vocabularies) NamedEntities() []string { return sortedKeys(v.namedEntities) }

// Sources returns the sorted source names.
func (v *Vocabularies) Sources() []string { return sortedKeys(v.sources) }

// Authors returns the sorted author names.
func (v *Vocabularies) Authors() []string { return sortedKeys(v.authors) }

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
