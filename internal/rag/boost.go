package rag

import (
	"strings"

	"github.com/tollelege/catena/internal/analyzer"
	"github.com/tollelege/catena/internal/corpus"
)

// MaxMetadataBoost caps the total boost a chunk can earn. A perfect
// metadata match may at most add this much on top of a similarity score
// in [0,1], so annotation agreement can outrank raw vector proximity
// without drowning it entirely.
const MaxMetadataBoost = 1.5

// Per-category weights, in priority order. Concept agreement counts
// most; scripture matching is tiered so an exact verse hit always beats
// a same-chapter hit, which beats a same-book hit.
const (
	conceptWeight   = 0.30
	discourseWeight = 0.20
	entityWeight    = 0.10
	queryTypeWeight = 0.05

	scriptureExactWeight   = 0.25
	scriptureChapterWeight = 0.15
	scriptureBookWeight    = 0.05

	scriptureExactCeiling   = 0.50
	scriptureChapterCeiling = 0.30
	scriptureBookCeiling    = 0.10
)

// queryTypeTagGroups maps a query type to the discourse tags whose
// presence earns a structural bonus: doctrinal questions favor logical
// argumentation, historical questions favor narrative passages.
var queryTypeTagGroups = map[analyzer.QueryType][]string{
	analyzer.QueryDoctrinal:  {"Logical/Claim", "Logical/Argument", "Logical/Evidence"},
	analyzer.QueryHistorical: {"Historical/Event", "Historical/Narrative", "Historical/Setting"},
}

// MetadataBoost computes the deterministic re-ranking boost a chunk
// earns for the analyzed query. It is a pure function of its arguments:
// the same metadata, filters, and query type always produce the same
// boost, clamped to [0, MaxMetadataBoost].
func MetadataBoost(meta *corpus.Metadata, filters *analyzer.Filters, queryType analyzer.QueryType) float64 {
	if meta == nil {
		return 0
	}

	boost := 0.0
	if filters != nil {
		boost += conceptWeight * float64(countOverlap(meta.Concepts, filters.Concepts))
		boost += discourseWeight * float64(countDiscourseMatches(meta.DiscourseTags, filters.DiscourseElements))
		boost += scriptureBoost(meta.ScriptureReferences, filters.ScriptureReferences)
		boost += entityWeight * float64(countOverlap(meta.NamedEntities, filters.NamedEntities))
	}
	boost += queryTypeBoost(meta.DiscourseTags, queryType)

	if boost < 0 {
		return 0
	}
	return min(boost, MaxMetadataBoost)
}

// countOverlap counts filter values present in the chunk's values.
// Matching is exact: both sides pass through the analyzer's vocabulary
// validation, so they are already canonical.
func countOverlap(chunkValues, filterValues []string) int {
	if len(chunkValues) == 0 || len(filterValues) == 0 {
		return 0
	}
	present := make(map[string]struct{}, len(chunkValues))
	for _, v := range chunkValues {
		present[v] = struct{}{}
	}
	count := 0
	for _, v := range filterValues {
		if _, ok := present[v]; ok {
			count++
		}
	}
	return count
}

// countDiscourseMatches counts filter values that match at least one
// chunk discourse tag. A full Category/Element value requires an exact
// tag match; a bare category matches any tag under it ("Logical"
// matches "Logical/Claim" but never "Psychological/Claim").
func countDiscourseMatches(tags, filterValues []string) int {
	if len(tags) == 0 || len(filterValues) == 0 {
		return 0
	}
	count := 0
	for _, value := range filterValues {
		if discourseMatches(tags, value) {
			count++
		}
	}
	return count
}

func discourseMatches(tags []string, value string) bool {
	bareCategory := !strings.Contains(value, "/")
	for _, tag := range tags {
		if tag == value {
			return true
		}
		if bareCategory && strings.HasPrefix(tag, value+"/") {
			return true
		}
	}
	return false
}

// scriptureBoost scores scripture agreement in three tiers. Each filter
// reference lands in its single best tier (exact, then chapter, then
// book) and contributes that tier's weight once; per-tier sums are
// capped so a pile of book-level hits cannot impersonate an exact one.
// Matching is case-insensitive on normalized references.
func scriptureBoost(chunkRefs, filterRefs []string) float64 {
	if len(chunkRefs) == 0 || len(filterRefs) == 0 {
		return 0
	}

	folded := make([]string, 0, len(chunkRefs))
	for _, ref := range chunkRefs {
		if f := strings.ToLower(corpus.NormalizeReference(ref)); f != "" {
			folded = append(folded, f)
		}
	}
	if len(folded) == 0 {
		return 0
	}

	var exact, chapter, book float64
	for _, ref := range filterRefs {
		filter := strings.ToLower(corpus.NormalizeReference(ref))
		if filter == "" {
			continue
		}
		switch {
		case matchesExact(folded, filter):
			exact += scriptureExactWeight
		case matchesChapter(folded, filter):
			chapter += scriptureChapterWeight
		case matchesBook(folded, filter):
			book += scriptureBookWeight
		}
	}

	return min(exact, scriptureExactCeiling) +
		min(chapter, scriptureChapterCeiling) +
		min(book, scriptureBookCeiling)
}

func matchesExact(chunkRefs []string, filter string) bool {
	for _, ref := range chunkRefs {
		if ref == filter {
			return true
		}
	}
	return false
}

// matchesChapter compares "Book Chapter" parts, so a "Genesis 1" filter
// matches "Genesis 1:26" but never "Genesis 14:2".
func matchesChapter(chunkRefs []string, filter string) bool {
	filterChapter := corpus.ChapterOf(filter)
	if filterChapter == "" {
		return false
	}
	for _, ref := range chunkRefs {
		if corpus.ChapterOf(ref) == filterChapter {
			return true
		}
	}
	return false
}

func matchesBook(chunkRefs []string, filter string) bool {
	filterBook := corpus.BookOf(filter)
	if filterBook == "" {
		return false
	}
	for _, ref := range chunkRefs {
		if corpus.BookOf(ref) == filterBook {
			return true
		}
	}
	return false
}

// queryTypeBoost awards a small structural bonus per favored discourse
// pattern present in the chunk. Tags match by prefix so deeper variants
// of a favored tag still count.
func queryTypeBoost(tags []string, queryType analyzer.QueryType) float64 {
	group, ok := queryTypeTagGroups[queryType]
	if !ok || len(tags) == 0 {
		return 0
	}
	boost := 0.0
	for _, want := range group {
		for _, tag := range tags {
			if strings.HasPrefix(tag, want) {
				boost += queryTypeWeight
				break
			}
		}
	}
	return boost
}
