// Package analyzer extracts structured search intent from free-text
// queries. An LLM classifies the query and suggests metadata filters;
// every suggestion is validated against the corpus vocabularies before
// it can influence ranking. Analysis is advisory: any failure degrades
// to a neutral default and retrieval continues on vector similarity
// alone.
package analyzer

// QueryType classifies the intent of a search query.
type QueryType string

const (
	QueryDoctrinal    QueryType = "doctrinal"
	QueryExegetical   QueryType = "exegetical"
	QueryHistorical   QueryType = "historical"
	QueryBiographical QueryType = "biographical"
	QueryComparative  QueryType = "comparative"
	QueryPractical    QueryType = "practical"
	QueryGeneral      QueryType = "general"
	QueryOther        QueryType = "other"
)

// Valid reports whether the query type is one of the known classes.
func (q QueryType) Valid() bool {
	switch q {
	case QueryDoctrinal, QueryExegetical, QueryHistorical, QueryBiographical,
		QueryComparative, QueryPractical, QueryGeneral, QueryOther:
		return true
	}
	return false
}

// Filters are the metadata values the analyzer suggests for ranking.
// After validation every value is a member of the corpus vocabularies,
// except scripture references, which are normalized instead (tiered
// matching lets a reference outside the corpus still match at chapter
// or book level).
type Filters struct {
	Concepts            []string `json:"concepts,omitempty"`
	DiscourseElements   []string `json:"discourse_elements,omitempty"`
	ScriptureReferences []string `json:"scripture_references,omitempty"`
	NamedEntities       []string `json:"named_entities,omitempty"`
	Sources             []string `json:"sources,omitempty"`
	Authors             []string `json:"authors,omitempty"`
}

// Empty reports whether no filter values are set.
func (f *Filters) Empty() bool {
	return len(f.Concepts) == 0 &&
		len(f.DiscourseElements) == 0 &&
		len(f.ScriptureReferences) == 0 &&
		len(f.NamedEntities) == 0 &&
		len(f.Sources) == 0 &&
		len(f.Authors) == 0
}

// Analysis is the validated result of analyzing one query.
type Analysis struct {
	QueryType        QueryType `json:"query_type"`
	SuggestedFilters Filters   `json:"suggested_filters"`
	SearchStrategy   string    `json:"search_strategy,omitempty"`
}

// DefaultAnalysis is the fallback when analysis fails, times out, or
// the query is empty. It carries no filters, so ranking reduces to raw
// vector similarity.
func DefaultAnalysis() *Analysis {
	return &Analysis{
		QueryType:      QueryGeneral,
		SearchStrategy: "vector similarity only (query analysis unavailable)",
	}
}
