package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/tollelege/catena/internal/corpus"
	"github.com/tollelege/catena/internal/llm"
)

// Config holds analyzer tuning knobs.
type Config struct {
	// MaxVocabSamples bounds how many vocabulary values the prompt
	// shows per category (0 = show all).
	MaxVocabSamples int
}

// DefaultConfig returns the standard analyzer configuration.
func DefaultConfig() Config {
	return Config{
		MaxVocabSamples: 40,
	}
}

// Analyzer classifies queries and suggests metadata filters.
type Analyzer struct {
	llm    llm.LLM
	config Config
}

// NewAnalyzer creates an Analyzer backed by the given LLM.
func NewAnalyzer(model llm.LLM, config Config) (*Analyzer, error) {
	if model == nil {
		return nil, fmt.Errorf("llm cannot be nil")
	}
	return &Analyzer{
		llm:    model,
		config: config,
	}, nil
}

// Analyze classifies the query and suggests filters validated against
// the corpus vocabularies. It never returns an error: any LLM failure,
// timeout, or unparseable response degrades to DefaultAnalysis so the
// caller can continue on vector similarity alone.
func (a *Analyzer) Analyze(ctx context.Context, query string, vocab *corpus.Vocabularies) *Analysis {
	if strings.TrimSpace(query) == "" || vocab == nil {
		return DefaultAnalysis()
	}

	prompt := buildAnalysisPrompt(query, vocab, a.config.MaxVocabSamples)

	raw, err := a.llm.Generate(ctx, prompt)
	if err != nil {
		log.Printf("[Analyzer] Analysis failed, continuing without filters: %v", err)
		return DefaultAnalysis()
	}

	analysis, err := parseAnalysis(raw)
	if err != nil {
		log.Printf("[Analyzer] Unparseable analysis response, continuing without filters: %v", err)
		return DefaultAnalysis()
	}

	dropped := validateFilters(&analysis.SuggestedFilters, vocab)
	if dropped > 0 {
		log.Printf("[Analyzer] Dropped %d suggested filter values not found in the corpus", dropped)
	}

	return analysis
}

// parseAnalysis decodes the LLM response, tolerating markdown code
// fences and surrounding prose.
func parseAnalysis(raw string) (*Analysis, error) {
	cleaned := stripCodeFence(raw)

	var analysis Analysis
	if err := json.Unmarshal([]byte(cleaned), &analysis); err != nil {
		// Some models wrap the object in commentary; retry on the
		// outermost brace pair.
		start := strings.IndexByte(cleaned, '{')
		end := strings.LastIndexByte(cleaned, '}')
		if start < 0 || end <= start {
			return nil, err
		}
		if err := json.Unmarshal([]byte(cleaned[start:end+1]), &analysis); err != nil {
			return nil, err
		}
	}

	analysis.QueryType = QueryType(strings.ToLower(strings.TrimSpace(string(analysis.QueryType))))
	if !analysis.QueryType.Valid() {
		analysis.QueryType = QueryOther
	}
	if analysis.SearchStrategy == "" {
		analysis.SearchStrategy = "metadata-boosted vector search"
	}

	return &analysis, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// validateFilters drops suggested values absent from the corpus
// vocabularies and normalizes scripture references. It returns the
// number of dropped values. Suggestions are never repaired or invented;
// a wrong value is simply removed.
func validateFilters(f *Filters, vocab *corpus.Vocabularies) int {
	dropped := 0

	f.Concepts, dropped = keepMembers(f.Concepts, vocab.HasConcept, dropped)
	f.DiscourseElements, dropped = keepMembers(f.DiscourseElements, func(v string) bool {
		return vocab.HasDiscourseTag(v) || vocab.HasDiscourseCategory(v)
	}, dropped)
	f.NamedEntities, dropped = keepMembers(f.NamedEntities, vocab.HasNamedEntity, dropped)
	f.Sources, dropped = keepMembers(f.Sources, vocab.HasSource, dropped)
	f.Authors, dropped = keepMembers(f.Authors, vocab.HasAuthor, dropped)

	refs := f.ScriptureReferences[:0]
	for _, ref := range f.ScriptureReferences {
		normalized := corpus.NormalizeReference(ref)
		if normalized == "" {
			dropped++
			continue
		}
		refs = append(refs, normalized)
	}
	f.ScriptureReferences = refs

	return dropped
}

func keepMembers(values []string, isMember func(string) bool, dropped int) ([]string, int) {
	kept := values[:0]
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || !isMember(v) {
			dropped++
			continue
		}
		kept = append(kept, v)
	}
	return kept, dropped
}
