package analyzer

import (
	"fmt"
	"strings"

	"github.com/tollelege/catena/internal/corpus"
)

// buildAnalysisPrompt assembles the classification prompt. Vocabulary
// lists are truncated to maxSamples per category so the prompt stays
// bounded on large corpora; validation afterwards runs against the full
// vocabularies regardless of what the prompt showed.
func buildAnalysisPrompt(query string, vocab *corpus.Vocabularies, maxSamples int) string {
	var b strings.Builder

	b.WriteString("You are a research librarian for a corpus of annotated theological texts. ")
	b.WriteString("Classify the user's query and suggest metadata filters that would surface ")
	b.WriteString("the most relevant passages.\n\n")

	b.WriteString("# Query\n\n")
	b.WriteString(fmt.Sprintf("**Query:** %s\n\n", query))

	b.WriteString("# Query Types\n\n")
	b.WriteString("- doctrinal: asks what is taught or believed about a doctrine\n")
	b.WriteString("- exegetical: asks about the meaning of a specific passage\n")
	b.WriteString("- historical: asks about events, periods, or development over time\n")
	b.WriteString("- biographical: asks about a person's life or character\n")
	b.WriteString("- comparative: contrasts positions, authors, or traditions\n")
	b.WriteString("- practical: asks how a teaching applies to life or ministry\n")
	b.WriteString("- general: broad or exploratory\n")
	b.WriteString("- other: none of the above\n\n")

	b.WriteString("# Corpus Vocabulary\n\n")
	writeVocabSection(&b, "Concepts", vocab.Concepts(), maxSamples)
	writeVocabSection(&b, "Discourse Tags", vocab.DiscourseTags(), maxSamples)
	writeVocabSection(&b, "Named Entities", vocab.NamedEntities(), maxSamples)
	writeVocabSection(&b, "Sources", vocab.Sources(), maxSamples)
	writeVocabSection(&b, "Authors", vocab.Authors(), maxSamples)

	b.WriteString("# Task\n\n")
	b.WriteString("Respond with a single JSON object and nothing else:\n\n")
	b.WriteString("{\n")
	b.WriteString("  \"query_type\": \"doctrinal\",\n")
	b.WriteString("  \"suggested_filters\": {\n")
	b.WriteString("    \"concepts\": [],\n")
	b.WriteString("    \"discourse_elements\": [],\n")
	b.WriteString("    \"scripture_references\": [],\n")
	b.WriteString("    \"named_entities\": [],\n")
	b.WriteString("    \"sources\": [],\n")
	b.WriteString("    \"authors\": []\n")
	b.WriteString("  },\n")
	b.WriteString("  \"search_strategy\": \"one sentence explaining the filter choices\"\n")
	b.WriteString("}\n\n")
	b.WriteString("Use only values that appear in the vocabulary lists above. ")
	b.WriteString("For discourse_elements you may give a full Category/Element tag or a bare category. ")
	b.WriteString("Write scripture_references as Book Chapter:Verse (verse optional). ")
	b.WriteString("Leave a list empty rather than inventing values.\n")

	return b.String()
}

func writeVocabSection(b *strings.Builder, title string, values []string, maxSamples int) {
	if len(values) == 0 {
		return
	}
	shown := values
	if maxSamples > 0 && len(values) > maxSamples {
		shown = values[:maxSamples]
		b.WriteString(fmt.Sprintf("**%s** (showing %d of %d): ", title, maxSamples, len(values)))
	} else {
		b.WriteString(fmt.Sprintf("**%s:** ", title))
	}
	b.WriteString(strings.Join(shown, "; "))
	b.WriteString("\n\n")
}
