package corpus

import "strings"

// ValidateChunks checks the namespace agreement invariant: every topic
// and term is a "Concept/Label" value whose concept prefix must appear
// in the chunk's own concept list, and a chunk with topics or terms must
// have a non-empty concept list.
func ValidateChunks(chunks []Chunk) []Violation {
	var violations []Violation
	for i := range chunks {
		c := &chunks[i]
		violations = appendFieldViolations(violations, c, "topics", c.Metadata.Topics)
		violations = appendFieldViolations(violations, c, "terms", c.Metadata.Terms)
	}
	return violations
}

func appendFieldViolations(violations []Violation, c *Chunk, field string, values []string) []Violation {
	concepts := make(map[string]struct{}, len(c.Metadata.Concepts))
	for _, concept := range c.Metadata.Concepts {
		concepts[concept] = struct{}{}
	}

	for _, value := range values {
		namespace, _, ok := strings.Cut(value, "/")
		if !ok || namespace == "" {
			violations = append(violations, Violation{
				ChunkID: c.ID,
				Field:   field,
				Value:   value,
				Reason:  "missing Concept/ namespace prefix",
			})
			continue
		}
		if len(concepts) == 0 {
			violations = append(violations, Violation{
				ChunkID: c.ID,
				Field:   field,
				Value:   value,
				Reason:  "chunk has namespaced annotations but an empty concept list",
			})
			continue
		}
		if _, present := concepts[namespace]; !present {
			violations = append(violations, Violation{
				ChunkID: c.ID,
				Field:   field,
				Value:   value,
				Reason:  "namespace " + namespace + " not in chunk concepts",
			})
		}
	}
	return violations
}
