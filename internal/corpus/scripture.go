package corpus

import "strings"

// NormalizeReference canonicalizes a scripture citation into
// "Book Chapter[:Verse]" form: whitespace is collapsed, the book name is
// capitalized per word, and a '.' or ',' chapter/verse separator is
// folded to ':'. Ordinal book prefixes ("1 John") survive intact.
func NormalizeReference(ref string) string {
	fields := strings.Fields(ref)
	if len(fields) == 0 {
		return ""
	}
	for i, f := range fields {
		fields[i] = capitalizeWord(f)
	}
	out := strings.Join(fields, " ")
	// "John 3.16" and "John 3,16" both occur in source annotations
	if i := strings.LastIndexAny(out, ".,"); i > 0 && i+1 < len(out) &&
		isDigit(out[i-1]) && isDigit(out[i+1]) {
		out = out[:i] + ":" + out[i+1:]
	}
	return out
}

// BookOf returns the book portion of a reference, keeping leading
// ordinals intact ("1 John 2:3" yields "1 John"). A reference that is
// only a book name is returned whole.
func BookOf(ref string) string {
	fields := strings.Fields(ref)
	for i, f := range fields {
		if i > 0 && isDigit(f[0]) {
			return strings.Join(fields[:i], " ")
		}
	}
	return strings.Join(fields, " ")
}

// ChapterOf returns the "Book Chapter" portion of a reference with any
// verse part stripped, or "" when the reference carries no chapter.
func ChapterOf(ref string) string {
	fields := strings.Fields(ref)
	for i, f := range fields {
		if i > 0 && isDigit(f[0]) {
			chapter := f
			if j := strings.IndexByte(chapter, ':'); j >= 0 {
				chapter = chapter[:j]
			}
			return strings.Join(fields[:i], " ") + " " + chapter
		}
	}
	return ""
}

func capitalizeWord(w string) string {
	if w == "" || !isLetter(w[0]) {
		return w
	}
	return strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
