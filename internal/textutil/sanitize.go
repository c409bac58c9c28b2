package textutil

import (
	"strings"
	"unicode"
)

// unsafeSegment maps characters that cannot appear in a path segment.
var unsafeSegment = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// FileSegment turns free text into a single path segment. Whitespace runs
// become one underscore, separators and wildcards become dashes, and other
// unsafe characters are dropped. Empty results fall back to fallback.
func FileSegment(text, fallback string) string {
	fields := strings.FieldsFunc(strings.TrimSpace(text), unicode.IsSpace)
	out := unsafeSegment.Replace(strings.Join(fields, "_"))
	out = strings.Trim(out, "._")
	if out == "" {
		return fallback
	}
	return out
}

// Truncate shortens s to at most limit runes, appending "..." when cut.
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if limit <= 0 || len(runes) <= limit {
		return s
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}
