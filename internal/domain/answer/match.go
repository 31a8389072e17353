package answer

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Normalize trims s, lowercases it and collapses every whitespace run to a
// single space. The result is in Unicode NFC so that composed and decomposed
// umlauts compare equal. Normalize is idempotent.
func Normalize(s string) string {
	// A Caser keeps state between calls and must not be shared across goroutines.
	lowered := cases.Lower(language.German).String(strings.TrimSpace(s))
	return strings.Join(strings.Fields(norm.NFC.String(lowered)), " ")
}

// Match reports whether a submitted answer equals the canonical answer after
// normalization.
func Match(submitted, canonical string) bool {
	return Normalize(submitted) == Normalize(canonical)
}
