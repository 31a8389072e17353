package answer

import (
	"strings"
	"unicode"
)

// Placeholder marks the blank in a question's blank sentence.
const Placeholder = "__"

// terminators end an answer span when the blank sentence gives no usable suffix.
const terminators = ",.!?;:"

// Extract returns the canonical answer hidden in blankSentence.
//
// The text before the placeholder is located in fullSentence; the answer is
// whatever follows it up to the text after the placeholder. When the suffix
// is empty or cannot be found, the answer is the first word of the remainder.
// Trailing punctuation is stripped. The trimmed fallbackWord is returned
// whenever no non-empty answer can be recovered.
func Extract(fullSentence, blankSentence, fallbackWord string) string {
	fallback := strings.TrimSpace(fallbackWord)

	if fullSentence == "" || blankSentence == "" {
		return fallback
	}

	marker := strings.Index(blankSentence, Placeholder)
	if marker < 0 {
		return fallback
	}
	prefix := blankSentence[:marker]
	suffix := blankSentence[marker+len(Placeholder):]

	start := strings.Index(fullSentence, prefix)
	if start < 0 {
		return fallback
	}
	rest := fullSentence[start+len(prefix):]

	var candidate string
	if end := strings.Index(rest, suffix); suffix != "" && end >= 0 {
		candidate = rest[:end]
	} else {
		candidate = firstWord(rest)
	}

	candidate = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(candidate), terminators))
	if candidate == "" {
		return fallback
	}
	return candidate
}

// firstWord returns the leading run of s that contains no whitespace and
// no terminator. Leading whitespace is skipped.
func firstWord(s string) string {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	end := strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(terminators, r)
	})
	if end < 0 {
		return s
	}
	return s[:end]
}
