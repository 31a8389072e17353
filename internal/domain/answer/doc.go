// Package answer derives and compares fill-in answers.
//
// Extract recovers the span of a full sentence that a blank sentence hides
// behind the Placeholder marker. It runs once per question at import time and
// never fails: anything it cannot parse degrades to the vocabulary word.
//
// Normalize and Match compare a learner's submission with the stored
// canonical answer. Comparison is exact after trimming, lowercasing and
// collapsing whitespace; there is no fuzzy or accent-insensitive matching.
package answer
