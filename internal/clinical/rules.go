// Package clinical holds the static clinical knowledge of the simulator: the
// world catalog, severity inference, the vitals lookup and the risk
// classifier, together with the keyword rule tables they are built on.
//
// Every keyword table is an ordered slice evaluated top to bottom. Tables
// whose callers use FirstMatch are first-match-wins; the order is part of the
// contract and is pinned by tests.
package clinical

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var lower = cases.Lower(language.Italian)

// Normalize lower-cases s with Italian rules and trims surrounding space.
// All keyword matching runs on normalized text.
func Normalize(s string) string {
	return strings.TrimSpace(lower.String(s))
}

// ContainsAny reports whether normalized text contains any of the keywords.
func ContainsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// KeywordRule maps the presence of any keyword to a value.
type KeywordRule[T any] struct {
	Keywords []string
	Value    T
}

// Matches reports whether the rule fires on already-normalized text.
func (r KeywordRule[T]) Matches(normalized string) bool {
	return ContainsAny(normalized, r.Keywords)
}

// FirstMatch returns the value of the first rule that fires on text.
func FirstMatch[T any](rules []KeywordRule[T], text string) (T, bool) {
	normalized := Normalize(text)
	for _, r := range rules {
		if r.Matches(normalized) {
			return r.Value, true
		}
	}
	var zero T
	return zero, false
}
