// Package search implements the cross-entity search engine: query
// normalization, token relevance scoring, per-entity-kind adapters and the
// fan-out coordinator that merges, sorts and paginates results.
package search

import (
	"strings"
	"unicode"
)

// Normalize turns a raw query string into a canonical token sequence:
// lowercase, strip everything that is not a word character or whitespace,
// collapse whitespace runs and split. Underscores survive so identifiers
// like cs_201 stay one token. The result may be empty, which is a
// validation failure for the search path.
func Normalize(raw string) []string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range strings.ToLower(raw) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Fields(b.String())
}
