package search

import (
	"strings"
	"unicode"
)

// Question words and fillers that never identify an accident.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "been": true, "of": true, "and": true, "or": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "from": true,
	"by": true, "with": true, "during": true, "between": true, "what": true,
	"which": true, "who": true, "when": true, "where": true, "how": true,
	"many": true, "much": true, "did": true, "do": true, "does": true,
	"there": true, "any": true, "all": true, "list": true, "show": true,
	"tell": true, "me": true, "about": true,
}

// keywords returns the lowercase content words of text, in order, with
// stop words and duplicates removed.
func keywords(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		if stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

// containsAll reports whether every keyword appears as a word in text.
func containsAll(text string, words []string) bool {
	if len(words) == 0 {
		return false
	}
	present := make(map[string]bool)
	for _, w := range keywords(text) {
		present[w] = true
	}
	for _, w := range words {
		if !present[w] {
			return false
		}
	}
	return true
}
