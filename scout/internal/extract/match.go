package extract

import (
	"strings"
	"unicode"
)

// Matches reports whether text plausibly refers to the query. Listing
// sites render the same title across inconsistent fragments, so matching
// falls through three tiers, each anchored at word boundaries:
//
//  1. the full query token sequence appears consecutively in the text
//  2. any single query token appears in the text
//  3. a text token and a query token of 3+ characters share a
//     3-character prefix
func Matches(text, query string) bool {
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return false
	}
	textTokens := tokenize(text)
	if len(textTokens) == 0 {
		return false
	}

	if containsSequence(textTokens, queryTokens) {
		return true
	}

	set := make(map[string]bool, len(textTokens))
	for _, t := range textTokens {
		set[t] = true
	}
	for _, q := range queryTokens {
		if set[q] {
			return true
		}
	}

	for _, q := range queryTokens {
		if len(q) < 3 {
			continue
		}
		prefix := q[:3]
		for _, t := range textTokens {
			if strings.HasPrefix(t, prefix) {
				return true
			}
		}
	}

	return false
}

// tokenize lowercases and splits on any non-alphanumeric rune.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func containsSequence(haystack, needle []string) bool {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return false
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j, n := range needle {
			if haystack[i+j] != n {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
