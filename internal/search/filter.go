// Package search filters a file list by a free-text query.
//
// The filter is a pure function of (query, files): it keeps no state and
// does no I/O, so the viewer can re-run it on every keystroke and every
// time the file list changes.
package search

import "strings"

// Searchable is anything with a name and optionally extracted text.
type Searchable interface {
	SearchName() string
	// SearchText returns the extracted text and whether extraction has
	// settled. Pending text is never matched.
	SearchText() (text string, ok bool)
}

// Result is one kept item plus where the query was found.
// NameMatch and TextMatch are hints for the UI, not part of the filter rule.
type Result[T Searchable] struct {
	Item      T
	Index     int // position of Item in the input slice
	NameMatch bool
	TextMatch bool
}

// Normalize puts a query in the form Filter compares against.
func Normalize(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// Filter returns the items matching query, in their original order.
//
// A blank query keeps everything. Otherwise an item is kept when the
// lower-cased query is a substring of its lower-cased name or, failing that,
// of its lower-cased extracted text. The name is checked first.
func Filter[T Searchable](query string, items []T) []Result[T] {
	q := Normalize(query)
	results := make([]Result[T], 0, len(items))

	if q == "" {
		for i, it := range items {
			results = append(results, Result[T]{Item: it, Index: i})
		}
		return results
	}

	for i, it := range items {
		if strings.Contains(strings.ToLower(it.SearchName()), q) {
			// Kept already; the text check below only feeds the badge.
			results = append(results, Result[T]{Item: it, Index: i, NameMatch: true, TextMatch: textContains(it, q)})
			continue
		}
		if textContains(it, q) {
			results = append(results, Result[T]{Item: it, Index: i, TextMatch: true})
		}
	}
	return results
}

// textContains is the advisory "contains keyword" check on extracted text.
func textContains[T Searchable](it T, normalizedQuery string) bool {
	text, ok := it.SearchText()
	if !ok || text == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), normalizedQuery)
}
