package domain

import (
	"strings"

	"golang.org/x/text/cases"
)

// Searchable is anything the search box can match against
type Searchable interface {
	EntityID() string
	SearchText() []string
}

// FilterByText returns the items whose search text contains query,
// ignoring case. Only the empty query returns every item; whitespace is
// matched like any other character. Selection sets are never consulted:
// filtering only changes what is displayed.
func FilterByText[T Searchable](items []T, query string) []T {
	out := make([]T, 0, len(items))
	if query == "" {
		return append(out, items...)
	}

	// cases.Caser is stateful, so each call gets its own
	folder := cases.Fold()
	needle := folder.String(query)
	for _, item := range items {
		for _, text := range item.SearchText() {
			if strings.Contains(folder.String(text), needle) {
				out = append(out, item)
				break
			}
		}
	}
	return out
}

// IDsOf returns the ids of items in order
func IDsOf[T Searchable](items []T) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.EntityID())
	}
	return ids
}
