// Package sortname derives the keys books are listed by.
package sortname

import (
	"strings"
)

// Articles that are moved to the end of a title for sorting.
var articles = []string{"the", "a", "an"}

// ForTitle moves a leading article to the end of a title, so "The Hobbit"
// sorts as "Hobbit, The". Runs of whitespace are collapsed.
func ForTitle(title string) string {
	title = strings.Join(strings.Fields(title), " ")

	first, rest, ok := strings.Cut(title, " ")
	if !ok {
		return title
	}
	for _, article := range articles {
		if strings.EqualFold(first, article) {
			return rest + ", " + first
		}
	}
	return title
}
