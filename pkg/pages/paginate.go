package pages

import (
	"regexp"
	"strings"
)

var paragraphBreakRE = regexp.MustCompile(`\n\s*\n`)

// Split breaks text into pages of at most wordsPerPage words. Whole
// paragraphs are kept together when they fit; a paragraph longer than a page
// is cut between words. Whitespace inside a paragraph is collapsed to single
// spaces and paragraphs on the same page are separated by a blank line.
func Split(text string, wordsPerPage int) []string {
	if wordsPerPage < 1 {
		wordsPerPage = 1
	}

	pages := []string{}
	current := []string{}
	currentWords := 0

	flush := func() {
		if len(current) > 0 {
			pages = append(pages, strings.Join(current, "\n\n"))
			current = current[:0]
			currentWords = 0
		}
	}

	for _, paragraph := range paragraphBreakRE.Split(text, -1) {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			continue
		}

		if currentWords+len(words) <= wordsPerPage {
			current = append(current, strings.Join(words, " "))
			currentWords += len(words)
			continue
		}

		flush()

		for len(words) > wordsPerPage {
			pages = append(pages, strings.Join(words[:wordsPerPage], " "))
			words = words[wordsPerPage:]
		}
		current = append(current, strings.Join(words, " "))
		currentWords = len(words)
	}
	flush()

	return pages
}

// CountWords counts whitespace separated words.
func CountWords(s string) int {
	return len(strings.Fields(s))
}
