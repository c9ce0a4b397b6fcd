package pages

import (
	"strings"
	"unicode"
)

const (
	// SnippetLength is the target length of a search snippet, in characters.
	SnippetLength = 300
	// PreviewLength is the length of a page preview in listings.
	PreviewLength = 200

	ellipsis = "..."
)

// matches finds non-overlapping case-insensitive occurrences of query in
// content. It returns the rune offset of the first one, or -1, and the count.
func matches(content, query []rune) (int, int) {
	if len(query) == 0 || len(query) > len(content) {
		return -1, 0
	}

	first, count := -1, 0
	for i := 0; i+len(query) <= len(content); {
		if runesEqualFold(content[i:i+len(query)], query) {
			if first == -1 {
				first = i
			}
			count++
			i += len(query)
			continue
		}
		i++
	}
	return first, count
}

func runesEqualFold(a, b []rune) bool {
	for i := range a {
		if unicode.ToLower(a[i]) != unicode.ToLower(b[i]) {
			return false
		}
	}
	return true
}

// snippet returns roughly SnippetLength characters of content centred on
// the match at rune offset at. The window is trimmed to whole words and
// marked with an ellipsis on each side that was cut.
func snippet(content []rune, at, matchLen int) string {
	if len(content) <= SnippetLength {
		return strings.TrimSpace(string(content))
	}

	start := max(at-(SnippetLength-matchLen)/2, 0)
	end := min(start+SnippetLength, len(content))
	start = max(end-SnippetLength, 0)

	// Don't start or end mid-word, but never cut into the match itself.
	if start > 0 && !unicode.IsSpace(content[start-1]) {
		for start < at && !unicode.IsSpace(content[start]) {
			start++
		}
	}
	if end < len(content) && !unicode.IsSpace(content[end]) {
		for end > at+matchLen && !unicode.IsSpace(content[end-1]) {
			end--
		}
	}

	s := strings.TrimSpace(string(content[start:end]))
	if start > 0 {
		s = ellipsis + s
	}
	if end < len(content) {
		s += ellipsis
	}
	return s
}

// preview returns the first PreviewLength characters of content, cut back to
// a word boundary.
func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= PreviewLength {
		return content
	}

	cut := PreviewLength
	for cut > 0 && !unicode.IsSpace(runes[cut]) {
		cut--
	}
	if cut == 0 {
		cut = PreviewLength
	}
	return strings.TrimSpace(string(runes[:cut])) + ellipsis
}
