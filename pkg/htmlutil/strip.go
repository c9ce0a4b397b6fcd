// Package htmlutil turns HTML book content into plain text.
package htmlutil

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Elements that end a paragraph.
var blockElements = map[atom.Atom]bool{
	atom.Article:    true,
	atom.Blockquote: true,
	atom.Div:        true,
	atom.H1:         true,
	atom.H2:         true,
	atom.H3:         true,
	atom.H4:         true,
	atom.H5:         true,
	atom.H6:         true,
	atom.Hr:         true,
	atom.Li:         true,
	atom.P:          true,
	atom.Pre:        true,
	atom.Section:    true,
	atom.Tr:         true,
}

// Elements whose text is never part of the content.
var skippedElements = map[atom.Atom]bool{
	atom.Head:   true,
	atom.Script: true,
	atom.Style:  true,
	atom.Title:  true,
}

// StripTags returns the text of an HTML document with one paragraph per
// block element. Paragraphs are separated by a blank line, whitespace inside
// them is collapsed, and entities are decoded.
func StripTags(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))

	paragraphs := []string{}
	var current strings.Builder
	skipDepth := 0

	flush := func() {
		if text := strings.Join(strings.Fields(current.String()), " "); text != "" {
			paragraphs = append(paragraphs, text)
		}
		current.Reset()
	}

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF is the only error a strings.Reader produces.
			flush()
			return strings.Join(paragraphs, "\n\n")
		case html.TextToken:
			if skipDepth == 0 {
				current.Write(z.Text())
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if skippedElements[a] && tt == html.StartTagToken {
				skipDepth++
			}
			if blockElements[a] {
				flush()
			}
			if a == atom.Br {
				current.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if skippedElements[a] && skipDepth > 0 {
				skipDepth--
			}
			if blockElements[a] {
				flush()
			}
		}
	}
}
