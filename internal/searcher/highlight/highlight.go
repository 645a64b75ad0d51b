// Package highlight cuts result snippets out of document text and marks the
// query's include terms in them.
package highlight

import (
	"html"
	"strings"
	"unicode"
)

// DefaultWindow is the snippet length in words used when the caller passes a
// non-positive window.
const DefaultWindow = 12

const ellipsis = "..."

// Snippet returns up to window words of text around the first word that is
// an include term, with every include-term occurrence wrapped in <b></b>.
// Words in exclude are never marked, even when also listed in include.
// Matching ignores case and surrounding punctuation. Text without a hit
// yields its leading words. The output is HTML-escaped.
func Snippet(text string, include, exclude []string, window int) string {
	if window <= 0 {
		window = DefaultWindow
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}

	marked := termSet(include)
	for _, t := range exclude {
		delete(marked, strings.ToLower(t))
	}

	first := -1
	for i, w := range words {
		if _, ok := marked[normalize(w)]; ok {
			first = i
			break
		}
	}

	start := 0
	if first >= 0 {
		start = first - window/3
		if start < 0 {
			start = 0
		}
	}
	end := start + window
	if end > len(words) {
		end = len(words)
		if start = end - window; start < 0 {
			start = 0
		}
	}

	var b strings.Builder
	if start > 0 {
		b.WriteString(ellipsis)
	}
	for i := start; i < end; i++ {
		if i > start {
			b.WriteByte(' ')
		}
		w := words[i]
		if _, ok := marked[normalize(w)]; ok {
			b.WriteString("<b>")
			b.WriteString(html.EscapeString(w))
			b.WriteString("</b>")
			continue
		}
		b.WriteString(html.EscapeString(w))
	}
	if end < len(words) {
		b.WriteString(ellipsis)
	}
	return b.String()
}

func termSet(terms []string) map[string]struct{} {
	set := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		set[strings.ToLower(t)] = struct{}{}
	}
	return set
}

// normalize lowercases w and trims leading and trailing runes that are
// neither letters nor digits, so "Cats," matches the term "cats".
func normalize(w string) string {
	return strings.ToLower(strings.TrimFunc(w, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}))
}
