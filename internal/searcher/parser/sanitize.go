package parser

import (
	"regexp"
	"strings"
)

// Language names that symbol stripping would otherwise reduce to a bare letter.
var symbolicTerms = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`(?i)\bc\+\+`), "cplusplus"},
	{regexp.MustCompile(`(?i)\bc#`), "csharp"},
	{regexp.MustCompile(`(?i)\bf#`), "fsharp"},
}

var noiseReplacer = strings.NewReplacer(
	";", " ", "@", " ", "#", " ", "$", " ", "%", " ", "^", " ",
	"*", " ", "=", " ", "+", " ", "[", " ", "]", " ", "{", " ",
	"}", " ", `\`, " ", "/", " ", "<", " ", ">", " ",
)

// Sanitize drops ASCII control characters, rewrites C++, C# and F#, and
// replaces punctuation outside the query grammar with spaces. The grammar
// characters & | ! ( ) " ' - are kept. Sanitize is idempotent.
func Sanitize(query string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, query)
	for _, st := range symbolicTerms {
		cleaned = st.pattern.ReplaceAllString(cleaned, st.replacement)
	}
	return noiseReplacer.Replace(cleaned)
}
