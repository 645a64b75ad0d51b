package parser

import (
	"regexp"
	"strings"
)

// Matches <-> and distance variants such as <2>.
var proximityRe = regexp.MustCompile(`<(?:-|\d+)>`)

var operatorStripper = strings.NewReplacer(
	"&", " ", "|", " ", "!", " ", "(", " ", ")", " ",
)

// ExtractIncludeTerms returns the positive words of a raw query.
func ExtractIncludeTerms(rawQuery string) []string {
	return Classify(Sanitize(rawQuery)).Include
}

// ExtractExcludeTerms returns the negated words of a raw query.
func ExtractExcludeTerms(rawQuery string) []string {
	return Classify(Sanitize(rawQuery)).Exclude
}

// ExtractAllTerms recovers the vocabulary of an already compiled query, for
// callers that only kept the compiled text (a cached result, for instance).
// The result is lower-cased, deduplicated and sorted.
func ExtractAllTerms(compiled string) []string {
	stripped := proximityRe.ReplaceAllString(compiled, " ")
	stripped = operatorStripper.Replace(stripped)
	set := make(map[string]struct{})
	for _, w := range strings.Fields(stripped) {
		set[strings.ToLower(w)] = struct{}{}
	}
	return sortedKeys(set)
}
