package parser

import (
	"sort"
	"strings"
)

// Terms holds the lower-cased, deduplicated vocabulary of a query. Both
// slices are sorted; a self-contradictory query may list a word in both.
type Terms struct {
	Include []string `json:"include"`
	Exclude []string `json:"exclude"`
}

// Classify extracts include and exclude words from sanitized query text. It
// reads the same token stream the compiler parses but builds no tree, and it
// never fails.
//
// A word is excluded when a NOT (or "!") precedes it, possibly through
// opening parentheses, or when it sits inside a negated group. An operator
// between the NOT and the word cancels the negation.
func Classify(sanitized string) Terms {
	include := make(map[string]struct{})
	exclude := make(map[string]struct{})

	var (
		pending bool
		groups  []bool // negation of each open group
	)
	inNegatedGroup := func() bool {
		return len(groups) > 0 && groups[len(groups)-1]
	}

	for _, tok := range Lex(sanitized) {
		switch tok.Kind {
		case TokenNot:
			pending = true
		case TokenLParen:
			groups = append(groups, pending || inNegatedGroup())
			pending = false
		case TokenRParen:
			if len(groups) > 0 {
				groups = groups[:len(groups)-1]
			}
			pending = false
		case TokenAnd, TokenOr:
			pending = false
		case TokenWord, TokenPhrase:
			target := include
			if pending || inNegatedGroup() {
				target = exclude
			}
			words := tok.Words
			if tok.Kind == TokenWord {
				words = []string{tok.Text}
			}
			for _, w := range words {
				target[strings.ToLower(w)] = struct{}{}
			}
			pending = false
		}
	}

	return Terms{
		Include: sortedKeys(include),
		Exclude: sortedKeys(exclude),
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
