package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type TokenKind int

const (
	TokenWord TokenKind = iota
	TokenPhrase
	TokenAnd
	TokenOr
	TokenNot
	TokenLParen
	TokenRParen
)

func (k TokenKind) String() string {
	switch k {
	case TokenWord:
		return "WORD"
	case TokenPhrase:
		return "PHRASE"
	case TokenAnd:
		return "AND"
	case TokenOr:
		return "OR"
	case TokenNot:
		return "NOT"
	case TokenLParen:
		return "LPAREN"
	case TokenRParen:
		return "RPAREN"
	default:
		return "UNKNOWN"
	}
}

// Token is one lexical unit. Words is set for phrases only; Pos is the byte
// offset of the token in the lexed string.
type Token struct {
	Kind  TokenKind
	Text  string
	Words []string
	Pos   int
}

// isGrammarRune reports whether r is structural in the query grammar and can
// never be part of a word.
func isGrammarRune(r rune) bool {
	switch r {
	case '&', '|', '!', '(', ')', '"':
		return true
	}
	return false
}

// hasWordRune reports whether s has at least one letter or digit. Fragments
// made only of apostrophes or hyphens are noise.
func hasWordRune(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) >= 0
}

// splitWords breaks s on whitespace and grammar characters and keeps the
// fragments that carry a letter or digit.
func splitWords(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || isGrammarRune(r)
	})
	words := fields[:0]
	for _, f := range fields {
		if hasWordRune(f) {
			words = append(words, f)
		}
	}
	return words
}

func keywordKind(word string) (TokenKind, bool) {
	switch {
	case strings.EqualFold(word, "and"):
		return TokenAnd, true
	case strings.EqualFold(word, "or"):
		return TokenOr, true
	case strings.EqualFold(word, "not"):
		return TokenNot, true
	}
	return 0, false
}

// Lex splits sanitized query text into tokens. It never fails: a double quote
// without a partner is ignored and punctuation-only words are dropped.
func Lex(text string) []Token {
	tokens := make([]Token, 0, len(text)/4+1)
	i := 0
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		switch {
		case unicode.IsSpace(r):
			i += size
		case r == '&':
			tokens = append(tokens, Token{Kind: TokenAnd, Text: "&", Pos: i})
			i++
		case r == '|':
			tokens = append(tokens, Token{Kind: TokenOr, Text: "|", Pos: i})
			i++
		case r == '!':
			tokens = append(tokens, Token{Kind: TokenNot, Text: "!", Pos: i})
			i++
		case r == '(':
			tokens = append(tokens, Token{Kind: TokenLParen, Text: "(", Pos: i})
			i++
		case r == ')':
			tokens = append(tokens, Token{Kind: TokenRParen, Text: ")", Pos: i})
			i++
		case r == '"':
			end := strings.IndexByte(text[i+1:], '"')
			if end < 0 {
				i++
				continue
			}
			inner := text[i+1 : i+1+end]
			tokens = append(tokens, Token{
				Kind:  TokenPhrase,
				Text:  inner,
				Words: splitWords(inner),
				Pos:   i,
			})
			i += end + 2
		default:
			start := i
			for i < len(text) {
				wr, wsize := utf8.DecodeRuneInString(text[i:])
				if unicode.IsSpace(wr) || isGrammarRune(wr) {
					break
				}
				i += wsize
			}
			word := text[start:i]
			if kind, ok := keywordKind(word); ok {
				tokens = append(tokens, Token{Kind: kind, Text: word, Pos: start})
				continue
			}
			if !hasWordRune(word) {
				continue
			}
			tokens = append(tokens, Token{Kind: TokenWord, Text: word, Pos: start})
		}
	}
	return tokens
}
