package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTree(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"cats", "cats"},
		{"cats dogs", "AND(cats, dogs)"},
		{"a b | c", "OR(AND(a, b), c)"},
		{"a NOT b NOT c", "AND(a, NOT(b), NOT(c))"},
		{"NOT (a OR b)", "NOT(OR(a, b))"},
		{`"new york" pizza`, `AND(PHRASE("new york"), pizza)`},
		{`"solo"`, "solo"},
		{"a | (b | c)", "OR(a, b, c)"},
		{"(a", "a"},
		{"a)", "a"},
		{"", "<nil>"},
		{`""`, "<nil>"},
		{"( & )", "<nil>"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(Lex(tt.query)).String())
		})
	}
}

func TestSerialize(t *testing.T) {
	tree := &Node{Kind: NodeAnd, Children: []*Node{
		{Kind: NodeOr, Children: []*Node{termNode("a"), termNode("b")}},
		notNode(&Node{Kind: NodeAnd, Children: []*Node{termNode("c"), termNode("d")}}),
		phraseNode([]string{"e", "f"}),
	}}
	assert.Equal(t, "(a | b) & !(c & d) & (e <-> f)", Serialize(tree))
	assert.Equal(t, "", Serialize(nil))
}

func TestPhraseNode(t *testing.T) {
	assert.Nil(t, phraseNode(nil))
	assert.Equal(t, NodeTerm, phraseNode([]string{"x"}).Kind)
	assert.Equal(t, NodePhrase, phraseNode([]string{"x", "y"}).Kind)
}
