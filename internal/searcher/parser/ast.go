package parser

import "strings"

type NodeKind int

const (
	NodeTerm NodeKind = iota
	NodePhrase
	NodeNot
	NodeAnd
	NodeOr
)

// Node is a boolean query expression. Term carries Value, Phrase carries
// Words (two or more), Not has one child, And and Or have two or more.
type Node struct {
	Kind     NodeKind
	Value    string
	Words    []string
	Children []*Node
}

func termNode(value string) *Node {
	return &Node{Kind: NodeTerm, Value: value}
}

func notNode(child *Node) *Node {
	return &Node{Kind: NodeNot, Children: []*Node{child}}
}

// phraseNode returns nil for an empty phrase and a plain term for a phrase
// of one word.
func phraseNode(words []string) *Node {
	switch len(words) {
	case 0:
		return nil
	case 1:
		return termNode(words[0])
	default:
		return &Node{Kind: NodePhrase, Words: words}
	}
}

// joinNodes builds an n-ary And or Or from the non-nil operands, collapsing
// to the operand itself when only one remains.
func joinNodes(kind NodeKind, operands []*Node) *Node {
	children := make([]*Node, 0, len(operands))
	for _, op := range operands {
		if op != nil {
			children = append(children, op)
		}
	}
	switch len(children) {
	case 0:
		return nil
	case 1:
		return children[0]
	default:
		return &Node{Kind: kind, Children: children}
	}
}

func precedence(kind NodeKind) int {
	switch kind {
	case NodeOr:
		return 1
	case NodeAnd:
		return 2
	case NodeNot:
		return 3
	default:
		return 4
	}
}

// Serialize writes n in tsquery syntax: "a & b", "a | b", "!a" and
// "(a <-> b)". Parentheses are emitted only where precedence requires them.
// A nil node serializes to the empty string.
func Serialize(n *Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	writeNode(&b, n)
	return b.String()
}

func writeNode(b *strings.Builder, n *Node) {
	switch n.Kind {
	case NodeTerm:
		b.WriteString(n.Value)
	case NodePhrase:
		b.WriteByte('(')
		b.WriteString(strings.Join(n.Words, " <-> "))
		b.WriteByte(')')
	case NodeNot:
		b.WriteByte('!')
		writeOperand(b, n.Children[0], precedence(NodeNot))
	case NodeAnd, NodeOr:
		sep := " & "
		if n.Kind == NodeOr {
			sep = " | "
		}
		for i, child := range n.Children {
			if i > 0 {
				b.WriteString(sep)
			}
			writeOperand(b, child, precedence(n.Kind))
		}
	}
}

func writeOperand(b *strings.Builder, n *Node, parentPrec int) {
	if precedence(n.Kind) < parentPrec {
		b.WriteByte('(')
		writeNode(b, n)
		b.WriteByte(')')
		return
	}
	writeNode(b, n)
}

// String renders the tree in a prefix form for debugging and tests, e.g.
// AND(cats, NOT(dogs)).
func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	switch n.Kind {
	case NodeTerm:
		return n.Value
	case NodePhrase:
		return `PHRASE("` + strings.Join(n.Words, " ") + `")`
	}
	parts := make([]string, len(n.Children))
	for i, c := range n.Children {
		parts[i] = c.String()
	}
	var name string
	switch n.Kind {
	case NodeNot:
		name = "NOT"
	case NodeAnd:
		name = "AND"
	case NodeOr:
		name = "OR"
	}
	return name + "(" + strings.Join(parts, ", ") + ")"
}
