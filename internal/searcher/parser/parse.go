package parser

// Grammar, lowest precedence first:
//
//	or      = and { "|" and }
//	and     = unary { ["&"] unary }
//	unary   = "!" unary | primary
//	primary = WORD | PHRASE | "(" or [")"]
//
// Adjacent operands without an operator are conjoined. The parser recovers
// from every malformed input instead of failing: operators missing an
// operand are dropped, a stray ")" is skipped, an unclosed "(" ends at the
// end of input and empty groups disappear.
type treeParser struct {
	tokens []Token
	pos    int
	depth  int
}

// Parse builds the expression tree for tokens. It returns nil when no
// operand survives, e.g. for an empty phrase or a query of only operators.
func Parse(tokens []Token) *Node {
	p := &treeParser{tokens: tokens}
	return p.parseOr()
}

func (p *treeParser) peek() (TokenKind, bool) {
	if p.pos >= len(p.tokens) {
		return 0, false
	}
	return p.tokens[p.pos].Kind, true
}

func (p *treeParser) next() Token {
	tok := p.tokens[p.pos]
	p.pos++
	return tok
}

func (p *treeParser) parseOr() *Node {
	operands := []*Node{p.parseAnd()}
	for {
		kind, ok := p.peek()
		if !ok || kind != TokenOr {
			break
		}
		p.next()
		operands = append(operands, p.parseAnd())
	}
	return joinNodes(NodeOr, flatten(NodeOr, operands))
}

func (p *treeParser) parseAnd() *Node {
	var operands []*Node
	for {
		kind, ok := p.peek()
		if !ok {
			break
		}
		switch kind {
		case TokenAnd:
			p.next()
			continue
		case TokenOr:
			return joinNodes(NodeAnd, flatten(NodeAnd, operands))
		case TokenRParen:
			if p.depth > 0 {
				return joinNodes(NodeAnd, flatten(NodeAnd, operands))
			}
			p.next()
			continue
		}
		operands = append(operands, p.parseUnary())
	}
	return joinNodes(NodeAnd, flatten(NodeAnd, operands))
}

func (p *treeParser) parseUnary() *Node {
	kind, ok := p.peek()
	if !ok {
		return nil
	}
	if kind != TokenNot {
		return p.parsePrimary()
	}
	p.next()
	operand := p.parseUnary()
	if operand == nil {
		return nil
	}
	return notNode(operand)
}

func (p *treeParser) parsePrimary() *Node {
	kind, ok := p.peek()
	if !ok {
		return nil
	}
	switch kind {
	case TokenWord:
		return termNode(p.next().Text)
	case TokenPhrase:
		return phraseNode(p.next().Words)
	case TokenLParen:
		p.next()
		p.depth++
		inner := p.parseOr()
		p.depth--
		if k, ok := p.peek(); ok && k == TokenRParen {
			p.next()
		}
		return inner
	}
	// An operator where an operand was expected; the caller consumes it.
	return nil
}

// flatten merges children of the same associative kind into the parent so
// "a & (b & c)" and "a & b & c" produce the same tree.
func flatten(kind NodeKind, operands []*Node) []*Node {
	out := make([]*Node, 0, len(operands))
	for _, op := range operands {
		if op != nil && op.Kind == kind {
			out = append(out, op.Children...)
			continue
		}
		out = append(out, op)
	}
	return out
}
