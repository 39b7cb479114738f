package condition

import (
	"math"
	"strconv"

	"github.com/milk9111/animgraph/anim"
)

const (
	// MaxNodes bounds the expression tree of a single condition.
	MaxNodes = 128
	// MaxDepth bounds parenthesis and unary nesting.
	MaxDepth = 32
)

type nodeKind uint8

const (
	nodeLiteral nodeKind = iota
	nodeInput
	nodeConstant
	nodeUnary
	nodeBinary
)

type node struct {
	kind  nodeKind
	op    opcode
	value anim.Value
	index int
	left  *node
	right *node
	tok   token
}

type parser struct {
	toks  []token
	pos   int
	decl  *anim.InputDecl
	nodes []node
	open  int
	depth int
}

func parse(src string, decl *anim.InputDecl) (*node, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, decl: decl, nodes: make([]node, 0, MaxNodes)}
	root, err := p.parseBinary(0, NoReturnValue)
	if err != nil {
		return nil, err
	}
	switch t := p.current(); t.typ {
	case tokEOF:
		return root, nil
	case tokRParen:
		return nil, fail(MissingLeftParenthesis, t)
	default:
		return nil, fail(NoReturnValue, t)
	}
}

func (p *parser) current() token {
	if p.pos >= len(p.toks) {
		return token{typ: tokEOF}
	}
	return p.toks[p.pos]
}

func (p *parser) advance() token {
	t := p.current()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *parser) newNode(n node) (*node, error) {
	if len(p.nodes) == cap(p.nodes) {
		return nil, fail(OutOfMemory, n.tok)
	}
	p.nodes = append(p.nodes, n)
	return &p.nodes[len(p.nodes)-1], nil
}

func (p *parser) binaryOp() (opcode, bool) {
	t := p.current()
	if t.typ != tokOp {
		return opInvalid, false
	}
	op, ok := binaryOps[t.lit]
	return op, ok
}

// parseBinary is a precedence climbing loop; missing is reported when no
// operand is found where one is required.
func (p *parser) parseBinary(minPrec int, missing ErrorCode) (*node, error) {
	left, err := p.parseUnary(missing)
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.binaryOp()
		if !ok || precedence(op) < minPrec {
			return left, nil
		}
		tok := p.advance()
		right, err := p.parseBinary(precedence(op)+1, MissingBinaryOperand)
		if err != nil {
			return nil, err
		}
		left, err = p.newNode(node{kind: nodeBinary, op: op, left: left, right: right, tok: tok})
		if err != nil {
			return nil, err
		}
	}
}

func (p *parser) parseUnary(missing ErrorCode) (*node, error) {
	t := p.current()
	if t.typ != tokOp || (t.lit != "!" && t.lit != "-") {
		return p.parsePrimary(missing)
	}
	p.advance()
	if p.depth++; p.depth > MaxDepth {
		return nil, fail(OutOfMemory, t)
	}
	operand, err := p.parseUnary(NotEnoughParameters)
	p.depth--
	if err != nil {
		return nil, err
	}
	op := opNeg
	if t.lit == "!" {
		op = opNot
	}
	return p.newNode(node{kind: nodeUnary, op: op, left: operand, tok: t})
}

func (p *parser) parsePrimary(missing ErrorCode) (*node, error) {
	t := p.current()
	switch t.typ {
	case tokInt:
		p.advance()
		i, err := strconv.ParseInt(t.lit, 10, 32)
		if err != nil {
			return nil, fail(UnexpectedChar, t)
		}
		return p.newNode(node{kind: nodeLiteral, value: anim.IntValue(int32(i)), tok: t})
	case tokFloat:
		p.advance()
		f, err := strconv.ParseFloat(t.lit, 32)
		if err != nil || math.IsInf(f, 0) {
			return nil, fail(UnexpectedChar, t)
		}
		return p.newNode(node{kind: nodeLiteral, value: anim.FloatValue(float32(f)), tok: t})
	case tokBool:
		p.advance()
		return p.newNode(node{kind: nodeLiteral, value: anim.BoolValue(t.lit == "true"), tok: t})
	case tokIdentifier:
		p.advance()
		if p.decl != nil {
			if idx := p.decl.InputIdx(t.lit); idx >= 0 {
				return p.newNode(node{kind: nodeInput, index: idx, tok: t})
			}
			if idx := p.decl.ConstantIdx(t.lit); idx >= 0 {
				return p.newNode(node{kind: nodeConstant, index: idx, tok: t})
			}
		}
		return nil, fail(UnknownIdentifier, t)
	case tokLParen:
		p.advance()
		if p.depth++; p.depth > MaxDepth {
			return nil, fail(OutOfMemory, t)
		}
		p.open++
		inner, err := p.parseBinary(0, NoReturnValue)
		if err != nil {
			return nil, err
		}
		switch closing := p.current(); closing.typ {
		case tokRParen:
			p.advance()
		case tokEOF:
			return nil, fail(MissingRightParenthesis, closing)
		default:
			return nil, fail(NoReturnValue, closing)
		}
		p.open--
		p.depth--
		return inner, nil
	case tokRParen:
		if p.open == 0 {
			return nil, fail(MissingLeftParenthesis, t)
		}
		return nil, fail(missing, t)
	case tokOp:
		// a binary operator where an operand should start
		return nil, fail(MissingBinaryOperand, t)
	default:
		return nil, fail(missing, t)
	}
}
