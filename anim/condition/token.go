package condition

type tokenType int

const (
	tokEOF tokenType = iota
	tokIdentifier
	tokInt
	tokFloat
	tokBool
	tokLParen
	tokRParen
	tokOp
)

type token struct {
	typ tokenType
	lit string
	pos int
}

type lexer struct {
	src string
	pos int
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.src) && isSpace(l.src[l.pos]) {
		l.pos++
	}
	start := l.pos
	if l.pos >= len(l.src) {
		return token{typ: tokEOF, pos: start}, nil
	}

	ch := l.src[l.pos]
	l.pos++
	switch {
	case ch == '(':
		return token{typ: tokLParen, lit: "(", pos: start}, nil
	case ch == ')':
		return token{typ: tokRParen, lit: ")", pos: start}, nil
	case isDigit(ch):
		typ := tokInt
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
		if l.pos < len(l.src) && l.src[l.pos] == '.' {
			typ = tokFloat
			l.pos++
			for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
				l.pos++
			}
		}
		if l.pos < len(l.src) && isIdentStart(l.src[l.pos]) {
			// 12abc
			return token{}, fail(UnexpectedChar, token{lit: l.src[l.pos : l.pos+1], pos: l.pos})
		}
		return token{typ: typ, lit: l.src[start:l.pos], pos: start}, nil
	case isIdentStart(ch):
		for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
			l.pos++
		}
		lit := l.src[start:l.pos]
		if lit == "true" || lit == "false" {
			return token{typ: tokBool, lit: lit, pos: start}, nil
		}
		return token{typ: tokIdentifier, lit: lit, pos: start}, nil
	}

	switch ch {
	case '+', '-', '*', '/':
		return token{typ: tokOp, lit: string(ch), pos: start}, nil
	case '<', '>', '!':
		if l.pos < len(l.src) && l.src[l.pos] == '=' {
			l.pos++
			return token{typ: tokOp, lit: string(ch) + "=", pos: start}, nil
		}
		return token{typ: tokOp, lit: string(ch), pos: start}, nil
	case '=':
		if l.pos < len(l.src) && l.src[l.pos] == '=' {
			l.pos++
			return token{typ: tokOp, lit: "==", pos: start}, nil
		}
	case '&':
		if l.pos < len(l.src) && l.src[l.pos] == '&' {
			l.pos++
			return token{typ: tokOp, lit: "&&", pos: start}, nil
		}
	case '|':
		if l.pos < len(l.src) && l.src[l.pos] == '|' {
			l.pos++
			return token{typ: tokOp, lit: "||", pos: start}, nil
		}
	}

	return token{}, fail(UnexpectedChar, token{lit: string(ch), pos: start})
}

func tokenize(src string) ([]token, error) {
	l := &lexer{src: src}
	var toks []token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.typ == tokEOF {
			return toks, nil
		}
	}
}
