package formula

import (
	"fmt"
	"math"
	"strconv"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokLParen
	tokRParen
)

type token struct {
	kind  tokenKind
	value float64
	pos   int
}

// maxNesting bounds parenthesis and unary-sign recursion.
const maxNesting = 256

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// checkCharacters enforces the arithmetic character whitelist.
func checkCharacters(expr string) error {
	for i := 0; i < len(expr); i++ {
		c := expr[i]
		switch {
		case isDigit(c), isSpace(c):
		case c == '+', c == '-', c == '*', c == '/', c == '(', c == ')', c == '.':
		default:
			return fmt.Errorf("%w: %q at offset %d", ErrDisallowedCharacters, c, i)
		}
	}
	return nil
}

func tokenize(expr string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(expr) {
		c := expr[i]
		switch {
		case isSpace(c):
			i++
		case isDigit(c) || c == '.':
			start := i
			seenDot := false
			for i < len(expr) && (isDigit(expr[i]) || expr[i] == '.') {
				if expr[i] == '.' {
					if seenDot {
						return nil, fmt.Errorf("%w: invalid number at offset %d", ErrMalformed, start)
					}
					seenDot = true
				}
				i++
			}
			lit := expr[start:i]
			if lit == "." {
				return nil, fmt.Errorf("%w: invalid number at offset %d", ErrMalformed, start)
			}
			v, err := strconv.ParseFloat(lit, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: invalid number %q", ErrMalformed, lit)
			}
			tokens = append(tokens, token{kind: tokNumber, value: v, pos: start})
		default:
			var kind tokenKind
			switch c {
			case '+':
				kind = tokPlus
			case '-':
				kind = tokMinus
			case '*':
				kind = tokStar
			case '/':
				kind = tokSlash
			case '(':
				kind = tokLParen
			case ')':
				kind = tokRParen
			default:
				return nil, fmt.Errorf("%w: %q at offset %d", ErrDisallowedCharacters, c, i)
			}
			tokens = append(tokens, token{kind: kind, pos: i})
			i++
		}
	}
	return append(tokens, token{kind: tokEOF, pos: len(expr)}), nil
}

// arithmeticParser is a recursive-descent evaluator over + - * / and
// parentheses. Multiplicative operators bind tighter than additive ones and
// operators of equal precedence associate to the left.
type arithmeticParser struct {
	tokens []token
	pos    int
	depth  int
}

// evalArithmetic computes a whitelisted arithmetic expression.
func evalArithmetic(expr string) (float64, error) {
	if err := checkCharacters(expr); err != nil {
		return 0, err
	}
	tokens, err := tokenize(expr)
	if err != nil {
		return 0, err
	}
	p := &arithmeticParser{tokens: tokens}
	v, err := p.parseSum()
	if err != nil {
		return 0, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return 0, fmt.Errorf("%w: unexpected token at offset %d", ErrMalformed, tok.pos)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrNonFinite
	}
	return v, nil
}

func (p *arithmeticParser) peek() token {
	return p.tokens[p.pos]
}

func (p *arithmeticParser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *arithmeticParser) parseSum() (float64, error) {
	left, err := p.parseProduct()
	if err != nil {
		return 0, err
	}
	for {
		op := p.peek().kind
		if op != tokPlus && op != tokMinus {
			return left, nil
		}
		p.next()
		right, err := p.parseProduct()
		if err != nil {
			return 0, err
		}
		if op == tokPlus {
			left += right
		} else {
			left -= right
		}
	}
}

func (p *arithmeticParser) parseProduct() (float64, error) {
	left, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for {
		op := p.peek().kind
		if op != tokStar && op != tokSlash {
			return left, nil
		}
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		if op == tokStar {
			left *= right
			continue
		}
		if right == 0 {
			return 0, ErrDivisionByZero
		}
		left /= right
	}
}

func (p *arithmeticParser) parseUnary() (float64, error) {
	tok := p.peek()
	if tok.kind != tokPlus && tok.kind != tokMinus {
		return p.parsePrimary()
	}
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxNesting {
		return 0, fmt.Errorf("%w: nesting too deep", ErrMalformed)
	}
	p.next()
	v, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	if tok.kind == tokMinus {
		return -v, nil
	}
	return v, nil
}

func (p *arithmeticParser) parsePrimary() (float64, error) {
	tok := p.next()
	switch tok.kind {
	case tokNumber:
		return tok.value, nil
	case tokLParen:
		p.depth++
		defer func() { p.depth-- }()
		if p.depth > maxNesting {
			return 0, fmt.Errorf("%w: nesting too deep", ErrMalformed)
		}
		v, err := p.parseSum()
		if err != nil {
			return 0, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return 0, fmt.Errorf("%w: missing closing parenthesis at offset %d", ErrMalformed, closing.pos)
		}
		return v, nil
	case tokEOF:
		return 0, fmt.Errorf("%w: unexpected end of expression", ErrMalformed)
	default:
		return 0, fmt.Errorf("%w: unexpected token at offset %d", ErrMalformed, tok.pos)
	}
}
