package traceql

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Parser parses filter expressions into an AST.
//
// Recovery is deliberately permissive: a blank query, an unbalanced
// parenthesis, a dangling comparator or any other unparseable residue
// degrades to TrueExpr instead of failing the whole expression, and
// trailing tokens after a complete expression are ignored. Slightly
// malformed user input still selects events rather than erroring out.
type Parser struct {
	lexer   *Lexer
	current Token
}

// Compile parses input and returns the AST root. It never fails; see the
// recovery note above. A blank input compiles to TrueExpr.
func Compile(input string) Node {
	if strings.TrimSpace(input) == "" {
		return TrueExpr{}
	}
	p := &Parser{lexer: NewLexer(input)}
	p.advance()
	return p.parseOr()
}

func (p *Parser) advance() {
	p.current = p.lexer.NextToken()
}

// parseOr handles OR expressions (lowest precedence).
func (p *Parser) parseOr() Node {
	left := p.parseAnd()
	for p.current.Type == TokenOr {
		p.advance()
		right := p.parseAnd()
		left = BinaryExpr{Op: "OR", Left: left, Right: right}
	}
	return left
}

// parseAnd handles AND expressions.
func (p *Parser) parseAnd() Node {
	left := p.parseNot()
	for p.current.Type == TokenAnd {
		p.advance()
		right := p.parseNot()
		left = BinaryExpr{Op: "AND", Left: left, Right: right}
	}
	return left
}

// parseNot handles NOT expressions. NOT is right-associative.
func (p *Parser) parseNot() Node {
	if p.current.Type == TokenNot {
		p.advance()
		return NotExpr{Expr: p.parseNot()}
	}
	return p.parsePrimary()
}

// parsePrimary handles (expr), exists(field), comparisons and bare
// fields (shorthand for exists).
func (p *Parser) parsePrimary() Node {
	switch p.current.Type {
	case TokenLParen:
		p.advance()
		expr := p.parseOr()
		if p.current.Type == TokenRParen {
			p.advance()
		}
		return expr

	case TokenIdent:
		field := p.current.Value
		p.advance()

		if strings.EqualFold(field, "exists") && p.current.Type == TokenLParen {
			return p.parseExists()
		}

		switch p.current.Type {
		case TokenEq, TokenRegex, TokenLT, TokenGT, TokenLE, TokenGE:
			op := p.current.Value
			p.advance()
			return p.parseComparison(field, op)
		}

		// Bare field
		return CompareExpr{Field: field, Op: OpExists}

	case TokenEOF:
		return TrueExpr{}

	default:
		// A string literal with no comparator, or a comparator with no
		// left-hand side: swallow one token and fall back to match-all.
		// A stray ')' is left for an enclosing group to consume.
		if p.current.Type != TokenRParen {
			p.advance()
		}
		return TrueExpr{}
	}
}

// parseExists parses the explicit exists(field) form. The opening paren
// is the current token.
func (p *Parser) parseExists() Node {
	p.advance() // consume '('
	if p.current.Type != TokenIdent {
		if p.current.Type == TokenRParen {
			p.advance()
		}
		return TrueExpr{}
	}
	field := p.current.Value
	p.advance()
	if p.current.Type == TokenRParen {
		p.advance()
	}
	return CompareExpr{Field: field, Op: OpExists}
}

// parseComparison parses the literal side of field-op-value.
func (p *Parser) parseComparison(field, op string) Node {
	if p.current.Type != TokenIdent && p.current.Type != TokenString {
		// Dangling comparator
		return TrueExpr{}
	}
	value := p.current.Value
	p.advance()

	expr := CompareExpr{Field: field, Op: op, Value: value}
	switch op {
	case OpRegex:
		expr.re, _ = regexp.Compile(value)
	case OpLT, OpGT, OpLE, OpGE:
		num, err := strconv.ParseFloat(value, 64)
		if err == nil && !math.IsNaN(num) {
			expr.num = num
			expr.numOK = true
		}
	}
	return expr
}
