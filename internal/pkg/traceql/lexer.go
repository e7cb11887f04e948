package traceql

import (
	"strings"
	"unicode"
)

// TokenType represents the type of a lexical token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIdent
	TokenString
	TokenLParen
	TokenRParen
	TokenAnd
	TokenOr
	TokenNot
	TokenEq    // ==
	TokenRegex // ~=
	TokenLT    // <
	TokenGT    // >
	TokenLE    // <=
	TokenGE    // >=
)

// Token represents a lexical token.
type Token struct {
	Type  TokenType
	Value string
}

// Lexer tokenizes filter expressions.
type Lexer struct {
	input string
	pos   int
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// NextToken returns the next token from the input. Two-character
// comparators are matched greedily before the single-character ones.
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF}
	}

	ch := l.input[l.pos]

	switch ch {
	case '(':
		l.pos++
		return Token{Type: TokenLParen, Value: "("}
	case ')':
		l.pos++
		return Token{Type: TokenRParen, Value: ")"}
	case '"':
		return l.readString()
	case '=':
		if l.pos+1 < len(l.input) && l.input[l.pos+1] == '=' {
			l.pos += 2
			return Token{Type: TokenEq, Value: "=="}
		}
	case '~':
		if l.pos+1 < len(l.input) && l.input[l.pos+1] == '=' {
			l.pos += 2
			return Token{Type: TokenRegex, Value: "~="}
		}
	case '<':
		if l.pos+1 < len(l.input) && l.input[l.pos+1] == '=' {
			l.pos += 2
			return Token{Type: TokenLE, Value: "<="}
		}
		l.pos++
		return Token{Type: TokenLT, Value: "<"}
	case '>':
		if l.pos+1 < len(l.input) && l.input[l.pos+1] == '=' {
			l.pos += 2
			return Token{Type: TokenGE, Value: ">="}
		}
		l.pos++
		return Token{Type: TokenGT, Value: ">"}
	}

	if isIdentChar(ch) {
		return l.readIdent()
	}

	// Unknown character, skip
	l.pos++
	return l.NextToken()
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) && unicode.IsSpace(rune(l.input[l.pos])) {
		l.pos++
	}
}

// readString reads a quoted literal verbatim until the closing quote.
// There is no escape processing inside quotes.
func (l *Lexer) readString() Token {
	l.pos++ // skip opening quote
	start := l.pos
	for l.pos < len(l.input) && l.input[l.pos] != '"' {
		l.pos++
	}
	value := l.input[start:l.pos]
	if l.pos < len(l.input) {
		l.pos++ // skip closing quote
	}
	return Token{Type: TokenString, Value: value}
}

func (l *Lexer) readIdent() Token {
	start := l.pos
	for l.pos < len(l.input) && isIdentChar(l.input[l.pos]) {
		l.pos++
	}
	value := l.input[start:l.pos]

	// Keywords are case-insensitive
	switch strings.ToUpper(value) {
	case "AND":
		return Token{Type: TokenAnd, Value: value}
	case "OR":
		return Token{Type: TokenOr, Value: value}
	case "NOT":
		return Token{Type: TokenNot, Value: value}
	}

	return Token{Type: TokenIdent, Value: value}
}

// isIdentChar matches the characters an identifier token may contain:
// letters, digits, underscore and dot (for dotted field paths).
func isIdentChar(ch byte) bool {
	r := rune(ch)
	return unicode.IsLetter(r) || unicode.IsDigit(r) || ch == '_' || ch == '.'
}
