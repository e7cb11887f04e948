package traceql

import "regexp"

// Comparison operators.
const (
	OpExists = "exists"
	OpEq     = "=="
	OpRegex  = "~="
	OpLT     = "<"
	OpGT     = ">"
	OpLE     = "<="
	OpGE     = ">="
)

// Node is the interface implemented by all AST nodes. Nodes are built
// once per query string and never mutate during evaluation.
type Node interface {
	node() // marker method
}

// TrueExpr matches every event. It stands in for the empty filter and
// for residue the parser could not make sense of (permissive recovery).
type TrueExpr struct{}

func (TrueExpr) node() {}

// CompareExpr tests one event field against a literal. Field is a dotted
// path; Value is empty for the exists form.
type CompareExpr struct {
	Field string
	Op    string
	Value string

	// re is the pattern compiled once at parse time for ~= comparisons.
	// nil means the literal was not a valid pattern; such a comparison
	// never matches.
	re *regexp.Regexp

	// num is the literal coerced for ordering comparisons. numOK is
	// false when the literal is not numeric, making the comparison
	// always false.
	num   float64
	numOK bool
}

func (CompareExpr) node() {}

// NotExpr negates its inner expression.
type NotExpr struct {
	Expr Node
}

func (NotExpr) node() {}

// BinaryExpr is a conjunction or disjunction of two sub-expressions.
type BinaryExpr struct {
	Op    string // "AND" or "OR"
	Left  Node
	Right Node
}

func (BinaryExpr) node() {}
