package traceql

import (
	"github.com/tracelens/tracelens/internal/model"
)

// Predicate is a compiled boolean test over a single event.
type Predicate func(model.Event) bool

// CompilePredicate compiles a filter expression into a Predicate. A
// blank query compiles to a predicate that matches every event.
func CompilePredicate(input string) Predicate {
	node := Compile(input)
	return func(ev model.Event) bool {
		return Match(node, ev)
	}
}

// Match evaluates node against one event. Evaluation is pure: no node
// mutates, and both sides of a binary expression are always evaluated
// (there are no side effects to short-circuit).
func Match(node Node, ev model.Event) bool {
	switch n := node.(type) {
	case nil:
		return true
	case TrueExpr:
		return true
	case BinaryExpr:
		return evalBinary(n, ev)
	case NotExpr:
		return !Match(n.Expr, ev)
	case CompareExpr:
		return evalCompare(n, ev)
	default:
		return false
	}
}

func evalBinary(expr BinaryExpr, ev model.Event) bool {
	left := Match(expr.Left, ev)
	right := Match(expr.Right, ev)

	switch expr.Op {
	case "AND":
		return left && right
	case "OR":
		return left || right
	default:
		return false
	}
}

// evalCompare applies one comparison. A field that does not resolve is
// false for every operator except exists; type mismatches resolve to
// false rather than erroring.
func evalCompare(expr CompareExpr, ev model.Event) bool {
	switch expr.Op {
	case OpExists:
		return ev.Exists(expr.Field)

	case OpEq:
		s, ok := ev.Text(expr.Field)
		return ok && s == expr.Value

	case OpRegex:
		s, ok := ev.Text(expr.Field)
		if !ok || expr.re == nil {
			return false
		}
		return expr.re.MatchString(s)

	case OpLT, OpGT, OpLE, OpGE:
		if !expr.numOK {
			return false
		}
		f, ok := ev.Number(expr.Field)
		if !ok {
			return false
		}
		switch expr.Op {
		case OpLT:
			return f < expr.num
		case OpGT:
			return f > expr.num
		case OpLE:
			return f <= expr.num
		case OpGE:
			return f >= expr.num
		}
	}
	return false
}
