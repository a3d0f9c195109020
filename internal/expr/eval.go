package expr

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Context supplies an evaluation with the triggering sample's fields and
// with windowed statistics.
type Context interface {
	// Lookup resolves a raw telemetry variable by name.
	Lookup(name string) (decimal.Decimal, bool)
	// Aggregate computes a statistical function over a trailing time window
	// ending at the reference timestamp bound to the context.
	Aggregate(fn string, variable string, window Window) (decimal.Decimal, error)
}

// aggregateFuncs are the statistical functions dispatched through
// Context.Aggregate. min and max are listed here but double as math
// functions when called with numeric arguments.
var aggregateFuncs = map[string]bool{
	"avg":           true,
	"stddev":        true,
	"sum":           true,
	"count":         true,
	"min":           true,
	"max":           true,
	"rate":          true,
	"percentchange": true,
}

// Evaluate parses an expression and evaluates it against ctx. Errors are
// either a *ParseError or an *EvalError.
func Evaluate(expression string, ctx Context) (decimal.Decimal, error) {
	node, err := Parse(expression)
	if err != nil {
		return decimal.Zero, err
	}
	return Eval(node, ctx)
}

// Eval evaluates a parsed expression against ctx.
func Eval(node Node, ctx Context) (decimal.Decimal, error) {
	switch n := node.(type) {
	case *Number:
		return n.Value, nil
	case *Variable:
		value, ok := ctx.Lookup(n.Name)
		if !ok {
			return decimal.Zero, evalErrf(UndefinedVariable, "%q", n.Name)
		}
		return value, nil
	case *String:
		// Parse rejects misplaced string literals; this is unreachable for
		// trees produced by Parse.
		return decimal.Zero, evalErrf(InvalidArgument, "string literal %q used as a value", n.Value)
	case *Binary:
		return evalBinary(n, ctx)
	case *Call:
		return evalCall(n, ctx)
	default:
		return decimal.Zero, evalErrf(InvalidArgument, "unsupported expression node")
	}
}

func evalBinary(n *Binary, ctx Context) (decimal.Decimal, error) {
	left, err := Eval(n.Left, ctx)
	if err != nil {
		return decimal.Zero, err
	}
	right, err := Eval(n.Right, ctx)
	if err != nil {
		return decimal.Zero, err
	}

	switch n.Op {
	case "+":
		return left.Add(right), nil
	case "-":
		return left.Sub(right), nil
	case "*":
		return left.Mul(right), nil
	case "/":
		if right.IsZero() {
			return decimal.Zero, &EvalError{Kind: DivisionByZero}
		}
		return left.Div(right), nil
	case ">":
		return boolDecimal(left.Cmp(right) > 0), nil
	case "<":
		return boolDecimal(left.Cmp(right) < 0), nil
	case ">=":
		return boolDecimal(left.Cmp(right) >= 0), nil
	case "<=":
		return boolDecimal(left.Cmp(right) <= 0), nil
	case "==":
		return boolDecimal(left.Cmp(right) == 0), nil
	case "!=":
		return boolDecimal(left.Cmp(right) != 0), nil
	default:
		return decimal.Zero, evalErrf(InvalidArgument, "unknown operator %q", n.Op)
	}
}

func evalCall(n *Call, ctx Context) (decimal.Decimal, error) {
	name := strings.ToLower(n.Name)

	if aggregateFuncs[name] {
		// min/max with numeric arguments are the variadic math forms; with a
		// leading string literal they aggregate over a window.
		if name != "min" && name != "max" {
			return evalAggregate(name, n, ctx)
		}
		if len(n.Args) > 0 {
			if _, ok := n.Args[0].(*String); ok {
				return evalAggregate(name, n, ctx)
			}
		}
	}

	switch name {
	case "if":
		if len(n.Args) != 3 {
			return decimal.Zero, evalErrf(InvalidArgument, "if: expected 3 arguments, got %d", len(n.Args))
		}
		cond, err := Eval(n.Args[0], ctx)
		if err != nil {
			return decimal.Zero, err
		}
		if !cond.IsZero() {
			return Eval(n.Args[1], ctx)
		}
		return Eval(n.Args[2], ctx)

	case "round":
		v, err := evalSingleArg(name, n, ctx)
		if err != nil {
			return decimal.Zero, err
		}
		return v.Round(0), nil

	case "abs":
		v, err := evalSingleArg(name, n, ctx)
		if err != nil {
			return decimal.Zero, err
		}
		return v.Abs(), nil

	case "floor":
		v, err := evalSingleArg(name, n, ctx)
		if err != nil {
			return decimal.Zero, err
		}
		return v.Floor(), nil

	case "ceil":
		v, err := evalSingleArg(name, n, ctx)
		if err != nil {
			return decimal.Zero, err
		}
		return v.Ceil(), nil

	case "sqrt":
		v, err := evalSingleArg(name, n, ctx)
		if err != nil {
			return decimal.Zero, err
		}
		if v.IsNegative() {
			return decimal.Zero, evalErrf(InvalidArgument, "sqrt: negative argument")
		}
		f, _ := v.Float64()
		return decimal.NewFromFloat(math.Sqrt(f)), nil

	case "min", "max":
		if len(n.Args) == 0 {
			return decimal.Zero, evalErrf(InvalidArgument, "%s: expected at least 1 argument", name)
		}
		result, err := Eval(n.Args[0], ctx)
		if err != nil {
			return decimal.Zero, err
		}
		for _, arg := range n.Args[1:] {
			v, err := Eval(arg, ctx)
			if err != nil {
				return decimal.Zero, err
			}
			if (name == "min" && v.Cmp(result) < 0) || (name == "max" && v.Cmp(result) > 0) {
				result = v
			}
		}
		return result, nil

	case "and":
		if len(n.Args) == 0 {
			return decimal.Zero, evalErrf(InvalidArgument, "and: expected at least 1 argument")
		}
		for _, arg := range n.Args {
			v, err := Eval(arg, ctx)
			if err != nil {
				return decimal.Zero, err
			}
			if v.IsZero() {
				return decimal.Zero, nil
			}
		}
		return decimal.NewFromInt(1), nil

	case "or":
		if len(n.Args) == 0 {
			return decimal.Zero, evalErrf(InvalidArgument, "or: expected at least 1 argument")
		}
		for _, arg := range n.Args {
			v, err := Eval(arg, ctx)
			if err != nil {
				return decimal.Zero, err
			}
			if !v.IsZero() {
				return decimal.NewFromInt(1), nil
			}
		}
		return decimal.Zero, nil

	case "not":
		v, err := evalSingleArg(name, n, ctx)
		if err != nil {
			return decimal.Zero, err
		}
		return boolDecimal(v.IsZero()), nil

	default:
		return decimal.Zero, evalErrf(UnknownFunction, "%q", n.Name)
	}
}

func evalAggregate(name string, n *Call, ctx Context) (decimal.Decimal, error) {
	if len(n.Args) != 2 {
		return decimal.Zero, evalErrf(InvalidArgument, "%s: expected 2 arguments, got %d", name, len(n.Args))
	}
	variable, ok := n.Args[0].(*String)
	if !ok {
		return decimal.Zero, evalErrf(InvalidArgument, "%s: variable name must be a string literal", name)
	}
	durationLit, ok := n.Args[1].(*String)
	if !ok {
		return decimal.Zero, evalErrf(InvalidArgument, "%s: duration must be a string literal", name)
	}
	window, err := ParseWindow(durationLit.Value)
	if err != nil {
		return decimal.Zero, err
	}
	return ctx.Aggregate(name, variable.Value, window)
}

func evalSingleArg(name string, n *Call, ctx Context) (decimal.Decimal, error) {
	if len(n.Args) != 1 {
		return decimal.Zero, evalErrf(InvalidArgument, "%s: expected 1 argument, got %d", name, len(n.Args))
	}
	return Eval(n.Args[0], ctx)
}

func boolDecimal(b bool) decimal.Decimal {
	if b {
		return decimal.NewFromInt(1)
	}
	return decimal.Zero
}
