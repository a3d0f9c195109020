package expr

import "fmt"

// ParseError reports a syntactically invalid expression. It is returned by
// Parse and Validate so a broken definition can be rejected before it is
// ever enabled.
type ParseError struct {
	Pos int // byte offset into the expression
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d: %s", e.Pos, e.Msg)
}

// EvalErrorKind classifies runtime evaluation failures.
type EvalErrorKind int

const (
	UndefinedVariable EvalErrorKind = iota
	DivisionByZero
	EmptyWindow
	InvalidDurationLiteral
	UnknownFunction
	InvalidArgument
	WindowQueryFailed
)

func (k EvalErrorKind) String() string {
	switch k {
	case UndefinedVariable:
		return "undefined variable"
	case DivisionByZero:
		return "division by zero"
	case EmptyWindow:
		return "empty window"
	case InvalidDurationLiteral:
		return "invalid duration literal"
	case UnknownFunction:
		return "unknown function"
	case InvalidArgument:
		return "invalid argument"
	case WindowQueryFailed:
		return "window query failed"
	default:
		return "evaluation error"
	}
}

// EvalError reports a failure while evaluating an expression against a
// sample. It is fatal to that one (definition, sample) evaluation only.
type EvalError struct {
	Kind   EvalErrorKind
	Detail string
	Err    error // underlying cause, set for WindowQueryFailed
}

func (e *EvalError) Error() string {
	if e.Detail == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *EvalError) Unwrap() error {
	return e.Err
}

func evalErrf(kind EvalErrorKind, format string, args ...interface{}) *EvalError {
	return &EvalError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}
