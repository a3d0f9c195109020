package expr

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Node is a parsed expression tree node.
type Node interface {
	nodePos() int
}

// Number is a decimal literal.
type Number struct {
	Value decimal.Decimal
	Pos   int
}

// Variable references a telemetry field of the triggering sample.
type Variable struct {
	Name string
	Pos  int
}

// String is a quoted literal, legal only as a function argument.
type String struct {
	Value string
	Pos   int
}

// Binary is an infix operation. Op holds the operator as written.
type Binary struct {
	Op          string
	Left, Right Node
	Pos         int
}

// Call is a function invocation.
type Call struct {
	Name string
	Args []Node
	Pos  int
}

func (n *Number) nodePos() int   { return n.Pos }
func (n *Variable) nodePos() int { return n.Pos }
func (n *String) nodePos() int   { return n.Pos }
func (n *Binary) nodePos() int   { return n.Pos }
func (n *Call) nodePos() int     { return n.Pos }

// Parse turns an expression into an AST. The returned error, if any, is a
// *ParseError. Parse is a pure function of its input.
func Parse(expression string) (Node, error) {
	tokens, perr := tokenize(expression)
	if perr != nil {
		return nil, perr
	}
	p := &parser{tokens: tokens}
	node, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, &ParseError{Pos: p.peek().pos, Msg: fmt.Sprintf("unexpected %q", p.peek().text)}
	}
	if err := checkStringPlacement(node, false); err != nil {
		return nil, err
	}
	return node, nil
}

// Validate reports whether an expression is syntactically valid. It is the
// save-time hook for synthetic variable definitions.
func Validate(expression string) error {
	_, err := Parse(expression)
	return err
}

// String literals only make sense as statistical function arguments; catching
// a misplaced one here keeps it a save-time rejection rather than a
// per-sample evaluation failure.
func checkStringPlacement(node Node, isArg bool) error {
	switch n := node.(type) {
	case *String:
		if !isArg {
			return &ParseError{Pos: n.Pos, Msg: "string literal is only valid as a function argument"}
		}
	case *Binary:
		if err := checkStringPlacement(n.Left, false); err != nil {
			return err
		}
		return checkStringPlacement(n.Right, false)
	case *Call:
		for _, arg := range n.Args {
			if err := checkStringPlacement(arg, true); err != nil {
				return err
			}
		}
	}
	return nil
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	t := p.peek()
	if t.kind != kind {
		return token{}, &ParseError{Pos: t.pos, Msg: fmt.Sprintf("expected %s, got %q", what, tokenText(t))}
	}
	return p.next(), nil
}

func tokenText(t token) string {
	if t.kind == tokEOF {
		return "end of expression"
	}
	return t.text
}

// comparison := additive ((">" | "<" | ">=" | "<=" | "==" | "!=") additive)*
func (p *parser) parseComparison() (Node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		switch t.kind {
		case tokGT, tokLT, tokGE, tokLE, tokEQ, tokNE:
			p.next()
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = &Binary{Op: t.text, Left: left, Right: right, Pos: t.pos}
		default:
			return left, nil
		}
	}
}

// additive := multiplicative (("+" | "-") multiplicative)*
func (p *parser) parseAdditive() (Node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokPlus && t.kind != tokMinus {
			return left, nil
		}
		p.next()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: t.text, Left: left, Right: right, Pos: t.pos}
	}
}

// multiplicative := unary (("*" | "/") unary)*
func (p *parser) parseMultiplicative() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokStar && t.kind != tokSlash {
			return left, nil
		}
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: t.text, Left: left, Right: right, Pos: t.pos}
	}
}

// unary := "-" unary | primary
func (p *parser) parseUnary() (Node, error) {
	t := p.peek()
	if t.kind == tokMinus {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		// Fold negation into the literal where possible.
		if num, ok := operand.(*Number); ok {
			return &Number{Value: num.Value.Neg(), Pos: t.pos}, nil
		}
		return &Binary{Op: "-", Left: &Number{Value: decimal.Zero, Pos: t.pos}, Right: operand, Pos: t.pos}, nil
	}
	return p.parsePrimary()
}

// primary := NUMBER | STRING | IDENT | IDENT "(" args ")" | "(" comparison ")"
func (p *parser) parsePrimary() (Node, error) {
	t := p.peek()
	switch t.kind {
	case tokNumber:
		p.next()
		value, err := decimal.NewFromString(t.text)
		if err != nil {
			return nil, &ParseError{Pos: t.pos, Msg: fmt.Sprintf("malformed number %q", t.text)}
		}
		return &Number{Value: value, Pos: t.pos}, nil
	case tokString:
		p.next()
		return &String{Value: t.text, Pos: t.pos}, nil
	case tokIdent:
		p.next()
		if p.peek().kind != tokLParen {
			return &Variable{Name: t.text, Pos: t.pos}, nil
		}
		p.next() // consume "("
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		return &Call{Name: t.text, Args: args, Pos: t.pos}, nil
	case tokLParen:
		p.next()
		inner, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, `")"`); err != nil {
			return nil, err
		}
		return inner, nil
	default:
		return nil, &ParseError{Pos: t.pos, Msg: fmt.Sprintf("unexpected %q", tokenText(t))}
	}
}

// args := [comparison ("," comparison)*] ")"
func (p *parser) parseArgs() ([]Node, error) {
	if p.peek().kind == tokRParen {
		p.next()
		return nil, nil
	}
	var args []Node
	for {
		arg, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		t := p.peek()
		switch t.kind {
		case tokComma:
			p.next()
		case tokRParen:
			p.next()
			return args, nil
		default:
			return nil, &ParseError{Pos: t.pos, Msg: fmt.Sprintf(`expected "," or ")", got %q`, tokenText(t))}
		}
	}
}
