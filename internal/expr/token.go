package expr

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokString
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokLParen
	tokRParen
	tokComma
	tokGT
	tokLT
	tokGE
	tokLE
	tokEQ
	tokNE
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// tokenize splits an expression into tokens. It never allocates an AST, so
// lexical errors carry precise byte offsets.
func tokenize(input string) ([]token, *ParseError) {
	var tokens []token
	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c >= '0' && c <= '9':
			start := i
			for i < len(input) && input[i] >= '0' && input[i] <= '9' {
				i++
			}
			if i < len(input) && input[i] == '.' {
				i++
				if i >= len(input) || input[i] < '0' || input[i] > '9' {
					return nil, &ParseError{Pos: start, Msg: "malformed number"}
				}
				for i < len(input) && input[i] >= '0' && input[i] <= '9' {
					i++
				}
			}
			tokens = append(tokens, token{tokNumber, input[start:i], start})
		case isIdentStart(c):
			start := i
			for i < len(input) && isIdentPart(input[i]) {
				i++
			}
			tokens = append(tokens, token{tokIdent, input[start:i], start})
		case c == '"':
			start := i
			end := strings.IndexByte(input[i+1:], '"')
			if end < 0 {
				return nil, &ParseError{Pos: start, Msg: "unterminated string literal"}
			}
			tokens = append(tokens, token{tokString, input[i+1 : i+1+end], start})
			i += end + 2
		case c == '+':
			tokens = append(tokens, token{tokPlus, "+", i})
			i++
		case c == '-':
			tokens = append(tokens, token{tokMinus, "-", i})
			i++
		case c == '*':
			tokens = append(tokens, token{tokStar, "*", i})
			i++
		case c == '/':
			tokens = append(tokens, token{tokSlash, "/", i})
			i++
		case c == '(':
			tokens = append(tokens, token{tokLParen, "(", i})
			i++
		case c == ')':
			tokens = append(tokens, token{tokRParen, ")", i})
			i++
		case c == ',':
			tokens = append(tokens, token{tokComma, ",", i})
			i++
		case c == '>':
			if i+1 < len(input) && input[i+1] == '=' {
				tokens = append(tokens, token{tokGE, ">=", i})
				i += 2
			} else {
				tokens = append(tokens, token{tokGT, ">", i})
				i++
			}
		case c == '<':
			if i+1 < len(input) && input[i+1] == '=' {
				tokens = append(tokens, token{tokLE, "<=", i})
				i += 2
			} else {
				tokens = append(tokens, token{tokLT, "<", i})
				i++
			}
		case c == '=':
			if i+1 < len(input) && input[i+1] == '=' {
				tokens = append(tokens, token{tokEQ, "==", i})
				i += 2
			} else {
				return nil, &ParseError{Pos: i, Msg: "single '=' is not an operator, use '=='"}
			}
		case c == '!':
			if i+1 < len(input) && input[i+1] == '=' {
				tokens = append(tokens, token{tokNE, "!=", i})
				i += 2
			} else {
				return nil, &ParseError{Pos: i, Msg: "single '!' is not an operator, use '!='"}
			}
		default:
			return nil, &ParseError{Pos: i, Msg: fmt.Sprintf("unexpected character %q", c)}
		}
	}
	tokens = append(tokens, token{tokEOF, "", len(input)})
	return tokens, nil
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
